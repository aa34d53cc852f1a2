package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/longlife4everest/energy-ai-dashboard/internal/advisor"
	"github.com/longlife4everest/energy-ai-dashboard/internal/forecast"
	"github.com/longlife4everest/energy-ai-dashboard/internal/ingest"
	"github.com/longlife4everest/energy-ai-dashboard/internal/model"
	"github.com/longlife4everest/energy-ai-dashboard/internal/store"
)

type recordingNotifier struct {
	mu      sync.Mutex
	reports int
	series  []uint64
}

func (n *recordingNotifier) OnReport(advisor.Report) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reports++
}

func (n *recordingNotifier) OnSeries(_ []model.SeriesPoint, _ string, version uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.series = append(n.series, version)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T) (*Service, *recordingNotifier) {
	t.Helper()
	cfg := forecast.DefaultConfig()
	cfg.Options.Forest.Trees = 10
	log := quietLogger()
	adv := advisor.New(forecast.New(cfg, nil, log), nil, 0, log)
	n := &recordingNotifier{}
	return NewService(store.NewSeries(), adv, n, log), n
}

func loadedServer(t *testing.T) (*httptest.Server, *Service, *recordingNotifier) {
	t.Helper()
	svc, n := newTestService(t)
	_, err := svc.LoadSeries(ingest.Synthetic(24, 42, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)), "synthetic")
	require.NoError(t, err)
	srv := httptest.NewServer(NewRouter(svc, nil, quietLogger()))
	t.Cleanup(srv.Close)
	return srv, svc, n
}

func getJSON(t *testing.T, url string, into any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if into != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(into))
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	srv, _, _ := loadedServer(t)
	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok\n", string(body))
}

func TestMetrics(t *testing.T) {
	srv, _, _ := loadedServer(t)
	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "energy_advisor_training_runs_total")
	assert.Contains(t, string(body), "energy_advisor_series_points 24")
}

func TestGetSeries(t *testing.T) {
	srv, _, n := loadedServer(t)

	var out struct {
		Source  string              `json:"source"`
		Version uint64              `json:"version"`
		Points  []model.SeriesPoint `json:"points"`
	}
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/series", &out))
	assert.Equal(t, "synthetic", out.Source)
	assert.Equal(t, uint64(1), out.Version)
	assert.Len(t, out.Points, 24)
	assert.Equal(t, []uint64{1}, n.series)

	resp, err := http.Get(srv.URL + "/api/series?format=csv")
	require.NoError(t, err)
	defer resp.Body.Close()
	parsed, err := ingest.NewSeriesParser().Parse(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, out.Points, parsed)
}

func TestGetSeries_Filters(t *testing.T) {
	srv, _, _ := loadedServer(t)

	var out struct {
		Points []model.SeriesPoint `json:"points"`
	}
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/series?from=2024-01-01", &out))
	require.Len(t, out.Points, 12)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), out.Points[0].Date)

	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/series?from=2023-03-01&to=2023-06-01", &out))
	require.Len(t, out.Points, 3)
	assert.Equal(t, time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC), out.Points[2].Date)

	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/series?to=2023-02-01", &out))
	assert.Len(t, out.Points, 1)

	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/series?last=4", &out))
	require.Len(t, out.Points, 4)
	assert.Equal(t, time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC), out.Points[3].Date)

	for _, bad := range []string{"last=0", "last=x", "from=01/02/2024", "to=2024-13-01"} {
		assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/api/series?"+bad, nil), bad)
	}
}

func TestPostSeries(t *testing.T) {
	srv, svc, n := loadedServer(t)

	var buf bytes.Buffer
	require.NoError(t, ingest.WriteCSV(&buf, ingest.Synthetic(18, 7, time.Date(2022, 6, 1, 0, 0, 0, 0, time.UTC))))

	resp, err := http.Post(srv.URL+"/api/series?source=meter", "text/csv", &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rep advisor.Report
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rep))
	assert.Equal(t, 18, rep.Summary.Months)
	assert.Len(t, rep.Forecast, 3)

	_, source, version := svc.Series()
	assert.Equal(t, "meter", source)
	assert.Equal(t, uint64(2), version)
	n.mu.Lock()
	assert.Equal(t, 2, n.reports)
	n.mu.Unlock()
}

func TestPostSeries_BadInput(t *testing.T) {
	srv, _, _ := loadedServer(t)

	for name, body := range map[string]string{
		"bad header": "when,kwh\n2024-01-01,1\n",
		"no rows":    strings.Join(ingest.Columns, ",") + "\n",
		"empty":      "",
	} {
		t.Run(name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/api/series", "text/csv", strings.NewReader(body))
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestTrain(t *testing.T) {
	srv, _, _ := loadedServer(t)

	resp, err := http.Post(srv.URL+"/api/train", "", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Trained  bool                  `json:"trained"`
		RunID    string                `json:"run_id"`
		MAE      float64               `json:"mae"`
		Forecast []model.ForecastPoint `json:"forecast"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.True(t, out.Trained)
	assert.NotEmpty(t, out.RunID)
	assert.Greater(t, out.MAE, 0.0)
	assert.Len(t, out.Forecast, 3)
}

func TestTrain_EmptySeries(t *testing.T) {
	svc, _ := newTestService(t)
	srv := httptest.NewServer(NewRouter(svc, nil, quietLogger()))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/train", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestForecast(t *testing.T) {
	srv, _, _ := loadedServer(t)

	var out struct {
		Horizon  int                   `json:"horizon"`
		Forecast []model.ForecastPoint `json:"forecast"`
	}
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/forecast?horizon=6", &out))
	assert.Equal(t, 6, out.Horizon)
	require.Len(t, out.Forecast, 6)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), out.Forecast[0].Date)

	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/forecast", &out))
	assert.Len(t, out.Forecast, 3)

	for _, bad := range []string{"0", "-1", "abc", "1000"} {
		assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/api/forecast?horizon="+bad, nil), bad)
	}
}

func TestForecast_NoModel(t *testing.T) {
	svc, _ := newTestService(t)
	srv := httptest.NewServer(NewRouter(svc, nil, quietLogger()))
	defer srv.Close()

	var out struct {
		Forecast []model.ForecastPoint `json:"forecast"`
		Model    advisor.ModelInfo     `json:"model"`
	}
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/forecast", &out))
	assert.NotNil(t, out.Forecast)
	assert.Empty(t, out.Forecast)
	assert.False(t, out.Model.Available)
}

func TestScenario(t *testing.T) {
	srv, _, _ := loadedServer(t)

	var out map[string]any
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/scenario?strategy=renewable&reduction=25", &out))
	assert.Equal(t, "Renewable Integration", out["strategy"])
	assert.Equal(t, 50000.0, out["investment"])
	assert.Contains(t, out["payback"], "Years")

	out = nil
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/scenario?strategy=peak_hour&reduction=10", &out))
	assert.Equal(t, "N/A", out["payback"])
	assert.NotContains(t, out, "payback_years")

	for _, q := range []string{
		"strategy=monitor&reduction=10",
		"strategy=wind&reduction=10",
		"strategy=efficiency&reduction=101",
		"strategy=efficiency&reduction=-5",
		"strategy=efficiency&reduction=lots",
		"strategy=efficiency",
	} {
		assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/api/scenario?"+q, nil), q)
	}
}

func TestScenarios(t *testing.T) {
	srv, _, _ := loadedServer(t)

	var out []map[string]any
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/scenarios", &out))
	require.Len(t, out, 3)
	assert.Equal(t, "Efficiency Upgrade", out[0]["strategy"])
	assert.Equal(t, 15.0, out[0]["reduction_pct"])
	assert.Equal(t, "Renewable Integration", out[1]["strategy"])
	assert.Equal(t, "Peak Hour Optimization", out[2]["strategy"])
}

func TestRecommendationAndReport(t *testing.T) {
	srv, _, _ := loadedServer(t)

	var rec struct {
		Recommendation struct {
			Text     string `json:"text"`
			Strategy string `json:"strategy"`
		} `json:"recommendation"`
		EmissionLevel string `json:"emission_level"`
	}
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/recommendation", &rec))
	assert.NotEmpty(t, rec.Recommendation.Text)
	assert.Contains(t, []string{"High", "Normal"}, rec.EmissionLevel)

	var rep advisor.Report
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/report", &rep))
	assert.Equal(t, 24, rep.Summary.Months)
	assert.Len(t, rep.Combined, 27)
}

func TestReport_BeforeLoad(t *testing.T) {
	svc, _ := newTestService(t)
	srv := httptest.NewServer(NewRouter(svc, nil, quietLogger()))
	defer srv.Close()

	assert.Equal(t, http.StatusConflict, getJSON(t, srv.URL+"/api/report", nil))
	assert.Equal(t, http.StatusConflict, getJSON(t, srv.URL+"/api/recommendation", nil))
	assert.Equal(t, http.StatusConflict, getJSON(t, srv.URL+"/api/scenario?strategy=renewable&reduction=10", nil))
	assert.Equal(t, http.StatusConflict, getJSON(t, srv.URL+"/api/scenarios", nil))
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _, _ := loadedServer(t)
	resp, err := http.Post(srv.URL+"/api/report", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestWrap_RecoversPanics(t *testing.T) {
	var logBuf bytes.Buffer
	h := Wrap(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }), &logBuf)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
