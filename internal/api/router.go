package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/longlife4everest/energy-ai-dashboard/internal/features"
	"github.com/longlife4everest/energy-ai-dashboard/internal/ingest"
	"github.com/longlife4everest/energy-ai-dashboard/internal/model"
	"github.com/longlife4everest/energy-ai-dashboard/internal/optimize"
)

const (
	// MaxHorizon caps the forecast length a client may request.
	MaxHorizon = 60
	// MaxUploadBytes caps CSV uploads.
	MaxUploadBytes = 10 << 20
)

var errBadRequest = errors.New("bad request")

type handler struct {
	svc    *Service
	parser ingest.Parser
	log    *slog.Logger
}

// NewRouter registers every route. ws may be nil to leave /ws unrouted.
func NewRouter(svc *Service, ws http.Handler, log *slog.Logger) *mux.Router {
	if log == nil {
		log = slog.Default()
	}
	h := &handler{svc: svc, parser: ingest.NewSeriesParser(), log: log}

	r := mux.NewRouter()
	r.HandleFunc("/health", h.health).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	if ws != nil {
		r.Handle("/ws", ws)
	}

	a := r.PathPrefix("/api").Subrouter()
	a.HandleFunc("/series", h.getSeries).Methods(http.MethodGet)
	a.HandleFunc("/series", h.postSeries).Methods(http.MethodPost)
	a.HandleFunc("/train", h.train).Methods(http.MethodPost)
	a.HandleFunc("/model", h.getModel).Methods(http.MethodGet)
	a.HandleFunc("/forecast", h.forecast).Methods(http.MethodGet)
	a.HandleFunc("/scenario", h.scenario).Methods(http.MethodGet)
	a.HandleFunc("/scenarios", h.scenarios).Methods(http.MethodGet)
	a.HandleFunc("/recommendation", h.recommendation).Methods(http.MethodGet)
	a.HandleFunc("/report", h.report).Methods(http.MethodGet)
	return r
}

// Wrap adds access logging and panic recovery.
func Wrap(next http.Handler, accessLog io.Writer) http.Handler {
	return handlers.RecoveryHandler()(handlers.LoggingHandler(accessLog, next))
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ok")
}

func (h *handler) getSeries(w http.ResponseWriter, r *http.Request) {
	series, source, version := h.svc.Series()
	q := r.URL.Query()
	if q.Has("from") || q.Has("to") || q.Has("last") {
		var err error
		if series, err = h.filterSeries(q); err != nil {
			h.writeError(w, err)
			return
		}
	}
	if q.Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		if err := ingest.WriteCSV(w, series); err != nil {
			h.log.Warn("writing series CSV", "err", err)
		}
		return
	}
	if series == nil {
		series = []model.SeriesPoint{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"source":  source,
		"version": version,
		"points":  series,
	})
}

// filterSeries applies the from/to date window (to is exclusive) or the
// last=N tail.
func (h *handler) filterSeries(q url.Values) ([]model.SeriesPoint, error) {
	if raw := q.Get("last"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("%w: last must be a positive integer", errBadRequest)
		}
		return h.svc.RecentSeries(n), nil
	}
	var from, to time.Time
	for _, b := range []struct {
		name string
		dst  *time.Time
	}{{"from", &from}, {"to", &to}} {
		raw := q.Get(b.name)
		if raw == "" {
			continue
		}
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s must be YYYY-MM-DD", errBadRequest, b.name)
		}
		*b.dst = t
	}
	return h.svc.SeriesBetween(from, to), nil
}

func (h *handler) postSeries(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	points, err := h.parser.Parse(body)
	if err != nil {
		h.writeError(w, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	if len(points) == 0 {
		h.writeError(w, fmt.Errorf("%w: no valid rows", errBadRequest))
		return
	}
	source := r.URL.Query().Get("source")
	if source == "" {
		source = "upload"
	}
	rep, err := h.svc.LoadSeries(points, source)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (h *handler) train(w http.ResponseWriter, r *http.Request) {
	res, rep, err := h.svc.Train()
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"trained":      res.Model != nil,
		"run_id":       res.RunID,
		"mae":          res.MAE,
		"train_rows":   res.TrainRows,
		"holdout_rows": res.HoldoutRows,
		"forecast":     nonNil(rep.Forecast),
	})
}

func (h *handler) getModel(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Model())
}

func (h *handler) forecast(w http.ResponseWriter, r *http.Request) {
	horizon := h.svc.advisor.Horizon()
	if raw := r.URL.Query().Get("horizon"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > MaxHorizon {
			h.writeError(w, fmt.Errorf("%w: horizon must be an integer in [1, %d]", errBadRequest, MaxHorizon))
			return
		}
		horizon = n
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"horizon":  horizon,
		"model":    h.svc.Model(),
		"forecast": nonNil(h.svc.Forecast(horizon)),
	})
}

func (h *handler) scenario(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	strategy, ok := model.ParseStrategy(q.Get("strategy"))
	if !ok {
		h.writeError(w, fmt.Errorf("%w: %q", optimize.ErrUnknownStrategy, q.Get("strategy")))
		return
	}
	pct, err := strconv.ParseFloat(q.Get("reduction"), 64)
	if err != nil {
		h.writeError(w, fmt.Errorf("%w: reduction %q", optimize.ErrReductionOutOfRange, q.Get("reduction")))
		return
	}
	res, err := h.svc.RunScenario(strategy, pct)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scenarioView(res))
}

func (h *handler) scenarios(w http.ResponseWriter, r *http.Request) {
	results, err := h.svc.Scenarios()
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]any, len(results))
	for i, res := range results {
		out[i] = scenarioView(res)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) recommendation(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.svc.CurrentReport()
	if !ok {
		h.writeError(w, features.ErrEmptySeries)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"recommendation": rep.Recommendation,
		"cost_trend_pct": rep.CostTrendPct,
		"emission_level": rep.EmissionLevel,
	})
}

func (h *handler) report(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.svc.CurrentReport()
	if !ok {
		h.writeError(w, features.ErrEmptySeries)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

type scenarioJSON struct {
	model.ScenarioResult
	Payback string `json:"payback"`
}

func scenarioView(r model.ScenarioResult) scenarioJSON {
	return scenarioJSON{ScenarioResult: r, Payback: r.PaybackLabel()}
}

func nonNil(fc []model.ForecastPoint) []model.ForecastPoint {
	if fc == nil {
		return []model.ForecastPoint{}
	}
	return fc
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, optimize.ErrReductionOutOfRange),
		errors.Is(err, optimize.ErrUnknownStrategy),
		errors.Is(err, optimize.ErrInvalidBaseline):
		return http.StatusBadRequest
	case errors.Is(err, features.ErrEmptySeries):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *handler) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", "err", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
