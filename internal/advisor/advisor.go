// Package advisor ties feature building, training, forecasting, scenarios and
// recommendations together into a single report.
package advisor

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/longlife4everest/energy-ai-dashboard/internal/features"
	"github.com/longlife4everest/energy-ai-dashboard/internal/forecast"
	"github.com/longlife4everest/energy-ai-dashboard/internal/model"
	"github.com/longlife4everest/energy-ai-dashboard/internal/optimize"
	"github.com/longlife4everest/energy-ai-dashboard/internal/predictor"
	"github.com/longlife4everest/energy-ai-dashboard/internal/recommend"
)

// Summary holds the headline totals over the whole series.
type Summary struct {
	Months            int       `json:"months"`
	Start             time.Time `json:"start"`
	End               time.Time `json:"end"`
	TotalEnergyKWh    float64   `json:"total_energy_kwh"`
	TotalCost         float64   `json:"total_cost"`
	TotalEmissions    float64   `json:"total_emissions"`
	NextMonthForecast float64   `json:"next_month_forecast_kwh"`
}

// ModelInfo describes the model currently used for forecasts.
type ModelInfo struct {
	RunID     string         `json:"run_id,omitempty"`
	Kind      predictor.Kind `json:"kind,omitempty"`
	MAE       float64        `json:"mae"`
	TrainedAt time.Time      `json:"trained_at"`
	Available bool           `json:"available"`
}

// Report is everything the dashboard shows for one series.
type Report struct {
	GeneratedAt    time.Time                `json:"generated_at"`
	Summary        Summary                  `json:"summary"`
	Model          ModelInfo                `json:"model"`
	Forecast       []model.ForecastPoint    `json:"forecast"`
	Combined       []model.ForecastPoint    `json:"combined"`
	Baseline       model.Baseline           `json:"baseline"`
	CostTrendPct   float64                  `json:"cost_trend_pct"`
	EmissionLevel  model.EmissionLevel      `json:"emission_level"`
	Recommendation recommend.Recommendation `json:"recommendation"`
	Scenarios      []model.ScenarioResult   `json:"scenarios"`
}

// Advisor keeps the most recently trained model and builds reports from it.
type Advisor struct {
	engine  *forecast.Engine
	levers  []optimize.Lever
	horizon int
	log     *slog.Logger

	mu    sync.RWMutex
	model predictor.Regressor
	info  ModelInfo
}

// New creates an advisor. Empty levers mean optimize.DefaultLevers and a
// non-positive horizon means forecast.DefaultHorizon.
func New(engine *forecast.Engine, levers []optimize.Lever, horizon int, log *slog.Logger) *Advisor {
	if len(levers) == 0 {
		levers = optimize.DefaultLevers()
	}
	if horizon <= 0 {
		horizon = forecast.DefaultHorizon
	}
	if log == nil {
		log = slog.Default()
	}
	return &Advisor{engine: engine, levers: levers, horizon: horizon, log: log}
}

// Horizon returns the default forecast length.
func (a *Advisor) Horizon() int { return a.horizon }

// Restore loads the persisted model, if there is one.
func (a *Advisor) Restore() (bool, error) {
	m, meta, err := a.engine.LoadModel()
	if err != nil {
		return false, err
	}
	if m == nil {
		a.log.Info("no persisted model available")
		return false, nil
	}
	a.setModel(m, ModelInfo{
		RunID:     meta.RunID,
		Kind:      meta.Kind,
		MAE:       meta.MAE,
		TrainedAt: meta.TrainedAt,
		Available: true,
	})
	a.log.Info("restored persisted model", "run_id", meta.RunID, "kind", meta.Kind, "mae_kwh", meta.MAE)
	return true, nil
}

// Train fits a model on series and makes it current. Too short a series
// clears the current model and returns a result without one.
func (a *Advisor) Train(series []model.SeriesPoint) (forecast.Result, error) {
	rows, err := features.Build(series)
	if err != nil {
		return forecast.Result{}, err
	}
	res, err := a.engine.Train(rows)
	if err != nil {
		return forecast.Result{}, fmt.Errorf("training forecast model: %w", err)
	}
	if res.Model == nil {
		a.setModel(nil, ModelInfo{})
		return res, nil
	}

	info := ModelInfo{RunID: res.RunID, MAE: res.MAE, TrainedAt: res.TrainedAt, Available: true}
	if k, ok := res.Model.(interface{ Kind() predictor.Kind }); ok {
		info.Kind = k.Kind()
	}
	a.setModel(res.Model, info)
	return res, nil
}

// Model returns the current model, nil if none has been trained or restored.
func (a *Advisor) Model() (predictor.Regressor, ModelInfo) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.model, a.info
}

func (a *Advisor) setModel(m predictor.Regressor, info ModelInfo) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.model = m
	a.info = info
}

// Forecast projects horizon months past the end of series with the current
// model. With no model or an empty series the result is empty.
func (a *Advisor) Forecast(series []model.SeriesPoint, horizon int) []model.ForecastPoint {
	if len(series) == 0 {
		return nil
	}
	m, _ := a.Model()
	return a.engine.ForecastNext(m, horizon, model.EnergyValues(series), series[len(series)-1].Date)
}

// Scenario evaluates one strategy against the annual baseline of series.
func (a *Advisor) Scenario(series []model.SeriesPoint, strategy model.Strategy, pct float64) (model.ScenarioResult, error) {
	if len(series) == 0 {
		return model.ScenarioResult{}, features.ErrEmptySeries
	}
	return optimize.Apply(optimize.BaselineFromSeries(series, optimize.BaselineMonths), pct, strategy)
}

// Scenarios evaluates the configured levers against the annual baseline.
func (a *Advisor) Scenarios(series []model.SeriesPoint) ([]model.ScenarioResult, error) {
	if len(series) == 0 {
		return nil, features.ErrEmptySeries
	}
	return optimize.Compare(optimize.BaselineFromSeries(series, optimize.BaselineMonths), a.levers)
}

// Analyze retrains on series and builds a full report.
func (a *Advisor) Analyze(series []model.SeriesPoint) (Report, error) {
	if _, err := a.Train(series); err != nil {
		return Report{}, err
	}
	return a.Report(series)
}

// Report builds a report from the current model without retraining.
func (a *Advisor) Report(series []model.SeriesPoint) (Report, error) {
	if len(series) == 0 {
		return Report{}, features.ErrEmptySeries
	}

	_, info := a.Model()
	fc := a.Forecast(series, a.horizon)
	rec, trend, level := recommend.ForSeries(series)
	scenarios, err := a.Scenarios(series)
	if err != nil {
		return Report{}, fmt.Errorf("comparing scenarios: %w", err)
	}

	summary := summarize(series)
	if len(fc) > 0 {
		summary.NextMonthForecast = fc[0].EnergyKWh
	}

	return Report{
		GeneratedAt:    time.Now().UTC(),
		Summary:        summary,
		Model:          info,
		Forecast:       fc,
		Combined:       Combine(series, fc),
		Baseline:       optimize.BaselineFromSeries(series, optimize.BaselineMonths),
		CostTrendPct:   trend,
		EmissionLevel:  level,
		Recommendation: rec,
		Scenarios:      scenarios,
	}, nil
}

func summarize(series []model.SeriesPoint) Summary {
	energy, cost, emissions := decimal.Zero, decimal.Zero, decimal.Zero
	for _, p := range series {
		energy = energy.Add(decimal.NewFromFloat(p.EnergyKWh))
		cost = cost.Add(decimal.NewFromFloat(p.TotalCost))
		emissions = emissions.Add(decimal.NewFromFloat(p.TotalEmission))
	}
	return Summary{
		Months:         len(series),
		Start:          series[0].Date,
		End:            series[len(series)-1].Date,
		TotalEnergyKWh: energy.InexactFloat64(),
		TotalCost:      cost.InexactFloat64(),
		TotalEmissions: emissions.InexactFloat64(),
	}
}

// Combine appends the forecast to the historical consumption for charting.
func Combine(series []model.SeriesPoint, fc []model.ForecastPoint) []model.ForecastPoint {
	out := make([]model.ForecastPoint, 0, len(series)+len(fc))
	for _, p := range series {
		out = append(out, model.ForecastPoint{Date: p.Date, EnergyKWh: p.EnergyKWh})
	}
	return append(out, fc...)
}
