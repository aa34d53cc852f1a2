// Package forecast trains the consumption regressor and projects it forward
// month by month.
package forecast

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/longlife4everest/energy-ai-dashboard/internal/features"
	"github.com/longlife4everest/energy-ai-dashboard/internal/metrics"
	"github.com/longlife4everest/energy-ai-dashboard/internal/model"
	"github.com/longlife4everest/energy-ai-dashboard/internal/predictor"
	"github.com/longlife4everest/energy-ai-dashboard/internal/store"
)

const (
	// DefaultHorizon is the number of months ForecastNext projects by default.
	DefaultHorizon = 3
	// MinTrainingRows is the smallest feature set Train will fit on.
	MinTrainingRows = 10
	// DefaultHoldoutFraction is the trailing share of rows kept for evaluation.
	DefaultHoldoutFraction = 0.2
	// DefaultSeed makes training reproducible.
	DefaultSeed = 42
)

// Config selects the regressor and its training parameters.
type Config struct {
	Kind            predictor.Kind
	Seed            uint64
	Options         predictor.Options
	HoldoutFraction float64
}

// DefaultConfig trains a 100-tree random forest with seed 42.
func DefaultConfig() Config {
	return Config{
		Kind:            predictor.KindRandomForest,
		Seed:            DefaultSeed,
		Options:         predictor.DefaultOptions(),
		HoldoutFraction: DefaultHoldoutFraction,
	}
}

// Result is the outcome of a training run. Model is nil when there were too
// few rows to train on; that is a degraded result, not an error.
type Result struct {
	Model       predictor.Regressor
	MAE         float64
	RunID       string
	TrainRows   int
	HoldoutRows int
	TrainedAt   time.Time
}

// Engine owns the trained model and its persisted artifact.
type Engine struct {
	cfg      Config
	artifact *store.Artifact
	log      *slog.Logger
	now      func() time.Time
}

// New creates an engine. A nil artifact disables persistence.
func New(cfg Config, artifact *store.Artifact, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	if cfg.HoldoutFraction <= 0 || cfg.HoldoutFraction >= 1 {
		cfg.HoldoutFraction = DefaultHoldoutFraction
	}
	return &Engine{cfg: cfg, artifact: artifact, log: log, now: time.Now}
}

// Train evaluates a regressor on a chronological hold-out, then refits the
// same regressor type on every row and persists that refit model.
//
// The returned MAE describes the model fitted on the first part of the data,
// not the deployed refit. Fewer than MinTrainingRows rows yield (nil, 0).
func (e *Engine) Train(rows []model.FeatureRow) (Result, error) {
	start := time.Now()
	if len(rows) < MinTrainingRows {
		e.log.Warn("not enough feature rows to train", "rows", len(rows), "min", MinTrainingRows)
		metrics.TrainingRuns.WithLabelValues(metrics.OutcomeInsufficient).Inc()
		return Result{}, nil
	}

	res, err := e.train(rows)
	if err != nil {
		metrics.TrainingRuns.WithLabelValues(metrics.OutcomeFailed).Inc()
		return Result{}, err
	}

	metrics.TrainingRuns.WithLabelValues(metrics.OutcomeTrained).Inc()
	metrics.TrainingDuration.Observe(time.Since(start).Seconds())
	metrics.HoldoutMAE.Set(res.MAE)
	e.log.Info("forecast model trained",
		"run_id", res.RunID,
		"kind", e.cfg.Kind,
		"train_rows", res.TrainRows,
		"holdout_rows", res.HoldoutRows,
		"mae_kwh", res.MAE,
	)
	return res, nil
}

func (e *Engine) train(rows []model.FeatureRow) (Result, error) {
	trainRows, holdout := Split(rows, e.cfg.HoldoutFraction)

	evalModel, err := predictor.New(e.cfg.Kind, e.cfg.Seed, e.cfg.Options)
	if err != nil {
		return Result{}, err
	}
	X, y := features.Matrix(trainRows)
	if err := evalModel.Fit(X, y); err != nil {
		return Result{}, fmt.Errorf("fitting evaluation model: %w", err)
	}

	hx, hy := features.Matrix(holdout)
	preds := make([]float64, len(hx))
	for i, x := range hx {
		preds[i] = evalModel.Predict(x)
	}
	mae := MeanAbsoluteError(preds, hy)

	deployed, err := predictor.New(e.cfg.Kind, e.cfg.Seed, e.cfg.Options)
	if err != nil {
		return Result{}, err
	}
	allX, allY := features.Matrix(rows)
	if err := deployed.Fit(allX, allY); err != nil {
		return Result{}, fmt.Errorf("refitting on all rows: %w", err)
	}

	res := Result{
		Model:       deployed,
		MAE:         mae,
		RunID:       uuid.NewString(),
		TrainRows:   len(trainRows),
		HoldoutRows: len(holdout),
		TrainedAt:   e.now().UTC(),
	}
	if err := e.persist(res, len(rows)); err != nil {
		return Result{}, err
	}
	return res, nil
}

func (e *Engine) persist(res Result, rows int) error {
	if e.artifact == nil {
		return nil
	}
	data, err := predictor.Encode(res.Model, predictor.Artifact{
		RunID:     res.RunID,
		TrainedAt: res.TrainedAt,
		Features:  features.Names,
		MAE:       res.MAE,
		Rows:      rows,
	})
	if err != nil {
		return fmt.Errorf("serializing model: %w", err)
	}
	if err := e.artifact.Save(data); err != nil {
		return fmt.Errorf("persisting model: %w", err)
	}
	e.log.Debug("model artifact written", "path", e.artifact.Path(), "bytes", len(data))
	return nil
}

// LoadModel reads the persisted model. With no artifact on disk it returns a
// nil model and no error.
func (e *Engine) LoadModel() (predictor.Regressor, *predictor.Artifact, error) {
	if e.artifact == nil {
		return nil, nil, nil
	}
	data, ok, err := e.artifact.Load()
	if err != nil || !ok {
		return nil, nil, err
	}
	r, meta, err := predictor.Decode(data)
	if err != nil {
		return nil, nil, fmt.Errorf("loading model from %s: %w", e.artifact.Path(), err)
	}
	return r, &meta, nil
}

// ForecastNext predicts horizon months after lastDate by feeding each
// prediction back in as history.
//
// At each step the lag is the last history value and the rolling mean covers
// the last min(3, len(history)) values, none of which is the month being
// predicted. A nil model, empty history or non-positive horizon gives an
// empty result. history is not modified.
func (e *Engine) ForecastNext(m predictor.Regressor, horizon int, history []float64, lastDate time.Time) []model.ForecastPoint {
	if m == nil || horizon <= 0 || len(history) == 0 {
		return nil
	}

	hist := make([]float64, len(history), len(history)+horizon)
	copy(hist, history)

	out := make([]model.ForecastPoint, 0, horizon)
	date := lastDate
	for range horizon {
		date = model.AddMonths(date, 1)
		lag := hist[len(hist)-1]
		window := hist[len(hist)-min(features.Window, len(hist)):]
		x := features.Vector(int(date.Month()), date.Year(), lag, stat.Mean(window, nil))

		pred := m.Predict(x)
		out = append(out, model.ForecastPoint{Date: date, EnergyKWh: pred, IsForecast: true})
		hist = append(hist, pred)
	}
	metrics.ForecastPoints.Add(float64(len(out)))
	return out
}

// Split keeps row order: the last ceil(fraction*n) rows become the hold-out.
func Split(rows []model.FeatureRow, fraction float64) (train, holdout []model.FeatureRow) {
	nTest := int(math.Ceil(fraction * float64(len(rows))))
	nTest = min(max(nTest, 0), len(rows))
	cut := len(rows) - nTest
	return rows[:cut], rows[cut:]
}

// MeanAbsoluteError averages |pred-actual|. Empty input gives 0.
func MeanAbsoluteError(pred, actual []float64) float64 {
	if len(pred) == 0 {
		return 0
	}
	return floats.Distance(pred, actual, 1) / float64(len(pred))
}
