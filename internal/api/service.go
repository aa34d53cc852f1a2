// Package api exposes the advisor over HTTP.
package api

import (
	"log/slog"
	"sync"
	"time"

	"github.com/longlife4everest/energy-ai-dashboard/internal/advisor"
	"github.com/longlife4everest/energy-ai-dashboard/internal/forecast"
	"github.com/longlife4everest/energy-ai-dashboard/internal/metrics"
	"github.com/longlife4everest/energy-ai-dashboard/internal/model"
	"github.com/longlife4everest/energy-ai-dashboard/internal/store"
)

// Notifier receives service events, typically to push them to dashboards.
type Notifier interface {
	OnReport(r advisor.Report)
	OnSeries(series []model.SeriesPoint, source string, version uint64)
}

type nopNotifier struct{}

func (nopNotifier) OnReport(advisor.Report)                     {}
func (nopNotifier) OnSeries([]model.SeriesPoint, string, uint64) {}

// Service owns the active series and the latest report built from it.
type Service struct {
	series  *store.Series
	advisor *advisor.Advisor
	notify  Notifier
	log     *slog.Logger

	// trainMu serializes retraining so reports follow series versions in order.
	trainMu sync.Mutex

	mu     sync.RWMutex
	report *advisor.Report
}

func NewService(series *store.Series, adv *advisor.Advisor, notify Notifier, log *slog.Logger) *Service {
	if notify == nil {
		notify = nopNotifier{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{series: series, advisor: adv, notify: notify, log: log}
}

// LoadSeries replaces the active series, retrains on it and publishes the
// new report.
func (s *Service) LoadSeries(points []model.SeriesPoint, source string) (advisor.Report, error) {
	s.trainMu.Lock()
	defer s.trainMu.Unlock()

	version := s.series.Replace(points, source)
	snapshot, _, _ := s.series.Snapshot()
	metrics.SeriesPoints.Set(float64(s.series.Len()))
	s.log.Info("series loaded", "source", source, "months", len(snapshot), "version", version)
	s.notify.OnSeries(snapshot, source, version)

	r, err := s.advisor.Analyze(snapshot)
	if err != nil {
		return advisor.Report{}, err
	}
	s.publish(r)
	return r, nil
}

// Train retrains on the active series and publishes the new report.
func (s *Service) Train() (forecast.Result, advisor.Report, error) {
	s.trainMu.Lock()
	defer s.trainMu.Unlock()

	snapshot, _, _ := s.series.Snapshot()
	res, err := s.advisor.Train(snapshot)
	if err != nil {
		return forecast.Result{}, advisor.Report{}, err
	}
	r, err := s.advisor.Report(snapshot)
	if err != nil {
		return forecast.Result{}, advisor.Report{}, err
	}
	s.publish(r)
	return res, r, nil
}

// Refresh rebuilds the report from the current model without retraining.
func (s *Service) Refresh() (advisor.Report, error) {
	snapshot, _, _ := s.series.Snapshot()
	r, err := s.advisor.Report(snapshot)
	if err != nil {
		return advisor.Report{}, err
	}
	s.publish(r)
	return r, nil
}

func (s *Service) publish(r advisor.Report) {
	s.mu.Lock()
	s.report = &r
	s.mu.Unlock()
	s.notify.OnReport(r)
}

// CurrentReport returns the latest published report.
func (s *Service) CurrentReport() (advisor.Report, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.report == nil {
		return advisor.Report{}, false
	}
	return *s.report, true
}

// Series returns a copy of the active series.
func (s *Service) Series() ([]model.SeriesPoint, string, uint64) {
	return s.series.Snapshot()
}

// SeriesBetween returns the points with from <= date < to. A zero bound is
// open.
func (s *Service) SeriesBetween(from, to time.Time) []model.SeriesPoint {
	first, last, ok := s.series.TimeRange()
	if !ok {
		return nil
	}
	if from.IsZero() {
		from = first
	}
	if to.IsZero() {
		to = last.Add(time.Nanosecond)
	}
	return s.series.InRange(from, to)
}

// RecentSeries returns the last n points.
func (s *Service) RecentSeries(n int) []model.SeriesPoint {
	return s.series.Tail(n)
}

// Forecast projects horizon months with the current model.
func (s *Service) Forecast(horizon int) []model.ForecastPoint {
	snapshot, _, _ := s.series.Snapshot()
	return s.advisor.Forecast(snapshot, horizon)
}

// RunScenario evaluates a strategy against the annual baseline.
func (s *Service) RunScenario(strategy model.Strategy, pct float64) (model.ScenarioResult, error) {
	snapshot, _, _ := s.series.Snapshot()
	return s.advisor.Scenario(snapshot, strategy, pct)
}

// Scenarios evaluates the configured comparison table.
func (s *Service) Scenarios() ([]model.ScenarioResult, error) {
	snapshot, _, _ := s.series.Snapshot()
	return s.advisor.Scenarios(snapshot)
}

// Model describes the model used for forecasts.
func (s *Service) Model() advisor.ModelInfo {
	_, info := s.advisor.Model()
	return info
}
