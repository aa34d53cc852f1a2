// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Training outcomes.
const (
	OutcomeTrained      = "trained"
	OutcomeInsufficient = "insufficient_data"
	OutcomeFailed       = "failed"
)

var (
	// TrainingRuns counts training attempts by outcome.
	TrainingRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "energy_advisor_training_runs_total",
		Help: "Forecast model training attempts by outcome",
	}, []string{"outcome"})

	// TrainingDuration measures fit + refit + persist time.
	TrainingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "energy_advisor_training_duration_seconds",
		Help:    "Time taken to train and persist the forecast model",
		Buckets: prometheus.DefBuckets,
	})

	// HoldoutMAE is the hold-out error of the latest successful training run.
	HoldoutMAE = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "energy_advisor_holdout_mae_kwh",
		Help: "Mean absolute error on the chronological hold-out of the last training run",
	})

	// ForecastPoints counts predicted months.
	ForecastPoints = promauto.NewCounter(prometheus.CounterOpts{
		Name: "energy_advisor_forecast_points_total",
		Help: "Number of forecast months produced",
	})

	// Scenarios counts evaluated what-if scenarios by strategy.
	Scenarios = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "energy_advisor_scenarios_total",
		Help: "Optimization scenarios evaluated, by strategy",
	}, []string{"strategy"})

	// DashboardClients is the number of connected WebSocket dashboards.
	DashboardClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "energy_advisor_dashboard_clients",
		Help: "Connected WebSocket dashboard clients",
	})

	// DroppedMessages counts pushes discarded because a dashboard was too slow,
	// by delivery kind (broadcast or reply).
	DroppedMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "energy_advisor_dashboard_dropped_messages_total",
		Help: "Dashboard messages dropped on a full client buffer",
	}, []string{"kind"})

	// SeriesPoints tracks the size of the loaded series.
	SeriesPoints = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "energy_advisor_series_points",
		Help: "Number of monthly points in the active series",
	})
)
