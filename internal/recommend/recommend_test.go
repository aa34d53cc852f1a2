package recommend

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/longlife4everest/energy-ai-dashboard/internal/model"
)

func TestRecommend_DecisionTable(t *testing.T) {
	tests := []struct {
		name     string
		trend    float64
		level    model.EmissionLevel
		strategy model.Strategy
		prefix   string
	}{
		{"rising and high", 6.0, model.EmissionHigh, model.StrategyRenewableIntegration, "**Critical Strategic Pivot"},
		{"rising only", 12.5, model.EmissionNormal, model.StrategyPeakHour, "**Cost Contaminment Alert"},
		{"high only", 2.0, model.EmissionHigh, model.StrategyEfficiencyUpgrade, "**Sustainability Target Risk"},
		{"nominal", 2.0, model.EmissionNormal, model.StrategyMonitor, "**Operations Nominal"},
		{"threshold is exclusive", 5.0, model.EmissionHigh, model.StrategyEfficiencyUpgrade, "**Sustainability"},
		{"falling cost", -30, model.EmissionNormal, model.StrategyMonitor, "**Operations Nominal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Recommend(tt.trend, tt.level)
			assert.Equal(t, tt.strategy, r.Strategy)
			assert.Contains(t, r.Text, tt.prefix)
		})
	}
}

func TestRecommend_Deterministic(t *testing.T) {
	assert.Equal(t, Recommend(7, model.EmissionHigh), Recommend(7, model.EmissionHigh))
}

func TestCostTrendPct(t *testing.T) {
	assert.Equal(t, 0.0, CostTrendPct(nil))
	assert.Equal(t, 0.0, CostTrendPct([]model.SeriesPoint{{TotalCost: 10}}))
	assert.Equal(t, 0.0, CostTrendPct([]model.SeriesPoint{{TotalCost: 0}, {TotalCost: 10}}))

	series := []model.SeriesPoint{{TotalCost: 999}, {TotalCost: 1000}, {TotalCost: 1100}}
	assert.InDelta(t, 10.0, CostTrendPct(series), 1e-9)
}

func TestEmissionLevelOf(t *testing.T) {
	assert.Equal(t, model.EmissionNormal, EmissionLevelOf(nil))
	assert.Equal(t, model.EmissionHigh, EmissionLevelOf([]model.SeriesPoint{
		{TotalEmission: 1}, {TotalEmission: 2}, {TotalEmission: 4},
	}))
	assert.Equal(t, model.EmissionNormal, EmissionLevelOf([]model.SeriesPoint{
		{TotalEmission: 4}, {TotalEmission: 2}, {TotalEmission: 3},
	}))
	// Equal to the mean is not above it.
	assert.Equal(t, model.EmissionNormal, EmissionLevelOf([]model.SeriesPoint{{TotalEmission: 5}}))
}

func TestForSeries(t *testing.T) {
	series := []model.SeriesPoint{
		{TotalCost: 100, TotalEmission: 10},
		{TotalCost: 110, TotalEmission: 20},
	}
	r, trend, level := ForSeries(series)
	assert.InDelta(t, 10.0, trend, 1e-9)
	assert.Equal(t, model.EmissionHigh, level)
	assert.Equal(t, model.StrategyRenewableIntegration, r.Strategy)
}
