// Package recommend turns cost and emission signals into a canned strategic
// recommendation.
package recommend

import (
	"gonum.org/v1/gonum/stat"

	"github.com/longlife4everest/energy-ai-dashboard/internal/model"
)

// CostRisingThreshold is the month-over-month cost increase, in percent, above
// which cost counts as rising.
const CostRisingThreshold = 5.0

// Recommendation is the dashboard advice and the strategy it points to.
type Recommendation struct {
	Text     string         `json:"text"`
	Strategy model.Strategy `json:"strategy"`
}

var (
	renewablePivot = Recommendation{
		Text: "**Critical Strategic Pivot Required:** Both operational costs and carbon emissions are statistically elevated. " +
			"Immediate intervention recommended: **Renewable Energy Integration**. " +
			"This strategy addresses both fiscal efficiency and sustainability targets simultaneously.",
		Strategy: model.StrategyRenewableIntegration,
	}
	costAlert = Recommendation{
		Text: "**Cost Contaminment Alert:** Energy expenditures are trending upwards (>5% MoM). " +
			"Recommended Action: **Peak Hour Load Shifting**. " +
			"Optimizing consumption during non-peak tariff periods will stabilize operational significantly expenses.",
		Strategy: model.StrategyPeakHour,
	}
	sustainabilityRisk = Recommendation{
		Text: "**Sustainability Target Risk:** Carbon footprint indicators are above nominal thresholds. " +
			"Recommended Action: **Infrastructure Efficiency Upgrades**. " +
			"Modernizing equipment will directly reduce KWh consumption and associated emissions.",
		Strategy: model.StrategyEfficiencyUpgrade,
	}
	nominal = Recommendation{
		Text: "**Operations Nominal:** Energy consumption and costs are within expected variance. " +
			"Recommendation: Maintain current monitoring protocols and evaluate long-term **Renewable Integration** for future-proofing.",
		Strategy: model.StrategyMonitor,
	}
)

// Recommend picks the first matching rule: rising cost with high emissions,
// rising cost alone, high emissions alone, otherwise monitor.
func Recommend(costTrendPct float64, level model.EmissionLevel) Recommendation {
	rising := costTrendPct > CostRisingThreshold
	high := level == model.EmissionHigh

	switch {
	case rising && high:
		return renewablePivot
	case rising:
		return costAlert
	case high:
		return sustainabilityRisk
	default:
		return nominal
	}
}

// CostTrendPct is the percentage change in TotalCost between the last two
// points. It is 0 with fewer than two points or a zero previous cost.
func CostTrendPct(series []model.SeriesPoint) float64 {
	if len(series) < 2 {
		return 0
	}
	last := series[len(series)-1].TotalCost
	prev := series[len(series)-2].TotalCost
	if prev == 0 {
		return 0
	}
	return (last - prev) / prev * 100
}

// EmissionLevelOf is High when the last month's emissions exceed the series
// mean.
func EmissionLevelOf(series []model.SeriesPoint) model.EmissionLevel {
	if len(series) == 0 {
		return model.EmissionNormal
	}
	values := make([]float64, len(series))
	for i, p := range series {
		values[i] = p.TotalEmission
	}
	if values[len(values)-1] > stat.Mean(values, nil) {
		return model.EmissionHigh
	}
	return model.EmissionNormal
}

// ForSeries derives both signals from the series and recommends.
func ForSeries(series []model.SeriesPoint) (Recommendation, float64, model.EmissionLevel) {
	trend := CostTrendPct(series)
	level := EmissionLevelOf(series)
	return Recommend(trend, level), trend, level
}
