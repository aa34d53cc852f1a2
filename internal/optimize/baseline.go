package optimize

import (
	"github.com/shopspring/decimal"

	"github.com/longlife4everest/energy-ai-dashboard/internal/model"
)

// BaselineMonths is the trailing window summed into an annual baseline.
const BaselineMonths = 12

// Lever is one row of a scenario comparison.
type Lever struct {
	Strategy     model.Strategy `json:"strategy" yaml:"strategy"`
	ReductionPct float64        `json:"reduction_pct" yaml:"reduction_pct"`
}

// DefaultLevers is the comparison shown on the dashboard.
func DefaultLevers() []Lever {
	return []Lever{
		{Strategy: model.StrategyEfficiencyUpgrade, ReductionPct: 15},
		{Strategy: model.StrategyRenewableIntegration, ReductionPct: 25},
		{Strategy: model.StrategyPeakHour, ReductionPct: 10},
	}
}

// BaselineFromSeries sums the last months points. A shorter series is summed
// in full; months <= 0 means BaselineMonths.
func BaselineFromSeries(series []model.SeriesPoint, months int) model.Baseline {
	if months <= 0 {
		months = BaselineMonths
	}
	tail := series[len(series)-min(months, len(series)):]

	energy, cost, emissions := decimal.Zero, decimal.Zero, decimal.Zero
	for _, p := range tail {
		energy = energy.Add(decimal.NewFromFloat(p.EnergyKWh))
		cost = cost.Add(decimal.NewFromFloat(p.TotalCost))
		emissions = emissions.Add(decimal.NewFromFloat(p.TotalEmission))
	}
	return model.Baseline{
		EnergyKWh: energy.InexactFloat64(),
		Cost:      cost.InexactFloat64(),
		Emissions: emissions.InexactFloat64(),
		Months:    len(tail),
	}
}

// Compare evaluates every lever against the same baseline, in order. The first
// invalid lever aborts the comparison.
func Compare(b model.Baseline, levers []Lever) ([]model.ScenarioResult, error) {
	out := make([]model.ScenarioResult, 0, len(levers))
	for _, l := range levers {
		r, err := Apply(b, l.ReductionPct, l.Strategy)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
