// Package optimize projects baseline energy, cost and emissions under a
// reduction strategy.
package optimize

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/longlife4everest/energy-ai-dashboard/internal/metrics"
	"github.com/longlife4everest/energy-ai-dashboard/internal/model"
)

// RenewableInvestment is the capital outlay assumed for renewable integration.
const RenewableInvestment = 50000

var (
	ErrReductionOutOfRange = errors.New("optimize: reduction percentage must be within [0, 100]")
	ErrUnknownStrategy     = errors.New("optimize: unknown strategy")
	ErrInvalidBaseline     = errors.New("optimize: baseline values must be finite")
)

// adjust applies strategy-specific economics after uniform scaling.
type adjust func(r *model.ScenarioResult)

// noAdjustment leaves Investment at 0 and PaybackYears unset.
func noAdjustment(*model.ScenarioResult) {}

func withPayback(investment float64) adjust {
	return func(r *model.ScenarioResult) {
		r.Investment = investment
		years := 0.0
		if r.AnnualSavings != 0 {
			years = investment / r.AnnualSavings
		}
		r.PaybackYears = &years
	}
}

// Scaling is identical for every strategy; only investment differs.
var strategies = map[model.Strategy]adjust{
	model.StrategyPeakHour:             noAdjustment,
	model.StrategyEfficiencyUpgrade:    noAdjustment,
	model.StrategyRenewableIntegration: withPayback(RenewableInvestment),
}

// Strategies lists the strategies Scenario accepts, in display order.
func Strategies() []model.Strategy {
	return []model.Strategy{
		model.StrategyPeakHour,
		model.StrategyRenewableIntegration,
		model.StrategyEfficiencyUpgrade,
	}
}

// Scenario scales energy, cost and emissions by 1 - pct/100.
//
// pct outside [0, 100] is rejected, never clamped. Monitor is a
// recommendation tag, not a strategy, and is rejected too.
func Scenario(energy, cost, emissions, pct float64, strategy model.Strategy) (model.ScenarioResult, error) {
	if math.IsNaN(pct) || pct < 0 || pct > 100 {
		return model.ScenarioResult{}, fmt.Errorf("%w: got %v", ErrReductionOutOfRange, pct)
	}
	for _, v := range []float64{energy, cost, emissions} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return model.ScenarioResult{}, ErrInvalidBaseline
		}
	}
	apply, ok := strategies[strategy]
	if !ok {
		return model.ScenarioResult{}, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}

	factor := decimal.NewFromInt(1).Sub(decimal.NewFromFloat(pct).Div(decimal.NewFromInt(100)))
	baseCost := decimal.NewFromFloat(cost)
	newCost := baseCost.Mul(factor)

	r := model.ScenarioResult{
		Strategy:      strategy,
		ReductionPct:  pct,
		NewEnergy:     decimal.NewFromFloat(energy).Mul(factor).InexactFloat64(),
		NewCost:       newCost.InexactFloat64(),
		NewEmissions:  decimal.NewFromFloat(emissions).Mul(factor).InexactFloat64(),
		AnnualSavings: baseCost.Sub(newCost).InexactFloat64(),
	}
	apply(&r)

	metrics.Scenarios.WithLabelValues(model.StrategySlugs[strategy]).Inc()
	return r, nil
}

// Apply runs Scenario against an aggregated baseline.
func Apply(b model.Baseline, pct float64, strategy model.Strategy) (model.ScenarioResult, error) {
	return Scenario(b.EnergyKWh, b.Cost, b.Emissions, pct, strategy)
}
