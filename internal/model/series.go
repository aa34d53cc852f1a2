package model

import (
	"fmt"
	"time"
)

// SeriesPoint is one calendar month of metered usage.
type SeriesPoint struct {
	Date           time.Time `json:"date"`
	EnergyKWh      float64   `json:"energy_consumption_kwh"`
	CostPerKWh     float64   `json:"cost_per_kwh"`
	TotalCost      float64   `json:"total_cost"`
	EmissionFactor float64   `json:"emission_factor"`
	TotalEmission  float64   `json:"total_emission"`
}

// FeatureRow is a supervised-learning example derived from a window of points.
type FeatureRow struct {
	Date          time.Time `json:"date"`
	Month         int       `json:"month"`
	Year          int       `json:"year"`
	Lag1M         float64   `json:"lag_1m"`
	RollingMean3M float64   `json:"rolling_mean_3m"`
	Target        float64   `json:"target"`
}

// ForecastPoint is a predicted month. It is never persisted.
type ForecastPoint struct {
	Date       time.Time `json:"date"`
	EnergyKWh  float64   `json:"energy_consumption_kwh"`
	IsForecast bool      `json:"is_forecast"`
}

// Strategy names an optimization strategy or the recommendation-only Monitor tag.
type Strategy string

const (
	StrategyPeakHour             Strategy = "Peak Hour Optimization"
	StrategyRenewableIntegration Strategy = "Renewable Integration"
	StrategyEfficiencyUpgrade    Strategy = "Efficiency Upgrade"
	StrategyMonitor              Strategy = "Monitor"
)

// StrategySlugs maps each strategy to the short identifier used in URLs and flags.
var StrategySlugs = map[Strategy]string{
	StrategyPeakHour:             "peak_hour",
	StrategyRenewableIntegration: "renewable",
	StrategyEfficiencyUpgrade:    "efficiency",
	StrategyMonitor:              "monitor",
}

// SlugToStrategy is the reverse of StrategySlugs.
var SlugToStrategy map[string]Strategy

func init() {
	SlugToStrategy = make(map[string]Strategy, len(StrategySlugs))
	for s, slug := range StrategySlugs {
		SlugToStrategy[slug] = s
	}
}

// ParseStrategy accepts either a slug ("renewable") or a display name
// ("Renewable Integration").
func ParseStrategy(s string) (Strategy, bool) {
	if st, ok := SlugToStrategy[s]; ok {
		return st, true
	}
	if _, ok := StrategySlugs[Strategy(s)]; ok {
		return Strategy(s), true
	}
	return "", false
}

// EmissionLevel is the coarse emission signal fed to recommendations.
type EmissionLevel string

const (
	EmissionHigh   EmissionLevel = "High"
	EmissionNormal EmissionLevel = "Normal"
)

// ScenarioResult is a baseline scaled by a reduction factor.
// PaybackYears is nil unless the strategy carries an investment.
type ScenarioResult struct {
	Strategy      Strategy `json:"strategy"`
	ReductionPct  float64  `json:"reduction_pct"`
	NewEnergy     float64  `json:"new_energy"`
	NewCost       float64  `json:"new_cost"`
	NewEmissions  float64  `json:"new_emissions"`
	AnnualSavings float64  `json:"annual_savings"`
	PaybackYears  *float64 `json:"payback_years,omitempty"`
	Investment    float64  `json:"investment"`
}

// PaybackLabel renders the payback period the way the dashboard shows it.
func (r ScenarioResult) PaybackLabel() string {
	if r.PaybackYears == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.1f Years", *r.PaybackYears)
}

// Baseline holds aggregated annual metrics a scenario is applied to.
type Baseline struct {
	EnergyKWh float64 `json:"energy_kwh"`
	Cost      float64 `json:"cost"`
	Emissions float64 `json:"emissions"`
	Months    int     `json:"months"`
}

// AddMonths advances t by n calendar months. Unlike time.AddDate the day is
// clamped to the last day of the target month, so Jan 31 + 1 is Feb 28/29.
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	last := first.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return first.AddDate(0, 0, d-1)
}

// EnergyValues extracts the consumption column in order.
func EnergyValues(series []SeriesPoint) []float64 {
	out := make([]float64, len(series))
	for i, p := range series {
		out[i] = p.EnergyKWh
	}
	return out
}
