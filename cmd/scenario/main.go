// scenario evaluates optimization strategies against the trailing twelve
// months of a series and prints the recommendation for it.
//
// Usage:
//
//	scenario -input data/monthly.csv
//	scenario -input data/monthly.csv -strategy renewable -reduction 30
//	scenario -json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/longlife4everest/energy-ai-dashboard/internal/ingest"
	"github.com/longlife4everest/energy-ai-dashboard/internal/model"
	"github.com/longlife4everest/energy-ai-dashboard/internal/optimize"
	"github.com/longlife4everest/energy-ai-dashboard/internal/recommend"
)

type report struct {
	Baseline       model.Baseline           `json:"baseline"`
	Scenarios      []model.ScenarioResult   `json:"scenarios"`
	CostTrendPct   float64                  `json:"cost_trend_pct"`
	EmissionLevel  model.EmissionLevel      `json:"emission_level"`
	Recommendation recommend.Recommendation `json:"recommendation"`
}

func main() {
	input := flag.String("input", "", "series CSV (empty = synthetic series)")
	months := flag.Int("months", ingest.DefaultSyntheticMonths, "synthetic series length")
	seed := flag.Uint64("seed", 42, "synthetic series seed")
	strategy := flag.String("strategy", "", "peak_hour, renewable or efficiency (empty = default comparison)")
	reduction := flag.Float64("reduction", 10, "reduction percentage for -strategy")
	jsonOut := flag.Bool("json", false, "output as JSON")
	flag.Parse()

	var (
		series []model.SeriesPoint
		err    error
	)
	if *input != "" {
		series, err = ingest.ReadFile(*input)
	} else {
		series = ingest.Synthetic(*months, *seed, ingest.SyntheticStart(time.Now(), *months))
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	levers, err := selectLevers(*strategy, *reduction)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	r, err := evaluate(series, levers)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}
	printReport(os.Stdout, r)
}

// selectLevers returns the default comparison when slug is empty, otherwise
// the single named strategy at pct.
func selectLevers(slug string, pct float64) ([]optimize.Lever, error) {
	if slug == "" {
		return optimize.DefaultLevers(), nil
	}
	s, ok := model.ParseStrategy(slug)
	if !ok || s == model.StrategyMonitor {
		return nil, fmt.Errorf("%w: %q", optimize.ErrUnknownStrategy, slug)
	}
	return []optimize.Lever{{Strategy: s, ReductionPct: pct}}, nil
}

func evaluate(series []model.SeriesPoint, levers []optimize.Lever) (report, error) {
	b := optimize.BaselineFromSeries(series, optimize.BaselineMonths)
	results, err := optimize.Compare(b, levers)
	if err != nil {
		return report{}, err
	}
	rec, trend, level := recommend.ForSeries(series)
	return report{
		Baseline:       b,
		Scenarios:      results,
		CostTrendPct:   trend,
		EmissionLevel:  level,
		Recommendation: rec,
	}, nil
}

func printReport(w io.Writer, r report) {
	fmt.Fprintf(w, "Baseline (last %d months): %.0f kWh, $%.2f, %.0f t CO2\n",
		optimize.BaselineMonths, r.Baseline.EnergyKWh, r.Baseline.Cost, r.Baseline.Emissions)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-24s  %9s  %12s  %12s  %10s\n", "Strategy", "Reduction", "Energy (kWh)", "Savings ($)", "Payback")
	fmt.Fprintf(w, "%-24s  %9s  %12s  %12s  %10s\n", "------------------------", "---------", "------------", "------------", "----------")
	for _, s := range r.Scenarios {
		fmt.Fprintf(w, "%-24s  %8.1f%%  %12.0f  %12.2f  %10s\n",
			s.Strategy, s.ReductionPct, s.NewEnergy, s.AnnualSavings, s.PaybackLabel())
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Cost trend: %+.1f%%, emissions: %s\n", r.CostTrendPct, r.EmissionLevel)
	fmt.Fprintf(w, "Recommendation: %s\n", r.Recommendation.Text)
}
