package ingest

import (
	"math"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/longlife4everest/energy-ai-dashboard/internal/model"
)

// DefaultSyntheticMonths is the length of the demo series.
const DefaultSyntheticMonths = 24

// Synthetic generates a demo series of the given length starting at the
// first of start's month: an upward trend from 10000 to 12000 kWh, a
// two-year sine seasonality of amplitude 2000, Gaussian noise (sigma 500)
// clipped at zero, a tariff drawn from [0.12, 0.15) and a grid emission
// factor falling from 0.45 to 0.35. TotalEmission is in whole tonnes.
func Synthetic(months int, seed uint64, start time.Time) []model.SeriesPoint {
	if months <= 0 {
		return nil
	}
	rng := rand.New(rand.NewPCG(seed, 0))

	trend := linspace(10000, 12000, months)
	phase := linspace(0, 4*math.Pi, months)
	factor := linspace(0.45, 0.35, months)

	noise := make([]float64, months)
	for i := range noise {
		noise[i] = rng.NormFloat64() * 500
	}
	tariff := make([]float64, months)
	for i := range tariff {
		tariff[i] = 0.12 + 0.03*rng.Float64()
	}

	first := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	out := make([]model.SeriesPoint, months)
	for i := range out {
		energy := max(trend[i]+2000*math.Sin(phase[i])+noise[i], 0)
		out[i] = model.SeriesPoint{
			Date:           model.AddMonths(first, i),
			EnergyKWh:      energy,
			CostPerKWh:     tariff[i],
			TotalCost:      energy * tariff[i],
			EmissionFactor: factor[i],
			TotalEmission:  math.Floor(energy * factor[i] / 1000),
		}
	}
	return out
}

// SyntheticStart places a series of the given length so that it ends around
// the month before now.
func SyntheticStart(now time.Time, months int) time.Time {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return model.AddMonths(first, -months)
}

func linspace(lo, hi float64, n int) []float64 {
	if n == 1 {
		return []float64{lo}
	}
	return floats.Span(make([]float64, n), lo, hi)
}
