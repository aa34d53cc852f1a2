package predictor

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat"
)

// Normalization holds z-score parameters for each input column and the target.
type Normalization struct {
	FeatureMean []float64 `json:"feature_mean"`
	FeatureStd  []float64 `json:"feature_std"`
	TargetMean  float64   `json:"target_mean"`
	TargetStd   float64   `json:"target_std"`
}

// ComputeNormalization derives population mean/std per column. A constant
// column gets std 1 so it normalizes to zero instead of NaN.
func ComputeNormalization(X [][]float64, y []float64) Normalization {
	cols := len(X[0])
	norm := Normalization{
		FeatureMean: make([]float64, cols),
		FeatureStd:  make([]float64, cols),
	}
	col := make([]float64, len(X))
	for c := 0; c < cols; c++ {
		for i := range X {
			col[i] = X[i][c]
		}
		norm.FeatureMean[c], norm.FeatureStd[c] = stat.PopMeanStdDev(col, nil)
		if norm.FeatureStd[c] < 1e-10 {
			norm.FeatureStd[c] = 1
		}
	}
	norm.TargetMean, norm.TargetStd = stat.PopMeanStdDev(y, nil)
	if norm.TargetStd < 1e-10 {
		norm.TargetStd = 1
	}
	return norm
}

func (n Normalization) features(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = (v - n.FeatureMean[i]) / n.FeatureStd[i]
	}
	return out
}

// MLPConfig sizes the hidden layers and the optimizer.
type MLPConfig struct {
	Hidden []int       `json:"hidden" yaml:"hidden"`
	Train  TrainConfig `json:"train" yaml:"train"`
}

// DefaultMLPConfig returns a small two-layer network.
func DefaultMLPConfig() MLPConfig {
	return MLPConfig{Hidden: []int{16, 8}, Train: DefaultTrainConfig()}
}

// MLP is a Regressor backed by Network. Inputs and target are z-scored with
// statistics from the data passed to Fit.
type MLP struct {
	Config  MLPConfig     `json:"config"`
	Seed    uint64        `json:"seed"`
	Network *Network      `json:"network"`
	Norm    Normalization `json:"normalization"`

	losses []float64
}

// NewMLP returns an untrained network regressor.
func NewMLP(cfg MLPConfig, seed uint64) *MLP {
	return &MLP{Config: cfg, Seed: seed}
}

// Fit trains from scratch. Every call reseeds, so fitting the same data twice
// gives identical weights.
func (m *MLP) Fit(X [][]float64, y []float64) error {
	if err := checkSamples(X, y); err != nil {
		return err
	}
	if m.Config.Train.BatchSize <= 0 || m.Config.Train.Epochs <= 0 {
		return fmt.Errorf("mlp: batch size and epochs must be positive, got %d/%d",
			m.Config.Train.BatchSize, m.Config.Train.Epochs)
	}

	rng := rand.New(rand.NewPCG(m.Seed, 0))
	m.Norm = ComputeNormalization(X, y)

	nx := make([][]float64, len(X))
	ny := make([][]float64, len(y))
	for i := range X {
		nx[i] = m.Norm.features(X[i])
		ny[i] = []float64{(y[i] - m.Norm.TargetMean) / m.Norm.TargetStd}
	}

	sizes := append([]int{len(X[0])}, m.Config.Hidden...)
	sizes = append(sizes, 1)
	m.Network = NewNetwork(sizes, rng)
	m.losses = m.Network.Train(nx, ny, nx, ny, m.Config.Train, rng)
	return nil
}

// Predict returns the de-normalized network output. An unfitted MLP predicts 0.
func (m *MLP) Predict(x []float64) float64 {
	if m.Network == nil {
		return 0
	}
	out := m.Network.Output(m.Norm.features(x))[0]
	return out*m.Norm.TargetStd + m.Norm.TargetMean
}

// Losses returns per-epoch training MSE (normalized units) of the last Fit.
func (m *MLP) Losses() []float64 {
	return m.losses
}

func (m *MLP) Kind() Kind { return KindMLP }
