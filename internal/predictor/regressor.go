// Package predictor holds the interchangeable regression backends used by the
// forecaster and the JSON artifact format they are persisted in.
package predictor

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Regressor maps a feature vector to a single value.
type Regressor interface {
	Fit(X [][]float64, y []float64) error
	Predict(x []float64) float64
}

// Kind identifies a Regressor implementation in configuration and artifacts.
type Kind string

const (
	KindRandomForest Kind = "random_forest"
	KindMLP          Kind = "mlp"
)

var (
	ErrNoSamples   = errors.New("predictor: no training samples")
	ErrUnknownKind = errors.New("predictor: unknown regressor kind")
)

// Options carries per-backend settings; only the one matching Kind is used.
type Options struct {
	Forest ForestConfig `yaml:"forest"`
	MLP    MLPConfig    `yaml:"mlp"`
}

// DefaultOptions returns defaults for every backend.
func DefaultOptions() Options {
	return Options{Forest: DefaultForestConfig(), MLP: DefaultMLPConfig()}
}

// New returns an untrained regressor of the given kind.
func New(kind Kind, seed uint64, opts Options) (Regressor, error) {
	switch kind {
	case KindRandomForest:
		return NewRandomForest(opts.Forest, seed), nil
	case KindMLP:
		return NewMLP(opts.MLP, seed), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// Artifact is the persisted form of a trained model.
type Artifact struct {
	RunID     string          `json:"run_id"`
	Kind      Kind            `json:"kind"`
	TrainedAt time.Time       `json:"trained_at"`
	Features  []string        `json:"features"`
	MAE       float64         `json:"mae"`
	Rows      int             `json:"rows"`
	Model     json.RawMessage `json:"model"`
}

// Encode wraps a fitted regressor in an Artifact and serializes it.
func Encode(r Regressor, meta Artifact) ([]byte, error) {
	kinded, ok := r.(interface{ Kind() Kind })
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrUnknownKind, r)
	}
	raw, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encoding %s model: %w", kinded.Kind(), err)
	}
	meta.Kind = kinded.Kind()
	meta.Model = raw
	return json.MarshalIndent(meta, "", "  ")
}

// Decode restores the regressor stored in an artifact.
func Decode(data []byte) (Regressor, Artifact, error) {
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, Artifact{}, fmt.Errorf("decoding artifact: %w", err)
	}

	var r Regressor
	switch a.Kind {
	case KindRandomForest:
		r = &RandomForest{}
	case KindMLP:
		r = &MLP{}
	default:
		return nil, a, fmt.Errorf("%w: %q", ErrUnknownKind, a.Kind)
	}
	if err := json.Unmarshal(a.Model, r); err != nil {
		return nil, a, fmt.Errorf("decoding %s model: %w", a.Kind, err)
	}
	return r, a, nil
}

func checkSamples(X [][]float64, y []float64) error {
	if len(X) == 0 || len(X[0]) == 0 {
		return ErrNoSamples
	}
	if len(X) != len(y) {
		return fmt.Errorf("predictor: %d feature rows but %d targets", len(X), len(y))
	}
	return nil
}
