package predictor

import (
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syntheticRows follows y = 1000 + 50*x0 + 3*x1 with mild noise.
func syntheticRows(n int, seed uint64) ([][]float64, []float64) {
	rng := rand.New(rand.NewPCG(seed, 0))
	X := make([][]float64, n)
	y := make([]float64, n)
	for i := range X {
		x0 := float64(rng.IntN(12) + 1)
		x1 := 100 * rng.Float64()
		X[i] = []float64{x0, x1}
		y[i] = 1000 + 50*x0 + 3*x1 + rng.NormFloat64()*5
	}
	return X, y
}

func TestComputeNormalization(t *testing.T) {
	X := [][]float64{{10, 5}, {20, 5}, {30, 5}}
	y := []float64{100, 200, 300}
	norm := ComputeNormalization(X, y)

	assert.InDelta(t, 20.0, norm.FeatureMean[0], 1e-10)
	assert.InDelta(t, math.Sqrt(200.0/3.0), norm.FeatureStd[0], 1e-10)
	assert.InDelta(t, 5.0, norm.FeatureMean[1], 1e-10)
	assert.Equal(t, 1.0, norm.FeatureStd[1], "constant column falls back to std 1")
	assert.InDelta(t, 200.0, norm.TargetMean, 1e-10)
	assert.InDelta(t, math.Sqrt(20000.0/3.0), norm.TargetStd, 1e-10)
}

func TestNew(t *testing.T) {
	r, err := New(KindRandomForest, 1, DefaultOptions())
	require.NoError(t, err)
	assert.IsType(t, &RandomForest{}, r)

	r, err = New(KindMLP, 1, DefaultOptions())
	require.NoError(t, err)
	assert.IsType(t, &MLP{}, r)

	_, err = New("svm", 1, DefaultOptions())
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestRegressors_RejectEmptyInput(t *testing.T) {
	for _, kind := range []Kind{KindRandomForest, KindMLP} {
		t.Run(string(kind), func(t *testing.T) {
			r, err := New(kind, 1, DefaultOptions())
			require.NoError(t, err)
			assert.ErrorIs(t, r.Fit(nil, nil), ErrNoSamples)
			assert.Error(t, r.Fit([][]float64{{1}}, []float64{1, 2}))
		})
	}
}

func TestRegressors_UnfittedPredictZero(t *testing.T) {
	assert.Equal(t, 0.0, NewRandomForest(DefaultForestConfig(), 1).Predict([]float64{1, 2}))
	assert.Equal(t, 0.0, NewMLP(DefaultMLPConfig(), 1).Predict([]float64{1, 2}))
}

func TestMLP_LearnsSyntheticData(t *testing.T) {
	X, y := syntheticRows(200, 42)
	m := NewMLP(DefaultMLPConfig(), 42)
	require.NoError(t, m.Fit(X, y))

	losses := m.Losses()
	require.Len(t, losses, DefaultTrainConfig().Epochs)
	assert.Less(t, losses[len(losses)-1], losses[0])
}

func TestArtifact_Roundtrip(t *testing.T) {
	X, y := syntheticRows(60, 3)
	for _, kind := range []Kind{KindRandomForest, KindMLP} {
		t.Run(string(kind), func(t *testing.T) {
			opts := DefaultOptions()
			opts.Forest.Trees = 10
			opts.MLP.Train.Epochs = 20
			r, err := New(kind, 11, opts)
			require.NoError(t, err)
			require.NoError(t, r.Fit(X, y))

			trainedAt := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
			data, err := Encode(r, Artifact{RunID: "run-1", TrainedAt: trainedAt, Features: []string{"a", "b"}, MAE: 12.5, Rows: 60})
			require.NoError(t, err)

			loaded, meta, err := Decode(data)
			require.NoError(t, err)
			assert.Equal(t, kind, meta.Kind)
			assert.Equal(t, "run-1", meta.RunID)
			assert.True(t, trainedAt.Equal(meta.TrainedAt))
			assert.Equal(t, 12.5, meta.MAE)
			for _, x := range X[:10] {
				assert.Equal(t, r.Predict(x), loaded.Predict(x))
			}
		})
	}
}

func TestDecode_Errors(t *testing.T) {
	_, _, err := Decode([]byte("not json"))
	assert.Error(t, err)

	_, _, err = Decode([]byte(`{"kind":"svm","model":{}}`))
	assert.ErrorIs(t, err, ErrUnknownKind)
}
