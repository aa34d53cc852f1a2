package predictor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomForest_FitsStepFunction(t *testing.T) {
	var X [][]float64
	var y []float64
	for i := 0; i < 40; i++ {
		X = append(X, []float64{float64(i)})
		if i < 20 {
			y = append(y, 10)
		} else {
			y = append(y, 50)
		}
	}

	f := NewRandomForest(DefaultForestConfig(), 42)
	require.NoError(t, f.Fit(X, y))
	require.Len(t, f.Trees, 100)

	assert.InDelta(t, 10.0, f.Predict([]float64{5}), 2.0)
	assert.InDelta(t, 50.0, f.Predict([]float64{35}), 2.0)
}

func TestRandomForest_PredictionsWithinTargetRange(t *testing.T) {
	X, y := syntheticRows(80, 9)
	f := NewRandomForest(DefaultForestConfig(), 42)
	require.NoError(t, f.Fit(X, y))

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range y {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	for _, x := range [][]float64{{1, 0}, {12, 100}, {6, 50}, {40, -10}} {
		p := f.Predict(x)
		assert.GreaterOrEqual(t, p, lo)
		assert.LessOrEqual(t, p, hi)
	}
}

func TestRandomForest_Deterministic(t *testing.T) {
	X, y := syntheticRows(50, 5)

	a := NewRandomForest(DefaultForestConfig(), 42)
	require.NoError(t, a.Fit(X, y))
	b := NewRandomForest(DefaultForestConfig(), 42)
	require.NoError(t, b.Fit(X, y))

	for _, x := range X {
		assert.Equal(t, a.Predict(x), b.Predict(x))
	}

	// Refitting the same instance reseeds.
	first := a.Predict(X[0])
	require.NoError(t, a.Fit(X, y))
	assert.Equal(t, first, a.Predict(X[0]))
}

func TestRandomForest_ConstantTarget(t *testing.T) {
	X := [][]float64{{1}, {2}, {3}}
	y := []float64{7, 7, 7}
	f := NewRandomForest(ForestConfig{Trees: 3}, 1)
	require.NoError(t, f.Fit(X, y))
	for _, tree := range f.Trees {
		assert.Nil(t, tree.Left, "constant target should give a single leaf")
	}
	assert.Equal(t, 7.0, f.Predict([]float64{100}))
}

func TestRandomForest_MaxDepth(t *testing.T) {
	X, y := syntheticRows(60, 2)
	f := NewRandomForest(ForestConfig{Trees: 5, MaxDepth: 1}, 1)
	require.NoError(t, f.Fit(X, y))
	for _, tree := range f.Trees {
		if tree.Left != nil {
			assert.Nil(t, tree.Left.Left)
			assert.Nil(t, tree.Right.Left)
		}
	}
}

func TestRandomForest_RejectsZeroTrees(t *testing.T) {
	f := NewRandomForest(ForestConfig{}, 1)
	assert.Error(t, f.Fit([][]float64{{1}}, []float64{1}))
}
