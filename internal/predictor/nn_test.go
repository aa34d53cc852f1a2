package predictor

import (
	"encoding/json"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNetwork_OutputDimensions(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 0))
	net := NewNetwork([]int{4, 16, 8, 1}, rng)

	out := net.Output([]float64{0.1, 0.2, 0.3, 0.4})
	require.Len(t, out, 1)
	assert.False(t, math.IsNaN(out[0]))
}

func TestNetwork_OutputMatchesForward(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 0))
	net := NewNetwork([]int{3, 5, 1}, rng)

	x := []float64{0.5, -1, 2}
	assert.Equal(t, net.Forward(x)[0], net.Output(x)[0])
}

func TestNetwork_XOR(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 0))
	net := NewNetwork([]int{2, 8, 1}, rng)

	X := [][]float64{{0, 0}, {0, 1}, {1, 0}, {1, 1}}
	Y := [][]float64{{0}, {1}, {1}, {0}}

	cfg := TrainConfig{
		LearningRate: 0.05,
		Beta1:        0.9,
		Beta2:        0.999,
		Epsilon:      1e-8,
		BatchSize:    4,
		Epochs:       3000,
	}
	losses := net.Train(X, Y, X, Y, cfg, rng)

	assert.Less(t, losses[len(losses)-1], 0.01, "XOR should converge")
	for i, x := range X {
		assert.InDelta(t, Y[i][0], net.Output(x)[0], 0.15, "input %v", x)
	}
}

func TestNetwork_JSONRoundtrip(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 0))
	net := NewNetwork([]int{4, 16, 8, 1}, rng)
	x := []float64{0.1, 0.2, 0.3, 0.4}

	data, err := json.Marshal(net)
	require.NoError(t, err)

	var loaded Network
	require.NoError(t, json.Unmarshal(data, &loaded))
	assert.Equal(t, net.Output(x)[0], loaded.Output(x)[0])
}

func TestNetwork_GradientCheck(t *testing.T) {
	rng := rand.New(rand.NewPCG(123, 0))
	net := NewNetwork([]int{3, 4, 1}, rng)

	input := []float64{0.5, -0.3, 0.8}
	target := 1.0
	const eps = 1e-5
	loss := func() float64 {
		d := net.Output(input)[0] - target
		return d * d
	}

	net.ZeroGrad()
	out := net.Forward(input)
	net.Backward([]float64{2 * (out[0] - target)})

	for i := range net.Layers {
		for j := range net.Layers[i].Weights {
			for k := range net.Layers[i].Weights[j] {
				orig := net.Layers[i].Weights[j][k]
				net.Layers[i].Weights[j][k] = orig + eps
				plus := loss()
				net.Layers[i].Weights[j][k] = orig - eps
				minus := loss()
				net.Layers[i].Weights[j][k] = orig

				numerical := (plus - minus) / (2 * eps)
				analytical := net.Layers[i].dW[j][k]
				denom := math.Max(math.Abs(numerical)+math.Abs(analytical), 1e-8)
				assert.Less(t, math.Abs(numerical-analytical)/denom, 1e-4,
					"layer %d weight [%d][%d]: numerical=%.8f analytical=%.8f", i, j, k, numerical, analytical)
			}
		}
	}
}
