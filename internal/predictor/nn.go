package predictor

import (
	"encoding/json"
	"math"
	"math/rand/v2"
)

// Layer is a fully-connected layer. Weights are indexed [out][in].
type Layer struct {
	Weights [][]float64
	Biases  []float64

	// Training-only state, rebuilt on load.
	opt   adamState
	input []float64
	out   []float64
	dW    [][]float64
	dB    []float64
}

type adamState struct {
	mW, vW [][]float64
	mB, vB []float64
}

// Network is a feed-forward network: ReLU hidden layers, linear output.
type Network struct {
	Layers []Layer
}

// TrainConfig holds Adam and mini-batch hyperparameters.
type TrainConfig struct {
	LearningRate float64 `json:"learning_rate" yaml:"learning_rate"`
	Beta1        float64 `json:"beta1" yaml:"beta1"`
	Beta2        float64 `json:"beta2" yaml:"beta2"`
	Epsilon      float64 `json:"epsilon" yaml:"epsilon"`
	BatchSize    int     `json:"batch_size" yaml:"batch_size"`
	Epochs       int     `json:"epochs" yaml:"epochs"`
}

// DefaultTrainConfig suits the tens of monthly rows this package sees.
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		LearningRate: 0.005,
		Beta1:        0.9,
		Beta2:        0.999,
		Epsilon:      1e-8,
		BatchSize:    8,
		Epochs:       400,
	}
}

// NewNetwork builds a He-initialized network. sizes lists neurons per layer,
// e.g. [4, 16, 8, 1].
func NewNetwork(sizes []int, rng *rand.Rand) *Network {
	n := &Network{Layers: make([]Layer, len(sizes)-1)}
	for i := range n.Layers {
		in, out := sizes[i], sizes[i+1]
		stddev := math.Sqrt(2.0 / float64(in))
		l := Layer{
			Weights: makeMatrix(out, in),
			Biases:  make([]float64, out),
		}
		for j := 0; j < out; j++ {
			for k := 0; k < in; k++ {
				l.Weights[j][k] = rng.NormFloat64() * stddev
			}
		}
		n.Layers[i] = l
	}
	n.resetTrainingState()
	return n
}

func (n *Network) resetTrainingState() {
	for i := range n.Layers {
		l := &n.Layers[i]
		out, in := len(l.Weights), len(l.Weights[0])
		l.opt = adamState{
			mW: makeMatrix(out, in),
			vW: makeMatrix(out, in),
			mB: make([]float64, out),
			vB: make([]float64, out),
		}
		l.dW = makeMatrix(out, in)
		l.dB = make([]float64, out)
	}
}

// Output runs inference without touching training caches, so a trained
// network can be shared by concurrent readers.
func (n *Network) Output(input []float64) []float64 {
	x := input
	for i := range n.Layers {
		x = n.Layers[i].apply(x, i < len(n.Layers)-1)
	}
	return x
}

func (l *Layer) apply(x []float64, relu bool) []float64 {
	y := make([]float64, len(l.Weights))
	for j, row := range l.Weights {
		sum := l.Biases[j]
		for k, w := range row {
			sum += w * x[k]
		}
		if relu && sum < 0 {
			sum = 0
		}
		y[j] = sum
	}
	return y
}

// Forward is Output plus activation caching for a following Backward call.
func (n *Network) Forward(input []float64) []float64 {
	x := input
	for i := range n.Layers {
		l := &n.Layers[i]
		l.input = append(l.input[:0], x...)
		l.out = l.apply(x, i < len(n.Layers)-1)
		x = l.out
	}
	return x
}

// Backward accumulates gradients into dW/dB given dLoss/dOutput.
func (n *Network) Backward(dOutput []float64) {
	dx := dOutput
	for i := len(n.Layers) - 1; i >= 0; i-- {
		l := &n.Layers[i]
		if i < len(n.Layers)-1 {
			for j := range dx {
				if l.out[j] <= 0 {
					dx[j] = 0
				}
			}
		}
		for j, g := range dx {
			l.dB[j] += g
			for k, in := range l.input {
				l.dW[j][k] += g * in
			}
		}
		if i == 0 {
			break
		}
		next := make([]float64, len(l.input))
		for j, g := range dx {
			for k, w := range l.Weights[j] {
				next[k] += g * w
			}
		}
		dx = next
	}
}

// ZeroGrad clears accumulated gradients.
func (n *Network) ZeroGrad() {
	for i := range n.Layers {
		l := &n.Layers[i]
		for j := range l.dW {
			clear(l.dW[j])
		}
		clear(l.dB)
	}
}

// UpdateAdam applies one Adam step. step is 1-based.
func (n *Network) UpdateAdam(cfg TrainConfig, step int) {
	c1 := 1 - math.Pow(cfg.Beta1, float64(step))
	c2 := 1 - math.Pow(cfg.Beta2, float64(step))
	adam := func(p, m, v *float64, g float64) {
		*m = cfg.Beta1**m + (1-cfg.Beta1)*g
		*v = cfg.Beta2**v + (1-cfg.Beta2)*g*g
		*p -= cfg.LearningRate * (*m / c1) / (math.Sqrt(*v/c2) + cfg.Epsilon)
	}
	for i := range n.Layers {
		l := &n.Layers[i]
		for j := range l.Weights {
			for k := range l.Weights[j] {
				adam(&l.Weights[j][k], &l.opt.mW[j][k], &l.opt.vW[j][k], l.dW[j][k])
			}
			adam(&l.Biases[j], &l.opt.mB[j], &l.opt.vB[j], l.dB[j])
		}
	}
}

// Train runs shuffled mini-batch Adam on a single-output regression and
// returns the validation MSE after every epoch.
func (n *Network) Train(trainX, trainY, valX, valY [][]float64, cfg TrainConfig, rng *rand.Rand) []float64 {
	order := make([]int, len(trainX))
	for i := range order {
		order[i] = i
	}

	losses := make([]float64, cfg.Epochs)
	step := 0
	for epoch := range losses {
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

		for start := 0; start < len(order); start += cfg.BatchSize {
			end := min(start+cfg.BatchSize, len(order))
			scale := 2 / float64(end-start)

			n.ZeroGrad()
			for _, idx := range order[start:end] {
				out := n.Forward(trainX[idx])
				n.Backward([]float64{scale * (out[0] - trainY[idx][0])})
			}
			step++
			n.UpdateAdam(cfg, step)
		}

		losses[epoch] = n.MSELoss(valX, valY)
	}
	return losses
}

// MSELoss is the mean squared error of the first output over a dataset.
func (n *Network) MSELoss(X, Y [][]float64) float64 {
	if len(X) == 0 {
		return 0
	}
	var sum float64
	for i := range X {
		d := n.Output(X[i])[0] - Y[i][0]
		sum += d * d
	}
	return sum / float64(len(X))
}

type layerJSON struct {
	Weights [][]float64 `json:"weights"`
	Biases  []float64   `json:"biases"`
}

// MarshalJSON writes weights and biases only.
func (n *Network) MarshalJSON() ([]byte, error) {
	layers := make([]layerJSON, len(n.Layers))
	for i, l := range n.Layers {
		layers[i] = layerJSON{Weights: l.Weights, Biases: l.Biases}
	}
	return json.Marshal(struct {
		Layers []layerJSON `json:"layers"`
	}{layers})
}

// UnmarshalJSON restores weights and rebuilds optimizer state.
func (n *Network) UnmarshalJSON(data []byte) error {
	var raw struct {
		Layers []layerJSON `json:"layers"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	n.Layers = make([]Layer, len(raw.Layers))
	for i, l := range raw.Layers {
		n.Layers[i] = Layer{Weights: l.Weights, Biases: l.Biases}
	}
	n.resetTrainingState()
	return nil
}

func makeMatrix(rows, cols int) [][]float64 {
	m := make([][]float64, rows)
	for i := range m {
		m[i] = make([]float64, cols)
	}
	return m
}
