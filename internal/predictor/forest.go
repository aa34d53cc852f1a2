package predictor

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// ForestConfig controls tree count and growth limits. MaxDepth 0 grows trees
// until leaves are pure or too small to split.
type ForestConfig struct {
	Trees           int `json:"trees" yaml:"trees"`
	MaxDepth        int `json:"max_depth" yaml:"max_depth"`
	MinSamplesSplit int `json:"min_samples_split" yaml:"min_samples_split"`
	MinSamplesLeaf  int `json:"min_samples_leaf" yaml:"min_samples_leaf"`
}

// DefaultForestConfig mirrors a stock random-forest regressor: 100 fully grown
// trees on bootstrap samples, every feature considered at each split.
func DefaultForestConfig() ForestConfig {
	return ForestConfig{
		Trees:           100,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
	}
}

// TreeNode is either a leaf (Left == nil) or a split on X[Feature] <= Threshold.
type TreeNode struct {
	Feature   int       `json:"f,omitempty"`
	Threshold float64   `json:"t,omitempty"`
	Value     float64   `json:"v"`
	Left      *TreeNode `json:"l,omitempty"`
	Right     *TreeNode `json:"r,omitempty"`
}

func (t *TreeNode) predict(x []float64) float64 {
	for t.Left != nil {
		if x[t.Feature] <= t.Threshold {
			t = t.Left
		} else {
			t = t.Right
		}
	}
	return t.Value
}

// RandomForest averages bagged regression trees.
type RandomForest struct {
	Config ForestConfig `json:"config"`
	Seed   uint64       `json:"seed"`
	Trees  []*TreeNode  `json:"trees"`
}

// NewRandomForest returns an untrained forest.
func NewRandomForest(cfg ForestConfig, seed uint64) *RandomForest {
	return &RandomForest{Config: cfg, Seed: seed}
}

// Fit grows Config.Trees trees. The generator is reseeded on every call, so
// refitting on the same rows reproduces the same forest.
func (f *RandomForest) Fit(X [][]float64, y []float64) error {
	if err := checkSamples(X, y); err != nil {
		return err
	}
	if f.Config.Trees <= 0 {
		return fmt.Errorf("random forest: tree count must be positive, got %d", f.Config.Trees)
	}

	rng := rand.New(rand.NewPCG(f.Seed, 0))
	b := treeBuilder{X: X, y: y, cfg: f.Config, rng: rng}
	if b.cfg.MinSamplesSplit < 2 {
		b.cfg.MinSamplesSplit = 2
	}
	if b.cfg.MinSamplesLeaf < 1 {
		b.cfg.MinSamplesLeaf = 1
	}

	f.Trees = make([]*TreeNode, f.Config.Trees)
	n := len(y)
	for t := range f.Trees {
		sample := make([]int, n)
		for i := range sample {
			sample[i] = rng.IntN(n)
		}
		f.Trees[t] = b.grow(sample, 0)
	}
	return nil
}

// Predict averages the trees. An unfitted forest predicts 0.
func (f *RandomForest) Predict(x []float64) float64 {
	if len(f.Trees) == 0 {
		return 0
	}
	var sum float64
	for _, t := range f.Trees {
		sum += t.predict(x)
	}
	return sum / float64(len(f.Trees))
}

func (f *RandomForest) Kind() Kind { return KindRandomForest }

type treeBuilder struct {
	X   [][]float64
	y   []float64
	cfg ForestConfig
	rng *rand.Rand
}

type split struct {
	feature   int
	threshold float64
	pos       int // rows [0,pos) of the sorted index go left
	sse       float64
}

func (b *treeBuilder) grow(idx []int, depth int) *TreeNode {
	ys := make([]float64, len(idx))
	for i, r := range idx {
		ys[i] = b.y[r]
	}
	leaf := &TreeNode{Value: stat.Mean(ys, nil)}

	if len(idx) < b.cfg.MinSamplesSplit || (b.cfg.MaxDepth > 0 && depth >= b.cfg.MaxDepth) || constant(ys) {
		return leaf
	}

	best, sorted, ok := b.bestSplit(idx)
	if !ok {
		return leaf
	}
	return &TreeNode{
		Feature:   best.feature,
		Threshold: best.threshold,
		Value:     leaf.Value,
		Left:      b.grow(sorted[:best.pos], depth+1),
		Right:     b.grow(sorted[best.pos:], depth+1),
	}
}

// bestSplit scans every feature, visited in random order, and every boundary
// between distinct values for the lowest summed squared error of the children.
// The first strictly better candidate wins, so ties go to the earlier feature
// in the permutation.
func (b *treeBuilder) bestSplit(idx []int) (split, []int, bool) {
	best := split{sse: math.Inf(1)}
	var bestOrder []int
	minLeaf := b.cfg.MinSamplesLeaf
	n := len(idx)

	var totalSum, totalSq float64
	for _, r := range idx {
		totalSum += b.y[r]
		totalSq += b.y[r] * b.y[r]
	}

	for _, f := range b.rng.Perm(len(b.X[0])) {
		order := slices.Clone(idx)
		slices.SortStableFunc(order, func(a, c int) int {
			switch {
			case b.X[a][f] < b.X[c][f]:
				return -1
			case b.X[a][f] > b.X[c][f]:
				return 1
			}
			return 0
		})

		var leftSum, leftSq float64
		for i := 0; i < n-1; i++ {
			v := b.y[order[i]]
			leftSum += v
			leftSq += v * v

			lo, hi := b.X[order[i]][f], b.X[order[i+1]][f]
			if lo == hi {
				continue
			}
			nl, nr := i+1, n-i-1
			if nl < minLeaf || nr < minLeaf {
				continue
			}
			rightSum, rightSq := totalSum-leftSum, totalSq-leftSq
			sse := (leftSq - leftSum*leftSum/float64(nl)) + (rightSq - rightSum*rightSum/float64(nr))
			if sse < best.sse {
				best = split{feature: f, threshold: (lo + hi) / 2, pos: nl, sse: sse}
				bestOrder = order
			}
		}
	}
	return best, bestOrder, bestOrder != nil
}

func constant(ys []float64) bool {
	for _, v := range ys[1:] {
		if v != ys[0] {
			return false
		}
	}
	return true
}
