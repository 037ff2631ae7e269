package tree

import (
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Criterion selects the node impurity measure.
type Criterion int

const (
	// SquaredError is the within-node sum of squares (regression).
	SquaredError Criterion = iota
	// Gini is n times the Gini index of a 0/1 outcome (classification).
	Gini
)

// Node is one node of a fitted tree, stored in a flat slice. Children are indices into
// the same slice; leaves have Left == Right == -1.
type Node struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int

	// Value is the mean outcome of the node: the prediction for regression, the
	// positive-class proportion for classification.
	Value    float64
	NSamples int

	// Impurity is the node's total (not per-sample) impurity.
	Impurity float64
	Depth    int
}

// IsLeaf reports whether the node has no children.
func (n Node) IsLeaf() bool { return n.Left < 0 }

// builder grows one CART tree over a row subset of X. Rows may repeat (bootstrap).
type builder struct {
	X         *mat.Dense
	y         []float64
	criterion Criterion
	params    Params
	rng       *rand.Rand

	minGain     float64
	nodes       []Node
	importances []float64
}

func newBuilder(X *mat.Dense, y []float64, criterion Criterion, params Params) *builder {
	_, p := X.Dims()
	return &builder{
		X:           X,
		y:           y,
		criterion:   criterion,
		params:      params,
		rng:         rand.New(rand.NewPCG(params.RandomState, params.RandomState^0x9e3779b97f4a7c15)),
		importances: make([]float64, p),
	}
}

// grow builds the tree over rows and returns the flat node list.
func (b *builder) grow(rows []int) []Node {
	rootImpurity := b.impurity(rows)
	b.minGain = b.params.CostComplexity * rootImpurity
	b.nodes = b.nodes[:0]
	b.buildTree(rows, 0)
	return b.nodes
}

// impurity returns the total impurity of rows.
func (b *builder) impurity(rows []int) float64 {
	var sum, sumSq float64
	for _, r := range rows {
		v := b.y[r]
		sum += v
		sumSq += v * v
	}
	return nodeImpurity(b.criterion, float64(len(rows)), sum, sumSq)
}

func nodeImpurity(c Criterion, n, sum, sumSq float64) float64 {
	if n == 0 {
		return 0
	}
	switch c {
	case Gini:
		p := sum / n
		return n * 2 * p * (1 - p)
	default:
		v := sumSq - sum*sum/n
		if v < 0 {
			return 0
		}
		return v
	}
}

func (b *builder) buildTree(rows []int, depth int) int {
	var sum float64
	for _, r := range rows {
		sum += b.y[r]
	}
	impurity := b.impurity(rows)

	idx := len(b.nodes)
	b.nodes = append(b.nodes, Node{
		Feature:  -1,
		Left:     -1,
		Right:    -1,
		Value:    sum / float64(len(rows)),
		NSamples: len(rows),
		Impurity: impurity,
		Depth:    depth,
	})

	if b.shouldStop(len(rows), impurity, depth) {
		return idx
	}

	feature, threshold, gain := b.findBestSplit(rows, impurity)
	if feature < 0 || gain <= 0 || gain < b.minGain {
		return idx
	}

	left, right := b.splitData(rows, feature, threshold)
	b.importances[feature] += gain

	l := b.buildTree(left, depth+1)
	r := b.buildTree(right, depth+1)
	b.nodes[idx].Feature = feature
	b.nodes[idx].Threshold = threshold
	b.nodes[idx].Left = l
	b.nodes[idx].Right = r
	return idx
}

func (b *builder) shouldStop(nSamples int, impurity float64, depth int) bool {
	if b.params.MaxDepth > 0 && depth >= b.params.MaxDepth {
		return true
	}
	if nSamples < b.params.MinSamplesSplit || nSamples < 2*b.params.MinSamplesLeaf {
		return true
	}
	return impurity <= 1e-12
}

// candidateFeatures returns every feature, or a random subset of MaxFeatures of them.
func (b *builder) candidateFeatures() []int {
	_, p := b.X.Dims()
	m := b.params.MaxFeatures
	if m <= 0 || m >= p {
		all := make([]int, p)
		for j := range all {
			all[j] = j
		}
		return all
	}
	return b.rng.Perm(p)[:m]
}

// findBestSplit scans the sorted values of each candidate feature and returns the split
// with the largest decrease in total impurity.
func (b *builder) findBestSplit(rows []int, parentImpurity float64) (int, float64, float64) {
	bestFeature := -1
	bestThreshold := 0.0
	bestGain := 0.0

	n := len(rows)
	sorted := make([]int, n)
	minLeaf := b.params.MinSamplesLeaf
	if minLeaf < 1 {
		minLeaf = 1
	}

	var totalSum, totalSq float64
	for _, r := range rows {
		totalSum += b.y[r]
		totalSq += b.y[r] * b.y[r]
	}

	for _, feature := range b.candidateFeatures() {
		copy(sorted, rows)
		sort.SliceStable(sorted, func(i, j int) bool {
			return b.X.At(sorted[i], feature) < b.X.At(sorted[j], feature)
		})

		var leftSum, leftSq float64
		for i := 0; i < n-1; i++ {
			v := b.y[sorted[i]]
			leftSum += v
			leftSq += v * v

			x1 := b.X.At(sorted[i], feature)
			x2 := b.X.At(sorted[i+1], feature)
			if x1 == x2 {
				continue
			}
			nLeft := i + 1
			nRight := n - nLeft
			if nLeft < minLeaf || nRight < minLeaf {
				continue
			}

			children := nodeImpurity(b.criterion, float64(nLeft), leftSum, leftSq) +
				nodeImpurity(b.criterion, float64(nRight), totalSum-leftSum, totalSq-leftSq)
			gain := parentImpurity - children
			if gain > bestGain+1e-12 {
				bestGain = gain
				bestFeature = feature
				bestThreshold = (x1 + x2) / 2.0
			}
		}
	}

	return bestFeature, bestThreshold, bestGain
}

func (b *builder) splitData(rows []int, feature int, threshold float64) ([]int, []int) {
	var left, right []int
	for _, r := range rows {
		if b.X.At(r, feature) <= threshold {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}
	return left, right
}

// predictValue walks the tree for one row of X.
func predictValue(nodes []Node, X mat.Matrix, row int) float64 {
	i := 0
	for !nodes[i].IsLeaf() {
		if X.At(row, nodes[i].Feature) <= nodes[i].Threshold {
			i = nodes[i].Left
		} else {
			i = nodes[i].Right
		}
	}
	return nodes[i].Value
}
