package gbt

import (
	"math"
	"math/rand"
	"sort"
)

// Node is one node of a regression tree, stored in a flat slice so trained
// models serialize cleanly. Leaf nodes carry only Value.
type Node struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Value     float64 `json:"value"`
	Leaf      bool    `json:"leaf"`
}

// Tree is a depth-bounded regression tree fit to squared-error residuals.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Predict walks the tree for a single feature vector.
func (t *Tree) Predict(x []float64) float64 {
	idx := 0
	for {
		node := t.Nodes[idx]
		if node.Leaf {
			return node.Value
		}
		if x[node.Feature] <= node.Threshold {
			idx = node.Left
		} else {
			idx = node.Right
		}
	}
}

// treeBuilder grows a single tree greedily, minimizing the sum of squared
// errors of the two children at each split.
type treeBuilder struct {
	x              [][]float64
	y              []float64
	maxDepth       int
	minSamplesLeaf int
	features       []int // column subsample for this tree
	gains          map[int]float64
}

func newTreeBuilder(x [][]float64, y []float64, maxDepth, minSamplesLeaf int, features []int) *treeBuilder {
	return &treeBuilder{
		x:              x,
		y:              y,
		maxDepth:       maxDepth,
		minSamplesLeaf: minSamplesLeaf,
		features:       features,
		gains:          make(map[int]float64),
	}
}

// build fits the tree over the given sample indices and returns it along
// with the per-feature squared-error gain accumulated by its splits.
func (b *treeBuilder) build(samples []int) (*Tree, map[int]float64) {
	tree := &Tree{}
	b.grow(tree, samples, 0)
	return tree, b.gains
}

// grow appends the subtree for samples to tree.Nodes and returns its index.
func (b *treeBuilder) grow(tree *Tree, samples []int, depth int) int {
	idx := len(tree.Nodes)
	tree.Nodes = append(tree.Nodes, Node{Leaf: true, Value: meanAt(b.y, samples)})

	if depth >= b.maxDepth || len(samples) < 2*b.minSamplesLeaf {
		return idx
	}

	feature, threshold, gain, ok := b.bestSplit(samples)
	if !ok {
		return idx
	}

	var left, right []int
	for _, s := range samples {
		if b.x[s][feature] <= threshold {
			left = append(left, s)
		} else {
			right = append(right, s)
		}
	}

	b.gains[feature] += gain

	node := tree.Nodes[idx]
	node.Leaf = false
	node.Feature = feature
	node.Threshold = threshold
	node.Left = b.grow(tree, left, depth+1)
	node.Right = b.grow(tree, right, depth+1)
	tree.Nodes[idx] = node
	return idx
}

// bestSplit scans the tree's feature subsample for the split with the
// largest squared-error reduction, using prefix sums over sorted values.
func (b *treeBuilder) bestSplit(samples []int) (feature int, threshold, gain float64, ok bool) {
	n := len(samples)

	total := 0.0
	totalSq := 0.0
	for _, s := range samples {
		total += b.y[s]
		totalSq += b.y[s] * b.y[s]
	}
	parentSSE := totalSq - total*total/float64(n)

	bestGain := 1e-12

	order := make([]int, n)
	for _, f := range b.features {
		copy(order, samples)
		sort.Slice(order, func(i, j int) bool { return b.x[order[i]][f] < b.x[order[j]][f] })

		leftSum := 0.0
		leftSq := 0.0
		for i := 0; i < n-1; i++ {
			s := order[i]
			leftSum += b.y[s]
			leftSq += b.y[s] * b.y[s]

			// Only split between distinct feature values.
			if b.x[s][f] == b.x[order[i+1]][f] {
				continue
			}
			nl := i + 1
			nr := n - nl
			if nl < b.minSamplesLeaf || nr < b.minSamplesLeaf {
				continue
			}

			rightSum := total - leftSum
			rightSq := totalSq - leftSq
			sse := (leftSq - leftSum*leftSum/float64(nl)) +
				(rightSq - rightSum*rightSum/float64(nr))

			if g := parentSSE - sse; g > bestGain {
				bestGain = g
				feature = f
				threshold = (b.x[s][f] + b.x[order[i+1]][f]) / 2
				ok = true
			}
		}
	}

	if !ok {
		return 0, 0, 0, false
	}
	return feature, threshold, bestGain, true
}

func meanAt(y []float64, samples []int) float64 {
	if len(samples) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range samples {
		sum += y[s]
	}
	return sum / float64(len(samples))
}

// sampleWithout returns a sorted sample of k distinct values from [0, n).
func sampleWithout(rng *rand.Rand, n, k int) []int {
	if k >= n {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return all
	}
	perm := rng.Perm(n)[:k]
	sort.Ints(perm)
	return perm
}

// subsampleSize converts a fraction into a count, never below one.
func subsampleSize(n int, fraction float64) int {
	k := int(math.Floor(float64(n) * fraction))
	if k < 1 {
		k = 1
	}
	if k > n {
		k = n
	}
	return k
}
