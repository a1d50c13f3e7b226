package forest

import (
	"math/rand"
	"slices"

	"gonum.org/v1/gonum/mat"
)

// Node is one split or leaf of a regression tree, stored flat so the tree
// gob-encodes without pointers.
type Node struct {
	Leaf      bool
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Value     float64
	Samples   int
}

// Tree is a CART regression tree grown on squared-error reduction.
type Tree struct {
	Nodes []Node

	// Importances holds the raw impurity decrease per feature.
	Importances []float64
}

// Predict walks the tree for one feature row.
func (t *Tree) Predict(row []float64) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Leaf {
			return n.Value
		}
		if row[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// grower holds the per-tree state while a tree is being built.
type grower struct {
	x      *mat.Dense
	y      []float64
	params Params
	tree   *Tree
}

func growTree(x *mat.Dense, y []float64, params Params, rng *rand.Rand) *Tree {
	n, features := x.Dims()

	// Bootstrap sample drawn with replacement.
	idx := make([]int, n)
	for i := range idx {
		idx[i] = rng.Intn(n)
	}

	g := &grower{
		x:      x,
		y:      y,
		params: params,
		tree:   &Tree{Importances: make([]float64, features)},
	}
	g.build(idx, 0)
	return g.tree
}

// build appends the subtree for idx and returns its node index.
func (g *grower) build(idx []int, depth int) int {
	sum, sumSq := 0.0, 0.0
	for _, i := range idx {
		sum += g.y[i]
		sumSq += g.y[i] * g.y[i]
	}
	count := float64(len(idx))
	sse := sumSq - sum*sum/count

	self := len(g.tree.Nodes)
	g.tree.Nodes = append(g.tree.Nodes, Node{Leaf: true, Value: sum / count, Samples: len(idx)})

	if g.stop(idx, depth, sse) {
		return self
	}

	best, ok := g.bestSplit(idx, sum)
	if !ok {
		return self
	}

	left := make([]int, 0, best.leftCount)
	right := make([]int, 0, len(idx)-best.leftCount)
	for _, i := range idx {
		if g.x.At(i, best.feature) <= best.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	g.tree.Importances[best.feature] += sse - best.childSSE

	l := g.build(left, depth+1)
	r := g.build(right, depth+1)
	g.tree.Nodes[self] = Node{
		Feature:   best.feature,
		Threshold: best.threshold,
		Left:      l,
		Right:     r,
		Value:     sum / count,
		Samples:   len(idx),
	}
	return self
}

func (g *grower) stop(idx []int, depth int, sse float64) bool {
	if g.params.MaxDepth > 0 && depth >= g.params.MaxDepth {
		return true
	}
	if len(idx) < g.params.MinSamplesSplit || len(idx) < 2*g.params.MinSamplesLeaf {
		return true
	}
	return sse <= 1e-12
}

type split struct {
	feature   int
	threshold float64
	leftCount int
	childSSE  float64
}

// bestSplit scans every feature for the threshold that minimizes the summed
// squared error of the two children. Ties keep the earliest feature.
func (g *grower) bestSplit(idx []int, total float64) (split, bool) {
	_, features := g.x.Dims()
	n := len(idx)
	minLeaf := g.params.MinSamplesLeaf

	var best split
	bestScore := 0.0
	found := false

	sorted := slices.Clone(idx)
	for f := range features {
		slices.SortStableFunc(sorted, func(a, b int) int {
			va, vb := g.x.At(a, f), g.x.At(b, f)
			switch {
			case va < vb:
				return -1
			case va > vb:
				return 1
			default:
				return 0
			}
		})

		leftSum := 0.0
		for pos := 0; pos < n-1; pos++ {
			leftSum += g.y[sorted[pos]]
			nl := pos + 1
			nr := n - nl
			if nl < minLeaf || nr < minLeaf {
				continue
			}
			lo, hi := g.x.At(sorted[pos], f), g.x.At(sorted[pos+1], f)
			if lo == hi {
				continue
			}
			rightSum := total - leftSum
			// Maximizing this is equivalent to minimizing the children's SSE.
			score := leftSum*leftSum/float64(nl) + rightSum*rightSum/float64(nr)
			if !found || score > bestScore {
				found = true
				bestScore = score
				best = split{feature: f, threshold: (lo + hi) / 2, leftCount: nl}
			}
		}
	}
	if !found {
		return split{}, false
	}

	sumSq := 0.0
	for _, i := range idx {
		sumSq += g.y[i] * g.y[i]
	}
	best.childSSE = sumSq - bestScore
	return best, true
}
