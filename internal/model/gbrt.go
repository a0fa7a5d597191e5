// Package model implements the gradient-boosted regression tree model used
// by the training and prediction stages. One global model is fitted across
// all entity series; its feature vector is assembled by the caller from
// target lags, future covariates, and static attributes.
package model

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Options controls the boosting process.
type Options struct {
	Trees        int
	MaxDepth     int
	LearningRate float64
	MinLeaf      int
}

// DefaultOptions returns the options used when a caller passes zero values.
func DefaultOptions() Options {
	return Options{
		Trees:        100,
		MaxDepth:     4,
		LearningRate: 0.1,
		MinLeaf:      20,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.Trees <= 0 {
		o.Trees = def.Trees
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = def.MaxDepth
	}
	if o.LearningRate <= 0 {
		o.LearningRate = def.LearningRate
	}
	if o.MinLeaf <= 0 {
		o.MinLeaf = def.MinLeaf
	}
	return o
}

// Node is one node of a regression tree. Fields are exported so the tree
// survives gob serialization without loss.
type Node struct {
	Feature   int
	Threshold float64
	Value     float64
	Left      *Node
	Right     *Node
}

func (n *Node) isLeaf() bool { return n.Left == nil }

func (n *Node) predict(x []float64) float64 {
	for !n.isLeaf() {
		if x[n.Feature] <= n.Threshold {
			n = n.Left
		} else {
			n = n.Right
		}
	}
	return n.Value
}

// Regressor is a fitted gradient-boosted regression tree ensemble.
type Regressor struct {
	Base         float64
	LearningRate float64
	NumFeatures  int
	Trees        []*Node
}

// maxSplitCandidates bounds the thresholds evaluated per feature so that
// fitting stays linear in the sample count for wide tables.
const maxSplitCandidates = 32

// Fit trains the ensemble on the given samples. Every row of x must have the
// same length, and y must have one label per row.
func Fit(x [][]float64, y []float64, opts Options) (*Regressor, error) {
	if len(x) == 0 {
		return nil, fmt.Errorf("no training samples")
	}
	if len(x) != len(y) {
		return nil, fmt.Errorf("sample/label mismatch: %d rows, %d labels", len(x), len(y))
	}
	width := len(x[0])
	for i, row := range x {
		if len(row) != width {
			return nil, fmt.Errorf("row %d has %d features, want %d", i, len(row), width)
		}
	}

	opts = opts.withDefaults()

	reg := &Regressor{
		Base:         stat.Mean(y, nil),
		LearningRate: opts.LearningRate,
		NumFeatures:  width,
	}

	// Boosting on squared loss: each tree fits the current residuals.
	pred := make([]float64, len(y))
	for i := range pred {
		pred[i] = reg.Base
	}
	residual := make([]float64, len(y))
	indices := make([]int, len(y))
	for i := range indices {
		indices[i] = i
	}

	for t := 0; t < opts.Trees; t++ {
		for i := range y {
			residual[i] = y[i] - pred[i]
		}
		root := growTree(x, residual, indices, opts.MaxDepth, opts.MinLeaf)
		reg.Trees = append(reg.Trees, root)
		for i, row := range x {
			pred[i] += opts.LearningRate * root.predict(row)
		}
	}

	return reg, nil
}

// Predict returns the model output for a single feature vector.
func (r *Regressor) Predict(x []float64) (float64, error) {
	if len(x) != r.NumFeatures {
		return 0, fmt.Errorf("feature vector has %d values, model expects %d", len(x), r.NumFeatures)
	}
	out := r.Base
	for _, tree := range r.Trees {
		out += r.LearningRate * tree.predict(x)
	}
	return out, nil
}

// growTree builds one regression tree over the rows selected by indices.
func growTree(x [][]float64, target []float64, indices []int, depth, minLeaf int) *Node {
	leafValue := meanAt(target, indices)
	if depth == 0 || len(indices) < 2*minLeaf {
		return &Node{Feature: -1, Value: leafValue}
	}

	feature, threshold, ok := bestSplit(x, target, indices, minLeaf)
	if !ok {
		return &Node{Feature: -1, Value: leafValue}
	}

	var left, right []int
	for _, i := range indices {
		if x[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	return &Node{
		Feature:   feature,
		Threshold: threshold,
		Value:     leafValue,
		Left:      growTree(x, target, left, depth-1, minLeaf),
		Right:     growTree(x, target, right, depth-1, minLeaf),
	}
}

// bestSplit finds the (feature, threshold) pair minimizing the summed squared
// error of the two children. Candidate thresholds are midpoints between
// consecutive distinct values, thinned to maxSplitCandidates.
func bestSplit(x [][]float64, target []float64, indices []int, minLeaf int) (int, float64, bool) {
	bestSSE := math.Inf(1)
	bestFeature := -1
	var bestThreshold float64

	width := len(x[indices[0]])
	values := make([]float64, 0, len(indices))

	for f := 0; f < width; f++ {
		values = values[:0]
		for _, i := range indices {
			values = append(values, x[i][f])
		}
		for _, thr := range candidateThresholds(values) {
			sse, ok := splitSSE(x, target, indices, f, thr, minLeaf)
			if ok && sse < bestSSE {
				bestSSE = sse
				bestFeature = f
				bestThreshold = thr
			}
		}
	}

	return bestFeature, bestThreshold, bestFeature >= 0
}

// candidateThresholds returns up to maxSplitCandidates midpoints between
// consecutive distinct sorted values.
func candidateThresholds(values []float64) []float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	var mids []float64
	for i := 1; i < len(sorted); i++ {
		if sorted[i] != sorted[i-1] {
			mids = append(mids, (sorted[i]+sorted[i-1])/2)
		}
	}
	if len(mids) <= maxSplitCandidates {
		return mids
	}
	step := float64(len(mids)) / float64(maxSplitCandidates)
	thinned := make([]float64, 0, maxSplitCandidates)
	for i := 0; i < maxSplitCandidates; i++ {
		thinned = append(thinned, mids[int(float64(i)*step)])
	}
	return thinned
}

// splitSSE computes the summed squared error of splitting at threshold.
// Returns ok=false when either side would violate the minimum leaf size.
func splitSSE(x [][]float64, target []float64, indices []int, feature int, threshold float64, minLeaf int) (float64, bool) {
	var ln, rn int
	var lsum, rsum float64
	for _, i := range indices {
		if x[i][feature] <= threshold {
			ln++
			lsum += target[i]
		} else {
			rn++
			rsum += target[i]
		}
	}
	if ln < minLeaf || rn < minLeaf {
		return 0, false
	}

	lmean := lsum / float64(ln)
	rmean := rsum / float64(rn)
	var sse float64
	for _, i := range indices {
		var d float64
		if x[i][feature] <= threshold {
			d = target[i] - lmean
		} else {
			d = target[i] - rmean
		}
		sse += d * d
	}
	return sse, true
}

func meanAt(values []float64, indices []int) float64 {
	if len(indices) == 0 {
		return 0
	}
	selected := make([]float64, len(indices))
	for j, i := range indices {
		selected[j] = values[i]
	}
	return floats.Sum(selected) / float64(len(selected))
}
