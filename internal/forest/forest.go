// Package forest implements a random forest regressor: bootstrap-aggregated
// CART regression trees grown on squared-error reduction.
package forest

import (
	"errors"
	"fmt"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Params configures Fit. MaxDepth <= 0 grows trees without a depth limit and
// Workers <= 0 uses GOMAXPROCS.
type Params struct {
	Trees           int
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	Workers         int
	Seed            int64
}

// Validate checks the parameters Fit relies on.
func (p Params) Validate() error {
	switch {
	case p.Trees < 1:
		return errors.New("trees must be at least 1")
	case p.MinSamplesSplit < 2:
		return errors.New("min samples split must be at least 2")
	case p.MinSamplesLeaf < 1:
		return errors.New("min samples leaf must be at least 1")
	}
	return nil
}

// Forest is a fitted ensemble. It is safe for concurrent Predict calls.
type Forest struct {
	Trees     []*Tree
	NFeatures int
}

// Fit grows params.Trees trees in parallel. Every tree's seed is drawn from
// params.Seed before any work starts, so the fitted forest does not depend on
// the worker count or scheduling.
func Fit(x *mat.Dense, y []float64, params Params) (*Forest, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid forest params: %w", err)
	}
	rows, cols := x.Dims()
	if rows == 0 {
		return nil, errors.New("fit forest: no training rows")
	}
	if rows != len(y) {
		return nil, fmt.Errorf("fit forest: %d rows but %d targets", rows, len(y))
	}

	master := rand.New(rand.NewSource(params.Seed))
	seeds := make([]int64, params.Trees)
	for i := range seeds {
		seeds[i] = master.Int63()
	}

	workers := params.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	trees := make([]*Tree, params.Trees)
	var g errgroup.Group
	g.SetLimit(workers)
	for i := range trees {
		g.Go(func() error {
			trees[i] = growTree(x, y, params, rand.New(rand.NewSource(seeds[i])))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fit forest: %w", err)
	}

	return &Forest{Trees: trees, NFeatures: cols}, nil
}

// Predict averages the trees' predictions for one row.
func (f *Forest) Predict(row []float64) (float64, error) {
	if len(row) != f.NFeatures {
		return 0, fmt.Errorf("predict: got %d features, model expects %d", len(row), f.NFeatures)
	}
	sum := 0.0
	for _, t := range f.Trees {
		sum += t.Predict(row)
	}
	return sum / float64(len(f.Trees)), nil
}

// PredictAll predicts every row of x.
func (f *Forest) PredictAll(x *mat.Dense) ([]float64, error) {
	rows, _ := x.Dims()
	out := make([]float64, rows)
	for i := range out {
		v, err := f.Predict(x.RawRowView(i))
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// FeatureImportances returns the mean decrease in impurity per feature. Each
// tree's contribution is normalized to sum to 1 before averaging; a forest of
// single-leaf trees reports all zeros.
func (f *Forest) FeatureImportances() []float64 {
	out := make([]float64, f.NFeatures)
	used := 0
	for _, t := range f.Trees {
		total := floats.Sum(t.Importances)
		if total <= 0 {
			continue
		}
		per := make([]float64, len(t.Importances))
		floats.ScaleTo(per, 1/total, t.Importances)
		floats.Add(out, per)
		used++
	}
	if used == 0 {
		return out
	}
	floats.Scale(1/float64(used), out)
	return out
}
