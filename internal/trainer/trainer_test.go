package trainer

import (
	"math/rand"
	"slices"
	"testing"

	"github.com/couchcryptid/crop-water-service/internal/domain"
	"github.com/couchcryptid/crop-water-service/internal/forest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func smallParams() domain.Hyperparameters {
	return domain.Hyperparameters{Trees: 3, MaxDepth: 3, MinSamplesSplit: 2, MinSamplesLeaf: 1, Workers: 2, Seed: 7}
}

// linearData returns y = 2*x0 + x1 with row i holding x0 = i.
func linearData(n int) (*mat.Dense, []float64) {
	x := mat.NewDense(n, 2, nil)
	y := make([]float64, n)
	for i := range n {
		x.Set(i, 0, float64(i))
		x.Set(i, 1, float64(i%3))
		y[i] = 2*float64(i) + float64(i%3)
	}
	return x, y
}

// --- mocks ---

type fixedRegressor struct {
	pred []float64
}

func (f fixedRegressor) PredictAll(_ *mat.Dense) ([]float64, error) { return f.pred, nil }

// --- split ---

func TestSplit_DisjointAndComplete(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for range 100 {
		n := 2 + r.Intn(60)
		frac := 0.01 + r.Float64()*0.98
		x, y := linearData(n)

		p, err := Split(x, y, frac, r.Int63())
		require.NoError(t, err)

		assert.NotEmpty(t, p.TrainIdx)
		assert.NotEmpty(t, p.TestIdx)

		all := append(slices.Clone(p.TrainIdx), p.TestIdx...)
		slices.Sort(all)
		want := make([]int, n)
		for i := range want {
			want[i] = i
		}
		assert.Equal(t, want, all, "union must equal input with no overlap")
	}
}

func TestSplit_Fraction(t *testing.T) {
	x, y := linearData(100)
	p, err := Split(x, y, 0.2, 42)
	require.NoError(t, err)
	assert.Len(t, p.TestIdx, 20)
	assert.Len(t, p.TrainIdx, 80)

	x, y = linearData(21)
	p, err = Split(x, y, 0.2, 42)
	require.NoError(t, err)
	assert.Len(t, p.TestIdx, 5) // ceil(4.2)
}

func TestSplit_RowsFollowIndices(t *testing.T) {
	x, y := linearData(30)
	p, err := Split(x, y, 0.3, 5)
	require.NoError(t, err)

	for i, row := range p.TestIdx {
		assert.Equal(t, x.RawRowView(row), p.TestX.RawRowView(i))
		assert.Equal(t, y[row], p.TestY[i])
	}
	for i, row := range p.TrainIdx {
		assert.Equal(t, y[row], p.TrainY[i])
	}
}

func TestSplit_DeterministicPerSeed(t *testing.T) {
	x, y := linearData(40)
	a, err := Split(x, y, 0.25, 99)
	require.NoError(t, err)
	b, err := Split(x, y, 0.25, 99)
	require.NoError(t, err)
	assert.Equal(t, a.TestIdx, b.TestIdx)

	c, err := Split(x, y, 0.25, 100)
	require.NoError(t, err)
	assert.NotEqual(t, a.TestIdx, c.TestIdx)
}

func TestSplit_InvalidInput(t *testing.T) {
	x, y := linearData(10)
	_, err := Split(x, y, 0, 1)
	assert.Error(t, err)
	_, err = Split(x, y, 1, 1)
	assert.Error(t, err)
	_, err = Split(x, y[:3], 0.2, 1)
	assert.Error(t, err)

	one, oneY := linearData(1)
	_, err = Split(one, oneY, 0.5, 1)
	assert.Error(t, err)
}

// --- evaluate ---

func TestEvaluate(t *testing.T) {
	x, y := linearData(4) // y = 0, 3, 6, 6

	m, err := Evaluate(fixedRegressor{pred: y}, x, y)
	require.NoError(t, err)
	assert.Equal(t, 1.0, m.R2)
	assert.Equal(t, 0.0, m.MAE)

	m, err = Evaluate(fixedRegressor{pred: []float64{1, 2, 6, 5}}, x, y)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, m.MAE, 1e-12)
	// mean 3.75, SStot = 24.75, SSres = 3
	assert.InDelta(t, 1-3/24.75, m.R2, 1e-12)
}

func TestEvaluate_NegativeR2IsNotClamped(t *testing.T) {
	x, y := linearData(4)
	m, err := Evaluate(fixedRegressor{pred: []float64{20, 20, 20, 20}}, x, y)
	require.NoError(t, err)
	assert.Less(t, m.R2, 0.0)
}

func TestEvaluate_ConstantTarget(t *testing.T) {
	x, _ := linearData(3)
	y := []float64{2, 2, 2}

	m, err := Evaluate(fixedRegressor{pred: []float64{2, 2, 2}}, x, y)
	require.NoError(t, err)
	assert.Equal(t, 1.0, m.R2)

	m, err = Evaluate(fixedRegressor{pred: []float64{2, 2, 3}}, x, y)
	require.NoError(t, err)
	assert.Equal(t, 0.0, m.R2)
}

// --- fit ---

func TestFit_RepeatableWithSeed(t *testing.T) {
	x, y := linearData(40)

	a, err := Fit(x, y, smallParams())
	require.NoError(t, err)
	b, err := Fit(x, y, smallParams())
	require.NoError(t, err)

	pa, err := a.PredictAll(x)
	require.NoError(t, err)
	pb, err := b.PredictAll(x)
	require.NoError(t, err)
	assert.Equal(t, pa, pb)
}

// --- cross validation ---

func TestCrossValidate_Folds(t *testing.T) {
	x, y := linearData(23)

	res, err := CrossValidate(smallParams(), x, y, 5, ScoringR2)
	require.NoError(t, err)
	require.Len(t, res.Scores, 5)
	require.Len(t, res.Folds, 5)

	sizes := make([]int, 0, 5)
	var covered []int
	for _, f := range res.Folds {
		sizes = append(sizes, len(f.ValIdx))
		covered = append(covered, f.ValIdx...)
		for _, v := range f.ValIdx {
			assert.NotContains(t, f.TrainIdx, v)
		}
		assert.Len(t, f.TrainIdx, 23-len(f.ValIdx))
	}
	assert.Equal(t, []int{5, 5, 5, 4, 4}, sizes)
	slices.Sort(covered)
	assert.Len(t, slices.Compact(covered), 23)
}

func TestCrossValidate_NeverTouchesTestPartition(t *testing.T) {
	r := rand.New(rand.NewSource(2024))
	x, y := linearData(30)
	hp := domain.Hyperparameters{Trees: 1, MaxDepth: 2, MinSamplesSplit: 2, MinSamplesLeaf: 1, Workers: 1, Seed: 1}

	for range 100 {
		p, err := Split(x, y, 0.2, r.Int63())
		require.NoError(t, err)

		res, err := CrossValidate(hp, p.TrainX, p.TrainY, 5, ScoringR2)
		require.NoError(t, err)

		test := make(map[int]struct{}, len(p.TestIdx))
		for _, row := range p.TestIdx {
			test[row] = struct{}{}
		}
		for _, f := range res.Folds {
			for _, local := range append(slices.Clone(f.TrainIdx), f.ValIdx...) {
				_, leaked := test[p.TrainIdx[local]]
				require.False(t, leaked, "fold row %d comes from the test partition", p.TrainIdx[local])
			}
		}
	}
}

func TestCrossValidate_MAEScoringIsNegative(t *testing.T) {
	x, y := linearData(20)
	res, err := CrossValidate(smallParams(), x, y, 4, ScoringMAE)
	require.NoError(t, err)
	for _, s := range res.Scores {
		assert.LessOrEqual(t, s, 0.0)
	}
}

func TestCrossValidate_InvalidInput(t *testing.T) {
	x, y := linearData(4)
	_, err := CrossValidate(smallParams(), x, y, 1, ScoringR2)
	assert.Error(t, err)
	_, err = CrossValidate(smallParams(), x, y, 5, ScoringR2)
	assert.Error(t, err)
	_, err = CrossValidate(smallParams(), x, y, 2, "accuracy")
	assert.Error(t, err)
}

// --- feature importance ---

func TestFeatureImportance_SortedDescending(t *testing.T) {
	model := &forest.Forest{
		NFeatures: 3,
		Trees: []*forest.Tree{
			{Importances: []float64{1, 6, 3}},
		},
	}

	got, err := FeatureImportance(model, []string{"A", "B", "C"})
	require.NoError(t, err)
	require.Len(t, got, 3)

	want := []domain.FeatureImportance{
		{Feature: "B", Importance: 0.6},
		{Feature: "C", Importance: 0.3},
		{Feature: "A", Importance: 0.1},
	}
	for i := range want {
		assert.Equal(t, want[i].Feature, got[i].Feature)
		assert.InDelta(t, want[i].Importance, got[i].Importance, 1e-12)
	}

	_, err = FeatureImportance(model, []string{"A"})
	assert.Error(t, err)
}

// --- crop statistics ---

func TestComputeCropStatistics(t *testing.T) {
	records := []domain.Record{
		{Crop: "WHEAT", WaterRequirement: 10},
		{Crop: "WHEAT", WaterRequirement: 20},
		{Crop: "WHEAT", WaterRequirement: 30},
		{Crop: "RICE", WaterRequirement: 5},
	}

	stats := ComputeCropStatistics(records)
	require.Len(t, stats, 2)

	assert.Equal(t, domain.CropStats{Mean: 20, Min: 10, Max: 30, Std: 10}, stats["WHEAT"])
	assert.Equal(t, domain.CropStats{Mean: 5, Min: 5, Max: 5, Std: 0}, stats["RICE"])
}

func TestComputeCropStatistics_Rounds(t *testing.T) {
	stats := ComputeCropStatistics([]domain.Record{
		{Crop: "MAIZE", WaterRequirement: 1.111},
		{Crop: "MAIZE", WaterRequirement: 2.226},
	})
	assert.Equal(t, 1.67, stats["MAIZE"].Mean)
	assert.Equal(t, 1.11, stats["MAIZE"].Min)
	assert.Equal(t, 2.23, stats["MAIZE"].Max)
	assert.Equal(t, 0.79, stats["MAIZE"].Std)
}
