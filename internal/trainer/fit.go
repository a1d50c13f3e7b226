package trainer

import (
	"fmt"
	"math"
	"slices"

	"github.com/couchcryptid/crop-water-service/internal/domain"
	"github.com/couchcryptid/crop-water-service/internal/forest"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Scoring names accepted by CrossValidate.
const (
	ScoringR2  = "r2"
	ScoringMAE = "neg_mean_absolute_error"
)

// DefaultFolds is the cross-validation fold count used by the pipeline.
const DefaultFolds = 5

// Regressor is anything that can predict a batch of feature rows.
type Regressor interface {
	PredictAll(x *mat.Dense) ([]float64, error)
}

// Fit trains the ensemble regressor with explicit hyperparameters.
func Fit(x *mat.Dense, y []float64, hp domain.Hyperparameters) (*forest.Forest, error) {
	return forest.Fit(x, y, forest.Params{
		Trees:           hp.Trees,
		MaxDepth:        hp.MaxDepth,
		MinSamplesSplit: hp.MinSamplesSplit,
		MinSamplesLeaf:  hp.MinSamplesLeaf,
		Workers:         hp.Workers,
		Seed:            hp.Seed,
	})
}

// Evaluate returns the coefficient of determination and mean absolute error of
// model on (x, y). Values are not clamped.
func Evaluate(model Regressor, x *mat.Dense, y []float64) (domain.Metrics, error) {
	pred, err := model.PredictAll(x)
	if err != nil {
		return domain.Metrics{}, fmt.Errorf("evaluate: %w", err)
	}
	if len(pred) != len(y) || len(y) == 0 {
		return domain.Metrics{}, fmt.Errorf("evaluate: %d predictions for %d targets", len(pred), len(y))
	}
	return domain.Metrics{R2: r2Score(y, pred), MAE: meanAbsoluteError(y, pred)}, nil
}

// r2Score is 1 - SSres/SStot. A constant target scores 1 when predicted
// exactly and 0 otherwise.
func r2Score(y, pred []float64) float64 {
	mean := stat.Mean(y, nil)
	var ssTot, ssRes float64
	for i := range y {
		ssTot += (y[i] - mean) * (y[i] - mean)
		ssRes += (y[i] - pred[i]) * (y[i] - pred[i])
	}
	if ssTot == 0 {
		if ssRes == 0 {
			return 1
		}
		return 0
	}
	return stat.RSquaredFrom(pred, y, nil)
}

func meanAbsoluteError(y, pred []float64) float64 {
	sum := 0.0
	for i := range y {
		sum += math.Abs(y[i] - pred[i])
	}
	return sum / float64(len(y))
}

// Fold records which training-partition rows one cross-validation round fit
// on and which it scored.
type Fold struct {
	TrainIdx []int
	ValIdx   []int
}

// CVResult is the outcome of CrossValidate. Std is the population standard
// deviation of Scores.
type CVResult struct {
	Scores []float64
	Mean   float64
	Std    float64
	Folds  []Fold
}

// CrossValidate refits the model folds times on contiguous K-fold splits of
// the training partition it is given. The held-out test partition must never
// be passed in; indices in the result refer to rows of trainX.
func CrossValidate(hp domain.Hyperparameters, trainX *mat.Dense, trainY []float64, folds int, scoring string) (*CVResult, error) {
	n, _ := trainX.Dims()
	if n != len(trainY) {
		return nil, fmt.Errorf("cross validate: %d rows but %d targets", n, len(trainY))
	}
	if folds < 2 || folds > n {
		return nil, fmt.Errorf("cross validate: %d folds for %d rows", folds, n)
	}
	if scoring != ScoringR2 && scoring != ScoringMAE {
		return nil, fmt.Errorf("cross validate: unknown scoring %q", scoring)
	}

	res := &CVResult{Scores: make([]float64, 0, folds)}
	start := 0
	for k := range folds {
		size := n / folds
		if k < n%folds {
			size++
		}
		fold := Fold{ValIdx: make([]int, 0, size), TrainIdx: make([]int, 0, n-size)}
		for i := range n {
			if i >= start && i < start+size {
				fold.ValIdx = append(fold.ValIdx, i)
			} else {
				fold.TrainIdx = append(fold.TrainIdx, i)
			}
		}
		start += size

		fx, fy := selectRows(trainX, trainY, fold.TrainIdx)
		vx, vy := selectRows(trainX, trainY, fold.ValIdx)

		model, err := Fit(fx, fy, hp)
		if err != nil {
			return nil, fmt.Errorf("cross validate fold %d: %w", k, err)
		}
		m, err := Evaluate(model, vx, vy)
		if err != nil {
			return nil, fmt.Errorf("cross validate fold %d: %w", k, err)
		}

		score := m.R2
		if scoring == ScoringMAE {
			score = -m.MAE
		}
		res.Scores = append(res.Scores, score)
		res.Folds = append(res.Folds, fold)
	}

	res.Mean, res.Std = stat.PopMeanStdDev(res.Scores, nil)
	return res, nil
}

// FeatureImportance pairs the model's importance scores with names and sorts
// them descending. Ties keep column order.
func FeatureImportance(model *forest.Forest, names []string) ([]domain.FeatureImportance, error) {
	scores := model.FeatureImportances()
	if len(scores) != len(names) {
		return nil, fmt.Errorf("feature importance: %d scores for %d names", len(scores), len(names))
	}
	out := make([]domain.FeatureImportance, len(names))
	for i, name := range names {
		out[i] = domain.FeatureImportance{Feature: name, Importance: scores[i]}
	}
	slices.SortStableFunc(out, func(a, b domain.FeatureImportance) int {
		switch {
		case a.Importance > b.Importance:
			return -1
		case a.Importance < b.Importance:
			return 1
		default:
			return 0
		}
	})
	return out, nil
}
