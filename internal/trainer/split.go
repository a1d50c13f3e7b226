// Package trainer fits and evaluates the water-requirement regressor and
// summarizes the cleaned dataset for reporting.
package trainer

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// DefaultTestFraction is the held-out share used by the training pipeline.
const DefaultTestFraction = 0.2

// Partition is a train/test split. TrainIdx and TestIdx are row indices into
// the matrix that was split; they are disjoint and together cover every row.
type Partition struct {
	TrainIdx []int
	TestIdx  []int
	TrainX   *mat.Dense
	TrainY   []float64
	TestX    *mat.Dense
	TestY    []float64
}

// Split shuffles row indices with seed and holds out ceil(n*testFraction)
// rows, clamped so both sides keep at least one row.
func Split(x *mat.Dense, y []float64, testFraction float64, seed int64) (*Partition, error) {
	n, _ := x.Dims()
	if n != len(y) {
		return nil, fmt.Errorf("split: %d rows but %d targets", n, len(y))
	}
	if n < 2 {
		return nil, errors.New("split: need at least 2 rows")
	}
	if testFraction <= 0 || testFraction >= 1 {
		return nil, fmt.Errorf("split: test fraction %v outside (0,1)", testFraction)
	}

	nTest := int(math.Ceil(float64(n) * testFraction))
	nTest = min(max(nTest, 1), n-1)

	perm := rand.New(rand.NewSource(seed)).Perm(n)
	p := &Partition{
		TestIdx:  perm[:nTest],
		TrainIdx: perm[nTest:],
	}
	p.TrainX, p.TrainY = selectRows(x, y, p.TrainIdx)
	p.TestX, p.TestY = selectRows(x, y, p.TestIdx)
	return p, nil
}

// selectRows copies the given rows of x and y into new storage.
func selectRows(x *mat.Dense, y []float64, idx []int) (*mat.Dense, []float64) {
	_, cols := x.Dims()
	sx := mat.NewDense(len(idx), cols, nil)
	sy := make([]float64, len(idx))
	for i, row := range idx {
		sx.SetRow(i, x.RawRowView(row))
		sy[i] = y[row]
	}
	return sx, sy
}
