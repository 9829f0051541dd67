// Package eval scores fitted models on held-out rows.
package eval

import (
	"errors"
	"fmt"
	"math"

	"github.com/Noofbiz/finGam/datasets"
	"github.com/Noofbiz/finGam/gam"
)

// ErrEvaluation is wrapped by every scoring failure: an empty subset, a
// length mismatch, or a missing column.
var ErrEvaluation = errors.New("evaluation failed")

// RMSE returns the root-mean-squared error between observed and predicted
// values. It is zero exactly when the two slices match elementwise.
func RMSE(observed, predicted []float64) (float64, error) {
	if len(observed) == 0 {
		return 0, fmt.Errorf("%w: no observations", ErrEvaluation)
	}
	if len(observed) != len(predicted) {
		return 0, fmt.Errorf("%w: %d observed vs %d predicted values",
			ErrEvaluation, len(observed), len(predicted))
	}
	var ss float64
	for i := range observed {
		d := observed[i] - predicted[i]
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(observed))), nil
}

// Holdout applies a fitted model to the given rows and returns the RMSE
// against the observed response. The rows are expected to be disjoint from
// the model's training subset; nothing here enforces that.
func Holdout(m *gam.Model, tbl *datasets.Table, rows []int) (float64, error) {
	if len(rows) == 0 {
		return 0, fmt.Errorf("%w: empty evaluation subset", ErrEvaluation)
	}
	observed, err := tbl.Subset(m.Spec().Response, rows)
	if err != nil {
		return 0, fmt.Errorf("%w: response %q: %v", ErrEvaluation, m.Spec().Response, err)
	}
	predicted, _, err := m.Predict(tbl, rows)
	if err != nil {
		return 0, fmt.Errorf("%w: predict: %v", ErrEvaluation, err)
	}
	return RMSE(observed, predicted)
}
