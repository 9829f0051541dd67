package gam

import (
	"fmt"
	"math"

	"github.com/Noofbiz/finGam/datasets"
)

// designRow builds one prediction row of the design matrix from per-term
// predictor values, applying the training-time centering.
func (m *Model) designRow(vals []float64) []float64 {
	row := make([]float64, m.p)
	row[0] = 1
	for ti, t := range m.terms {
		b := t.basis.eval(vals[ti])
		for j := 0; j < t.width; j++ {
			row[t.offset+j] = b[j] - t.colMeans[j]
		}
	}
	return row
}

// evalRow returns the point estimate and standard error for one design row.
// The standard error comes from the posterior covariance of the coefficients:
// se² = xᵀ Vp x.
func (m *Model) evalRow(row []float64) (fit, se float64) {
	for j, v := range row {
		fit += v * m.beta.AtVec(j)
	}
	var q float64
	for i, vi := range row {
		for j, vj := range row {
			q += vi * m.vp.At(i, j) * vj
		}
	}
	if q < 0 {
		q = 0
	}
	return fit, math.Sqrt(q)
}

// Predict applies the fitted model to the given rows of tbl, returning point
// estimates and per-point standard errors. Predictor values outside the
// training range are clamped to the boundary of the spline basis.
func (m *Model) Predict(tbl *datasets.Table, rows []int) (fit, se []float64, err error) {
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("%w: empty prediction subset", ErrFit)
	}
	cols := make([][]float64, len(m.terms))
	for ti, t := range m.terms {
		xs, err := tbl.Subset(t.name, rows)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: term %q: %v", ErrFit, t.name, err)
		}
		cols[ti] = xs
	}

	fit = make([]float64, len(rows))
	se = make([]float64, len(rows))
	vals := make([]float64, len(m.terms))
	for i := range rows {
		for ti := range m.terms {
			vals[ti] = cols[ti][i]
		}
		fit[i], se[i] = m.evalRow(m.designRow(vals))
	}
	return fit, se, nil
}

// PredictGrid evaluates the fitted smooth for one predictor over a uniform
// grid of points spanning its training range, holding every other predictor
// at its training mean. It returns the grid, the fitted curve and the
// per-point standard error used for confidence bands.
func (m *Model) PredictGrid(name string, points int) (xs, fit, se []float64, err error) {
	if points < 2 {
		return nil, nil, nil, fmt.Errorf("%w: grid needs at least 2 points, got %d", ErrFit, points)
	}
	var target *termFit
	for _, t := range m.terms {
		if t.name == name {
			target = t
			break
		}
	}
	if target == nil {
		return nil, nil, nil, fmt.Errorf("%w: no smooth term %q in model", ErrFit, name)
	}

	xs = make([]float64, points)
	fit = make([]float64, points)
	se = make([]float64, points)
	step := (target.basis.xmax - target.basis.xmin) / float64(points-1)
	for i := 0; i < points; i++ {
		x := target.basis.xmin + float64(i)*step
		xs[i] = x

		// centered columns are zero at the training mean, so only the grid
		// term and the intercept contribute to this row
		row := make([]float64, m.p)
		row[0] = 1
		b := target.basis.eval(x)
		for j := 0; j < target.width; j++ {
			row[target.offset+j] = b[j] - target.colMeans[j]
		}
		fit[i], se[i] = m.evalRow(row)
	}
	return xs, fit, se, nil
}
