// Package gam fits additive penalized-regression-spline models: the response
// is modeled as an intercept plus a sum of smooth functions, one per
// predictor, each represented by a cubic B-spline basis with a second-order
// difference penalty on its coefficients. Smoothing strength per term is
// chosen by generalized cross-validation unless the caller pins the basis
// dimension low enough that the penalty hardly matters. The numerical work is
// all delegated to gonum: design matrices, Cholesky solves of the penalized
// normal equations, and the F distribution for term significance.
package gam

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/Noofbiz/finGam/datasets"
)

// ErrFit is wrapped by every fitting failure: an empty training subset, a
// missing column, a basis dimension the data cannot support, or a penalized
// system that is not positive definite.
var ErrFit = errors.New("model fit failed")

// DefaultBasisDim is used for terms whose K is left at zero, mirroring the
// default basis dimension of common GAM implementations.
const DefaultBasisDim = 10

// Term names one smooth predictor and its basis dimension. K == 0 selects
// DefaultBasisDim.
type Term struct {
	Name string
	K    int
}

// Spec is a model specification: a response column plus an ordered set of
// smooth terms.
type Spec struct {
	Response string
	Terms    []Term
}

// termFit is the fitted state of one smooth term. The design block holds k-1
// centered basis columns: centering makes the columns of a B-spline basis sum
// to the zero vector (the uncentered columns sum to one), so the last column
// is dropped to keep the block full rank next to the intercept. The penalty
// is the matching top-left block of the full second-difference penalty, which
// penalizes the padded coefficient vector (β, 0).
type termFit struct {
	name     string
	basis    *bspline
	colMeans []float64 // centering applied to the basis columns
	k        int       // requested basis dimension
	offset   int       // first column of this term's block in the design matrix
	width    int       // k-1 retained columns
	lambda   float64
	edf      float64
}

// Model is a fitted additive model bound to one specification and one
// training subset. It exposes prediction with standard errors and the summary
// statistics printed by the analysis.
type Model struct {
	spec  Spec
	terms []*termFit

	// training state retained for summaries and term tests
	x      *mat.Dense // n×p design matrix, intercept first
	y      []float64
	beta   *mat.VecDense
	vp     *mat.SymDense // posterior covariance of beta, σ²(XᵀX+S)⁻¹
	fitted []float64
	resid  []float64

	n      int
	p      int
	rss    float64
	tss    float64
	sigma2 float64
	edf    float64
}

// gcvGrid is the log-spaced smoothing grid searched per term.
var gcvGrid = []float64{1e-4, 1e-3, 1e-2, 1e-1, 1, 1e1, 1e2, 1e3, 1e4}

// gcvSweeps is the number of coordinate passes over the terms when selecting
// smoothing parameters. Two passes are enough for the grids used here.
const gcvSweeps = 2

// Fit estimates the model of spec on the given rows of tbl.
func Fit(tbl *datasets.Table, rows []int, spec Spec) (*Model, error) {
	if tbl == nil {
		return nil, fmt.Errorf("%w: nil table", ErrFit)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: empty training subset", ErrFit)
	}
	if len(spec.Terms) == 0 {
		return nil, fmt.Errorf("%w: specification has no smooth terms", ErrFit)
	}

	y, err := tbl.Subset(spec.Response, rows)
	if err != nil {
		return nil, fmt.Errorf("%w: response %q: %v", ErrFit, spec.Response, err)
	}
	n := len(y)

	// Build one centered basis block per term.
	terms := make([]*termFit, len(spec.Terms))
	p := 1 // intercept
	blocks := make([][]float64, len(spec.Terms))
	for ti, term := range spec.Terms {
		k := term.K
		if k == 0 {
			k = DefaultBasisDim
		}
		if k < minBasisDim {
			return nil, fmt.Errorf("%w: term %q: basis dimension %d below minimum %d",
				ErrFit, term.Name, k, minBasisDim)
		}
		xs, err := tbl.Subset(term.Name, rows)
		if err != nil {
			return nil, fmt.Errorf("%w: term %q: %v", ErrFit, term.Name, err)
		}
		if distinct := countDistinct(xs); distinct < k {
			return nil, fmt.Errorf("%w: term %q: basis dimension %d exceeds %d distinct values",
				ErrFit, term.Name, k, distinct)
		}

		basis := newBSpline(xs, k)
		block := make([]float64, n*k)
		means := make([]float64, k)
		for i, x := range xs {
			row := basis.eval(x)
			copy(block[i*k:], row)
			for j, v := range row {
				means[j] += v
			}
		}
		for j := range means {
			means[j] /= float64(n)
		}
		// sum-to-zero centering so each smooth is identifiable next to the
		// global intercept
		for i := 0; i < n; i++ {
			for j := 0; j < k; j++ {
				block[i*k+j] -= means[j]
			}
		}

		terms[ti] = &termFit{
			name:     term.Name,
			basis:    basis,
			colMeans: means,
			k:        k,
			offset:   p,
			width:    k - 1,
			lambda:   1,
		}
		blocks[ti] = block
		p += k - 1
	}

	// Assemble the design matrix: intercept column then the term blocks.
	x := mat.NewDense(n, p, nil)
	for i := 0; i < n; i++ {
		x.Set(i, 0, 1)
	}
	for ti, t := range terms {
		for i := 0; i < n; i++ {
			for j := 0; j < t.width; j++ {
				x.Set(i, t.offset+j, blocks[ti][i*t.k+j])
			}
		}
	}

	m := &Model{spec: spec, terms: terms, x: x, y: y, n: n, p: p}

	// Select per-term smoothing by GCV: coordinate sweeps over a log-spaced
	// grid, refitting the penalized system at each candidate.
	for sweep := 0; sweep < gcvSweeps; sweep++ {
		for _, t := range terms {
			best := t.lambda
			bestScore := math.Inf(1)
			for _, cand := range gcvGrid {
				t.lambda = cand
				sol, err := m.solve()
				if err != nil {
					continue
				}
				if sol.gcv < bestScore {
					bestScore = sol.gcv
					best = cand
				}
			}
			if math.IsInf(bestScore, 1) {
				return nil, fmt.Errorf("%w: term %q: penalized system singular at every smoothing level",
					ErrFit, t.name)
			}
			t.lambda = best
		}
	}

	sol, err := m.solve()
	if err != nil {
		return nil, err
	}
	m.adopt(sol)
	return m, nil
}

// solution is one penalized least-squares solve of the current design and
// smoothing parameters.
type solution struct {
	beta   *mat.VecDense
	ainv   *mat.SymDense
	fitted []float64
	resid  []float64
	rss    float64
	trH    float64
	edfs   []float64 // per-term trace contributions
	gcv    float64
}

// solve computes β = (XᵀX + Σ λⱼSⱼ)⁻¹ Xᵀy together with the hat-matrix trace
// used by GCV and the per-term effective degrees of freedom.
func (m *Model) solve() (*solution, error) {
	var xtx mat.Dense
	xtx.Mul(m.x.T(), m.x)

	// A = XᵀX + Σ λⱼ Sⱼ, block-diagonal penalties, intercept unpenalized.
	a := mat.NewSymDense(m.p, nil)
	for i := 0; i < m.p; i++ {
		for j := i; j < m.p; j++ {
			a.SetSym(i, j, xtx.At(i, j))
		}
	}
	for _, t := range m.terms {
		s := secondDiffPenalty(t.k)
		for i := 0; i < t.width; i++ {
			for j := i; j < t.width; j++ {
				gi, gj := t.offset+i, t.offset+j
				a.SetSym(gi, gj, a.At(gi, gj)+t.lambda*s.At(i, j))
			}
		}
	}

	var chol mat.Cholesky
	if !chol.Factorize(a) {
		return nil, fmt.Errorf("%w: penalized normal equations not positive definite", ErrFit)
	}

	yv := mat.NewVecDense(m.n, m.y)
	var xty mat.VecDense
	xty.MulVec(m.x.T(), yv)

	beta := mat.NewVecDense(m.p, nil)
	if err := chol.SolveVecTo(beta, &xty); err != nil {
		return nil, fmt.Errorf("%w: solve failed: %v", ErrFit, err)
	}

	var ainv mat.SymDense
	if err := chol.InverseTo(&ainv); err != nil {
		return nil, fmt.Errorf("%w: covariance inversion failed: %v", ErrFit, err)
	}

	// diag(A⁻¹ XᵀX) gives the hat-matrix trace and per-term edf.
	diag := make([]float64, m.p)
	trH := 0.0
	for i := 0; i < m.p; i++ {
		d := 0.0
		for j := 0; j < m.p; j++ {
			d += ainv.At(i, j) * xtx.At(j, i)
		}
		diag[i] = d
		trH += d
	}
	edfs := make([]float64, len(m.terms))
	for ti, t := range m.terms {
		for j := 0; j < t.width; j++ {
			edfs[ti] += diag[t.offset+j]
		}
	}

	var fv mat.VecDense
	fv.MulVec(m.x, beta)
	fitted := make([]float64, m.n)
	resid := make([]float64, m.n)
	rss := 0.0
	for i := 0; i < m.n; i++ {
		fitted[i] = fv.AtVec(i)
		resid[i] = m.y[i] - fitted[i]
		rss += resid[i] * resid[i]
	}

	den := float64(m.n) - trH
	gcv := math.Inf(1)
	if den > 0 {
		gcv = float64(m.n) * rss / (den * den)
	}

	return &solution{
		beta:   beta,
		ainv:   &ainv,
		fitted: fitted,
		resid:  resid,
		rss:    rss,
		trH:    trH,
		edfs:   edfs,
		gcv:    gcv,
	}, nil
}

// adopt installs a solve result as the fitted model state.
func (m *Model) adopt(sol *solution) {
	m.beta = sol.beta
	m.fitted = sol.fitted
	m.resid = sol.resid
	m.rss = sol.rss
	m.edf = sol.trH
	for ti, t := range m.terms {
		t.edf = sol.edfs[ti]
	}

	ybar := 0.0
	for _, v := range m.y {
		ybar += v
	}
	ybar /= float64(m.n)
	m.tss = 0
	for _, v := range m.y {
		d := v - ybar
		m.tss += d * d
	}

	residDF := float64(m.n) - m.edf
	if residDF < 1 {
		residDF = 1
	}
	m.sigma2 = m.rss / residDF

	vp := mat.NewSymDense(m.p, nil)
	for i := 0; i < m.p; i++ {
		for j := i; j < m.p; j++ {
			vp.SetSym(i, j, m.sigma2*sol.ainv.At(i, j))
		}
	}
	m.vp = vp
}

// Spec returns the specification the model was fitted to.
func (m *Model) Spec() Spec { return m.spec }

// NumObs returns the number of training observations.
func (m *Model) NumObs() int { return m.n }

// Fitted returns the in-sample fitted values.
func (m *Model) Fitted() []float64 {
	out := make([]float64, len(m.fitted))
	copy(out, m.fitted)
	return out
}

// Residuals returns the in-sample residuals.
func (m *Model) Residuals() []float64 {
	out := make([]float64, len(m.resid))
	copy(out, m.resid)
	return out
}
