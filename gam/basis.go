package gam

import (
	"gonum.org/v1/gonum/mat"
)

// bspline is a cubic B-spline basis of dimension k with uniformly spaced
// knots spanning [xmin, xmax]. Evaluation uses the Cox-de Boor triangular
// scheme over the four basis functions that are nonzero at any x.
type bspline struct {
	k     int
	knots []float64 // length k+4
	xmin  float64
	xmax  float64
	span  float64 // interior knot spacing
}

// minBasisDim is the smallest usable cubic basis: degree+1 functions.
const minBasisDim = 4

func newBSpline(xs []float64, k int) *bspline {
	xmin, xmax := xs[0], xs[0]
	for _, v := range xs {
		if v < xmin {
			xmin = v
		}
		if v > xmax {
			xmax = v
		}
	}
	h := (xmax - xmin) / float64(k-3)
	knots := make([]float64, k+4)
	for i := range knots {
		knots[i] = xmin + float64(i-3)*h
	}
	return &bspline{k: k, knots: knots, xmin: xmin, xmax: xmax, span: h}
}

// eval returns all k basis function values at x. Values outside the training
// range are clamped to the nearest boundary.
func (b *bspline) eval(x float64) []float64 {
	if x < b.xmin {
		x = b.xmin
	}
	if x > b.xmax {
		x = b.xmax
	}

	// knot span containing x; the last span is closed on the right so the
	// boundary point xmax evaluates exactly.
	s := 3 + int((x-b.xmin)/b.span)
	if s > b.k-1 {
		s = b.k - 1
	}

	var n, left, right [4]float64
	n[0] = 1
	for j := 1; j <= 3; j++ {
		left[j] = x - b.knots[s+1-j]
		right[j] = b.knots[s+j] - x
		saved := 0.0
		for r := 0; r < j; r++ {
			tmp := n[r] / (right[r+1] + left[j-r])
			n[r] = saved + right[r+1]*tmp
			saved = left[j-r] * tmp
		}
		n[j] = saved
	}

	out := make([]float64, b.k)
	for r := 0; r < 4; r++ {
		out[s-3+r] = n[r]
	}
	return out
}

// secondDiffPenalty builds the P-spline roughness penalty DᵀD, where D takes
// second-order differences of adjacent basis coefficients.
func secondDiffPenalty(k int) *mat.Dense {
	d := mat.NewDense(k-2, k, nil)
	for i := 0; i < k-2; i++ {
		d.Set(i, i, 1)
		d.Set(i, i+1, -2)
		d.Set(i, i+2, 1)
	}
	var s mat.Dense
	s.Mul(d.T(), d)
	return &s
}

func countDistinct(xs []float64) int {
	seen := make(map[float64]struct{}, len(xs))
	for _, v := range xs {
		seen[v] = struct{}{}
	}
	return len(seen)
}
