// Package plots renders the diagnostic charts for the balance analysis. Every
// constructor returns a *plot.Plot; writing it to disk is the caller's
// concern (see Save).
package plots

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/Noofbiz/finGam/datasets"
	"github.com/Noofbiz/finGam/gam"
)

// GridPoints is the resolution of fitted smooth curves.
const GridPoints = 100

// zCrit is the two-sided 95% normal critical value used for confidence bands.
const zCrit = 1.96

var (
	scatterGray = color.RGBA{R: 120, G: 120, B: 120, A: 180}
	curveBlue   = color.RGBA{R: 20, G: 80, B: 200, A: 255}
	bandBlue    = color.RGBA{R: 20, G: 80, B: 200, A: 50}
	refRed      = color.RGBA{R: 200, G: 30, B: 30, A: 220}
)

// Scatter plots one predictor against the response with no fit line, for the
// exploratory pass before any model is fitted.
func Scatter(tbl *datasets.Table, xCol, yCol string) (*plot.Plot, error) {
	xs, err := tbl.Column(xCol)
	if err != nil {
		return nil, err
	}
	ys, err := tbl.Column(yCol)
	if err != nil {
		return nil, err
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s vs %s", yCol, xCol)
	p.X.Label.Text = xCol
	p.Y.Label.Text = yCol
	p.Add(plotter.NewGrid())

	sc, err := plotter.NewScatter(toXYs(xs, ys))
	if err != nil {
		return nil, err
	}
	sc.GlyphStyle.Color = scatterGray
	sc.GlyphStyle.Radius = vg.Points(2)
	p.Add(sc)
	return p, nil
}

// SmoothCurve plots the data scatter for one predictor together with the
// fitted smooth over a uniform grid and a shaded 95% confidence band
// (fit ± 1.96·se).
func SmoothCurve(m *gam.Model, tbl *datasets.Table, xCol, yCol string) (*plot.Plot, error) {
	xs, err := tbl.Column(xCol)
	if err != nil {
		return nil, err
	}
	ys, err := tbl.Column(yCol)
	if err != nil {
		return nil, err
	}
	grid, fit, se, err := m.PredictGrid(xCol, GridPoints)
	if err != nil {
		return nil, err
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("smooth fit of %s on %s", yCol, xCol)
	p.X.Label.Text = xCol
	p.Y.Label.Text = yCol
	p.Add(plotter.NewGrid())

	// band first so the curve and points draw over it
	band := make(plotter.XYs, 0, 2*len(grid))
	for i := range grid {
		band = append(band, plotter.XY{X: grid[i], Y: fit[i] + zCrit*se[i]})
	}
	for i := len(grid) - 1; i >= 0; i-- {
		band = append(band, plotter.XY{X: grid[i], Y: fit[i] - zCrit*se[i]})
	}
	poly, err := plotter.NewPolygon(band)
	if err != nil {
		return nil, err
	}
	poly.Color = bandBlue
	poly.LineStyle.Width = 0
	p.Add(poly)

	sc, err := plotter.NewScatter(toXYs(xs, ys))
	if err != nil {
		return nil, err
	}
	sc.GlyphStyle.Color = scatterGray
	sc.GlyphStyle.Radius = vg.Points(2)
	p.Add(sc)
	p.Legend.Add("data", sc)

	line, err := plotter.NewLine(toXYs(grid, fit))
	if err != nil {
		return nil, err
	}
	line.Color = curveBlue
	line.Width = vg.Points(1.5)
	p.Add(line)
	p.Legend.Add("fit", line)

	return p, nil
}

// ActualVsPredicted plots observed against predicted response values with an
// identity reference line to show calibration.
func ActualVsPredicted(observed, predicted []float64) (*plot.Plot, error) {
	if len(observed) != len(predicted) {
		return nil, fmt.Errorf("length mismatch: %d observed vs %d predicted", len(observed), len(predicted))
	}

	p := plot.New()
	p.Title.Text = "actual vs predicted"
	p.X.Label.Text = "predicted"
	p.Y.Label.Text = "actual"
	p.Add(plotter.NewGrid())

	sc, err := plotter.NewScatter(toXYs(predicted, observed))
	if err != nil {
		return nil, err
	}
	sc.GlyphStyle.Color = scatterGray
	sc.GlyphStyle.Radius = vg.Points(2)
	p.Add(sc)

	lo, hi := rangeOf(append(append([]float64(nil), observed...), predicted...))
	ident, err := plotter.NewLine(plotter.XYs{{X: lo, Y: lo}, {X: hi, Y: hi}})
	if err != nil {
		return nil, err
	}
	ident.Color = refRed
	p.Add(ident)
	p.Legend.Add("identity", ident)

	return p, nil
}

// ResidualQQ plots sorted residual quantiles against the quantiles of a
// normal distribution with the residuals' standard deviation, with an
// identity reference line. Points far off the line flag non-normal errors.
func ResidualQQ(resid []float64) (*plot.Plot, error) {
	if len(resid) == 0 {
		return nil, fmt.Errorf("no residuals to plot")
	}

	sorted := append([]float64(nil), resid...)
	sort.Float64s(sorted)

	var sum, ss float64
	for _, v := range sorted {
		sum += v
	}
	mean := sum / float64(len(sorted))
	for _, v := range sorted {
		d := v - mean
		ss += d * d
	}
	sd := math.Sqrt(ss / float64(len(sorted)))
	if sd == 0 {
		sd = 1
	}

	norm := distuv.Normal{Mu: 0, Sigma: sd}
	theo := make([]float64, len(sorted))
	for i := range sorted {
		theo[i] = norm.Quantile((float64(i) + 0.5) / float64(len(sorted)))
	}

	p := plot.New()
	p.Title.Text = "normal Q-Q plot of residuals"
	p.X.Label.Text = "theoretical quantiles"
	p.Y.Label.Text = "sample quantiles"
	p.Add(plotter.NewGrid())

	sc, err := plotter.NewScatter(toXYs(theo, sorted))
	if err != nil {
		return nil, err
	}
	sc.GlyphStyle.Color = scatterGray
	sc.GlyphStyle.Radius = vg.Points(2)
	p.Add(sc)

	lo, hi := rangeOf(theo)
	ident, err := plotter.NewLine(plotter.XYs{{X: lo, Y: lo}, {X: hi, Y: hi}})
	if err != nil {
		return nil, err
	}
	ident.Color = refRed
	p.Add(ident)

	return p, nil
}

// ResidualsVsFitted plots residuals against fitted values with a horizontal
// zero line, for spotting non-constant variance.
func ResidualsVsFitted(fitted, resid []float64) (*plot.Plot, error) {
	if len(fitted) != len(resid) {
		return nil, fmt.Errorf("length mismatch: %d fitted vs %d residuals", len(fitted), len(resid))
	}
	if len(fitted) == 0 {
		return nil, fmt.Errorf("no residuals to plot")
	}

	p := plot.New()
	p.Title.Text = "residuals vs fitted"
	p.X.Label.Text = "fitted"
	p.Y.Label.Text = "residual"
	p.Add(plotter.NewGrid())

	sc, err := plotter.NewScatter(toXYs(fitted, resid))
	if err != nil {
		return nil, err
	}
	sc.GlyphStyle.Color = scatterGray
	sc.GlyphStyle.Radius = vg.Points(2)
	p.Add(sc)

	lo, hi := rangeOf(fitted)
	zero, err := plotter.NewLine(plotter.XYs{{X: lo, Y: 0}, {X: hi, Y: 0}})
	if err != nil {
		return nil, err
	}
	zero.Color = refRed
	p.Add(zero)

	return p, nil
}

// Save writes a chart as an 8x6 inch PNG under dir, creating the directory if
// needed.
func Save(p *plot.Plot, dir, name string) error {
	if dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return p.Save(8*vg.Inch, 6*vg.Inch, filepath.Join(dir, name))
}

func toXYs(xs, ys []float64) plotter.XYs {
	n := len(xs)
	if len(ys) < n {
		n = len(ys)
	}
	out := make(plotter.XYs, n)
	for i := 0; i < n; i++ {
		out[i] = plotter.XY{X: xs[i], Y: ys[i]}
	}
	return out
}

// rangeOf returns min and max with a 6% pad on each side.
func rangeOf(xs []float64) (lo, hi float64) {
	lo = math.Inf(1)
	hi = math.Inf(-1)
	for _, v := range xs {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if len(xs) == 0 {
		return -1, 1
	}
	pad := (hi - lo) * 0.06
	if pad == 0 {
		pad = 1
	}
	return lo - pad, hi + pad
}
