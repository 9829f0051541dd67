package plots

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/Noofbiz/finGam/datasets"
	"github.com/Noofbiz/finGam/gam"
)

// fixture builds a small table and a fitted single-term model for the chart
// constructors to draw.
func fixture(t *testing.T) (*datasets.Table, *gam.Model) {
	t.Helper()
	rng := rand.New(rand.NewSource(5))
	path := filepath.Join(t.TempDir(), "fixture.csv")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create fixture: %v", err)
	}
	fmt.Fprintln(f, "balance,exports")
	for i := 0; i < 80; i++ {
		x := rng.Float64() * 100
		fmt.Fprintf(f, "%.8f,%.8f\n", 0.4*x-12+rng.NormFloat64(), x)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close fixture: %v", err)
	}

	tbl, err := datasets.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	rows := make([]int, tbl.NumRows())
	for i := range rows {
		rows[i] = i
	}
	m, err := gam.Fit(tbl, rows, gam.Spec{
		Response: "balance",
		Terms:    []gam.Term{{Name: "exports", K: 6}},
	})
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	return tbl, m
}

func TestAllChartsRenderAndSave(t *testing.T) {
	tbl, m := fixture(t)
	out := t.TempDir()

	rows := make([]int, tbl.NumRows())
	for i := range rows {
		rows[i] = i
	}
	observed, err := tbl.Subset("balance", rows)
	if err != nil {
		t.Fatalf("Subset failed: %v", err)
	}
	predicted, _, err := m.Predict(tbl, rows)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}

	scatter, err := Scatter(tbl, "exports", "balance")
	if err != nil {
		t.Fatalf("Scatter failed: %v", err)
	}
	curve, err := SmoothCurve(m, tbl, "exports", "balance")
	if err != nil {
		t.Fatalf("SmoothCurve failed: %v", err)
	}
	avp, err := ActualVsPredicted(observed, predicted)
	if err != nil {
		t.Fatalf("ActualVsPredicted failed: %v", err)
	}
	qq, err := ResidualQQ(m.Residuals())
	if err != nil {
		t.Fatalf("ResidualQQ failed: %v", err)
	}
	rvf, err := ResidualsVsFitted(m.Fitted(), m.Residuals())
	if err != nil {
		t.Fatalf("ResidualsVsFitted failed: %v", err)
	}

	charts := []struct {
		name string
		save func() error
	}{
		{"scatter.png", func() error { return Save(scatter, out, "scatter.png") }},
		{"curve.png", func() error { return Save(curve, out, "curve.png") }},
		{"avp.png", func() error { return Save(avp, out, "avp.png") }},
		{"qq.png", func() error { return Save(qq, out, "qq.png") }},
		{"rvf.png", func() error { return Save(rvf, out, "rvf.png") }},
	}
	for _, c := range charts {
		if err := c.save(); err != nil {
			t.Fatalf("save %s failed: %v", c.name, err)
		}
		info, err := os.Stat(filepath.Join(out, c.name))
		if err != nil {
			t.Fatalf("stat %s failed: %v", c.name, err)
		}
		if info.Size() == 0 {
			t.Fatalf("%s is empty", c.name)
		}
	}
}

func TestChartErrors(t *testing.T) {
	tbl, m := fixture(t)

	if _, err := Scatter(tbl, "nope", "balance"); err == nil {
		t.Fatal("expected error for unknown x column")
	}
	if _, err := SmoothCurve(m, tbl, "nope", "balance"); err == nil {
		t.Fatal("expected error for unknown smooth term")
	}
	if _, err := ActualVsPredicted([]float64{1}, []float64{1, 2}); err == nil {
		t.Fatal("expected error for length mismatch")
	}
	if _, err := ResidualQQ(nil); err == nil {
		t.Fatal("expected error for empty residuals")
	}
	if _, err := ResidualsVsFitted(nil, nil); err == nil {
		t.Fatal("expected error for empty inputs")
	}
}
