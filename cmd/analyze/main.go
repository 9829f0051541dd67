// Command analyze runs the financial account balance analysis end to end:
// load the balance-of-payments CSV, hold out validation and test rows, fit
// three additive spline models of decreasing size, tune the minimal model's
// basis dimensions on the validation rows, report test RMSE, and write the
// diagnostic charts.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/Noofbiz/finGam/datasets"
	"github.com/Noofbiz/finGam/eval"
	"github.com/Noofbiz/finGam/gam"
	"github.com/Noofbiz/finGam/plots"
	"github.com/Noofbiz/finGam/split"
)

// Column names expected in the input CSV.
const (
	colBalance       = "balance"
	colExports       = "exports"
	colImports       = "imports"
	colPortfolioLiab = "portfolio_liabilities"
	colPeriod        = "period"
	colDirectLiab    = "direct_investment_liabilities"
	colReserves      = "reserve_assets"
	colDirectAssets  = "direct_investment_assets"
)

// defaultConfigJSON is written to disk as config.json when the user did not
// provide a --config path, so the default run configuration is visible and
// editable. CLI flags always take precedence over JSON values.
const defaultConfigJSON = `{
  "csv": "data/balance.csv",
  "out": "plots",
  "seed": 42,
  "split_ratios": [0.6, 0.2, 0.2],
  "basis_dims": {},
  "tuning_dims": [5, 8, 12]
}
`

// config is the file-backed run configuration.
type config struct {
	CSV         string         `json:"csv"`
	Out         string         `json:"out"`
	Seed        int64          `json:"seed"`
	SplitRatios [3]float64     `json:"split_ratios"`
	BasisDims   map[string]int `json:"basis_dims"`
	TuningDims  []int          `json:"tuning_dims"`
}

func defaultConfig() config {
	return config{
		CSV:         "data/balance.csv",
		Out:         "plots",
		Seed:        42,
		SplitRatios: [3]float64(split.DefaultRatios),
		BasisDims:   map[string]int{},
		TuningDims:  []int{5, 8, 12},
	}
}

// loadConfig reads path if it exists and overlays it on the defaults.
func loadConfig(path string) (config, error) {
	cfg := defaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, err
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.BasisDims == nil {
		cfg.BasisDims = map[string]int{}
	}
	if len(cfg.TuningDims) == 0 {
		cfg.TuningDims = []int{5, 8, 12}
	}
	return cfg, nil
}

func parseRatios(s string) ([3]float64, error) {
	parts := strings.Split(s, ",")
	var out [3]float64
	if len(parts) != 3 {
		return out, fmt.Errorf("expected three comma-separated ratios, got %q", s)
	}
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return out, fmt.Errorf("ratio %q: %w", p, err)
		}
		out[i] = v
	}
	return out, nil
}

func main() {
	csvFlag := flag.String("csv", "", "path to the balance-of-payments CSV (overrides config)")
	outFlag := flag.String("out", "", "output directory for charts (overrides config)")
	seedFlag := flag.Int64("seed", 0, "partition seed (overrides config)")
	ratiosFlag := flag.String("ratios", "", "train,validation,test ratios, e.g. '0.6,0.2,0.2' (overrides config)")
	configFlag := flag.String("config", "", "path to JSON run configuration (default config.json)")
	flag.Parse()

	// An explicit --config must load; otherwise config.json is materialized
	// from embedded defaults and loaded if present.
	configPath := *configFlag
	explicit := configPath != ""
	if !explicit {
		configPath = "config.json"
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			if werr := os.WriteFile(configPath, []byte(defaultConfigJSON), 0644); werr != nil {
				log.Printf("warning: failed to write default config to %s: %v", configPath, werr)
			} else {
				log.Printf("Wrote default config to %s", configPath)
			}
		}
	}
	cfg, err := loadConfig(configPath)
	if err != nil && (explicit || !os.IsNotExist(err)) {
		log.Fatalf("failed to load config %s: %v", configPath, err)
	}

	// CLI flags that were set override the JSON values.
	if *csvFlag != "" {
		cfg.CSV = *csvFlag
	}
	if *outFlag != "" {
		cfg.Out = *outFlag
	}
	seedSet := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			seedSet = true
		}
	})
	if seedSet {
		cfg.Seed = *seedFlag
	}
	if *ratiosFlag != "" {
		r, err := parseRatios(*ratiosFlag)
		if err != nil {
			log.Fatalf("invalid -ratios: %v", err)
		}
		cfg.SplitRatios = r
	}

	if err := run(cfg); err != nil {
		log.Fatalf("analysis failed: %v", err)
	}
}

func run(cfg config) error {
	log.Printf("Loading %s", cfg.CSV)
	tbl, err := datasets.Load(cfg.CSV)
	if err != nil {
		return err
	}
	log.Printf("Loaded %d periods, %d columns", tbl.NumRows(), len(tbl.Columns()))
	fmt.Print(tbl.Describe())

	sp, err := split.New(tbl.NumRows(), split.Ratios(cfg.SplitRatios), cfg.Seed)
	if err != nil {
		return err
	}
	log.Printf("Partition (seed=%d): train=%d validation=%d test=%d",
		cfg.Seed, len(sp.Train), len(sp.Validation), len(sp.Test))

	term := func(name string) gam.Term {
		return gam.Term{Name: name, K: cfg.BasisDims[name]}
	}

	specs := []struct {
		label string
		spec  gam.Spec
	}{
		{"full", gam.Spec{Response: colBalance, Terms: []gam.Term{
			term(colExports), term(colImports), term(colPortfolioLiab), term(colPeriod),
			term(colDirectLiab), term(colReserves), term(colDirectAssets),
		}}},
		{"reduced", gam.Spec{Response: colBalance, Terms: []gam.Term{
			term(colExports), term(colImports), term(colPortfolioLiab), term(colDirectLiab),
		}}},
		{"minimal", gam.Spec{Response: colBalance, Terms: []gam.Term{
			term(colExports), term(colImports),
		}}},
	}

	for _, s := range specs {
		m, err := gam.Fit(tbl, sp.Train, s.spec)
		if err != nil {
			return fmt.Errorf("fit %s model: %w", s.label, err)
		}
		sum, err := m.Summary()
		if err != nil {
			return fmt.Errorf("summarize %s model: %w", s.label, err)
		}
		fmt.Printf("\n=== %s model ===\n%s", s.label, sum)

		valRMSE, err := eval.Holdout(m, tbl, sp.Validation)
		if err != nil {
			return fmt.Errorf("validate %s model: %w", s.label, err)
		}
		fmt.Printf("validation RMSE: %.4f\n", valRMSE)
	}

	// Tune the minimal model's basis dimensions on the validation rows, then
	// refit on training data and score once on the untouched test rows.
	log.Printf("Tuning minimal model basis dimension over %v", cfg.TuningDims)
	bestK := 0
	bestRMSE := 0.0
	for _, k := range cfg.TuningDims {
		spec := gam.Spec{Response: colBalance, Terms: []gam.Term{
			{Name: colExports, K: k},
			{Name: colImports, K: k},
		}}
		m, err := gam.Fit(tbl, sp.Train, spec)
		if err != nil {
			log.Printf("k=%d: fit failed, skipping: %v", k, err)
			continue
		}
		rmse, err := eval.Holdout(m, tbl, sp.Validation)
		if err != nil {
			return fmt.Errorf("validate k=%d: %w", k, err)
		}
		fmt.Printf("k=%-3d validation RMSE: %.4f\n", k, rmse)
		if bestK == 0 || rmse < bestRMSE {
			bestK, bestRMSE = k, rmse
		}
	}
	if bestK == 0 {
		return fmt.Errorf("no candidate basis dimension produced a fit")
	}
	log.Printf("Selected k=%d (validation RMSE %.4f)", bestK, bestRMSE)

	finalSpec := gam.Spec{Response: colBalance, Terms: []gam.Term{
		{Name: colExports, K: bestK},
		{Name: colImports, K: bestK},
	}}
	final, err := gam.Fit(tbl, sp.Train, finalSpec)
	if err != nil {
		return fmt.Errorf("fit final model: %w", err)
	}
	testRMSE, err := eval.Holdout(final, tbl, sp.Test)
	if err != nil {
		return fmt.Errorf("score final model: %w", err)
	}
	fmt.Printf("\ntest RMSE (final minimal model, k=%d): %.4f\n", bestK, testRMSE)

	return writeCharts(cfg.Out, tbl, final)
}

// writeCharts renders the five diagnostic chart kinds into dir.
func writeCharts(dir string, tbl *datasets.Table, m *gam.Model) error {
	log.Printf("Writing charts to %s", dir)

	scatter, err := plots.Scatter(tbl, colExports, colBalance)
	if err != nil {
		return err
	}
	if err := plots.Save(scatter, dir, "scatter_exports.png"); err != nil {
		return err
	}

	for _, t := range m.Spec().Terms {
		curve, err := plots.SmoothCurve(m, tbl, t.Name, colBalance)
		if err != nil {
			return err
		}
		if err := plots.Save(curve, dir, "smooth_"+t.Name+".png"); err != nil {
			return err
		}
	}

	all := make([]int, tbl.NumRows())
	for i := range all {
		all[i] = i
	}
	observed, err := tbl.Subset(colBalance, all)
	if err != nil {
		return err
	}
	predicted, _, err := m.Predict(tbl, all)
	if err != nil {
		return err
	}
	avp, err := plots.ActualVsPredicted(observed, predicted)
	if err != nil {
		return err
	}
	if err := plots.Save(avp, dir, "actual_vs_predicted.png"); err != nil {
		return err
	}

	resid := m.Residuals()
	qq, err := plots.ResidualQQ(resid)
	if err != nil {
		return err
	}
	if err := plots.Save(qq, dir, "residual_qq.png"); err != nil {
		return err
	}

	rvf, err := plots.ResidualsVsFitted(m.Fitted(), resid)
	if err != nil {
		return err
	}
	return plots.Save(rvf, dir, "residuals_vs_fitted.png")
}
