package datasets

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// writeCSV writes a CSV file with the given header and rows to path.
func writeCSV(t *testing.T, path, header string, rows []string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create csv %s: %v", path, err)
	}
	defer f.Close()

	if _, err := f.WriteString(header + "\n"); err != nil {
		t.Fatalf("failed to write header: %v", err)
	}
	for _, r := range rows {
		if _, err := f.WriteString(r + "\n"); err != nil {
			t.Fatalf("failed to write row: %v", err)
		}
	}
}

func TestLoadAndAccess(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "balance.csv")
	writeCSV(t, path, "balance,exports,imports", []string{
		"1.5,10,20",
		"-2.25,11,21",
		"3,12,22",
	})

	tbl, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := tbl.NumRows(); got != 3 {
		t.Fatalf("expected 3 rows, got %d", got)
	}
	cols := tbl.Columns()
	if len(cols) != 3 || cols[0] != "balance" || cols[2] != "imports" {
		t.Fatalf("unexpected columns: %v", cols)
	}

	bal, err := tbl.Column("balance")
	if err != nil {
		t.Fatalf("Column(balance) error: %v", err)
	}
	if bal[0] != 1.5 || bal[1] != -2.25 || bal[2] != 3 {
		t.Fatalf("unexpected balance values: %v", bal)
	}

	sub, err := tbl.Subset("exports", []int{2, 0})
	if err != nil {
		t.Fatalf("Subset error: %v", err)
	}
	if sub[0] != 12 || sub[1] != 10 {
		t.Fatalf("unexpected subset values: %v", sub)
	}

	if !tbl.HasColumn("imports") || tbl.HasColumn("nope") {
		t.Fatalf("HasColumn gave wrong answers")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.csv"))
	if !errors.Is(err, ErrDataLoad) {
		t.Fatalf("expected ErrDataLoad for missing file, got %v", err)
	}
}

func TestLoadEmptyFile(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "empty.csv")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); !errors.Is(err, ErrDataLoad) {
		t.Fatalf("expected ErrDataLoad for empty file, got %v", err)
	}
}

func TestLoadHeaderOnly(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "header.csv")
	writeCSV(t, path, "a,b", nil)
	if _, err := Load(path); !errors.Is(err, ErrDataLoad) {
		t.Fatalf("expected ErrDataLoad for header-only file, got %v", err)
	}
}

func TestLoadNonNumericCell(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "bad.csv")
	writeCSV(t, path, "a,b", []string{"1,2", "3,oops"})
	_, err := Load(path)
	if !errors.Is(err, ErrDataLoad) {
		t.Fatalf("expected ErrDataLoad for non-numeric cell, got %v", err)
	}
}

func TestLoadRaggedRow(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "ragged.csv")
	// encoding/csv enforces field counts; the loader should wrap that error
	writeCSV(t, path, "a,b,c", []string{"1,2,3", "4,5"})
	if _, err := Load(path); !errors.Is(err, ErrDataLoad) {
		t.Fatalf("expected ErrDataLoad for ragged row, got %v", err)
	}
}

func TestSubsetOutOfRange(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "ok.csv")
	writeCSV(t, path, "a", []string{"1", "2"})
	tbl, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, err := tbl.Subset("a", []int{0, 5}); !errors.Is(err, ErrDataLoad) {
		t.Fatalf("expected ErrDataLoad for out-of-range index, got %v", err)
	}
	if _, err := tbl.Column("zzz"); !errors.Is(err, ErrDataLoad) {
		t.Fatalf("expected ErrDataLoad for unknown column, got %v", err)
	}
}

func TestDescribe(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "d.csv")
	writeCSV(t, path, "a", []string{"1", "2", "3"})
	tbl, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	out := tbl.Describe()
	if out == "" {
		t.Fatal("Describe returned empty string")
	}
}
