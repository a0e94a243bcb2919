package statement

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadTable(t *testing.T) {
	doc := "Date,Description,Amount\n" +
		"01/01/2024,\"COFFEE, LARGE\",120.00\n" +
		"02/01/2024,BUS,40.00\n"

	tbl, err := ReadTable(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}

	wantCols := []string{"Date", "Description", "Amount"}
	if !headerEquals(tbl.Columns, wantCols) {
		t.Errorf("Columns = %v, want %v", tbl.Columns, wantCols)
	}
	if tbl.RowCount() != 2 {
		t.Fatalf("RowCount = %d, want 2", tbl.RowCount())
	}
	if got := tbl.Rows[0]["Description"]; got != "COFFEE, LARGE" {
		t.Errorf("quoted field = %q", got)
	}
}

// Short rows are padded and long rows truncated so the Table invariant
// holds; strict shape enforcement belongs to Validate.
func TestReadTableRaggedRows(t *testing.T) {
	doc := "Date,Description,Amount\n" +
		"01/01/2024,SHORT\n" +
		"02/01/2024,LONG,10.00,extra\n"

	tbl, err := ReadTable(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if got := tbl.Rows[0]["Amount"]; got != "" {
		t.Errorf("padded cell = %q, want empty", got)
	}
	if got := tbl.Rows[1]["Amount"]; got != "10.00" {
		t.Errorf("truncated row Amount = %q", got)
	}
	for _, row := range tbl.Rows {
		if len(row) != len(tbl.Columns) {
			t.Errorf("row has %d cells, header has %d", len(row), len(tbl.Columns))
		}
	}
}

func TestReadTableEmpty(t *testing.T) {
	if _, err := ReadTable(strings.NewReader("")); err == nil {
		t.Error("expected error for empty document")
	}
}

func TestLoadTable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "statement.csv")
	doc := "Date,Description,Amount,Transaction_Type\n01/01/2024,X,10.00,Debit\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	tbl, err := LoadTable(path)
	if err != nil {
		t.Fatalf("LoadTable: %v", err)
	}
	if tbl.RowCount() != 1 {
		t.Errorf("RowCount = %d", tbl.RowCount())
	}

	if _, err := LoadTable(filepath.Join(dir, "missing.csv")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestAnalyzeFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "card.csv")
	doc := "Date,Description,Amount,Transaction_Type\n" +
		"02/02/2024,AMAZON,1234.56,Debit\n" +
		"03/02/2024,REFUND,100.00,Credit\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	a, err := AnalyzeFile(path)
	if err != nil {
		t.Fatalf("AnalyzeFile: %v", err)
	}
	if a.Schema.Kind != KindCreditCard {
		t.Errorf("Kind = %s", a.Schema.Kind)
	}
	if a.Summary.TotalTransactions != 2 {
		t.Errorf("TotalTransactions = %d", a.Summary.TotalTransactions)
	}

	if _, err := AnalyzeFile(filepath.Join(dir, "absent.csv")); err == nil {
		t.Error("expected file-level error for missing file")
	}
}
