package pipeline_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/finparse/statement-pipeline/internal/ocr"
	"github.com/finparse/statement-pipeline/internal/pipeline"
	"github.com/finparse/statement-pipeline/internal/raster"
	"github.com/finparse/statement-pipeline/internal/runstore"
	"github.com/finparse/statement-pipeline/internal/storage"
)

type mockRasterizer struct {
	RasterizeFunc func(pdf []byte) ([]raster.Page, error)
}

func (m *mockRasterizer) Rasterize(pdf []byte) ([]raster.Page, error) {
	return m.RasterizeFunc(pdf)
}

func (m *mockRasterizer) PageCount(pdf []byte) (int, error) {
	pages, err := m.RasterizeFunc(pdf)
	return len(pages), err
}

type mockTableExtractor struct {
	ExtractTablesFunc func(ctx context.Context, image []byte) (ocr.Result, error)
}

func (m *mockTableExtractor) ExtractTables(ctx context.Context, image []byte) (ocr.Result, error) {
	return m.ExtractTablesFunc(ctx, image)
}

type mockTranscriber struct {
	TranscribeFunc func(ctx context.Context, tableText string) (string, error)
}

func (m *mockTranscriber) Transcribe(ctx context.Context, tableText string) (string, error) {
	return m.TranscribeFunc(ctx, tableText)
}

var tableMarkdown = strings.Repeat("01/07/2025 & UPI-SWIGGY & 500.00\\\\\n", 3)

func testDeps(t *testing.T, transcriber pipeline.Transcriber) (*pipeline.Deps, *storage.Local, *runstore.Memory) {
	t.Helper()

	store, err := storage.NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	if err := store.Save(context.Background(), "uploads/stmt.pdf", []byte("%PDF-1.4 test")); err != nil {
		t.Fatalf("seeding upload: %v", err)
	}

	runs := runstore.NewMemory()
	deps := &pipeline.Deps{
		Store: store,
		Runs:  runs,
		Rasterizer: &mockRasterizer{
			RasterizeFunc: func(pdf []byte) ([]raster.Page, error) {
				return []raster.Page{
					{Number: 1, PNG: []byte("png-1"), Width: 100, Height: 100},
					{Number: 2, PNG: []byte("png-2"), Width: 100, Height: 100},
				}, nil
			},
		},
		Tables: &mockTableExtractor{
			ExtractTablesFunc: func(ctx context.Context, image []byte) (ocr.Result, error) {
				return ocr.Result{
					Tables: []string{tableMarkdown},
					Raw:    []byte(`{"choices": []}`),
				}, nil
			},
		},
		Transcriber: transcriber,
		Log:         zerolog.Nop(),
	}
	return deps, store, runs
}

func TestProcessStatementSuccess(t *testing.T) {
	ctx := context.Background()

	modelCSV := strings.Join([]string{
		"Date,Description,Amount,Transaction_Type",
		"01/07/2025,REFUND,100,Credit",
		"02/07/2025,SWIGGY,1234.56,Debit",
	}, "\n")

	deps, store, runs := testDeps(t, &mockTranscriber{
		TranscribeFunc: func(ctx context.Context, tableText string) (string, error) {
			if !strings.Contains(tableText, "UPI-SWIGGY") {
				t.Error("table text not threaded through to transcriber")
			}
			return modelCSV, nil
		},
	})

	st, err := pipeline.ProcessStatement(ctx, deps, "uploads/stmt.pdf", "stmt.pdf")
	if err != nil {
		t.Fatalf("ProcessStatement: %v", err)
	}

	if st.Stage != pipeline.StageComplete {
		t.Errorf("Stage = %s, want %s", st.Stage, pipeline.StageComplete)
	}
	if st.Analysis == nil || st.Analysis.Summary.TotalTransactions != 2 {
		t.Fatalf("Analysis = %+v", st.Analysis)
	}
	if got := st.Analysis.Summary.NetAmount.String(); got != "-1134.56" {
		t.Errorf("NetAmount = %s, want -1134.56", got)
	}

	// Artifacts.
	for _, key := range []string{
		"images/stmt/page_001.png",
		"images/stmt/page_002.png",
		"results/stmt/page_001.json",
		"results/stmt.txt",
		"csv_output/stmt_transactions.csv",
		"csv_output/stmt_normalized.csv",
		"results/stmt_summary.json",
	} {
		if _, err := store.Load(ctx, key); err != nil {
			t.Errorf("artifact %s missing: %v", key, err)
		}
	}

	// Run records.
	doc, ok := runs.Document(st.DocumentID)
	if !ok {
		t.Fatal("document row missing")
	}
	if doc.Status != runstore.StatusComplete {
		t.Errorf("document status = %s, want %s", doc.Status, runstore.StatusComplete)
	}
	run, ok := runs.Run(st.RunID)
	if !ok {
		t.Fatal("run row missing")
	}
	if run.Status != runstore.RunSuccess {
		t.Errorf("run status = %s, want %s", run.Status, runstore.RunSuccess)
	}
	if run.PageCount.Int64 != 2 || run.TransactionCount.Int64 != 2 {
		t.Errorf("run figures = pages %d, transactions %d", run.PageCount.Int64, run.TransactionCount.Int64)
	}
	if run.NetAmount != "-1134.56" {
		t.Errorf("run net amount = %s", run.NetAmount)
	}
}

func TestProcessStatementTranscriptionFailure(t *testing.T) {
	ctx := context.Background()

	deps, store, runs := testDeps(t, &mockTranscriber{
		TranscribeFunc: func(ctx context.Context, tableText string) (string, error) {
			return "", errors.New("model unavailable")
		},
	})

	st, err := pipeline.ProcessStatement(ctx, deps, "uploads/stmt.pdf", "stmt.pdf")
	if err == nil {
		t.Fatal("ProcessStatement did not return an error")
	}
	if st.Stage != pipeline.StageFailed {
		t.Errorf("Stage = %s, want %s", st.Stage, pipeline.StageFailed)
	}

	// The table text is kept for manual review.
	saved, loadErr := store.Load(ctx, "failed_processing/stmt.txt")
	if loadErr != nil {
		t.Fatalf("failed_processing artifact missing: %v", loadErr)
	}
	if !strings.Contains(string(saved), "UPI-SWIGGY") {
		t.Error("saved review text does not contain the table text")
	}

	doc, _ := runs.Document(st.DocumentID)
	if doc.Status != runstore.StatusFailed {
		t.Errorf("document status = %s, want %s", doc.Status, runstore.StatusFailed)
	}
	run, _ := runs.Run(st.RunID)
	if run.Status != runstore.RunFailed {
		t.Errorf("run status = %s, want %s", run.Status, runstore.RunFailed)
	}
	if !strings.Contains(run.ErrorMessage, "model unavailable") {
		t.Errorf("run error = %q", run.ErrorMessage)
	}
}

func TestProcessStatementUnparseableModelOutput(t *testing.T) {
	ctx := context.Background()

	deps, store, _ := testDeps(t, &mockTranscriber{
		TranscribeFunc: func(ctx context.Context, tableText string) (string, error) {
			return "Date,Amount\n\"unterminated,500", nil
		},
	})

	_, err := pipeline.ProcessStatement(ctx, deps, "uploads/stmt.pdf", "stmt.pdf")
	if err == nil {
		t.Fatal("ProcessStatement accepted unparseable CSV")
	}
	if !strings.Contains(err.Error(), "not parseable CSV") {
		t.Errorf("err = %v", err)
	}
	if _, loadErr := store.Load(ctx, "failed_processing/stmt.txt"); loadErr != nil {
		t.Errorf("failed_processing artifact missing: %v", loadErr)
	}
}

func TestProcessStatementNoPages(t *testing.T) {
	deps, _, _ := testDeps(t, &mockTranscriber{
		TranscribeFunc: func(ctx context.Context, tableText string) (string, error) {
			t.Error("transcriber called with no pages")
			return "", nil
		},
	})
	deps.Rasterizer = &mockRasterizer{
		RasterizeFunc: func(pdf []byte) ([]raster.Page, error) {
			return nil, nil
		},
	}

	_, err := pipeline.ProcessStatement(context.Background(), deps, "uploads/stmt.pdf", "stmt.pdf")
	if err == nil {
		t.Fatal("ProcessStatement accepted a PDF with no page images")
	}
	if !strings.Contains(err.Error(), "no page images") {
		t.Errorf("err = %v", err)
	}
}
