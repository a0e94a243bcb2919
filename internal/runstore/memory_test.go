package runstore

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newDocument(id string) *DocumentRow {
	return &DocumentRow{
		DocumentID:       id,
		SourceURI:        "uploads/" + id + ".pdf",
		OriginalFilename: id + ".pdf",
		ContentType:      "application/pdf",
		UploadTS:         time.Now(),
		Status:           StatusUploaded,
	}
}

func TestMemoryDocumentLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	if err := store.CreateDocument(ctx, newDocument("doc-1")); err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}
	if err := store.CreateDocument(ctx, newDocument("doc-1")); err == nil {
		t.Error("duplicate CreateDocument did not return an error")
	}

	for _, status := range []string{StatusRasterizing, StatusExtracting, StatusTranscribing} {
		if err := store.UpdateDocumentStatus(ctx, "doc-1", status); err != nil {
			t.Fatalf("UpdateDocumentStatus(%s): %v", status, err)
		}
		doc, _ := store.Document("doc-1")
		if doc.ProcessedTS.Valid {
			t.Errorf("status %s stamped processed_ts, want unset until terminal", status)
		}
	}

	if err := store.UpdateDocumentStatus(ctx, "doc-1", StatusComplete); err != nil {
		t.Fatalf("UpdateDocumentStatus(COMPLETE): %v", err)
	}
	doc, ok := store.Document("doc-1")
	if !ok {
		t.Fatal("Document(doc-1) not found")
	}
	if doc.Status != StatusComplete {
		t.Errorf("Status = %s, want %s", doc.Status, StatusComplete)
	}
	if !doc.ProcessedTS.Valid {
		t.Error("terminal status did not stamp processed_ts")
	}

	if err := store.UpdateDocumentStatus(ctx, "doc-2", StatusFailed); err == nil {
		t.Error("UpdateDocumentStatus on unknown document did not return an error")
	}
}

func TestMemoryRunSuccess(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	if err := store.CreateDocument(ctx, newDocument("doc-1")); err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}
	runID, err := store.StartRun(ctx, "doc-1", "nvidia/nemoretriever-parse", "gemini-2.5-flash")
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}

	run, ok := store.Run(runID)
	if !ok {
		t.Fatal("Run not found after StartRun")
	}
	if run.Status != RunRunning {
		t.Errorf("Status = %s, want %s", run.Status, RunRunning)
	}

	result := RunResult{
		PageCount:        3,
		TableCount:       2,
		TransactionCount: 41,
		TotalCredit:      "50000",
		TotalDebit:       "12734.5",
		NetAmount:        "37265.5",
	}
	if err := store.FinishRun(ctx, runID, result); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	run, _ = store.Run(runID)
	if run.Status != RunSuccess {
		t.Errorf("Status = %s, want %s", run.Status, RunSuccess)
	}
	if !run.FinishedTS.Valid {
		t.Error("FinishRun did not stamp finished_ts")
	}
	if run.TransactionCount.Int64 != 41 {
		t.Errorf("TransactionCount = %d, want 41", run.TransactionCount.Int64)
	}
	if run.NetAmount != "37265.5" {
		t.Errorf("NetAmount = %s, want 37265.5", run.NetAmount)
	}
}

func TestMemoryRunFailure(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	if err := store.CreateDocument(ctx, newDocument("doc-1")); err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}
	runID, err := store.StartRun(ctx, "doc-1", "", "")
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}

	if err := store.FailRun(ctx, runID, errors.New("page 2: ocr timed out")); err != nil {
		t.Fatalf("FailRun: %v", err)
	}
	run, _ := store.Run(runID)
	if run.Status != RunFailed {
		t.Errorf("Status = %s, want %s", run.Status, RunFailed)
	}
	if run.ErrorMessage != "page 2: ocr timed out" {
		t.Errorf("ErrorMessage = %q", run.ErrorMessage)
	}

	if _, err := store.StartRun(ctx, "doc-missing", "", ""); err == nil {
		t.Error("StartRun on unknown document did not return an error")
	}
}
