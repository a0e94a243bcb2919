package runstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"
)

// Memory keeps document and run rows in process memory. It backs tests and
// local runs where no BigQuery dataset is configured.
type Memory struct {
	mu        sync.Mutex
	documents map[string]*DocumentRow
	runs      map[string]*RunRow
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		documents: make(map[string]*DocumentRow),
		runs:      make(map[string]*RunRow),
	}
}

// CreateDocument implements Store.
func (m *Memory) CreateDocument(ctx context.Context, row *DocumentRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.documents[row.DocumentID]; ok {
		return fmt.Errorf("CreateDocument: document %s already exists", row.DocumentID)
	}
	cp := *row
	m.documents[row.DocumentID] = &cp
	return nil
}

// UpdateDocumentStatus implements Store.
func (m *Memory) UpdateDocumentStatus(ctx context.Context, documentID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.documents[documentID]
	if !ok {
		return fmt.Errorf("UpdateDocumentStatus: unknown document %s", documentID)
	}
	doc.Status = status
	if status == StatusComplete || status == StatusFailed {
		doc.ProcessedTS = bigquery.NullTimestamp{Timestamp: time.Now(), Valid: true}
	}
	return nil
}

// StartRun implements Store.
func (m *Memory) StartRun(ctx context.Context, documentID, ocrModel, extractorModel string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.documents[documentID]; !ok {
		return "", fmt.Errorf("StartRun: unknown document %s", documentID)
	}
	runID := uuid.NewString()
	m.runs[runID] = &RunRow{
		RunID:          runID,
		DocumentID:     documentID,
		StartedTS:      time.Now(),
		OCRModel:       ocrModel,
		ExtractorModel: extractorModel,
		Status:         RunRunning,
	}
	return runID, nil
}

// FinishRun implements Store.
func (m *Memory) FinishRun(ctx context.Context, runID string, result RunResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, ok := m.runs[runID]
	if !ok {
		return fmt.Errorf("FinishRun: unknown run %s", runID)
	}
	run.Status = RunSuccess
	run.FinishedTS = bigquery.NullTimestamp{Timestamp: time.Now(), Valid: true}
	run.PageCount = bigquery.NullInt64{Int64: int64(result.PageCount), Valid: true}
	run.TableCount = bigquery.NullInt64{Int64: int64(result.TableCount), Valid: true}
	run.TransactionCount = bigquery.NullInt64{Int64: int64(result.TransactionCount), Valid: true}
	run.TotalCredit = result.TotalCredit
	run.TotalDebit = result.TotalDebit
	run.NetAmount = result.NetAmount
	return nil
}

// FailRun implements Store.
func (m *Memory) FailRun(ctx context.Context, runID string, runErr error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, ok := m.runs[runID]
	if !ok {
		return fmt.Errorf("FailRun: unknown run %s", runID)
	}
	run.Status = RunFailed
	run.FinishedTS = bigquery.NullTimestamp{Timestamp: time.Now(), Valid: true}
	if runErr != nil {
		run.ErrorMessage = runErr.Error()
	}
	return nil
}

// Document returns a copy of the stored document row, if present.
func (m *Memory) Document(documentID string) (DocumentRow, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.documents[documentID]
	if !ok {
		return DocumentRow{}, false
	}
	return *doc, true
}

// Run returns a copy of the stored run row, if present.
func (m *Memory) Run(runID string) (RunRow, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, ok := m.runs[runID]
	if !ok {
		return RunRow{}, false
	}
	return *run, true
}

var _ Store = (*Memory)(nil)
