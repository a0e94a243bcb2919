package runstore

import "context"

// Store persists document and run records.
type Store interface {
	// CreateDocument inserts a new document row.
	CreateDocument(ctx context.Context, row *DocumentRow) error

	// UpdateDocumentStatus moves a document to a new status; terminal
	// statuses also stamp processed_ts.
	UpdateDocumentStatus(ctx context.Context, documentID, status string) error

	// StartRun inserts a RUNNING run row for the document and returns the
	// generated run ID.
	StartRun(ctx context.Context, documentID, ocrModel, extractorModel string) (string, error)

	// FinishRun marks the run SUCCESS and records the result figures.
	FinishRun(ctx context.Context, runID string, result RunResult) error

	// FailRun marks the run FAILED with the error message.
	FailRun(ctx context.Context, runID string, runErr error) error
}
