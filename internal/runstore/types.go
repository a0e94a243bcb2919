// Package runstore records which statements have been ingested and how each
// processing run went. Rows land in BigQuery; an in-memory implementation
// backs tests and local single-shot runs.
package runstore

import (
	"time"

	"cloud.google.com/go/bigquery"
)

// Document statuses, mirroring the pipeline stages a statement moves through.
const (
	StatusUploaded     = "UPLOADED"
	StatusRasterizing  = "RASTERIZING"
	StatusExtracting   = "EXTRACTING"
	StatusTranscribing = "TRANSCRIBING"
	StatusComplete     = "COMPLETE"
	StatusFailed       = "FAILED"
)

// Run statuses.
const (
	RunRunning = "RUNNING"
	RunSuccess = "SUCCESS"
	RunFailed  = "FAILED"
)

// DocumentRow is one uploaded statement PDF.
type DocumentRow struct {
	DocumentID string `bigquery:"document_id"` // REQUIRED
	SourceURI  string `bigquery:"source_uri"`  // REQUIRED

	OriginalFilename string `bigquery:"original_filename"` // NULLABLE
	ContentType      string `bigquery:"content_type"`      // NULLABLE

	StatementStartDate bigquery.NullDate `bigquery:"statement_start_date"` // NULLABLE
	StatementEndDate   bigquery.NullDate `bigquery:"statement_end_date"`   // NULLABLE

	UploadTS    time.Time              `bigquery:"upload_ts"`    // REQUIRED
	ProcessedTS bigquery.NullTimestamp `bigquery:"processed_ts"` // NULLABLE

	Status string `bigquery:"status"` // NULLABLE

	ChecksumSHA256 string `bigquery:"checksum_sha256"` // NULLABLE
}

// RunRow is one processing run over a document.
type RunRow struct {
	RunID      string `bigquery:"run_id"`      // REQUIRED
	DocumentID string `bigquery:"document_id"` // REQUIRED

	StartedTS  time.Time              `bigquery:"started_ts"`  // REQUIRED
	FinishedTS bigquery.NullTimestamp `bigquery:"finished_ts"` // NULLABLE

	ExtractorModel string `bigquery:"extractor_model"` // NULLABLE
	OCRModel       string `bigquery:"ocr_model"`       // NULLABLE

	Status       string `bigquery:"status"`        // NULLABLE
	ErrorMessage string `bigquery:"error_message"` // NULLABLE

	PageCount  bigquery.NullInt64 `bigquery:"page_count"`  // NULLABLE
	TableCount bigquery.NullInt64 `bigquery:"table_count"` // NULLABLE

	// Summary figures from the produced CSV, serialized as decimal strings
	// so no precision is lost in transit.
	TransactionCount bigquery.NullInt64 `bigquery:"transaction_count"` // NULLABLE
	TotalCredit      string             `bigquery:"total_credit"`      // NULLABLE
	TotalDebit       string             `bigquery:"total_debit"`       // NULLABLE
	NetAmount        string             `bigquery:"net_amount"`        // NULLABLE
}

// RunResult carries the figures recorded when a run finishes successfully.
type RunResult struct {
	PageCount        int
	TableCount       int
	TransactionCount int
	TotalCredit      string
	TotalDebit       string
	NetAmount        string
}
