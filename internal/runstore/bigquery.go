package runstore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"
)

const (
	documentsTable = "documents"
	runsTable      = "processing_runs"
)

// BigQuery is the Store backed by a BigQuery dataset.
type BigQuery struct {
	client  *bigquery.Client
	dataset string
}

// NewBigQuery connects to the given project and dataset.
func NewBigQuery(ctx context.Context, projectID, dataset string) (*BigQuery, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewBigQuery: bigquery client: %w", err)
	}
	return &BigQuery{client: client, dataset: dataset}, nil
}

// NewBigQueryWithClient wraps an existing client; the caller keeps ownership.
func NewBigQueryWithClient(client *bigquery.Client, dataset string) *BigQuery {
	return &BigQuery{client: client, dataset: dataset}
}

// Close releases the underlying client.
func (s *BigQuery) Close() error {
	return s.client.Close()
}

// CreateDocument implements Store.
func (s *BigQuery) CreateDocument(ctx context.Context, row *DocumentRow) error {
	inserter := s.client.Dataset(s.dataset).Table(documentsTable).Inserter()
	if err := inserter.Put(ctx, row); err != nil {
		return fmt.Errorf("CreateDocument: inserting row: %w", err)
	}
	return nil
}

// UpdateDocumentStatus implements Store.
func (s *BigQuery) UpdateDocumentStatus(ctx context.Context, documentID, status string) error {
	q := s.client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET status = @status,
		    processed_ts = IF(@terminal, CURRENT_TIMESTAMP(), processed_ts)
		WHERE document_id = @document_id
	`, s.dataset, documentsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: status},
		{Name: "terminal", Value: status == StatusComplete || status == StatusFailed},
		{Name: "document_id", Value: documentID},
	}

	if err := s.runAndWait(ctx, q); err != nil {
		return fmt.Errorf("UpdateDocumentStatus: %w", err)
	}
	return nil
}

// StartRun implements Store.
func (s *BigQuery) StartRun(ctx context.Context, documentID, ocrModel, extractorModel string) (string, error) {
	runID := uuid.NewString()

	q := s.client.Query(fmt.Sprintf(`
		INSERT %s.%s (
			run_id,
			document_id,
			started_ts,
			ocr_model,
			extractor_model,
			status
		)
		VALUES (
			@run_id,
			@document_id,
			@started_ts,
			@ocr_model,
			@extractor_model,
			@status
		)
	`, s.dataset, runsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "run_id", Value: runID},
		{Name: "document_id", Value: documentID},
		{Name: "started_ts", Value: time.Now()},
		{Name: "ocr_model", Value: ocrModel},
		{Name: "extractor_model", Value: extractorModel},
		{Name: "status", Value: RunRunning},
	}

	if err := s.runAndWait(ctx, q); err != nil {
		return "", fmt.Errorf("StartRun: %w", err)
	}
	return runID, nil
}

// FinishRun implements Store.
func (s *BigQuery) FinishRun(ctx context.Context, runID string, result RunResult) error {
	q := s.client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = "",
		    page_count = @page_count,
		    table_count = @table_count,
		    transaction_count = @transaction_count,
		    total_credit = @total_credit,
		    total_debit = @total_debit,
		    net_amount = @net_amount
		WHERE run_id = @run_id
	`, s.dataset, runsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: RunSuccess},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "page_count", Value: int64(result.PageCount)},
		{Name: "table_count", Value: int64(result.TableCount)},
		{Name: "transaction_count", Value: int64(result.TransactionCount)},
		{Name: "total_credit", Value: result.TotalCredit},
		{Name: "total_debit", Value: result.TotalDebit},
		{Name: "net_amount", Value: result.NetAmount},
		{Name: "run_id", Value: runID},
	}

	if err := s.runAndWait(ctx, q); err != nil {
		return fmt.Errorf("FinishRun: %w", err)
	}
	return nil
}

// FailRun implements Store.
func (s *BigQuery) FailRun(ctx context.Context, runID string, runErr error) error {
	errMsg := ""
	if runErr != nil {
		errMsg = runErr.Error()
		const maxLen = 2000
		if len(errMsg) > maxLen {
			errMsg = errMsg[:maxLen]
		}
	}

	q := s.client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = @error_message
		WHERE run_id = @run_id
	`, s.dataset, runsTable))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: RunFailed},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "error_message", Value: errMsg},
		{Name: "run_id", Value: runID},
	}

	if err := s.runAndWait(ctx, q); err != nil {
		return fmt.Errorf("FailRun: %w", err)
	}
	return nil
}

func (s *BigQuery) runAndWait(ctx context.Context, q *bigquery.Query) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}

var _ Store = (*BigQuery)(nil)
