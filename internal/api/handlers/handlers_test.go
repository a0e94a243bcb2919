package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/finparse/statement-pipeline/internal/jobs"
	"github.com/finparse/statement-pipeline/internal/jobs/inmemory"
	"github.com/finparse/statement-pipeline/internal/storage"
)

type capturePublisher struct {
	published []*jobs.ProcessStatementJob
	err       error
}

func (p *capturePublisher) PublishProcessStatement(ctx context.Context, job *jobs.ProcessStatementJob) error {
	if p.err != nil {
		return p.err
	}
	job.JobID = "job-1"
	job.Status = jobs.JobStatusPending
	p.published = append(p.published, job)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func newStatementsHandler(t *testing.T) (*StatementsHandler, *storage.Local, *capturePublisher) {
	t.Helper()
	store, err := storage.NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	pub := &capturePublisher{}
	return NewStatementsHandler(store, pub, zerolog.Nop()), store, pub
}

func TestUpload(t *testing.T) {
	h, store, pub := newStatementsHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/statements?filename=stmt.pdf", strings.NewReader("%PDF-1.4 data"))
	rec := httptest.NewRecorder()
	h.Upload(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusAccepted, rec.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp["job_id"] != "job-1" {
		t.Errorf("job_id = %q", resp["job_id"])
	}
	if !strings.HasPrefix(resp["source_key"], "uploads/") || !strings.HasSuffix(resp["source_key"], "-stmt.pdf") {
		t.Errorf("source_key = %q", resp["source_key"])
	}

	if len(pub.published) != 1 {
		t.Fatalf("published %d jobs, want 1", len(pub.published))
	}
	if pub.published[0].Filename != "stmt.pdf" {
		t.Errorf("job filename = %q", pub.published[0].Filename)
	}

	saved, err := store.Load(context.Background(), resp["source_key"])
	if err != nil {
		t.Fatalf("uploaded PDF not stored: %v", err)
	}
	if string(saved) != "%PDF-1.4 data" {
		t.Errorf("stored bytes = %q", saved)
	}
}

func TestUploadRejections(t *testing.T) {
	tests := []struct {
		name   string
		target string
		body   string
	}{
		{"missing filename", "/api/statements", "%PDF"},
		{"non-pdf filename", "/api/statements?filename=stmt.docx", "%PDF"},
		{"empty body", "/api/statements?filename=stmt.pdf", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _, pub := newStatementsHandler(t)

			req := httptest.NewRequest(http.MethodPost, tt.target, strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.Upload(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
			if len(pub.published) != 0 {
				t.Error("rejected upload was still published")
			}
		})
	}
}

func TestUploadStripsPath(t *testing.T) {
	h, _, pub := newStatementsHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/statements?filename=..%2F..%2Fetc%2Fstmt.pdf", strings.NewReader("%PDF"))
	rec := httptest.NewRecorder()
	h.Upload(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if pub.published[0].Filename != "stmt.pdf" {
		t.Errorf("filename = %q, want stmt.pdf", pub.published[0].Filename)
	}
}

func TestGetSummaryAndDownloadCSV(t *testing.T) {
	h, store, _ := newStatementsHandler(t)
	ctx := context.Background()

	if err := store.Save(ctx, "results/stmt_summary.json", []byte(`{"schema_kind":"credit_card"}`)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Save(ctx, "csv_output/stmt_transactions.csv", []byte("Date,Amount\n01/07,500\n")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	rec := httptest.NewRecorder()
	h.GetSummary(rec, httptest.NewRequest(http.MethodGet, "/api/statements/stmt/summary", nil), "stmt")
	if rec.Code != http.StatusOK {
		t.Errorf("summary status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "credit_card") {
		t.Errorf("summary body = %q", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.DownloadCSV(rec, httptest.NewRequest(http.MethodGet, "/api/statements/stmt/csv", nil), "stmt")
	if rec.Code != http.StatusOK {
		t.Errorf("csv status = %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "text/csv" {
		t.Errorf("Content-Type = %q", got)
	}

	rec = httptest.NewRecorder()
	h.GetSummary(rec, httptest.NewRequest(http.MethodGet, "/api/statements/missing/summary", nil), "missing")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing summary status = %d", rec.Code)
	}
}

func TestJobsEndpoints(t *testing.T) {
	ctx := context.Background()
	store := inmemory.NewStore()
	if err := store.SaveJob(ctx, &jobs.ProcessStatementJob{
		JobID:    "job-1",
		Filename: "stmt.pdf",
		Status:   jobs.JobStatusCompleted,
	}); err != nil {
		t.Fatalf("SaveJob: %v", err)
	}

	h := NewJobsHandler(store, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.GetJob(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/job-1", nil), "job-1")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
	var job jobs.ProcessStatementJob
	if err := json.Unmarshal(rec.Body.Bytes(), &job); err != nil {
		t.Fatalf("decoding job: %v", err)
	}
	if job.Status != jobs.JobStatusCompleted {
		t.Errorf("job status = %s", job.Status)
	}

	rec = httptest.NewRecorder()
	h.GetJob(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/nope", nil), "nope")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing job status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ListJobs(rec, httptest.NewRequest(http.MethodGet, "/api/jobs?status=completed", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("list status = %d", rec.Code)
	}
	var listed struct {
		Jobs  []*jobs.ProcessStatementJob `json:"jobs"`
		Count int                         `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decoding list: %v", err)
	}
	if listed.Count != 1 {
		t.Errorf("count = %d, want 1", listed.Count)
	}
}
