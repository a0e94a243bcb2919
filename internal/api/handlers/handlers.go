// Package handlers implements the HTTP endpoints for uploading statements,
// tracking processing jobs and fetching results.
package handlers

import (
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/finparse/statement-pipeline/internal/api/middleware"
	"github.com/finparse/statement-pipeline/internal/jobs"
	"github.com/finparse/statement-pipeline/internal/storage"
)

// maxUploadBytes bounds statement uploads; scanned statements run a few MB.
const maxUploadBytes = 50 << 20

// StatementsHandler handles statement upload and result endpoints.
type StatementsHandler struct {
	store     storage.Store
	publisher jobs.Publisher
	log       zerolog.Logger
}

// NewStatementsHandler creates a new statements handler.
func NewStatementsHandler(store storage.Store, publisher jobs.Publisher, log zerolog.Logger) *StatementsHandler {
	return &StatementsHandler{
		store:     store,
		publisher: publisher,
		log:       log,
	}
}

// Upload handles POST /api/statements. The request body is the PDF; the
// filename comes from the query string. The statement is stored and a
// processing job enqueued.
func (h *StatementsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filename := sanitizeFilename(r.URL.Query().Get("filename"))
	if filename == "" {
		middleware.WriteError(w, http.StatusBadRequest, "filename query parameter is required")
		return
	}
	if !strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		middleware.WriteError(w, http.StatusBadRequest, "only PDF statements are accepted")
		return
	}

	body := http.MaxBytesReader(w, r.Body, maxUploadBytes)
	pdf, err := io.ReadAll(body)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "failed to read upload body")
		return
	}
	if len(pdf) == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "upload body is empty")
		return
	}

	// Prefix with a UUID so repeated uploads of the same file never collide.
	sourceKey := fmt.Sprintf("%s/%s-%s", storage.PrefixUploads, uuid.NewString(), filename)
	if err := h.store.Save(ctx, sourceKey, pdf); err != nil {
		h.log.Error().Err(err).Str("key", sourceKey).Msg("Failed to store upload")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to store upload")
		return
	}

	job := &jobs.ProcessStatementJob{
		SourceKey: sourceKey,
		Filename:  filename,
	}
	if err := h.publisher.PublishProcessStatement(ctx, job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue processing job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue processing job")
		return
	}

	h.log.Info().
		Str("job_id", job.JobID).
		Str("source_key", sourceKey).
		Int("bytes", len(pdf)).
		Msg("Statement uploaded and enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id":     job.JobID,
		"source_key": sourceKey,
		"source_uri": h.store.URI(sourceKey),
		"status":     string(job.Status),
	})
}

// GetSummary handles GET /api/statements/{name}/summary. name is the upload
// filename without extension.
func (h *StatementsHandler) GetSummary(w http.ResponseWriter, r *http.Request, name string) {
	ctx := r.Context()

	key := fmt.Sprintf("%s/%s_summary.json", storage.PrefixResults, name)
	data, err := h.store.Load(ctx, key)
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, "Summary not found")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// DownloadCSV handles GET /api/statements/{name}/csv.
func (h *StatementsHandler) DownloadCSV(w http.ResponseWriter, r *http.Request, name string) {
	ctx := r.Context()

	key := fmt.Sprintf("%s/%s_transactions.csv", storage.PrefixCSV, name)
	data, err := h.store.Load(ctx, key)
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, "CSV not found")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+"_transactions.csv"))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store: store,
		log:   log,
	}
}

// GetJob handles GET /api/jobs/{id}.
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	ctx := r.Context()

	job, err := h.store.GetJob(ctx, jobID)
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs.
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query()
	filter := jobs.JobFilter{
		DocumentID: query.Get("document_id"),
		Status:     jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}
	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(ctx, filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}
	if jobsList == nil {
		jobsList = []*jobs.ProcessStatementJob{}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}

// sanitizeFilename strips any path or query fragments from an uploaded
// filename.
func sanitizeFilename(filename string) string {
	if idx := strings.Index(filename, "?"); idx >= 0 {
		filename = filename[:idx]
	}
	filename = path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if filename == "." || filename == "/" {
		return ""
	}
	return filename
}
