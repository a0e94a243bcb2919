package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/finparse/statement-pipeline/internal/export"
	"github.com/finparse/statement-pipeline/internal/runstore"
	"github.com/finparse/statement-pipeline/internal/statement"
	"github.com/finparse/statement-pipeline/internal/storage"
)

// Step is a single stage of the processing pipeline.
type Step interface {
	Name() string
	Execute(ctx context.Context, st *State) error
}

// stageStatus maps pipeline stages to the statuses recorded on the document
// row.
var stageStatus = map[Stage]string{
	StageUploaded:     runstore.StatusUploaded,
	StageRasterizing:  runstore.StatusRasterizing,
	StageExtracting:   runstore.StatusExtracting,
	StageTranscribing: runstore.StatusTranscribing,
	StageComplete:     runstore.StatusComplete,
	StageFailed:       runstore.StatusFailed,
}

// baseName strips the extension from the uploaded filename; artifact keys
// are derived from it.
func baseName(filename string) string {
	return strings.TrimSuffix(filename, path.Ext(filename))
}

// advanceAndRecord moves the state forward and mirrors the new stage onto
// the document row.
func (d *Deps) advanceAndRecord(ctx context.Context, st *State, next Stage) error {
	if err := st.advance(next); err != nil {
		return err
	}
	if err := d.Runs.UpdateDocumentStatus(ctx, st.DocumentID, stageStatus[next]); err != nil {
		return fmt.Errorf("recording status %s: %w", stageStatus[next], err)
	}
	return nil
}

// FetchPDFStep loads the uploaded PDF bytes from storage.
type FetchPDFStep struct{ deps *Deps }

func (s *FetchPDFStep) Name() string { return "fetch_pdf" }

func (s *FetchPDFStep) Execute(ctx context.Context, st *State) error {
	pdf, err := s.deps.Store.Load(ctx, st.SourceKey)
	if err != nil {
		return err
	}
	st.PDF = pdf
	return nil
}

// CreateDocumentStep registers the statement in the run store.
type CreateDocumentStep struct{ deps *Deps }

func (s *CreateDocumentStep) Name() string { return "create_document" }

func (s *CreateDocumentStep) Execute(ctx context.Context, st *State) error {
	sum := sha256.Sum256(st.PDF)

	st.DocumentID = uuid.NewString()
	st.Stage = StageUploaded

	row := &runstore.DocumentRow{
		DocumentID:       st.DocumentID,
		SourceURI:        s.deps.Store.URI(st.SourceKey),
		OriginalFilename: st.Filename,
		ContentType:      "application/pdf",
		UploadTS:         time.Now(),
		Status:           runstore.StatusUploaded,
		ChecksumSHA256:   hex.EncodeToString(sum[:]),
	}
	return s.deps.Runs.CreateDocument(ctx, row)
}

// StartRunStep opens a processing run for the document.
type StartRunStep struct{ deps *Deps }

func (s *StartRunStep) Name() string { return "start_run" }

func (s *StartRunStep) Execute(ctx context.Context, st *State) error {
	runID, err := s.deps.Runs.StartRun(ctx, st.DocumentID, s.deps.OCRModel, s.deps.ExtractorModel)
	if err != nil {
		return err
	}
	st.RunID = runID
	return nil
}

// RasterizeStep renders the PDF pages and stores the page images.
type RasterizeStep struct{ deps *Deps }

func (s *RasterizeStep) Name() string { return "rasterize" }

func (s *RasterizeStep) Execute(ctx context.Context, st *State) error {
	if err := s.deps.advanceAndRecord(ctx, st, StageRasterizing); err != nil {
		return err
	}

	pages, err := s.deps.Rasterizer.Rasterize(st.PDF)
	if err != nil {
		return err
	}
	if len(pages) == 0 {
		return fmt.Errorf("no page images in %s", st.Filename)
	}

	base := baseName(st.Filename)
	for _, page := range pages {
		key := fmt.Sprintf("%s/%s/page_%03d.png", storage.PrefixImages, base, page.Number)
		if err := s.deps.Store.Save(ctx, key, page.PNG); err != nil {
			return err
		}
		s.deps.Log.Debug().
			Int("page", page.Number).
			Int("width", page.Width).
			Int("height", page.Height).
			Msg("page rendered")
	}
	st.Pages = pages
	return nil
}

// ExtractTablesStep runs OCR table detection over every page image.
type ExtractTablesStep struct{ deps *Deps }

func (s *ExtractTablesStep) Name() string { return "extract_tables" }

func (s *ExtractTablesStep) Execute(ctx context.Context, st *State) error {
	if err := s.deps.advanceAndRecord(ctx, st, StageExtracting); err != nil {
		return err
	}

	base := baseName(st.Filename)
	var tables []string
	for _, page := range st.Pages {
		result, err := s.deps.Tables.ExtractTables(ctx, page.PNG)
		if err != nil {
			return fmt.Errorf("page %d: %w", page.Number, err)
		}

		rawKey := fmt.Sprintf("%s/%s/page_%03d.json", storage.PrefixResults, base, page.Number)
		if err := s.deps.Store.Save(ctx, rawKey, result.Raw); err != nil {
			return err
		}

		s.deps.Log.Info().
			Int("page", page.Number).
			Int("tables", len(result.Tables)).
			Msg("page processed")
		tables = append(tables, result.Tables...)
	}

	st.TableCount = len(tables)
	st.TableText = strings.Join(tables, "\n\n")

	textKey := fmt.Sprintf("%s/%s.txt", storage.PrefixResults, base)
	return s.deps.Store.Save(ctx, textKey, []byte(st.TableText))
}

// TranscribeStep turns the detected table text into CSV transaction data.
// When transcription fails or produces unparseable output, the table text is
// kept for manual review.
type TranscribeStep struct{ deps *Deps }

func (s *TranscribeStep) Name() string { return "transcribe" }

func (s *TranscribeStep) Execute(ctx context.Context, st *State) error {
	if err := s.deps.advanceAndRecord(ctx, st, StageTranscribing); err != nil {
		return err
	}

	base := baseName(st.Filename)

	csvText, err := s.deps.Transcriber.Transcribe(ctx, st.TableText)
	if err != nil {
		s.saveForReview(ctx, base, st.TableText)
		return err
	}

	table, err := statement.ReadTable(strings.NewReader(csvText))
	if err != nil {
		s.saveForReview(ctx, base, st.TableText)
		return fmt.Errorf("model output is not parseable CSV: %w", err)
	}

	st.CSV = []byte(csvText)
	st.Table = table
	st.CSVKey = fmt.Sprintf("%s/%s_transactions.csv", storage.PrefixCSV, base)
	return s.deps.Store.Save(ctx, st.CSVKey, st.CSV)
}

func (s *TranscribeStep) saveForReview(ctx context.Context, base, tableText string) {
	key := fmt.Sprintf("%s/%s.txt", storage.PrefixFailed, base)
	if err := s.deps.Store.Save(ctx, key, []byte(tableText)); err != nil {
		s.deps.Log.Error().Err(err).Str("key", key).Msg("saving failed table text")
		return
	}
	s.deps.Log.Warn().Str("key", key).Msg("table text kept for manual review")
}

// AnalyzeStep classifies the CSV schema, computes the financial summary and
// writes the report artifacts.
type AnalyzeStep struct{ deps *Deps }

func (s *AnalyzeStep) Name() string { return "analyze" }

func (s *AnalyzeStep) Execute(ctx context.Context, st *State) error {
	analysis := statement.Analyze(st.Table)
	st.Analysis = &analysis

	log := s.deps.Log.With().
		Str("schema_kind", string(analysis.Schema.Kind)).
		Str("method", analysis.Schema.Method).
		Logger()
	if analysis.Schema.Warning != "" {
		log.Warn().Msg(analysis.Schema.Warning)
	}
	if analysis.Schema.Failed() {
		log.Warn().Str("reason", analysis.Schema.FailureReason).Msg("schema classification failed")
	} else {
		log.Info().
			Int("transactions", analysis.Summary.TotalTransactions).
			Str("net_amount", analysis.Summary.NetAmount.String()).
			Msg("statement analyzed")
	}

	base := baseName(st.Filename)

	report, err := export.RenderReport(st.Filename, st.Analysis)
	if err != nil {
		return err
	}
	reportKey := fmt.Sprintf("%s/%s_summary.json", storage.PrefixResults, base)
	if err := s.deps.Store.Save(ctx, reportKey, report); err != nil {
		return err
	}

	// Statements with a recognized layout also get a canonical CSV.
	if analysis.Schema.Kind == statement.KindBankStatement || analysis.Schema.Kind == statement.KindCreditCard {
		normalized, err := export.NormalizeCSV(st.Table, analysis.Schema)
		if err != nil {
			return err
		}
		normKey := fmt.Sprintf("%s/%s_normalized.csv", storage.PrefixCSV, base)
		if err := s.deps.Store.Save(ctx, normKey, normalized); err != nil {
			return err
		}
	}
	return nil
}

// MarkCompleteStep closes the run and moves the document to its terminal
// status.
type MarkCompleteStep struct{ deps *Deps }

func (s *MarkCompleteStep) Name() string { return "mark_complete" }

func (s *MarkCompleteStep) Execute(ctx context.Context, st *State) error {
	result := runstore.RunResult{
		PageCount:  len(st.Pages),
		TableCount: st.TableCount,
	}
	if st.Analysis != nil {
		result.TransactionCount = st.Analysis.Summary.TotalTransactions
		result.TotalCredit = st.Analysis.Summary.TotalCredit.String()
		result.TotalDebit = st.Analysis.Summary.TotalDebit.String()
		result.NetAmount = st.Analysis.Summary.NetAmount.String()
	}
	if err := s.deps.Runs.FinishRun(ctx, st.RunID, result); err != nil {
		return err
	}
	return s.deps.advanceAndRecord(ctx, st, StageComplete)
}
