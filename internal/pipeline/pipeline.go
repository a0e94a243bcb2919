// Package pipeline orchestrates statement processing: an uploaded PDF is
// rasterized to page images, tables are detected with OCR, transcribed into
// CSV by a language model, then classified and summarized.
package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/finparse/statement-pipeline/internal/ocr"
	"github.com/finparse/statement-pipeline/internal/runstore"
	"github.com/finparse/statement-pipeline/internal/storage"
)

// Deps carries the services shared by the pipeline steps.
type Deps struct {
	Store       storage.Store
	Runs        runstore.Store
	Rasterizer  Rasterizer
	Tables      TableExtractor
	Transcriber Transcriber
	Log         zerolog.Logger

	// Model identifiers recorded on each run.
	OCRModel       string
	ExtractorModel string
}

func (d *Deps) withDefaults() *Deps {
	if d.OCRModel == "" {
		d.OCRModel = ocr.Model
	}
	if d.ExtractorModel == "" {
		d.ExtractorModel = DefaultModelName
	}
	return d
}

// Pipeline executes a sequence of steps in order. A step failure marks the
// run and document failed before the error is returned.
type Pipeline struct {
	deps  *Deps
	steps []Step
}

// New creates a pipeline with the given steps.
func New(deps *Deps, steps ...Step) *Pipeline {
	return &Pipeline{deps: deps.withDefaults(), steps: steps}
}

// NewStatementPipeline creates the standard processing pipeline.
func NewStatementPipeline(deps *Deps) *Pipeline {
	deps = deps.withDefaults()
	return New(deps,
		&FetchPDFStep{deps: deps},
		&CreateDocumentStep{deps: deps},
		&StartRunStep{deps: deps},
		&RasterizeStep{deps: deps},
		&ExtractTablesStep{deps: deps},
		&TranscribeStep{deps: deps},
		&AnalyzeStep{deps: deps},
		&MarkCompleteStep{deps: deps},
	)
}

// Execute runs all steps sequentially against the state.
func (p *Pipeline) Execute(ctx context.Context, st *State) error {
	for _, step := range p.steps {
		log := p.deps.Log.With().Str("step", step.Name()).Logger()
		if err := step.Execute(ctx, st); err != nil {
			p.fail(ctx, st, err)
			return fmt.Errorf("pipeline step %s: %w", step.Name(), err)
		}
		log.Debug().Msg("step complete")
	}
	return nil
}

// fail records the failure on the run and document. Recording errors are
// logged, not returned; the step error is what the caller needs.
func (p *Pipeline) fail(ctx context.Context, st *State, stepErr error) {
	st.Stage = StageFailed

	if st.RunID != "" {
		if err := p.deps.Runs.FailRun(ctx, st.RunID, stepErr); err != nil {
			p.deps.Log.Error().Err(err).Str("run_id", st.RunID).Msg("marking run failed")
		}
	}
	if st.DocumentID != "" {
		if err := p.deps.Runs.UpdateDocumentStatus(ctx, st.DocumentID, runstore.StatusFailed); err != nil {
			p.deps.Log.Error().Err(err).Str("document_id", st.DocumentID).Msg("marking document failed")
		}
	}
}

// ProcessStatement runs the standard pipeline over one uploaded statement
// and returns the final state.
func ProcessStatement(ctx context.Context, deps *Deps, sourceKey, filename string) (*State, error) {
	st := &State{SourceKey: sourceKey, Filename: filename}
	if err := NewStatementPipeline(deps).Execute(ctx, st); err != nil {
		return st, err
	}
	return st, nil
}
