package pipeline

import (
	"fmt"

	"github.com/finparse/statement-pipeline/internal/raster"
	"github.com/finparse/statement-pipeline/internal/statement"
)

// Stage is where a statement sits in the processing pipeline.
type Stage string

const (
	StageUploaded     Stage = "uploaded"
	StageRasterizing  Stage = "rasterizing"
	StageExtracting   Stage = "extracting"
	StageTranscribing Stage = "transcribing"
	StageComplete     Stage = "complete"
	StageFailed       Stage = "failed"
)

// transitions lists the legal next stages. Any non-terminal stage may move
// to failed.
var transitions = map[Stage][]Stage{
	StageUploaded:     {StageRasterizing, StageFailed},
	StageRasterizing:  {StageExtracting, StageFailed},
	StageExtracting:   {StageTranscribing, StageFailed},
	StageTranscribing: {StageComplete, StageFailed},
	StageComplete:     {},
	StageFailed:       {},
}

// CanTransitionTo reports whether moving to next is legal.
func (s Stage) CanTransitionTo(next Stage) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether the stage is an end state.
func (s Stage) Terminal() bool {
	return s == StageComplete || s == StageFailed
}

// State is the shared state threaded through the pipeline steps.
type State struct {
	// SourceKey is the storage key of the uploaded PDF; Filename its
	// original name, used to derive artifact names.
	SourceKey string
	Filename  string

	DocumentID string
	RunID      string

	Stage Stage

	PDF        []byte
	Pages      []raster.Page
	TableText  string
	TableCount int

	CSV      []byte
	CSVKey   string
	Table    *statement.Table
	Analysis *statement.Analysis
}

// advance moves the state to the next stage, enforcing the legal
// transitions.
func (st *State) advance(next Stage) error {
	if !st.Stage.CanTransitionTo(next) {
		return fmt.Errorf("illegal stage transition %s -> %s", st.Stage, next)
	}
	st.Stage = next
	return nil
}
