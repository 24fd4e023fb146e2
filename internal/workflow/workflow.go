// workflow.go - Two-stage inspection workflow: detect degradation, then write the report

package workflow

import (
	"context"
	"fmt"

	"github.com/bosocmputer/degradation_inspector/internal/common"
)

// Analyzer produces the raw degradation analysis for an image
type Analyzer interface {
	Analyze(ctx context.Context, imagePath string) (string, error)
}

// Stage is a workflow state
type Stage int

const (
	Detecting Stage = iota
	Reporting
	Done
)

func (s Stage) String() string {
	switch s {
	case Detecting:
		return "detecting"
	case Reporting:
		return "reporting"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// Request is the workflow input
type Request struct {
	ImagePath string `json:"image_path"`
}

// State is the workflow state carried between stages
type State struct {
	ImagePath      string `json:"image_path"`
	AnalysisResult string `json:"analysis_result"`
	FinalReport    string `json:"final_report"`
}

// Observer is called after every stage transition attempt. err is nil on success.
type Observer func(ctx context.Context, stage Stage, state *State, err error)

// Workflow runs DETECTING -> REPORTING -> DONE with no branching
type Workflow struct {
	analyzer  Analyzer
	observers []Observer
}

// Option configures a Workflow
type Option func(*Workflow)

// WithObserver registers a stage observer
func WithObserver(o Observer) Option {
	return func(w *Workflow) {
		w.observers = append(w.observers, o)
	}
}

// New creates a workflow around analyzer
func New(analyzer Analyzer, opts ...Option) *Workflow {
	w := &Workflow{analyzer: analyzer}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Invoke runs the workflow. Analyzer errors are returned unmodified and no state is produced.
func (w *Workflow) Invoke(ctx context.Context, req Request) (*State, error) {
	reqCtx := common.FromContext(ctx)
	state := &State{ImagePath: req.ImagePath}

	reqCtx.StartStep(Detecting.String())
	result, err := w.analyzer.Analyze(ctx, state.ImagePath)
	if err != nil {
		reqCtx.EndStep("failed", nil, err)
		w.notify(ctx, Detecting, state, err)
		return nil, err
	}
	state.AnalysisResult = result
	reqCtx.EndStep("success", nil, nil)
	w.notify(ctx, Detecting, state, nil)

	reqCtx.StartStep(Reporting.String())
	state.FinalReport = FormatReport(state.AnalysisResult)
	reqCtx.EndStep("success", nil, nil)
	w.notify(ctx, Reporting, state, nil)

	w.notify(ctx, Done, state, nil)
	return state, nil
}

func (w *Workflow) notify(ctx context.Context, stage Stage, state *State, err error) {
	for _, o := range w.observers {
		o(ctx, stage, state, err)
	}
}
