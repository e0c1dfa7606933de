// Package output carries pipeline progress to the user. Structured logs go
// to the log file; this package owns stdout.
package output

// Stage identifies the pipeline stage an event belongs to.
type Stage string

const (
	StageIngest    Stage = "ingest"
	StageAnalyze   Stage = "analyze"
	StageCorrelate Stage = "correlate"
	StageSummarize Stage = "summarize"
	StagePackage   Stage = "package"
)

// State is one per-artifact state transition.
type State string

const (
	StateStarted   State = "started"
	StateSucceeded State = "succeeded"
	StateSkipped   State = "skipped"
	StateFailed    State = "failed"
)

// Event is one progress event.
type Event struct {
	Stage  Stage
	Item   string
	State  State
	Detail string
	Err    error
}

// Sink receives progress events. Implementations must be safe for
// concurrent use; analyze workers emit from multiple goroutines.
type Sink interface {
	Emit(Event)
}

// Discard is a Sink that drops everything.
var Discard Sink = discardSink{}

type discardSink struct{}

func (discardSink) Emit(Event) {}
