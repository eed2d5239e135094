package api

import (
	"context"
	"errors"
	"time"
)

// ErrRunNotFound is returned when a run ID is unknown to the journal.
var ErrRunNotFound = errors.New("coflow: run not found")

// EventKind identifies the kind of a RunEvent.
type EventKind string

const (
	EventRunStarted    EventKind = "run_started"
	EventStepStarted   EventKind = "step_started"
	EventStepCompleted EventKind = "step_completed"
	EventRunResolved   EventKind = "run_resolved"
)

// RunEvent is one entry in a run's append-only history.
type RunEvent struct {
	RunID string
	// Seq orders events within one run, starting at 0.
	Seq  int
	Kind EventKind

	// StepIndex and StepName identify the step for step events.
	// StepIndex is -1 for run-level events.
	StepIndex int
	StepName  string

	// State is the run's state for run events, or the step's terminal
	// state for EventStepCompleted.
	State State

	// Error is the textual error for faulted steps and runs, "" otherwise.
	Error string

	// Value is the gob-encoded plain result value of a succeeded step or
	// run, nil when there was none or the value was not encodable.
	Value []byte

	At time.Time
}

// Run is a summary record of one run, reconstructed from journal events.
type Run struct {
	ID             string
	State          State
	StepsCompleted int
	StartedAt      time.Time
	ResolvedAt     time.Time
	Err            error
}

// RunFilter selects runs from the journal. The zero value matches all.
type RunFilter struct {
	// State, if non-empty, limits results to runs in the given state.
	State State
}

// Journal is an append-only history store for run execution events.
//
// The engine appends best-effort: a journal write failure never fails
// the run. Implementations must be safe for concurrent use, since step
// events can be appended from whatever goroutine a step completed on.
type Journal interface {
	Append(ctx context.Context, ev RunEvent) error
	// Events returns a run's history in append order.
	// It returns ErrRunNotFound for an unknown run ID.
	Events(ctx context.Context, runID string) ([]RunEvent, error)
	// Runs returns summary records for runs matching f.
	Runs(ctx context.Context, f RunFilter) ([]Run, error)
}
