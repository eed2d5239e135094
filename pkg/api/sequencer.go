package api

import "context"

// Sequencer drives sequences of steps to a single overall outcome.
//
// Run consumes a Sequence and returns a Handle immediately; steps that
// complete synchronously execute inline on the calling goroutine, and
// the first step that suspends hands the rest of the run over to
// whatever goroutine completes it. The handle resolves exactly once.
type Sequencer interface {
	// Run starts driving seq with the given run context. rc may be nil,
	// in which case a fresh empty RunContext is used. ctx applies to the
	// whole run: it is passed to every step's Execute, and its
	// cancellation stops the run between steps.
	Run(ctx context.Context, seq Sequence, rc *RunContext) Handle

	// History returns the journaled events of a run in append order.
	History(ctx context.Context, runID string) ([]RunEvent, error)

	// Runs returns summary records of journaled runs matching f.
	Runs(ctx context.Context, f RunFilter) ([]Run, error)
}
