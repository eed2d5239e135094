package coflow

import (
	"context"
	"database/sql"

	"github.com/redis/go-redis/v9"

	"github.com/huoxudong125/coflow/internal/engine"
	"github.com/huoxudong125/coflow/internal/journal"
	"github.com/huoxudong125/coflow/pkg/api"
)

// Re-export key types so users don't need to dig into pkg/api.

type (
	Sequencer            = api.Sequencer
	Sequence             = api.Sequence
	SequenceFunc         = api.SequenceFunc
	Step                 = api.Step
	StepFunc             = api.StepFunc
	CompleteFunc         = api.CompleteFunc
	Outcome              = api.Outcome
	State                = api.State
	RunContext           = api.RunContext
	Handle               = api.Handle
	Awaitable            = api.Awaitable
	Promise              = api.Promise
	RetryPolicy          = api.RetryPolicy
	Run                  = api.Run
	RunFilter            = api.RunFilter
	RunEvent             = api.RunEvent
	EventKind            = api.EventKind
	Journal              = api.Journal
	Observer             = api.Observer
	LoggingObserver      = api.LoggingObserver
	BasicMetrics         = api.BasicMetrics
	BasicMetricsSnapshot = api.BasicMetricsSnapshot
	CompositeObserver    = api.CompositeObserver
	NoopObserver         = api.NoopObserver
)

// Re-export state values for convenience.

const (
	StateRunning   = api.StateRunning
	StateSucceeded = api.StateSucceeded
	StateFaulted   = api.StateFaulted
	StateCanceled  = api.StateCanceled
)

// Re-export journal event kinds.

const (
	EventRunStarted    = api.EventRunStarted
	EventStepStarted   = api.EventStepStarted
	EventStepCompleted = api.EventStepCompleted
	EventRunResolved   = api.EventRunResolved
)

// Re-export sentinel errors.

var (
	ErrRunCanceled = api.ErrRunCanceled
	ErrUnresolved  = api.ErrUnresolved
	ErrRunNotFound = api.ErrRunNotFound
)

// Re-export outcome constructors and common helpers.

var (
	Success         = api.Success
	SuccessValue    = api.SuccessValue
	SuccessStep     = api.SuccessStep
	SuccessSequence = api.SuccessSequence
	Failure         = api.Failure
	Canceled        = api.Canceled

	NewRunContext    = api.NewRunContext
	NewRunContextFor = api.NewRunContextFor
	NewPromise       = api.NewPromise

	NewLoggingObserver   = api.NewLoggingObserver
	NewCompositeObserver = api.NewCompositeObserver
)

// Sequencer constructors
// These wrap the internal/engine package so external callers
// never need to import internal packages.

// NewSequencer returns a Sequencer with an in-memory run journal.
func NewSequencer() Sequencer {
	return engine.NewSequencer()
}

// NewSequencerWithObserver returns an in-memory Sequencer with the given Observer.
func NewSequencerWithObserver(obs Observer) Sequencer {
	return engine.NewSequencerWithObserver(obs)
}

// NewSQLiteSequencer returns a Sequencer that journals run history in a
// SQLite database.
func NewSQLiteSequencer(db *sql.DB) (Sequencer, error) {
	return engine.NewSQLiteSequencer(db)
}

// NewSQLiteSequencerWithObserver returns a SQLite-journaled Sequencer
// with the given Observer.
func NewSQLiteSequencerWithObserver(db *sql.DB, obs Observer) (Sequencer, error) {
	return engine.NewSQLiteSequencerWithObserver(db, obs)
}

// NewRedisSequencer returns a Sequencer that journals run history in Redis.
func NewRedisSequencer(client *redis.Client) Sequencer {
	return engine.NewRedisSequencer(client)
}

// NewRedisSequencerWithObserver returns a Redis-journaled Sequencer with
// the given Observer.
func NewRedisSequencerWithObserver(client *redis.Client, obs Observer) Sequencer {
	return engine.NewRedisSequencerWithObserver(client, obs)
}

// Journal constructors, for callers that want to share one journal
// between a sequencer and their own reporting.

// NewMemoryJournal returns a non-durable in-memory Journal.
func NewMemoryJournal() Journal {
	return journal.NewMemoryJournal()
}

// NewSQLiteJournal returns a Journal persisted in the given SQLite database.
func NewSQLiteJournal(db *sql.DB) (Journal, error) {
	return journal.NewSQLiteJournal(db)
}

// NewRedisJournal returns a Journal persisted in Redis under the given
// key prefix ("coflow:" if empty).
func NewRedisJournal(client *redis.Client, prefix string) Journal {
	return journal.NewRedisJournal(client, prefix)
}

// Convenience helpers that just forward to the underlying Sequencer.

// StartRun starts driving seq and returns its handle immediately.
func StartRun(ctx context.Context, s Sequencer, seq Sequence, rc *RunContext) Handle {
	return s.Run(ctx, seq, rc)
}

// RunAndWait starts driving seq and blocks until the run resolves or ctx
// is done. It returns the run's result value and error (ErrRunCanceled
// for a canceled run).
func RunAndWait(ctx context.Context, s Sequencer, seq Sequence, rc *RunContext) (any, error) {
	return s.Run(ctx, seq, rc).Wait(ctx)
}

// History fetches the journaled events of a run by ID.
func History(ctx context.Context, s Sequencer, runID string) ([]RunEvent, error) {
	return s.History(ctx, runID)
}

// Runs lists journaled runs according to the given filter.
func Runs(ctx context.Context, s Sequencer, f RunFilter) ([]Run, error) {
	return s.Runs(ctx, f)
}
