package api

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Observer receives callbacks from the sequencer for logging and metrics.
//
// Implementations should be fast and non-blocking; heavy work should be
// done asynchronously so as not to delay the run. Step callbacks may
// arrive from whatever goroutine the step completed on.
type Observer interface {
	// OnRunStart is called once when a run begins, before the first step
	// is pulled.
	OnRunStart(ctx context.Context, run Run)

	// OnRunSucceeded is called when a run resolves as succeeded.
	OnRunSucceeded(ctx context.Context, run Run)

	// OnRunFailed is called when a run resolves as faulted.
	OnRunFailed(ctx context.Context, run Run, err error)

	// OnRunCanceled is called when a run resolves as canceled.
	OnRunCanceled(ctx context.Context, run Run)

	// OnStepStart is called before a step's Execute is invoked.
	// stepIndex counts executed steps of the run from 0, nested
	// sequences included.
	OnStepStart(ctx context.Context, run Run, stepName string, stepIndex int)

	// OnStepCompleted is called once a step's completion has been
	// observed, for successes, failures (err != nil) and cancellations.
	OnStepCompleted(ctx context.Context, run Run, stepName string, stepIndex int, err error, duration time.Duration)
}

// NoopObserver is an Observer that does nothing.
// It is used as the default when no observer is configured.
type NoopObserver struct{}

func (NoopObserver) OnRunStart(ctx context.Context, run Run)             {}
func (NoopObserver) OnRunSucceeded(ctx context.Context, run Run)         {}
func (NoopObserver) OnRunFailed(ctx context.Context, run Run, err error) {}
func (NoopObserver) OnRunCanceled(ctx context.Context, run Run)          {}
func (NoopObserver) OnStepStart(ctx context.Context, run Run, stepName string, stepIndex int) {
}
func (NoopObserver) OnStepCompleted(ctx context.Context, run Run, stepName string, stepIndex int, err error, d time.Duration) {
}

// CompositeObserver fans out events to multiple observers.
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver creates an Observer that forwards events to each
// non-nil observer in obs.
func NewCompositeObserver(obs ...Observer) Observer {
	filtered := make([]Observer, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	if len(filtered) == 0 {
		return NoopObserver{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &CompositeObserver{observers: filtered}
}

func (c *CompositeObserver) OnRunStart(ctx context.Context, run Run) {
	for _, o := range c.observers {
		o.OnRunStart(ctx, run)
	}
}

func (c *CompositeObserver) OnRunSucceeded(ctx context.Context, run Run) {
	for _, o := range c.observers {
		o.OnRunSucceeded(ctx, run)
	}
}

func (c *CompositeObserver) OnRunFailed(ctx context.Context, run Run, err error) {
	for _, o := range c.observers {
		o.OnRunFailed(ctx, run, err)
	}
}

func (c *CompositeObserver) OnRunCanceled(ctx context.Context, run Run) {
	for _, o := range c.observers {
		o.OnRunCanceled(ctx, run)
	}
}

func (c *CompositeObserver) OnStepStart(ctx context.Context, run Run, stepName string, stepIndex int) {
	for _, o := range c.observers {
		o.OnStepStart(ctx, run, stepName, stepIndex)
	}
}

func (c *CompositeObserver) OnStepCompleted(ctx context.Context, run Run, stepName string, stepIndex int, err error, d time.Duration) {
	for _, o := range c.observers {
		o.OnStepCompleted(ctx, run, stepName, stepIndex, err, d)
	}
}

// LoggingObserver writes structured logs using log/slog.
type LoggingObserver struct {
	Logger *slog.Logger
}

// NewLoggingObserver creates an Observer that logs run / step lifecycle
// events using the provided slog.Logger. If logger is nil, slog.Default()
// is used.
func NewLoggingObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{Logger: logger}
}

func (o *LoggingObserver) OnRunStart(ctx context.Context, run Run) {
	o.Logger.InfoContext(ctx, "run_start",
		slog.String("run_id", run.ID),
	)
}

func (o *LoggingObserver) OnRunSucceeded(ctx context.Context, run Run) {
	o.Logger.InfoContext(ctx, "run_succeeded",
		slog.String("run_id", run.ID),
		slog.Int("steps", run.StepsCompleted),
	)
}

func (o *LoggingObserver) OnRunFailed(ctx context.Context, run Run, err error) {
	o.Logger.ErrorContext(ctx, "run_failed",
		slog.String("run_id", run.ID),
		slog.Int("steps", run.StepsCompleted),
		slog.Any("error", err),
	)
}

func (o *LoggingObserver) OnRunCanceled(ctx context.Context, run Run) {
	o.Logger.InfoContext(ctx, "run_canceled",
		slog.String("run_id", run.ID),
		slog.Int("steps", run.StepsCompleted),
	)
}

func (o *LoggingObserver) OnStepStart(ctx context.Context, run Run, stepName string, stepIndex int) {
	o.Logger.DebugContext(ctx, "step_start",
		slog.String("run_id", run.ID),
		slog.String("step", stepName),
		slog.Int("step_index", stepIndex),
	)
}

func (o *LoggingObserver) OnStepCompleted(ctx context.Context, run Run, stepName string, stepIndex int, err error, d time.Duration) {
	level := slog.LevelDebug
	if err != nil {
		level = slog.LevelError
	}
	o.Logger.Log(ctx, level, "step_completed",
		slog.String("run_id", run.ID),
		slog.String("step", stepName),
		slog.Int("step_index", stepIndex),
		slog.Duration("duration", d),
		slog.Any("error", err),
	)
}

// BasicMetrics collects simple counters and aggregate step durations.
// It implements Observer, and can be combined with LoggingObserver via
// NewCompositeObserver.
type BasicMetrics struct {
	NoopObserver

	runsStarted       atomic.Int64
	runsSucceeded     atomic.Int64
	runsFailed        atomic.Int64
	runsCanceled      atomic.Int64
	stepsCompleted    atomic.Int64
	totalStepDuration atomic.Int64 // nanoseconds
}

// BasicMetricsSnapshot is an immutable snapshot of BasicMetrics.
type BasicMetricsSnapshot struct {
	RunsStarted   int64
	RunsSucceeded int64
	RunsFailed    int64
	RunsCanceled  int64
	ActiveRuns    int64

	StepsCompleted  int64
	AvgStepDuration time.Duration
}

func (m *BasicMetrics) OnRunStart(ctx context.Context, run Run) {
	m.runsStarted.Add(1)
}

func (m *BasicMetrics) OnRunSucceeded(ctx context.Context, run Run) {
	m.runsSucceeded.Add(1)
}

func (m *BasicMetrics) OnRunFailed(ctx context.Context, run Run, err error) {
	m.runsFailed.Add(1)
}

func (m *BasicMetrics) OnRunCanceled(ctx context.Context, run Run) {
	m.runsCanceled.Add(1)
}

func (m *BasicMetrics) OnStepCompleted(ctx context.Context, run Run, stepName string, stepIndex int, err error, d time.Duration) {
	// Only successful steps count toward the average duration.
	if err == nil {
		m.stepsCompleted.Add(1)
		m.totalStepDuration.Add(d.Nanoseconds())
	}
}

// Snapshot returns a snapshot of the current metrics.
func (m *BasicMetrics) Snapshot() BasicMetricsSnapshot {
	started := m.runsStarted.Load()
	succeeded := m.runsSucceeded.Load()
	failed := m.runsFailed.Load()
	canceled := m.runsCanceled.Load()
	steps := m.stepsCompleted.Load()
	totalNs := m.totalStepDuration.Load()

	var avg time.Duration
	if steps > 0 {
		avg = time.Duration(totalNs / steps)
	}

	return BasicMetricsSnapshot{
		RunsStarted:     started,
		RunsSucceeded:   succeeded,
		RunsFailed:      failed,
		RunsCanceled:    canceled,
		ActiveRuns:      started - succeeded - failed - canceled,
		StepsCompleted:  steps,
		AvgStepDuration: avg,
	}
}
