// Package coflow provides a lightweight, embeddable cooperative
// step-sequencing engine for Go.
//
// Coflow lets application code express a multi-step asynchronous
// workflow as a lazily-produced sequence of discrete steps, and drives
// that sequence to completion without blocking a calling goroutine. Each
// step may represent a long-running or externally-completed operation: a
// timer, an I/O wait, a user confirmation, a wrapped asynchronous call.
// It runs fully in-process, owns no worker goroutines, and integrates
// cleanly into existing codebases.
//
// # Core Concepts
//
// The coflow programming model is intentionally small:
//
//  1. Step
//  2. Sequence
//  3. Sequencer
//  4. RunContext
//  5. Handle
//
// # Step
//
// A Step is the fundamental unit of asynchronous work:
//
//	type Step interface {
//	    Execute(ctx context.Context, rc *RunContext, complete CompleteFunc)
//	}
//
// Execute begins the work and returns without waiting for it; the step
// reports its outcome exactly once through the completion callback,
// either before Execute returns (synchronous work) or later from any
// goroutine (a timer, an I/O completion, a UI dispatcher). The outcome
// is a closed union: success with an optional value, success yielding a
// follow-up step or nested sequence, failure, or cancellation.
//
// Helpers cover the common shapes: Do and Value for synchronous work,
// Delay for timers, Await and Go for bridging foreign asynchronous
// operations, Sub for composing whole sequences, WithRetry and
// WithRecover for producer-side failure policies.
//
// # Sequence
//
// A Sequence is a lazy, ordered, pull-based source of steps. The engine
// pulls strictly one step at a time and never pulls again after the run
// has stopped, so a producer can construct each step from values the
// previous steps left behind. Sequences come from Steps (a fixed slice),
// SequenceFunc (a pull function), Generate (a generator function driven
// lazily via iter.Pull), or the fluent SequenceBuilder, which attaches
// names that flow into logs and the run journal.
//
// # Sequencer
//
// The Sequencer drives a sequence to a single overall outcome:
//
//	handle := sequencer.Run(ctx, seq, rc)
//
// Run returns immediately. Steps that complete synchronously execute
// inline; the first step that suspends hands the run over to whatever
// goroutine later completes it. Steps execute strictly in producer
// order, a nested sequence drains before its outer sibling continues,
// and the first failure or cancellation stops the run with no further
// pulls. The driving loop is iterative, so a very long chain of
// synchronously-completing steps does not grow the call stack.
//
// Every sequencer records run history (run started, step started, step
// completed, run resolved) through a Journal. The in-memory journal is
// the default; SQLite and Redis journals persist history across
// processes. Observers receive the same lifecycle as callbacks for
// logging (LoggingObserver, via log/slog) and metrics (BasicMetrics).
//
// # RunContext
//
// A RunContext is the mutable bag of ambient values shared by every step
// of one run: a well-known Source (what triggered the run) and Target
// (what the run operates on), plus an open string-keyed extras map.
// Steps run serially, so the context needs no locking.
//
// # Handle
//
// A Handle is the externally observable eventual result of one run. It
// resolves exactly once to Succeeded, Faulted or Canceled, supports
// waiting (Wait), polling (Resolved, State) and continuations
// (OnResolved), and satisfies Awaitable, so one run's handle can be
// awaited as a step of another run.
//
// # Summary
//
// Coflow's goal is a sequencing engine that feels like Go: easy to
// embed, easy to test, deterministic in its ordering, and without
// operational overhead. Steps contain the work, Sequences produce them
// lazily, the Sequencer drives them to one outcome, the RunContext
// carries shared state, and the Handle is what callers hold while the
// run completes on its own time.
//
// For runnable examples, see the /examples directory.
package coflow
