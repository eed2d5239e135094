package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/huoxudong125/coflow/internal/journal"
	"github.com/huoxudong125/coflow/pkg/api"
)

func (s *sequencerImpl) Run(ctx context.Context, seq api.Sequence, rc *api.RunContext) api.Handle {
	if rc == nil {
		rc = api.NewRunContext()
	}
	r := &run{
		id:        uuid.NewString(),
		eng:       s,
		ctx:       ctx,
		jctx:      context.WithoutCancel(ctx),
		rc:        rc,
		handle:    newHandle(),
		sources:   []api.Sequence{seq},
		startedAt: time.Now(),
	}

	s.observer.OnRunStart(ctx, r.snapshot())
	r.record(api.RunEvent{
		Kind:      api.EventRunStarted,
		StepIndex: -1,
		State:     api.StateRunning,
	})

	r.advance(nil)
	return r.handle
}

func (s *sequencerImpl) History(ctx context.Context, runID string) ([]api.RunEvent, error) {
	return s.journal.Events(ctx, runID)
}

func (s *sequencerImpl) Runs(ctx context.Context, f api.RunFilter) ([]api.Run, error) {
	return s.journal.Runs(ctx, f)
}

// run is the state of one sequence being driven to completion.
//
// Exactly one goroutine advances a run at any moment: the starter until
// the first suspension, then whichever goroutine delivers the pending
// step's completion. Consecutive steps are serialized through the
// per-step completion guard, so none of these fields need a lock.
type run struct {
	id     string
	eng    *sequencerImpl
	ctx    context.Context
	rc     *api.RunContext
	handle *handle

	// jctx detaches journal writes from the run's cancellation, so a
	// canceled or timed-out run can still journal its terminal event.
	jctx context.Context

	// sources is a stack of step sources. Splicing a nested sequence
	// pushes it here, so nested steps drain before the outer sequence
	// is pulled again (lazy flattening, any depth).
	sources []api.Sequence

	stepIdx   int
	completed int
	lastValue any
	eventSeq  int
	startedAt time.Time
}

// advance is the trampoline that drives the run. It loops while steps
// complete synchronously, so arbitrarily long synchronous sequences use
// constant stack. A step that suspends exits the loop; its completion
// callback re-enters advance on the completing goroutine.
func (r *run) advance(out *api.Outcome) {
	for {
		if out != nil {
			if !r.apply(*out) {
				return
			}
			out = nil
		}

		if err := r.ctx.Err(); err != nil {
			if errors.Is(err, context.Canceled) {
				r.finish(api.StateCanceled, nil, nil)
			} else {
				r.finish(api.StateFaulted, nil, err)
			}
			return
		}

		step, ok, err := r.pull()
		if err != nil {
			r.finish(api.StateFaulted, nil, err)
			return
		}
		if !ok {
			r.finish(api.StateSucceeded, r.lastValue, nil)
			return
		}

		next, completed := r.execute(step)
		if !completed {
			// Suspended. The step's completion callback resumes the run.
			return
		}
		out = &next
	}
}

// apply folds a step outcome into the run. It returns false when the
// outcome was terminal for the whole run.
func (r *run) apply(out api.Outcome) bool {
	switch out.State() {
	case api.StateCanceled:
		r.finish(api.StateCanceled, nil, nil)
		return false
	case api.StateFaulted:
		r.finish(api.StateFaulted, nil, out.Err())
		return false
	default:
		if next := out.NextStep(); next != nil {
			r.sources = append(r.sources, api.Steps(next))
		} else if seq := out.NextSequence(); seq != nil {
			r.sources = append(r.sources, seq)
		} else if out.HasValue() {
			r.lastValue = out.Value()
		}
		return true
	}
}

// pull takes the next step from the innermost unfinished source,
// dropping exhausted sources as it goes.
func (r *run) pull() (api.Step, bool, error) {
	for len(r.sources) > 0 {
		src := r.sources[len(r.sources)-1]
		step, ok, err := pullFrom(src)
		if err != nil {
			return nil, false, err
		}
		if ok {
			return step, true, nil
		}
		r.sources = r.sources[:len(r.sources)-1]
	}
	return nil, false, nil
}

// pullFrom isolates producer panics: a producer that panics while being
// pulled fails the run the same way a failing step would.
func pullFrom(src api.Sequence) (step api.Step, ok bool, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("coflow: sequence producer panicked: %v", p)
		}
	}()
	return src.Next()
}

// execute starts one step. If the step completed synchronously (its
// callback fired before Execute returned) the outcome is returned with
// completed=true; otherwise the run is suspended and the callback will
// resume it.
func (r *run) execute(step api.Step) (api.Outcome, bool) {
	idx := r.stepIdx
	r.stepIdx++
	name := api.StepName(step)

	r.eng.observer.OnStepStart(r.ctx, r.snapshot(), name, idx)
	r.record(api.RunEvent{
		Kind:      api.EventStepStarted,
		StepIndex: idx,
		StepName:  name,
		State:     api.StateRunning,
	})

	st := &stepState{run: r, index: idx, name: name, started: time.Now()}

	func() {
		defer func() {
			if p := recover(); p != nil {
				st.complete(api.Failure(fmt.Errorf("coflow: step panicked: %v", p)))
			}
		}()
		step.Execute(r.ctx, r.rc, st.complete)
	}()

	st.mu.Lock()
	st.returned = true
	if st.have {
		out := st.outcome
		st.mu.Unlock()
		r.stepDone(st, out)
		return out, true
	}
	st.mu.Unlock()
	return api.Outcome{}, false
}

// stepDone records one observed step completion.
func (r *run) stepDone(st *stepState, out api.Outcome) {
	r.completed++
	ev := api.RunEvent{
		Kind:      api.EventStepCompleted,
		StepIndex: st.index,
		StepName:  st.name,
		State:     out.State(),
	}
	if err := out.Err(); err != nil {
		ev.Error = err.Error()
	}
	if v := out.Value(); v != nil {
		// Best effort: an unencodable value is simply not recorded.
		ev.Value, _ = journal.EncodeValue(v)
	}
	r.record(ev)
	r.eng.observer.OnStepCompleted(r.ctx, r.snapshot(), st.name, st.index, out.Err(), time.Since(st.started))
}

// finish resolves the run exactly once and releases any generator-backed
// sources that were never drained.
func (r *run) finish(state api.State, value any, err error) {
	for _, src := range r.sources {
		if s, ok := src.(interface{ Stop() }); ok {
			s.Stop()
		}
	}
	r.sources = nil

	ev := api.RunEvent{
		Kind:      api.EventRunResolved,
		StepIndex: -1,
		State:     state,
	}
	if err != nil {
		ev.Error = err.Error()
	}
	if value != nil {
		ev.Value, _ = journal.EncodeValue(value)
	}
	r.record(ev)

	r.handle.resolve(state, value, err)

	snap := r.snapshot()
	switch state {
	case api.StateSucceeded:
		r.eng.observer.OnRunSucceeded(r.ctx, snap)
	case api.StateFaulted:
		r.eng.observer.OnRunFailed(r.ctx, snap, err)
	case api.StateCanceled:
		r.eng.observer.OnRunCanceled(r.ctx, snap)
	}
}

// record appends one journal event. Journal failures never fail the run.
func (r *run) record(ev api.RunEvent) {
	ev.RunID = r.id
	ev.Seq = r.eventSeq
	r.eventSeq++
	ev.At = time.Now()
	_ = r.eng.journal.Append(r.jctx, ev)
}

func (r *run) snapshot() api.Run {
	return api.Run{
		ID:             r.id,
		State:          r.handle.State(),
		StepsCompleted: r.completed,
		StartedAt:      r.startedAt,
	}
}

// stepState guards one step's single completion. The fired flag rejects
// a second firing outright; the mutex decides whether the first firing
// arrived before Execute returned (synchronous, picked up by the
// trampoline) or after (asynchronous, resumes the run here).
type stepState struct {
	run     *run
	index   int
	name    string
	started time.Time

	fired    atomic.Bool
	mu       sync.Mutex
	returned bool
	have     bool
	outcome  api.Outcome
}

func (st *stepState) complete(out api.Outcome) {
	if !st.fired.CompareAndSwap(false, true) {
		// A misbehaving step fired twice; only the first firing counts.
		return
	}

	st.mu.Lock()
	if !st.returned {
		st.outcome = out
		st.have = true
		st.mu.Unlock()
		return
	}
	st.mu.Unlock()

	st.run.stepDone(st, out)
	st.run.advance(&out)
}
