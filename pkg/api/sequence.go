package api

import "iter"

// Sequence is a lazy, ordered, non-restartable source of steps.
//
// The engine pulls strictly one step at a time, never ahead, and never
// again once the run has stopped. Producing the next step may run
// arbitrary caller code, including constructing a step from values
// captured by earlier steps; a panic while producing is treated exactly
// like a failing step.
type Sequence interface {
	// Next returns the next step of the sequence. ok==false means the
	// sequence is exhausted; a non-nil error stops the run as faulted.
	Next() (step Step, ok bool, err error)
}

// SequenceFunc adapts a pull function into a Sequence.
type SequenceFunc func() (Step, bool, error)

func (f SequenceFunc) Next() (Step, bool, error) {
	return f()
}

// Steps returns a Sequence over the given steps in order. The returned
// sequence is one-shot: once drained it stays exhausted.
func Steps(steps ...Step) Sequence {
	return &sliceSequence{steps: steps}
}

type sliceSequence struct {
	steps []Step
	next  int
}

func (s *sliceSequence) Next() (Step, bool, error) {
	if s.next >= len(s.steps) {
		return nil, false, nil
	}
	step := s.steps[s.next]
	s.next++
	return step, true, nil
}

// Generate returns a Sequence fed by a generator function that yields
// its steps one at a time:
//
//	seq := api.Generate(func(yield func(api.Step) bool) {
//	    if !yield(stepA) {
//	        return
//	    }
//	    yield(stepB) // may use results captured by stepA
//	})
//
// The generator runs lazily: it advances only when the engine pulls the
// next step. If the run stops early the generator is stopped and its
// goroutine released.
func Generate(fn func(yield func(Step) bool)) Sequence {
	return FromSeq(iter.Seq[Step](fn))
}

// FromSeq adapts a standard iterator over steps into a Sequence.
func FromSeq(seq iter.Seq[Step]) Sequence {
	next, stop := iter.Pull(seq)
	return &pullSequence{next: next, stop: stop}
}

type pullSequence struct {
	next func() (Step, bool)
	stop func()
	done bool
}

func (s *pullSequence) Next() (Step, bool, error) {
	if s.done {
		return nil, false, nil
	}
	step, ok := s.next()
	if !ok {
		s.Stop()
		return nil, false, nil
	}
	return step, true, nil
}

// Stop releases the underlying generator. The engine calls it on every
// unfinished source when a run stops early; calling it more than once is
// harmless.
func (s *pullSequence) Stop() {
	if s.done {
		return
	}
	s.done = true
	s.stop()
}
