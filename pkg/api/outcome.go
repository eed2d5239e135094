package api

// State represents the lifecycle state of a run or the terminal state of
// a single step.
type State string

const (
	StateRunning   State = "RUNNING"
	StateSucceeded State = "SUCCEEDED"
	StateFaulted   State = "FAULTED"
	StateCanceled  State = "CANCELED"
)

// Terminal reports whether s is an absorbing state.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFaulted || s == StateCanceled
}

// Outcome is the closed result union a step reports through its completion
// callback. It is one of:
//
//   - Success / SuccessValue: the step succeeded, optionally with a value.
//   - SuccessStep: the step succeeded and its result is a follow-up Step,
//     which the engine executes before pulling anything else from the
//     outer sequence.
//   - SuccessSequence: the step succeeded and its result is a nested
//     Sequence, spliced in ahead of the remainder of the outer sequence.
//   - Failure: the step's work failed.
//   - Canceled: the step's work was canceled.
//
// The engine dispatches on the tag alone; it never inspects the runtime
// type of the payload.
type Outcome struct {
	state    State
	value    any
	hasValue bool
	step     Step
	seq      Sequence
	err      error
}

// Success returns a succeeded Outcome with no payload.
func Success() Outcome {
	return Outcome{state: StateSucceeded}
}

// SuccessValue returns a succeeded Outcome carrying a plain value. The
// engine records the value but does not thread it into the RunContext;
// producers that need to pass data forward close over it when
// constructing the next step.
func SuccessValue(v any) Outcome {
	return Outcome{state: StateSucceeded, value: v, hasValue: true}
}

// SuccessStep returns a succeeded Outcome whose result is a single
// follow-up step.
func SuccessStep(s Step) Outcome {
	return Outcome{state: StateSucceeded, step: s}
}

// SuccessSequence returns a succeeded Outcome whose result is a nested
// sequence of steps.
func SuccessSequence(seq Sequence) Outcome {
	return Outcome{state: StateSucceeded, seq: seq}
}

// Failure returns a faulted Outcome carrying err.
func Failure(err error) Outcome {
	return Outcome{state: StateFaulted, err: err}
}

// Canceled returns a canceled Outcome.
func Canceled() Outcome {
	return Outcome{state: StateCanceled}
}

// State returns the outcome's terminal state. The zero Outcome reports
// the zero State, which is not terminal; the constructors above never
// produce it.
func (o Outcome) State() State {
	return o.state
}

// Value returns the plain value payload, or nil.
func (o Outcome) Value() any {
	return o.value
}

// HasValue reports whether the outcome was built with SuccessValue. It
// distinguishes a step that carried no value from one that carried an
// explicit nil, so a valueless success never clobbers an earlier run
// result.
func (o Outcome) HasValue() bool {
	return o.hasValue
}

// NextStep returns the follow-up step payload, or nil.
func (o Outcome) NextStep() Step {
	return o.step
}

// NextSequence returns the nested sequence payload, or nil.
func (o Outcome) NextSequence() Sequence {
	return o.seq
}

// Err returns the failure payload, or nil.
func (o Outcome) Err() error {
	return o.err
}
