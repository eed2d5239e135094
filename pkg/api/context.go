package api

// RunContext is the mutable bag of ambient values shared by every step of
// one run. The engine passes the same *RunContext to each step in turn;
// because steps execute serially, no locking is performed or required.
//
// Two values are well-known: Source (whatever triggered the run, e.g. a
// command or an event handler) and Target (the object the run operates
// on). Everything else lives in an open string-keyed extras map.
//
// A RunContext belongs to exactly one run and is discarded when the run
// resolves.
type RunContext struct {
	source any
	target any
	values map[string]any
}

// NewRunContext returns an empty RunContext.
func NewRunContext() *RunContext {
	return &RunContext{}
}

// NewRunContextFor returns a RunContext with Source and Target set.
func NewRunContextFor(source, target any) *RunContext {
	return &RunContext{source: source, target: target}
}

// Source returns the logical originator of the run, or nil.
func (rc *RunContext) Source() any {
	return rc.source
}

// SetSource sets the logical originator of the run.
func (rc *RunContext) SetSource(v any) {
	rc.source = v
}

// Target returns the logical subject of the run, or nil.
func (rc *RunContext) Target() any {
	return rc.target
}

// SetTarget sets the logical subject of the run.
func (rc *RunContext) SetTarget(v any) {
	rc.target = v
}

// Get returns the value stored under key. A missing key yields
// (nil, false), never an error.
func (rc *RunContext) Get(key string) (any, bool) {
	v, ok := rc.values[key]
	return v, ok
}

// Set stores value under key, replacing any previous value.
func (rc *RunContext) Set(key string, value any) {
	if rc.values == nil {
		rc.values = make(map[string]any)
	}
	rc.values[key] = value
}

// Delete removes key from the extras map. Deleting a missing key is a no-op.
func (rc *RunContext) Delete(key string) {
	delete(rc.values, key)
}

// Len returns the number of extra values (Source and Target not included).
func (rc *RunContext) Len() int {
	return len(rc.values)
}
