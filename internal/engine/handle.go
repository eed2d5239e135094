package engine

import (
	"context"
	"sync"

	"github.com/huoxudong125/coflow/pkg/api"
)

// handle is the api.Handle implementation resolved by a run.
type handle struct {
	mu        sync.Mutex
	done      chan struct{}
	state     api.State
	value     any
	err       error
	callbacks []func(api.Handle)
}

var _ api.Handle = (*handle)(nil)

func newHandle() *handle {
	return &handle{
		done:  make(chan struct{}),
		state: api.StateRunning,
	}
}

// resolve moves the handle to a terminal state. Only the first call has
// any effect. Continuations registered via OnResolved run on the calling
// goroutine, after the done channel is closed.
func (h *handle) resolve(state api.State, value any, err error) {
	h.mu.Lock()
	if h.state != api.StateRunning {
		h.mu.Unlock()
		return
	}
	h.state = state
	h.value = value
	h.err = err
	cbs := h.callbacks
	h.callbacks = nil
	close(h.done)
	h.mu.Unlock()

	for _, cb := range cbs {
		cb(h)
	}
}

func (h *handle) Done() <-chan struct{} {
	return h.done
}

func (h *handle) Resolved() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

func (h *handle) State() api.State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

func (h *handle) Result() (any, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	switch h.state {
	case api.StateRunning:
		return nil, api.ErrUnresolved
	case api.StateCanceled:
		return nil, api.ErrRunCanceled
	default:
		return h.value, h.err
	}
}

func (h *handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state == api.StateCanceled {
		return api.ErrRunCanceled
	}
	return h.err
}

func (h *handle) Canceled() bool {
	return h.State() == api.StateCanceled
}

func (h *handle) Wait(ctx context.Context) (any, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.done:
		return h.Result()
	}
}

func (h *handle) OnResolved(fn func(api.Handle)) {
	if fn == nil {
		return
	}
	h.mu.Lock()
	if h.state == api.StateRunning {
		h.callbacks = append(h.callbacks, fn)
		h.mu.Unlock()
		return
	}
	h.mu.Unlock()
	fn(h)
}
