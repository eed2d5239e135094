package journal

import (
	"context"
	"errors"
	"sync"

	"github.com/huoxudong125/coflow/pkg/api"
)

// MemoryJournal is an in-memory api.Journal. It is the default journal
// for sequencers constructed without a persistent backend and is not
// durable across process restarts.
type MemoryJournal struct {
	mu     sync.Mutex
	order  []string
	events map[string][]api.RunEvent
	runs   map[string]api.Run
}

var _ api.Journal = (*MemoryJournal)(nil)

// NewMemoryJournal returns an empty MemoryJournal.
func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{
		events: make(map[string][]api.RunEvent),
		runs:   make(map[string]api.Run),
	}
}

func (j *MemoryJournal) Append(ctx context.Context, ev api.RunEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if _, known := j.runs[ev.RunID]; !known {
		j.order = append(j.order, ev.RunID)
		j.runs[ev.RunID] = api.Run{ID: ev.RunID, State: api.StateRunning}
	}
	j.events[ev.RunID] = append(j.events[ev.RunID], ev)

	rec := j.runs[ev.RunID]
	applyEvent(&rec, ev)
	j.runs[ev.RunID] = rec
	return nil
}

func (j *MemoryJournal) Events(ctx context.Context, runID string) ([]api.RunEvent, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	evs, ok := j.events[runID]
	if !ok {
		return nil, api.ErrRunNotFound
	}
	out := make([]api.RunEvent, len(evs))
	copy(out, evs)
	return out, nil
}

func (j *MemoryJournal) Runs(ctx context.Context, f api.RunFilter) ([]api.Run, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	var out []api.Run
	for _, id := range j.order {
		rec := j.runs[id]
		if f.State != "" && rec.State != f.State {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// applyEvent folds one event into a run summary record.
func applyEvent(rec *api.Run, ev api.RunEvent) {
	switch ev.Kind {
	case api.EventRunStarted:
		rec.State = api.StateRunning
		rec.StartedAt = ev.At
	case api.EventStepCompleted:
		rec.StepsCompleted++
	case api.EventRunResolved:
		rec.State = ev.State
		rec.ResolvedAt = ev.At
		if ev.Error != "" {
			rec.Err = errors.New(ev.Error)
		}
	}
}
