package journal

import (
	"context"
	"testing"
	"time"

	"github.com/huoxudong125/coflow/pkg/api"
)

// appendRunFixture writes a small but complete run history to j and
// returns the appended events in order.
func appendRunFixture(t *testing.T, ctx context.Context, j api.Journal, runID string, final api.State, runErr string) []api.RunEvent {
	t.Helper()

	val, err := EncodeValue("hello")
	if err != nil {
		t.Fatalf("EncodeValue failed: %v", err)
	}

	base := time.Now()
	events := []api.RunEvent{
		{RunID: runID, Seq: 0, Kind: api.EventRunStarted, StepIndex: -1, State: api.StateRunning, At: base},
		{RunID: runID, Seq: 1, Kind: api.EventStepStarted, StepIndex: 0, StepName: "fetch", At: base.Add(time.Millisecond)},
		{RunID: runID, Seq: 2, Kind: api.EventStepCompleted, StepIndex: 0, StepName: "fetch", State: api.StateSucceeded, Value: val, At: base.Add(2 * time.Millisecond)},
		{RunID: runID, Seq: 3, Kind: api.EventStepStarted, StepIndex: 1, StepName: "store", At: base.Add(3 * time.Millisecond)},
		{RunID: runID, Seq: 4, Kind: api.EventStepCompleted, StepIndex: 1, StepName: "store", State: api.StateSucceeded, At: base.Add(4 * time.Millisecond)},
		{RunID: runID, Seq: 5, Kind: api.EventRunResolved, StepIndex: -1, State: final, Error: runErr, At: base.Add(5 * time.Millisecond)},
	}
	for _, ev := range events {
		if err := j.Append(ctx, ev); err != nil {
			t.Fatalf("Append(%s seq=%d) failed: %v", ev.Kind, ev.Seq, err)
		}
	}
	return events
}

// assertHistory checks that got replays want in order with the fields
// the engine depends on intact.
func assertHistory(t *testing.T, got, want []api.RunEvent) {
	t.Helper()

	if len(got) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(got))
	}
	for i := range want {
		g, w := got[i], want[i]
		if g.RunID != w.RunID || g.Seq != w.Seq || g.Kind != w.Kind {
			t.Fatalf("event %d mismatch: got %+v want %+v", i, g, w)
		}
		if g.StepIndex != w.StepIndex || g.StepName != w.StepName {
			t.Fatalf("event %d step identity mismatch: got %+v want %+v", i, g, w)
		}
		if g.State != w.State || g.Error != w.Error {
			t.Fatalf("event %d state mismatch: got %+v want %+v", i, g, w)
		}
		if string(g.Value) != string(w.Value) {
			t.Fatalf("event %d value mismatch", i)
		}
		if !g.At.Equal(w.At) {
			t.Fatalf("event %d timestamp mismatch: got %v want %v", i, g.At, w.At)
		}
	}
}
