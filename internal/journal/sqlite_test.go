package journal

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/huoxudong125/coflow/pkg/api"
)

func newTestSQLiteJournal(t *testing.T) *SQLiteJournal {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("sql.Open failed: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	j, err := NewSQLiteJournal(db)
	if err != nil {
		t.Fatalf("NewSQLiteJournal failed: %v", err)
	}
	return j
}

func TestSQLiteJournal_AppendAndEvents(t *testing.T) {
	ctx := context.Background()
	j := newTestSQLiteJournal(t)

	want := appendRunFixture(t, ctx, j, "run-1", api.StateSucceeded, "")

	got, err := j.Events(ctx, "run-1")
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	assertHistory(t, got, want)

	// The journaled value survives the blob roundtrip.
	v, err := DecodeValue(got[2].Value)
	if err != nil {
		t.Fatalf("DecodeValue failed: %v", err)
	}
	if v != "hello" {
		t.Fatalf("expected decoded step value \"hello\", got %v", v)
	}
}

func TestSQLiteJournal_EventsUnknownRun(t *testing.T) {
	j := newTestSQLiteJournal(t)
	if _, err := j.Events(context.Background(), "nope"); !errors.Is(err, api.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestSQLiteJournal_RunSummaries(t *testing.T) {
	ctx := context.Background()
	j := newTestSQLiteJournal(t)

	appendRunFixture(t, ctx, j, "run-ok", api.StateSucceeded, "")
	appendRunFixture(t, ctx, j, "run-bad", api.StateFaulted, "disk full")

	runs, err := j.Runs(ctx, api.RunFilter{})
	if err != nil {
		t.Fatalf("Runs failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}

	byID := make(map[string]api.Run, len(runs))
	for _, rec := range runs {
		byID[rec.ID] = rec
	}

	ok := byID["run-ok"]
	if ok.State != api.StateSucceeded || ok.StepsCompleted != 2 || ok.Err != nil {
		t.Fatalf("unexpected summary for run-ok: %+v", ok)
	}
	if ok.StartedAt.IsZero() || ok.ResolvedAt.IsZero() {
		t.Fatalf("expected timestamps to be recorded: %+v", ok)
	}

	bad := byID["run-bad"]
	if bad.State != api.StateFaulted || bad.Err == nil || bad.Err.Error() != "disk full" {
		t.Fatalf("unexpected summary for run-bad: %+v", bad)
	}
}

func TestSQLiteJournal_RunsStateFilter(t *testing.T) {
	ctx := context.Background()
	j := newTestSQLiteJournal(t)

	appendRunFixture(t, ctx, j, "run-ok", api.StateSucceeded, "")
	appendRunFixture(t, ctx, j, "run-bad", api.StateFaulted, "boom")

	faulted, err := j.Runs(ctx, api.RunFilter{State: api.StateFaulted})
	if err != nil {
		t.Fatalf("Runs failed: %v", err)
	}
	if len(faulted) != 1 || faulted[0].ID != "run-bad" {
		t.Fatalf("expected only run-bad, got %+v", faulted)
	}
}

func TestSQLiteJournal_GetRun(t *testing.T) {
	ctx := context.Background()
	j := newTestSQLiteJournal(t)

	appendRunFixture(t, ctx, j, "run-1", api.StateCanceled, "")

	rec, err := j.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if rec.ID != "run-1" || rec.State != api.StateCanceled || rec.StepsCompleted != 2 {
		t.Fatalf("unexpected run record: %+v", rec)
	}

	if _, err := j.GetRun(ctx, "nope"); !errors.Is(err, api.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestSQLiteJournal_SchemaIsIdempotent(t *testing.T) {
	j := newTestSQLiteJournal(t)
	if err := j.initSchema(); err != nil {
		t.Fatalf("re-running schema init failed: %v", err)
	}
}
