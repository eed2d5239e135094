package journal

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/huoxudong125/coflow/pkg/api"
)

// SQLiteJournal is an api.Journal backed by SQLite.
//
// It expects an *sql.DB that uses a SQLite driver (for example,
// "modernc.org/sqlite"). The caller is responsible for importing
// the driver, e.g.:
//
//	import _ "modernc.org/sqlite"
type SQLiteJournal struct {
	db *sql.DB
}

var _ api.Journal = (*SQLiteJournal)(nil)

// NewSQLiteJournal initializes the required schema in the given database
// and returns a new SQLiteJournal.
func NewSQLiteJournal(db *sql.DB) (*SQLiteJournal, error) {
	j := &SQLiteJournal{db: db}
	if err := j.initSchema(); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *SQLiteJournal) initSchema() error {
	_, err := j.db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			state TEXT NOT NULL,
			steps_completed INTEGER NOT NULL DEFAULT 0,
			started_at INTEGER NOT NULL DEFAULT 0,
			resolved_at INTEGER NOT NULL DEFAULT 0,
			error TEXT NOT NULL DEFAULT ''
		);
		CREATE TABLE IF NOT EXISTS run_events (
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			kind TEXT NOT NULL,
			step_index INTEGER NOT NULL,
			step_name TEXT NOT NULL,
			state TEXT NOT NULL,
			error TEXT NOT NULL,
			value BLOB,
			at INTEGER NOT NULL,
			PRIMARY KEY (run_id, seq)
		);`,
	)
	return err
}

func (j *SQLiteJournal) Append(ctx context.Context, ev api.RunEvent) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO run_events (run_id, seq, kind, step_index, step_name, state, error, value, at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.RunID,
		ev.Seq,
		string(ev.Kind),
		ev.StepIndex,
		ev.StepName,
		string(ev.State),
		ev.Error,
		ev.Value,
		ev.At.UnixNano(),
	)
	if err != nil {
		return err
	}

	switch ev.Kind {
	case api.EventRunStarted:
		_, err = tx.ExecContext(ctx, `
			INSERT INTO runs (id, state, started_at)
			VALUES (?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET state = excluded.state, started_at = excluded.started_at`,
			ev.RunID, string(api.StateRunning), ev.At.UnixNano(),
		)
	case api.EventStepCompleted:
		_, err = tx.ExecContext(ctx, `
			UPDATE runs SET steps_completed = steps_completed + 1 WHERE id = ?`,
			ev.RunID,
		)
	case api.EventRunResolved:
		_, err = tx.ExecContext(ctx, `
			UPDATE runs SET state = ?, resolved_at = ?, error = ? WHERE id = ?`,
			string(ev.State), ev.At.UnixNano(), ev.Error, ev.RunID,
		)
	}
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (j *SQLiteJournal) Events(ctx context.Context, runID string) ([]api.RunEvent, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, seq, kind, step_index, step_name, state, error, value, at
		FROM run_events
		WHERE run_id = ?
		ORDER BY seq`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []api.RunEvent
	for rows.Next() {
		var ev api.RunEvent
		var kind, state string
		var at int64

		if err := rows.Scan(&ev.RunID, &ev.Seq, &kind, &ev.StepIndex, &ev.StepName, &state, &ev.Error, &ev.Value, &at); err != nil {
			return nil, err
		}
		ev.Kind = api.EventKind(kind)
		ev.State = api.State(state)
		ev.At = time.Unix(0, at)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, api.ErrRunNotFound
	}
	return events, nil
}

func (j *SQLiteJournal) Runs(ctx context.Context, f api.RunFilter) ([]api.Run, error) {
	query := `
		SELECT id, state, steps_completed, started_at, resolved_at, error
		FROM runs`
	var args []any
	if f.State != "" {
		query += " WHERE state = ?"
		args = append(args, string(f.State))
	}
	query += " ORDER BY started_at"

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []api.Run
	for rows.Next() {
		var rec api.Run
		var state, errStr string
		var startedAt, resolvedAt int64

		if err := rows.Scan(&rec.ID, &state, &rec.StepsCompleted, &startedAt, &resolvedAt, &errStr); err != nil {
			return nil, err
		}
		rec.State = api.State(state)
		rec.StartedAt = time.Unix(0, startedAt)
		if resolvedAt != 0 {
			rec.ResolvedAt = time.Unix(0, resolvedAt)
		}
		if errStr != "" {
			rec.Err = errors.New(errStr)
		}
		runs = append(runs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

// GetRun returns the summary record for one run.
func (j *SQLiteJournal) GetRun(ctx context.Context, runID string) (api.Run, error) {
	row := j.db.QueryRowContext(ctx, `
		SELECT id, state, steps_completed, started_at, resolved_at, error
		FROM runs
		WHERE id = ?`,
		runID,
	)

	var rec api.Run
	var state, errStr string
	var startedAt, resolvedAt int64

	if err := row.Scan(&rec.ID, &state, &rec.StepsCompleted, &startedAt, &resolvedAt, &errStr); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return api.Run{}, api.ErrRunNotFound
		}
		return api.Run{}, err
	}
	rec.State = api.State(state)
	rec.StartedAt = time.Unix(0, startedAt)
	if resolvedAt != 0 {
		rec.ResolvedAt = time.Unix(0, resolvedAt)
	}
	if errStr != "" {
		rec.Err = errors.New(errStr)
	}
	return rec, nil
}
