package engine

import (
	"database/sql"

	"github.com/redis/go-redis/v9"

	"github.com/huoxudong125/coflow/internal/journal"
	"github.com/huoxudong125/coflow/pkg/api"
)

// sequencerImpl is the reactive, in-process sequencer implementation.
// It owns no goroutines of its own: a run advances on the goroutine that
// started it until a step suspends, then on whatever goroutine completes
// that step.
type sequencerImpl struct {
	observer api.Observer
	journal  api.Journal
}

// Config describes how to construct a sequencer.
// Only used inside this package; external callers use the helper functions.
type Config struct {
	Observer api.Observer
	Journal  api.Journal
}

// NewSequencerWithConfig creates a Sequencer using the given configuration.
func NewSequencerWithConfig(cfg Config) api.Sequencer {
	obs := cfg.Observer
	if obs == nil {
		obs = api.NoopObserver{}
	}
	jnl := cfg.Journal
	if jnl == nil {
		jnl = journal.NewMemoryJournal()
	}
	return &sequencerImpl{observer: obs, journal: jnl}
}

// NewSequencer returns a Sequencer with an in-memory journal and no
// observer. External users access this via coflow.NewSequencer.
func NewSequencer() api.Sequencer {
	return NewSequencerWithConfig(Config{})
}

// NewSequencerWithObserver returns an in-memory Sequencer with the given
// observer.
func NewSequencerWithObserver(obs api.Observer) api.Sequencer {
	return NewSequencerWithConfig(Config{Observer: obs})
}

// NewSQLiteSequencer returns a Sequencer that journals run history in a
// SQLite database.
func NewSQLiteSequencer(db *sql.DB) (api.Sequencer, error) {
	jnl, err := journal.NewSQLiteJournal(db)
	if err != nil {
		return nil, err
	}
	return NewSequencerWithConfig(Config{Journal: jnl}), nil
}

// NewSQLiteSequencerWithObserver returns a SQLite-journaled Sequencer
// with the given observer.
func NewSQLiteSequencerWithObserver(db *sql.DB, obs api.Observer) (api.Sequencer, error) {
	jnl, err := journal.NewSQLiteJournal(db)
	if err != nil {
		return nil, err
	}
	return NewSequencerWithConfig(Config{Journal: jnl, Observer: obs}), nil
}

// NewRedisSequencer returns a Sequencer that journals run history in Redis.
func NewRedisSequencer(client *redis.Client) api.Sequencer {
	return NewSequencerWithConfig(Config{
		Journal: journal.NewRedisJournal(client, "coflow:"),
	})
}

// NewRedisSequencerWithObserver returns a Redis-journaled Sequencer with
// the given observer.
func NewRedisSequencerWithObserver(client *redis.Client, obs api.Observer) api.Sequencer {
	return NewSequencerWithConfig(Config{
		Journal:  journal.NewRedisJournal(client, "coflow:"),
		Observer: obs,
	})
}
