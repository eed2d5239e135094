package journal

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/huoxudong125/coflow/pkg/api"
)

// RedisJournal is an api.Journal backed by Redis.
// It uses a simple key structure:
//
//	<prefix>run:<id>          => gob-encoded redisRunPayload
//	<prefix>events:<id>       => LIST of gob-encoded redisEventPayload
//	<prefix>idx:all           => SET of all run IDs
//	<prefix>idx:state:<state> => SET of run IDs in a given state
//
// The state indexes are kept in step with every append; Runs uses them
// for filtering.
type RedisJournal struct {
	client *redis.Client
	prefix string
}

var _ api.Journal = (*RedisJournal)(nil)

type redisRunPayload struct {
	ID             string
	State          string
	StepsCompleted int
	StartedAt      int64
	ResolvedAt     int64
	Error          string
}

type redisEventPayload struct {
	RunID     string
	Seq       int
	Kind      string
	StepIndex int
	StepName  string
	State     string
	Error     string
	Value     []byte
	At        int64
}

// NewRedisJournal creates a RedisJournal.
// prefix is optional but recommended (e.g. "coflow:").
func NewRedisJournal(client *redis.Client, prefix string) *RedisJournal {
	if prefix == "" {
		prefix = "coflow:"
	}
	return &RedisJournal{client: client, prefix: prefix}
}

func (j *RedisJournal) keyRun(id string) string {
	return j.prefix + "run:" + id
}

func (j *RedisJournal) keyEvents(id string) string {
	return j.prefix + "events:" + id
}

func (j *RedisJournal) keyAll() string {
	return j.prefix + "idx:all"
}

func (j *RedisJournal) keyState(state api.State) string {
	return j.prefix + "idx:state:" + string(state)
}

func (j *RedisJournal) Append(ctx context.Context, ev api.RunEvent) error {
	evBytes, err := encodeRedisEvent(ev)
	if err != nil {
		return err
	}

	rec, err := j.getRun(ctx, ev.RunID)
	oldState := rec.State
	switch {
	case err == nil:
	case errors.Is(err, api.ErrRunNotFound):
		rec = api.Run{ID: ev.RunID, State: api.StateRunning}
		oldState = ""
	default:
		return err
	}
	applyEvent(&rec, ev)

	recBytes, err := encodeRedisRun(&rec)
	if err != nil {
		return err
	}

	pipe := j.client.TxPipeline()
	pipe.RPush(ctx, j.keyEvents(ev.RunID), evBytes)
	pipe.Set(ctx, j.keyRun(ev.RunID), recBytes, 0)
	pipe.SAdd(ctx, j.keyAll(), ev.RunID)
	if oldState != "" && oldState != rec.State {
		pipe.SRem(ctx, j.keyState(oldState), ev.RunID)
	}
	pipe.SAdd(ctx, j.keyState(rec.State), ev.RunID)
	_, err = pipe.Exec(ctx)
	return err
}

func (j *RedisJournal) Events(ctx context.Context, runID string) ([]api.RunEvent, error) {
	raw, err := j.client.LRange(ctx, j.keyEvents(runID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, api.ErrRunNotFound
	}

	events := make([]api.RunEvent, 0, len(raw))
	for _, item := range raw {
		ev, err := decodeRedisEvent([]byte(item))
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

func (j *RedisJournal) Runs(ctx context.Context, f api.RunFilter) ([]api.Run, error) {
	key := j.keyAll()
	if f.State != "" {
		key = j.keyState(f.State)
	}
	ids, err := j.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, err
	}

	var runs []api.Run
	for _, id := range ids {
		rec, err := j.getRun(ctx, id)
		if err != nil {
			if errors.Is(err, api.ErrRunNotFound) {
				continue
			}
			return nil, err
		}
		runs = append(runs, rec)
	}
	return runs, nil
}

func (j *RedisJournal) getRun(ctx context.Context, runID string) (api.Run, error) {
	data, err := j.client.Get(ctx, j.keyRun(runID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return api.Run{}, api.ErrRunNotFound
		}
		return api.Run{}, err
	}
	return decodeRedisRun(data)
}

func encodeRedisRun(rec *api.Run) ([]byte, error) {
	errStr := ""
	if rec.Err != nil {
		errStr = rec.Err.Error()
	}
	payload := redisRunPayload{
		ID:             rec.ID,
		State:          string(rec.State),
		StepsCompleted: rec.StepsCompleted,
		StartedAt:      rec.StartedAt.UnixNano(),
		ResolvedAt:     unixNanoOrZero(rec.ResolvedAt),
		Error:          errStr,
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&payload); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeRedisRun(data []byte) (api.Run, error) {
	var payload redisRunPayload
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&payload); err != nil {
		return api.Run{}, err
	}
	rec := api.Run{
		ID:             payload.ID,
		State:          api.State(payload.State),
		StepsCompleted: payload.StepsCompleted,
		StartedAt:      time.Unix(0, payload.StartedAt),
	}
	if payload.ResolvedAt != 0 {
		rec.ResolvedAt = time.Unix(0, payload.ResolvedAt)
	}
	if payload.Error != "" {
		rec.Err = errors.New(payload.Error)
	}
	return rec, nil
}

func encodeRedisEvent(ev api.RunEvent) ([]byte, error) {
	payload := redisEventPayload{
		RunID:     ev.RunID,
		Seq:       ev.Seq,
		Kind:      string(ev.Kind),
		StepIndex: ev.StepIndex,
		StepName:  ev.StepName,
		State:     string(ev.State),
		Error:     ev.Error,
		Value:     ev.Value,
		At:        ev.At.UnixNano(),
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&payload); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeRedisEvent(data []byte) (api.RunEvent, error) {
	var payload redisEventPayload
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&payload); err != nil {
		return api.RunEvent{}, err
	}
	return api.RunEvent{
		RunID:     payload.RunID,
		Seq:       payload.Seq,
		Kind:      api.EventKind(payload.Kind),
		StepIndex: payload.StepIndex,
		StepName:  payload.StepName,
		State:     api.State(payload.State),
		Error:     payload.Error,
		Value:     payload.Value,
		At:        time.Unix(0, payload.At),
	}, nil
}

func unixNanoOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}
