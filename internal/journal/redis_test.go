package journal

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/huoxudong125/coflow/internal/testutil"
	"github.com/huoxudong125/coflow/pkg/api"
)

const testPrefix = "coflow:test:"

type RedisJournalTestSuite struct {
	suite.Suite
	client  *redis.Client
	journal *RedisJournal
	ctx     context.Context
}

func TestRedisJournalTestSuite(t *testing.T) {
	testsuite := new(RedisJournalTestSuite)
	testsuite.client = testutil.NewRedisClient(t)
	testsuite.journal = NewRedisJournal(testsuite.client, testPrefix)
	testsuite.ctx = context.Background()
	suite.Run(t, testsuite)
}

func (s *RedisJournalTestSuite) SetupTest() {
	// Clean up all keys with this prefix.
	iter := s.client.Scan(s.ctx, 0, testPrefix+"*", 0).Iterator()
	for iter.Next(s.ctx) {
		err := s.client.Del(s.ctx, iter.Val()).Err()
		s.NoErrorf(err, "redis DEL %q failed: %v", iter.Val(), err)
	}
	s.NoError(iter.Err(), "redis SCAN failed")
}

func (s *RedisJournalTestSuite) TestAppendAndEvents() {
	want := appendRunFixture(s.T(), s.ctx, s.journal, "run-1", api.StateSucceeded, "")

	got, err := s.journal.Events(s.ctx, "run-1")
	s.Require().NoError(err)
	assertHistory(s.T(), got, want)

	v, err := DecodeValue(got[2].Value)
	s.Require().NoError(err)
	s.Equal("hello", v)
}

func (s *RedisJournalTestSuite) TestEventsUnknownRun() {
	_, err := s.journal.Events(s.ctx, "nope")
	s.ErrorIs(err, api.ErrRunNotFound)
}

func (s *RedisJournalTestSuite) TestRunSummaries() {
	appendRunFixture(s.T(), s.ctx, s.journal, "run-ok", api.StateSucceeded, "")
	appendRunFixture(s.T(), s.ctx, s.journal, "run-bad", api.StateFaulted, "disk full")

	runs, err := s.journal.Runs(s.ctx, api.RunFilter{})
	s.Require().NoError(err)
	s.Require().Len(runs, 2)

	byID := make(map[string]api.Run, len(runs))
	for _, rec := range runs {
		byID[rec.ID] = rec
	}

	ok := byID["run-ok"]
	s.Equal(api.StateSucceeded, ok.State)
	s.Equal(2, ok.StepsCompleted)
	s.NoError(ok.Err)

	bad := byID["run-bad"]
	s.Equal(api.StateFaulted, bad.State)
	s.Require().Error(bad.Err)
	s.Equal("disk full", bad.Err.Error())
}

func (s *RedisJournalTestSuite) TestRunsStateFilter() {
	appendRunFixture(s.T(), s.ctx, s.journal, "run-ok", api.StateSucceeded, "")
	appendRunFixture(s.T(), s.ctx, s.journal, "run-bad", api.StateFaulted, "boom")

	faulted, err := s.journal.Runs(s.ctx, api.RunFilter{State: api.StateFaulted})
	s.Require().NoError(err)
	s.Require().Len(faulted, 1)
	s.Equal("run-bad", faulted[0].ID)

	// The state index must drop the run from its transient states.
	running, err := s.journal.Runs(s.ctx, api.RunFilter{State: api.StateRunning})
	s.Require().NoError(err)
	s.Empty(running)
}

func (s *RedisJournalTestSuite) TestDefaultPrefix() {
	j := NewRedisJournal(s.client, "")
	s.Equal("coflow:run:x", j.keyRun("x"))
}
