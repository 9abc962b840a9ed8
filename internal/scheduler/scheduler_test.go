package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/garka/garka-backend/internal/app/model"
	"github.com/garka/garka-backend/internal/app/repository"
	"github.com/garka/garka-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubReservations struct {
	calls   atomic.Int32
	expired int
	err     error
	panics  bool
}

func (s *stubReservations) ExpireReservations(ctx context.Context) (int, error) {
	s.calls.Add(1)
	if s.panics {
		panic("boom")
	}
	return s.expired, s.err
}

func TestReservationSweeper_StartRunsImmediately(t *testing.T) {
	stub := &stubReservations{expired: 2}
	sweeper := NewReservationSweeper(stub, time.Hour)

	require.NoError(t, sweeper.Start())
	defer sweeper.Stop()

	assert.Equal(t, int32(1), stub.calls.Load())
}

func TestReservationSweeper_SweepSurvivesFailures(t *testing.T) {
	tests := []struct {
		name string
		stub *stubReservations
	}{
		{name: "error", stub: &stubReservations{err: errors.New("db down")}},
		{name: "panic", stub: &stubReservations{panics: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sweeper := NewReservationSweeper(tt.stub, 0)
			assert.Equal(t, defaultSweepInterval, sweeper.interval)

			assert.NotPanics(t, sweeper.Sweep)
			assert.NotPanics(t, sweeper.Sweep)
			assert.Equal(t, int32(2), tt.stub.calls.Load())
		})
	}
}

func TestWebhookRetentionJob_Purge(t *testing.T) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	defer db.CleanupTestDB(testDB)

	repo := repository.NewWebhookEventRepository(testDB)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC)

	for i, age := range []time.Duration{10 * 24 * time.Hour, 8 * 24 * time.Hour, time.Hour} {
		event := &model.WebhookEvent{
			Provider:  "monnify",
			EventID:   []string{"old-1", "old-2", "fresh"}[i],
			EventType: "SUCCESSFUL_TRANSACTION",
		}
		ok, err := repo.Record(ctx, event)
		require.NoError(t, err)
		require.True(t, ok)
		require.NoError(t, testDB.Model(event).UpdateColumn("created_at", now.Add(-age)).Error)
	}

	job := NewWebhookRetentionJob(repo, 7*24*time.Hour)
	job.now = func() time.Time { return now }

	n, err := job.Purge()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	exists, err := repo.Exists(ctx, "monnify", "fresh")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.Exists(ctx, "monnify", "old-1")
	require.NoError(t, err)
	assert.False(t, exists)
}

type failingPurger struct{}

func (failingPurger) PurgeOlderThan(context.Context, time.Time) (int64, error) {
	return 0, errors.New("db down")
}

func TestWebhookRetentionJob_PurgeError(t *testing.T) {
	job := NewWebhookRetentionJob(failingPurger{}, 0)
	assert.Equal(t, defaultWebhookRetention, job.retention)

	n, err := job.Purge()
	assert.Error(t, err)
	assert.Zero(t, n)
}
