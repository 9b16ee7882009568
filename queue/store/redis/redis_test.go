package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodeflowgo/nodeflow/queue/store"
	"github.com/nodeflowgo/nodeflow/queue/store/redis"
)

func newTestStore(t *testing.T) *redis.Store {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return redis.NewWithClient(client, "test:", 0)
}

func TestSaveLoadRoundTrips(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := &store.JobRecord{ID: "job-1", BatchID: "batch-1", Status: store.StatusSucceeded, Timestamp: time.Now()}
	require.NoError(t, s.Save(ctx, rec))

	got, err := s.Load(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, rec.Status, got.Status)
}

func TestLoadMissingRecordErrors(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Load(context.Background(), "missing")
	assert.Error(t, err)
}

func TestListReturnsOnlyMatchingBatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, &store.JobRecord{ID: "a", BatchID: "batch-a", Timestamp: time.Now()}))
	require.NoError(t, s.Save(ctx, &store.JobRecord{ID: "b", BatchID: "batch-a", Timestamp: time.Now()}))
	require.NoError(t, s.Save(ctx, &store.JobRecord{ID: "c", BatchID: "batch-b", Timestamp: time.Now()}))

	got, err := s.List(ctx, "batch-a")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestDeleteRemovesRecordAndBatchMembership(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, &store.JobRecord{ID: "a", BatchID: "batch-a", Timestamp: time.Now()}))
	require.NoError(t, s.Delete(ctx, "a"))

	_, err := s.Load(ctx, "a")
	assert.Error(t, err)

	got, err := s.List(ctx, "batch-a")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestClearRemovesEveryRecordInBatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, &store.JobRecord{ID: "a", BatchID: "batch-a", Timestamp: time.Now()}))
	require.NoError(t, s.Save(ctx, &store.JobRecord{ID: "b", BatchID: "batch-a", Timestamp: time.Now()}))

	require.NoError(t, s.Clear(ctx, "batch-a"))

	got, err := s.List(ctx, "batch-a")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = s.Load(ctx, "a")
	assert.Error(t, err)
}
