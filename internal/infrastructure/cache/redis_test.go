package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupIdempotency(t *testing.T) (*IdempotencyStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	rdb, err := Connect("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })
	return &IdempotencyStore{Rdb: rdb, TTL: time.Hour}, mr
}

func TestIdempotency_ReserveCompleteReplay(t *testing.T) {
	s, mr := setupIdempotency(t)
	ctx := context.Background()

	state, _, err := s.Reserve(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, Reserved, state)
	assert.Equal(t, 2*time.Minute, mr.TTL(idempotencyPrefix+"k1"))

	state, _, err = s.Reserve(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, InFlight, state)

	id := uuid.New()
	require.NoError(t, s.Complete(ctx, "k1", id))
	assert.Equal(t, time.Hour, mr.TTL(idempotencyPrefix+"k1"))

	state, got, err := s.Reserve(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, Done, state)
	assert.Equal(t, id, got)

	mr.FastForward(2 * time.Hour)
	state, _, err = s.Reserve(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, Reserved, state)
}

func TestIdempotency_ReleaseFreesKey(t *testing.T) {
	s, _ := setupIdempotency(t)
	ctx := context.Background()

	state, _, err := s.Reserve(ctx, "k1")
	require.NoError(t, err)
	require.Equal(t, Reserved, state)
	require.NoError(t, s.Release(ctx, "k1"))

	state, _, err = s.Reserve(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, Reserved, state)
}

func TestIdempotency_PendingExpires(t *testing.T) {
	s, mr := setupIdempotency(t)
	s.PendingTTL = 30 * time.Second
	ctx := context.Background()

	_, _, err := s.Reserve(ctx, "k1")
	require.NoError(t, err)
	mr.FastForward(time.Minute)

	state, _, err := s.Reserve(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, Reserved, state)
}

func TestIdempotency_ConcurrentReserveSingleWinner(t *testing.T) {
	s, _ := setupIdempotency(t)
	ctx := context.Background()

	const n = 8
	results := make(chan Reservation, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			state, _, err := s.Reserve(ctx, "k1")
			assert.NoError(t, err)
			results <- state
		}()
	}
	wg.Wait()
	close(results)

	reserved := 0
	for r := range results {
		if r == Reserved {
			reserved++
		} else {
			assert.Equal(t, InFlight, r)
		}
	}
	assert.Equal(t, 1, reserved)
}

func TestIdempotency_GarbageValue(t *testing.T) {
	s, mr := setupIdempotency(t)
	require.NoError(t, mr.Set(idempotencyPrefix+"bad", "not-a-uuid"))
	state, _, err := s.Reserve(context.Background(), "bad")
	require.NoError(t, err)
	assert.Equal(t, InFlight, state)
}

func TestIdempotency_NilSafe(t *testing.T) {
	var s *IdempotencyStore
	ctx := context.Background()
	state, _, err := s.Reserve(ctx, "k")
	assert.NoError(t, err)
	assert.Equal(t, Reserved, state)
	assert.NoError(t, s.Complete(ctx, "k", uuid.New()))
	assert.NoError(t, s.Release(ctx, "k"))

	empty := &IdempotencyStore{}
	assert.NoError(t, empty.Complete(ctx, "k", uuid.New()))
}

func TestIdempotency_RedisDown(t *testing.T) {
	s, mr := setupIdempotency(t)
	mr.Close()
	_, _, err := s.Reserve(context.Background(), "k")
	assert.Error(t, err)
}

func TestConnect_BadURL(t *testing.T) {
	_, err := Connect("not a url")
	assert.Error(t, err)
}
