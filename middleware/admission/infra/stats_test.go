package infra

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devtools-api/middleware/admission/domain"
)

func event(client domain.ClientID, o domain.Outcome) domain.StatsEvent {
	return domain.StatsEvent{
		Client:  client,
		Outcome: o,
		Method:  "GET",
		Path:    "/math/addition",
		At:      time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC),
	}
}

func TestMemoryStatsStore_CountsByOutcome(t *testing.T) {
	s := NewMemoryStatsStore(WithTrackClients(true))
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, event("a", domain.Allow)))
	require.NoError(t, s.Record(ctx, event("a", domain.RejectRateLimited)))
	require.NoError(t, s.Record(ctx, event("b", domain.RejectUnauthenticated)))

	assert.Equal(t, Counters{Allowed: 1, Unauthenticated: 1, RateLimited: 1}, s.Total())
	assert.Equal(t, Counters{Allowed: 1, Unauthenticated: 1, RateLimited: 1}, s.ByRoute()["GET /math/addition"])
	assert.Equal(t, Counters{Allowed: 1, RateLimited: 1}, s.ByClient()["a"])
}

func TestMemoryStatsStore_ClientsNotTrackedByDefault(t *testing.T) {
	s := NewMemoryStatsStore()
	require.NoError(t, s.Record(context.Background(), event("a", domain.Allow)))
	assert.Empty(t, s.ByClient())
}

func TestRedisStatsStore_WritesHashes(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	s := NewRedisStatsStore(rdb,
		WithStatsPrefix("test:stats:"),
		WithStatsTTL(time.Hour),
		WithStatsTrackClients(true),
	)
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, event("10.0.0.1", domain.Allow)))
	require.NoError(t, s.Record(ctx, event("10.0.0.1", domain.RejectRateLimited)))

	assert.Equal(t, "1", mr.HGet("test:stats:total", "allowed"))
	assert.Equal(t, "1", mr.HGet("test:stats:total", "rate_limited"))
	assert.Equal(t, "1", mr.HGet("test:stats:minute:202405011230", "allowed"))
	assert.Equal(t, "1", mr.HGet("test:stats:route", "GET /math/addition:rate_limited"))
	assert.Equal(t, "1", mr.HGet("test:stats:client:10.0.0.1", "allowed"))

	assert.Equal(t, time.Hour, mr.TTL("test:stats:client:10.0.0.1"))
	assert.Equal(t, time.Duration(0), mr.TTL("test:stats:total"))
}

func TestRedisStatsStore_NoBucket(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	s := NewRedisStatsStore(rdb, WithStatsBucket(" NONE "))
	require.NoError(t, s.Record(context.Background(), event("c", domain.Allow)))

	assert.False(t, mr.Exists("admission:stats:minute:202405011230"))
	assert.True(t, mr.Exists("admission:stats:total"))
}

func TestRedisStatsStore_TotalsAcrossReplicas(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = rdb.Close() })
		s := NewRedisStatsStore(rdb)
		require.NoError(t, s.Record(ctx, event("c", domain.Allow)))
		require.NoError(t, s.Record(ctx, event("c", domain.RejectUnauthenticated)))
	}

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	got, err := NewRedisStatsStore(rdb).Totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, Counters{Allowed: 2, Unauthenticated: 2}, got)
}

func TestRedisStatsStore_TotalsBackendDown(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()

	_, err := NewRedisStatsStore(rdb).Totals(context.Background())
	require.Error(t, err)
}

func TestRedisStatsStore_NilIsNoop(t *testing.T) {
	var s *RedisStatsStore
	assert.NoError(t, s.Record(context.Background(), event("c", domain.Allow)))
}

func TestPrometheusStatsStore_CountsDecisions(t *testing.T) {
	reg := prometheus.NewRegistry()
	s, err := NewPrometheusStatsStore(reg, func() int { return 7 })
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.Record(ctx, event("a", domain.Allow)))
	require.NoError(t, s.Record(ctx, event("a", domain.Allow)))
	require.NoError(t, s.Record(ctx, event("a", domain.RejectRateLimited)))
	s.ClientEvicted("a")

	assert.Equal(t, 2.0, testutil.ToFloat64(s.decisions.WithLabelValues("allowed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.decisions.WithLabelValues("rate_limited")))
	assert.Equal(t, 0.0, testutil.ToFloat64(s.decisions.WithLabelValues("unauthenticated")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.evictions))

	expected := `
# HELP admission_tracked_clients Clients currently held in the state cache.
# TYPE admission_tracked_clients gauge
admission_tracked_clients 7
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "admission_tracked_clients"))
}

func TestPrometheusStatsStore_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPrometheusStatsStore(reg, nil)
	require.NoError(t, err)

	_, err = NewPrometheusStatsStore(reg, nil)
	assert.Error(t, err)
}

type failingStats struct{ err error }

func (f failingStats) Record(context.Context, domain.StatsEvent) error { return f.err }

func TestStatsFanout_RecordsEverywhereAndJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	mem := NewMemoryStatsStore()
	fan := StatsFanout{failingStats{err: boom}, nil, mem}

	err := fan.Record(context.Background(), event("a", domain.Allow))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int64(1), mem.Total().Allowed)
}

type blockingStats struct {
	started chan struct{}
	release chan struct{}

	mu sync.Mutex
	n  int
}

func newBlockingStats() *blockingStats {
	return &blockingStats{started: make(chan struct{}, 16), release: make(chan struct{})}
}

func (b *blockingStats) Record(context.Context, domain.StatsEvent) error {
	b.started <- struct{}{}
	<-b.release
	b.mu.Lock()
	b.n++
	b.mu.Unlock()
	return nil
}

func (b *blockingStats) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.n
}

func TestAsyncStatsStore_QueuesDropsAndDrains(t *testing.T) {
	backend := newBlockingStats()
	s := NewAsyncStatsStore(backend, WithAsyncBuffer(1))

	require.NoError(t, s.Record(context.Background(), event("a", domain.Allow)))
	select {
	case <-backend.started:
	case <-time.After(time.Second):
		t.Fatal("first event never reached the backend")
	}

	// o primeiro está preso no backend: um cabe na fila, o outro é descartado
	require.NoError(t, s.Record(context.Background(), event("a", domain.Allow)))
	require.NoError(t, s.Record(context.Background(), event("a", domain.Allow)))
	assert.Equal(t, int64(1), s.Dropped())

	close(backend.release)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Close(ctx))
	assert.Equal(t, 2, backend.count())

	require.NoError(t, s.Record(context.Background(), event("a", domain.Allow)))
	assert.Equal(t, int64(2), s.Dropped(), "record after close is dropped")
}

func TestAsyncStatsStore_CloseHonoursContext(t *testing.T) {
	backend := newBlockingStats()
	defer close(backend.release)
	s := NewAsyncStatsStore(backend)

	require.NoError(t, s.Record(context.Background(), event("a", domain.Allow)))
	<-backend.started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Close(ctx), context.DeadlineExceeded)
}

// stalledRedis aceita conexões e nunca responde.
func stalledRedis(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var mu sync.Mutex
	var conns []net.Conn
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, c)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			_ = c.Close()
		}
	})
	return ln.Addr().String()
}

func TestAsyncStatsStore_StalledRedisDoesNotBlockRecord(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        stalledRedis(t),
		ReadTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	var failures atomic.Int32
	s := NewAsyncStatsStore(NewRedisStatsStore(rdb),
		WithAsyncTimeout(300*time.Millisecond),
		WithAsyncErrorHook(func(error) { failures.Add(1) }),
	)

	start := time.Now()
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Record(context.Background(), event("a", domain.RejectUnauthenticated)))
	}
	assert.Less(t, time.Since(start), 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Close(ctx))
	assert.Equal(t, int32(5), failures.Load())
}
