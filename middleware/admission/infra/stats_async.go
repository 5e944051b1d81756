package infra

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"devtools-api/middleware/admission/domain"
)

// AsyncStatsStore tira um StatsStore de rede (ex: Redis) do caminho da requisição.
//
// Record só enfileira e volta na hora. Com a fila cheia o evento é descartado e
// contado em Dropped. Uma única goroutine grava no store de destino, cada evento
// com o próprio timeout, sem herdar o contexto da requisição.
type AsyncStatsStore struct {
	next    domain.StatsStore
	events  chan domain.StatsEvent
	timeout time.Duration
	onError func(error)

	dropped atomic.Int64

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

type AsyncStatsOption func(*AsyncStatsStore)

// WithAsyncBuffer define o tamanho da fila (padrão 1024).
func WithAsyncBuffer(n int) AsyncStatsOption {
	return func(s *AsyncStatsStore) {
		if n > 0 {
			s.events = make(chan domain.StatsEvent, n)
		}
	}
}

// WithAsyncTimeout limita cada gravação no store de destino (padrão 2s).
func WithAsyncTimeout(d time.Duration) AsyncStatsOption {
	return func(s *AsyncStatsStore) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithAsyncErrorHook recebe os erros do store de destino.
func WithAsyncErrorHook(fn func(error)) AsyncStatsOption {
	return func(s *AsyncStatsStore) { s.onError = fn }
}

func NewAsyncStatsStore(next domain.StatsStore, opts ...AsyncStatsOption) *AsyncStatsStore {
	s := &AsyncStatsStore{
		next:    next,
		events:  make(chan domain.StatsEvent, 1024),
		timeout: 2 * time.Second,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.run()
	return s
}

// Record implementa domain.StatsStore. Nunca bloqueia.
func (s *AsyncStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.dropped.Add(1)
		return nil
	}
	select {
	case s.events <- ev:
	default:
		s.dropped.Add(1)
	}
	return nil
}

// Dropped conta os eventos descartados por fila cheia ou store fechado.
func (s *AsyncStatsStore) Dropped() int64 { return s.dropped.Load() }

// Close para de aceitar eventos e espera a fila esvaziar até ctx encerrar.
func (s *AsyncStatsStore) Close(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.events)
	}
	s.mu.Unlock()

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *AsyncStatsStore) run() {
	defer close(s.done)
	for ev := range s.events {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		err := s.next.Record(ctx, ev)
		cancel()
		if err != nil && s.onError != nil {
			s.onError(err)
		}
	}
}
