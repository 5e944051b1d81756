package infra

import (
	"context"
	"sync"

	"devtools-api/middleware/admission/domain"
)

// Counters conta decisões por resultado.
type Counters struct {
	Allowed         int64
	Unauthenticated int64
	RateLimited     int64
}

func (c *Counters) add(o domain.Outcome) {
	switch o {
	case domain.Allow:
		c.Allowed++
	case domain.RejectUnauthenticated:
		c.Unauthenticated++
	case domain.RejectRateLimited:
		c.RateLimited++
	}
}

// MemoryStatsStore é uma implementação simples em memória.
// Útil para testes, desenvolvimento e para o comando de diagnóstico.
//
// Não faz expiração: com WithTrackClients(true) cresce com o número de clientes.
type MemoryStatsStore struct {
	mu       sync.Mutex
	total    Counters
	byRoute  map[string]Counters
	byClient map[domain.ClientID]Counters

	trackClients bool
}

type MemoryStatsOption func(*MemoryStatsStore)

func WithTrackClients(track bool) MemoryStatsOption {
	return func(s *MemoryStatsStore) { s.trackClients = track }
}

func NewMemoryStatsStore(opts ...MemoryStatsOption) *MemoryStatsStore {
	s := &MemoryStatsStore{
		byRoute:  make(map[string]Counters),
		byClient: make(map[domain.ClientID]Counters),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	route := ev.Method + " " + ev.Path

	s.mu.Lock()
	defer s.mu.Unlock()

	s.total.add(ev.Outcome)

	c := s.byRoute[route]
	c.add(ev.Outcome)
	s.byRoute[route] = c

	if s.trackClients {
		k := s.byClient[ev.Client]
		k.add(ev.Outcome)
		s.byClient[ev.Client] = k
	}
	return nil
}

func (s *MemoryStatsStore) Total() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

func (s *MemoryStatsStore) ByRoute() map[string]Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Counters, len(s.byRoute))
	for k, v := range s.byRoute {
		out[k] = v
	}
	return out
}

func (s *MemoryStatsStore) ByClient() map[domain.ClientID]Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[domain.ClientID]Counters, len(s.byClient))
	for k, v := range s.byClient {
		out[k] = v
	}
	return out
}
