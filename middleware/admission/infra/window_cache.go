package infra

import (
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"devtools-api/middleware/admission/domain"
)

const defaultLockStripes = 64

// WindowCache é o cache de estado por cliente do rate limit (janela deslizante).
//
// Duas políticas de remoção convivem:
//   - TTL desde a última escrita: cliente que some é expirado pelo próprio LRU
//   - LRU sob pressão: com o cache cheio, o cliente menos recente sai primeiro
//
// A mutação por cliente é serializada por lock striping: o hash da chave escolhe
// um de N mutexes, então clientes diferentes quase nunca disputam o mesmo lock.
type WindowCache struct {
	entries *expirable.LRU[domain.ClientID, []time.Time]
	stripes []sync.Mutex
	onEvict func(domain.ClientID)
}

type WindowCacheOption func(*windowCacheConfig)

type windowCacheConfig struct {
	stripes int
	onEvict func(domain.ClientID)
}

// WithLockStripes define quantos mutexes dividem as chaves (padrão 64).
func WithLockStripes(n int) WindowCacheOption {
	return func(c *windowCacheConfig) { c.stripes = n }
}

// WithEvictHook é chamado para toda entrada removida (TTL expirado ou LRU cheio).
// Não pode bloquear: roda com o lock interno do LRU.
func WithEvictHook(fn func(domain.ClientID)) WindowCacheOption {
	return func(c *windowCacheConfig) { c.onEvict = fn }
}

// NewWindowCache cria o cache com capacidade máxima de clientes e TTL por entrada.
// O TTL normalmente é a própria janela do rate limit.
//
// O LRU expirável mantém uma goroutine de limpeza que vive até o fim do processo
// (não há como pará-la): crie um cache por processo e compartilhe.
func NewWindowCache(capacity int, ttl time.Duration, opts ...WindowCacheOption) *WindowCache {
	cfg := windowCacheConfig{stripes: defaultLockStripes}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.stripes <= 0 {
		cfg.stripes = 1
	}
	if capacity <= 0 {
		capacity = 1
	}

	c := &WindowCache{
		stripes: make([]sync.Mutex, cfg.stripes),
		onEvict: cfg.onEvict,
	}
	c.entries = expirable.NewLRU[domain.ClientID, []time.Time](capacity, c.evicted, ttl)
	return c
}

func (c *WindowCache) evicted(id domain.ClientID, _ []time.Time) {
	if c.onEvict != nil {
		c.onEvict(id)
	}
}

func (c *WindowCache) stripe(id domain.ClientID) *sync.Mutex {
	return &c.stripes[xxhash.Sum64String(string(id))%uint64(len(c.stripes))]
}

// RecordAndCheck implementa domain.ClientStateCache.
func (c *WindowCache) RecordAndCheck(id domain.ClientID, now time.Time, window time.Duration, max int) domain.Decision {
	mu := c.stripe(id)
	mu.Lock()
	defer mu.Unlock()

	stamps, _ := c.entries.Get(id)
	stamps = prune(stamps, now.Add(-window))

	if len(stamps) >= max {
		// rejeição não escreve: o TTL continua contando da última requisição aceita
		return domain.Decision{
			Outcome:    domain.RejectRateLimited,
			Limit:      max,
			Remaining:  0,
			RetryAfter: retryAfter(stamps, now, window),
		}
	}

	stamps = append(stamps, now)
	c.entries.Add(id, stamps)

	return domain.Decision{
		Outcome:   domain.Allow,
		Limit:     max,
		Remaining: max - len(stamps),
	}
}

// Peek devolve uma cópia da janela do cliente sem mexer na ordem do LRU.
func (c *WindowCache) Peek(id domain.ClientID) ([]time.Time, bool) {
	mu := c.stripe(id)
	mu.Lock()
	defer mu.Unlock()

	stamps, ok := c.entries.Peek(id)
	if !ok {
		return nil, false
	}
	out := make([]time.Time, len(stamps))
	copy(out, stamps)
	return out, true
}

// Len conta as entradas ainda não expiradas.
func (c *WindowCache) Len() int { return c.entries.Len() }

// prune descarta da esquerda os timestamps anteriores a cutoff.
// A sequência é ordenada por inserção, então basta achar o primeiro que fica.
func prune(stamps []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(stamps) && stamps[i].Before(cutoff) {
		i++
	}
	if i == 0 {
		return stamps
	}
	// copia para não segurar o array antigo para sempre
	kept := make([]time.Time, len(stamps)-i, len(stamps)-i+1)
	copy(kept, stamps[i:])
	return kept
}

func retryAfter(stamps []time.Time, now time.Time, window time.Duration) time.Duration {
	if len(stamps) == 0 {
		return 0
	}
	d := stamps[0].Add(window).Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
