package exchange

import (
	"encoding/json"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"
)

// MemoryCache é o cache em processo (LRU com TTL).
type MemoryCache struct {
	lru *expirable.LRU[string, Rates]
}

// NewMemoryCache cria o cache em processo. Cada instância carrega a goroutine de
// limpeza do LRU expirável, que vive até o fim do processo: compartilhe uma só.
func NewMemoryCache(size int, ttl time.Duration) *MemoryCache {
	if size <= 0 {
		size = 64
	}
	return &MemoryCache{lru: expirable.NewLRU[string, Rates](size, nil, ttl)}
}

func (m *MemoryCache) Get(base string) (Rates, bool) { return m.lru.Get(base) }

func (m *MemoryCache) Set(base string, r Rates) { m.lru.Add(base, r) }

// MemcacheClient é o subconjunto de *memcache.Client usado aqui.
type MemcacheClient interface {
	Get(key string) (*memcache.Item, error)
	Set(item *memcache.Item) error
}

// MemcacheCache compartilha as cotações entre réplicas via memcached.
type MemcacheCache struct {
	client MemcacheClient
	ttl    time.Duration
	prefix string
	logger zerolog.Logger
}

func NewMemcacheCache(client MemcacheClient, ttl time.Duration, logger zerolog.Logger) *MemcacheCache {
	return &MemcacheCache{client: client, ttl: ttl, prefix: "exchange:rates:", logger: logger}
}

func (m *MemcacheCache) Get(base string) (Rates, bool) {
	item, err := m.client.Get(m.prefix + base)
	if err != nil {
		if err != memcache.ErrCacheMiss {
			m.logger.Warn().Err(err).Str("base", base).Msg("memcache get failed")
		}
		return Rates{}, false
	}
	var r Rates
	if err := json.Unmarshal(item.Value, &r); err != nil {
		m.logger.Warn().Err(err).Str("base", base).Msg("memcache entry corrupted")
		return Rates{}, false
	}
	return r, true
}

func (m *MemcacheCache) Set(base string, r Rates) {
	body, err := json.Marshal(r)
	if err != nil {
		return
	}
	err = m.client.Set(&memcache.Item{
		Key:        m.prefix + base,
		Value:      body,
		Expiration: int32(m.ttl / time.Second),
	})
	if err != nil {
		m.logger.Warn().Err(err).Str("base", base).Msg("memcache set failed")
	}
}
