// Package exchange busca cotações de câmbio num provedor HTTP externo
// (formato {"base": "USD", "rates": {"EUR": 0.92, ...}}) com cache e throttle de saída.
package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

var (
	ErrUnknownCurrency     = errors.New("exchange: unknown currency")
	ErrProviderUnavailable = errors.New("exchange: provider unavailable")
)

// Rates é a tabela de cotações de uma moeda base.
type Rates struct {
	Base  string             `json:"base"`
	Rates map[string]float64 `json:"rates"`
}

// Cache guarda tabelas por moeda base. Falhas do backend viram miss.
type Cache interface {
	Get(base string) (Rates, bool)
	Set(base string, r Rates)
}

// Client implementa a busca com cache.
//
// Buscas concorrentes da mesma base são coalescidas (singleflight) e o número de
// chamadas ao provedor é limitado por um token bucket.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	cache   Cache
	group   singleflight.Group
	logger  zerolog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithCache(cache Cache) Option {
	return func(c *Client) { c.cache = cache }
}

// WithLimit limita as chamadas ao provedor. rps <= 0 desliga o limite.
func WithLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New cria o cliente. Sem WithCache usa um MemoryCache próprio.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 5 * time.Second},
		limiter: rate.NewLimiter(5, 5),
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cache == nil {
		c.cache = NewMemoryCache(64, time.Hour)
	}
	return c
}

// Rate devolve quantas unidades de `to` vale uma unidade de `from`.
func (c *Client) Rate(ctx context.Context, from, to string) (float64, error) {
	from = normalize(from)
	to = normalize(to)
	for _, code := range []string{from, to} {
		if !validCode(code) {
			return 0, fmt.Errorf("%w: %q", ErrUnknownCurrency, code)
		}
	}

	// mesmo com from == to a base precisa existir no provedor
	table, err := c.Rates(ctx, from)
	if err != nil {
		return 0, err
	}
	if from == to {
		return 1, nil
	}
	r, ok := table.Rates[to]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownCurrency, to)
	}
	return r, nil
}

// Rates devolve a tabela da base, do cache quando possível.
func (c *Client) Rates(ctx context.Context, base string) (Rates, error) {
	base = normalize(base)
	if cached, ok := c.cache.Get(base); ok {
		return cached, nil
	}

	// A busca compartilhada não herda o cancelamento de quem chegou primeiro:
	// os outros que esperam na mesma chave ainda estão vivos.
	ch := c.group.DoChan(base, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.flightTimeout())
		defer cancel()
		table, err := c.fetch(fctx, base)
		if err != nil {
			return Rates{}, err
		}
		c.cache.Set(base, table)
		return table, nil
	})

	select {
	case res := <-ch:
		if res.Shared {
			c.logger.Debug().Str("base", base).Msg("exchange fetch shared")
		}
		if res.Err != nil {
			return Rates{}, res.Err
		}
		return res.Val.(Rates), nil
	case <-ctx.Done():
		return Rates{}, fmt.Errorf("exchange: %w", ctx.Err())
	}
}

func (c *Client) flightTimeout() time.Duration {
	if c.http.Timeout > 0 {
		return c.http.Timeout
	}
	return 10 * time.Second
}

func (c *Client) fetch(ctx context.Context, base string) (Rates, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return Rates{}, fmt.Errorf("%w: throttled: %v", ErrProviderUnavailable, err)
		}
	}

	u := c.baseURL + "?from=" + url.QueryEscape(base)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Rates{}, fmt.Errorf("exchange: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Str("base", base).Msg("exchange provider request failed")
		return Rates{}, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusUnprocessableEntity:
		return Rates{}, fmt.Errorf("%w: %s", ErrUnknownCurrency, base)
	case resp.StatusCode != http.StatusOK:
		c.logger.Warn().Int("status", resp.StatusCode).Str("base", base).Msg("exchange provider returned error")
		return Rates{}, fmt.Errorf("%w: status %d", ErrProviderUnavailable, resp.StatusCode)
	}

	var table Rates
	if err := json.NewDecoder(resp.Body).Decode(&table); err != nil {
		return Rates{}, fmt.Errorf("%w: decode: %v", ErrProviderUnavailable, err)
	}
	if table.Base == "" {
		table.Base = base
	}
	if table.Rates == nil {
		table.Rates = map[string]float64{}
	}
	return table, nil
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// validCode aceita códigos ISO 4217 já normalizados: três letras A-Z.
func validCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < 'A' || code[i] > 'Z' {
			return false
		}
	}
	return true
}
