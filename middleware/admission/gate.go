package admission

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"devtools-api/middleware/admission/application"
	"devtools-api/middleware/admission/domain"
)

// APIKeyHeader é o header obrigatório em todos os endpoints.
const APIKeyHeader = "X-Api-Key"

const (
	MsgUnauthorized = "Unauthorized. Valid API key required."
	MsgRateLimited  = "Rate limit exceeded. Try again later."
)

// Options configura o gate de admissão e o pipeline em volta dele.
type Options struct {
	Credentials domain.CredentialStore
	Windows     domain.ClientStateCache
	Limit       int
	Window      time.Duration

	Stats  domain.StatsStore
	Access domain.AccessLogger
	Logger zerolog.Logger

	KeyFn               KeyFunc
	KeyHeader           string
	TrustXForwardedFor  bool
	AddRateLimitHeaders bool

	// Concurrency liga o limite de requisições em voo, logo depois do gate.
	Concurrency ConcurrencyOptions

	// Stages extras, executadas por último.
	Stages []Stage

	Now func() time.Time
}

// Gate é a etapa que autentica pela API key e aplica o rate limit por cliente.
type Gate struct {
	svc        application.Service
	stats      domain.StatsStore
	addHeaders bool
	logger     zerolog.Logger
}

func NewGate(opts Options) *Gate {
	return &Gate{
		svc: application.Service{
			Credentials: opts.Credentials,
			Windows:     opts.Windows,
			Limit:       opts.Limit,
			Window:      opts.Window,
			Now:         opts.Now,
		},
		stats:      opts.Stats,
		addHeaders: opts.AddRateLimitHeaders,
		logger:     opts.Logger,
	}
}

// Admit implementa Stage.
func (g *Gate) Admit(w http.ResponseWriter, r *http.Request, client domain.ClientID) (*http.Request, *Rejection) {
	dec := g.svc.Decide(r.Header.Get(APIKeyHeader), client)
	g.record(r, client, dec)

	if g.addHeaders && dec.Outcome != domain.RejectUnauthenticated {
		w.Header().Set("X-RateLimit-Limit", formatInt(dec.Limit))
		w.Header().Set("X-RateLimit-Remaining", formatInt(dec.Remaining))
	}

	switch dec.Outcome {
	case domain.RejectUnauthenticated:
		return nil, &Rejection{Status: http.StatusUnauthorized, Message: MsgUnauthorized}
	case domain.RejectRateLimited:
		w.Header().Set("Retry-After", formatSeconds(dec.RetryAfter))
		return nil, &Rejection{Status: http.StatusTooManyRequests, Message: MsgRateLimited}
	}
	return r, nil
}

func (g *Gate) record(r *http.Request, client domain.ClientID, dec domain.Decision) {
	if g.stats == nil {
		return
	}
	err := g.stats.Record(r.Context(), domain.StatsEvent{
		Client:  client,
		Outcome: dec.Outcome,
		Method:  r.Method,
		Path:    r.URL.Path,
		At:      g.now(),
	})
	if err != nil {
		g.logger.Warn().Err(err).Str("client", string(client)).Msg("admission stats record failed")
	}
}

func (g *Gate) now() time.Time {
	if g.svc.Now != nil {
		return g.svc.Now()
	}
	return time.Now()
}

// Middleware monta o pipeline de admissão: gate, limite de concorrência (se
// ligado) e depois as etapas extras.
func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc(opts.KeyHeader, opts.TrustXForwardedFor)
	}
	stages := []Stage{NewGate(opts)}
	if cs := NewConcurrencyStage(opts.Concurrency); cs != nil {
		stages = append(stages, cs)
	}
	stages = append(stages, opts.Stages...)

	return func(next http.Handler) http.Handler {
		return &Pipeline{
			KeyFn:  opts.KeyFn,
			Stages: stages,
			Access: opts.Access,
			Next:   next,
		}
	}
}
