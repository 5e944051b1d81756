// Package server monta o http.Server da API com a cadeia de middlewares e,
// opcionalmente, um listener separado para /metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"devtools-api/internal/config"
	"devtools-api/internal/handlers"
	"devtools-api/middleware/admission"
	"devtools-api/middleware/admission/domain"
	"devtools-api/middleware/admission/infra"
	"devtools-api/middleware/apierror"
)

// Deps são os colaboradores já construídos pelo processo.
type Deps struct {
	Logger      zerolog.Logger
	Credentials domain.CredentialStore
	Windows     domain.ClientStateCache
	Stats       domain.StatsStore
	Access      domain.AccessLogger
	Rates       handlers.RateSource
	Gatherer    prometheus.Gatherer
	Metrics     prometheus.Registerer
	Now         func() time.Time
}

type Server struct {
	api             *http.Server
	metrics         *http.Server
	handler         http.Handler
	logger          zerolog.Logger
	shutdownTimeout time.Duration
}

// New monta a cadeia:
//
//	RequestID -> admissão (gate, limite de concorrência) -> Recover -> router
func New(cfg config.Config, deps Deps) *Server {
	tr := apierror.Translator{Logger: deps.Logger}

	router := chi.NewRouter()
	(&handlers.Handlers{Rates: deps.Rates, Now: deps.Now}).Register(router, tr)

	conc := admission.ConcurrencyOptions{
		Max:            cfg.ConcurrencyMax,
		AcquireTimeout: cfg.ConcurrencyTimeout,
	}
	if cfg.ConcurrencyMax > 0 {
		pool := infra.NewChanPool(cfg.ConcurrencyMax)
		conc.Pool = pool
		if deps.Metrics != nil {
			err := deps.Metrics.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Name: "admission_inflight_requests",
				Help: "Requests currently holding an in-flight slot.",
			}, func() float64 { return float64(pool.InUse()) }))
			if err != nil {
				deps.Logger.Warn().Err(err).Msg("inflight gauge not registered")
			}
		}
	}

	h := tr.Recover(router)
	h = admission.Middleware(admission.Options{
		Credentials:         deps.Credentials,
		Windows:             deps.Windows,
		Limit:               cfg.RateLimit,
		Window:              cfg.RateLimitWindow,
		Stats:               deps.Stats,
		Access:              deps.Access,
		Logger:              deps.Logger,
		KeyHeader:           cfg.ClientKeyHeader,
		TrustXForwardedFor:  cfg.TrustXFF,
		AddRateLimitHeaders: cfg.AddRateLimitHeaders,
		Concurrency:         conc,
		Now:                 deps.Now,
	})(h)
	h = RequestID(h)

	s := &Server{
		handler:         h,
		logger:          deps.Logger,
		shutdownTimeout: cfg.ShutdownTimeout,
		api: &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           h,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       90 * time.Second,
		},
	}

	if cfg.MetricsAddr != "" {
		gatherer := deps.Gatherer
		if gatherer == nil {
			gatherer = prometheus.DefaultGatherer
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
		s.metrics = &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
	}
	if s.shutdownTimeout <= 0 {
		s.shutdownTimeout = 10 * time.Second
	}
	return s
}

// Handler expõe a cadeia completa para testes.
func (s *Server) Handler() http.Handler { return s.handler }

// Run abre os listeners configurados e serve até ctx ser cancelado.
func (s *Server) Run(ctx context.Context) error {
	apiLn, err := net.Listen("tcp", s.api.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.api.Addr, err)
	}

	var metricsLn net.Listener
	if s.metrics != nil {
		metricsLn, err = net.Listen("tcp", s.metrics.Addr)
		if err != nil {
			_ = apiLn.Close()
			return fmt.Errorf("listen metrics %s: %w", s.metrics.Addr, err)
		}
	}
	return s.Serve(ctx, apiLn, metricsLn)
}

// Serve atende nos listeners dados. metricsLn pode ser nil.
// Ao cancelar ctx, encerra os dois servidores dentro do shutdown timeout.
func (s *Server) Serve(ctx context.Context, apiLn, metricsLn net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	s.logger.Info().Str("addr", apiLn.Addr().String()).Msg("api listening")
	g.Go(func() error { return serve(s.api, apiLn) })

	if s.metrics != nil && metricsLn != nil {
		s.logger.Info().Str("addr", metricsLn.Addr().String()).Msg("metrics listening")
		g.Go(func() error { return serve(s.metrics, metricsLn) })
	}

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info().Dur("timeout", s.shutdownTimeout).Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()

		errs := []error{s.api.Shutdown(shutdownCtx)}
		if s.metrics != nil {
			errs = append(errs, s.metrics.Shutdown(shutdownCtx))
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}

func serve(srv *http.Server, ln net.Listener) error {
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve %s: %w", ln.Addr(), err)
	}
	return nil
}
