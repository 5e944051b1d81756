package infra

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"devtools-api/middleware/admission/domain"
)

// PrometheusStatsStore expõe as decisões como métricas Prometheus.
// Só o resultado vira label: cliente e path ficariam com cardinalidade aberta.
type PrometheusStatsStore struct {
	decisions *prometheus.CounterVec
	evictions prometheus.Counter
}

// NewPrometheusStatsStore registra as métricas em reg. tracked, se não for nil,
// vira o gauge de clientes acompanhados (normalmente WindowCache.Len).
func NewPrometheusStatsStore(reg prometheus.Registerer, tracked func() int) (*PrometheusStatsStore, error) {
	s := &PrometheusStatsStore{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "admission_decisions_total",
			Help: "Admission decisions by outcome.",
		}, []string{"outcome"}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "admission_client_evictions_total",
			Help: "Client windows removed from the state cache by TTL or LRU pressure.",
		}),
	}

	collectors := []prometheus.Collector{s.decisions, s.evictions}
	if tracked != nil {
		collectors = append(collectors, prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "admission_tracked_clients",
			Help: "Clients currently held in the state cache.",
		}, func() float64 { return float64(tracked()) }))
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	// séries zeradas desde o start, para rate() funcionar na primeira rejeição
	for _, o := range []domain.Outcome{domain.Allow, domain.RejectUnauthenticated, domain.RejectRateLimited} {
		s.decisions.WithLabelValues(o.String())
	}
	return s, nil
}

func (s *PrometheusStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	s.decisions.WithLabelValues(ev.Outcome.String()).Inc()
	return nil
}

// ClientEvicted serve de hook para WithEvictHook do WindowCache.
func (s *PrometheusStatsStore) ClientEvicted(domain.ClientID) {
	s.evictions.Inc()
}
