// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
// Exemplos:
//   - WindowCache: janela deslizante por cliente sobre um LRU com TTL
//   - StaticCredentials: conjunto imutável de API keys
//   - Memory/Redis/PrometheusStatsStore: estatísticas best-effort das decisões
//   - ChanPool: semáforo simples para limite de concorrência
package infra
