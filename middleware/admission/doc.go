// Package admission fornece o pipeline HTTP (net/http) de admissão: autenticação por
// API key, rate limit por cliente em janela deslizante, access log e limite de
// concorrência.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem dependência de net/http)
//   - application: casos de uso (decisão allow/deny, acquire/timeout) sem net/http
//   - infra: implementações concretas (cache de janelas, credenciais, stats, semáforo)
//   - admission (este pacote): Pipeline, Gate, extração de chave + tradução para status/headers
//
// Fluxo por requisição:
//
//  1. Extrai a identidade do cliente (header/XFF/RemoteAddr) e loga a entrada
//  2. Roda as etapas em ordem; o Gate vem primeiro
//  3. Sem X-Api-Key válida responde 401, janela cheia responde 429 (com Retry-After)
//  4. Sem vaga em voo (se o limite estiver ligado) responde 503
//  5. Se permitido, chama o próximo handler e loga a saída com o status
//  6. Funções agendadas com AfterHandler rodam por último (ex: devolver a vaga)
package admission
