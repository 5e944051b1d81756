// Package application contém os casos de uso da admissão: autenticação + rate limit
// e limite de concorrência.
//
// Ele depende apenas do pacote domain e não conhece net/http.
// Ex.: Service.Decide(apiKey, client) retorna uma domain.Decision
// (Allow | RejectUnauthenticated | RejectRateLimited).
package application
