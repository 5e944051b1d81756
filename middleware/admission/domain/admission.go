package domain

// Camada de domínio da admissão.
//
// Regras e contratos (interfaces/tipos) sem dependência de net/http.

import "time"

// ClientID identifica o cliente para fins de justiça do rate limit (ex: IP de origem).
// Não é fronteira de segurança: quem autentica é a API key.
type ClientID string

// Outcome é o resultado da admissão de uma requisição.
type Outcome int

const (
	Allow Outcome = iota
	RejectUnauthenticated
	RejectRateLimited
)

func (o Outcome) String() string {
	switch o {
	case Allow:
		return "allowed"
	case RejectUnauthenticated:
		return "unauthenticated"
	case RejectRateLimited:
		return "rate_limited"
	default:
		return "unknown"
	}
}

// Decision é derivada a cada requisição e nunca armazenada.
type Decision struct {
	Outcome Outcome

	// Limit e Remaining só fazem sentido quando o cache de janelas foi consultado.
	Limit     int
	Remaining int

	// RetryAfter é o tempo até o timestamp mais antigo sair da janela.
	// Só é preenchido em RejectRateLimited.
	RetryAfter time.Duration
}

func (d Decision) Allowed() bool { return d.Outcome == Allow }

// CredentialStore responde se uma API key é válida.
// É carregado uma vez no start e não tem API de mutação.
type CredentialStore interface {
	IsValid(key string) bool
}

// ClientStateCache guarda, por cliente, os timestamps das requisições aceitas
// dentro da janela deslizante.
//
// RecordAndCheck é a única operação de escrita e deve ser atômica por cliente:
// poda os timestamps mais antigos que now-window, rejeita se o que sobrou já
// atingiu max, senão adiciona now e permite.
type ClientStateCache interface {
	RecordAndCheck(id ClientID, now time.Time, window time.Duration, max int) Decision
}

// AccessLogger registra a entrada e a saída de cada requisição.
// Fire-and-forget: falha do sink nunca pode derrubar a requisição.
type AccessLogger interface {
	LogRequest(id ClientID, path string)
	LogResponse(id ClientID, path string, status int)
}
