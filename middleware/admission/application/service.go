package application

import (
	"time"

	"devtools-api/middleware/admission/domain"
)

// Service concentra a regra de admissão.
//
// Ele não sabe nada sobre HTTP (headers/status), apenas retorna uma decisão.
// Ordem fixa: credencial primeiro, janela depois. Requisição sem credencial
// válida nunca toca o cache de janelas.
type Service struct {
	Credentials domain.CredentialStore
	Windows     domain.ClientStateCache

	Limit  int
	Window time.Duration

	// Now permite injetar o relógio nos testes.
	Now func() time.Time
}

func (s Service) Decide(apiKey string, client domain.ClientID) domain.Decision {
	// fail-closed: sem store de credenciais ninguém entra
	if s.Credentials == nil || apiKey == "" || !s.Credentials.IsValid(apiKey) {
		return domain.Decision{Outcome: domain.RejectUnauthenticated}
	}
	if s.Windows == nil {
		return domain.Decision{Outcome: domain.Allow}
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return s.Windows.RecordAndCheck(client, now(), s.Window, s.Limit)
}
