package application

import (
	"context"
	"errors"
	"time"

	"devtools-api/middleware/admission/domain"
)

// ErrNoSlot indica que o AcquireTimeout estourou sem vaga livre.
var ErrNoSlot = errors.New("no in-flight slot available")

// ConcurrencyService concentra a regra de aquisição/liberação de vagas em voo,
// sem saber nada sobre HTTP.
type ConcurrencyService struct {
	Pool           domain.SlotPool
	AcquireTimeout time.Duration
}

// Acquire tenta adquirir uma vaga.
//   - Sem Pool, libera sempre (limite desligado).
//   - Com AcquireTimeout > 0, desiste depois do timeout com ErrNoSlot.
//   - Se o ctx da requisição encerrar antes, devolve o erro do ctx: o cliente
//     foi embora e não há a quem responder.
func (s ConcurrencyService) Acquire(ctx context.Context) (func(), error) {
	if s.Pool == nil {
		return func() {}, nil
	}
	if s.AcquireTimeout <= 0 {
		return s.Pool.Acquire(ctx)
	}

	acqCtx, cancel := context.WithTimeout(ctx, s.AcquireTimeout)
	defer cancel()
	release, err := s.Pool.Acquire(acqCtx)
	if err != nil && ctx.Err() == nil {
		return nil, ErrNoSlot
	}
	return release, err
}
