package domain

import "context"

// SlotPool limita quantas requisições podem estar em voo ao mesmo tempo
// antes de chegarem ao pipeline de admissão.
//
// Acquire bloqueia até conseguir uma vaga ou até o ctx encerrar, e nesse caso
// devolve ctx.Err(). O release devolvido deve ser chamado exatamente uma vez.
type SlotPool interface {
	Acquire(ctx context.Context) (release func(), err error)
	InUse() int
	Cap() int
}
