package admission

import (
	"errors"
	"net/http"
	"time"

	"devtools-api/middleware/admission/application"
	"devtools-api/middleware/admission/domain"
	"devtools-api/middleware/admission/infra"
)

const MsgTooManyInFlight = "Service unavailable. Too many concurrent requests."

type ConcurrencyOptions struct {
	Max            int
	RejectStatus   int
	AcquireTimeout time.Duration

	// Pool substitui o semáforo padrão (NewChanPool(Max)), por exemplo para
	// expor InUse como métrica.
	Pool domain.SlotPool
}

func (o ConcurrencyOptions) enabled() bool { return o.Pool != nil || o.Max > 0 }

// ConcurrencyStage limita requisições em voo. Roda depois do gate, então a
// linha de entrada do access log já foi escrita quando ela rejeita.
//
// Sem vaga dentro do AcquireTimeout rejeita com 503. Se o cliente desistiu
// enquanto esperava, encerra sem escrever nada. A vaga é devolvida quando o
// handler termina (ou quando uma etapa seguinte rejeita).
type ConcurrencyStage struct {
	svc    application.ConcurrencyService
	status int
}

// NewConcurrencyStage devolve nil quando o limite está desligado.
func NewConcurrencyStage(opts ConcurrencyOptions) *ConcurrencyStage {
	if !opts.enabled() {
		return nil
	}
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusServiceUnavailable
	}
	pool := opts.Pool
	if pool == nil {
		pool = infra.NewChanPool(opts.Max)
	}
	return &ConcurrencyStage{
		svc: application.ConcurrencyService{
			Pool:           pool,
			AcquireTimeout: opts.AcquireTimeout,
		},
		status: opts.RejectStatus,
	}
}

// Admit implementa Stage.
func (s *ConcurrencyStage) Admit(w http.ResponseWriter, r *http.Request, client domain.ClientID) (*http.Request, *Rejection) {
	release, err := s.svc.Acquire(r.Context())
	if err != nil {
		if errors.Is(err, application.ErrNoSlot) {
			return nil, &Rejection{Status: s.status, Message: MsgTooManyInFlight}
		}
		return nil, &Rejection{}
	}
	if !AfterHandler(r, release) {
		// fora de um Pipeline não há onde segurar a vaga
		release()
	}
	return r, nil
}
