package admission

import (
	"context"
	"net/http"

	"devtools-api/middleware/admission/domain"
	"devtools-api/middleware/apierror"
)

// Stage é uma etapa de admissão executada antes do handler.
//
// Recebe o par resposta/requisição e devolve a requisição que segue adiante
// (pode ser a mesma, ou uma cópia com contexto novo) ou uma Rejection, que
// encerra o pipeline ali mesmo.
type Stage interface {
	Admit(w http.ResponseWriter, r *http.Request, client domain.ClientID) (*http.Request, *Rejection)
}

// StageFunc adapta uma função para Stage.
type StageFunc func(w http.ResponseWriter, r *http.Request, client domain.ClientID) (*http.Request, *Rejection)

func (f StageFunc) Admit(w http.ResponseWriter, r *http.Request, client domain.ClientID) (*http.Request, *Rejection) {
	return f(w, r, client)
}

// Rejection encerra a requisição com o envelope de erro padrão.
// Status zero encerra sem escrever resposta (o cliente já foi embora).
type Rejection struct {
	Status  int
	Message string
}

// Pipeline roda as etapas em ordem e, se nenhuma rejeitar, chama Next.
//
// Access log: toda requisição gera exatamente uma linha de entrada. A linha de
// saída só existe quando a requisição chegou ao handler e o transporte não a
// cancelou no meio do caminho.
type Pipeline struct {
	KeyFn  KeyFunc
	Stages []Stage
	Access domain.AccessLogger
	Next   http.Handler
}

func (p *Pipeline) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	keyFn := p.KeyFn
	if keyFn == nil {
		keyFn = DefaultKeyFunc("", false)
	}
	access := p.Access
	if access == nil {
		access = nopAccess{}
	}

	client := keyFn(r)
	path := r.URL.Path
	access.LogRequest(client, path)

	after := &afterFuncs{}
	defer after.run()

	ctx := context.WithValue(WithClient(r.Context(), client), afterKey{}, after)
	r = r.WithContext(ctx)
	for _, st := range p.Stages {
		next, rej := st.Admit(w, r, client)
		if rej != nil {
			if rej.Status != 0 {
				apierror.WriteEnvelope(w, rej.Status, apierror.Envelope{Error: rej.Message})
			}
			return
		}
		if next != nil {
			r = next
		}
	}

	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	p.Next.ServeHTTP(rec, r)

	if r.Context().Err() != nil {
		// cancelado pelo transporte: não inventa status para a linha de saída
		return
	}
	access.LogResponse(client, path, rec.status)
}

type afterKey struct{}

type afterFuncs struct {
	fns []func()
}

// run executa na ordem inversa do registro, como defer.
func (a *afterFuncs) run() {
	for i := len(a.fns) - 1; i >= 0; i-- {
		a.fns[i]()
	}
}

// AfterHandler agenda fn para quando o Pipeline terminar a requisição: depois do
// handler, ou logo após a rejeição de uma etapa seguinte. Devolve false se r não
// passou por um Pipeline.
func AfterHandler(r *http.Request, fn func()) bool {
	a, ok := r.Context().Value(afterKey{}).(*afterFuncs)
	if !ok {
		return false
	}
	a.fns = append(a.fns, fn)
	return true
}

type nopAccess struct{}

func (nopAccess) LogRequest(domain.ClientID, string)       {}
func (nopAccess) LogResponse(domain.ClientID, string, int) {}

// statusRecorder guarda o status escrito pelo handler.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (rw *statusRecorder) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.status = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

func (rw *statusRecorder) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *statusRecorder) Unwrap() http.ResponseWriter { return rw.ResponseWriter }

type clientCtxKey struct{}

// WithClient guarda a identidade do cliente no contexto da requisição.
func WithClient(ctx context.Context, id domain.ClientID) context.Context {
	return context.WithValue(ctx, clientCtxKey{}, id)
}

// ClientFromContext devolve a identidade gravada pelo Pipeline.
func ClientFromContext(ctx context.Context) (domain.ClientID, bool) {
	id, ok := ctx.Value(clientCtxKey{}).(domain.ClientID)
	return id, ok
}
