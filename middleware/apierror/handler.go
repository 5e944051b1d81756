package apierror

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog"
)

// Translator é o último ponto antes da resposta sair: converte erros devolvidos
// pelos handlers e panics em envelopes.
type Translator struct {
	Logger zerolog.Logger
}

// Handle escreve a resposta de erro e loga conforme a categoria.
func (t Translator) Handle(w http.ResponseWriter, r *http.Request, err error) {
	cat, status, env := Classify(err)

	ev := t.Logger.Debug()
	if cat == CategoryUnexpected {
		ev = t.Logger.Error()
	}
	ev.Err(err).
		Str("category", cat.String()).
		Int("status", status).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Msg("request failed")

	WriteEnvelope(w, status, env)
}

// Wrap adapta um HandlerFunc para http.Handler usando este tradutor.
func (t Translator) Wrap(fn HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			t.Handle(w, r, err)
		}
	})
}

// Recover transforma panics do restante da cadeia em UnexpectedFailure (500).
func (t Translator) Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			t.Logger.Error().
				Str("path", r.URL.Path).
				Str("method", r.Method).
				Str("stack", string(debug.Stack())).
				Msg("panic recovered")

			err, ok := rec.(error)
			if !ok {
				err = fmt.Errorf("%v", rec)
			}
			t.Handle(w, r, err)
		}()

		next.ServeHTTP(w, r)
	})
}

// HandlerFunc é um handler que devolve erro em vez de escrever a falha.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error
