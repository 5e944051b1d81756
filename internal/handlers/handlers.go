// Package handlers implementa os endpoints utilitários (conversões, texto, matemática
// e data/hora). Todos são GET com parâmetros na query string e devolvem erro em vez
// de escrever a falha: quem monta a resposta de erro é o apierror.Translator.
package handlers

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"devtools-api/middleware/apierror"
)

// RateSource fornece cotações de câmbio.
type RateSource interface {
	Rate(ctx context.Context, from, to string) (float64, error)
}

type Handlers struct {
	Rates RateSource
	Now   func() time.Time
}

const msgNotFinite = "Result is not a finite number"

// Register pendura as rotas no router.
func (h *Handlers) Register(r chi.Router, tr apierror.Translator) {
	r.NotFound(tr.Wrap(func(w http.ResponseWriter, r *http.Request) error {
		return apierror.Explicit(http.StatusNotFound, "Not Found")
	}).ServeHTTP)
	r.MethodNotAllowed(tr.Wrap(func(w http.ResponseWriter, r *http.Request) error {
		return apierror.Explicit(http.StatusMethodNotAllowed, "Method Not Allowed")
	}).ServeHTTP)

	r.Method(http.MethodGet, "/convert/units", tr.Wrap(h.ConvertUnits))
	r.Method(http.MethodGet, "/convert/currency", tr.Wrap(h.ConvertCurrency))

	r.Route("/process/text", func(r chi.Router) {
		r.Method(http.MethodGet, "/wordcount", tr.Wrap(h.WordCount))
		r.Method(http.MethodGet, "/charcount", tr.Wrap(h.CharCount))
		r.Method(http.MethodGet, "/reverse", tr.Wrap(h.Reverse))
		r.Method(http.MethodGet, "/replace", tr.Wrap(h.Replace))
		r.Method(http.MethodGet, "/capitalize", tr.Wrap(h.Capitalize))
		r.Method(http.MethodGet, "/length", tr.Wrap(h.Length))
		r.Method(http.MethodGet, "/uppercase", tr.Wrap(h.Uppercase))
		r.Method(http.MethodGet, "/lowercase", tr.Wrap(h.Lowercase))
		r.Method(http.MethodGet, "/palindrome", tr.Wrap(h.Palindrome))
	})

	r.Route("/math", func(r chi.Router) {
		r.Method(http.MethodGet, "/addition", tr.Wrap(h.Addition))
		r.Method(http.MethodGet, "/subtraction", tr.Wrap(h.Subtraction))
		r.Method(http.MethodGet, "/multiplication", tr.Wrap(h.Multiplication))
		r.Method(http.MethodGet, "/division", tr.Wrap(h.Division))
		r.Method(http.MethodGet, "/exponentiation", tr.Wrap(h.Exponentiation))
		r.Method(http.MethodGet, "/squareroot", tr.Wrap(h.SquareRoot))
		r.Method(http.MethodGet, "/factorial", tr.Wrap(h.Factorial))
		r.Method(http.MethodGet, "/logarithm", tr.Wrap(h.Logarithm))
		r.Method(http.MethodGet, "/trigonometry", tr.Wrap(h.Trigonometry))
	})

	r.Route("/datetime", func(r chi.Router) {
		r.Method(http.MethodGet, "/format", tr.Wrap(h.FormatDate))
		r.Method(http.MethodGet, "/now", tr.Wrap(h.CurrentDateTime))
		r.Method(http.MethodGet, "/convert_timezone", tr.Wrap(h.ConvertTimezone))
	})

}

func (h *Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

type resultResponse struct {
	Result float64 `json:"result"`
}

// writeResult rejeita NaN/Inf, que não têm representação em JSON.
func writeResult(w http.ResponseWriter, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return apierror.Explicit(http.StatusBadRequest, msgNotFinite)
	}
	return apierror.WriteJSON(w, http.StatusOK, resultResponse{Result: v})
}
