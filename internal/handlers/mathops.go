package handlers

import (
	"encoding/json"
	"math"
	"math/big"
	"net/http"

	"devtools-api/middleware/apierror"
)

type operandsQuery struct {
	A float64 `query:"a"`
	B float64 `query:"b"`
}

func (h *Handlers) Addition(w http.ResponseWriter, r *http.Request) error {
	return h.binary(w, r, func(a, b float64) (float64, error) { return a + b, nil })
}

func (h *Handlers) Subtraction(w http.ResponseWriter, r *http.Request) error {
	return h.binary(w, r, func(a, b float64) (float64, error) { return a - b, nil })
}

func (h *Handlers) Multiplication(w http.ResponseWriter, r *http.Request) error {
	return h.binary(w, r, func(a, b float64) (float64, error) { return a * b, nil })
}

func (h *Handlers) Division(w http.ResponseWriter, r *http.Request) error {
	return h.binary(w, r, func(a, b float64) (float64, error) {
		if b == 0 {
			return 0, apierror.Explicit(http.StatusBadRequest, "Cannot divide by zero")
		}
		return a / b, nil
	})
}

func (h *Handlers) binary(w http.ResponseWriter, r *http.Request, op func(a, b float64) (float64, error)) error {
	var q operandsQuery
	if err := bindQuery(r, &q); err != nil {
		return err
	}
	v, err := op(q.A, q.B)
	if err != nil {
		return err
	}
	return writeResult(w, v)
}

type powQuery struct {
	Base     float64 `query:"base"`
	Exponent float64 `query:"exponent"`
}

func (h *Handlers) Exponentiation(w http.ResponseWriter, r *http.Request) error {
	var q powQuery
	if err := bindQuery(r, &q); err != nil {
		return err
	}
	return writeResult(w, math.Pow(q.Base, q.Exponent))
}

type valueQuery struct {
	Value float64 `query:"value"`
}

func (h *Handlers) SquareRoot(w http.ResponseWriter, r *http.Request) error {
	var q valueQuery
	if err := bindQuery(r, &q); err != nil {
		return err
	}
	if q.Value < 0 {
		return apierror.Explicit(http.StatusBadRequest, "Cannot calculate the square root of a negative number")
	}
	return writeResult(w, math.Sqrt(q.Value))
}

type factorialQuery struct {
	Value int `query:"value" validate:"max=1000"`
}

type factorialResponse struct {
	Result json.Number `json:"result"`
}

// Factorial devolve o valor exato (inteiro de precisão arbitrária) como número JSON.
func (h *Handlers) Factorial(w http.ResponseWriter, r *http.Request) error {
	var q factorialQuery
	if err := bindQuery(r, &q); err != nil {
		return err
	}
	if q.Value < 0 {
		return apierror.Explicit(http.StatusBadRequest, "Cannot calculate the factorial of a negative number")
	}
	n := new(big.Int).MulRange(1, int64(q.Value))
	return apierror.WriteJSON(w, http.StatusOK, factorialResponse{Result: json.Number(n.String())})
}

type logQuery struct {
	Value float64 `query:"value"`
	Base  float64 `query:"base" default:"10"`
}

func (h *Handlers) Logarithm(w http.ResponseWriter, r *http.Request) error {
	var q logQuery
	if err := bindQuery(r, &q); err != nil {
		return err
	}
	if q.Value <= 0 {
		return apierror.Explicit(http.StatusBadRequest, "Logarithm is not defined for non-positive numbers")
	}
	if q.Base <= 0 || q.Base == 1 {
		return apierror.Explicit(http.StatusBadRequest, "Logarithm base must be positive and different from 1")
	}
	return writeResult(w, math.Log(q.Value)/math.Log(q.Base))
}

type trigQuery struct {
	Function string  `query:"function"`
	Angle    float64 `query:"angle"`
}

var trigFunctions = map[string]func(float64) float64{
	"sin": math.Sin,
	"cos": math.Cos,
	"tan": math.Tan,
}

// Trigonometry recebe o ângulo em graus.
func (h *Handlers) Trigonometry(w http.ResponseWriter, r *http.Request) error {
	var q trigQuery
	if err := bindQuery(r, &q); err != nil {
		return err
	}
	fn, ok := trigFunctions[q.Function]
	if !ok {
		return apierror.Explicit(http.StatusBadRequest, "Unsupported trigonometric function")
	}
	return writeResult(w, fn(q.Angle*math.Pi/180))
}
