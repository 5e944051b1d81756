// Package apierror traduz falhas em respostas JSON no envelope único da API:
//
//	{"error": "<mensagem>", "details": <opcional>}
//
// Três categorias disjuntas, checadas nesta ordem (a mais específica vence):
//
//   - ExplicitError: o handler escolheu status e mensagem (ex: 400 conversão não suportada)
//   - ValidationError: parâmetros de entrada inválidos, sempre 422
//   - qualquer outro erro ou panic: 500 "Internal server error"
//
// Rejeições da admissão (401/429) são resolvidas no próprio gate e só usam
// WriteEnvelope para manter o mesmo formato.
package apierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const (
	MsgValidation = "Validation error"
	MsgInternal   = "Internal server error"
)

// Envelope é o único formato de corpo para respostas não-2xx.
type Envelope struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// ExplicitError é uma falha sinalizada de propósito pelo handler.
type ExplicitError struct {
	Status  int
	Message string
}

func (e *ExplicitError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

// Explicit cria uma falha com status e mensagem repassados sem alteração.
func Explicit(status int, message string) error {
	return &ExplicitError{Status: status, Message: message}
}

// Explicitf é Explicit com mensagem formatada.
func Explicitf(status int, format string, args ...any) error {
	return &ExplicitError{Status: status, Message: fmt.Sprintf(format, args...)}
}

// FieldError descreve um parâmetro inválido no formato loc/msg/type.
type FieldError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// ValidationError junta todos os parâmetros inválidos de uma requisição.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, strings.Join(f.Loc, ".")+": "+f.Msg)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Category é a classe de falha decidida por Classify.
type Category int

const (
	CategoryExplicit Category = iota + 1
	CategoryValidation
	CategoryUnexpected
)

func (c Category) String() string {
	switch c {
	case CategoryExplicit:
		return "explicit"
	case CategoryValidation:
		return "validation"
	default:
		return "unexpected"
	}
}

// Classify decide status e envelope de um erro. Nunca entra em pânico:
// err nil vira 500 também, porque não deveria ter chegado aqui.
func Classify(err error) (Category, int, Envelope) {
	var explicit *ExplicitError
	if errors.As(err, &explicit) && explicit != nil {
		status := explicit.Status
		if status < 400 || status > 599 {
			status = http.StatusInternalServerError
		}
		return CategoryExplicit, status, Envelope{Error: explicit.Message}
	}

	var validation *ValidationError
	if errors.As(err, &validation) && validation != nil {
		fields := validation.Fields
		if fields == nil {
			fields = []FieldError{}
		}
		return CategoryValidation, http.StatusUnprocessableEntity, Envelope{Error: MsgValidation, Details: fields}
	}

	detail := "unknown error"
	if err != nil {
		detail = err.Error()
	}
	return CategoryUnexpected, http.StatusInternalServerError, Envelope{Error: MsgInternal, Details: detail}
}

// WriteEnvelope escreve o envelope com o status dado.
func WriteEnvelope(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

// WriteJSON escreve respostas de sucesso. Se a codificação falhar nada foi enviado
// ainda, então o erro volta para o chamador virar 500.
func WriteJSON(w http.ResponseWriter, status int, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
	return nil
}
