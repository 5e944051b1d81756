package handlers

import (
	"errors"
	"math"
	"net/http"

	"devtools-api/internal/exchange"
	"devtools-api/middleware/apierror"
)

type currencyQuery struct {
	Amount       float64 `query:"amount"`
	FromCurrency string  `query:"from_currency" validate:"max=8"`
	ToCurrency   string  `query:"to_currency" validate:"max=8"`
}

type currencyResponse struct {
	Result float64 `json:"result"`
	Rate   float64 `json:"rate"`
}

func (h *Handlers) ConvertCurrency(w http.ResponseWriter, r *http.Request) error {
	var q currencyQuery
	if err := bindQuery(r, &q); err != nil {
		return err
	}
	if h.Rates == nil {
		return apierror.Explicit(http.StatusServiceUnavailable, "Currency conversion is not configured.")
	}

	rate, err := h.Rates.Rate(r.Context(), q.FromCurrency, q.ToCurrency)
	switch {
	case errors.Is(err, exchange.ErrUnknownCurrency):
		return apierror.Explicitf(http.StatusBadRequest, "Conversion from %s to %s is not supported.", q.FromCurrency, q.ToCurrency)
	case errors.Is(err, exchange.ErrProviderUnavailable):
		return apierror.Explicit(http.StatusBadGateway, "Exchange rate provider unavailable.")
	case err != nil:
		return err
	}

	result := q.Amount * rate
	if math.IsNaN(result) || math.IsInf(result, 0) {
		return apierror.Explicit(http.StatusBadRequest, msgNotFinite)
	}
	return apierror.WriteJSON(w, http.StatusOK, currencyResponse{Result: result, Rate: rate})
}
