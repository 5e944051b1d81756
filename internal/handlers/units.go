package handlers

import (
	"net/http"
	"strings"

	"devtools-api/middleware/apierror"
)

type unitPair struct{ from, to string }

var unitConversions = map[unitPair]func(float64) float64{
	// comprimento
	{"meters", "feet"}:        func(v float64) float64 { return v * 3.28084 },
	{"kilometers", "miles"}:   func(v float64) float64 { return v / 1.609 },
	{"inches", "centimeters"}: func(v float64) float64 { return v * 2.54 },
	{"yards", "meters"}:       func(v float64) float64 { return v / 1.094 },

	// massa
	{"kilograms", "pounds"}: func(v float64) float64 { return v * 2.205 },
	{"grams", "ounces"}:     func(v float64) float64 { return v / 28.35 },
	{"pounds", "kilograms"}: func(v float64) float64 { return v / 2.205 },

	// temperatura
	{"celsius", "fahrenheit"}: func(v float64) float64 { return v*9/5 + 32 },
	{"fahrenheit", "celsius"}: func(v float64) float64 { return (v - 32) * 5 / 9 },
	{"kelvin", "celsius"}:     func(v float64) float64 { return v - 273.15 },
	{"celsius", "kelvin"}:     func(v float64) float64 { return v + 273.15 },
	{"fahrenheit", "kelvin"}:  func(v float64) float64 { return (v-32)*5/9 + 273.15 },

	// velocidade
	{"km/h", "mph"}: func(v float64) float64 { return v / 1.609 },
	{"m/s", "km/h"}: func(v float64) float64 { return v * 3.6 },

	// volume
	{"liters", "gallons"}:      func(v float64) float64 { return v / 3.785 },
	{"milliliters", "ounces"}:  func(v float64) float64 { return v / 29.574 },
	{"cubic meters", "liters"}: func(v float64) float64 { return v * 1000 },

	// área
	{"square meters", "square feet"}: func(v float64) float64 { return v * 10.764 },
	{"acres", "square meters"}:       func(v float64) float64 { return v * 4046.86 },
}

type unitsQuery struct {
	Value    float64 `query:"value"`
	FromUnit string  `query:"from_unit"`
	ToUnit   string  `query:"to_unit"`
}

func (h *Handlers) ConvertUnits(w http.ResponseWriter, r *http.Request) error {
	var q unitsQuery
	if err := bindQuery(r, &q); err != nil {
		return err
	}

	conv, ok := unitConversions[unitPair{strings.ToLower(q.FromUnit), strings.ToLower(q.ToUnit)}]
	if !ok {
		return apierror.Explicitf(http.StatusBadRequest, "Conversion from %s to %s is not supported.", q.FromUnit, q.ToUnit)
	}
	return writeResult(w, conv(q.Value))
}
