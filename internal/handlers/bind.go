package handlers

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"devtools-api/middleware/apierror"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// erros de validação usam o nome do parâmetro, não o do campo Go
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("query"), ",")
		return name
	})
	return v
}

// bindQuery preenche dst (ponteiro para struct) com os parâmetros da query string.
//
// Cada campo declara `query:"nome"` e, se for opcional, `default:"valor"`. Campos
// suportados: string, float64, int e bool. Depois do parse roda o validator com as
// tags `validate`. Qualquer problema vira um único *apierror.ValidationError com
// todos os parâmetros inválidos.
func bindQuery(r *http.Request, dst any) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("bindQuery: dst must be a pointer to struct, got %T", dst)
	}
	rv = rv.Elem()
	rt := rv.Type()
	values := r.URL.Query()

	var fields []apierror.FieldError
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		name, _, _ := strings.Cut(sf.Tag.Get("query"), ",")
		if name == "" {
			continue
		}

		raw, present := values[name]
		var value string
		switch {
		case present && len(raw) > 0:
			value = raw[0]
		default:
			def, ok := sf.Tag.Lookup("default")
			if !ok {
				fields = append(fields, apierror.FieldError{
					Loc:  []string{"query", name},
					Msg:  "field required",
					Type: "value_error.missing",
				})
				continue
			}
			value = def
		}

		if fe, ok := setField(rv.Field(i), name, value); !ok {
			fields = append(fields, fe)
		}
	}
	if len(fields) > 0 {
		return &apierror.ValidationError{Fields: fields}
	}

	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validate %T: %w", dst, err)
		}
		for _, fe := range verrs {
			fields = append(fields, translate(fe))
		}
		return &apierror.ValidationError{Fields: fields}
	}
	return nil
}

func setField(v reflect.Value, name, raw string) (apierror.FieldError, bool) {
	loc := []string{"query", name}

	switch v.Kind() {
	case reflect.String:
		v.SetString(raw)
	case reflect.Float64:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return apierror.FieldError{Loc: loc, Msg: "value is not a valid float", Type: "type_error.float"}, false
		}
		v.SetFloat(f)
	case reflect.Int:
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return apierror.FieldError{Loc: loc, Msg: "value is not a valid integer", Type: "type_error.integer"}, false
		}
		v.SetInt(int64(n))
	case reflect.Bool:
		b, ok := parseBool(raw)
		if !ok {
			return apierror.FieldError{Loc: loc, Msg: "value could not be parsed to a boolean", Type: "type_error.bool"}, false
		}
		v.SetBool(b)
	default:
		panic(fmt.Sprintf("bindQuery: unsupported field kind %s for %q", v.Kind(), name))
	}
	return apierror.FieldError{}, true
}

func parseBool(raw string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "t", "yes", "y", "on":
		return true, true
	case "0", "false", "f", "no", "n", "off":
		return false, true
	}
	return false, false
}

func translate(fe validator.FieldError) apierror.FieldError {
	out := apierror.FieldError{Loc: []string{"query", fe.Field()}}
	isString := fe.Kind() == reflect.String

	switch fe.Tag() {
	case "max":
		if isString {
			out.Msg = fmt.Sprintf("ensure this value has at most %s characters", fe.Param())
			out.Type = "value_error.any_str.max_length"
		} else {
			out.Msg = fmt.Sprintf("ensure this value is less than or equal to %s", fe.Param())
			out.Type = "value_error.number.not_le"
		}
	case "min":
		if isString {
			out.Msg = fmt.Sprintf("ensure this value has at least %s characters", fe.Param())
			out.Type = "value_error.any_str.min_length"
		} else {
			out.Msg = fmt.Sprintf("ensure this value is greater than or equal to %s", fe.Param())
			out.Type = "value_error.number.not_ge"
		}
	default:
		out.Msg = fe.Error()
		out.Type = "value_error." + fe.Tag()
	}
	return out
}
