package handlers

import (
	"net/http"
	"time"
	_ "time/tzdata"

	"github.com/lestrrat-go/strftime"

	"devtools-api/middleware/apierror"
)

// layouts aceitos em /datetime/format, nesta ordem.
var dateLayouts = []string{"2006-01-02", "02-01-2006"}

const dateTimeLayout = "2006-01-02 15:04:05"

type formatQuery struct {
	DateString string `query:"date_string"`
	Format     string `query:"format" default:"%Y-%m-%d" validate:"max=256"`
}

func (h *Handlers) FormatDate(w http.ResponseWriter, r *http.Request) error {
	var q formatQuery
	if err := bindQuery(r, &q); err != nil {
		return err
	}

	var (
		t      time.Time
		parsed bool
	)
	for _, layout := range dateLayouts {
		if v, err := time.Parse(layout, q.DateString); err == nil {
			t, parsed = v, true
			break
		}
	}
	if !parsed {
		return apierror.Explicit(http.StatusBadRequest, "Invalid date format")
	}

	out, err := strftime.Format(q.Format, t)
	if err != nil {
		return apierror.Explicitf(http.StatusBadRequest, "Invalid format string: %s", q.Format)
	}
	return apierror.WriteJSON(w, http.StatusOK, map[string]string{"formatted_date": out})
}

func (h *Handlers) CurrentDateTime(w http.ResponseWriter, r *http.Request) error {
	now := h.now()
	return apierror.WriteJSON(w, http.StatusOK, map[string]string{
		"current_datetime": now.Format("2006-01-02T15:04:05.000000"),
	})
}

type timezoneQuery struct {
	DateString   string `query:"date_string"`
	FromTimezone string `query:"from_timezone"`
	ToTimezone   string `query:"to_timezone"`
}

func (h *Handlers) ConvertTimezone(w http.ResponseWriter, r *http.Request) error {
	var q timezoneQuery
	if err := bindQuery(r, &q); err != nil {
		return err
	}

	from, err := loadLocation(q.FromTimezone)
	if err != nil {
		return err
	}
	to, err := loadLocation(q.ToTimezone)
	if err != nil {
		return err
	}

	t, err := time.ParseInLocation(dateTimeLayout, q.DateString, from)
	if err != nil {
		return apierror.Explicit(http.StatusBadRequest, "Invalid date format")
	}
	return apierror.WriteJSON(w, http.StatusOK, map[string]string{
		"converted_date": t.In(to).Format(dateTimeLayout),
	})
}

// loadLocation só aceita nomes IANA; "" e "Local" dependeriam do host.
func loadLocation(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return nil, apierror.Explicitf(http.StatusBadRequest, "Unknown timezone: %s", name)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, apierror.Explicitf(http.StatusBadRequest, "Unknown timezone: %s", name)
	}
	return loc, nil
}
