package http

import (
	"errors"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"billdash/internal/core"
	applog "billdash/internal/log"
	"billdash/internal/middleware/trace"
)

// templateFuncs are available to every page and partial.
var templateFuncs = template.FuncMap{
	"money":      formatMoney,
	"pct":        formatPercent,
	"longDate":   formatLongDate,
	"monthName":  monthName,
	"categories": core.Categories,
	"sub":        func(a, b int) int { return a - b },
}

// formatMoney renders an amount in rupees, e.g. "Rs.1200.00".
func formatMoney(m core.Money) string {
	if m.Cents < 0 {
		return "-Rs." + core.Money{Cents: -m.Cents}.String()
	}
	return "Rs." + m.String()
}

// formatPercent renders a percentage with one decimal.
func formatPercent(d decimal.Decimal) string {
	return d.StringFixed(1)
}

// formatLongDate renders a date as "Mar 15, 2025".
func formatLongDate(d core.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.Format("Jan 2, 2006")
}

func monthName(m int) string {
	if m < 1 || m > 12 {
		return ""
	}
	return time.Month(m).String()
}

// billForm holds the raw form values so a rejected submission can be
// re-rendered as typed.
type billForm struct {
	ID       string
	Name     string
	Amount   string
	Category string
	Date     string
}

func newBillForm(now time.Time) billForm {
	return billForm{
		Category: string(core.Utilities),
		Date:     core.Today(now).String(),
	}
}

func formFromBill(b core.Bill) billForm {
	return billForm{
		ID:       b.ID,
		Name:     b.Name,
		Amount:   b.Amount.String(),
		Category: string(b.Category),
		Date:     b.Date.String(),
	}
}

func formFromRequest(id string, p *RequestBodyParser) billForm {
	return billForm{
		ID:       id,
		Name:     p.Get("name"),
		Amount:   p.Get("amount"),
		Category: p.Get("category"),
		Date:     p.Get("date"),
	}
}

// userMessage maps domain errors to the text shown next to the form.
// The boolean is false for errors the user cannot fix.
func userMessage(err error) (string, int, bool) {
	switch {
	case errors.Is(err, core.ErrBillNotFound):
		return "Bill not found", http.StatusNotFound, true
	case errors.Is(err, core.ErrEmptyName):
		return "Bill name is required", http.StatusUnprocessableEntity, true
	case errors.Is(err, core.ErrNameTooLong):
		return "Bill name must be at most 200 characters", http.StatusUnprocessableEntity, true
	case errors.Is(err, core.ErrInvalidAmount):
		return "Amount must be a non-negative number", http.StatusUnprocessableEntity, true
	case errors.Is(err, core.ErrInvalidCategory):
		return "Unknown category", http.StatusUnprocessableEntity, true
	case errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidDay),
		errors.Is(err, core.ErrInvalidMonth):
		return "Date must be a valid YYYY-MM-DD date", http.StatusUnprocessableEntity, true
	case errors.Is(err, core.ErrInvalidBudget):
		return "Budget must be a non-negative number", http.StatusUnprocessableEntity, true
	case errors.Is(err, core.ErrInvalidFilter):
		return "Unknown category filter", http.StatusUnprocessableEntity, true
	case errors.Is(err, core.ErrMissingID):
		return "Missing bill id", http.StatusBadRequest, true
	}
	return "Something went wrong, please try again", http.StatusInternalServerError, false
}

// writeError sends an error fragment, logging anything that is not a
// validation failure.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	msg, status, known := userMessage(err)
	if !known {
		applog.NewStructuredLogger(applog.FromContext(r.Context())).LogError(r.Context(), "Request failed", err, applog.ComponentHTTP, op,
			applog.NewFields().WithErrorType(applog.ErrorTypeInternal))
		if id := trace.GetRequestID(r.Context()); id != "" {
			msg += " (request " + id + ")"
		}
	}
	ErrorResponse(status, msg).Write(w)
}

// sanitizeInput removes potentially dangerous characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
