// Package http provides HTTP server and handler implementations.
//
// This file implements request body parsing for the bill, filter and
// optimize forms. Bodies may be form-encoded or JSON objects.

package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"billdash/internal/core"
)

// maxBodyBytes caps request bodies; every form here is a handful of fields.
const maxBodyBytes = 64 << 10

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data, commonly used with HTMX.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	if r.Body != nil {
		p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	}
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if strings.HasPrefix(p.contentType, "application/json") || p.body[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a sanitized string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// stringValue converts a decoded JSON value to string.
func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// ParseBill reads the name, amount, category and date fields. Errors are
// core validation errors, reported in field order.
func ParseBill(p *RequestBodyParser) (core.Bill, error) {
	name := p.Get("name")
	if name == "" {
		return core.Bill{}, core.ErrEmptyName
	}
	cents, err := core.ParseDecimalToCents(p.Get("amount"))
	if err != nil {
		return core.Bill{}, err
	}
	category, err := core.ParseCategory(p.Get("category"))
	if err != nil {
		return core.Bill{}, err
	}
	date, err := core.ParseDate(p.Get("date"))
	if err != nil {
		return core.Bill{}, err
	}
	b := core.Bill{
		Name:     name,
		Amount:   core.Money{Cents: cents},
		Category: category,
		Date:     date,
	}
	return b, b.Validate()
}

// ParseFilter reads the category field of the filter form.
func ParseFilter(p *RequestBodyParser) (core.CategoryFilter, error) {
	return core.ParseFilter(p.Get("category"))
}

// ParseBudget reads the budget field of the optimize form.
func ParseBudget(p *RequestBodyParser) (core.Money, error) {
	return core.ParseBudget(p.Get("budget"))
}

// isHTMX reports whether the request wants a partial response.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
