// This file implements utilities for parsing and validating HTTP request data.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"budget/internal/core"
	"budget/internal/session"
)

// maxBodyBytes bounds every request body.
const maxBodyBytes = 64 << 10

var errBadRequest = errors.New("malformed request")

// FilterParams holds the list filters of a query string.
type FilterParams struct {
	Filter core.Filter
	Period string
	// Given is true when the query named at least one filter.
	Given bool
}

// ParseFilterParams reads category, q and period. The search text is kept
// verbatim; the other two are trimmed.
func ParseFilterParams(query url.Values) FilterParams {
	p := FilterParams{
		Filter: core.Filter{
			Category: strings.TrimSpace(query.Get("category")),
			Search:   sanitizeInput(query.Get("q"), false),
		},
		Period: strings.TrimSpace(query.Get("period")),
	}
	for _, key := range []string{"category", "q", "period"} {
		if query.Has(key) {
			p.Given = true
		}
	}
	return p
}

// RequestBodyParser handles JSON and form-encoded bodies behind one API.
type RequestBodyParser struct {
	body     []byte
	jsonData map[string]any
	formData url.Values
	parsed   bool
	err      error
}

// NewRequestBodyParser reads at most maxBodyBytes of the request body.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{}
	p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if p.err != nil {
		p.err = fmt.Errorf("read body: %w: %v", errBadRequest, p.err)
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

	body := strings.TrimSpace(string(p.body))
	if body == "" {
		p.formData = url.Values{}
		return nil
	}

	if body[0] == '{' {
		p.jsonData = make(map[string]any)
		dec := json.NewDecoder(strings.NewReader(body))
		dec.UseNumber()
		if err := dec.Decode(&p.jsonData); err != nil {
			p.err = fmt.Errorf("decode json: %w: %v", errBadRequest, err)
		}
		return p.err
	}

	p.formData, p.err = url.ParseQuery(body)
	if p.err != nil {
		p.err = fmt.Errorf("decode form: %w: %v", errBadRequest, p.err)
	}
	return p.err
}

// Has reports whether key is present, even with an empty value.
func (p *RequestBodyParser) Has(key string) bool {
	if p.jsonData != nil {
		_, ok := p.jsonData[key]
		return ok
	}
	return p.formData != nil && p.formData.Has(key)
}

// Get returns the trimmed, sanitized value of key from JSON or form data.
func (p *RequestBodyParser) Get(key string) string {
	return sanitizeInput(p.raw(key), true)
}

// GetRaw returns the value of key with control characters removed but
// whitespace kept.
func (p *RequestBodyParser) GetRaw(key string) string {
	return sanitizeInput(p.raw(key), false)
}

func (p *RequestBodyParser) raw(key string) string {
	if p.jsonData != nil {
		return stringValue(p.jsonData[key])
	}
	if p.formData != nil {
		return p.formData.Get(key)
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// ParseDraft reads a new transaction. Amounts may be JSON numbers or strings.
func ParseDraft(p *RequestBodyParser) (session.Draft, error) {
	if err := p.Parse(); err != nil {
		return session.Draft{}, err
	}
	return session.Draft{
		Text:     p.Get("text"),
		Amount:   p.Get("amount"),
		Category: p.Get("category"),
		Period:   p.Get("period"),
	}, nil
}

// ParsePatch reads the fields present in the body. An absent field is left
// untouched, and so is an empty category or period. A present but invalid
// amount fails with core.ErrInvalidAmount.
func ParsePatch(p *RequestBodyParser) (core.TransactionPatch, error) {
	var patch core.TransactionPatch
	if err := p.Parse(); err != nil {
		return patch, err
	}
	str := func(key string, keepEmpty bool) *string {
		if !p.Has(key) {
			return nil
		}
		v := p.Get(key)
		if v == "" && !keepEmpty {
			return nil
		}
		return &v
	}
	patch.Text = str("text", true)
	patch.Category = str("category", false)
	patch.Period = str("period", false)
	if p.Has("amount") {
		m, err := core.ParseAmount(p.Get("amount"))
		if err != nil {
			return patch, err
		}
		patch.Amount = &m
	}
	return patch, nil
}

// sanitizeInput removes control characters except tab, newline and carriage
// return, and optionally trims whitespace.
func sanitizeInput(s string, trim bool) string {
	if trim {
		s = strings.TrimSpace(s)
	}
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
