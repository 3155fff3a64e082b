package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"mkwanja/internal/core"
)

// maxBodyBytes bounds request bodies. Every payload is a handful of fields.
const maxBodyBytes = 64 << 10

// parseMonthParam reads ?month=YYYY-MM, defaulting to the local month of now.
func parseMonthParam(query url.Values, now time.Time) (core.YearMonth, error) {
	v := strings.TrimSpace(query.Get("month"))
	if v == "" {
		return core.CurrentMonth(now), nil
	}
	return core.ParseYearMonth(v)
}

// parseOptionalMonth reads ?month=YYYY-MM, returning nil when absent.
func parseOptionalMonth(query url.Values) (*core.YearMonth, error) {
	v := strings.TrimSpace(query.Get("month"))
	if v == "" {
		return nil, nil
	}
	ym, err := core.ParseYearMonth(v)
	if err != nil {
		return nil, err
	}
	return &ym, nil
}

// parseID reads the {id} path segment.
func parseID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, &core.ValidationError{Field: "id", Reason: fmt.Sprintf("%q is not a positive integer", raw)}
	}
	return id, nil
}

// RequestBodyParser reads a JSON or form-encoded body once and exposes its
// fields as strings.
type RequestBodyParser struct {
	body     []byte
	jsonData map[string]any
	formData url.Values
	parsed   bool
	err      error
}

// NewRequestBodyParser reads at most maxBodyBytes. A longer body is
// rejected rather than truncated.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{}
	p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	var tooLarge *http.MaxBytesError
	if errors.As(p.err, &tooLarge) {
		p.err = &core.ValidationError{
			Field:  "body",
			Reason: fmt.Sprintf("larger than %d bytes", maxBodyBytes),
			Err:    p.err,
		}
	}
	return p
}

// Parse decodes the body as JSON when it looks like an object and as a
// form otherwise. Malformed bodies yield a *core.ValidationError.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	trimmed := bytes.TrimSpace(p.body)
	if len(trimmed) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if trimmed[0] == '{' {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		if err := dec.Decode(&p.jsonData); err != nil {
			p.err = &core.ValidationError{Field: "body", Reason: "malformed JSON"}
		}
		return p.err
	}

	form, err := url.ParseQuery(string(trimmed))
	if err != nil {
		p.err = &core.ValidationError{Field: "body", Reason: "malformed form data"}
		return p.err
	}
	p.formData = form
	return nil
}

// Get returns the field as a sanitized string, or "" when absent.
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
