package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"mkwanja/internal/core"
	"mkwanja/internal/lock"
	"mkwanja/internal/log"
)

// ChangedHeader names the entity and operation a mutating request applied,
// e.g. "expense:create", so clients know which views to refresh.
const ChangedHeader = "X-Ledger-Changed"

// ResponseBuilder provides a fluent API for building JSON responses.
type ResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewResponse creates a builder with a default 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// Changed sets the ChangedHeader for a mutation.
func (b *ResponseBuilder) Changed(entity, op string) *ResponseBuilder {
	return b.Header(ChangedHeader, entity+":"+op)
}

// JSON sets the value encoded as the response body.
func (b *ResponseBuilder) JSON(v any) *ResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response to w.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	if err := json.NewEncoder(w).Encode(b.body); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// ErrorResponse creates a JSON error response.
func ErrorResponse(statusCode int, message string) *ResponseBuilder {
	return NewResponse().Status(statusCode).JSON(errorBody{Error: message})
}

func NotFoundError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func InternalServerError() *ResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, "internal error")
}

func LockedError() *ResponseBuilder {
	return ErrorResponse(http.StatusLocked, "ledger is locked")
}

// writeError maps err onto a status code. Validation and not-found errors
// are shown to the caller; anything else is logged and reported as a
// generic 500.
func writeError(w http.ResponseWriter, r *http.Request, err error, operation string) {
	var (
		ve *core.ValidationError
		nf *core.NotFoundError
	)
	switch {
	case errors.As(err, &ve):
		NewResponse().
			Status(http.StatusBadRequest).
			JSON(errorBody{Error: ve.Error(), Field: ve.Field}).
			Write(w)
	case errors.As(err, &nf):
		NotFoundError(nf.Error()).Write(w)
	case errors.Is(err, lock.ErrAuthenticationFailed):
		ErrorResponse(http.StatusUnauthorized, "authentication failed").Write(w)
	default:
		log.LogError(r.Context(), "Request failed", err, log.ComponentHTTP, operation,
			log.NewFields().WithErrorType(log.ErrorTypeInternal))
		InternalServerError().Write(w)
	}
}
