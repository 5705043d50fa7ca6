// Package httputil writes JSON and problem-details responses and decodes
// request bodies for the HTTP handlers.
package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	dErrors "mic/pkg/domain-errors"
	"mic/pkg/requestcontext"
)

// MaxBodyBytes bounds request bodies accepted by DecodeJSON.
const MaxBodyBytes = 1 << 20

const internalDetail = "an unexpected error occurred"

// Problem is the problem-details error envelope.
type Problem struct {
	Type       string            `json:"type"`
	Title      string            `json:"title"`
	Status     int               `json:"status"`
	Detail     string            `json:"detail,omitempty"`
	Instance   string            `json:"instance,omitempty"`
	TraceID    string            `json:"trace_id,omitempty"`
	Code       string            `json:"code,omitempty"`
	Errors     map[string]string `json:"errors,omitempty"`
	NextAction *NextAction       `json:"next_action,omitempty"`
}

// NextAction points the client at the request that would resolve the problem.
type NextAction struct {
	Method string `json:"method"`
	Path   string `json:"path"`
}

// WriteJSON encodes v as the response body.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteRaw writes pre-encoded JSON bytes unchanged.
func WriteRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// WriteProblem writes p, filling instance and trace id from the request.
func WriteProblem(w http.ResponseWriter, r *http.Request, p Problem) {
	if p.Type == "" {
		p.Type = "about:blank"
	}
	if p.Title == "" {
		p.Title = http.StatusText(p.Status)
	}
	if p.Instance == "" && r != nil {
		p.Instance = r.URL.Path
	}
	if p.TraceID == "" && r != nil {
		p.TraceID = requestcontext.TraceID(r.Context())
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// WriteError translates err into a problem-details response. Uncoded errors
// are reported as internal errors without their message.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	code := dErrors.CodeOf(err)
	p := Problem{
		Status: StatusFor(code),
		Code:   string(code),
	}
	if de, ok := dErrors.As(err); ok && code != dErrors.CodeInternal {
		p.Detail = de.Message
		p.Errors = de.Fields
	} else {
		p.Detail = internalDetail
	}
	if code == dErrors.CodeIdempotencyInProgress {
		w.Header().Set("Retry-After", "1")
	}
	WriteProblem(w, r, p)
}

// StatusFor maps a domain error code to an HTTP status.
func StatusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeBadRequest:
		return http.StatusBadRequest
	case dErrors.CodeValidation:
		return http.StatusUnprocessableEntity
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeIdempotencyConflict, dErrors.CodeIdempotencyInProgress:
		return http.StatusConflict
	case dErrors.CodeRateLimited:
		return http.StatusTooManyRequests
	case dErrors.CodeUnavailable:
		return http.StatusServiceUnavailable
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// DecodeJSON decodes a single JSON object from the request body into dst.
// Unknown fields, trailing data and oversized bodies are validation errors.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return decodeError(err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return dErrors.Validation(map[string]string{"body": "must contain a single JSON object"})
	}
	return nil
}

func decodeError(err error) error {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, io.EOF):
		return dErrors.Validation(map[string]string{"body": "is required"})
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return dErrors.Validation(map[string]string{"body": "is not valid JSON"})
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		return dErrors.Validation(map[string]string{field: "has the wrong type"})
	case errors.As(err, &maxErr):
		return dErrors.Validation(map[string]string{"body": "is too large"})
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		field := strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`)
		return dErrors.Validation(map[string]string{field: "is not a recognised field"})
	default:
		return dErrors.Validation(map[string]string{"body": "could not be decoded"})
	}
}
