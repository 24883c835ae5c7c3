package http

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
)

const maxBody = 1 << 20

// BadRequestError reports a request body or parameter that could not be used.
type BadRequestError struct {
	Reason string
}

func (e *BadRequestError) Error() string { return e.Reason }

// Request wraps *http.Request.
type Request struct {
	raw *http.Request
}

// NewRequest wraps a standard *http.Request.
func NewRequest(r *http.Request) *Request {
	return &Request{raw: r}
}

// Raw returns the underlying *http.Request.
func (req *Request) Raw() *http.Request { return req.raw }

// Bind decodes a JSON body into v.
func (req *Request) Bind(v any) error {
	defer req.raw.Body.Close()
	body, err := io.ReadAll(io.LimitReader(req.raw.Body, maxBody))
	if err != nil {
		return errors.Wrap(err, "read body")
	}
	if len(body) == 0 {
		return &BadRequestError{Reason: "empty request body"}
	}
	if err := json.Unmarshal(body, v); err != nil {
		return &BadRequestError{Reason: "invalid JSON: " + err.Error()}
	}
	return nil
}

// Query returns a query-string value.
func (req *Request) Query(key string, fallback ...string) string {
	v := req.raw.URL.Query().Get(key)
	if v == "" && len(fallback) > 0 {
		return fallback[0]
	}
	return v
}

// RouteParam returns a URL route parameter (chi).
func (req *Request) RouteParam(key string) string {
	return chi.URLParam(req.raw, key)
}
