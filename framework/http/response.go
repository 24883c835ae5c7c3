package http

import (
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"

	"github.com/km-arc/go-inject/framework/container"
)

type envelope map[string]any

// Response wraps http.ResponseWriter with JSON helpers.
type Response struct {
	w http.ResponseWriter
}

// NewResponse wraps a ResponseWriter.
func NewResponse(w http.ResponseWriter) *Response {
	return &Response{w: w}
}

// JSON sends a JSON response.
//
//	res.JSON(http.StatusOK, map[string]any{"message": "ok"})
func (res *Response) JSON(status int, data any) {
	res.w.Header().Set("Content-Type", "application/json")
	res.w.WriteHeader(status)
	_ = json.NewEncoder(res.w).Encode(data)
}

// Success sends 200 JSON: {"data": v}
func (res *Response) Success(v any) {
	res.JSON(http.StatusOK, envelope{"data": v})
}

// Error sends a JSON error response: {"message": message}
func (res *Response) Error(status int, message string) {
	res.JSON(status, envelope{"message": message})
}

// NotFound sends 404.
func (res *Response) NotFound(message string) {
	res.Error(http.StatusNotFound, message)
}

// Failure maps err to a status: 400 for a request that could not be
// decoded, 500 otherwise. Container errors carry their kind in the body.
func (res *Response) Failure(err error) {
	var bad *BadRequestError
	if errors.As(err, &bad) {
		res.Error(http.StatusBadRequest, bad.Error())
		return
	}

	body := envelope{"message": err.Error()}
	switch {
	case errors.Is(err, container.ErrCircularDependency):
		body["kind"] = "circular_dependency"
	case errors.Is(err, container.ErrConfiguration):
		body["kind"] = "configuration"
	}
	var re *container.ReflectError
	if errors.As(err, &re) {
		body["kind"] = "construction"
	}
	res.JSON(http.StatusInternalServerError, body)
}
