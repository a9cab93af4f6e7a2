// Package protocol defines the request/response envelope and event payloads
// exchanged between the configuration core and the settings backend.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// Status is the outcome of a backend command.
type Status string

// Statuses.
const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// ErrMalformedEvent indicates a partial-update event that cannot be applied.
var ErrMalformedEvent = errors.New("malformed partial update event")

// Response is the envelope every backend command returns.
type Response[T any] struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Details string `json:"details,omitempty"`
	Data    T      `json:"data,omitempty"`
}

// Success wraps data in a successful response.
func Success[T any](data T) Response[T] {
	return Response[T]{Status: StatusSuccess, Data: data}
}

// Failure builds an error response. details may be empty.
func Failure[T any](message, details string) Response[T] {
	return Response[T]{Status: StatusError, Message: message, Details: details}
}

// FailureFrom builds an error response from err.
func FailureFrom[T any](message string, err error) Response[T] {
	return Failure[T](message, err.Error())
}

// OK reports whether the response is a success.
func (r Response[T]) OK() bool {
	return r.Status == StatusSuccess
}

// Err returns nil on success and a *ResponseError otherwise.
func (r Response[T]) Err() error {
	if r.OK() {
		return nil
	}
	return &ResponseError{Message: r.Message, Details: r.Details}
}

// ResponseError is a backend-reported failure.
type ResponseError struct {
	Message string
	Details string
}

func (e *ResponseError) Error() string {
	if e.Details == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, e.Details)
}

// PartialUpdate is the backend's change event. Value holds the JSON encoding
// of the new value.
type PartialUpdate struct {
	Path  string `json:"path"`
	Value string `json:"value"`
}

// EncodeUpdate builds a PartialUpdate for value.
func EncodeUpdate(path string, value any) (PartialUpdate, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return PartialUpdate{}, fmt.Errorf("encode %s: %w", path, err)
	}
	return PartialUpdate{Path: path, Value: string(raw)}, nil
}

// Decode parses Value. Objects decode to map[string]any, arrays to []any,
// and numbers to float64.
func (u PartialUpdate) Decode() (any, error) {
	if u.Path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrMalformedEvent)
	}
	if !gjson.Valid(u.Value) {
		return nil, fmt.Errorf("%w: %s: value is not valid JSON", ErrMalformedEvent, u.Path)
	}
	return gjson.Parse(u.Value).Value(), nil
}

// RuntimeInfo describes one discovered Java installation.
type RuntimeInfo struct {
	Name         string `json:"name"`
	MajorVersion int    `json:"majorVersion"`
	ExecPath     string `json:"execPath"`
	Vendor       string `json:"vendor,omitempty"`
}
