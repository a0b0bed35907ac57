package loader

import (
	"errors"
	"fmt"
)

// NetworkError is a transport failure or a non-2xx response.
type NetworkError struct {
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("HTTP error! status: %d", e.StatusCode)
	}
	if e.Err == nil {
		return "network error"
	}
	return "network error: " + e.Err.Error()
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ValidationError is a response that lacks the expected GeoJSON structure.
type ValidationError struct {
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return "invalid GeoJSON data: " + e.Reason + ": " + e.Err.Error()
	}
	return "invalid GeoJSON data: " + e.Reason
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Outcome classifies err for logs and metrics.
func Outcome(err error) string {
	var netErr *NetworkError
	var valErr *ValidationError
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &netErr):
		return "network_error"
	case errors.As(err, &valErr):
		return "validation_error"
	default:
		return "error"
	}
}
