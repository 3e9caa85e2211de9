package artcache

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrProtocolViolation is returned when the origin answers 304 Not Modified
	// but there is no stored payload the answer could refer to.
	ErrProtocolViolation = errors.New("not modified response without stored payload")
	// ErrInvalidPayload is returned for response bodies that are not JSON.
	ErrInvalidPayload = errors.New("payload is not valid JSON")
)

// StatusError is an unexpected HTTP status from the origin.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// NetworkError means the catalog could not be fetched and nothing was stored to fall back on.
type NetworkError struct {
	Endpoint string
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Endpoint, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// MutationError is a failed create, update or delete.
// StatusCode is zero if no response was received.
type MutationError struct {
	Op         string
	ID         string
	StatusCode int
	Message    string
	Err        error
}

func (e *MutationError) Error() string {
	target := e.Op
	if e.ID != "" {
		target = target + " " + e.ID
	}
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %v", target, e.Err)
	}
	if e.Message == "" {
		return fmt.Sprintf("%s: status %d", target, e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", target, e.StatusCode, e.Message)
}

func (e *MutationError) Unwrap() error { return e.Err }
