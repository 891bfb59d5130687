package repository

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by every repository implementation.
var (
	// ErrNotFound means the requested record does not exist (HTTP 404 or a missing key).
	ErrNotFound = errors.New("repository: record not found")
	// ErrUnauthorized means the stored token is missing or rejected (HTTP 401).
	ErrUnauthorized = errors.New("repository: unauthorized")
	// ErrForbidden means the user may not access the resource (HTTP 403).
	ErrForbidden = errors.New("repository: forbidden")
	// ErrRejected covers the remaining 4xx answers, such as validation failures.
	ErrRejected = errors.New("repository: request rejected")
	// ErrUnavailable covers transport failures and 5xx answers.
	ErrUnavailable = errors.New("repository: remote unavailable")
)

// Resource specific aliases.
var (
	ErrRoomNotFound = ErrNotFound
	ErrTaskNotFound = ErrNotFound
	ErrKeyNotFound  = ErrNotFound
)

// APIError describes a non-2xx answer from the remote API. It unwraps to one
// of the sentinels above so callers can use errors.Is.
type APIError struct {
	Method  string
	Path    string
	Status  int
	Message string
	Kind    error
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Status)
}

func (e *APIError) Unwrap() error { return e.Kind }

// DecodeError is returned when a response body does not match its schema.
type DecodeError struct {
	Endpoint string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Endpoint, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
