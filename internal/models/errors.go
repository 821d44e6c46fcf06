package models

import (
	"errors"
	"fmt"
)

// ErrorType identifies the category of a remote operation failure.
type ErrorType string

const (
	// Read phase: the hosting API was unreachable or the resource is missing.
	ErrRemoteRead ErrorType = "remote_read"

	// Write phase: the host rejected a branch, file, or pull request write.
	ErrRemoteWrite ErrorType = "remote_write"

	// A write raced a concurrent change (stale revision handle) or the
	// branch name already exists. Retryable by resubmitting the request.
	ErrConflict ErrorType = "conflict"

	// The current registry.json does not parse into the expected shape.
	// Fatal for the invocation; requires intervention on the repository.
	ErrMalformedIndex ErrorType = "malformed_index"
)

// RemoteError is a typed failure from a single hosting-API operation.
type RemoteError struct {
	Type ErrorType
	Op   string // the client operation, e.g. "create branch"
	Err  error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Type, e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// NewRemoteError wraps err as a RemoteError of the given type.
func NewRemoteError(t ErrorType, op string, err error) *RemoteError {
	return &RemoteError{Type: t, Op: op, Err: err}
}

// TypeOf returns the ErrorType carried by err, or "" if err is not a
// RemoteError.
func TypeOf(err error) ErrorType {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Type
	}
	return ""
}
