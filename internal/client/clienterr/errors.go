// Package clienterr defines the error taxonomy shared by the client
// components and converts errors into user-visible messages.
package clienterr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthenticated is returned when a protected operation is attempted
	// without a session. It never involves a network call.
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrNoOwner is returned by operations that need the account id when the
	// session was issued without one. It matches ErrUnauthenticated.
	ErrNoOwner = fmt.Errorf("%w: session carries no user id", ErrUnauthenticated)
	// ErrInvalidInput is matched by every *InvalidInputError.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound is returned when a mutation targets a record absent from the
	// local mirror.
	ErrNotFound = errors.New("not found")
	// ErrRemote is matched by every *RemoteError.
	ErrRemote = errors.New("remote error")
	// ErrDecode is matched by every *DecodeError.
	ErrDecode = errors.New("decode error")
	// ErrBusy is returned when a submission is attempted while another one is
	// still in flight.
	ErrBusy = errors.New("request already in flight")
)

// InvalidInputError is a local validation failure.
type InvalidInputError struct {
	Field  string
	Reason string
}

// Invalid builds an *InvalidInputError.
func Invalid(field, reason string) *InvalidInputError {
	return &InvalidInputError{Field: field, Reason: reason}
}

func (e *InvalidInputError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is reports ErrInvalidInput as a match.
func (e *InvalidInputError) Is(target error) bool { return target == ErrInvalidInput }

// RemoteError is a non-2xx response or a transport failure.
type RemoteError struct {
	// Op names the remote call, e.g. "favorites/add".
	Op string
	// StatusCode is the HTTP status, or 0 when the request never completed.
	StatusCode int
	// Message is the server-supplied message, if any.
	Message string
	// Err is the transport error, if any.
	Err error
}

func (e *RemoteError) Error() string {
	switch {
	case e.StatusCode == 0 && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
	}
}

func (e *RemoteError) Unwrap() error { return e.Err }

// Is reports ErrRemote as a match.
func (e *RemoteError) Is(target error) bool { return target == ErrRemote }

// Unauthorized reports whether the service rejected the credential.
func (e *RemoteError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// DecodeError is a response that could not be decoded.
type DecodeError struct {
	Op  string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: decode response: %v", e.Op, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Is reports ErrDecode as a match.
func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

// Message converts err into a message suitable for display. Server-supplied
// messages win; fallback is used for errors that carry nothing displayable.
func Message(err error, fallback string) string {
	if err == nil {
		return ""
	}

	var remote *RemoteError
	if errors.As(err, &remote) && remote.Message != "" {
		return remote.Message
	}

	var invalid *InvalidInputError
	if errors.As(err, &invalid) {
		return invalid.Error()
	}

	switch {
	case errors.Is(err, ErrNoOwner):
		return "your session has no user id, log in again"
	case errors.Is(err, ErrUnauthenticated):
		return "you need to be logged in"
	case errors.Is(err, ErrNotFound):
		return "favorite not found"
	case errors.Is(err, ErrBusy):
		return "a request is already in progress"
	case remote != nil && remote.StatusCode == 0:
		return "could not connect to the server"
	}
	return fallback
}
