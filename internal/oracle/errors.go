package oracle

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrBackendUnavailable means the backend could not be reached or refused
	// to serve the configured model.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrMalformedOutput means the backend answered but no attempt produced an
	// acceptable response.
	ErrMalformedOutput = errors.New("malformed output")

	errEmptyResponse = errors.New("empty response")
)

// IsBackendUnavailable reports whether err is a connectivity failure.
func IsBackendUnavailable(err error) bool { return errors.Is(err, ErrBackendUnavailable) }

// IsMalformedOutput reports whether err is an exhausted-retries failure.
func IsMalformedOutput(err error) bool { return errors.Is(err, ErrMalformedOutput) }

type transportError struct {
	err error
}

func (e *transportError) Error() string { return "transport error: " + e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

type serverError struct {
	statusCode int
	body       string
}

func (e *serverError) Error() string {
	return "server error: " + e.body
}

type authError struct {
	message string
}

func (e *authError) Error() string {
	return "authentication error: " + e.message
}

type statusError struct {
	statusCode int
	body       string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.statusCode, e.body)
}

type decodeError struct {
	err error
}

func (e *decodeError) Error() string { return "parsing response: " + e.err.Error() }
func (e *decodeError) Unwrap() error { return e.err }

// IsAuthError checks if an error is an authentication error.
func IsAuthError(err error) bool {
	var ae *authError
	return errors.As(err, &ae)
}

// isRetryable reports whether an error is a transport-level failure worth an
// immediate retry.
func isRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var te *transportError
	var se *serverError
	return errors.As(err, &te) || errors.As(err, &se)
}

func isDecodeError(err error) bool {
	var de *decodeError
	return errors.As(err, &de)
}

// isRejection reports whether the backend answered the request but the reply
// is unusable for this prompt. Such errors are scoped to one file.
func isRejection(err error) bool {
	var st *statusError
	return isDecodeError(err) || errors.As(err, &st)
}
