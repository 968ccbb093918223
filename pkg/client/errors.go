package client

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

// ErrCanceled marks a request aborted by its caller. It is never an
// application failure and is never shown to the user.
var ErrCanceled = errors.New("request canceled")

// Kind classifies an APIError.
type Kind string

const (
	// KindAPI is a 2xx response whose envelope carried a non-zero code.
	KindAPI Kind = "api"

	// KindHTTP is a non-2xx response, including a 401 that did not
	// expire the session (rejected login, anonymous request).
	KindHTTP Kind = "http"

	// KindFeatureDisabled is a 404 for a feature switched off server side.
	KindFeatureDisabled Kind = "feature_disabled"

	// KindSessionExpired is a 401 that invalidated the stored session.
	KindSessionExpired Kind = "session_expired"

	// KindNetwork is a request that produced no response at all.
	KindNetwork Kind = "network"
)

// Messages and codes shared with the backend.
const (
	OpsDisabledMessage  = "Ops monitoring is disabled"
	CodeOpsDisabled     = "OPS_DISABLED"
	NetworkErrorMessage = "network error"
	UnknownErrorMessage = "Unknown error"
)

// APIError is the single normalized failure shape surfaced to callers.
type APIError struct {
	// Status is the HTTP status, or 0 when no response was received.
	Status int
	// Code is the backend error code; empty when none was sent.
	Code    string
	Message string
	URL     string
	Kind    Kind
	Err     error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	msg := fmt.Sprintf("admin %s error (status %d", e.Kind, e.Status)
	if e.Code != "" {
		msg += ", code " + e.Code
	}
	msg += "): " + e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// IntCode returns the numeric backend code, if Code is numeric.
func (e *APIError) IntCode() (int, bool) {
	n, err := strconv.Atoi(e.Code)
	if err != nil {
		return 0, false
	}
	return n, true
}

// AsAPIError extracts an *APIError from err.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsKind reports whether err is an APIError of the given kind.
func IsKind(err error, kind Kind) bool {
	apiErr, ok := AsAPIError(err)
	return ok && apiErr.Kind == kind
}

// IsCanceled reports whether err is a caller cancellation.
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled) || errors.Is(err, context.Canceled)
}

func canceledError(err error) error {
	return fmt.Errorf("%w: %w", ErrCanceled, err)
}
