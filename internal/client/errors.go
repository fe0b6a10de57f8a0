// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package client

import (
	"errors"
	"strconv"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the chat client.
type ClientError struct {
	Type ErrorType
	// StatusCode is set for ErrTypeHTTPStatus
	StatusCode int
	Message    string
	Cause      error
}

func (e *ClientError) Error() string {
	msg := e.Message
	if e.Type == ErrTypeHTTPStatus && e.StatusCode != 0 && msg == "" {
		msg = "server returned " + strconv.Itoa(e.StatusCode)
	}
	if e.Cause != nil && e.Type != ErrTypeCanceled {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Is matches any ClientError of the same Type, so errors.Is works against
// the sentinels below even when the returned error carries a cause.
func (e *ClientError) Is(target error) bool {
	t, ok := target.(*ClientError)
	if !ok {
		return false
	}
	return t.Type == e.Type && t.Type != ErrTypeUnknown
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeConnection
	ErrTypeTimeout
	ErrTypeIdleTimeout
	ErrTypeCanceled
	ErrTypeHTTPStatus
	ErrTypeInvalidResponse
)

// String returns a short name for the error type.
func (t ErrorType) String() string {
	switch t {
	case ErrTypeConnection:
		return "connection"
	case ErrTypeTimeout:
		return "timeout"
	case ErrTypeIdleTimeout:
		return "idle_timeout"
	case ErrTypeCanceled:
		return "canceled"
	case ErrTypeHTTPStatus:
		return "http_status"
	case ErrTypeInvalidResponse:
		return "invalid_response"
	default:
		return "unknown"
	}
}

// Sentinel errors for easy checking.
var (
	ErrConnection  = &ClientError{Type: ErrTypeConnection, Message: "could not reach server"}
	ErrTimeout     = &ClientError{Type: ErrTypeTimeout, Message: "server did not respond in time"}
	ErrIdleTimeout = &ClientError{Type: ErrTypeIdleTimeout, Message: "response stream stalled"}
	ErrCanceled    = &ClientError{Type: ErrTypeCanceled, Message: "request canceled"}
	ErrHTTPStatus  = &ClientError{Type: ErrTypeHTTPStatus, Message: "server returned an error"}
)

// IsTimeout checks if an error is a connect or idle timeout.
func IsTimeout(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeTimeout || clientErr.Type == ErrTypeIdleTimeout
	}
	return false
}

// IsIdleTimeout checks if a stream was aborted for inactivity.
func IsIdleTimeout(err error) bool {
	return errors.Is(err, ErrIdleTimeout)
}

// IsCanceled checks if the caller cancelled the request.
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled)
}

// IsConnection checks if the server could not be reached.
func IsConnection(err error) bool {
	return errors.Is(err, ErrConnection)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var clientErr *ClientError
	if errors.As(err, &clientErr) && clientErr.Type == ErrTypeHTTPStatus {
		return clientErr.StatusCode
	}
	return 0
}
