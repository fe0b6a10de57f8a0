// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/jeranaias/docchat-tui/internal/client"
	"github.com/jeranaias/docchat-tui/internal/config"
	"github.com/jeranaias/docchat-tui/internal/conversation"
	"github.com/jeranaias/docchat-tui/internal/history"
)

// =============================================================================
// EXIT CODES - Specific codes for different error categories
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates configuration file or settings error
	ExitConfigError = 3
	// ExitNetworkError indicates the server could not be reached or failed
	ExitNetworkError = 5
	// ExitNotFoundError indicates a resource was not found
	ExitNotFoundError = 7
	// ExitTimeoutError indicates an operation timed out
	ExitTimeoutError = 8
	// ExitCanceled indicates the user interrupted the operation
	ExitCanceled = 130
)

// =============================================================================
// ERROR TYPES FOR STRUCTURED ERROR HANDLING
// =============================================================================

// CommandError represents a CLI command error with context.
type CommandError struct {
	Command string // Command that failed (e.g., "upload", "sessions")
	Action  string // Action being performed (e.g., "show", "rm")
	Reason  string // Human-readable reason
	Err     error  // Underlying error (if any)
}

func (e *CommandError) Error() string {
	name := e.Command
	if e.Action != "" {
		name += " " + e.Action
	}
	switch {
	case e.Err != nil && e.Reason != "":
		return fmt.Sprintf("%s failed: %s: %v", name, e.Reason, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s failed: %v", name, e.Err)
	default:
		return fmt.Sprintf("%s failed: %s", name, e.Reason)
	}
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// UsageError is a wrong invocation.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string {
	return e.Message
}

// =============================================================================
// EXIT CODE MAPPING
// =============================================================================

// GetExitCode maps an error to the process exit code.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var usage *UsageError
	var verr config.ValidationError
	var verrs config.ValidateErrors
	var rejected *conversation.UploadRejectedError

	switch {
	case errors.As(err, &usage):
		return ExitUsageError
	case errors.As(err, &verr), errors.As(err, &verrs):
		return ExitConfigError
	case client.IsCanceled(err):
		return ExitCanceled
	case client.IsTimeout(err):
		return ExitTimeoutError
	case client.IsConnection(err), errors.Is(err, client.ErrHTTPStatus), errors.As(err, &rejected):
		return ExitNetworkError
	case errors.Is(err, history.ErrNotFound):
		return ExitNotFoundError
	default:
		return ExitGeneralError
	}
}

// =============================================================================
// ERROR DISPLAY HELPERS
// =============================================================================

// DisplayError writes err in a consistent format.
func DisplayError(w io.Writer, err error, jsonMode bool) {
	if err == nil {
		return
	}
	if jsonMode {
		out, _ := json.Marshal(map[string]interface{}{
			"error":     err.Error(),
			"exit_code": GetExitCode(err),
			"success":   false,
		})
		fmt.Fprintln(w, string(out))
		return
	}
	fmt.Fprintf(w, "Error: %s\n", err.Error())
}
