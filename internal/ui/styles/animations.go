// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "time"

// =============================================================================
// SPINNER ANIMATIONS
// =============================================================================

// PendingSpinner is shown while an answer has not started.
var PendingSpinner = SpinnerConfig{
	Frames: []string{"|", "/", "-", "\\"},
	FPS:    10,
}

// UploadSpinner is shown while files are sent.
var UploadSpinner = SpinnerConfig{
	Frames: []string{"[    ]", "[=   ]", "[==  ]", "[=== ]", "[====]", "[ ===]", "[  ==]", "[   =]"},
	FPS:    6,
}

// SpinnerConfig holds the configuration for a spinner animation.
type SpinnerConfig struct {
	Frames []string
	FPS    int
}

// Duration returns the duration for each frame.
func (s SpinnerConfig) Duration() time.Duration {
	if s.FPS <= 0 {
		return time.Second
	}
	return time.Second / time.Duration(s.FPS)
}

// =============================================================================
// STATUS INDICATORS
// =============================================================================

// StatusIndicators prefix status line messages (ASCII-only for compatibility).
var StatusIndicators = struct {
	Success string
	Error   string
	Info    string
	Busy    string
}{
	Success: "[OK]",
	Error:   "[X]",
	Info:    "[i]",
	Busy:    "[.]",
}
