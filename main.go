// docchat - chat with your documents from the terminal.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"os"
	"strings"

	"github.com/jeranaias/docchat-tui/internal/cli"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	if err := cli.Execute(context.Background()); err != nil {
		cli.DisplayError(os.Stderr, err, jsonRequested(os.Args[1:]))
		os.Exit(cli.GetExitCode(err))
	}
}

// jsonRequested reports whether --json was passed, so errors are printed
// as JSON too.
func jsonRequested(args []string) bool {
	for _, a := range args {
		if a == "--" {
			break
		}
		if a == "--json" || strings.HasPrefix(a, "--json=true") {
			return true
		}
	}
	return false
}
