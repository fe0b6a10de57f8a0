// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
)

// maxQuestionBytes bounds a question read from stdin.
const maxQuestionBytes = 1 << 20

func (a *app) newAskCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question...>",
		Short: "Ask one question and print the answer",
		Long: `Ask a single question. The answer is printed as it streams in; on a
terminal it is formatted, when piped it is the raw Markdown.

Use "-" or no argument to read the question from stdin.`,
		Example: `  docchat ask "What does the handbook say about leave?"
  docchat ask --continue "And for contractors?"
  echo "Summarize the policy" | docchat ask -`,
		RunE: func(cmd *cobra.Command, args []string) error {
			question, err := readQuestion(args, a.stdin)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			id, err := a.sessionID(ctx)
			if err != nil {
				return err
			}
			ctrl := a.controller(a.formatter(a.stdout), id, a.chrome())
			defer ctrl.Close()

			view := newStreamView(a.stdout, a.stderr, a.theme(), false)
			err = ctrl.Submit(ctx, question, view)
			view.Finish()

			if got := ctrl.Page().SessionID(); got != "" && got != id {
				fmt.Fprintf(a.stderr, "session: %s\n", got)
			}
			return err
		},
	}
}

// readQuestion joins args, or reads stdin for "-" or no args.
func readQuestion(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, " "), nil
	}
	if len(args) == 0 && isTerminal(stdin) {
		return "", &UsageError{Message: "no question given (pass it as arguments or on stdin)"}
	}
	data, err := io.ReadAll(io.LimitReader(stdin, maxQuestionBytes))
	if err != nil {
		return "", err
	}
	q := strings.TrimSpace(string(data))
	if q == "" {
		return "", &UsageError{Message: "empty question"}
	}
	return q, nil
}
