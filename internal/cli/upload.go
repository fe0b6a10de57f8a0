// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/docchat-tui/internal/conversation"
	"github.com/jeranaias/docchat-tui/internal/ui/styles"
	"github.com/jeranaias/docchat-tui/internal/util"
)

// statusPrinter writes upload progress lines.
type statusPrinter struct {
	out   io.Writer
	theme *styles.Theme
}

func (p statusPrinter) ShowStatus(text string) {
	kind := styles.StatusInfo
	switch {
	case strings.HasPrefix(text, "Error"), text == conversation.StatusUploadFailed, text == conversation.StatusNetworkError:
		kind = styles.StatusError
	case text == conversation.StatusUploadDone, text == conversation.StatusURLDone:
		kind = styles.StatusSuccess
	}
	fmt.Fprintln(p.out, p.theme.Status(kind, text))
}

func (p statusPrinter) Refresh(sessionID string) {
	if sessionID != "" {
		fmt.Fprintf(p.out, "session: %s\n", sessionID)
	}
}

// upload runs fn against a controller for the selected session.
func (a *app) upload(cmd *cobra.Command, fn func(ctx context.Context, c *conversation.Controller, status statusPrinter) error) error {
	ctx := cmd.Context()
	id, err := a.sessionID(ctx)
	if err != nil {
		return err
	}
	ctrl := a.controller(a.formatter(a.stdout), id, nil)
	defer ctrl.Close()
	return fn(ctx, ctrl, statusPrinter{out: a.stdout, theme: a.theme()})
}

func (a *app) newUploadCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <paths...>",
		Short: "Upload files to be indexed",
		Long: `Upload one or more files to the server for indexing. Without --session
or --continue a new session is started; its id is printed.`,
		Example: `  docchat upload handbook.pdf policies/*.md
  docchat upload --continue notes.txt`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := make([]string, 0, len(args))
			for _, p := range args {
				paths = append(paths, util.ExpandHome(p))
			}
			return a.upload(cmd, func(ctx context.Context, c *conversation.Controller, status statusPrinter) error {
				return c.Upload(ctx, paths, status)
			})
		},
	}
}

func (a *app) newUploadURLCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "upload-url <url>",
		Aliases: []string{"url"},
		Short:   "Index a web page",
		Example: `  docchat upload-url https://example.com/handbook`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.upload(cmd, func(ctx context.Context, c *conversation.Controller, status statusPrinter) error {
				return c.UploadURL(ctx, args[0], status)
			})
		},
	}
}
