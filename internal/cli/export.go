// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeranaias/docchat-tui/internal/export"
	"github.com/jeranaias/docchat-tui/internal/history"
	"github.com/jeranaias/docchat-tui/internal/util"
)

func (a *app) newExportCommand() *cobra.Command {
	var (
		format string
		output string
		dir    string
		open   bool
		stdout bool
		noMeta bool
	)
	cmd := &cobra.Command{
		Use:   "export [id]",
		Short: "Export a recorded conversation",
		Long: `Export a conversation from local history as HTML, Markdown or JSON.
Without an id the most recent session is exported.`,
		Example: `  docchat export
  docchat export 3f2a --format md --output notes.md
  docchat export --format json --stdout | jq .`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.requireHistory()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			var sess *history.Session
			if len(args) == 1 {
				sess, err = store.Find(ctx, args[0])
			} else {
				var recent []history.Session
				recent, err = store.List(ctx, 1)
				if err == nil && len(recent) == 0 {
					err = &CommandError{Command: "export", Reason: "no recorded sessions", Err: history.ErrNotFound}
				}
				if err == nil {
					sess = &recent[0]
				}
			}
			if err != nil {
				return err
			}
			msgs, err := store.Messages(ctx, sess.ID)
			if err != nil {
				return err
			}

			opts := export.DefaultOptions()
			opts.Theme = a.theme().Name
			opts.OutputDir = util.ExpandHome(dir)
			opts.OutputPath = util.ExpandHome(output)
			opts.OpenAfterExport = open
			opts.IncludeMetadata = !noMeta
			exporter, err := export.ForFormat(format, opts)
			if err != nil {
				return &UsageError{Message: err.Error()}
			}

			conv := export.FromHistory(sess, msgs)
			if stdout {
				data, err := exporter.Export(conv)
				if err != nil {
					return err
				}
				_, err = a.stdout.Write(data)
				return err
			}
			path, err := export.ExportToFile(conv, exporter, opts)
			if err != nil {
				return &CommandError{Command: "export", Action: "write", Err: err}
			}
			fmt.Fprintf(a.stdout, "Exported to %s\n", path)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&format, "format", "f", "html", "html, markdown or json")
	f.StringVarP(&output, "output", "o", "", "output file (default: generated name in --dir)")
	f.StringVar(&dir, "dir", ".", "directory for the generated file name")
	f.BoolVar(&open, "open", false, "open the file after exporting")
	f.BoolVar(&stdout, "stdout", false, "write to stdout instead of a file")
	f.BoolVar(&noMeta, "no-metadata", false, "omit the session header")
	return cmd
}
