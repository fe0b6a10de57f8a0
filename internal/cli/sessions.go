// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/docchat-tui/internal/history"
	"github.com/jeranaias/docchat-tui/internal/util"
)

// sessionJSON is one session in `sessions list --json`.
type sessionJSON struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Server    string    `json:"server"`
	Messages  int       `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (a *app) newSessionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"session"},
		Short:   "Manage locally recorded sessions",
	}
	list := a.newSessionsListCommand()
	cmd.RunE = list.RunE
	cmd.Flags().AddFlagSet(list.Flags())
	cmd.AddCommand(list, a.newSessionsShowCommand(), a.newSessionsRemoveCommand(), a.newSessionsPruneCommand())
	return cmd
}

func (a *app) newSessionsListCommand() *cobra.Command {
	var limit int
	var asJSON bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List recent sessions",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.requireHistory()
			if err != nil {
				return err
			}
			sessions, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				out := make([]sessionJSON, 0, len(sessions))
				for _, s := range sessions {
					out = append(out, sessionJSON{
						ID: s.ID, Title: s.DisplayTitle(), Server: s.Server, Messages: s.MessageCount,
						CreatedAt: s.CreatedAt, UpdatedAt: s.UpdatedAt,
					})
				}
				enc := json.NewEncoder(a.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}
			if len(sessions) == 0 {
				fmt.Fprintln(a.stdout, "No recorded sessions.")
				return nil
			}
			writeSessionTable(a.stdout, sessions)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "how many sessions to list (0 = all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

// writeSessionTable prints sessions as aligned columns.
func writeSessionTable(w io.Writer, sessions []history.Session) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUPDATED\tMSGS\tTITLE")
	for _, s := range sessions {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n",
			s.ID, s.UpdatedAt.Local().Format("2006-01-02 15:04"), s.MessageCount,
			util.TruncateWidth(s.DisplayTitle(), 50))
	}
	tw.Flush()
}

func (a *app) newSessionsShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a recorded conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.requireHistory()
			if err != nil {
				return err
			}
			sess, err := store.Find(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			msgs, err := store.Messages(cmd.Context(), sess.ID)
			if err != nil {
				return err
			}
			theme := a.theme()
			fmt.Fprintln(a.stdout, theme.HeaderTitle.Render(sess.DisplayTitle()))
			fmt.Fprintf(a.stdout, "%s  %s\n\n", sess.ID, sess.UpdatedAt.Local().Format("2006-01-02 15:04"))
			printMessages(a.stdout, theme, a.formatter(a.stdout), msgs)
			return nil
		},
	}
}

func (a *app) newSessionsRemoveCommand() *cobra.Command {
	var server bool
	cmd := &cobra.Command{
		Use:     "rm <id...>",
		Aliases: []string{"delete"},
		Short:   "Forget recorded sessions",
		Long: "Delete sessions from local history. With --server the session is\n" +
			"also deleted on the server; ids unknown locally are sent as given.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := a.history()
			if err != nil {
				return err
			}
			if store == nil && !server {
				return errHistoryDisabled
			}

			for _, arg := range args {
				id := arg
				var local *history.Session
				if store != nil {
					local, err = store.Find(ctx, arg)
					switch {
					case err == nil:
						id = local.ID
					case errors.Is(err, history.ErrNotFound) && server:
					default:
						return err
					}
				}

				if server {
					if err := a.client.DeleteSession(ctx, id); err != nil {
						return err
					}
				}
				if local != nil {
					if err := store.Delete(ctx, id); err != nil {
						return err
					}
				}
				fmt.Fprintf(a.stdout, "Deleted %s\n", id)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&server, "server", false, "also delete the session on the server")
	return cmd
}

func (a *app) newSessionsPruneCommand() *cobra.Command {
	var keep int
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Keep only the most recent sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.requireHistory()
			if err != nil {
				return err
			}
			if keep < 0 {
				return &UsageError{Message: "--keep must not be negative"}
			}
			n, err := store.Prune(cmd.Context(), keep)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Removed %d session(s)\n", n)
			return nil
		},
	}
	cmd.Flags().IntVar(&keep, "keep", 50, "sessions to keep")
	return cmd
}
