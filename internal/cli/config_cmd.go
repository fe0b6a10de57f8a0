// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/jeranaias/docchat-tui/internal/config"
	"github.com/jeranaias/docchat-tui/internal/ui/styles"
)

func (a *app) newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change settings",
	}
	cmd.AddCommand(
		a.newConfigShowCommand(),
		a.newConfigPathCommand(),
		a.newConfigGetCommand(),
		a.newConfigSetCommand(),
		a.newConfigResetCommand(),
	)
	return cmd
}

func (a *app) newConfigShowCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long:  "Print the configuration after environment variables and flags are applied. The CSRF token is masked.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			shown := a.cfg.Clone()
			shown.Server.CSRFToken = maskSecret(shown.Server.CSRFToken)
			if asJSON {
				enc := json.NewEncoder(a.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(shown)
			}
			return toml.NewEncoder(a.stdout).Encode(shown)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func (a *app) newConfigPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ConfigPathTOML()
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, path)
			if _, err := os.Stat(path); os.IsNotExist(err) {
				fmt.Fprintln(a.stderr, "Note: file does not exist yet; it is created when a setting is saved")
			}
			return nil
		},
	}
}

func (a *app) newConfigGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "get <key>",
		Short:   "Print one setting",
		Example: "  docchat config get ui.theme",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := a.cfg.Get(args[0])
			if err != nil {
				return &UsageError{Message: err.Error()}
			}
			s := fmt.Sprint(v)
			if isSecretKey(args[0]) {
				s = maskSecret(s)
			}
			fmt.Fprintln(a.stdout, s)
			return nil
		},
	}
}

func (a *app) newConfigSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one setting",
		Example: `  docchat config set server.url https://docs.example.com
  docchat config set stream.idle_timeout_secs 300`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]
			err := a.updateConfig(func(c *config.Config) error {
				return c.Set(key, value)
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, a.theme().Status(styles.StatusSuccess, "Set "+key))
			return nil
		},
	}
}

func (a *app) newConfigResetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Restore the default configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Save(config.Default()); err != nil {
				return err
			}
			path, _ := config.ConfigPathTOML()
			fmt.Fprintf(a.stdout, "Configuration reset to defaults (%s)\n", path)
			return nil
		},
	}
}

// isSecretKey reports whether a setting holds a credential.
func isSecretKey(key string) bool {
	key = strings.ToLower(key)
	for _, s := range []string{"token", "secret", "password"} {
		if strings.Contains(key, s) {
			return true
		}
	}
	return false
}

// maskSecret shows a short fingerprint instead of a credential.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(s))
	return fmt.Sprintf("sha256:%x...", sum[:4])
}
