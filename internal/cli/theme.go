// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/docchat-tui/internal/config"
	"github.com/jeranaias/docchat-tui/internal/ui/styles"
)

func (a *app) newThemeCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "theme [dark|light|auto|toggle]",
		Short:     "Show or change the color theme",
		Long:      "Without an argument, print the theme. Otherwise save the new preference.",
		ValidArgs: []string{config.ThemeDark, config.ThemeLight, config.ThemeAuto, "toggle"},
		Args:      cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				choice := strings.ToLower(args[0])
				err := a.updateConfig(func(c *config.Config) error {
					if choice == "toggle" {
						c.ToggleTheme()
						return nil
					}
					return c.SetTheme(choice)
				})
				if err != nil {
					return err
				}
			}

			name := a.cfg.UI.Theme
			if resolved := styles.Resolve(name); resolved != name {
				name += " (" + resolved + ")"
			}
			fmt.Fprintf(a.stdout, "Theme: %s\n", name)
			return nil
		},
	}
}
