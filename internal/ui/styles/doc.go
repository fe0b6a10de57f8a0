// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling for the docchat TUI.

There are two palettes, dark and light. The "auto" theme asks the terminal
for its background color through termenv and picks one of them:

	theme := styles.NewTheme(cfg.UI.Theme)
	header := theme.HeaderTitle.Render("docchat")

Answers themselves are styled by glamour in the markdown package; the
theme only covers the chrome around them.
*/
package styles
