package main

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/evcollect/internal/ui"
)

var (
	// Unindented line ending with ":" ("Collection:", "Flags:").
	reGroupHeader = regexp.MustCompile(`(?m)^([A-Z][^\n]*:)\s*$`)

	// Two-space indent, a word, then two or more spaces before the description.
	reCommand = regexp.MustCompile(`(?m)^(  )(\S+)(  )`)

	reFlagType = regexp.MustCompile(`(--?\S+\s+)(string|int|float|duration)`)

	reDefault = regexp.MustCompile(`\(default [^)]*\)`)
)

// colorizedHelpFunc styles cobra's default help when stdout supports color.
func colorizedHelpFunc() func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, args []string) {
		if !ui.ShouldUseColor() {
			_ = cmd.Usage()
			return
		}

		orig := cmd.OutOrStdout()
		var buf bytes.Buffer
		cmd.SetOut(&buf)
		_ = cmd.Usage()
		cmd.SetOut(orig)

		fmt.Fprint(orig, colorizeHelpOutput(buf.String()))
	}
}

func colorizeHelpOutput(s string) string {
	s = reGroupHeader.ReplaceAllStringFunc(s, func(match string) string {
		return ui.RenderAccent(strings.TrimSpace(match))
	})
	s = reCommand.ReplaceAllStringFunc(s, func(match string) string {
		parts := reCommand.FindStringSubmatch(match)
		return parts[1] + ui.RenderOK(parts[2]) + parts[3]
	})
	s = reFlagType.ReplaceAllStringFunc(s, func(match string) string {
		parts := reFlagType.FindStringSubmatch(match)
		return parts[1] + ui.RenderMuted(parts[2])
	})
	return reDefault.ReplaceAllStringFunc(s, ui.RenderMuted)
}
