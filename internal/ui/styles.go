package ui

import "fmt"

// ANSI256 color codes.
const (
	colorAccent = 74  // blue
	colorOK     = 114 // green
	colorWarn   = 179 // amber
	colorMuted  = 245 // medium gray
)

var noColor bool

func render(color int, s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", color, s)
}

// RenderAccent returns s in the accent (blue) color.
func RenderAccent(s string) string { return render(colorAccent, s) }

// RenderOK returns s in green.
func RenderOK(s string) string { return render(colorOK, s) }

// RenderWarn returns s in amber.
func RenderWarn(s string) string { return render(colorWarn, s) }

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string { return render(colorMuted, s) }

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor = true
}
