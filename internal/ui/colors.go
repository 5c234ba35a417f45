// Package ui holds the ANSI styling helpers the command output uses.
package ui

const (
	ColorReset = "\033[0m"
	ColorBold  = "\033[1m"

	ColorCyan  = "\033[36m"
	ColorGreen = "\033[32m"
	ColorRed   = "\033[31m"
)

// Bold styles s for headings and emphasized values.
func Bold(s string) string { return ColorBold + s + ColorReset }

// Success styles s for completed operations.
func Success(s string) string { return ColorGreen + s + ColorReset }

// Error styles s for failure reporting.
func Error(s string) string { return ColorRed + s + ColorReset }
