package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
)

var (
	primaryColor = lipgloss.Color("#3B82F6") // gateway blue
	errorColor   = lipgloss.Color("#EF8C8C")
	successColor = lipgloss.Color("#88BF4D")
	mutedColor   = lipgloss.Color("#949AAB")

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	successStyle = lipgloss.NewStyle().
			Foreground(successColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	keyStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Width(18)

	valueStyle = lipgloss.NewStyle()
)

// Version is set at build time via -ldflags; "dev" otherwise.
var Version = "dev"

// Header prints a styled header.
func Header(icon, text string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", icon, headerStyle.Render(text))
}

// Blank prints a blank line.
func Blank() {
	fmt.Fprintln(os.Stderr)
}

// Summary prints key-value pairs.
func Summary(pairs ...string) {
	for i := 0; i < len(pairs); i += 2 {
		key := pairs[i]
		val := ""
		if i+1 < len(pairs) {
			val = pairs[i+1]
		}
		fmt.Fprintf(os.Stderr, "  %s %s\n", keyStyle.Render(key+":"), valueStyle.Render(val))
	}
}

// Success prints a success message.
func Success(msg string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", successStyle.Render("[OK]"), msg)
}

// Error prints an error message.
func Error(msg string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", errorStyle.Render("[ERROR]"), msg)
}

// Step prints a step message.
func Step(icon, msg string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", icon, msg)
}
