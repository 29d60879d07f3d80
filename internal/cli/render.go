// internal/cli/render.go
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

const defaultWidth = 80

// Renderer turns narrative markdown into terminal text.
type Renderer func(markdown string) (string, error)

// PlainRenderer returns markdown unchanged.
func PlainRenderer(markdown string) (string, error) {
	return markdown + "\n", nil
}

// NewRenderer renders markdown with glamour, wrapped to the terminal width.
// When stdout is not a terminal the notty style is used.
func NewRenderer() Renderer {
	fd := int(os.Stdout.Fd())
	width := defaultWidth
	if w, _, err := term.GetSize(fd); err == nil && w > 20 {
		width = w - 4
	}

	style := glamour.WithAutoStyle()
	if !term.IsTerminal(fd) {
		style = glamour.WithStandardStyle("notty")
	}
	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(width))
	if err != nil {
		return PlainRenderer
	}
	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}

// IsInteractive reports whether stdin is a terminal.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// PrintBanner writes the title in the accent colors of the web client.
func PrintBanner(w io.Writer, title, subtitle string) {
	out := termenv.NewOutput(w)
	fmt.Fprintln(w)
	fmt.Fprintln(w, out.String("  ✦ "+title+" ✦").Bold().Foreground(out.Color("#f59e0b")))
	fmt.Fprintln(w, out.String("  "+subtitle).Foreground(out.Color("#a1a1aa")))
	fmt.Fprintln(w)
}
