package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
)

// DefaultWordWrap is the terminal width used by WriteStyled
const DefaultWordWrap = 120

// WriteMarkdown writes entries as a GitHub flavored markdown table.
// Ticker is left aligned, every numeric column right aligned.
func WriteMarkdown(w io.Writer, entries []Entry) error {
	var b strings.Builder

	writeMarkdownRow(&b, Columns)
	b.WriteString("|")
	for i := range Columns {
		if i == 0 {
			b.WriteString(" :--- |")
		} else {
			b.WriteString(" ---: |")
		}
	}
	b.WriteString("\n")

	for _, e := range entries {
		writeMarkdownRow(&b, e.Values())
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeMarkdownRow(b *strings.Builder, values []string) {
	b.WriteString("|")
	for _, v := range values {
		fmt.Fprintf(b, " %s |", strings.ReplaceAll(v, "|", `\|`))
	}
	b.WriteString("\n")
}

// WriteStyled renders the markdown table for a terminal
func WriteStyled(w io.Writer, title string, entries []Entry, width int) error {
	if width <= 0 {
		width = DefaultWordWrap
	}

	var md strings.Builder
	if title != "" {
		fmt.Fprintf(&md, "# %s\n\n", title)
	}
	if err := WriteMarkdown(&md, entries); err != nil {
		return err
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return fmt.Errorf("failed to create markdown renderer: %w", err)
	}

	out, err := renderer.Render(md.String())
	if err != nil {
		return fmt.Errorf("failed to render markdown: %w", err)
	}

	_, err = io.WriteString(w, out)
	return err
}
