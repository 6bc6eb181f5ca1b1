package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// Format selects the output encoding
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"

	FormatMarkdown Format = "markdown"
)

// ParseFormat validates a format name
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatTable, FormatJSON, FormatCSV, FormatMarkdown:
		return f, nil
	case "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unknown format %q (table, json, csv, markdown)", s)
	}
}

// Write encodes entries to w
func Write(w io.Writer, format Format, entries []Entry) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, entries)
	case FormatCSV:
		return WriteCSV(w, entries)
	case FormatMarkdown:
		return WriteMarkdown(w, entries)
	case FormatTable, "":
		return WriteTable(w, entries)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

// WriteJSON writes entries as an indented JSON array
func WriteJSON(w io.Writer, entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}

// WriteCSV writes entries with a header row
func WriteCSV(w io.Writer, entries []Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, e := range entries {
		if err := cw.Write(e.Values()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTable writes a fixed-width table
func WriteTable(w io.Writer, entries []Entry) error {
	widths := make([]int, len(Columns))
	for i, col := range Columns {
		widths[i] = utf8.RuneCountInString(col)
	}
	for _, e := range entries {
		for i, v := range e.Values() {
			if n := utf8.RuneCountInString(v); n > widths[i] {
				widths[i] = n
			}
		}
	}

	var b strings.Builder
	writeRow(&b, Columns, widths)

	// Separator line
	total := 0
	for i, width := range widths {
		total += width
		if i < len(widths)-1 {
			total += 2 // spacing
		}
	}
	b.WriteString(strings.Repeat("─", total))
	b.WriteString("\n")

	for _, e := range entries {
		writeRow(&b, e.Values(), widths)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeRow(b *strings.Builder, values []string, widths []int) {
	for i, val := range values {
		if i < len(values)-1 {
			fmt.Fprintf(b, "%-*s  ", widths[i], val)
		} else {
			b.WriteString(val)
		}
	}
	b.WriteString("\n")
}
