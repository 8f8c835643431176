package output

import (
	"fmt"
	"strings"
)

// MarkdownFormatter renders listings as a markdown table.
type MarkdownFormatter struct{}

func (f *MarkdownFormatter) Format(listing *Listing) (string, error) {
	if listing == nil {
		return "", nil
	}

	var sb strings.Builder
	if listing.Title != "" {
		sb.WriteString(fmt.Sprintf("## %s\n\n", escapeMarkdownCell(listing.Title)))
	}

	sb.WriteString(markdownRow(listing.Columns))
	separators := make([]string, len(listing.Columns))
	for i := range separators {
		separators[i] = "---"
	}
	sb.WriteString(markdownRow(separators))

	for _, row := range listing.Rows {
		sb.WriteString(markdownRow(row))
	}

	if listing.Footer != "" {
		sb.WriteString(fmt.Sprintf("\n_%s_\n", escapeMarkdownCell(listing.Footer)))
	}
	return sb.String(), nil
}

func markdownRow(cells []string) string {
	escaped := make([]string, len(cells))
	for i, cell := range cells {
		escaped[i] = escapeMarkdownCell(cell)
	}
	return "| " + strings.Join(escaped, " | ") + " |\n"
}

func escapeMarkdownCell(value string) string {
	return strings.ReplaceAll(value, "|", "\\|")
}
