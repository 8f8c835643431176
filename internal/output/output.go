package output

import (
	"fmt"
	"strings"
)

// Format names a rendering of a Listing.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "markdown"
)

var formatAliases = map[string]Format{
	"":         FormatTable,
	"table":    FormatTable,
	"text":     FormatTable,
	"json":     FormatJSON,
	"yaml":     FormatYAML,
	"yml":      FormatYAML,
	"md":       FormatMarkdown,
	"markdown": FormatMarkdown,
}

// Formatter renders listings.
type Formatter interface {
	Format(listing *Listing) (string, error)
}

// ParseFormat accepts a format name or one of its short aliases.
func ParseFormat(value string) (Format, error) {
	if f, ok := formatAliases[strings.ToLower(strings.TrimSpace(value))]; ok {
		return f, nil
	}
	return "", fmt.Errorf("unsupported output format: %s", value)
}

// Extension is the file suffix used when a listing is written into a directory.
func (f Format) Extension() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatYAML:
		return "yaml"
	case FormatMarkdown:
		return "md"
	}
	return "txt"
}

// NewFormatter picks the formatter for f; unknown formats render as a table.
func NewFormatter(f Format) Formatter {
	switch f {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatYAML:
		return &YAMLFormatter{}
	case FormatMarkdown:
		return &MarkdownFormatter{}
	}
	return &TableFormatter{}
}

func Render(f Format, listing *Listing) (string, error) {
	return NewFormatter(f).Format(listing)
}
