package output

import (
	"github.com/jedib0t/go-pretty/v6/table"
)

// TableFormatter renders listings as an ASCII table.
type TableFormatter struct{}

func (f *TableFormatter) Format(listing *Listing) (string, error) {
	if listing == nil {
		return "", nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	if listing.Title != "" {
		t.SetTitle(listing.Title)
	}
	t.AppendHeader(toRow(listing.Columns))

	for _, row := range listing.Rows {
		t.AppendRow(toRow(row))
	}

	if listing.Footer != "" && len(listing.Columns) > 0 {
		footer := make(table.Row, len(listing.Columns))
		for i := range footer {
			footer[i] = ""
		}
		footer[len(footer)-1] = listing.Footer
		t.AppendFooter(footer)
	}

	return t.Render(), nil
}

func toRow(values []string) table.Row {
	row := make(table.Row, len(values))
	for i, v := range values {
		row[i] = v
	}
	return row
}
