package output

import (
	"bytes"
	"encoding/json"
	"strings"
)

// JSONFormatter renders the listing's value as JSON. HTML in titles and
// bodies is left unescaped.
type JSONFormatter struct {
	Indent bool
}

func (f *JSONFormatter) Format(listing *Listing) (string, error) {
	if listing == nil {
		return "", nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if f.Indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(listing.Value); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
