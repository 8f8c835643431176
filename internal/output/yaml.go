package output

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// YAMLFormatter renders the listing's value as YAML. The value goes through
// JSON first so field names follow the API's json tags.
type YAMLFormatter struct{}

func (f *YAMLFormatter) Format(listing *Listing) (string, error) {
	if listing == nil {
		return "", nil
	}

	data, err := json.Marshal(listing.Value)
	if err != nil {
		return "", fmt.Errorf("encode value: %w", err)
	}

	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return "", fmt.Errorf("decode value: %w", err)
	}

	out, err := yaml.Marshal(generic)
	if err != nil {
		return "", fmt.Errorf("encode yaml: %w", err)
	}
	return strings.TrimRight(string(out), "\n"), nil
}
