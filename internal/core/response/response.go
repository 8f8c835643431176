package response

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/stacman/stacman/internal/core"
)

const excerptLimit = 256

// Parse decodes a raw API body into an envelope whose items are T.
func Parse[T any](body []byte) (*core.Envelope[T], error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, malformed(body, errors.New("empty body"))
	}
	if trimmed[0] != '{' {
		return nil, malformed(body, errors.New("expected a JSON object"))
	}

	var envelope core.Envelope[T]
	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	if err := decoder.Decode(&envelope); err != nil {
		return nil, malformed(body, fmt.Errorf("decode envelope: %w", err))
	}
	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		return nil, malformed(body, errors.New("trailing data after envelope"))
	}

	return &envelope, nil
}

func malformed(body []byte, err error) error {
	return &core.MalformedResponseError{Excerpt: excerpt(body), Err: err}
}

func excerpt(body []byte) string {
	if len(body) <= excerptLimit {
		return string(body)
	}
	return string(body[:excerptLimit]) + "..."
}
