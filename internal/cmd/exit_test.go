package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/stretchr/testify/assert"

	"github.com/stacman/stacman"
)

func TestExitCodeFor(t *testing.T) {
	assert.Equal(t, foundry.ExitCode(0), ExitCodeFor(nil))
	assert.Equal(t, foundry.ExitFailure, ExitCodeFor(errors.New("boom")))

	transport := &stacman.TransportError{URL: "https://example.test", Err: errors.New("refused")}
	assert.Equal(t, foundry.ExitExternalServiceUnavailable, ExitCodeFor(fmt.Errorf("get: %w", transport)))

	apiErr := &stacman.APIError{ID: 502, Name: "throttle_violation"}
	assert.Equal(t, foundry.ExitExternalServiceUnavailable, ExitCodeFor(apiErr))
}

func TestExitCodeForMissingFile(t *testing.T) {
	_, err := os.Open(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, foundry.ExitFileNotFound, ExitCodeFor(fmt.Errorf("load config: %w", err)))
}
