package cmd

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacman/stacman/internal/config"
	"github.com/stacman/stacman/internal/core"
	"github.com/stacman/stacman/internal/output"
)

func TestWindowSummary(t *testing.T) {
	cfg := config.ThrottleConfig{Limit: 30, Window: 30 * time.Second}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	empty := windowSummary(cfg, nil, now)
	assert.Contains(t, empty, "limit:   30 per 30s")
	assert.Contains(t, empty, "(nothing persisted)")

	state := &core.ThrottleState{
		RequestCount: 12,
		WindowStart:  now.Add(-10 * time.Second),
		Backoffs:     []core.BackoffEntry{{Key: "questions"}},
	}
	active := windowSummary(cfg, state, now)
	assert.Contains(t, active, "used:    12")
	assert.Contains(t, active, "backoff: 1 key(s)")

	state.WindowStart = now.Add(-time.Minute)
	assert.Contains(t, windowSummary(cfg, state, now), "used:    0")
}

func TestWriteRateLimitResetResult(t *testing.T) {
	var text bytes.Buffer
	require.NoError(t, writeRateLimitResetResult(output.FormatTable, &text, resetResult{Matched: 3, DryRun: true, Window: true}))
	assert.Equal(t, "Would delete 3 backoff entr(ies) and the request window\n", text.String())

	var raw bytes.Buffer
	require.NoError(t, writeRateLimitResetResult(output.FormatJSON, &raw, resetResult{Matched: 2, Deleted: 2}))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw.Bytes(), &decoded))
	assert.EqualValues(t, 2, decoded["deleted"])
	assert.Equal(t, false, decoded["window_reset"])
}

func TestServeOverridesOnlyChangedFlags(t *testing.T) {
	host, port, key := serverHost, serverPort, apiKey
	t.Cleanup(func() { serverHost, serverPort, apiKey = host, port, key })
	apiKey = ""

	cmd := &cobra.Command{Use: "serve"}
	cmd.Flags().StringVar(&serverHost, "host", "localhost", "")
	cmd.Flags().IntVar(&serverPort, "port", 8080, "")

	assert.Empty(t, serveOverrides(cmd))

	require.NoError(t, cmd.Flags().Set("port", "9000"))
	apiKey = "k"
	overrides := serveOverrides(cmd)
	assert.Equal(t, map[string]any{"port": 9000}, overrides["server"])
	assert.Equal(t, map[string]any{"key": "k"}, overrides["client"])
}
