package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeverity(t *testing.T) {
	for level, want := range map[string]string{
		"trace":   "TRACE",
		" Debug ": "DEBUG",
		"warning": "WARN",
		"ERROR":   "ERROR",
		"":        "INFO",
		"verbose": "INFO",
	} {
		assert.Equal(t, want, severity(level), level)
	}
}

func TestServerLoggerConfig(t *testing.T) {
	t.Setenv("STACMAN_ENV", "staging")

	cfg := serverLoggerConfig("stacman", "debug", "gateway")
	assert.Equal(t, "DEBUG", cfg.DefaultLevel)
	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, "gateway", cfg.StaticFields["namespace"])
	assert.Len(t, cfg.Sinks, 1)

	t.Setenv("STACMAN_ENV", "")
	cfg = serverLoggerConfig("stacman", "info", "")
	assert.Equal(t, "production", cfg.Environment)
	assert.NotContains(t, cfg.StaticFields, "namespace")
}
