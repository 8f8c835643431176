package cmd

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gopkg.in/yaml.v3"

	"github.com/stacman/stacman/internal/config"
)

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func TestRunDoctorSkipsConfigDependentChecks(t *testing.T) {
	logger, logs := observedLogger()
	var ran bool
	checks := []doctorCheck{
		{name: "config", run: func(*doctorEnv) checkResult { return failResult(errors.New("bad yaml")) }},
		{name: "database", needsConfig: true, run: func(*doctorEnv) checkResult {
			ran = true
			return okResult("fine")
		}},
	}

	assert.False(t, runDoctor(context.Background(), logger, checks))
	assert.False(t, ran)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.Equal(t, "[1/2] Checking config... ❌ bad yaml", entries[0].Message)
	assert.Contains(t, entries[1].Message, "[2/2] Checking database...")
	assert.Contains(t, entries[1].Message, "skipped")
}

func TestRunDoctorHintedWarningsStayHealthy(t *testing.T) {
	logger, logs := observedLogger()
	hinted := warnResult("not configured")
	hinted.hint = "Set it."
	checks := []doctorCheck{
		{name: "config", run: func(env *doctorEnv) checkResult {
			env.cfg = &config.Config{}
			return okResult("defaults")
		}},
		{name: "application key", needsConfig: true, run: func(*doctorEnv) checkResult { return hinted }},
	}

	assert.True(t, runDoctor(context.Background(), logger, checks))
	assert.Equal(t, 1, logs.FilterMessage("       Set it.").Len())

	checks = append(checks, doctorCheck{name: "Go version", run: func(*doctorEnv) checkResult {
		return warnResult("go1.20")
	}})
	assert.False(t, runDoctor(context.Background(), logger, checks))
}

func TestDoctorChecksPing(t *testing.T) {
	assert.Len(t, doctorChecks(true), len(doctorChecks(false))+1)
	assert.Equal(t, "API", doctorChecks(true)[len(doctorChecks(true))-1].name)
}

func TestBuildInitConfig(t *testing.T) {
	body, err := buildInitConfig("")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(body), "# stacman config"))
	assert.Contains(t, string(body), "STACMAN_KEY")
	assert.NotContains(t, string(body), "key:")

	body, err = buildInitConfig(" secret ")
	require.NoError(t, err)

	var parsed map[string]map[string]any
	require.NoError(t, yaml.Unmarshal(body, &parsed))
	assert.Equal(t, "secret", parsed["client"]["key"])
	assert.Equal(t, "stackoverflow", parsed["client"]["site"])
	assert.Equal(t, 30, parsed["throttle"]["limit"])
	assert.Equal(t, "30s", parsed["throttle"]["window"])
}

func TestFormatFileSize(t *testing.T) {
	assert.Equal(t, "512 bytes", formatFileSize(512))
	assert.Equal(t, "1.5 KB", formatFileSize(1536))
	assert.Equal(t, "2.0 MB", formatFileSize(2<<20))
	assert.Equal(t, "3.0 GB", formatFileSize(3<<30))
}

func TestFormatTimeAgo(t *testing.T) {
	now := time.Now()
	assert.Equal(t, "unknown", formatTimeAgo(time.Time{}))
	assert.Equal(t, "just now", formatTimeAgo(now.Add(-10*time.Second)))
	assert.Equal(t, "1 min ago", formatTimeAgo(now.Add(-90*time.Second)))
	assert.Equal(t, "3 hours ago", formatTimeAgo(now.Add(-3*time.Hour-time.Minute)))
	assert.Equal(t, "2 days ago", formatTimeAgo(now.Add(-49*time.Hour)))
}

func TestPromptLine(t *testing.T) {
	var out bytes.Buffer
	value, err := promptLine(strings.NewReader("  abc123\n"), &out, "Key: ")
	require.NoError(t, err)
	assert.Equal(t, "abc123", value)
	assert.Equal(t, "Key: ", out.String())

	value, err = promptLine(strings.NewReader("no-newline"), &out, "")
	require.NoError(t, err)
	assert.Equal(t, "no-newline", value)
}

func TestConfigSectionsHideSecrets(t *testing.T) {
	cfg := &config.Config{}
	cfg.Client.Key = "abc"
	cfg.Store.URL = "libsql://db.example.turso.io"
	cfg.Store.AuthToken = "token"

	var lines []string
	for _, s := range configSections(cfg) {
		for _, f := range s.fields {
			lines = append(lines, f.label+"="+f.value)
		}
	}
	joined := strings.Join(lines, "\n")
	assert.Contains(t, joined, "Key=(set)")
	assert.Contains(t, joined, "Auth Token=(set)")
	assert.Contains(t, joined, "DB URL=libsql://db.example.turso.io")
	assert.NotContains(t, joined, "abc")
	assert.NotContains(t, joined, "=token")
}

func TestLogSectionsAlignsLabels(t *testing.T) {
	logger, logs := observedLogger()
	logSections(logger, []envSection{{"A", []envField{{"Short", "1"}, {"Much Longer", "2"}}}})

	entries := logs.All()
	require.Len(t, entries, 4)
	assert.Equal(t, "A:", entries[0].Message)
	assert.Equal(t, "  Short:        1", entries[1].Message)
	assert.Equal(t, "  Much Longer:  2", entries[2].Message)
}

func TestWriteVersion(t *testing.T) {
	SetVersionInfo("1.4.0", "abc1234", "2026-01-02")

	var short bytes.Buffer
	require.NoError(t, writeVersion(&short, false))
	assert.Equal(t, "stacman 1.4.0\n", short.String())

	var long bytes.Buffer
	require.NoError(t, writeVersion(&long, true))
	assert.Contains(t, long.String(), "Commit: abc1234\n")
	assert.Contains(t, long.String(), "User-Agent: StacMan Go\n")
}
