package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/stacman/stacman/api"
	"github.com/stacman/stacman/internal/config"
	"github.com/stacman/stacman/internal/observability"
)

type checkLevel int

const (
	checkOK checkLevel = iota
	checkWarn
	checkFail
)

func (l checkLevel) mark() string {
	switch l {
	case checkOK:
		return "✅"
	case checkWarn:
		return "⚠️ "
	}
	return "❌"
}

type checkResult struct {
	level  checkLevel
	detail string
	hint   string
	fields []zap.Field
}

func okResult(detail string, fields ...zap.Field) checkResult {
	return checkResult{level: checkOK, detail: detail, fields: fields}
}

func warnResult(detail string, fields ...zap.Field) checkResult {
	return checkResult{level: checkWarn, detail: detail, fields: fields}
}

func failResult(err error) checkResult {
	return checkResult{level: checkFail, detail: err.Error(), fields: []zap.Field{zap.Error(err)}}
}

// doctorEnv carries what earlier checks learned to later ones.
type doctorEnv struct {
	ctx    context.Context
	cfg    *config.Config
	cfgErr error
}

type doctorCheck struct {
	name string
	// needsConfig checks are skipped when the config failed to load.
	needsConfig bool
	run         func(env *doctorEnv) checkResult
}

var doctorPing bool

func doctorChecks(ping bool) []doctorCheck {
	checks := []doctorCheck{
		{name: "Go version", run: checkGoVersion},
		{name: "runtime libraries", run: checkLibraries},
		{name: "config", run: checkConfig},
		{name: "environment", run: func(*doctorEnv) checkResult {
			return okResult(runtime.GOOS+"/"+runtime.GOARCH, zap.String("os", runtime.GOOS), zap.String("arch", runtime.GOARCH))
		}},
		{name: "database", needsConfig: true, run: checkDatabase},
		{name: "throttle state", needsConfig: true, run: checkThrottleState},
		{name: "application key", needsConfig: true, run: checkAppKey},
	}
	if ping {
		checks = append(checks, doctorCheck{name: "API", needsConfig: true, run: checkAPI})
	}
	return checks
}

// runDoctor executes checks in order and reports whether none failed or warned.
func runDoctor(ctx context.Context, log observability.Logger, checks []doctorCheck) bool {
	env := &doctorEnv{ctx: ctx}
	healthy := true
	for i, check := range checks {
		prefix := fmt.Sprintf("[%d/%d] Checking %s...", i+1, len(checks), check.name)
		if check.needsConfig && env.cfg == nil {
			log.Warn(prefix + " ⚠️  skipped (config not loaded)")
			healthy = false
			continue
		}

		res := check.run(env)
		line := fmt.Sprintf("%s %s %s", prefix, res.level.mark(), res.detail)
		switch res.level {
		case checkOK:
			log.Info(line, res.fields...)
		case checkWarn:
			log.Warn(line, res.fields...)
		default:
			log.Error(line, res.fields...)
		}
		if res.hint != "" {
			log.Info("       " + res.hint)
		}
		if res.level == checkFail || (res.level == checkWarn && res.hint == "") {
			healthy = false
		}
	}
	return healthy
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks",
	Long:  "Run diagnostic checks on the installation and suggest fixes for common issues.",
	Run: func(cmd *cobra.Command, args []string) {
		log := observability.CLILogger
		log.Info("=== " + config.AppName + " doctor ===")
		log.Info("")

		healthy := runDoctor(cmd.Context(), log, doctorChecks(doctorPing))

		log.Info("")
		if healthy {
			log.Info(fmt.Sprintf("✅ All checks passed! Your %s installation is healthy.", config.AppName))
		} else {
			log.Warn("⚠️  Some checks failed. Review the output above for details.")
		}
	},
}

func checkGoVersion(*doctorEnv) checkResult {
	v := runtime.Version()
	if v >= "go1.25" {
		return okResult(v, zap.String("go_version", v))
	}
	return warnResult(v+" (recommended: go1.25+)", zap.String("go_version", v))
}

func checkLibraries(*doctorEnv) checkResult {
	v := crucible.GetVersion()
	if v.Crucible == "" || v.Gofulmen == "" {
		return warnResult("cannot read gofulmen/crucible versions")
	}
	return okResult(fmt.Sprintf("gofulmen v%s, crucible v%s", v.Gofulmen, v.Crucible),
		zap.String("gofulmen_version", v.Gofulmen), zap.String("crucible_version", v.Crucible))
}

func checkConfig(env *doctorEnv) checkResult {
	env.cfg, env.cfgErr = loadConfig(env.ctx)
	if env.cfgErr != nil {
		env.cfg = nil
		return failResult(env.cfgErr)
	}
	if used := config.ConfigFileUsed(); used != "" {
		return okResult(used, zap.String("config_file", used))
	}
	res := okResult("defaults")
	res.hint = fmt.Sprintf("Run '%s doctor init' to create %s.", config.AppName, config.DefaultConfigPath())
	return res
}

func checkDatabase(env *doctorEnv) checkResult {
	if env.cfg.Store.URL != "" {
		return okResult(env.cfg.Store.URL+" (remote)", zap.String("db_url", env.cfg.Store.URL))
	}
	path, _ := filepath.Abs(env.cfg.Store.Path)
	info, err := os.Stat(path)
	switch {
	case err == nil:
		return okResult(fmt.Sprintf("%s (%s)", path, formatFileSize(info.Size())),
			zap.String("db_path", path), zap.Int64("db_size", info.Size()))
	case errors.Is(err, fs.ErrNotExist):
		res := warnResult(path+" (not created yet)", zap.String("db_path", path))
		res.hint = "It is created on first use."
		return res
	}
	return failResult(err)
}

func checkThrottleState(env *doctorEnv) checkResult {
	if !env.cfg.Throttle.Persist {
		return okResult("not persisted (throttle.persist=false)")
	}
	db, err := openStore(env.ctx, env.cfg)
	if err != nil {
		return failResult(err)
	}
	defer db.Close() // nolint:errcheck // read-only use

	state, err := db.LoadThrottleState(env.ctx)
	if err != nil {
		return failResult(err)
	}
	if state == nil || state.WindowStart.IsZero() {
		return okResult("empty")
	}
	return okResult(fmt.Sprintf("window %s, %d backoff(s)", formatTimeAgo(state.WindowStart), len(state.Backoffs)),
		zap.Int("request_count", state.RequestCount), zap.Int("backoffs", len(state.Backoffs)))
}

func checkAppKey(env *doctorEnv) checkResult {
	if strings.TrimSpace(env.cfg.Client.Key) != "" {
		return okResult("configured")
	}
	res := warnResult("not configured (keyless requests share a small daily quota)")
	res.hint = "Set " + config.EnvPrefix + "_KEY or client.key to raise it."
	return res
}

// checkAPI fetches /info for the configured site through a throttled client.
func checkAPI(env *doctorEnv) checkResult {
	s, err := openSession(env.ctx)
	if err != nil {
		return failResult(err)
	}
	defer s.Close() // nolint:errcheck // best-effort flush

	future, err := api.NewInfo(s.client).Get("", "")
	if err == nil {
		_, err = await(env.ctx, future)
	}
	if err != nil {
		return failResult(err)
	}
	return okResult(s.client.BaseURL() + " reachable")
}

var (
	doctorInitForce   bool
	doctorInitKey     string
	doctorResetConfig bool
	doctorResetData   bool
	doctorResetAll    bool
)

var doctorInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a default config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.DefaultConfigPath()
		if path == "" {
			return errors.New("config path not resolved")
		}
		if _, err := os.Stat(path); err == nil && !doctorInitForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", path)
		}

		key := strings.TrimSpace(doctorInitKey)
		if strings.EqualFold(key, "prompt") {
			var err error
			if key, err = promptLine(os.Stdin, os.Stdout, "Enter application key (leave blank to skip): "); err != nil {
				return err
			}
		}

		body, err := buildInitConfig(key)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
		// The key is a credential of sorts; keep the file private when set.
		mode := os.FileMode(0o644)
		if key != "" {
			mode = 0o600
		}
		if err := os.WriteFile(path, body, mode); err != nil {
			return fmt.Errorf("write config file: %w", err)
		}

		observability.CLILogger.Info("Config initialized", zap.String("path", path))
		return nil
	},
}

// removeIfPresent deletes path, logging whether anything was there.
func removeIfPresent(what, path string) error {
	err := os.Remove(path)
	switch {
	case err == nil:
		observability.CLILogger.Info(what+" removed", zap.String("path", path))
	case errors.Is(err, fs.ErrNotExist):
		observability.CLILogger.Info(what+" already removed", zap.String("path", path))
	default:
		return fmt.Errorf("remove %s: %w", strings.ToLower(what), err)
	}
	return nil
}

var doctorResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset user configuration and/or data",
	RunE: func(cmd *cobra.Command, args []string) error {
		resetConfig := doctorResetConfig || doctorResetAll
		resetData := doctorResetData || doctorResetAll
		if !resetConfig && !resetData {
			return errors.New("specify --config, --data, or --all")
		}

		if resetConfig {
			if path := config.DefaultConfigPath(); path == "" {
				observability.CLILogger.Warn("Config path not resolved; skipping config reset")
			} else if err := removeIfPresent("Config", path); err != nil {
				return err
			}
		}
		if !resetData {
			return nil
		}

		cfg, err := loadConfig(cmd.Context())
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if cfg.Store.URL != "" {
			return errors.New("remote store configured; database reset is not supported")
		}
		path, _ := filepath.Abs(cfg.Store.Path)
		return removeIfPresent("Database", path)
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.Flags().BoolVar(&doctorPing, "ping", false, "also call the API once to check reachability")

	doctorCmd.AddCommand(doctorInitCmd)
	doctorInitCmd.Flags().BoolVar(&doctorInitForce, "force", false, "overwrite an existing config file")
	doctorInitCmd.Flags().StringVar(&doctorInitKey, "app-key", "", `application key to store, or "prompt" to ask`)

	doctorCmd.AddCommand(doctorResetCmd)
	doctorResetCmd.Flags().BoolVar(&doctorResetConfig, "config", false, "remove the user config file")
	doctorResetCmd.Flags().BoolVar(&doctorResetData, "data", false, "remove the local database")
	doctorResetCmd.Flags().BoolVar(&doctorResetAll, "all", false, "remove config and data")
}

func formatFileSize(n int64) string {
	units := []string{"KB", "MB", "GB"}
	if n < 1024 {
		return fmt.Sprintf("%d bytes", n)
	}
	size := float64(n) / 1024
	unit := 0
	for size >= 1024 && unit < len(units)-1 {
		size /= 1024
		unit++
	}
	return fmt.Sprintf("%.1f %s", size, units[unit])
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit + " ago"
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

func formatTimeAgo(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	switch d := time.Since(t); {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return plural(int(d.Minutes()), "min")
	case d < 24*time.Hour:
		return plural(int(d.Hours()), "hour")
	default:
		return plural(int(d.Hours()/24), "day")
	}
}

type initConfig struct {
	Client struct {
		Site            string `yaml:"site"`
		Key             string `yaml:"key,omitempty"`
		MaxConcurrent   int    `yaml:"max_concurrent"`
		Timeout         string `yaml:"timeout"`
		RespectBackoffs bool   `yaml:"respect_backoffs"`
	} `yaml:"client"`
	Throttle struct {
		Limit        int     `yaml:"limit"`
		Window       string  `yaml:"window"`
		SafetyMargin float64 `yaml:"safety_margin"`
		Persist      bool    `yaml:"persist"`
	} `yaml:"throttle"`
}

// buildInitConfig renders the starter config written by doctor init.
func buildInitConfig(key string) ([]byte, error) {
	var c initConfig
	c.Client.Site = "stackoverflow"
	c.Client.Key = strings.TrimSpace(key)
	c.Client.MaxConcurrent = 10
	c.Client.Timeout = "5s"
	c.Client.RespectBackoffs = true
	c.Throttle.Limit = 30
	c.Throttle.Window = "30s"
	c.Throttle.SafetyMargin = 1.0
	c.Throttle.Persist = true

	body, err := yaml.Marshal(&c)
	if err != nil {
		return nil, fmt.Errorf("render config: %w", err)
	}
	header := fmt.Sprintf("# %s config - created by '%s doctor init'\n", config.AppName, config.AppName)
	if c.Client.Key == "" {
		header += fmt.Sprintf("# Set %s_KEY or client.key to use an application key.\n", config.EnvPrefix)
	}
	return append([]byte(header), body...), nil
}

func promptLine(in io.Reader, out io.Writer, prompt string) (string, error) {
	if _, err := fmt.Fprint(out, prompt); err != nil {
		return "", err
	}
	value, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(value), nil
}
