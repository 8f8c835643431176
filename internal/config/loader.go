// Package config provides centralized configuration management for stacman.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// AppName names the XDG config and data directories.
	AppName = "stacman"

	// EnvPrefix prefixes every environment variable override.
	EnvPrefix = "STACMAN"
)

var (
	// appConfig holds the current application configuration
	appConfig *Config
	configMu  sync.RWMutex

	configFile  string
	dotEnvFiles = []string{".env"}
)

// SetConfigFile selects an explicit YAML config file. An empty path restores
// discovery in the XDG config directory and ./config.
func SetConfigFile(path string) {
	configMu.Lock()
	defer configMu.Unlock()
	configFile = strings.TrimSpace(path)
}

// SetDotEnvFiles replaces the .env files read on Load. Missing files are
// skipped.
func SetDotEnvFiles(paths ...string) {
	configMu.Lock()
	defer configMu.Unlock()
	dotEnvFiles = append([]string(nil), paths...)
}

// Load builds the configuration in this order of increasing precedence:
// 1. Built-in defaults
// 2. YAML config file (--config, XDG config dir, ./config)
// 3. .env files and STACMAN_* environment variables
// 4. Runtime overrides
//
// This function is safe to call multiple times (e.g., for config reload)
func Load(ctx context.Context, runtimeOverrides ...map[string]any) (*Config, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	configMu.RLock()
	explicitFile := configFile
	envFiles := append([]string(nil), dotEnvFiles...)
	configMu.RUnlock()

	if err := loadDotEnv(envFiles); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindEnvAliases(v); err != nil {
		return nil, err
	}

	if err := readConfigFile(v, explicitFile); err != nil {
		return nil, err
	}

	for _, overrides := range runtimeOverrides {
		for key, value := range flatten("", overrides) {
			v.Set(key, value)
		}
	}

	// Unmarshal into typed config struct
	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			mapstructure.StringToFloat64HookFunc(),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if strings.TrimSpace(cfg.Store.URL) == "" && strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = DefaultStorePath()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Store the loaded config
	setConfig(cfg)

	return cfg, nil
}

// Validate rejects values the client cannot run with.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	var problems []string
	if strings.TrimSpace(c.Client.BaseURL) == "" {
		problems = append(problems, "client.base_url is required")
	}
	if c.Client.Timeout <= 0 {
		problems = append(problems, "client.timeout must be positive")
	}
	if c.Client.MaxConcurrent < 1 {
		problems = append(problems, "client.max_concurrent must be at least 1")
	}
	if c.Throttle.Limit < 1 {
		problems = append(problems, "throttle.limit must be at least 1")
	}
	if c.Throttle.Window <= 0 {
		problems = append(problems, "throttle.window must be positive")
	}
	if c.Throttle.SafetyMargin <= 0 || c.Throttle.SafetyMargin > 1 {
		problems = append(problems, "throttle.safety_margin must be in (0, 1]")
	}
	if c.Server.RateLimit < 0 {
		problems = append(problems, "server.rate_limit must not be negative")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// GetConfig returns the current application configuration (thread-safe)
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// setConfig updates the current configuration (thread-safe)
func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Client defaults
	v.SetDefault("client.key", "")
	v.SetDefault("client.site", "stackoverflow")
	v.SetDefault("client.base_url", "https://api.stackexchange.com/2.3")
	v.SetDefault("client.user_agent", "StacMan Go")
	v.SetDefault("client.timeout", "5s")
	v.SetDefault("client.max_concurrent", 10)
	v.SetDefault("client.respect_backoffs", true)

	// Throttle defaults
	v.SetDefault("throttle.limit", 30)
	v.SetDefault("throttle.window", "30s")
	v.SetDefault("throttle.safety_margin", 1.0)
	v.SetDefault("throttle.persist", true)

	// Server defaults
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.rate_limit", 20.0)
	v.SetDefault("server.rate_burst", 40)

	// Store defaults
	v.SetDefault("store.driver", "libsql")
	v.SetDefault("store.path", DefaultStorePath())
	v.SetDefault("store.url", "")
	v.SetDefault("store.auth_token", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.profile", "SIMPLE")

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
}

// bindEnvAliases adds short names for the most used settings. The long form
// derived from the key (STACMAN_CLIENT_KEY) keeps working.
func bindEnvAliases(v *viper.Viper) error {
	aliases := map[string][]string{
		"client.key":    {"STACMAN_KEY", "STACMAN_CLIENT_KEY"},
		"client.site":   {"STACMAN_SITE", "STACMAN_CLIENT_SITE"},
		"logging.level": {"STACMAN_LOG_LEVEL", "STACMAN_LOGGING_LEVEL"},
		"server.host":   {"STACMAN_HOST", "STACMAN_SERVER_HOST"},
		"server.port":   {"STACMAN_PORT", "STACMAN_SERVER_PORT"},
	}

	keys := make([]string, 0, len(aliases))
	for key := range aliases {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		input := append([]string{key}, aliases[key]...)
		if err := v.BindEnv(input...); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}

func readConfigFile(v *viper.Viper, explicit string) error {
	if explicit != "" {
		v.SetConfigFile(explicit)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config file %s: %w", explicit, err)
		}
		return nil
	}

	if configDir := gfconfig.GetAppConfigDir(AppName); strings.TrimSpace(configDir) != "" {
		v.AddConfigPath(configDir)
	}
	v.AddConfigPath("./config")
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// It's OK if config file doesn't exist, we have defaults
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}
	return nil
}

func loadDotEnv(paths []string) error {
	for _, path := range paths {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		// godotenv never overrides variables already present in the process.
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
	}
	return nil
}

// flatten turns nested override maps into dotted viper keys.
func flatten(prefix string, values map[string]any) map[string]any {
	out := make(map[string]any, len(values))
	for key, value := range values {
		full := strings.ToLower(key)
		if prefix != "" {
			full = prefix + "." + full
		}
		if nested, ok := value.(map[string]any); ok {
			for k, v := range flatten(full, nested) {
				out[k] = v
			}
			continue
		}
		out[full] = value
	}
	return out
}

// ConfigFileUsed reports the config file a fresh load would read, or "".
func ConfigFileUsed() string {
	configMu.RLock()
	explicit := configFile
	configMu.RUnlock()
	if explicit != "" {
		return explicit
	}

	candidates := []string{filepath.Join("config", "config.yaml")}
	if path := DefaultConfigPath(); path != "" {
		candidates = append([]string{path}, candidates...)
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// DefaultConfigPath returns the XDG-compliant path to the user config file.
func DefaultConfigPath() string {
	configDir := gfconfig.GetAppConfigDir(AppName)
	if strings.TrimSpace(configDir) == "" {
		return ""
	}
	return filepath.Join(configDir, "config.yaml")
}

// DefaultDataDir returns the XDG-compliant data directory for the app.
func DefaultDataDir() string {
	return gfconfig.GetAppDataDir(AppName)
}

// DefaultStorePath returns the XDG-compliant path to the database file.
func DefaultStorePath() string {
	dataDir := gfconfig.GetAppDataDir(AppName)
	if strings.TrimSpace(dataDir) == "" {
		return "./" + AppName + ".db"
	}
	return filepath.Join(dataDir, AppName+".db")
}
