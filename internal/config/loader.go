// Package config provides configuration management for mygh.
//
// Values are layered: built-in defaults, then the TOML file at
// $XDG_CONFIG_HOME/mygh/config.toml (or --config), then MYGH_* environment
// variables. Nested keys map to variables by upper-casing and replacing "."
// and "-" with "_", e.g. retry.max-backoff is MYGH_RETRY_MAX_BACKOFF.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	// AppName names the config, data and cache directories.
	AppName = "mygh"
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "MYGH"
)

// Output formats accepted by output-format.
var OutputFormats = []string{"table", "json", "csv", "markdown"}

var (
	// appConfig holds the current application configuration
	appConfig *Config
	configMu  sync.RWMutex
)

// Key describes a user-settable configuration key.
type Key struct {
	Name        string
	Default     any
	Description string
}

// Keys lists the settable keys in display order. Keys missing here are
// rejected by Set.
func Keys() []Key {
	return []Key{
		{"output-format", "table", "default output format: table, json, csv or markdown"},
		{"default-per-page", 30, "page size for list requests (1-100)"},
		{"max-retries", 3, "maximum attempts per request, including the first"},
		{"request-timeout", "30s", "timeout for a single HTTP request"},
		{"requests-per-second", 0.0, "client-side request pacing; 0 disables"},
		{"api-url", "https://api.github.com", "REST API base URL"},
		{"concurrency", 4, "parallel requests for multi-repository commands"},
		{"retry.initial-backoff", "1s", "first retry delay"},
		{"retry.max-backoff", "30s", "retry delay cap"},
		{"retry.multiplier", 2.0, "backoff growth factor"},
		{"retry.jitter", 0.1, "random jitter as a fraction of the delay"},
		{"retry.secondary-delay", "60s", "wait after a secondary rate limit without Retry-After"},
		{"cache.enabled", true, "cache responses and revalidate with ETags"},
		{"cache.driver", "libsql", "cache store driver"},
		{"cache.path", DefaultCachePath(), "cache database path"},
		{"cache.url", "", "remote libsql URL for the cache (overrides path)"},
		{"cache.ttl", "24h", "age after which cache prune drops entries"},
		{"metrics.enabled", false, "expose Prometheus metrics while a command runs"},
		{"metrics.port", 9090, "Prometheus exporter port"},
		{"logging.level", "info", "log level: trace, debug, info, warn, error"},
	}
}

// NewViper returns a viper instance with defaults, the config file location
// and environment bindings set. configFile overrides the default path.
func NewViper(configFile string) *viper.Viper {
	v := viper.New()
	for _, key := range Keys() {
		v.SetDefault(key.Name, key.Default)
	}
	v.SetDefault("cache.auth-token", "")

	if strings.TrimSpace(configFile) != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigFile(DefaultConfigPath())
	}
	v.SetConfigType("toml")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file if present and decodes the merged settings.
// A missing file is not an error.
func Load(v *viper.Viper) (*Config, error) {
	if v == nil {
		v = NewViper("")
	}

	if err := v.ReadInConfig(); err != nil && !isNotExist(err) {
		return nil, fmt.Errorf("read config %s: %w", v.ConfigFileUsed(), err)
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}

	setConfig(cfg)
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var problems []string

	if !validOutputFormat(c.OutputFormat) {
		problems = append(problems, fmt.Sprintf("output-format must be one of %s", strings.Join(OutputFormats, ", ")))
	}
	if c.DefaultPerPage < 1 || c.DefaultPerPage > 100 {
		problems = append(problems, "default-per-page must be between 1 and 100")
	}
	if c.MaxRetries < 1 {
		problems = append(problems, "max-retries must be at least 1")
	}
	if c.RequestTimeout <= 0 {
		problems = append(problems, "request-timeout must be positive")
	}
	if c.RequestsPerSecond < 0 {
		problems = append(problems, "requests-per-second must not be negative")
	}
	if c.Concurrency < 1 {
		problems = append(problems, "concurrency must be at least 1")
	}
	if c.Retry.Multiplier < 1 {
		problems = append(problems, "retry.multiplier must be at least 1")
	}
	if c.Retry.Jitter < 0 || c.Retry.Jitter > 1 {
		problems = append(problems, "retry.jitter must be between 0 and 1")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
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

// Set writes key=value to the config file at path, keeping other keys in
// the file. Defaults and environment overrides are not copied into it.
func Set(path, key, value string) error {
	key = strings.ToLower(strings.TrimSpace(key))
	if strings.Contains(key, "token") {
		return errors.New("tokens are never stored in the config file; use GITHUB_TOKEN, GH_TOKEN or gh auth login")
	}

	spec, ok := lookupKey(key)
	if !ok {
		return fmt.Errorf("unknown config key %q", key)
	}

	typed, err := parseValue(spec, value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}

	file := viper.New()
	file.SetConfigFile(path)
	file.SetConfigType("toml")
	if err := file.ReadInConfig(); err != nil && !isNotExist(err) {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	file.Set(key, typed)

	// Validate the result as it would be loaded.
	probe := NewViper(path)
	for _, k := range file.AllKeys() {
		probe.Set(k, file.Get(k))
	}
	if _, err := decode(probe); err != nil {
		return err
	}

	// #nosec G301 -- config directories use 0755 like other XDG dirs
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := file.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// decode unmarshals the merged settings into a validated Config.
func decode(v *viper.Viper) (*Config, error) {
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

	if strings.TrimSpace(cfg.Cache.URL) == "" && strings.TrimSpace(cfg.Cache.Path) == "" {
		cfg.Cache.Path = DefaultCachePath()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Get returns the effective value of key as a string.
func Get(v *viper.Viper, key string) (string, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	if _, ok := lookupKey(key); !ok {
		return "", fmt.Errorf("unknown config key %q", key)
	}
	return fmt.Sprint(v.Get(key)), nil
}

// Setting is one effective key/value pair.
type Setting struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// List returns every settable key with its effective value, sorted by key.
func List(v *viper.Viper) []Setting {
	keys := Keys()
	out := make([]Setting, 0, len(keys))
	for _, key := range keys {
		out = append(out, Setting{Key: key.Name, Value: fmt.Sprint(v.Get(key.Name))})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func lookupKey(name string) (Key, bool) {
	for _, key := range Keys() {
		if key.Name == name {
			return key, true
		}
	}
	return Key{}, false
}

func parseValue(spec Key, raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	switch spec.Default.(type) {
	case bool:
		return strconv.ParseBool(raw)
	case int:
		return strconv.Atoi(raw)
	case float64:
		return strconv.ParseFloat(raw, 64)
	default:
		if strings.HasSuffix(spec.Name, "timeout") || strings.HasSuffix(spec.Name, "backoff") ||
			strings.HasSuffix(spec.Name, "delay") || strings.HasSuffix(spec.Name, "ttl") {
			if _, err := time.ParseDuration(raw); err != nil {
				return nil, err
			}
		}
		return raw, nil
	}
}

func validOutputFormat(format string) bool {
	for _, f := range OutputFormats {
		if f == format {
			return true
		}
	}
	return false
}

func isNotExist(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return true
	}
	return errors.Is(err, os.ErrNotExist)
}

// DefaultConfigPath returns the XDG-compliant path to the user config file.
func DefaultConfigPath() string {
	configDir := gfconfig.GetAppConfigDir(AppName)
	if strings.TrimSpace(configDir) == "" {
		return filepath.Join(".", "."+AppName+".toml")
	}
	return filepath.Join(configDir, "config.toml")
}

// DefaultDataDir returns the XDG-compliant data directory for the app.
func DefaultDataDir() string {
	return gfconfig.GetAppDataDir(AppName)
}

// DefaultCachePath returns the XDG-compliant path to the response cache.
func DefaultCachePath() string {
	dataDir := DefaultDataDir()
	if strings.TrimSpace(dataDir) == "" {
		return "./" + AppName + "-cache.db"
	}
	return filepath.Join(dataDir, "cache.db")
}
