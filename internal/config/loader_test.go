package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("LoadDefaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")

		cfg, err := Load(NewViper(path))
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, "table", cfg.OutputFormat)
		assert.Equal(t, 30, cfg.DefaultPerPage)
		assert.Equal(t, 3, cfg.MaxRetries)
		assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
		assert.Equal(t, "https://api.github.com", cfg.APIURL)
		assert.Equal(t, 4, cfg.Concurrency)
		assert.Zero(t, cfg.RequestsPerSecond)

		assert.Equal(t, time.Second, cfg.Retry.InitialBackoff)
		assert.Equal(t, 30*time.Second, cfg.Retry.MaxBackoff)
		assert.Equal(t, 2.0, cfg.Retry.Multiplier)
		assert.Equal(t, 0.1, cfg.Retry.Jitter)
		assert.Equal(t, 60*time.Second, cfg.Retry.SecondaryDelay)

		assert.True(t, cfg.Cache.Enabled)
		assert.Equal(t, "libsql", cfg.Cache.Driver)
		assert.Equal(t, DefaultCachePath(), cfg.Cache.Path)
		assert.Equal(t, 24*time.Hour, cfg.Cache.TTL)

		assert.False(t, cfg.Metrics.Enabled)
		assert.Equal(t, 9090, cfg.Metrics.Port)
		assert.Equal(t, "info", cfg.Logging.Level)

		assert.Same(t, cfg, GetConfig())
	})

	t.Run("FileOverridesDefaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		content := `output-format = "json"
default-per-page = 50

[retry]
max-backoff = "45s"
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		cfg, err := Load(NewViper(path))
		require.NoError(t, err)
		assert.Equal(t, "json", cfg.OutputFormat)
		assert.Equal(t, 50, cfg.DefaultPerPage)
		assert.Equal(t, 45*time.Second, cfg.Retry.MaxBackoff)
		assert.Equal(t, time.Second, cfg.Retry.InitialBackoff)
	})

	t.Run("EnvOverridesFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		require.NoError(t, os.WriteFile(path, []byte("output-format = \"json\"\n"), 0o600))

		t.Setenv("MYGH_OUTPUT_FORMAT", "csv")
		t.Setenv("MYGH_MAX_RETRIES", "5")
		t.Setenv("MYGH_RETRY_SECONDARY_DELAY", "2m")
		t.Setenv("MYGH_CACHE_ENABLED", "false")

		cfg, err := Load(NewViper(path))
		require.NoError(t, err)
		assert.Equal(t, "csv", cfg.OutputFormat)
		assert.Equal(t, 5, cfg.MaxRetries)
		assert.Equal(t, 2*time.Minute, cfg.Retry.SecondaryDelay)
		assert.False(t, cfg.Cache.Enabled)
	})

	t.Run("InvalidValues", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		require.NoError(t, os.WriteFile(path, []byte("output-format = \"xml\"\ndefault-per-page = 500\n"), 0o600))

		_, err := Load(NewViper(path))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "output-format")
		assert.Contains(t, err.Error(), "default-per-page")
	})

	t.Run("MalformedFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		require.NoError(t, os.WriteFile(path, []byte("output-format = \n[[["), 0o600))

		_, err := Load(NewViper(path))
		require.Error(t, err)
	})
}

func TestSet(t *testing.T) {
	t.Run("WritesOnlyFileKeys", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "config.toml")
		t.Setenv("MYGH_CONCURRENCY", "9")

		require.NoError(t, Set(path, "output-format", "csv"))
		require.NoError(t, Set(path, "retry.max-backoff", "10s"))
		require.NoError(t, Set(path, "default-per-page", "100"))

		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(raw), "csv")
		assert.Contains(t, string(raw), "10s")
		assert.NotContains(t, string(raw), "concurrency")
		assert.NotContains(t, string(raw), "api-url")

		cfg, err := Load(NewViper(path))
		require.NoError(t, err)
		assert.Equal(t, "csv", cfg.OutputFormat)
		assert.Equal(t, 10*time.Second, cfg.Retry.MaxBackoff)
		assert.Equal(t, 100, cfg.DefaultPerPage)
	})

	t.Run("RejectsTokens", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		err := Set(path, "token", "ghp_secret")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "GITHUB_TOKEN")

		_, statErr := os.Stat(path)
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("RejectsUnknownAndInvalid", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		require.Error(t, Set(path, "no-such-key", "1"))
		require.Error(t, Set(path, "default-per-page", "many"))
		require.Error(t, Set(path, "default-per-page", "0"))
		require.Error(t, Set(path, "request-timeout", "soon"))
		require.Error(t, Set(path, "output-format", "yaml"))
	})
}

func TestGetAndList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("default-per-page = 42\n"), 0o600))

	v := NewViper(path)
	_, err := Load(v)
	require.NoError(t, err)

	value, err := Get(v, "default-per-page")
	require.NoError(t, err)
	assert.Equal(t, "42", value)

	_, err = Get(v, "bogus")
	require.Error(t, err)

	settings := List(v)
	require.Len(t, settings, len(Keys()))
	for i := 1; i < len(settings); i++ {
		assert.Less(t, settings[i-1].Key, settings[i].Key)
	}
}
