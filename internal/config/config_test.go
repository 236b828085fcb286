package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"ipwatch/internal/types"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("ipwatch", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID",
		"IPWATCH_TELEGRAM_BOT_TOKEN", "IPWATCH_TELEGRAM_CHAT_ID",
		"IPWATCH_NAME", "IPWATCH_CACHE_FILE",
	} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(newFlags(t))
	require.NoError(t, err)

	assert.Equal(t, DefaultName, cfg.Name)
	assert.Equal(t, "file", cfg.Cache.Backend)
	assert.Equal(t, DefaultCacheFile, cfg.Cache.File)
	assert.Equal(t, DefaultLookupURL, cfg.Lookup.URL)
	assert.Equal(t, 5*time.Second, cfg.Lookup.Timeout)
	assert.True(t, cfg.Lookup.BypassProxy)
	assert.Equal(t, DefaultTelegramAPI, cfg.Telegram.APIBase)
	assert.Equal(t, 10*time.Second, cfg.Telegram.Timeout)
	assert.False(t, cfg.Cache.SkipSaveOnNotifyFailure)

	assert.ErrorIs(t, cfg.Validate(), types.ErrMissingCredentials)
}

func TestLoadFlags(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(newFlags(t,
		"--name", "Home",
		"--cache", "/tmp/ip.txt",
		"--token", "123:abc",
		"--chat", "-100200",
		"--log-level", "debug",
	))
	require.NoError(t, err)

	assert.Equal(t, "Home", cfg.Name)
	assert.Equal(t, "/tmp/ip.txt", cfg.Cache.File)
	assert.Equal(t, "123:abc", cfg.Telegram.BotToken)
	assert.Equal(t, "-100200", cfg.Telegram.ChatID)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.NoError(t, cfg.Validate())
}

func TestLoadEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "env-token")
	t.Setenv("TELEGRAM_CHAT_ID", "42")
	t.Setenv("IPWATCH_NAME", "Office")

	cfg, err := Load(newFlags(t))
	require.NoError(t, err)

	assert.Equal(t, "env-token", cfg.Telegram.BotToken)
	assert.Equal(t, "42", cfg.Telegram.ChatID)
	assert.Equal(t, "Office", cfg.Name)
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_CHAT_ID", "42")

	cfg, err := Load(newFlags(t, "--chat", "7"))
	require.NoError(t, err)
	assert.Equal(t, "7", cfg.Telegram.ChatID)
}

func TestLoadConfigFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "ipwatch.yaml")
	content := `
name: Lab
cache:
  backend: redis
  redis:
    addr: redis:6379
    key: lab:ip
lookup:
  timeout: 2s
telegram:
  bot_token: file-token
  chat_id: "@lab_alerts"
  timeout: 3s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(newFlags(t, "--config", path))
	require.NoError(t, err)

	assert.Equal(t, "Lab", cfg.Name)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, "redis:6379", cfg.Cache.Redis.Addr)
	assert.Equal(t, "lab:ip", cfg.Cache.Redis.Key)
	assert.Equal(t, 2*time.Second, cfg.Lookup.Timeout)
	assert.Equal(t, 3*time.Second, cfg.Telegram.Timeout)
	assert.Equal(t, "@lab_alerts", cfg.Telegram.ChatID)
	assert.NoError(t, cfg.Validate())
}

func TestLoadMissingExplicitConfigFile(t *testing.T) {
	clearEnv(t)

	_, err := Load(newFlags(t, "--config", filepath.Join(t.TempDir(), "nope.yaml")))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	clearEnv(t)

	base := func() *Config {
		cfg, err := Load(newFlags(t, "--token", "t", "--chat", "1"))
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"bad backend", func(c *Config) { c.Cache.Backend = "s3" }, true},
		{"empty cache file", func(c *Config) { c.Cache.File = "" }, true},
		{"redis without file", func(c *Config) { c.Cache.Backend = "redis"; c.Cache.File = "" }, false},
		{"bad lookup url", func(c *Config) { c.Lookup.URL = "ftp://example.com" }, true},
		{"zero lookup timeout", func(c *Config) { c.Lookup.Timeout = 0 }, true},
		{"free form chat id", func(c *Config) { c.Telegram.ChatID = "mygroup" }, false},
		{"empty name", func(c *Config) { c.Name = "" }, false},
		{"bad log level", func(c *Config) { c.Log.Level = "trace" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				assert.NotErrorIs(t, err, types.ErrMissingCredentials)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
