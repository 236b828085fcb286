package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"ipwatch/internal/logger"
	"ipwatch/internal/types"
	"ipwatch/internal/validator"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	AppName = "ipwatch"
)

const (
	DefaultName        = "My"
	DefaultCacheFile   = "./public_ip_cache.txt"
	DefaultLookupURL   = "https://checkip.amazonaws.com"
	DefaultTelegramAPI = "https://api.telegram.org"
	DefaultRedisKey    = "ipwatch:last_ip"

	DefaultLookupTimeout   = 5 * time.Second
	DefaultTelegramTimeout = 10 * time.Second
	DefaultRedisTimeout    = 3 * time.Second
)

// Config represents ipwatch configuration
type Config struct {
	Name     string         `mapstructure:"name"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Lookup   LookupConfig   `mapstructure:"lookup"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Log      logger.Config  `mapstructure:"log"`
}

// CacheConfig represents where the last known address is kept
type CacheConfig struct {
	Backend string      `mapstructure:"backend" validate:"oneof=file redis"`
	File    string      `mapstructure:"file" validate:"required_if=Backend file"`
	Redis   RedisConfig `mapstructure:"redis"`

	// SkipSaveOnNotifyFailure keeps the old address cached when the
	// notification fails, so the next run alerts again.
	SkipSaveOnNotifyFailure bool `mapstructure:"skip_save_on_notify_failure"`
}

// RedisConfig represents the redis cache backend
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db" validate:"min=0"`
	Key      string        `mapstructure:"key"`
	Timeout  time.Duration `mapstructure:"timeout" validate:"min=0"`
}

// LookupConfig represents the public IP echo service
type LookupConfig struct {
	URL         string        `mapstructure:"url" validate:"required,httpurl"`
	Timeout     time.Duration `mapstructure:"timeout" validate:"gt=0"`
	BypassProxy bool          `mapstructure:"bypass_proxy"`
}

// TelegramConfig represents the telegram bot used for notifications
type TelegramConfig struct {
	BotToken string        `mapstructure:"bot_token"`
	ChatID   string        `mapstructure:"chat_id"`
	APIBase  string        `mapstructure:"api_base" validate:"required,httpurl"`
	Timeout  time.Duration `mapstructure:"timeout" validate:"gt=0"`
	Template string        `mapstructure:"template"`
}

// RegisterFlags defines the command line flags on fs
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Path to config file")
	fs.String("name", DefaultName, "Network name used in the notification")
	fs.String("cache", DefaultCacheFile, "Cache file path")
	fs.String("token", "", "Telegram bot token")
	fs.String("chat", "", "Telegram chat id")
	fs.String("log-level", "", "Log level (debug, info, warn, error)")
	fs.Bool("version", false, "Show version information")
}

// flagKeys maps command line flags to configuration keys
var flagKeys = map[string]string{
	"name":      "name",
	"cache":     "cache.file",
	"token":     "telegram.bot_token",
	"chat":      "telegram.chat_id",
	"log-level": "log.level",
}

// Load resolves configuration from defaults, config file, environment and flags,
// in increasing order of precedence.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(strings.ToUpper(AppName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Plain names are kept for existing cron setups
	_ = v.BindEnv("telegram.bot_token", "IPWATCH_TELEGRAM_BOT_TOKEN", "TELEGRAM_BOT_TOKEN")
	_ = v.BindEnv("telegram.chat_id", "IPWATCH_TELEGRAM_CHAT_ID", "TELEGRAM_CHAT_ID")

	for flag, key := range flagKeys {
		if f := fs.Lookup(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind flag %s: %w", flag, err)
			}
		}
	}

	if err := readConfigFile(v, fs); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Name = strings.TrimSpace(cfg.Name)
	cfg.Telegram.BotToken = strings.TrimSpace(cfg.Telegram.BotToken)
	cfg.Telegram.ChatID = strings.TrimSpace(cfg.Telegram.ChatID)

	return &cfg, nil
}

// readConfigFile reads the explicit --config file, or the first ipwatch.yaml
// found in the search paths. A missing implicit file is not an error.
func readConfigFile(v *viper.Viper, fs *pflag.FlagSet) error {
	path, _ := fs.GetString("config")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(AppName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/" + AppName)
		v.AddConfigPath("/etc/" + AppName)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// setDefaults registers every key so environment overrides reach Unmarshal
func setDefaults(v *viper.Viper) {
	v.SetDefault("name", DefaultName)

	v.SetDefault("cache.backend", "file")
	v.SetDefault("cache.file", DefaultCacheFile)
	v.SetDefault("cache.skip_save_on_notify_failure", false)
	v.SetDefault("cache.redis.addr", "localhost:6379")
	v.SetDefault("cache.redis.username", "")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.key", DefaultRedisKey)
	v.SetDefault("cache.redis.timeout", DefaultRedisTimeout)

	v.SetDefault("lookup.url", DefaultLookupURL)
	v.SetDefault("lookup.timeout", DefaultLookupTimeout)
	v.SetDefault("lookup.bypass_proxy", true)

	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.api_base", DefaultTelegramAPI)
	v.SetDefault("telegram.timeout", DefaultTelegramTimeout)
	v.SetDefault("telegram.template", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 28)
	v.SetDefault("log.compress", false)
}

// Validate checks credentials first, then the rest of the configuration.
// Missing credentials are reported as types.ErrMissingCredentials. The chat id
// and name are passed through as given; Telegram is the judge of chat ids.
func (cfg *Config) Validate() error {
	if cfg.Telegram.BotToken == "" || cfg.Telegram.ChatID == "" {
		return types.ErrMissingCredentials
	}

	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := cfg.Log.Validate(); err != nil {
		return fmt.Errorf("invalid log config: %w", err)
	}

	return nil
}
