// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/cointap/mining-api/internal/game"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Game     GameConfig     `mapstructure:"game"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Addr   string `mapstructure:"addr"`
	LogDir string `mapstructure:"log_dir"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	Name           string `mapstructure:"name"`
	SSLMode        string `mapstructure:"sslmode"`
	MigrationsPath string `mapstructure:"migrations_path"`
}

// RedisConfig holds the leaderboard cache configuration.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// AuthConfig holds bearer token configuration.
type AuthConfig struct {
	TokenSecret string        `mapstructure:"token_secret"`
	TokenTTL    time.Duration `mapstructure:"token_ttl"`
}

// TelegramConfig holds the bot credentials used to verify WebApp logins.
type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
}

// GameConfig mirrors game.Rules for override via config.
type GameConfig struct {
	BaseRate             float64 `mapstructure:"base_rate"`
	RateStep             float64 `mapstructure:"rate_step"`
	UpgradeBaseCost      float64 `mapstructure:"upgrade_base_cost"`
	UpgradeGrowth        float64 `mapstructure:"upgrade_growth"`
	DailyCapBaseSeconds  int64   `mapstructure:"daily_cap_base_seconds"`
	DailyCapStepSeconds  int64   `mapstructure:"daily_cap_step_seconds"`
	DailyCapMaxSeconds   int64   `mapstructure:"daily_cap_max_seconds"`
	AdMinDurationSeconds int     `mapstructure:"ad_min_duration_seconds"`
	AdRewardSeconds      int64   `mapstructure:"ad_reward_seconds"`
	AdDailyBase          int     `mapstructure:"ad_daily_base"`
	UpgradeAdsRequired   int     `mapstructure:"upgrade_ads_required"`
	DailyUpgradeLimit    int     `mapstructure:"daily_upgrade_limit"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// Rules converts the configured game constants to game.Rules.
func (g *GameConfig) Rules() game.Rules {
	return game.Rules{
		BaseRate:             g.BaseRate,
		RateStep:             g.RateStep,
		UpgradeBaseCost:      g.UpgradeBaseCost,
		UpgradeGrowth:        g.UpgradeGrowth,
		DailyCapBaseSeconds:  g.DailyCapBaseSeconds,
		DailyCapStepSeconds:  g.DailyCapStepSeconds,
		DailyCapMaxSeconds:   g.DailyCapMaxSeconds,
		AdMinDurationSeconds: g.AdMinDurationSeconds,
		AdRewardSeconds:      g.AdRewardSeconds,
		AdDailyBase:          g.AdDailyBase,
		UpgradeAdsRequired:   g.UpgradeAdsRequired,
		DailyUpgradeLimit:    g.DailyUpgradeLimit,
	}
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the given directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Environment variables use underscore separator and uppercase,
	// e.g. DATABASE_HOST, AUTH_TOKEN_SECRET, TELEGRAM_BOT_TOKEN.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK - env vars can provide all config
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.log_dir", "./logs")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "mining")
	v.SetDefault("database.name", "mining")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.migrations_path", "file://migrations")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.cache_ttl", "30s")

	v.SetDefault("auth.token_ttl", "168h") // 7 days

	rules := game.DefaultRules()
	v.SetDefault("game.base_rate", rules.BaseRate)
	v.SetDefault("game.rate_step", rules.RateStep)
	v.SetDefault("game.upgrade_base_cost", rules.UpgradeBaseCost)
	v.SetDefault("game.upgrade_growth", rules.UpgradeGrowth)
	v.SetDefault("game.daily_cap_base_seconds", rules.DailyCapBaseSeconds)
	v.SetDefault("game.daily_cap_step_seconds", rules.DailyCapStepSeconds)
	v.SetDefault("game.daily_cap_max_seconds", rules.DailyCapMaxSeconds)
	v.SetDefault("game.ad_min_duration_seconds", rules.AdMinDurationSeconds)
	v.SetDefault("game.ad_reward_seconds", rules.AdRewardSeconds)
	v.SetDefault("game.ad_daily_base", rules.AdDailyBase)
	v.SetDefault("game.upgrade_ads_required", rules.UpgradeAdsRequired)
	v.SetDefault("game.daily_upgrade_limit", rules.DailyUpgradeLimit)
}
