// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"fitrpg-bot/internal/reward"
)

// Config holds all application configuration.
type Config struct {
	Bot       BotConfig       `mapstructure:"bot"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Whitelist WhitelistConfig `mapstructure:"whitelist"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Cooldowns CooldownsConfig `mapstructure:"cooldowns"`
	Hunt      HuntConfig      `mapstructure:"hunt"`
	Raid      RaidConfig      `mapstructure:"raid"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Rewards   RewardsConfig   `mapstructure:"rewards"`
	Log       LogConfig       `mapstructure:"log"`
}

// BotConfig holds Telegram bot configuration.
type BotConfig struct {
	Token string `mapstructure:"token"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// AdminConfig holds admin user configuration.
type AdminConfig struct {
	IDs []int64 `mapstructure:"ids"`
}

// WhitelistConfig holds chat whitelist configuration.
type WhitelistConfig struct {
	Chats []int64 `mapstructure:"chats"`
}

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// StorageConfig selects where the engine state blob is persisted.
type StorageConfig struct {
	Driver     string        `mapstructure:"driver"`
	SQLitePath string        `mapstructure:"sqlite_path"`
	Scope      string        `mapstructure:"scope"`
	FlushDelay time.Duration `mapstructure:"flush_delay"`
}

// CooldownsConfig holds per-action cooldowns in seconds.
type CooldownsConfig struct {
	LogSeconds      int `mapstructure:"log_seconds"`
	RaidHitSeconds  int `mapstructure:"raid_hit_seconds"`
	HuntJoinSeconds int `mapstructure:"hunt_join_seconds"`
}

// Log returns the activity log cooldown.
func (c CooldownsConfig) Log() time.Duration {
	return time.Duration(c.LogSeconds) * time.Second
}

// RaidHit returns the raid damage cooldown.
func (c CooldownsConfig) RaidHit() time.Duration {
	return time.Duration(c.RaidHitSeconds) * time.Second
}

// HuntJoin returns the hunt join cooldown.
func (c CooldownsConfig) HuntJoin() time.Duration {
	return time.Duration(c.HuntJoinSeconds) * time.Second
}

// HuntConfig holds hunt timing.
type HuntConfig struct {
	DurationMinutes int `mapstructure:"duration_minutes"`
}

// RaidConfig holds raid timing.
type RaidConfig struct {
	DefaultDurationHours int `mapstructure:"default_duration_hours"`
}

// EngineConfig holds engine scheduling and randomness settings.
type EngineConfig struct {
	ExpiryInterval time.Duration `mapstructure:"expiry_interval"`
	// Seed fixes the reward RNG; 0 seeds from the clock.
	Seed uint64 `mapstructure:"seed"`
}

// RewardsConfig holds encounter payout bands.
type RewardsConfig struct {
	Hunt HuntRewardsConfig `mapstructure:"hunt"`
	Raid RaidRewardsConfig `mapstructure:"raid"`
}

// HuntRewardsConfig holds the per-mode success bands and the failure consolation.
type HuntRewardsConfig struct {
	Solo           reward.Band `mapstructure:"solo"`
	Trio           reward.Band `mapstructure:"trio"`
	Party          reward.Band `mapstructure:"party"`
	ConsolationMin int64       `mapstructure:"consolation_min"`
	ConsolationMax int64       `mapstructure:"consolation_max"`
}

// RaidRewardsConfig holds the victory band and the time-up consolation.
type RaidRewardsConfig struct {
	reward.Band    `mapstructure:",squash"`
	ConsolationMin int64 `mapstructure:"consolation_min"`
	ConsolationMax int64 `mapstructure:"consolation_max"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Configure viper
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Enable environment variable override
	// Environment variables use underscore separator and uppercase
	// e.g., BOT_TOKEN, DATABASE_HOST, STORAGE_DRIVER
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (optional - env vars can provide all config)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK - we can use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "fitrpg")
	v.SetDefault("database.name", "fitrpg")
	v.SetDefault("database.pool_size", 4)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	// Storage defaults
	v.SetDefault("storage.driver", DriverPostgres)
	v.SetDefault("storage.sqlite_path", "fitrpg.db")
	v.SetDefault("storage.scope", "GLOBAL")
	v.SetDefault("storage.flush_delay", "500ms")

	// Cooldown defaults
	v.SetDefault("cooldowns.log_seconds", 10)
	v.SetDefault("cooldowns.raid_hit_seconds", 8)
	v.SetDefault("cooldowns.hunt_join_seconds", 30)

	// Encounter defaults
	v.SetDefault("hunt.duration_minutes", 60)
	v.SetDefault("raid.default_duration_hours", 24)
	v.SetDefault("engine.expiry_interval", "15s")
	v.SetDefault("engine.seed", 0)

	// Reward defaults
	setBandDefaults(v, "rewards.hunt.solo", 150, 240, 120, 220, 0.18)
	setBandDefaults(v, "rewards.hunt.trio", 260, 420, 220, 380, 0.28)
	setBandDefaults(v, "rewards.hunt.party", 380, 640, 360, 600, 0.38)
	v.SetDefault("rewards.hunt.consolation_min", 30)
	v.SetDefault("rewards.hunt.consolation_max", 70)
	setBandDefaults(v, "rewards.raid", 800, 1600, 600, 1200, 0.25)
	v.SetDefault("rewards.raid.consolation_min", 120)
	v.SetDefault("rewards.raid.consolation_max", 260)

	v.SetDefault("log.level", "info")
}

func setBandDefaults(v *viper.Viper, prefix string, xpMin, xpMax, currencyMin, currencyMax int64, gearChance float64) {
	v.SetDefault(prefix+".xp_min", xpMin)
	v.SetDefault(prefix+".xp_max", xpMax)
	v.SetDefault(prefix+".currency_min", currencyMin)
	v.SetDefault(prefix+".currency_max", currencyMax)
	v.SetDefault(prefix+".gear_chance", gearChance)
}

// IsAdmin checks if a user ID is in the admin list.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.Admin.IDs {
		if id == userID {
			return true
		}
	}
	return false
}

// IsChatAllowed checks if a chat ID is in the whitelist.
func (c *Config) IsChatAllowed(chatID int64) bool {
	// Empty whitelist means all chats are allowed
	if len(c.Whitelist.Chats) == 0 {
		return true
	}
	for _, id := range c.Whitelist.Chats {
		if id == chatID {
			return true
		}
	}
	return false
}
