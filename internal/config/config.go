// Package config loads bot settings from defaults, an optional YAML file and
// the environment, in that order of precedence.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/PrimaryFunction/Arkos/internal/leveling"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ARKOS_"

// Config is the complete bot configuration.
type Config struct {
	Discord  DiscordConfig  `yaml:"discord" envPrefix:"DISCORD_"`
	Database DatabaseConfig `yaml:"database" envPrefix:"DATABASE_"`
	XP       XPConfig       `yaml:"xp" envPrefix:"XP_"`
	IO       IOConfig       `yaml:"io" envPrefix:"IO_"`
	Metrics  MetricsConfig  `yaml:"metrics" envPrefix:"METRICS_"`
}

// DiscordConfig configures the gateway session and command parsing.
type DiscordConfig struct {
	Token           string        `yaml:"token" env:"TOKEN"`
	CommandPrefix   string        `yaml:"command_prefix" env:"COMMAND_PREFIX"`
	ParentCacheSize int           `yaml:"parent_cache_size" env:"PARENT_CACHE_SIZE"`
	ParentCacheTTL  time.Duration `yaml:"parent_cache_ttl" env:"PARENT_CACHE_TTL"`
}

// DatabaseConfig locates the SQLite file.
type DatabaseConfig struct {
	Path string `yaml:"path" env:"PATH"`
}

// XPConfig holds the leveling tunables.
type XPConfig struct {
	CharsPerPoint int64 `yaml:"chars_per_point" env:"CHARS_PER_POINT"`
	LevelBase     int64 `yaml:"level_base" env:"LEVEL_BASE"`
	NotifyQueue   int   `yaml:"notify_queue" env:"NOTIFY_QUEUE"`
}

// IOConfig bounds external calls.
type IOConfig struct {
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// MetricsConfig controls the Prometheus listener. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr" env:"ADDR"`
}

// legacyEnv is the variable the bot historically read its token from.
type legacyEnv struct {
	Token string `env:"DISCORD_TOKEN"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Discord: DiscordConfig{
			CommandPrefix:   "!",
			ParentCacheSize: 1024,
			ParentCacheTTL:  10 * time.Minute,
		},
		Database: DatabaseConfig{Path: "arkos.db"},
		XP: XPConfig{
			CharsPerPoint: leveling.DefaultCharsPerPoint,
			LevelBase:     leveling.DefaultLevelBase,
			NotifyQueue:   leveling.DefaultQueueSize,
		},
		IO: IOConfig{Timeout: 10 * time.Second},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// path is non-empty), then environment overrides. The result is validated.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := decodeYAML(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// decodeYAML decodes data over cfg, rejecting unknown keys.
func decodeYAML(data []byte, cfg *Config) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(cfg)
}

// applyEnv overlays environment variables. ARKOS_DISCORD_TOKEN wins over
// DISCORD_TOKEN.
func applyEnv(cfg *Config) error {
	var legacy legacyEnv
	if err := env.Parse(&legacy); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if legacy.Token != "" {
		cfg.Discord.Token = legacy.Token
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Discord.CommandPrefix) == "" {
		errs = append(errs, errors.New("discord.command_prefix must not be empty"))
	}
	if c.Discord.ParentCacheSize < 1 {
		errs = append(errs, fmt.Errorf("discord.parent_cache_size must be >= 1, got %d", c.Discord.ParentCacheSize))
	}
	if c.Discord.ParentCacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("discord.parent_cache_ttl must be positive, got %s", c.Discord.ParentCacheTTL))
	}
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path must not be empty"))
	}
	if err := c.Curve().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("xp: %w", err))
	}
	if c.XP.NotifyQueue < 1 {
		errs = append(errs, fmt.Errorf("xp.notify_queue must be >= 1, got %d", c.XP.NotifyQueue))
	}
	if c.IO.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("io.timeout must be positive, got %s", c.IO.Timeout))
	}
	return errors.Join(errs...)
}

// RequireToken fails when no bot token is configured. Only the gateway
// session needs one; offline commands do not.
func (c Config) RequireToken() error {
	if c.Discord.Token == "" {
		return errors.New("discord token not set (ARKOS_DISCORD_TOKEN, DISCORD_TOKEN or discord.token)")
	}
	return nil
}

// Curve returns the XP progression described by the configuration.
func (c Config) Curve() leveling.Curve {
	return leveling.Curve{CharsPerPoint: c.XP.CharsPerPoint, LevelBase: c.XP.LevelBase}
}
