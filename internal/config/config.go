package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds everything the bot needs at start-up
type Config struct {
	// Discord
	DiscordToken  string `env:"DISCORD_TOKEN,required"`
	ApplicationID string `env:"DISCORD_APPLICATION_ID"`
	GuildID       string `env:"DISCORD_GUILD_ID"`

	// Redis holds sessions and players
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// SQLite holds game definitions
	SQLitePath string `env:"SQLITE_PATH" envDefault:"tabletop.db"`

	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
	LogDevelopment bool   `env:"LOG_DEVELOPMENT" envDefault:"false"`

	// Waiting sessions with no players older than CleanupMaxAge are swept every CleanupInterval
	CleanupInterval time.Duration `env:"CLEANUP_INTERVAL" envDefault:"10m"`
	CleanupMaxAge   time.Duration `env:"CLEANUP_MAX_AGE" envDefault:"24h"`

	// ConflictRetries bounds the retries after a concurrent session update
	ConflictRetries uint64 `env:"CONFLICT_RETRIES" envDefault:"3"`
}

// Load reads the optional dotenv files into the environment and parses Config.
// Files that do not exist are skipped, variables already set win.
func Load(files ...string) (*Config, error) {
	for _, file := range files {
		if _, err := os.Stat(file); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return nil, fmt.Errorf("load %s: %w", file, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.CleanupInterval <= 0 {
		return fmt.Errorf("CLEANUP_INTERVAL must be positive, got %s", c.CleanupInterval)
	}
	if c.CleanupMaxAge <= 0 {
		return fmt.Errorf("CLEANUP_MAX_AGE must be positive, got %s", c.CleanupMaxAge)
	}

	return nil
}
