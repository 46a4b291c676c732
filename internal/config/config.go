// Package config loads runtime settings from the environment, reading a
// .env file first when one exists.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	DiscordToken  string `env:"DISCORD_TOKEN,required,notEmpty"`
	CommandPrefix string `env:"COMMAND_PREFIX" envDefault:"a!"`
	// LogChannelID receives unexpected command errors. Empty disables it.
	LogChannelID string `env:"LOG_CHANNEL_ID"`

	LavalinkHost     string        `env:"LAVALINK_HOST" envDefault:"localhost"`
	LavalinkPort     int           `env:"LAVALINK_PORT" envDefault:"2333"`
	LavalinkPassword string        `env:"LAVALINK_PASSWORD" envDefault:"youshallnotpass"`
	LavalinkSecure   bool          `env:"LAVALINK_SECURE" envDefault:"false"`
	LavalinkResume   time.Duration `env:"LAVALINK_RESUME_TIMEOUT" envDefault:"60s"`

	SpotifyClientID     string `env:"SPOTIFY_CLIENT_ID"`
	SpotifyClientSecret string `env:"SPOTIFY_CLIENT_SECRET"`

	StoragePath       string        `env:"STORAGE_PATH" envDefault:"datastore.json"`
	IdleTimeout       time.Duration `env:"IDLE_TIMEOUT" envDefault:"5m"`
	MoveSettle        time.Duration `env:"MOVE_SETTLE" envDefault:"1s"`
	DefaultMovePolicy string        `env:"DEFAULT_MOVE_POLICY" envDefault:"pause"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`
	LogFile   string `env:"LOG_FILE"`
}

// SpotifyEnabled reports whether Spotify links can be resolved.
func (c *Config) SpotifyEnabled() bool {
	return c.SpotifyClientID != "" && c.SpotifyClientSecret != ""
}

// Load reads .env files (missing ones are fine) and parses the environment.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.DefaultMovePolicy {
	case "pause", "ignore":
	default:
		return fmt.Errorf("DEFAULT_MOVE_POLICY must be pause or ignore, got %q", c.DefaultMovePolicy)
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be console or json, got %q", c.LogFormat)
	}
	if c.IdleTimeout <= 0 {
		return errors.New("IDLE_TIMEOUT must be positive")
	}
	return nil
}
