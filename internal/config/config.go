// Package config loads server settings from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Addr     string `mapstructure:"addr"`
	LogLevel string `mapstructure:"log_level"`

	// PostgresDSN empty means the journal runs in memory; rooms then do
	// not survive a process restart.
	PostgresDSN string `mapstructure:"postgres_dsn"`

	WolfVoteCountdownSeconds int `mapstructure:"wolf_vote_countdown_seconds"`
	RevealAckTimeoutSeconds  int `mapstructure:"reveal_ack_timeout_seconds"`
	CatchupWindowSeconds     int `mapstructure:"catchup_window_seconds"`
}

func (c Config) WolfVoteCountdown() time.Duration {
	return time.Duration(c.WolfVoteCountdownSeconds) * time.Second
}

func (c Config) RevealAckTimeout() time.Duration {
	return time.Duration(c.RevealAckTimeoutSeconds) * time.Second
}

func (c Config) CatchupWindow() time.Duration {
	return time.Duration(c.CatchupWindowSeconds) * time.Second
}

// LoadDotEnv loads variables from a .env file if present. Existing
// environment variables are not overwritten.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

func Load() (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("judge")
	v.AutomaticEnv()

	v.SetDefault("addr", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("postgres_dsn", "")
	v.SetDefault("wolf_vote_countdown_seconds", 45)
	v.SetDefault("reveal_ack_timeout_seconds", 20)
	v.SetDefault("catchup_window_seconds", 15)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
