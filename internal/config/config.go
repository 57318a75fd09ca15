// Package config loads tool configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds the ambient settings every command shares.
type Config struct {
	// SubscriptionID is the default Azure subscription. Commands accept
	// --subscription-id and the console's use-subscription overrides it.
	SubscriptionID string `envconfig:"AZURE_SUBSCRIPTION_ID"`
	// RolesDir is where role definition JSON files live.
	RolesDir string `envconfig:"AZROLE_ROLES_DIR" default:"roles"`
	// HistoryFile backs the console prompt history. Defaults to
	// ~/.azrole_history when unset.
	HistoryFile string `envconfig:"AZROLE_HISTORY_FILE"`
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	// Missing .env is the normal case outside local development.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load environment configuration: %w", err)
	}

	if cfg.HistoryFile == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			cfg.HistoryFile = filepath.Join(home, ".azrole_history")
		}
	}
	return &cfg, nil
}
