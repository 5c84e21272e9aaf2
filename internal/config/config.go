// Package config holds process configuration (environment variables) and
// per-module project configuration (.odooscope.yaml).
package config

import (
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	// Server
	Port int
	Env  string

	// Optional Postgres history of analysis runs. Empty disables persistence
	// and the API keeps runs in memory only.
	DatabaseURL string

	// Directory used for cloned module repositories.
	WorkspaceDir string

	// Token for cloning private repositories.
	GitToken string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:         getEnvInt("PORT", 8080),
		Env:          getEnv("ENV", "development"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		WorkspaceDir: getEnv("WORKSPACE_DIR", os.TempDir()),
		GitToken:     getEnv("GIT_TOKEN", ""),
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}
