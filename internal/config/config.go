// Package config loads application configuration from environment
// variables.  A .env file in the working directory is read first when
// present; variables already set in the process environment win.
package config

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/movie-catalog/internal/model"
)

// DefaultSeedFile is the bundled catalog loaded when MOVIES_SEED_FILE is
// not set.
const DefaultSeedFile = "data/movies.json"

// Config holds the runtime configuration of the HTTP service.  Every field
// has a default so the service starts with an empty environment.
type Config struct {
	Env             string        // application environment (development, production, ...)
	Port            string        // HTTP port to listen on
	LogLevel        slog.Level    // minimum level written by the logger
	LogFormat       string        // "json" or "text"
	Genres          []string      // accepted genre enumeration
	SeedFile        string        // JSON file of movies loaded at startup; empty skips seeding
	SeedRequired    bool          // a missing SeedFile is fatal only when it was set explicitly
	ShutdownTimeout time.Duration // grace period for in-flight requests on shutdown
}

// Load reads the .env file (if any) and returns the configuration.
func Load() Config {
	_ = godotenv.Load() // a missing .env file is not an error

	seedFile := envStr("MOVIES_SEED_FILE", DefaultSeedFile)
	if !envBool("MOVIES_SEED_ENABLED", true) {
		seedFile = ""
	}

	return Config{
		Env:             envStr("APP_ENV", "development"),
		Port:            envStr("APP_PORT", "1234"),
		LogLevel:        parseLevel(envStr("LOG_LEVEL", "info")),
		LogFormat:       strings.ToLower(envStr("LOG_FORMAT", "json")),
		Genres:          envList("MOVIE_GENRES", model.DefaultGenres),
		SeedFile:        seedFile,
		SeedRequired:    os.Getenv("MOVIES_SEED_FILE") != "",
		ShutdownTimeout: envDur("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
