// Package config collects runtime settings from command-line flags, the
// environment, and an optional .env file.
//
// Precedence, highest first: flags, process environment, .env file,
// built-in defaults.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all the values that can be tweaked at startup.
type Config struct {
	Port            int           // TCP port the HTTP server listens on
	Env             string        // development, staging, or production
	LogLevel        slog.Level    // Minimum level written by the logger
	ShutdownTimeout time.Duration // Grace period for in-flight requests on shutdown
	DB              struct {
		DSN          string // PostgreSQL DSN; empty selects the in-memory store
		MaxOpenConns int
		MaxIdleConns int
		MaxIdleTime  time.Duration
	}
	Limiter struct {
		RPS     float64 // Tokens added per second, per client IP
		Burst   int
		Enabled bool
	}
}

// Load reads envFiles (missing files are ignored) into the environment and
// then parses args. With no envFiles, ".env" in the working directory is used.
func Load(args []string, envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		// godotenv.Load never overrides variables that are already set.
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return Parse(args)
}

// Parse reads flags from args, using environment variables as defaults.
func Parse(args []string) (Config, error) {
	var cfg Config
	var logLevel string

	flags := flag.NewFlagSet("api", flag.ContinueOnError)
	flags.SetOutput(io.Discard)

	flags.IntVar(&cfg.Port, "port", atoienv("PORT", 4000), "Server port")
	flags.StringVar(&cfg.Env, "env", getenv("ENV", "development"), "Environment (development|staging|production)")
	flags.StringVar(&logLevel, "log-level", getenv("LOG_LEVEL", "info"), "Log level (debug|info|warn|error)")
	flags.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", durenv("SHUTDOWN_TIMEOUT", 20*time.Second), "Graceful shutdown timeout")

	flags.StringVar(&cfg.DB.DSN, "db-dsn", getenv("DB_DSN", ""), "PostgreSQL DSN (empty uses the in-memory store)")
	flags.IntVar(&cfg.DB.MaxOpenConns, "db-max-open-conns", atoienv("DB_MAX_OPEN_CONNS", 25), "PostgreSQL max open connections")
	flags.IntVar(&cfg.DB.MaxIdleConns, "db-max-idle-conns", atoienv("DB_MAX_IDLE_CONNS", 25), "PostgreSQL max idle connections")
	flags.DurationVar(&cfg.DB.MaxIdleTime, "db-max-idle-time", durenv("DB_MAX_IDLE_TIME", 15*time.Minute), "PostgreSQL max connection idle time")

	flags.Float64Var(&cfg.Limiter.RPS, "limiter-rps", floatenv("LIMITER_RPS", 2), "Rate limiter maximum requests per second")
	flags.IntVar(&cfg.Limiter.Burst, "limiter-burst", atoienv("LIMITER_BURST", 4), "Rate limiter maximum burst")
	flags.BoolVar(&cfg.Limiter.Enabled, "limiter-enabled", boolenv("LIMITER_ENABLED", true), "Enable rate limiter")

	if err := flags.Parse(args); err != nil {
		return Config{}, err
	}

	switch cfg.Env {
	case "development", "staging", "production":
	default:
		return Config{}, fmt.Errorf("invalid environment %q", cfg.Env)
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(logLevel)); err != nil {
		return Config{}, fmt.Errorf("invalid log level %q", logLevel)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("invalid port %d", cfg.Port)
	}
	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoienv(key string, def int) int {
	n, err := strconv.Atoi(getenv(key, ""))
	if err != nil {
		return def
	}
	return n
}

func floatenv(key string, def float64) float64 {
	f, err := strconv.ParseFloat(getenv(key, ""), 64)
	if err != nil {
		return def
	}
	return f
}

func boolenv(key string, def bool) bool {
	b, err := strconv.ParseBool(getenv(key, ""))
	if err != nil {
		return def
	}
	return b
}

func durenv(key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(getenv(key, ""))
	if err != nil {
		return def
	}
	return d
}
