// Package main is the entry point for the bookstore API server.
// It wires together configuration, storage, and the HTTP router.
package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"time"

	"github.com/aoideee/bookstore-api/internal/config"
	"github.com/aoideee/bookstore-api/internal/data"

	_ "github.com/lib/pq" // Register the PostgreSQL driver with database/sql.
)

// appVersion is the current version of the API, shown in logs and the healthcheck.
const appVersion = "1.1.0"

// applicationDependencies bundles every shared resource that HTTP handlers need.
// A pointer to this struct is passed as the receiver on all handler and route methods.
type applicationDependencies struct {
	config config.Config
	logger *slog.Logger
	models data.Models
}

// demoPresses seed the in-memory store so books can be created without a database.
var demoPresses = []data.Press{
	{ID: 1, PressName: "Orbit Press", Address: "12 Harbour Road", Pic: "img/orbit.png"},
	{ID: 2, PressName: "Lantern Books", Address: "4 Mill Lane", Pic: "img/lantern.png"},
	{ID: 3, PressName: "Quarry House", Address: "77 Stone Street", Pic: "img/quarry.png"},
}

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	logger := newLogger(cfg)

	app := &applicationDependencies{
		config: cfg,
		logger: logger,
	}

	if cfg.DB.DSN == "" {
		logger.Warn("no database DSN configured, using the in-memory store")
		app.models = data.NewMemoryModels(demoPresses...)
	} else {
		db, err := openDB(cfg)
		if err != nil {
			logger.Error(err.Error())
			os.Exit(1)
		}
		defer db.Close()

		logger.Info("database connection pool established")
		app.models = data.NewModels(db)
	}

	if err := app.serve(); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}

// newLogger writes human-readable text in development and JSON elsewhere.
func newLogger(cfg config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	var h slog.Handler
	if cfg.Env == "development" {
		h = slog.NewTextHandler(os.Stdout, opts)
	} else {
		h = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(h).With("version", appVersion)
}

// openDB opens a PostgreSQL connection pool using the configured DSN and pool
// limits, then pings the database with a 5-second timeout to confirm it is reachable.
func openDB(cfg config.Config) (*sql.DB, error) {
	// sql.Open only validates the DSN format; it does not actually connect yet.
	db, err := sql.Open("postgres", cfg.DB.DSN)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	db.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	db.SetConnMaxIdleTime(cfg.DB.MaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// PingContext performs a real round-trip to verify the database is reachable.
	err = db.PingContext(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
