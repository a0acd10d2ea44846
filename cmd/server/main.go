/*
main.go - Application entry point

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Load TOML configuration
  3. Set up structured logging (JSON file + colored console)
  4. Open the SQLite store (schema auto-migrated)
  5. Wire domain services and the chi router
  6. Serve with graceful shutdown

COMMAND-LINE FLAGS:
  -config  Path to the TOML config file (optional; defaults apply)
  -addr    Listen address override
  -db      SQLite database path override; ":memory:" for in-memory

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM the server stops accepting connections, waits up
  to 30s for in-flight requests, then closes the database.
*/
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hrline/leave-engine/api"
	"github.com/hrline/leave-engine/config"
	"github.com/hrline/leave-engine/logging"
	"github.com/hrline/leave-engine/store/sqlite"
)

func main() {
	configPath := flag.String("config", "", "path to TOML config file")
	addr := flag.String("addr", "", "listen address override")
	dbPath := flag.String("db", "", "SQLite database path override")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}

	logger := logging.Setup(cfg.Logging.File, cfg.LogLevel())

	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		logger.Error("failed to open database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer store.Close()

	handler := api.NewHandler(store, logger)
	router := api.NewRouter(handler, api.RouterOptions{
		JWTSecret:      []byte(cfg.Server.JWTSecret),
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting",
			slog.String("addr", cfg.Server.Addr),
			slog.String("db", cfg.Database.Path))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("server stopped")
}
