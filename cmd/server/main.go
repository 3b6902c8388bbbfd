/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the wage engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags, load the TOML config
  2. Build the zap logger
  3. Initialize SQLite store
  4. Create report service and API handler
  5. Configure HTTP router
  6. Start month-close scheduler
  7. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  TOML config path (default: $WAGE_ENGINE_CONFIG, else defaults)
  -port    HTTP server port, overrides server.port
  -db      SQLite database path, overrides data.db_path
           Use ":memory:" for in-memory database
  -print-config
           Print the effective config and exit

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the scheduler (waits for an in-flight month close)
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection

EXAMPLES:
  # Run with file database
  ./server -db="./data/wage.db"

  # Run with in-memory database and a config file
  ./server -config=wage.toml -db=":memory:"

SEE ALSO:
  - config/config.go: Config file format
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/warp/wage-engine/api"
	"github.com/warp/wage-engine/config"
	"github.com/warp/wage-engine/report"
	"github.com/warp/wage-engine/store/sqlite"
)

func main() {
	// Flags
	configPath := flag.String("config", "", "TOML config path")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	printConfig := flag.Bool("print-config", false, "print the effective config and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *dbPath != "" {
		cfg.Data.DBPath = *dbPath
	}
	if *printConfig {
		if err := cfg.Write(os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
			os.Exit(1)
		}
		return
	}

	logger, err := newLogger(cfg.Log.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func newLogger(development bool) (*zap.Logger, error) {
	if development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(cfg *config.Config, logger *zap.Logger) error {
	opts, err := cfg.ReportOptions()
	if err != nil {
		return err
	}

	// Initialize store
	store, err := sqlite.New(cfg.Data.DBPath)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer store.Close()

	reports := report.NewService(store, opts, logger)
	handler := api.NewHandler(store, reports, logger)
	router := api.NewRouter(handler, cfg.Server.AllowedOrigins...)

	scheduler := api.NewMonthCloseScheduler(store, reports, logger)
	scheduler.Enabled = cfg.Scheduler.Enabled
	if scheduler.Enabled {
		if scheduler.CheckInterval, err = cfg.SchedulerInterval(); err != nil {
			return err
		}
	}
	scheduler.Start()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	errc := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.Int("port", cfg.Server.Port),
			zap.String("db", cfg.Data.DBPath),
			zap.String("basis", string(opts.Basis)),
			zap.Int64("activity_days", opts.ActivityDays),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errc:
		return err
	}

	logger.Info("shutting down server")
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
