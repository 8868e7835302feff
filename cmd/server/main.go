/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the loyalty rules engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Initialize SQLite store
  3. Load the rule catalog
  4. Wire the event processor (facts registry, lock table, catalog, store)
  5. Configure HTTP router
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port   HTTP server port (default: 8080)
  -db     SQLite database path (default: loyalty.db); use ":memory:" for
          an in-memory database
  -rules  rule catalog JSON file path (default: rules.json)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the lock table's idle reaper and close the database connection
  4. Exit

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/loyalty-engine/api"
	"github.com/warp/loyalty-engine/catalog"
	"github.com/warp/loyalty-engine/engine"
	"github.com/warp/loyalty-engine/facts"
	"github.com/warp/loyalty-engine/ledger"
	"github.com/warp/loyalty-engine/store/sqlite"
)

func main() {
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "loyalty.db", "SQLite database path")
	rulesPath := flag.String("rules", "rules.json", "rule catalog JSON file path")
	flag.Parse()

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	cat, err := catalog.LoadFile(*rulesPath)
	if err != nil {
		log.Error("failed to load rule catalog", "error", err, "path", *rulesPath)
		os.Exit(1)
	}

	locks := ledger.NewLockTable(5 * time.Minute)
	defer locks.Close()

	registry := facts.NewRegistry()
	processor := engine.New(store, locks, registry, cat, log)

	handler := api.NewHandler(processor, store, cat, log)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
