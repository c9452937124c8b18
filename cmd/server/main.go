/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the payroll engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Load the tax rate table (rate file or built-in statutory rates)
  3. Initialize SQLite store
  4. Create API handler with dependencies (Redis cache if configured)
  5. Start the pay-run scheduler
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port      HTTP server port (default: 8080)
  -db        SQLite database path (default: payroll.db)
             Use ":memory:" for in-memory database
  -rates     Rate file, .yaml or .json (default: built-in statutory rates)
  -redis     Redis address for the wage quote cache (default: in-memory)
  -anchor    First day of any weekly/biweekly pay period (default: 2020-01-06)
  -schedule  Pay-run scheduler interval, 0 disables it (default: 1h)
  -catchup   Ended pay periods the scheduler looks back per employee (default: 1)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database and cache connections
  5. Exit

EXAMPLES:
  # Run with file database and a rate file
  ./server -db="./data/payroll.db" -rates=rates/statutory.yaml

  # Run with in-memory database, no scheduler
  ./server -db=":memory:" -schedule=0

  # Share wage quotes between instances
  ./server -redis=localhost:6379

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
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/payroll-engine/api"
	"github.com/warp/payroll-engine/cache"
	"github.com/warp/payroll-engine/liability"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/ratetable"
	"github.com/warp/payroll-engine/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "payroll.db", "SQLite database path")
	ratesPath := flag.String("rates", "", "Rate file (.yaml or .json); empty uses statutory rates")
	redisAddr := flag.String("redis", "", "Redis address for the wage quote cache; empty uses memory")
	anchorFlag := flag.String("anchor", "2020-01-06", "First day of any weekly/biweekly pay period")
	interval := flag.Duration("schedule", time.Hour, "Pay-run scheduler interval (0 disables)")
	catchUp := flag.Int("catchup", 1, "Ended pay periods the scheduler looks back per employee")
	flag.Parse()

	anchor, err := payroll.ParseDate(*anchorFlag)
	if err != nil {
		log.Fatalf("Invalid -anchor: %v", err)
	}

	// Rate table
	rates := payroll.StatutoryRates()
	var rules map[payroll.TaxYear]string
	if *ratesPath != "" {
		file, err := ratetable.Load(*ratesPath)
		if err != nil {
			log.Fatalf("Failed to load rate file: %v", err)
		}
		rates, rules = file.Rates, file.LiabilityRules
		log.Printf("Loaded rates for %d tax years from %s", len(rates.Years()), *ratesPath)
	}
	evaluator, err := liability.NewEvaluator(rules)
	if err != nil {
		log.Fatalf("Invalid liability rule: %v", err)
	}

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Initialize handler
	handler := api.NewHandler(store, rates, anchor)
	handler.LiabilityRules = rules
	handler.Liability = evaluator

	if *redisAddr != "" {
		rc := cache.NewRedis(*redisAddr)
		defer rc.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := rc.Ping(pingCtx); err != nil {
			log.Printf("Warning: Redis unreachable at %s, wage quotes will be recomputed: %v", *redisAddr, err)
		}
		cancel()
		handler.Cache = rc
	}

	// Scheduler
	scheduler := api.NewPayRunScheduler(handler)
	scheduler.Enabled = *interval > 0
	scheduler.CatchUp = *catchUp
	if scheduler.Enabled {
		scheduler.CheckInterval = *interval
	}
	scheduler.Start()

	// Create router
	router := api.NewRouter(handler)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on http://localhost:%d", *port)
		log.Printf("API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
