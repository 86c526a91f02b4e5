/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the timesheet engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present) and parse command-line flags
  2. Parse the rate schedule (default or -schedule JSON file)
  3. Initialize SQLite store
  4. Wire the ledger, API handler and router
  5. Start the accrual replayer
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port             HTTP server port (default: 8080, env PORT)
  -db               SQLite database path (default: timesheet.db, env DATABASE_PATH)
                    Use ":memory:" for in-memory database
  -schedule         Path to a rate schedule JSON file (default: statutory schedule)
  -replay-interval  How often the accrual replayer sweeps (default: 1m)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the replayer
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/timesheet.db"

  # Run with an alternate jurisdiction's schedule
  ./server -schedule=./schedules/night-heavy.json

  # Sweep failed accruals every ten seconds
  ./server -replay-interval=10s

DIRECTORIES:
  Employee rates and project assignments come from external systems in
  production. This binary wires the static in-process directories with a
  small demo data set; swap them for real clients at the call sites
  below.

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

	"github.com/joho/godotenv"
	"github.com/warp/timesheet-engine/api"
	"github.com/warp/timesheet-engine/engine"
	"github.com/warp/timesheet-engine/factory"
	"github.com/warp/timesheet-engine/store/sqlite"
	"github.com/warp/timesheet-engine/timesheet"
)

func main() {
	// .env is optional; flags beat env, env beats defaults.
	_ = godotenv.Load()

	port := flag.Int("port", envInt("PORT", 8080), "HTTP server port")
	dbPath := flag.String("db", envStr("DATABASE_PATH", "timesheet.db"), "SQLite database path")
	schedulePath := flag.String("schedule", envStr("SCHEDULE_PATH", ""), "Rate schedule JSON file (empty = statutory default)")
	replayInterval := flag.Duration("replay-interval", time.Minute, "Accrual replayer sweep interval")
	flag.Parse()

	schedule, err := loadSchedule(*schedulePath)
	if err != nil {
		log.Fatalf("Failed to load rate schedule: %v", err)
	}

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Wire directories. Static demo data; production swaps these for
	// clients of the HR and project systems.
	employees := timesheet.NewStaticDirectory()
	employees.SetEmployee("emp-demo", "demo-co", engine.NewMoney(25))

	projects := timesheet.NewStaticProjects()
	projects.SetAssignment("asg-demo", "proj-demo")

	ledger := timesheet.NewLedger(store, employees, projects, schedule)

	// Initialize handler and router
	handler := api.NewHandler(ledger, timesheet.AllowAll{})
	router := api.NewRouter(handler)

	// Start the accrual replayer
	replayer := api.NewAccrualReplayer(ledger.Propagator())
	replayer.CheckInterval = *replayInterval
	replayer.Start()
	defer replayer.Stop()

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
		log.Printf("🚀 Server starting on http://localhost:%d", *port)
		log.Printf("📊 API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// loadSchedule reads a schedule document from disk, or falls back to the
// statutory default.
func loadSchedule(path string) (engine.RateSchedule, error) {
	if path == "" {
		return engine.DefaultSchedule(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return engine.RateSchedule{}, err
	}
	return factory.ParseSchedule(string(raw))
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n
		}
	}
	return fallback
}
