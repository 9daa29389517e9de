/*
main.go - Application entry point

PURPOSE:
  Starts the HR/Payroll reconciliation service and its operator commands.
  Handles configuration, dependency injection, and graceful shutdown.

COMMANDS:
  serve   Run the HTTP API (and the drift monitor when enabled)
  check   Print the drift report as JSON
  sync    Sync employees (--ids 1,2 or --all) and print the report
  seed    Reset both databases to a demo scenario
  ping    Test both database connections

STARTUP SEQUENCE (serve):
  1. Load config (defaults, TOML file, .env, environment, flags)
  2. Open the HR and Payroll SQLite stores and ping them (warn only)
  3. Create the engine and API handler
  4. Configure HTTP router
  5. Start server (and monitor) with graceful shutdown

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the drift monitor
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connections

EXAMPLES:
  # Run with file databases
  ./server serve --hr-dsn=./data/hr.db --payroll-dsn=./data/payroll.db

  # Load the drifted demo and sync it from the shell
  ./server seed --scenario drifted
  ./server sync --all

ENVIRONMENT:
  HR_DSN, PAYROLL_DSN, PORT, LOG_LEVEL, LOG_FORMAT, CORS_ORIGINS,
  MONITOR_ENABLED, MONITOR_INTERVAL, FALLBACK_ENABLED

SEE ALSO:
  - config/config.go: Configuration sources
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
