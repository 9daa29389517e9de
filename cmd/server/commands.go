package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/warp/payroll-sync/api"
	"github.com/warp/payroll-sync/config"
	"github.com/warp/payroll-sync/hr"
	"github.com/warp/payroll-sync/logging"
	"github.com/warp/payroll-sync/reconcile"
	"github.com/warp/payroll-sync/store/sqlite"
)

// app carries what PersistentPreRunE resolved for the subcommands.
type app struct {
	configFile string
	envFile    string
	hrDSN      string
	payrollDSN string
	logLevel   string
	logFormat  string

	cfg    *config.Config
	logger zerolog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "server",
		Short: "HR/Payroll reconciliation service",
		Long: `Keeps the Payroll database aligned with HR, the source of truth.

Detects employees whose Payroll copy is missing or stale, and copies
HR values into Payroll on request, creating referenced departments and
positions as needed.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "TOML config file")
	flags.StringVar(&a.envFile, "env-file", ".env", "dotenv file (ignored when missing)")
	flags.StringVar(&a.hrDSN, "hr-dsn", "", "HR SQLite DSN")
	flags.StringVar(&a.payrollDSN, "payroll-dsn", "", "Payroll SQLite DSN")
	flags.StringVar(&a.logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	flags.StringVar(&a.logFormat, "log-format", "", "log format (console, json)")

	root.AddCommand(
		a.serveCmd(),
		a.checkCmd(),
		a.syncCmd(),
		a.seedCmd(),
		a.pingCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configFile, a.envFile)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("hr-dsn") {
		cfg.HR.DSN = a.hrDSN
	}
	if flags.Changed("payroll-dsn") {
		cfg.Payroll.DSN = a.payrollDSN
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = a.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format = a.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	a.cfg = cfg
	a.logger = logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cmd.ErrOrStderr(),
	})
	logging.SetDefault(a.logger)
	return nil
}

// stores opens both databases. The caller must call the returned close.
func (a *app) stores() (*sqlite.HRStore, *sqlite.PayrollStore, func(), error) {
	hrStore, err := sqlite.NewHR(a.cfg.HR.DSN)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open hr database: %w", err)
	}
	payroll, err := sqlite.NewPayroll(a.cfg.Payroll.DSN)
	if err != nil {
		hrStore.Close()
		return nil, nil, nil, fmt.Errorf("open payroll database: %w", err)
	}
	return hrStore, payroll, func() {
		payroll.Close()
		hrStore.Close()
	}, nil
}

type storeCheck struct {
	name string
	err  error
}

// pingStores pings both databases with a short timeout.
func pingStores(ctx context.Context, hrStore, payroll hr.Pinger) []storeCheck {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	checks := []storeCheck{{name: "hr"}, {name: "payroll"}}
	checks[0].err = hrStore.Ping(ctx)
	checks[1].err = payroll.Ping(ctx)
	return checks
}

// warnUnreachable logs stores that fail the startup ping. Serving continues.
func (a *app) warnUnreachable(ctx context.Context, hrStore, payroll hr.Pinger) {
	for _, c := range pingStores(ctx, hrStore, payroll) {
		if c.err != nil {
			a.logger.Warn().Err(c.err).Str("store", c.name).Msg("database unreachable at startup")
			continue
		}
		a.logger.Info().Str("store", c.name).Msg("database connected")
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// =============================================================================
// SERVE
// =============================================================================

func (a *app) serveCmd() *cobra.Command {
	var port int
	var monitor bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("port") {
				a.cfg.Server.Port = port
			}
			if cmd.Flags().Changed("monitor") {
				a.cfg.Monitor.Enabled = monitor
			}
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "HTTP server port")
	cmd.Flags().BoolVar(&monitor, "monitor", false, "run the periodic drift monitor")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	hrStore, payroll, closeStores, err := a.stores()
	if err != nil {
		return err
	}
	defer closeStores()

	a.warnUnreachable(ctx, hrStore, payroll)

	engine := reconcile.NewEngine(hrStore, payroll, reconcile.WithLogger(a.logger))

	handler := api.NewHandler(hrStore, payroll, engine)
	handler.Seeder = api.SQLiteSeeder{HR: hrStore, Payroll: payroll}
	handler.Fallback = a.cfg.Fallback.Enabled

	router := api.NewRouter(handler, api.RouterOptions{
		CORSOrigins: a.cfg.Server.CORSOrigins,
		Logger:      a.logger,
	})

	if a.cfg.Monitor.Enabled {
		monitor := api.NewDriftMonitor(engine, a.logger)
		monitor.Interval = a.cfg.Monitor.Interval
		monitor.AutoSync = a.cfg.Monitor.AutoSync
		monitor.Start()
		defer monitor.Stop()
	}

	server := &http.Server{
		Addr:         a.cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info().Str("addr", server.Addr).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	a.logger.Info().Msg("server stopped")
	return nil
}

// =============================================================================
// CHECK / SYNC
// =============================================================================

func (a *app) checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Print the drift report as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			hrStore, payroll, closeStores, err := a.stores()
			if err != nil {
				return err
			}
			defer closeStores()

			engine := reconcile.NewEngine(hrStore, payroll, reconcile.WithLogger(a.logger))
			report, err := engine.Check(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), report)
		},
	}
}

func (a *app) syncCmd() *cobra.Command {
	var ids []int
	var all bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync employees from HR into Payroll",
		Example: `  server sync --ids 3,5
  server sync --all`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if all == (len(ids) > 0) {
				return errors.New("pass exactly one of --ids or --all")
			}

			hrStore, payroll, closeStores, err := a.stores()
			if err != nil {
				return err
			}
			defer closeStores()

			ctx := cmd.Context()
			engine := reconcile.NewEngine(hrStore, payroll, reconcile.WithLogger(a.logger))

			targets := make([]hr.EmployeeID, len(ids))
			for i, id := range ids {
				targets[i] = hr.EmployeeID(id)
			}
			if all {
				check, err := engine.Check(ctx)
				if err != nil {
					return err
				}
				targets = check.IDs()
			}

			report := engine.Execute(ctx, targets)
			if err := printJSON(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			if !report.Success {
				return fmt.Errorf("sync finished with %d failures", report.FailedCount)
			}
			return nil
		},
	}
	cmd.Flags().IntSliceVar(&ids, "ids", nil, "employee IDs to sync")
	cmd.Flags().BoolVar(&all, "all", false, "sync every employee the drift check flags")
	return cmd
}

// =============================================================================
// SEED / PING
// =============================================================================

func (a *app) seedCmd() *cobra.Command {
	var scenario string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Reset both databases to a demo scenario",
		RunE: func(cmd *cobra.Command, _ []string) error {
			dataset, err := api.LoadDataset(scenario)
			if err != nil {
				return err
			}

			hrStore, payroll, closeStores, err := a.stores()
			if err != nil {
				return err
			}
			defer closeStores()

			seeder := api.SQLiteSeeder{HR: hrStore, Payroll: payroll}
			if err := seeder.Seed(cmd.Context(), dataset); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "loaded scenario %s\n", scenario)
			return nil
		},
	}
	cmd.Flags().StringVar(&scenario, "scenario", "drifted", "scenario ID")
	return cmd
}

func (a *app) pingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Test both database connections",
		RunE: func(cmd *cobra.Command, _ []string) error {
			hrStore, payroll, closeStores, err := a.stores()
			if err != nil {
				return err
			}
			defer closeStores()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			var failed bool
			for _, c := range pingStores(ctx, hrStore, payroll) {
				if c.err != nil {
					failed = true
					fmt.Fprintf(out, "%-8s FAIL  %v\n", c.name, c.err)
					continue
				}
				fmt.Fprintf(out, "%-8s OK\n", c.name)
			}

			if version, err := hrStore.Version(ctx); err == nil {
				fmt.Fprintf(out, "sqlite   %s\n", version)
			}
			if failed {
				return errors.New("database connection failed")
			}
			return nil
		},
	}
}
