package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ogulcanaydogan/usagebot/internal/server"
	"github.com/ogulcanaydogan/usagebot/pkg/scheduler"
	"github.com/ogulcanaydogan/usagebot/pkg/tracker"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Verify credentials and start both schedules",
	Long: `Verify the Oracle Cloud credentials with one billing query, then run the
summary and alert jobs on their cron schedules until interrupted.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	for _, c := range []*cobra.Command{rootCmd, runCmd} {
		c.Flags().StringP("listen", "l", "", "Status server listen address (default from config, empty disables)")
	}
}

func runRun(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		cfg.Server.Listen = listen
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := newLogger(cfg)

	a, err := initApp(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.aggregator.CheckCredentials(ctx, time.Now()); err != nil {
		logger.Error("credential check failed", "error", err)
		return err
	}
	logger.Info("credential check passed", "tenancy", cfg.OCI.Tenancy, "region", cfg.OCI.Region)

	if cfg.Thresholds.MaxDailyUsage != 0 {
		logger.Warn("thresholds.max_daily_usage is set but not used for alerting",
			"max_daily_usage", cfg.Thresholds.MaxDailyUsage)
	}

	sched, err := scheduler.New([]scheduler.Schedule{
		{
			Label: "summary",
			Expr:  cfg.Schedule.Summary,
			Job:   tracker.NewSummaryJob(a.aggregator, a.notifier, logger),
		},
		{
			Label: "alert",
			Expr:  cfg.Schedule.Alert,
			Job:   tracker.NewAlertJob(a.aggregator, a.notifier, a.threshold(), logger),
		},
	}, logger, scheduler.WithLocation(cfg.Location()), scheduler.WithMetrics(a.metrics))
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	var srv *http.Server
	if cfg.Server.Listen != "" {
		srv = &http.Server{
			Addr:              cfg.Server.Listen,
			Handler:           server.NewServer(sched, a.registry, logger).Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
	}

	err = serve(ctx, sched, srv, logger)
	logger.Info("usagebot stopped")
	return err
}

type runner interface {
	Run(ctx context.Context)
}

// serve runs sched until ctx is cancelled. srv is optional. A status server
// that fails to listen is logged and the schedules keep running.
func serve(ctx context.Context, sched runner, srv *http.Server, logger *slog.Logger) error {
	if srv != nil {
		go func() {
			logger.Info("status server started", "listen", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("status server failed, schedules keep running", "listen", srv.Addr, "error", err)
			}
		}()
	}

	sched.Run(ctx)
	logger.Info("shutting down")

	if srv == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	return nil
}
