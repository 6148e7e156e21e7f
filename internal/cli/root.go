package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/ogulcanaydogan/usagebot/internal/config"
	"github.com/ogulcanaydogan/usagebot/pkg/alerts"
	"github.com/ogulcanaydogan/usagebot/pkg/billing"
	"github.com/ogulcanaydogan/usagebot/pkg/metrics"
	"github.com/ogulcanaydogan/usagebot/pkg/tracker"
)

// Version is set at build time via ldflags.
var Version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "usagebot",
	Short: "usagebot - Oracle Cloud usage reports and daily limit alerts",
	Long: `usagebot queries the Oracle Cloud Usage API on two cron schedules.
It posts a daily, weekly, monthly and yearly cost summary to a Discord webhook,
and alerts when today's usage reaches the configured limit.

Running usagebot without a subcommand is the same as "usagebot run".`,
	SilenceUsage: true,
	RunE:         runRun,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.usagebot/config.yaml)")
}

// loadConfig loads the configuration.
func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

// newLogger creates a structured logger from config.
func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.Logging.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	return slog.New(handler)
}

// app is the wired set of components shared by the commands.
type app struct {
	cfg        *config.Config
	logger     *slog.Logger
	registry   *prometheus.Registry
	metrics    *metrics.Metrics
	aggregator *tracker.Aggregator
	notifier   *alerts.WebhookNotifier
}

// initApp builds the billing client, aggregator and notifier from config.
func initApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	client, err := billing.NewOCIClient(billing.OCIConfig{
		Tenancy:       cfg.OCI.Tenancy,
		User:          cfg.OCI.User,
		Fingerprint:   cfg.OCI.Fingerprint,
		Region:        cfg.OCI.Region,
		KeyFile:       cfg.OCI.KeyFile,
		KeyPassphrase: cfg.OCI.KeyPassphrase,
		Timeout:       cfg.OCITimeout(),
	})
	if err != nil {
		return nil, fmt.Errorf("init billing client: %w", err)
	}

	notifier := alerts.NewWebhookNotifier(alerts.WebhookConfig{
		URL:      cfg.Webhook.URL,
		Secret:   cfg.Webhook.Secret,
		Currency: cfg.Currency,
		Timeout:  cfg.WebhookTimeout(),
	}, m)

	return &app{
		cfg:        cfg,
		logger:     logger,
		registry:   registry,
		metrics:    m,
		aggregator: tracker.NewAggregator(client, cfg.OCI.Tenancy, m, logger.With("component", "aggregator")),
		notifier:   notifier,
	}, nil
}

func (a *app) threshold() tracker.Threshold {
	return tracker.Threshold{
		Min:      a.cfg.Thresholds.MinDailyUsage,
		Max:      a.cfg.Thresholds.MaxDailyUsage,
		Currency: a.cfg.Currency,
	}
}
