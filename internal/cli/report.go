package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ogulcanaydogan/usagebot/pkg/tracker"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Fetch the usage summary once and print it",
	Long: `Fetch the daily, weekly, monthly and yearly usage totals once and print them.
With --send the summary is also posted to the webhook. With --alert the daily
limit is checked too, and with both flags an alert is posted when it is reached.`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().Bool("send", false, "Post the summary to the webhook")
	reportCmd.Flags().Bool("alert", false, "Check today's usage against the daily limit")
}

func runReport(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	send, _ := cmd.Flags().GetBool("send")
	checkAlert, _ := cmd.Flags().GetBool("alert")

	validate := cfg.ValidateOCI
	if send {
		validate = cfg.Validate
	}
	if err := validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	a, err := initApp(cfg, newLogger(cfg))
	if err != nil {
		return err
	}

	now := time.Now()
	summary, err := a.aggregator.Summary(cmd.Context(), now)
	if err != nil {
		return fmt.Errorf("fetch summary: %w", err)
	}

	windows := tracker.CalendarWindows(now)
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "=== Oracle Cloud Usage Report ===\n")
	fmt.Fprintf(out, "Tenancy: %s\n\n", cfg.OCI.Tenancy)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "  WINDOW\tFROM\tTO\tUSAGE\n")
	for _, row := range []struct {
		name   string
		window tracker.TimeWindow
		amount float64
	}{
		{"Daily", windows.Today, summary.Daily},
		{"Weekly", windows.Week, summary.Weekly},
		{"Monthly", windows.Month, summary.Monthly},
		{"Annually", windows.Year, summary.Yearly},
	} {
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s%.2f\n",
			row.name,
			row.window.Start.Format(time.DateOnly),
			row.window.End.Format(time.DateOnly),
			cfg.Currency, row.amount,
		)
	}
	w.Flush()

	var errs []error
	if send {
		if err := a.notifier.SendSummary(cmd.Context(), summary); err != nil {
			errs = append(errs, fmt.Errorf("send summary: %w", err))
		} else {
			fmt.Fprintf(out, "\nSummary posted to webhook.\n")
		}
	}

	if checkAlert {
		limit := a.threshold().Min
		if summary.Daily < limit {
			fmt.Fprintf(out, "\nDaily usage %s%.2f is under the limit %s%.2f.\n", cfg.Currency, summary.Daily, cfg.Currency, limit)
		} else {
			fmt.Fprintf(out, "\nDaily usage %s%.2f has reached the limit %s%.2f!\n", cfg.Currency, summary.Daily, cfg.Currency, limit)
			if send {
				if err := a.notifier.SendAlert(cmd.Context(), summary.Daily, limit); err != nil {
					errs = append(errs, fmt.Errorf("send alert: %w", err))
				} else {
					fmt.Fprintf(out, "Alert posted to webhook.\n")
				}
			}
		}
	}

	return errors.Join(errs...)
}
