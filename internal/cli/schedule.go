package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ogulcanaydogan/usagebot/pkg/scheduler"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Show the next fire times of both schedules",
	RunE:  runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
	scheduleCmd.Flags().IntP("count", "n", 5, "Number of upcoming fire times per schedule")
}

func runSchedule(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateSchedule(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	count, _ := cmd.Flags().GetInt("count")
	if count < 1 {
		return fmt.Errorf("count must be at least 1, got %d", count)
	}

	loc := cfg.Location()
	now := time.Now().In(loc)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "SCHEDULE\tEXPR\tNEXT\n")
	for _, s := range []struct{ label, expr string }{
		{"summary", cfg.Schedule.Summary},
		{"alert", cfg.Schedule.Alert},
	} {
		at := now
		for i := range count {
			next, err := scheduler.Next(s.expr, at)
			if err != nil {
				return fmt.Errorf("schedule %s: %w", s.label, err)
			}
			label, expr := s.label, s.expr
			if i > 0 {
				label, expr = "", ""
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", label, expr, next.Format("Mon 2006-01-02 15:04 MST"))
			at = next
		}
	}
	return w.Flush()
}
