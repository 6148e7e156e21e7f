package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the Oracle Cloud credentials with one billing query",
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateOCI(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	a, err := initApp(cfg, newLogger(cfg))
	if err != nil {
		return err
	}

	if err := a.aggregator.CheckCredentials(cmd.Context(), time.Now()); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Oracle Cloud credentials OK (tenancy %s, region %s)\n", cfg.OCI.Tenancy, cfg.OCI.Region)
	return nil
}
