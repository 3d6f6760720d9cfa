package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/matthieukhl/bakehouse/internal/config"
	"github.com/matthieukhl/bakehouse/internal/integrity"
	"github.com/matthieukhl/bakehouse/internal/metrics"
)

var (
	outputFormat string
	staleAfter   time.Duration
)

var checkCmd = &cobra.Command{
	Use:   "check-integrity",
	Short: "Check that every customer has valid, fresh metrics",
	Long: `Loads the customers and the customer metrics, then checks that each
customer with a phone number has a metrics record, that every required
field is present and well-formed, and that the metrics were computed
recently.

Stale metrics are reported but do not fail the check. The command exits
non-zero when metrics are missing or invalid.`,
	RunE: checkIntegrity,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVarP(&outputFormat, "output", "o", integrity.FormatText, "Report format (text|json|yaml)")
	checkCmd.Flags().DurationVar(&staleAfter, "stale-after", integrity.DefaultStaleAfter, "Age after which metrics count as stale")
}

func checkIntegrity(cmd *cobra.Command, args []string) (err error) {
	switch outputFormat {
	case integrity.FormatText, integrity.FormatJSON, integrity.FormatYAML:
	default:
		return fmt.Errorf("%w: %s", integrity.ErrUnknownFormat, outputFormat)
	}

	flags := cmd.Flags()
	cfg, err := loadConfig(func(c *config.Config) {
		if flags.Changed("stale-after") {
			c.Integrity.StaleAfter = staleAfter
		}
	})
	if err != nil {
		return err
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	text := outputFormat == integrity.FormatText
	if text {
		fmt.Println("🔍 Checking customer metrics integrity...")
		fmt.Printf("🔌 Connecting to %s store...\n", cfg.Store.Provider)
	}

	ctx := cmd.Context()
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore(st, &err)

	checker := &integrity.Checker{
		Loader: &integrity.Loader{
			Reader:              st,
			CustomersCollection: cfg.Integrity.CustomersCollection,
			MetricsCollection:   cfg.Integrity.MetricsCollection,
		},
		Validator: &integrity.Validator{StaleAfter: cfg.Integrity.StaleAfter},
		Logger:    log,
		Metrics:   metrics.New(),
	}

	report, err := checker.Run(ctx)
	if err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}

	if err := integrity.Render(os.Stdout, report, outputFormat); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}

	if !report.Passed() {
		return errSilent
	}
	return nil
}
