package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matthieukhl/bakehouse/internal/backfill"
	"github.com/matthieukhl/bakehouse/internal/config"
	"github.com/matthieukhl/bakehouse/internal/lock"
	"github.com/matthieukhl/bakehouse/internal/metrics"
	"github.com/matthieukhl/bakehouse/internal/timeslot"
)

var (
	pageSize  int
	batchSize int
	dryRun    bool
	timezone  string
)

var fixTimeSlotsCmd = &cobra.Command{
	Use:   "fix-timeslots",
	Short: "Backfill deliveryTimeSlot on orders that lack one",
	Long: `Scans the orders collection page by page, derives the two-hour
delivery slot from each order's creation time and writes the missing
slots back in batches.

Orders that already have a slot are left alone, whatever its value.
Orders without a usable orderDate are counted as undetermined and do
not fail the run, so the command can be re-run safely.`,
	RunE: fixTimeSlots,
}

func init() {
	rootCmd.AddCommand(fixTimeSlotsCmd)

	fixTimeSlotsCmd.Flags().IntVar(&pageSize, "page-size", 500, "Orders read per page")
	fixTimeSlotsCmd.Flags().IntVar(&batchSize, "batch-size", 500, "Updates written per batch")
	fixTimeSlotsCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Scan and count without writing")
	fixTimeSlotsCmd.Flags().StringVar(&timezone, "timezone", timeslot.DefaultTimezone, "Shop timezone used to derive slots")
}

func fixTimeSlots(cmd *cobra.Command, args []string) (err error) {
	fmt.Println("🕐 Fixing order delivery timeslots...")

	flags := cmd.Flags()
	cfg, err := loadConfig(func(c *config.Config) {
		if flags.Changed("page-size") {
			c.Backfill.PageSize = pageSize
		}
		if flags.Changed("batch-size") {
			c.Backfill.BatchSize = batchSize
		}
		if flags.Changed("timezone") {
			c.Backfill.Timezone = timezone
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

	deriver, err := timeslot.NewDeriver(cfg.Backfill.Timezone)
	if err != nil {
		return err
	}

	locker, err := lock.NewLocker(cfg)
	if err != nil {
		return err
	}

	fmt.Printf("🔌 Connecting to %s store...\n", cfg.Store.Provider)
	ctx := cmd.Context()
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore(st, &err)

	job := &backfill.TimeSlotJob{
		Store:      st,
		Deriver:    deriver,
		Collection: cfg.Backfill.Collection,
		PageSize:   cfg.Backfill.PageSize,
		BatchSize:  cfg.Backfill.BatchSize,
		DryRun:     dryRun,
		Locker:     locker,
		LockTTL:    cfg.Lock.TTL,
		Logger:     log,
		Metrics:    metrics.New(),
	}

	if dryRun {
		fmt.Println("🧪 Dry run: no updates will be written")
	}

	result, runErr := job.Run(ctx)
	printTimeSlotResult(result)
	if runErr != nil {
		log.Error("fix-timeslots failed", zap.Error(runErr))
		return fmt.Errorf("fix-timeslots failed: %w", runErr)
	}
	return nil
}

func printTimeSlotResult(result *backfill.Result) {
	if result == nil {
		return
	}

	fmt.Printf("📦 Processed: %d orders\n", result.Processed)
	fmt.Printf("⏭️  Skipped (already set): %d\n", result.Skipped)
	if result.DryRun {
		fmt.Printf("📝 Would update: %d\n", result.WouldUpdate)
	} else {
		fmt.Printf("✅ Updated: %d\n", result.Updated)
	}
	if result.CouldNotDetermine > 0 {
		fmt.Printf("⚠️  Could not determine: %d\n", result.CouldNotDetermine)
	}
	fmt.Printf("⏱️  Duration: %s\n", result.Duration)

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return
	}
	fmt.Println("\n📋 Final Result:")
	fmt.Println(string(out))
}
