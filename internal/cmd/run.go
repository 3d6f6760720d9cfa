package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matthieukhl/bakehouse/internal/backfill"
	"github.com/matthieukhl/bakehouse/internal/integrity"
	"github.com/matthieukhl/bakehouse/internal/lock"
	"github.com/matthieukhl/bakehouse/internal/metrics"
	"github.com/matthieukhl/bakehouse/internal/server"
	"github.com/matthieukhl/bakehouse/internal/timeslot"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Bakehouse HTTP server",
	Long: `Start the Bakehouse HTTP server which provides:
- GET  /api/health            store connectivity
- GET  /api/integrity         customer metrics integrity report
- POST /api/backfill/timeslots delivery slot backfill (?dryRun=true)
- GET  /metrics               Prometheus metrics`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runServer(cmd *cobra.Command, args []string) (err error) {
	fmt.Println("🚀 Bakehouse Starting...")

	fmt.Println("📝 Loading configuration...")
	cfg, err := loadConfig(nil)
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

	if err := st.Ping(ctx); err != nil {
		return fmt.Errorf("store is not reachable: %w", err)
	}
	fmt.Println("✅ Store connected successfully")

	m := metrics.New()

	fmt.Println("⚙️  Setting up server...")
	srv := server.NewServer(server.Options{
		Store: st,
		Checker: &integrity.Checker{
			Loader: &integrity.Loader{
				Reader:              st,
				CustomersCollection: cfg.Integrity.CustomersCollection,
				MetricsCollection:   cfg.Integrity.MetricsCollection,
			},
			Validator: &integrity.Validator{StaleAfter: cfg.Integrity.StaleAfter},
			Logger:    log,
			Metrics:   m,
		},
		NewTimeSlotJob: func(dryRun bool) *backfill.TimeSlotJob {
			return &backfill.TimeSlotJob{
				Store:      st,
				Deriver:    deriver,
				Collection: cfg.Backfill.Collection,
				PageSize:   cfg.Backfill.PageSize,
				BatchSize:  cfg.Backfill.BatchSize,
				DryRun:     dryRun,
				Locker:     locker,
				LockTTL:    cfg.Lock.TTL,
				Metrics:    m,
			}
		},
		Metrics: m,
		Logger:  log,
	})

	fmt.Printf("🌐 Starting server on %s...\n", cfg.Server.Addr)
	if err := srv.Start(ctx, cfg.Server.Addr); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	fmt.Println("👋 Server stopped")
	return nil
}
