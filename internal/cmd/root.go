package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matthieukhl/bakehouse/internal/config"
	"github.com/matthieukhl/bakehouse/internal/logger"
	"github.com/matthieukhl/bakehouse/internal/store"
	"github.com/matthieukhl/bakehouse/internal/types"
)

var (
	cfgFile  string
	logLevel string
)

// errSilent marks failures that were already reported on stdout.
var errSilent = errors.New("command failed")

var rootCmd = &cobra.Command{
	Use:   "bakehouse",
	Short: "Bakehouse - data maintenance jobs for the shop database",
	Long: `Bakehouse runs the maintenance jobs of the bakery's order database.

fix-timeslots backfills the delivery slot of orders created before the
field existed. check-integrity verifies that every customer has a
well-formed, recent metrics record. The same jobs are available over
HTTP with the run command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: search ./deploy, ., $HOME/.bakehouse, /etc/bakehouse)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level override (debug|info|warn|error)")
}

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		if !errors.Is(err, errSilent) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// loadConfig reads the configuration and applies the persistent flag
// overrides and any command-specific ones before it is validated.
func loadConfig(override func(*config.Config)) (*config.Config, error) {
	cfg, err := config.Load(cfgFile, func(c *config.Config) {
		if logLevel != "" {
			c.Log.Level = logLevel
		}
		if override != nil {
			override(c)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	log, err := logger.New(logger.FromConfig(cfg.Log))
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return log, nil
}

func openStore(ctx context.Context, cfg *config.Config) (types.Store, error) {
	st, err := store.NewStore(ctx, &cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return st, nil
}

// closeStore flushes the store and reports a failed flush as the command
// error unless one is already set.
func closeStore(st types.Store, err *error) {
	if cerr := st.Close(); cerr != nil && *err == nil {
		*err = fmt.Errorf("failed to close store: %w", cerr)
	}
}
