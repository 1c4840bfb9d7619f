package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/Masoud-kamali/Literature-Agent/internal/app"
	"github.com/Masoud-kamali/Literature-Agent/internal/config"
	"github.com/Masoud-kamali/Literature-Agent/internal/logging"
	"github.com/Masoud-kamali/Literature-Agent/internal/usecase"
)

type rootFlags struct {
	configPath string
	logLevel   string
}

// setup loads the configuration and builds the logger shared by every
// subcommand.
func (f *rootFlags) setup() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	if f.logLevel != "" {
		cfg.Logging.Level = f.logLevel
	}
	return cfg, logging.New(cfg.Logging.Level, cfg.Logging.Format), nil
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:          "literature-agent",
		Short:        "Discovers fresh research papers and drafts publication-ready digests",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to the YAML configuration file")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "override the configured log level (debug, info, warn, error)")

	root.AddCommand(
		newRunCmd(flags),
		newBackfillCmd(flags),
		newClearLedgerCmd(flags),
		newVerifyCmd(flags),
	)
	return root
}

func newRunCmd(flags *rootFlags) *cobra.Command {
	var (
		days       int
		target     int
		maxResults int
		noPublish  bool
		fresh      bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Collect novel papers and generate digests for them",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := flags.setup()
			if err != nil {
				return err
			}

			summary, err := app.New(cfg, logger).Run(cmd.Context(), app.RunOptions{
				Target:      target,
				DaysBack:    days,
				MaxBatch:    maxResults,
				NoPublish:   noPublish,
				FreshLedger: fresh,
			})
			if err != nil {
				logger.Error("run failed", "error", err)
				return err
			}

			printSummary(summary)
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "lookback window in days (defaults to the configured window)")
	cmd.Flags().IntVar(&target, "target", 0, "papers to process this run (defaults to the configured target)")
	cmd.Flags().IntVar(&maxResults, "max-results", 0, "per-source batch ceiling (defaults to the configured ceiling)")
	cmd.Flags().BoolVar(&noPublish, "no-publish", false, "skip the LinkedIn publisher for this run")
	cmd.Flags().BoolVar(&fresh, "fresh", false, "proceed with an empty ledger when the existing one is unreadable")
	return cmd
}

func newBackfillCmd(flags *rootFlags) *cobra.Command {
	var (
		days      int
		target    int
		noPublish bool
	)

	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Sweep a wide historical window starting at the maximum batch size",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := flags.setup()
			if err != nil {
				return err
			}

			summary, err := app.New(cfg, logger).Run(cmd.Context(), app.RunOptions{
				Target:          target,
				DaysBack:        days,
				StartAtMaxBatch: true,
				NoPublish:       noPublish,
			})
			if err != nil {
				logger.Error("backfill failed", "error", err)
				return err
			}

			printSummary(summary)
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "lookback window in days")
	cmd.Flags().IntVar(&target, "target", 0, "papers to process this run (defaults to the configured target)")
	cmd.Flags().BoolVar(&noPublish, "no-publish", false, "skip the LinkedIn publisher for this run")
	_ = cmd.MarkFlagRequired("days")
	return cmd
}

func newClearLedgerCmd(flags *rootFlags) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "clear-ledger",
		Short: "Back up the dedup ledger and start a fresh one",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				return fmt.Errorf("clearing the ledger forgets every processed paper; pass --force to proceed")
			}

			cfg, logger, err := flags.setup()
			if err != nil {
				return err
			}

			backup, err := app.New(cfg, logger).ClearLedger()
			if err != nil {
				return err
			}
			if backup != "" {
				fmt.Printf("ledger cleared, previous copy kept at %s\n", backup)
			} else {
				fmt.Println("ledger cleared")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "confirm that the ledger should be cleared")
	return cmd
}

func newVerifyCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check configuration, ledger and LLM server reachability",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := flags.setup()
			if err != nil {
				return err
			}

			if err := app.New(cfg, logger).Verify(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("all checks passed")
			return nil
		},
	}
}

func printSummary(summary usecase.Summary) {
	fmt.Printf("processed %d of %d collected papers (%d skipped) in %s over %d retrieval rounds, run %s\n",
		summary.Processed, summary.Collected, summary.Skipped,
		summary.Duration.Round(time.Millisecond), summary.Rounds, summary.RunID)
	if summary.Exhausted {
		fmt.Println("note: the sources ran out of novel papers before the target was reached")
	}
}
