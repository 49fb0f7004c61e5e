package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"episode-scribe/config"
	"episode-scribe/log"
	"episode-scribe/scheduler"
)

func newRootCommand() *cobra.Command {
	var configFlag string

	ctx := newCommandContext(&configFlag)

	rootCmd := &cobra.Command{
		Use:           "episode-scribe",
		Short:         "Podcast feed discovery and transcript extraction",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newDiscoverCommand(ctx))
	rootCmd.AddCommand(newExtractCommand(ctx))
	rootCmd.AddCommand(newRunCommand(ctx))
	rootCmd.AddCommand(newScheduleCommand(ctx))
	rootCmd.AddCommand(newConfigCommand())

	return rootCmd
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func newDiscoverCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "discover",
		Short: "Read the RSS feed and write the episode catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, cancel := signalContext(cmd)
			defer cancel()
			return ctx.discoveryJob(cmd.OutOrStdout()).Run(runCtx)
		},
	}
}

func newExtractCommand(ctx *commandContext) *cobra.Command {
	var seasons []string
	var urls []string

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Fetch episode pages from the catalog and write one transcript file per season",
		Long: "Fetch episode pages from the catalog and write one transcript file per season.\n\n" +
			"With --url the catalog is bypassed and the given pages are written as the single\n" +
			"season named by --season.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []scheduler.ExtractionOption
			if len(urls) > 0 {
				if len(seasons) != 1 {
					return fmt.Errorf("--url requires exactly one --season, got %d", len(seasons))
				}
				opts = append(opts, scheduler.ManualURLs(seasons[0], urls))
			} else {
				opts = append(opts, scheduler.OnlySeasons(seasons...))
			}

			runCtx, cancel := signalContext(cmd)
			defer cancel()
			return ctx.extractionJob(cmd.OutOrStdout(), opts...).Run(runCtx)
		},
	}

	cmd.Flags().StringSliceVarP(&seasons, "season", "s", nil, "Season label to process, e.g. S3_2023 (repeatable)")
	cmd.Flags().StringSliceVarP(&urls, "url", "u", nil, "Episode page URL to process instead of the catalog (repeatable)")
	return cmd
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run discovery followed by extraction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			pipeline := scheduler.NewPipelineJob(ctx.discoveryJob(out), ctx.extractionJob(out))

			runCtx, cancel := signalContext(cmd)
			defer cancel()
			return pipeline.Run(runCtx)
		},
	}
}

func newScheduleCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Run the pipeline on the configured cron schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.config
			logger := log.NewLogger("scheduler")
			out := cmd.OutOrStdout()

			waitCtx, cancel := signalContext(cmd)
			defer cancel()

			sched := scheduler.NewScheduler(waitCtx, logger)
			pipeline := scheduler.NewPipelineJob(ctx.discoveryJob(out), ctx.extractionJob(out))
			if err := sched.AddJob(cfg.Schedule.Cron, pipeline); err != nil {
				return err
			}

			sched.Start()
			defer sched.Stop()
			logger.Info().Str("cron", cfg.Schedule.Cron).Time("next", sched.NextRun()).Msg("Pipeline scheduled")

			if cfg.Schedule.RunAtStartup {
				logger.Info().Msg("Running pipeline at startup")
				if err := sched.RunJobNow(pipeline.Name()); err != nil {
					logger.Error().Err(err).Msg("Startup run failed")
				}
			}

			logger.Info().Msg("Press Ctrl+C to exit")
			<-waitCtx.Done()
			logger.Info().Msg("Shutting down")
			return nil
		},
	}
}

func newConfigCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand())
	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init [path]",
		Short:       "Create a sample configuration file",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := config.ProjectConfigFile
			if len(args) == 1 && strings.TrimSpace(args[0]) != "" {
				target = filepath.Clean(strings.TrimSpace(args[0]))
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample configuration to %s\n", target)
			return nil
		},
	}

	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}
