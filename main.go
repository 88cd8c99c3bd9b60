// Package main is the entry point for the glucose-insights pipeline
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mrcode/glucose-insights/internal/app"
	"github.com/mrcode/glucose-insights/internal/classify"
	"github.com/mrcode/glucose-insights/internal/config"
	"github.com/mrcode/glucose-insights/internal/logging"
	"github.com/mrcode/glucose-insights/internal/models"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "glucose-insights"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Glucose response datasets from CGM exports and food logs",
		Long: `glucose-insights reads per-participant CGM exports and food logs, classifies
foods by glycemic impact and writes three datasets for visualization:

- daily_patterns.json   representative days with meal markers
- food_responses.json   post-meal response curves per category with averages
- spike_events.json     glucose spikes paired with the food that preceded them

Configuration comes from glucose-insights.yaml (or --config), GLUCOSE_*
environment variables and flags, in increasing precedence.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")

	cmd.AddCommand(runCmd(&configPath))
	cmd.AddCommand(classifyCmd())
	cmd.AddCommand(runsCmd(&configPath))
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}

func runCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full pipeline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath, cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg, cmd.OutOrStdout())
		},
	}

	defaults := models.DefaultSettings()
	cmd.Flags().String("data-dir", "data", "Directory holding the participant CSV files")
	cmd.Flags().String("out-dir", "processed_data", "Directory the datasets are written to")
	cmd.Flags().Uint64("seed", defaults.Seed, "Seed of the synthetic data generator")
	cmd.Flags().String("log-level", "info", "Log level (debug, info, warn, error)")
	cmd.Flags().Int("workers", 4, "Participants normalized in parallel")
	cmd.Flags().Bool("notify", false, "Send a desktop notification when the run ends")
	cmd.Flags().String("sqlite", "", "Also store the combined tables in this SQLite database")
	cmd.Flags().Bool("report", true, "Write the HTML chart report")

	return cmd
}

func run(ctx context.Context, cfg *config.Config, out io.Writer) error {
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	a := app.New(cfg, logger)
	a.SetOutput(out)

	if _, err := a.Run(ctx); err != nil {
		logger.Error("Pipeline failed", zap.Error(err))
		return err
	}
	return nil
}

func classifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <description>...",
		Short: "Print the glycemic category of food descriptions",
		Example: `  glucose-insights classify "white rice" "grilled chicken"
  glucose-insights classify "Chicken Salad Sandwich"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			classifier := classify.NewDefault()
			refiner := classify.NewRefiner(models.DefaultSettings(), classify.DefaultSecondaryTerms)

			for _, description := range args {
				category := classifier.Classify(description)
				note := ""
				if category == models.CategoryUnknown {
					if refined := refiner.ByTerms(description); refined != models.CategoryUnknown {
						category, note = refined, " (secondary terms)"
					}
				}
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s%s\n",
					strings.TrimSpace(description), category, note); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
