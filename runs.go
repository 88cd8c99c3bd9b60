package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrcode/glucose-insights/internal/config"
	"github.com/mrcode/glucose-insights/internal/models"
	"github.com/mrcode/glucose-insights/internal/storage"
)

func runsCmd(configPath *string) *cobra.Command {
	var (
		limit       int
		runID       string
		participant string
		mmol        bool
	)

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored runs, or the readings of one participant in a run",
		Example: `  glucose-insights runs --sqlite runs.db
  glucose-insights runs --sqlite runs.db --run <id> --participant 001 --mmol`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath, cmd)
			if err != nil {
				return err
			}
			if cfg.Output.SQLite == "" {
				return errors.New("no run history configured, set --sqlite or output.sqlite")
			}
			if participant != "" && runID == "" {
				return errors.New("--participant needs --run")
			}
			if _, err := os.Stat(cfg.Output.SQLite); err != nil {
				return fmt.Errorf("run history unavailable: %w", err)
			}

			db, err := storage.NewSQLiteStorage(cfg.Output.SQLite)
			if err != nil {
				return err
			}
			defer db.Close()

			if participant != "" {
				return printReadings(cmd.OutOrStdout(), db, runID, participant, mmol)
			}
			return printRuns(cmd.OutOrStdout(), db, limit)
		},
	}

	cmd.Flags().String("sqlite", "", "SQLite database written by run --sqlite")
	cmd.Flags().IntVar(&limit, "limit", 10, "Most recent runs to list")
	cmd.Flags().StringVar(&runID, "run", "", "Run id to read readings from")
	cmd.Flags().StringVar(&participant, "participant", "", "Participant whose readings are printed")
	cmd.Flags().BoolVar(&mmol, "mmol", false, "Print readings in mmol/L")

	return cmd
}

func printRuns(w io.Writer, db *storage.SQLiteStorage, limit int) error {
	runs, err := db.GetRuns(limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs stored")
		return err
	}

	for _, run := range runs {
		counts, err := db.CountFoodByCategory(run.ID)
		if err != nil {
			return err
		}
		categories := make([]string, 0, 4)
		for _, c := range []models.Category{models.CategoryHigh, models.CategoryMedium, models.CategoryLow, models.CategoryUnknown} {
			categories = append(categories, fmt.Sprintf("%s=%d", c, counts[c]))
		}

		line := fmt.Sprintf("%s\t%s\t%d participants\t%d readings\t%s",
			run.ID, run.StartedAt.Format(time.RFC3339), run.Participants, run.Readings,
			strings.Join(categories, " "))
		if run.Failed != "" {
			line += "\tfailed: " + run.Failed
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func printReadings(w io.Writer, db *storage.SQLiteStorage, runID, participant string, mmol bool) error {
	readings, err := db.GetGlucose(runID, participant)
	if err != nil {
		return err
	}
	if len(readings) == 0 {
		return fmt.Errorf("no readings for participant %s in run %s", participant, runID)
	}

	unit := "mg/dL"
	if mmol {
		unit = "mmol/L"
	}
	for _, r := range readings {
		value := r.Value
		if mmol {
			value = r.ValueMmolL()
		}
		line := fmt.Sprintf("%s\t%.1f %s", r.Timestamp.Format(models.TableLayout), value, unit)
		if r.Interpolated {
			line += "\tinterpolated"
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
