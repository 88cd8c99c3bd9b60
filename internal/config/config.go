// Package config loads the pipeline configuration with viper
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mrcode/glucose-insights/internal/logging"
	"github.com/mrcode/glucose-insights/internal/models"
	"github.com/mrcode/glucose-insights/internal/notifications"
	"github.com/mrcode/glucose-insights/internal/source"
)

// FileName is the config file searched for in the working directory
const FileName = "glucose-insights"

// EnvPrefix prefixes every environment override, e.g. GLUCOSE_ANALYSIS_SEED
const EnvPrefix = "GLUCOSE"

// Config is the top-level configuration
type Config struct {
	Input    source.Layout        `mapstructure:"input"`
	Output   OutputConfig         `mapstructure:"output"`
	Analysis models.Settings      `mapstructure:"analysis"`
	Logging  logging.Config       `mapstructure:"logging"`
	Notify   notifications.Config `mapstructure:"notify"`
	Workers  int                  `mapstructure:"workers"` // Participants normalized in parallel
}

// OutputConfig selects where and what the pipeline writes
type OutputConfig struct {
	Dir         string `mapstructure:"dir"`
	SQLite      string `mapstructure:"sqlite"` // Database path, empty disables
	Report      bool   `mapstructure:"report"`
	Previews    bool   `mapstructure:"previews"`
	MetricsFile string `mapstructure:"metrics_file"` // Prometheus textfile path, empty disables
}

// flagKeys maps CLI flags to config keys
var flagKeys = map[string]string{
	"data-dir":  "input.data_dir",
	"out-dir":   "output.dir",
	"seed":      "analysis.seed",
	"log-level": "logging.level",
	"workers":   "workers",
	"notify":    "notify.enabled",
	"sqlite":    "output.sqlite",
	"report":    "output.report",
}

// setDefaults sets the default values for the configuration.
func setDefaults(v *viper.Viper) {
	// Input defaults
	layout := source.DefaultLayout("data")
	v.SetDefault("input.data_dir", layout.Dir)
	v.SetDefault("input.glucose_pattern", layout.GlucosePattern)
	v.SetDefault("input.food_pattern", layout.FoodPattern)
	v.SetDefault("input.demographics", layout.Demographics)
	v.SetDefault("input.first_participant", layout.FirstParticipant)
	v.SetDefault("input.last_participant", layout.LastParticipant)

	// Output defaults
	v.SetDefault("output.dir", "processed_data")
	v.SetDefault("output.sqlite", "")
	v.SetDefault("output.report", true)
	v.SetDefault("output.previews", false)
	v.SetDefault("output.metrics_file", "")

	// Analysis defaults
	s := models.DefaultSettings()
	v.SetDefault("analysis.max_gap_fill", s.MaxGapFill)
	v.SetDefault("analysis.food_cadence", s.FoodCadence)
	v.SetDefault("analysis.unknown_food", s.UnknownFood)
	v.SetDefault("analysis.glucose_event", s.GlucoseEvent)
	v.SetDefault("analysis.window_before", s.WindowBefore)
	v.SetDefault("analysis.window_after", s.WindowAfter)
	v.SetDefault("analysis.min_window_readings", s.MinWindowReadings)
	v.SetDefault("analysis.baseline_samples", s.BaselineSamples)
	v.SetDefault("analysis.examples_per_category", s.ExamplesPerCategory)
	v.SetDefault("analysis.curve_step", s.CurveStep)
	v.SetDefault("analysis.average_tolerance", s.AverageTolerance)
	v.SetDefault("analysis.high_carb_threshold", s.HighCarbThreshold)
	v.SetDefault("analysis.medium_carb_threshold", s.MediumCarbThreshold)
	v.SetDefault("analysis.max_daily_patterns", s.MaxDailyPatterns)
	v.SetDefault("analysis.day_min_readings", s.DayMinReadings)
	v.SetDefault("analysis.day_relaxed_readings", s.DayRelaxedReadings)
	v.SetDefault("analysis.meal_rise_samples", s.MealRiseSamples)
	v.SetDefault("analysis.meal_rise_threshold", s.MealRiseThreshold)
	v.SetDefault("analysis.meal_subsample", s.MealSubsample)
	v.SetDefault("analysis.max_estimated_meals", s.MaxEstimatedMeals)
	v.SetDefault("analysis.max_spikes", s.MaxSpikes)
	v.SetDefault("analysis.min_game_readings", s.MinGameReadings)
	v.SetDefault("analysis.spike_samples", s.SpikeSamples)
	v.SetDefault("analysis.spike_threshold", s.SpikeThreshold)
	v.SetDefault("analysis.spike_search_start", s.SpikeSearchStart)
	v.SetDefault("analysis.spike_search_end", s.SpikeSearchEnd)
	v.SetDefault("analysis.spike_window_before", s.SpikeWindowBefore)
	v.SetDefault("analysis.spike_window_after", s.SpikeWindowAfter)
	v.SetDefault("analysis.min_spike_readings", s.MinSpikeReadings)
	v.SetDefault("analysis.synthetic_event_offset", s.SyntheticOffset)
	v.SetDefault("analysis.seed", s.Seed)
	v.SetDefault("analysis.noise_std_dev", s.NoiseStdDev)

	// Logging defaults
	lc := logging.DefaultConfig()
	v.SetDefault("logging.level", lc.Level)
	v.SetDefault("logging.directory", lc.Directory)
	v.SetDefault("logging.file", lc.File)
	v.SetDefault("logging.max_size", lc.MaxSize)
	v.SetDefault("logging.max_backups", lc.MaxBackups)
	v.SetDefault("logging.max_age", lc.MaxAge)
	v.SetDefault("logging.compress", lc.Compress)

	// Notification defaults
	nc := notifications.DefaultConfig()
	v.SetDefault("notify.enabled", nc.Enabled)
	v.SetDefault("notify.on_success", nc.OnSuccess)
	v.SetDefault("notify.on_failure", nc.OnFailure)
	v.SetDefault("notify.icon", nc.Icon)

	v.SetDefault("workers", 4)
}

// Load reads defaults, the optional config file, GLUCOSE_* environment
// variables and the flags of cmd, in increasing precedence.
// An empty path searches the working directory for glucose-insights.yaml.
func Load(path string, cmd *cobra.Command) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if cmd != nil {
		if err := bindFlags(v, cmd); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	for name, key := range flagKeys {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}
	return nil
}

// Validate rejects configurations the pipeline cannot run with
func (c *Config) Validate() error {
	var errs []error
	if c.Input.Dir == "" {
		errs = append(errs, errors.New("input.data_dir must be set"))
	}
	if c.Input.FirstParticipant < 1 {
		errs = append(errs, fmt.Errorf("input.first_participant must be positive, got %d", c.Input.FirstParticipant))
	}
	if c.Input.FirstParticipant > c.Input.LastParticipant {
		errs = append(errs, fmt.Errorf("input.first_participant %d is after input.last_participant %d",
			c.Input.FirstParticipant, c.Input.LastParticipant))
	}
	if !strings.Contains(c.Input.GlucosePattern, "%s") || !strings.Contains(c.Input.FoodPattern, "%s") {
		errs = append(errs, errors.New("input file patterns must contain %s for the participant id"))
	}
	if c.Output.Dir == "" {
		errs = append(errs, errors.New("output.dir must be set"))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be positive, got %d", c.Workers))
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level))
	}
	if err := c.Analysis.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("analysis: %w", err))
	}
	return errors.Join(errs...)
}
