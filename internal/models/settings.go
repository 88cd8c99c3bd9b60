package models

import (
	"errors"
	"fmt"
	"time"
)

// Settings contains every tunable parameter of the analysis
type Settings struct {
	// Normalization
	MaxGapFill   int           `mapstructure:"max_gap_fill" json:"maxGapFill"`    // Longest run of missing readings filled by interpolation
	FoodCadence  time.Duration `mapstructure:"food_cadence" json:"foodCadence"`   // Spacing of synthesized food timestamps
	UnknownFood  string        `mapstructure:"unknown_food" json:"unknownFood"`   // Description used when the log has none
	GlucoseEvent string        `mapstructure:"glucose_event" json:"glucoseEvent"` // Event type retained when the log has an event column

	// Food response windows
	WindowBefore        time.Duration `mapstructure:"window_before" json:"windowBefore"`
	WindowAfter         time.Duration `mapstructure:"window_after" json:"windowAfter"`
	MinWindowReadings   int           `mapstructure:"min_window_readings" json:"minWindowReadings"`
	BaselineSamples     int           `mapstructure:"baseline_samples" json:"baselineSamples"`
	ExamplesPerCategory int           `mapstructure:"examples_per_category" json:"examplesPerCategory"`
	CurveStep           time.Duration `mapstructure:"curve_step" json:"curveStep"`
	AverageTolerance    float64       `mapstructure:"average_tolerance" json:"averageTolerance"` // Minutes

	// Carbohydrate refinement, grams
	HighCarbThreshold   float64 `mapstructure:"high_carb_threshold" json:"highCarbThreshold"`
	MediumCarbThreshold float64 `mapstructure:"medium_carb_threshold" json:"mediumCarbThreshold"`

	// Daily patterns
	MaxDailyPatterns   int     `mapstructure:"max_daily_patterns" json:"maxDailyPatterns"`
	DayMinReadings     int     `mapstructure:"day_min_readings" json:"dayMinReadings"`
	DayRelaxedReadings int     `mapstructure:"day_relaxed_readings" json:"dayRelaxedReadings"`
	MealRiseSamples    int     `mapstructure:"meal_rise_samples" json:"mealRiseSamples"`
	MealRiseThreshold  float64 `mapstructure:"meal_rise_threshold" json:"mealRiseThreshold"`
	MealSubsample      int     `mapstructure:"meal_subsample" json:"mealSubsample"`
	MaxEstimatedMeals  int     `mapstructure:"max_estimated_meals" json:"maxEstimatedMeals"`

	// Spike game
	MaxSpikes         int           `mapstructure:"max_spikes" json:"maxSpikes"`
	MinGameReadings   int           `mapstructure:"min_game_readings" json:"minGameReadings"`
	SpikeSamples      int           `mapstructure:"spike_samples" json:"spikeSamples"`
	SpikeThreshold    float64       `mapstructure:"spike_threshold" json:"spikeThreshold"`
	SpikeSearchStart  time.Duration `mapstructure:"spike_search_start" json:"spikeSearchStart"` // Earliest food time before a spike
	SpikeSearchEnd    time.Duration `mapstructure:"spike_search_end" json:"spikeSearchEnd"`     // Latest food time before a spike
	SpikeWindowBefore time.Duration `mapstructure:"spike_window_before" json:"spikeWindowBefore"`
	SpikeWindowAfter  time.Duration `mapstructure:"spike_window_after" json:"spikeWindowAfter"`
	MinSpikeReadings  int           `mapstructure:"min_spike_readings" json:"minSpikeReadings"`
	SyntheticOffset   time.Duration `mapstructure:"synthetic_event_offset" json:"syntheticEventOffset"`

	// Synthetic data
	Seed        uint64  `mapstructure:"seed" json:"seed"`
	NoiseStdDev float64 `mapstructure:"noise_std_dev" json:"noiseStdDev"`
}

// DefaultSettings returns settings with default values
func DefaultSettings() *Settings {
	return &Settings{
		MaxGapFill:   3,
		FoodCadence:  8 * time.Hour,
		UnknownFood:  "Unknown food",
		GlucoseEvent: "EGV",

		WindowBefore:        15 * time.Minute,
		WindowAfter:         180 * time.Minute,
		MinWindowReadings:   15,
		BaselineSamples:     3,
		ExamplesPerCategory: 5,
		CurveStep:           5 * time.Minute,
		AverageTolerance:    2.5,

		HighCarbThreshold:   30,
		MediumCarbThreshold: 15,

		MaxDailyPatterns:   5,
		DayMinReadings:     200,
		DayRelaxedReadings: 100,
		MealRiseSamples:    6,
		MealRiseThreshold:  20,
		MealSubsample:      12,
		MaxEstimatedMeals:  3,

		MaxSpikes:         10,
		MinGameReadings:   1000,
		SpikeSamples:      6, // 30 minutes at 5-minute cadence
		SpikeThreshold:    40,
		SpikeSearchStart:  120 * time.Minute,
		SpikeSearchEnd:    15 * time.Minute,
		SpikeWindowBefore: 15 * time.Minute,
		SpikeWindowAfter:  120 * time.Minute,
		MinSpikeReadings:  20,
		SyntheticOffset:   2 * time.Hour,

		Seed:        42,
		NoiseStdDev: 2,
	}
}

// Clone creates a copy of the settings
func (s *Settings) Clone() *Settings {
	clone := *s
	return &clone
}

// Validate rejects parameter combinations the analysis cannot run with
func (s *Settings) Validate() error {
	var errs []error
	for _, f := range []struct {
		name  string
		value int
	}{
		{"examples_per_category", s.ExamplesPerCategory},
		{"baseline_samples", s.BaselineSamples},
		{"max_daily_patterns", s.MaxDailyPatterns},
		{"meal_rise_samples", s.MealRiseSamples},
		{"meal_subsample", s.MealSubsample},
		{"spike_samples", s.SpikeSamples},
	} {
		if f.value <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", f.name, f.value))
		}
	}
	if s.MaxGapFill < 0 {
		errs = append(errs, fmt.Errorf("max_gap_fill must not be negative, got %d", s.MaxGapFill))
	}
	if s.CurveStep <= 0 {
		errs = append(errs, fmt.Errorf("curve_step must be positive, got %s", s.CurveStep))
	}
	if s.FoodCadence <= 0 {
		errs = append(errs, fmt.Errorf("food_cadence must be positive, got %s", s.FoodCadence))
	}
	if s.WindowBefore < 0 || s.WindowAfter <= 0 {
		errs = append(errs, fmt.Errorf("response window [-%s, %s] is empty", s.WindowBefore, s.WindowAfter))
	}
	if s.MinWindowReadings < s.BaselineSamples {
		errs = append(errs, fmt.Errorf("min_window_readings (%d) below baseline_samples (%d)", s.MinWindowReadings, s.BaselineSamples))
	}
	if s.MinSpikeReadings < s.BaselineSamples {
		errs = append(errs, fmt.Errorf("min_spike_readings (%d) below baseline_samples (%d)", s.MinSpikeReadings, s.BaselineSamples))
	}
	if s.SpikeSearchStart <= s.SpikeSearchEnd {
		errs = append(errs, fmt.Errorf("spike search window (-%s, -%s) is empty", s.SpikeSearchStart, s.SpikeSearchEnd))
	}
	if s.DayRelaxedReadings > s.DayMinReadings {
		errs = append(errs, fmt.Errorf("day_relaxed_readings (%d) above day_min_readings (%d)", s.DayRelaxedReadings, s.DayMinReadings))
	}
	if s.MediumCarbThreshold > s.HighCarbThreshold {
		errs = append(errs, fmt.Errorf("medium_carb_threshold (%g) above high_carb_threshold (%g)", s.MediumCarbThreshold, s.HighCarbThreshold))
	}
	if s.AverageTolerance <= 0 {
		errs = append(errs, fmt.Errorf("average_tolerance must be positive, got %g", s.AverageTolerance))
	}
	if s.NoiseStdDev < 0 {
		errs = append(errs, fmt.Errorf("noise_std_dev must not be negative, got %g", s.NoiseStdDev))
	}
	return errors.Join(errs...)
}

// CurveOffsets returns the minute offsets of a response curve, -WindowBefore..WindowAfter by CurveStep
func (s *Settings) CurveOffsets() []float64 {
	var offsets []float64
	for d := -s.WindowBefore; d <= s.WindowAfter; d += s.CurveStep {
		offsets = append(offsets, d.Minutes())
	}
	return offsets
}
