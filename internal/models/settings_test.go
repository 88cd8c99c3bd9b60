package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSettings(t *testing.T) {
	settings := DefaultSettings()

	assert.Equal(t, 15*time.Minute, settings.WindowBefore)
	assert.Equal(t, 180*time.Minute, settings.WindowAfter)
	assert.Equal(t, 15, settings.MinWindowReadings)
	assert.Equal(t, 3, settings.BaselineSamples)
	assert.Equal(t, 5, settings.ExamplesPerCategory)
	assert.Equal(t, 3, settings.MaxGapFill)
	assert.Equal(t, 8*time.Hour, settings.FoodCadence)
	assert.Equal(t, 200, settings.DayMinReadings)
	assert.Equal(t, 100, settings.DayRelaxedReadings)
	assert.Equal(t, 10, settings.MaxSpikes)
	assert.Equal(t, 1000, settings.MinGameReadings)
	assert.InDelta(t, 40.0, settings.SpikeThreshold, 1e-9)
	require.NoError(t, settings.Validate())
}

func TestSettings_Clone(t *testing.T) {
	original := DefaultSettings()
	original.Seed = 7

	clone := original.Clone()
	assert.Equal(t, original, clone)

	clone.Seed = 99
	assert.Equal(t, uint64(7), original.Seed, "modifying clone affected original")
}

func TestSettings_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(s *Settings)
		wantErr string
	}{
		{"zero cap", func(s *Settings) { s.ExamplesPerCategory = 0 }, "examples_per_category"},
		{"negative gap", func(s *Settings) { s.MaxGapFill = -1 }, "max_gap_fill"},
		{"zero step", func(s *Settings) { s.CurveStep = 0 }, "curve_step"},
		{"window too small for baseline", func(s *Settings) { s.MinWindowReadings = 2 }, "min_window_readings"},
		{"inverted spike search", func(s *Settings) { s.SpikeSearchStart = 10 * time.Minute }, "spike search window"},
		{"relaxed above strict", func(s *Settings) { s.DayRelaxedReadings = 300 }, "day_relaxed_readings"},
		{"carb thresholds swapped", func(s *Settings) { s.MediumCarbThreshold = 40 }, "medium_carb_threshold"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.mutate(s)
			err := s.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSettings_CurveOffsets(t *testing.T) {
	offsets := DefaultSettings().CurveOffsets()

	require.Len(t, offsets, 40)
	assert.Equal(t, -15.0, offsets[0])
	assert.Equal(t, 180.0, offsets[len(offsets)-1])
	for i := 1; i < len(offsets); i++ {
		assert.Equal(t, 5.0, offsets[i]-offsets[i-1])
	}
}
