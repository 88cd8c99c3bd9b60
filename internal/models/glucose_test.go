package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGlucoseReading_ValueMmolL(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		expected float64
	}{
		{"100 mg/dL", 100, 5.55},
		{"180 mg/dL", 180, 9.99},
		{"70 mg/dL", 70, 3.89},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reading := &GlucoseReading{Value: tt.value}
			assert.InDelta(t, tt.expected, reading.ValueMmolL(), 0.01)
		})
	}
}

func TestHourOfDay(t *testing.T) {
	tests := []struct {
		name     string
		ts       time.Time
		expected float64
	}{
		{"midnight", time.Date(2020, 2, 13, 0, 0, 0, 0, time.UTC), 0},
		{"half past noon", time.Date(2020, 2, 13, 12, 30, 0, 0, time.UTC), 12.5},
		{"seconds ignored", time.Date(2020, 2, 13, 23, 45, 59, 0, time.UTC), 23.75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, HourOfDay(tt.ts), 1e-9)
		})
	}
}

func TestFormatISO(t *testing.T) {
	assert.Equal(t, "2020-02-13T12:00:00", FormatISO(time.Date(2020, 2, 13, 12, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2020-02-13T12:00:00.5", FormatISO(time.Date(2020, 2, 13, 12, 0, 0, 500_000_000, time.UTC)))
}

func TestCurvePoint_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(CurvePoint{Timestamp: time.Date(2020, 2, 13, 14, 5, 0, 0, time.UTC), Value: 142})
	require.NoError(t, err)
	assert.JSONEq(t, `{"Timestamp":"2020-02-13T14:05:00","Value":142}`, string(data))
}

func TestGlucoseReading_Date(t *testing.T) {
	reading := &GlucoseReading{Timestamp: time.Date(2020, 2, 13, 23, 59, 0, 0, time.UTC)}
	assert.Equal(t, "2020-02-13", reading.Date())
}
