// Package models contains data structures used throughout the pipeline
package models

import (
	"encoding/json"
	"time"
)

// Time layouts shared by the writers
const (
	// ISOLayout renders instants as ISO-8601 without a zone suffix, fractional seconds only when present
	ISOLayout = "2006-01-02T15:04:05.999999"
	// DateLayout is the calendar-day key used for daily grouping
	DateLayout = "2006-01-02"
	// TableLayout is the timestamp layout of the combined CSV tables
	TableLayout = "2006-01-02 15:04:05"
)

// FormatISO formats t with ISOLayout
func FormatISO(t time.Time) string {
	return t.Format(ISOLayout)
}

// GlucoseReading represents a single normalized CGM reading
type GlucoseReading struct {
	ParticipantID string    `json:"ParticipantID"`
	Timestamp     time.Time `json:"Timestamp"`
	Value         float64   `json:"Value"` // mg/dL
	Interpolated  bool      `json:"-"`     // Value filled from neighbouring readings
}

// ValueMmolL returns the glucose value in mmol/L
func (g *GlucoseReading) ValueMmolL() float64 {
	return ToMmol(g.Value)
}

// Date returns the calendar day of the reading
func (g *GlucoseReading) Date() string {
	return g.Timestamp.Format(DateLayout)
}

// HourOfDay returns hours since midnight with minute resolution
func (g *GlucoseReading) HourOfDay() float64 {
	return HourOfDay(g.Timestamp)
}

// HourOfDay returns hour + minute/60 for t; seconds are ignored
func HourOfDay(t time.Time) float64 {
	return float64(t.Hour()) + float64(t.Minute())/60
}

// ToMmol converts a mg/dL value to mmol/L
func ToMmol(mgdl float64) float64 {
	return mgdl / 18.0182
}

// CurvePoint is an absolute glucose sample on a spike response curve
type CurvePoint struct {
	Timestamp time.Time `json:"Timestamp"`
	Value     float64   `json:"Value"`
}

// MarshalJSON implements custom JSON marshaling
func (c CurvePoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Timestamp string  `json:"Timestamp"`
		Value     float64 `json:"Value"`
	}{
		Timestamp: FormatISO(c.Timestamp),
		Value:     c.Value,
	})
}

// HourValue is a glucose sample positioned within a day
type HourValue struct {
	HourOfDay float64 `json:"HourOfDay"`
	Value     float64 `json:"Value"`
}
