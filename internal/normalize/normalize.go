// Package normalize converts raw participant exports into canonical glucose and food tables
package normalize

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"go.uber.org/zap"

	"github.com/mrcode/glucose-insights/internal/models"
	"github.com/mrcode/glucose-insights/internal/source"
)

// Known header names, in preference order
var (
	glucoseTimestampColumns = []string{"Timestamp", "Timestamp (YYYY-MM-DDThh:mm:ss)"}
	glucoseValueColumns     = []string{"Value", "Glucose Value (mg/dL)"}
	foodTimestampColumns    = []string{"Timestamp", "Time", "DateTime", "Date Time", "time_begin", "date", "Date"}
	foodDescriptionColumns  = []string{"Description", "Food", "Item", "Meal", "food", "description", "logged_food"}
	carbColumns             = []string{"total_carb", "carb", "carbs", "carbohydrate", "carbohydrates"}
	timeLikeColumns         = []string{"timestamp", "time", "datetime", "date", "date_time"}

	// Explicit layouts tried when native parsing fails
	foodLayouts = []string{
		"2006-01-02 15:04:05",
		"01/02/2006 15:04:05",
		"01/02/2006 15:04",
		"2006-01-02",
		"01/02/2006",
	}
)

const eventTypeColumn = "Event Type"

// Classifier assigns a glycemic category to a food description
type Classifier interface {
	Classify(description string) models.Category
}

// Normalizer converts raw tables using the configured settings
type Normalizer struct {
	settings   *models.Settings
	classifier Classifier
	logger     *zap.Logger
}

// New creates a new Normalizer
func New(settings *models.Settings, classifier Classifier, logger *zap.Logger) *Normalizer {
	return &Normalizer{
		settings:   settings,
		classifier: classifier,
		logger:     logger,
	}
}

// GlucoseDiagnostics counts what happened to a glucose export
type GlucoseDiagnostics struct {
	Rows                  int
	TimestampColumn       string
	ValueColumn           string
	NonGlucoseEvents      int // Rows excluded by the event type filter
	UnparseableTimestamps int
	UnparseableValues     int // Non-numeric values such as "High" or "Low"
	MissingValues         int // Empty value cells
	Interpolated          int
	DroppedMissing        int // Missing values in gaps too long to fill
	Readings              int
}

// Glucose normalizes a participant's glucose export into readings sorted by time
func (n *Normalizer) Glucose(participantID string, table *source.Table) ([]models.GlucoseReading, GlucoseDiagnostics) {
	diag := GlucoseDiagnostics{Rows: table.Len()}

	tsCol := table.FirstColumn(glucoseTimestampColumns...)
	if tsCol < 0 {
		tsCol = 0
	}
	valueCol := table.FirstColumn(glucoseValueColumns...)
	if valueCol < 0 {
		valueCol = findGlucoseColumn(table.Header)
	}
	diag.TimestampColumn = columnName(table, tsCol)
	diag.ValueColumn = columnName(table, valueCol)

	eventCol := table.Column(eventTypeColumn)

	var readings []pendingReading
	for _, row := range table.Rows {
		if eventCol >= 0 && table.Cell(row, eventCol) != n.settings.GlucoseEvent {
			diag.NonGlucoseEvents++
			continue
		}
		ts, err := parseNative(table.Cell(row, tsCol))
		if err != nil {
			diag.UnparseableTimestamps++
			continue
		}
		cell := table.Cell(row, valueCol)
		if cell == "" {
			diag.MissingValues++
			readings = append(readings, pendingReading{timestamp: ts, missing: true})
			continue
		}
		value, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			diag.UnparseableValues++
			continue
		}
		readings = append(readings, pendingReading{timestamp: ts, value: value})
	}

	sort.SliceStable(readings, func(i, j int) bool {
		return readings[i].timestamp.Before(readings[j].timestamp)
	})

	diag.Interpolated = interpolateGaps(readings, n.settings.MaxGapFill)

	result := make([]models.GlucoseReading, 0, len(readings))
	for _, r := range readings {
		if r.missing {
			diag.DroppedMissing++
			continue
		}
		result = append(result, models.GlucoseReading{
			ParticipantID: participantID,
			Timestamp:     r.timestamp,
			Value:         r.value,
			Interpolated:  r.interpolated,
		})
	}
	diag.Readings = len(result)

	if diag.MissingValues > 0 {
		n.logger.Info("Missing glucose values",
			zap.String("participant", participantID),
			zap.Int("count", diag.MissingValues),
			zap.Int("interpolated", diag.Interpolated),
			zap.Int("dropped", diag.DroppedMissing))
	}
	if diag.UnparseableTimestamps > 0 {
		n.logger.Info("Dropped glucose rows with unparseable timestamps",
			zap.String("participant", participantID),
			zap.Int("count", diag.UnparseableTimestamps))
	}
	if diag.UnparseableValues > 0 {
		n.logger.Info("Dropped glucose rows with non-numeric values",
			zap.String("participant", participantID),
			zap.Int("count", diag.UnparseableValues))
	}

	return result, diag
}

// findGlucoseColumn returns the first header mentioning glucose or mg/dl, else column 1
func findGlucoseColumn(header []string) int {
	for i, h := range header {
		lower := strings.ToLower(h)
		if strings.Contains(lower, "glucose") || strings.Contains(lower, "mg/dl") {
			return i
		}
	}
	if len(header) > 1 {
		return 1
	}
	return -1
}

func columnName(table *source.Table, col int) string {
	if col < 0 || col >= len(table.Header) {
		return ""
	}
	return table.Header[col]
}

// parseNative parses the many timestamp spellings found in device exports, as UTC
var parseNative = func(s string) (time.Time, error) {
	return dateparse.ParseIn(s, time.UTC)
}
