package analysis

import (
	"fmt"

	"github.com/mrcode/glucose-insights/internal/models"
)

// Extractor cuts food-response windows out of a participant's glucose series
type Extractor struct {
	settings *models.Settings
}

// NewExtractor creates a new Extractor
func NewExtractor(settings *models.Settings) *Extractor {
	return &Extractor{settings: settings}
}

// Extract returns the response window of event within series, which must be sorted by time.
// Returns models.ErrInsufficientEvidence when the window holds too few readings.
func (e *Extractor) Extract(event models.FoodEvent, series []models.GlucoseReading) (models.ResponseWindow, error) {
	from := event.Timestamp.Add(-e.settings.WindowBefore)
	to := event.Timestamp.Add(e.settings.WindowAfter)

	readings := windowReadings(series, from, to)
	if len(readings) < e.settings.MinWindowReadings {
		return models.ResponseWindow{}, fmt.Errorf("%d readings around %q at %s: %w",
			len(readings), event.Description, models.FormatISO(event.Timestamp), models.ErrInsufficientEvidence)
	}

	base := baseline(readings, e.settings.BaselineSamples)
	points := make([]models.ResponsePoint, len(readings))
	for i, r := range readings {
		points[i] = models.ResponsePoint{
			MinutesSinceFood: r.Timestamp.Sub(event.Timestamp).Minutes(),
			Value:            r.Value,
			RelativeGlucose:  r.Value - base,
		}
	}

	return models.ResponseWindow{
		FoodDescription: event.Description,
		ParticipantID:   event.ParticipantID,
		EventTime:       event.Timestamp,
		Points:          points,
		Category:        event.Category,
		Baseline:        base,
	}, nil
}
