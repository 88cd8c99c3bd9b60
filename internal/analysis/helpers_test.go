package analysis

import (
	"time"

	"go.uber.org/zap"

	"github.com/mrcode/glucose-insights/internal/classify"
	"github.com/mrcode/glucose-insights/internal/models"
)

var day0 = time.Date(2020, 2, 13, 0, 0, 0, 0, time.UTC)

func newAnalyzer(settings *models.Settings) *Analyzer {
	return NewAnalyzer(settings, classify.NewRefiner(settings, classify.DefaultSecondaryTerms), zap.NewNop())
}

// series returns readings at a 5-minute cadence starting at start
func series(participant string, start time.Time, values []float64) []models.GlucoseReading {
	readings := make([]models.GlucoseReading, len(values))
	for i, v := range values {
		readings[i] = models.GlucoseReading{
			ParticipantID: participant,
			Timestamp:     start.Add(time.Duration(i) * 5 * time.Minute),
			Value:         v,
		}
	}
	return readings
}

func flat(n int, v float64) []float64 {
	values := make([]float64, n)
	for i := range values {
		values[i] = v
	}
	return values
}

// spikeDay is a 24h trace at 100 mg/dL that rises by 50 between 10:00 and 10:30, then decays slowly
func spikeDay() []float64 {
	values := make([]float64, 288)
	for i := range values {
		switch {
		case i < 120:
			values[i] = 100
		case i <= 126:
			values[i] = 100 + float64(i-120)*50/6
		default:
			values[i] = max(100, 150-float64(i-126)*0.5)
		}
	}
	return values
}

func food(participant string, at time.Time, description string, category models.Category) models.FoodEvent {
	return models.FoodEvent{
		ParticipantID: participant,
		Timestamp:     at,
		Description:   description,
		Category:      category,
	}
}
