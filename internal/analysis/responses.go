package analysis

import (
	"errors"
	"math"

	"go.uber.org/zap"

	"github.com/mrcode/glucose-insights/internal/models"
)

// ResponseStats summarizes a food-response build
type ResponseStats struct {
	Candidates   int // Known-category food events examined
	Insufficient int // Events skipped for too few readings
	Admitted     int // Real examples kept
	Discarded    int // Real examples computed after their category was full
	Synthetic    int
}

// BuildFoodResponses extracts real response windows for every known-category food event, keeps the
// first ExamplesPerCategory per category, pads each category with synthetic examples and computes
// the average curves.
func (a *Analyzer) BuildFoodResponses(cohort *Cohort) (*models.FoodResponses, ResponseStats) {
	var stats ResponseStats
	s := a.settings
	result := models.NewFoodResponses()
	extractor := NewExtractor(s)

	for _, event := range cohort.Food {
		a.advanceFood()
		if !event.Category.IsKnown() {
			continue
		}
		stats.Candidates++

		window, err := extractor.Extract(event, cohort.GlucoseFor(event.ParticipantID))
		if err != nil {
			if errors.Is(err, models.ErrInsufficientEvidence) {
				stats.Insufficient++
				a.logger.Debug("Skipping food event", zap.Error(err))
				continue
			}
			a.logger.Warn("Response extraction failed", zap.Error(err))
			continue
		}

		if len(result.Examples[event.Category]) >= s.ExamplesPerCategory {
			stats.Discarded++
			continue
		}
		result.Examples[event.Category] = append(result.Examples[event.Category], window)
		stats.Admitted++
	}

	participant, start := FallbackParticipant, FallbackStart
	if !cohort.Empty() {
		participant = cohort.Glucose[0].ParticipantID
		start, _ = cohort.Start()
	}
	start = start.Add(s.SyntheticOffset)

	generator := NewGenerator(s, streamResponses)
	for _, c := range models.RankedCategories {
		needed := s.ExamplesPerCategory - len(result.Examples[c])
		if needed <= 0 {
			continue
		}
		synthetic := generator.Responses(c, needed, participant, start)
		result.Examples[c] = append(result.Examples[c], synthetic...)
		stats.Synthetic += len(synthetic)
	}

	for _, c := range models.RankedCategories {
		if avg := AverageCurve(result.Examples[c], s.CurveOffsets(), s.AverageTolerance); len(avg) > 0 {
			result.Averages[c] = avg
		}
	}

	return result, stats
}

// AverageCurve averages, at each offset, the relative glucose of the first point of each example
// lying strictly within tolerance minutes. Offsets no example covers are left out.
func AverageCurve(examples []models.ResponseWindow, offsets []float64, tolerance float64) []models.AveragePoint {
	if len(examples) == 0 {
		return nil
	}
	var curve []models.AveragePoint
	for _, m := range offsets {
		var values []float64
		for _, ex := range examples {
			for _, p := range ex.Points {
				if math.Abs(p.MinutesSinceFood-m) < tolerance {
					values = append(values, p.RelativeGlucose)
					break
				}
			}
		}
		if len(values) > 0 {
			curve = append(curve, models.AveragePoint{
				MinutesSinceFood:   m,
				AvgRelativeGlucose: mean(values),
			})
		}
	}
	return curve
}
