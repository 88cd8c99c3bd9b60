package classify

import (
	"strings"

	"github.com/mrcode/glucose-insights/internal/models"
)

// RefineStats counts the overrides applied by a refinement pass
type RefineStats struct {
	ByCarbs   int
	ByTerms   int
	Remaining int // Still unknown afterwards
}

// Refiner applies the second classification pass
type Refiner struct {
	highCarbs   float64
	mediumCarbs float64
	terms       []Term
}

// NewRefiner creates a Refiner from the carb thresholds in settings and a secondary term map
func NewRefiner(settings *models.Settings, terms []Term) *Refiner {
	lowered := make([]Term, len(terms))
	for i, t := range terms {
		lowered[i] = Term{Keyword: strings.ToLower(t.Keyword), Category: t.Category}
	}
	return &Refiner{
		highCarbs:   settings.HighCarbThreshold,
		mediumCarbs: settings.MediumCarbThreshold,
		terms:       lowered,
	}
}

// ByCarbs returns the category implied by a carbohydrate amount in grams
func (r *Refiner) ByCarbs(grams float64) models.Category {
	switch {
	case grams > r.highCarbs:
		return models.CategoryHigh
	case grams > r.mediumCarbs:
		return models.CategoryMedium
	default:
		return models.CategoryLow
	}
}

// ByTerms returns the category of the first secondary term contained in description
func (r *Refiner) ByTerms(description string) models.Category {
	lower := strings.ToLower(description)
	for _, t := range r.terms {
		if strings.Contains(lower, t.Keyword) {
			return t.Category
		}
	}
	return models.CategoryUnknown
}

// Refine returns a new table: rows with a carb amount are relabelled by threshold, then rows
// still unknown go through the secondary term map. The input is not modified.
func (r *Refiner) Refine(events []models.FoodEvent) ([]models.FoodEvent, RefineStats) {
	var stats RefineStats
	refined := make([]models.FoodEvent, len(events))
	for i, e := range events {
		if e.HasCarbs() {
			refined[i] = e.WithCategory(r.ByCarbs(*e.Carbs))
			stats.ByCarbs++
			continue
		}
		refined[i] = e
	}

	for i, e := range refined {
		if e.Category != models.CategoryUnknown {
			continue
		}
		if c := r.ByTerms(e.Description); c != models.CategoryUnknown {
			refined[i] = e.WithCategory(c)
			stats.ByTerms++
			continue
		}
		stats.Remaining++
	}

	return refined, stats
}
