package analysis

import (
	"fmt"

	"github.com/mrcode/glucose-insights/internal/models"
)

type dayKey struct {
	participant string
	date        string
}

type dayGroup struct {
	key      dayKey
	readings []models.GlucoseReading
}

// BuildDailyPatterns selects up to MaxDailyPatterns well-covered participant-days, preferring
// distinct participants, and attaches their meals.
func (a *Analyzer) BuildDailyPatterns(cohort *Cohort) []models.DailyPattern {
	s := a.settings
	days := groupDays(cohort)

	good := filterDays(days, s.DayMinReadings)
	if len(good) < s.MaxDailyPatterns {
		good = filterDays(days, s.DayRelaxedReadings)
		a.logger.Sugar().Infof("Lowered threshold for good days to %d readings, found %d days", s.DayRelaxedReadings, len(good))
	}

	seen := make(map[string]bool)
	var selected []dayGroup
	for _, d := range good {
		if len(selected) >= s.MaxDailyPatterns {
			break
		}
		if !seen[d.key.participant] || len(good) < s.MaxDailyPatterns {
			selected = append(selected, d)
			seen[d.key.participant] = true
		}
	}

	patterns := make([]models.DailyPattern, 0, len(selected))
	for _, d := range selected {
		glucose := make([]models.HourValue, len(d.readings))
		for i, r := range d.readings {
			glucose[i] = models.HourValue{HourOfDay: r.HourOfDay(), Value: r.Value}
		}

		var meals []models.MealMarker
		for _, f := range cohort.FoodFor(d.key.participant) {
			if f.Date() != d.key.date {
				continue
			}
			meals = append(meals, models.MealMarker{
				HourOfDay:   models.HourOfDay(f.Timestamp),
				Description: f.Description,
				Category:    f.Category,
			})
		}
		if len(meals) == 0 {
			meals = a.estimateMeals(d.readings)
			a.logger.Sugar().Debugf("Created %d estimated meal events for %s on %s", len(meals), d.key.participant, d.key.date)
		}
		if meals == nil {
			meals = []models.MealMarker{}
		}

		patterns = append(patterns, models.DailyPattern{
			ParticipantID: d.key.participant,
			Date:          d.key.date,
			GlucoseData:   glucose,
			MealEvents:    meals,
		})
	}

	return patterns
}

// estimateMeals marks readings where glucose rose more than MealRiseThreshold over the
// previous MealRiseSamples readings, keeping every MealSubsample-th of them.
func (a *Analyzer) estimateMeals(readings []models.GlucoseReading) []models.MealMarker {
	s := a.settings
	var rising []models.GlucoseReading
	for i := s.MealRiseSamples; i < len(readings); i++ {
		if readings[i].Value-readings[i-s.MealRiseSamples].Value > s.MealRiseThreshold {
			rising = append(rising, readings[i])
		}
	}

	var meals []models.MealMarker
	for i := 0; i < len(rising) && len(meals) < s.MaxEstimatedMeals; i += s.MealSubsample {
		meals = append(meals, models.MealMarker{
			HourOfDay:   rising[i].HourOfDay(),
			Description: fmt.Sprintf("Estimated meal %d", len(meals)+1),
			Category:    models.CategoryUnknown,
			Estimated:   true,
		})
	}
	return meals
}

// groupDays groups readings by participant and calendar day, ordered by participant then date
func groupDays(cohort *Cohort) []dayGroup {
	var days []dayGroup
	for _, id := range cohort.Participants() {
		var current *dayGroup
		for _, r := range cohort.GlucoseFor(id) {
			key := dayKey{participant: id, date: r.Date()}
			if current == nil || current.key != key {
				days = append(days, dayGroup{key: key})
				current = &days[len(days)-1]
			}
			current.readings = append(current.readings, r)
		}
	}
	return days
}

func filterDays(days []dayGroup, minReadings int) []dayGroup {
	var good []dayGroup
	for _, d := range days {
		if len(d.readings) > minReadings {
			good = append(good, d)
		}
	}
	return good
}
