package analysis

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrcode/glucose-insights/internal/models"
)

func TestBuildFoodResponses_CapAndPadding(t *testing.T) {
	readings := series("001", day0, spikeDay())
	var foods []models.FoodEvent
	for h := 1; h <= 7; h++ {
		foods = append(foods, food("001", day0.Add(time.Duration(h)*time.Hour), "Apple", models.CategoryMedium))
	}
	foods = append(foods, food("001", day0.Add(23*time.Hour+30*time.Minute), "Late apple", models.CategoryMedium))
	foods = append(foods, food("001", day0.Add(2*time.Hour), "Water", models.CategoryUnknown))
	cohort := NewCohort([]Participant{{ID: "001", Glucose: readings, Food: foods}})

	responses, stats := newAnalyzer(models.DefaultSettings()).BuildFoodResponses(cohort)

	assert.Equal(t, ResponseStats{Candidates: 8, Insufficient: 1, Admitted: 5, Discarded: 2, Synthetic: 10}, stats)
	for _, c := range models.RankedCategories {
		assert.Len(t, responses.Examples[c], 5, "category %s", c)
	}
	for i, ex := range responses.Examples[models.CategoryMedium] {
		assert.False(t, ex.IsSynthetic)
		assert.Equal(t, day0.Add(time.Duration(i+1)*time.Hour), ex.EventTime, "first come first admitted")
	}
	for _, ex := range responses.Examples[models.CategoryHigh] {
		assert.True(t, ex.IsSynthetic)
		assert.Equal(t, "001", ex.ParticipantID)
	}
	assert.Equal(t, day0.Add(2*time.Hour), responses.Examples[models.CategoryHigh][0].EventTime)
	assert.Len(t, responses.Averages[models.CategoryMedium], 40)
	assert.Equal(t, 40, len(responses.Averages[models.CategoryLow]))
}

func TestAverageCurve(t *testing.T) {
	examples := []models.ResponseWindow{
		{Points: []models.ResponsePoint{
			{MinutesSinceFood: -1, RelativeGlucose: 2},
			{MinutesSinceFood: 1, RelativeGlucose: 100}, // Second match at the same offset is ignored
			{MinutesSinceFood: 7.5, RelativeGlucose: 50},
		}},
		{Points: []models.ResponsePoint{
			{MinutesSinceFood: 2, RelativeGlucose: 4},
			{MinutesSinceFood: 11, RelativeGlucose: 8},
		}},
	}

	curve := AverageCurve(examples, []float64{0, 5, 10, 20}, 2.5)

	assert.Equal(t, []models.AveragePoint{
		{MinutesSinceFood: 0, AvgRelativeGlucose: 3},
		{MinutesSinceFood: 10, AvgRelativeGlucose: 8},
	}, curve, "7.5 is not strictly within 2.5 of 5 or 10, and nothing covers 20")

	assert.Nil(t, AverageCurve(nil, []float64{0}, 2.5))
}

func TestBuildSpikeEvents_RealSpike(t *testing.T) {
	settings := models.DefaultSettings()
	settings.MinGameReadings = 288
	readings := series("001", day0, spikeDay())
	apple := food("001", day0.Add(9*time.Hour+30*time.Minute), "Apple", models.CategoryMedium)
	cohort := NewCohort([]Participant{{ID: "001", Glucose: readings, Food: []models.FoodEvent{apple}}})

	events, stats := newAnalyzer(settings).BuildSpikeEvents(cohort)

	require.Len(t, events, 1)
	assert.False(t, stats.Synthetic)
	spike := events[0]
	assert.Equal(t, "001", spike.ParticipantID)
	assert.Equal(t, models.CategoryMedium, spike.FoodEvent.Category)
	assert.Equal(t, "Apple", spike.FoodEvent.Description)
	assert.Equal(t, day0.Add(10*time.Hour+30*time.Minute), spike.SpikeTime)
	assert.Equal(t, 150.0, spike.SpikeValue, "the peak reading of the rise")
	assert.Equal(t, 100.0, spike.BaselineValue)
	require.Len(t, spike.ResponseCurve, 40)
	assert.Equal(t, apple.Timestamp.Add(-15*time.Minute), spike.ResponseCurve[0].Timestamp)
	assert.False(t, spike.IsSynthetic)
}

func TestBuildSpikeEvents_OneMealExplainsTwoRises(t *testing.T) {
	settings := models.DefaultSettings()
	settings.MinGameReadings = 288

	// 100 until 10:00, +50 by 10:30, flat until 11:00, +50 again by 11:30
	values := make([]float64, 288)
	for i := range values {
		switch {
		case i < 120:
			values[i] = 100
		case i <= 126:
			values[i] = 100 + float64(i-120)*50/6
		case i < 132:
			values[i] = 150
		case i <= 138:
			values[i] = 150 + float64(i-132)*50/6
		default:
			values[i] = 200
		}
	}
	apple := food("001", day0.Add(9*time.Hour+45*time.Minute), "Apple", models.CategoryMedium)
	cohort := NewCohort([]Participant{{ID: "001", Glucose: series("001", day0, values), Food: []models.FoodEvent{apple}}})

	events, stats := newAnalyzer(settings).BuildSpikeEvents(cohort)

	assert.Equal(t, 2, stats.Episodes)
	assert.Zero(t, stats.Unexplained)
	require.Len(t, events, 2)
	assert.Equal(t, day0.Add(10*time.Hour+30*time.Minute), events[0].SpikeTime)
	assert.Equal(t, day0.Add(11*time.Hour+30*time.Minute), events[1].SpikeTime)
	for _, e := range events {
		assert.Equal(t, "Apple", e.FoodEvent.Description)
	}
}

func TestBuildSpikeEvents_UnexplainedAndSparse(t *testing.T) {
	settings := models.DefaultSettings()
	settings.MinGameReadings = 0
	readings := series("001", day0, spikeDay())

	tooEarly := food("001", day0.Add(7*time.Hour), "Bagel", models.CategoryHigh)
	cohort := NewCohort([]Participant{{ID: "001", Glucose: readings, Food: []models.FoodEvent{tooEarly}}})
	events, stats := newAnalyzer(settings).BuildSpikeEvents(cohort)
	assert.Empty(t, events)
	assert.Equal(t, 1, stats.Unexplained)

	settings.MinSpikeReadings = 100
	apple := food("001", day0.Add(9*time.Hour+30*time.Minute), "Apple", models.CategoryMedium)
	cohort = NewCohort([]Participant{{ID: "001", Glucose: readings, Food: []models.FoodEvent{apple}}})
	events, stats = newAnalyzer(settings).BuildSpikeEvents(cohort)
	assert.Empty(t, events)
	assert.Equal(t, 1, stats.Insufficient)
}

func TestBuildSpikeEvents_SyntheticFallback(t *testing.T) {
	tests := []struct {
		name   string
		cohort *Cohort
		base   time.Time
	}{
		{"no participants", NewCohort(nil), FallbackStart},
		{"too few readings", NewCohort([]Participant{{
			ID:      "002",
			Glucose: series("002", day0, spikeDay()),
			Food:    []models.FoodEvent{food("002", day0.Add(9*time.Hour), "Apple", models.CategoryMedium)},
		}}), day0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, stats := newAnalyzer(models.DefaultSettings()).BuildSpikeEvents(tt.cohort)

			assert.True(t, stats.Synthetic)
			require.Len(t, events, len(GameScenarios))
			for i, e := range events {
				s := GameScenarios[i]
				assert.Equal(t, s.Food, e.FoodEvent.Description)
				assert.Equal(t, s.Category, e.FoodEvent.Category)
				foodTime := tt.base.AddDate(0, 0, i).Add(2 * time.Hour)
				assert.Equal(t, foodTime, e.FoodEvent.Timestamp)
				assert.Equal(t, foodTime.Add(s.Delay), e.SpikeTime)
				assert.Equal(t, gameBaselines[s.Category], e.BaselineValue)
				assert.Equal(t, gameBaselines[s.Category]+gameRises[s.Category], e.SpikeValue)
				assert.Len(t, e.ResponseCurve, int((s.Delay+2*time.Hour)/(5*time.Minute))+1)
				assert.True(t, e.IsSynthetic)
			}
		})
	}
}

func TestFindSpikes(t *testing.T) {
	peaks := findSpikes(series("001", day0, spikeDay()), 6, 40)
	assert.Equal(t, []int{126}, peaks)

	values := []float64{100, 100, 150, 160, 100, 100, 200}
	assert.Equal(t, []int{3, 6}, findSpikes(series("001", day0, values), 2, 40))
}

func TestBuildDailyPatterns(t *testing.T) {
	apple := food("001", day0.Add(9*time.Hour+30*time.Minute), "Apple", models.CategoryMedium)
	cohort := NewCohort([]Participant{
		{ID: "002", Glucose: series("002", day0, spikeDay())},
		{ID: "001", Glucose: series("001", day0, spikeDay()), Food: []models.FoodEvent{apple}},
		{ID: "003", Glucose: series("003", day0, flat(90, 100))},
	})

	patterns := newAnalyzer(models.DefaultSettings()).BuildDailyPatterns(cohort)

	require.Len(t, patterns, 2, "the 90-reading day misses even the relaxed threshold")
	assert.Equal(t, "001", patterns[0].ParticipantID)
	assert.Equal(t, "2020-02-13", patterns[0].Date)
	assert.Len(t, patterns[0].GlucoseData, 288)
	assert.Equal(t, []models.MealMarker{{HourOfDay: 9.5, Description: "Apple", Category: models.CategoryMedium}}, patterns[0].MealEvents)

	assert.Equal(t, "002", patterns[1].ParticipantID)
	require.Len(t, patterns[1].MealEvents, 1)
	assert.Equal(t, "Estimated meal 1", patterns[1].MealEvents[0].Description)
	assert.Equal(t, models.CategoryUnknown, patterns[1].MealEvents[0].Category)
	assert.Equal(t, 10.25, patterns[1].MealEvents[0].HourOfDay)
}

func TestBuildDailyPatterns_PrefersDistinctParticipants(t *testing.T) {
	var participants []Participant
	for _, id := range []string{"001", "002", "003"} {
		var values []float64
		for d := 0; d < 3; d++ {
			values = append(values, flat(288, 100)...)
		}
		participants = append(participants, Participant{ID: id, Glucose: series(id, day0, values)})
	}

	patterns := newAnalyzer(models.DefaultSettings()).BuildDailyPatterns(NewCohort(participants))

	require.Len(t, patterns, 3, "nine good days, one per participant")
	for i, id := range []string{"001", "002", "003"} {
		assert.Equal(t, id, patterns[i].ParticipantID)
		assert.Equal(t, "2020-02-13", patterns[i].Date)
		assert.NotNil(t, patterns[i].MealEvents)
	}
}

func TestAnalyze(t *testing.T) {
	t.Run("empty cohort", func(t *testing.T) {
		a := newAnalyzer(models.DefaultSettings())
		_, err := a.Analyze(NewCohort([]Participant{{ID: "001"}}))
		assert.True(t, errors.Is(err, models.ErrCohortEmpty))
		assert.Equal(t, "Failed", a.GetProgress().Stage)
	})

	t.Run("refined table feeds every builder", func(t *testing.T) {
		settings := models.DefaultSettings()
		settings.MinGameReadings = 288
		cake := food("001", day0.Add(9*time.Hour+30*time.Minute), "Mystery cake slice", models.CategoryUnknown)
		cake.Carbs = models.Float(12)
		cohort := NewCohort([]Participant{{ID: "001", Glucose: series("001", day0, spikeDay()), Food: []models.FoodEvent{cake}}})

		var stages []string
		a := newAnalyzer(settings)
		a.OnProgress(func(p models.Progress) { stages = append(stages, p.Stage) })

		result, err := a.Analyze(cohort)
		require.NoError(t, err)

		assert.Empty(t, result.Failed)
		assert.Equal(t, models.CategoryLow, result.Food[0].Category, "carbs outrank the cake keyword")
		assert.Equal(t, models.CategoryUnknown, cohort.Food[0].Category)
		assert.Equal(t, models.CategoryLow, result.DailyPatterns[0].MealEvents[0].Category)
		require.Len(t, result.SpikeEvents, 1)
		assert.Equal(t, models.CategoryLow, result.SpikeEvents[0].FoodEvent.Category)
		assert.False(t, result.FoodResponses.Examples[models.CategoryLow][0].IsSynthetic)
		assert.Equal(t, 1, result.FoodResponses.ExampleCount()-result.FoodResponses.SyntheticCount())

		assert.Equal(t, []string{"Refining food categories", "Building daily patterns", "Building food responses", "Building spike events", "Complete"}, stages)
		assert.Equal(t, 100.0, a.GetProgress().Progress)
	})

	t.Run("idempotent under a fixed seed", func(t *testing.T) {
		build := func() []byte {
			cohort := NewCohort([]Participant{{ID: "001", Glucose: series("001", day0, spikeDay())}})
			result, err := newAnalyzer(models.DefaultSettings()).Analyze(cohort)
			require.NoError(t, err)
			data, err := json.Marshal([]interface{}{result.DailyPatterns, result.FoodResponses, result.SpikeEvents})
			require.NoError(t, err)
			return data
		}
		assert.Equal(t, string(build()), string(build()))
	})
}

func TestIsolate(t *testing.T) {
	a := newAnalyzer(models.DefaultSettings())

	err := a.isolate("boom", func() error { panic("index out of range") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom builder panicked")

	sentinel := errors.New("bad data")
	assert.ErrorIs(t, a.isolate("plain", func() error { return sentinel }), sentinel)
	assert.NoError(t, a.isolate("ok", func() error { return nil }))
}
