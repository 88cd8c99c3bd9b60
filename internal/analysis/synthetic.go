package analysis

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/mrcode/glucose-insights/internal/models"
)

// Noise streams; each builder draws from its own so results do not depend on builder order
const (
	streamResponses uint64 = iota + 1
	streamGame
)

// FallbackParticipant and FallbackStart anchor synthetic data when the cohort has no glucose
const FallbackParticipant = "001"

var FallbackStart = time.Date(2020, 2, 13, 12, 0, 0, 0, time.UTC)

// SyntheticFoods lists the template food names used to pad each category
var SyntheticFoods = map[models.Category][]string{
	models.CategoryHigh:   {"White rice", "White bread", "Sugar cookie", "Soda", "Breakfast cereal"},
	models.CategoryMedium: {"Apple", "Brown rice", "Banana", "Oatmeal", "Yogurt"},
	models.CategoryLow:    {"Broccoli", "Spinach salad", "Grilled chicken", "Nuts", "Eggs"},
}

// syntheticBaselines are the fixed pre-meal levels of synthetic response curves, mg/dL
var syntheticBaselines = map[models.Category]float64{
	models.CategoryHigh:   110,
	models.CategoryMedium: 100,
	models.CategoryLow:    80,
}

// GameScenario is one template of the synthetic spike game
type GameScenario struct {
	Food     string
	Category models.Category
	Delay    time.Duration // Food to peak
}

// GameScenarios is the fixed synthetic game template list
var GameScenarios = []GameScenario{
	{"White rice", models.CategoryHigh, 30 * time.Minute},
	{"Apple", models.CategoryMedium, 45 * time.Minute},
	{"Salad", models.CategoryLow, 60 * time.Minute},
	{"Ice cream", models.CategoryHigh, 25 * time.Minute},
	{"Pasta", models.CategoryHigh, 40 * time.Minute},
	{"Banana", models.CategoryMedium, 35 * time.Minute},
	{"Chicken sandwich", models.CategoryMedium, 50 * time.Minute},
	{"Soda", models.CategoryHigh, 20 * time.Minute},
	{"Yogurt", models.CategoryMedium, 40 * time.Minute},
	{"Vegetable soup", models.CategoryLow, 55 * time.Minute},
}

var (
	gameBaselines = map[models.Category]float64{
		models.CategoryHigh:   100,
		models.CategoryMedium: 90,
		models.CategoryLow:    80,
	}
	gameRises = map[models.Category]float64{
		models.CategoryHigh:   80,
		models.CategoryMedium: 50,
		models.CategoryLow:    20,
	}
)

// Generator produces synthetic response curves and game scenarios
type Generator struct {
	settings *models.Settings
	rng      *rand.Rand
}

// NewGenerator creates a Generator drawing noise from the given stream of the configured seed
func NewGenerator(settings *models.Settings, stream uint64) *Generator {
	return &Generator{
		settings: settings,
		rng:      rand.New(rand.NewPCG(settings.Seed, stream)),
	}
}

func (g *Generator) noise() float64 {
	return g.rng.NormFloat64() * g.settings.NoiseStdDev
}

// ResponseShape returns the noiseless relative glucose of category at minute m after eating
func ResponseShape(category models.Category, m float64) float64 {
	if m < 0 {
		return 0
	}
	switch category {
	case models.CategoryHigh:
		switch {
		case m < 30:
			return m * 2
		case m < 60:
			return 60 - (m-30)*0.5
		default:
			return math.Max(0, 45-(m-60)*0.25)
		}
	case models.CategoryMedium:
		switch {
		case m < 45:
			return m * 0.8
		case m < 90:
			return 36 - (m-45)*0.3
		default:
			return math.Max(0, 22.5-(m-90)*0.15)
		}
	case models.CategoryLow:
		if m < 60 {
			return m * 0.3
		}
		return math.Max(0, 18-(m-60)*0.1)
	}
	return 0
}

// Responses generates up to n synthetic response windows for category, one day apart from start.
// Every window gets its own noise trace.
func (g *Generator) Responses(category models.Category, n int, participantID string, start time.Time) []models.ResponseWindow {
	names := SyntheticFoods[category]
	if n > len(names) {
		n = len(names)
	}
	base := syntheticBaselines[category]
	offsets := g.settings.CurveOffsets()

	windows := make([]models.ResponseWindow, 0, n)
	for i := 0; i < n; i++ {
		points := make([]models.ResponsePoint, len(offsets))
		for j, m := range offsets {
			rel := ResponseShape(category, m) + g.noise()
			points[j] = models.ResponsePoint{
				MinutesSinceFood: m,
				Value:            base + rel,
				RelativeGlucose:  rel,
			}
		}
		windows = append(windows, models.ResponseWindow{
			FoodDescription: names[i],
			ParticipantID:   participantID,
			EventTime:       start.AddDate(0, 0, i),
			Points:          points,
			IsSynthetic:     true,
			Category:        category,
			Baseline:        base,
		})
	}
	return windows
}

// GameCurve returns the noiseless value at minute m of a game scenario rising from base to spike at delay
// and recovering over the following two hours.
func GameCurve(m, delay, base, spike float64) float64 {
	amplitude := spike - base
	total := delay + 120
	switch {
	case m < delay*0.7:
		return base + m/(delay*0.7)*amplitude*0.3
	case m < delay:
		progress := (m - delay*0.7) / (delay * 0.3)
		return base + amplitude*(0.3+0.7*progress)
	case m < delay+30:
		return spike - amplitude*0.4*(m-delay)/30
	default:
		recovery := (m - delay - 30) / (total - delay - 30)
		return spike - amplitude*(0.4+0.6*recovery)
	}
}

// Game generates the synthetic spike game from GameScenarios, food i at base + i days + offset
func (g *Generator) Game(participantID string, base time.Time) []models.SpikeEvent {
	step := g.settings.CurveStep
	events := make([]models.SpikeEvent, 0, len(GameScenarios))
	for i, s := range GameScenarios {
		foodTime := base.AddDate(0, 0, i).Add(g.settings.SyntheticOffset)
		baseValue := gameBaselines[s.Category]
		spikeValue := baseValue + gameRises[s.Category]
		delay := s.Delay.Minutes()

		var curve []models.CurvePoint
		for d := time.Duration(0); d <= s.Delay+2*time.Hour; d += step {
			curve = append(curve, models.CurvePoint{
				Timestamp: foodTime.Add(d),
				Value:     GameCurve(d.Minutes(), delay, baseValue, spikeValue) + g.noise(),
			})
		}

		events = append(events, models.SpikeEvent{
			ParticipantID: participantID,
			FoodEvent: models.FoodEvent{
				Timestamp:   foodTime,
				Description: s.Food,
				Category:    s.Category,
			},
			SpikeTime:     foodTime.Add(s.Delay),
			SpikeValue:    spikeValue,
			BaselineValue: baseValue,
			ResponseCurve: curve,
			IsSynthetic:   true,
		})
	}
	return events
}
