// Package analysis derives the daily-pattern, food-response and spike datasets from a cohort
package analysis

import (
	"sort"
	"time"

	"github.com/mrcode/glucose-insights/internal/models"
)

// Participant holds one participant's normalized tables
type Participant struct {
	ID      string
	Glucose []models.GlucoseReading // Sorted by time
	Food    []models.FoodEvent      // Log order
}

// Cohort is the combined, read-only view over every participant
type Cohort struct {
	Glucose []models.GlucoseReading
	Food    []models.FoodEvent

	ids       []string
	glucoseBy map[string][]models.GlucoseReading
	foodBy    map[string][]models.FoodEvent
}

// NewCohort folds participants into combined tables ordered by participant id
func NewCohort(participants []Participant) *Cohort {
	sorted := make([]Participant, len(participants))
	copy(sorted, participants)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ID < sorted[j].ID
	})

	c := &Cohort{
		glucoseBy: make(map[string][]models.GlucoseReading, len(sorted)),
		foodBy:    make(map[string][]models.FoodEvent, len(sorted)),
	}
	for _, p := range sorted {
		if len(p.Glucose) > 0 {
			c.ids = append(c.ids, p.ID)
		}
		c.Glucose = append(c.Glucose, p.Glucose...)
		c.Food = append(c.Food, p.Food...)
		c.glucoseBy[p.ID] = p.Glucose
	}
	c.indexFood()
	return c
}

// WithFood returns a cohort sharing c's glucose but carrying a replacement food table
func (c *Cohort) WithFood(food []models.FoodEvent) *Cohort {
	clone := &Cohort{
		Glucose:   c.Glucose,
		Food:      food,
		ids:       c.ids,
		glucoseBy: c.glucoseBy,
	}
	clone.indexFood()
	return clone
}

func (c *Cohort) indexFood() {
	c.foodBy = make(map[string][]models.FoodEvent)
	for _, f := range c.Food {
		c.foodBy[f.ParticipantID] = append(c.foodBy[f.ParticipantID], f)
	}
}

// Participants returns the ids of participants with glucose data, ascending
func (c *Cohort) Participants() []string {
	return c.ids
}

// GlucoseFor returns a participant's readings sorted by time
func (c *Cohort) GlucoseFor(id string) []models.GlucoseReading {
	return c.glucoseBy[id]
}

// FoodFor returns a participant's food events in table order
func (c *Cohort) FoodFor(id string) []models.FoodEvent {
	return c.foodBy[id]
}

// Empty reports whether the cohort has no glucose readings at all
func (c *Cohort) Empty() bool {
	return len(c.Glucose) == 0
}

// Start returns the earliest glucose timestamp in the cohort
func (c *Cohort) Start() (time.Time, bool) {
	if c.Empty() {
		return time.Time{}, false
	}
	start := c.Glucose[0].Timestamp
	for _, g := range c.Glucose[1:] {
		if g.Timestamp.Before(start) {
			start = g.Timestamp
		}
	}
	return start, true
}

// windowReadings returns the readings of a time-sorted series with from <= t <= to
func windowReadings(series []models.GlucoseReading, from, to time.Time) []models.GlucoseReading {
	lo := sort.Search(len(series), func(i int) bool {
		return !series[i].Timestamp.Before(from)
	})
	hi := sort.Search(len(series), func(i int) bool {
		return series[i].Timestamp.After(to)
	})
	if lo >= hi {
		return nil
	}
	return series[lo:hi]
}

// baseline returns the mean of the first n readings
func baseline(readings []models.GlucoseReading, n int) float64 {
	if n > len(readings) {
		n = len(readings)
	}
	if n == 0 {
		return 0
	}
	var sum float64
	for _, r := range readings[:n] {
		sum += r.Value
	}
	return sum / float64(n)
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
