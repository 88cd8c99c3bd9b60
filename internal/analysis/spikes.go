package analysis

import (
	"sort"

	"go.uber.org/zap"

	"github.com/mrcode/glucose-insights/internal/models"
)

// SpikeStats summarizes a spike build
type SpikeStats struct {
	Synthetic    bool
	Episodes     int // Rises above the spike threshold
	Unexplained  int // Episodes without a preceding food event
	Insufficient int // Episodes whose response window was too sparse
}

// BuildSpikeEvents pairs glucose spikes with the food event that preceded them. Small cohorts and
// cohorts without food fall back to the synthetic game.
func (a *Analyzer) BuildSpikeEvents(cohort *Cohort) ([]models.SpikeEvent, SpikeStats) {
	s := a.settings
	if len(cohort.Food) == 0 || len(cohort.Glucose) < s.MinGameReadings {
		a.logger.Info("Creating synthetic game data due to insufficient real data",
			zap.Int("food_events", len(cohort.Food)),
			zap.Int("readings", len(cohort.Glucose)))
		participant, base := FallbackParticipant, FallbackStart
		if !cohort.Empty() {
			participant = cohort.Glucose[0].ParticipantID
			base, _ = cohort.Start()
		}
		return NewGenerator(s, streamGame).Game(participant, base), SpikeStats{Synthetic: true}
	}

	var stats SpikeStats
	events := []models.SpikeEvent{}
	for _, id := range cohort.Participants() {
		series := cohort.GlucoseFor(id)
		foods := sortedFood(cohort.FoodFor(id))

		for _, peak := range findSpikes(series, s.SpikeSamples, s.SpikeThreshold) {
			stats.Episodes++
			spike := series[peak]

			earliest := spike.Timestamp.Add(-s.SpikeSearchStart)
			latest := spike.Timestamp.Add(-s.SpikeSearchEnd)
			// Earliest food in the search window; one meal may explain several spikes
			cause := -1
			for i, f := range foods {
				if f.Timestamp.After(earliest) && f.Timestamp.Before(latest) {
					cause = i
					break
				}
			}
			if cause < 0 {
				stats.Unexplained++
				continue
			}

			food := foods[cause]
			window := windowReadings(series, food.Timestamp.Add(-s.SpikeWindowBefore), spike.Timestamp.Add(s.SpikeWindowAfter))
			if len(window) < s.MinSpikeReadings {
				stats.Insufficient++
				continue
			}

			curve := make([]models.CurvePoint, len(window))
			for i, r := range window {
				curve[i] = models.CurvePoint{Timestamp: r.Timestamp, Value: r.Value}
			}
			events = append(events, models.SpikeEvent{
				ParticipantID: id,
				FoodEvent:     food,
				SpikeTime:     spike.Timestamp,
				SpikeValue:    spike.Value,
				BaselineValue: baseline(window, s.BaselineSamples),
				ResponseCurve: curve,
			})
			if len(events) >= s.MaxSpikes {
				return events, stats
			}
		}
	}
	return events, stats
}

// findSpikes returns, for each run of consecutive readings that rose more than threshold over
// the previous samples readings, the index of the run's highest reading.
func findSpikes(series []models.GlucoseReading, samples int, threshold float64) []int {
	var peaks []int
	peak := -1
	for i := range series {
		rising := i >= samples && series[i].Value-series[i-samples].Value > threshold
		if !rising {
			if peak >= 0 {
				peaks = append(peaks, peak)
				peak = -1
			}
			continue
		}
		if peak < 0 || series[i].Value > series[peak].Value {
			peak = i
		}
	}
	if peak >= 0 {
		peaks = append(peaks, peak)
	}
	return peaks
}

func sortedFood(events []models.FoodEvent) []models.FoodEvent {
	sorted := make([]models.FoodEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	return sorted
}
