package normalize

import "time"

type pendingReading struct {
	timestamp    time.Time
	value        float64
	missing      bool
	interpolated bool
}

// interpolateGaps fills interior runs of at most limit missing values by linear interpolation in time.
// Longer runs and runs touching either end stay missing. Returns the number of values filled.
func interpolateGaps(readings []pendingReading, limit int) int {
	filled := 0
	for i := 0; i < len(readings); {
		if !readings[i].missing {
			i++
			continue
		}
		start := i
		for i < len(readings) && readings[i].missing {
			i++
		}
		end := i // first valid reading after the run, or len
		if start == 0 || end == len(readings) || end-start > limit {
			continue
		}

		before, after := readings[start-1], readings[end]
		span := after.timestamp.Sub(before.timestamp)
		for j := start; j < end; j++ {
			fraction := 0.0
			if span > 0 {
				fraction = float64(readings[j].timestamp.Sub(before.timestamp)) / float64(span)
			}
			readings[j].value = before.value + (after.value-before.value)*fraction
			readings[j].missing = false
			readings[j].interpolated = true
			filled++
		}
	}
	return filled
}
