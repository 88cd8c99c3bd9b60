package report

import (
	"bytes"
	"fmt"
	"io"
	"math"

	"github.com/mrcode/glucose-insights/internal/models"
)

// Braille blocks, empty to full in quarter steps
var blocks = []rune{'⠀', '⣀', '⣤', '⣶', '⣿'}

// Sparkline renders values as a two-line braille bar chart, one column per value
func Sparkline(values []float64) string {
	if len(values) < 2 {
		return ""
	}

	minVal, maxVal := bounds(values)
	rangeVal := maxVal - minVal
	if rangeVal == 0 {
		rangeVal = 1
	}

	var topLine, bottomLine bytes.Buffer
	for _, val := range values {
		// 0-8 quarter blocks across both lines
		height := (val - minVal) / rangeVal * 8
		bottom := int(math.Round(math.Min(height, 4)))
		top := int(math.Round(math.Max(height-4, 0)))
		if bottom == 0 {
			bottom = 1
		}
		topLine.WriteRune(blocks[top])
		bottomLine.WriteRune(blocks[bottom])
	}

	return topLine.String() + "\n" + bottomLine.String()
}

// Chart renders values as a braille chart of the given height with min/max labels
func Chart(values []float64, height int) string {
	if len(values) < 2 || height < 1 {
		return ""
	}

	minVal, maxVal := bounds(values)
	buffer := 10.0
	minVal = math.Max(0, minVal-buffer)
	maxVal += buffer
	rangeVal := maxVal - minVal

	subBlocksPerLine := 4.0
	rows := make([][]rune, height)
	for i := range rows {
		rows[i] = make([]rune, len(values))
		for j := range rows[i] {
			rows[i][j] = blocks[0]
		}
	}

	for x, val := range values {
		totalSubBlocks := (val - minVal) / rangeVal * float64(height) * subBlocksPerLine

		for y := 0; y < height; y++ {
			lineIdx := height - 1 - y
			lineStart := float64(y) * subBlocksPerLine
			lineEnd := float64(y+1) * subBlocksPerLine

			if totalSubBlocks >= lineEnd {
				rows[lineIdx][x] = blocks[len(blocks)-1]
			} else if totalSubBlocks > lineStart {
				remainder := int(math.Round(totalSubBlocks - lineStart))
				remainder = max(0, min(remainder, len(blocks)-1))
				rows[lineIdx][x] = blocks[remainder]
			}
		}
	}

	var result bytes.Buffer
	fmt.Fprintf(&result, "Max: %.0f\n", maxVal)
	for _, row := range rows {
		result.WriteString(string(row))
		result.WriteString("\n")
	}
	fmt.Fprintf(&result, "Min: %.0f", minVal)

	return result.String()
}

// WriteSummary prints one sparkline per daily pattern
func WriteSummary(w io.Writer, patterns []models.DailyPattern) error {
	for _, p := range patterns {
		values := make([]float64, len(p.GlucoseData))
		for i, hv := range p.GlucoseData {
			values[i] = hv.Value
		}
		if _, err := fmt.Fprintf(w, "%s %s (%d readings, %d meals)\n%s\n",
			p.ParticipantID, p.Date, len(values), len(p.MealEvents), Sparkline(downsample(values, 72))); err != nil {
			return err
		}
	}
	return nil
}

// downsample keeps at most n evenly spaced values
func downsample(values []float64, n int) []float64 {
	if len(values) <= n {
		return values
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = values[i*len(values)/n]
	}
	return out
}

func bounds(values []float64) (lo, hi float64) {
	lo, hi = values[0], values[0]
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}
