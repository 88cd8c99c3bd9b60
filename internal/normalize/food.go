package normalize

import (
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mrcode/glucose-insights/internal/models"
	"github.com/mrcode/glucose-insights/internal/source"
)

// Strategy names the timestamp parsing step that succeeded for a food log
type Strategy string

// Timestamp strategies, in the order they are attempted
const (
	StrategyNative    Strategy = "native"
	StrategyDateTime  Strategy = "date_time"
	StrategyLayout    Strategy = "layout"
	StrategySynthetic Strategy = "synthetic"
)

// FoodDiagnostics counts what happened to a food log
type FoodDiagnostics struct {
	Rows                  int
	TimestampColumn       string
	DescriptionColumn     string // Empty when every event falls back to the unknown description
	CarbColumn            string
	Strategy              Strategy
	Layout                string // Set when Strategy is StrategyLayout
	UnparseableTimestamps int
	Events                int
}

// Fallback reports whether the log needed anything beyond native timestamp parsing
func (d FoodDiagnostics) Fallback() bool {
	return d.Strategy != StrategyNative
}

// Food normalizes a participant's food log. glucoseStart anchors synthesized timestamps
// when no parsing strategy yields a single timestamp.
func (n *Normalizer) Food(participantID string, table *source.Table, glucoseStart time.Time) ([]models.FoodEvent, FoodDiagnostics) {
	diag := FoodDiagnostics{Rows: table.Len()}

	tsCol := table.FirstColumn(foodTimestampColumns...)
	if tsCol < 0 {
		tsCol = 0
	}
	descCol := findDescriptionColumn(table, tsCol)
	carbCol := findCarbColumn(table.Header)
	diag.TimestampColumn = columnName(table, tsCol)
	diag.DescriptionColumn = columnName(table, descCol)
	diag.CarbColumn = columnName(table, carbCol)

	n.logger.Debug("Food log columns",
		zap.String("participant", participantID),
		zap.String("timestamp", diag.TimestampColumn),
		zap.String("description", diag.DescriptionColumn),
		zap.String("carbs", diag.CarbColumn))

	times, ok := n.parseFoodTimes(table, tsCol, &diag)
	if !ok {
		diag.Strategy = StrategySynthetic
		times = make([]*time.Time, table.Len())
		for i := range times {
			ts := glucoseStart.Add(time.Duration(i) * n.settings.FoodCadence)
			times[i] = &ts
		}
		n.logger.Warn("Could not parse food timestamps, using synthetic times",
			zap.String("participant", participantID),
			zap.Int("count", table.Len()),
			zap.Duration("cadence", n.settings.FoodCadence))
	} else if diag.Fallback() {
		n.logger.Info("Food timestamps parsed by fallback",
			zap.String("participant", participantID),
			zap.String("strategy", string(diag.Strategy)),
			zap.String("layout", diag.Layout))
	}

	events := make([]models.FoodEvent, 0, table.Len())
	for i, row := range table.Rows {
		if times[i] == nil {
			diag.UnparseableTimestamps++
			continue
		}
		description := table.Cell(row, descCol)
		if description == "" {
			description = n.settings.UnknownFood
		}
		event := models.FoodEvent{
			ParticipantID: participantID,
			Timestamp:     *times[i],
			Description:   description,
			Category:      n.classifier.Classify(description),
			SyntheticTime: diag.Strategy == StrategySynthetic,
		}
		if carbs, err := strconv.ParseFloat(table.Cell(row, carbCol), 64); err == nil {
			event.Carbs = models.Float(carbs)
		}
		events = append(events, event)
	}
	diag.Events = len(events)

	if diag.UnparseableTimestamps > 0 {
		n.logger.Info("Dropped food rows with unparseable timestamps",
			zap.String("participant", participantID),
			zap.Int("count", diag.UnparseableTimestamps))
	}

	return events, diag
}

// parseFoodTimes runs the strategy chain. The first strategy that parses at least one row wins;
// rows it cannot parse are nil.
func (n *Normalizer) parseFoodTimes(table *source.Table, tsCol int, diag *FoodDiagnostics) ([]*time.Time, bool) {
	if times, ok := parseColumn(table, func(row []string) (time.Time, error) {
		return parseNative(table.Cell(row, tsCol))
	}); ok {
		diag.Strategy = StrategyNative
		return times, true
	}

	dateCol, timeCol := table.Column("Date"), table.Column("Time")
	if dateCol >= 0 && timeCol >= 0 {
		if times, ok := parseColumn(table, func(row []string) (time.Time, error) {
			return parseNative(table.Cell(row, dateCol) + " " + table.Cell(row, timeCol))
		}); ok {
			diag.Strategy = StrategyDateTime
			return times, true
		}
	}

	for _, layout := range foodLayouts {
		if times, ok := parseColumn(table, func(row []string) (time.Time, error) {
			return time.ParseInLocation(layout, table.Cell(row, tsCol), time.UTC)
		}); ok {
			diag.Strategy = StrategyLayout
			diag.Layout = layout
			return times, true
		}
	}

	return nil, false
}

func parseColumn(table *source.Table, parse func(row []string) (time.Time, error)) ([]*time.Time, bool) {
	times := make([]*time.Time, table.Len())
	parsed := 0
	for i, row := range table.Rows {
		ts, err := parse(row)
		if err != nil {
			continue
		}
		times[i] = &ts
		parsed++
	}
	return times, parsed > 0
}

// findDescriptionColumn returns the description column, or -1 when the log has none
func findDescriptionColumn(table *source.Table, tsCol int) int {
	if col := table.FirstColumn(foodDescriptionColumns...); col >= 0 {
		return col
	}
	for i, h := range table.Header {
		if i != tsCol && !isTimeLike(h) {
			return i
		}
	}
	if len(table.Header) > 1 {
		return 1
	}
	return -1
}

func isTimeLike(name string) bool {
	lower := strings.ToLower(name)
	for _, t := range timeLikeColumns {
		if lower == t {
			return true
		}
	}
	return false
}

func findCarbColumn(header []string) int {
	for _, candidate := range carbColumns {
		for i, h := range header {
			if strings.EqualFold(h, candidate) {
				return i
			}
		}
	}
	return -1
}
