// Package report renders the analysis datasets as an HTML chart page,
// PNG previews and terminal sparklines
package report

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/mrcode/glucose-insights/internal/models"
)

// WriteHTML renders the category averages, daily patterns with their meals and spike curves as one page
func WriteHTML(w io.Writer, patterns []models.DailyPattern, responses models.FoodResponses, spikes []models.SpikeEvent) error {
	page := components.NewPage()
	page.SetPageTitle("Glucose insights")
	page.SetLayout(components.PageFlexLayout)
	page.AddCharts(
		averagesChart(responses),
		dailyChart(patterns),
		mealsChart(patterns),
		spikesChart(spikes),
	)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	return nil
}

func newValueLine(title, subtitle, xName, yName string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: subtitle,
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Type: "value",
			Name: xName,
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Type:  "value",
			Name:  yName,
			Scale: opts.Bool(true),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Bottom: "0"}),
	)
	return line
}

func averagesChart(responses models.FoodResponses) *charts.Line {
	line := newValueLine("Average response by category", "glucose relative to pre-meal baseline",
		"minutes since food", "mg/dL")

	for _, c := range models.RankedCategories {
		items := make([]opts.LineData, 0, len(responses.Averages[c]))
		for _, p := range responses.Averages[c] {
			items = append(items, opts.LineData{Value: []interface{}{p.MinutesSinceFood, p.AvgRelativeGlucose}})
		}
		line.AddSeries(string(c), items,
			charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true), ShowSymbol: opts.Bool(false)}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: categoryColor(c)}),
		)
	}
	return line
}

func dailyChart(patterns []models.DailyPattern) *charts.Line {
	line := newValueLine("Daily patterns", fmt.Sprintf("%d days", len(patterns)), "hour of day", "mg/dL")

	for _, p := range patterns {
		items := make([]opts.LineData, 0, len(p.GlucoseData))
		for _, hv := range p.GlucoseData {
			items = append(items, opts.LineData{Value: []interface{}{hv.HourOfDay, hv.Value}})
		}
		line.AddSeries(p.ParticipantID+" "+p.Date, items,
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
			charts.WithLineStyleOpts(opts.LineStyle{Width: 1}),
		)
	}
	return line
}

// estimatedColor marks meals inferred from rising glucose rather than logged
const estimatedColor = "#9ca3af"

func mealsChart(patterns []models.DailyPattern) *charts.Scatter {
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Meals in daily patterns",
			Subtitle: "glucose at the meal time",
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Type: "value",
			Name: "hour of day",
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Type:  "value",
			Name:  "mg/dL",
			Scale: opts.Bool(true),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Bottom: "0"}),
	)

	logged, estimated := mealPoints(patterns)
	scatter.AddSeries("Logged meals", logged,
		charts.WithItemStyleOpts(opts.ItemStyle{Color: defaultColor}))
	scatter.AddSeries("Estimated meals", estimated,
		charts.WithItemStyleOpts(opts.ItemStyle{Color: estimatedColor}))
	return scatter
}

// mealPoints splits the meal markers of every pattern into logged and estimated points
func mealPoints(patterns []models.DailyPattern) (logged, estimated []opts.ScatterData) {
	for _, p := range patterns {
		for _, m := range p.MealEvents {
			item := opts.ScatterData{
				Name:  p.ParticipantID + " " + m.Description,
				Value: []interface{}{m.HourOfDay, glucoseAt(p.GlucoseData, m.HourOfDay)},
			}
			if m.Estimated {
				estimated = append(estimated, item)
			} else {
				logged = append(logged, item)
			}
		}
	}
	return logged, estimated
}

// glucoseAt returns the value of the reading nearest to hour, 0 without readings
func glucoseAt(data []models.HourValue, hour float64) float64 {
	value, best := 0.0, math.Inf(1)
	for _, hv := range data {
		if d := math.Abs(hv.HourOfDay - hour); d < best {
			value, best = hv.Value, d
		}
	}
	return value
}

func spikesChart(spikes []models.SpikeEvent) *charts.Line {
	line := newValueLine("Spike events", fmt.Sprintf("%d events", len(spikes)), "minutes since food", "mg/dL")

	for _, s := range spikes {
		items := make([]opts.LineData, 0, len(s.ResponseCurve))
		for _, p := range s.ResponseCurve {
			minutes := p.Timestamp.Sub(s.FoodEvent.Timestamp).Minutes()
			items = append(items, opts.LineData{Value: []interface{}{minutes, p.Value}})
		}
		line.AddSeries(fmt.Sprintf("%s: %s", s.ParticipantID, s.FoodEvent.Description), items,
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: categoryColor(s.FoodEvent.Category)}),
		)
	}
	return line
}
