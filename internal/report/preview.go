package report

import (
	"bytes"
	"fmt"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/mrcode/glucose-insights/internal/models"
)

const (
	previewWidth  = 480
	previewHeight = 240
	previewMargin = 32
	defaultColor  = "#60a5fa"
)

// categoryColor returns the line color of a glycemic category
func categoryColor(c models.Category) string {
	switch c {
	case models.CategoryHigh:
		return "#ef4444" // Red
	case models.CategoryMedium:
		return "#f97316" // Orange
	case models.CategoryLow:
		return "#4ade80" // Green
	default:
		return defaultColor
	}
}

// RenderCurve draws ys against xs as a PNG line chart
func RenderCurve(title string, xs, ys []float64, hex string) ([]byte, error) {
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("curve %q: %d x values for %d y values", title, len(xs), len(ys))
	}

	dc := gg.NewContext(previewWidth, previewHeight)
	dc.SetColor(color.White)
	dc.Clear()

	plotW := float64(previewWidth - 2*previewMargin)
	plotH := float64(previewHeight - 2*previewMargin)

	// Axes
	dc.SetRGB255(156, 163, 175)
	dc.SetLineWidth(1)
	dc.DrawLine(previewMargin, previewMargin, previewMargin, previewMargin+plotH)
	dc.DrawLine(previewMargin, previewMargin+plotH, previewMargin+plotW, previewMargin+plotH)
	dc.Stroke()

	if err := loadFont(dc, 14); err == nil {
		dc.SetColor(color.Black)
		dc.DrawStringAnchored(title, previewWidth/2, previewMargin/2, 0.5, 0.5)
	}

	if len(xs) < 2 {
		return encodePNG(dc)
	}

	xMin, xMax := bounds(xs)
	yMin, yMax := bounds(ys)
	if xMax == xMin {
		xMax = xMin + 1
	}
	if yMax == yMin {
		yMin, yMax = yMin-1, yMax+1
	}

	r, g, b := parseHexColor(hex)
	dc.SetRGB255(int(r), int(g), int(b))
	dc.SetLineWidth(2)
	for i := range xs {
		px := previewMargin + (xs[i]-xMin)/(xMax-xMin)*plotW
		py := previewMargin + plotH - (ys[i]-yMin)/(yMax-yMin)*plotH
		if i == 0 {
			dc.MoveTo(px, py)
		} else {
			dc.LineTo(px, py)
		}
	}
	dc.Stroke()

	return encodePNG(dc)
}

// WritePreviews renders one PNG per category average and per daily pattern into dir
func WritePreviews(dir string, patterns []models.DailyPattern, responses models.FoodResponses) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create preview directory: %w", err)
	}

	var written []string
	save := func(name string, data []byte) error {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("failed to write preview %s: %w", name, err)
		}
		written = append(written, path)
		return nil
	}

	for _, c := range models.RankedCategories {
		avg := responses.Averages[c]
		if len(avg) == 0 {
			continue
		}
		xs := make([]float64, len(avg))
		ys := make([]float64, len(avg))
		for i, p := range avg {
			xs[i] = p.MinutesSinceFood
			ys[i] = p.AvgRelativeGlucose
		}
		data, err := RenderCurve(c.AverageKey(), xs, ys, categoryColor(c))
		if err != nil {
			return written, err
		}
		if err := save(c.AverageKey()+".png", data); err != nil {
			return written, err
		}
	}

	for _, p := range patterns {
		xs := make([]float64, len(p.GlucoseData))
		ys := make([]float64, len(p.GlucoseData))
		for i, hv := range p.GlucoseData {
			xs[i] = hv.HourOfDay
			ys[i] = hv.Value
		}
		data, err := RenderCurve(p.ParticipantID+" "+p.Date, xs, ys, defaultColor)
		if err != nil {
			return written, err
		}
		if err := save(fmt.Sprintf("daily_%s_%s.png", p.ParticipantID, p.Date), data); err != nil {
			return written, err
		}
	}

	return written, nil
}

func encodePNG(dc *gg.Context) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, dc.Image()); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// loadFont helper to load font safely
func loadFont(dc *gg.Context, size float64) error {
	font, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return err
	}
	dc.SetFontFace(truetype.NewFace(font, &truetype.Options{Size: size}))
	return nil
}

// parseHexColor parses a hex color string to RGB values
func parseHexColor(hex string) (r, g, b byte) {
	if len(hex) == 7 && hex[0] == '#' {
		_, _ = fmt.Sscanf(hex, "#%02x%02x%02x", &r, &g, &b)
	}
	return
}
