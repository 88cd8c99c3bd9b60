// Package export writes the combined tables and the derived JSON documents
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/mrcode/glucose-insights/internal/models"
)

// Output file names
const (
	GlucoseTableFile  = "all_glucose_data.csv"
	FoodTableFile     = "all_food_events.csv"
	DailyPatternsFile = "daily_patterns.json"
	FoodResponsesFile = "food_responses.json"
	SpikeEventsFile   = "spike_events.json"
)

// Writer writes output files into one directory
type Writer struct {
	dir string
}

// NewWriter creates a Writer, creating dir if needed
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Writer{dir: dir}, nil
}

// Path returns the full path of an output file
func (w *Writer) Path(name string) string {
	return filepath.Join(w.dir, name)
}

// WriteGlucoseTable writes the combined glucose readings
func (w *Writer) WriteGlucoseTable(readings []models.GlucoseReading) error {
	rows := make([][]string, 0, len(readings)+1)
	rows = append(rows, []string{"Timestamp", "Value", "ParticipantID", "Interpolated"})
	for _, r := range readings {
		rows = append(rows, []string{
			r.Timestamp.Format(models.TableLayout),
			formatFloat(r.Value),
			r.ParticipantID,
			strconv.FormatBool(r.Interpolated),
		})
	}
	return w.writeCSV(GlucoseTableFile, rows)
}

// WriteFoodTable writes the combined food events with their final categories
func (w *Writer) WriteFoodTable(events []models.FoodEvent) error {
	rows := make([][]string, 0, len(events)+1)
	rows = append(rows, []string{"Timestamp", "Description", "GlycemicCategory", "ParticipantID"})
	for _, e := range events {
		rows = append(rows, []string{
			e.Timestamp.Format(models.TableLayout),
			e.Description,
			string(e.Category),
			e.ParticipantID,
		})
	}
	return w.writeCSV(FoodTableFile, rows)
}

// WriteJSON writes v as indented JSON
func (w *Writer) WriteJSON(name string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	return w.write(name, append(data, '\n'))
}

func (w *Writer) writeCSV(name string, rows [][]string) error {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	return w.write(name, buf.Bytes())
}

// write replaces name atomically
func (w *Writer) write(name string, data []byte) error {
	path := w.Path(name)
	tmp, err := os.CreateTemp(w.dir, "."+name+".*")
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
