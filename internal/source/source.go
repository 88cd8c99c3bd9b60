// Package source locates and reads the per-participant CSV exports of a cohort
package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mrcode/glucose-insights/internal/models"
)

// Layout describes where a cohort's files live
type Layout struct {
	Dir              string `mapstructure:"data_dir"`
	GlucosePattern   string `mapstructure:"glucose_pattern"` // fmt pattern taking the participant id
	FoodPattern      string `mapstructure:"food_pattern"`
	Demographics     string `mapstructure:"demographics"`
	FirstParticipant int    `mapstructure:"first_participant"`
	LastParticipant  int    `mapstructure:"last_participant"`
}

// DefaultLayout returns the layout of the reference cohort export rooted at dir
func DefaultLayout(dir string) Layout {
	return Layout{
		Dir:              dir,
		GlucosePattern:   "Dexcom_%s.csv",
		FoodPattern:      "Food_Log_%s.csv",
		Demographics:     "Demographics.csv",
		FirstParticipant: 1,
		LastParticipant:  16,
	}
}

// ParticipantID formats a numeric participant id the way file names carry it
func ParticipantID(n int) string {
	return fmt.Sprintf("%03d", n)
}

// Table is a raw CSV file: a header row and the data rows beneath it
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// Column returns the index of the header named exactly name, or -1
func (t *Table) Column(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// FirstColumn returns the first of names present in the header, or -1
func (t *Table) FirstColumn(names ...string) int {
	for _, name := range names {
		if i := t.Column(name); i >= 0 {
			return i
		}
	}
	return -1
}

// Cell returns row's value in column col, or "" when the row is short
func (t *Table) Cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

// Len returns the number of data rows
func (t *Table) Len() int {
	return len(t.Rows)
}

// ReadTable parses CSV from r; ragged rows are kept as they are
func ReadTable(name string, r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s: %w", name, models.ErrMissingSource)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", name, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	table := &Table{Name: name, Header: header}
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// Loader reads cohort files described by a Layout
type Loader struct {
	layout Layout
}

// NewLoader creates a new Loader
func NewLoader(layout Layout) *Loader {
	return &Loader{layout: layout}
}

// Participants returns the ids of the configured participant range in ascending order
func (l *Loader) Participants() []string {
	var ids []string
	for n := l.layout.FirstParticipant; n <= l.layout.LastParticipant; n++ {
		ids = append(ids, ParticipantID(n))
	}
	return ids
}

// GlucosePath returns the glucose export path of a participant
func (l *Loader) GlucosePath(id string) string {
	return filepath.Join(l.layout.Dir, fmt.Sprintf(l.layout.GlucosePattern, id))
}

// FoodPath returns the food log path of a participant
func (l *Loader) FoodPath(id string) string {
	return filepath.Join(l.layout.Dir, fmt.Sprintf(l.layout.FoodPattern, id))
}

// LoadGlucose reads a participant's glucose export
func (l *Loader) LoadGlucose(id string) (*Table, error) {
	return l.load(l.GlucosePath(id))
}

// LoadFood reads a participant's food log
func (l *Loader) LoadFood(id string) (*Table, error) {
	return l.load(l.FoodPath(id))
}

// LoadDemographics reads the cohort demographics table
func (l *Loader) LoadDemographics() (*Table, error) {
	return l.load(filepath.Join(l.layout.Dir, l.layout.Demographics))
}

// load returns models.ErrMissingSource for absent files and files without data rows
func (l *Loader) load(path string) (*Table, error) {
	f, err := os.Open(path) //nolint:gosec // Path is built from the configured data directory
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", path, models.ErrMissingSource)
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	table, err := ReadTable(filepath.Base(path), f)
	if err != nil {
		return nil, err
	}
	if table.Len() == 0 {
		return nil, fmt.Errorf("%s has no rows: %w", path, models.ErrMissingSource)
	}
	return table, nil
}
