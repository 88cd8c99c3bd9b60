package models

import (
	"encoding/json"
	"time"
)

// Category is the glycemic-impact label of a food
type Category string

// Glycemic categories
const (
	CategoryHigh    Category = "high"
	CategoryMedium  Category = "medium"
	CategoryLow     Category = "low"
	CategoryUnknown Category = "unknown"
)

// RankedCategories lists the known categories in priority order
var RankedCategories = []Category{CategoryHigh, CategoryMedium, CategoryLow}

// ParseCategory returns the category named s
func ParseCategory(s string) (Category, bool) {
	switch Category(s) {
	case CategoryHigh, CategoryMedium, CategoryLow, CategoryUnknown:
		return Category(s), true
	}
	return CategoryUnknown, false
}

// IsKnown reports whether c is one of the ranked categories
func (c Category) IsKnown() bool {
	return c == CategoryHigh || c == CategoryMedium || c == CategoryLow
}

// AverageKey returns the document key holding the average curve of c
func (c Category) AverageKey() string {
	return string(c) + "_average"
}

// FoodEvent represents a logged food entry
type FoodEvent struct {
	ParticipantID string    `json:"ParticipantID,omitempty"`
	Timestamp     time.Time `json:"Timestamp"`
	Description   string    `json:"Description"`
	Category      Category  `json:"GlycemicCategory"`

	// Carbohydrate grams from the food log, nil when the log carries none for this row
	Carbs *float64 `json:"-"`
	// Timestamp was synthesized on a fixed cadence because the log's times could not be parsed
	SyntheticTime bool `json:"-"`
}

// HasCarbs returns true if the entry carries a carbohydrate amount
func (f *FoodEvent) HasCarbs() bool {
	return f.Carbs != nil
}

// Date returns the calendar day of the event
func (f *FoodEvent) Date() string {
	return f.Timestamp.Format(DateLayout)
}

// WithCategory returns a copy of f labelled c
func (f FoodEvent) WithCategory(c Category) FoodEvent {
	f.Category = c
	return f
}

// MarshalJSON implements custom JSON marshaling
func (f FoodEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Timestamp     string   `json:"Timestamp"`
		Description   string   `json:"Description"`
		Category      Category `json:"GlycemicCategory"`
		ParticipantID string   `json:"ParticipantID,omitempty"`
	}{
		Timestamp:     FormatISO(f.Timestamp),
		Description:   f.Description,
		Category:      f.Category,
		ParticipantID: f.ParticipantID,
	})
}

// Float returns a pointer to v
func Float(v float64) *float64 {
	return &v
}
