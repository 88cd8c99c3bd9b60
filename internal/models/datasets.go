package models

import (
	"bytes"
	"encoding/json"
	"time"
)

// ResponsePoint is one reading of a food-response window
type ResponsePoint struct {
	MinutesSinceFood float64 `json:"MinutesSinceFood"`
	Value            float64 `json:"Value"`           // Absolute glucose, mg/dL
	RelativeGlucose  float64 `json:"RelativeGlucose"` // Value minus the window baseline
}

// ResponseWindow is the glucose trajectory around one food event
type ResponseWindow struct {
	FoodDescription string          `json:"FoodDescription"`
	ParticipantID   string          `json:"ParticipantID"`
	EventTime       time.Time       `json:"Timestamp"`
	Points          []ResponsePoint `json:"Response"`
	IsSynthetic     bool            `json:"IsSynthetic"`
	Category        Category        `json:"-"`
	Baseline        float64         `json:"-"`
}

// MarshalJSON implements custom JSON marshaling
func (w ResponseWindow) MarshalJSON() ([]byte, error) {
	points := w.Points
	if points == nil {
		points = []ResponsePoint{}
	}
	return json.Marshal(&struct {
		FoodDescription string          `json:"FoodDescription"`
		ParticipantID   string          `json:"ParticipantID"`
		EventTime       string          `json:"Timestamp"`
		Points          []ResponsePoint `json:"Response"`
		IsSynthetic     bool            `json:"IsSynthetic"`
	}{
		FoodDescription: w.FoodDescription,
		ParticipantID:   w.ParticipantID,
		EventTime:       FormatISO(w.EventTime),
		Points:          points,
		IsSynthetic:     w.IsSynthetic,
	})
}

// AveragePoint is one offset of a category average curve
type AveragePoint struct {
	MinutesSinceFood   float64 `json:"MinutesSinceFood"`
	AvgRelativeGlucose float64 `json:"AvgRelativeGlucose"`
}

// FoodResponses is the food-response document: examples per category plus sparse average curves
type FoodResponses struct {
	Examples map[Category][]ResponseWindow
	Averages map[Category][]AveragePoint
}

// NewFoodResponses creates a document with an empty example list per ranked category
func NewFoodResponses() *FoodResponses {
	r := &FoodResponses{
		Examples: make(map[Category][]ResponseWindow, len(RankedCategories)),
		Averages: make(map[Category][]AveragePoint, len(RankedCategories)),
	}
	for _, c := range RankedCategories {
		r.Examples[c] = []ResponseWindow{}
	}
	return r
}

// ExampleCount returns the number of examples across all categories
func (r *FoodResponses) ExampleCount() int {
	n := 0
	for _, examples := range r.Examples {
		n += len(examples)
	}
	return n
}

// SyntheticCount returns the number of synthetic examples across all categories
func (r *FoodResponses) SyntheticCount() int {
	n := 0
	for _, examples := range r.Examples {
		for _, e := range examples {
			if e.IsSynthetic {
				n++
			}
		}
	}
	return n
}

// MarshalJSON writes the category lists first, then the "<category>_average" curves, in ranked order
func (r FoodResponses) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	writeField := func(key string, value interface{}) error {
		data, err := json.Marshal(value)
		if err != nil {
			return err
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		k, _ := json.Marshal(key)
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(data)
		return nil
	}

	for _, c := range RankedCategories {
		examples, ok := r.Examples[c]
		if !ok {
			continue
		}
		if examples == nil {
			examples = []ResponseWindow{}
		}
		if err := writeField(string(c), examples); err != nil {
			return nil, err
		}
	}
	for _, c := range RankedCategories {
		avg := r.Averages[c]
		if len(avg) == 0 {
			continue
		}
		if err := writeField(c.AverageKey(), avg); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MealMarker is a meal positioned within a daily pattern
type MealMarker struct {
	HourOfDay   float64  `json:"HourOfDay"`
	Description string   `json:"Description"`
	Category    Category `json:"GlycemicCategory"`
	Estimated   bool     `json:"-"` // Derived from the glucose trace, not logged
}

// DailyPattern is one representative participant-day
type DailyPattern struct {
	ParticipantID string       `json:"ParticipantID"`
	Date          string       `json:"Date"`
	GlucoseData   []HourValue  `json:"GlucoseData"`
	MealEvents    []MealMarker `json:"MealEvents"`
}

// SpikeEvent pairs a food event with the glucose rise it plausibly caused
type SpikeEvent struct {
	ParticipantID string       `json:"ParticipantID"`
	FoodEvent     FoodEvent    `json:"FoodEvent"`
	SpikeTime     time.Time    `json:"SpikeTime"`
	SpikeValue    float64      `json:"SpikeValue"`
	BaselineValue float64      `json:"BaselineValue"`
	ResponseCurve []CurvePoint `json:"ResponseCurve"`
	IsSynthetic   bool         `json:"-"`
}

// MarshalJSON implements custom JSON marshaling
func (s SpikeEvent) MarshalJSON() ([]byte, error) {
	type Alias SpikeEvent
	curve := s.ResponseCurve
	if curve == nil {
		curve = []CurvePoint{}
	}
	return json.Marshal(&struct {
		Alias
		SpikeTime     string       `json:"SpikeTime"`
		ResponseCurve []CurvePoint `json:"ResponseCurve"`
	}{
		Alias:         Alias(s),
		SpikeTime:     FormatISO(s.SpikeTime),
		ResponseCurve: curve,
	})
}

// Progress represents the progress of a dataset build
type Progress struct {
	Stage                  string    `json:"stage"`    // Current stage name
	Progress               float64   `json:"progress"` // 0-100 percentage
	FoodEventsProcessed    int       `json:"foodEventsProcessed"`
	TotalFoodEvents        int       `json:"totalFoodEvents"`
	TotalReadings          int       `json:"totalReadings"`
	StartedAt              time.Time `json:"startedAt"`
	EstimatedTimeRemaining float64   `json:"estimatedTimeRemaining"` // Seconds
	Error                  string    `json:"error,omitempty"`
}
