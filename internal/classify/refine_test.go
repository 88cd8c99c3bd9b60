package classify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrcode/glucose-insights/internal/models"
)

func TestRefiner_ByCarbs(t *testing.T) {
	r := NewRefiner(models.DefaultSettings(), DefaultSecondaryTerms)

	tests := []struct {
		grams    float64
		expected models.Category
	}{
		{45, models.CategoryHigh},
		{30.5, models.CategoryHigh},
		{30, models.CategoryMedium},
		{16, models.CategoryMedium},
		{15, models.CategoryLow},
		{0, models.CategoryLow},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, r.ByCarbs(tt.grams), "grams=%v", tt.grams)
	}
}

func TestRefiner_Refine(t *testing.T) {
	r := NewRefiner(models.DefaultSettings(), DefaultSecondaryTerms)
	at := time.Date(2020, 2, 13, 8, 0, 0, 0, time.UTC)

	events := []models.FoodEvent{
		{Timestamp: at, Description: "Broccoli", Category: models.CategoryLow, Carbs: models.Float(40)},
		{Timestamp: at, Description: "Protein bar", Category: models.CategoryUnknown},
		{Timestamp: at, Description: "Frosted flakes", Category: models.CategoryUnknown},
		{Timestamp: at, Description: "Mystery stew", Category: models.CategoryUnknown, Carbs: models.Float(20)},
		{Timestamp: at, Description: "Banana", Category: models.CategoryMedium},
	}

	refined, stats := r.Refine(events)
	require.Len(t, refined, len(events))

	assert.Equal(t, models.CategoryHigh, refined[0].Category, "carb threshold overrides description")
	assert.Equal(t, models.CategoryUnknown, refined[1].Category)
	assert.Equal(t, models.CategoryHigh, refined[2].Category, "secondary term")
	assert.Equal(t, models.CategoryMedium, refined[3].Category, "carbs take precedence over secondary terms")
	assert.Equal(t, models.CategoryMedium, refined[4].Category, "untouched")

	assert.Equal(t, RefineStats{ByCarbs: 2, ByTerms: 1, Remaining: 1}, stats)

	assert.Equal(t, models.CategoryLow, events[0].Category, "input table must not be modified")
	assert.Equal(t, models.CategoryUnknown, events[2].Category, "input table must not be modified")
}
