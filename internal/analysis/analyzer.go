package analysis

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mrcode/glucose-insights/internal/classify"
	"github.com/mrcode/glucose-insights/internal/models"
)

// Dataset names
const (
	DatasetDailyPatterns = "daily_patterns"
	DatasetFoodResponses = "food_responses"
	DatasetSpikeEvents   = "spike_events"
)

// Datasets holds the three derived datasets and what went into them
type Datasets struct {
	DailyPatterns []models.DailyPattern
	FoodResponses *models.FoodResponses
	SpikeEvents   []models.SpikeEvent

	Food          []models.FoodEvent // Food table after refinement
	RefineStats   classify.RefineStats
	ResponseStats ResponseStats
	SpikeStats    SpikeStats
	Failed        map[string]error // Builders that failed and were replaced by empty results
}

// Analyzer builds the datasets of a cohort
type Analyzer struct {
	mu         sync.RWMutex
	progress   *models.Progress
	onProgress func(models.Progress)

	settings *models.Settings
	refiner  *classify.Refiner
	logger   *zap.Logger
}

// NewAnalyzer creates a new Analyzer instance
func NewAnalyzer(settings *models.Settings, refiner *classify.Refiner, logger *zap.Logger) *Analyzer {
	return &Analyzer{
		progress: &models.Progress{},
		settings: settings,
		refiner:  refiner,
		logger:   logger,
	}
}

// OnProgress registers a callback invoked at every stage change
func (a *Analyzer) OnProgress(fn func(models.Progress)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onProgress = fn
}

// GetProgress returns the current build progress
func (a *Analyzer) GetProgress() models.Progress {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return *a.progress
}

// Analyze refines the cohort's food table and runs the three dataset builders. A builder that
// fails yields an empty result without stopping the others. Returns models.ErrCohortEmpty when
// the cohort has no glucose readings.
func (a *Analyzer) Analyze(cohort *Cohort) (*Datasets, error) {
	a.mu.Lock()
	a.progress = &models.Progress{
		Stage:           "Initializing",
		TotalFoodEvents: len(cohort.Food),
		TotalReadings:   len(cohort.Glucose),
		StartedAt:       time.Now(),
	}
	a.mu.Unlock()

	if cohort.Empty() {
		a.fail(models.ErrCohortEmpty)
		return nil, models.ErrCohortEmpty
	}

	// Stage 1: Second classification pass, producing a new food table
	a.updateProgress("Refining food categories", 10)
	food, refineStats := a.refiner.Refine(cohort.Food)
	refined := cohort.WithFood(food)
	a.logger.Info("Refined food categories",
		zap.Int("by_carbs", refineStats.ByCarbs),
		zap.Int("by_terms", refineStats.ByTerms),
		zap.Int("unknown", refineStats.Remaining))

	result := &Datasets{
		Food:        food,
		RefineStats: refineStats,
		Failed:      make(map[string]error),
	}

	// Stage 2: Daily patterns
	a.updateProgress("Building daily patterns", 25)
	if err := a.isolate(DatasetDailyPatterns, func() error {
		result.DailyPatterns = a.BuildDailyPatterns(refined)
		return nil
	}); err != nil {
		result.Failed[DatasetDailyPatterns] = err
		result.DailyPatterns = []models.DailyPattern{}
	}

	// Stage 3: Food responses
	a.updateProgress("Building food responses", 50)
	if err := a.isolate(DatasetFoodResponses, func() error {
		result.FoodResponses, result.ResponseStats = a.BuildFoodResponses(refined)
		return nil
	}); err != nil {
		result.Failed[DatasetFoodResponses] = err
		result.FoodResponses = &models.FoodResponses{}
	}

	// Stage 4: Spike events
	a.updateProgress("Building spike events", 80)
	if err := a.isolate(DatasetSpikeEvents, func() error {
		result.SpikeEvents, result.SpikeStats = a.BuildSpikeEvents(refined)
		return nil
	}); err != nil {
		result.Failed[DatasetSpikeEvents] = err
		result.SpikeEvents = []models.SpikeEvent{}
	}

	a.updateProgress("Complete", 100)
	return result, nil
}

// isolate runs build, converting a returned error or a panic into a logged failure
func (a *Analyzer) isolate(name string, build func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s builder panicked: %v", name, r)
		}
		if err != nil {
			a.logger.Error("Dataset builder failed", zap.String("dataset", name), zap.Error(err))
		}
	}()
	return build()
}

func (a *Analyzer) updateProgress(stage string, progress float64) {
	a.mu.Lock()
	a.progress.Stage = stage
	a.progress.Progress = progress

	elapsed := time.Since(a.progress.StartedAt).Seconds()
	if progress > 0 {
		a.progress.EstimatedTimeRemaining = (elapsed / progress) * (100 - progress)
	}
	snapshot, fn := *a.progress, a.onProgress
	a.mu.Unlock()

	if fn != nil {
		fn(snapshot)
	}
}

func (a *Analyzer) advanceFood() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.progress.FoodEventsProcessed++
}

func (a *Analyzer) fail(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.progress.Stage = "Failed"
	a.progress.Error = err.Error()
}
