// Package app provides the main application logic
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mrcode/glucose-insights/internal/analysis"
	"github.com/mrcode/glucose-insights/internal/classify"
	"github.com/mrcode/glucose-insights/internal/config"
	"github.com/mrcode/glucose-insights/internal/export"
	"github.com/mrcode/glucose-insights/internal/metrics"
	"github.com/mrcode/glucose-insights/internal/models"
	"github.com/mrcode/glucose-insights/internal/normalize"
	"github.com/mrcode/glucose-insights/internal/notifications"
	"github.com/mrcode/glucose-insights/internal/report"
	"github.com/mrcode/glucose-insights/internal/source"
	"github.com/mrcode/glucose-insights/internal/storage"
)

// Report file names inside the output directory
const (
	ReportFile  = "report.html"
	PreviewsDir = "previews"
)

// Participant load statuses, used as the metrics label
const (
	statusLoaded         = "loaded"
	statusMissingGlucose = "missing_glucose"
	statusEmptyGlucose   = "empty_glucose"
	statusMissingFood    = "missing_food"
)

// Result describes a finished run
type Result struct {
	RunID        string
	StartedAt    time.Time
	Duration     time.Duration
	Participants []string // Participants with usable glucose
	Readings     int
	Datasets     *analysis.Datasets
	Files        []string // Every file written, in write order
}

// App struct represents the main application
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	metrics       *metrics.Metrics
	notifyManager *notifications.Manager
	classifier    *classify.Classifier
	out           io.Writer

	mu         sync.RWMutex
	lastResult *Result
	progress   models.Progress
}

// New creates a new App instance
func New(cfg *config.Config, logger *zap.Logger) *App {
	return &App{
		cfg:           cfg,
		logger:        logger,
		metrics:       metrics.New(),
		notifyManager: notifications.NewManager(cfg.Notify),
		classifier:    classify.NewDefault(),
		out:           os.Stdout,
	}
}

// SetNotifier replaces the notification manager
func (a *App) SetNotifier(m *notifications.Manager) {
	a.notifyManager = m
}

// SetOutput redirects the run summary
func (a *App) SetOutput(w io.Writer) {
	a.out = w
}

// Metrics returns the counters of the current or last run
func (a *App) Metrics() *metrics.Metrics {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.metrics
}

// GetProgress returns the analysis progress of the current run
func (a *App) GetProgress() models.Progress {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.progress
}

// LastResult returns the result of the last successful run, or nil
func (a *App) LastResult() *Result {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastResult
}

// Run loads every participant, builds the datasets and writes all outputs. When no participant
// has usable glucose data it returns models.ErrCohortEmpty and writes no dataset.
func (a *App) Run(ctx context.Context) (*Result, error) {
	result := &Result{
		RunID:     uuid.New().String(),
		StartedAt: time.Now(),
	}
	logger := a.logger.With(zap.String("run_id", result.RunID))

	// Counters cover a single run
	a.mu.Lock()
	a.metrics = metrics.New()
	a.progress = models.Progress{}
	a.mu.Unlock()

	logger.Info("Starting run",
		zap.String("data_dir", a.cfg.Input.Dir),
		zap.String("out_dir", a.cfg.Output.Dir),
		zap.Uint64("seed", a.cfg.Analysis.Seed))

	settings := a.cfg.Analysis.Clone()
	loader := source.NewLoader(a.cfg.Input)
	a.logDemographics(loader, logger)

	cohort, err := a.loadCohort(ctx, loader, settings, logger)
	if err == nil && cohort.Empty() {
		err = models.ErrCohortEmpty
	}
	if err != nil {
		return nil, a.abort(result, err, logger)
	}
	result.Participants = cohort.Participants()
	result.Readings = len(cohort.Glucose)

	analyzer := analysis.NewAnalyzer(settings, classify.NewRefiner(settings, classify.DefaultSecondaryTerms), logger)
	analyzer.OnProgress(func(p models.Progress) {
		a.mu.Lock()
		a.progress = p
		a.mu.Unlock()
		logger.Debug("Analysis progress", zap.String("stage", p.Stage), zap.Float64("progress", p.Progress))
	})

	datasets, err := analyzer.Analyze(cohort)
	if err != nil {
		return nil, a.abort(result, err, logger)
	}
	result.Datasets = datasets
	for name, buildErr := range datasets.Failed {
		logger.Error("Dataset builder failed", zap.String("dataset", name), zap.Error(buildErr))
		a.metrics.BuilderFailures.WithLabelValues(name).Inc()
	}

	if err := a.writeOutputs(result, cohort, logger); err != nil {
		return nil, a.abort(result, err, logger)
	}

	result.Duration = time.Since(result.StartedAt)
	a.recordDatasets(datasets)
	a.metrics.RunDuration.Set(result.Duration.Seconds())
	a.metrics.LastSuccess.SetToCurrentTime()
	a.writeMetrics(logger)

	if err := a.printSummary(result); err != nil {
		logger.Warn("Failed to print summary", zap.Error(err))
	}
	if err := a.notifyManager.NotifyRun(summarize(result, nil)); err != nil {
		logger.Warn("Notification error", zap.Error(err))
	}

	a.mu.Lock()
	a.lastResult = result
	a.mu.Unlock()

	logger.Info("Run complete",
		zap.Int("participants", len(result.Participants)),
		zap.Int("readings", result.Readings),
		zap.Int("files", len(result.Files)),
		zap.Duration("duration", result.Duration))
	return result, nil
}

// abort logs, records and notifies a failed run
func (a *App) abort(result *Result, err error, logger *zap.Logger) error {
	result.Duration = time.Since(result.StartedAt)
	if errors.Is(err, models.ErrCohortEmpty) {
		logger.Error("No usable glucose data in any participant, no outputs written",
			zap.String("data_dir", a.cfg.Input.Dir))
	} else {
		logger.Error("Run failed", zap.Error(err))
	}

	a.metrics.RunDuration.Set(result.Duration.Seconds())
	a.writeMetrics(logger)

	if notifyErr := a.notifyManager.NotifyRun(summarize(result, err)); notifyErr != nil {
		logger.Warn("Notification error", zap.Error(notifyErr))
	}
	return fmt.Errorf("run %s: %w", result.RunID, err)
}

// logDemographics reports the participant count of the demographics table
func (a *App) logDemographics(loader *source.Loader, logger *zap.Logger) {
	table, err := loader.LoadDemographics()
	if err != nil {
		logger.Warn("Demographics table unavailable", zap.Error(err))
		return
	}
	logger.Info("Loaded demographics", zap.Int("participants", table.Len()))
}

// loadCohort normalizes every participant, at most cfg.Workers at a time, and folds them
// into one cohort
func (a *App) loadCohort(ctx context.Context, loader *source.Loader, settings *models.Settings, logger *zap.Logger) (*analysis.Cohort, error) {
	ids := loader.Participants()
	normalizer := normalize.New(settings, a.classifier, logger)

	participants := make([]*analysis.Participant, len(ids))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Workers)

	for i, id := range ids {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			participants[i] = a.loadParticipant(id, loader, normalizer, logger.With(zap.String("participant", id)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("loading participants: %w", err)
	}

	loaded := make([]analysis.Participant, 0, len(participants))
	for _, p := range participants {
		if p != nil {
			loaded = append(loaded, *p)
		}
	}
	logger.Info("Loaded cohort", zap.Int("participants", len(loaded)), zap.Int("expected", len(ids)))
	return analysis.NewCohort(loaded), nil
}

// loadParticipant reads and normalizes one participant. Returns nil when the participant
// has no usable glucose data.
func (a *App) loadParticipant(id string, loader *source.Loader, normalizer *normalize.Normalizer, logger *zap.Logger) *analysis.Participant {
	glucoseTable, err := loader.LoadGlucose(id)
	if err != nil {
		logger.Warn("Skipping participant without glucose data", zap.Error(err))
		a.metrics.Participants.WithLabelValues(statusMissingGlucose).Inc()
		return nil
	}

	readings, gdiag := normalizer.Glucose(id, glucoseTable)
	a.recordGlucose(gdiag)
	if len(readings) == 0 {
		logger.Warn("Skipping participant without usable glucose readings", zap.Int("rows", gdiag.Rows))
		a.metrics.Participants.WithLabelValues(statusEmptyGlucose).Inc()
		return nil
	}

	p := &analysis.Participant{ID: id, Glucose: readings}

	foodTable, err := loader.LoadFood(id)
	if err != nil {
		logger.Warn("No food log, continuing with glucose only", zap.Error(err))
		a.metrics.Participants.WithLabelValues(statusMissingFood).Inc()
		return p
	}

	food, fdiag := normalizer.Food(id, foodTable, readings[0].Timestamp)
	a.metrics.TimestampParse.WithLabelValues(string(fdiag.Strategy)).Inc()
	a.metrics.DroppedRows.WithLabelValues("food", "timestamp").Add(float64(fdiag.UnparseableTimestamps))
	p.Food = food

	a.metrics.Participants.WithLabelValues(statusLoaded).Inc()
	return p
}

func (a *App) recordGlucose(d normalize.GlucoseDiagnostics) {
	a.metrics.Readings.Add(float64(d.Readings))
	a.metrics.Interpolated.Add(float64(d.Interpolated))
	a.metrics.DroppedRows.WithLabelValues("glucose", "event_type").Add(float64(d.NonGlucoseEvents))
	a.metrics.DroppedRows.WithLabelValues("glucose", "timestamp").Add(float64(d.UnparseableTimestamps))
	a.metrics.DroppedRows.WithLabelValues("glucose", "value").Add(float64(d.UnparseableValues))
	a.metrics.DroppedRows.WithLabelValues("glucose", "missing_value").Add(float64(d.DroppedMissing))
}

func (a *App) recordDatasets(d *analysis.Datasets) {
	for _, f := range d.Food {
		a.metrics.FoodEvents.WithLabelValues(string(f.Category)).Inc()
	}
	a.metrics.DailyPatterns.Add(float64(len(d.DailyPatterns)))
	for category, examples := range d.FoodResponses.Examples {
		for _, w := range examples {
			a.metrics.Examples.WithLabelValues(string(category), metrics.Source(w.IsSynthetic)).Inc()
		}
	}
	a.metrics.SpikeEvents.WithLabelValues(metrics.Source(d.SpikeStats.Synthetic)).Add(float64(len(d.SpikeEvents)))
}

// writeOutputs writes the tables, the three documents and the optional extras
func (a *App) writeOutputs(result *Result, cohort *analysis.Cohort, logger *zap.Logger) error {
	d := result.Datasets
	w, err := export.NewWriter(a.cfg.Output.Dir)
	if err != nil {
		return err
	}

	if err := w.WriteGlucoseTable(cohort.Glucose); err != nil {
		return err
	}
	if err := w.WriteFoodTable(d.Food); err != nil {
		return err
	}
	result.Files = append(result.Files, w.Path(export.GlucoseTableFile), w.Path(export.FoodTableFile))

	documents := []struct {
		name string
		v    interface{}
	}{
		{export.DailyPatternsFile, d.DailyPatterns},
		{export.FoodResponsesFile, d.FoodResponses},
		{export.SpikeEventsFile, d.SpikeEvents},
	}
	for _, doc := range documents {
		if err := w.WriteJSON(doc.name, doc.v); err != nil {
			return err
		}
		result.Files = append(result.Files, w.Path(doc.name))
	}

	if a.cfg.Output.Report {
		path := w.Path(ReportFile)
		if err := writeReport(path, d); err != nil {
			return err
		}
		result.Files = append(result.Files, path)
	}

	if a.cfg.Output.Previews {
		written, err := report.WritePreviews(filepath.Join(a.cfg.Output.Dir, PreviewsDir), d.DailyPatterns, *d.FoodResponses)
		if err != nil {
			return err
		}
		result.Files = append(result.Files, written...)
	}

	if a.cfg.Output.SQLite != "" {
		if err := a.store(result, cohort); err != nil {
			return err
		}
		result.Files = append(result.Files, a.cfg.Output.SQLite)
	}

	logger.Info("Wrote outputs", zap.Strings("files", result.Files))
	return nil
}

func writeReport(path string, d *analysis.Datasets) error {
	f, err := os.Create(path) //nolint:gosec // Path is built from the configured output directory
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	if err := report.WriteHTML(f, d.DailyPatterns, *d.FoodResponses, d.SpikeEvents); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func (a *App) store(result *Result, cohort *analysis.Cohort) error {
	db, err := storage.NewSQLiteStorage(a.cfg.Output.SQLite)
	if err != nil {
		return err
	}
	defer func() {
		_ = db.Close()
	}()

	d := result.Datasets
	run := storage.Run{
		ID:                result.RunID,
		StartedAt:         result.StartedAt,
		FinishedAt:        time.Now(),
		Participants:      len(result.Participants),
		Readings:          result.Readings,
		FoodEvents:        len(d.Food),
		SyntheticExamples: d.FoodResponses.SyntheticCount(),
		SyntheticSpikes:   d.SpikeStats.Synthetic,
		Failed:            strings.Join(failedNames(d), ","),
	}
	return db.SaveRun(run, cohort.Glucose, d.Food)
}

func (a *App) writeMetrics(logger *zap.Logger) {
	if a.cfg.Output.MetricsFile == "" {
		return
	}
	if err := a.metrics.WriteTextfile(a.cfg.Output.MetricsFile); err != nil {
		logger.Warn("Failed to write metrics", zap.Error(err))
	}
}

// printSummary writes a short report of the run with a sparkline per daily pattern
func (a *App) printSummary(result *Result) error {
	d := result.Datasets
	if _, err := fmt.Fprintf(a.out, "Run %s: %d participants, %d readings, %d food events\n",
		result.RunID, len(result.Participants), result.Readings, len(d.Food)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(a.out, "Food responses: %d real, %d synthetic; spike events: %d (%s)\n",
		d.FoodResponses.ExampleCount()-d.FoodResponses.SyntheticCount(), d.FoodResponses.SyntheticCount(),
		len(d.SpikeEvents), metrics.Source(d.SpikeStats.Synthetic)); err != nil {
		return err
	}
	if failed := failedNames(d); len(failed) > 0 {
		if _, err := fmt.Fprintf(a.out, "Failed datasets: %s\n", strings.Join(failed, ", ")); err != nil {
			return err
		}
	}
	return report.WriteSummary(a.out, d.DailyPatterns)
}

func failedNames(d *analysis.Datasets) []string {
	names := make([]string, 0, len(d.Failed))
	for name := range d.Failed {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func summarize(result *Result, err error) notifications.Summary {
	s := notifications.Summary{
		RunID:        result.RunID,
		Participants: len(result.Participants),
		Readings:     result.Readings,
		Duration:     result.Duration,
		Err:          err,
	}
	if d := result.Datasets; d != nil {
		synthetic := d.FoodResponses.SyntheticCount()
		s.FoodEvents = len(d.Food)
		s.DailyPatterns = len(d.DailyPatterns)
		s.RealExamples = d.FoodResponses.ExampleCount() - synthetic
		s.SyntheticExamples = synthetic
		s.SpikeEvents = len(d.SpikeEvents)
		s.SyntheticGame = d.SpikeStats.Synthetic
		s.Failed = failedNames(d)
	}
	return s
}
