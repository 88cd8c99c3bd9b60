package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrcode/glucose-insights/internal/config"
	"github.com/mrcode/glucose-insights/internal/export"
	"github.com/mrcode/glucose-insights/internal/logging"
	"github.com/mrcode/glucose-insights/internal/models"
	"github.com/mrcode/glucose-insights/internal/notifications"
	"github.com/mrcode/glucose-insights/internal/source"
	"github.com/mrcode/glucose-insights/internal/storage"
)

var day0 = time.Date(2020, 2, 13, 0, 0, 0, 0, time.UTC)

// writeGlucose writes a 24h trace at 5-minute cadence that rises after 08:00
func writeGlucose(t *testing.T, path string) {
	t.Helper()
	var b strings.Builder
	b.WriteString("Index,Timestamp (YYYY-MM-DDThh:mm:ss),Event Type,Glucose Value (mg/dL)\n")
	for i := 0; i < 288; i++ {
		at := day0.Add(time.Duration(i) * 5 * time.Minute)
		value := 100.0
		if m := at.Sub(day0.Add(8 * time.Hour)).Minutes(); m > 0 && m <= 120 {
			value += 60 - abs(m-60)
		}
		fmt.Fprintf(&b, "%d,%s,EGV,%.0f\n", i+1, at.Format("2006-01-02T15:04:05"), value)
	}
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	dataDir := t.TempDir()
	layout := source.DefaultLayout(dataDir)
	layout.LastParticipant = 3

	writeGlucose(t, filepath.Join(dataDir, "Dexcom_001.csv"))
	writeGlucose(t, filepath.Join(dataDir, "Dexcom_003.csv"))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "Food_Log_001.csv"), []byte(
		"date,time_begin,logged_food,total_carb\n"+
			"2020-02-13,2020-02-13 08:00:00,Banana,27\n"+
			"2020-02-13,2020-02-13 12:30:00,Grilled chicken salad,\n"+
			"2020-02-13,2020-02-13 19:00:00,White rice,45\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "Demographics.csv"), []byte(
		"ID,Gender,HbA1c\n1,MALE,5.5\n2,FEMALE,5.7\n3,FEMALE,6.1\n"), 0o644))

	return &config.Config{
		Input:    layout,
		Output:   config.OutputConfig{Dir: filepath.Join(t.TempDir(), "processed_data"), Report: true},
		Analysis: *models.DefaultSettings(),
		Logging:  logging.DefaultConfig(),
		Notify:   notifications.Config{Enabled: true, OnSuccess: true, OnFailure: true},
		Workers:  2,
	}
}

func newTestApp(cfg *config.Config) (*App, *bytes.Buffer, *[]string) {
	var titles []string
	a := New(cfg, logging.Nop())
	a.SetNotifier(notifications.NewManagerWithSender(cfg.Notify, func(title, _, _ string) error {
		titles = append(titles, title)
		return nil
	}))
	var out bytes.Buffer
	a.SetOutput(&out)
	return a, &out, &titles
}

func TestApp_Run(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Output.SQLite = filepath.Join(t.TempDir(), "runs.db")
	cfg.Output.MetricsFile = filepath.Join(t.TempDir(), "glucose_insights.prom")
	cfg.Output.Previews = true
	a, out, titles := newTestApp(cfg)

	result, err := a.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"001", "003"}, result.Participants, "participant 002 has no glucose file")
	assert.Equal(t, 576, result.Readings)
	assert.Empty(t, result.Datasets.Failed)
	assert.Len(t, result.Datasets.Food, 3)
	assert.Same(t, result, a.LastResult())
	assert.Equal(t, "Complete", a.GetProgress().Stage)

	for _, name := range []string{
		export.GlucoseTableFile, export.FoodTableFile,
		export.DailyPatternsFile, export.FoodResponsesFile, export.SpikeEventsFile, ReportFile,
	} {
		path := filepath.Join(cfg.Output.Dir, name)
		assert.Contains(t, result.Files, path)
		assert.FileExists(t, path)
	}
	assert.FileExists(t, filepath.Join(cfg.Output.Dir, PreviewsDir, "daily_001_2020-02-13.png"))

	var responses map[string]json.RawMessage
	data, err := os.ReadFile(filepath.Join(cfg.Output.Dir, export.FoodResponsesFile))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &responses))
	for _, key := range []string{"high", "medium", "low"} {
		assert.Contains(t, responses, key)
	}

	var spikes []map[string]interface{}
	data, err = os.ReadFile(filepath.Join(cfg.Output.Dir, export.SpikeEventsFile))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &spikes))
	assert.Len(t, spikes, 10, "small cohorts get the synthetic game")
	assert.True(t, result.Datasets.SpikeStats.Synthetic)

	db, err := storage.NewSQLiteStorage(cfg.Output.SQLite)
	require.NoError(t, err)
	defer db.Close()
	runs, err := db.GetRuns(5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, result.RunID, runs[0].ID)
	assert.Equal(t, 576, runs[0].Readings)

	metricsText, err := os.ReadFile(cfg.Output.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(metricsText), `glucose_insights_participants_total{status="missing_glucose"} 1`)
	assert.Contains(t, string(metricsText), `glucose_insights_participants_total{status="missing_food"} 1`)

	assert.Contains(t, out.String(), "Run "+result.RunID+": 2 participants, 576 readings, 3 food events")
	assert.Equal(t, []string{"Glucose insights run complete"}, *titles)
}

func TestApp_RunIsDeterministic(t *testing.T) {
	cfg := newTestConfig(t)
	first, _, _ := newTestApp(cfg)
	_, err := first.Run(context.Background())
	require.NoError(t, err)
	firstDir := cfg.Output.Dir

	cfg.Output.Dir = filepath.Join(t.TempDir(), "again")
	second, _, _ := newTestApp(cfg)
	_, err = second.Run(context.Background())
	require.NoError(t, err)

	for _, name := range []string{export.DailyPatternsFile, export.FoodResponsesFile, export.SpikeEventsFile} {
		want, err := os.ReadFile(filepath.Join(firstDir, name))
		require.NoError(t, err)
		got, err := os.ReadFile(filepath.Join(cfg.Output.Dir, name))
		require.NoError(t, err)
		assert.Equal(t, string(want), string(got), name)
	}
}

func TestApp_RunCountsOnlyItsOwnReadings(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Output.MetricsFile = filepath.Join(t.TempDir(), "glucose_insights.prom")
	a, _, _ := newTestApp(cfg)

	_, err := a.Run(context.Background())
	require.NoError(t, err)
	first := a.Metrics()

	_, err = a.Run(context.Background())
	require.NoError(t, err)

	assert.NotSame(t, first, a.Metrics())
	assert.Equal(t, 576.0, testutil.ToFloat64(a.Metrics().Readings))
	assert.Equal(t, 1.0, testutil.ToFloat64(a.Metrics().Participants.WithLabelValues("loaded")))

	metricsText, err := os.ReadFile(cfg.Output.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(metricsText), "glucose_insights_glucose_readings_total 576")
}

func TestApp_RunEmptyCohort(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Input.Dir = t.TempDir()
	a, _, titles := newTestApp(cfg)

	result, err := a.Run(context.Background())
	require.ErrorIs(t, err, models.ErrCohortEmpty)
	assert.Nil(t, result)
	assert.Nil(t, a.LastResult())

	_, statErr := os.Stat(cfg.Output.Dir)
	assert.True(t, os.IsNotExist(statErr), "no partial outputs")
	assert.Equal(t, []string{"⚠️ Glucose insights run failed"}, *titles)
}

func TestApp_RunCancelled(t *testing.T) {
	cfg := newTestConfig(t)
	a, _, _ := newTestApp(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
