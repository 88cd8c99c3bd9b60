package main

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrcode/glucose-insights/internal/models"
	"github.com/mrcode/glucose-insights/internal/storage"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestClassifyCommand(t *testing.T) {
	out, err := execute(t, "classify", "White rice", "Grilled chicken", "Quinoa bowl", "fried rice", "Kombucha")
	require.NoError(t, err)
	assert.Equal(t,
		"White rice\thigh\n"+
			"Grilled chicken\tlow\n"+
			"Quinoa bowl\tmedium\n"+
			"fried rice\thigh (secondary terms)\n"+
			"Kombucha\tunknown\n",
		out)
}

func TestClassifyCommand_RequiresArgs(t *testing.T) {
	_, err := execute(t, "classify")
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "glucose-insights version 0.1.0 (build: dev)\n", out)
}

func TestRunCommand_InvalidConfig(t *testing.T) {
	_, err := execute(t, "run", "--workers", "0")
	assert.ErrorContains(t, err, "workers must be positive")
}

func seedHistory(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "runs.db")
	db, err := storage.NewSQLiteStorage(path)
	require.NoError(t, err)
	defer db.Close()

	start := time.Date(2020, 2, 13, 12, 0, 0, 0, time.UTC)
	glucose := []models.GlucoseReading{
		{ParticipantID: "001", Timestamp: start, Value: 100},
		{ParticipantID: "001", Timestamp: start.Add(5 * time.Minute), Value: 110, Interpolated: true},
	}
	food := []models.FoodEvent{
		{ParticipantID: "001", Timestamp: start, Description: "Soda", Category: models.CategoryHigh},
		{ParticipantID: "001", Timestamp: start, Description: "Cola", Category: models.CategoryHigh},
		{ParticipantID: "001", Timestamp: start, Description: "Kombucha", Category: models.CategoryUnknown},
	}
	require.NoError(t, db.SaveRun(storage.Run{
		ID: "run-1", StartedAt: start, FinishedAt: start.Add(time.Second),
		Participants: 1, Readings: len(glucose), FoodEvents: len(food),
	}, glucose, food))
	require.NoError(t, db.SaveRun(storage.Run{
		ID: "run-2", StartedAt: start.Add(time.Hour), FinishedAt: start.Add(time.Hour),
		Failed: "spike_events",
	}, nil, nil))
	return path
}

func TestRunsCommand_ListsRuns(t *testing.T) {
	path := seedHistory(t)

	out, err := execute(t, "runs", "--sqlite", path)
	require.NoError(t, err)
	assert.Equal(t,
		"run-2\t2020-02-13T13:00:00Z\t0 participants\t0 readings\thigh=0 medium=0 low=0 unknown=0\tfailed: spike_events\n"+
			"run-1\t2020-02-13T12:00:00Z\t1 participants\t2 readings\thigh=2 medium=0 low=0 unknown=1\n",
		out)

	out, err = execute(t, "runs", "--sqlite", path, "--limit", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "run-2")
	assert.NotContains(t, out, "run-1")
}

func TestRunsCommand_Readings(t *testing.T) {
	path := seedHistory(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "mg/dL",
			want: "2020-02-13 12:00:00\t100.0 mg/dL\n2020-02-13 12:05:00\t110.0 mg/dL\tinterpolated\n",
		},
		{
			name: "mmol/L",
			args: []string{"--mmol"},
			want: "2020-02-13 12:00:00\t5.5 mmol/L\n2020-02-13 12:05:00\t6.1 mmol/L\tinterpolated\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"runs", "--sqlite", path, "--run", "run-1", "--participant", "001"}, tt.args...)
			out, err := execute(t, args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestRunsCommand_Errors(t *testing.T) {
	path := seedHistory(t)

	_, err := execute(t, "runs")
	assert.ErrorContains(t, err, "no run history configured")

	_, err = execute(t, "runs", "--sqlite", filepath.Join(t.TempDir(), "missing.db"))
	assert.ErrorContains(t, err, "run history unavailable")

	_, err = execute(t, "runs", "--sqlite", path, "--participant", "001")
	assert.ErrorContains(t, err, "--participant needs --run")

	_, err = execute(t, "runs", "--sqlite", path, "--run", "run-1", "--participant", "009")
	assert.ErrorContains(t, err, "no readings for participant 009 in run run-1")
}
