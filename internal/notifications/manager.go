// Package notifications sends desktop notifications about pipeline runs
package notifications

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gen2brain/beeep"
)

// Alert type constants
const (
	alertRunFailed     = "run_failed"
	alertBuilderFailed = "builder_failed"
	alertSynthetic     = "synthetic"
	alertRunComplete   = "run_complete"
)

// Config selects which runs produce a notification
type Config struct {
	Enabled   bool   `mapstructure:"enabled"`
	OnSuccess bool   `mapstructure:"on_success"`
	OnFailure bool   `mapstructure:"on_failure"`
	Icon      string `mapstructure:"icon"`
}

// DefaultConfig returns the default notification settings
func DefaultConfig() Config {
	return Config{
		Enabled:   false,
		OnSuccess: true,
		OnFailure: true,
	}
}

// Summary describes a finished run
type Summary struct {
	RunID             string
	Participants      int
	Readings          int
	FoodEvents        int
	DailyPatterns     int
	RealExamples      int
	SyntheticExamples int
	SpikeEvents       int
	SyntheticGame     bool
	Failed            []string // Datasets whose builder failed
	Duration          time.Duration
	Err               error // Non-nil when the run aborted
}

// Sender delivers one notification
type Sender func(title, message, icon string) error

// Manager decides whether and how to notify about a run
type Manager struct {
	config Config
	send   Sender
	mu     sync.Mutex
	sent   []string
}

// NewManager creates a new notification manager
func NewManager(config Config) *Manager {
	return NewManagerWithSender(config, beeep.Notify)
}

// NewManagerWithSender creates a manager delivering through send
func NewManagerWithSender(config Config, send Sender) *Manager {
	return &Manager{config: config, send: send}
}

// NotifyRun sends the notification a summary calls for, if any
func (m *Manager) NotifyRun(summary Summary) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	alertType := m.shouldAlert(summary)
	if alertType == "" {
		return nil
	}

	title, message := formatNotification(summary, alertType)
	if err := m.send(title, message, m.config.Icon); err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	m.sent = append(m.sent, alertType)
	return nil
}

// Sent returns the alert types delivered so far
func (m *Manager) Sent() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sent...)
}

// shouldAlert determines which alert, if any, a summary warrants
func (m *Manager) shouldAlert(s Summary) string {
	if !m.config.Enabled {
		return ""
	}
	switch {
	case s.Err != nil:
		if m.config.OnFailure {
			return alertRunFailed
		}
	case len(s.Failed) > 0:
		if m.config.OnFailure {
			return alertBuilderFailed
		}
	case s.RealExamples == 0 || s.SyntheticGame:
		if m.config.OnSuccess {
			return alertSynthetic
		}
	default:
		if m.config.OnSuccess {
			return alertRunComplete
		}
	}
	return ""
}

// formatNotification creates the notification title and message
func formatNotification(s Summary, alertType string) (string, string) {
	var title, message string

	switch alertType {
	case alertRunFailed:
		title = "⚠️ Glucose insights run failed"
		message = s.Err.Error()
	case alertBuilderFailed:
		failed := append([]string(nil), s.Failed...)
		sort.Strings(failed)
		title = "⚠️ Glucose insights run incomplete"
		message = fmt.Sprintf("Empty datasets: %s. %d participants, %d readings.",
			strings.Join(failed, ", "), s.Participants, s.Readings)
	case alertSynthetic:
		title = "Glucose insights run complete"
		message = fmt.Sprintf("%d participants, %d readings. Synthetic data used: %d of %d response examples",
			s.Participants, s.Readings, s.SyntheticExamples, s.RealExamples+s.SyntheticExamples)
		if s.SyntheticGame {
			message += ", spike game"
		}
		message += "."
	case alertRunComplete:
		title = "✅ Glucose insights run complete"
		message = fmt.Sprintf("%d participants, %d readings, %d days, %d spikes in %s.",
			s.Participants, s.Readings, s.DailyPatterns, s.SpikeEvents, s.Duration.Round(time.Millisecond))
	}

	return title, message
}
