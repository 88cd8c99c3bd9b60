// Package storage persists the combined tables of a run into SQLite
package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mrcode/glucose-insights/internal/models"
)

// Run is the metadata row stored for each pipeline execution
type Run struct {
	ID                string
	StartedAt         time.Time
	FinishedAt        time.Time
	Participants      int
	Readings          int
	FoodEvents        int
	SyntheticExamples int
	SyntheticSpikes   bool
	Failed            string // comma separated dataset names
}

type SQLiteStorage struct {
	db *sql.DB
}

func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	storage := &SQLiteStorage{db: db}
	if err := storage.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func (s *SQLiteStorage) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS runs (
        id TEXT PRIMARY KEY,
        started_at TEXT NOT NULL,
        finished_at TEXT NOT NULL,
        participants INTEGER NOT NULL,
        readings INTEGER NOT NULL,
        food_events INTEGER NOT NULL,
        synthetic_examples INTEGER NOT NULL,
        synthetic_spikes INTEGER NOT NULL,
        failed TEXT NOT NULL
    );

    CREATE TABLE IF NOT EXISTS glucose (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        run_id TEXT NOT NULL,
        participant_id TEXT NOT NULL,
        timestamp TEXT NOT NULL,
        value REAL NOT NULL,
        interpolated INTEGER NOT NULL,
        FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
    );

    CREATE TABLE IF NOT EXISTS food_events (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        run_id TEXT NOT NULL,
        participant_id TEXT NOT NULL,
        timestamp TEXT NOT NULL,
        description TEXT NOT NULL,
        category TEXT NOT NULL,
        carbs REAL,
        synthetic_time INTEGER NOT NULL,
        FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
    );

    CREATE INDEX IF NOT EXISTS idx_glucose_run ON glucose(run_id, participant_id, timestamp);
    CREATE INDEX IF NOT EXISTS idx_food_run ON food_events(run_id, participant_id, timestamp);
    `

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// SaveRun stores the run row and both tables in one transaction
func (s *SQLiteStorage) SaveRun(run Run, glucose []models.GlucoseReading, food []models.FoodEvent) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
        INSERT INTO runs (id, started_at, finished_at, participants, readings, food_events,
                          synthetic_examples, synthetic_spikes, failed)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
    `,
		run.ID, run.StartedAt.UTC().Format(time.RFC3339), run.FinishedAt.UTC().Format(time.RFC3339),
		run.Participants, run.Readings, run.FoodEvents, run.SyntheticExamples,
		boolInt(run.SyntheticSpikes), run.Failed)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	glucoseStmt, err := tx.Prepare(`
        INSERT INTO glucose (run_id, participant_id, timestamp, value, interpolated)
        VALUES (?, ?, ?, ?, ?)
    `)
	if err != nil {
		return fmt.Errorf("failed to prepare glucose insert: %w", err)
	}
	defer glucoseStmt.Close()

	for _, r := range glucose {
		if _, err := glucoseStmt.Exec(run.ID, r.ParticipantID, r.Timestamp.Format(models.TableLayout),
			r.Value, boolInt(r.Interpolated)); err != nil {
			return fmt.Errorf("failed to insert glucose reading: %w", err)
		}
	}

	foodStmt, err := tx.Prepare(`
        INSERT INTO food_events (run_id, participant_id, timestamp, description, category, carbs, synthetic_time)
        VALUES (?, ?, ?, ?, ?, ?, ?)
    `)
	if err != nil {
		return fmt.Errorf("failed to prepare food insert: %w", err)
	}
	defer foodStmt.Close()

	for _, f := range food {
		var carbs sql.NullFloat64
		if f.Carbs != nil {
			carbs = sql.NullFloat64{Float64: *f.Carbs, Valid: true}
		}
		if _, err := foodStmt.Exec(run.ID, f.ParticipantID, f.Timestamp.Format(models.TableLayout),
			f.Description, string(f.Category), carbs, boolInt(f.SyntheticTime)); err != nil {
			return fmt.Errorf("failed to insert food event: %w", err)
		}
	}

	return tx.Commit()
}

// GetRuns returns the most recent runs first
func (s *SQLiteStorage) GetRuns(limit int) ([]Run, error) {
	rows, err := s.db.Query(`
        SELECT id, started_at, finished_at, participants, readings, food_events,
               synthetic_examples, synthetic_spikes, failed
        FROM runs
        ORDER BY started_at DESC, id
        LIMIT ?
    `, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var startedStr, finishedStr string
		var spikes int

		if err := rows.Scan(&run.ID, &startedStr, &finishedStr, &run.Participants, &run.Readings,
			&run.FoodEvents, &run.SyntheticExamples, &spikes, &run.Failed); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		if run.StartedAt, err = time.Parse(time.RFC3339, startedStr); err != nil {
			return nil, fmt.Errorf("failed to parse started_at: %w", err)
		}
		if run.FinishedAt, err = time.Parse(time.RFC3339, finishedStr); err != nil {
			return nil, fmt.Errorf("failed to parse finished_at: %w", err)
		}
		run.SyntheticSpikes = spikes != 0

		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// GetGlucose returns the stored readings of one participant in a run, oldest first
func (s *SQLiteStorage) GetGlucose(runID, participantID string) ([]models.GlucoseReading, error) {
	rows, err := s.db.Query(`
        SELECT timestamp, value, interpolated
        FROM glucose
        WHERE run_id = ? AND participant_id = ?
        ORDER BY timestamp, id
    `, runID, participantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query glucose: %w", err)
	}
	defer rows.Close()

	var readings []models.GlucoseReading
	for rows.Next() {
		r := models.GlucoseReading{ParticipantID: participantID}
		var ts string
		var interpolated int

		if err := rows.Scan(&ts, &r.Value, &interpolated); err != nil {
			return nil, fmt.Errorf("failed to scan glucose reading: %w", err)
		}
		if r.Timestamp, err = time.Parse(models.TableLayout, ts); err != nil {
			return nil, fmt.Errorf("failed to parse timestamp: %w", err)
		}
		r.Interpolated = interpolated != 0

		readings = append(readings, r)
	}

	return readings, rows.Err()
}

// CountFoodByCategory returns the number of food events per category in a run
func (s *SQLiteStorage) CountFoodByCategory(runID string) (map[models.Category]int, error) {
	rows, err := s.db.Query(`
        SELECT category, COUNT(*)
        FROM food_events
        WHERE run_id = ?
        GROUP BY category
    `, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query food categories: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.Category]int)
	for rows.Next() {
		var category string
		var n int
		if err := rows.Scan(&category, &n); err != nil {
			return nil, fmt.Errorf("failed to scan category count: %w", err)
		}
		parsed, ok := models.ParseCategory(category)
		if !ok {
			return nil, fmt.Errorf("run %s stores unknown food category %q", runID, category)
		}
		counts[parsed] = n
	}

	return counts, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
