package recorder

import (
	"database/sql"
	"fmt"
	"time"

	"lumen2mqtt/internal/core/domain"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Store persists light state history in a local SQLite database. Every
// process run gets its own run id so overlapping restarts can be told
// apart when reading history back.
type Store struct {
	db     *sql.DB
	runId  string
	logger *zap.Logger
}

// StateSample is one recorded state row.
type StateSample struct {
	LightId string
	Time    time.Time
	State   domain.LightState
}

const schema = `
CREATE TABLE IF NOT EXISTS light_states (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	light_id TEXT NOT NULL,
	ts INTEGER NOT NULL,
	is_on INTEGER NOT NULL,
	brightness INTEGER NOT NULL,
	color_mode TEXT NOT NULL,
	hue REAL NOT NULL DEFAULT 0,
	sat REAL NOT NULL DEFAULT 0,
	x REAL NOT NULL DEFAULT 0,
	y REAL NOT NULL DEFAULT 0,
	r INTEGER NOT NULL DEFAULT 0,
	g INTEGER NOT NULL DEFAULT 0,
	b INTEGER NOT NULL DEFAULT 0,
	color_temp INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_light_states_light_ts ON light_states (light_id, ts);

CREATE TABLE IF NOT EXISTS light_availability (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	light_id TEXT NOT NULL,
	ts INTEGER NOT NULL,
	available INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_light_availability_light_ts ON light_availability (light_id, ts);
`

func NewStore(path string, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("recorder: open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("recorder: create schema: %w", err)
	}
	return &Store{
		db:     db,
		runId:  uuid.NewString(),
		logger: logger.With(zap.String("component", "recorder")),
	}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) InsertState(lightId string, at time.Time, state domain.LightState) error {
	_, err := s.db.Exec(`INSERT INTO light_states
		(run_id, light_id, ts, is_on, brightness, color_mode, hue, sat, x, y, r, g, b, color_temp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.runId, lightId, at.UnixMilli(), boolInt(state.On), state.Brightness, string(state.ColorMode),
		state.HS.H, state.HS.S, state.XY.X, state.XY.Y,
		state.RGB[0], state.RGB[1], state.RGB[2], state.ColorTempMired)
	if err != nil {
		return fmt.Errorf("recorder: insert state: %w", err)
	}
	return nil
}

func (s *Store) InsertAvailability(lightId string, at time.Time, available bool) error {
	_, err := s.db.Exec(`INSERT INTO light_availability (run_id, light_id, ts, available) VALUES (?, ?, ?, ?)`,
		s.runId, lightId, at.UnixMilli(), boolInt(available))
	if err != nil {
		return fmt.Errorf("recorder: insert availability: %w", err)
	}
	return nil
}

// LastStates returns the most recent recorded state per light.
func (s *Store) LastStates() (map[string]StateSample, error) {
	rows, err := s.db.Query(`SELECT light_id, max(ts), is_on, brightness, color_mode, hue, sat, x, y, r, g, b, color_temp
		FROM light_states GROUP BY light_id`)
	if err != nil {
		return nil, fmt.Errorf("recorder: query last states: %w", err)
	}
	defer rows.Close()

	result := map[string]StateSample{}
	for rows.Next() {
		sample, err := scanSample(rows)
		if err != nil {
			return nil, err
		}
		result[sample.LightId] = sample
	}
	return result, rows.Err()
}

// History returns recorded states for one light since a point in time,
// newest first, up to limit rows.
func (s *Store) History(lightId string, since time.Time, limit int) ([]StateSample, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(`SELECT light_id, ts, is_on, brightness, color_mode, hue, sat, x, y, r, g, b, color_temp
		FROM light_states WHERE light_id = ? AND ts >= ? ORDER BY ts DESC LIMIT ?`,
		lightId, since.UnixMilli(), limit)
	if err != nil {
		return nil, fmt.Errorf("recorder: query history: %w", err)
	}
	defer rows.Close()

	var result []StateSample
	for rows.Next() {
		sample, err := scanSample(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, sample)
	}
	return result, rows.Err()
}

// Prune deletes rows older than the cutoff and reports how many state rows
// were removed.
func (s *Store) Prune(olderThan time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM light_states WHERE ts < ?`, olderThan.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("recorder: prune states: %w", err)
	}
	removed, _ := res.RowsAffected()
	if _, err := s.db.Exec(`DELETE FROM light_availability WHERE ts < ?`, olderThan.UnixMilli()); err != nil {
		return removed, fmt.Errorf("recorder: prune availability: %w", err)
	}
	return removed, nil
}

func scanSample(rows *sql.Rows) (StateSample, error) {
	var (
		sample    StateSample
		ts        int64
		isOn      int
		colorMode string
	)
	err := rows.Scan(&sample.LightId, &ts, &isOn, &sample.State.Brightness, &colorMode,
		&sample.State.HS.H, &sample.State.HS.S, &sample.State.XY.X, &sample.State.XY.Y,
		&sample.State.RGB[0], &sample.State.RGB[1], &sample.State.RGB[2], &sample.State.ColorTempMired)
	if err != nil {
		return sample, fmt.Errorf("recorder: scan row: %w", err)
	}
	sample.Time = time.UnixMilli(ts)
	sample.State.On = isOn != 0
	sample.State.ColorMode = domain.ColorMode(colorMode)
	sample.State.Available = true
	return sample, nil
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
