// Package storage provides SQLite-based persistence for lap times, race
// results and ghosts. Uses the pure-Go modernc.org/sqlite driver to avoid
// CGO dependencies.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/vovakirdan/tui-kart/internal/ghost"
	"github.com/vovakirdan/tui-kart/internal/multiplayer"
)

// Store manages the SQLite database connection.
type Store struct {
	db *sql.DB
}

// LapTime is one completed lap.
type LapTime struct {
	ID        int64
	Track     string
	Kart      string // kart type name
	Player    string
	Ticks     int
	CreatedAt time.Time
}

// RaceRecord is a finished race.
type RaceRecord struct {
	ID           int64
	RaceID       string
	Track        string
	Laps         int
	EndReason    string // "completed", "abandoned", "timeout"
	Winner       string // session of the winning human, empty if an automated kart won
	DurationSecs int
	Standings    []multiplayer.Standing
	CreatedAt    time.Time
}

// Open creates or opens a SQLite database at the given path.
// It creates the parent directories if needed and runs migrations.
func Open(dbPath string) (*Store, error) {
	// Expand ~ to home directory
	if dbPath != "" && dbPath[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("storage: cannot expand home directory: %w", err)
		}
		dbPath = filepath.Join(home, dbPath[1:])
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: cannot create directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: cannot connect to database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: migration failed: %w", err)
	}
	return store, nil
}

// migrate creates the database schema if it doesn't exist.
func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS lap_times (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			track_id TEXT NOT NULL,
			kart TEXT NOT NULL,
			player TEXT NOT NULL DEFAULT '',
			ticks INTEGER NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_lap_times_best ON lap_times(track_id, ticks);

		CREATE TABLE IF NOT EXISTS race_results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			race_id TEXT NOT NULL UNIQUE,
			track_id TEXT NOT NULL,
			laps INTEGER NOT NULL,
			end_reason TEXT NOT NULL,
			winner TEXT,
			duration_secs INTEGER NOT NULL DEFAULT 0,
			standings BLOB,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_race_results_track ON race_results(track_id);

		CREATE TABLE IF NOT EXISTS ghosts (
			track_id TEXT NOT NULL,
			laps INTEGER NOT NULL,
			ticks INTEGER NOT NULL,
			data BLOB NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (track_id, laps)
		);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// parseTime handles both time.Time and the string form SQLite may return.
func parseTime(v any) time.Time {
	switch v := v.(type) {
	case time.Time:
		return v
	case string:
		if parsed, err := time.Parse("2006-01-02 15:04:05", v); err == nil {
			return parsed
		}
	}
	return time.Time{}
}

// SaveLap records a completed lap and returns its row id.
func (s *Store) SaveLap(lap LapTime) (int64, error) {
	if lap.Ticks <= 0 {
		return 0, fmt.Errorf("storage: lap of %d ticks", lap.Ticks)
	}
	result, err := s.db.Exec(
		"INSERT INTO lap_times (track_id, kart, player, ticks) VALUES (?, ?, ?, ?)",
		lap.Track, lap.Kart, lap.Player, lap.Ticks,
	)
	if err != nil {
		return 0, fmt.Errorf("storage: cannot save lap: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("storage: cannot get inserted ID: %w", err)
	}
	return id, nil
}

// BestLaps retrieves the fastest laps on a track, fastest first.
func (s *Store) BestLaps(trackID string, limit int) ([]LapTime, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.Query(
		`SELECT id, track_id, kart, player, ticks, created_at
		 FROM lap_times
		 WHERE track_id = ?
		 ORDER BY ticks ASC, id ASC
		 LIMIT ?`,
		trackID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query laps: %w", err)
	}
	defer rows.Close()

	var laps []LapTime
	for rows.Next() {
		var l LapTime
		var createdAt any
		if err := rows.Scan(&l.ID, &l.Track, &l.Kart, &l.Player, &l.Ticks, &createdAt); err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		l.CreatedAt = parseTime(createdAt)
		laps = append(laps, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}
	return laps, nil
}

// BestLap returns the lap record for a track in ticks, or 0 if none exists.
func (s *Store) BestLap(trackID string) (int, error) {
	var ticks sql.NullInt64
	err := s.db.QueryRow("SELECT MIN(ticks) FROM lap_times WHERE track_id = ?", trackID).Scan(&ticks)
	if err != nil {
		return 0, fmt.Errorf("storage: cannot query best lap: %w", err)
	}
	if !ticks.Valid {
		return 0, nil
	}
	return int(ticks.Int64), nil
}

// ClearLaps deletes every lap recorded on a track.
func (s *Store) ClearLaps(trackID string) error {
	if _, err := s.db.Exec("DELETE FROM lap_times WHERE track_id = ?", trackID); err != nil {
		return fmt.Errorf("storage: cannot clear laps: %w", err)
	}
	return nil
}

// SaveRace records a finished race. Standings are stored as msgpack.
func (s *Store) SaveRace(r RaceRecord) (int64, error) {
	standings, err := msgpack.Marshal(r.Standings)
	if err != nil {
		return 0, fmt.Errorf("storage: cannot encode standings: %w", err)
	}
	res, err := s.db.Exec(
		`INSERT INTO race_results
		 (race_id, track_id, laps, end_reason, winner, duration_secs, standings)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.RaceID, r.Track, r.Laps, r.EndReason, r.Winner, r.DurationSecs, standings,
	)
	if err != nil {
		return 0, fmt.Errorf("storage: cannot save race: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("storage: cannot get inserted ID: %w", err)
	}
	return id, nil
}

const raceColumns = `id, race_id, track_id, laps, end_reason, winner, duration_secs, standings, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRace(row rowScanner) (RaceRecord, error) {
	var (
		r         RaceRecord
		winner    sql.NullString
		standings []byte
		createdAt any
	)
	err := row.Scan(&r.ID, &r.RaceID, &r.Track, &r.Laps, &r.EndReason, &winner, &r.DurationSecs, &standings, &createdAt)
	if err != nil {
		return r, err
	}
	r.Winner = winner.String
	r.CreatedAt = parseTime(createdAt)
	if len(standings) > 0 {
		if err := msgpack.Unmarshal(standings, &r.Standings); err != nil {
			return r, fmt.Errorf("storage: cannot decode standings: %w", err)
		}
	}
	return r, nil
}

// RaceByID retrieves a race by its race id, or nil if there is none.
func (s *Store) RaceByID(raceID string) (*RaceRecord, error) {
	r, err := scanRace(s.db.QueryRow(`SELECT `+raceColumns+` FROM race_results WHERE race_id = ?`, raceID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query race: %w", err)
	}
	return &r, nil
}

// RecentRaces retrieves the most recent races, newest first.
func (s *Store) RecentRaces(limit int) ([]RaceRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(`SELECT `+raceColumns+` FROM race_results ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query races: %w", err)
	}
	defer rows.Close()

	var races []RaceRecord
	for rows.Next() {
		r, err := scanRace(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		races = append(races, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}
	return races, nil
}

// SaveRaceResult implements multiplayer.ResultSaver.
func (s *Store) SaveRaceResult(data multiplayer.ResultData) error {
	r := RaceRecord{
		RaceID:       data.RaceID,
		Track:        data.Track,
		Laps:         data.Laps,
		EndReason:    data.EndReason,
		DurationSecs: data.DurationSecs,
		Standings:    data.Standings,
	}
	for _, st := range data.Standings {
		if st.Place == 0 && st.Human {
			r.Winner = string(st.Session)
		}
	}
	_, err := s.SaveRace(r)
	return err
}

var _ multiplayer.ResultSaver = (*Store)(nil)

// SaveGhost keeps g if it is the first finished ghost for its track and
// race length, or faster than the stored one. It reports whether g was
// kept. Unfinished runs are never stored.
func (s *Store) SaveGhost(g *ghost.Ghost) (bool, error) {
	if !g.Finished() {
		return false, nil
	}
	data, err := ghost.Marshal(g)
	if err != nil {
		return false, fmt.Errorf("storage: %w", err)
	}
	res, err := s.db.Exec(
		`INSERT INTO ghosts (track_id, laps, ticks, data) VALUES (?, ?, ?, ?)
		 ON CONFLICT (track_id, laps) DO UPDATE
		 SET ticks = excluded.ticks, data = excluded.data, created_at = CURRENT_TIMESTAMP
		 WHERE excluded.ticks < ghosts.ticks`,
		g.Track, g.Laps, g.Ticks, data,
	)
	if err != nil {
		return false, fmt.Errorf("storage: cannot save ghost: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("storage: cannot save ghost: %w", err)
	}
	return n > 0, nil
}

// BestGhost returns the stored ghost for a track and race length, or nil.
func (s *Store) BestGhost(trackID string, laps int) (*ghost.Ghost, error) {
	var data []byte
	err := s.db.QueryRow("SELECT data FROM ghosts WHERE track_id = ? AND laps = ?", trackID, laps).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query ghost: %w", err)
	}
	g, err := ghost.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	return g, nil
}

// TrackStats contains aggregated statistics for a track.
type TrackStats struct {
	Track      string
	Laps       int
	BestLap    int
	AvgLap     float64
	Races      int
	LastRaced  time.Time
	GhostTicks int // 0 if no ghost is stored
}

// GetTrackStats retrieves aggregated statistics for a track.
func (s *Store) GetTrackStats(trackID string) (*TrackStats, error) {
	stats := &TrackStats{Track: trackID}

	err := s.db.QueryRow(
		`SELECT COUNT(*), COALESCE(MIN(ticks), 0), COALESCE(AVG(ticks), 0)
		 FROM lap_times WHERE track_id = ?`,
		trackID,
	).Scan(&stats.Laps, &stats.BestLap, &stats.AvgLap)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot get lap stats: %w", err)
	}

	var lastRaced any
	err = s.db.QueryRow(
		`SELECT COUNT(*), MAX(created_at) FROM race_results WHERE track_id = ?`,
		trackID,
	).Scan(&stats.Races, &lastRaced)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot get race stats: %w", err)
	}
	stats.LastRaced = parseTime(lastRaced)

	err = s.db.QueryRow(
		`SELECT COALESCE(MIN(ticks), 0) FROM ghosts WHERE track_id = ?`,
		trackID,
	).Scan(&stats.GhostTicks)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot get ghost stats: %w", err)
	}
	return stats, nil
}

// Tracks lists every track with a recorded lap, alphabetically.
func (s *Store) Tracks() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT track_id FROM lap_times ORDER BY track_id`)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot list tracks: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
