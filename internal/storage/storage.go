package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/marmistrz/ipu6-camera-hal/internal/aiq"
)

// ErrNotInitialized is returned by queries on a nil Store.
var ErrNotInitialized = errors.New("store not initialized")

// Store wraps SQLite-backed persistence for translation sessions and frames.
type Store struct {
	DB *sql.DB // Export for direct database access
}

// New opens (or creates) the database at path and ensures schema.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Camera goroutines write concurrently; SQLite wants a single writer.
	db.SetMaxOpenConns(1)
	s := &Store{DB: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
            id TEXT PRIMARY KEY,
            source TEXT NOT NULL,
            started_at INTEGER NOT NULL,
            frame_count INTEGER NOT NULL DEFAULT 0
        );`,
		`CREATE TABLE IF NOT EXISTS frames (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            session_id TEXT NOT NULL,
            camera_id INTEGER NOT NULL,
            sequence INTEGER NOT NULL,
            af_mode TEXT,
            af_phase TEXT,
            awb_override TEXT,
            ae_json TEXT,
            af_json TEXT,
            awb_json TEXT,
            results_json TEXT,
            force_lock BOOLEAN DEFAULT FALSE,
            during_scan BOOLEAN DEFAULT FALSE,
            recorded_at INTEGER NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS idx_frames_session ON frames(session_id, camera_id, sequence);`,
	}
	for _, stmt := range stmts {
		if _, err := s.DB.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the underlying DB.
func (s *Store) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// SessionRecord is one replay or serve run.
type SessionRecord struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	StartedAt  time.Time `json:"started_at"`
	FrameCount int       `json:"frame_count"`
}

// FrameRecord is the translator state after one frame.
type FrameRecord struct {
	SessionID  string          `json:"session_id"`
	Sequence   int64           `json:"sequence"`
	Snapshot   aiq.Snapshot    `json:"snapshot"`
	Results    json.RawMessage `json:"results,omitempty"`
	RecordedAt time.Time       `json:"recorded_at"`
}

// StartSession creates a session and returns its id. A nil store still hands
// out an id so callers can tag their output.
func (s *Store) StartSession(source string) (string, error) {
	id := uuid.NewString()
	if s == nil {
		return id, nil
	}
	_, err := s.DB.Exec(`INSERT INTO sessions (id, source, started_at) VALUES (?, ?, ?);`,
		id, source, time.Now().UnixMilli())
	if err != nil {
		return "", fmt.Errorf("start session: %w", err)
	}
	return id, nil
}

// RecordFrame appends a frame to its session.
func (s *Store) RecordFrame(rec FrameRecord) error {
	if s == nil {
		return nil
	}
	snap := rec.Snapshot
	aeJSON, err := json.Marshal(snap.Ae)
	if err != nil {
		return err
	}
	afJSON, err := json.Marshal(snap.Af)
	if err != nil {
		return err
	}
	awbJSON, err := json.Marshal(snap.Awb)
	if err != nil {
		return err
	}
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now()
	}
	var results any
	if len(rec.Results) > 0 {
		results = string(rec.Results)
	}

	tx, err := s.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO frames (session_id, camera_id, sequence, af_mode, af_phase, awb_override, ae_json, af_json, awb_json, results_json, force_lock, during_scan, recorded_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		rec.SessionID, snap.CameraID, rec.Sequence, string(snap.AfMode), snap.AfPhase, snap.AwbOverride.String(),
		string(aeJSON), string(afJSON), string(awbJSON), results, snap.ForceLock, snap.DuringTriggerScan, rec.RecordedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert frame: %w", err)
	}
	if _, err := tx.Exec(`UPDATE sessions SET frame_count = frame_count + 1 WHERE id=?;`, rec.SessionID); err != nil {
		return err
	}
	return tx.Commit()
}

// RecentSessions returns the latest sessions up to limit.
func (s *Store) RecentSessions(limit int) ([]SessionRecord, error) {
	if s == nil {
		return nil, ErrNotInitialized
	}
	rows, err := s.DB.Query(`SELECT id, source, started_at, frame_count FROM sessions ORDER BY started_at DESC, rowid DESC LIMIT ?;`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []SessionRecord
	for rows.Next() {
		var rec SessionRecord
		var started int64
		if err := rows.Scan(&rec.ID, &rec.Source, &started, &rec.FrameCount); err != nil {
			return nil, err
		}
		rec.StartedAt = time.UnixMilli(started)
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// SessionFrames returns every frame of a session ordered by camera and
// sequence.
func (s *Store) SessionFrames(id string) ([]FrameRecord, error) {
	if s == nil {
		return nil, ErrNotInitialized
	}
	rows, err := s.DB.Query(`SELECT camera_id, sequence, af_mode, af_phase, awb_override, ae_json, af_json, awb_json, results_json, force_lock, during_scan, recorded_at
        FROM frames WHERE session_id=? ORDER BY camera_id, sequence, id;`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []FrameRecord
	for rows.Next() {
		rec := FrameRecord{SessionID: id}
		var afMode, awbOverride string
		var aeJSON, afJSON, awbJSON string
		var results sql.NullString
		var recorded int64
		snap := &rec.Snapshot
		if err := rows.Scan(&snap.CameraID, &rec.Sequence, &afMode, &snap.AfPhase, &awbOverride,
			&aeJSON, &afJSON, &awbJSON, &results, &snap.ForceLock, &snap.DuringTriggerScan, &recorded); err != nil {
			return nil, err
		}
		snap.AfMode = aiq.AfMode(afMode)
		snap.AwbOverride = parseOverrideKind(awbOverride)
		if err := json.Unmarshal([]byte(aeJSON), &snap.Ae); err != nil {
			return nil, fmt.Errorf("unmarshal ae: %w", err)
		}
		if err := json.Unmarshal([]byte(afJSON), &snap.Af); err != nil {
			return nil, fmt.Errorf("unmarshal af: %w", err)
		}
		if err := json.Unmarshal([]byte(awbJSON), &snap.Awb); err != nil {
			return nil, fmt.Errorf("unmarshal awb: %w", err)
		}
		if results.Valid {
			rec.Results = json.RawMessage(results.String)
		}
		rec.RecordedAt = time.UnixMilli(recorded)
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func parseOverrideKind(s string) aiq.AwbOverrideKind {
	for _, k := range []aiq.AwbOverrideKind{aiq.AwbOverrideManualGain, aiq.AwbOverrideColorTransform} {
		if k.String() == s {
			return k
		}
	}
	return aiq.AwbOverrideNone
}
