package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/harshraj32/emo-insight-backend/internal/coach"
	"github.com/harshraj32/emo-insight-backend/internal/emotion"
)

const (
	StatusActive = "active"
	StatusEnded  = "ended"
)

// Session is the persisted session record.
type Session struct {
	ID        string     `json:"id"`
	RepName   string     `json:"rep_name"`
	Objective string     `json:"objective"`
	BotID     string     `json:"bot_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Status    string     `json:"status"`
}

// EmotionTrailEntry is one persisted per-speaker window summary.
type EmotionTrailEntry struct {
	Speaker string          `json:"speaker"`
	At      time.Time       `json:"at"`
	Summary emotion.Summary `json:"summary"`
}

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if strings.TrimSpace(dbPath) == "" {
		dbPath = filepath.Join("data", "emo-insight.db")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db}
	if err := store.init(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) init() error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("apply pragma %q: %w", p, err)
		}
	}

	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			rep_name TEXT NOT NULL,
			objective TEXT NOT NULL DEFAULT '',
			bot_id TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			ended_at TEXT,
			status TEXT NOT NULL
		);
	`); err != nil {
		return fmt.Errorf("create sessions table: %w", err)
	}

	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS transcripts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			speaker TEXT NOT NULL,
			text TEXT NOT NULL,
			at TEXT NOT NULL,
			FOREIGN KEY(session_id) REFERENCES sessions(id) ON DELETE CASCADE
		);
	`); err != nil {
		return fmt.Errorf("create transcripts table: %w", err)
	}

	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS emotion_trails (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			speaker TEXT NOT NULL,
			summary TEXT NOT NULL,
			at TEXT NOT NULL,
			FOREIGN KEY(session_id) REFERENCES sessions(id) ON DELETE CASCADE
		);
	`); err != nil {
		return fmt.Errorf("create emotion_trails table: %w", err)
	}

	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS window_summaries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			payload TEXT NOT NULL,
			coaching_ready INTEGER NOT NULL DEFAULT 0,
			phase TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			FOREIGN KEY(session_id) REFERENCES sessions(id) ON DELETE CASCADE
		);
	`); err != nil {
		return fmt.Errorf("create window_summaries table: %w", err)
	}

	if _, err := s.db.Exec("CREATE INDEX IF NOT EXISTS idx_sessions_created_at ON sessions(created_at)"); err != nil {
		return fmt.Errorf("create sessions index: %w", err)
	}
	if _, err := s.db.Exec("CREATE INDEX IF NOT EXISTS idx_transcripts_session_id ON transcripts(session_id, at)"); err != nil {
		return fmt.Errorf("create transcripts index: %w", err)
	}
	if _, err := s.db.Exec("CREATE INDEX IF NOT EXISTS idx_emotion_trails_session_id ON emotion_trails(session_id, at)"); err != nil {
		return fmt.Errorf("create emotion_trails index: %w", err)
	}

	return nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

func (s *SQLiteStore) CreateSession(id, repName, objective, botID string, createdAt time.Time) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("session id is required")
	}

	_, err := s.db.Exec(
		`INSERT INTO sessions(id, rep_name, objective, bot_id, created_at, status) VALUES(?, ?, ?, ?, ?, ?)`,
		id,
		repName,
		objective,
		botID,
		createdAt.UTC().Format(time.RFC3339Nano),
		StatusActive,
	)
	if err != nil {
		return fmt.Errorf("create session %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) EndSession(id string, endedAt time.Time) error {
	res, err := s.db.Exec(
		`UPDATE sessions SET ended_at = ?, status = ? WHERE id = ?`,
		endedAt.UTC().Format(time.RFC3339Nano),
		StatusEnded,
		id,
	)
	if err != nil {
		return fmt.Errorf("end session %s: %w", id, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("end session rows affected: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *SQLiteStore) AppendTranscript(sessionID string, line coach.TranscriptLine) error {
	_, err := s.db.Exec(
		`INSERT INTO transcripts(session_id, speaker, text, at) VALUES(?, ?, ?, ?)`,
		sessionID,
		line.Speaker,
		strings.TrimSpace(line.Text),
		line.At.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("append transcript for session %s: %w", sessionID, err)
	}
	return nil
}

func (s *SQLiteStore) AppendEmotionTrail(sessionID, speaker string, summary emotion.Summary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal emotion summary: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO emotion_trails(session_id, speaker, summary, at) VALUES(?, ?, ?, ?)`,
		sessionID,
		speaker,
		string(payload),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("append emotion trail for session %s: %w", sessionID, err)
	}
	return nil
}

func (s *SQLiteStore) AppendWindowSummary(sessionID string, ws coach.WindowSummary) error {
	payload, err := json.Marshal(ws)
	if err != nil {
		return fmt.Errorf("marshal window summary: %w", err)
	}

	ready := 0
	if ws.CoachingReady {
		ready = 1
	}

	createdAt := ws.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = s.db.Exec(
		`INSERT INTO window_summaries(session_id, payload, coaching_ready, phase, created_at) VALUES(?, ?, ?, ?, ?)`,
		sessionID,
		string(payload),
		ready,
		ws.Phase,
		createdAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("append window summary for session %s: %w", sessionID, err)
	}
	return nil
}

func (s *SQLiteStore) GetSession(id string) (Session, error) {
	row := s.db.QueryRow(
		`SELECT id, rep_name, objective, bot_id, created_at, ended_at, status FROM sessions WHERE id = ?`,
		id,
	)

	sess, err := scanSession(row.Scan)
	if err != nil {
		return Session{}, fmt.Errorf("query session %s: %w", id, err)
	}
	return sess, nil
}

func (s *SQLiteStore) ListSessions() ([]Session, error) {
	rows, err := s.db.Query(
		`SELECT id, rep_name, objective, bot_id, created_at, ended_at, status
		 FROM sessions
		 ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	sessions := make([]Session, 0, 16)
	for rows.Next() {
		sess, err := scanSession(rows.Scan)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions rows: %w", err)
	}

	return sessions, nil
}

func (s *SQLiteStore) GetTranscripts(sessionID string) ([]coach.TranscriptLine, error) {
	rows, err := s.db.Query(
		`SELECT speaker, text, at FROM transcripts WHERE session_id = ? ORDER BY id ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query transcripts for session %s: %w", sessionID, err)
	}
	defer func() { _ = rows.Close() }()

	lines := make([]coach.TranscriptLine, 0, 32)
	for rows.Next() {
		var line coach.TranscriptLine
		var at string
		if err := rows.Scan(&line.Speaker, &line.Text, &at); err != nil {
			return nil, fmt.Errorf("scan transcript for session %s: %w", sessionID, err)
		}

		parsed, err := time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return nil, fmt.Errorf("parse transcript timestamp for session %s: %w", sessionID, err)
		}
		line.At = parsed

		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transcript rows for session %s: %w", sessionID, err)
	}

	return lines, nil
}

func (s *SQLiteStore) GetEmotionTrail(sessionID string) ([]EmotionTrailEntry, error) {
	rows, err := s.db.Query(
		`SELECT speaker, summary, at FROM emotion_trails WHERE session_id = ? ORDER BY id ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query emotion trail for session %s: %w", sessionID, err)
	}
	defer func() { _ = rows.Close() }()

	entries := make([]EmotionTrailEntry, 0, 32)
	for rows.Next() {
		var entry EmotionTrailEntry
		var payload, at string
		if err := rows.Scan(&entry.Speaker, &payload, &at); err != nil {
			return nil, fmt.Errorf("scan emotion trail for session %s: %w", sessionID, err)
		}

		if err := json.Unmarshal([]byte(payload), &entry.Summary); err != nil {
			return nil, fmt.Errorf("parse emotion trail payload for session %s: %w", sessionID, err)
		}
		parsed, err := time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return nil, fmt.Errorf("parse emotion trail timestamp for session %s: %w", sessionID, err)
		}
		entry.At = parsed

		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate emotion trail rows for session %s: %w", sessionID, err)
	}

	return entries, nil
}

func (s *SQLiteStore) GetWindowSummaries(sessionID string) ([]coach.WindowSummary, error) {
	rows, err := s.db.Query(
		`SELECT payload FROM window_summaries WHERE session_id = ? ORDER BY id ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query window summaries for session %s: %w", sessionID, err)
	}
	defer func() { _ = rows.Close() }()

	summaries := make([]coach.WindowSummary, 0, 8)
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan window summary for session %s: %w", sessionID, err)
		}

		var ws coach.WindowSummary
		if err := json.Unmarshal([]byte(payload), &ws); err != nil {
			return nil, fmt.Errorf("parse window summary payload for session %s: %w", sessionID, err)
		}
		summaries = append(summaries, ws)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate window summary rows for session %s: %w", sessionID, err)
	}

	return summaries, nil
}

func scanSession(scan func(dest ...any) error) (Session, error) {
	var sess Session
	var createdAt string
	var endedAt sql.NullString
	if err := scan(&sess.ID, &sess.RepName, &sess.Objective, &sess.BotID, &createdAt, &endedAt, &sess.Status); err != nil {
		return Session{}, fmt.Errorf("scan session: %w", err)
	}

	parsedCreated, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return Session{}, fmt.Errorf("parse created_at: %w", err)
	}
	sess.CreatedAt = parsedCreated

	if endedAt.Valid {
		parsedEnded, err := time.Parse(time.RFC3339Nano, endedAt.String)
		if err != nil {
			return Session{}, fmt.Errorf("parse ended_at: %w", err)
		}
		sess.EndedAt = &parsedEnded
	}

	return sess, nil
}
