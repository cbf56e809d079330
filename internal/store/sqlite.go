package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"connsolver/internal/puzzle"
)

// DefaultDSN is the SQLite database used when none is configured.
const DefaultDSN = "data/sessions.db"

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore keeps snapshots as JSON rows in a sessions table.
type SQLiteStore struct {
	db     *sql.DB
	maxAge time.Duration
}

// NewSQLiteStore opens the database, creating its directory and tables.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	dsn := cfg.DSN
	if dsn == "" {
		dsn = DefaultDSN
	}

	if dsn != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	// A single connection keeps :memory: databases shared and serializes writes.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(sqliteMigrations); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Debug().Str("dsn", dsn).Msg("sqlite session store ready")
	return &SQLiteStore{db: db, maxAge: cfg.MaxAge}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, snap puzzle.Snapshot) error {
	if err := validID(snap.SessionID); err != nil {
		return err
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", snap.SessionID, err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO sessions (session_id, status, snapshot, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET status = excluded.status, snapshot = excluded.snapshot, updated_at = excluded.updated_at`,
		snap.SessionID, string(snap.Status), string(data), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save session %s: %w", snap.SessionID, err)
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, sessionID string) (puzzle.Snapshot, error) {
	var (
		data    string
		updated time.Time
	)
	err := s.db.QueryRowContext(ctx, `SELECT snapshot, updated_at FROM sessions WHERE session_id = ?`, sessionID).Scan(&data, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return puzzle.Snapshot{}, ErrNotFound
	}
	if err != nil {
		return puzzle.Snapshot{}, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}
	if expired(updated, s.maxAge) {
		if err := s.Delete(ctx, sessionID); err != nil {
			log.Warn().Err(err).Str("session", sessionID).Msg("failed to delete expired session")
		}
		return puzzle.Snapshot{}, ErrNotFound
	}

	var snap puzzle.Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		log.Warn().Err(err).Str("session", sessionID).Msg("stored session corrupted, removing")
		_ = s.Delete(ctx, sessionID)
		return puzzle.Snapshot{}, ErrNotFound
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE sessions SET updated_at = ? WHERE session_id = ?`, time.Now().UTC(), sessionID); err != nil {
		log.Warn().Err(err).Str("session", sessionID).Msg("failed to touch session")
	}
	return snap, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", sessionID, err)
	}
	return nil
}

func (s *SQLiteStore) Cleanup(ctx context.Context, maxAge time.Duration) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE updated_at < ?`, time.Now().UTC().Add(-maxAge))
	if err != nil {
		return 0, fmt.Errorf("failed to clean up sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	log.Info().Int64("removed", n).Dur("max_age", maxAge).Msg("sqlite session cleanup completed")
	return int(n), nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
