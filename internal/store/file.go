package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"connsolver/internal/puzzle"
)

// DefaultDir is where FileStore keeps snapshots when no directory is set.
const DefaultDir = "data/sessions"

// FileStore keeps one JSON file per session. File modification time is the
// last access time used for expiry.
type FileStore struct {
	dir    string
	maxAge time.Duration
}

// NewFileStore creates the snapshot directory if needed.
func NewFileStore(opts ...Option) (*FileStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Dir == "" {
		cfg.Dir = DefaultDir
	}
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("create sessions directory: %w", err)
	}
	return &FileStore{dir: cfg.Dir, maxAge: cfg.MaxAge}, nil
}

func (s *FileStore) path(sessionID string) string {
	return filepath.Join(s.dir, sessionID+".json")
}

func (s *FileStore) Save(_ context.Context, snap puzzle.Snapshot) error {
	if err := validID(snap.SessionID); err != nil {
		return err
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", snap.SessionID, err)
	}

	// Write then rename so a crash never leaves a truncated snapshot.
	tmp, err := os.CreateTemp(s.dir, snap.SessionID+".*.tmp")
	if err != nil {
		return fmt.Errorf("save session %s: %w", snap.SessionID, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("save session %s: %w", snap.SessionID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("save session %s: %w", snap.SessionID, err)
	}
	if err := os.Rename(tmp.Name(), s.path(snap.SessionID)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("save session %s: %w", snap.SessionID, err)
	}
	log.Debug().Str("session", snap.SessionID).Str("status", string(snap.Status)).Msg("session saved to file")
	return nil
}

func (s *FileStore) Load(_ context.Context, sessionID string) (puzzle.Snapshot, error) {
	if validID(sessionID) != nil {
		return puzzle.Snapshot{}, ErrNotFound
	}
	file := s.path(sessionID)
	info, err := os.Stat(file)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return puzzle.Snapshot{}, ErrNotFound
		}
		return puzzle.Snapshot{}, err
	}
	if expired(info.ModTime(), s.maxAge) {
		log.Info().Str("file", file).Dur("age", time.Since(info.ModTime())).Msg("session file expired, removing")
		os.Remove(file)
		return puzzle.Snapshot{}, ErrNotFound
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return puzzle.Snapshot{}, fmt.Errorf("read session %s: %w", sessionID, err)
	}
	var snap puzzle.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil || snap.SessionID != sessionID {
		log.Warn().Err(err).Str("file", file).Msg("session file corrupted, removing")
		os.Remove(file)
		return puzzle.Snapshot{}, ErrNotFound
	}

	now := time.Now()
	_ = os.Chtimes(file, now, now)
	return snap, nil
}

func (s *FileStore) Delete(_ context.Context, sessionID string) error {
	if validID(sessionID) != nil {
		return nil
	}
	if err := os.Remove(s.path(sessionID)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete session %s: %w", sessionID, err)
	}
	return nil
}

func (s *FileStore) Cleanup(_ context.Context, maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("read sessions directory: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed, failed := 0, 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			failed++
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil {
			log.Warn().Err(err).Str("file", entry.Name()).Msg("failed to remove old session file")
			failed++
			continue
		}
		removed++
	}
	log.Info().Int("removed", removed).Int("errors", failed).Dur("max_age", maxAge).Msg("session file cleanup completed")
	return removed, nil
}

func (s *FileStore) Close() error { return nil }
