// Package store persists session snapshots so a session survives a restart.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"connsolver/internal/puzzle"
)

// Driver names accepted by Open.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// ErrNotFound is returned when no live snapshot exists for a session.
var ErrNotFound = errors.New("session not found")

// Store saves and loads session snapshots.
type Store interface {
	Save(ctx context.Context, snap puzzle.Snapshot) error
	// Load returns ErrNotFound for unknown or expired sessions.
	Load(ctx context.Context, sessionID string) (puzzle.Snapshot, error)
	Delete(ctx context.Context, sessionID string) error
	// Cleanup removes snapshots untouched for longer than maxAge and reports
	// how many were removed.
	Cleanup(ctx context.Context, maxAge time.Duration) (int, error)
	Close() error
}

// Opts holds configuration for the stores.
type Opts struct {
	Dir    string        // FileStore directory
	DSN    string        // SQLite database path
	MaxAge time.Duration // snapshots older than this are treated as missing
}

// Option configures a store.
type Option func(*Opts)

// WithDir sets the FileStore directory.
func WithDir(dir string) Option {
	return func(o *Opts) { o.Dir = dir }
}

// WithDSN sets the SQLite database path.
func WithDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithMaxAge sets the expiry applied on Load.
func WithMaxAge(d time.Duration) Option {
	return func(o *Opts) { o.MaxAge = d }
}

// Open returns the store for driver.
func Open(driver string, opts ...Option) (Store, error) {
	switch driver {
	case "", DriverFile:
		return NewFileStore(opts...)
	case DriverSQLite:
		return NewSQLiteStore(opts...)
	case DriverMemory:
		return NewMemoryStore(opts...), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", driver)
}

// ValidSessionID reports whether id is a canonical uuid as handed out in the
// session cookie. Only such IDs are used to name files and rows.
func ValidSessionID(id string) bool {
	u, err := uuid.Parse(id)
	return err == nil && u.String() == id
}

func validID(sessionID string) error {
	if !ValidSessionID(sessionID) {
		return fmt.Errorf("invalid session ID %q", sessionID)
	}
	return nil
}

func expired(updated time.Time, maxAge time.Duration) bool {
	return maxAge > 0 && time.Since(updated) > maxAge
}
