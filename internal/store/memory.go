package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"connsolver/internal/puzzle"
)

type memoryEntry struct {
	data    []byte
	touched time.Time
}

// MemoryStore keeps snapshots in process memory. Snapshots are stored
// encoded so callers never share slices or maps with the store.
type MemoryStore struct {
	mu       sync.Mutex
	maxAge   time.Duration
	sessions map[string]memoryEntry
}

func NewMemoryStore(opts ...Option) *MemoryStore {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	return &MemoryStore{maxAge: cfg.MaxAge, sessions: make(map[string]memoryEntry)}
}

func (s *MemoryStore) Save(_ context.Context, snap puzzle.Snapshot) error {
	if err := validID(snap.SessionID); err != nil {
		return err
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[snap.SessionID] = memoryEntry{data: data, touched: time.Now()}
	return nil
}

func (s *MemoryStore) Load(_ context.Context, sessionID string) (puzzle.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[sessionID]
	if !ok {
		return puzzle.Snapshot{}, ErrNotFound
	}
	if expired(e.touched, s.maxAge) {
		delete(s.sessions, sessionID)
		return puzzle.Snapshot{}, ErrNotFound
	}
	var snap puzzle.Snapshot
	if err := json.Unmarshal(e.data, &snap); err != nil {
		return puzzle.Snapshot{}, err
	}
	e.touched = time.Now()
	s.sessions[sessionID] = e
	return snap, nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

func (s *MemoryStore) Cleanup(_ context.Context, maxAge time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, e := range s.sessions {
		if expired(e.touched, maxAge) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) Close() error { return nil }
