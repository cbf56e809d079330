package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"connsolver/internal/puzzle"
)

func testSnapshot(id string) puzzle.Snapshot {
	words := []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J", "K", "L", "M", "N", "O", "P"}
	return puzzle.Snapshot{
		SessionID:      id,
		Status:         puzzle.StatusAwaitingFeedback,
		Words:          words,
		RemainingWords: words[4:],
		CorrectGroups: map[puzzle.Color]puzzle.Group{
			puzzle.Yellow: {Words: words[:4], Reason: "first"},
		},
		InvalidGroups: []puzzle.InvalidAttempt{
			{Words: []string{"E", "F", "G", "M"}, Reason: "guess", ErrorType: puzzle.OneAway},
		},
		Mistakes:    1,
		MaxMistakes: 4,
		Pending: &puzzle.Recommendation{
			Group:       puzzle.Group{Words: []string{"E", "F", "G", "H"}, Reason: "next"},
			Recommender: "sequential",
		},
		UpdatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func openStores(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()
	file, err := NewFileStore(WithDir(filepath.Join(dir, "sessions")))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	sqlite, err := NewSQLiteStore(WithDSN(filepath.Join(dir, "db", "sessions.db")))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })
	return map[string]Store{
		DriverFile:   file,
		DriverSQLite: sqlite,
		DriverMemory: NewMemoryStore(),
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			snap := testSnapshot(uuid.NewString())
			if err := s.Save(ctx, snap); err != nil {
				t.Fatalf("Save: %v", err)
			}
			got, err := s.Load(ctx, snap.SessionID)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if got.Status != snap.Status || got.Mistakes != 1 || len(got.RemainingWords) != 12 {
				t.Errorf("loaded %+v", got)
			}
			if got.Pending == nil || got.Pending.Group.Reason != "next" {
				t.Errorf("pending lost: %+v", got.Pending)
			}
			if g := got.CorrectGroups[puzzle.Yellow]; g.Reason != "first" || len(g.Words) != 4 {
				t.Errorf("correct groups = %+v", got.CorrectGroups)
			}
			if len(got.InvalidGroups) != 1 || got.InvalidGroups[0].ErrorType != puzzle.OneAway {
				t.Errorf("invalid groups = %+v", got.InvalidGroups)
			}

			snap.Status = puzzle.StatusTerminated
			snap.Pending = nil
			if err := s.Save(ctx, snap); err != nil {
				t.Fatalf("second Save: %v", err)
			}
			if got, _ := s.Load(ctx, snap.SessionID); got.Status != puzzle.StatusTerminated || got.Pending != nil {
				t.Errorf("overwrite not applied: %+v", got)
			}

			if err := s.Delete(ctx, snap.SessionID); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if _, err := s.Load(ctx, snap.SessionID); !errors.Is(err, ErrNotFound) {
				t.Errorf("Load after Delete error = %v, want ErrNotFound", err)
			}
			if err := s.Delete(ctx, snap.SessionID); err != nil {
				t.Errorf("second Delete: %v", err)
			}
		})
	}
}

func TestStoreRejectsInvalidIDs(t *testing.T) {
	ctx := context.Background()
	ids := []string{
		"short",
		"../victim1234",
		"../../etc/passwd",
		"sessions/" + uuid.NewString(),
		strings.ToUpper(uuid.NewString()),
		"urn:uuid:" + uuid.NewString(),
	}
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			for _, id := range ids {
				if err := s.Save(ctx, testSnapshot(id)); err == nil {
					t.Errorf("Save accepted session ID %q", id)
				}
				if _, err := s.Load(ctx, id); !errors.Is(err, ErrNotFound) {
					t.Errorf("Load(%q) error = %v, want ErrNotFound", id, err)
				}
			}
		})
	}
}

func TestFileStoreIgnoresPathsOutsideDir(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s, err := NewFileStore(WithDir(filepath.Join(root, "sessions")))
	if err != nil {
		t.Fatal(err)
	}
	victim := filepath.Join(root, "victim1234.json")
	if err := os.WriteFile(victim, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Load(ctx, "../victim1234"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load error = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, "../victim1234"); err != nil {
		t.Errorf("Delete: %v", err)
	}
	if _, err := os.Stat(victim); err != nil {
		t.Errorf("file outside the session dir was touched: %v", err)
	}
}

func TestValidSessionID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{uuid.NewString(), true},
		{"", false},
		{"not-a-uuid-at-all", false},
		{"../" + uuid.NewString(), false},
		{strings.ReplaceAll(uuid.NewString(), "-", ""), false},
		{"{" + uuid.NewString() + "}", false},
	}
	for _, tt := range tests {
		if got := ValidSessionID(tt.id); got != tt.want {
			t.Errorf("ValidSessionID(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestStoreCleanupKeepsFreshSessions(t *testing.T) {
	ctx := context.Background()
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			snap := testSnapshot(uuid.NewString())
			if err := s.Save(ctx, snap); err != nil {
				t.Fatal(err)
			}
			removed, err := s.Cleanup(ctx, time.Hour)
			if err != nil || removed != 0 {
				t.Errorf("Cleanup = %d, %v; want 0, nil", removed, err)
			}
			if _, err := s.Load(ctx, snap.SessionID); err != nil {
				t.Errorf("fresh session removed: %v", err)
			}
		})
	}
}

func TestFileStoreExpiry(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewFileStore(WithDir(dir), WithMaxAge(time.Hour))
	if err != nil {
		t.Fatal(err)
	}

	fresh := testSnapshot(uuid.NewString())
	old := testSnapshot(uuid.NewString())
	for _, snap := range []puzzle.Snapshot{fresh, old} {
		if err := s.Save(ctx, snap); err != nil {
			t.Fatal(err)
		}
	}
	past := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(filepath.Join(dir, old.SessionID+".json"), past, past); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Load(ctx, old.SessionID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expired Load error = %v, want ErrNotFound", err)
	}
	if _, err := os.Stat(filepath.Join(dir, old.SessionID+".json")); !os.IsNotExist(err) {
		t.Error("expired session file was not removed")
	}
	if _, err := s.Load(ctx, fresh.SessionID); err != nil {
		t.Errorf("fresh Load: %v", err)
	}
}

func TestFileStoreCleanup(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewFileStore(WithDir(dir))
	if err != nil {
		t.Fatal(err)
	}
	ids := []string{uuid.NewString(), uuid.NewString(), uuid.NewString()}
	for _, id := range ids {
		if err := s.Save(ctx, testSnapshot(id)); err != nil {
			t.Fatal(err)
		}
	}
	past := time.Now().Add(-3 * time.Hour)
	for _, id := range ids[:2] {
		_ = os.Chtimes(filepath.Join(dir, id+".json"), past, past)
	}
	// Unrelated files are left alone.
	_ = os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644)
	_ = os.Chtimes(filepath.Join(dir, "notes.txt"), past, past)

	removed, err := s.Cleanup(ctx, time.Hour)
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed %d files, want 2", removed)
	}
	if _, err := os.Stat(filepath.Join(dir, "notes.txt")); err != nil {
		t.Errorf("unrelated file removed: %v", err)
	}
	if _, err := s.Load(ctx, ids[2]); err != nil {
		t.Errorf("fresh session removed: %v", err)
	}
}

func TestFileStoreCorruptedFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewFileStore(WithDir(dir))
	if err != nil {
		t.Fatal(err)
	}
	id := uuid.NewString()
	path := filepath.Join(dir, id+".json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Load(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("corrupted Load error = %v, want ErrNotFound", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("corrupted file was not removed")
	}
}

func TestSQLiteStoreCleanup(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLiteStore(WithDSN(filepath.Join(t.TempDir(), "sessions.db")), WithMaxAge(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	old, fresh := testSnapshot(uuid.NewString()), testSnapshot(uuid.NewString())
	for _, snap := range []puzzle.Snapshot{old, fresh} {
		if err := s.Save(ctx, snap); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := s.db.Exec(`UPDATE sessions SET updated_at = ? WHERE session_id = ?`, time.Now().UTC().Add(-2*time.Hour), old.SessionID); err != nil {
		t.Fatal(err)
	}

	removed, err := s.Cleanup(ctx, time.Hour)
	if err != nil || removed != 1 {
		t.Errorf("Cleanup = %d, %v; want 1, nil", removed, err)
	}
	if _, err := s.Load(ctx, old.SessionID); !errors.Is(err, ErrNotFound) {
		t.Errorf("old session still loadable: %v", err)
	}
	if _, err := s.Load(ctx, fresh.SessionID); err != nil {
		t.Errorf("fresh Load: %v", err)
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(WithMaxAge(time.Hour))
	snap := testSnapshot(uuid.NewString())
	if err := s.Save(ctx, snap); err != nil {
		t.Fatal(err)
	}
	s.mu.Lock()
	e := s.sessions[snap.SessionID]
	e.touched = time.Now().Add(-2 * time.Hour)
	s.sessions[snap.SessionID] = e
	s.mu.Unlock()

	if _, err := s.Load(ctx, snap.SessionID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expired Load error = %v, want ErrNotFound", err)
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	for _, driver := range []string{DriverFile, DriverSQLite, DriverMemory} {
		s, err := Open(driver, WithDir(filepath.Join(dir, "files")), WithDSN(filepath.Join(dir, "s.db")))
		if err != nil {
			t.Fatalf("Open(%s): %v", driver, err)
		}
		s.Close()
	}
	if _, err := Open("mongo"); err == nil {
		t.Error("Open accepted an unknown driver")
	}
}
