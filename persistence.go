package main

import (
	"context"
	"time"
)

// evictIdleSessions drops in-memory controllers untouched for longer than
// maxAge. Their stored snapshots are left to the store's own cleanup.
func (app *App) evictIdleSessions(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)
	app.SessionMutex.Lock()
	defer app.SessionMutex.Unlock()
	removed := 0
	for id, ctrl := range app.Sessions {
		if ctrl.UpdatedAt().Before(cutoff) {
			delete(app.Sessions, id)
			removed++
		}
	}
	return removed
}

// cleanupOldSessions evicts idle sessions from memory and expires old
// snapshots in the store.
func (app *App) cleanupOldSessions(ctx context.Context, maxAge time.Duration) {
	evicted := app.evictIdleSessions(maxAge)
	stored := 0
	if app.Store != nil {
		n, err := app.Store.Cleanup(ctx, maxAge)
		if err != nil {
			logWarn("Stored session cleanup failed: %v", err)
		}
		stored = n
	}
	logInfo("Session cleanup completed: evicted %s, removed %s",
		countOf(evicted, "idle session"), countOf(stored, "stored session"))
}

// runSessionCleanup calls cleanupOldSessions every interval until ctx is done.
func (app *App) runSessionCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			app.cleanupOldSessions(ctx, app.SessionTimeout)
		}
	}
}
