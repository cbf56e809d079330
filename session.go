package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"connsolver/internal/puzzle"
	"connsolver/internal/store"
)

// getOrCreateSession retrieves the session ID from the cookie or creates a new one.
func (app *App) getOrCreateSession(c *gin.Context) string {
	sessionID, err := c.Cookie(SessionCookieName)
	if err != nil || !store.ValidSessionID(sessionID) {
		sessionID = uuid.NewString()
		c.SetSameSite(http.SameSiteStrictMode)
		secure := app.IsProduction
		c.SetCookie(SessionCookieName, sessionID, int(app.CookieMaxAge.Seconds()), "/", "", secure, true)
		logInfo("Created new session: %s", sessionID)
	}
	return sessionID
}

// getController returns the controller for a session. A session missing from
// memory is restored from the store, and an unknown one starts awaiting setup.
func (app *App) getController(ctx context.Context, sessionID string) (*puzzle.Controller, error) {
	app.SessionMutex.RLock()
	ctrl, exists := app.Sessions[sessionID]
	app.SessionMutex.RUnlock()
	if exists {
		return ctrl, nil
	}

	ctrl, err := puzzle.NewController(sessionID, app.Broker, puzzle.WithMaxMistakes(app.MaxMistakes))
	if err != nil {
		return nil, err
	}
	if app.Store != nil {
		app.restoreController(ctx, ctrl)
	}

	app.SessionMutex.Lock()
	defer app.SessionMutex.Unlock()
	// Another request may have registered the session meanwhile.
	if existing, ok := app.Sessions[sessionID]; ok {
		return existing, nil
	}
	app.Sessions[sessionID] = ctrl
	return ctrl, nil
}

func (app *App) restoreController(ctx context.Context, ctrl *puzzle.Controller) {
	snap, err := app.Store.Load(ctx, ctrl.ID())
	switch {
	case errors.Is(err, store.ErrNotFound):
		logInfo("Creating new session state for: %s", ctrl.ID())
		return
	case err != nil:
		logWarn("Failed to load session %s, starting fresh: %v", ctrl.ID(), err)
		return
	}
	if err := ctrl.Restore(snap); err != nil {
		logWarn("Discarding unusable stored session %s: %v", ctrl.ID(), err)
		if err := app.Store.Delete(ctx, ctrl.ID()); err != nil {
			logWarn("Failed to delete stored session %s: %v", ctrl.ID(), err)
		}
		return
	}
	logInfo("Restored session %s from store (status: %s)", ctrl.ID(), snap.Status)
}

// saveSession persists the controller state. Failures are logged only, the
// in-memory session stays authoritative.
func (app *App) saveSession(ctx context.Context, ctrl *puzzle.Controller) {
	if app.Store == nil {
		return
	}
	// Persist even when the client has gone away.
	if err := app.Store.Save(context.WithoutCancel(ctx), ctrl.Snapshot()); err != nil {
		logWarn("Failed to save session %s: %v", ctrl.ID(), err)
	}
}

// sessionCount reports how many sessions are held in memory.
func (app *App) sessionCount() int {
	app.SessionMutex.RLock()
	defer app.SessionMutex.RUnlock()
	return len(app.Sessions)
}
