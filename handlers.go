package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"connsolver/internal/loader"
	"connsolver/internal/puzzle"
	"connsolver/internal/types"
)

// setupHandler loads a puzzle file and starts a fresh session over its words.
// The file is either named by puzzle_file or uploaded as puzzle_upload.
func (app *App) setupHandler(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := app.getOrCreateSession(c)

	words, err := app.readPuzzle(c)
	if err != nil {
		app.writeError(c, err)
		return
	}
	ctrl, err := app.getController(ctx, sessionID)
	if err != nil {
		app.writeError(c, err)
		return
	}
	snap, err := ctrl.Setup(words)
	if err != nil {
		logWarn("Session %s setup rejected: %v", sessionID, err)
		app.writeError(c, err)
		return
	}
	app.saveSession(ctx, ctrl)
	logInfo("Session %s set up with %d words", sessionID, len(snap.Words))

	c.JSON(http.StatusOK, types.SetupResponse{
		RemainingWords: snap.RemainingWords,
		Status:         snap.Status,
	})
}

func (app *App) readPuzzle(c *gin.Context) ([]string, error) {
	if header, err := c.FormFile(FieldPuzzleUpload); err == nil {
		f, err := header.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", puzzle.ErrSetup, err)
		}
		defer f.Close()
		return loader.Parse(header.Filename, f)
	}
	name := c.PostForm(FieldPuzzleFile)
	if name == "" {
		return nil, fmt.Errorf("%w: %s is required", puzzle.ErrSetup, FieldPuzzleFile)
	}
	return app.Loader.Load(name)
}

// recommendHandler asks the broker for the next group to try.
func (app *App) recommendHandler(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := app.getOrCreateSession(c)
	ctrl, err := app.getController(ctx, sessionID)
	if err != nil {
		app.writeError(c, err)
		return
	}

	rec, err := ctrl.Recommend(ctx)
	if err != nil {
		app.writeError(c, err)
		return
	}
	app.saveSession(ctx, ctrl)
	logInfo("Session %s recommended %v via %s", sessionID, rec.Group.Words, rec.Recommender)
	c.JSON(http.StatusOK, types.NewRecommendResponse(rec))
}

// feedbackHandler applies the puzzle's verdict on the pending recommendation.
func (app *App) feedbackHandler(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := app.getOrCreateSession(c)

	var req types.FeedbackRequest
	if err := c.ShouldBind(&req); err != nil {
		app.writeError(c, fmt.Errorf("%w: %w", puzzle.ErrValidation, err))
		return
	}
	verdict, err := puzzle.ParseVerdict(req.Color, req.Response)
	if err != nil {
		app.writeError(c, err)
		return
	}
	ctrl, err := app.getController(ctx, sessionID)
	if err != nil {
		app.writeError(c, err)
		return
	}

	snap, err := ctrl.SubmitFeedback(verdict, req.Group)
	if err != nil {
		app.writeError(c, err)
		return
	}
	app.saveSession(ctx, ctrl)
	logInfo("Session %s feedback applied (color: %q, response: %q), status: %s", sessionID, verdict.Color, verdict.ErrorType, snap.Status)
	c.JSON(http.StatusOK, types.NewFeedbackResponse(snap))
}

// overrideHandler replaces the pending recommendation with the user's group.
func (app *App) overrideHandler(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := app.getOrCreateSession(c)

	var req types.OverrideRequest
	if err := c.ShouldBind(&req); err != nil {
		app.writeError(c, fmt.Errorf("%w: %w", puzzle.ErrValidation, err))
		return
	}
	ctrl, err := app.getController(ctx, sessionID)
	if err != nil {
		app.writeError(c, err)
		return
	}

	snap, err := ctrl.Override(req.Group, req.Reason)
	if err != nil {
		app.writeError(c, err)
		return
	}
	app.saveSession(ctx, ctrl)
	logInfo("Session %s overrode recommendation with %v", sessionID, snap.Pending.Group.Words)
	c.JSON(http.StatusOK, types.OverrideResponse{
		Status:           snap.Status,
		RecommendedGroup: snap.Pending.Group.Words,
		ConnectionReason: snap.Pending.Group.Reason,
		RemainingWords:   snap.RemainingWords,
	})
}

// terminateHandler ends the session. It always succeeds.
func (app *App) terminateHandler(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := app.getOrCreateSession(c)
	ctrl, err := app.getController(ctx, sessionID)
	if err != nil {
		app.writeError(c, err)
		return
	}

	snap := ctrl.Terminate()
	app.saveSession(ctx, ctrl)
	logInfo("Session %s terminated", sessionID)
	c.JSON(http.StatusOK, types.TerminateResponse{Status: snap.Status, Message: MessageTerminated})
}

// stateHandler returns the full session state.
func (app *App) stateHandler(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := app.getOrCreateSession(c)
	ctrl, err := app.getController(ctx, sessionID)
	if err != nil {
		app.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.NewStateResponse(ctrl.Snapshot()))
}

// healthzHandler returns a JSON health check with server stats.
func (app *App) healthzHandler(c *gin.Context) {
	uptime := time.Since(app.StartTime)
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"env":         map[bool]string{true: "production", false: "development"}[app.IsProduction],
		"sessions":    app.sessionCount(),
		"recommender": app.Recommender,
		"uptime":      formatUptime(uptime),
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	})
}

// errorStatus maps a session error to its HTTP status and error code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, puzzle.ErrSetup) && errors.Is(err, os.ErrNotExist):
		return http.StatusNotFound, CodeSetup
	case errors.Is(err, puzzle.ErrSetup):
		return http.StatusBadRequest, CodeSetup
	case errors.Is(err, puzzle.ErrNoSession):
		return http.StatusConflict, CodeNoSession
	case errors.Is(err, puzzle.ErrNoPendingRecommendation):
		return http.StatusConflict, CodeNoPending
	case errors.Is(err, puzzle.ErrAlreadyPending):
		return http.StatusConflict, CodeAlreadyPending
	case errors.Is(err, puzzle.ErrDuplicateColor):
		return http.StatusConflict, CodeDuplicateColor
	case errors.Is(err, puzzle.ErrValidation):
		return http.StatusBadRequest, CodeValidation
	case errors.Is(err, puzzle.ErrRecommender):
		return http.StatusBadGateway, CodeRecommender
	}
	return http.StatusInternalServerError, CodeInternal
}

func (app *App) writeError(c *gin.Context, err error) {
	status, code := errorStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logWarn("Request %s failed: %v", requestID(c.Request.Context()), err)
		msg = "internal error"
	}
	c.AbortWithStatusJSON(status, types.ErrorResponse{Error: msg, Code: code})
}
