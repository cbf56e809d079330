// Package types holds the JSON request and response bodies of the HTTP API.
package types

import (
	"time"

	"github.com/samber/lo"

	"connsolver/internal/puzzle"
)

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// GroupJSON is a confirmed or rejected group as the browser client sees it.
type GroupJSON struct {
	Words     []string `json:"words"`
	Reason    string   `json:"reason"`
	ErrorType string   `json:"error_type,omitempty"`
}

// CorrectGroups maps each confirmed color to a one-element list, the shape
// the browser client expects.
type CorrectGroups map[puzzle.Color][]GroupJSON

type SetupResponse struct {
	RemainingWords []string      `json:"remaining_words"`
	Status         puzzle.Status `json:"status"`
}

type RecommendResponse struct {
	RecommendedGroup []string `json:"recommended_group"`
	ConnectionReason string   `json:"connection_reason"`
	Recommender      string   `json:"recommender"`
}

// FeedbackRequest carries either Color or Response. Group, when present,
// must match the pending recommendation.
type FeedbackRequest struct {
	Color    string   `json:"color" form:"color"`
	Response string   `json:"response" form:"response"`
	Group    []string `json:"group" form:"group"`
	Reason   string   `json:"reason" form:"reason"`
}

type FeedbackResponse struct {
	RemainingWords []string      `json:"remaining_words"`
	Status         puzzle.Status `json:"status"`
	CorrectGroups  CorrectGroups `json:"correct_groups"`
	InvalidGroups  []GroupJSON   `json:"invalid_groups"`
	Mistakes       int           `json:"mistakes"`
}

type OverrideRequest struct {
	Group  []string `json:"group" form:"group"`
	Reason string   `json:"reason" form:"reason"`
}

type OverrideResponse struct {
	Status           puzzle.Status `json:"status"`
	RecommendedGroup []string      `json:"recommended_group"`
	ConnectionReason string        `json:"connection_reason"`
	RemainingWords   []string      `json:"remaining_words"`
}

type TerminateResponse struct {
	Status  puzzle.Status `json:"status"`
	Message string        `json:"message"`
}

// StateResponse is the full view of a session.
type StateResponse struct {
	SessionID      string             `json:"session_id"`
	Status         puzzle.Status      `json:"status"`
	RemainingWords []string           `json:"remaining_words"`
	CorrectGroups  CorrectGroups      `json:"correct_groups"`
	InvalidGroups  []GroupJSON        `json:"invalid_groups"`
	Mistakes       int                `json:"mistakes"`
	MaxMistakes    int                `json:"max_mistakes"`
	Pending        *RecommendResponse `json:"pending,omitempty"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// NewCorrectGroups converts the confirmed groups of a snapshot.
func NewCorrectGroups(groups map[puzzle.Color]puzzle.Group) CorrectGroups {
	return lo.MapValues(groups, func(g puzzle.Group, _ puzzle.Color) []GroupJSON {
		return []GroupJSON{{Words: g.Words, Reason: g.Reason}}
	})
}

// NewInvalidGroups converts the rejection history of a snapshot.
func NewInvalidGroups(attempts []puzzle.InvalidAttempt) []GroupJSON {
	return lo.Map(attempts, func(a puzzle.InvalidAttempt, _ int) GroupJSON {
		return GroupJSON{Words: a.Words, Reason: a.Reason, ErrorType: string(a.ErrorType)}
	})
}

func NewRecommendResponse(rec puzzle.Recommendation) RecommendResponse {
	return RecommendResponse{
		RecommendedGroup: rec.Group.Words,
		ConnectionReason: rec.Group.Reason,
		Recommender:      rec.Recommender,
	}
}

func NewFeedbackResponse(snap puzzle.Snapshot) FeedbackResponse {
	return FeedbackResponse{
		RemainingWords: nonNil(snap.RemainingWords),
		Status:         snap.Status,
		CorrectGroups:  NewCorrectGroups(snap.CorrectGroups),
		InvalidGroups:  NewInvalidGroups(snap.InvalidGroups),
		Mistakes:       snap.Mistakes,
	}
}

func NewStateResponse(snap puzzle.Snapshot) StateResponse {
	resp := StateResponse{
		SessionID:      snap.SessionID,
		Status:         snap.Status,
		RemainingWords: nonNil(snap.RemainingWords),
		CorrectGroups:  NewCorrectGroups(snap.CorrectGroups),
		InvalidGroups:  NewInvalidGroups(snap.InvalidGroups),
		Mistakes:       snap.Mistakes,
		MaxMistakes:    snap.MaxMistakes,
		UpdatedAt:      snap.UpdatedAt,
	}
	if snap.Pending != nil {
		p := NewRecommendResponse(*snap.Pending)
		resp.Pending = &p
	}
	return resp
}

// nonNil keeps empty word lists encoded as [] instead of null.
func nonNil(words []string) []string {
	if words == nil {
		return []string{}
	}
	return words
}
