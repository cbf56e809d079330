// Package puzzle implements the solving session for a four-by-four word
// grouping puzzle: the word pool, the confirmed and rejected groups, and the
// controller that moves a session between setup, recommendation, feedback and
// termination.
package puzzle

import (
	"strings"

	"github.com/samber/lo"
)

// GroupSize is the number of words in every group.
const GroupSize = 4

// PuzzleSize is the number of words a puzzle must contain, one group per color.
const PuzzleSize = GroupSize * 4

// Color is the category label the puzzle assigns to each correct group.
type Color string

const (
	Yellow Color = "yellow"
	Green  Color = "green"
	Blue   Color = "blue"
	Purple Color = "purple"
)

// Colors lists the recognized colors in the puzzle's difficulty order.
var Colors = []Color{Yellow, Green, Blue, Purple}

// ParseColor normalizes s and reports whether it names a recognized color.
func ParseColor(s string) (Color, bool) {
	c := Color(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Colors {
		if c == known {
			return c, true
		}
	}
	return "", false
}

// ErrorType classifies why a group was rejected.
type ErrorType string

const (
	OneAway    ErrorType = "one_away"
	NotCorrect ErrorType = "not_correct"
)

// ParseErrorType accepts both the underscore and the hyphen spelling.
func ParseErrorType(s string) (ErrorType, bool) {
	e := ErrorType(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	switch e {
	case OneAway, NotCorrect:
		return e, true
	}
	return "", false
}

// Status summarizes session progress.
type Status string

const (
	StatusAwaitingSetup    Status = "awaiting setup"
	StatusInProgress       Status = "in progress"
	StatusAwaitingFeedback Status = "awaiting feedback"
	StatusSolved           Status = "solved"
	StatusFailed           Status = "failed"
	StatusTerminated       Status = "terminated"
)

// Open reports whether the session still accepts recommendations or feedback.
func (s Status) Open() bool {
	return s == StatusInProgress || s == StatusAwaitingFeedback
}

// Group is a set of four words with the claimed connection between them.
type Group struct {
	Words  []string `json:"words"`
	Reason string   `json:"reason"`
}

// Clone returns a copy that shares no memory with g.
func (g Group) Clone() Group {
	return Group{Words: append([]string(nil), g.Words...), Reason: g.Reason}
}

// SameWords reports whether g and other hold the same words in any order.
func (g Group) SameWords(other []string) bool {
	return lo.ElementsMatch(g.Words, other)
}

// InvalidAttempt records a rejected group.
type InvalidAttempt struct {
	Words     []string  `json:"words"`
	Reason    string    `json:"reason"`
	ErrorType ErrorType `json:"error_type"`
}

// Recommendation is a candidate group plus the engine that produced it.
type Recommendation struct {
	Group       Group  `json:"group"`
	Recommender string `json:"recommender"`
}

// RecommenderManual identifies recommendations that a human supplied through
// an override.
const RecommenderManual = "manual"

// Verdict is the human's answer to a recommendation. Exactly one of Color and
// ErrorType is set.
type Verdict struct {
	Color     Color
	ErrorType ErrorType
}

// ParseVerdict builds a verdict from the raw color and response fields of a
// feedback request.
func ParseVerdict(color, response string) (Verdict, error) {
	color, response = strings.TrimSpace(color), strings.TrimSpace(response)
	switch {
	case color != "" && response != "":
		return Verdict{}, validationf("verdict must name either a color or a response, not both")
	case color != "":
		c, ok := ParseColor(color)
		if !ok {
			return Verdict{}, validationf("unknown color %q", color)
		}
		return Verdict{Color: c}, nil
	case response != "":
		e, ok := ParseErrorType(response)
		if !ok {
			return Verdict{}, validationf("unknown response %q", response)
		}
		return Verdict{ErrorType: e}, nil
	}
	return Verdict{}, validationf("verdict requires a color or a response")
}
