package puzzle

import "time"

// Snapshot is the complete observable state of a session. It is what the
// HTTP layer reports and what the stores persist.
type Snapshot struct {
	SessionID      string           `json:"session_id"`
	Status         Status           `json:"status"`
	Words          []string         `json:"words"`
	RemainingWords []string         `json:"remaining_words"`
	CorrectGroups  map[Color]Group  `json:"correct_groups"`
	InvalidGroups  []InvalidAttempt `json:"invalid_groups"`
	Mistakes       int              `json:"mistakes"`
	MaxMistakes    int              `json:"max_mistakes"`
	Pending        *Recommendation  `json:"pending,omitempty"`
	UpdatedAt      time.Time        `json:"updated_at"`
}
