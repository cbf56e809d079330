package types

import (
	"encoding/json"
	"strings"
	"testing"

	"connsolver/internal/puzzle"
)

func TestFeedbackResponseShape(t *testing.T) {
	snap := puzzle.Snapshot{
		Status: puzzle.StatusSolved,
		CorrectGroups: map[puzzle.Color]puzzle.Group{
			puzzle.Blue: {Words: []string{"a", "b", "c", "d"}, Reason: "letters"},
		},
		InvalidGroups: []puzzle.InvalidAttempt{
			{Words: []string{"a", "b", "c", "e"}, Reason: "guess", ErrorType: puzzle.OneAway},
		},
		Mistakes: 1,
	}
	data, err := json.Marshal(NewFeedbackResponse(snap))
	if err != nil {
		t.Fatal(err)
	}
	got := string(data)
	for _, want := range []string{
		`"remaining_words":[]`,
		`"correct_groups":{"blue":[{"words":["a","b","c","d"],"reason":"letters"}]}`,
		`"invalid_groups":[{"words":["a","b","c","e"],"reason":"guess","error_type":"one_away"}]`,
		`"mistakes":1`,
		`"status":"solved"`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("response %s\nmissing %s", got, want)
		}
	}
}

func TestStateResponsePending(t *testing.T) {
	snap := puzzle.Snapshot{Status: puzzle.StatusAwaitingSetup}
	if resp := NewStateResponse(snap); resp.Pending != nil || resp.CorrectGroups == nil {
		t.Errorf("empty state = %+v", resp)
	}

	snap.Pending = &puzzle.Recommendation{
		Group:       puzzle.Group{Words: []string{"a", "b", "c", "d"}, Reason: "letters"},
		Recommender: puzzle.RecommenderManual,
	}
	resp := NewStateResponse(snap)
	if resp.Pending == nil || resp.Pending.Recommender != "manual" || resp.Pending.ConnectionReason != "letters" {
		t.Errorf("pending = %+v", resp.Pending)
	}
}
