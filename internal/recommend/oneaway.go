package recommend

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"connsolver/internal/puzzle"
)

// OneAway repairs the most recent one-away rejection: three of its words are
// kept and the fourth is swapped for another remaining word.
type OneAway struct {
	Model Completer
}

// lastOneAway returns the latest rejection when it was one-away and all of
// its words are still unassigned.
func lastOneAway(view puzzle.View) (puzzle.InvalidAttempt, bool) {
	if len(view.InvalidAttempts) == 0 {
		return puzzle.InvalidAttempt{}, false
	}
	last := view.InvalidAttempts[len(view.InvalidAttempts)-1]
	if last.ErrorType != puzzle.OneAway {
		return puzzle.InvalidAttempt{}, false
	}
	if len(lo.Without(last.Words, view.RemainingWords...)) > 0 {
		return puzzle.InvalidAttempt{}, false
	}
	return last, true
}

func (o *OneAway) Recommend(ctx context.Context, view puzzle.View) (puzzle.Recommendation, error) {
	attempt, ok := lastOneAway(view)
	if !ok {
		return puzzle.Recommendation{}, ErrNotApplicable
	}
	reply, err := o.Model.Complete(ctx, systemPrompt, oneAwayPrompt(attempt, view))
	if err != nil {
		return puzzle.Recommendation{}, err
	}
	ans, err := parseGroupAnswer(reply)
	if err != nil {
		return puzzle.Recommendation{}, err
	}
	words, ok := resolveWords(ans.Words, view.RemainingWords)
	if !ok {
		return puzzle.Recommendation{}, fmt.Errorf("model proposed words outside the pool: %v", ans.Words)
	}
	if kept := len(lo.Intersect(words, attempt.Words)); kept != puzzle.GroupSize-1 {
		return puzzle.Recommendation{}, fmt.Errorf("one-away repair must keep 3 words of %v, kept %d", attempt.Words, kept)
	}
	if err := usable(words, view, rejectedSet(view)); err != nil {
		return puzzle.Recommendation{}, fmt.Errorf("one-away repair %v: %w", words, err)
	}
	return puzzle.Recommendation{
		Group:       puzzle.Group{Words: words, Reason: ans.Connection},
		Recommender: NameOneAway,
	}, nil
}

func oneAwayPrompt(attempt puzzle.InvalidAttempt, view puzzle.View) string {
	others := lo.Without(view.RemainingWords, attempt.Words...)
	var b strings.Builder
	fmt.Fprintf(&b, "This group was marked as \"one away\" (one word away from being correct):\n%s\n", strings.Join(attempt.Words, ", "))
	if attempt.Reason != "" {
		fmt.Fprintf(&b, "It was proposed because: %s\n", attempt.Reason)
	}
	b.WriteString("\n\"One away\" means that 3 of these words form a valid group with one additional word from the other remaining words.\n")
	fmt.Fprintf(&b, "Other remaining words: %s\n", strings.Join(others, ", "))
	b.WriteString(`
Identify which 3 words from the group form a theme, and which remaining word completes it.
Respond with a JSON object with two keys:
1. "words": a list of exactly 4 words (3 from the group + 1 from the other remaining words)
2. "connection": a concise explanation of how they are connected`)
	return b.String()
}
