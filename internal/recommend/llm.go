package recommend

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"connsolver/internal/puzzle"
)

// Completer sends a prompt to a language model.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

const systemPrompt = `You are an expert solver of the New York Times Connections puzzle.
The puzzle hides four groups of four words. Every group shares one specific connection.
Always answer with a single JSON object and nothing else.`

// LLM asks a language model for the most confident group among the
// remaining words.
type LLM struct {
	Model Completer
}

func (l *LLM) Recommend(ctx context.Context, view puzzle.View) (puzzle.Recommendation, error) {
	reply, err := l.Model.Complete(ctx, systemPrompt, llmPrompt(view))
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
	if err := usable(words, view, rejectedSet(view)); err != nil {
		return puzzle.Recommendation{}, fmt.Errorf("model proposal %v: %w", words, err)
	}
	log.Debug().Strs("group", words).Str("connection", ans.Connection).Msg("llm recommendation")
	return puzzle.Recommendation{
		Group:       puzzle.Group{Words: words, Reason: ans.Connection},
		Recommender: NameLLM,
	}, nil
}

func llmPrompt(view puzzle.View) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Remaining words: %s\n\n", strings.Join(view.RemainingWords, ", "))

	b.WriteString("Groups already solved:\n")
	if len(view.CorrectGroups) == 0 {
		b.WriteString("None yet.\n")
	}
	for _, color := range puzzle.Colors {
		if g, ok := view.CorrectGroups[color]; ok {
			fmt.Fprintf(&b, "- %s: %s (%s)\n", color, strings.Join(g.Words, ", "), g.Reason)
		}
	}

	b.WriteString("\nGroups already tried and rejected (do not propose them again):\n")
	if len(view.InvalidAttempts) == 0 {
		b.WriteString("None yet.\n")
	}
	for _, a := range view.InvalidAttempts {
		fmt.Fprintf(&b, "- %s [%s]\n", strings.Join(a.Words, ", "), a.ErrorType)
	}

	b.WriteString(`
Pick the group of exactly four remaining words you are most confident about.
Respond with a JSON object with two keys:
1. "words": a list of exactly 4 words taken from the remaining words
2. "connection": a concise explanation of how they are connected`)
	return b.String()
}
