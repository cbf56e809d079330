package puzzle

import (
	"strings"

	"github.com/samber/lo"
)

// Session is the working state of one puzzle: the full word set, what is
// still unassigned, and the history of confirmed and rejected groups.
type Session struct {
	Words     []string
	Remaining []string
	Correct   map[Color]Group
	Invalid   []InvalidAttempt
	Mistakes  int
}

// NewSession validates words and returns a fresh session over them.
func NewSession(words []string) (*Session, error) {
	cleaned := cleanWords(words)
	if lo.Contains(cleaned, "") {
		return nil, setupf("puzzle contains an empty word")
	}
	if len(cleaned) != PuzzleSize {
		return nil, setupf("puzzle must contain %d words, got %d", PuzzleSize, len(cleaned))
	}
	if dups := lo.FindDuplicates(cleaned); len(dups) > 0 {
		return nil, setupf("puzzle contains duplicate words: %s", strings.Join(dups, ", "))
	}
	return &Session{
		Words:     cleaned,
		Remaining: append([]string(nil), cleaned...),
		Correct:   make(map[Color]Group, len(Colors)),
		Invalid:   []InvalidAttempt{},
	}, nil
}

// View is the read-only picture of a session handed to recommenders.
type View struct {
	RemainingWords  []string
	CorrectGroups   map[Color]Group
	InvalidAttempts []InvalidAttempt
	Mistakes        int
}

// View copies the session so that callers cannot mutate it.
func (s *Session) View() View {
	return View{
		RemainingWords:  append([]string(nil), s.Remaining...),
		CorrectGroups:   cloneCorrect(s.Correct),
		InvalidAttempts: cloneInvalid(s.Invalid),
		Mistakes:        s.Mistakes,
	}
}

// Solved reports whether every color has a confirmed group.
func (s *Session) Solved() bool {
	return len(s.Correct) == len(Colors)
}

// IsRemaining reports whether word is still unassigned.
func (s *Session) IsRemaining(word string) bool {
	return lo.Contains(s.Remaining, word)
}

// checkGroup enforces the shape every candidate group must have: four
// distinct words, all still in the pool.
func (s *Session) checkGroup(words []string) error {
	if len(words) != GroupSize {
		return validationf("group must contain %d words, got %d", GroupSize, len(words))
	}
	if dups := lo.FindDuplicates(words); len(dups) > 0 {
		return validationf("group repeats %s", strings.Join(dups, ", "))
	}
	if missing := lo.Without(words, s.Remaining...); len(missing) > 0 {
		return validationf("words not in the remaining pool: %s", strings.Join(missing, ", "))
	}
	return nil
}

func cleanWords(words []string) []string {
	return lo.Map(words, func(w string, _ int) string { return strings.TrimSpace(w) })
}

func cloneCorrect(in map[Color]Group) map[Color]Group {
	out := make(map[Color]Group, len(in))
	for c, g := range in {
		out[c] = g.Clone()
	}
	return out
}

func cloneInvalid(in []InvalidAttempt) []InvalidAttempt {
	return lo.Map(in, func(a InvalidAttempt, _ int) InvalidAttempt {
		a.Words = append([]string(nil), a.Words...)
		return a
	})
}
