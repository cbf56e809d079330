package puzzle

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// Outcome is what a verdict did to the session as a whole.
type Outcome int

const (
	OutcomeContinue Outcome = iota
	OutcomeSolved
	OutcomeFailed
)

// ApplyVerdict records v against the pending group. Every check runs before
// the first write, so a returned error means s is untouched. maxMistakes <= 0
// disables the mistake budget.
func ApplyVerdict(s *Session, pending Group, v Verdict, maxMistakes int) (Outcome, error) {
	switch {
	case v.Color != "" && v.ErrorType != "":
		return OutcomeContinue, validationf("verdict must name either a color or a response, not both")
	case v.Color != "":
		return confirmGroup(s, pending, v.Color)
	case v.ErrorType != "":
		return rejectGroup(s, pending, v.ErrorType, maxMistakes)
	}
	return OutcomeContinue, validationf("empty verdict")
}

func confirmGroup(s *Session, pending Group, color Color) (Outcome, error) {
	if _, ok := ParseColor(string(color)); !ok {
		return OutcomeContinue, validationf("unknown color %q", color)
	}
	if _, taken := s.Correct[color]; taken {
		return OutcomeContinue, fmt.Errorf("%w: %s", ErrDuplicateColor, color)
	}
	if err := s.checkGroup(pending.Words); err != nil {
		return OutcomeContinue, err
	}

	s.Correct[color] = pending.Clone()
	s.Remaining = lo.Without(s.Remaining, pending.Words...)

	if s.Solved() {
		return OutcomeSolved, nil
	}
	return OutcomeContinue, nil
}

func rejectGroup(s *Session, pending Group, errType ErrorType, maxMistakes int) (Outcome, error) {
	if _, ok := ParseErrorType(string(errType)); !ok {
		return OutcomeContinue, validationf("unknown response %q", errType)
	}

	s.Invalid = append(s.Invalid, InvalidAttempt{
		Words:     append([]string(nil), pending.Words...),
		Reason:    pending.Reason,
		ErrorType: errType,
	})
	s.Mistakes++

	if maxMistakes > 0 && s.Mistakes >= maxMistakes {
		return OutcomeFailed, nil
	}
	return OutcomeContinue, nil
}

// ValidateOverride checks a human-supplied replacement for the pending
// recommendation and returns it as a group.
func ValidateOverride(s *Session, words []string, reason string) (Group, error) {
	words = cleanWords(words)
	if err := s.checkGroup(words); err != nil {
		return Group{}, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return Group{}, validationf("override reason must not be empty")
	}
	return Group{Words: words, Reason: reason}, nil
}
