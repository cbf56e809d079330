// Package recommend provides the engines that propose the next group to try.
// Every engine satisfies puzzle.Broker.
package recommend

import (
	"errors"
	"slices"
	"strings"

	"github.com/samber/lo"

	"connsolver/internal/puzzle"
)

// Engine names reported in Recommendation.Recommender.
const (
	NameSequential = "sequential"
	NameLLM        = "llm"
	NameEmbedding  = "embedding"
	NameOneAway    = "one_away_analyzer"
)

var (
	// ErrExhausted means every candidate group has already been rejected.
	ErrExhausted = errors.New("no untried group left")
	// ErrNotApplicable is returned by engines that only act in some states.
	ErrNotApplicable = errors.New("recommender not applicable")
)

func groupKey(words []string) string {
	sorted := slices.Clone(words)
	slices.Sort(sorted)
	return strings.Join(sorted, "\x00")
}

// rejectedSet indexes the invalid attempts of a view by their word set.
func rejectedSet(view puzzle.View) map[string]struct{} {
	return lo.Associate(view.InvalidAttempts, func(a puzzle.InvalidAttempt) (string, struct{}) {
		return groupKey(a.Words), struct{}{}
	})
}

// combinations calls fn with every k-subset of [0, n) in lexicographic order
// until fn returns false.
func combinations(n, k int, fn func(idx []int) bool) {
	if k > n || k <= 0 {
		return
	}
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	for {
		if !fn(idx) {
			return
		}
		i := k - 1
		for i >= 0 && idx[i] == n-k+i {
			i--
		}
		if i < 0 {
			return
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}

func pick(words []string, idx []int) []string {
	return lo.Map(idx, func(i int, _ int) string { return words[i] })
}

// resolveWords maps words an engine produced back onto the remaining pool,
// ignoring case and surrounding space. ok is false when a word is unknown.
func resolveWords(words []string, remaining []string) ([]string, bool) {
	byFold := lo.Associate(remaining, func(w string) (string, string) {
		return strings.ToLower(w), w
	})
	out := make([]string, 0, len(words))
	for _, w := range words {
		canonical, found := byFold[strings.ToLower(strings.TrimSpace(w))]
		if !found {
			return nil, false
		}
		out = append(out, canonical)
	}
	return out, true
}

// usable reports whether words form a fresh candidate group for view.
func usable(words []string, view puzzle.View, rejected map[string]struct{}) error {
	if len(words) != puzzle.GroupSize || len(lo.Uniq(words)) != puzzle.GroupSize {
		return errors.New("need four distinct words")
	}
	if _, seen := rejected[groupKey(words)]; seen {
		return errors.New("group was already rejected")
	}
	if len(lo.Without(words, view.RemainingWords...)) > 0 {
		return errors.New("group uses words outside the pool")
	}
	return nil
}
