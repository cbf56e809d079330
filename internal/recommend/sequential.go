package recommend

import (
	"context"

	"connsolver/internal/puzzle"
)

// Sequential proposes the first combination of remaining words, in puzzle
// order, that has not been rejected yet. It needs no external service.
type Sequential struct{}

func (Sequential) Recommend(ctx context.Context, view puzzle.View) (puzzle.Recommendation, error) {
	if err := ctx.Err(); err != nil {
		return puzzle.Recommendation{}, err
	}
	rejected := rejectedSet(view)
	var found []string
	combinations(len(view.RemainingWords), puzzle.GroupSize, func(idx []int) bool {
		candidate := pick(view.RemainingWords, idx)
		if _, seen := rejected[groupKey(candidate)]; seen {
			return true
		}
		found = candidate
		return false
	})
	if found == nil {
		return puzzle.Recommendation{}, ErrExhausted
	}
	return puzzle.Recommendation{
		Group: puzzle.Group{
			Words:  found,
			Reason: "Next untried combination of the remaining words",
		},
		Recommender: NameSequential,
	}, nil
}
