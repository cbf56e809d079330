package recommend

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"connsolver/internal/puzzle"
)

// Planner routes a request to the right engine: the one-away analyzer right
// after a one-away verdict, the primary engine otherwise or when the
// analyzer fails.
type Planner struct {
	Primary puzzle.Broker
	OneAway puzzle.Broker
}

func (p *Planner) Recommend(ctx context.Context, view puzzle.View) (puzzle.Recommendation, error) {
	if p.OneAway != nil {
		rec, err := p.OneAway.Recommend(ctx, view)
		switch {
		case err == nil:
			return rec, nil
		case errors.Is(err, ErrNotApplicable):
		case ctx.Err() != nil:
			return puzzle.Recommendation{}, ctx.Err()
		default:
			log.Warn().Err(err).Msg("one-away analysis failed, falling back to primary recommender")
		}
	}
	return p.Primary.Recommend(ctx, view)
}

// Build returns the broker for engine. The llm and embedding engines need a
// client and are wrapped in a Planner together with the one-away analyzer.
func Build(engine string, client *Client) (puzzle.Broker, error) {
	switch engine {
	case "", NameSequential:
		return Sequential{}, nil
	case NameLLM, NameEmbedding:
		if client == nil {
			return nil, fmt.Errorf("recommender %s requires an OpenAI client: %w", engine, ErrMissingAPIKey)
		}
		var primary puzzle.Broker = &LLM{Model: client}
		if engine == NameEmbedding {
			primary = &Embedding{Embedder: client}
		}
		return &Planner{Primary: primary, OneAway: &OneAway{Model: client}}, nil
	}
	return nil, fmt.Errorf("unknown recommender %q", engine)
}
