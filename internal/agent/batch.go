package agent

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/filingiq/pkg/models"
)

// AnswerBatch processes a question set concurrently. Results come back in
// input order. Answer never fails, so the group only stops early on context
// cancellation.
func (p *Pipeline) AnswerBatch(ctx context.Context, questions []models.Question, concurrency int) ([]models.AnswerEnvelope, error) {
	if concurrency <= 0 {
		concurrency = 4
	}

	results := make([]models.AnswerEnvelope, len(questions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, q := range questions {
		i, q := i, q
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = p.Answer(gctx, q)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
