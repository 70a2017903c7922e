package valuation

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// EvaluateBatch evaluates each query independently and returns one
// summary per query, in input order. A failing query only affects its own
// summary; there is no short-circuit and no shared state between slots.
//
// With Concurrency above 1 the queries run in a bounded errgroup; workers
// never return errors (every failure is already inside its Summary), so
// one bad query cannot cancel its siblings.
func (e *Engine) EvaluateBatch(ctx context.Context, queries []string) []Summary {
	summaries := make([]Summary, len(queries))

	if e.concurrency <= 1 {
		for i, q := range queries {
			summaries[i] = e.Evaluate(ctx, q)
		}
		e.logBatch(queries, summaries)
		return summaries
	}

	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i, q := range queries {
		i, q := i, q
		g.Go(func() error {
			summaries[i] = e.Evaluate(ctx, q)
			return nil
		})
	}
	_ = g.Wait()

	e.logBatch(queries, summaries)
	return summaries
}

func (e *Engine) logBatch(queries []string, summaries []Summary) {
	priced := 0
	for _, s := range summaries {
		if s.Priced() {
			priced++
		}
	}
	e.logger.Info("batch complete", "queries", len(queries), "priced", priced)
}
