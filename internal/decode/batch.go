package decode

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/decoder/internal/otel"
)

// DefaultBatchConcurrency limits parallel decodes in Batch.
const DefaultBatchConcurrency = 4

// Batch decodes every request with at most concurrency in flight. Results
// are in request order. A cancelled context stops unstarted decodes; their
// slots hold only the text.
func (o *Orchestrator) Batch(ctx context.Context, reqs []Request, concurrency int) []Result {
	if concurrency <= 0 {
		concurrency = DefaultBatchConcurrency
	}
	start := time.Now()
	out := make([]Result, len(reqs))

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, req := range reqs {
		g.Go(func() error {
			if ctx.Err() != nil {
				out[i] = Result{Text: req.Text}
				return nil
			}
			out[i] = o.Decode(ctx, req)
			return nil // never fail the group; each result carries its own status
		})
	}
	_ = g.Wait()

	o.events.Emit(otel.Event{
		Level: otel.LevelInfo,
		Kind:  otel.KindBatchComplete,
		Comp:  "decode",
		Dur:   time.Since(start),
		Count: len(reqs),
	})
	return out
}
