package obligations

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Snapshot pairs a filtered record list with the summary over all debts.
type Snapshot struct {
	Debts   []Obligation  `json:"debts"`
	Summary SummaryReport `json:"summary"`
}

// Snapshot runs List and GetSummary concurrently. Either failure fails the
// whole snapshot; the first error is returned.
//
// filters apply to Debts only. The summary endpoint takes no filters, so
// Summary always aggregates every debt the caller can see and need not agree
// with a filtered Debts list.
func (c *Client) Snapshot(ctx context.Context, filters FilterSet) (Snapshot, error) {
	var snap Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		debts, err := c.List(gctx, filters)
		if err != nil {
			return err
		}
		snap.Debts = debts
		return nil
	})
	g.Go(func() error {
		summary, err := c.GetSummary(gctx)
		if err != nil {
			return err
		}
		snap.Summary = summary
		return nil
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}
