package carerecord

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/Ecews-Speed-Project/cmt-api/internal/platform/predicate"
)

// Query is one independent read issued as part of a Batch.
type Query func(ctx context.Context) error

// Batch runs the independent queries behind one aggregate. The first
// failure cancels the rest and is returned; no partial result escapes.
type Batch struct {
	Store Store
	// Limit bounds concurrent queries; 0 means unbounded.
	Limit int
	// Snapshot runs the queries one after another in a single read snapshot.
	Snapshot bool
}

func (b Batch) Run(ctx context.Context, queries ...Query) error {
	if b.Snapshot {
		// A snapshot is one transaction, which cannot serve concurrent queries.
		return b.Store.ReadSnapshot(ctx, func(ctx context.Context) error {
			for _, q := range queries {
				if err := q(ctx); err != nil {
					return err
				}
			}
			return nil
		})
	}

	g, gctx := errgroup.WithContext(ctx)
	if b.Limit > 0 {
		g.SetLimit(b.Limit)
	}
	for _, q := range queries {
		g.Go(func() error { return q(gctx) })
	}
	return g.Wait()
}

// PatientCount stores the number of patients matching where into dst.
func PatientCount(store Store, where *predicate.Node, dst *int) Query {
	return func(ctx context.Context) error {
		n, err := store.CountPatients(ctx, where)
		if err != nil {
			return err
		}
		*dst = n
		return nil
	}
}

func EventCount(store Store, q EventQuery, dst *int) Query {
	return func(ctx context.Context) error {
		n, err := store.CountEvents(ctx, q)
		if err != nil {
			return err
		}
		*dst = n
		return nil
	}
}
