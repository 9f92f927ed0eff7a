// internal/app/system/batch/batch.go

// Package batch runs a unit of work over a collection with a fixed
// concurrency ceiling. One item's failure never cancels its siblings;
// every item settles and reports its own outcome.
package batch

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Default concurrency ceilings used by the billing jobs.
const (
	DefaultLimit = 100 // top-level group/payment fan-out
	NestedLimit  = 10  // per-payment updates inside one disbursement
)

// Result is the outcome of one item. Index refers back to the input
// slice; Err is nil on success.
type Result struct {
	Index int
	Err   error
}

// Run executes fn once per item with at most limit invocations running
// concurrently. It returns when every item has settled, one Result per
// item in input order. A panic inside fn is recovered and recorded as
// that item's error. The context is passed through to fn but a cancelled
// context does not retract items already started.
func Run[T any](ctx context.Context, items []T, limit int, fn func(ctx context.Context, item T) error) []Result {
	if limit <= 0 {
		limit = DefaultLimit
	}

	results := make([]Result, len(items))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, item := range items {
		results[i].Index = i
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					results[i].Err = fmt.Errorf("panic: %v", r)
				}
			}()
			results[i].Err = fn(ctx, item)
			return nil // errors stay per-item; never cancel the group
		})
	}
	_ = g.Wait()

	return results
}

// Failed filters results down to the ones that carry an error.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}
