package storage

import (
	"context"
	"fmt"

	"github.com/sourcegraph/conc/pool"

	"github.com/dev-tams/rotatekit/internal/rotate"
)

// Storage is a place rotation candidates are listed from and deleted in.
type Storage interface {
	Name() string
	// List returns the items under prefix. A missing prefix is an empty
	// listing, not an error.
	List(ctx context.Context, prefix string) ([]rotate.Item, error)
	// Delete removes item. Removing an item that is already gone succeeds.
	Delete(ctx context.Context, item rotate.Item) error
}

// Tolerant is implemented by stores whose delete failures are skipped rather
// than reported: object stores, snapshots and databases. The local filesystem
// reports every failure other than a missing file.
type Tolerant interface {
	TolerateDeleteFailures() bool
}

func tolerant(st Storage) bool {
	t, ok := st.(Tolerant)
	return ok && t.TolerateDeleteFailures()
}

// Removal is the outcome of RemoveItems.
type Removal struct {
	// Removed holds the deleted items in input order.
	Removed []rotate.Item
	// Skipped holds the items whose sink tolerated the failure.
	Skipped []Failure
}

type Failure struct {
	Item rotate.Item
	Err  error
}

// Failed is the number of items that were not removed, skipped or not.
func (r Removal) Failed(total int) int { return total - len(r.Removed) }

// RemoveItems deletes items with at most concurrency deletions in flight. Every
// item is attempted. Failures of a Tolerant store land in Skipped; the others
// are joined into the returned error. Cancellation is always reported.
func RemoveItems(ctx context.Context, st Storage, items []rotate.Item, concurrency int) (Removal, error) {
	if len(items) == 0 {
		return Removal{}, nil
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	skip := tolerant(st)
	removed := make([]bool, len(items))
	skipped := make([]error, len(items))
	p := pool.New().WithErrors().WithContext(ctx).WithMaxGoroutines(concurrency)
	for i, item := range items {
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("delete %s: %w", item.Handle(), err)
			}
			err := st.Delete(ctx, item)
			switch {
			case err == nil:
				removed[i] = true
			case skip && ctx.Err() == nil:
				skipped[i] = err
			default:
				return fmt.Errorf("delete %s: %w", item.Handle(), err)
			}
			return nil
		})
	}
	err := p.Wait()

	var out Removal
	for i, item := range items {
		switch {
		case removed[i]:
			out.Removed = append(out.Removed, item)
		case skipped[i] != nil:
			out.Skipped = append(out.Skipped, Failure{Item: item, Err: skipped[i]})
		}
	}
	return out, err
}
