package storage

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/dev-tams/rotatekit/internal/config"
	"github.com/dev-tams/rotatekit/internal/rotate"
)

type fakeStorage struct {
	mu       sync.Mutex
	deleted  []string
	fail     map[string]bool
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (f *fakeStorage) Name() string { return "fake" }

func (f *fakeStorage) List(context.Context, string) ([]rotate.Item, error) { return nil, nil }

func (f *fakeStorage) Delete(_ context.Context, item rotate.Item) error {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if f.fail[item.Handle()] {
		return errors.New("permission denied")
	}
	f.mu.Lock()
	f.deleted = append(f.deleted, item.Handle())
	f.mu.Unlock()
	return nil
}

func TestRemoveItemsAttemptsEveryItem(t *testing.T) {
	st := &fakeStorage{fail: map[string]bool{"b.gz": true, "d.gz": true}}
	items := rotate.Items("a.gz", "b.gz", "c.gz", "d.gz", "e.gz")

	rm, err := RemoveItems(context.Background(), st, items, 2)
	if err == nil {
		t.Fatalf("expected joined error")
	}
	for _, name := range []string{"b.gz", "d.gz"} {
		if !strings.Contains(err.Error(), name) {
			t.Fatalf("error should mention %s: %v", name, err)
		}
	}

	var names []string
	for _, it := range rm.Removed {
		names = append(names, it.Value)
	}
	if !slices.Equal(names, []string{"a.gz", "c.gz", "e.gz"}) {
		t.Fatalf("unexpected removed list: %v", names)
	}
	if len(rm.Skipped) != 0 || rm.Failed(len(items)) != 2 {
		t.Fatalf("skipped=%v failed=%d, want none skipped and 2 failed", rm.Skipped, rm.Failed(len(items)))
	}
	if peak := st.peak.Load(); peak > 2 {
		t.Fatalf("concurrency limit exceeded: %d", peak)
	}
}

type tolerantStorage struct {
	*fakeStorage
}

func (tolerantStorage) TolerateDeleteFailures() bool { return true }

func TestRemoveItemsSkipsTolerantFailures(t *testing.T) {
	st := tolerantStorage{&fakeStorage{fail: map[string]bool{"b.gz": true}}}
	items := rotate.Items("a.gz", "b.gz", "c.gz")

	rm, err := RemoveItems(context.Background(), st, items, 2)
	if err != nil {
		t.Fatalf("tolerated failure should not be returned: %v", err)
	}
	if len(rm.Removed) != 2 {
		t.Fatalf("removed = %v, want a.gz and c.gz", rm.Removed)
	}
	if len(rm.Skipped) != 1 || rm.Skipped[0].Item.Value != "b.gz" || rm.Skipped[0].Err == nil {
		t.Fatalf("skipped = %+v, want b.gz with its error", rm.Skipped)
	}
	if got := rm.Failed(len(items)); got != 1 {
		t.Fatalf("Failed = %d, want 1", got)
	}
}

func TestRemoveItemsTolerantStillReportsCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	st := tolerantStorage{&fakeStorage{}}
	_, err := RemoveItems(ctx, st, rotate.Items("a.gz"), 1)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRemoveItemsEmpty(t *testing.T) {
	rm, err := RemoveItems(context.Background(), &fakeStorage{}, nil, 4)
	if err != nil || rm.Removed != nil || rm.Skipped != nil {
		t.Fatalf("RemoveItems(nil) = %+v, %v", rm, err)
	}
}

func TestRemoveItemsCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	st := &fakeStorage{}
	rm, err := RemoveItems(ctx, st, rotate.Items("a.gz", "b.gz"), 1)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(rm.Removed) != 0 || len(st.deleted) != 0 {
		t.Fatalf("nothing should be deleted after cancel: %v", st.deleted)
	}
}

func TestFromConfigByNames(t *testing.T) {
	cfg := &config.Config{
		Version: 1,
		Sources: []config.SourceConfig{
			{Name: "files", Type: "local", Local: &config.LocalConfig{Path: t.TempDir()}},
			{Name: "db", Type: "sqlite", Database: &config.DatabaseConfig{DSN: ":memory:"}},
			{Name: "broken", Type: "ftp"},
		},
	}

	stores, err := FromConfigByNames(context.Background(), cfg, map[string]struct{}{"files": {}, "db": {}})
	if err != nil {
		t.Fatalf("FromConfigByNames: %v", err)
	}
	defer Close(stores)
	if len(stores) != 2 || stores["files"].Name() != "files" || stores["db"].Name() != "db" {
		t.Fatalf("unexpected stores: %v", stores)
	}

	if _, err := FromConfig(context.Background(), cfg); err == nil || !strings.Contains(err.Error(), "unknown type") {
		t.Fatalf("expected unknown type error, got %v", err)
	}
}
