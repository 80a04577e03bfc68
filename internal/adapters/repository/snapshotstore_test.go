package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/arcadeboard/internal/domain/model"
	"github.com/okian/arcadeboard/internal/domain/ranking"
	"github.com/okian/arcadeboard/internal/domain/types"
)

func board(names ...string) *ranking.Board {
	records := make([]model.RawRecord, len(names))
	for i, name := range names {
		records[i] = model.RawRecord{
			"User Name":                   name,
			"# of Skill Badges Completed": fmt.Sprint(len(names) - i),
		}
	}
	return ranking.Derive(records)
}

func TestSnapshotStore_Empty(t *testing.T) {
	ctx := context.Background()
	store := NewSnapshotStore()

	if _, err := store.Current(ctx); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("expected ErrNotLoaded, got %v", err)
	}
	if _, err := store.Rank(ctx, "Ada"); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("expected ErrNotLoaded, got %v", err)
	}
	if n := store.Count(ctx); n != 0 {
		t.Errorf("expected count 0, got %d", n)
	}

	var snap *Snapshot
	if got := snap.Status(); got != types.StatusLoading {
		t.Errorf("expected loading status for nil snapshot, got %q", got)
	}
}

func TestSnapshotStore_PublishAndRank(t *testing.T) {
	ctx := context.Background()
	store := NewSnapshotStore()

	gen := store.Begin()
	err := store.Publish(ctx, &Snapshot{Generation: gen, LoadedAt: time.Now(), Board: board("Ada", "Bob", "Cy")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if n := store.Count(ctx); n != 3 {
		t.Errorf("expected count 3, got %d", n)
	}

	entry, err := store.Rank(ctx, "Bob")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.Rank != 2 || entry.Name != "Bob" || entry.Score != 2 {
		t.Errorf("unexpected entry %+v", entry)
	}

	if _, err := store.Rank(ctx, "Dee"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	snap, _ := store.Current(ctx)
	if snap.Status() != types.StatusReady {
		t.Errorf("expected ready status, got %q", snap.Status())
	}
}

func TestSnapshotStore_ErrorSnapshotReplacesBoard(t *testing.T) {
	ctx := context.Background()
	store := NewSnapshotStore()
	loadErr := errors.New("fetch failed")

	_ = store.Publish(ctx, &Snapshot{Generation: store.Begin(), Board: board("Ada")})
	if err := store.Publish(ctx, &Snapshot{Generation: store.Begin(), Err: loadErr}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap, _ := store.Current(ctx)
	if snap.Status() != types.StatusError {
		t.Errorf("expected error status, got %q", snap.Status())
	}
	if n := store.Count(ctx); n != 0 {
		t.Errorf("failed load must not keep the previous table, count %d", n)
	}
	_, err := store.Rank(ctx, "Ada")
	if !errors.Is(err, ErrUnavailable) || !errors.Is(err, loadErr) {
		t.Errorf("expected ErrUnavailable wrapping the load error, got %v", err)
	}
}

func TestSnapshotStore_RejectsStaleGenerations(t *testing.T) {
	ctx := context.Background()
	store := NewSnapshotStore()

	older := store.Begin()
	newer := store.Begin()
	if newer <= older {
		t.Fatalf("generations must increase: %d then %d", older, newer)
	}

	if err := store.Publish(ctx, &Snapshot{Generation: newer, Board: board("New")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Publish(ctx, &Snapshot{Generation: older, Board: board("Old")}); !errors.Is(err, ErrStale) {
		t.Fatalf("expected ErrStale, got %v", err)
	}
	if err := store.Publish(ctx, &Snapshot{Generation: newer, Board: board("Again")}); !errors.Is(err, ErrStale) {
		t.Fatalf("expected ErrStale for an equal generation, got %v", err)
	}
	if err := store.Publish(ctx, nil); !errors.Is(err, ErrStale) {
		t.Fatalf("expected ErrStale for nil snapshot, got %v", err)
	}

	if _, err := store.Rank(ctx, "New"); err != nil {
		t.Errorf("newest snapshot should stay visible: %v", err)
	}
}

func TestSnapshotStore_ConcurrentPublish(t *testing.T) {
	ctx := context.Background()
	store := NewSnapshotStore()

	const writers = 16
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			gen := store.Begin()
			_ = store.Publish(ctx, &Snapshot{Generation: gen, Board: board(fmt.Sprintf("w%d", i))})
		}(i)
	}

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if snap, err := store.Current(ctx); err == nil && snap.Board.Len() != 1 {
					t.Errorf("reader saw a partial board of %d rows", snap.Board.Len())
				}
			}
		}()
	}
	wg.Wait()

	snap, err := store.Current(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Generation != writers {
		t.Errorf("expected the highest generation %d to win, got %d", writers, snap.Generation)
	}
}

func BenchmarkSnapshotStore_Rank(b *testing.B) {
	ctx := context.Background()
	store := NewSnapshotStore()
	names := make([]string, 10000)
	for i := range names {
		names[i] = fmt.Sprintf("talent-%05d", i)
	}
	_ = store.Publish(ctx, &Snapshot{Generation: store.Begin(), Board: board(names...)})

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			_, _ = store.Rank(ctx, names[i%len(names)])
			i++
		}
	})
}
