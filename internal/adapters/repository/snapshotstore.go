package repository

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/okian/arcadeboard/internal/domain/types"
	"github.com/okian/arcadeboard/pkg/metrics"
)

// SnapshotStore is a lock-free Store. Readers load one pointer and see either
// the previous or the next snapshot in full, never a mix.
type SnapshotStore struct {
	next     atomic.Uint64
	snapshot atomic.Pointer[Snapshot]
}

// NewSnapshotStore returns an empty store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{}
}

// Begin implements Store.Begin.
func (s *SnapshotStore) Begin() uint64 {
	return s.next.Add(1)
}

// Publish implements Store.Publish. Generations only move forward, so a slow
// cycle that finishes after a newer one cannot overwrite it.
func (s *SnapshotStore) Publish(_ context.Context, snap *Snapshot) error {
	if snap == nil {
		return fmt.Errorf("%w: nil snapshot", ErrStale)
	}
	for {
		cur := s.snapshot.Load()
		if cur != nil && cur.Generation >= snap.Generation {
			metrics.RecordSnapshotRejected()
			return fmt.Errorf("%w: %d <= %d", ErrStale, snap.Generation, cur.Generation)
		}
		if s.snapshot.CompareAndSwap(cur, snap) {
			break
		}
	}

	metrics.RecordSnapshotPublished(snap.Generation, snap.LoadedAt.Unix())
	metrics.UpdateDatasetRecords(snap.Board.Len())
	return nil
}

// Current implements Store.Current.
func (s *SnapshotStore) Current(_ context.Context) (*Snapshot, error) {
	snap := s.snapshot.Load()
	if snap == nil {
		return nil, ErrNotLoaded
	}
	return snap, nil
}

// Rank implements Store.Rank.
func (s *SnapshotStore) Rank(ctx context.Context, key string) (types.Entry, error) {
	snap, err := s.Current(ctx)
	if err != nil {
		return types.Entry{}, err
	}
	if snap.Err != nil {
		return types.Entry{}, fmt.Errorf("%w: %w", ErrUnavailable, snap.Err)
	}
	p, rank, ok := snap.Board.Lookup(key)
	if !ok {
		return types.Entry{}, fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	return EntryOf(p, rank), nil
}

// Count implements Store.Count.
func (s *SnapshotStore) Count(_ context.Context) int {
	return s.snapshot.Load().board().Len()
}
