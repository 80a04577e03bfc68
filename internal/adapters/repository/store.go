// Package repository holds the published leaderboard snapshot.
package repository

import (
	"context"
	"time"

	"github.com/okian/arcadeboard/internal/domain/model"
	"github.com/okian/arcadeboard/internal/domain/ranking"
	"github.com/okian/arcadeboard/internal/domain/types"
)

// Snapshot is the outcome of one load cycle. Exactly one of Board and Err is
// set. A published snapshot is never mutated.
type Snapshot struct {
	Generation uint64
	LoadedAt   time.Time
	Source     string
	Board      *ranking.Board
	Err        error
}

// Status maps the snapshot to a view-model status. A nil snapshot is still loading.
func (s *Snapshot) Status() string {
	switch {
	case s == nil:
		return types.StatusLoading
	case s.Err != nil:
		return types.StatusError
	default:
		return types.StatusReady
	}
}

func (s *Snapshot) board() *ranking.Board {
	if s == nil {
		return nil
	}
	return s.Board
}

// Store publishes and serves leaderboard snapshots.
type Store interface {
	// Begin reserves the generation number for a new load cycle.
	Begin() uint64

	// Publish installs snap unless a newer generation is already visible.
	// Returns ErrStale when snap lost the race.
	Publish(ctx context.Context, snap *Snapshot) error

	// Current returns the visible snapshot, or ErrNotLoaded before the first publish.
	Current(ctx context.Context) (*Snapshot, error)

	// Rank returns the entry for key from the visible snapshot.
	// Returns ErrNotFound if the key is unknown.
	Rank(ctx context.Context, key string) (types.Entry, error)

	// Count returns the number of ranked participants.
	Count(ctx context.Context) int
}

// EntryOf converts a ranked participant to its view-model row.
func EntryOf(p model.Participant, rank int) types.Entry {
	return types.Entry{
		Rank:         rank,
		Key:          p.Key,
		Name:         p.Name,
		ProfileURL:   p.ProfileURL,
		SkillBadges:  p.SkillBadges,
		ArcadePoints: p.ArcadePoints,
		Score:        p.Score,
	}
}
