package ranking

import (
	"cmp"
	"slices"
	"strconv"

	"github.com/okian/arcadeboard/internal/domain/model"
)

// Board is the result of one derivation cycle: the ranked list and the rank
// index, built together and immutable afterwards.
type Board struct {
	ranked []model.Participant
	index  map[string]int
}

// Totals aggregates the ranked list.
type Totals struct {
	Participants int
	SkillBadges  int
	ArcadePoints int
	Active       int // participants with a score above zero
}

// Derive ranks records with a default Normalizer.
func Derive(records []model.RawRecord) *Board {
	return NewNormalizer().Derive(records)
}

// Derive normalizes records, stable-sorts them by score descending and
// indexes every identity key to its 1-based rank. records is not modified.
//
// Identity keys are made unique in input order: the first holder keeps the
// key and later duplicates get a "#2", "#3", ... suffix.
func (n *Normalizer) Derive(records []model.RawRecord) *Board {
	ranked := make([]model.Participant, len(records))
	used := make(map[string]struct{}, len(records))

	for i, rec := range records {
		p := n.Normalize(i, rec)
		if _, dup := used[p.Key]; dup {
			n.observer.KeyCollision(p.Key)
			p.Key = disambiguate(p.Key, used)
		}
		used[p.Key] = struct{}{}
		ranked[i] = p
	}

	slices.SortStableFunc(ranked, func(a, b model.Participant) int {
		return cmp.Compare(b.Score, a.Score)
	})

	index := make(map[string]int, len(ranked))
	for i, p := range ranked {
		index[p.Key] = i + 1
	}

	return &Board{ranked: ranked, index: index}
}

func disambiguate(key string, used map[string]struct{}) string {
	for n := 2; ; n++ {
		candidate := key + "#" + strconv.Itoa(n)
		if _, taken := used[candidate]; !taken {
			return candidate
		}
	}
}

// Len returns the number of ranked participants.
func (b *Board) Len() int {
	if b == nil {
		return 0
	}
	return len(b.ranked)
}

// Ranked returns a copy of the full ranked list.
func (b *Board) Ranked() []model.Participant {
	if b == nil {
		return nil
	}
	return slices.Clone(b.ranked)
}

// At returns the participant at 0-based position i of the ranked list.
func (b *Board) At(i int) model.Participant {
	return b.ranked[i]
}

// Rank returns the global 1-based rank of key.
func (b *Board) Rank(key string) (int, bool) {
	if b == nil {
		return 0, false
	}
	r, ok := b.index[key]
	return r, ok
}

// Lookup returns the participant holding key together with its rank.
func (b *Board) Lookup(key string) (model.Participant, int, bool) {
	r, ok := b.Rank(key)
	if !ok {
		return model.Participant{}, 0, false
	}
	return b.ranked[r-1], r, true
}

// Filter returns the participants whose name matches query, in global rank
// order. The returned slice is owned by the caller.
func (b *Board) Filter(query string) []model.Participant {
	if b == nil {
		return nil
	}
	return Filter(b.Ranked(), query)
}

// Totals sums the ranked list.
func (b *Board) Totals() Totals {
	var t Totals
	if b == nil {
		return t
	}
	t.Participants = len(b.ranked)
	for _, p := range b.ranked {
		t.SkillBadges += p.SkillBadges
		t.ArcadePoints += p.ArcadePoints
		if p.Score > 0 {
			t.Active++
		}
	}
	return t
}
