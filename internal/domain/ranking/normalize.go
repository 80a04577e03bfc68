// Package ranking turns raw dataset rows into a globally ranked leaderboard.
//
// Derive normalizes every record into a model.Participant, stable-sorts them
// by score (descending, input order on ties) and indexes each identity key to
// its 1-based rank. The ranked list and the index are produced together and
// never recomputed independently. Filter narrows the ranked list by a name
// query without touching the index, so a filtered view always shows global
// ranks.
package ranking

import (
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/okian/arcadeboard/internal/domain/model"
)

// Field names reported to an Observer when a count is coerced to zero.
const (
	FieldSkillBadges  = "skill_badges"
	FieldArcadePoints = "arcade_points"
)

// DefaultPlaceholderName is shown for rows without a user name.
const DefaultPlaceholderName = "Unknown"

// Columns maps participant attributes to dataset column titles.
type Columns struct {
	Name         string
	SkillBadges  string
	ArcadePoints string
	ProfileURL   string
}

// DefaultColumns returns the column titles of the campaign progress export.
func DefaultColumns() Columns {
	return Columns{
		Name:         "User Name",
		SkillBadges:  "# of Skill Badges Completed",
		ArcadePoints: "# of Arcade Games Completed",
		ProfileURL:   "Google Cloud Skills Boost Profile URL",
	}
}

// KeyFallback produces an identity key for a row that has neither a profile
// URL nor a name. seq is the 0-based input position.
type KeyFallback func(seq int) string

// RandomKey returns a fresh random token. Keys differ across reloads.
func RandomKey(int) string {
	return uuid.NewString()
}

// PositionalKey returns a key derived from the input position. Keys are stable
// across reloads as long as row order is.
func PositionalKey(seq int) string {
	return "row-" + strconv.Itoa(seq+1)
}

// Observer is notified about non-fatal data conditions found while deriving.
type Observer interface {
	FieldCoerced(field string)
	KeyCollision(key string)
}

type nopObserver struct{}

func (nopObserver) FieldCoerced(string) {}
func (nopObserver) KeyCollision(string) {}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithColumns overrides the column mapping. Empty titles keep the default.
func WithColumns(c Columns) Option {
	return func(n *Normalizer) {
		if c.Name != "" {
			n.columns.Name = c.Name
		}
		if c.SkillBadges != "" {
			n.columns.SkillBadges = c.SkillBadges
		}
		if c.ArcadePoints != "" {
			n.columns.ArcadePoints = c.ArcadePoints
		}
		if c.ProfileURL != "" {
			n.columns.ProfileURL = c.ProfileURL
		}
	}
}

// WithPlaceholderName sets the display name used for rows without a name.
func WithPlaceholderName(name string) Option {
	return func(n *Normalizer) {
		if name != "" {
			n.placeholder = name
		}
	}
}

// WithKeyFallback sets how keys are produced for rows without URL or name.
func WithKeyFallback(f KeyFallback) Option {
	return func(n *Normalizer) {
		if f != nil {
			n.fallback = f
		}
	}
}

// WithObserver registers an observer for coercions and key collisions.
func WithObserver(o Observer) Option {
	return func(n *Normalizer) {
		if o != nil {
			n.observer = o
		}
	}
}

// Normalizer converts raw records into participants. It holds no per-load
// state and is safe for concurrent use if its Observer is.
type Normalizer struct {
	columns     Columns
	placeholder string
	fallback    KeyFallback
	observer    Observer
}

// NewNormalizer creates a Normalizer with the default column mapping,
// "Unknown" placeholder and random fallback keys.
func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{
		columns:     DefaultColumns(),
		placeholder: DefaultPlaceholderName,
		fallback:    RandomKey,
		observer:    nopObserver{},
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Columns returns the active column mapping.
func (n *Normalizer) Columns() Columns {
	return n.columns
}

// Normalize builds the participant for the record at input position seq.
// The returned key is not yet checked for uniqueness; Derive does that.
func (n *Normalizer) Normalize(seq int, rec model.RawRecord) model.Participant {
	name := strings.TrimSpace(rec[n.columns.Name])
	profile := strings.TrimSpace(rec[n.columns.ProfileURL])

	badges, ok := parseCount(rec[n.columns.SkillBadges])
	if !ok {
		n.observer.FieldCoerced(FieldSkillBadges)
	}
	arcade, ok := parseCount(rec[n.columns.ArcadePoints])
	if !ok {
		n.observer.FieldCoerced(FieldArcadePoints)
	}

	p := model.Participant{
		Name:         name,
		ProfileURL:   profile,
		SkillBadges:  badges,
		ArcadePoints: arcade,
		Score:        addCounts(badges, arcade),
		Seq:          seq,
	}

	switch {
	case profile != "":
		p.Key = profile
	case name != "":
		p.Key = name
	default:
		p.Key = n.fallback(seq)
	}

	if p.Name == "" {
		p.Name = n.placeholder
	}
	return p
}

// parseCount reads the leading integer of s. Surrounding whitespace and a sign
// are accepted and trailing garbage is ignored ("12abc" is 12). It returns
// false when the value had to be coerced to zero: no digits, negative, or out
// of range.
func parseCount(s string) (int, bool) {
	s = strings.TrimSpace(s)
	neg := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}

	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}

	v, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	if neg && v != 0 {
		return 0, false
	}
	return v, true
}

func addCounts(a, b int) int {
	if a > math.MaxInt-b {
		return math.MaxInt
	}
	return a + b
}
