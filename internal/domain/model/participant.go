// Package model contains domain models passed between layers.
package model

// RawRecord is one parsed data row keyed by column name. Values are kept
// exactly as they appear in the source; no coercion happens at this stage.
type RawRecord map[string]string

// Participant is a normalized dataset row. It is built once per load cycle and
// never mutated afterwards.
type Participant struct {
	Name         string // display name, placeholder when the source is empty
	ProfileURL   string // empty when the source field is empty
	SkillBadges  int
	ArcadePoints int
	Score        int    // SkillBadges + ArcadePoints
	Key          string // identity key used for list identity and rank lookup
	Seq          int    // 0-based position in the input sequence
}

// HasProfile reports whether the participant links to an external profile.
func (p Participant) HasProfile() bool {
	return p.ProfileURL != ""
}
