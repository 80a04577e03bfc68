// Package types contains the read-side view-model handed to presentation
// layers (HTTP API, dashboard).
package types

import "time"

// Board status values.
const (
	StatusLoading = "loading"
	StatusReady   = "ready"
	StatusError   = "error"
)

// Entry is one leaderboard row with its global rank.
type Entry struct {
	Rank         int    `json:"rank"`
	Key          string `json:"key"`
	Name         string `json:"name"`
	ProfileURL   string `json:"profile_url,omitempty"`
	SkillBadges  int    `json:"skill_badges"`
	ArcadePoints int    `json:"arcade_points"`
	Score        int    `json:"score"`
}

// Board is an immutable view of the leaderboard for one query. Entries are
// never a partially loaded or stale table: when the last load failed Status
// is StatusError and Entries is empty.
type Board struct {
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	Query      string    `json:"query,omitempty"`
	Total      int       `json:"total"`
	Matched    int       `json:"matched"`
	Generation uint64    `json:"generation"`
	LoadedAt   time.Time `json:"loaded_at,omitzero"`
	Entries    []Entry   `json:"entries"`
}

// Ready reports whether the board holds a successfully derived dataset.
func (b Board) Ready() bool {
	return b.Status == StatusReady
}

// Summary aggregates the current dataset.
type Summary struct {
	Participants int `json:"participants"`
	SkillBadges  int `json:"skill_badges"`
	ArcadePoints int `json:"arcade_points"`
	Active       int `json:"active"`
}

// Countdown is the time left until the campaign deadline.
type Countdown struct {
	Deadline      time.Time `json:"deadline"`
	DeadlineLabel string    `json:"deadline_label"`
	Days          int       `json:"days"`
	Hours         int       `json:"hours"`
	Minutes       int       `json:"minutes"`
	Seconds       int       `json:"seconds"`
	Expired       bool      `json:"expired"`
}
