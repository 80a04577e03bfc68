package repository

import "errors"

// Sentinel kinds for snapshot lookups.
var (
	ErrNotFound    = errors.New("participant not found")
	ErrNotLoaded   = errors.New("dataset not loaded yet")
	ErrUnavailable = errors.New("dataset unavailable")
	ErrStale       = errors.New("snapshot generation is stale")
)
