package testdataset

import "time"

// Config holds configuration for a dataset verification run.
type Config struct {
	BaseURL      string        // Base URL of the service
	Participants int           // Number of rows to generate
	Workers      int           // Number of concurrent rank lookups
	Timeout      time.Duration // HTTP request timeout
	Seed         uint64        // Seed for count generation; 0 picks one from the clock
	OutputFile   string        // Dataset file the service reads
	ReportFile   string        // YAML report destination
	Verbose      bool          // Enable verbose logging
}

// Row is one generated participant as written to the dataset.
type Row struct {
	Name         string
	SkillBadges  string
	ArcadePoints string
	ProfileURL   string
}

// Stats holds run statistics.
type Stats struct {
	RowsGenerated    int
	RowsMalformed    int
	EntriesServed    int
	RanksChecked     int
	RankMismatches   int
	BoardMismatches  int
	ReloadGeneration uint64
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}
