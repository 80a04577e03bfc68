package testdataset

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Report is the outcome of a run, written as YAML.
type Report struct {
	BaseURL      string    `yaml:"base_url"`
	Dataset      string    `yaml:"dataset"`
	Seed         uint64    `yaml:"seed"`
	StartedAt    time.Time `yaml:"started_at"`
	Duration     string    `yaml:"duration"`
	Passed       bool      `yaml:"passed"`
	Generation   uint64    `yaml:"generation"`
	Rows         int       `yaml:"rows"`
	Malformed    int       `yaml:"malformed"`
	Served       int       `yaml:"served"`
	RanksChecked int       `yaml:"ranks_checked"`
	Top          []TopRow  `yaml:"top"`
	Mismatches   []string  `yaml:"mismatches,omitempty"`
}

// TopRow is one leading participant in the report.
type TopRow struct {
	Rank  int    `yaml:"rank"`
	Name  string `yaml:"name"`
	Score int    `yaml:"score"`
}

// Encode writes the report as YAML.
func (r *Report) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return enc.Close()
}

// writeReport writes the report to path, or stdout when path is empty.
func writeReport(path string, r *Report) error {
	if path == "" {
		return r.Encode(os.Stdout)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePermission)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	if err := r.Encode(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
