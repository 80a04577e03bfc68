package testdataset

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/arcadeboard/pkg/logger"
)

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string, verbose bool) (io.Closer, error) {
	if logFile == "" {
		logFile = "test_log_" + time.Now().Format("20060102_150405") + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, filePermission)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	if err := logger.Init(logger.WithWriter(io.MultiWriter(os.Stderr, file))); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		_ = logger.SetLevelString("debug")
	}
	return file, nil
}

// ShowHelp prints usage information for the dataset test tool.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`Arcadeboard Dataset Test Tool
=============================

Writes a synthetic campaign export to the file a running service reads,
forces a reload and checks every served rank against a local derivation.

Usage:
  go run ./cmd/test-dataset [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -dataset string
        Dataset file the service is configured with (default "data/leaderboard.csv")
  -participants int
        Number of rows to generate (default 500)
  -workers int
        Number of concurrent rank lookups (default CPU cores * 2)
  -seed uint
        Seed for generated counts (default: derived from the clock)
  -timeout duration
        HTTP request timeout (default 30s)
  -report string
        YAML report file (default: stdout)
  -log string
        Log file for test output (default: test_log_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Service started with ARCADEBOARD_SOURCE=/tmp/board.csv
  go run ./cmd/test-dataset -dataset /tmp/board.csv -participants 5000

  # Reproducible run with a saved report
  go run ./cmd/test-dataset -seed 42 -report report.yaml
`)
}
