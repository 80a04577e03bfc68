package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/arcadeboard/internal/testdataset"
)

// Default configuration constants.
const (
	defaultParticipants = 500
	defaultWorkers      = 2 // multiplier for runtime.NumCPU()
	defaultTimeout      = 30 * time.Second
	defaultTestTimeout  = 10 * time.Minute
)

func main() {
	var (
		baseURL      = flag.String("url", "http://localhost:9080", "Base URL of the service")
		dataset      = flag.String("dataset", "data/leaderboard.csv", "Dataset file the service is configured with")
		participants = flag.Int("participants", defaultParticipants, "Number of rows to generate")
		workers      = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent rank lookups")
		seed         = flag.Uint64("seed", 0, "Seed for generated counts (0 derives one from the clock)")
		timeout      = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		reportFile   = flag.String("report", "", "YAML report file (default: stdout)")
		logFile      = flag.String("log", "", "Log file for test output (default: test_log_TIMESTAMP.log)")
		verbose      = flag.Bool("verbose", false, "Enable verbose logging")
		help         = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		testdataset.ShowHelp()
		return
	}

	closer, err := testdataset.SetupLogging(*logFile, *verbose)
	if err != nil {
		_, _ = os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = closer.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	config := &testdataset.Config{
		BaseURL:      *baseURL,
		Participants: *participants,
		Workers:      *workers,
		Timeout:      *timeout,
		Seed:         *seed,
		OutputFile:   *dataset,
		ReportFile:   *reportFile,
		Verbose:      *verbose,
	}

	if _, err := testdataset.Run(ctx, config); err != nil {
		_, _ = os.Stderr.WriteString("Test failed: " + err.Error() + "\n")
		cancel()
		_ = closer.Close()
		os.Exit(1)
	}
}
