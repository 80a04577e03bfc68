package testdataset

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/arcadeboard/internal/domain/ranking"
	"github.com/okian/arcadeboard/internal/domain/types"
	"github.com/okian/arcadeboard/pkg/logger"
)

// ErrVerification is returned when the service disagrees with the generated dataset.
var ErrVerification = errors.New("leaderboard verification failed")

const reportTopN = 10

// Run writes a fresh dataset to the file the service reads, forces a reload
// and checks every served rank against a locally derived board.
func Run(ctx context.Context, config *Config) (*Report, error) {
	log := logger.Named("testdataset")
	stats := &Stats{StartTime: time.Now()}

	seed := config.Seed
	if seed == 0 {
		seed = uint64(stats.StartTime.UnixNano())
	}

	log.Info(ctx, "starting arcadeboard dataset test",
		logger.String("baseURL", config.BaseURL),
		logger.Int("participants", config.Participants),
		logger.Int("workers", config.Workers),
		logger.Duration("timeout", config.Timeout),
		logger.Uint64("seed", seed),
		logger.String("dataset", config.OutputFile))

	if config.OutputFile == "" {
		return nil, errors.New("no dataset file configured")
	}

	client := NewClient(config.BaseURL, config.Timeout)

	// Step 1: Check service health
	if err := client.Health(ctx); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate and write the dataset
	rows := NewGenerator(seed).Generate(config.Participants)
	stats.RowsGenerated = len(rows)
	stats.RowsMalformed = Malformed(rows)
	if err := writeDatasetFile(config.OutputFile, rows); err != nil {
		return nil, fmt.Errorf("dataset write failed: %w", err)
	}
	expected := ranking.NewNormalizer(ranking.WithKeyFallback(ranking.PositionalKey)).Derive(Records(rows))

	// Step 3: Force the service to pick it up
	reloaded, err := client.Reload(ctx)
	if err != nil {
		return nil, fmt.Errorf("reload failed: %w", err)
	}
	stats.ReloadGeneration = reloaded.Generation
	log.Info(ctx, "dataset reloaded", logger.Uint64("generation", reloaded.Generation), logger.Int("total", reloaded.Total))

	// Step 4: Compare the full board
	board, err := client.Leaderboard(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("leaderboard retrieval failed: %w", err)
	}
	stats.EntriesServed = len(board.Entries)
	problems := verifyBoard(expected, board)
	stats.BoardMismatches = len(problems)

	// Step 5: Look every participant up
	checked, rankProblems := verifyRanks(ctx, client, expected, config.Workers)
	stats.RanksChecked = checked
	stats.RankMismatches = len(rankProblems)
	problems = append(problems, rankProblems...)

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	report := &Report{
		BaseURL:      config.BaseURL,
		Dataset:      config.OutputFile,
		Seed:         seed,
		StartedAt:    stats.StartTime.UTC(),
		Duration:     stats.Duration.Round(time.Millisecond).String(),
		Passed:       len(problems) == 0,
		Generation:   stats.ReloadGeneration,
		Rows:         stats.RowsGenerated,
		Malformed:    stats.RowsMalformed,
		Served:       stats.EntriesServed,
		RanksChecked: stats.RanksChecked,
		Top:          topRows(board.Entries, reportTopN),
		Mismatches:   truncate(problems),
	}

	displayFinalStats(ctx, log, stats, config.Verbose)

	if err := writeReport(config.ReportFile, report); err != nil {
		log.Warn(ctx, "failed to write report", logger.Error(err))
	}

	if !report.Passed {
		return report, fmt.Errorf("%w: %d mismatches", ErrVerification, len(problems))
	}
	log.Info(ctx, "test completed successfully")
	return report, nil
}

func topRows(entries []types.Entry, n int) []TopRow {
	n = min(n, len(entries))
	out := make([]TopRow, n)
	for i := range n {
		out[i] = TopRow{Rank: entries[i].Rank, Name: entries[i].Name, Score: entries[i].Score}
	}
	return out
}

// displayFinalStats logs the run statistics.
func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats, verbose bool) {
	var checksPerSecond float64
	if stats.Duration > 0 {
		checksPerSecond = float64(stats.RanksChecked) / stats.Duration.Seconds()
	}

	fields := []logger.Field{
		logger.Int("rowsGenerated", stats.RowsGenerated),
		logger.Int("entriesServed", stats.EntriesServed),
		logger.Int("ranksChecked", stats.RanksChecked),
		logger.Int("boardMismatches", stats.BoardMismatches),
		logger.Int("rankMismatches", stats.RankMismatches),
		logger.Duration("duration", stats.Duration),
		logger.Float64("checksPerSecond", checksPerSecond),
	}
	if verbose {
		fields = append(fields,
			logger.Int("rowsMalformed", stats.RowsMalformed),
			logger.Uint64("generation", stats.ReloadGeneration))
	}
	log.Info(ctx, "final statistics", fields...)
}
