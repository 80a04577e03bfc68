package testdataset

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/okian/arcadeboard/internal/domain/ranking"
	"github.com/okian/arcadeboard/internal/domain/types"
)

// maxReportedMismatches bounds how many mismatches a report lists.
const maxReportedMismatches = 20

// verifyBoard compares a served board with the locally derived one.
func verifyBoard(expected *ranking.Board, got types.Board) []string {
	var problems []string
	if !got.Ready() {
		return []string{fmt.Sprintf("board status %q: %s", got.Status, got.Error)}
	}
	if got.Total != expected.Len() {
		problems = append(problems, fmt.Sprintf("total %d, expected %d", got.Total, expected.Len()))
	}
	if len(got.Entries) != expected.Len() {
		problems = append(problems, fmt.Sprintf("served %d entries, expected %d", len(got.Entries), expected.Len()))
	}

	for i, e := range got.Entries {
		if e.Rank != i+1 {
			problems = append(problems, fmt.Sprintf("entry %d has rank %d", i, e.Rank))
		}
		if i > 0 && e.Score > got.Entries[i-1].Score {
			problems = append(problems, fmt.Sprintf("entry %d outranks entry %d", i, i-1))
		}
		if i >= expected.Len() {
			continue
		}
		want := expected.At(i)
		if e.Key != want.Key || e.Score != want.Score {
			problems = append(problems, fmt.Sprintf("rank %d: got %s (%d), expected %s (%d)",
				i+1, e.Key, e.Score, want.Key, want.Score))
		}
	}
	return problems
}

// verifyRanks looks every participant up through /rank with a pool of workers
// and returns the number checked and the mismatches found.
func verifyRanks(ctx context.Context, client *Client, expected *ranking.Board, workers int) (int, []string) {
	if workers < 1 {
		workers = 1
	}

	var (
		checked  atomic.Int64
		mu       sync.Mutex
		problems []string
		wg       sync.WaitGroup
	)
	report := func(msg string) {
		mu.Lock()
		problems = append(problems, msg)
		mu.Unlock()
	}

	indexes := make(chan int, workers*2)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				want := expected.At(i)
				entry, err := client.Rank(ctx, want.Key)
				checked.Add(1)
				switch {
				case err != nil:
					report(fmt.Sprintf("rank %s: %v", want.Key, err))
				case entry.Rank != i+1 || entry.Score != want.Score:
					report(fmt.Sprintf("rank %s: got #%d (%d), expected #%d (%d)",
						want.Key, entry.Rank, entry.Score, i+1, want.Score))
				}
			}
		}()
	}

	go func() {
		defer close(indexes)
		for i := range expected.Len() {
			select {
			case <-ctx.Done():
				return
			case indexes <- i:
			}
		}
	}()

	wg.Wait()
	return int(checked.Load()), problems
}

func truncate(problems []string) []string {
	if len(problems) <= maxReportedMismatches {
		return problems
	}
	return append(problems[:maxReportedMismatches:maxReportedMismatches],
		fmt.Sprintf("... and %d more", len(problems)-maxReportedMismatches))
}
