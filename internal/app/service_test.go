package service_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	service "github.com/okian/arcadeboard/internal/app"
	"github.com/okian/arcadeboard/internal/adapters/repository"
	"github.com/okian/arcadeboard/internal/adapters/source"
	"github.com/okian/arcadeboard/internal/domain/ranking"
	"github.com/okian/arcadeboard/internal/domain/types"
	"github.com/okian/arcadeboard/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
}

const header = "User Name,# of Skill Badges Completed,# of Arcade Games Completed,Google Cloud Skills Boost Profile URL\n"

const dataset = header +
	"A,3,2,https://skills.example/a\n" +
	"B,4,1,https://skills.example/b\n" +
	"C,1,1,\n"

// fakeSource serves an in-memory body and can hold Open until released.
type fakeSource struct {
	mu    sync.Mutex
	body  string
	err   error
	gate  chan struct{}
	opens atomic.Int32
}

func (f *fakeSource) Open(ctx context.Context) (io.ReadCloser, error) {
	f.opens.Add(1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return io.NopCloser(strings.NewReader(f.body)), nil
}

func (f *fakeSource) String() string { return "fake" }

func (f *fakeSource) set(body string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.body, f.err = body, err
}

func TestService_Leaderboard(t *testing.T) {
	Convey("Given a service over a valid dataset", t, func() {
		ctx := context.Background()
		src := &fakeSource{body: dataset}
		svc := service.New(src)

		Convey("Before the first load", func() {
			board, err := svc.Leaderboard(ctx, "")

			Convey("Then the board is loading and empty", func() {
				So(err, ShouldBeNil)
				So(board.Status, ShouldEqual, types.StatusLoading)
				So(board.Entries, ShouldBeEmpty)
				_, err := svc.Rank(ctx, "A")
				So(errors.Is(err, repository.ErrNotLoaded), ShouldBeTrue)
			})
		})

		Convey("When the dataset is loaded", func() {
			So(svc.Reload(ctx), ShouldBeNil)
			board, err := svc.Leaderboard(ctx, "")

			Convey("Then participants are ranked by score with ties in input order", func() {
				So(err, ShouldBeNil)
				So(board.Ready(), ShouldBeTrue)
				So(board.Total, ShouldEqual, 3)
				So(board.Matched, ShouldEqual, 3)
				So(board.Generation, ShouldEqual, 1)
				So(board.Entries[0].Name, ShouldEqual, "A")
				So(board.Entries[0].Rank, ShouldEqual, 1)
				So(board.Entries[1].Name, ShouldEqual, "B")
				So(board.Entries[2].Name, ShouldEqual, "C")
				So(board.Entries[2].Score, ShouldEqual, 2)
			})

			Convey("And a filtered view keeps global ranks", func() {
				filtered, err := svc.Leaderboard(ctx, "  c ")
				So(err, ShouldBeNil)
				So(filtered.Query, ShouldEqual, "c")
				So(filtered.Matched, ShouldEqual, 1)
				So(filtered.Total, ShouldEqual, 3)
				So(filtered.Entries[0].Name, ShouldEqual, "C")
				So(filtered.Entries[0].Rank, ShouldEqual, 3)
			})

			Convey("And rank lookups use the identity key", func() {
				entry, err := svc.Rank(ctx, "https://skills.example/b")
				So(err, ShouldBeNil)
				So(entry.Rank, ShouldEqual, 2)

				entry, err = svc.Rank(ctx, "C")
				So(err, ShouldBeNil)
				So(entry.Rank, ShouldEqual, 3)

				_, err = svc.Rank(ctx, "nobody")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})

			Convey("And the summary totals the dataset", func() {
				sum, err := svc.Summary(ctx)
				So(err, ShouldBeNil)
				So(sum, ShouldResemble, types.Summary{Participants: 3, SkillBadges: 8, ArcadePoints: 4, Active: 3})
			})
		})

		Convey("When a later load fails", func() {
			So(svc.Reload(ctx), ShouldBeNil)
			src.set("", errors.New("connection reset"))
			err := svc.Reload(ctx)

			Convey("Then the error is reported as a fetch error", func() {
				So(errors.Is(err, source.ErrFetch), ShouldBeTrue)
			})

			Convey("And the board shows the error instead of the stale table", func() {
				board, _ := svc.Leaderboard(ctx, "")
				So(board.Status, ShouldEqual, types.StatusError)
				So(board.Error, ShouldContainSubstring, "connection reset")
				So(board.Entries, ShouldBeEmpty)
				So(board.Generation, ShouldEqual, 2)

				_, err := svc.Summary(ctx)
				So(errors.Is(err, repository.ErrUnavailable), ShouldBeTrue)
			})

			Convey("And the next successful load recovers", func() {
				src.set(header+"Z,1,0,\n", nil)
				So(svc.Reload(ctx), ShouldBeNil)
				board, _ := svc.Leaderboard(ctx, "")
				So(board.Ready(), ShouldBeTrue)
				So(board.Entries[0].Name, ShouldEqual, "Z")
			})
		})

		Convey("When the dataset is malformed", func() {
			src.set(header+"\"broken,1,1,\n", nil)
			err := svc.Reload(ctx)

			Convey("Then the cycle fails with a parse error", func() {
				So(errors.Is(err, source.ErrParse), ShouldBeTrue)
				board, _ := svc.Leaderboard(ctx, "")
				So(board.Status, ShouldEqual, types.StatusError)
			})
		})
	})
}

func TestService_NormalizerOptions(t *testing.T) {
	Convey("Given positional fallback keys and a custom placeholder", t, func() {
		ctx := context.Background()
		src := &fakeSource{body: header + ",1,1,\n"}
		svc := service.New(src, service.WithNormalizerOptions(
			ranking.WithKeyFallback(ranking.PositionalKey),
			ranking.WithPlaceholderName("Anonymous"),
		))
		So(svc.Reload(ctx), ShouldBeNil)

		Convey("Then nameless rows are addressable by position", func() {
			entry, err := svc.Rank(ctx, "row-1")
			So(err, ShouldBeNil)
			So(entry.Name, ShouldEqual, "Anonymous")
		})
	})
}

func TestService_ReloadSingleFlight(t *testing.T) {
	Convey("Given a slow source", t, func() {
		ctx := context.Background()
		src := &fakeSource{body: dataset, gate: make(chan struct{})}
		svc := service.New(src)

		Convey("When reloads overlap", func() {
			const callers = 5
			errs := make(chan error, callers)
			for i := 0; i < callers; i++ {
				go func() { errs <- svc.Reload(ctx) }()
			}

			for src.opens.Load() == 0 {
				time.Sleep(time.Millisecond)
			}
			time.Sleep(50 * time.Millisecond)
			close(src.gate)

			for i := 0; i < callers; i++ {
				So(<-errs, ShouldBeNil)
			}

			Convey("Then they share one load cycle", func() {
				So(src.opens.Load(), ShouldEqual, 1)
				board, _ := svc.Leaderboard(ctx, "")
				So(board.Generation, ShouldEqual, 1)
			})
		})

		Convey("When the caller gives up", func() {
			cctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
			defer cancel()
			err := svc.Reload(cctx)

			Convey("Then it returns without waiting for the cycle", func() {
				So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
				close(src.gate)
			})
		})
	})

	Convey("Given a source that never answers", t, func() {
		src := &fakeSource{body: dataset, gate: make(chan struct{})}
		svc := service.New(src, service.WithFetchTimeout(20*time.Millisecond))

		Convey("Then the cycle is bounded by the fetch timeout", func() {
			err := svc.Reload(context.Background())
			So(errors.Is(err, source.ErrFetch), ShouldBeTrue)
			So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
		})
	})
}

func TestService_StartStop(t *testing.T) {
	Convey("Given a service with periodic refresh", t, func() {
		src := &fakeSource{body: dataset}
		svc := service.New(src, service.WithRefreshInterval(10*time.Millisecond))
		defer svc.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		Convey("When starting the service", func() {
			So(svc.Start(ctx), ShouldBeNil)

			Convey("Then the first load happens immediately", func() {
				board, _ := svc.Leaderboard(ctx, "")
				So(board.Ready(), ShouldBeTrue)
				So(svc.GetStats()["started"], ShouldBeTrue)
				So(svc.GetStats()["status"], ShouldEqual, types.StatusReady)
			})

			Convey("And the dataset is re-read periodically", func() {
				for src.opens.Load() < 3 && ctx.Err() == nil {
					time.Sleep(5 * time.Millisecond)
				}
				So(src.opens.Load(), ShouldBeGreaterThanOrEqualTo, 3)
			})

			Convey("And stopping halts refresh", func() {
				svc.Stop()
				So(svc.GetStats()["started"], ShouldBeFalse)
				opens := src.opens.Load()
				time.Sleep(50 * time.Millisecond)
				So(src.opens.Load(), ShouldEqual, opens)
			})
		})
	})

	Convey("Given a service whose first load fails", t, func() {
		src := &fakeSource{err: errors.New("unreachable")}
		svc := service.New(src)
		defer svc.Stop()

		Convey("Then Start still succeeds and reports the error", func() {
			So(svc.Start(context.Background()), ShouldBeNil)
			board, _ := svc.Leaderboard(context.Background(), "")
			So(board.Status, ShouldEqual, types.StatusError)
			So(svc.GetStats()["error"], ShouldContainSubstring, "unreachable")
		})
	})

	Convey("Given a service without a source", t, func() {
		Convey("Then Start fails", func() {
			So(service.New(nil).Start(context.Background()), ShouldNotBeNil)
		})
	})
}

func TestService_Countdown(t *testing.T) {
	Convey("Given a fixed clock before the deadline", t, func() {
		now := time.Date(2025, time.October, 30, 22, 58, 58, 0, time.UTC)
		svc := service.New(&fakeSource{}, service.WithClock(func() time.Time { return now }))

		Convey("Then the remaining time is split into units", func() {
			cd := svc.Countdown(context.Background())
			So(cd.Days, ShouldEqual, 1)
			So(cd.Hours, ShouldEqual, 1)
			So(cd.Minutes, ShouldEqual, 1)
			So(cd.Seconds, ShouldEqual, 1)
			So(cd.Expired, ShouldBeFalse)
			So(cd.DeadlineLabel, ShouldEqual, "31 Oct 2025")
			So(cd.Deadline.Equal(service.DefaultDeadline), ShouldBeTrue)
		})
	})

	Convey("Given a clock past a custom deadline", t, func() {
		deadline := time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC)
		svc := service.New(&fakeSource{},
			service.WithDeadline(deadline),
			service.WithClock(func() time.Time { return deadline.Add(time.Hour) }),
		)

		Convey("Then the countdown is clamped at zero and expired", func() {
			cd := svc.Countdown(context.Background())
			So(cd.Days+cd.Hours+cd.Minutes+cd.Seconds, ShouldEqual, 0)
			So(cd.Expired, ShouldBeTrue)
			So(cd.DeadlineLabel, ShouldEqual, "1 Sept 2025")
		})
	})
}
