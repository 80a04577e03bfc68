// Package service wires the dataset loader, the ranking engine and the
// snapshot store, and implements the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/okian/arcadeboard/internal/adapters/repository"
	"github.com/okian/arcadeboard/internal/adapters/source"
	"github.com/okian/arcadeboard/internal/domain/countdown"
	"github.com/okian/arcadeboard/internal/domain/model"
	"github.com/okian/arcadeboard/internal/domain/ranking"
	"github.com/okian/arcadeboard/internal/domain/types"
	"github.com/okian/arcadeboard/pkg/logger"
	"github.com/okian/arcadeboard/pkg/metrics"
)

const (
	tracerName          = "github.com/okian/arcadeboard/internal/app"
	reloadKey           = "reload"
	defaultFetchTimeout = 15 * time.Second
)

// DefaultDeadline is the campaign end used when none is configured.
var DefaultDeadline = time.Date(2025, time.October, 31, 23, 59, 59, 0, time.UTC)

// Service implements the API dependencies for the leaderboard.
type Service struct {
	mu sync.RWMutex

	// Core components
	source source.Source
	loader *source.Loader
	store  repository.Store
	group  singleflight.Group
	tracer trace.Tracer

	// Configuration
	normalizerOpts  []ranking.Option
	refreshInterval time.Duration
	fetchTimeout    time.Duration
	deadline        time.Time
	now             func() time.Time

	// State
	started bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLoader replaces the dataset loader.
func WithLoader(l *source.Loader) Option {
	return func(s *Service) {
		if l != nil {
			s.loader = l
		}
	}
}

// WithStore replaces the snapshot store.
func WithStore(st repository.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// WithNormalizerOptions configures how raw records are normalized.
func WithNormalizerOptions(opts ...ranking.Option) Option {
	return func(s *Service) {
		s.normalizerOpts = append(s.normalizerOpts, opts...)
	}
}

// WithRefreshInterval enables periodic reloads. Zero disables them.
func WithRefreshInterval(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.refreshInterval = d
		}
	}
}

// WithFetchTimeout bounds a single load cycle.
func WithFetchTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.fetchTimeout = d
		}
	}
}

// WithDeadline sets the countdown deadline.
func WithDeadline(t time.Time) Option {
	return func(s *Service) {
		if !t.IsZero() {
			s.deadline = t
		}
	}
}

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithTracer overrides the tracer.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service reading from src.
func New(src source.Source, opts ...Option) *Service {
	s := &Service{
		source:       src,
		loader:       source.NewLoader(),
		store:        repository.NewSnapshotStore(),
		tracer:       otel.Tracer(tracerName),
		fetchTimeout: defaultFetchTimeout,
		deadline:     DefaultDeadline,
		now:          time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start performs the first load cycle and, when configured, starts the
// refresh loop. A failed first load is not fatal: the board reports the error
// until a later cycle succeeds.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	if s.source == nil {
		s.mu.Unlock()
		return errors.New("service: no dataset source")
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.started = true
	s.stopCh = make(chan struct{})
	stop := s.stopCh
	s.mu.Unlock()

	s.logger.Info(ctx, "starting leaderboard service...",
		logger.String("source", s.source.String()),
		logger.Duration("refreshInterval", s.refreshInterval),
	)

	if err := s.Reload(ctx); err != nil {
		s.logger.Warn(ctx, "initial load failed", logger.Error(err))
	}

	if s.refreshInterval > 0 {
		s.startRefresher(ctx, stop)
	}

	s.logger.Info(ctx, "leaderboard service started")
	return nil
}

func (s *Service) startRefresher(ctx context.Context, stop <-chan struct{}) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.refreshInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case <-ticker.C:
				if err := s.Reload(ctx); err != nil {
					s.logger.Warn(ctx, "periodic reload failed", logger.Error(err))
				}
			}
		}
	}()
}

// Stop gracefully shuts down the refresh loop.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	close(s.stopCh)
	s.started = false
	s.mu.Unlock()

	s.wg.Wait()
	s.log().Info(context.Background(), "leaderboard service stopped")
}

// Reload runs one load cycle: fetch, parse, derive and publish. Callers that
// overlap share the in-flight cycle and its result. The cycle itself is bounded
// by the fetch timeout, not by ctx, so one caller giving up does not fail the
// others.
func (s *Service) Reload(ctx context.Context) error {
	ch := s.group.DoChan(reloadKey, func() (any, error) {
		return nil, s.reload(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		if res.Shared {
			metrics.RecordDatasetLoad(metrics.ResultShared, 0)
		}
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) reload(ctx context.Context) error {
	gen := s.store.Begin()

	ctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()
	ctx, span := s.tracer.Start(ctx, "service.Reload", trace.WithAttributes(
		attribute.Int64("snapshot.generation", int64(gen)), //nolint:gosec // generations stay far below MaxInt64
		attribute.String("dataset.source", s.source.String()),
	))
	defer span.End()

	log := s.log().With(logger.Uint64("generation", gen), logger.String("source", s.source.String()))

	start := time.Now()
	records, loadErr := s.loader.Load(ctx, s.source)
	loadMs := float64(time.Since(start).Microseconds()) / 1000

	snap := &repository.Snapshot{Generation: gen, LoadedAt: s.now(), Source: s.source.String()}
	if loadErr != nil {
		metrics.RecordDatasetLoad(metrics.ResultFailure, loadMs)
		metrics.RecordDatasetLoadError(source.Kind(loadErr))
		span.RecordError(loadErr)
		span.SetStatus(codes.Error, source.Kind(loadErr))
		log.Error(ctx, "dataset load failed",
			logger.String("kind", source.Kind(loadErr)),
			logger.Float64("ms", loadMs),
			logger.Error(loadErr),
		)
		snap.Err = loadErr
	} else {
		metrics.RecordDatasetLoad(metrics.ResultSuccess, loadMs)
		snap.Board = s.derive(ctx, log, records)
		log.Info(ctx, "dataset loaded",
			logger.Int("records", len(records)),
			logger.Int("participants", snap.Board.Len()),
			logger.Float64("ms", loadMs),
		)
	}

	if err := s.store.Publish(ctx, snap); err != nil {
		log.Warn(ctx, "snapshot discarded", logger.Error(err))
	}
	return loadErr
}

func (s *Service) derive(ctx context.Context, log logger.Logger, records []model.RawRecord) *ranking.Board {
	_, span := s.tracer.Start(ctx, "ranking.Derive")
	defer span.End()

	obs := &cycleObserver{}
	n := ranking.NewNormalizer(append(s.normalizerOpts[:len(s.normalizerOpts):len(s.normalizerOpts)], ranking.WithObserver(obs))...)

	start := time.Now()
	board := n.Derive(records)
	deriveMs := float64(time.Since(start).Microseconds()) / 1000
	metrics.RecordDerive(deriveMs, board.Len())
	span.SetAttributes(attribute.Int("ranking.participants", board.Len()))

	if len(obs.coerced) > 0 || obs.collisions > 0 {
		log.Debug(ctx, "records normalized with fallbacks",
			logger.Int("coercedSkillBadges", obs.coerced[ranking.FieldSkillBadges]),
			logger.Int("coercedArcadePoints", obs.coerced[ranking.FieldArcadePoints]),
			logger.Int("keyCollisions", obs.collisions),
		)
	}
	return board
}

// cycleObserver counts normalization fallbacks for one derivation.
type cycleObserver struct {
	coerced    map[string]int
	collisions int
}

func (o *cycleObserver) FieldCoerced(field string) {
	if o.coerced == nil {
		o.coerced = make(map[string]int, 2)
	}
	o.coerced[field]++
	metrics.RecordFieldCoercion(field)
}

func (o *cycleObserver) KeyCollision(string) {
	o.collisions++
	metrics.RecordKeyCollision()
}

// Leaderboard returns the view-model for query. Before the first load the
// board is loading; after a failed load it carries the error and no entries.
// Matching entries keep their global rank.
func (s *Service) Leaderboard(ctx context.Context, query string) (types.Board, error) {
	if err := ctx.Err(); err != nil {
		return types.Board{}, err
	}

	query = strings.TrimSpace(query)
	b := types.Board{Status: types.StatusLoading, Query: query, Entries: []types.Entry{}}

	snap, err := s.store.Current(ctx)
	if errors.Is(err, repository.ErrNotLoaded) {
		return b, nil
	}
	if err != nil {
		return types.Board{}, err
	}

	b.Status = snap.Status()
	b.Generation = snap.Generation
	b.LoadedAt = snap.LoadedAt
	if snap.Err != nil {
		b.Error = snap.Err.Error()
		return b, nil
	}

	matches := snap.Board.Filter(query)
	b.Total = snap.Board.Len()
	b.Matched = len(matches)
	b.Entries = make([]types.Entry, len(matches))
	for i, p := range matches {
		rank, _ := snap.Board.Rank(p.Key)
		b.Entries[i] = repository.EntryOf(p, rank)
	}

	metrics.RecordLeaderboardQuery(query != "")
	return b, nil
}

// Rank returns the global rank entry for an identity key.
func (s *Service) Rank(ctx context.Context, key string) (types.Entry, error) {
	return s.store.Rank(ctx, key)
}

// Countdown returns the time left until the deadline, clamped at zero.
func (s *Service) Countdown(_ context.Context) types.Countdown {
	r := countdown.TimeRemaining(s.deadline, s.now())
	return types.Countdown{
		Deadline:      s.deadline,
		DeadlineLabel: countdown.ShortDate(s.deadline),
		Days:          r.Days,
		Hours:         r.Hours,
		Minutes:       r.Minutes,
		Seconds:       r.Seconds,
		Expired:       r.Zero(),
	}
}

// Summary aggregates the current dataset.
func (s *Service) Summary(ctx context.Context) (types.Summary, error) {
	snap, err := s.store.Current(ctx)
	if err != nil {
		return types.Summary{}, err
	}
	if snap.Err != nil {
		return types.Summary{}, fmt.Errorf("%w: %w", repository.ErrUnavailable, snap.Err)
	}
	t := snap.Board.Totals()
	return types.Summary{
		Participants: t.Participants,
		SkillBadges:  t.SkillBadges,
		ArcadePoints: t.ArcadePoints,
		Active:       t.Active,
	}, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]any{
		"started":         started,
		"refreshInterval": s.refreshInterval.String(),
		"fetchTimeout":    s.fetchTimeout.String(),
		"participants":    s.store.Count(ctx),
	}
	if s.source != nil {
		stats["source"] = s.source.String()
	}

	snap, err := s.store.Current(ctx)
	stats["status"] = types.StatusLoading
	if err == nil {
		stats["status"] = snap.Status()
		stats["generation"] = snap.Generation
		stats["loadedAt"] = snap.LoadedAt
		if snap.Err != nil {
			stats["error"] = snap.Err.Error()
		}
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	metrics.UpdateSystem(mem.Alloc, runtime.NumGoroutine())

	return stats
}

func (s *Service) log() logger.Logger {
	s.mu.RLock()
	l := s.logger
	s.mu.RUnlock()
	if l == nil {
		return logger.Get()
	}
	return l
}
