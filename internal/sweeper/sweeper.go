// Package sweeper cancels appointments whose date has passed while they were
// still pending or confirmed.
package sweeper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/wolfman30/doconsult-api/internal/clock"
	"github.com/wolfman30/doconsult-api/internal/observability/metrics"
	"github.com/wolfman30/doconsult-api/pkg/logging"
)

// Expirer cancels one chunk of stale appointments and returns their ids.
type Expirer interface {
	ExpireBefore(ctx context.Context, today clock.Date, chunk int) ([]uuid.UUID, error)
}

// ErrBusy is returned when a sweep is already running.
var ErrBusy = errors.New("sweeper: sweep already running")

// Options configures the sweeper.
type Options struct {
	// Schedule is a standard five-field cron spec.
	Schedule string
	// Timezone decides both when the schedule fires and which date is today.
	Timezone  string
	ChunkSize int
	// Clock overrides the wall clock, mainly for tests. Its readings are
	// converted to Timezone before the date is taken.
	Clock   clock.Clock
	Metrics *metrics.SweeperMetrics
}

// SweepResult summarises one sweep.
type SweepResult struct {
	Cancelled int `json:"cancelled"`
	Chunks    int `json:"chunks"`
	Failures  int `json:"failures"`
}

type Sweeper struct {
	expirer  Expirer
	schedule string
	location *time.Location
	chunk    int
	clock    clock.Clock
	metrics  *metrics.SweeperMetrics
	logger   *logging.Logger

	running sync.Mutex
	mu      sync.Mutex
	cron    *cron.Cron
}

// New validates opts and creates a sweeper. It does not start the schedule.
func New(expirer Expirer, opts Options, logger *logging.Logger) (*Sweeper, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if opts.Schedule == "" {
		opts.Schedule = "0 0 * * *"
	}
	if opts.Timezone == "" {
		opts.Timezone = "UTC"
	}
	loc, err := time.LoadLocation(opts.Timezone)
	if err != nil {
		return nil, fmt.Errorf("sweeper: timezone %q: %w", opts.Timezone, err)
	}
	if _, err := cron.ParseStandard(opts.Schedule); err != nil {
		return nil, fmt.Errorf("sweeper: schedule %q: %w", opts.Schedule, err)
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 500
	}
	if opts.Clock == nil {
		opts.Clock = clock.System{Location: loc}
	}
	return &Sweeper{
		expirer:  expirer,
		schedule: opts.Schedule,
		location: loc,
		chunk:    opts.ChunkSize,
		clock:    opts.Clock,
		metrics:  opts.Metrics,
		logger:   logger.Component("sweeper"),
	}, nil
}

// Today is the sweeper's current date in its configured timezone.
func (s *Sweeper) Today() clock.Date {
	return clock.DateOf(s.clock.Now().In(s.location))
}

// Sweep cancels every live appointment dated before today, one chunk at a
// time. Chunks commit independently. The first failed chunk ends the run and
// the rest is left for the next scheduled sweep.
func (s *Sweeper) Sweep(ctx context.Context) (SweepResult, error) {
	if !s.running.TryLock() {
		return SweepResult{}, ErrBusy
	}
	defer s.running.Unlock()

	started := time.Now()
	today := s.Today()
	var res SweepResult
	for ctx.Err() == nil {
		ids, err := s.expirer.ExpireBefore(ctx, today, s.chunk)
		if err != nil {
			res.Failures++
			s.metrics.ObserveSweep(res.Cancelled, res.Failures, time.Since(started).Seconds())
			s.logger.Error("sweep chunk failed, deferring to next run",
				"today", today.String(),
				"cancelled", res.Cancelled,
				"chunks", res.Chunks,
				"error", err,
			)
			return res, fmt.Errorf("sweeper: chunk %d: %w", res.Chunks+1, err)
		}
		res.Chunks++
		res.Cancelled += len(ids)
		if len(ids) < s.chunk {
			break
		}
	}
	elapsed := time.Since(started)
	s.metrics.ObserveSweep(res.Cancelled, res.Failures, elapsed.Seconds())
	if err := ctx.Err(); err != nil {
		return res, err
	}
	s.logger.Info("sweep finished",
		"today", today.String(),
		"cancelled", res.Cancelled,
		"chunks", res.Chunks,
		"duration_ms", elapsed.Milliseconds(),
	)
	return res, nil
}

// Start runs Sweep on the configured schedule until Stop. Jobs use ctx.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return nil
	}
	c := cron.New(cron.WithLocation(s.location))
	if _, err := c.AddFunc(s.schedule, func() {
		if _, err := s.Sweep(ctx); err != nil && !errors.Is(err, ErrBusy) {
			s.logger.Error("scheduled sweep failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("sweeper: schedule: %w", err)
	}
	c.Start()
	s.cron = c
	s.logger.Info("sweeper scheduled", "schedule", s.schedule, "timezone", s.location.String(), "chunk_size", s.chunk)
	return nil
}

// Stop halts the schedule and waits for a running sweep to return.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	<-c.Stop().Done()
}
