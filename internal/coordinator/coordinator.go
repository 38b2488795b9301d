// Package coordinator runs one independent polling loop per source and merges
// each result into the snapshot store.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/grid-status-aggregator/internal/domain"
	"github.com/couchcryptid/grid-status-aggregator/internal/observability"
	"github.com/couchcryptid/grid-status-aggregator/internal/store"
)

// Source fetches and parses one upstream report.
type Source interface {
	ID() domain.SourceID
	Poll(ctx context.Context) (domain.Update, domain.ParseStats, error)
}

// Publisher receives an event after every merge. Publishing is best effort.
type Publisher interface {
	Publish(ctx context.Context, ev domain.SnapshotEvent) error
}

// Schedule pairs a source with its polling interval.
type Schedule struct {
	Source   Source
	Interval time.Duration
}

// Options tunes the coordinator. Zero values select the defaults.
type Options struct {
	FetchTimeout        time.Duration // per poll, default 10s
	PermanentBackoffMax time.Duration // default 2h
	Publisher           Publisher     // optional
}

// Result describes one completed poll cycle.
type Result struct {
	Source   domain.SourceID
	PollID   string
	Outcome  string
	Err      error
	Stats    domain.ParseStats
	Snapshot domain.Snapshot
}

// Coordinator owns the per-source polling loops. It is the only writer of the store.
type Coordinator struct {
	schedules []Schedule
	store     *store.Store
	clock     clockwork.Clock
	opts      Options
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool
}

// New creates a Coordinator polling schedules into st.
func New(st *store.Store, schedules []Schedule, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Coordinator {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 10 * time.Second
	}
	if opts.PermanentBackoffMax <= 0 {
		opts.PermanentBackoffMax = 2 * time.Hour
	}
	return &Coordinator{
		schedules: schedules,
		store:     st,
		clock:     clock,
		opts:      opts,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness returns nil once the status source has succeeded at least once.
func (c *Coordinator) CheckReadiness(_ context.Context) error {
	if !c.ready.Load() {
		return errors.New("no successful status poll yet")
	}
	return nil
}

// Run starts every poller and blocks until ctx is cancelled. Each source polls
// immediately, then on its own cadence; a slow or failing source never delays
// another.
func (c *Coordinator) Run(ctx context.Context) error {
	if len(c.schedules) == 0 {
		return errors.New("coordinator: no sources configured")
	}
	c.logger.Info("coordinator started", "sources", len(c.schedules))
	c.metrics.CoordinatorRunning.Set(1)
	defer c.metrics.CoordinatorRunning.Set(0)

	g, gctx := errgroup.WithContext(ctx)
	for _, s := range c.schedules {
		g.Go(func() error {
			c.runPoller(gctx, s)
			return nil
		})
	}
	err := g.Wait()
	c.logger.Info("coordinator stopped", "reason", ctx.Err())
	return err
}

func (c *Coordinator) runPoller(ctx context.Context, s Schedule) {
	id := s.Source.ID()
	bo := c.newBackoff(s.Interval)

	for {
		res := c.PollOnce(ctx, s.Source)
		if ctx.Err() != nil {
			return
		}

		wait := s.Interval
		if res.Outcome == domain.OutcomePermanentFailure {
			wait = bo.NextBackOff()
		} else {
			bo.Reset()
		}
		c.logger.Debug("next poll scheduled", "source", id, "next_poll_in", wait)

		select {
		case <-ctx.Done():
			return
		case <-c.clock.After(wait):
		}
	}
}

// newBackoff doubles the wait after each consecutive permanent failure,
// starting from the source's interval and capped at PermanentBackoffMax.
func (c *Coordinator) newBackoff(interval time.Duration) *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = interval
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.MaxInterval = max(c.opts.PermanentBackoffMax, interval)
	bo.MaxElapsedTime = 0
	bo.Clock = c.clock
	bo.Reset()
	return bo
}

// PollOnce runs one fetch-and-parse cycle for src and merges the outcome. A
// failure touches only src's diagnostics. When ctx is cancelled mid-poll the
// cycle is abandoned without recording anything.
func (c *Coordinator) PollOnce(ctx context.Context, src Source) Result {
	id := src.ID()
	res := Result{Source: id, PollID: uuid.NewString()}
	log := c.logger.With("source", id, "poll_id", res.PollID)

	start := c.clock.Now()
	pctx, cancel := context.WithTimeout(ctx, c.opts.FetchTimeout)
	update, stats, err := src.Poll(pctx)
	cancel()
	res.Stats = stats
	c.metrics.PollDuration.WithLabelValues(string(id)).Observe(c.clock.Since(start).Seconds())

	if stats.RowErrors > 0 {
		c.metrics.ParseRowErrors.WithLabelValues(string(id)).Add(float64(stats.RowErrors))
		log.Warn("skipped malformed rows", "row_errors", stats.RowErrors, "rows", stats.Rows, "first_error", stats.Errors[0].Error())
	}
	if err == nil && update == nil {
		err = fmt.Errorf("source %s returned no update", id)
	}
	if err == nil && update.Source() != id {
		err = fmt.Errorf("source %s returned an update for %s", id, update.Source())
	}

	if err != nil && ctx.Err() != nil {
		res.Err = ctx.Err()
		return res
	}

	now := c.clock.Now()
	if err != nil {
		res.Err = err
		res.Outcome = domain.OutcomeTransientFailure
		if domain.IsPermanent(err) {
			res.Outcome = domain.OutcomePermanentFailure
		}
		res.Snapshot = c.store.RecordFailure(id, err, now)
		failures := res.Snapshot.Sources[id].ConsecutiveFailures

		c.metrics.Polls.WithLabelValues(string(id), res.Outcome).Inc()
		c.metrics.ConsecutiveFailures.WithLabelValues(string(id)).Set(float64(failures))
		log.Warn("poll failed", "error", err, "outcome", res.Outcome, "consecutive_failures", failures)
	} else {
		res.Outcome = domain.OutcomeSuccess
		res.Snapshot = c.store.Apply(update, now)

		c.metrics.Polls.WithLabelValues(string(id), res.Outcome).Inc()
		c.metrics.ConsecutiveFailures.WithLabelValues(string(id)).Set(0)
		c.metrics.LastSuccess.WithLabelValues(string(id)).Set(float64(now.Unix()))
		c.observeSnapshot(id, res.Snapshot)
		log.Info("poll succeeded", "rows", stats.Rows, "duration", c.clock.Since(start))
	}

	c.publish(ctx, log, res, now)
	return res
}

func (c *Coordinator) observeSnapshot(id domain.SourceID, snap domain.Snapshot) {
	switch id {
	case domain.SourceStatus:
		c.metrics.GridSeverity.Set(float64(snap.Severity()))
		c.ready.Store(true)
	case domain.SourceForecast:
		if snap.Forecast != nil {
			c.metrics.ForecastAlerts.Set(float64(snap.Forecast.TotalAlerts))
		}
	}
}

func (c *Coordinator) publish(ctx context.Context, log *slog.Logger, res Result, at time.Time) {
	if c.opts.Publisher == nil {
		return
	}
	ev := domain.SnapshotEvent{
		Source:      res.Source,
		PollID:      res.PollID,
		Outcome:     res.Outcome,
		PublishedAt: at,
		Snapshot:    res.Snapshot,
	}
	if err := c.opts.Publisher.Publish(ctx, ev); err != nil {
		c.metrics.PublishErrors.Inc()
		log.Warn("publish snapshot failed", "error", err)
		return
	}
	c.metrics.SnapshotsPublished.Inc()
}
