// Package collector runs one collection pass: read state, obtain a token,
// fetch events since the watermark, append them to the event log, hand them
// to sinks and record the new watermark.
package collector

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alfredjeanlab/evcollect/internal/idgen"
	"github.com/alfredjeanlab/evcollect/internal/metrics"
	"github.com/alfredjeanlab/evcollect/internal/model"
	"github.com/alfredjeanlab/evcollect/internal/state"
)

// TokenSource returns a usable bearer token, reusing cached when possible.
type TokenSource interface {
	Ensure(ctx context.Context, cached string) (token string, refreshed bool, err error)
}

// EventFetcher retrieves events published after since.
type EventFetcher interface {
	FetchEvents(ctx context.Context, token, since string) ([]model.Event, error)
}

// EventLog stores collected events.
type EventLog interface {
	Append(events []model.Event) error
}

// Sink receives each non-empty batch after it has been written to the event
// log. Sink failures are logged and counted but never fail the run.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, batch model.Batch) error
}

// Result summarizes a finished run.
type Result struct {
	RunID          string
	Fetched        int
	Watermark      string // empty when nothing was fetched
	TokenRefreshed bool
}

// Options holds the optional collaborators of a Collector.
type Options struct {
	Sinks   []Sink
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// Collector wires the state store, token source, fetcher and event log.
type Collector struct {
	state   state.Store
	tokens  TokenSource
	fetcher EventFetcher
	log     EventLog
	sinks   []Sink
	metrics *metrics.Metrics
	logger  *slog.Logger

	newRunID func() (string, error)
}

func New(st state.Store, tokens TokenSource, fetcher EventFetcher, log EventLog, opts Options) *Collector {
	c := &Collector{
		state:    st,
		tokens:   tokens,
		fetcher:  fetcher,
		log:      log,
		sinks:    opts.Sinks,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
		newRunID: idgen.RunID,
	}
	if c.metrics == nil {
		c.metrics = metrics.New()
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Run performs one collection pass. Any error before the state write leaves
// the persisted state untouched, so the next run retries the same window.
func (c *Collector) Run(ctx context.Context) (res *Result, err error) {
	start := time.Now()
	runID, err := c.newRunID()
	if err != nil {
		return nil, err
	}
	res = &Result{RunID: runID}
	logger := c.logger.With("run_id", runID)
	logger.Info("starting event collection")

	outcome := metrics.OutcomeFailure
	defer func() {
		c.metrics.ObserveRun(outcome, time.Since(start))
		if err != nil {
			logger.Error("event collection failed", "err", err)
		}
	}()

	st, err := c.state.Read(ctx)
	if err != nil {
		return res, err
	}
	since := st.Watermark()
	if since != "" {
		logger.Info("collecting events since", "since", since)
	}

	token, refreshed, err := c.tokens.Ensure(ctx, st.Token())
	if err != nil {
		return res, err
	}
	res.TokenRefreshed = refreshed
	if refreshed {
		c.metrics.TokenRefreshes.Inc()
	}

	events, err := c.fetcher.FetchEvents(ctx, token, since)
	if err != nil {
		return res, fmt.Errorf("fetching events: %w", err)
	}
	res.Fetched = len(events)
	c.metrics.EventsFetched.Add(float64(len(events)))
	logger.Info("found new events", "count", len(events))

	if len(events) == 0 {
		logger.Info("no new events found")
		outcome = metrics.OutcomeEmpty
		return res, nil
	}

	// The watermark comes from this batch, not from the log's last element.
	watermark, err := events[len(events)-1].Published()
	if err != nil {
		return res, fmt.Errorf("last fetched event: %w", err)
	}

	if err := c.log.Append(events); err != nil {
		return res, fmt.Errorf("saving events: %w", err)
	}
	logger.Info("events saved", "count", len(events))

	batch := model.Batch{RunID: runID, Events: events}
	for _, sink := range c.sinks {
		if err := sink.Deliver(ctx, batch); err != nil {
			c.metrics.SinkFailures.WithLabelValues(sink.Name()).Inc()
			logger.Warn("sink delivery failed", "sink", sink.Name(), "err", err)
			continue
		}
		logger.Info("sink delivery complete", "sink", sink.Name(), "count", len(events))
	}

	if err := c.state.Write(ctx, st.WithRun(token, watermark)); err != nil {
		return res, fmt.Errorf("updating state: %w", err)
	}
	res.Watermark = watermark
	logger.Info("state updated with last event time", "last_event_time", watermark)

	outcome = metrics.OutcomeSuccess
	logger.Info("done", "duration", time.Since(start).Round(time.Millisecond))
	return res, nil
}
