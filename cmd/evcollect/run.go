package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/evcollect/internal/auth"
	"github.com/alfredjeanlab/evcollect/internal/client"
	"github.com/alfredjeanlab/evcollect/internal/collector"
	"github.com/alfredjeanlab/evcollect/internal/config"
	"github.com/alfredjeanlab/evcollect/internal/eventlog"
	"github.com/alfredjeanlab/evcollect/internal/events"
	"github.com/alfredjeanlab/evcollect/internal/logging"
	"github.com/alfredjeanlab/evcollect/internal/metrics"
	"github.com/alfredjeanlab/evcollect/internal/state"
	"github.com/alfredjeanlab/evcollect/internal/store"
	"github.com/alfredjeanlab/evcollect/internal/store/postgres"
	evsync "github.com/alfredjeanlab/evcollect/internal/sync"
	"github.com/alfredjeanlab/evcollect/internal/ui"
)

var runEvery time.Duration

var runCmd = &cobra.Command{
	Use:     "run",
	Short:   "Collect new events once, or repeatedly with --every",
	GroupID: "collect",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		if runEvery < 0 {
			return fmt.Errorf("--every must not be negative")
		}

		logger, closeLog, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer closeLog()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		app, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer app.Close()

		if runEvery == 0 {
			return app.RunOnce(ctx)
		}

		logger.Info("scheduled collection started", "interval", runEvery)
		err = collector.NewScheduler(app.RunOnce, runEvery, logger).Run(ctx)
		if errors.Is(err, context.Canceled) {
			logger.Info("scheduled collection stopped")
			return nil
		}
		return err
	},
}

func init() {
	runCmd.Flags().DurationVar(&runEvery, "every", 0, "repeat the collection at this interval until interrupted")
}

// newLogger writes text to an interactive stderr and JSON otherwise, plus the
// configured application log.
func newLogger(c *config.Config) (*slog.Logger, func() error, error) {
	opts := logging.Options{JSON: !ui.IsTerminal(os.Stderr)}
	if c.AppLogEnabled() {
		opts.AppLog = c.AppLog
	}
	return logging.New(opts)
}

// app holds everything a collection run needs, built once per process.
type app struct {
	collector *collector.Collector
	metrics   *metrics.Metrics
	pushURL   string
	logger    *slog.Logger
	closers   []func() error
}

func newApp(ctx context.Context, c *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{
		metrics: metrics.New(),
		pushURL: c.PushgatewayURL,
		logger:  logger,
	}

	api := client.NewHTTPClient(c.EventsURL, c.TokenURL,
		client.WithHTTPClient(&http.Client{Timeout: c.HTTPTimeout}),
		client.WithPageRate(c.PageRate),
		client.WithPageHook(func(pageURL string, n int) {
			a.metrics.PagesFetched.Inc()
			logger.Debug("fetched events page", "url", pageURL, "events", n)
		}),
	)
	tokens := auth.NewManager(auth.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Audience:     c.Audience,
	}, api, logger)

	st, err := state.Open(c.StateBackend, c.StateFile)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, st.Close)

	log := eventlog.New(c.EventLog)
	sinks := a.openSinks(ctx, c, log)

	a.collector = collector.New(st, tokens, api, log, collector.Options{
		Sinks:   sinks,
		Metrics: a.metrics,
		Logger:  logger,
	})
	return a, nil
}

// openSinks builds the configured sinks. A sink that cannot be set up is
// logged and left out; the local event log does not depend on it.
func (a *app) openSinks(ctx context.Context, c *config.Config, log *eventlog.Log) []collector.Sink {
	var sinks []collector.Sink

	if c.DatabaseURL != "" {
		archive, err := postgres.New(c.DatabaseURL)
		if err != nil {
			a.logger.Error("archive sink disabled", "err", err)
		} else {
			a.closers = append(a.closers, archive.Close)
			sinks = append(sinks, store.NewSink(archive))
			a.logger.Info("archive sink enabled")
		}
	}

	if c.NATSURL != "" {
		pub, err := events.NewNATSPublisher(c.NATSURL)
		if err != nil {
			a.logger.Error("nats sink disabled", "err", err)
		} else {
			a.closers = append(a.closers, pub.Close)
			sinks = append(sinks, events.NewSink(pub, c.NATSSubject))
			a.logger.Info("nats sink enabled", "nats_url", c.NATSURL, "subject", c.NATSSubject)
		}
	}

	var dests []evsync.Destination
	if c.S3Bucket != "" {
		s3Dest, err := evsync.NewS3Destination(ctx, c.S3Bucket, c.S3Key, c.S3Region, c.S3Endpoint)
		if err != nil {
			a.logger.Error("s3 mirror disabled", "err", err)
		} else {
			dests = append(dests, s3Dest)
			a.logger.Info("s3 mirror enabled", "bucket", c.S3Bucket, "key", c.S3Key)
		}
	}
	if c.GitRepo != "" {
		dests = append(dests, evsync.NewGitDestination(c.GitRepo, c.GitFile, c.GitBranch))
		a.logger.Info("git mirror enabled", "repo", c.GitRepo, "file", c.GitFile)
	}
	if len(dests) > 0 {
		sinks = append(sinks, evsync.NewMirrorSink(log, dests...))
	}

	return sinks
}

// RunOnce performs one collection and pushes metrics when configured.
func (a *app) RunOnce(ctx context.Context) error {
	_, err := a.collector.Run(ctx)
	if a.pushURL != "" {
		// The run context may already be canceled; the push should still go out.
		pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if perr := a.metrics.Push(pushCtx, a.pushURL); perr != nil {
			a.logger.Warn("metrics push failed", "err", perr)
		}
	}
	return err
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Error("error closing resource", "err", err)
		}
	}
}
