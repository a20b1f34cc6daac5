// Package daemon runs the publishing pipeline continuously: a change to a
// notebook (or a scheduled tick) triggers a rebuild. Builds are
// single-flight; triggers arriving mid-build coalesce into one follow-up.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/nbpublish/internal/build"
	"git.home.luguber.info/inful/nbpublish/internal/config"
	"git.home.luguber.info/inful/nbpublish/internal/metrics"
)

// BuildRunner executes one pipeline pass. Satisfied by *build.Publisher.
type BuildRunner interface {
	Run(ctx context.Context, opts build.Options) (*build.Report, error)
}

// Daemon owns the watcher, scheduler, metrics endpoint, and the build loop.
type Daemon struct {
	cfg      *config.Config
	runner   BuildRunner
	recorder *metrics.Recorder

	workers  workerGroup
	triggers chan string
}

// New wires a Daemon. The recorder must be non-nil: the daemon exists to
// serve its registry.
func New(cfg *config.Config, runner BuildRunner, recorder *metrics.Recorder) *Daemon {
	return &Daemon{
		cfg:      cfg,
		runner:   runner,
		recorder: recorder,
		// Capacity 1: one pending trigger is enough, extras coalesce.
		triggers: make(chan string, 1),
	}
}

// Trigger requests a rebuild. Never blocks.
func (d *Daemon) Trigger(reason string) {
	select {
	case d.triggers <- reason:
	default:
		slog.Debug("Rebuild already pending, trigger coalesced", slog.String("reason", reason))
	}
}

// Run starts all daemon components and blocks until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	debounce, err := d.cfg.DebounceDuration()
	if err != nil {
		return err
	}

	watcher, err := newSourceWatcher(d.cfg.SourceDir, debounce, d.Trigger)
	if err != nil {
		return err
	}
	d.workers.Go(func() { watcher.run(ctx) })

	interval, err := d.cfg.RebuildInterval()
	if err != nil {
		return err
	}
	var sched *scheduler
	if interval > 0 {
		sched, err = newScheduler()
		if err != nil {
			return err
		}
		if err := sched.schedulePeriodicRebuild(interval, d.Trigger); err != nil {
			return err
		}
		sched.start()
	}

	srv := newHTTPServer(d.cfg.Daemon.Listen, d.recorder.Registry())
	d.workers.Go(func() { serveHTTP(srv) })

	slog.Info("Daemon started", slog.String("source", d.cfg.SourceDir), slog.String("listen", d.cfg.Daemon.Listen))

	// Initial build so the daemon never idles on stale output.
	d.Trigger("daemon startup")

	d.buildLoop(ctx)

	// Shutdown: stop intake, then drain workers.
	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if sched != nil {
		if err := sched.stop(); err != nil {
			slog.Warn("Scheduler shutdown failed", slog.Any("error", err))
		}
	}
	shutdownHTTP(stopCtx, srv)

	if err := d.workers.StopAndWait(stopCtx); err != nil {
		return fmt.Errorf("daemon workers did not stop cleanly: %w", err)
	}
	slog.Info("Daemon stopped")
	return nil
}

// buildLoop serializes builds; it exits when ctx is cancelled. A failed
// build is logged but does not stop the daemon, unlike one-shot mode.
func (d *Daemon) buildLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case reason := <-d.triggers:
			slog.Info("Rebuild triggered", slog.String("reason", reason))
			report, err := d.runner.Run(ctx, build.Options{})
			if err != nil {
				slog.Error("Rebuild failed",
					slog.String("build_id", report.BuildID),
					slog.Any("error", err))
			}
		}
	}
}
