package daemon

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// scheduler wraps gocron for the optional periodic rebuild.
type scheduler struct {
	inner gocron.Scheduler
}

func newScheduler() (*scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	return &scheduler{inner: s}, nil
}

// schedulePeriodicRebuild registers a fixed-interval rebuild trigger.
func (s *scheduler) schedulePeriodicRebuild(interval time.Duration, trigger func(reason string)) error {
	_, err := s.inner.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { trigger("scheduled rebuild") }),
		gocron.WithName("periodic-rebuild"),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule periodic rebuild: %w", err)
	}
	slog.Info("Scheduled periodic rebuild", slog.Duration("interval", interval))
	return nil
}

func (s *scheduler) start() { s.inner.Start() }

func (s *scheduler) stop() error { return s.inner.Shutdown() }
