package generation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Maxlottie/pray-production-studio/internal/studio"
)

const (
	DefaultSweepSchedule = "@every 10m"
	staleMessage         = "timed out waiting for provider"
)

// Sweeper fails video generations that have been in flight longer than the
// stale age, so abandoned provider tasks do not stay PROCESSING forever.
type Sweeper struct {
	repo     studio.Repository
	staleAge time.Duration
	logger   *slog.Logger
	cron     *cron.Cron
	now      func() time.Time
}

func NewSweeper(repo studio.Repository, staleAge time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		repo:     repo,
		staleAge: staleAge,
		logger:   logger,
		cron:     cron.New(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Start schedules SweepOnce. An empty schedule uses DefaultSweepSchedule.
func (s *Sweeper) Start(ctx context.Context, schedule string) error {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	_, err := s.cron.AddFunc(schedule, func() {
		if _, err := s.SweepOnce(ctx); err != nil && s.logger != nil {
			s.logger.Error("stale generation sweep failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule sweep %q: %w", schedule, err)
	}
	s.cron.Start()
	if s.logger != nil {
		s.logger.Info("stale generation sweeper started", "schedule", schedule, "stale_age", s.staleAge)
	}
	return nil
}

// Stop halts scheduling and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Sweeper) SweepOnce(ctx context.Context) (int64, error) {
	if s.staleAge <= 0 {
		return 0, nil
	}
	n, err := s.repo.FailStaleVideos(ctx, s.now().Add(-s.staleAge), staleMessage)
	if err != nil {
		return 0, err
	}
	if n > 0 && s.logger != nil {
		s.logger.Warn("failed stale video generations", "count", n)
	}
	return n, nil
}
