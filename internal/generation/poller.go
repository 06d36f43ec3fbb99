package generation

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Maxlottie/pray-production-studio/internal/providers"
	"github.com/Maxlottie/pray-production-studio/internal/studio"
)

// PollSummary counts the outcome of one polling pass.
type PollSummary struct {
	Checked   int `json:"checked"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Remaining int `json:"remaining"`
}

// Poller refreshes in-flight video generations on a ticker.
type Poller struct {
	orch         *Orchestrator
	repo         studio.Repository
	logger       *slog.Logger
	pollInterval time.Duration
	running      atomic.Bool
	paused       atomic.Bool
}

func NewPoller(orch *Orchestrator, repo studio.Repository, pollInterval time.Duration, logger *slog.Logger) *Poller {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	return &Poller{
		orch:         orch,
		repo:         repo,
		logger:       logger,
		pollInterval: pollInterval,
	}
}

// PollOnce refreshes every in-flight video of the project, or of all
// projects when projectID is empty. Records whose poll failed stay in flight
// and count toward Remaining.
func (p *Poller) PollOnce(ctx context.Context, projectID string) (PollSummary, error) {
	var summary PollSummary

	videos, err := p.repo.ListInFlightVideos(ctx, projectID)
	if err != nil {
		return summary, err
	}

	for _, v := range videos {
		if ctx.Err() != nil {
			summary.Remaining += len(videos) - summary.Checked
			return summary, ctx.Err()
		}
		summary.Checked++

		updated, err := p.orch.RefreshVideo(ctx, v.ID)
		if err != nil {
			if p.logger != nil {
				level := slog.LevelError
				var apiErr *providers.APIError
				if errors.As(err, &apiErr) && apiErr.IsRetryable() {
					level = slog.LevelWarn
				}
				p.logger.Log(ctx, level, "poll failed", "generation_id", v.ID, "provider", v.Provider, "error", err)
			}
			summary.Remaining++
			continue
		}

		switch updated.Status {
		case studio.GenerationCompleted:
			summary.Completed++
		case studio.GenerationFailed:
			summary.Failed++
		default:
			summary.Remaining++
		}
	}
	return summary, nil
}

func (p *Poller) Start(ctx context.Context) {
	if p.running.Swap(true) {
		return
	}

	if p.logger != nil {
		p.logger.Info("generation poller started", "interval", p.pollInterval)
	}

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if p.logger != nil {
				p.logger.Info("generation poller stopping")
			}
			p.running.Store(false)
			return
		case <-ticker.C:
			if p.paused.Load() {
				continue
			}
			summary, err := p.PollOnce(ctx, "")
			if err != nil && ctx.Err() == nil {
				if p.logger != nil {
					p.logger.Error("poll pass failed", "error", err)
				}
				continue
			}
			if p.logger != nil && (summary.Completed > 0 || summary.Failed > 0) {
				p.logger.Info("poll pass", "completed", summary.Completed, "failed", summary.Failed, "remaining", summary.Remaining)
			}
		}
	}
}

func (p *Poller) Pause() {
	p.paused.Store(true)
	if p.logger != nil {
		p.logger.Info("generation poller paused")
	}
}

func (p *Poller) Resume() {
	p.paused.Store(false)
	if p.logger != nil {
		p.logger.Info("generation poller resumed")
	}
}

func (p *Poller) IsPaused() bool {
	return p.paused.Load()
}

func (p *Poller) IsRunning() bool {
	return p.running.Load()
}

// WatchProject polls one project until nothing is in flight or ctx ends.
// Cancelling ctx only stops the watch; provider jobs keep running.
func (p *Poller) WatchProject(ctx context.Context, projectID string) (PollSummary, error) {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	var total PollSummary
	for {
		summary, err := p.PollOnce(ctx, projectID)
		total.Checked += summary.Checked
		total.Completed += summary.Completed
		total.Failed += summary.Failed
		total.Remaining = summary.Remaining
		if err != nil {
			if ctx.Err() != nil {
				return total, ctx.Err()
			}
			return total, err
		}
		if summary.Remaining == 0 {
			return total, nil
		}

		select {
		case <-ctx.Done():
			return total, ctx.Err()
		case <-ticker.C:
		}
	}
}
