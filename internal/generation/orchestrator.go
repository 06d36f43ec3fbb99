// Package generation drives image and video generation jobs against the
// external providers and keeps the generation records in step with them.
package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Maxlottie/pray-production-studio/internal/events"
	"github.com/Maxlottie/pray-production-studio/internal/logging"
	"github.com/Maxlottie/pray-production-studio/internal/providers"
	"github.com/Maxlottie/pray-production-studio/internal/storage"
	"github.com/Maxlottie/pray-production-studio/internal/studio"
)

const cancelledMessage = "cancelled"

// VideoJob describes one image-to-video submission.
type VideoJob struct {
	ShotID       string
	ImageID      string
	Provider     string
	MotionType   string
	CustomPrompt string
}

type Orchestrator struct {
	repo      studio.Repository
	providers map[string]providers.VideoProvider
	media     *storage.Client
	events    events.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewOrchestrator(repo studio.Repository, media *storage.Client, publisher events.Publisher, logger *slog.Logger, videoProviders ...providers.VideoProvider) *Orchestrator {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	byName := make(map[string]providers.VideoProvider, len(videoProviders))
	for _, p := range videoProviders {
		byName[p.Name()] = p
	}
	return &Orchestrator{
		repo:      repo,
		providers: byName,
		media:     media,
		events:    publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Providers lists the configured video provider names.
func (o *Orchestrator) Providers() []string {
	names := make([]string, 0, len(o.providers))
	for name := range o.providers {
		names = append(names, name)
	}
	return names
}

func (o *Orchestrator) provider(name string) (providers.VideoProvider, error) {
	p, ok := o.providers[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return nil, &studio.ValidationError{Field: "provider", Message: fmt.Sprintf("unknown or unconfigured provider %q", name)}
	}
	return p, nil
}

// SubmitVideoJob records a PENDING generation and hands it to the provider.
// A provider rejection is stored on the record as FAILED and the record is
// returned without an error.
func (o *Orchestrator) SubmitVideoJob(ctx context.Context, job VideoJob) (*studio.VideoGeneration, error) {
	shot, err := o.repo.GetShot(ctx, job.ShotID)
	if err != nil {
		return nil, fmt.Errorf("get shot: %w", err)
	}
	if shot == nil {
		return nil, &studio.NotFoundError{Resource: "shot", ID: job.ShotID}
	}

	image, err := o.repo.GetImage(ctx, job.ImageID)
	if err != nil {
		return nil, fmt.Errorf("get image: %w", err)
	}
	if image == nil || image.ShotID != shot.ID {
		return nil, &studio.NotFoundError{Resource: "image", ID: job.ImageID}
	}

	provider, err := o.provider(job.Provider)
	if err != nil {
		return nil, err
	}

	motion := strings.ToUpper(strings.TrimSpace(job.MotionType))
	if !providers.IsValidMotion(motion) {
		motion = providers.MotionSubtle
	}
	prompt := providers.MotionPrompt(shot.Description, provider.MotionPhrase(motion), job.CustomPrompt)

	now := o.now()
	video := &studio.VideoGeneration{
		ID:         studio.NewID(),
		ShotID:     shot.ID,
		ImageID:    image.ID,
		Provider:   provider.Name(),
		MotionType: motion,
		Prompt:     prompt,
		Status:     studio.GenerationPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := o.repo.CreateVideo(ctx, video); err != nil {
		return nil, fmt.Errorf("create video: %w", err)
	}

	log := o.log(video)

	imageURL, err := o.media.ShareableURL(ctx, image.ImageURL)
	if err != nil {
		return o.fail(ctx, video, fmt.Sprintf("prepare source image: %v", err))
	}

	taskID, err := provider.Submit(ctx, providers.VideoRequest{
		ImageURL:   imageURL,
		Prompt:     prompt,
		MotionType: motion,
	})
	if err != nil {
		var submitErr *providers.SubmitError
		if errors.As(err, &submitErr) {
			if log != nil {
				log.Warn("provider rejected video job", "provider", video.Provider, "error", err)
			}
			return o.fail(ctx, video, err.Error())
		}
		return o.fail(ctx, video, fmt.Sprintf("submit: %v", err))
	}

	video.TaskID = taskID
	video.Status = studio.GenerationProcessing
	video.UpdatedAt = o.now()
	video, applied, err := o.store(ctx, video)
	if err != nil || !applied {
		return video, err
	}

	if log != nil {
		log.Info("video job submitted", "provider", video.Provider, "task_id", taskID, "motion", motion)
	}
	o.publish(ctx, shot.ProjectID, video, events.TypeVideoSubmitted)
	return video, nil
}

// PollStatus asks the provider for the task's state in canonical form.
func (o *Orchestrator) PollStatus(ctx context.Context, taskID, providerName string) (*providers.PollResult, error) {
	provider, err := o.provider(providerName)
	if err != nil {
		return nil, err
	}
	return provider.Poll(ctx, taskID)
}

// RefreshVideo polls the provider once for an in-flight record and applies
// the result. A poll failure leaves the record untouched and is returned.
func (o *Orchestrator) RefreshVideo(ctx context.Context, videoID string) (*studio.VideoGeneration, error) {
	video, err := o.repo.GetVideo(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("get video: %w", err)
	}
	if video == nil {
		return nil, &studio.NotFoundError{Resource: "video", ID: videoID}
	}
	if video.IsTerminal() || video.TaskID == "" {
		return video, nil
	}

	result, err := o.PollStatus(ctx, video.TaskID, video.Provider)
	if err != nil {
		return video, err
	}

	switch result.Status {
	case studio.GenerationCompleted:
		if result.VideoURL == "" {
			if log := o.log(video); log != nil {
				log.Warn("provider reported success without a video url", "task_id", video.TaskID)
			}
			return video, nil
		}
		return o.FinalizeCompletion(ctx, video.ID, result.VideoURL)

	case studio.GenerationFailed:
		message := result.Error
		if message == "" {
			message = fmt.Sprintf("provider reported %s", result.NativeStatus)
		}
		return o.fail(ctx, video, message)

	case studio.GenerationProcessing:
		if video.Status == studio.GenerationPending {
			video.Status = studio.GenerationProcessing
			video.UpdatedAt = o.now()
			stored, _, err := o.store(ctx, video)
			if err != nil {
				return nil, err
			}
			return stored, nil
		}
	}
	return video, nil
}

// FinalizeCompletion copies the provider's result into durable storage and
// marks the record COMPLETED. When the copy fails the provider URL is kept.
// The first completed video of a shot becomes its selection.
func (o *Orchestrator) FinalizeCompletion(ctx context.Context, videoID, mediaURL string) (*studio.VideoGeneration, error) {
	video, err := o.repo.GetVideo(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("get video: %w", err)
	}
	if video == nil {
		return nil, &studio.NotFoundError{Resource: "video", ID: videoID}
	}
	if video.IsTerminal() {
		return video, nil
	}

	shot, err := o.repo.GetShot(ctx, video.ShotID)
	if err != nil {
		return nil, fmt.Errorf("get shot: %w", err)
	}
	if shot == nil {
		return nil, &studio.NotFoundError{Resource: "shot", ID: video.ShotID}
	}

	log := o.log(video)

	ref, err := o.media.Rehost(ctx, mediaURL, storage.VideoKey(shot.ProjectID, shot.Index, o.now()), "video/mp4")
	if err != nil {
		if log != nil {
			log.Warn("keeping provider url", "url", logging.SanitizeURL(mediaURL), "error", err)
		}
		ref = mediaURL
	}

	video.Status = studio.GenerationCompleted
	video.VideoURL = ref
	video.Error = ""
	video.UpdatedAt = o.now()
	video, applied, err := o.store(ctx, video)
	if err != nil || !applied {
		if !applied && log != nil && video != nil {
			log.Warn("discarding late completion", "status", video.Status)
		}
		return video, err
	}

	selected, err := o.repo.SelectVideoIfNone(ctx, video.ShotID, video.ID)
	if err != nil {
		if log != nil {
			log.Error("auto-select failed", "error", err)
		}
	} else if selected {
		video.Selected = true
	}

	if log != nil {
		log.Info("video completed", "selected", video.Selected)
	}
	o.publish(ctx, shot.ProjectID, video, events.TypeVideoCompleted)
	return video, nil
}

// CancelVideo stops an in-flight job at the provider and marks it FAILED.
// Records without a task id are failed locally.
func (o *Orchestrator) CancelVideo(ctx context.Context, videoID string) (*studio.VideoGeneration, error) {
	video, err := o.repo.GetVideo(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("get video: %w", err)
	}
	if video == nil {
		return nil, &studio.NotFoundError{Resource: "video", ID: videoID}
	}
	if video.IsTerminal() {
		return nil, &studio.ValidationError{Field: "status", Message: "video generation already " + strings.ToLower(video.Status)}
	}

	if video.TaskID != "" {
		provider, err := o.provider(video.Provider)
		if err != nil {
			return nil, err
		}
		canceler, ok := provider.(providers.Canceler)
		if !ok {
			return nil, providers.ErrCancelUnsupported
		}
		if err := canceler.Cancel(ctx, video.TaskID); err != nil {
			return nil, err
		}
	}

	return o.fail(ctx, video, cancelledMessage)
}

func (o *Orchestrator) fail(ctx context.Context, video *studio.VideoGeneration, message string) (*studio.VideoGeneration, error) {
	video.Status = studio.GenerationFailed
	video.Error = message
	video.UpdatedAt = o.now()
	video, applied, err := o.store(ctx, video)
	if err != nil || !applied {
		return video, err
	}

	projectID := ""
	if shot, err := o.repo.GetShot(ctx, video.ShotID); err == nil && shot != nil {
		projectID = shot.ProjectID
	}
	o.publish(ctx, projectID, video, events.TypeVideoFailed)
	return video, nil
}

// store persists a status change. When the stored record already reached a
// terminal state nothing is written and that record is returned instead.
func (o *Orchestrator) store(ctx context.Context, video *studio.VideoGeneration) (*studio.VideoGeneration, bool, error) {
	applied, err := o.repo.UpdateVideo(ctx, video)
	if err != nil {
		return nil, false, fmt.Errorf("update video: %w", err)
	}
	if applied {
		return video, true, nil
	}
	stored, err := o.repo.GetVideo(ctx, video.ID)
	if err != nil {
		return nil, false, fmt.Errorf("get video: %w", err)
	}
	if stored == nil {
		return nil, false, &studio.NotFoundError{Resource: "video", ID: video.ID}
	}
	return stored, false, nil
}

func (o *Orchestrator) publish(ctx context.Context, projectID string, video *studio.VideoGeneration, eventType string) {
	err := o.events.Publish(ctx, events.Event{
		Type:         eventType,
		ProjectID:    projectID,
		ShotID:       video.ShotID,
		GenerationID: video.ID,
		Status:       video.Status,
		Error:        video.Error,
		At:           o.now(),
	})
	if err != nil && o.logger != nil {
		o.logger.Warn("publish event failed", "type", eventType, "error", err)
	}
}

func (o *Orchestrator) log(video *studio.VideoGeneration) *slog.Logger {
	if o.logger == nil {
		return nil
	}
	return logging.WithGenerationID(logging.WithShotID(o.logger, video.ShotID), video.ID)
}
