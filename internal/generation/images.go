package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Maxlottie/pray-production-studio/internal/events"
	"github.com/Maxlottie/pray-production-studio/internal/logging"
	"github.com/Maxlottie/pray-production-studio/internal/providers"
	"github.com/Maxlottie/pray-production-studio/internal/storage"
	"github.com/Maxlottie/pray-production-studio/internal/studio"
)

const DefaultImageCap = 2

var ErrAllImagesFailed = errors.New("all image generations failed")

// ImageJob asks for count new candidate images for a shot.
type ImageJob struct {
	ShotID       string
	Count        int
	Regenerate   bool
	CustomPrompt string
}

// BatchResult accounts for one fan-out call. Generated equals len(Images).
type BatchResult struct {
	Generated int                       `json:"generated"`
	Failed    int                       `json:"failed"`
	Images    []*studio.ImageGeneration `json:"images"`
	Errors    []string                  `json:"errors,omitempty"`
}

type ImageGenerator struct {
	repo     studio.Repository
	provider providers.ImageProvider
	media    *storage.Client
	events   events.Publisher
	logger   *slog.Logger
	cap      int
	now      func() time.Time
}

func NewImageGenerator(repo studio.Repository, provider providers.ImageProvider, media *storage.Client, publisher events.Publisher, imageCap int, logger *slog.Logger) *ImageGenerator {
	if imageCap < 1 {
		imageCap = DefaultImageCap
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &ImageGenerator{
		repo:     repo,
		provider: provider,
		media:    media,
		events:   publisher,
		logger:   logger,
		cap:      imageCap,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (g *ImageGenerator) Cap() int {
	return g.cap
}

// GenerateImages fills the shot's candidate slots up to the cap. Provider
// calls run in parallel and fail independently; an error is returned only
// when every call failed.
func (g *ImageGenerator) GenerateImages(ctx context.Context, job ImageJob) (*BatchResult, error) {
	shot, err := g.repo.GetShot(ctx, job.ShotID)
	if err != nil {
		return nil, fmt.Errorf("get shot: %w", err)
	}
	if shot == nil {
		return nil, &studio.NotFoundError{Resource: "shot", ID: job.ShotID}
	}
	project, err := g.repo.GetProject(ctx, shot.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	if project == nil {
		return nil, &studio.NotFoundError{Resource: "project", ID: shot.ProjectID}
	}

	if job.Regenerate {
		if err := g.repo.DeleteImagesByShot(ctx, shot.ID); err != nil {
			return nil, fmt.Errorf("delete images: %w", err)
		}
	}

	existing, err := g.repo.CountImages(ctx, shot.ID)
	if err != nil {
		return nil, fmt.Errorf("count images: %w", err)
	}

	toGenerate := min(job.Count, g.cap-existing)
	if toGenerate <= 0 {
		return &BatchResult{Images: []*studio.ImageGeneration{}}, nil
	}

	prompt := job.CustomPrompt
	if strings.TrimSpace(prompt) == "" {
		prompt = providers.BuildImagePrompt(shot)
	}

	var log *slog.Logger
	if g.logger != nil {
		log = logging.WithShotID(g.logger, shot.ID)
		log.Info("generating images", "count", toGenerate, "existing", existing)
	}

	created := make([]*studio.ImageGeneration, toGenerate)
	failures := make([]error, toGenerate)

	var eg errgroup.Group
	for i := range toGenerate {
		eg.Go(func() error {
			created[i], failures[i] = g.generateOne(ctx, shot, project.AspectRatio, prompt, existing+i+1)
			return nil
		})
	}
	eg.Wait()

	result := &BatchResult{Images: []*studio.ImageGeneration{}}
	for i := range toGenerate {
		if failures[i] != nil {
			result.Failed++
			result.Errors = append(result.Errors, failures[i].Error())
			if log != nil {
				log.Warn("image generation failed", "slot", existing+i+1, "error", failures[i])
			}
			continue
		}
		result.Images = append(result.Images, created[i])
	}
	result.Generated = len(result.Images)

	if result.Generated == 0 {
		return result, fmt.Errorf("%w: %w", ErrAllImagesFailed, errors.Join(failures...))
	}

	if existing == 0 {
		first := result.Images[0]
		selected, err := g.repo.SelectImageIfNone(ctx, shot.ID, first.ID)
		if err != nil {
			if log != nil {
				log.Error("auto-select failed", "error", err)
			}
		} else if selected {
			first.Selected = true
		}
	}

	err = g.events.Publish(ctx, events.Event{
		Type:      events.TypeImagesCreated,
		ProjectID: shot.ProjectID,
		ShotID:    shot.ID,
		At:        g.now(),
	})
	if err != nil && log != nil {
		log.Warn("publish event failed", "error", err)
	}

	return result, nil
}

func (g *ImageGenerator) generateOne(ctx context.Context, shot *studio.Shot, aspectRatio, prompt string, slot int) (*studio.ImageGeneration, error) {
	generated, err := g.provider.GenerateImage(ctx, prompt, aspectRatio)
	if err != nil {
		return nil, err
	}

	now := g.now()
	ref, err := g.media.Rehost(ctx, generated.URL, storage.ImageKey(shot.ProjectID, shot.Index, slot, now), "image/png")
	if err != nil {
		if g.logger != nil {
			g.logger.Warn("keeping provider image url", "shot_id", shot.ID, "url", logging.SanitizeURL(generated.URL), "error", err)
		}
		ref = generated.URL
	}

	image := &studio.ImageGeneration{
		ID:        studio.NewID(),
		ShotID:    shot.ID,
		Prompt:    prompt,
		ImageURL:  ref,
		CreatedAt: now,
	}
	if err := g.repo.CreateImage(ctx, image); err != nil {
		return nil, fmt.Errorf("save image: %w", err)
	}
	return image, nil
}
