package generation

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Maxlottie/pray-production-studio/internal/providers"
	"github.com/Maxlottie/pray-production-studio/internal/storage"
	"github.com/Maxlottie/pray-production-studio/internal/studio"
)

// AudioGenerator produces the project's narration and music tracks.
type AudioGenerator struct {
	repo     studio.Repository
	provider providers.AudioProvider
	media    *storage.Client
	voiceID  string
	logger   *slog.Logger
	now      func() time.Time
}

func NewAudioGenerator(repo studio.Repository, provider providers.AudioProvider, media *storage.Client, voiceID string, logger *slog.Logger) *AudioGenerator {
	return &AudioGenerator{
		repo:     repo,
		provider: provider,
		media:    media,
		voiceID:  voiceID,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// GenerateNarration synthesizes text, or the latest script when text is
// empty, and stores it as the project's narration.
func (a *AudioGenerator) GenerateNarration(ctx context.Context, projectID, text, voiceID string) (*studio.ProjectAudio, error) {
	if err := a.requireProject(ctx, projectID); err != nil {
		return nil, err
	}

	if strings.TrimSpace(text) == "" {
		scripts, err := a.repo.ListScripts(ctx, projectID)
		if err != nil {
			return nil, fmt.Errorf("list scripts: %w", err)
		}
		if len(scripts) == 0 {
			return nil, &studio.ValidationError{Field: "text", Message: "no text given and project has no script"}
		}
		text = scripts[0].RawText
	}
	if voiceID == "" {
		voiceID = a.voiceID
	}

	data, err := a.provider.Speech(ctx, text, voiceID)
	if err != nil {
		return nil, err
	}

	ref := a.store(ctx, projectID, "narration", data)
	if err := a.repo.SetNarration(ctx, projectID, ref, studio.AudioSourceTTS); err != nil {
		return nil, fmt.Errorf("save narration: %w", err)
	}
	return a.repo.GetAudio(ctx, projectID)
}

// GenerateMusic renders a background track from a predefined style or a
// free-form prompt.
func (a *AudioGenerator) GenerateMusic(ctx context.Context, projectID, style, prompt string, seconds int) (*studio.ProjectAudio, error) {
	if err := a.requireProject(ctx, projectID); err != nil {
		return nil, err
	}

	if strings.TrimSpace(prompt) == "" {
		var ok bool
		prompt, ok = providers.MusicStyles[strings.ToUpper(style)]
		if !ok {
			return nil, &studio.ValidationError{Field: "style", Message: fmt.Sprintf("unknown music style %q", style)}
		}
	}
	if seconds <= 0 {
		seconds = providers.DefaultMusicSeconds
	}

	data, err := a.provider.Music(ctx, prompt, seconds)
	if err != nil {
		return nil, err
	}

	ref := a.store(ctx, projectID, "music", data)
	if err := a.repo.SetMusic(ctx, projectID, ref, studio.AudioSourceGenerated); err != nil {
		return nil, fmt.Errorf("save music: %w", err)
	}
	return a.repo.GetAudio(ctx, projectID)
}

// store writes the track to durable storage, falling back to an inline
// data URI when storage is unavailable.
func (a *AudioGenerator) store(ctx context.Context, projectID, kind string, data []byte) string {
	ref, err := a.media.Put(ctx, storage.AudioKey(projectID, kind, a.now()), data, "audio/mpeg")
	if err == nil {
		return ref
	}
	if a.logger != nil {
		a.logger.Warn("storing audio inline", "project_id", projectID, "kind", kind, "error", err)
	}
	return "data:audio/mpeg;base64," + base64.StdEncoding.EncodeToString(data)
}

type voiceLister interface {
	ListVoices(ctx context.Context) ([]providers.Voice, error)
}

// Voices lists the narration voices offered by the provider, or nothing when
// the provider has no catalogue.
func (a *AudioGenerator) Voices(ctx context.Context) ([]providers.Voice, error) {
	lister, ok := a.provider.(voiceLister)
	if !ok {
		return nil, nil
	}
	return lister.ListVoices(ctx)
}

func (a *AudioGenerator) requireProject(ctx context.Context, projectID string) error {
	project, err := a.repo.GetProject(ctx, projectID)
	if err != nil {
		return fmt.Errorf("get project: %w", err)
	}
	if project == nil {
		return &studio.NotFoundError{Resource: "project", ID: projectID}
	}
	return nil
}
