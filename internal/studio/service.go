package studio

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ScriptParser turns raw script text into scenes and shots.
type ScriptParser interface {
	ParseScript(ctx context.Context, rawText string) (*ParsedScript, error)
}

type ProjectUpdate struct {
	Title       *string
	AspectRatio *string
	VisualStyle *string
	Status      *string
}

type ShotUpdate struct {
	Description    *string
	Mood           *string
	CameraMovement *string
	VisualStyle    *string
	Duration       *float64
	Status         *string
}

type AudioUpdate struct {
	NarrationURL *string
	MusicURL     *string
}

type Service struct {
	repo   Repository
	parser ScriptParser
	logger *slog.Logger
}

func NewService(repo Repository, parser ScriptParser, logger *slog.Logger) *Service {
	return &Service{repo: repo, parser: parser, logger: logger}
}

func (s *Service) Repository() Repository {
	return s.repo
}

func (s *Service) CreateProject(ctx context.Context, title, aspectRatio, visualStyle string) (*Project, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, &ValidationError{Field: "title", Message: "must not be empty"}
	}
	if aspectRatio == "" {
		aspectRatio = AspectLandscape
	}
	if !IsValidAspectRatio(aspectRatio) {
		return nil, &ValidationError{Field: "aspect_ratio", Message: fmt.Sprintf("unknown value %q", aspectRatio)}
	}
	if visualStyle == "" {
		visualStyle = DefaultVisualStyle
	}
	if !IsValidVisualStyle(visualStyle) {
		return nil, &ValidationError{Field: "visual_style", Message: fmt.Sprintf("unknown value %q", visualStyle)}
	}

	now := time.Now()
	project := &Project{
		ID:          NewID(),
		Title:       title,
		AspectRatio: aspectRatio,
		VisualStyle: visualStyle,
		Status:      ProjectStatusDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateProject(ctx, project); err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("project created", "project_id", project.ID, "aspect_ratio", aspectRatio)
	}
	return project, nil
}

func (s *Service) GetProject(ctx context.Context, id string) (*Project, error) {
	project, err := s.repo.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, notFound("project", id)
	}
	return project, nil
}

func (s *Service) ListProjects(ctx context.Context) ([]*Project, error) {
	return s.repo.ListProjects(ctx)
}

func (s *Service) UpdateProject(ctx context.Context, id string, u ProjectUpdate) (*Project, error) {
	project, err := s.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}

	if u.Title != nil {
		title := strings.TrimSpace(*u.Title)
		if title == "" {
			return nil, &ValidationError{Field: "title", Message: "must not be empty"}
		}
		project.Title = title
	}
	if u.AspectRatio != nil {
		if !IsValidAspectRatio(*u.AspectRatio) {
			return nil, &ValidationError{Field: "aspect_ratio", Message: fmt.Sprintf("unknown value %q", *u.AspectRatio)}
		}
		project.AspectRatio = *u.AspectRatio
	}
	if u.VisualStyle != nil {
		if !IsValidVisualStyle(*u.VisualStyle) {
			return nil, &ValidationError{Field: "visual_style", Message: fmt.Sprintf("unknown value %q", *u.VisualStyle)}
		}
		project.VisualStyle = *u.VisualStyle
	}
	if u.Status != nil {
		switch *u.Status {
		case ProjectStatusDraft, ProjectStatusInProgress, ProjectStatusCompleted:
			project.Status = *u.Status
		default:
			return nil, &ValidationError{Field: "status", Message: fmt.Sprintf("unknown value %q", *u.Status)}
		}
	}

	project.UpdatedAt = time.Now()
	if err := s.repo.UpdateProject(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}

func (s *Service) DeleteProject(ctx context.Context, id string) error {
	if _, err := s.GetProject(ctx, id); err != nil {
		return err
	}
	return s.repo.DeleteProject(ctx, id)
}

// ParseScript runs the script through the parser and stores the result as a
// new script version. The project's previous scenes and shots are replaced.
func (s *Service) ParseScript(ctx context.Context, projectID, rawText string) (*Script, []*Shot, error) {
	project, err := s.GetProject(ctx, projectID)
	if err != nil {
		return nil, nil, err
	}
	if strings.TrimSpace(rawText) == "" {
		return nil, nil, &ValidationError{Field: "text", Message: "must not be empty"}
	}
	if s.parser == nil {
		return nil, nil, fmt.Errorf("script parser not configured")
	}

	parsed, err := s.parser.ParseScript(ctx, rawText)
	if err != nil {
		return nil, nil, fmt.Errorf("parse script: %w", err)
	}

	parsedJSON, err := json.Marshal(parsed)
	if err != nil {
		return nil, nil, fmt.Errorf("encode parsed script: %w", err)
	}

	now := time.Now()
	script := &Script{
		ID:         NewID(),
		ProjectID:  projectID,
		RawText:    rawText,
		ParsedJSON: string(parsedJSON),
		CreatedAt:  now,
	}

	scenes, shots := buildScenes(project, parsed, now)
	if err := s.repo.ReplaceScript(ctx, script, scenes, shots); err != nil {
		return nil, nil, fmt.Errorf("store script: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("script parsed",
			"project_id", projectID,
			"version", script.Version,
			"scenes", len(scenes),
			"shots", len(shots),
		)
	}
	return script, shots, nil
}

// buildScenes flattens the parsed script into rows. Shot indices run across
// scenes starting at 0, whatever indices the parser reported.
func buildScenes(project *Project, parsed *ParsedScript, now time.Time) ([]*Scene, []*Shot) {
	var scenes []*Scene
	var shots []*Shot
	shotIndex := 0

	for i, ps := range parsed.Scenes {
		title := strings.TrimSpace(ps.Title)
		if title == "" {
			title = fmt.Sprintf("Scene %d", i+1)
		}
		scene := &Scene{
			ID:        NewID(),
			ProjectID: project.ID,
			Index:     i,
			Title:     title,
			Location:  strings.TrimSpace(ps.Location),
			CreatedAt: now,
		}
		scenes = append(scenes, scene)

		for _, pshot := range ps.Shots {
			duration := pshot.Duration
			if duration <= 0 {
				duration = DefaultShotDuration
			}
			shots = append(shots, &Shot{
				ID:             NewID(),
				ProjectID:      project.ID,
				SceneID:        scene.ID,
				Index:          shotIndex,
				Description:    strings.TrimSpace(pshot.Description),
				Mood:           NormalizeMood(pshot.Mood),
				CameraMovement: NormalizeCameraMovement(pshot.CameraMovement),
				VisualStyle:    project.VisualStyle,
				Duration:       duration,
				Status:         ShotStatusPending,
				CreatedAt:      now,
				UpdatedAt:      now,
			})
			shotIndex++
		}
	}
	return scenes, shots
}

func (s *Service) ListScripts(ctx context.Context, projectID string) ([]*Script, error) {
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return s.repo.ListScripts(ctx, projectID)
}

func (s *Service) ListScenes(ctx context.Context, projectID string) ([]*Scene, error) {
	return s.repo.ListScenes(ctx, projectID)
}

func (s *Service) ListShots(ctx context.Context, projectID string) ([]*Shot, error) {
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return s.repo.ListShots(ctx, projectID)
}

func (s *Service) GetShot(ctx context.Context, id string) (*Shot, error) {
	shot, err := s.repo.GetShot(ctx, id)
	if err != nil {
		return nil, err
	}
	if shot == nil {
		return nil, notFound("shot", id)
	}
	return shot, nil
}

func (s *Service) UpdateShot(ctx context.Context, id string, u ShotUpdate) (*Shot, error) {
	shot, err := s.GetShot(ctx, id)
	if err != nil {
		return nil, err
	}

	if u.Description != nil {
		shot.Description = strings.TrimSpace(*u.Description)
	}
	if u.Mood != nil {
		if !IsValidMood(*u.Mood) {
			return nil, &ValidationError{Field: "mood", Message: fmt.Sprintf("unknown value %q", *u.Mood)}
		}
		shot.Mood = *u.Mood
	}
	if u.CameraMovement != nil {
		if !IsValidCameraMovement(*u.CameraMovement) {
			return nil, &ValidationError{Field: "camera_movement", Message: fmt.Sprintf("unknown value %q", *u.CameraMovement)}
		}
		shot.CameraMovement = *u.CameraMovement
	}
	if u.VisualStyle != nil {
		if !IsValidVisualStyle(*u.VisualStyle) {
			return nil, &ValidationError{Field: "visual_style", Message: fmt.Sprintf("unknown value %q", *u.VisualStyle)}
		}
		shot.VisualStyle = *u.VisualStyle
	}
	if u.Duration != nil {
		if *u.Duration < MinShotDuration || *u.Duration > MaxShotDuration {
			return nil, &ValidationError{
				Field:   "duration",
				Message: fmt.Sprintf("must be between %.1f and %.0f seconds", MinShotDuration, MaxShotDuration),
			}
		}
		shot.Duration = *u.Duration
	}
	if u.Status != nil {
		if *u.Status != ShotStatusPending && *u.Status != ShotStatusApproved {
			return nil, &ValidationError{Field: "status", Message: fmt.Sprintf("unknown value %q", *u.Status)}
		}
		shot.Status = *u.Status
	}

	shot.UpdatedAt = time.Now()
	if err := s.repo.UpdateShot(ctx, shot); err != nil {
		return nil, err
	}
	return shot, nil
}

func (s *Service) ApproveAllShots(ctx context.Context, projectID string) (int64, error) {
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return 0, err
	}
	return s.repo.ApproveAllShots(ctx, projectID)
}

// ReorderShots renumbers the project's shots in the given order. The list
// must name every shot of the project exactly once.
func (s *Service) ReorderShots(ctx context.Context, projectID string, orderedIDs []string) ([]*Shot, error) {
	shots, err := s.ListShots(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if len(orderedIDs) != len(shots) {
		return nil, &ValidationError{
			Field:   "shot_ids",
			Message: fmt.Sprintf("expected %d shot ids, got %d", len(shots), len(orderedIDs)),
		}
	}

	known := make(map[string]bool, len(shots))
	for _, sh := range shots {
		known[sh.ID] = true
	}
	seen := make(map[string]bool, len(orderedIDs))
	for _, id := range orderedIDs {
		if !known[id] {
			return nil, notFound("shot", id)
		}
		if seen[id] {
			return nil, &ValidationError{Field: "shot_ids", Message: fmt.Sprintf("duplicate id %s", id)}
		}
		seen[id] = true
	}

	if err := s.repo.ReorderShots(ctx, projectID, orderedIDs); err != nil {
		return nil, err
	}
	return s.repo.ListShots(ctx, projectID)
}

func (s *Service) ListShotMedia(ctx context.Context, projectID string) ([]*ShotMedia, error) {
	return s.repo.ListShotMedia(ctx, projectID)
}

// SelectImage marks imageID as the shot's only selected image.
func (s *Service) SelectImage(ctx context.Context, shotID, imageID string) error {
	ok, err := s.repo.SelectImage(ctx, shotID, imageID)
	if err != nil {
		return err
	}
	if !ok {
		return notFound("image", imageID)
	}
	if s.logger != nil {
		s.logger.Info("image selected", "shot_id", shotID, "generation_id", imageID)
	}
	return nil
}

// SelectVideo marks videoID as the shot's only selected video.
func (s *Service) SelectVideo(ctx context.Context, shotID, videoID string) error {
	ok, err := s.repo.SelectVideo(ctx, shotID, videoID)
	if err != nil {
		return err
	}
	if !ok {
		return notFound("video", videoID)
	}
	if s.logger != nil {
		s.logger.Info("video selected", "shot_id", shotID, "generation_id", videoID)
	}
	return nil
}

func (s *Service) DeleteImage(ctx context.Context, shotID, imageID string) error {
	ok, err := s.repo.DeleteImage(ctx, shotID, imageID)
	if err != nil {
		return err
	}
	if !ok {
		return notFound("image", imageID)
	}
	return nil
}

func (s *Service) DeleteVideo(ctx context.Context, shotID, videoID string) error {
	ok, err := s.repo.DeleteVideo(ctx, shotID, videoID)
	if err != nil {
		return err
	}
	if !ok {
		return notFound("video", videoID)
	}
	return nil
}

// GetAudio returns the project's audio, or an empty record when none is set.
func (s *Service) GetAudio(ctx context.Context, projectID string) (*ProjectAudio, error) {
	audio, err := s.repo.GetAudio(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if audio == nil {
		return &ProjectAudio{ProjectID: projectID}, nil
	}
	return audio, nil
}

func (s *Service) SetNarration(ctx context.Context, projectID, url, source string) error {
	return s.repo.SetNarration(ctx, projectID, url, source)
}

func (s *Service) SetMusic(ctx context.Context, projectID, url, source string) error {
	return s.repo.SetMusic(ctx, projectID, url, source)
}

// UpdateAudio records externally uploaded audio. An empty URL clears the track.
func (s *Service) UpdateAudio(ctx context.Context, projectID string, u AudioUpdate) (*ProjectAudio, error) {
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return nil, err
	}

	if u.NarrationURL != nil {
		source := AudioSourceUploaded
		if *u.NarrationURL == "" {
			source = ""
		}
		if err := s.repo.SetNarration(ctx, projectID, *u.NarrationURL, source); err != nil {
			return nil, err
		}
	}
	if u.MusicURL != nil {
		source := AudioSourceUploaded
		if *u.MusicURL == "" {
			source = ""
		}
		if err := s.repo.SetMusic(ctx, projectID, *u.MusicURL, source); err != nil {
			return nil, err
		}
	}
	return s.GetAudio(ctx, projectID)
}
