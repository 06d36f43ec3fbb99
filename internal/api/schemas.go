package api

import (
	"time"

	"github.com/Maxlottie/pray-production-studio/internal/generation"
	"github.com/Maxlottie/pray-production-studio/internal/providers"
	"github.com/Maxlottie/pray-production-studio/internal/storage"
	"github.com/Maxlottie/pray-production-studio/internal/studio"
)

type HealthResponse struct {
	Status        string   `json:"status"`
	Version       string   `json:"version"`
	UptimeS       int64    `json:"uptime_s"`
	VideoProvider []string `json:"video_providers"`
	Images        bool     `json:"images"`
	ImageCap      int      `json:"image_cap,omitempty"`
	Audio         bool     `json:"audio"`
	Drive         bool     `json:"drive"`
	PollerRunning bool     `json:"poller_running"`
	PollerPaused  bool     `json:"poller_paused"`
}

type SceneResponse struct {
	ID       string `json:"id"`
	Index    int    `json:"index"`
	Title    string `json:"title"`
	Location string `json:"location,omitempty"`
}

type ScenesResponse struct {
	Scenes []SceneResponse `json:"scenes"`
}

type VoicesResponse struct {
	Voices []providers.Voice `json:"voices"`
}

type CreateProjectRequest struct {
	Title       string `json:"title"`
	AspectRatio string `json:"aspect_ratio,omitempty"`
	VisualStyle string `json:"visual_style,omitempty"`
}

type UpdateProjectRequest struct {
	Title       *string `json:"title,omitempty"`
	AspectRatio *string `json:"aspect_ratio,omitempty"`
	VisualStyle *string `json:"visual_style,omitempty"`
	Status      *string `json:"status,omitempty"`
}

type ProjectResponse struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	AspectRatio string `json:"aspect_ratio"`
	VisualStyle string `json:"visual_style"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

type ProjectsResponse struct {
	Projects []ProjectResponse `json:"projects"`
}

type ParseScriptRequest struct {
	Text string `json:"text"`
}

type ScriptResponse struct {
	ID        string `json:"id"`
	Version   int    `json:"version"`
	RawText   string `json:"raw_text"`
	CreatedAt string `json:"created_at"`
}

type ScriptsResponse struct {
	Scripts []ScriptResponse `json:"scripts"`
}

type ParseScriptResponse struct {
	Script ScriptResponse `json:"script"`
	Shots  []ShotResponse `json:"shots"`
}

type ShotResponse struct {
	ID             string          `json:"id"`
	SceneID        string          `json:"scene_id"`
	Index          int             `json:"index"`
	Description    string          `json:"description"`
	Mood           string          `json:"mood"`
	CameraMovement string          `json:"camera_movement"`
	VisualStyle    string          `json:"visual_style"`
	Duration       float64         `json:"duration"`
	Status         string          `json:"status"`
	Images         []ImageResponse `json:"images,omitempty"`
	Videos         []VideoResponse `json:"videos,omitempty"`
}

type ShotsResponse struct {
	Shots []ShotResponse `json:"shots"`
}

type UpdateShotRequest struct {
	Description    *string  `json:"description,omitempty"`
	Mood           *string  `json:"mood,omitempty"`
	CameraMovement *string  `json:"camera_movement,omitempty"`
	VisualStyle    *string  `json:"visual_style,omitempty"`
	Duration       *float64 `json:"duration,omitempty"`
	Status         *string  `json:"status,omitempty"`
}

type ReorderShotsRequest struct {
	ShotIDs []string `json:"shot_ids"`
}

type ApproveAllResponse struct {
	Approved int64 `json:"approved"`
}

type GenerateImagesRequest struct {
	Count        *int   `json:"count,omitempty"`
	Regenerate   bool   `json:"regenerate,omitempty"`
	CustomPrompt string `json:"custom_prompt,omitempty"`
}

type ImageResponse struct {
	ID        string `json:"id"`
	ShotID    string `json:"shot_id"`
	Prompt    string `json:"prompt"`
	URL       string `json:"url"`
	Selected  bool   `json:"selected"`
	CreatedAt string `json:"created_at"`
}

type GenerateImagesResponse struct {
	Generated int             `json:"generated"`
	Failed    int             `json:"failed"`
	Images    []ImageResponse `json:"images"`
	Errors    []string        `json:"errors,omitempty"`
}

type GenerateVideoRequest struct {
	ImageID      string `json:"image_id"`
	Provider     string `json:"provider,omitempty"`
	MotionType   string `json:"motion_type,omitempty"`
	CustomPrompt string `json:"custom_prompt,omitempty"`
}

type VideoResponse struct {
	ID         string `json:"id"`
	ShotID     string `json:"shot_id"`
	ImageID    string `json:"image_id,omitempty"`
	Provider   string `json:"provider"`
	MotionType string `json:"motion_type"`
	Prompt     string `json:"prompt"`
	Status     string `json:"status"`
	URL        string `json:"url,omitempty"`
	Error      string `json:"error,omitempty"`
	Selected   bool   `json:"selected"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

type GenerationsResponse struct {
	Poll  generation.PollSummary `json:"poll"`
	Shots []ShotResponse         `json:"shots"`
}

type NarrationRequest struct {
	Text    string `json:"text,omitempty"`
	VoiceID string `json:"voice_id,omitempty"`
}

type MusicRequest struct {
	Style   string `json:"style,omitempty"`
	Prompt  string `json:"prompt,omitempty"`
	Seconds int    `json:"seconds,omitempty"`
}

type UpdateAudioRequest struct {
	NarrationURL *string `json:"narration_url,omitempty"`
	MusicURL     *string `json:"music_url,omitempty"`
}

type AudioResponse struct {
	ProjectID       string `json:"project_id"`
	NarrationURL    string `json:"narration_url,omitempty"`
	NarrationSource string `json:"narration_source,omitempty"`
	MusicURL        string `json:"music_url,omitempty"`
	MusicSource     string `json:"music_source,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func ProjectToResponse(p *studio.Project) ProjectResponse {
	return ProjectResponse{
		ID:          p.ID,
		Title:       p.Title,
		AspectRatio: p.AspectRatio,
		VisualStyle: p.VisualStyle,
		Status:      p.Status,
		CreatedAt:   formatTime(p.CreatedAt),
		UpdatedAt:   formatTime(p.UpdatedAt),
	}
}

func ScriptToResponse(s *studio.Script) ScriptResponse {
	return ScriptResponse{
		ID:        s.ID,
		Version:   s.Version,
		RawText:   s.RawText,
		CreatedAt: formatTime(s.CreatedAt),
	}
}

func ShotToResponse(s *studio.Shot) ShotResponse {
	return ShotResponse{
		ID:             s.ID,
		SceneID:        s.SceneID,
		Index:          s.Index,
		Description:    s.Description,
		Mood:           s.Mood,
		CameraMovement: s.CameraMovement,
		VisualStyle:    s.VisualStyle,
		Duration:       s.Duration,
		Status:         s.Status,
	}
}

// ShotMediaToResponse includes the generations, with stored references
// rewritten to media proxy paths.
func ShotMediaToResponse(m *studio.ShotMedia, media *storage.Client) ShotResponse {
	resp := ShotToResponse(m.Shot)
	resp.Images = make([]ImageResponse, len(m.Images))
	for i, img := range m.Images {
		resp.Images[i] = ImageToResponse(img, media)
	}
	resp.Videos = make([]VideoResponse, len(m.Videos))
	for i, v := range m.Videos {
		resp.Videos[i] = VideoToResponse(v, media)
	}
	return resp
}

func ImageToResponse(img *studio.ImageGeneration, media *storage.Client) ImageResponse {
	return ImageResponse{
		ID:        img.ID,
		ShotID:    img.ShotID,
		Prompt:    img.Prompt,
		URL:       publicURL(media, img.ImageURL),
		Selected:  img.Selected,
		CreatedAt: formatTime(img.CreatedAt),
	}
}

func VideoToResponse(v *studio.VideoGeneration, media *storage.Client) VideoResponse {
	return VideoResponse{
		ID:         v.ID,
		ShotID:     v.ShotID,
		ImageID:    v.ImageID,
		Provider:   v.Provider,
		MotionType: v.MotionType,
		Prompt:     v.Prompt,
		Status:     v.Status,
		URL:        publicURL(media, v.VideoURL),
		Error:      v.Error,
		Selected:   v.Selected,
		CreatedAt:  formatTime(v.CreatedAt),
		UpdatedAt:  formatTime(v.UpdatedAt),
	}
}

func AudioToResponse(a *studio.ProjectAudio, media *storage.Client) AudioResponse {
	return AudioResponse{
		ProjectID:       a.ProjectID,
		NarrationURL:    publicURL(media, a.NarrationURL),
		NarrationSource: a.NarrationSource,
		MusicURL:        publicURL(media, a.MusicURL),
		MusicSource:     a.MusicSource,
	}
}

func BatchToResponse(b *generation.BatchResult, media *storage.Client) GenerateImagesResponse {
	resp := GenerateImagesResponse{
		Generated: b.Generated,
		Failed:    b.Failed,
		Images:    make([]ImageResponse, len(b.Images)),
	}
	for i, img := range b.Images {
		resp.Images[i] = ImageToResponse(img, media)
	}
	resp.Errors = b.Errors
	return resp
}

func publicURL(media *storage.Client, ref string) string {
	if media == nil {
		return ref
	}
	return media.PublicURL(ref)
}
