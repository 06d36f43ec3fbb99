package studio

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	AspectLandscape = "LANDSCAPE"
	AspectPortrait  = "PORTRAIT"

	ProjectStatusDraft      = "DRAFT"
	ProjectStatusInProgress = "IN_PROGRESS"
	ProjectStatusCompleted  = "COMPLETED"

	ShotStatusPending  = "PENDING"
	ShotStatusApproved = "APPROVED"

	GenerationPending    = "PENDING"
	GenerationProcessing = "PROCESSING"
	GenerationCompleted  = "COMPLETED"
	GenerationFailed     = "FAILED"

	ProviderMinimax = "MINIMAX"
	ProviderRunway  = "RUNWAY"

	AudioSourceTTS       = "TTS"
	AudioSourceGenerated = "GENERATED"
	AudioSourceUploaded  = "UPLOADED"
)

const (
	MoodDramatic    = "DRAMATIC"
	MoodPeaceful    = "PEACEFUL"
	MoodApocalyptic = "APOCALYPTIC"
	MoodDivine      = "DIVINE"
	MoodForeboding  = "FOREBODING"
	MoodAction      = "ACTION"
)

const (
	CameraStatic   = "STATIC"
	CameraPanLeft  = "PAN_LEFT"
	CameraPanRight = "PAN_RIGHT"
	CameraZoomIn   = "ZOOM_IN"
	CameraZoomOut  = "ZOOM_OUT"
	CameraPushIn   = "PUSH_IN"
	CameraHandHeld = "HAND_HELD"
	CameraCustom   = "CUSTOM"
)

const (
	StylePhotorealistic          = "PHOTOREALISTIC"
	StyleHyperrealisticCinematic = "HYPERREALISTIC_CINEMATIC"
	StyleDramaticRealism         = "DRAMATIC_REALISM"
	StyleEpicFilmStill           = "EPIC_FILM_STILL"
	StylePainterlyArtistic       = "PAINTERLY_ARTISTIC"
	StyleAnimatedStylized        = "ANIMATED_STYLIZED"

	DefaultVisualStyle = StyleHyperrealisticCinematic
)

const (
	DefaultShotDuration = 4.0
	MinShotDuration     = 0.5
	MaxShotDuration     = 60.0
)

var moods = map[string]bool{
	MoodDramatic: true, MoodPeaceful: true, MoodApocalyptic: true,
	MoodDivine: true, MoodForeboding: true, MoodAction: true,
}

var cameraMovements = map[string]bool{
	CameraStatic: true, CameraPanLeft: true, CameraPanRight: true, CameraZoomIn: true,
	CameraZoomOut: true, CameraPushIn: true, CameraHandHeld: true, CameraCustom: true,
}

var visualStyles = map[string]bool{
	StylePhotorealistic: true, StyleHyperrealisticCinematic: true, StyleDramaticRealism: true,
	StyleEpicFilmStill: true, StylePainterlyArtistic: true, StyleAnimatedStylized: true,
}

type Project struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	AspectRatio string    `json:"aspect_ratio"`
	VisualStyle string    `json:"visual_style"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Script struct {
	ID         string    `json:"id"`
	ProjectID  string    `json:"project_id"`
	Version    int       `json:"version"`
	RawText    string    `json:"raw_text"`
	ParsedJSON string    `json:"parsed_json,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type Scene struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Index     int       `json:"index"`
	Title     string    `json:"title"`
	Location  string    `json:"location,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Shot struct {
	ID             string    `json:"id"`
	ProjectID      string    `json:"project_id"`
	SceneID        string    `json:"scene_id"`
	Index          int       `json:"index"`
	Description    string    `json:"description"`
	Mood           string    `json:"mood"`
	CameraMovement string    `json:"camera_movement"`
	VisualStyle    string    `json:"visual_style"`
	Duration       float64   `json:"duration"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type ImageGeneration struct {
	ID        string    `json:"id"`
	ShotID    string    `json:"shot_id"`
	Prompt    string    `json:"prompt"`
	ImageURL  string    `json:"image_url"`
	Selected  bool      `json:"selected"`
	CreatedAt time.Time `json:"created_at"`
}

type VideoGeneration struct {
	ID         string    `json:"id"`
	ShotID     string    `json:"shot_id"`
	ImageID    string    `json:"image_id,omitempty"`
	Provider   string    `json:"provider"`
	MotionType string    `json:"motion_type"`
	Prompt     string    `json:"prompt"`
	Status     string    `json:"status"`
	TaskID     string    `json:"task_id,omitempty"`
	VideoURL   string    `json:"video_url,omitempty"`
	Error      string    `json:"error,omitempty"`
	Selected   bool      `json:"selected"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// IsTerminal reports whether the record can no longer change status.
func (v *VideoGeneration) IsTerminal() bool {
	return v.Status == GenerationCompleted || v.Status == GenerationFailed
}

type ProjectAudio struct {
	ProjectID       string    `json:"project_id"`
	NarrationURL    string    `json:"narration_url,omitempty"`
	NarrationSource string    `json:"narration_source,omitempty"`
	MusicURL        string    `json:"music_url,omitempty"`
	MusicSource     string    `json:"music_source,omitempty"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ShotMedia is a shot together with all of its generations.
type ShotMedia struct {
	Shot   *Shot
	Images []*ImageGeneration
	Videos []*VideoGeneration
}

func (m *ShotMedia) SelectedImage() *ImageGeneration {
	for _, img := range m.Images {
		if img.Selected {
			return img
		}
	}
	return nil
}

// SelectedVideo returns the selected video only once it has a playable URL.
func (m *ShotMedia) SelectedVideo() *VideoGeneration {
	for _, v := range m.Videos {
		if v.Selected && v.Status == GenerationCompleted && v.VideoURL != "" {
			return v
		}
	}
	return nil
}

// ParsedScript is the structured result of an LLM script parse.
type ParsedScript struct {
	Scenes []ParsedScene `json:"scenes"`
}

type ParsedScene struct {
	Index      int          `json:"sceneIndex"`
	Title      string       `json:"title"`
	Location   string       `json:"location"`
	Characters []string     `json:"characters"`
	Mood       string       `json:"mood"`
	Shots      []ParsedShot `json:"shots"`
}

type ParsedShot struct {
	Index          int     `json:"shotIndex"`
	Description    string  `json:"description"`
	CameraMovement string  `json:"cameraMovement"`
	Mood           string  `json:"mood"`
	Duration       float64 `json:"duration"`
}

func NewID() string {
	return uuid.NewString()
}

func IsValidMood(m string) bool {
	return moods[m]
}

func IsValidCameraMovement(c string) bool {
	return cameraMovements[c]
}

func IsValidVisualStyle(s string) bool {
	return visualStyles[s]
}

func IsValidAspectRatio(a string) bool {
	return a == AspectLandscape || a == AspectPortrait
}

// NormalizeMood maps free-form LLM output onto the mood enum.
func NormalizeMood(m string) string {
	m = normalizeEnum(m)
	if moods[m] {
		return m
	}
	return MoodDramatic
}

// NormalizeCameraMovement maps free-form LLM output onto the camera enum.
func NormalizeCameraMovement(c string) string {
	c = normalizeEnum(c)
	if cameraMovements[c] {
		return c
	}
	return CameraStatic
}

func normalizeEnum(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}
