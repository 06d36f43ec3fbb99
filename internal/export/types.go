// Package export lays a project's selected media out on a 30 fps timeline
// and renders it for non-linear editors (FCP xmeml, CMX EDL).
package export

const (
	FrameRate = 30

	landscapeWidth  = 1920
	landscapeHeight = 1080
)

const (
	FormatXML = "xml"
	FormatEDL = "edl"
)

// Timeline is the frame-accurate layout of a project.
type Timeline struct {
	Title     string
	Width     int
	Height    int
	FrameRate int
	// TotalFrames sums every shot, including skipped ones, and is the
	// length of the audio tracks.
	TotalFrames int
	Clips       []Clip
	Narration   *AudioTrack
	Music       *AudioTrack
	// Skipped lists shot indices that had no selected media.
	Skipped []int
}

// Clip is one shot placed on the video track. Frames are half-open:
// [StartFrame, EndFrame).
type Clip struct {
	ShotID         string
	ShotIndex      int
	Name           string
	FileName       string
	MediaURL       string
	IsVideo        bool
	StartFrame     int
	EndFrame       int
	DurationFrames int
}

type AudioTrack struct {
	ID       string
	Name     string
	FileName string
	URL      string
}

// Folder is the subdirectory clip files are expected in next to the
// exported document.
func (c Clip) Folder() string {
	if c.IsVideo {
		return "videos"
	}
	return "images"
}
