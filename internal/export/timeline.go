package export

import (
	"fmt"
	"math"
	"sort"

	"github.com/Maxlottie/pray-production-studio/internal/studio"
)

// DurationFrames converts seconds to whole frames at FrameRate.
func DurationFrames(seconds float64) int {
	return int(math.Round(seconds * FrameRate))
}

// BuildTimeline orders shots by index and places each shot that has a
// selected completed video or a selected image. A selected video wins over
// the image. Emitted clips are contiguous from frame 0: a skipped shot does
// not leave a gap. Audio tracks span the duration of all shots.
func BuildTimeline(project *studio.Project, shots []*studio.ShotMedia, audio *studio.ProjectAudio) *Timeline {
	tl := &Timeline{
		Title:     project.Title,
		Width:     landscapeWidth,
		Height:    landscapeHeight,
		FrameRate: FrameRate,
		Clips:     []Clip{},
	}
	if project.AspectRatio == studio.AspectPortrait {
		tl.Width, tl.Height = landscapeHeight, landscapeWidth
	}

	ordered := make([]*studio.ShotMedia, len(shots))
	copy(ordered, shots)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Shot.Index < ordered[j].Shot.Index
	})

	cursor := 0
	for _, m := range ordered {
		duration := DurationFrames(m.Shot.Duration)
		tl.TotalFrames += duration

		clip := Clip{
			ShotID:         m.Shot.ID,
			ShotIndex:      m.Shot.Index,
			Name:           fmt.Sprintf("Shot %d", m.Shot.Index+1),
			StartFrame:     cursor,
			EndFrame:       cursor + duration,
			DurationFrames: duration,
		}

		if v := m.SelectedVideo(); v != nil {
			clip.MediaURL = v.VideoURL
			clip.IsVideo = true
			clip.FileName = fmt.Sprintf("shot_%02d.mp4", m.Shot.Index+1)
		} else if img := m.SelectedImage(); img != nil && img.ImageURL != "" {
			clip.MediaURL = img.ImageURL
			clip.FileName = fmt.Sprintf("shot_%02d.png", m.Shot.Index+1)
		} else {
			tl.Skipped = append(tl.Skipped, m.Shot.Index)
			continue
		}

		tl.Clips = append(tl.Clips, clip)
		cursor += duration
	}

	if audio != nil {
		if audio.NarrationURL != "" {
			tl.Narration = &AudioTrack{ID: "narration", Name: "Narration", FileName: "narration.mp3", URL: audio.NarrationURL}
		}
		if audio.MusicURL != "" {
			tl.Music = &AudioTrack{ID: "music", Name: "Music", FileName: "music.mp3", URL: audio.MusicURL}
		}
	}

	return tl
}
