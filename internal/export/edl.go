package export

import (
	"fmt"
	"strings"
)

// GenerateEDL renders the timeline's video clips as a CMX 3600 edit list.
// Each event plays the clip from its first frame; record times follow the
// timeline.
func GenerateEDL(tl *Timeline) string {
	fps := tl.FrameRate
	if fps <= 0 {
		fps = FrameRate
	}

	lines := []string{
		fmt.Sprintf("TITLE: %s", SanitizeName(tl.Title, 0)),
		"FCM: NON-DROP FRAME",
		"",
	}

	for i, clip := range tl.Clips {
		srcIn := framesToTimecode(0, fps)
		srcOut := framesToTimecode(clip.DurationFrames, fps)
		recIn := framesToTimecode(clip.StartFrame, fps)
		recOut := framesToTimecode(clip.EndFrame, fps)

		lines = append(lines,
			fmt.Sprintf("%03d  %-8s %-5s C        %s %s %s %s", i+1, "AX", "V", srcIn, srcOut, recIn, recOut),
			fmt.Sprintf("* FROM CLIP NAME:  %s", clip.FileName),
			fmt.Sprintf("* MEDIA PATH:  %s/%s", clip.Folder(), clip.FileName),
		)
	}

	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

func framesToTimecode(frames int, fps int) string {
	ff := frames % fps
	totalSeconds := frames / fps
	seconds := totalSeconds % 60
	totalMinutes := totalSeconds / 60
	minutes := totalMinutes % 60
	hours := totalMinutes / 60
	return fmt.Sprintf("%02d:%02d:%02d:%02d", hours, minutes, seconds, ff)
}
