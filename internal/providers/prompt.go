package providers

import (
	"strings"

	"github.com/Maxlottie/pray-production-studio/internal/studio"
)

const technicalBase = "8k resolution, cinematic lighting, biblical era"

var moodModifiers = map[string]string{
	studio.MoodDramatic:    "dramatic cinematic scene, warm dying light mixing with growing shadows, intense emotional moment",
	studio.MoodPeaceful:    "serene atmosphere, golden hour lighting, tranquil, soft ethereal glow, calm and contemplative",
	studio.MoodApocalyptic: "apocalyptic cinematic scene, foreboding, haunting atmosphere, ominous skies, end times feeling",
	studio.MoodDivine:      "divine light, heavenly radiance, ethereal glow, rays of holy light, sacred and transcendent",
	studio.MoodForeboding:  "ominous atmosphere, dark shadows, building tension, threatening skies, sense of dread",
	studio.MoodAction:      "dynamic composition, motion energy, intensity, dramatic movement, urgent and powerful",
}

var visualStyleModifiers = map[string]string{
	studio.StylePhotorealistic:          "photorealistic, shot on Sony A7IV, 35mm lens, natural skin texture, visible pores, real photography, documentary style, no CGI, no digital painting, no illustration",
	studio.StyleHyperrealisticCinematic: "hyperrealistic like a Hollywood film still, practical lighting, real actors, film grain, shot on ARRI Alexa, anamorphic lens flare, no CGI enhancement",
	studio.StyleDramaticRealism:         "photorealistic dramatic photography, chiaroscuro lighting, real human subjects, visible skin imperfections, sweat and dirt texture, raw and gritty, photojournalism style",
	studio.StyleEpicFilmStill:           "movie still from epic biblical film, 70mm IMAX photography, real locations, practical effects, no digital enhancement, Ridley Scott cinematography style",
	studio.StylePainterlyArtistic:       "digital painting, concept art style, artistic interpretation, painterly brushstrokes",
	studio.StyleAnimatedStylized:        "3D animated style, Pixar-like rendering, stylized characters",
}

// BuildImagePrompt assembles the still-image prompt for a shot as
// description, mood modifier, technical base and visual style modifier.
// Unknown moods and styles contribute nothing.
func BuildImagePrompt(shot *studio.Shot) string {
	parts := []string{
		strings.TrimSpace(shot.Description),
		moodModifiers[shot.Mood],
		technicalBase,
		visualStyleModifiers[shot.VisualStyle],
	}

	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ", ")
}
