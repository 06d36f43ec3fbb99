package providers

import "strings"

const (
	MotionSubtle   = "SUBTLE"
	MotionPanLeft  = "PAN_LEFT"
	MotionPanRight = "PAN_RIGHT"
	MotionZoomIn   = "ZOOM_IN"
	MotionZoomOut  = "ZOOM_OUT"
	MotionPushIn   = "PUSH_IN"
	MotionHandHeld = "HAND_HELD"
	MotionCustom   = "CUSTOM"
)

type minimaxMotion struct {
	phrase   string
	strength float64
}

var minimaxMotions = map[string]minimaxMotion{
	MotionSubtle:   {"very subtle movement, barely perceptible motion, cinematic stillness", 0.2},
	MotionPanLeft:  {"smooth pan left camera movement, cinematic pan", 0.5},
	MotionPanRight: {"smooth pan right camera movement, cinematic pan", 0.5},
	MotionZoomIn:   {"slow zoom in, dramatic focus, cinematic zoom", 0.4},
	MotionZoomOut:  {"slow zoom out, revealing epic scale, cinematic pullback", 0.4},
	MotionPushIn:   {"dramatic push in, dolly forward, cinematic approach", 0.5},
	MotionHandHeld: {"subtle handheld movement, organic camera shake, documentary feel", 0.3},
	MotionCustom:   {"cinematic camera movement", 0.4},
}

var runwayMotions = map[string]string{
	MotionSubtle:   "very subtle ambient movement, gentle atmospheric motion, cinematic stillness with minimal movement",
	MotionPanLeft:  "camera panning smoothly to the left, cinematic pan shot, horizontal camera movement",
	MotionPanRight: "camera panning smoothly to the right, cinematic pan shot, horizontal camera movement",
	MotionZoomIn:   "camera slowly zooming in, dramatic zoom focus, cinematic zoom movement toward subject",
	MotionZoomOut:  "camera slowly zooming out, revealing wider scene, epic pullback shot",
	MotionPushIn:   "camera pushing forward dramatically, dolly in movement, approaching subject",
	MotionHandHeld: "subtle handheld camera movement, organic motion, documentary style camera shake",
	MotionCustom:   "cinematic camera movement, epic biblical scene animation",
}

// IsValidMotion reports whether m names a known motion type.
func IsValidMotion(m string) bool {
	_, ok := minimaxMotions[m]
	return ok
}

func minimaxMotionFor(motionType string) minimaxMotion {
	if m, ok := minimaxMotions[strings.ToUpper(motionType)]; ok {
		return m
	}
	return minimaxMotions[MotionSubtle]
}

func runwayMotionFor(motionType string) string {
	if p, ok := runwayMotions[strings.ToUpper(motionType)]; ok {
		return p
	}
	return runwayMotions[MotionSubtle]
}

// MotionPrompt returns customPrompt verbatim when set, otherwise the shot
// description followed by the provider's motion phrase.
func MotionPrompt(description, phrase, customPrompt string) string {
	if strings.TrimSpace(customPrompt) != "" {
		return customPrompt
	}
	if description == "" {
		return phrase
	}
	return description + ", " + phrase
}
