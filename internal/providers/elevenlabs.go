package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultElevenLabsBaseURL = "https://api.elevenlabs.io/v1"
	DefaultVoiceID           = "21m00Tcm4TlvDq8ikWAM"
	DefaultMusicSeconds      = 30

	elevenLabsName   = "ELEVENLABS"
	ttsModel         = "eleven_multilingual_v2"
	maxAudioBodySize = 64 << 20
)

// MusicStyles are the predefined background music prompts.
var MusicStyles = map[string]string{
	"CINEMATIC_ORCHESTRAL": "epic orchestral soundtrack, biblical, cinematic, dramatic strings and brass",
	"AMBIENT_TENSION":      "ambient tension, suspenseful, mysterious, dark atmospheric pads",
	"EPIC_BATTLE":          "epic battle music, intense percussion, dramatic brass, war drums",
	"PEACEFUL_MEDITATIVE":  "peaceful meditation music, soft piano, gentle strings, contemplative",
	"DRAMATIC_STRINGS":     "dramatic string orchestra, emotional, sweeping violins, cinematic",
}

// AudioProvider synthesizes narration and background music as MP3 bytes.
type AudioProvider interface {
	Speech(ctx context.Context, text, voiceID string) ([]byte, error)
	Music(ctx context.Context, prompt string, seconds int) ([]byte, error)
}

type Voice struct {
	VoiceID    string `json:"voice_id"`
	Name       string `json:"name"`
	Category   string `json:"category"`
	PreviewURL string `json:"preview_url,omitempty"`
}

type ElevenLabsClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewElevenLabsClient(apiKey, baseURL string, timeout time.Duration, logger *slog.Logger) *ElevenLabsClient {
	if baseURL == "" {
		baseURL = DefaultElevenLabsBaseURL
	}
	return &ElevenLabsClient{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: newHTTPClient(timeout),
		logger:     logger,
	}
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
}

type ttsRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

// Speech renders text with the given voice. An empty voiceID uses the
// default narrator.
func (c *ElevenLabsClient) Speech(ctx context.Context, text, voiceID string) ([]byte, error) {
	if voiceID == "" {
		voiceID = DefaultVoiceID
	}
	body := ttsRequest{
		Text:    text,
		ModelID: ttsModel,
		VoiceSettings: voiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
			Style:           0.5,
		},
	}
	audio, err := c.postAudio(ctx, "/text-to-speech/"+url.PathEscape(voiceID), body)
	if err != nil {
		return nil, fmt.Errorf("text to speech: %w", err)
	}
	if c.logger != nil {
		c.logger.Info("narration synthesized", "voice_id", voiceID, "chars", len(text), "bytes", len(audio))
	}
	return audio, nil
}

type soundRequest struct {
	Text            string `json:"text"`
	DurationSeconds int    `json:"duration_seconds"`
}

func (c *ElevenLabsClient) Music(ctx context.Context, prompt string, seconds int) ([]byte, error) {
	if seconds <= 0 {
		seconds = DefaultMusicSeconds
	}
	audio, err := c.postAudio(ctx, "/sound-generation", soundRequest{Text: prompt, DurationSeconds: seconds})
	if err != nil {
		return nil, fmt.Errorf("music generation: %w", err)
	}
	if c.logger != nil {
		c.logger.Info("music generated", "seconds", seconds, "bytes", len(audio))
	}
	return audio, nil
}

func (c *ElevenLabsClient) ListVoices(ctx context.Context) ([]Voice, error) {
	var resp struct {
		Voices []Voice `json:"voices"`
	}
	headers := map[string]string{"xi-api-key": c.apiKey}
	if err := doJSON(ctx, c.httpClient, elevenLabsName, http.MethodGet, c.baseURL+"/voices", headers, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Voices, nil
}

func (c *ElevenLabsClient) postAudio(ctx context.Context, path string, body any) ([]byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, newAPIError(elevenLabsName, resp.StatusCode, respBody)
	}

	return io.ReadAll(io.LimitReader(resp.Body, maxAudioBodySize))
}
