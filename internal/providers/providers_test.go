package providers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/openai/openai-go/v3/option"

	"github.com/Maxlottie/pray-production-studio/internal/studio"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestMapMinimaxStatus(t *testing.T) {
	tests := []struct {
		native string
		want   string
	}{
		{"Queueing", studio.GenerationPending},
		{"pending", studio.GenerationPending},
		{"Processing", studio.GenerationProcessing},
		{"running", studio.GenerationProcessing},
		{"Success", studio.GenerationCompleted},
		{"completed", studio.GenerationCompleted},
		{"Fail", studio.GenerationFailed},
		{"failed", studio.GenerationFailed},
		{"ERROR", studio.GenerationFailed},
		{"", studio.GenerationPending},
		{"warming_up", studio.GenerationPending},
	}

	for _, tt := range tests {
		got := MapMinimaxStatus(tt.native)
		if got != tt.want {
			t.Errorf("MapMinimaxStatus(%q) = %s, want %s", tt.native, got, tt.want)
		}
		if again := MapMinimaxStatus(tt.native); again != got {
			t.Errorf("MapMinimaxStatus(%q) not stable: %s then %s", tt.native, got, again)
		}
	}
}

func TestMapRunwayStatus(t *testing.T) {
	tests := []struct {
		native string
		want   string
	}{
		{"PENDING", studio.GenerationPending},
		{"RUNNING", studio.GenerationProcessing},
		{"THROTTLED", studio.GenerationProcessing},
		{"SUCCEEDED", studio.GenerationCompleted},
		{"FAILED", studio.GenerationFailed},
		{"CANCELLED", studio.GenerationFailed},
		{"ARCHIVED", studio.GenerationPending},
	}

	for _, tt := range tests {
		if got := MapRunwayStatus(tt.native); got != tt.want {
			t.Errorf("MapRunwayStatus(%q) = %s, want %s", tt.native, got, tt.want)
		}
	}
}

func TestMotionPrompt(t *testing.T) {
	mm := NewMinimaxClient("k", "", time.Second, nil)
	rw := NewRunwayClient("k", "", time.Second, nil)

	if got := MotionPrompt("Moses parts the sea", mm.MotionPhrase(MotionZoomIn), ""); got != "Moses parts the sea, slow zoom in, dramatic focus, cinematic zoom" {
		t.Errorf("minimax prompt = %q", got)
	}
	if got := MotionPrompt("x", rw.MotionPhrase("unknown"), ""); got != "x, "+runwayMotions[MotionSubtle] {
		t.Errorf("runway unknown motion prompt = %q, want SUBTLE fallback", got)
	}
	if got := MotionPrompt("x", mm.MotionPhrase(MotionPanLeft), "my own prompt"); got != "my own prompt" {
		t.Errorf("custom prompt = %q, want verbatim", got)
	}
}

func TestMinimaxClient_Submit(t *testing.T) {
	var received minimaxSubmitRequest
	var receivedAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/video/generate" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		receivedAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &received)
		w.Write([]byte(`{"id":"task-42"}`))
	}))
	defer server.Close()

	client := NewMinimaxClient("mm-key", server.URL, time.Second, testLogger())
	taskID, err := client.Submit(context.Background(), VideoRequest{
		ImageURL:   "https://cdn.example.com/a.png",
		Prompt:     "a prompt",
		MotionType: MotionSubtle,
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if taskID != "task-42" {
		t.Errorf("taskID = %q, want task-42 from id fallback", taskID)
	}
	if receivedAuth != "Bearer mm-key" {
		t.Errorf("auth = %q", receivedAuth)
	}
	if received.Model != "video-01" || received.MotionStrength != 0.2 || received.ImageURL != "https://cdn.example.com/a.png" {
		t.Errorf("request = %+v", received)
	}
}

func TestMinimaxClient_Submit_Error(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"image too small"}`))
	}))
	defer server.Close()

	client := NewMinimaxClient("k", server.URL, time.Second, testLogger())
	_, err := client.Submit(context.Background(), VideoRequest{ImageURL: "x"})

	var submitErr *SubmitError
	if !errors.As(err, &submitErr) {
		t.Fatalf("error type = %T, want *SubmitError", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error does not wrap *APIError: %v", err)
	}
	if apiErr.StatusCode != 400 || apiErr.Message != "image too small" {
		t.Errorf("apiErr = %+v", apiErr)
	}
	if apiErr.IsRetryable() {
		t.Error("400 should not be retryable")
	}
}

func TestMinimaxClient_Poll(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/video/status/task-1" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{"status":"Success","output_url":"https://cdn.example.com/v.mp4"}`))
	}))
	defer server.Close()

	client := NewMinimaxClient("k", server.URL, time.Second, testLogger())
	result, err := client.Poll(context.Background(), "task-1")
	if err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	if result.Status != studio.GenerationCompleted || result.VideoURL != "https://cdn.example.com/v.mp4" {
		t.Errorf("result = %+v", result)
	}
}

func TestMinimaxClient_Poll_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewMinimaxClient("k", server.URL, time.Second, testLogger())
	_, err := client.Poll(context.Background(), "task-1")

	var pollErr *PollError
	if !errors.As(err, &pollErr) {
		t.Fatalf("error type = %T, want *PollError", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || !apiErr.IsRetryable() {
		t.Errorf("502 should surface as a retryable APIError, got %v", err)
	}
}

func TestMinimaxClient_CancelUnsupported(t *testing.T) {
	client := NewMinimaxClient("k", "", time.Second, nil)
	if err := client.Cancel(context.Background(), "t"); !errors.Is(err, ErrCancelUnsupported) {
		t.Errorf("Cancel() error = %v, want ErrCancelUnsupported", err)
	}
}

func TestRunwayClient_SubmitPollCancel(t *testing.T) {
	var submitted runwaySubmitRequest
	var cancelled bool

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Runway-Version") != "2024-09-13" {
			t.Errorf("missing version header on %s", r.URL.Path)
		}
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/image-to-video":
			body, _ := io.ReadAll(r.Body)
			json.Unmarshal(body, &submitted)
			w.Write([]byte(`{"id":"rw-1"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/tasks/rw-1":
			w.Write([]byte(`{"id":"rw-1","status":"RUNNING","progress":0.456}`))
		case r.Method == http.MethodPost && r.URL.Path == "/tasks/rw-1/cancel":
			cancelled = true
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewRunwayClient("rw-key", server.URL, time.Second, testLogger())
	ctx := context.Background()

	taskID, err := client.Submit(ctx, VideoRequest{ImageURL: "https://x/a.png", MotionType: MotionPushIn})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if taskID != "rw-1" {
		t.Errorf("taskID = %q", taskID)
	}
	if submitted.Model != "gen3a_turbo" || submitted.Duration != 4 || submitted.Watermark {
		t.Errorf("submitted = %+v", submitted)
	}
	if submitted.PromptText != runwayMotions[MotionPushIn] {
		t.Errorf("PromptText = %q, want motion phrase when prompt empty", submitted.PromptText)
	}

	result, err := client.Poll(ctx, taskID)
	if err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	if result.Status != studio.GenerationProcessing || result.Progress != 46 {
		t.Errorf("result = %+v", result)
	}

	if err := client.Cancel(ctx, taskID); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if !cancelled {
		t.Error("cancel endpoint not called")
	}
}

func TestRunwayClient_Poll_Failure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"rw-2","status":"FAILED","failureCode":"SAFETY.INPUT"}`))
	}))
	defer server.Close()

	client := NewRunwayClient("k", server.URL, time.Second, testLogger())
	result, err := client.Poll(context.Background(), "rw-2")
	if err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	if result.Status != studio.GenerationFailed || result.Error != "SAFETY.INPUT" {
		t.Errorf("result = %+v", result)
	}
}

func TestBuildImagePrompt(t *testing.T) {
	shot := &studio.Shot{
		Description: "Abraham on the mountain",
		Mood:        studio.MoodDivine,
		VisualStyle: studio.StyleAnimatedStylized,
	}
	want := "Abraham on the mountain, " + moodModifiers[studio.MoodDivine] +
		", 8k resolution, cinematic lighting, biblical era, 3D animated style, Pixar-like rendering, stylized characters"
	if got := BuildImagePrompt(shot); got != want {
		t.Errorf("BuildImagePrompt() = %q\nwant %q", got, want)
	}

	shot.Mood = "UNKNOWN"
	shot.VisualStyle = ""
	if got := BuildImagePrompt(shot); got != "Abraham on the mountain, 8k resolution, cinematic lighting, biblical era" {
		t.Errorf("BuildImagePrompt(unknown) = %q", got)
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"message":"m"}`, "m"},
		{`{"error":"e"}`, "e"},
		{`{"error":{"message":"nested"}}`, "nested"},
		{`{"detail":{"status":"quota","message":"quota exceeded"}}`, "quota exceeded"},
		{`not json`, "not json"},
		{`{}`, ""},
	}
	for _, tt := range tests {
		if got := errorMessage([]byte(tt.body)); got != tt.want {
			t.Errorf("errorMessage(%s) = %q, want %q", tt.body, got, tt.want)
		}
	}
}

func TestElevenLabsClient_Speech(t *testing.T) {
	var received ttsRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/text-to-speech/voice-1" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("xi-api-key") != "el-key" {
			t.Errorf("missing api key header")
		}
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &received)
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("ID3mp3data"))
	}))
	defer server.Close()

	client := NewElevenLabsClient("el-key", server.URL, time.Second, testLogger())
	audio, err := client.Speech(context.Background(), "In the beginning", "voice-1")
	if err != nil {
		t.Fatalf("Speech() error = %v", err)
	}
	if string(audio) != "ID3mp3data" {
		t.Errorf("audio = %q", audio)
	}
	if received.ModelID != "eleven_multilingual_v2" || received.VoiceSettings.SimilarityBoost != 0.75 {
		t.Errorf("request = %+v", received)
	}
}

func TestElevenLabsClient_ListVoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/voices" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"voices":[{"voice_id":"v1","name":"Rachel","category":"premade"}]}`))
	}))
	defer server.Close()

	client := NewElevenLabsClient("el-key", server.URL, time.Second, testLogger())
	voices, err := client.ListVoices(context.Background())
	if err != nil {
		t.Fatalf("ListVoices() error = %v", err)
	}
	if len(voices) != 1 || voices[0].VoiceID != "v1" || voices[0].Name != "Rachel" {
		t.Errorf("voices = %+v", voices)
	}
}

func TestElevenLabsClient_Music_Error(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":{"status":"invalid_api_key","message":"Invalid API key"}}`))
	}))
	defer server.Close()

	client := NewElevenLabsClient("bad", server.URL, time.Second, testLogger())
	_, err := client.Music(context.Background(), MusicStyles["EPIC_BATTLE"], 0)
	if err == nil || !strings.Contains(err.Error(), "Invalid API key") {
		t.Errorf("Music() error = %v, want detail message", err)
	}
}

func TestOpenAIImageClient_Base64(t *testing.T) {
	var requested map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/images/generations") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &requested)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"created":1,"data":[{"b64_json":"aGVsbG8="}]}`))
	}))
	defer server.Close()

	client := NewOpenAIImageClient("sk-test", "", testLogger(),
		option.WithBaseURL(server.URL+"/"), option.WithMaxRetries(0))
	img, err := client.GenerateImage(context.Background(), "a prompt", studio.AspectPortrait)
	if err != nil {
		t.Fatalf("GenerateImage() error = %v", err)
	}
	if img.URL != "data:image/png;base64,aGVsbG8=" {
		t.Errorf("URL = %q", img.URL)
	}
	if requested["size"] != "1024x1536" || requested["model"] != DefaultImageModel {
		t.Errorf("request = %v", requested)
	}
}

func TestOpenAIImageClient_FallsBack(t *testing.T) {
	var models []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		data, _ := io.ReadAll(r.Body)
		json.Unmarshal(data, &body)
		model, _ := body["model"].(string)
		models = append(models, model)

		w.Header().Set("Content-Type", "application/json")
		if model == DefaultImageModel {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":{"message":"model unavailable","type":"invalid_request_error"}}`))
			return
		}
		w.Write([]byte(`{"created":1,"data":[{"url":"https://cdn.example.com/x.png"}]}`))
	}))
	defer server.Close()

	client := NewOpenAIImageClient("sk-test", "", testLogger(),
		option.WithBaseURL(server.URL+"/"), option.WithMaxRetries(0))
	img, err := client.GenerateImage(context.Background(), "a prompt", studio.AspectLandscape)
	if err != nil {
		t.Fatalf("GenerateImage() error = %v", err)
	}
	if img.URL != "https://cdn.example.com/x.png" {
		t.Errorf("URL = %q", img.URL)
	}
	if len(models) != 2 || models[1] != fallbackImageModel {
		t.Errorf("models tried = %v", models)
	}
}

func TestOpenAIScriptParser(t *testing.T) {
	content := `{"scenes":[{"sceneIndex":0,"title":"Creation","location":"The void","characters":[],"mood":"DIVINE","shots":[{"shotIndex":0,"description":"Light pierces darkness","cameraMovement":"PUSH_IN","mood":"DIVINE","duration":5}]}]}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		resp := map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "gpt-4o-mini",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	parser := NewOpenAIScriptParser("sk-test", "", testLogger(),
		option.WithBaseURL(server.URL+"/"), option.WithMaxRetries(0))
	parsed, err := parser.ParseScript(context.Background(), "And God said, let there be light")
	if err != nil {
		t.Fatalf("ParseScript() error = %v", err)
	}
	if len(parsed.Scenes) != 1 || len(parsed.Scenes[0].Shots) != 1 {
		t.Fatalf("parsed = %+v", parsed)
	}
	shot := parsed.Scenes[0].Shots[0]
	if shot.CameraMovement != "PUSH_IN" || shot.Duration != 5 {
		t.Errorf("shot = %+v", shot)
	}
}
