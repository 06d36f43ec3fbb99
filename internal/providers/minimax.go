package providers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Maxlottie/pray-production-studio/internal/studio"
)

const (
	DefaultMinimaxBaseURL = "https://api.minimax.chat/v1"
	minimaxModel          = "video-01"
)

type MinimaxClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewMinimaxClient(apiKey, baseURL string, timeout time.Duration, logger *slog.Logger) *MinimaxClient {
	if baseURL == "" {
		baseURL = DefaultMinimaxBaseURL
	}
	return &MinimaxClient{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: newHTTPClient(timeout),
		logger:     logger,
	}
}

func (c *MinimaxClient) Name() string {
	return studio.ProviderMinimax
}

func (c *MinimaxClient) MotionPhrase(motionType string) string {
	return minimaxMotionFor(motionType).phrase
}

type minimaxSubmitRequest struct {
	Model          string  `json:"model"`
	ImageURL       string  `json:"image_url"`
	Prompt         string  `json:"prompt"`
	MotionStrength float64 `json:"motion_strength"`
}

type minimaxSubmitResponse struct {
	TaskID string `json:"task_id"`
	ID     string `json:"id"`
}

func (c *MinimaxClient) Submit(ctx context.Context, req VideoRequest) (string, error) {
	motion := minimaxMotionFor(req.MotionType)
	body := minimaxSubmitRequest{
		Model:          minimaxModel,
		ImageURL:       req.ImageURL,
		Prompt:         req.Prompt,
		MotionStrength: motion.strength,
	}

	var resp minimaxSubmitResponse
	if err := doJSON(ctx, c.httpClient, c.Name(), http.MethodPost, c.baseURL+"/video/generate", c.headers(), body, &resp); err != nil {
		return "", &SubmitError{Provider: c.Name(), Err: err}
	}

	taskID := resp.TaskID
	if taskID == "" {
		taskID = resp.ID
	}
	if taskID == "" {
		return "", &SubmitError{Provider: c.Name(), Err: fmt.Errorf("response carried no task id")}
	}

	if c.logger != nil {
		c.logger.Info("minimax task submitted", "task_id", taskID, "motion_strength", motion.strength)
	}
	return taskID, nil
}

type minimaxStatusResponse struct {
	Status       string `json:"status"`
	VideoURL     string `json:"video_url"`
	OutputURL    string `json:"output_url"`
	ErrorMessage string `json:"error_message"`
}

func (c *MinimaxClient) Poll(ctx context.Context, taskID string) (*PollResult, error) {
	var resp minimaxStatusResponse
	endpoint := c.baseURL + "/video/status/" + url.PathEscape(taskID)
	if err := doJSON(ctx, c.httpClient, c.Name(), http.MethodGet, endpoint, c.headers(), nil, &resp); err != nil {
		return nil, &PollError{Provider: c.Name(), TaskID: taskID, Err: err}
	}

	videoURL := resp.VideoURL
	if videoURL == "" {
		videoURL = resp.OutputURL
	}
	return &PollResult{
		Status:       MapMinimaxStatus(resp.Status),
		NativeStatus: resp.Status,
		VideoURL:     videoURL,
		Error:        resp.ErrorMessage,
	}, nil
}

// Cancel is not offered by the Minimax API.
func (c *MinimaxClient) Cancel(ctx context.Context, taskID string) error {
	return ErrCancelUnsupported
}

func (c *MinimaxClient) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + c.apiKey}
}

// MapMinimaxStatus translates a Minimax task status. Matching ignores case
// and unknown values map to PENDING.
func MapMinimaxStatus(native string) string {
	switch strings.ToLower(strings.TrimSpace(native)) {
	case "queueing", "pending":
		return studio.GenerationPending
	case "processing", "running":
		return studio.GenerationProcessing
	case "success", "completed":
		return studio.GenerationCompleted
	case "fail", "failed", "error":
		return studio.GenerationFailed
	default:
		return studio.GenerationPending
	}
}
