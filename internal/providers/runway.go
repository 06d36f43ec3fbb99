package providers

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Maxlottie/pray-production-studio/internal/studio"
)

const (
	DefaultRunwayBaseURL = "https://api.runwayml.com/v1"
	runwayAPIVersion     = "2024-09-13"
	runwayModel          = "gen3a_turbo"
	runwayClipSeconds    = 4
)

type RunwayClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewRunwayClient(apiKey, baseURL string, timeout time.Duration, logger *slog.Logger) *RunwayClient {
	if baseURL == "" {
		baseURL = DefaultRunwayBaseURL
	}
	return &RunwayClient{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: newHTTPClient(timeout),
		logger:     logger,
	}
}

func (c *RunwayClient) Name() string {
	return studio.ProviderRunway
}

func (c *RunwayClient) MotionPhrase(motionType string) string {
	return runwayMotionFor(motionType)
}

type runwaySubmitRequest struct {
	Model       string `json:"model"`
	PromptImage string `json:"promptImage"`
	PromptText  string `json:"promptText"`
	Duration    int    `json:"duration"`
	Watermark   bool   `json:"watermark"`
	Seed        int    `json:"seed"`
}

type runwaySubmitResponse struct {
	ID string `json:"id"`
}

func (c *RunwayClient) Submit(ctx context.Context, req VideoRequest) (string, error) {
	prompt := req.Prompt
	if prompt == "" {
		prompt = c.MotionPhrase(req.MotionType)
	}
	body := runwaySubmitRequest{
		Model:       runwayModel,
		PromptImage: req.ImageURL,
		PromptText:  prompt,
		Duration:    runwayClipSeconds,
		Watermark:   false,
		Seed:        rand.IntN(1000000),
	}

	var resp runwaySubmitResponse
	if err := doJSON(ctx, c.httpClient, c.Name(), http.MethodPost, c.baseURL+"/image-to-video", c.headers(), body, &resp); err != nil {
		return "", &SubmitError{Provider: c.Name(), Err: err}
	}
	if resp.ID == "" {
		return "", &SubmitError{Provider: c.Name(), Err: fmt.Errorf("response carried no task id")}
	}

	if c.logger != nil {
		c.logger.Info("runway task submitted", "task_id", resp.ID)
	}
	return resp.ID, nil
}

type runwayTaskResponse struct {
	ID        string   `json:"id"`
	Status    string   `json:"status"`
	Output    []string `json:"output"`
	Artifacts []struct {
		URL string `json:"url"`
	} `json:"artifacts"`
	Failure     string  `json:"failure"`
	FailureCode string  `json:"failureCode"`
	Progress    float64 `json:"progress"`
}

func (c *RunwayClient) Poll(ctx context.Context, taskID string) (*PollResult, error) {
	var resp runwayTaskResponse
	endpoint := c.baseURL + "/tasks/" + url.PathEscape(taskID)
	if err := doJSON(ctx, c.httpClient, c.Name(), http.MethodGet, endpoint, c.headers(), nil, &resp); err != nil {
		return nil, &PollError{Provider: c.Name(), TaskID: taskID, Err: err}
	}

	result := &PollResult{
		Status:       MapRunwayStatus(resp.Status),
		NativeStatus: resp.Status,
		Error:        resp.Failure,
		Progress:     int(math.Round(resp.Progress * 100)),
	}
	if result.Error == "" {
		result.Error = resp.FailureCode
	}
	if len(resp.Output) > 0 {
		result.VideoURL = resp.Output[0]
	} else if len(resp.Artifacts) > 0 {
		result.VideoURL = resp.Artifacts[0].URL
	}
	return result, nil
}

func (c *RunwayClient) Cancel(ctx context.Context, taskID string) error {
	endpoint := c.baseURL + "/tasks/" + url.PathEscape(taskID) + "/cancel"
	if err := doJSON(ctx, c.httpClient, c.Name(), http.MethodPost, endpoint, c.headers(), nil, nil); err != nil {
		return fmt.Errorf("runway cancel %s: %w", taskID, err)
	}
	if c.logger != nil {
		c.logger.Info("runway task cancelled", "task_id", taskID)
	}
	return nil
}

func (c *RunwayClient) headers() map[string]string {
	return map[string]string{
		"Authorization":    "Bearer " + c.apiKey,
		"X-Runway-Version": runwayAPIVersion,
	}
}

// MapRunwayStatus translates a Runway task status. Unknown values map to
// PENDING.
func MapRunwayStatus(native string) string {
	switch native {
	case "RUNNING", "THROTTLED":
		return studio.GenerationProcessing
	case "SUCCEEDED":
		return studio.GenerationCompleted
	case "FAILED", "CANCELLED":
		return studio.GenerationFailed
	default:
		return studio.GenerationPending
	}
}
