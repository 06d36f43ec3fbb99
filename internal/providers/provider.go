// Package providers holds the adapters for the external generative APIs:
// image-to-video (Minimax, Runway), still images and script parsing (OpenAI),
// and narration and music (ElevenLabs).
package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const DefaultTimeout = 60 * time.Second

// VideoRequest describes one image-to-video submission.
type VideoRequest struct {
	ImageURL   string
	Prompt     string
	MotionType string
}

// PollResult is a provider task status translated to the canonical vocabulary.
type PollResult struct {
	Status       string
	NativeStatus string
	VideoURL     string
	Error        string
	Progress     int
}

// VideoProvider submits image-to-video tasks and reports their status.
type VideoProvider interface {
	Name() string
	MotionPhrase(motionType string) string
	Submit(ctx context.Context, req VideoRequest) (string, error)
	Poll(ctx context.Context, taskID string) (*PollResult, error)
}

// Canceler is implemented by providers that can abort a running task.
type Canceler interface {
	Cancel(ctx context.Context, taskID string) error
}

var ErrCancelUnsupported = errors.New("provider does not support cancellation")

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// doJSON sends body as JSON and decodes a 2xx response into out. Non-2xx
// responses become an *APIError.
func doJSON(ctx context.Context, client *http.Client, provider, method, url string, headers map[string]string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return newAPIError(provider, resp.StatusCode, respBody)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", provider, err)
	}
	return nil
}
