package providers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/Maxlottie/pray-production-studio/internal/studio"
)

const (
	DefaultImageModel  = "gpt-image-1"
	fallbackImageModel = "dall-e-3"
)

// GeneratedImage is a provider result: either a hosted URL or a base64 data
// URI.
type GeneratedImage struct {
	URL           string
	RevisedPrompt string
}

type ImageProvider interface {
	GenerateImage(ctx context.Context, prompt, aspectRatio string) (*GeneratedImage, error)
}

type OpenAIImageClient struct {
	client openai.Client
	model  string
	logger *slog.Logger
}

// NewOpenAIImageClient builds an image client. Extra options (base URL, HTTP
// client) are passed through to the SDK.
func NewOpenAIImageClient(apiKey, model string, logger *slog.Logger, opts ...option.RequestOption) *OpenAIImageClient {
	if model == "" {
		model = DefaultImageModel
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &OpenAIImageClient{
		client: openai.NewClient(opts...),
		model:  model,
		logger: logger,
	}
}

// GenerateImage tries the configured model first and falls back to DALL-E 3
// with its own size table when that call fails.
func (c *OpenAIImageClient) GenerateImage(ctx context.Context, prompt, aspectRatio string) (*GeneratedImage, error) {
	size := openai.ImageGenerateParamsSize1536x1024
	if aspectRatio == studio.AspectPortrait {
		size = openai.ImageGenerateParamsSize1024x1536
	}

	img, err := c.generate(ctx, openai.ImageGenerateParams{
		Prompt:  prompt,
		Model:   openai.ImageModel(c.model),
		N:       openai.Int(1),
		Size:    size,
		Quality: openai.ImageGenerateParamsQualityHigh,
	})
	if err == nil || c.model == fallbackImageModel || ctx.Err() != nil {
		return img, err
	}

	if c.logger != nil {
		c.logger.Warn("image model failed, falling back", "model", c.model, "fallback", fallbackImageModel, "error", err)
	}

	fallbackSize := openai.ImageGenerateParamsSize1792x1024
	if aspectRatio == studio.AspectPortrait {
		fallbackSize = openai.ImageGenerateParamsSize1024x1792
	}
	return c.generate(ctx, openai.ImageGenerateParams{
		Prompt:  prompt,
		Model:   openai.ImageModel(fallbackImageModel),
		N:       openai.Int(1),
		Size:    fallbackSize,
		Quality: openai.ImageGenerateParamsQualityHD,
	})
}

func (c *OpenAIImageClient) generate(ctx context.Context, params openai.ImageGenerateParams) (*GeneratedImage, error) {
	resp, err := c.client.Images.Generate(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai image generation (%s): %w", params.Model, err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("openai returned no image data")
	}

	image := resp.Data[0]
	if image.B64JSON != "" {
		return &GeneratedImage{
			URL:           "data:image/png;base64," + image.B64JSON,
			RevisedPrompt: image.RevisedPrompt,
		}, nil
	}
	if image.URL == "" {
		return nil, errors.New("openai returned neither image data nor url")
	}
	return &GeneratedImage{URL: image.URL, RevisedPrompt: image.RevisedPrompt}, nil
}
