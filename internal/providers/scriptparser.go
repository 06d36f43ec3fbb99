package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/Maxlottie/pray-production-studio/internal/studio"
)

const DefaultChatModel = openai.ChatModelGPT4oMini

const scriptParserSystemPrompt = `You are a professional video production assistant specializing in biblical content. Your job is to analyze scripts and break them down into scenes and shots for video production.

When given a script, you will:

1. Identify natural scene breaks (changes in location, time, or major narrative shifts)
2. For each scene, identify a descriptive title, the location or setting, the characters present (use their biblical names) and the mood.
3. Break each scene into individual shots (approximately 4 seconds each by default)
4. For each shot, provide a detailed visual description (what the camera sees), a suggested camera movement, a mood classification and an estimated duration.

Camera movement options: STATIC, PAN_LEFT, PAN_RIGHT, ZOOM_IN, ZOOM_OUT, PUSH_IN, HAND_HELD, CUSTOM
Mood options: DRAMATIC, PEACEFUL, APOCALYPTIC, DIVINE, FOREBODING, ACTION

Be cinematic and specific in your visual descriptions. Think like a film director. Each shot description should be vivid enough to generate a compelling image.`

type scriptBreakdown struct {
	Scenes []sceneBreakdown `json:"scenes" jsonschema_description:"The scenes of the script in narrative order."`
}

type sceneBreakdown struct {
	SceneIndex int             `json:"sceneIndex" jsonschema_description:"Zero-based position of the scene."`
	Title      string          `json:"title" jsonschema_description:"A short descriptive scene title."`
	Location   string          `json:"location" jsonschema_description:"Where the scene takes place."`
	Characters []string        `json:"characters" jsonschema_description:"Biblical names of the characters present."`
	Mood       string          `json:"mood" jsonschema_description:"Overall mood of the scene."`
	Shots      []shotBreakdown `json:"shots" jsonschema_description:"Shots of the scene, about 4 seconds each."`
}

type shotBreakdown struct {
	ShotIndex      int     `json:"shotIndex" jsonschema_description:"Zero-based position of the shot within the scene."`
	Description    string  `json:"description" jsonschema_description:"Detailed visual description of what the camera sees."`
	CameraMovement string  `json:"cameraMovement" jsonschema:"enum=STATIC,enum=PAN_LEFT,enum=PAN_RIGHT,enum=ZOOM_IN,enum=ZOOM_OUT,enum=PUSH_IN,enum=HAND_HELD,enum=CUSTOM"`
	Mood           string  `json:"mood" jsonschema:"enum=DRAMATIC,enum=PEACEFUL,enum=APOCALYPTIC,enum=DIVINE,enum=FOREBODING,enum=ACTION"`
	Duration       float64 `json:"duration" jsonschema_description:"Estimated duration in seconds."`
}

// GenerateSchema reflects a strict JSON schema for structured outputs.
func GenerateSchema[T any]() any {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

var scriptBreakdownSchema = GenerateSchema[scriptBreakdown]()

type OpenAIScriptParser struct {
	client openai.Client
	model  string
	logger *slog.Logger
}

func NewOpenAIScriptParser(apiKey, model string, logger *slog.Logger, opts ...option.RequestOption) *OpenAIScriptParser {
	if model == "" {
		model = string(DefaultChatModel)
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &OpenAIScriptParser{
		client: openai.NewClient(opts...),
		model:  model,
		logger: logger,
	}
}

func (p *OpenAIScriptParser) ParseScript(ctx context.Context, rawText string) (*studio.ParsedScript, error) {
	completion, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(scriptParserSystemPrompt),
			openai.UserMessage("Please analyze the following script and break it down into scenes and shots.\n\nSCRIPT:\n" + rawText),
		},
		Model: openai.ChatModel(p.model),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        "script_breakdown",
					Description: openai.String("Scenes and shots of a video script"),
					Schema:      scriptBreakdownSchema,
					Strict:      openai.Bool(true),
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai API error: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("no response from openai")
	}

	raw := completion.Choices[0].Message.Content
	var breakdown scriptBreakdown
	if err := json.Unmarshal([]byte(raw), &breakdown); err != nil {
		return nil, fmt.Errorf("parse script breakdown: %w", err)
	}
	if len(breakdown.Scenes) == 0 {
		return nil, fmt.Errorf("script breakdown contained no scenes")
	}

	if p.logger != nil {
		p.logger.Info("script breakdown received", "model", p.model, "scenes", len(breakdown.Scenes))
	}
	return breakdown.toParsedScript(), nil
}

func (b scriptBreakdown) toParsedScript() *studio.ParsedScript {
	parsed := &studio.ParsedScript{Scenes: make([]studio.ParsedScene, 0, len(b.Scenes))}
	for _, sc := range b.Scenes {
		scene := studio.ParsedScene{
			Index:      sc.SceneIndex,
			Title:      sc.Title,
			Location:   sc.Location,
			Characters: sc.Characters,
			Mood:       sc.Mood,
		}
		for _, sh := range sc.Shots {
			scene.Shots = append(scene.Shots, studio.ParsedShot{
				Index:          sh.ShotIndex,
				Description:    sh.Description,
				CameraMovement: sh.CameraMovement,
				Mood:           sh.Mood,
				Duration:       sh.Duration,
			})
		}
		parsed.Scenes = append(parsed.Scenes, scene)
	}
	return parsed
}
