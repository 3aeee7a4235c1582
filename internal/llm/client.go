// Package llm wraps the OpenAI API behind the AIService interface and holds
// the prompt templates for the photo-repair conversation.
package llm

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	openaigo "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"

	"github.com/mariusznazar/airdevs3-app/api/schemas"
	"github.com/mariusznazar/airdevs3-app/internal/config"
)

// Client implements schemas.AIService on top of the OpenAI API.
type Client struct {
	api openaigo.Client
	cfg config.LLMConfig
	log *zap.Logger
}

var _ schemas.AIService = (*Client)(nil)

// NewClient builds an OpenAI-backed AI client. Retries and request timeouts
// are delegated to the SDK.
func NewClient(cfg config.LLMConfig, logger *zap.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("llm api key is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
		option.WithMaxRetries(cfg.MaxRetries),
		option.WithRequestTimeout(cfg.Timeout),
	}
	if baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &Client{
		api: openaigo.NewClient(opts...),
		cfg: cfg,
		log: logger.Named("llm"),
	}, nil
}

// Complete runs a plain chat completion over the given messages.
func (c *Client) Complete(ctx context.Context, messages []schemas.ChatMessage, opts schemas.CompletionOptions) (string, error) {
	model, temperature := c.sampling(opts)

	params := openaigo.ChatCompletionNewParams{
		Model:       openaigo.ChatModel(model),
		Messages:    toMessageParams(messages),
		Temperature: openaigo.Float(temperature),
	}

	started := time.Now()
	completion, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	c.log.Debug("Chat completion finished",
		zap.String("model", model),
		zap.Duration("duration", time.Since(started)))
	return completion.Choices[0].Message.Content, nil
}

// AnalyzeImage describes a single image given as a base64 data URI. The
// description is produced in Polish per the conversation's prompt set.
func (c *Client) AnalyzeImage(ctx context.Context, imageDataURI string) (string, error) {
	parts := []openaigo.ChatCompletionContentPartUnionParam{
		openaigo.TextContentPart(visionPrompt),
		openaigo.ImageContentPart(openaigo.ChatCompletionContentPartImageImageURLParam{
			URL: imageDataURI,
		}),
	}
	params := openaigo.ChatCompletionNewParams{
		Model:    openaigo.ChatModel(c.cfg.VisionModel),
		Messages: []openaigo.ChatCompletionMessageParamUnion{openaigo.UserMessage(parts)},
	}

	started := time.Now()
	completion, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("image analysis: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("image analysis returned no choices")
	}

	c.log.Debug("Image analysis finished",
		zap.String("model", c.cfg.VisionModel),
		zap.Duration("duration", time.Since(started)))
	return completion.Choices[0].Message.Content, nil
}

// Transcribe converts audio bytes to text.
func (c *Client) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	params := openaigo.AudioTranscriptionNewParams{
		Model: openaigo.AudioModel(c.cfg.TranscriptionModel),
		File:  openaigo.File(bytes.NewReader(audio), filename, ""),
	}

	started := time.Now()
	transcription, err := c.api.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("audio transcription: %w", err)
	}

	c.log.Debug("Transcription finished",
		zap.String("model", c.cfg.TranscriptionModel),
		zap.String("filename", filename),
		zap.Duration("duration", time.Since(started)))
	return transcription.Text, nil
}

// GenerateImage creates an image for the prompt and returns its URL.
func (c *Client) GenerateImage(ctx context.Context, prompt string) (string, error) {
	params := openaigo.ImageGenerateParams{
		Model:  openaigo.ImageModel(c.cfg.ImageModel),
		Prompt: prompt,
		N:      openaigo.Int(1),
	}

	started := time.Now()
	images, err := c.api.Images.Generate(ctx, params)
	if err != nil {
		return "", fmt.Errorf("image generation: %w", err)
	}
	if len(images.Data) == 0 {
		return "", fmt.Errorf("image generation returned no data")
	}

	c.log.Debug("Image generation finished",
		zap.String("model", c.cfg.ImageModel),
		zap.Duration("duration", time.Since(started)))
	return images.Data[0].URL, nil
}

// sampling resolves the model and temperature for one completion call. A nil
// temperature falls back to the configured default, so an explicit zero is
// still expressible.
func (c *Client) sampling(opts schemas.CompletionOptions) (model string, temperature float64) {
	model = opts.Model
	if model == "" {
		model = c.cfg.ChatModel
	}
	temperature = c.cfg.Temperature
	if opts.Temperature != nil {
		temperature = *opts.Temperature
	}
	return model, temperature
}

func toMessageParams(messages []schemas.ChatMessage) []openaigo.ChatCompletionMessageParamUnion {
	params := make([]openaigo.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case schemas.ChatSystem:
			params = append(params, openaigo.SystemMessage(m.Content))
		case schemas.ChatAssistant:
			params = append(params, openaigo.AssistantMessage(m.Content))
		default:
			params = append(params, openaigo.UserMessage(m.Content))
		}
	}
	return params
}
