// Package enhance rewrites user prompts into richer image-generation prompts.
// The rewrite is an extra model call, so it is normally wrapped with Cached.
package enhance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"thumbgen/core"
	"thumbgen/imagegen"
)

// ErrEmptyCompletion is returned when the model answers without any text.
var ErrEmptyCompletion = errors.New("enhance: model returned an empty completion")

// ErrEmptyPrompt is returned when Enhance is called with a blank prompt.
var ErrEmptyPrompt = errors.New("enhance: prompt cannot be empty")

// DefaultSystemPrompt steers the chat model towards thumbnail-ready prompts.
const DefaultSystemPrompt = `You rewrite image generation prompts for YouTube thumbnails.
Keep the user's subject and intent. Add concrete detail about composition, lighting, colour and focal point.
The image must be a 16:9 widescreen composition that reads clearly at small sizes.
Answer with the rewritten prompt only, without quotes or commentary.`

// Enhancer turns a prompt into an enhanced prompt.
type Enhancer interface {
	Enhance(ctx context.Context, prompt string) (string, error)
}

// OpenAIConfig configures OpenAIEnhancer.
type OpenAIConfig struct {
	APIKey       string
	BaseURL      string
	Model        string
	SystemPrompt string
	MaxTokens    int
	Temperature  float32
	HTTPClient   *http.Client
}

// DefaultOpenAIConfig returns the defaults used by the CLI.
func DefaultOpenAIConfig() OpenAIConfig {
	return OpenAIConfig{
		BaseURL:      "https://api.openai.com/v1",
		Model:        "gpt-4o-mini",
		SystemPrompt: DefaultSystemPrompt,
		MaxTokens:    400,
		Temperature:  0.7,
	}
}

// OpenAIEnhancer implements Enhancer with a chat completion.
type OpenAIEnhancer struct {
	client *openai.Client
	config OpenAIConfig
}

// NewOpenAIEnhancer builds an enhancer from the application config.
func NewOpenAIEnhancer(cfg *core.Config) (*OpenAIEnhancer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("enhance: config cannot be nil")
	}
	enhancerCfg := DefaultOpenAIConfig()
	enhancerCfg.APIKey = cfg.OpenAIAPIKey
	if cfg.OpenAIBaseURL != "" {
		enhancerCfg.BaseURL = cfg.OpenAIBaseURL
	}
	if cfg.OpenAIEnhanceModel != "" {
		enhancerCfg.Model = cfg.OpenAIEnhanceModel
	}
	return NewOpenAIEnhancerWithConfig(enhancerCfg)
}

// NewOpenAIEnhancerWithConfig builds an enhancer with explicit configuration.
// Zero fields fall back to DefaultOpenAIConfig.
func NewOpenAIEnhancerWithConfig(config OpenAIConfig) (*OpenAIEnhancer, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("enhance: OpenAI API key is required")
	}
	defaults := DefaultOpenAIConfig()
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	if config.Model == "" {
		config.Model = defaults.Model
	}
	if config.SystemPrompt == "" {
		config.SystemPrompt = defaults.SystemPrompt
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = defaults.MaxTokens
	}

	var clientConfig openai.ClientConfig
	if imagegen.IsAzureEndpoint(config.BaseURL) {
		clientConfig = openai.DefaultAzureConfig(config.APIKey, config.BaseURL)
	} else {
		clientConfig = openai.DefaultConfig(config.APIKey)
		clientConfig.BaseURL = config.BaseURL
	}
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	clientConfig.HTTPClient = httpClient

	return &OpenAIEnhancer{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}, nil
}

// Model returns the chat model used for enhancement.
func (e *OpenAIEnhancer) Model() string { return e.config.Model }

// Enhance implements Enhancer.
func (e *OpenAIEnhancer) Enhance(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", ErrEmptyPrompt
	}

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: e.config.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   e.config.MaxTokens,
		Temperature: e.config.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("enhance: chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	enhanced := strings.TrimSpace(resp.Choices[0].Message.Content)
	if enhanced == "" {
		return "", ErrEmptyCompletion
	}
	return enhanced, nil
}

var _ Enhancer = (*OpenAIEnhancer)(nil)
