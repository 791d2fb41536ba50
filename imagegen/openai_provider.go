package imagegen

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"thumbgen/core"
)

// OpenAIProvider implements Provider on the OpenAI images API. Azure OpenAI
// endpoints are detected from the base URL and configured automatically, in
// which case Model names the deployment.
//
// Prompt-only requests use the generations endpoint; requests with a
// reference image use the edits endpoint. The API is not streaming, so the
// whole response is returned through a PartStream.
//
// Thread Safety: OpenAIProvider is safe for concurrent use.
type OpenAIProvider struct {
	client  *openai.Client
	fetcher *Fetcher
	model   string
	size    string
	azure   bool
}

// OpenAIProviderConfig holds configuration specific to the OpenAI provider.
type OpenAIProviderConfig struct {
	// APIKey is the OpenAI (or Azure OpenAI) API key (required)
	APIKey string

	// BaseURL is the API endpoint (default: https://api.openai.com/v1)
	BaseURL string

	// Model is the image model or Azure deployment (default: gpt-image-1)
	Model string

	// Size is the requested image size. Empty picks the widest landscape
	// size the model supports.
	Size string

	// HTTPClient is used for API calls and image downloads (optional)
	HTTPClient *http.Client
}

// DefaultOpenAIProviderConfig returns sensible defaults for thumbnail generation.
func DefaultOpenAIProviderConfig() OpenAIProviderConfig {
	return OpenAIProviderConfig{
		BaseURL: "https://api.openai.com/v1",
		Model:   "gpt-image-1",
	}
}

// NewOpenAIProvider creates a provider from the application config.
func NewOpenAIProvider(cfg *core.Config) (*OpenAIProvider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("imagegen: config cannot be nil")
	}
	return NewOpenAIProviderWithConfig(OpenAIProviderConfig{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.OpenAIImageModel,
		Size:    cfg.ImageSize,
	})
}

// NewOpenAIProviderWithConfig creates a provider with explicit configuration.
func NewOpenAIProviderWithConfig(providerCfg OpenAIProviderConfig) (*OpenAIProvider, error) {
	if providerCfg.APIKey == "" {
		return nil, fmt.Errorf("imagegen: OpenAI API key is required for image generation")
	}

	defaults := DefaultOpenAIProviderConfig()
	endpoint := providerCfg.BaseURL
	if endpoint == "" {
		endpoint = defaults.BaseURL
	}
	model := providerCfg.Model
	if model == "" {
		model = defaults.Model
	}
	size := providerCfg.Size
	if size == "" {
		size = defaultSizeForModel(model)
	}

	azure := IsAzureEndpoint(endpoint)
	var clientConfig openai.ClientConfig
	if azure {
		clientConfig = openai.DefaultAzureConfig(providerCfg.APIKey, endpoint)
	} else {
		clientConfig = openai.DefaultConfig(providerCfg.APIKey)
		clientConfig.BaseURL = endpoint
	}

	httpClient := providerCfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 2 * time.Minute}
	}
	clientConfig.HTTPClient = httpClient

	return &OpenAIProvider{
		client:  openai.NewClientWithConfig(clientConfig),
		fetcher: NewFetcher(httpClient, DefaultMaxImageBytes),
		model:   model,
		size:    size,
		azure:   azure,
	}, nil
}

func defaultSizeForModel(model string) string {
	switch {
	case model == "dall-e-2":
		return "1024x1024"
	case strings.HasPrefix(model, "dall-e"):
		return "1792x1024"
	default:
		return "1536x1024"
	}
}

// usesResponseFormat reports whether the model accepts response_format.
// gpt-image models always answer with base64 and reject the parameter.
func (p *OpenAIProvider) usesResponseFormat() bool {
	return strings.HasPrefix(p.model, "dall-e")
}

// Submit implements Provider.
func (p *OpenAIProvider) Submit(ctx context.Context, req SubmitRequest) (Stream, error) {
	if req.Prompt == "" {
		return nil, fmt.Errorf("imagegen: prompt cannot be empty")
	}

	var (
		resp openai.ImageResponse
		err  error
	)
	if len(req.Reference) > 0 {
		resp, err = p.edit(ctx, req)
	} else {
		imgReq := openai.ImageRequest{
			Prompt: req.Prompt,
			Model:  p.model,
			Size:   p.size,
			N:      1,
		}
		if p.usesResponseFormat() {
			imgReq.ResponseFormat = openai.CreateImageResponseFormatB64JSON
		}
		resp, err = p.client.CreateImage(ctx, imgReq)
	}
	if err != nil {
		return nil, classifyAPIError(err)
	}

	return p.toStream(ctx, resp)
}

func (p *OpenAIProvider) edit(ctx context.Context, req SubmitRequest) (openai.ImageResponse, error) {
	mimeType := req.ReferenceMimeType
	if mimeType == "" {
		mimeType = DetectMimeType(req.Reference)
	}

	// The edits endpoint takes a multipart upload and derives the image type
	// from the file name.
	file, err := os.CreateTemp("", "thumbgen-reference-*"+ExtensionForMimeType(mimeType))
	if err != nil {
		return openai.ImageResponse{}, fmt.Errorf("imagegen: failed to stage reference image: %w", err)
	}
	defer os.Remove(file.Name())
	defer file.Close()

	if _, err := file.Write(req.Reference); err != nil {
		return openai.ImageResponse{}, fmt.Errorf("imagegen: failed to stage reference image: %w", err)
	}
	if _, err := file.Seek(0, 0); err != nil {
		return openai.ImageResponse{}, fmt.Errorf("imagegen: failed to stage reference image: %w", err)
	}

	editReq := openai.ImageEditRequest{
		Image:  file,
		Prompt: req.Prompt,
		Model:  p.model,
		Size:   p.size,
		N:      1,
	}
	if p.usesResponseFormat() {
		editReq.ResponseFormat = openai.CreateImageResponseFormatB64JSON
	}
	return p.client.CreateEditImage(ctx, editReq)
}

func (p *OpenAIProvider) toStream(ctx context.Context, resp openai.ImageResponse) (Stream, error) {
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("imagegen: OpenAI returned empty Data array: %w", ErrNoImageContent)
	}

	parts := make([]Part, 0, len(resp.Data))
	for i, item := range resp.Data {
		if item.RevisedPrompt != "" {
			parts = append(parts, Part{Text: item.RevisedPrompt})
		}
		switch {
		case item.B64JSON != "":
			data, err := base64.StdEncoding.DecodeString(item.B64JSON)
			if err != nil {
				return nil, fmt.Errorf("imagegen: malformed image %d in response: %w", i, err)
			}
			parts = append(parts, Part{ImageData: data, MimeType: DetectMimeType(data)})
		case item.URL != "":
			data, contentType, err := p.fetcher.Fetch(ctx, item.URL)
			if err != nil {
				return nil, err
			}
			parts = append(parts, Part{ImageData: data, MimeType: contentType})
		}
	}
	return NewPartStream(parts...), nil
}

// classifyAPIError marks answers where the provider was reached but refused
// the request (content policy, bad request) as rejections. Rate limits and
// server errors stay transport failures.
func classifyAPIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		status := apiErr.HTTPStatusCode
		if status >= 400 && status < 500 && status != http.StatusTooManyRequests {
			return fmt.Errorf("%w: %w", ErrRejected, err)
		}
	}
	return fmt.Errorf("imagegen: OpenAI image request failed: %w", err)
}

// Model returns the configured image model name.
func (p *OpenAIProvider) Model() string {
	return p.model
}

// IsAzure reports whether the provider targets an Azure OpenAI endpoint.
func (p *OpenAIProvider) IsAzure() bool {
	return p.azure
}

var _ Provider = (*OpenAIProvider)(nil)
