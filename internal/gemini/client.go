package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"anime-thumbnail-studio/internal/thumbnail"
)

const defaultImageModel = "imagen-4.0-generate-001"

type Options struct {
	APIKey     string
	Model      string
	BaseURL    string
	APIVersion string
	HTTPClient *http.Client
	Logger     *zerolog.Logger
}

// Client generates thumbnails with Imagen through the Gemini API.
type Client struct {
	models *genai.Models
	model  string
	logger zerolog.Logger
}

func New(ctx context.Context, opts Options) (*Client, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, thumbnail.ErrMissingCredentials
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultImageModel
	}

	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = opts.Logger.With().Str("component", "gemini").Logger()
	}

	cfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: opts.HTTPClient,
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    strings.TrimSpace(opts.BaseURL),
			APIVersion: strings.TrimSpace(opts.APIVersion),
		},
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Client{
		models: client.Models,
		model:  model,
		logger: logger,
	}, nil
}

// GenerateImages makes exactly one generation call. It returns the images
// that carry bytes; an API failure is reported as *thumbnail.RemoteError.
func (c *Client) GenerateImages(ctx context.Context, prompt string, opts thumbnail.GenerateOptions) ([]thumbnail.Image, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, errors.New("prompt is empty")
	}

	cfg := &genai.GenerateImagesConfig{
		NumberOfImages: int32(max(opts.Count, 1)),
		OutputMIMEType: opts.MIMEType,
		AspectRatio:    opts.AspectRatio,
	}

	c.logger.Debug().
		Str("model", c.model).
		Int32("count", cfg.NumberOfImages).
		Str("aspect_ratio", cfg.AspectRatio).
		Int("prompt_len", len(prompt)).
		Msg("generate images")

	resp, err := c.models.GenerateImages(ctx, c.model, prompt, cfg)
	if err != nil {
		return nil, remoteError(err)
	}

	images, filtered := extractImages(resp, opts.MIMEType)
	if len(images) == 0 {
		if filtered != "" {
			return nil, &thumbnail.RemoteError{Message: filtered, Err: thumbnail.ErrNoImageReturned}
		}
		return nil, thumbnail.ErrNoImageReturned
	}

	c.logger.Debug().Int("images", len(images)).Msg("images received")
	return images, nil
}

func extractImages(resp *genai.GenerateImagesResponse, fallbackMIME string) ([]thumbnail.Image, string) {
	if resp == nil {
		return nil, ""
	}

	var images []thumbnail.Image
	var filtered string
	for _, gen := range resp.GeneratedImages {
		if gen == nil {
			continue
		}
		if gen.Image == nil || len(gen.Image.ImageBytes) == 0 {
			if filtered == "" {
				filtered = strings.TrimSpace(gen.RAIFilteredReason)
			}
			continue
		}
		mimeType := strings.TrimSpace(gen.Image.MIMEType)
		if mimeType == "" {
			mimeType = fallbackMIME
		}
		images = append(images, thumbnail.Image{
			Bytes:    gen.Image.ImageBytes,
			MIMEType: mimeType,
		})
	}
	return images, filtered
}

func remoteError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &thumbnail.RemoteError{Err: err}
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &thumbnail.RemoteError{Message: apiMessage(apiErr), Err: err}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &thumbnail.RemoteError{Message: apiMessage(*apiErrPtr), Err: err}
	}
	return &thumbnail.RemoteError{Message: strings.TrimSpace(err.Error()), Err: err}
}

func apiMessage(e genai.APIError) string {
	if msg := strings.TrimSpace(e.Message); msg != "" {
		return msg
	}
	return strings.TrimSpace(e.Status)
}
