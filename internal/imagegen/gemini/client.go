package gemini

import (
	"context"
	"encoding/base64"

	"google.golang.org/genai"

	"github.com/harshitk99/excali-new/internal/imagegen"
)

const Name = "gemini"

// imageModels is the slice of the genai client used here.
type imageModels interface {
	GenerateImages(ctx context.Context, model string, prompt string, config *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error)
}

// Client generates images with an Imagen model through the Gemini API.
type Client struct {
	models imageModels
	config *Config
}

func init() {
	imagegen.RegisterProvider(Name, func(cfg imagegen.Config) (imagegen.Provider, error) {
		config, err := NewConfig(cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		return NewClient(config)
	})
}

func NewClient(config *Config) (*Client, error) {
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, &imagegen.ProviderError{
			Provider: Name,
			Code:     imagegen.ErrCodeAPIKey,
			Message:  "Failed to create Gemini client",
			Err:      err,
		}
	}
	return &Client{models: client.Models, config: config}, nil
}

func (c *Client) Generate(ctx context.Context, prompt string) (*imagegen.Image, error) {
	if prompt == "" {
		return nil, &imagegen.ProviderError{Provider: Name, Code: imagegen.ErrCodeInvalidInput, Message: "empty prompt"}
	}

	resp, err := c.models.GenerateImages(ctx, c.config.Model, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		OutputMIMEType: "image/png",
	})
	if err != nil {
		return nil, &imagegen.ProviderError{
			Provider: Name,
			Code:     imagegen.ErrCodeServiceDown,
			Message:  "Failed to generate image",
			Err:      err,
		}
	}
	if resp == nil {
		return nil, &imagegen.ProviderError{Provider: Name, Code: imagegen.ErrCodeNoImage, Message: "No response generated"}
	}

	for _, generated := range resp.GeneratedImages {
		if generated == nil || generated.Image == nil || len(generated.Image.ImageBytes) == 0 {
			continue
		}
		mime := generated.Image.MIMEType
		if mime == "" {
			mime = "image/png"
		}
		return &imagegen.Image{
			URL:      "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(generated.Image.ImageBytes),
			MIMEType: mime,
		}, nil
	}

	reason := "No image generated"
	if len(resp.GeneratedImages) > 0 && resp.GeneratedImages[0] != nil && resp.GeneratedImages[0].RAIFilteredReason != "" {
		reason = "Image filtered: " + resp.GeneratedImages[0].RAIFilteredReason
	}
	return nil, &imagegen.ProviderError{Provider: Name, Code: imagegen.ErrCodeNoImage, Message: reason}
}

func (c *Client) Name() string { return Name }
