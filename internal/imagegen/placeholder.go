package imagegen

import (
	"context"
	_ "embed"
	"fmt"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"
)

const PlaceholderName = "placeholder"

const DefaultPlaceholderDelay = 2 * time.Second

//go:embed placeholders.yaml
var placeholdersYAML []byte

type placeholderList struct {
	Images []struct {
		URL      string `yaml:"url"`
		MIMEType string `yaml:"mimeType"`
	} `yaml:"images"`
}

// Placeholder pretends to generate: it waits, then hands out stock images in
// a fixed rotation.
type Placeholder struct {
	delay  time.Duration
	images []Image
	next   atomic.Uint64
}

func init() {
	RegisterProvider(PlaceholderName, func(cfg Config) (Provider, error) {
		delay := cfg.PlaceholderDelay
		if delay <= 0 {
			delay = DefaultPlaceholderDelay
		}
		return NewPlaceholder(delay)
	})
}

func NewPlaceholder(delay time.Duration) (*Placeholder, error) {
	var list placeholderList
	if err := yaml.Unmarshal(placeholdersYAML, &list); err != nil {
		return nil, fmt.Errorf("failed to parse placeholder images: %w", err)
	}
	if len(list.Images) == 0 {
		return nil, fmt.Errorf("placeholder image list is empty")
	}
	images := make([]Image, 0, len(list.Images))
	for _, img := range list.Images {
		images = append(images, Image{URL: img.URL, MIMEType: img.MIMEType})
	}
	return &Placeholder{delay: delay, images: images}, nil
}

func (p *Placeholder) Generate(ctx context.Context, prompt string) (*Image, error) {
	if prompt == "" {
		return nil, &ProviderError{Provider: PlaceholderName, Code: ErrCodeInvalidInput, Message: "empty prompt"}
	}
	if p.delay > 0 {
		timer := time.NewTimer(p.delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, &ProviderError{Provider: PlaceholderName, Code: ErrCodeCanceled, Message: "generation canceled", Err: ctx.Err()}
		}
	}
	i := (p.next.Add(1) - 1) % uint64(len(p.images))
	img := p.images[i]
	return &img, nil
}

func (p *Placeholder) Name() string { return PlaceholderName }
