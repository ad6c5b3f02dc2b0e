package imagegen

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Image is a generated picture, addressable by URL. Providers that return raw
// bytes encode them as a data URL.
type Image struct {
	URL      string
	MIMEType string
}

// Provider turns a text prompt into an image.
type Provider interface {
	Generate(ctx context.Context, prompt string) (*Image, error)
	Name() string
}

// Config carries the settings any registered provider may need.
type Config struct {
	PlaceholderDelay time.Duration
	GeminiAPIKey     string
	GeminiModel      string
}

// ProviderError is returned by providers for any failed generation.
type ProviderError struct {
	Provider string
	Code     string
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return e.Provider + " error: " + e.Message + " (" + e.Err.Error() + ")"
	}
	return e.Provider + " error: " + e.Message
}

func (e *ProviderError) Unwrap() error { return e.Err }

const (
	ErrCodeAPIKey       = "invalid_api_key"
	ErrCodeServiceDown  = "service_unavailable"
	ErrCodeInvalidInput = "invalid_input"
	ErrCodeNoImage      = "no_image"
	ErrCodeCanceled     = "canceled"
)

// ProviderFactory builds a provider from the shared config.
type ProviderFactory func(cfg Config) (Provider, error)

var (
	mu        sync.RWMutex
	providers = make(map[string]ProviderFactory)
)

// RegisterProvider makes a provider available under name.
func RegisterProvider(name string, factory ProviderFactory) {
	mu.Lock()
	defer mu.Unlock()
	providers[name] = factory
}

// NewProvider creates the provider registered under name.
func NewProvider(name string, cfg Config) (Provider, error) {
	mu.RLock()
	factory, exists := providers[name]
	mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("unsupported image provider: %s", name)
	}
	return factory(cfg)
}

// Registered lists provider names in sorted order.
func Registered() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
