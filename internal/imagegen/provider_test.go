package imagegen

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testProvider struct{}

func (testProvider) Generate(context.Context, string) (*Image, error) {
	return &Image{URL: "https://example.test/a.png"}, nil
}
func (testProvider) Name() string { return "test" }

func TestProviderErrorError(t *testing.T) {
	err := &ProviderError{Provider: "gemini", Message: "failed"}
	if err.Error() != "gemini error: failed" {
		t.Fatalf("unexpected error message: %s", err.Error())
	}

	cause := errors.New("detail")
	wrapped := &ProviderError{Provider: "gemini", Message: "failed", Err: cause}
	if got := wrapped.Error(); got != "gemini error: failed (detail)" {
		t.Fatalf("unexpected wrapped error message: %s", got)
	}
	assert.ErrorIs(t, wrapped, cause)
}

func TestRegisterAndNewProvider(t *testing.T) {
	RegisterProvider("test_provider", func(Config) (Provider, error) {
		return testProvider{}, nil
	})
	defer func() {
		mu.Lock()
		delete(providers, "test_provider")
		mu.Unlock()
	}()

	provider, err := NewProvider("test_provider", Config{})
	require.NoError(t, err)
	assert.Equal(t, "test", provider.Name())
	assert.Contains(t, Registered(), "test_provider")

	_, err = NewProvider("missing", Config{})
	assert.Error(t, err)
}

func TestPlaceholderRegistered(t *testing.T) {
	provider, err := NewProvider(PlaceholderName, Config{})
	require.NoError(t, err)
	assert.Equal(t, PlaceholderName, provider.Name())
	assert.Equal(t, DefaultPlaceholderDelay, provider.(*Placeholder).delay)
}

func TestPlaceholderRotates(t *testing.T) {
	p, err := NewPlaceholder(0)
	require.NoError(t, err)
	n := len(p.images)
	require.Greater(t, n, 1)

	var urls []string
	for i := 0; i < n+1; i++ {
		img, err := p.Generate(context.Background(), "a cat")
		require.NoError(t, err)
		assert.NotEmpty(t, img.MIMEType)
		urls = append(urls, img.URL)
	}
	assert.Equal(t, p.images[0].URL, urls[0])
	assert.Equal(t, p.images[1].URL, urls[1])
	assert.Equal(t, urls[0], urls[n], "rotation wraps around")
}

func TestPlaceholderConcurrentRotationCoversList(t *testing.T) {
	p, err := NewPlaceholder(0)
	require.NoError(t, err)
	n := len(p.images)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = map[string]int{}
	)
	for i := 0; i < n*4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			img, err := p.Generate(context.Background(), "x")
			if err != nil {
				return
			}
			mu.Lock()
			seen[img.URL]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, n)
	for url, count := range seen {
		assert.Equal(t, 4, count, url)
	}
}

func TestPlaceholderWaitsAndHonorsCancel(t *testing.T) {
	p, err := NewPlaceholder(50 * time.Millisecond)
	require.NoError(t, err)

	start := time.Now()
	_, err = p.Generate(context.Background(), "slow")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)

	p, err = NewPlaceholder(time.Hour)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = p.Generate(ctx, "never")
	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, ErrCodeCanceled, perr.Code)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPlaceholderRejectsEmptyPrompt(t *testing.T) {
	p, err := NewPlaceholder(0)
	require.NoError(t, err)
	_, err = p.Generate(context.Background(), "")
	assert.Error(t, err)
}
