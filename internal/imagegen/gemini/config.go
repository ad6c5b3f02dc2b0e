package gemini

import "errors"

const DefaultModel = "imagen-3.0-generate-002"

// holds Gemini-specific configuration
type Config struct {
	APIKey string
	Model  string
}

func NewConfig(apiKey, model string) (*Config, error) {
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY is required for the gemini image provider")
	}
	if model == "" {
		model = DefaultModel
	}
	return &Config{APIKey: apiKey, Model: model}, nil
}
