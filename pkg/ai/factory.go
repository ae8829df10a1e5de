package ai

import "fmt"

// Config holds AI provider configuration
type Config struct {
	Provider ProviderType // "openai" or "gemini"

	// OpenAI config
	OpenAIAPIKey string
	OpenAIModel  string

	// Gemini config
	GeminiAPIKey string
}

// NewClient creates a Client based on the config.
// This is the factory function - switch AI provider by changing config.Provider
func NewClient(cfg Config) (Client, error) {
	switch cfg.Provider {
	case ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for OpenAI provider")
		}
		return NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel), nil

	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for Gemini provider")
		}
		return NewGeminiClient(cfg.GeminiAPIKey), nil

	default:
		// Default to OpenAI if an API key is available, otherwise Gemini
		if cfg.OpenAIAPIKey != "" {
			return NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel), nil
		}
		if cfg.GeminiAPIKey != "" {
			return NewGeminiClient(cfg.GeminiAPIKey), nil
		}
		return nil, fmt.Errorf("no AI provider configured")
	}
}
