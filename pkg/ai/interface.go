package ai

import "context"

// Request is one completion call to an LLM provider. Temperature and MaxTokens
// are set by the caller per use: scoring runs cold and short, digests a bit
// warmer and longer.
type Request struct {
	Prompt      string
	Temperature float32
	MaxTokens   int
}

// Response carries the raw model text plus token accounting for the digest
// metadata fields.
type Response struct {
	Text       string
	TokensUsed int
}

// Client is the interface for LLM completion providers.
// Implement this interface to add new AI providers (OpenAI, Gemini, Ollama, etc.)
type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
	Model() string
}

// ProviderType represents the AI provider type
type ProviderType string

const (
	ProviderOpenAI ProviderType = "openai"
	ProviderGemini ProviderType = "gemini"
	ProviderAuto   ProviderType = "auto"
)
