package ai

import (
	"fmt"

	"triagely-backend/pkg/gemini"
)

// Config holds AI provider configuration
type Config struct {
	Provider ProviderType // "gemini", "ollama" or "mock"

	// Gemini config
	GeminiAPIKey string

	// Ollama config
	OllamaBaseURL string // e.g., "http://localhost:11434"
	OllamaModel   string // e.g., "llama3", "mistral"
}

// NewSummarizerService creates a SummarizerService based on the config.
// This is the factory function - switch AI provider by changing config.Provider
func NewSummarizerService(cfg Config) (SummarizerService, error) {
	switch cfg.Provider {
	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for Gemini provider")
		}
		return gemini.NewGeminiService(cfg.GeminiAPIKey), nil

	case ProviderOllama:
		return NewOllamaService(cfg.OllamaBaseURL, cfg.OllamaModel), nil

	case ProviderMock:
		return NewMockService(), nil

	default:
		// Default to Gemini if an API key is available, otherwise the mock
		// provider keeps local/offline development working.
		if cfg.GeminiAPIKey != "" {
			return gemini.NewGeminiService(cfg.GeminiAPIKey), nil
		}
		return NewMockService(), nil
	}
}
