package ai

import "context"

// SummarizerService is the interface for LLM-backed email enrichment.
// Implement this interface to add new providers (Gemini, Ollama, etc.)
type SummarizerService interface {
	SummarizeEmail(ctx context.Context, emailText string) (string, error)
	ExtractChecklist(ctx context.Context, emailText string) (string, error)
}

// ProviderType represents the AI provider type
type ProviderType string

const (
	ProviderGemini ProviderType = "gemini"
	ProviderOllama ProviderType = "ollama"
	ProviderMock   ProviderType = "mock"
	ProviderAuto   ProviderType = "auto"
)
