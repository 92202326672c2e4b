package ai

import "context"

// MockService is the offline fallback: it echoes a trimmed prompt so the
// API keeps working in local development without any provider configured.
type MockService struct{}

func NewMockService() *MockService {
	return &MockService{}
}

func (m *MockService) SummarizeEmail(_ context.Context, emailText string) (string, error) {
	return "[MOCK] " + head(emailText, 60) + "...", nil
}

func (m *MockService) ExtractChecklist(_ context.Context, emailText string) (string, error) {
	return "- [MOCK] review: " + head(emailText, 40), nil
}

func head(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
