package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const generateURL = "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.5-flash:generateContent?key="

type GeminiService struct {
	ApiKey string
}

func NewGeminiService(apiKey string) *GeminiService {
	return &GeminiService{ApiKey: apiKey}
}

const summaryPrompt = `You are an email assistant. Summarise the thread in 5 bullet points
(max 80 chars each) and list any explicit questions separately.

### THREAD:
`

const checklistPrompt = `You are an email assistant. Extract a concise checklist of
action items from the email thread. Return each task on its own line
starting with a dash (-).

### THREAD:
`

func (g *GeminiService) SummarizeEmail(ctx context.Context, emailText string) (string, error) {
	return g.generate(ctx, summaryPrompt+emailText)
}

func (g *GeminiService) ExtractChecklist(ctx context.Context, emailText string) (string, error) {
	return g.generate(ctx, checklistPrompt+emailText)
}

func (g *GeminiService) generate(ctx context.Context, prompt string) (string, error) {
	url := generateURL + g.ApiKey

	payload := map[string]interface{}{
		"contents": []map[string]interface{}{
			{"parts": []map[string]string{{"text": prompt}}},
		},
	}

	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("Gemini API error: %s", string(respBody))
	}

	var result map[string]interface{}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", err
	}

	// Parse text from the first candidate
	if c, ok := result["candidates"].([]interface{}); ok && len(c) > 0 {
		if cand, ok := c[0].(map[string]interface{}); ok {
			if content, ok := cand["content"].(map[string]interface{}); ok {
				if parts, ok := content["parts"].([]interface{}); ok && len(parts) > 0 {
					if part, ok := parts[0].(map[string]interface{}); ok {
						if text, ok := part["text"].(string); ok {
							return text, nil
						}
					}
				}
			}
		}
	}
	return "", fmt.Errorf("no text returned")
}
