package usecase

import (
	"context"
	"fmt"
	"strings"

	emaildomain "triagely-backend/internal/email/domain"
	emailrepo "triagely-backend/internal/email/repository"
	"triagely-backend/pkg/ai"
)

// maxPromptLen bounds the thread text sent to the provider to stay inside
// token limits.
const maxPromptLen = 5000

// EnrichUsecase runs the lazy LLM enrichment: summaries and checklists are
// generated on demand and cached on the message record.
type EnrichUsecase interface {
	SummarizeMessage(ctx context.Context, userID, messageID string) ([]string, error)
	ExtractChecklist(ctx context.Context, userID, messageID string) ([]string, error)
}

type enrichUsecase struct {
	messages   emailrepo.MessageRepository
	summarizer ai.SummarizerService
}

func NewEnrichUsecase(messages emailrepo.MessageRepository, summarizer ai.SummarizerService) EnrichUsecase {
	return &enrichUsecase{
		messages:   messages,
		summarizer: summarizer,
	}
}

func (u *enrichUsecase) SummarizeMessage(ctx context.Context, userID, messageID string) ([]string, error) {
	msg, text, err := u.loadThreadText(userID, messageID)
	if err != nil {
		return nil, err
	}
	if len(msg.AiSummary) > 0 {
		return msg.AiSummary, nil
	}

	raw, err := u.summarizer.SummarizeEmail(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("summarize %s: %w", messageID, err)
	}

	lines := splitLines(raw)
	if err := u.messages.UpdateEnrichment(userID, messageID, lines, nil); err != nil {
		return nil, fmt.Errorf("cache summary: %w", err)
	}
	return lines, nil
}

func (u *enrichUsecase) ExtractChecklist(ctx context.Context, userID, messageID string) ([]string, error) {
	msg, text, err := u.loadThreadText(userID, messageID)
	if err != nil {
		return nil, err
	}
	if len(msg.AiChecklist) > 0 {
		return msg.AiChecklist, nil
	}

	raw, err := u.summarizer.ExtractChecklist(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("extract checklist %s: %w", messageID, err)
	}

	items := splitLines(raw)
	if err := u.messages.UpdateEnrichment(userID, messageID, nil, items); err != nil {
		return nil, fmt.Errorf("cache checklist: %w", err)
	}
	return items, nil
}

func (u *enrichUsecase) loadThreadText(userID, messageID string) (*emaildomain.Message, string, error) {
	record, err := u.messages.GetByID(userID, messageID)
	if err != nil {
		return nil, "", fmt.Errorf("load message: %w", err)
	}
	if record == nil {
		return nil, "", fmt.Errorf("message %s not cached", messageID)
	}

	body := record.Plain
	if body == "" {
		body = record.Snippet
	}
	text := fmt.Sprintf("Subject: %s\n\n%s", record.Subject, body)
	if runes := []rune(text); len(runes) > maxPromptLen {
		// Truncate on runes so a multi-byte character is never split.
		text = string(runes[:maxPromptLen])
	}
	return record, text, nil
}

// splitLines turns raw model output into clean list items: blank lines and
// leading dash/bullet markers are stripped.
func splitLines(raw string) []string {
	out := []string{}
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "- ")
		line = strings.TrimPrefix(line, "-")
		line = strings.TrimPrefix(line, "* ")
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
