package usecase

import (
	"encoding/base64"
	"net/mail"
	"regexp"
	"strings"
	"time"

	emaildomain "triagely-backend/internal/email/domain"

	"google.golang.org/api/gmail/v1"
)

const (
	noSubjectPlaceholder = "(no subject)"
	noSenderPlaceholder  = "(unknown)"
	snippetMaxLen        = 120
)

// urgentPattern matches whole words only, so "urgently" or "asapx" never
// trip the flag.
var urgentPattern = regexp.MustCompile(`(?i)\b(urgent|overdrawn|asap|immediately|action required)\b`)

// Normalizer converts raw Gmail thread payloads into canonical message
// records. It is a pure function of its input plus the injected clock, so
// normalizing the same thread twice yields identical records.
type Normalizer struct {
	now func() time.Time
}

func NewNormalizer() *Normalizer {
	return &Normalizer{now: time.Now}
}

// Normalize extracts the canonical record fields from a full thread
// payload. Malformed or undecodable body parts contribute empty content
// instead of failing the record.
func (n *Normalizer) Normalize(thread *gmail.Thread, accountEmail string) *emaildomain.Message {
	msg := &emaildomain.Message{
		MessageID:   emaildomain.BuildMessageID(accountEmail, thread.Id),
		Subject:     noSubjectPlaceholder,
		Sender:      noSenderPlaceholder,
		AiSummary:   []string{},
		AiChecklist: []string{},
	}

	var first *gmail.Message
	if len(thread.Messages) > 0 {
		first = thread.Messages[0]
	}

	if first != nil && first.Payload != nil {
		headers := headerMap(first.Payload.Headers)

		if subject := headers["subject"]; subject != "" {
			msg.Subject = subject
		}
		if sender := headers["from"]; sender != "" {
			msg.Sender = sender
		}
		msg.DateISO = n.dateISO(headers["date"])

		bodies := extractBodies(first.Payload)
		msg.Plain = bodies.plain
		msg.Html = bodies.html
	} else {
		msg.DateISO = n.dateISO("")
	}

	msg.SenderEmail = senderEmail(msg.Sender)
	msg.Snippet = snippet(thread, first, msg.Plain)
	msg.Urgent = urgentPattern.MatchString(msg.Subject)

	return msg
}

// headerMap builds a case-insensitive lookup from the flat header list.
func headerMap(headers []*gmail.MessagePartHeader) map[string]string {
	m := make(map[string]string, len(headers))
	for _, h := range headers {
		m[strings.ToLower(h.Name)] = h.Value
	}
	return m
}

// senderEmail pulls the address out of a "Jane Doe <jane@x.com>" display
// string; a bare address passes through unchanged.
func senderEmail(sender string) string {
	if sender == noSenderPlaceholder {
		return ""
	}
	if idx := strings.LastIndex(sender, "<"); idx >= 0 {
		return strings.Trim(sender[idx+1:], "> \t")
	}
	return sender
}

// dateISO parses the RFC 2822 Date header into RFC 3339. An absent or
// unparseable header falls back to the ingestion timestamp; an empty date
// would break newest-first ordering downstream.
func (n *Normalizer) dateISO(header string) string {
	if header != "" {
		if t, err := mail.ParseDate(header); err == nil {
			return t.UTC().Format(time.RFC3339)
		}
	}
	return n.now().UTC().Format(time.RFC3339)
}

// bodyContent accumulates the first plain and html parts found during the
// tree walk. Explicit found flags keep first-wins correct even when a part
// decodes to empty content.
type bodyContent struct {
	plain, html         string
	plainSeen, htmlSeen bool
}

// extractBodies walks the MIME part tree depth-first and keeps the first
// text/plain and first text/html leaf in document order. Later matches of
// the same type are ignored.
func extractBodies(payload *gmail.MessagePart) bodyContent {
	var out bodyContent
	walkParts(payload, &out)
	return out
}

func walkParts(part *gmail.MessagePart, out *bodyContent) {
	if part == nil {
		return
	}
	if out.plainSeen && out.htmlSeen {
		return
	}

	if part.Body != nil && part.Body.Data != "" {
		switch {
		case !out.plainSeen && strings.HasPrefix(part.MimeType, "text/plain"):
			out.plain = decodePartData(part.Body.Data)
			out.plainSeen = true
		case !out.htmlSeen && strings.HasPrefix(part.MimeType, "text/html"):
			out.html = decodePartData(part.Body.Data)
			out.htmlSeen = true
		}
	}

	for _, child := range part.Parts {
		walkParts(child, out)
	}
}

// decodePartData decodes base64url content with or without padding.
// Decoding failures are swallowed: the part contributes empty content and
// traversal continues.
func decodePartData(data string) string {
	if b, err := base64.URLEncoding.DecodeString(data); err == nil {
		return string(b)
	}
	if b, err := base64.RawURLEncoding.DecodeString(data); err == nil {
		return string(b)
	}
	return ""
}

// snippet prefers the provider-supplied preview, then falls back to the
// head of the plain body.
func snippet(thread *gmail.Thread, first *gmail.Message, plain string) string {
	if thread.Snippet != "" {
		return thread.Snippet
	}
	if first != nil && first.Snippet != "" {
		return first.Snippet
	}
	runes := []rune(plain)
	if len(runes) > snippetMaxLen {
		return string(runes[:snippetMaxLen])
	}
	return plain
}
