package usecase

import (
	"encoding/base64"
	"reflect"
	"testing"
	"time"

	"google.golang.org/api/gmail/v1"
)

func b64(content string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(content))
}

func leaf(mimeType, content string) *gmail.MessagePart {
	return &gmail.MessagePart{
		MimeType: mimeType,
		Body:     &gmail.MessagePartBody{Data: content},
	}
}

func node(mimeType string, children ...*gmail.MessagePart) *gmail.MessagePart {
	return &gmail.MessagePart{
		MimeType: mimeType,
		Parts:    children,
	}
}

func thread(id string, payload *gmail.MessagePart, headers ...*gmail.MessagePartHeader) *gmail.Thread {
	if payload == nil {
		payload = node("multipart/mixed")
	}
	payload.Headers = nil
	return &gmail.Thread{
		Id: id,
		Messages: []*gmail.Message{
			{Payload: &gmail.MessagePart{
				MimeType: payload.MimeType,
				Body:     payload.Body,
				Parts:    payload.Parts,
				Headers:  headers,
			}},
		},
	}
}

func header(name, value string) *gmail.MessagePartHeader {
	return &gmail.MessagePartHeader{Name: name, Value: value}
}

func fixedNormalizer(t *testing.T) *Normalizer {
	t.Helper()
	n := NewNormalizer()
	n.now = func() time.Time {
		return time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	}
	return n
}

func TestNormalize_FirstWinsAcrossNesting(t *testing.T) {
	payload := node("multipart/mixed",
		node("multipart/alternative",
			leaf("text/plain", b64("first plain")),
			leaf("text/html", b64("<p>first html</p>")),
		),
		leaf("text/plain", b64("second plain")),
		leaf("text/html", b64("<p>second html</p>")),
	)

	msg := fixedNormalizer(t).Normalize(thread("t1", payload), "me@x.com")

	if msg.Plain != "first plain" {
		t.Errorf("plain = %q, want first match", msg.Plain)
	}
	if msg.Html != "<p>first html</p>" {
		t.Errorf("html = %q, want first match", msg.Html)
	}
}

func TestNormalize_DecodeFailureContributesEmpty(t *testing.T) {
	payload := node("multipart/mixed",
		leaf("text/plain", "!!!not base64!!!"),
		leaf("text/html", b64("<p>ok</p>")),
	)

	msg := fixedNormalizer(t).Normalize(thread("t1", payload), "me@x.com")

	if msg.Plain != "" {
		t.Errorf("plain = %q, want empty for undecodable part", msg.Plain)
	}
	if msg.Html != "<p>ok</p>" {
		t.Errorf("html = %q, traversal should continue past a bad part", msg.Html)
	}
}

func TestNormalize_HeaderDefaults(t *testing.T) {
	msg := fixedNormalizer(t).Normalize(thread("t1", nil), "me@x.com")

	if msg.Subject != "(no subject)" {
		t.Errorf("subject = %q", msg.Subject)
	}
	if msg.Sender != "(unknown)" {
		t.Errorf("sender = %q", msg.Sender)
	}
	if msg.SenderEmail != "" {
		t.Errorf("senderEmail = %q, want empty for unknown sender", msg.SenderEmail)
	}
}

func TestNormalize_HeadersAreCaseInsensitive(t *testing.T) {
	msg := fixedNormalizer(t).Normalize(
		thread("t1", nil,
			header("SUBJECT", "Quarterly report"),
			header("FROM", "Jane Doe <jane@x.com>"),
		),
		"me@x.com",
	)

	if msg.Subject != "Quarterly report" {
		t.Errorf("subject = %q", msg.Subject)
	}
	if msg.Sender != "Jane Doe <jane@x.com>" {
		t.Errorf("sender = %q", msg.Sender)
	}
}

func TestNormalize_SenderEmail(t *testing.T) {
	cases := []struct {
		from string
		want string
	}{
		{"Jane Doe <jane@x.com>", "jane@x.com"},
		{"jane@x.com", "jane@x.com"},
		{"Weird <Nested> <real@x.com>", "real@x.com"},
		{"Jane < jane@x.com >", "jane@x.com"},
	}

	for _, tc := range cases {
		msg := fixedNormalizer(t).Normalize(
			thread("t1", nil, header("From", tc.from)),
			"me@x.com",
		)
		if msg.SenderEmail != tc.want {
			t.Errorf("senderEmail(%q) = %q, want %q", tc.from, msg.SenderEmail, tc.want)
		}
	}
}

func TestNormalize_UrgentWholeWordOnly(t *testing.T) {
	cases := []struct {
		subject string
		want    bool
	}{
		{"URGENT: wire transfer", true},
		{"urgent", true},
		{"Urgently needed", false},
		{"Account overdrawn", true},
		{"Reply ASAP please", true},
		{"asapx", false},
		{"Action required now", true},
		{"transaction required", false},
		{"Do this immediately", true},
		{"nothing special", false},
	}

	for _, tc := range cases {
		msg := fixedNormalizer(t).Normalize(
			thread("t1", nil, header("Subject", tc.subject)),
			"me@x.com",
		)
		if msg.Urgent != tc.want {
			t.Errorf("urgent(%q) = %v, want %v", tc.subject, msg.Urgent, tc.want)
		}
	}
}

func TestNormalize_DateParsedToISO(t *testing.T) {
	msg := fixedNormalizer(t).Normalize(
		thread("t1", nil, header("Date", "Tue, 01 Jul 2025 10:30:00 +0200")),
		"me@x.com",
	)

	if msg.DateISO != "2025-07-01T08:30:00Z" {
		t.Errorf("dateISO = %q", msg.DateISO)
	}
}

func TestNormalize_DateFallsBackToIngestionTime(t *testing.T) {
	n := fixedNormalizer(t)

	missing := n.Normalize(thread("t1", nil), "me@x.com")
	garbage := n.Normalize(thread("t1", nil, header("Date", "not a date")), "me@x.com")

	want := "2025-07-01T12:00:00Z"
	if missing.DateISO != want {
		t.Errorf("missing date → %q, want ingestion time", missing.DateISO)
	}
	if garbage.DateISO != want {
		t.Errorf("unparseable date → %q, want ingestion time", garbage.DateISO)
	}
}

func TestNormalize_SnippetFallsBackToPlainBody(t *testing.T) {
	long := make([]byte, 0, 300)
	for i := 0; i < 300; i++ {
		long = append(long, 'a')
	}
	payload := node("multipart/mixed", leaf("text/plain", b64(string(long))))

	msg := fixedNormalizer(t).Normalize(thread("t1", payload), "me@x.com")
	if len(msg.Snippet) != snippetMaxLen {
		t.Errorf("snippet len = %d, want %d", len(msg.Snippet), snippetMaxLen)
	}

	withSnippet := thread("t1", payload)
	withSnippet.Snippet = "provider preview"
	msg = fixedNormalizer(t).Normalize(withSnippet, "me@x.com")
	if msg.Snippet != "provider preview" {
		t.Errorf("snippet = %q, want provider-supplied value", msg.Snippet)
	}
}

func TestNormalize_MessageIDIncludesAccount(t *testing.T) {
	msg := fixedNormalizer(t).Normalize(thread("thread-9", nil), "me@x.com")
	if msg.MessageID != "gmail:me@x.com:thread-9" {
		t.Errorf("messageID = %q", msg.MessageID)
	}
}

func TestNormalize_Deterministic(t *testing.T) {
	payload := node("multipart/mixed",
		leaf("text/plain", b64("body")),
		leaf("text/html", b64("<p>body</p>")),
	)
	th := thread("t1", payload,
		header("Subject", "Hello"),
		header("From", "Jane <jane@x.com>"),
		header("Date", "Tue, 01 Jul 2025 10:30:00 +0000"),
	)

	n := fixedNormalizer(t)
	first := n.Normalize(th, "me@x.com")
	second := n.Normalize(th, "me@x.com")

	if !reflect.DeepEqual(first, second) {
		t.Errorf("normalize is not deterministic:\n%+v\n%+v", first, second)
	}
}
