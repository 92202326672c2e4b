package domain

import (
	"fmt"
	"time"
)

// Message is one cached thread in the per-user message store. Rows are
// written exactly once by the sync worker; only the AI enrichment fields
// change afterwards.
type Message struct {
	UserID    string `json:"-" gorm:"primaryKey"`
	MessageID string `json:"message_id" gorm:"primaryKey"`

	Subject     string `json:"subject"`
	Sender      string `json:"sender"`
	SenderEmail string `json:"sender_email"`
	DateISO     string `json:"date_iso"`
	Snippet     string `json:"snippet"`
	Plain       string `json:"plain,omitempty" gorm:"type:text"`
	Html        string `json:"html,omitempty" gorm:"type:text"`
	Urgent      bool   `json:"urgent"`

	// Populated lazily by the NLP layer, empty until then.
	AiSummary   []string `json:"ai_summary" gorm:"serializer:json"`
	AiChecklist []string `json:"ai_checklist" gorm:"serializer:json"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BuildMessageID derives the store key from the mailbox address and the
// provider-native thread id. Including the address keeps ids unique when a
// user links several Gmail accounts.
func BuildMessageID(accountEmail, threadID string) string {
	return fmt.Sprintf("gmail:%s:%s", accountEmail, threadID)
}
