package repository

import (
	emaildomain "triagely-backend/internal/email/domain"
)

// MessageRepository is the per-user message store. InsertIfAbsent is the
// authoritative dedup: a second write of the same (user, message) key is a
// no-op, never an overwrite.
type MessageRepository interface {
	// InsertIfAbsent conditionally creates the row. Returns true when a new
	// row was created, false when the key already existed.
	InsertIfAbsent(msg *emaildomain.Message) (bool, error)
	// Exists is the courtesy pre-check the sync worker uses to skip fetching
	// threads it already has.
	Exists(userID, messageID string) (bool, error)
	GetByID(userID, messageID string) (*emaildomain.Message, error)
	// ListRecent returns up to limit records; callers re-sort by date.
	ListRecent(userID string, limit int) ([]*emaildomain.Message, error)
	// UpdateEnrichment sets the AI fields, the only post-insert mutation.
	UpdateEnrichment(userID, messageID string, summary, checklist []string) error
}

// SyncHistoryRepository records per-account sync outcomes.
type SyncHistoryRepository interface {
	Record(history *emaildomain.SyncHistory) error
	ListRecent(userID string, limit int) ([]*emaildomain.SyncHistory, error)
}
