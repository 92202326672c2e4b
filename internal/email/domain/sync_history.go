package domain

import "time"

// SyncHistory records the outcome of one account's sync within one fleet
// cycle, so failed accounts are visible beyond the process log.
type SyncHistory struct {
	ID         string    `json:"id" gorm:"primaryKey"`
	UserID     string    `json:"user_id" gorm:"index:idx_sync_user_account"`
	AccountKey string    `json:"account_key" gorm:"index:idx_sync_user_account"`
	StartedAt  time.Time `json:"started_at"`
	Inserted   int       `json:"inserted"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
