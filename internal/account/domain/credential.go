package domain

import (
	"strings"
	"time"
)

// AccountKeyPrefix namespaces Gmail credentials so one user can link
// several addresses: "gmail:karthik@x.com", "gmail:other@y.com", ...
const AccountKeyPrefix = "gmail:"

// Credential is one OAuth grant for one linked mailbox. The refresh token
// is written once on consent and never touched by the sync engine; the
// access token and expiry rotate together on every refresh.
type Credential struct {
	UserID     string `json:"user_id" gorm:"primaryKey"`
	AccountKey string `json:"account_key" gorm:"primaryKey"`

	RefreshToken string    `json:"-" gorm:"not null"`
	AccessToken  string    `json:"-"`
	ExpiresAt    time.Time `json:"expires_at"`

	TokenURI     string `json:"token_uri"`
	ClientID     string `json:"-"`
	ClientSecret string `json:"-"`
	Scopes       string `json:"scopes"` // comma-joined
	Email        string `json:"email"`  // discovered mailbox address

	ConnectedAt time.Time `json:"connected_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AccountRef identifies one linked mailbox fleet-wide.
type AccountRef struct {
	UserID     string
	AccountKey string
}

func AccountKeyFor(email string) string {
	return AccountKeyPrefix + email
}

// EmailFromKey recovers the mailbox address from an account key.
func EmailFromKey(accountKey string) string {
	return strings.TrimPrefix(accountKey, AccountKeyPrefix)
}
