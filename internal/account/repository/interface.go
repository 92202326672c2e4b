package repository

import (
	"context"
	"time"

	accountdomain "triagely-backend/internal/account/domain"
)

// CredentialRepository persists one OAuth credential per (user, account).
type CredentialRepository interface {
	// Get returns the credential or nil when the account is not linked.
	Get(userID, accountKey string) (*accountdomain.Credential, error)
	// Put upserts the whole record (initial link and re-consent).
	Put(cred *accountdomain.Credential) error
	// UpdateAccessToken rotates only the access-token fields. It must never
	// touch the refresh token, even when racing a concurrent Put.
	UpdateAccessToken(userID, accountKey, accessToken string, expiresAt time.Time) error
	// ListAccounts returns the user's linked Gmail account keys, ordered.
	ListAccounts(userID string) ([]string, error)
	// ListAllAccounts enumerates every linked account fleet-wide. Paginated
	// internally so it works for an unbounded credential table.
	ListAllAccounts(ctx context.Context) ([]accountdomain.AccountRef, error)
	// Delete removes a credential on explicit user disconnect.
	Delete(userID, accountKey string) error
}
