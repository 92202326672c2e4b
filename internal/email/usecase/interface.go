package usecase

import (
	"context"

	accountdomain "triagely-backend/internal/account/domain"

	"google.golang.org/api/gmail/v1"
)

// MailProvider is the slice of the Gmail API the sync engine consumes.
// Implemented by pkg/gmail; mocked in tests.
type MailProvider interface {
	Profile(ctx context.Context, accessToken string) (string, error)
	ListThreads(ctx context.Context, accessToken, query string, max int64) ([]*gmail.Thread, error)
	GetThread(ctx context.Context, accessToken, threadID string) (*gmail.Thread, error)
}

// TokenResolver yields a currently-valid access token for a credential,
// refreshing and persisting behind the scenes when needed.
type TokenResolver interface {
	Resolve(ctx context.Context, cred *accountdomain.Credential) (string, error)
}

// SyncUsecase drives incremental sync for linked accounts.
type SyncUsecase interface {
	// SyncAccount pulls up to maxThreads candidate threads for one account
	// and returns the count of genuinely new records inserted.
	SyncAccount(ctx context.Context, userID, accountKey string, maxThreads int) (int, error)
	// SyncAllForUser runs SyncAccount over every linked account of the user
	// and returns the summed insert count. Per-account failures are summed
	// into the best-effort result, not propagated.
	SyncAllForUser(ctx context.Context, userID string, maxThreads int) (int, error)
}
