package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	accountdomain "triagely-backend/internal/account/domain"
	accountrepo "triagely-backend/internal/account/repository"

	"golang.org/x/oauth2"
)

// refreshSafetyMargin is how long before expiry a token is already treated
// as stale, so a sync never starts with a token about to die mid-batch.
const refreshSafetyMargin = 60 * time.Second

// CredentialRefresher exchanges refresh tokens for access tokens and
// persists every rotation. Concurrent resolves for the same account are
// tolerated: the provider treats refreshes idempotently and the last
// writer wins on the persisted token.
type CredentialRefresher struct {
	creds  accountrepo.CredentialRepository
	margin time.Duration
	now    func() time.Time
}

func NewCredentialRefresher(creds accountrepo.CredentialRepository) *CredentialRefresher {
	return &CredentialRefresher{
		creds:  creds,
		margin: refreshSafetyMargin,
		now:    time.Now,
	}
}

// Resolve returns a valid access token for the credential. When the stored
// token is still comfortably inside its lifetime nothing is fetched or
// written; otherwise one refresh happens and the new token plus expiry are
// persisted atomically before returning.
func (r *CredentialRefresher) Resolve(ctx context.Context, cred *accountdomain.Credential) (string, error) {
	if cred.AccessToken != "" && cred.ExpiresAt.After(r.now().Add(r.margin)) {
		return cred.AccessToken, nil
	}

	conf := &oauth2.Config{
		ClientID:     cred.ClientID,
		ClientSecret: cred.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: cred.TokenURI},
	}

	token, err := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: cred.RefreshToken}).Token()
	if err != nil {
		if isRefreshTokenRejected(err) {
			return "", fmt.Errorf("%w: %v", ErrCredentialInvalid, err)
		}
		return "", fmt.Errorf("refresh access token: %w", err)
	}

	if err := r.creds.UpdateAccessToken(cred.UserID, cred.AccountKey, token.AccessToken, token.Expiry); err != nil {
		return "", fmt.Errorf("persist refreshed token: %w", err)
	}

	cred.AccessToken = token.AccessToken
	cred.ExpiresAt = token.Expiry
	return token.AccessToken, nil
}

// isRefreshTokenRejected distinguishes a revoked/expired refresh token from
// a transient endpoint failure. Google answers invalid_grant with HTTP 400;
// 401/403 mean the client credentials themselves were refused.
func isRefreshTokenRejected(err error) bool {
	var retrieveErr *oauth2.RetrieveError
	if !errors.As(err, &retrieveErr) {
		return false
	}
	if retrieveErr.ErrorCode == "invalid_grant" {
		return true
	}
	if retrieveErr.Response == nil {
		return false
	}
	switch retrieveErr.Response.StatusCode {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		return true
	}
	return false
}
