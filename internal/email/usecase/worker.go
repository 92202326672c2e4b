package usecase

import (
	"context"
	"fmt"
	"log"

	accountrepo "triagely-backend/internal/account/repository"
	emaildomain "triagely-backend/internal/email/domain"
	"triagely-backend/internal/email/repository"
)

// candidateQuery selects which remote threads are worth caching.
const candidateQuery = "is:unread"

// syncUsecase implements SyncUsecase. One instance serves both the fleet
// scheduler and the manual fetch endpoint; all state lives in the stores.
type syncUsecase struct {
	creds      accountrepo.CredentialRepository
	messages   repository.MessageRepository
	resolver   TokenResolver
	provider   MailProvider
	normalizer *Normalizer
}

func NewSyncUsecase(
	creds accountrepo.CredentialRepository,
	messages repository.MessageRepository,
	resolver TokenResolver,
	provider MailProvider,
) SyncUsecase {
	return &syncUsecase{
		creds:      creds,
		messages:   messages,
		resolver:   resolver,
		provider:   provider,
		normalizer: NewNormalizer(),
	}
}

// SyncAccount lists candidate threads, skips the ones already cached,
// fetches and normalizes the rest and writes them. A single candidate's
// failure is logged and skipped; only store failures abort the batch.
func (u *syncUsecase) SyncAccount(ctx context.Context, userID, accountKey string, maxThreads int) (int, error) {
	cred, err := u.creds.Get(userID, accountKey)
	if err != nil {
		return 0, fmt.Errorf("load credential: %w", err)
	}
	if cred == nil {
		return 0, fmt.Errorf("%w: %s", ErrAccountNotLinked, accountKey)
	}

	accessToken, err := u.resolver.Resolve(ctx, cred)
	if err != nil {
		return 0, err
	}

	threads, err := u.provider.ListThreads(ctx, accessToken, candidateQuery, int64(maxThreads))
	if err != nil {
		return 0, fmt.Errorf("list threads for %s: %w", accountKey, err)
	}

	inserted := 0
	for _, summary := range threads {
		if err := ctx.Err(); err != nil {
			// Manual syncs run under a request timeout; surface the
			// partial count rather than hanging the caller.
			return inserted, err
		}

		messageID := emaildomain.BuildMessageID(cred.Email, summary.Id)

		// Courtesy short-circuit. The conditional insert below is the
		// authoritative dedup, so a race here is wasteful, never wrong.
		exists, err := u.messages.Exists(userID, messageID)
		if err != nil {
			return inserted, fmt.Errorf("check cached thread %s: %w", messageID, err)
		}
		if exists {
			continue
		}

		full, err := u.provider.GetThread(ctx, accessToken, summary.Id)
		if err != nil {
			log.Printf("[Sync] skip thread %s for %s: %v", summary.Id, accountKey, err)
			continue
		}

		record := u.normalizer.Normalize(full, cred.Email)
		record.UserID = userID

		ok, err := u.messages.InsertIfAbsent(record)
		if err != nil {
			return inserted, fmt.Errorf("insert message %s: %w", record.MessageID, err)
		}
		if ok {
			inserted++
		}
	}

	return inserted, nil
}

// SyncAllForUser sums SyncAccount over the user's linked accounts,
// isolating per-account failures so one broken credential does not block
// the rest.
func (u *syncUsecase) SyncAllForUser(ctx context.Context, userID string, maxThreads int) (int, error) {
	keys, err := u.creds.ListAccounts(userID)
	if err != nil {
		return 0, fmt.Errorf("list accounts: %w", err)
	}

	total := 0
	for _, key := range keys {
		count, err := u.SyncAccount(ctx, userID, key, maxThreads)
		total += count
		if err != nil {
			log.Printf("[Sync] account %s for user %s failed: %v", key, userID, err)
		}
	}
	return total, nil
}
