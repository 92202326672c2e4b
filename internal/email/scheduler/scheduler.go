package scheduler

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	accountdomain "triagely-backend/internal/account/domain"
	emaildomain "triagely-backend/internal/email/domain"
	"triagely-backend/internal/email/repository"
	"triagely-backend/internal/email/usecase"
)

// AccountLister enumerates every linked account fleet-wide.
// Implemented by the credential repository.
type AccountLister interface {
	ListAllAccounts(ctx context.Context) ([]accountdomain.AccountRef, error)
}

// AccountSyncer syncs a single account.
// Implemented by the sync usecase.
type AccountSyncer interface {
	SyncAccount(ctx context.Context, userID, accountKey string, maxThreads int) (int, error)
}

// FleetScheduler keeps every user's cache warm: one cycle enumerates all
// linked accounts and syncs each with bounded concurrency, then the loop
// sleeps for the poll interval. Cycles never overlap; a slow or broken
// account only delays its own slot in the pool, not the fleet.
type FleetScheduler struct {
	accounts AccountLister
	syncer   AccountSyncer
	history  repository.SyncHistoryRepository

	interval       time.Duration
	initialDelay   time.Duration
	accountTimeout time.Duration
	maxThreads     int
	concurrency    int

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewFleetScheduler(
	accounts AccountLister,
	syncer AccountSyncer,
	history repository.SyncHistoryRepository,
	interval, initialDelay time.Duration,
	maxThreads, concurrency int,
) *FleetScheduler {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &FleetScheduler{
		accounts:       accounts,
		syncer:         syncer,
		history:        history,
		interval:       interval,
		initialDelay:   initialDelay,
		accountTimeout: 90 * time.Second,
		maxThreads:     maxThreads,
		concurrency:    concurrency,
		stopChan:       make(chan struct{}),
	}
}

// Start begins the poll loop. The initial delay lets the rest of the
// process finish starting before the first cycle hits the provider.
func (s *FleetScheduler) Start() {
	log.Printf("[Scheduler] starting fleet poller (interval: %s, concurrency: %d)", s.interval, s.concurrency)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		select {
		case <-time.After(s.initialDelay):
		case <-s.stopChan:
			return
		}

		s.runCycle()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.runCycle()
			case <-s.stopChan:
				log.Println("[Scheduler] fleet poller stopped")
				return
			}
		}
	}()
}

// Stop shuts the loop down and waits for the in-flight cycle to finish.
func (s *FleetScheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
}

// runCycle syncs every known account once. Account failures are contained
// here; only the enumeration itself can abort a cycle.
func (s *FleetScheduler) runCycle() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	refs, err := s.accounts.ListAllAccounts(ctx)
	if err != nil {
		log.Printf("[Scheduler] enumerate accounts failed, retrying next cycle: %v", err)
		return
	}
	if len(refs) == 0 {
		return
	}

	start := time.Now()
	var cycleWg sync.WaitGroup
	semaphore := make(chan struct{}, s.concurrency)

	for _, ref := range refs {
		cycleWg.Add(1)
		go func(ref accountdomain.AccountRef) {
			defer cycleWg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			s.syncOne(ctx, ref)
		}(ref)
	}

	cycleWg.Wait()
	log.Printf("[Scheduler] cycle complete: %d accounts in %s", len(refs), time.Since(start).Round(time.Millisecond))
}

func (s *FleetScheduler) syncOne(ctx context.Context, ref accountdomain.AccountRef) {
	syncCtx, cancel := context.WithTimeout(ctx, s.accountTimeout)
	defer cancel()

	startedAt := time.Now()
	count, err := s.syncer.SyncAccount(syncCtx, ref.UserID, ref.AccountKey, s.maxThreads)

	switch {
	case errors.Is(err, usecase.ErrCredentialInvalid):
		log.Printf("[Scheduler] %s/%s needs reconnection: %v", ref.UserID, ref.AccountKey, err)
	case err != nil:
		log.Printf("[Scheduler] sync failed for %s/%s: %v", ref.UserID, ref.AccountKey, err)
	case count > 0:
		log.Printf("[Scheduler] %d new threads for %s/%s", count, ref.UserID, ref.AccountKey)
	}

	if s.history == nil {
		return
	}
	record := &emaildomain.SyncHistory{
		UserID:     ref.UserID,
		AccountKey: ref.AccountKey,
		StartedAt:  startedAt,
		Inserted:   count,
	}
	if err != nil {
		record.Error = err.Error()
	}
	if histErr := s.history.Record(record); histErr != nil {
		log.Printf("[Scheduler] record sync history: %v", histErr)
	}
}
