package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	accountdomain "triagely-backend/internal/account/domain"
	emaildomain "triagely-backend/internal/email/domain"

	"google.golang.org/api/gmail/v1"
)

// fakeMessageStore is an in-memory MessageRepository with the same
// conditional-insert contract as the real one.
type fakeMessageStore struct {
	mu        sync.Mutex
	rows      map[string]*emaildomain.Message
	existsErr error
	insertErr error
}

func newFakeMessageStore() *fakeMessageStore {
	return &fakeMessageStore{rows: make(map[string]*emaildomain.Message)}
}

func (s *fakeMessageStore) key(userID, messageID string) string {
	return userID + "/" + messageID
}

func (s *fakeMessageStore) InsertIfAbsent(msg *emaildomain.Message) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return false, s.insertErr
	}
	k := s.key(msg.UserID, msg.MessageID)
	if _, ok := s.rows[k]; ok {
		return false, nil
	}
	s.rows[k] = msg
	return true, nil
}

func (s *fakeMessageStore) Exists(userID, messageID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.existsErr != nil {
		return false, s.existsErr
	}
	_, ok := s.rows[s.key(userID, messageID)]
	return ok, nil
}

func (s *fakeMessageStore) GetByID(userID, messageID string) (*emaildomain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows[s.key(userID, messageID)], nil
}

func (s *fakeMessageStore) ListRecent(userID string, limit int) ([]*emaildomain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*emaildomain.Message
	for _, m := range s.rows {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *fakeMessageStore) UpdateEnrichment(userID, messageID string, summary, checklist []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.rows[s.key(userID, messageID)]
	if !ok {
		return errors.New("not found")
	}
	if summary != nil {
		m.AiSummary = summary
	}
	if checklist != nil {
		m.AiChecklist = checklist
	}
	return nil
}

func (s *fakeMessageStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

// fakeProvider serves canned thread summaries and full payloads.
type fakeProvider struct {
	mu       sync.Mutex
	threads  []*gmail.Thread
	failGet  map[string]bool
	listErr  error
	getCalls int
}

func (p *fakeProvider) Profile(ctx context.Context, accessToken string) (string, error) {
	return "me@x.com", nil
}

func (p *fakeProvider) ListThreads(ctx context.Context, accessToken, query string, max int64) ([]*gmail.Thread, error) {
	if p.listErr != nil {
		return nil, p.listErr
	}
	if int64(len(p.threads)) > max {
		return p.threads[:max], nil
	}
	return p.threads, nil
}

func (p *fakeProvider) GetThread(ctx context.Context, accessToken, threadID string) (*gmail.Thread, error) {
	p.mu.Lock()
	p.getCalls++
	p.mu.Unlock()
	if p.failGet[threadID] {
		return nil, fmt.Errorf("thread %s unavailable", threadID)
	}
	for _, th := range p.threads {
		if th.Id == threadID {
			return th, nil
		}
	}
	return nil, fmt.Errorf("thread %s not found", threadID)
}

// staticResolver hands back a fixed token, or a per-key error.
type staticResolver struct {
	token   string
	failFor map[string]error
}

func (r *staticResolver) Resolve(ctx context.Context, cred *accountdomain.Credential) (string, error) {
	if err := r.failFor[cred.AccountKey]; err != nil {
		return "", err
	}
	return r.token, nil
}

func summaryThread(id, subject string) *gmail.Thread {
	return &gmail.Thread{
		Id:      id,
		Snippet: subject + " preview",
		Messages: []*gmail.Message{
			{Payload: &gmail.MessagePart{
				MimeType: "text/plain",
				Headers: []*gmail.MessagePartHeader{
					{Name: "Subject", Value: subject},
					{Name: "From", Value: "Jane <jane@x.com>"},
					{Name: "Date", Value: "Tue, 01 Jul 2025 10:00:00 +0000"},
				},
			}},
		},
	}
}

func linkedCredential(userID, email string) *accountdomain.Credential {
	return &accountdomain.Credential{
		UserID:      userID,
		AccountKey:  accountdomain.AccountKeyFor(email),
		Email:       email,
		AccessToken: "tok",
		ExpiresAt:   time.Now().Add(time.Hour),
	}
}

func TestSyncAccount_InsertsOnlyNewThreads(t *testing.T) {
	cred := linkedCredential("user-1", "me@x.com")
	creds := newMockCredRepo(cred)
	store := newFakeMessageStore()
	provider := &fakeProvider{threads: []*gmail.Thread{
		summaryThread("t1", "Hello"),
		summaryThread("t2", "World"),
		summaryThread("t3", "Again"),
	}}

	// t2 is already cached; the worker must not re-fetch or re-insert it.
	store.rows[store.key("user-1", emaildomain.BuildMessageID("me@x.com", "t2"))] = &emaildomain.Message{
		UserID:    "user-1",
		MessageID: emaildomain.BuildMessageID("me@x.com", "t2"),
	}

	engine := NewSyncUsecase(creds, store, &staticResolver{token: "tok"}, provider)
	count, err := engine.SyncAccount(context.Background(), "user-1", cred.AccountKey, 10)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if count != 2 {
		t.Errorf("inserted = %d, want 2", count)
	}
	if store.count() != 3 {
		t.Errorf("store rows = %d, want 3", store.count())
	}

	// Second pass over the same remote state inserts nothing.
	count, err = engine.SyncAccount(context.Background(), "user-1", cred.AccountKey, 10)
	if err != nil {
		t.Fatalf("resync: %v", err)
	}
	if count != 0 {
		t.Errorf("resync inserted = %d, want 0", count)
	}
}

func TestSyncAccount_HonorsMaxThreads(t *testing.T) {
	cred := linkedCredential("user-1", "me@x.com")
	provider := &fakeProvider{threads: []*gmail.Thread{
		summaryThread("t1", "One"),
		summaryThread("t2", "Two"),
		summaryThread("t3", "Three"),
	}}
	store := newFakeMessageStore()

	engine := NewSyncUsecase(newMockCredRepo(cred), store, &staticResolver{token: "tok"}, provider)
	count, err := engine.SyncAccount(context.Background(), "user-1", cred.AccountKey, 2)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if count != 2 {
		t.Errorf("inserted = %d, want 2 with maxThreads=2", count)
	}
}

func TestSyncAccount_SkipsFailedCandidates(t *testing.T) {
	cred := linkedCredential("user-1", "me@x.com")
	provider := &fakeProvider{
		threads: []*gmail.Thread{
			summaryThread("t1", "One"),
			summaryThread("t2", "Two"),
			summaryThread("t3", "Three"),
		},
		failGet: map[string]bool{"t2": true},
	}
	store := newFakeMessageStore()

	engine := NewSyncUsecase(newMockCredRepo(cred), store, &staticResolver{token: "tok"}, provider)
	count, err := engine.SyncAccount(context.Background(), "user-1", cred.AccountKey, 10)
	if err != nil {
		t.Fatalf("one bad candidate must not fail the batch: %v", err)
	}
	if count != 2 {
		t.Errorf("inserted = %d, want 2", count)
	}
}

func TestSyncAccount_StoreFailureAborts(t *testing.T) {
	cred := linkedCredential("user-1", "me@x.com")
	provider := &fakeProvider{threads: []*gmail.Thread{summaryThread("t1", "One")}}
	store := newFakeMessageStore()
	store.insertErr = errors.New("store down")

	engine := NewSyncUsecase(newMockCredRepo(cred), store, &staticResolver{token: "tok"}, provider)
	_, err := engine.SyncAccount(context.Background(), "user-1", cred.AccountKey, 10)
	if err == nil {
		t.Fatal("want error when the store rejects the insert")
	}
}

func TestSyncAccount_UnlinkedAccount(t *testing.T) {
	engine := NewSyncUsecase(newMockCredRepo(), newFakeMessageStore(), &staticResolver{token: "tok"}, &fakeProvider{})
	_, err := engine.SyncAccount(context.Background(), "user-1", accountdomain.AccountKeyFor("ghost@x.com"), 10)
	if !errors.Is(err, ErrAccountNotLinked) {
		t.Fatalf("err = %v, want ErrAccountNotLinked", err)
	}
}

func TestSyncAccount_InvalidCredentialPropagates(t *testing.T) {
	cred := linkedCredential("user-1", "me@x.com")
	resolver := &staticResolver{failFor: map[string]error{
		cred.AccountKey: fmt.Errorf("%w: revoked", ErrCredentialInvalid),
	}}

	engine := NewSyncUsecase(newMockCredRepo(cred), newFakeMessageStore(), resolver, &fakeProvider{})
	_, err := engine.SyncAccount(context.Background(), "user-1", cred.AccountKey, 10)
	if !errors.Is(err, ErrCredentialInvalid) {
		t.Fatalf("err = %v, want ErrCredentialInvalid", err)
	}
}

func TestSyncAccount_CancelledContextReturnsPartialCount(t *testing.T) {
	cred := linkedCredential("user-1", "me@x.com")
	provider := &fakeProvider{threads: []*gmail.Thread{summaryThread("t1", "One")}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := NewSyncUsecase(newMockCredRepo(cred), newFakeMessageStore(), &staticResolver{token: "tok"}, provider)
	count, err := engine.SyncAccount(ctx, "user-1", cred.AccountKey, 10)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if count != 0 {
		t.Errorf("count = %d", count)
	}
}

func TestSyncAllForUser_IsolatesAccountFailures(t *testing.T) {
	good := linkedCredential("user-1", "good@x.com")
	bad := linkedCredential("user-1", "bad@x.com")
	creds := newMockCredRepo(good, bad)

	provider := &fakeProvider{threads: []*gmail.Thread{
		summaryThread("t1", "One"),
		summaryThread("t2", "Two"),
	}}
	resolver := &staticResolver{
		token:   "tok",
		failFor: map[string]error{bad.AccountKey: fmt.Errorf("%w: revoked", ErrCredentialInvalid)},
	}
	store := newFakeMessageStore()

	engine := NewSyncUsecase(creds, store, resolver, provider)
	total, err := engine.SyncAllForUser(context.Background(), "user-1", 10)
	if err != nil {
		t.Fatalf("sync all: %v", err)
	}
	if total != 2 {
		t.Errorf("total = %d, want 2 from the healthy account", total)
	}
}
