package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"courier-wallet/internal/core/domain"
	"courier-wallet/internal/core/ports"
)

// LedgerStore is the in-process ports.LedgerStore: one append-only entry
// slice per account, guarded by a store-wide state mutex, with a dedicated
// per-account mutex serializing WithAccountLock callbacks (the single-writer
// discipline of the concurrency model).
//
// Appends issued inside a callback are applied immediately; WalletService
// appends at most once, as the final action of a callback, so an error
// returned earlier leaves no partial state behind.
type LedgerStore struct {
	mu      sync.RWMutex
	entries map[string][]domain.LedgerEntry // accountID -> entries in append order
	byKey   map[string]uuid.UUID            // accountID:idempotencyKey -> entry id
	seq     map[string]uint64

	locks sync.Map // accountID -> *sync.Mutex
}

// NewLedgerStore creates an empty in-memory ledger store.
func NewLedgerStore() *LedgerStore {
	return &LedgerStore{
		entries: make(map[string][]domain.LedgerEntry),
		byKey:   make(map[string]uuid.UUID),
		seq:     make(map[string]uint64),
	}
}

// Append persists an immutable entry, assigning id, sequence and timestamp.
// If the entry's idempotency key was already seen for the account, the
// previously stored entry is returned unchanged.
func (s *LedgerStore) Append(ctx context.Context, entry *domain.LedgerEntry) (*domain.LedgerEntry, error) {
	if err := entry.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.IdempotencyKey != nil {
		cacheKey := domain.BuildCacheKey(entry.AccountID, *entry.IdempotencyKey)
		if id, ok := s.byKey[cacheKey]; ok {
			if existing := s.findLocked(entry.AccountID, id); existing != nil {
				return existing, nil
			}
		}
	}

	stored := cloneEntry(entry)
	stored.ID = uuid.New()
	s.seq[entry.AccountID]++
	stored.Sequence = s.seq[entry.AccountID]
	stored.CreatedAt = time.Now().UTC()

	s.entries[entry.AccountID] = append(s.entries[entry.AccountID], stored)
	if stored.IdempotencyKey != nil {
		s.byKey[domain.BuildCacheKey(stored.AccountID, *stored.IdempotencyKey)] = stored.ID
	}

	out := cloneEntry(&stored)
	return &out, nil
}

// EntriesFor returns a copy of the account's entries in the requested order.
func (s *LedgerStore) EntriesFor(ctx context.Context, accountID string, order ports.SortOrder) ([]domain.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	src := s.entries[accountID]
	out := make([]domain.LedgerEntry, len(src))
	for i := range src {
		out[i] = cloneEntry(&src[i])
	}

	if order == ports.NewestFirst {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out, nil
}

// FindByReference returns the account's entries correlated to referenceID,
// oldest first.
func (s *LedgerStore) FindByReference(ctx context.Context, accountID, referenceID string) ([]domain.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.LedgerEntry
	for i := range s.entries[accountID] {
		e := &s.entries[accountID][i]
		if e.ReferenceID != nil && *e.ReferenceID == referenceID {
			out = append(out, cloneEntry(e))
		}
	}
	return out, nil
}

// FindByID returns the entry with the given id, or nil when absent.
func (s *LedgerStore) FindByID(ctx context.Context, accountID string, id uuid.UUID) (*domain.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findLocked(accountID, id), nil
}

// FindByIdempotencyKey returns the entry committed under the account-scoped
// idempotency key, or nil when the key is unseen.
func (s *LedgerStore) FindByIdempotencyKey(ctx context.Context, accountID, key string) (*domain.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id, ok := s.byKey[domain.BuildCacheKey(accountID, key)]; ok {
		return s.findLocked(accountID, id), nil
	}
	return nil, nil
}

// WithAccountLock serializes fn against every other mutation on the account.
func (s *LedgerStore) WithAccountLock(ctx context.Context, accountID string, fn func(ctx context.Context) error) error {
	lock, _ := s.locks.LoadOrStore(accountID, &sync.Mutex{})
	mu := lock.(*sync.Mutex)
	mu.Lock()
	defer mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}

func (s *LedgerStore) findLocked(accountID string, id uuid.UUID) *domain.LedgerEntry {
	for i := range s.entries[accountID] {
		if s.entries[accountID][i].ID == id {
			out := cloneEntry(&s.entries[accountID][i])
			return &out
		}
	}
	return nil
}

// cloneEntry deep-copies an entry so stored state never shares pointers or
// the metadata map with callers in either direction.
func cloneEntry(e *domain.LedgerEntry) domain.LedgerEntry {
	out := *e
	if e.ReferenceID != nil {
		v := *e.ReferenceID
		out.ReferenceID = &v
	}
	if e.ReferenceKind != nil {
		v := *e.ReferenceKind
		out.ReferenceKind = &v
	}
	if e.IdempotencyKey != nil {
		v := *e.IdempotencyKey
		out.IdempotencyKey = &v
	}
	if e.Metadata != nil {
		out.Metadata = make(map[string]string, len(e.Metadata))
		for k, v := range e.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}
