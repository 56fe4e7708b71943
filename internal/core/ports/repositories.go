package ports

import (
	"context"

	"courier-wallet/internal/core/domain"

	"github.com/google/uuid"
)

// SortOrder selects the view of an account's entry sequence. Balance
// projection consumes OldestFirst; display consumes NewestFirst.
type SortOrder string

const (
	OldestFirst SortOrder = "ASC"
	NewestFirst SortOrder = "DESC"
)

// LedgerStore is the durable, append-only store of immutable ledger entries.
//
// Append is the sole mutating operation: if the entry carries an idempotency
// key already present for the account, the previously stored entry is
// returned unchanged (no new row, no error). The uniqueness check and the
// insert are atomic. FindByIdempotencyKey exposes the same lookup so a
// caller can resolve a retry before re-running business validation.
//
// WithAccountLock serializes a validate-then-append sequence against all
// other mutations on the same account. Every call that appends MUST run
// inside it; reads issued from within the callback observe the same
// consistent view the append will commit against. Returning a non-nil error
// from fn discards the whole sequence (all-or-nothing).
type LedgerStore interface {
	Append(ctx context.Context, entry *domain.LedgerEntry) (*domain.LedgerEntry, error)
	EntriesFor(ctx context.Context, accountID string, order SortOrder) ([]domain.LedgerEntry, error)
	FindByReference(ctx context.Context, accountID, referenceID string) ([]domain.LedgerEntry, error)
	FindByID(ctx context.Context, accountID string, id uuid.UUID) (*domain.LedgerEntry, error)
	FindByIdempotencyKey(ctx context.Context, accountID, key string) (*domain.LedgerEntry, error)
	WithAccountLock(ctx context.Context, accountID string, fn func(ctx context.Context) error) error
}
