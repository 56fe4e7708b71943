package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"courier-wallet/pkg/apperror"
)

var errMissingAccount = errors.New("ledger entry missing account id")

func errUnknownKind(k EntryKind) error {
	return fmt.Errorf("unknown entry kind %q", k)
}

// EntryKind represents the kind of ledger fact.
type EntryKind string

const (
	EntryKindCredit     EntryKind = "CREDIT"
	EntryKindDebit      EntryKind = "DEBIT"
	EntryKindRefund     EntryKind = "REFUND"
	EntryKindHold       EntryKind = "HOLD"
	EntryKindRelease    EntryKind = "RELEASE"
	EntryKindAdjustment EntryKind = "ADJUSTMENT"
)

// IsValid reports whether k is a member of the closed kind set.
func (k EntryKind) IsValid() bool {
	switch k {
	case EntryKindCredit, EntryKindDebit, EntryKindRefund,
		EntryKindHold, EntryKindRelease, EntryKindAdjustment:
		return true
	}
	return false
}

// ReferenceKind classifies what an entry's reference points at.
type ReferenceKind string

const (
	ReferenceKindPayment  ReferenceKind = "PAYMENT"
	ReferenceKindShipment ReferenceKind = "SHIPMENT"
	ReferenceKindRefund   ReferenceKind = "REFUND"
)

// AdjustmentDirection is the typed sign of an adjustment entry. It is carried
// in the metadata bag for storage compatibility but parsed strictly: an
// adjustment without a valid direction is rejected, never defaulted.
type AdjustmentDirection string

const (
	AdjustmentCredit AdjustmentDirection = "CREDIT"
	AdjustmentDebit  AdjustmentDirection = "DEBIT"
)

// MetadataDirectionKey is the metadata key holding an adjustment's direction.
const MetadataDirectionKey = "direction"

// LedgerEntry is one immutable fact about money moving into, out of, or
// being reserved against an account. Entries are append-only: corrections
// are made by appending a counteracting entry, never by editing history.
type LedgerEntry struct {
	ID             uuid.UUID         `json:"id"`
	AccountID      string            `json:"account_id"`
	Kind           EntryKind         `json:"kind"`
	Amount         int64             `json:"amount"` // Minor units (paise), always >= 0
	Description    string            `json:"description"`
	ReferenceID    *string           `json:"reference_id,omitempty"`
	ReferenceKind  *ReferenceKind    `json:"reference_kind,omitempty"`
	IdempotencyKey *string           `json:"idempotency_key,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	Sequence       uint64            `json:"sequence"` // Monotonic per account, store-assigned
	CreatedAt      time.Time         `json:"created_at"`
}

// AdjustmentDirectionOf parses the entry's adjustment direction from
// metadata. The second return is false when the direction is missing or
// garbled.
func (e *LedgerEntry) AdjustmentDirectionOf() (AdjustmentDirection, bool) {
	if e.Metadata == nil {
		return "", false
	}
	switch AdjustmentDirection(e.Metadata[MetadataDirectionKey]) {
	case AdjustmentCredit:
		return AdjustmentCredit, true
	case AdjustmentDebit:
		return AdjustmentDebit, true
	}
	return "", false
}

// SignedAmount returns the entry's effect on the total balance. Credits and
// refunds add, debits subtract. Holds and releases are reservations: they
// move the available balance, never the total, so both fold as zero here.
// A malformed adjustment is a data error, not a silent default.
func (e *LedgerEntry) SignedAmount() (int64, error) {
	switch e.Kind {
	case EntryKindCredit, EntryKindRefund:
		return e.Amount, nil
	case EntryKindDebit:
		return -e.Amount, nil
	case EntryKindHold, EntryKindRelease:
		return 0, nil
	case EntryKindAdjustment:
		dir, ok := e.AdjustmentDirectionOf()
		if !ok {
			return 0, apperror.ErrMalformedAdjustment()
		}
		if dir == AdjustmentCredit {
			return e.Amount, nil
		}
		return -e.Amount, nil
	}
	return 0, apperror.InternalError(errUnknownKind(e.Kind))
}

// Validate enforces the structural invariants every entry must satisfy
// before it may be appended. Both store implementations call it.
func (e *LedgerEntry) Validate() error {
	if e.AccountID == "" {
		return apperror.InternalError(errMissingAccount)
	}
	if !e.Kind.IsValid() {
		return apperror.InternalError(errUnknownKind(e.Kind))
	}
	if e.Amount < 0 {
		return apperror.ErrInvalidAmount()
	}
	if e.Kind == EntryKindAdjustment {
		if _, ok := e.AdjustmentDirectionOf(); !ok {
			return apperror.ErrMalformedAdjustment()
		}
	}
	return nil
}

// BuildCacheKey constructs the idempotency fast-path cache key for an
// account-scoped idempotency key.
func BuildCacheKey(accountID, idempotencyKey string) string {
	return accountID + ":" + idempotencyKey
}
