package service

import (
	"courier-wallet/internal/core/domain"

	"github.com/google/uuid"
)

// BalanceEngine computes balances by replaying an account's entry sequence.
// It is pure and stateless: the entries passed in are the only input, and
// all arithmetic stays on fixed-point int64 minor units.
//
// Every method expects entries in oldest-first order, as returned by
// LedgerStore.EntriesFor with OldestFirst.
type BalanceEngine struct{}

// NewBalanceEngine creates a BalanceEngine.
func NewBalanceEngine() *BalanceEngine {
	return &BalanceEngine{}
}

// ComputeBalance folds the entry sequence into the total balance. Credits
// and refunds add, debits subtract, adjustments follow their typed
// direction. Holds and releases fold as zero, they only move the available
// balance. A malformed adjustment is surfaced as a data error.
func (e *BalanceEngine) ComputeBalance(entries []domain.LedgerEntry) (int64, error) {
	var balance int64
	for i := range entries {
		signed, err := entries[i].SignedAmount()
		if err != nil {
			return 0, err
		}
		balance += signed
	}
	return balance, nil
}

// ComputeHeldAmount sums the holds that no Release entry has matched yet.
// A hold with no matching release remains held indefinitely.
func (e *BalanceEngine) ComputeHeldAmount(entries []domain.LedgerEntry) int64 {
	released := make(map[string]bool)
	for i := range entries {
		en := &entries[i]
		if en.Kind == domain.EntryKindRelease && en.ReferenceID != nil {
			released[*en.ReferenceID] = true
		}
	}

	var held int64
	for i := range entries {
		en := &entries[i]
		if en.Kind == domain.EntryKindHold && !released[en.ID.String()] {
			held += en.Amount
		}
	}
	return held
}

// ComputeAvailableBalance is the figure checked before allowing new
// spending: total balance minus the sum of unreleased holds.
func (e *BalanceEngine) ComputeAvailableBalance(entries []domain.LedgerEntry) (int64, error) {
	balance, err := e.ComputeBalance(entries)
	if err != nil {
		return 0, err
	}
	return balance - e.ComputeHeldAmount(entries), nil
}

// ProjectedEntry is a ledger entry annotated with the balance immediately
// after it was applied.
type ProjectedEntry struct {
	Entry        domain.LedgerEntry `json:"entry"`
	BalanceAfter int64              `json:"balance_after"`
}

// RunningBalanceProjection annotates each entry with the running balance
// after it. Used for statements and audit views, never for control
// decisions.
func (e *BalanceEngine) RunningBalanceProjection(entries []domain.LedgerEntry) ([]ProjectedEntry, error) {
	projection := make([]ProjectedEntry, 0, len(entries))
	var balance int64
	for i := range entries {
		signed, err := entries[i].SignedAmount()
		if err != nil {
			return nil, err
		}
		balance += signed
		projection = append(projection, ProjectedEntry{
			Entry:        entries[i],
			BalanceAfter: balance,
		})
	}
	return projection, nil
}

// NetDebited computes, for one external reference, total debits minus
// refunds already issued against it: the refund ceiling.
func (e *BalanceEngine) NetDebited(entries []domain.LedgerEntry) int64 {
	var net int64
	for i := range entries {
		switch entries[i].Kind {
		case domain.EntryKindDebit:
			net += entries[i].Amount
		case domain.EntryKindRefund:
			net -= entries[i].Amount
		}
	}
	return net
}

// ReleaseFor scans entries correlated to a hold id and reports whether a
// Release already matched it.
func (e *BalanceEngine) ReleaseFor(entries []domain.LedgerEntry, holdID uuid.UUID) bool {
	ref := holdID.String()
	for i := range entries {
		en := &entries[i]
		if en.Kind == domain.EntryKindRelease && en.ReferenceID != nil && *en.ReferenceID == ref {
			return true
		}
	}
	return false
}
