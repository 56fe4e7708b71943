package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"courier-wallet/internal/core/domain"
	"courier-wallet/internal/core/ports"
	"courier-wallet/pkg/apperror"
)

const entryCacheTTL = 24 * time.Hour

// BalanceSummary is the derived state of an account at a point in time.
type BalanceSummary struct {
	Balance   int64 `json:"balance"`
	Held      int64 `json:"held"`
	Available int64 `json:"available"`
}

// WalletService orchestrates the wallet ledger: every public operation runs
// validate -> append -> return entry inside the store's account lock, and
// this service is the only component allowed to call LedgerStore.Append.
type WalletService struct {
	store     ports.LedgerStore
	cache     ports.EntryCache // optional fast path, may be nil
	validator *TransactionValidator
	engine    *BalanceEngine
	log       zerolog.Logger
}

// NewWalletService creates a WalletService. cache may be nil to disable the
// idempotency fast path.
func NewWalletService(
	store ports.LedgerStore,
	cache ports.EntryCache,
	validator *TransactionValidator,
	engine *BalanceEngine,
	log zerolog.Logger,
) *WalletService {
	return &WalletService{
		store:     store,
		cache:     cache,
		validator: validator,
		engine:    engine,
		log:       log,
	}
}

// AddFunds appends a Credit keyed by the payment reference, so a retried
// payment callback returns the original entry instead of double-crediting.
func (s *WalletService) AddFunds(ctx context.Context, accountID string, amount int64, paymentReference, description string) (*domain.LedgerEntry, error) {
	if err := s.validator.ValidateRecharge(amount); err != nil {
		return nil, err
	}
	if paymentReference == "" {
		return nil, apperror.ErrMissingReference()
	}

	if cached := s.cacheGet(ctx, accountID, paymentReference); cached != nil {
		return cached, nil
	}

	refKind := domain.ReferenceKindPayment
	entry := &domain.LedgerEntry{
		AccountID:      accountID,
		Kind:           domain.EntryKindCredit,
		Amount:         amount,
		Description:    description,
		ReferenceID:    &paymentReference,
		ReferenceKind:  &refKind,
		IdempotencyKey: &paymentReference,
	}

	committed, err := s.appendLocked(ctx, accountID, func(ctx context.Context) error { return nil }, entry)
	if err != nil {
		return nil, err
	}

	s.cacheSet(ctx, accountID, paymentReference, committed)
	s.log.Info().
		Str("entry_id", committed.ID.String()).
		Str("account_id", accountID).
		Int64("amount", amount).
		Str("payment_reference", paymentReference).
		Msg("funds added")
	return committed, nil
}

// DeductFunds appends a Debit for a shipment charge after the deduction
// rules pass against the current available balance.
func (s *WalletService) DeductFunds(ctx context.Context, accountID string, amount int64, shipmentReference, description string) (*domain.LedgerEntry, error) {
	idemKey := "debit_" + shipmentReference
	refKind := domain.ReferenceKindShipment
	entry := &domain.LedgerEntry{
		AccountID:      accountID,
		Kind:           domain.EntryKindDebit,
		Amount:         amount,
		Description:    description,
		ReferenceID:    &shipmentReference,
		ReferenceKind:  &refKind,
		IdempotencyKey: &idemKey,
	}

	committed, err := s.appendLocked(ctx, accountID, func(ctx context.Context) error {
		return s.validator.ValidateDeduction(ctx, accountID, amount)
	}, entry)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("entry_id", committed.ID.String()).
		Str("account_id", accountID).
		Int64("amount", amount).
		Str("shipment_reference", shipmentReference).
		Msg("funds deducted")
	return committed, nil
}

// HoldFunds reserves funds against a reference: available balance drops by
// amount, total balance is untouched until the hold converts or releases.
// Validation is identical to a deduction.
func (s *WalletService) HoldFunds(ctx context.Context, accountID string, amount int64, referenceID, description string) (*domain.LedgerEntry, error) {
	idemKey := "hold_" + referenceID
	refKind := domain.ReferenceKindShipment
	entry := &domain.LedgerEntry{
		AccountID:      accountID,
		Kind:           domain.EntryKindHold,
		Amount:         amount,
		Description:    description,
		ReferenceID:    &referenceID,
		ReferenceKind:  &refKind,
		IdempotencyKey: &idemKey,
	}

	committed, err := s.appendLocked(ctx, accountID, func(ctx context.Context) error {
		return s.validator.ValidateDeduction(ctx, accountID, amount)
	}, entry)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("entry_id", committed.ID.String()).
		Str("account_id", accountID).
		Int64("amount", amount).
		Str("reference_id", referenceID).
		Msg("funds held")
	return committed, nil
}

// ReleaseFunds frees a hold by appending a zero-amount Release referencing
// the hold entry. The hold must exist for the account and not already be
// released; the release is idempotency-keyed on the hold id, so a given hold
// is matched by at most one Release.
func (s *WalletService) ReleaseFunds(ctx context.Context, accountID string, holdEntryID uuid.UUID, description string) (*domain.LedgerEntry, error) {
	holdRef := holdEntryID.String()
	idemKey := "release_" + holdRef
	entry := &domain.LedgerEntry{
		AccountID:      accountID,
		Kind:           domain.EntryKindRelease,
		Amount:         0,
		Description:    description,
		ReferenceID:    &holdRef,
		IdempotencyKey: &idemKey,
	}

	committed, err := s.appendLocked(ctx, accountID, func(ctx context.Context) error {
		hold, err := s.store.FindByID(ctx, accountID, holdEntryID)
		if err != nil {
			return apperror.ErrStorage(fmt.Errorf("find hold %s: %w", holdEntryID, err))
		}
		if hold == nil || hold.Kind != domain.EntryKindHold {
			return apperror.ErrHoldNotFound()
		}

		matched, err := s.store.FindByReference(ctx, accountID, holdRef)
		if err != nil {
			return apperror.ErrStorage(fmt.Errorf("find releases for hold %s: %w", holdEntryID, err))
		}
		if s.engine.ReleaseFor(matched, holdEntryID) {
			return apperror.ErrHoldAlreadyReleased()
		}
		return nil
	}, entry)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("entry_id", committed.ID.String()).
		Str("account_id", accountID).
		Str("hold_entry_id", holdRef).
		Msg("hold released")
	return committed, nil
}

// ProcessRefund credits back part of what was debited for a reference. The
// refund cap is the net debited amount: debits minus refunds already issued.
func (s *WalletService) ProcessRefund(ctx context.Context, accountID string, amount int64, shipmentReference, description string) (*domain.LedgerEntry, error) {
	refKind := domain.ReferenceKindRefund
	entry := &domain.LedgerEntry{
		AccountID:     accountID,
		Kind:          domain.EntryKindRefund,
		Amount:        amount,
		Description:   description,
		ReferenceID:   &shipmentReference,
		ReferenceKind: &refKind,
	}

	committed, err := s.appendLocked(ctx, accountID, func(ctx context.Context) error {
		return s.validator.ValidateRefund(ctx, accountID, shipmentReference, amount)
	}, entry)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("entry_id", committed.ID.String()).
		Str("account_id", accountID).
		Int64("amount", amount).
		Str("shipment_reference", shipmentReference).
		Msg("refund processed")
	return committed, nil
}

// Adjust appends a manual correction with a typed direction. A direction
// outside the closed set is rejected before the store is touched.
func (s *WalletService) Adjust(ctx context.Context, accountID string, amount int64, direction domain.AdjustmentDirection, description string) (*domain.LedgerEntry, error) {
	if amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	if direction != domain.AdjustmentCredit && direction != domain.AdjustmentDebit {
		return nil, apperror.ErrMalformedAdjustment()
	}

	entry := &domain.LedgerEntry{
		AccountID:   accountID,
		Kind:        domain.EntryKindAdjustment,
		Amount:      amount,
		Description: description,
		Metadata:    map[string]string{domain.MetadataDirectionKey: string(direction)},
	}

	committed, err := s.appendLocked(ctx, accountID, func(ctx context.Context) error { return nil }, entry)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("entry_id", committed.ID.String()).
		Str("account_id", accountID).
		Int64("amount", amount).
		Str("direction", string(direction)).
		Msg("adjustment applied")
	return committed, nil
}

// Balance derives the account's current totals from its entry sequence.
func (s *WalletService) Balance(ctx context.Context, accountID string) (*BalanceSummary, error) {
	entries, err := s.store.EntriesFor(ctx, accountID, ports.OldestFirst)
	if err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("load entries for %s: %w", accountID, err))
	}

	balance, err := s.engine.ComputeBalance(entries)
	if err != nil {
		return nil, err
	}
	held := s.engine.ComputeHeldAmount(entries)

	return &BalanceSummary{
		Balance:   balance,
		Held:      held,
		Available: balance - held,
	}, nil
}

// Entries returns the account's ledger newest-first, for display.
func (s *WalletService) Entries(ctx context.Context, accountID string) ([]domain.LedgerEntry, error) {
	entries, err := s.store.EntriesFor(ctx, accountID, ports.NewestFirst)
	if err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("load entries for %s: %w", accountID, err))
	}
	return entries, nil
}

// Statement returns the oldest-first running-balance projection for
// statements and audit views.
func (s *WalletService) Statement(ctx context.Context, accountID string) ([]ProjectedEntry, error) {
	entries, err := s.store.EntriesFor(ctx, accountID, ports.OldestFirst)
	if err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("load entries for %s: %w", accountID, err))
	}
	return s.engine.RunningBalanceProjection(entries)
}

// Entry exposes a committed entry by id, for receipt generation and
// reconciliation consumers.
func (s *WalletService) Entry(ctx context.Context, accountID string, id uuid.UUID) (*domain.LedgerEntry, error) {
	entry, err := s.store.FindByID(ctx, accountID, id)
	if err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("find entry %s: %w", id, err))
	}
	if entry == nil {
		return nil, apperror.ErrNotFound("ledger entry")
	}
	return entry, nil
}

// appendLocked runs validate and append as one serialized sequence on the
// account. The append is the final action, so a validation failure or an
// abandoned context leaves the ledger untouched.
//
// A previously committed idempotency key resolves before any business
// validation runs: the first submission already changed the state the
// validator checks (drained the available balance, matched the hold), so a
// retry must return the committed entry, never a rule failure.
func (s *WalletService) appendLocked(ctx context.Context, accountID string, validate func(ctx context.Context) error, entry *domain.LedgerEntry) (*domain.LedgerEntry, error) {
	var committed *domain.LedgerEntry
	err := s.store.WithAccountLock(ctx, accountID, func(ctx context.Context) error {
		if entry.IdempotencyKey != nil {
			existing, err := s.store.FindByIdempotencyKey(ctx, accountID, *entry.IdempotencyKey)
			if err != nil {
				return apperror.ErrStorage(fmt.Errorf("resolve idempotency key: %w", err))
			}
			if existing != nil {
				committed = existing
				return nil
			}
		}
		if err := validate(ctx); err != nil {
			return err
		}
		stored, err := s.store.Append(ctx, entry)
		if err != nil {
			return err
		}
		committed = stored
		return nil
	})
	if err != nil {
		return nil, err
	}
	return committed, nil
}

func (s *WalletService) cacheGet(ctx context.Context, accountID, idemKey string) *domain.LedgerEntry {
	if s.cache == nil {
		return nil
	}
	cacheKey := domain.BuildCacheKey(accountID, idemKey)
	data, err := s.cache.Get(ctx, cacheKey)
	if err != nil {
		s.log.Warn().Err(err).Str("key", cacheKey).Msg("entry cache read failed, falling through to store")
		return nil
	}
	if data == nil {
		return nil
	}
	entry := &domain.LedgerEntry{}
	if err := json.Unmarshal(data, entry); err != nil {
		s.log.Warn().Err(err).Str("key", cacheKey).Msg("discarding unreadable cached entry")
		return nil
	}
	return entry
}

func (s *WalletService) cacheSet(ctx context.Context, accountID, idemKey string, entry *domain.LedgerEntry) {
	if s.cache == nil {
		return
	}
	cacheKey := domain.BuildCacheKey(accountID, idemKey)
	data, err := json.Marshal(entry)
	if err != nil {
		s.log.Warn().Err(err).Str("key", cacheKey).Msg("failed to marshal entry for cache")
		return
	}
	if err := s.cache.Set(ctx, cacheKey, data, entryCacheTTL); err != nil {
		s.log.Warn().Err(err).Str("key", cacheKey).Msg("failed to cache committed entry")
	}
}
