package service

import (
	"context"
	"fmt"

	"courier-wallet/internal/core/ports"
	"courier-wallet/pkg/apperror"
)

// TransactionValidator evaluates the business rules that gate spending.
// Checks are read-only pre-conditions; WalletService re-evaluates them
// inside the store's account lock so no stale read can authorize an append.
type TransactionValidator struct {
	store              ports.LedgerStore
	engine             *BalanceEngine
	minRechargeAmount  int64
	minBalanceRequired int64
}

// NewTransactionValidator creates a TransactionValidator with the configured
// thresholds (minor units).
func NewTransactionValidator(store ports.LedgerStore, engine *BalanceEngine, minRecharge, minBalance int64) *TransactionValidator {
	return &TransactionValidator{
		store:              store,
		engine:             engine,
		minRechargeAmount:  minRecharge,
		minBalanceRequired: minBalance,
	}
}

// ValidateRecharge checks the minimum top-up rule.
func (v *TransactionValidator) ValidateRecharge(amount int64) error {
	if amount <= 0 {
		return apperror.ErrInvalidAmount()
	}
	if amount < v.minRechargeAmount {
		return apperror.ErrAmountTooLow(v.minRechargeAmount)
	}
	return nil
}

// ValidateDeduction checks a prospective Debit or Hold against the current
// available balance and the minimum-balance floor. A result that lands
// exactly on the floor passes.
func (v *TransactionValidator) ValidateDeduction(ctx context.Context, accountID string, amount int64) error {
	if amount <= 0 {
		return apperror.ErrInvalidAmount()
	}

	entries, err := v.store.EntriesFor(ctx, accountID, ports.OldestFirst)
	if err != nil {
		return apperror.ErrStorage(fmt.Errorf("load entries for %s: %w", accountID, err))
	}

	available, err := v.engine.ComputeAvailableBalance(entries)
	if err != nil {
		return err
	}

	if available < amount {
		return apperror.ErrInsufficientBalance()
	}
	if available-amount < v.minBalanceRequired {
		return apperror.ErrMinimumBalanceViolation(v.minBalanceRequired)
	}
	return nil
}

// ValidateRefund checks that a refund does not exceed the net amount ever
// debited for the reference (debits minus refunds already issued).
func (v *TransactionValidator) ValidateRefund(ctx context.Context, accountID, referenceID string, amount int64) error {
	if amount <= 0 {
		return apperror.ErrInvalidAmount()
	}

	history, err := v.store.FindByReference(ctx, accountID, referenceID)
	if err != nil {
		return apperror.ErrStorage(fmt.Errorf("load reference history for %s: %w", referenceID, err))
	}

	if amount > v.engine.NetDebited(history) {
		return apperror.ErrRefundExceedsDebited()
	}
	return nil
}
