package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courier-wallet/internal/adapter/storage/memory"
	"courier-wallet/internal/core/domain"
	"courier-wallet/pkg/apperror"
)

const (
	testMinRecharge = 10000
	testMinBalance  = 1000
)

func newValidator(t *testing.T) (*TransactionValidator, *memory.LedgerStore) {
	t.Helper()
	store := memory.NewLedgerStore()
	return NewTransactionValidator(store, NewBalanceEngine(), testMinRecharge, testMinBalance), store
}

func seed(t *testing.T, store *memory.LedgerStore, kind domain.EntryKind, amount int64, refID string) {
	t.Helper()
	e := &domain.LedgerEntry{AccountID: "ACC-1", Kind: kind, Amount: amount}
	if refID != "" {
		e.ReferenceID = &refID
	}
	_, err := store.Append(context.Background(), e)
	require.NoError(t, err)
}

func TestValidateRecharge(t *testing.T) {
	v, _ := newValidator(t)

	assert.NoError(t, v.ValidateRecharge(testMinRecharge))
	assert.NoError(t, v.ValidateRecharge(testMinRecharge+1))
	assert.Equal(t, "WAL_002", apperror.Code(v.ValidateRecharge(testMinRecharge-1)))
	assert.Equal(t, "WAL_001", apperror.Code(v.ValidateRecharge(0)))
	assert.Equal(t, "WAL_001", apperror.Code(v.ValidateRecharge(-50)))
}

func TestValidateDeduction_InvalidAmount(t *testing.T) {
	v, _ := newValidator(t)
	ctx := context.Background()

	assert.Equal(t, "WAL_001", apperror.Code(v.ValidateDeduction(ctx, "ACC-1", 0)))
	assert.Equal(t, "WAL_001", apperror.Code(v.ValidateDeduction(ctx, "ACC-1", -100)))
}

func TestValidateDeduction_InsufficientBalance(t *testing.T) {
	v, store := newValidator(t)
	ctx := context.Background()

	seed(t, store, domain.EntryKindCredit, 500, "")

	err := v.ValidateDeduction(ctx, "ACC-1", 600)
	assert.Equal(t, "WAL_003", apperror.Code(err))
}

func TestValidateDeduction_MinimumBalanceFloor(t *testing.T) {
	v, store := newValidator(t)
	ctx := context.Background()

	// Available balance 1500 with floor 1000: 600 would land at 900.
	seed(t, store, domain.EntryKindCredit, 1500, "")

	err := v.ValidateDeduction(ctx, "ACC-1", 600)
	assert.Equal(t, "WAL_004", apperror.Code(err))

	// 500 lands exactly on the floor and passes.
	assert.NoError(t, v.ValidateDeduction(ctx, "ACC-1", 500))
}

func TestValidateDeduction_ChecksAvailableNotTotal(t *testing.T) {
	v, store := newValidator(t)
	ctx := context.Background()

	seed(t, store, domain.EntryKindCredit, 5000, "")
	seed(t, store, domain.EntryKindHold, 3500, "HOLD-REF")

	// Total 5000 but available only 1500; 600 breaks the floor.
	err := v.ValidateDeduction(ctx, "ACC-1", 600)
	assert.Equal(t, "WAL_004", apperror.Code(err))
}

func TestValidateRefund_CapIsNetDebited(t *testing.T) {
	v, store := newValidator(t)
	ctx := context.Background()

	seed(t, store, domain.EntryKindDebit, 1000, "SHP-1")

	assert.Equal(t, "WAL_005", apperror.Code(v.ValidateRefund(ctx, "ACC-1", "SHP-1", 1001)))
	assert.NoError(t, v.ValidateRefund(ctx, "ACC-1", "SHP-1", 1000))

	// After a full refund the cap is exhausted.
	seed(t, store, domain.EntryKindRefund, 1000, "SHP-1")
	assert.Equal(t, "WAL_005", apperror.Code(v.ValidateRefund(ctx, "ACC-1", "SHP-1", 1)))
}

func TestValidateRefund_UnknownReference(t *testing.T) {
	v, _ := newValidator(t)

	err := v.ValidateRefund(context.Background(), "ACC-1", "SHP-404", 100)
	assert.Equal(t, "WAL_005", apperror.Code(err), "nothing debited means nothing refundable")
}

func TestValidateRefund_InvalidAmount(t *testing.T) {
	v, _ := newValidator(t)

	assert.Equal(t, "WAL_001", apperror.Code(v.ValidateRefund(context.Background(), "ACC-1", "SHP-1", 0)))
}
