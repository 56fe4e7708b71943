package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courier-wallet/pkg/apperror"
)

func TestEntryKind_IsValid(t *testing.T) {
	for _, k := range []EntryKind{
		EntryKindCredit, EntryKindDebit, EntryKindRefund,
		EntryKindHold, EntryKindRelease, EntryKindAdjustment,
	} {
		assert.True(t, k.IsValid(), string(k))
	}
	assert.False(t, EntryKind("TRANSFER").IsValid())
	assert.False(t, EntryKind("").IsValid())
}

func TestSignedAmount_ByKind(t *testing.T) {
	cases := []struct {
		kind EntryKind
		want int64
	}{
		{EntryKindCredit, 500},
		{EntryKindRefund, 500},
		{EntryKindDebit, -500},
		{EntryKindHold, 0},
		{EntryKindRelease, 0},
	}
	for _, tc := range cases {
		e := &LedgerEntry{AccountID: "ACC-1", Kind: tc.kind, Amount: 500}
		got, err := e.SignedAmount()
		require.NoError(t, err, string(tc.kind))
		assert.Equal(t, tc.want, got, string(tc.kind))
	}
}

func TestSignedAmount_Adjustment(t *testing.T) {
	credit := &LedgerEntry{
		AccountID: "ACC-1",
		Kind:      EntryKindAdjustment,
		Amount:    250,
		Metadata:  map[string]string{MetadataDirectionKey: "CREDIT"},
	}
	got, err := credit.SignedAmount()
	require.NoError(t, err)
	assert.Equal(t, int64(250), got)

	debit := &LedgerEntry{
		AccountID: "ACC-1",
		Kind:      EntryKindAdjustment,
		Amount:    250,
		Metadata:  map[string]string{MetadataDirectionKey: "DEBIT"},
	}
	got, err = debit.SignedAmount()
	require.NoError(t, err)
	assert.Equal(t, int64(-250), got)
}

func TestSignedAmount_MalformedAdjustment(t *testing.T) {
	cases := map[string]map[string]string{
		"missing metadata":  nil,
		"missing direction": {"note": "manual correction"},
		"garbled direction": {MetadataDirectionKey: "debit?"},
	}
	for name, md := range cases {
		e := &LedgerEntry{AccountID: "ACC-1", Kind: EntryKindAdjustment, Amount: 100, Metadata: md}
		_, err := e.SignedAmount()
		require.Error(t, err, name)
		assert.Equal(t, "WAL_006", apperror.Code(err), name)
	}
}

func TestValidate(t *testing.T) {
	valid := &LedgerEntry{AccountID: "ACC-1", Kind: EntryKindCredit, Amount: 100}
	assert.NoError(t, valid.Validate())

	zero := &LedgerEntry{AccountID: "ACC-1", Kind: EntryKindRelease, Amount: 0}
	assert.NoError(t, zero.Validate(), "zero amount is legal for releases")

	negative := &LedgerEntry{AccountID: "ACC-1", Kind: EntryKindDebit, Amount: -1}
	assert.Equal(t, "WAL_001", apperror.Code(negative.Validate()))

	noAccount := &LedgerEntry{Kind: EntryKindCredit, Amount: 100}
	assert.Error(t, noAccount.Validate())

	badKind := &LedgerEntry{AccountID: "ACC-1", Kind: "TRANSFER", Amount: 100}
	assert.Error(t, badKind.Validate())

	badAdjustment := &LedgerEntry{AccountID: "ACC-1", Kind: EntryKindAdjustment, Amount: 100}
	assert.Equal(t, "WAL_006", apperror.Code(badAdjustment.Validate()),
		"adjustment without direction must be rejected at append time")
}

func TestBuildCacheKey(t *testing.T) {
	assert.Equal(t, "ACC-1:PAY-42", BuildCacheKey("ACC-1", "PAY-42"))
}
