package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"courier-wallet/internal/adapter/storage/memory"
	"courier-wallet/internal/core/domain"
	"courier-wallet/internal/core/ports/mocks"
	"courier-wallet/pkg/apperror"
)

type rechargeTestDeps struct {
	svc      *RechargeService
	wallet   *WalletService
	gateway  *mocks.MockPaymentGateway
	receipts *mocks.MockReceiptService
	ctrl     *gomock.Controller
}

func setupRechargeService(t *testing.T) *rechargeTestDeps {
	t.Helper()
	ctrl := gomock.NewController(t)

	store := memory.NewLedgerStore()
	engine := NewBalanceEngine()
	validator := NewTransactionValidator(store, engine, testMinRecharge, testMinBalance)
	wallet := NewWalletService(store, nil, validator, engine, zerolog.Nop())

	d := &rechargeTestDeps{
		wallet:   wallet,
		gateway:  mocks.NewMockPaymentGateway(ctrl),
		receipts: mocks.NewMockReceiptService(ctrl),
		ctrl:     ctrl,
	}
	d.svc = NewRechargeService(d.gateway, wallet, d.receipts, zerolog.Nop())
	return d
}

func TestRecharge_Success(t *testing.T) {
	d := setupRechargeService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	customer := domain.Customer{Name: "Asha Rao", Email: "asha@example.com"}
	session := &domain.PaymentSession{
		ID:       uuid.New(),
		Amount:   50000,
		Method:   domain.PaymentMethodUPI,
		Customer: customer,
		Status:   domain.SessionStatusInitiated,
	}
	result := &domain.PaymentResult{
		Success:       true,
		TransactionID: "TXN-OK-1",
		Amount:        50000,
		Method:        domain.PaymentMethodUPI,
		Customer:      customer,
		Timestamp:     time.Now().UTC(),
	}
	receipt := &domain.Receipt{Number: "RCP-1", TransactionID: "TXN-OK-1"}

	d.gateway.EXPECT().Initiate(ctx, int64(50000), domain.PaymentMethodUPI, customer).Return(session, nil)
	d.gateway.EXPECT().Process(ctx, session).Return(result, nil)
	d.receipts.EXPECT().Generate(ctx, gomock.Any(), result).Return(receipt, nil)

	out, err := d.svc.Recharge(ctx, "ACC-1", 50000, domain.PaymentMethodUPI, customer)
	require.NoError(t, err)
	require.NotNil(t, out.Entry)
	assert.Equal(t, domain.EntryKindCredit, out.Entry.Kind)
	require.NotNil(t, out.Entry.IdempotencyKey)
	assert.Equal(t, "TXN-OK-1", *out.Entry.IdempotencyKey, "gateway transaction id keys the credit")
	assert.Equal(t, receipt, out.Receipt)

	summary, err := d.wallet.Balance(ctx, "ACC-1")
	require.NoError(t, err)
	assert.Equal(t, int64(50000), summary.Balance)
}

func TestRecharge_GatewayDeclineNeverTouchesLedger(t *testing.T) {
	d := setupRechargeService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	customer := domain.Customer{Name: "Asha Rao"}
	session := &domain.PaymentSession{ID: uuid.New(), Amount: 50000, Method: domain.PaymentMethodCard}

	d.gateway.EXPECT().Initiate(ctx, int64(50000), domain.PaymentMethodCard, customer).Return(session, nil)
	d.gateway.EXPECT().Process(ctx, session).Return(&domain.PaymentResult{
		Success: false,
		Error:   "card declined by issuer",
	}, nil)

	_, err := d.svc.Recharge(ctx, "ACC-1", 50000, domain.PaymentMethodCard, customer)
	assert.Equal(t, "PAY_001", apperror.Code(err))

	summary, err := d.wallet.Balance(ctx, "ACC-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), summary.Balance, "no entry is appended on decline")
}

func TestRecharge_InitiateError(t *testing.T) {
	d := setupRechargeService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	customer := domain.Customer{}

	d.gateway.EXPECT().Initiate(ctx, int64(-5), domain.PaymentMethodUPI, customer).
		Return(nil, apperror.ErrInvalidAmount())

	_, err := d.svc.Recharge(ctx, "ACC-1", -5, domain.PaymentMethodUPI, customer)
	assert.Equal(t, "WAL_001", apperror.Code(err))
}

func TestRecharge_ReceiptFailureIsNonFatal(t *testing.T) {
	d := setupRechargeService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	customer := domain.Customer{Name: "Asha Rao"}
	session := &domain.PaymentSession{ID: uuid.New(), Amount: 50000, Method: domain.PaymentMethodUPI}
	result := &domain.PaymentResult{
		Success:       true,
		TransactionID: "TXN-OK-2",
		Amount:        50000,
		Method:        domain.PaymentMethodUPI,
		Customer:      customer,
		Timestamp:     time.Now().UTC(),
	}

	d.gateway.EXPECT().Initiate(ctx, int64(50000), domain.PaymentMethodUPI, customer).Return(session, nil)
	d.gateway.EXPECT().Process(ctx, session).Return(result, nil)
	d.receipts.EXPECT().Generate(ctx, gomock.Any(), result).
		Return(nil, apperror.InternalError(assert.AnError))

	out, err := d.svc.Recharge(ctx, "ACC-1", 50000, domain.PaymentMethodUPI, customer)
	require.NoError(t, err, "funds are committed; the receipt can be re-issued later")
	assert.Nil(t, out.Receipt)

	summary, err := d.wallet.Balance(ctx, "ACC-1")
	require.NoError(t, err)
	assert.Equal(t, int64(50000), summary.Balance)
}

func TestRecharge_RetriedGatewayCallbackCreditsOnce(t *testing.T) {
	d := setupRechargeService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	customer := domain.Customer{Name: "Asha Rao"}
	session := &domain.PaymentSession{ID: uuid.New(), Amount: 50000, Method: domain.PaymentMethodUPI}
	result := &domain.PaymentResult{
		Success:       true,
		TransactionID: "TXN-SAME",
		Amount:        50000,
		Method:        domain.PaymentMethodUPI,
		Customer:      customer,
		Timestamp:     time.Now().UTC(),
	}

	d.gateway.EXPECT().Initiate(ctx, int64(50000), domain.PaymentMethodUPI, customer).Return(session, nil).Times(2)
	d.gateway.EXPECT().Process(ctx, session).Return(result, nil).Times(2)
	d.receipts.EXPECT().Generate(ctx, gomock.Any(), result).Return(&domain.Receipt{Number: "RCP-1"}, nil).Times(2)

	first, err := d.svc.Recharge(ctx, "ACC-1", 50000, domain.PaymentMethodUPI, customer)
	require.NoError(t, err)
	second, err := d.svc.Recharge(ctx, "ACC-1", 50000, domain.PaymentMethodUPI, customer)
	require.NoError(t, err)

	assert.Equal(t, first.Entry.ID, second.Entry.ID)

	summary, err := d.wallet.Balance(ctx, "ACC-1")
	require.NoError(t, err)
	assert.Equal(t, int64(50000), summary.Balance, "balance increases exactly once")
}
