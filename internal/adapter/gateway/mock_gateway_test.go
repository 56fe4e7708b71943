package gateway

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courier-wallet/internal/core/domain"
	"courier-wallet/pkg/apperror"
)

func TestInitiateAndProcess_Success(t *testing.T) {
	g := NewMockGateway(0, zerolog.Nop())
	ctx := context.Background()
	customer := domain.Customer{Name: "Asha Rao", Email: "asha@example.com"}

	session, err := g.Initiate(ctx, 50000, domain.PaymentMethodUPI, customer)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusInitiated, session.Status)
	assert.Equal(t, int64(50000), session.Amount)
	assert.False(t, session.CreatedAt.IsZero())

	result, err := g.Process(ctx, session)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.True(t, strings.HasPrefix(result.TransactionID, "TXN-"))
	assert.Equal(t, int64(50000), result.Amount)
	assert.Equal(t, domain.PaymentMethodUPI, result.Method)
	assert.Equal(t, customer, result.Customer)
	assert.Empty(t, result.Error)
}

func TestInitiate_RejectsNonPositiveAmount(t *testing.T) {
	g := NewMockGateway(0, zerolog.Nop())

	for _, amount := range []int64{0, -100} {
		_, err := g.Initiate(context.Background(), amount, domain.PaymentMethodCard, domain.Customer{})
		assert.Equal(t, "WAL_001", apperror.Code(err))
	}
}

func TestInitiate_RejectsUnknownMethod(t *testing.T) {
	g := NewMockGateway(0, zerolog.Nop())

	_, err := g.Initiate(context.Background(), 100, domain.PaymentMethod("BARTER"), domain.Customer{})
	assert.Error(t, err)
}

func TestProcess_DeclineAboveThreshold(t *testing.T) {
	g := NewMockGateway(100000, zerolog.Nop())
	ctx := context.Background()

	session, err := g.Initiate(ctx, 100001, domain.PaymentMethodCard, domain.Customer{})
	require.NoError(t, err)

	result, err := g.Process(ctx, session)
	require.NoError(t, err, "a decline is a result, not an error")
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
	assert.Empty(t, result.TransactionID)
}

func TestProcess_AtThresholdSucceeds(t *testing.T) {
	g := NewMockGateway(100000, zerolog.Nop())
	ctx := context.Background()

	session, err := g.Initiate(ctx, 100000, domain.PaymentMethodCard, domain.Customer{})
	require.NoError(t, err)

	result, err := g.Process(ctx, session)
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestProcess_SessionConsumedOnce(t *testing.T) {
	g := NewMockGateway(0, zerolog.Nop())
	ctx := context.Background()

	session, err := g.Initiate(ctx, 50000, domain.PaymentMethodUPI, domain.Customer{})
	require.NoError(t, err)

	_, err = g.Process(ctx, session)
	require.NoError(t, err)

	_, err = g.Process(ctx, session)
	assert.Equal(t, "PAY_004", apperror.Code(err))
}

func TestProcess_UnknownSession(t *testing.T) {
	g := NewMockGateway(0, zerolog.Nop())

	_, err := g.Process(context.Background(), &domain.PaymentSession{})
	assert.Equal(t, "PAY_004", apperror.Code(err))

	_, err = g.Process(context.Background(), nil)
	assert.Error(t, err)
}
