package gateway

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"courier-wallet/internal/core/domain"
	"courier-wallet/pkg/apperror"
)

// MockGateway implements ports.PaymentGateway against no real processor.
// Sessions live in memory and are consumed exactly once. declineAbove > 0
// declines any session whose amount exceeds it, which gives deterministic
// failure paths for tests and demos.
type MockGateway struct {
	declineAbove int64
	log          zerolog.Logger

	mu       sync.Mutex
	sessions map[uuid.UUID]*domain.PaymentSession
}

// NewMockGateway creates a MockGateway.
func NewMockGateway(declineAbove int64, log zerolog.Logger) *MockGateway {
	return &MockGateway{
		declineAbove: declineAbove,
		log:          log,
		sessions:     make(map[uuid.UUID]*domain.PaymentSession),
	}
}

// Initiate opens a payment session for the given amount and instrument.
func (g *MockGateway) Initiate(ctx context.Context, amount int64, method domain.PaymentMethod, customer domain.Customer) (*domain.PaymentSession, error) {
	if amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	switch method {
	case domain.PaymentMethodCard, domain.PaymentMethodUPI, domain.PaymentMethodNetBanking:
	default:
		return nil, apperror.InternalError(fmt.Errorf("unsupported payment method %q", method))
	}

	session := &domain.PaymentSession{
		ID:        uuid.New(),
		Amount:    amount,
		Method:    method,
		Customer:  customer,
		Status:    domain.SessionStatusInitiated,
		CreatedAt: time.Now().UTC(),
	}

	g.mu.Lock()
	g.sessions[session.ID] = session
	g.mu.Unlock()

	g.log.Debug().
		Str("session_id", session.ID.String()).
		Int64("amount", amount).
		Str("method", string(method)).
		Msg("payment session initiated")

	out := *session
	return &out, nil
}

// Process settles a session and returns the gateway verdict. A session can
// be processed once; a second attempt fails.
func (g *MockGateway) Process(ctx context.Context, session *domain.PaymentSession) (*domain.PaymentResult, error) {
	if session == nil {
		return nil, apperror.InternalError(fmt.Errorf("nil payment session"))
	}

	g.mu.Lock()
	stored, ok := g.sessions[session.ID]
	if ok && stored.Status != domain.SessionStatusInitiated {
		ok = false
	}
	if !ok {
		g.mu.Unlock()
		return nil, apperror.ErrNotFound("payment session")
	}

	now := time.Now().UTC()
	result := &domain.PaymentResult{
		Amount:    stored.Amount,
		Method:    stored.Method,
		Customer:  stored.Customer,
		Timestamp: now,
	}

	if g.declineAbove > 0 && stored.Amount > g.declineAbove {
		stored.Status = domain.SessionStatusFailed
		result.Success = false
		result.Error = "amount exceeds issuer limit"
	} else {
		stored.Status = domain.SessionStatusCompleted
		result.Success = true
		result.TransactionID = transactionID(stored.ID)
	}
	g.mu.Unlock()

	if result.Success {
		g.log.Debug().
			Str("session_id", session.ID.String()).
			Str("transaction_id", result.TransactionID).
			Msg("payment processed")
	} else {
		g.log.Debug().
			Str("session_id", session.ID.String()).
			Str("reason", result.Error).
			Msg("payment declined")
	}

	return result, nil
}

func transactionID(sessionID uuid.UUID) string {
	return "TXN-" + strings.ToUpper(strings.ReplaceAll(sessionID.String(), "-", ""))[:16]
}
