package ports

import (
	"context"
	"time"

	"courier-wallet/internal/core/domain"
)

//go:generate mockgen -destination mocks/mock_services.go -package mocks courier-wallet/internal/core/ports PaymentGateway,ReceiptService,EntryCache

// PaymentGateway is the external card/UPI processor. It is always invoked
// strictly before the ledger is touched: a successful PaymentResult becomes
// the input to a Credit append, and the ledger never calls the gateway.
type PaymentGateway interface {
	Initiate(ctx context.Context, amount int64, method domain.PaymentMethod, customer domain.Customer) (*domain.PaymentSession, error)
	Process(ctx context.Context, session *domain.PaymentSession) (*domain.PaymentResult, error)
}

// ReceiptService consumes a committed Credit entry plus the originating
// PaymentResult and emits a Receipt record. It does not format currency or
// render documents.
type ReceiptService interface {
	Generate(ctx context.Context, entry *domain.LedgerEntry, result *domain.PaymentResult) (*domain.Receipt, error)
}

// EntryCache is the fast-path idempotency cache: committed entries keyed by
// account-scoped idempotency key. Best-effort only; the LedgerStore remains
// the single source of truth and the sole deduplication point.
type EntryCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // Returns cached entry JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
