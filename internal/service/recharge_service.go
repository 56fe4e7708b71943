package service

import (
	"context"

	"github.com/rs/zerolog"

	"courier-wallet/internal/core/domain"
	"courier-wallet/internal/core/ports"
	"courier-wallet/pkg/apperror"
)

// RechargeResult bundles the outcome of a gateway-backed recharge.
// Receipt may be nil when receipt generation failed after the funds were
// committed; the ledger entry is authoritative either way.
type RechargeResult struct {
	Entry   *domain.LedgerEntry   `json:"entry"`
	Payment *domain.PaymentResult `json:"payment"`
	Receipt *domain.Receipt       `json:"receipt,omitempty"`
}

// RechargeService drives the booking-flow top-up: gateway first, ledger
// second. The gateway produces a PaymentResult whose transaction id becomes
// the Credit's idempotency key, so the ledger itself never talks to the
// gateway and a replayed gateway callback cannot double-credit.
type RechargeService struct {
	gateway  ports.PaymentGateway
	wallet   *WalletService
	receipts ports.ReceiptService
	log      zerolog.Logger
}

// NewRechargeService creates a RechargeService.
func NewRechargeService(gateway ports.PaymentGateway, wallet *WalletService, receipts ports.ReceiptService, log zerolog.Logger) *RechargeService {
	return &RechargeService{
		gateway:  gateway,
		wallet:   wallet,
		receipts: receipts,
		log:      log,
	}
}

// Recharge runs initiate -> process -> AddFunds -> receipt. A gateway
// failure returns before the ledger is touched; a receipt failure after
// commit is logged and the committed entry still returned.
func (s *RechargeService) Recharge(ctx context.Context, accountID string, amount int64, method domain.PaymentMethod, customer domain.Customer) (*RechargeResult, error) {
	session, err := s.gateway.Initiate(ctx, amount, method, customer)
	if err != nil {
		return nil, err
	}

	result, err := s.gateway.Process(ctx, session)
	if err != nil {
		return nil, err
	}
	if !result.Success {
		s.log.Warn().
			Str("account_id", accountID).
			Str("session_id", session.ID.String()).
			Str("reason", result.Error).
			Msg("gateway declined recharge")
		return nil, apperror.ErrGatewayDeclined(result.Error)
	}

	entry, err := s.wallet.AddFunds(ctx, accountID, result.Amount, result.TransactionID, "wallet recharge via "+string(result.Method))
	if err != nil {
		return nil, err
	}

	out := &RechargeResult{Entry: entry, Payment: result}

	receipt, err := s.receipts.Generate(ctx, entry, result)
	if err != nil {
		// Funds are committed; the receipt can be re-issued from the entry.
		s.log.Warn().Err(err).
			Str("entry_id", entry.ID.String()).
			Msg("receipt generation failed after commit")
		return out, nil
	}
	out.Receipt = receipt

	s.log.Info().
		Str("account_id", accountID).
		Str("entry_id", entry.ID.String()).
		Str("receipt", receipt.Number).
		Int64("amount", result.Amount).
		Msg("recharge completed")
	return out, nil
}
