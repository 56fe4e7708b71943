package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"courier-wallet/internal/core/domain"
	"courier-wallet/pkg/apperror"
)

// ReceiptServiceImpl implements ports.ReceiptService. It splits a committed
// Credit's gross amount into taxable base and GST using integer arithmetic
// only: base = gross*100/(100+rate), tax = gross - base, so base + tax
// always reconstructs the gross exactly.
type ReceiptServiceImpl struct {
	gstPercent int64
}

// NewReceiptService creates a ReceiptServiceImpl with the configured GST rate.
func NewReceiptService(gstPercent int64) *ReceiptServiceImpl {
	return &ReceiptServiceImpl{gstPercent: gstPercent}
}

// Generate builds the receipt record for a committed Credit entry and its
// originating payment result.
func (s *ReceiptServiceImpl) Generate(ctx context.Context, entry *domain.LedgerEntry, result *domain.PaymentResult) (*domain.Receipt, error) {
	if entry == nil || result == nil {
		return nil, apperror.InternalError(fmt.Errorf("receipt requires a committed entry and a payment result"))
	}
	if entry.Kind != domain.EntryKindCredit {
		return nil, apperror.InternalError(fmt.Errorf("receipts are only issued for credit entries, got %s", entry.Kind))
	}
	if !result.Success {
		return nil, apperror.InternalError(fmt.Errorf("cannot issue a receipt for a failed payment"))
	}

	base := entry.Amount * 100 / (100 + s.gstPercent)
	tax := entry.Amount - base

	return &domain.Receipt{
		Number:        receiptNumber(entry),
		EntryID:       entry.ID,
		TransactionID: result.TransactionID,
		CustomerName:  result.Customer.Name,
		CustomerEmail: result.Customer.Email,
		Method:        result.Method,
		GrossAmount:   entry.Amount,
		TaxableAmount: base,
		TaxAmount:     tax,
		TaxPercent:    s.gstPercent,
		IssuedAt:      time.Now().UTC(),
	}, nil
}

func receiptNumber(entry *domain.LedgerEntry) string {
	id := strings.ToUpper(strings.ReplaceAll(entry.ID.String(), "-", ""))
	if len(id) > 10 {
		id = id[:10]
	}
	return "RCP-" + id
}
