package domain

import (
	"time"

	"github.com/google/uuid"
)

// PaymentMethod is the instrument used at the gateway.
type PaymentMethod string

const (
	PaymentMethodCard       PaymentMethod = "CARD"
	PaymentMethodUPI        PaymentMethod = "UPI"
	PaymentMethodNetBanking PaymentMethod = "NET_BANKING"
)

// SessionStatus is the lifecycle state of a gateway payment session.
type SessionStatus string

const (
	SessionStatusInitiated SessionStatus = "INITIATED"
	SessionStatusCompleted SessionStatus = "COMPLETED"
	SessionStatusFailed    SessionStatus = "FAILED"
)

// Customer identifies the paying customer on a recharge.
type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// PaymentSession is an in-flight payment at the gateway, created by Initiate
// and consumed exactly once by Process.
type PaymentSession struct {
	ID        uuid.UUID     `json:"id"`
	Amount    int64         `json:"amount"` // Minor units
	Method    PaymentMethod `json:"method"`
	Customer  Customer      `json:"customer"`
	Status    SessionStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
}

// PaymentResult is the gateway's verdict on a processed session. A successful
// result becomes the input to a Credit append; the ledger never calls the
// gateway itself.
type PaymentResult struct {
	Success       bool          `json:"success"`
	TransactionID string        `json:"transaction_id"` // Idempotency key for the Credit
	Amount        int64         `json:"amount"`
	Method        PaymentMethod `json:"method"`
	Customer      Customer      `json:"customer"`
	Timestamp     time.Time     `json:"timestamp"`
	Error         string        `json:"error,omitempty"`
}

// Receipt is the record emitted for a committed Credit entry. Amounts are
// minor units; rendering and currency formatting happen elsewhere.
type Receipt struct {
	Number        string        `json:"number"`
	EntryID       uuid.UUID     `json:"entry_id"`
	TransactionID string        `json:"transaction_id"`
	CustomerName  string        `json:"customer_name"`
	CustomerEmail string        `json:"customer_email"`
	Method        PaymentMethod `json:"method"`
	GrossAmount   int64         `json:"gross_amount"`
	TaxableAmount int64         `json:"taxable_amount"`
	TaxAmount     int64         `json:"tax_amount"`
	TaxPercent    int64         `json:"tax_percent"`
	IssuedAt      time.Time     `json:"issued_at"`
}
