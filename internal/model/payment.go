package model

import "time"

// Payment transaction statuses.  PENDING is the only non-terminal
// state; once a transaction reaches COMPLETED or FAILED no further
// transitions are accepted.
const (
	TxnPending   = "PENDING"
	TxnCompleted = "COMPLETED"
	TxnFailed    = "FAILED"
)

// PaymentTransaction is one outbound payment request to the mobile-money
// gateway.  The checkout reference is the gateway's idempotency key:
// every callback is matched against it, and a transaction is mutated
// exactly once on its terminal callback.
type PaymentTransaction struct {
	ID            uint64    // payment_transactions.id
	CheckoutRef   string    // payment_transactions.checkout_ref (unique)
	BookingID     uint64    // payment_transactions.booking_id
	AmountCents   uint32    // payment_transactions.amount_cents
	PaymentStatus string    // payment_transactions.payment_status
	ResultCode    *string   // payment_transactions.result_code (nullable)
	ResultDesc    *string   // payment_transactions.result_desc (nullable)
	ReceiptNumber *string   // payment_transactions.receipt_number (nullable)
	PayerPhone    *string   // payment_transactions.payer_phone (nullable)
	CreatedAt     time.Time // payment_transactions.created_at
	UpdatedAt     time.Time // payment_transactions.updated_at
}

// Terminal reports whether the transaction has already been reconciled.
func (t PaymentTransaction) Terminal() bool { return t.PaymentStatus != TxnPending }
