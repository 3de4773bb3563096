package payment

import "github.com/iliyamo/adventure-site-booking/internal/model"

// Outcome is the reconciler's decision for one callback against one
// transaction.  Only Complete and Fail mutate state; every other
// outcome is a silent accept-and-ignore so the gateway never sees an
// error.
type Outcome int

const (
	// OutcomeComplete finalizes the transaction and confirms the booking.
	OutcomeComplete Outcome = iota
	// OutcomeFail finalizes the transaction as failed, cancels the booking
	// and releases its held slots.
	OutcomeFail
	// OutcomeDuplicate means the transaction is already terminal: a gateway
	// redelivery. Ignored.
	OutcomeDuplicate
	// OutcomeAmountMismatch means a success callback delivered an amount
	// different from the issued one. Ignored and logged as a security
	// event; client-declared amounts are never trusted.
	OutcomeAmountMismatch
)

// String names the outcome for log lines.
func (o Outcome) String() string {
	switch o {
	case OutcomeComplete:
		return "complete"
	case OutcomeFail:
		return "fail"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeAmountMismatch:
		return "amount_mismatch"
	}
	return "unknown"
}

// Resolve decides what a callback does to the matched transaction.  It
// is the whole state machine for the payment leg:
//
//	PENDING --(gateway success, exact amount)--> COMPLETED
//	PENDING --(gateway failure)-->               FAILED
//
// Terminal states are final; a callback against a terminal transaction
// is a replay.  A success callback must deliver the transaction's
// amount exactly; a missing or differing amount is rejected.  Failure
// callbacks carry no amount and are accepted as-is.
func Resolve(txn model.PaymentTransaction, cb Callback) Outcome {
	if txn.Terminal() {
		return OutcomeDuplicate
	}
	if !cb.Succeeded() {
		return OutcomeFail
	}
	amount, ok := cb.AmountCents()
	if !ok || amount != txn.AmountCents {
		return OutcomeAmountMismatch
	}
	return OutcomeComplete
}
