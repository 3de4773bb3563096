package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/adventure-site-booking/internal/model"
)

// ErrTxnNotFound is returned when no payment transaction matches a
// checkout reference.  The payment handler treats it as a forged or
// foreign callback and acknowledges silently.
var ErrTxnNotFound = errors.New("payment transaction not found")

// PaymentRepo persists outbound payment transactions.  A transaction is
// created once before the guest is redirected to the gateway and
// mutated exactly once by the reconciler: the conditional terminal
// updates below are the whole synchronization story: whichever
// concurrent callback wins the UPDATE ... WHERE payment_status =
// 'PENDING' race performs the side effects, every other delivery
// observes zero rows affected.
type PaymentRepo struct {
	db *sql.DB
}

// NewPaymentRepo returns a repo bound to the given database.
func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions.
func (r *PaymentRepo) DB() *sql.DB { return r.db }

// CreateTx inserts a pending payment transaction within the booking's
// transaction and populates the generated ID.
func (r *PaymentRepo) CreateTx(ctx context.Context, tx *sql.Tx, t *model.PaymentTransaction) error {
	const q = `INSERT INTO payment_transactions (checkout_ref, booking_id, amount_cents, payment_status)
	           VALUES (?, ?, ?, 'PENDING')`
	result, err := tx.ExecContext(ctx, q, t.CheckoutRef, t.BookingID, t.AmountCents)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	t.PaymentStatus = model.TxnPending
	return nil
}

// GetByCheckoutRef looks a transaction up by the gateway's idempotency
// key.  Returns ErrTxnNotFound when no transaction was ever issued with
// that reference.
func (r *PaymentRepo) GetByCheckoutRef(ctx context.Context, ref string) (model.PaymentTransaction, error) {
	const q = `SELECT id, checkout_ref, booking_id, amount_cents, payment_status,
	                  result_code, result_desc, receipt_number, payer_phone, created_at, updated_at
	           FROM payment_transactions WHERE checkout_ref = ?`
	var t model.PaymentTransaction
	var code, desc, receipt, phone sql.NullString
	err := r.db.QueryRowContext(ctx, q, ref).Scan(&t.ID, &t.CheckoutRef, &t.BookingID, &t.AmountCents,
		&t.PaymentStatus, &code, &desc, &receipt, &phone, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.PaymentTransaction{}, ErrTxnNotFound
	}
	if err != nil {
		return model.PaymentTransaction{}, err
	}
	if code.Valid {
		t.ResultCode = &code.String
	}
	if desc.Valid {
		t.ResultDesc = &desc.String
	}
	if receipt.Valid {
		t.ReceiptNumber = &receipt.String
	}
	if phone.Valid {
		t.PayerPhone = &phone.String
	}
	return t, nil
}

// TerminalUpdate carries the gateway result fields written on the
// terminal transition.
type TerminalUpdate struct {
	ResultCode    string
	ResultDesc    string
	ReceiptNumber string
	PayerPhone    string
}

// MarkTerminalTx transitions the transaction from PENDING to the given
// terminal status.  The status guard in the WHERE clause makes the
// transition atomic and single-shot; it reports whether this caller won
// it.  Losing the race (a concurrent or repeated delivery) is not an
// error.
func (r *PaymentRepo) MarkTerminalTx(ctx context.Context, tx *sql.Tx, id uint64, status string, u TerminalUpdate) (bool, error) {
	const q = `UPDATE payment_transactions
	           SET payment_status = ?, result_code = ?, result_desc = ?,
	               receipt_number = NULLIF(?, ''), payer_phone = NULLIF(?, '')
	           WHERE id = ? AND payment_status = 'PENDING'`
	res, err := tx.ExecContext(ctx, q, status, u.ResultCode, u.ResultDesc, u.ReceiptNumber, u.PayerPhone, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
