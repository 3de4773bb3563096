package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/adventure-site-booking/internal/model"
	"github.com/iliyamo/adventure-site-booking/internal/payment"
	"github.com/iliyamo/adventure-site-booking/internal/repository"
)

var bookingCols = []string{
	"id", "item_id", "user_id", "visit_date", "slots_booked", "status", "payment_status",
	"host_confirmed", "checked_in", "checked_in_at", "checked_in_by", "total_amount_cents",
	"created_at", "updated_at",
}

func bookingRow(id uint64, status string) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(bookingCols).
		AddRow(id, 1, 2, nil, 2, status, "PENDING", false, false, nil, nil, 500, now, now)
}

func newPaymentFixture(t *testing.T) (*PaymentHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	h := NewPaymentHandler(
		repository.NewPaymentRepo(db),
		repository.NewBookingRepo(db),
		repository.NewAvailabilityRepo(db),
	)
	return h, mock
}

func pendingTxn(bookingID uint64) model.PaymentTransaction {
	return model.PaymentTransaction{
		ID:            9,
		CheckoutRef:   "ref-1",
		BookingID:     bookingID,
		AmountCents:   500,
		PaymentStatus: model.TxnPending,
	}
}

func successCallback() payment.Callback {
	return payment.Callback{CheckoutReference: "ref-1", ResultCode: "0", ResultDesc: "Success"}
}

func failureCallback() payment.Callback {
	return payment.Callback{CheckoutReference: "ref-1", ResultCode: "1032", ResultDesc: "Declined"}
}

// A success callback landing after the guest cancelled must settle the
// transaction but never flip the booking back to CONFIRMED: the
// cancelled booking released its slots and a revival would oversell
// without any admission check.
func TestCompleteAfterGuestCancelDoesNotReviveBooking(t *testing.T) {
	h, mock := newPaymentFixture(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE payment_transactions").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM bookings WHERE id = (.+) FOR UPDATE").
		WillReturnRows(bookingRow(4, model.BookingCancelled))
	// The PENDING guard matches nothing: the booking stays cancelled and
	// no counter or event side effect follows.
	mock.ExpectExec("UPDATE bookings SET status = 'CONFIRMED'").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	h.complete(newCallbackContext(t), pendingTxn(4), successCallback(), log.WithField("test", t.Name()))

	assert.NoError(t, mock.ExpectationsWereMet())
}

// A failure callback for a booking the guest already cancelled must not
// release the counters a second time; the cancel already did.
func TestFailAfterGuestCancelReleasesNothing(t *testing.T) {
	h, mock := newPaymentFixture(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE payment_transactions").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM bookings WHERE id = (.+) FOR UPDATE").
		WillReturnRows(bookingRow(4, model.BookingCancelled))
	mock.ExpectExec("UPDATE bookings SET status = 'CANCELLED'").
		WillReturnResult(sqlmock.NewResult(0, 0))
	// No INSERT INTO availability_counters expected before the commit.
	mock.ExpectCommit()

	h.fail(newCallbackContext(t), pendingTxn(4), failureCallback(), log.WithField("test", t.Name()))

	assert.NoError(t, mock.ExpectationsWereMet())
}

// A failure callback for a still-pending booking cancels it and
// releases its slots exactly once.
func TestFailOnPendingBookingReleasesCountersOnce(t *testing.T) {
	h, mock := newPaymentFixture(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE payment_transactions").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM bookings WHERE id = (.+) FOR UPDATE").
		WillReturnRows(bookingRow(4, model.BookingPending))
	mock.ExpectExec("UPDATE bookings SET status = 'CANCELLED'").
		WillReturnResult(sqlmock.NewResult(0, 1))
	// Dateless booking: only the overall counter row is touched.
	mock.ExpectExec("INSERT INTO availability_counters").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	h.fail(newCallbackContext(t), pendingTxn(4), failureCallback(), log.WithField("test", t.Name()))

	assert.NoError(t, mock.ExpectationsWereMet())
}

// A replayed success callback loses the transaction's PENDING guard and
// must stop before touching the booking.
func TestCompleteLosingTerminalRaceStops(t *testing.T) {
	h, mock := newPaymentFixture(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE payment_transactions").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	h.complete(newCallbackContext(t), pendingTxn(4), successCallback(), log.WithField("test", t.Name()))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func newCallbackContext(t *testing.T) echo.Context {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/payments/callback", nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec)
}
