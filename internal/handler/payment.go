package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/iliyamo/adventure-site-booking/internal/model"
	"github.com/iliyamo/adventure-site-booking/internal/payment"
	"github.com/iliyamo/adventure-site-booking/internal/queue"
	"github.com/iliyamo/adventure-site-booking/internal/repository"
	queue_publisher "github.com/iliyamo/adventure-site-booking/internal/service"
)

// PaymentHandler receives gateway callbacks and reconciles them
// against pending payment transactions.  The webhook always
// acknowledges with HTTP 200 so the gateway stops retrying; all
// anomalies are logged instead of surfaced.
type PaymentHandler struct {
	payments     *repository.PaymentRepo
	bookings     *repository.BookingRepo
	availability *repository.AvailabilityRepo
}

// NewPaymentHandler wires the handler with its repositories.
func NewPaymentHandler(payments *repository.PaymentRepo, bookings *repository.BookingRepo,
	availability *repository.AvailabilityRepo) *PaymentHandler {
	return &PaymentHandler{payments: payments, bookings: bookings, availability: availability}
}

// Callback processes one gateway delivery.  Deliveries are at-least-
// once and unordered; the PENDING guard on the transaction row makes
// the side effects exactly-once regardless of how many times the same
// reference arrives.
func (h *PaymentHandler) Callback(c echo.Context) error {
	body := http.MaxBytesReader(c.Response(), c.Request().Body, payment.MaxCallbackBytes)
	defer func() { _ = body.Close() }()

	var cb payment.Callback
	if err := json.NewDecoder(body).Decode(&cb); err != nil {
		log.WithError(err).Warn("payment callback: undecodable body")
		return c.JSON(http.StatusOK, payment.Accepted())
	}
	logger := log.WithField("checkout_ref", cb.CheckoutReference)

	ctx := c.Request().Context()
	txn, err := h.payments.GetByCheckoutRef(ctx, cb.CheckoutReference)
	if err != nil {
		if errors.Is(err, repository.ErrTxnNotFound) {
			// Forged or foreign reference. Acknowledge so the sender stops
			// retrying, but record the event.
			logger.Warn("payment callback: unknown checkout reference")
			return c.JSON(http.StatusOK, payment.Accepted())
		}
		logger.WithError(err).Error("payment callback: lookup failed")
		return c.JSON(http.StatusOK, payment.Accepted())
	}

	switch payment.Resolve(txn, cb) {
	case payment.OutcomeDuplicate:
		logger.Info("payment callback: replay of settled transaction")
	case payment.OutcomeAmountMismatch:
		// Left PENDING for manual review; an automatic transition would
		// hide what may be gateway tampering.
		logger.WithField("expected_cents", txn.AmountCents).Error("payment callback: amount mismatch")
	case payment.OutcomeComplete:
		h.complete(c, txn, cb, logger)
	case payment.OutcomeFail:
		h.fail(c, txn, cb, logger)
	}

	return c.JSON(http.StatusOK, payment.Accepted())
}

func terminalUpdateFrom(cb payment.Callback) repository.TerminalUpdate {
	return repository.TerminalUpdate{
		ResultCode:    cb.ResultCode,
		ResultDesc:    cb.ResultDesc,
		ReceiptNumber: cb.ReceiptNumber(),
		PayerPhone:    cb.PayerPhone(),
	}
}

// complete settles a successful payment: the transaction goes to
// COMPLETED and the booking to CONFIRMED/PAID in one database
// transaction.  Only the delivery that wins the PENDING guard performs
// the booking transition and emits the confirmation event.
func (h *PaymentHandler) complete(c echo.Context, txn model.PaymentTransaction, cb payment.Callback, logger *log.Entry) {
	ctx := c.Request().Context()
	tx, err := h.payments.DB().BeginTx(ctx, nil)
	if err != nil {
		logger.WithError(err).Error("payment callback: begin tx failed")
		return
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	won, err := h.payments.MarkTerminalTx(ctx, tx, txn.ID, model.TxnCompleted, terminalUpdateFrom(cb))
	if err != nil {
		logger.WithError(err).Error("payment callback: terminal update failed")
		return
	}
	if !won {
		logger.Info("payment callback: concurrent delivery already settled the transaction")
		return
	}
	booking, err := h.bookings.GetForUpdateTx(ctx, tx, txn.BookingID)
	if err != nil {
		logger.WithError(err).Error("payment callback: booking missing for settled transaction")
		return
	}
	confirmed, err := h.bookings.ConfirmTx(ctx, tx, booking.ID)
	if err != nil {
		logger.WithError(err).Error("payment callback: booking confirm failed")
		return
	}
	if err := tx.Commit(); err != nil {
		logger.WithError(err).Error("payment callback: commit failed")
		return
	}
	committed = true

	if !confirmed {
		// The guest cancelled (or the booking otherwise left PENDING)
		// while the payment was in flight.  The money arrived for a
		// booking that no longer holds slots; record the settlement but
		// never resurrect the booking.
		logger.WithField("booking_status", booking.Status).
			Error("payment callback: settled payment for non-pending booking, refund required")
		return
	}

	h.publish(c, queue.NotificationEvent{
		Event:            queue.EventBookingConfirmed,
		BookingID:        booking.ID,
		ItemID:           booking.ItemID,
		UserID:           booking.UserID,
		VisitDate:        dateString(booking.VisitDate),
		SlotsBooked:      booking.SlotsBooked,
		TotalAmountCents: booking.TotalAmountCents,
		CheckoutRef:      txn.CheckoutRef,
	})
}

// fail settles a declined payment: the transaction goes to FAILED, the
// booking is cancelled and its held slots are released.
func (h *PaymentHandler) fail(c echo.Context, txn model.PaymentTransaction, cb payment.Callback, logger *log.Entry) {
	ctx := c.Request().Context()
	tx, err := h.payments.DB().BeginTx(ctx, nil)
	if err != nil {
		logger.WithError(err).Error("payment callback: begin tx failed")
		return
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	won, err := h.payments.MarkTerminalTx(ctx, tx, txn.ID, model.TxnFailed, terminalUpdateFrom(cb))
	if err != nil {
		logger.WithError(err).Error("payment callback: terminal update failed")
		return
	}
	if !won {
		logger.Info("payment callback: concurrent delivery already settled the transaction")
		return
	}
	booking, err := h.bookings.GetForUpdateTx(ctx, tx, txn.BookingID)
	if err != nil {
		logger.WithError(err).Error("payment callback: booking missing for settled transaction")
		return
	}
	cancelled, err := h.bookings.FailPaymentTx(ctx, tx, booking.ID)
	if err != nil {
		logger.WithError(err).Error("payment callback: booking cancel failed")
		return
	}
	// Counters were released at cancel time if the guest got there
	// first; releasing again would make the availability API over-report
	// open slots.
	if cancelled {
		if err := h.availability.ApplyBookingTx(ctx, tx, booking.ItemID, booking.VisitDate, -int64(booking.SlotsBooked)); err != nil {
			logger.WithError(err).Error("payment callback: counter release failed")
			return
		}
	}
	if err := tx.Commit(); err != nil {
		logger.WithError(err).Error("payment callback: commit failed")
		return
	}
	committed = true

	if !cancelled {
		logger.WithField("booking_status", booking.Status).
			Info("payment callback: declined payment for non-pending booking, nothing to release")
		return
	}

	h.publish(c, queue.NotificationEvent{
		Event:       queue.EventPaymentFailed,
		BookingID:   booking.ID,
		ItemID:      booking.ItemID,
		UserID:      booking.UserID,
		VisitDate:   dateString(booking.VisitDate),
		SlotsBooked: booking.SlotsBooked,
		CheckoutRef: txn.CheckoutRef,
	})
}

func (h *PaymentHandler) publish(c echo.Context, event queue.NotificationEvent) {
	event.OccurredAt = time.Now().UTC().Format(time.RFC3339)
	if err := queue_publisher.PublishNotification(c.Request().Context(), event); err != nil {
		log.WithError(err).WithField("event", event.Event).Warn("notification publish failed")
	}
}
