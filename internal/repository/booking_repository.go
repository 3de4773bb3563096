package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/adventure-site-booking/internal/model"
)

// BookingRepo provides CRUD operations for bookings, their activity
// selections and the reschedule audit trail.  Bookings are never
// deleted, only transitioned; the status column is the single source of
// truth the availability counters are derived from.  All timestamp
// fields are stored in UTC and visit dates as plain DATE values.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions.
func (r *BookingRepo) DB() *sql.DB { return r.db }

const sqlDate = "2006-01-02"

func nullDate(d *time.Time) interface{} {
	if d == nil {
		return nil
	}
	return d.UTC().Format(sqlDate)
}

const bookingColumns = `id, item_id, user_id, visit_date, slots_booked, status, payment_status,
       host_confirmed, checked_in, checked_in_at, checked_in_by, total_amount_cents, created_at, updated_at`

func scanBooking(scan func(dest ...interface{}) error) (model.Booking, error) {
	var b model.Booking
	var visit sql.NullTime
	var checkedAt sql.NullTime
	var checkedBy sql.NullInt64
	err := scan(&b.ID, &b.ItemID, &b.UserID, &visit, &b.SlotsBooked, &b.Status, &b.PaymentStatus,
		&b.HostConfirmed, &b.CheckedIn, &checkedAt, &checkedBy, &b.TotalAmountCents, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return model.Booking{}, err
	}
	if visit.Valid {
		d := visit.Time.UTC()
		b.VisitDate = &d
	}
	if checkedAt.Valid {
		t := checkedAt.Time.UTC()
		b.CheckedInAt = &t
	}
	if checkedBy.Valid {
		v := uint64(checkedBy.Int64)
		b.CheckedInBy = &v
	}
	return b, nil
}

// CreateTx inserts a new booking within the scope of an existing
// transaction and populates the generated ID and timestamps on the
// provided record.  The caller must commit or rollback.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	const q = `INSERT INTO bookings
	           (item_id, user_id, visit_date, slots_booked, status, payment_status, total_amount_cents)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, q, b.ItemID, b.UserID, nullDate(b.VisitDate),
		b.SlotsBooked, b.Status, b.PaymentStatus, b.TotalAmountCents)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	// Query back the full row to populate timestamps and defaults.
	created, err := scanBooking(tx.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, b.ID).Scan)
	if err != nil {
		return err
	}
	*b = created
	return nil
}

// SumSlotsTx sums slots_booked over non-cancelled bookings of the item.
// When date is non-nil the sum is scoped to that visit date; exclude
// removes one booking (the one being rescheduled) from the sum.  Run
// inside the transaction holding the item row lock so the sum cannot
// change under the caller.
func (r *BookingRepo) SumSlotsTx(ctx context.Context, tx *sql.Tx, itemID uint64, date *time.Time, exclude uint64) (uint32, error) {
	query := `SELECT COALESCE(SUM(slots_booked), 0) FROM bookings WHERE item_id = ? AND status <> 'CANCELLED'`
	args := []interface{}{itemID}
	if date != nil {
		query += ` AND visit_date = ?`
		args = append(args, date.UTC().Format(sqlDate))
	}
	if exclude != 0 {
		query += ` AND id <> ?`
		args = append(args, exclude)
	}
	var total uint32
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// GetForUpdateTx loads a booking with a row lock.  Returns
// ErrBookingNotFound when absent.
func (r *BookingRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Booking, error) {
	b, err := scanBooking(tx.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ? FOR UPDATE`, id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Booking{}, ErrBookingNotFound
	}
	return b, err
}

// GetByID loads a booking without locking.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (model.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Booking{}, ErrBookingNotFound
	}
	return b, err
}

// ConfirmTx transitions a booking from PENDING to CONFIRMED/PAID once
// its payment settles.  The status guard keeps a settled payment from
// resurrecting a booking the guest cancelled while the payment was in
// flight: a cancelled booking released its slots already and must never
// come back without a fresh admission.  Reports whether the transition
// happened.
func (r *BookingRepo) ConfirmTx(ctx context.Context, tx *sql.Tx, id uint64) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE bookings SET status = 'CONFIRMED', payment_status = 'PAID'
		 WHERE id = ? AND status = 'PENDING'`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// FailPaymentTx cancels a booking whose payment was declined.  The same
// PENDING guard applies: a booking the guest already cancelled released
// its counters at cancel time, so the caller must release counters only
// on a true result or the release happens twice.
func (r *BookingRepo) FailPaymentTx(ctx context.Context, tx *sql.Tx, id uint64) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE bookings SET status = 'CANCELLED', payment_status = 'FAILED'
		 WHERE id = ? AND status = 'PENDING'`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// CancelTx transitions a booking to CANCELLED if it is not already.
// It reports whether the transition happened; callers release counters
// only on a true result so a repeated cancel cannot release twice.
func (r *BookingRepo) CancelTx(ctx context.Context, tx *sql.Tx, id uint64) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE bookings SET status = 'CANCELLED' WHERE id = ? AND status <> 'CANCELLED'`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// SetVisitDateTx moves the booking to a new visit date.
func (r *BookingRepo) SetVisitDateTx(ctx context.Context, tx *sql.Tx, id uint64, date time.Time) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE bookings SET visit_date = ? WHERE id = ?`, date.UTC().Format(sqlDate), id)
	return err
}

// InsertRescheduleTx appends one row to the reschedule audit trail.
func (r *BookingRepo) InsertRescheduleTx(ctx context.Context, tx *sql.Tx, a model.RescheduleAudit) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO booking_reschedules (booking_id, actor_id, old_visit_date, new_visit_date) VALUES (?, ?, ?, ?)`,
		a.BookingID, a.ActorID, nullDate(a.OldVisitDate), a.NewVisitDate.UTC().Format(sqlDate))
	return err
}

// MarkHostSeen flips the host triage flag.  It has no capacity effect
// and needs no transaction.  Returns ErrBookingNotFound when the
// booking does not exist.
func (r *BookingRepo) MarkHostSeen(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE bookings SET host_confirmed = 1 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Rows affected is also 0 when the flag was already set; treat that
		// as success by checking existence.
		var exists bool
		if err := r.db.QueryRowContext(ctx, `SELECT 1 FROM bookings WHERE id = ?`, id).Scan(&exists); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrBookingNotFound
			}
			return err
		}
	}
	return nil
}

// CheckInTx records arrival against the booking.  The WHERE clause is
// the idempotency and eligibility guard in one conditional update: it
// only fires for a confirmed, paid, not-yet-checked-in booking.  It
// reports whether the row transitioned.
func (r *BookingRepo) CheckInTx(ctx context.Context, tx *sql.Tx, id, verifierID uint64, at time.Time) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE bookings SET checked_in = 1, checked_in_at = ?, checked_in_by = ?
		 WHERE id = ? AND checked_in = 0 AND status = 'CONFIRMED' AND payment_status IN ('PAID','COMPLETED')`,
		at.UTC().Format("2006-01-02 15:04:05"), verifierID, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// CreateActivitiesBulkTx inserts the booking's activity selections in a
// single statement.  Passing an empty slice has no effect.
func (r *BookingRepo) CreateActivitiesBulkTx(ctx context.Context, tx *sql.Tx, selections []model.ActivitySelection) error {
	if len(selections) == 0 {
		return nil
	}
	query := `INSERT INTO booking_activities (booking_id, activity_name, unit_price_cents, quantity) VALUES `
	args := make([]interface{}, 0, len(selections)*4)
	for i, s := range selections {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?)"
		args = append(args, s.BookingID, s.ActivityName, s.UnitPriceCents, s.Quantity)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// BookingDetail is a booking joined with its item for display.
type BookingDetail struct {
	ID               uint64  `json:"id"`
	ItemID           uint64  `json:"item_id"`
	ItemName         string  `json:"item_name"`
	VisitDate        *string `json:"visit_date,omitempty"`
	SlotsBooked      uint32  `json:"slots_booked"`
	Status           string  `json:"status"`
	PaymentStatus    string  `json:"payment_status"`
	HostConfirmed    bool    `json:"host_confirmed"`
	CheckedIn        bool    `json:"checked_in"`
	TotalAmountCents uint32  `json:"total_amount_cents"`
	CreatedAt        string  `json:"created_at"`
}

const detailQuery = `SELECT b.id, b.item_id, i.name, b.visit_date, b.slots_booked, b.status,
       b.payment_status, b.host_confirmed, b.checked_in, b.total_amount_cents, b.created_at
       FROM bookings b JOIN items i ON i.id = b.item_id`

func scanDetail(scan func(dest ...interface{}) error) (BookingDetail, error) {
	var d BookingDetail
	var visit sql.NullTime
	var created time.Time
	err := scan(&d.ID, &d.ItemID, &d.ItemName, &visit, &d.SlotsBooked, &d.Status,
		&d.PaymentStatus, &d.HostConfirmed, &d.CheckedIn, &d.TotalAmountCents, &created)
	if err != nil {
		return BookingDetail{}, err
	}
	if visit.Valid {
		s := visit.Time.UTC().Format(sqlDate)
		d.VisitDate = &s
	}
	d.CreatedAt = created.UTC().Format(time.RFC3339)
	return d, nil
}

// ListByUser returns all bookings created by the given user, newest
// first.  When none exist, an empty slice is returned.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]BookingDetail, error) {
	rows, err := r.db.QueryContext(ctx, detailQuery+` WHERE b.user_id = ? ORDER BY b.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	details := make([]BookingDetail, 0)
	for rows.Next() {
		d, err := scanDetail(rows.Scan)
		if err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

// GetByIDForUser returns one booking detail, enforcing ownership.
// Returns ErrBookingNotFound when the row does not exist for the user.
func (r *BookingRepo) GetByIDForUser(ctx context.Context, bookingID, userID uint64) (BookingDetail, error) {
	d, err := scanDetail(r.db.QueryRowContext(ctx,
		detailQuery+` WHERE b.id = ? AND b.user_id = ?`, bookingID, userID).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return BookingDetail{}, ErrBookingNotFound
	}
	return d, err
}

// ListByItemForHost returns every booking of an item for its host's
// inbox.  It verifies the caller owns the item first; ErrForbidden is
// returned otherwise and ErrItemNotFound when the item is absent.
func (r *BookingRepo) ListByItemForHost(ctx context.Context, itemID, hostID uint64) ([]BookingDetail, error) {
	var actualHost uint64
	err := r.db.QueryRowContext(ctx, `SELECT host_id FROM items WHERE id = ?`, itemID).Scan(&actualHost)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, err
	}
	if actualHost != hostID {
		return nil, ErrForbidden
	}
	rows, err := r.db.QueryContext(ctx, detailQuery+` WHERE b.item_id = ? ORDER BY b.created_at DESC`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	details := make([]BookingDetail, 0)
	for rows.Next() {
		d, err := scanDetail(rows.Scan)
		if err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	return details, rows.Err()
}
