package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/adventure-site-booking/internal/capacity"
	"github.com/iliyamo/adventure-site-booking/internal/model"
)

// FacilityReservationRepo persists date-range rentals of item
// facilities.  Reservations belonging to cancelled bookings stay in the
// table but are excluded from every overlap query, which is how a
// cancellation releases a facility without a second write.
type FacilityReservationRepo struct {
	db *sql.DB
}

// NewFacilityReservationRepo returns a repo bound to the given database.
func NewFacilityReservationRepo(db *sql.DB) *FacilityReservationRepo {
	return &FacilityReservationRepo{db: db}
}

// ActiveRangesTx returns the inclusive day ranges currently reserved on
// a facility, i.e. those whose owning booking is not cancelled.  Run
// inside the transaction holding the item row lock so a concurrent
// request cannot admit an overlapping range in between.
func (r *FacilityReservationRepo) ActiveRangesTx(ctx context.Context, tx *sql.Tx, facilityID uint64) ([]capacity.DateRange, error) {
	const q = `SELECT fr.start_date, fr.end_date
	           FROM facility_reservations fr
	           JOIN bookings b ON b.id = fr.booking_id
	           WHERE fr.facility_id = ? AND b.status <> 'CANCELLED'`
	rows, err := tx.QueryContext(ctx, q, facilityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ranges []capacity.DateRange
	for rows.Next() {
		var dr capacity.DateRange
		if err := rows.Scan(&dr.Start, &dr.End); err != nil {
			return nil, err
		}
		dr.Start = dr.Start.UTC()
		dr.End = dr.End.UTC()
		ranges = append(ranges, dr)
	}
	return ranges, rows.Err()
}

// CreateBulkTx inserts the booking's facility reservations in a single
// statement.  Passing an empty slice has no effect and returns nil.
func (r *FacilityReservationRepo) CreateBulkTx(ctx context.Context, tx *sql.Tx, reservations []model.FacilityReservation) error {
	if len(reservations) == 0 {
		return nil
	}
	query := `INSERT INTO facility_reservations (booking_id, item_id, facility_id, start_date, end_date, amount_cents) VALUES `
	args := make([]interface{}, 0, len(reservations)*6)
	for i, fr := range reservations {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?)"
		args = append(args, fr.BookingID, fr.ItemID, fr.FacilityID,
			fr.StartDate.UTC().Format(sqlDate), fr.EndDate.UTC().Format(sqlDate), fr.AmountCents)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// ListByBooking returns the facility reservations owned by a booking,
// with facility names resolved for display.
func (r *FacilityReservationRepo) ListByBooking(ctx context.Context, bookingID uint64) ([]FacilityReservationDetail, error) {
	const q = `SELECT fr.id, f.name, fr.start_date, fr.end_date, fr.amount_cents
	           FROM facility_reservations fr
	           JOIN facilities f ON f.id = fr.facility_id
	           WHERE fr.booking_id = ?
	           ORDER BY fr.start_date`
	rows, err := r.db.QueryContext(ctx, q, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]FacilityReservationDetail, 0)
	for rows.Next() {
		var d FacilityReservationDetail
		var start, end sql.NullTime
		if err := rows.Scan(&d.ID, &d.FacilityName, &start, &end, &d.AmountCents); err != nil {
			return nil, err
		}
		if start.Valid {
			d.StartDate = start.Time.UTC().Format(sqlDate)
		}
		if end.Valid {
			d.EndDate = end.Time.UTC().Format(sqlDate)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// FacilityReservationDetail is a facility rental row shaped for
// responses.
type FacilityReservationDetail struct {
	ID           uint64 `json:"id"`
	FacilityName string `json:"facility_name"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
	AmountCents  uint32 `json:"amount_cents"`
}
