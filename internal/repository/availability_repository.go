package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// overallSentinel marks the per-item overall counter row.  MySQL
// primary keys cannot contain NULL, so the "no date" scope is stored
// under a date no real visit can use.
const overallSentinel = "1000-01-01"

// AvailabilityRepo maintains the derived booked-slot counters in
// availability_counters.  The counters are a cache over the bookings
// table, updated inside the same transaction as every booking write so
// guest-facing remaining-slot reads never lag a commit.  They are never
// authoritative: RecomputeTx re-derives any counter from the bookings
// themselves, which is also the repair path when a row is missing.
type AvailabilityRepo struct {
	db *sql.DB
}

// NewAvailabilityRepo returns a repo bound to the given database.
func NewAvailabilityRepo(db *sql.DB) *AvailabilityRepo { return &AvailabilityRepo{db: db} }

func scopeDate(date *time.Time) string {
	if date == nil {
		return overallSentinel
	}
	return date.UTC().Format(sqlDate)
}

// ApplyTx shifts one counter row by delta slots, creating the row when
// absent.  A negative delta releases slots; GREATEST keeps a drifted
// counter from wrapping below zero.  Callers apply the overall row and
// the dated row separately.
func (r *AvailabilityRepo) ApplyTx(ctx context.Context, tx *sql.Tx, itemID uint64, date *time.Time, delta int64) error {
	if delta == 0 {
		return nil
	}
	seed := delta
	if seed < 0 {
		seed = 0
	}
	const q = `INSERT INTO availability_counters (item_id, visit_date, booked_slots)
	           VALUES (?, ?, ?)
	           ON DUPLICATE KEY UPDATE
	             booked_slots = GREATEST(CAST(booked_slots AS SIGNED) + ?, 0),
	             updated_at = CURRENT_TIMESTAMP`
	_, err := tx.ExecContext(ctx, q, itemID, scopeDate(date), seed, delta)
	return err
}

// ApplyBookingTx applies one booking's slot delta to both counters it
// touches: the overall row always, the dated row when a visit date is
// set.
func (r *AvailabilityRepo) ApplyBookingTx(ctx context.Context, tx *sql.Tx, itemID uint64, date *time.Time, delta int64) error {
	if err := r.ApplyTx(ctx, tx, itemID, nil, delta); err != nil {
		return err
	}
	if date != nil {
		return r.ApplyTx(ctx, tx, itemID, date, delta)
	}
	return nil
}

// RecomputeTx re-derives a counter by summing the authoritative
// bookings and writes the result back.  Returns the recomputed value.
func (r *AvailabilityRepo) RecomputeTx(ctx context.Context, tx *sql.Tx, itemID uint64, date *time.Time) (uint32, error) {
	query := `SELECT COALESCE(SUM(slots_booked), 0) FROM bookings WHERE item_id = ? AND status <> 'CANCELLED'`
	args := []interface{}{itemID}
	if date != nil {
		query += ` AND visit_date = ?`
		args = append(args, date.UTC().Format(sqlDate))
	}
	var total uint32
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	const upsert = `INSERT INTO availability_counters (item_id, visit_date, booked_slots)
	                VALUES (?, ?, ?)
	                ON DUPLICATE KEY UPDATE booked_slots = VALUES(booked_slots), updated_at = CURRENT_TIMESTAMP`
	if _, err := tx.ExecContext(ctx, upsert, itemID, scopeDate(date), total); err != nil {
		return 0, err
	}
	return total, nil
}

// BookedFor reads one counter.  The second return is false when the row
// has never been written, telling the caller to recompute.
func (r *AvailabilityRepo) BookedFor(ctx context.Context, itemID uint64, date *time.Time) (uint32, bool, error) {
	var booked uint32
	err := r.db.QueryRowContext(ctx,
		`SELECT booked_slots FROM availability_counters WHERE item_id = ? AND visit_date = ?`,
		itemID, scopeDate(date)).Scan(&booked)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return booked, true, nil
}

// BookedForOrRecompute serves the read path: the cached counter when
// present, otherwise a lazy recompute in a short transaction.  Staleness
// is self-healing; there is no user-visible error for the repair.
func (r *AvailabilityRepo) BookedForOrRecompute(ctx context.Context, itemID uint64, date *time.Time) (uint32, error) {
	booked, found, err := r.BookedFor(ctx, itemID, date)
	if err != nil {
		return 0, err
	}
	if found {
		return booked, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	booked, err = r.RecomputeTx(ctx, tx, itemID, date)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return booked, nil
}
