package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/adventure-site-booking/internal/model"
)

// ItemRepo provides read access to items, their facilities and their
// priced activities.  Item creation and editing is the listing
// service's concern; this engine only consumes the rows.
type ItemRepo struct {
	db *sql.DB
}

// NewItemRepo returns a new ItemRepo bound to the given database.
func NewItemRepo(db *sql.DB) *ItemRepo { return &ItemRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions.
func (r *ItemRepo) DB() *sql.DB { return r.db }

const itemColumns = `id, host_id, name, limit_type, total_capacity, working_days, fixed_date, price_cents, created_at, updated_at`

func scanItem(row *sql.Row) (model.Item, error) {
	var it model.Item
	var capVal sql.NullInt64
	var workingDays sql.NullString
	var fixedDate sql.NullTime
	err := row.Scan(&it.ID, &it.HostID, &it.Name, &it.LimitType, &capVal,
		&workingDays, &fixedDate, &it.PriceCents, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Item{}, ErrItemNotFound
		}
		return model.Item{}, err
	}
	if capVal.Valid {
		c := uint32(capVal.Int64)
		it.TotalCapacity = &c
	}
	if workingDays.Valid {
		it.WorkingDays = model.ParseWorkingDays(workingDays.String)
	}
	if fixedDate.Valid {
		d := fixedDate.Time.UTC()
		it.FixedDate = &d
	}
	return it, nil
}

// GetByID loads a single item.  Returns ErrItemNotFound when absent.
func (r *ItemRepo) GetByID(ctx context.Context, id uint64) (model.Item, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	return scanItem(row)
}

// GetForUpdateTx loads an item and takes a row lock on it.  Every
// capacity-affecting write locks the item row first so concurrent
// requests for the same item serialize: the capacity check and the
// booking insert become one atomic unit and the last slot cannot be
// sold twice.
func (r *ItemRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Item, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ? FOR UPDATE`, id)
	return scanItem(row)
}

// FacilityByNameTx resolves a facility of the item by its name within
// the transaction.  Returns ErrFacilityNotFound when the item has no
// facility with that name.
func (r *ItemRepo) FacilityByNameTx(ctx context.Context, tx *sql.Tx, itemID uint64, name string) (model.Facility, error) {
	var f model.Facility
	err := tx.QueryRowContext(ctx,
		`SELECT id, item_id, name, capacity, daily_rate_cents FROM facilities WHERE item_id = ? AND name = ?`,
		itemID, strings.TrimSpace(name),
	).Scan(&f.ID, &f.ItemID, &f.Name, &f.Capacity, &f.DailyRateCents)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Facility{}, ErrFacilityNotFound
	}
	if err != nil {
		return model.Facility{}, err
	}
	return f, nil
}

// ActivitiesByIDsTx loads the item's priced activities for the given
// IDs.  Activities belonging to other items are not returned, which
// lets callers detect foreign selections by a missing key.
func (r *ItemRepo) ActivitiesByIDsTx(ctx context.Context, tx *sql.Tx, itemID uint64, ids []uint64) (map[uint64]model.ItemActivity, error) {
	out := make(map[uint64]model.ItemActivity, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	query := `SELECT id, item_id, name, price_cents FROM item_activities WHERE item_id = ? AND id IN (`
	args := make([]interface{}, 0, len(ids)+1)
	args = append(args, itemID)
	for i, id := range ids {
		if i > 0 {
			query += ","
		}
		query += "?"
		args = append(args, id)
	}
	query += ")"
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var a model.ItemActivity
		if err := rows.Scan(&a.ID, &a.ItemID, &a.Name, &a.PriceCents); err != nil {
			return nil, err
		}
		out[a.ID] = a
	}
	return out, rows.Err()
}
