package model

import "time"

// AvailabilityCounter is derived, cached state: the number of slots
// booked for an item on one date, or overall for the item when Date is
// nil.  It is never authoritative, since it can always be re-derived
// by summing slots over non-cancelled bookings, but it is updated inside
// the same transaction as every booking write so reads never lag a
// commit.
type AvailabilityCounter struct {
	ItemID      uint64     // availability_counters.item_id
	Date        *time.Time // availability_counters.visit_date (sentinel row = overall)
	BookedSlots uint32     // availability_counters.booked_slots
	UpdatedAt   time.Time  // availability_counters.updated_at
}
