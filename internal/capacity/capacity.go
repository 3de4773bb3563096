// Package capacity computes remaining slots for a bookable item under
// its configured limit type, and decides date-range conflicts for
// facility rentals.  It performs no I/O; callers feed it either the
// authoritative booking set or a pre-computed slot sum.
package capacity

import (
	"math"
	"time"

	"github.com/iliyamo/adventure-site-booking/internal/model"
)

// Unlimited is returned by Remaining when an item declares no capacity
// bound.  It sits at the top of the int range so it can never collide
// with a real remaining value: an oversold item (possible after
// counter repair) yields a small negative remaining, which must stay
// distinguishable from "no bound at all".
const Unlimited = math.MaxInt

// Remaining returns the number of slots still available for the item
// given the booked sum in scope.  The booked sum must already be scoped
// correctly: for an INVENTORY item with a date axis it is the sum over
// non-cancelled bookings sharing the date, otherwise the overall sum.
//
// PER_BOOKING items return their capacity unchanged regardless of the
// booked sum: every booking is independently capped and there is no
// cross-booking depletion.  A nil or zero capacity means Unlimited for
// PER_BOOKING items; a nil capacity means Unlimited for INVENTORY
// items.
func Remaining(item model.Item, booked uint32) int {
	switch item.LimitType {
	case model.LimitPerBooking:
		if item.TotalCapacity == nil || *item.TotalCapacity == 0 {
			return Unlimited
		}
		return int(*item.TotalCapacity)
	default: // INVENTORY
		if item.TotalCapacity == nil {
			return Unlimited
		}
		return int(*item.TotalCapacity) - int(booked)
	}
}

// SoldOut reports whether no slots remain.  It is only meaningful when
// the item declares a capacity; unlimited items are never sold out.
// Oversold states (negative remaining) report sold out too.
func SoldOut(item model.Item, booked uint32) bool {
	rem := Remaining(item, booked)
	return rem != Unlimited && rem <= 0
}

// Fits reports whether a request for the given slot count can be
// satisfied against the remaining value.
func Fits(remaining int, slots uint32) bool {
	return remaining == Unlimited || int(slots) <= remaining
}

// SumScoped sums slots over the non-cancelled bookings in scope.  When
// date is non-nil only bookings on that visit date count; otherwise
// every non-cancelled booking counts.  exclude removes one booking from
// the sum, used when rescheduling a booking so it is not counted
// against itself.  This is the reference computation the cached
// availability counters are recomputed from.
func SumScoped(bookings []model.Booking, date *time.Time, exclude uint64) uint32 {
	var total uint32
	for _, b := range bookings {
		if !b.Counted() || b.ID == exclude {
			continue
		}
		if date != nil {
			if b.VisitDate == nil || !sameDay(*b.VisitDate, *date) {
				continue
			}
		}
		total += b.SlotsBooked
	}
	return total
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
