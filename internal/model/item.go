package model

import (
	"strings"
	"time"
)

// Limit types control how an item's capacity is consumed.  INVENTORY
// capacity is shared across bookings (per date when the item has a date
// axis); PER_BOOKING capacity caps each booking independently and is
// never depleted by other bookings.
const (
	LimitInventory  = "INVENTORY"
	LimitPerBooking = "PER_BOOKING"
)

// Item is a bookable entity published by a host: a multi-day trip, a
// single-date event, a room or an adventure-site venue.
//
// Fields:
//  ID            – primary key identifier.
//  HostID        – user who published the item.
//  Name          – display name.
//  LimitType     – INVENTORY or PER_BOOKING.
//  TotalCapacity – slot limit; nil means unlimited.
//  WorkingDays   – weekdays the item accepts visits; empty means all days.
//  FixedDate     – set for single-date events; such items cannot be
//                  rescheduled.
//  PriceCents    – price per slot in cents; zero-priced items skip the
//                  payment leg entirely.
type Item struct {
	ID            uint64         // items.id
	HostID        uint64         // items.host_id
	Name          string         // items.name
	LimitType     string         // items.limit_type
	TotalCapacity *uint32        // items.total_capacity (nullable)
	WorkingDays   []time.Weekday // parsed from items.working_days
	FixedDate     *time.Time     // items.fixed_date (nullable)
	PriceCents    uint32         // items.price_cents
	CreatedAt     time.Time      // items.created_at
	UpdatedAt     time.Time      // items.updated_at
}

// CapacityExempt reports whether capacity checking is skipped entirely.
// A PER_BOOKING item with no declared capacity is a valid configuration
// for venue-style items that do no slot tracking.
func (i Item) CapacityExempt() bool {
	return i.LimitType == LimitPerBooking && (i.TotalCapacity == nil || *i.TotalCapacity == 0)
}

// AllowsDate reports whether the given visit date falls on one of the
// item's working days.  An empty set accepts every weekday.  Weekdays
// are compared by equality against the enumerated set, never by string
// prefix.
func (i Item) AllowsDate(d time.Time) bool {
	if len(i.WorkingDays) == 0 {
		return true
	}
	wd := d.Weekday()
	for _, w := range i.WorkingDays {
		if w == wd {
			return true
		}
	}
	return false
}

// weekdayNames maps the canonical uppercase names stored in
// items.working_days to time.Weekday values.
var weekdayNames = map[string]time.Weekday{
	"SUNDAY":    time.Sunday,
	"MONDAY":    time.Monday,
	"TUESDAY":   time.Tuesday,
	"WEDNESDAY": time.Wednesday,
	"THURSDAY":  time.Thursday,
	"FRIDAY":    time.Friday,
	"SATURDAY":  time.Saturday,
}

// ParseWorkingDays converts the comma-separated column value into a
// weekday set.  Unknown names are skipped rather than guessed at.  An
// empty or all-invalid value yields an empty set (all days open).
func ParseWorkingDays(csv string) []time.Weekday {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	var days []time.Weekday
	for _, p := range strings.Split(csv, ",") {
		if wd, ok := weekdayNames[strings.ToUpper(strings.TrimSpace(p))]; ok {
			days = append(days, wd)
		}
	}
	return days
}

// FormatWorkingDays is the inverse of ParseWorkingDays.
func FormatWorkingDays(days []time.Weekday) string {
	names := make([]string, 0, len(days))
	for _, d := range days {
		names = append(names, strings.ToUpper(d.String()))
	}
	return strings.Join(names, ",")
}

// Facility is a named sub-resource of an item rentable for an exclusive
// date range, e.g. a room or a campsite.  Capacity is the number of
// concurrent occupants a day may carry; it defaults to 1 (disjoint
// ranges).
type Facility struct {
	ID             uint64 // facilities.id
	ItemID         uint64 // facilities.item_id
	Name           string // facilities.name
	Capacity       uint32 // facilities.capacity
	DailyRateCents uint32 // facilities.daily_rate_cents
}

// ItemActivity is a priced add-on a guest may attach to a booking.
// Pricing is simple multiplication; activities carry no concurrency
// constraint.
type ItemActivity struct {
	ID         uint64 // item_activities.id
	ItemID     uint64 // item_activities.item_id
	Name       string // item_activities.name
	PriceCents uint32 // item_activities.price_cents
}
