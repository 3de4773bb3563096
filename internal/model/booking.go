package model

import "time"

// Booking statuses.  A booking is never deleted, only transitioned.
const (
	BookingPending   = "PENDING"
	BookingConfirmed = "CONFIRMED"
	BookingCancelled = "CANCELLED"
	BookingCompleted = "COMPLETED"
)

// Payment leg statuses carried on the booking row.
const (
	PaymentPending   = "PENDING"
	PaymentPaid      = "PAID"
	PaymentCompleted = "COMPLETED"
	PaymentFailed    = "FAILED"
)

// RescheduleLockout is the minimum notice before an existing visit date
// during which the date can no longer be moved.
const RescheduleLockout = 48 * time.Hour

// Booking records one reservation attempt against an item.  Status and
// PaymentStatus are mutated only by the reservation flow and the
// payment reconciler.
//
// Fields:
//  ID               – primary key identifier.
//  ItemID           – item being booked.
//  UserID           – guest who created the booking.
//  VisitDate        – chosen visit date; nil until set.
//  SlotsBooked      – units of capacity consumed (>= 1).
//  Status           – PENDING, CONFIRMED, CANCELLED or COMPLETED.
//  PaymentStatus    – PENDING, PAID, COMPLETED or FAILED.
//  HostConfirmed    – host has acknowledged the booking (triage flag,
//                     no capacity effect).
//  CheckedIn        – guest arrival has been verified.
//  CheckedInAt/By   – when and by whom the arrival was recorded.
//  TotalAmountCents – full price including facilities and activities.
type Booking struct {
	ID               uint64     // bookings.id
	ItemID           uint64     // bookings.item_id
	UserID           uint64     // bookings.user_id
	VisitDate        *time.Time // bookings.visit_date (nullable)
	SlotsBooked      uint32     // bookings.slots_booked
	Status           string     // bookings.status
	PaymentStatus    string     // bookings.payment_status
	HostConfirmed    bool       // bookings.host_confirmed
	CheckedIn        bool       // bookings.checked_in
	CheckedInAt      *time.Time // bookings.checked_in_at (nullable)
	CheckedInBy      *uint64    // bookings.checked_in_by (nullable)
	TotalAmountCents uint32     // bookings.total_amount_cents
	CreatedAt        time.Time  // bookings.created_at
	UpdatedAt        time.Time  // bookings.updated_at
}

// Counted reports whether the booking consumes capacity.  Pending
// bookings count so a slot cannot be sold twice while a payment is in
// flight; cancelled bookings release immediately.
func (b Booking) Counted() bool { return b.Status != BookingCancelled }

// WithinRescheduleLockout reports whether now is too close to the
// current visit date for the date to be moved.  Bookings without a
// visit date are never locked out.
func (b Booking) WithinRescheduleLockout(now time.Time) bool {
	if b.VisitDate == nil {
		return false
	}
	return b.VisitDate.Sub(now) < RescheduleLockout
}

// FacilityReservation rents a facility for an inclusive day range on
// behalf of a booking.  Ranges of cancelled bookings are excluded from
// overlap checks.
type FacilityReservation struct {
	ID          uint64    // facility_reservations.id
	BookingID   uint64    // facility_reservations.booking_id
	ItemID      uint64    // facility_reservations.item_id
	FacilityID  uint64    // facility_reservations.facility_id
	StartDate   time.Time // facility_reservations.start_date
	EndDate     time.Time // facility_reservations.end_date
	AmountCents uint32    // facility_reservations.amount_cents
}

// BilledDays returns the number of days charged for the inclusive span.
// A same-day rental bills one day; malformed spans bill nothing.
func (fr FacilityReservation) BilledDays() uint32 {
	if fr.EndDate.Before(fr.StartDate) {
		return 0
	}
	return uint32(fr.EndDate.Sub(fr.StartDate).Hours()/24) + 1
}

// ActivitySelection attaches a quantity of a priced add-on to a
// booking.
type ActivitySelection struct {
	ID             uint64 // booking_activities.id
	BookingID      uint64 // booking_activities.booking_id
	ActivityName   string // booking_activities.activity_name
	UnitPriceCents uint32 // booking_activities.unit_price_cents
	Quantity       uint32 // booking_activities.quantity
}

// RescheduleAudit records one visit-date change for a booking.  The old
// date is nil when the change set a date for the first time.
type RescheduleAudit struct {
	ID           uint64     // booking_reschedules.id
	BookingID    uint64     // booking_reschedules.booking_id
	ActorID      uint64     // booking_reschedules.actor_id
	OldVisitDate *time.Time // booking_reschedules.old_visit_date (nullable)
	NewVisitDate time.Time  // booking_reschedules.new_visit_date
	CreatedAt    time.Time  // booking_reschedules.created_at
}
