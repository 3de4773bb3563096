// Package queue defines notification payloads exchanged over the
// message broker and the background consumer that dispatches them.
package queue

// Notification event names.  Payment events fire exactly once per
// transaction, guarded by the terminal-state transition; booking.created
// fires once per host-inbox insert.
const (
	EventBookingCreated     = "booking.created"
	EventBookingConfirmed   = "booking.confirmed"
	EventBookingCancelled   = "booking.cancelled"
	EventBookingRescheduled = "booking.rescheduled"
	EventVisitDateSet       = "booking.visit_date_set"
	EventPaymentFailed      = "payment.failed"
)

// NotificationEvent is published whenever a booking or payment reaches
// a state a guest or host should hear about.  It carries enough for
// downstream consumers to notify or log without querying the primary
// database.
type NotificationEvent struct {
	Event            string `json:"event"`
	BookingID        uint64 `json:"booking_id"`
	ItemID           uint64 `json:"item_id"`
	ItemName         string `json:"item_name,omitempty"`
	UserID           uint64 `json:"user_id"`
	HostID           uint64 `json:"host_id,omitempty"`
	VisitDate        string `json:"visit_date,omitempty"`
	OldVisitDate     string `json:"old_visit_date,omitempty"`
	SlotsBooked      uint32 `json:"slots_booked,omitempty"`
	TotalAmountCents uint32 `json:"total_amount_cents,omitempty"`
	CheckoutRef      string `json:"checkout_ref,omitempty"`
	OccurredAt       string `json:"occurred_at"`
}
