// Package repository defines error types that are reused across
// multiple repositories. These sentinel values allow higher layers such
// as handlers to distinguish between failure scenarios: validation
// problems map to 400, eligibility gates to 422, capacity and overlap
// conflicts to 409, ownership violations to 403.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own. Handlers should translate this into an
// HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrItemNotFound is returned when no item exists for the given ID.
var ErrItemNotFound = errors.New("item not found")

// ErrBookingNotFound is returned when no booking exists for the given
// ID (or it belongs to a different user when ownership is enforced).
var ErrBookingNotFound = errors.New("booking not found")

// ErrFacilityNotFound is returned when an item has no facility with the
// requested name.
var ErrFacilityNotFound = errors.New("facility not found")

// ErrCapacityExceeded signals that the requested slots do not fit in
// the remaining capacity for the scope. The caller may retry with a
// different date or fewer slots.
var ErrCapacityExceeded = errors.New("capacity exceeded")

// ErrFacilityConflict signals that a requested facility range overlaps
// an existing non-cancelled reservation.
var ErrFacilityConflict = errors.New("facility range conflict")

// ErrInvalidDate covers non-working-day visits, past dates and
// malformed facility ranges.
var ErrInvalidDate = errors.New("invalid date")

// ErrInvalidSlotCount is returned for a slot request below 1.
var ErrInvalidSlotCount = errors.New("invalid slot count")

// ErrNotEligible is returned when a booking's item does not support the
// requested transition, e.g. rescheduling a fixed-date event.
var ErrNotEligible = errors.New("not eligible")

// ErrWithinLockoutWindow is returned when a reschedule arrives with
// less than the required notice before the current visit date.
var ErrWithinLockoutWindow = errors.New("within reschedule lockout window")

// ErrDateFullyBooked is returned when a reschedule target date cannot
// absorb the booking's slots.
var ErrDateFullyBooked = errors.New("date fully booked")

// ErrEmailExists is returned when registering an email that is already
// taken.
var ErrEmailExists = errors.New("email already exists")
