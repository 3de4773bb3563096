package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/adventure-site-booking/internal/repository"
)

// CheckInHandler records guest arrivals.  The host presents a booking
// reference scanned on site; everything else is re-read from the
// database, never trusted from the scan.
type CheckInHandler struct {
	items    *repository.ItemRepo
	bookings *repository.BookingRepo
}

// NewCheckInHandler wires the handler with its repositories.
func NewCheckInHandler(items *repository.ItemRepo, bookings *repository.BookingRepo) *CheckInHandler {
	return &CheckInHandler{items: items, bookings: bookings}
}

// CheckIn verifies arrival for a booking.  Eligibility (confirmed,
// paid, not yet checked in) is enforced by a single conditional update,
// so concurrent scans of the same reference admit exactly one; a replay
// reports the original check-in instead of failing.
func (h *CheckInHandler) CheckIn(c echo.Context) error {
	hostID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}

	ctx := c.Request().Context()
	tx, err := h.bookings.DB().BeginTx(ctx, nil)
	if err != nil {
		return errorResponse(c, err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	booking, err := h.bookings.GetForUpdateTx(ctx, tx, bookingID)
	if err != nil {
		return errorResponse(c, err)
	}
	item, err := h.items.GetForUpdateTx(ctx, tx, booking.ItemID)
	if err != nil {
		return errorResponse(c, err)
	}
	if item.HostID != hostID {
		return errorResponse(c, repository.ErrForbidden)
	}

	now := time.Now().UTC()
	admitted, err := h.bookings.CheckInTx(ctx, tx, booking.ID, hostID, now)
	if err != nil {
		return errorResponse(c, err)
	}
	if err := tx.Commit(); err != nil {
		return errorResponse(c, err)
	}
	committed = true

	if admitted {
		return c.JSON(http.StatusOK, echo.Map{
			"id":            booking.ID,
			"checked_in":    true,
			"checked_in_at": now.Format(time.RFC3339),
		})
	}

	// The guard did not fire: either a replay or an ineligible booking.
	if booking.CheckedIn {
		var at string
		if booking.CheckedInAt != nil {
			at = booking.CheckedInAt.UTC().Format(time.RFC3339)
		}
		return c.JSON(http.StatusOK, echo.Map{
			"id":                 booking.ID,
			"checked_in":         true,
			"already_checked_in": true,
			"checked_in_at":      at,
		})
	}
	return errorResponse(c, repository.ErrNotEligible)
}
