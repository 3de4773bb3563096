package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/adventure-site-booking/internal/capacity"
	"github.com/iliyamo/adventure-site-booking/internal/repository"
)

// AvailabilityHandler serves public remaining-slot reads off the
// derived counters.
type AvailabilityHandler struct {
	items        *repository.ItemRepo
	availability *repository.AvailabilityRepo
}

// NewAvailabilityHandler wires the handler with its repositories.
func NewAvailabilityHandler(items *repository.ItemRepo, availability *repository.AvailabilityRepo) *AvailabilityHandler {
	return &AvailabilityHandler{items: items, availability: availability}
}

// GetAvailability returns the booked and remaining slots of an item,
// scoped to a visit date when the date query parameter is present. A
// remaining value of -1 means unlimited.
func (h *AvailabilityHandler) GetAvailability(c echo.Context) error {
	itemID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid item id"})
	}
	ctx := c.Request().Context()

	item, err := h.items.GetByID(ctx, itemID)
	if err != nil {
		return errorResponse(c, err)
	}

	var date *time.Time
	if raw := c.QueryParam("date"); raw != "" {
		d, err := parseDate(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date, expected YYYY-MM-DD"})
		}
		date = &d
	}

	booked, err := h.availability.BookedForOrRecompute(ctx, itemID, date)
	if err != nil {
		return errorResponse(c, err)
	}
	remaining := capacity.Remaining(item, booked)
	// -1 means unlimited on the wire; oversold states clamp to zero so
	// clients never see a negative count of open slots.
	wireRemaining := remaining
	if remaining == capacity.Unlimited {
		wireRemaining = -1
	} else if remaining < 0 {
		wireRemaining = 0
	}

	resp := echo.Map{
		"item_id":      itemID,
		"booked_slots": booked,
		"remaining":    wireRemaining,
		"sold_out":     capacity.SoldOut(item, booked),
	}
	if date != nil {
		resp["date"] = date.Format(dateLayout)
	}
	return c.JSON(http.StatusOK, resp)
}
