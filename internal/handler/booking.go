package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/iliyamo/adventure-site-booking/internal/capacity"
	"github.com/iliyamo/adventure-site-booking/internal/model"
	"github.com/iliyamo/adventure-site-booking/internal/queue"
	"github.com/iliyamo/adventure-site-booking/internal/repository"
	queue_publisher "github.com/iliyamo/adventure-site-booking/internal/service"
)

// BookingHandler orchestrates the reservation flows: create,
// reschedule, cancel, host triage and listing.  Every capacity-affecting
// flow runs inside one database transaction that locks the item row
// first, so admission checks and writes form a single atomic unit.
type BookingHandler struct {
	items        *repository.ItemRepo
	bookings     *repository.BookingRepo
	facilities   *repository.FacilityReservationRepo
	availability *repository.AvailabilityRepo
	payments     *repository.PaymentRepo
}

// NewBookingHandler wires the handler with its repositories.
func NewBookingHandler(items *repository.ItemRepo, bookings *repository.BookingRepo,
	facilities *repository.FacilityReservationRepo, availability *repository.AvailabilityRepo,
	payments *repository.PaymentRepo) *BookingHandler {
	return &BookingHandler{
		items:        items,
		bookings:     bookings,
		facilities:   facilities,
		availability: availability,
		payments:     payments,
	}
}

// errorResponse maps repository sentinels onto HTTP responses.
func errorResponse(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrItemNotFound),
		errors.Is(err, repository.ErrBookingNotFound),
		errors.Is(err, repository.ErrFacilityNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrCapacityExceeded),
		errors.Is(err, repository.ErrFacilityConflict),
		errors.Is(err, repository.ErrDateFullyBooked):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrNotEligible),
		errors.Is(err, repository.ErrWithinLockoutWindow):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrInvalidDate),
		errors.Is(err, repository.ErrInvalidSlotCount):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	log.WithError(err).Error("booking flow failed")
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

type facilityRangeRequest struct {
	Name      string `json:"name" validate:"required"`
	StartDate string `json:"start_date" validate:"required"`
	EndDate   string `json:"end_date" validate:"required"`
}

type activityRequest struct {
	ActivityID uint64 `json:"activity_id" validate:"required"`
	Quantity   uint32 `json:"quantity" validate:"required,min=1,max=1000"`
}

type createBookingRequest struct {
	VisitDate  *string                `json:"visit_date"`
	Slots      uint32                 `json:"slots" validate:"required,min=1,max=10000"`
	Facilities []facilityRangeRequest `json:"facilities" validate:"max=20,dive"`
	Activities []activityRequest      `json:"activities" validate:"max=50,dive"`
}

// maxAmountCents bounds every priced total.  Amounts are stored in
// uint32 columns; pricing is computed in uint64 and anything that
// would not fit is rejected instead of wrapping toward a free booking.
const maxAmountCents = uint64(1)<<32 - 1

// CreateBooking admits a new reservation against an item.
//
// The flow locks the item row, resolves the visit date, checks every
// requested facility range for conflicts, verifies remaining capacity,
// prices the booking and writes booking, facility reservations,
// activity selections, availability counters and (when a balance is
// due) a pending payment transaction atomically.  Zero-priced bookings
// confirm immediately; everything else stays PENDING until the payment
// callback arrives.
func (h *BookingHandler) CreateBooking(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	itemID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid item id"})
	}
	var req createBookingRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if req.Slots < 1 {
		return errorResponse(c, repository.ErrInvalidSlotCount)
	}

	ctx := c.Request().Context()
	tx, err := h.items.DB().BeginTx(ctx, nil)
	if err != nil {
		return errorResponse(c, err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	// Lock the item row: the serialization point for all capacity checks.
	item, err := h.items.GetForUpdateTx(ctx, tx, itemID)
	if err != nil {
		return errorResponse(c, err)
	}

	visitDate, err := resolveVisitDate(item, req.VisitDate)
	if err != nil {
		return errorResponse(c, err)
	}

	// Facility ranges: each requested range must be valid and free of
	// conflicts with the facility's active reservations.  Ranges already
	// admitted earlier in this request join the conflict set, so a
	// request cannot book a facility against itself either.
	reservations := make([]model.FacilityReservation, 0, len(req.Facilities))
	admitted := make(map[uint64][]capacity.DateRange)
	var facilityTotal uint64
	for _, fr := range req.Facilities {
		facility, err := h.items.FacilityByNameTx(ctx, tx, itemID, fr.Name)
		if err != nil {
			return errorResponse(c, err)
		}
		start, err1 := parseDate(fr.StartDate)
		end, err2 := parseDate(fr.EndDate)
		if err1 != nil || err2 != nil {
			return errorResponse(c, repository.ErrInvalidDate)
		}
		candidate := capacity.DateRange{Start: start, End: end}
		if !candidate.Valid() {
			return errorResponse(c, repository.ErrInvalidDate)
		}
		existing, err := h.facilities.ActiveRangesTx(ctx, tx, facility.ID)
		if err != nil {
			return errorResponse(c, err)
		}
		existing = append(existing, admitted[facility.ID]...)
		if capacity.HasConflict(existing, candidate, facility.Capacity) {
			return errorResponse(c, repository.ErrFacilityConflict)
		}
		admitted[facility.ID] = append(admitted[facility.ID], candidate)
		amount := uint64(facility.DailyRateCents) * uint64(candidate.Days())
		facilityTotal += amount
		if amount > maxAmountCents || facilityTotal > maxAmountCents {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "booking total out of range"})
		}
		reservations = append(reservations, model.FacilityReservation{
			ItemID:      itemID,
			FacilityID:  facility.ID,
			StartDate:   start,
			EndDate:     end,
			AmountCents: uint32(amount),
		})
	}

	// Capacity admission, skipped for capacity-exempt items.
	if !item.CapacityExempt() {
		booked, err := h.bookings.SumSlotsTx(ctx, tx, itemID, visitDate, 0)
		if err != nil {
			return errorResponse(c, err)
		}
		if !capacity.Fits(capacity.Remaining(item, booked), req.Slots) {
			return errorResponse(c, repository.ErrCapacityExceeded)
		}
	}

	// Pricing: base slots plus facilities plus priced activities, all in
	// uint64 so a crafted slot or quantity count cannot wrap the total
	// to zero and slip past the payment leg as a free booking.
	total := uint64(item.PriceCents) * uint64(req.Slots)
	total += facilityTotal
	selections := make([]model.ActivitySelection, 0, len(req.Activities))
	if len(req.Activities) > 0 {
		ids := make([]uint64, 0, len(req.Activities))
		for _, a := range req.Activities {
			ids = append(ids, a.ActivityID)
		}
		catalog, err := h.items.ActivitiesByIDsTx(ctx, tx, itemID, ids)
		if err != nil {
			return errorResponse(c, err)
		}
		for _, a := range req.Activities {
			activity, ok := catalog[a.ActivityID]
			if !ok {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown activity for this item"})
			}
			total += uint64(activity.PriceCents) * uint64(a.Quantity)
			selections = append(selections, model.ActivitySelection{
				ActivityName:   activity.Name,
				UnitPriceCents: activity.PriceCents,
				Quantity:       a.Quantity,
			})
		}
	}

	if total > maxAmountCents {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "booking total out of range"})
	}

	booking := model.Booking{
		ItemID:           itemID,
		UserID:           userID,
		VisitDate:        visitDate,
		SlotsBooked:      req.Slots,
		Status:           model.BookingPending,
		PaymentStatus:    model.PaymentPending,
		TotalAmountCents: uint32(total),
	}
	// Nothing to collect: confirm on the spot.
	if total == 0 {
		booking.Status = model.BookingConfirmed
		booking.PaymentStatus = model.PaymentPaid
	}
	if err := h.bookings.CreateTx(ctx, tx, &booking); err != nil {
		return errorResponse(c, err)
	}
	for i := range reservations {
		reservations[i].BookingID = booking.ID
	}
	if err := h.facilities.CreateBulkTx(ctx, tx, reservations); err != nil {
		return errorResponse(c, err)
	}
	for i := range selections {
		selections[i].BookingID = booking.ID
	}
	if err := h.bookings.CreateActivitiesBulkTx(ctx, tx, selections); err != nil {
		return errorResponse(c, err)
	}
	if err := h.availability.ApplyBookingTx(ctx, tx, itemID, visitDate, int64(req.Slots)); err != nil {
		return errorResponse(c, err)
	}

	var checkoutRef string
	if total > 0 {
		txn := model.PaymentTransaction{
			CheckoutRef: uuid.NewString(),
			BookingID:   booking.ID,
			AmountCents: uint32(total),
		}
		if err := h.payments.CreateTx(ctx, tx, &txn); err != nil {
			return errorResponse(c, err)
		}
		checkoutRef = txn.CheckoutRef
	}

	if err := tx.Commit(); err != nil {
		return errorResponse(c, err)
	}
	committed = true

	h.publish(c, queue.NotificationEvent{
		Event:            queue.EventBookingCreated,
		BookingID:        booking.ID,
		ItemID:           itemID,
		ItemName:         item.Name,
		UserID:           userID,
		HostID:           item.HostID,
		VisitDate:        dateString(visitDate),
		SlotsBooked:      req.Slots,
		TotalAmountCents: uint32(total),
		CheckoutRef:      checkoutRef,
	})
	if total == 0 {
		h.publish(c, queue.NotificationEvent{
			Event:     queue.EventBookingConfirmed,
			BookingID: booking.ID,
			ItemID:    itemID,
			UserID:    userID,
			HostID:    item.HostID,
			VisitDate: dateString(visitDate),
		})
	}

	resp := echo.Map{
		"id":                 booking.ID,
		"item_id":            itemID,
		"visit_date":         formatDate(visitDate),
		"slots_booked":       booking.SlotsBooked,
		"status":             booking.Status,
		"payment_status":     booking.PaymentStatus,
		"total_amount_cents": booking.TotalAmountCents,
	}
	if checkoutRef != "" {
		resp["checkout_reference"] = checkoutRef
	}
	return c.JSON(http.StatusCreated, resp)
}

// resolveVisitDate decides the booking's visit date from the item
// configuration and the request.  Fixed-date items pin the date; a
// mismatching explicit date is rejected.  Schedule-driven items accept
// any non-past working day, or no date at all.
func resolveVisitDate(item model.Item, raw *string) (*time.Time, error) {
	if item.FixedDate != nil {
		fixed := item.FixedDate.UTC()
		if raw != nil {
			d, err := parseDate(*raw)
			if err != nil || !d.Equal(fixed) {
				return nil, repository.ErrInvalidDate
			}
		}
		return &fixed, nil
	}
	if raw == nil {
		return nil, nil
	}
	d, err := parseDate(*raw)
	if err != nil {
		return nil, repository.ErrInvalidDate
	}
	if d.Before(today()) {
		return nil, repository.ErrInvalidDate
	}
	if !item.AllowsDate(d) {
		return nil, repository.ErrInvalidDate
	}
	return &d, nil
}

func dateString(d *time.Time) string {
	if d == nil {
		return ""
	}
	return d.UTC().Format(dateLayout)
}

// publish dispatches a notification event without letting a broker
// failure affect the response; the database commit already happened.
func (h *BookingHandler) publish(c echo.Context, event queue.NotificationEvent) {
	event.OccurredAt = time.Now().UTC().Format(time.RFC3339)
	if err := queue_publisher.PublishNotification(c.Request().Context(), event); err != nil {
		log.WithError(err).WithField("event", event.Event).Warn("notification publish failed")
	}
}

type rescheduleRequest struct {
	VisitDate string `json:"visit_date" validate:"required"`
}

// RescheduleBooking moves a booking to a new visit date, or sets the
// date for the first time.  Fixed-date items are not eligible, and a
// booking inside the 48-hour lockout before its current date cannot be
// moved.  Date-scoped capacity is re-checked against the target date
// with the booking's own slots excluded, so a booking can always keep
// its size when moving.
func (h *BookingHandler) RescheduleBooking(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	var req rescheduleRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	newDate, err := parseDate(req.VisitDate)
	if err != nil {
		return errorResponse(c, repository.ErrInvalidDate)
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
	if booking.UserID != userID {
		return errorResponse(c, repository.ErrForbidden)
	}
	if booking.Status == model.BookingCancelled {
		return errorResponse(c, repository.ErrNotEligible)
	}
	item, err := h.items.GetForUpdateTx(ctx, tx, booking.ItemID)
	if err != nil {
		return errorResponse(c, err)
	}
	if item.FixedDate != nil {
		return errorResponse(c, repository.ErrNotEligible)
	}
	if booking.WithinRescheduleLockout(time.Now().UTC()) {
		return errorResponse(c, repository.ErrWithinLockoutWindow)
	}
	if newDate.Before(today()) || !item.AllowsDate(newDate) {
		return errorResponse(c, repository.ErrInvalidDate)
	}
	if booking.VisitDate != nil && newDate.Equal(*booking.VisitDate) {
		return errorResponse(c, repository.ErrInvalidDate)
	}

	// Admission against the target date, with this booking's own slots
	// excluded from the sum so it competes only with other bookings.
	if !item.CapacityExempt() {
		booked, err := h.bookings.SumSlotsTx(ctx, tx, booking.ItemID, &newDate, booking.ID)
		if err != nil {
			return errorResponse(c, err)
		}
		if !capacity.Fits(capacity.Remaining(item, booked), booking.SlotsBooked) {
			return errorResponse(c, repository.ErrDateFullyBooked)
		}
	}

	oldDate := booking.VisitDate
	if err := h.bookings.SetVisitDateTx(ctx, tx, booking.ID, newDate); err != nil {
		return errorResponse(c, err)
	}
	if err := h.bookings.InsertRescheduleTx(ctx, tx, model.RescheduleAudit{
		BookingID:    booking.ID,
		ActorID:      userID,
		OldVisitDate: oldDate,
		NewVisitDate: newDate,
	}); err != nil {
		return errorResponse(c, err)
	}
	// Move the dated counters only; the overall counter is unaffected by
	// a date change.
	if oldDate != nil {
		if err := h.availability.ApplyTx(ctx, tx, booking.ItemID, oldDate, -int64(booking.SlotsBooked)); err != nil {
			return errorResponse(c, err)
		}
	}
	if err := h.availability.ApplyTx(ctx, tx, booking.ItemID, &newDate, int64(booking.SlotsBooked)); err != nil {
		return errorResponse(c, err)
	}

	if err := tx.Commit(); err != nil {
		return errorResponse(c, err)
	}
	committed = true

	event := queue.EventBookingRescheduled
	if oldDate == nil {
		event = queue.EventVisitDateSet
	}
	h.publish(c, queue.NotificationEvent{
		Event:        event,
		BookingID:    booking.ID,
		ItemID:       booking.ItemID,
		ItemName:     item.Name,
		UserID:       userID,
		HostID:       item.HostID,
		VisitDate:    newDate.Format(dateLayout),
		OldVisitDate: dateString(oldDate),
		SlotsBooked:  booking.SlotsBooked,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"id":             booking.ID,
		"visit_date":     newDate.Format(dateLayout),
		"old_visit_date": formatDate(oldDate),
		"first_set":      oldDate == nil,
	})
}

// CancelBooking transitions a booking to CANCELLED and releases its
// slots.  Cancelling an already-cancelled booking is a no-op that still
// returns success, and the counters are only released on the first
// transition.
func (h *BookingHandler) CancelBooking(c echo.Context) error {
	userID, err := getUserID(c)
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
	if booking.UserID != userID {
		return errorResponse(c, repository.ErrForbidden)
	}

	transitioned, err := h.bookings.CancelTx(ctx, tx, booking.ID)
	if err != nil {
		return errorResponse(c, err)
	}
	if transitioned {
		if err := h.availability.ApplyBookingTx(ctx, tx, booking.ItemID, booking.VisitDate, -int64(booking.SlotsBooked)); err != nil {
			return errorResponse(c, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errorResponse(c, err)
	}
	committed = true

	if transitioned {
		h.publish(c, queue.NotificationEvent{
			Event:       queue.EventBookingCancelled,
			BookingID:   booking.ID,
			ItemID:      booking.ItemID,
			UserID:      userID,
			VisitDate:   dateString(booking.VisitDate),
			SlotsBooked: booking.SlotsBooked,
		})
	}
	return c.NoContent(http.StatusNoContent)
}

// MarkHostSeen lets the item's host flag a booking as acknowledged.
// The flag is pure triage: setting it twice is harmless and it never
// touches capacity.
func (h *BookingHandler) MarkHostSeen(c echo.Context) error {
	hostID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	ctx := c.Request().Context()

	booking, err := h.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return errorResponse(c, err)
	}
	item, err := h.items.GetByID(ctx, booking.ItemID)
	if err != nil {
		return errorResponse(c, err)
	}
	if item.HostID != hostID {
		return errorResponse(c, repository.ErrForbidden)
	}
	if err := h.bookings.MarkHostSeen(ctx, bookingID); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"id": bookingID, "host_confirmed": true})
}

// ListBookings returns the caller's bookings, newest first.
func (h *BookingHandler) ListBookings(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	details, err := h.bookings.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": details})
}

// GetBooking returns one of the caller's bookings with its facility
// reservations attached.
func (h *BookingHandler) GetBooking(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	ctx := c.Request().Context()
	detail, err := h.bookings.GetByIDForUser(ctx, bookingID, userID)
	if err != nil {
		return errorResponse(c, err)
	}
	rentals, err := h.facilities.ListByBooking(ctx, bookingID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"booking": detail, "facilities": rentals})
}

// ListItemBookings returns every booking of an item for the host inbox.
func (h *BookingHandler) ListItemBookings(c echo.Context) error {
	hostID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	itemID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid item id"})
	}
	details, err := h.bookings.ListByItemForHost(c.Request().Context(), itemID, hostID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": details})
}
