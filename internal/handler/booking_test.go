package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/adventure-site-booking/internal/model"
	"github.com/iliyamo/adventure-site-booking/internal/repository"
)

type testValidator struct{ v *validator.Validate }

func (tv *testValidator) Validate(i interface{}) error { return tv.v.Struct(i) }

func strPtr(s string) *string { return &s }

func futureWorkingItem() model.Item {
	return model.Item{
		ID:        1,
		LimitType: model.LimitInventory,
		WorkingDays: []time.Weekday{
			time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
			time.Friday, time.Saturday, time.Sunday,
		},
	}
}

func TestResolveVisitDateFixedDateItem(t *testing.T) {
	fixed := time.Date(2027, 7, 10, 0, 0, 0, 0, time.UTC)
	item := model.Item{ID: 1, LimitType: model.LimitInventory, FixedDate: &fixed}

	// No date in the request: pinned to the item's date.
	got, err := resolveVisitDate(item, nil)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Equal(fixed))

	// Matching explicit date is accepted.
	got, err = resolveVisitDate(item, strPtr("2027-07-10"))
	require.NoError(t, err)
	assert.True(t, got.Equal(fixed))

	// Mismatching explicit date is rejected.
	_, err = resolveVisitDate(item, strPtr("2027-07-11"))
	assert.ErrorIs(t, err, repository.ErrInvalidDate)
}

func TestResolveVisitDateScheduleItem(t *testing.T) {
	item := futureWorkingItem()

	// No date requested: the booking starts dateless.
	got, err := resolveVisitDate(item, nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	// A future date on the schedule is accepted.
	future := today().AddDate(0, 1, 0).Format(dateLayout)
	got, err = resolveVisitDate(item, strPtr(future))
	require.NoError(t, err)
	require.NotNil(t, got)

	// Dates in the past are always rejected.
	_, err = resolveVisitDate(item, strPtr("2020-01-01"))
	assert.ErrorIs(t, err, repository.ErrInvalidDate)

	// Garbage is rejected.
	_, err = resolveVisitDate(item, strPtr("not-a-date"))
	assert.ErrorIs(t, err, repository.ErrInvalidDate)
}

func TestResolveVisitDateOffScheduleDay(t *testing.T) {
	item := model.Item{
		ID:          1,
		LimitType:   model.LimitInventory,
		WorkingDays: []time.Weekday{time.Saturday},
	}
	// Find the next Monday; the item only operates Saturdays.
	d := today().AddDate(0, 0, 14)
	for d.Weekday() != time.Monday {
		d = d.AddDate(0, 0, 1)
	}
	_, err := resolveVisitDate(item, strPtr(d.Format(dateLayout)))
	assert.ErrorIs(t, err, repository.ErrInvalidDate)
}

func newTestContext(t *testing.T) echo.Context {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec)
}

func TestGetUserIDAcceptedTypes(t *testing.T) {
	cases := []struct {
		name  string
		value interface{}
		want  uint64
	}{
		{"uint64", uint64(7), 7},
		{"int", int(7), 7},
		{"int64", int64(7), 7},
		{"jwt float64", float64(7), 7},
		{"numeric string", "7", 7},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestContext(t)
			c.Set("user_id", tc.value)
			got, err := getUserID(c)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGetUserIDRejectsGarbage(t *testing.T) {
	c := newTestContext(t)
	c.Set("user_id", "not-a-number")
	_, err := getUserID(c)
	assert.Error(t, err)

	c = newTestContext(t)
	_, err = getUserID(c)
	assert.Error(t, err)
}

var itemCols = []string{
	"id", "host_id", "name", "limit_type", "total_capacity", "working_days",
	"fixed_date", "price_cents", "created_at", "updated_at",
}

func newBookingFixture(t *testing.T) (*BookingHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	h := NewBookingHandler(
		repository.NewItemRepo(db),
		repository.NewBookingRepo(db),
		repository.NewFacilityReservationRepo(db),
		repository.NewAvailabilityRepo(db),
		repository.NewPaymentRepo(db),
	)
	return h, mock
}

func newCreateContext(t *testing.T, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	e.Validator = &testValidator{v: validator.New()}
	req := httptest.NewRequest(http.MethodPost, "/v1/items/1/bookings", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("1")
	c.Set("user_id", uint64(7))
	return c, rec
}

// Two overlapping ranges for the same capacity-1 facility in one
// request must conflict with each other even when the facility has no
// committed reservations at all.
func TestCreateBookingRejectsOverlappingRangesWithinRequest(t *testing.T) {
	h, mock := newBookingFixture(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM items WHERE id = (.+) FOR UPDATE").
		WillReturnRows(sqlmock.NewRows(itemCols).
			AddRow(1, 9, "Lodge", model.LimitPerBooking, nil, "", nil, 0, now, now))
	mock.ExpectQuery("FROM facilities").
		WillReturnRows(sqlmock.NewRows([]string{"id", "item_id", "name", "capacity", "daily_rate_cents"}).
			AddRow(5, 1, "Sauna", 1, 0))
	mock.ExpectQuery("FROM facility_reservations fr").
		WillReturnRows(sqlmock.NewRows([]string{"start_date", "end_date"}))
	mock.ExpectQuery("FROM facilities").
		WillReturnRows(sqlmock.NewRows([]string{"id", "item_id", "name", "capacity", "daily_rate_cents"}).
			AddRow(5, 1, "Sauna", 1, 0))
	mock.ExpectQuery("FROM facility_reservations fr").
		WillReturnRows(sqlmock.NewRows([]string{"start_date", "end_date"}))
	mock.ExpectRollback()

	body := `{"slots":1,"facilities":[
		{"name":"Sauna","start_date":"2027-01-01","end_date":"2027-01-05"},
		{"name":"Sauna","start_date":"2027-01-04","end_date":"2027-01-10"}]}`
	c, rec := newCreateContext(t, body)

	require.NoError(t, h.CreateBooking(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Slot counts large enough to wrap 32-bit price arithmetic die at
// validation, long before any admission or pricing runs.
func TestCreateBookingRejectsWrappingSlotCount(t *testing.T) {
	h, mock := newBookingFixture(t)

	// 100 * 42_949_673 is 4 modulo 2^32; nothing may reach the database.
	c, rec := newCreateContext(t, `{"slots":42949673}`)

	require.NoError(t, h.CreateBooking(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestErrorResponseStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{repository.ErrItemNotFound, http.StatusNotFound},
		{repository.ErrBookingNotFound, http.StatusNotFound},
		{repository.ErrForbidden, http.StatusForbidden},
		{repository.ErrCapacityExceeded, http.StatusConflict},
		{repository.ErrFacilityConflict, http.StatusConflict},
		{repository.ErrDateFullyBooked, http.StatusConflict},
		{repository.ErrWithinLockoutWindow, http.StatusUnprocessableEntity},
		{repository.ErrNotEligible, http.StatusUnprocessableEntity},
		{repository.ErrInvalidDate, http.StatusBadRequest},
		{repository.ErrInvalidSlotCount, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)
			require.NoError(t, errorResponse(c, tc.err))
			assert.Equal(t, tc.code, rec.Code)
		})
	}
}
