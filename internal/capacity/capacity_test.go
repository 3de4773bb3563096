package capacity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/adventure-site-booking/internal/model"
)

func cap32(v uint32) *uint32 { return &v }

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func dayPtr(s string) *time.Time { d := day(s); return &d }

func TestRemainingInventory(t *testing.T) {
	item := model.Item{LimitType: model.LimitInventory, TotalCapacity: cap32(10)}
	assert.Equal(t, 10, Remaining(item, 0))
	assert.Equal(t, 3, Remaining(item, 7))
	assert.Equal(t, 0, Remaining(item, 10))
	// An oversold state (possible only through repair scenarios) goes negative
	// rather than wrapping.
	assert.Equal(t, -2, Remaining(item, 12))
}

func TestRemainingOversoldIsNotUnlimited(t *testing.T) {
	// Oversold by exactly one: the remaining value must stay a real
	// negative number, never the unlimited sentinel, so admission and
	// sold-out reporting keep rejecting.
	item := model.Item{LimitType: model.LimitInventory, TotalCapacity: cap32(2)}
	rem := Remaining(item, 3)
	assert.Equal(t, -1, rem)
	assert.NotEqual(t, Unlimited, rem)
	assert.False(t, Fits(rem, 1))
	assert.False(t, Fits(rem, 1000))
	assert.True(t, SoldOut(item, 3))
}

func TestRemainingInventoryUnlimited(t *testing.T) {
	item := model.Item{LimitType: model.LimitInventory, TotalCapacity: nil}
	assert.Equal(t, Unlimited, Remaining(item, 9999))
	assert.False(t, SoldOut(item, 9999))
}

func TestRemainingPerBookingIndependent(t *testing.T) {
	// Two sequential bookings each requesting the full capacity must both
	// fit: per-booking capacity is not cumulative.
	item := model.Item{LimitType: model.LimitPerBooking, TotalCapacity: cap32(5)}
	assert.Equal(t, 5, Remaining(item, 0))
	assert.Equal(t, 5, Remaining(item, 5))
	assert.True(t, Fits(Remaining(item, 5), 5))
	assert.False(t, Fits(Remaining(item, 0), 6))
}

func TestRemainingPerBookingExempt(t *testing.T) {
	assert.Equal(t, Unlimited, Remaining(model.Item{LimitType: model.LimitPerBooking}, 0))
	assert.Equal(t, Unlimited, Remaining(model.Item{LimitType: model.LimitPerBooking, TotalCapacity: cap32(0)}, 0))
	assert.True(t, model.Item{LimitType: model.LimitPerBooking}.CapacityExempt())
	assert.False(t, model.Item{LimitType: model.LimitInventory}.CapacityExempt())
}

func TestSumScopedExcludesCancelled(t *testing.T) {
	d := dayPtr("2025-06-01")
	bookings := []model.Booking{
		{ID: 1, Status: model.BookingPending, SlotsBooked: 2, VisitDate: d},
		{ID: 2, Status: model.BookingConfirmed, SlotsBooked: 3, VisitDate: d},
		{ID: 3, Status: model.BookingCancelled, SlotsBooked: 4, VisitDate: d},
	}
	// Pending counts (holds the slot while payment is in flight); cancelled
	// never counts.
	assert.Equal(t, uint32(5), SumScoped(bookings, d, 0))
}

func TestSumScopedDateAxis(t *testing.T) {
	bookings := []model.Booking{
		{ID: 1, Status: model.BookingConfirmed, SlotsBooked: 2, VisitDate: dayPtr("2025-06-01")},
		{ID: 2, Status: model.BookingConfirmed, SlotsBooked: 3, VisitDate: dayPtr("2025-06-02")},
		{ID: 3, Status: model.BookingConfirmed, SlotsBooked: 1, VisitDate: nil},
	}
	assert.Equal(t, uint32(2), SumScoped(bookings, dayPtr("2025-06-01"), 0))
	assert.Equal(t, uint32(3), SumScoped(bookings, dayPtr("2025-06-02"), 0))
	// No date scope: everything non-cancelled counts, dated or not.
	assert.Equal(t, uint32(6), SumScoped(bookings, nil, 0))
}

func TestSumScopedExcludesOwnBooking(t *testing.T) {
	d := dayPtr("2025-06-01")
	bookings := []model.Booking{
		{ID: 1, Status: model.BookingConfirmed, SlotsBooked: 2, VisitDate: d},
		{ID: 2, Status: model.BookingConfirmed, SlotsBooked: 1, VisitDate: d},
	}
	// Rescheduling booking 1 onto the same date must not count it twice.
	assert.Equal(t, uint32(1), SumScoped(bookings, d, 1))
}

// Scenario from the availability contract: capacity 2, booking A takes both
// slots, B is rejected, A cancels, B fits again.
func TestCancelReleasesCapacity(t *testing.T) {
	item := model.Item{LimitType: model.LimitInventory, TotalCapacity: cap32(2)}
	d := dayPtr("2025-06-01")

	a := model.Booking{ID: 1, Status: model.BookingConfirmed, SlotsBooked: 2, VisitDate: d}
	set := []model.Booking{a}

	require.False(t, Fits(Remaining(item, SumScoped(set, d, 0)), 1), "B must be rejected while A holds both slots")
	assert.True(t, SoldOut(item, SumScoped(set, d, 0)))

	set[0].Status = model.BookingCancelled
	require.Equal(t, 2, Remaining(item, SumScoped(set, d, 0)))
	assert.True(t, Fits(Remaining(item, SumScoped(set, d, 0)), 1))
}

// Sequential admission against a shared sum: with capacity C, exactly C
// single-slot requests are admitted and the rest observe a full date.
func TestNoOversellSequential(t *testing.T) {
	const c = 3
	item := model.Item{LimitType: model.LimitInventory, TotalCapacity: cap32(c)}
	d := dayPtr("2025-07-10")

	var set []model.Booking
	admitted := 0
	for i := 0; i < 10; i++ {
		if Fits(Remaining(item, SumScoped(set, d, 0)), 1) {
			set = append(set, model.Booking{ID: uint64(i + 1), Status: model.BookingPending, SlotsBooked: 1, VisitDate: d})
			admitted++
		}
	}
	assert.Equal(t, c, admitted)
}
