package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func at(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestWithinRescheduleLockout(t *testing.T) {
	now := at("2025-06-01T12:00:00Z")

	visit47 := at("2025-06-03T11:00:00Z") // 47h out
	visit49 := at("2025-06-03T13:00:00Z") // 49h out
	visit48 := at("2025-06-03T12:00:00Z") // exactly 48h out

	assert.True(t, Booking{VisitDate: &visit47}.WithinRescheduleLockout(now))
	assert.False(t, Booking{VisitDate: &visit49}.WithinRescheduleLockout(now))
	assert.False(t, Booking{VisitDate: &visit48}.WithinRescheduleLockout(now), "48h notice is still allowed")
	assert.False(t, Booking{}.WithinRescheduleLockout(now), "no visit date means no lockout")
}

func TestCounted(t *testing.T) {
	assert.True(t, Booking{Status: BookingPending}.Counted())
	assert.True(t, Booking{Status: BookingConfirmed}.Counted())
	assert.True(t, Booking{Status: BookingCompleted}.Counted())
	assert.False(t, Booking{Status: BookingCancelled}.Counted())
}

func TestBilledDays(t *testing.T) {
	d := func(s string) time.Time {
		v, _ := time.Parse("2006-01-02", s)
		return v
	}
	assert.Equal(t, uint32(1), FacilityReservation{StartDate: d("2025-01-01"), EndDate: d("2025-01-01")}.BilledDays())
	assert.Equal(t, uint32(5), FacilityReservation{StartDate: d("2025-01-01"), EndDate: d("2025-01-05")}.BilledDays())
	assert.Equal(t, uint32(0), FacilityReservation{StartDate: d("2025-01-05"), EndDate: d("2025-01-01")}.BilledDays())
}
