package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseWorkingDays(t *testing.T) {
	assert.Equal(t, []time.Weekday{time.Monday, time.Friday}, ParseWorkingDays("MONDAY,FRIDAY"))
	assert.Equal(t, []time.Weekday{time.Saturday}, ParseWorkingDays(" saturday "))
	assert.Nil(t, ParseWorkingDays(""))
	// Unknown names are dropped, never prefix-matched.
	assert.Nil(t, ParseWorkingDays("MON,FRI"))
	assert.Equal(t, []time.Weekday{time.Sunday}, ParseWorkingDays("MON,SUNDAY"))
}

func TestFormatWorkingDaysRoundTrip(t *testing.T) {
	days := []time.Weekday{time.Tuesday, time.Thursday}
	assert.Equal(t, "TUESDAY,THURSDAY", FormatWorkingDays(days))
	assert.Equal(t, days, ParseWorkingDays(FormatWorkingDays(days)))
}

func TestAllowsDate(t *testing.T) {
	// 2025-06-02 is a Monday.
	monday, _ := time.Parse("2006-01-02", "2025-06-02")
	tuesday := monday.AddDate(0, 0, 1)

	open := Item{WorkingDays: ParseWorkingDays("MONDAY,WEDNESDAY")}
	assert.True(t, open.AllowsDate(monday))
	assert.False(t, open.AllowsDate(tuesday))

	// Empty set opens every day.
	assert.True(t, Item{}.AllowsDate(tuesday))
}
