package capacity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func rng(start, end string) DateRange {
	return DateRange{Start: day(start), End: day(end)}
}

func TestOverlaps(t *testing.T) {
	base := rng("2025-01-01", "2025-01-05")

	assert.True(t, Overlaps(base, rng("2025-01-04", "2025-01-10")), "partial overlap")
	assert.True(t, Overlaps(base, rng("2025-01-05", "2025-01-07")), "adjacent boundary day conflicts")
	assert.True(t, Overlaps(base, rng("2025-01-02", "2025-01-03")), "contained range")
	assert.True(t, Overlaps(base, rng("2024-12-30", "2025-01-08")), "containing range")
	assert.True(t, Overlaps(base, rng("2025-01-03", "2025-01-03")), "single day inside")
	assert.False(t, Overlaps(base, rng("2025-01-06", "2025-01-10")), "starts the day after")
	assert.False(t, Overlaps(base, rng("2024-12-20", "2024-12-31")), "ends the day before")
}

func TestHasConflictExclusiveFacility(t *testing.T) {
	existing := []DateRange{rng("2025-01-01", "2025-01-05")}

	assert.True(t, HasConflict(existing, rng("2025-01-04", "2025-01-10"), 1))
	assert.False(t, HasConflict(existing, rng("2025-01-06", "2025-01-10"), 1))
	assert.False(t, HasConflict(nil, rng("2025-01-01", "2025-01-05"), 1))
}

func TestHasConflictMalformedCandidate(t *testing.T) {
	assert.True(t, HasConflict(nil, rng("2025-01-10", "2025-01-06"), 1), "end before start is never admitted")
}

func TestHasConflictZeroCapacityDefaultsToOne(t *testing.T) {
	existing := []DateRange{rng("2025-01-01", "2025-01-05")}
	assert.True(t, HasConflict(existing, rng("2025-01-03", "2025-01-04"), 0))
}

func TestHasConflictSharedFacility(t *testing.T) {
	existing := []DateRange{
		rng("2025-01-01", "2025-01-05"),
		rng("2025-01-03", "2025-01-08"),
	}
	// Capacity 2: Jan 3-5 already carries two occupants, a third is rejected.
	assert.True(t, HasConflict(existing, rng("2025-01-04", "2025-01-06"), 2))
	// Capacity 3 admits it.
	assert.False(t, HasConflict(existing, rng("2025-01-04", "2025-01-06"), 3))
	// Capacity 2 still admits a range touching only one existing occupant.
	assert.False(t, HasConflict(existing, rng("2025-01-06", "2025-01-10"), 2))
}

func TestDays(t *testing.T) {
	assert.Equal(t, uint32(1), rng("2025-01-01", "2025-01-01").Days(), "same-day rental bills one day")
	assert.Equal(t, uint32(5), rng("2025-01-01", "2025-01-05").Days())
	assert.Equal(t, uint32(0), rng("2025-01-05", "2025-01-01").Days())
}
