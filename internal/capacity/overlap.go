package capacity

import "time"

// DateRange is an inclusive day range.  A reservation ending the day
// another begins conflicts with it: there is no same-day turnover.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Valid reports whether the range is well formed (end >= start).
// Malformed candidates must be rejected before conflict checking.
func (r DateRange) Valid() bool { return !r.End.Before(r.Start) }

// Days returns the number of days in the inclusive span, minimum 1 for
// a valid range.
func (r DateRange) Days() uint32 {
	if !r.Valid() {
		return 0
	}
	return uint32(r.End.Sub(r.Start).Hours()/24) + 1
}

// Overlaps reports whether two inclusive ranges share at least one day:
// s1 <= e2 && s2 <= e1.
func Overlaps(a, b DateRange) bool {
	return !a.Start.After(b.End) && !b.Start.After(a.End)
}

// HasConflict decides whether the candidate range can be admitted
// against the existing reservations of the same (item, facility).
// Callers must pass only ranges whose owning booking is not cancelled.
// A facility with capacity 1 requires disjoint ranges; a larger
// capacity admits the candidate as long as no single day would exceed
// the capacity including the candidate itself.
func HasConflict(existing []DateRange, candidate DateRange, facilityCapacity uint32) bool {
	if !candidate.Valid() {
		return true
	}
	if facilityCapacity == 0 {
		facilityCapacity = 1
	}
	if facilityCapacity == 1 {
		for _, r := range existing {
			if Overlaps(r, candidate) {
				return true
			}
		}
		return false
	}
	// Sweep each candidate day and count occupants.
	for d := candidate.Start; !d.After(candidate.End); d = d.AddDate(0, 0, 1) {
		occupants := uint32(1) // the candidate
		day := DateRange{Start: d, End: d}
		for _, r := range existing {
			if Overlaps(r, day) {
				occupants++
			}
		}
		if occupants > facilityCapacity {
			return true
		}
	}
	return false
}
