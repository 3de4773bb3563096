package handler // handler defines http handlers

import (
	"errors"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

// dateLayout is the wire format for visit dates and facility ranges.
const dateLayout = "2006-01-02"

// getUserID extracts the user_id from echo.Context and converts it to
// uint64.  JWT claims decode numbers as float64, so several runtime
// types are accepted.
func getUserID(c echo.Context) (uint64, error) {
	v := c.Get("user_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// parseDate parses a YYYY-MM-DD string into a UTC midnight time.
func parseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}

// formatDate renders a nullable visit date for responses.
func formatDate(d *time.Time) *string {
	if d == nil {
		return nil
	}
	s := d.UTC().Format(dateLayout)
	return &s
}

// today returns the current UTC date truncated to midnight, the floor
// for "not in the past" checks.
func today() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// Health is a simple health-check endpoint used by load balancers and
// monitoring systems to verify that the service is running.
func Health(c echo.Context) error {
	return c.String(200, "ok")
}
