package schedule

import (
	"time"

	"cloud.google.com/go/civil"
)

// Clock supplies the reference calendar day for one engine invocation
type Clock interface {
	Today() civil.Date
}

// SystemClock reads the wall clock in a reference timezone
type SystemClock struct {
	Location *time.Location
	now      func() time.Time
}

// NewSystemClock creates a clock for the given IANA timezone name
func NewSystemClock(timezone string) (*SystemClock, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, err
	}
	return &SystemClock{Location: loc, now: time.Now}, nil
}

// Today returns the current calendar day in the clock's timezone
func (c *SystemClock) Today() civil.Date {
	now := time.Now
	if c.now != nil {
		now = c.now
	}
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	return civil.DateOf(now().In(loc))
}

// FixedClock always reports the same day
type FixedClock civil.Date

// Today returns the fixed day
func (c FixedClock) Today() civil.Date {
	return civil.Date(c)
}
