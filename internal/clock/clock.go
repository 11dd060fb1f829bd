// Package clock provides the reference-timezone calendar used for daily
// quota accounting. The remote service resets its daily budget at midnight
// in a fixed zone, so day boundaries are computed there, not in UTC or
// the host's local zone.
package clock

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Clock answers time and calendar questions for quota accounting.
type Clock interface {
	// NowUTC returns the current instant in UTC.
	NowUTC() time.Time

	// Today returns the current calendar date (YYYY-MM-DD) in the
	// reference timezone.
	Today() string

	// DateChanged reports whether the reference-timezone date has moved on
	// from stored, and returns the current date.
	DateChanged(stored string) (bool, string)

	// Zone returns the IANA name of the reference timezone.
	Zone() string

	// FormatLocal renders a UTC instant in the reference timezone for
	// display, including the zone abbreviation (PST/PDT and friends).
	FormatLocal(t time.Time) string

	// NextMidnight returns the next midnight in the reference timezone.
	NextMidnight() time.Time

	// UntilMidnight returns the duration until the next reference-timezone
	// midnight.
	UntilMidnight() time.Duration
}

// zoneClock is the production Clock backed by an IANA timezone.
type zoneClock struct {
	loc *time.Location
	now func() time.Time
}

// New loads the named IANA zone and returns a Clock keyed to it. Loading the
// zone once up front means DST transitions are handled by the tz database,
// not by a fixed offset.
func New(zone string) (Clock, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", zone, err)
	}
	return &zoneClock{loc: loc, now: time.Now}, nil
}

// NewFixed returns a Clock whose current instant is supplied by now; used in
// tests to pin the calendar.
func NewFixed(zone string, now func() time.Time) (Clock, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", zone, err)
	}
	return &zoneClock{loc: loc, now: now}, nil
}

func (c *zoneClock) NowUTC() time.Time {
	return c.now().UTC()
}

func (c *zoneClock) Today() string {
	return c.now().In(c.loc).Format(dateLayout)
}

func (c *zoneClock) DateChanged(stored string) (bool, string) {
	current := c.Today()
	return stored != current, current
}

func (c *zoneClock) Zone() string {
	return c.loc.String()
}

func (c *zoneClock) FormatLocal(t time.Time) string {
	return t.In(c.loc).Format("2006-01-02 15:04:05 MST")
}

func (c *zoneClock) NextMidnight() time.Time {
	local := c.now().In(c.loc)
	y, m, d := local.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, c.loc)
}

func (c *zoneClock) UntilMidnight() time.Duration {
	return c.NextMidnight().Sub(c.now())
}
