// Package matcher decides whether a profile's daily departure time falls on the
// minute being evaluated.
//
// Only hour and minute are compared. Both sides must already be expressed in the
// deployment's timezone; ParseDepartureTime does that normalization for stored
// values.
package matcher

import (
	"fmt"
	"time"

	"github.com/JNewman-cell/GoogleCloudFunction/internal/domain"
)

// IsDue reports whether now and departure share the same hour and minute.
// The date component is never compared.
func IsDue(now, departure time.Time) bool {
	return now.Hour() == departure.Hour() && now.Minute() == departure.Minute()
}

// layouts accepted for a stored departure time, tried in order.
var layouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"15:04",
}

// ParseDepartureTime parses a stored departure time into loc. Values carrying an
// offset are converted into loc; values without one are read as wall-clock time
// in loc.
func ParseDepartureTime(raw string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range layouts {
		t, err := time.ParseInLocation(layout, raw, loc)
		if err == nil {
			return t.In(loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", domain.ErrInvalidDepartureTime, raw)
}

// MinuteOn returns the minute hhmm ("15:04") on the calendar day of day, in
// day's location. It backs manual triggers that evaluate a chosen minute.
func MinuteOn(day time.Time, hhmm string) (time.Time, error) {
	clock, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid minute %q: want HH:MM", hhmm)
	}
	y, m, d := day.Date()
	return time.Date(y, m, d, clock.Hour(), clock.Minute(), 0, 0, day.Location()), nil
}
