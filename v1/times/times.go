// Package times provides the time formatting helpers shared by the examples
// and cache payloads: fixed layouts and a configurable default zone that
// falls back to UTC+8.
package times

import "time"

// Layouts accepted and produced by this package.
const (
	DateTime = "2006-01-02 15:04:05"
	DateOnly = "2006-01-02"
	TimeOnly = "15:04:05"
)

// DefaultZone is the zone used when callers pass a nil location.
var DefaultZone = time.FixedZone("UTC+8", 8*60*60)

// Now returns the current time in loc, or DefaultZone when loc is nil.
func Now(loc *time.Location) time.Time {
	return time.Now().In(zone(loc))
}

// FromUnix converts a Unix timestamp in seconds to a time in loc. A negative
// timestamp yields the current time.
func FromUnix(sec int64, loc *time.Location) time.Time {
	if sec < 0 {
		return Now(loc)
	}
	return time.Unix(sec, 0).In(zone(loc))
}

// Parse parses value using layout in loc. An empty layout means DateTime.
func Parse(layout, value string, loc *time.Location) (time.Time, error) {
	if layout == "" {
		layout = DateTime
	}
	return time.ParseInLocation(layout, value, zone(loc))
}

// Format renders t in loc using layout. An empty layout means DateTime.
func Format(t time.Time, layout string, loc *time.Location) string {
	if layout == "" {
		layout = DateTime
	}
	return t.In(zone(loc)).Format(layout)
}

func zone(loc *time.Location) *time.Location {
	if loc == nil {
		return DefaultZone
	}
	return loc
}
