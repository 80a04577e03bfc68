// Package countdown computes the time left until a campaign deadline.
package countdown

import (
	"strconv"
	"time"
)

// Remaining is the time left split into whole units. All fields are zero once
// the deadline has passed.
type Remaining struct {
	Days    int
	Hours   int
	Minutes int
	Seconds int
}

// TimeRemaining returns the whole days, hours, minutes and seconds from now
// until deadline. Partial seconds are truncated.
func TimeRemaining(deadline, now time.Time) Remaining {
	d := deadline.Sub(now)
	if d <= 0 {
		return Remaining{}
	}

	secs := int64(d / time.Second)
	return Remaining{
		Days:    int(secs / 86400),
		Hours:   int(secs / 3600 % 24),
		Minutes: int(secs / 60 % 60),
		Seconds: int(secs % 60),
	}
}

// Zero reports whether no time is left.
func (r Remaining) Zero() bool {
	return r == Remaining{}
}

// Total converts r back to a duration.
func (r Remaining) Total() time.Duration {
	return time.Duration(r.Days)*24*time.Hour +
		time.Duration(r.Hours)*time.Hour +
		time.Duration(r.Minutes)*time.Minute +
		time.Duration(r.Seconds)*time.Second
}

var shortMonths = [...]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sept", "Oct", "Nov", "Dec"}

// ShortDate formats t as "24 Sept 2025" in t's location. The zero time
// formats as "".
func ShortDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return strconv.Itoa(t.Day()) + " " + shortMonths[t.Month()-1] + " " + strconv.Itoa(t.Year())
}
