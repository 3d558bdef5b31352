package market

import "time"

type Session string

const (
	Asian   Session = "asian"
	London  Session = "london"
	NewYork Session = "newyork"
	Closed  Session = "closed"
)

// CurrentSession maps a UTC hour to the first matching trading session.
// Overlaps resolve in order asian, london, newyork.
func CurrentSession(t time.Time) Session {
	h := t.UTC().Hour()
	switch {
	case h >= 0 && h < 8:
		return Asian
	case h >= 7 && h < 16:
		return London
	case h >= 12 && h < 21:
		return NewYork
	default:
		return Closed
	}
}
