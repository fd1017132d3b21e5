package domain

import "time"

// Event is the parent aggregate for inventory units and seats.
type Event struct {
	ID       string
	Name     string
	VenueID  string
	StartsAt time.Time
}
