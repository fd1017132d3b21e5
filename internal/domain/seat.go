package domain

import "time"

type SeatStatus string

const (
	SeatStatusAvailable SeatStatus = "available"
	SeatStatusHeld      SeatStatus = "held"
	SeatStatusReserved  SeatStatus = "reserved"
	SeatStatusSold      SeatStatus = "sold"
	SeatStatusBlocked   SeatStatus = "blocked"
)

// Seat is one physical position in a venue. A Held or Reserved seat carries a
// holder and an expiry; when the expiry elapses the seat is logically
// available again even before any row is rewritten.
type Seat struct {
	ID                   string
	VenueID              string
	Label                string
	Status               SeatStatus
	CurrentHolder        string
	CurrentReservationID string
	ReservedUntil        time.Time
}

// HeldBy reports whether holder has a live hold on the seat at now.
func (s Seat) HeldBy(holder string, now time.Time) bool {
	if s.Status != SeatStatusHeld && s.Status != SeatStatusReserved {
		return false
	}
	return s.CurrentHolder == holder && s.ReservedUntil.After(now)
}

// Lockable reports whether a new hold may be placed at now: the seat is
// available, or carries a hold whose expiry has already elapsed.
func (s Seat) Lockable(now time.Time) bool {
	switch s.Status {
	case SeatStatusAvailable:
		return true
	case SeatStatusHeld:
		return !s.ReservedUntil.After(now)
	default:
		return false
	}
}
