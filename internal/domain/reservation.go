package domain

import "time"

type ReservationStatus string

const (
	ReservationStatusActive    ReservationStatus = "active"
	ReservationStatusConfirmed ReservationStatus = "confirmed"
	ReservationStatusCancelled ReservationStatus = "cancelled"
	ReservationStatusExpired   ReservationStatus = "expired"
	ReservationStatusReleased  ReservationStatus = "released"
)

// Terminal reports whether the status is one of the four end states.
func (s ReservationStatus) Terminal() bool {
	switch s {
	case ReservationStatusConfirmed, ReservationStatusCancelled, ReservationStatusExpired, ReservationStatusReleased:
		return true
	}
	return false
}

// LineItem is one inventory claim inside a reservation. SeatIDs is empty for
// general-admission items; for seated items len(SeatIDs) == Quantity.
type LineItem struct {
	InventoryUnitID string
	SeatIDs         []string
	Quantity        int
	UnitPriceCents  int64
}

// Reservation is a time-limited claim on inventory. It is created Active and
// ends in exactly one terminal transition; rows are retained afterward for audit.
type Reservation struct {
	ID          string
	EventID     string
	UserID      string
	Items       []LineItem
	Status      ReservationStatus
	ExpiresAt   time.Time
	CreatedAt   time.Time
	ConfirmedAt *time.Time
	CancelledAt *time.Time
}

// ExpiredAt reports whether the reservation's window has elapsed at now while
// it is still Active. Terminal reservations never expire.
func (r Reservation) ExpiredAt(now time.Time) bool {
	return r.Status == ReservationStatusActive && !r.ExpiresAt.After(now)
}

// SeatIDs returns every seat claimed across all line items.
func (r Reservation) SeatIDs() []string {
	var ids []string
	for _, item := range r.Items {
		ids = append(ids, item.SeatIDs...)
	}
	return ids
}

// Confirm returns the reservation in Confirmed state. Legal only from Active
// and only before the expiry instant.
func (r Reservation) Confirm(now time.Time) (Reservation, error) {
	if r.Status.Terminal() {
		return Reservation{}, ErrAlreadyTerminal
	}
	if r.ExpiredAt(now) {
		return Reservation{}, ErrReservationExpired
	}
	r.Status = ReservationStatusConfirmed
	ts := now.UTC()
	r.ConfirmedAt = &ts
	return r, nil
}

// Cancel returns the reservation in Cancelled state. Legal only from Active.
func (r Reservation) Cancel(now time.Time) (Reservation, error) {
	return r.terminate(ReservationStatusCancelled, now)
}

// Expire returns the reservation in Expired state. Legal only from Active and
// only once the expiry instant has passed.
func (r Reservation) Expire(now time.Time) (Reservation, error) {
	if r.Status.Terminal() {
		return Reservation{}, ErrAlreadyTerminal
	}
	if r.ExpiresAt.After(now) {
		return Reservation{}, ErrNotExpired
	}
	return r.terminate(ReservationStatusExpired, now)
}

// Release returns the reservation in Released state, the administrative
// equivalent of Cancel.
func (r Reservation) Release(now time.Time) (Reservation, error) {
	return r.terminate(ReservationStatusReleased, now)
}

func (r Reservation) terminate(to ReservationStatus, now time.Time) (Reservation, error) {
	if r.Status.Terminal() {
		return Reservation{}, ErrAlreadyTerminal
	}
	r.Status = to
	ts := now.UTC()
	r.CancelledAt = &ts
	return r, nil
}
