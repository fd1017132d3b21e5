package app

import (
	"context"
	"sync"
	"time"

	"github.com/ZekromNguyen/Block-Ticket-sub004/internal/clock"
	"github.com/ZekromNguyen/Block-Ticket-sub004/internal/domain"
)

// fakeInventoryStore applies conditional writes under a mutex, mimicking the
// atomicity of the single-statement UPDATE in the real repository.
type fakeInventoryStore struct {
	mu    sync.Mutex
	units map[string]domain.InventoryUnit
}

func newFakeInventoryStore(units ...domain.InventoryUnit) *fakeInventoryStore {
	m := make(map[string]domain.InventoryUnit, len(units))
	for _, u := range units {
		m[u.ID] = u
	}
	return &fakeInventoryStore{units: m}
}

func (f *fakeInventoryStore) Get(_ context.Context, id string) (domain.InventoryUnit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.units[id]
	if !ok {
		return domain.InventoryUnit{}, domain.ErrInventoryNotFound
	}
	return u, nil
}

func (f *fakeInventoryStore) Update(_ context.Context, unit domain.InventoryUnit, expected domain.ETag) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	current, ok := f.units[unit.ID]
	if !ok {
		return domain.ErrInventoryNotFound
	}
	if !current.ETag.Matches(expected) {
		return &domain.ConflictError{Expected: expected, Actual: current.ETag}
	}
	f.units[unit.ID] = unit
	return nil
}

func (f *fakeInventoryStore) Summary(_ context.Context, id string) (InventorySummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.units[id]
	if !ok {
		return InventorySummary{}, domain.ErrInventoryNotFound
	}
	return InventorySummary{UnitID: id, Available: u.Available, Sold: u.Sold(), ETag: u.ETag}, nil
}

func (f *fakeInventoryStore) CheckETag(_ context.Context, id string, expected domain.ETag) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.units[id]
	if !ok {
		return domain.ErrInventoryNotFound
	}
	if !u.ETag.Matches(expected) {
		return &domain.ConflictError{Expected: expected, Actual: u.ETag}
	}
	return nil
}

func (f *fakeInventoryStore) available(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.units[id].Available
}

type fakeSeat struct {
	status        domain.SeatStatus
	holder        string
	until         time.Time
	reservationID string
}

// fakeSeatRepo implements both SeatLockManager and SeatStore the way the
// Postgres repository does, with mutex-guarded all-or-nothing batches.
type fakeSeatRepo struct {
	mu    sync.Mutex
	seats map[string]*fakeSeat
	clk   clock.Clock
}

func newFakeSeatRepo(clk clock.Clock, seatIDs ...string) *fakeSeatRepo {
	seats := make(map[string]*fakeSeat, len(seatIDs))
	for _, id := range seatIDs {
		seats[id] = &fakeSeat{status: domain.SeatStatusAvailable}
	}
	return &fakeSeatRepo{seats: seats, clk: clk}
}

func (f *fakeSeatRepo) lockable(s *fakeSeat, holderID string, now time.Time) bool {
	switch s.status {
	case domain.SeatStatusAvailable:
		return true
	case domain.SeatStatusHeld:
		return !s.until.After(now) || s.holder == holderID
	default:
		return false
	}
}

func (f *fakeSeatRepo) TryLock(_ context.Context, seatIDs []string, holderID string, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.clk.Now()
	for _, id := range seatIDs {
		s, ok := f.seats[id]
		if !ok {
			return false, domain.ErrSeatNotFound
		}
		if !f.lockable(s, holderID, now) {
			return false, nil
		}
	}
	until := now.Add(ttl)
	for _, id := range seatIDs {
		*f.seats[id] = fakeSeat{status: domain.SeatStatusHeld, holder: holderID, until: until}
	}
	return true, nil
}

func (f *fakeSeatRepo) Release(_ context.Context, seatIDs []string, holderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range seatIDs {
		s, ok := f.seats[id]
		if ok && s.status == domain.SeatStatusHeld && s.holder == holderID {
			*s = fakeSeat{status: domain.SeatStatusAvailable}
		}
	}
	return nil
}

func (f *fakeSeatRepo) Extend(_ context.Context, seatIDs []string, holderID string, additionalTTL time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.clk.Now()
	for _, id := range seatIDs {
		s, ok := f.seats[id]
		if !ok || s.status != domain.SeatStatusHeld || s.holder != holderID || !s.until.After(now) {
			return false, nil
		}
	}
	for _, id := range seatIDs {
		f.seats[id].until = f.seats[id].until.Add(additionalTTL)
	}
	return true, nil
}

func (f *fakeSeatRepo) AreLocked(_ context.Context, seatIDs []string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.clk.Now()
	for _, id := range seatIDs {
		s, ok := f.seats[id]
		if !ok {
			return false, domain.ErrSeatNotFound
		}
		switch s.status {
		case domain.SeatStatusHeld:
			if !s.until.After(now) {
				return false, nil
			}
		case domain.SeatStatusReserved, domain.SeatStatusSold, domain.SeatStatusBlocked:
		default:
			return false, nil
		}
	}
	return true, nil
}

func (f *fakeSeatRepo) MarkSold(_ context.Context, seatIDs []string, holderID, reservationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range seatIDs {
		s, ok := f.seats[id]
		if !ok {
			return domain.ErrSeatNotFound
		}
		if s.status != domain.SeatStatusAvailable && !(s.status == domain.SeatStatusHeld && s.holder == holderID) {
			return domain.ErrSeatHeld
		}
	}
	for _, id := range seatIDs {
		*f.seats[id] = fakeSeat{status: domain.SeatStatusSold, reservationID: reservationID}
	}
	return nil
}

func (f *fakeSeatRepo) ReleaseExpired(_ context.Context, now time.Time, limit int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	released := 0
	for _, s := range f.seats {
		if released == limit {
			break
		}
		if s.status == domain.SeatStatusHeld && !s.until.After(now) {
			*s = fakeSeat{status: domain.SeatStatusAvailable}
			released++
		}
	}
	return released, nil
}

func (f *fakeSeatRepo) status(id string) domain.SeatStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seats[id].status
}

// fakeReservationStore enforces the conditional terminal flip under a mutex,
// matching the classification the Postgres repository performs.
type fakeReservationStore struct {
	mu           sync.Mutex
	reservations map[string]domain.Reservation
}

func newFakeReservationStore() *fakeReservationStore {
	return &fakeReservationStore{reservations: make(map[string]domain.Reservation)}
}

func (f *fakeReservationStore) Create(_ context.Context, r domain.Reservation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reservations[r.ID] = r
	return nil
}

func (f *fakeReservationStore) Get(_ context.Context, id string) (domain.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reservations[id]
	if !ok {
		return domain.Reservation{}, domain.ErrReservationNotFound
	}
	return r, nil
}

func (f *fakeReservationStore) TransitionTerminal(_ context.Context, id string, to domain.ReservationStatus, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reservations[id]
	if !ok {
		return domain.ErrReservationNotFound
	}
	if r.Status.Terminal() {
		return domain.ErrAlreadyTerminal
	}
	switch to {
	case domain.ReservationStatusConfirmed:
		if !r.ExpiresAt.After(now) {
			return domain.ErrReservationExpired
		}
		r.Status = to
		ts := now
		r.ConfirmedAt = &ts
	case domain.ReservationStatusExpired:
		if r.ExpiresAt.After(now) {
			return domain.ErrNotExpired
		}
		r.Status = to
		ts := now
		r.CancelledAt = &ts
	case domain.ReservationStatusCancelled, domain.ReservationStatusReleased:
		r.Status = to
		ts := now
		r.CancelledAt = &ts
	}
	f.reservations[id] = r
	return nil
}

func (f *fakeReservationStore) ListExpired(_ context.Context, now time.Time, limit int) ([]domain.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Reservation
	for _, r := range f.reservations {
		if len(out) == limit {
			break
		}
		if r.Status == domain.ReservationStatusActive && !r.ExpiresAt.After(now) {
			out = append(out, r)
		}
	}
	return out, nil
}
