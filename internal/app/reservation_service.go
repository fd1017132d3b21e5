package app

import (
	"context"
	"errors"
	"time"

	"github.com/ZekromNguyen/Block-Ticket-sub004/internal/clock"
	"github.com/ZekromNguyen/Block-Ticket-sub004/internal/domain"
)

// SeatLockManager places and maintains TTL-bound exclusive holds. TryLock is
// all-or-nothing for the whole batch; Release is idempotent; Extend returns
// false once any of the holds has already expired.
type SeatLockManager interface {
	TryLock(ctx context.Context, seatIDs []string, holderID string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, seatIDs []string, holderID string) error
	Extend(ctx context.Context, seatIDs []string, holderID string, additionalTTL time.Duration) (bool, error)
	AreLocked(ctx context.Context, seatIDs []string) (bool, error)
}

// SeatStore flips permanent seat state; the lock manager only handles the
// ephemeral hold window.
type SeatStore interface {
	MarkSold(ctx context.Context, seatIDs []string, holderID, reservationID string) error
	ReleaseExpired(ctx context.Context, now time.Time, limit int) (int, error)
}

type ReservationStore interface {
	Create(ctx context.Context, r domain.Reservation) error
	Get(ctx context.Context, id string) (domain.Reservation, error)
	// TransitionTerminal performs the single conditional status flip out of
	// Active. Zero rows affected is classified as domain.ErrReservationNotFound,
	// domain.ErrAlreadyTerminal or domain.ErrReservationExpired.
	TransitionTerminal(ctx context.Context, id string, to domain.ReservationStatus, now time.Time) error
	ListExpired(ctx context.Context, now time.Time, limit int) ([]domain.Reservation, error)
}

type ReservationService struct {
	reservations ReservationStore
	inventory    *InventoryService
	locks        SeatLockManager
	seats        SeatStore
	clock        clock.Clock
	ttl          time.Duration
}

const defaultReservationTTL = 15 * time.Minute

func NewReservationService(reservations ReservationStore, inventory *InventoryService, locks SeatLockManager, seats SeatStore, clk clock.Clock, opts ...ReservationServiceOption) *ReservationService {
	svc := &ReservationService{
		reservations: reservations,
		inventory:    inventory,
		locks:        locks,
		seats:        seats,
		clock:        clk,
		ttl:          defaultReservationTTL,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type ReservationServiceOption func(*ReservationService)

// WithReservationTTL overrides the default confirmation window.
func WithReservationTTL(d time.Duration) ReservationServiceOption {
	return func(s *ReservationService) {
		if d > 0 {
			s.ttl = d
		}
	}
}

type ReserveItem struct {
	InventoryUnitID string
	SeatIDs         []string
	Quantity        int
	UnitPriceCents  int64
}

type ReserveInput struct {
	EventID string
	UserID  string
	Items   []ReserveItem
	// TTL overrides the service default when positive.
	TTL time.Duration
}

type appliedDecrement struct {
	unitID   string
	quantity int
}

// Reserve claims inventory and seats for a new Active reservation. The
// decrement happens at reservation time, not at confirmation, so availability
// shown to other buyers stays accurate. Any single item's failure rolls back
// every already-applied decrement and releases every hold before returning
// the typed reason.
func (s *ReservationService) Reserve(ctx context.Context, in ReserveInput) (domain.Reservation, error) {
	if in.EventID == "" || in.UserID == "" {
		return domain.Reservation{}, domain.ErrInvalidID
	}
	if len(in.Items) == 0 {
		return domain.Reservation{}, domain.ErrInvalidQuantity
	}
	for _, item := range in.Items {
		if item.Quantity <= 0 {
			return domain.Reservation{}, domain.ErrInvalidQuantity
		}
		if len(item.SeatIDs) > 0 && len(item.SeatIDs) != item.Quantity {
			return domain.Reservation{}, domain.ErrInvalidQuantity
		}
	}

	ttl := s.ttl
	if in.TTL > 0 {
		ttl = in.TTL
	}

	now := s.clock.Now()
	reservationID := newID()

	var seatIDs []string
	for _, item := range in.Items {
		seatIDs = append(seatIDs, item.SeatIDs...)
	}

	if len(seatIDs) > 0 {
		ok, err := s.locks.TryLock(ctx, seatIDs, reservationID, ttl)
		if err != nil {
			return domain.Reservation{}, err
		}
		if !ok {
			return domain.Reservation{}, domain.ErrSeatHeld
		}
	}

	var applied []appliedDecrement
	for _, item := range in.Items {
		if _, err := s.inventory.Decrement(ctx, item.InventoryUnitID, item.Quantity); err != nil {
			return domain.Reservation{}, s.rollback(ctx, err, applied, seatIDs, reservationID)
		}
		applied = append(applied, appliedDecrement{unitID: item.InventoryUnitID, quantity: item.Quantity})
	}

	items := make([]domain.LineItem, 0, len(in.Items))
	for _, item := range in.Items {
		items = append(items, domain.LineItem{
			InventoryUnitID: item.InventoryUnitID,
			SeatIDs:         item.SeatIDs,
			Quantity:        item.Quantity,
			UnitPriceCents:  item.UnitPriceCents,
		})
	}

	reservation := domain.Reservation{
		ID:        reservationID,
		EventID:   in.EventID,
		UserID:    in.UserID,
		Items:     items,
		Status:    domain.ReservationStatusActive,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}

	if err := s.reservations.Create(ctx, reservation); err != nil {
		return domain.Reservation{}, s.rollback(ctx, err, applied, seatIDs, reservationID)
	}
	return reservation, nil
}

// rollback compensates every applied decrement and releases the seat batch,
// then returns the original failure joined with any compensation error.
func (s *ReservationService) rollback(ctx context.Context, cause error, applied []appliedDecrement, seatIDs []string, holderID string) error {
	var compErr error
	for _, a := range applied {
		if _, err := s.inventory.Increment(ctx, a.unitID, a.quantity); err != nil {
			compErr = errors.Join(compErr, err)
		}
	}
	if len(seatIDs) > 0 {
		if err := s.locks.Release(ctx, seatIDs, holderID); err != nil {
			compErr = errors.Join(compErr, err)
		}
	}
	return errors.Join(cause, compErr)
}

// Confirm moves an Active, unexpired reservation to Confirmed and converts
// its seat holds to Sold. The Create-time decrement becomes permanent; no
// further inventory change happens here. Touching a reservation whose window
// has already elapsed expires it first and reports ErrReservationExpired.
func (s *ReservationService) Confirm(ctx context.Context, id string) (domain.Reservation, error) {
	reservation, err := s.reservations.Get(ctx, id)
	if err != nil {
		return domain.Reservation{}, err
	}

	now := s.clock.Now()
	if reservation.ExpiredAt(now) {
		// Lazy expiry on touch: return the inventory before reporting.
		if err := s.expire(ctx, reservation, now); err != nil && !errors.Is(err, domain.ErrAlreadyTerminal) {
			return domain.Reservation{}, err
		}
		return domain.Reservation{}, domain.ErrReservationExpired
	}

	if err := s.reservations.TransitionTerminal(ctx, id, domain.ReservationStatusConfirmed, now); err != nil {
		return domain.Reservation{}, err
	}

	if seatIDs := reservation.SeatIDs(); len(seatIDs) > 0 {
		if err := s.seats.MarkSold(ctx, seatIDs, reservation.ID, reservation.ID); err != nil {
			return domain.Reservation{}, err
		}
	}

	confirmed, err := reservation.Confirm(now)
	if err != nil {
		return domain.Reservation{}, err
	}
	return confirmed, nil
}

// Cancel moves an Active reservation to Cancelled, reverses the Create-time
// decrement and releases seat holds. Exactly one terminal transition can ever
// win; a second call reports ErrAlreadyTerminal with no side effect.
func (s *ReservationService) Cancel(ctx context.Context, id string) error {
	return s.terminate(ctx, id, domain.ReservationStatusCancelled)
}

// Release is the administrative counterpart of Cancel with an identical
// inventory-return effect.
func (s *ReservationService) Release(ctx context.Context, id string) error {
	return s.terminate(ctx, id, domain.ReservationStatusReleased)
}

// Expire ends an Active reservation whose window has elapsed, returning its
// inventory. Used by the sweeper and by lazy checks on touch.
func (s *ReservationService) Expire(ctx context.Context, id string) error {
	reservation, err := s.reservations.Get(ctx, id)
	if err != nil {
		return err
	}
	return s.expire(ctx, reservation, s.clock.Now())
}

func (s *ReservationService) terminate(ctx context.Context, id string, to domain.ReservationStatus) error {
	reservation, err := s.reservations.Get(ctx, id)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	if err := s.reservations.TransitionTerminal(ctx, id, to, now); err != nil {
		return err
	}
	return s.compensate(ctx, reservation)
}

func (s *ReservationService) expire(ctx context.Context, reservation domain.Reservation, now time.Time) error {
	if err := s.reservations.TransitionTerminal(ctx, reservation.ID, domain.ReservationStatusExpired, now); err != nil {
		return err
	}
	return s.compensate(ctx, reservation)
}

// compensate returns a reservation's inventory and seat holds after a
// non-confirming terminal transition. The conditional flip that preceded it
// guarantees this runs at most once per reservation.
func (s *ReservationService) compensate(ctx context.Context, reservation domain.Reservation) error {
	var compErr error
	for _, item := range reservation.Items {
		if _, err := s.inventory.Increment(ctx, item.InventoryUnitID, item.Quantity); err != nil {
			compErr = errors.Join(compErr, err)
		}
	}
	if seatIDs := reservation.SeatIDs(); len(seatIDs) > 0 {
		if err := s.locks.Release(ctx, seatIDs, reservation.ID); err != nil {
			compErr = errors.Join(compErr, err)
		}
	}
	return compErr
}

// Get loads a reservation by id.
func (s *ReservationService) Get(ctx context.Context, id string) (domain.Reservation, error) {
	return s.reservations.Get(ctx, id)
}

// ExtendHold pushes a reservation's seat holds forward while it is still
// Active, for checkout flows that need more time before confirming.
func (s *ReservationService) ExtendHold(ctx context.Context, id string, additionalTTL time.Duration) (bool, error) {
	if additionalTTL <= 0 {
		return false, domain.ErrInvalidTTL
	}
	reservation, err := s.reservations.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if reservation.Status.Terminal() {
		return false, domain.ErrAlreadyTerminal
	}
	if reservation.ExpiredAt(s.clock.Now()) {
		return false, nil
	}
	seatIDs := reservation.SeatIDs()
	if len(seatIDs) == 0 {
		return true, nil
	}
	return s.locks.Extend(ctx, seatIDs, reservation.ID, additionalTTL)
}
