package domain

import (
	"errors"
	"testing"
	"time"
)

func activeReservation(created time.Time, ttl time.Duration) Reservation {
	return Reservation{
		ID:      "res-1",
		EventID: "event-1",
		UserID:  "user-1",
		Items: []LineItem{
			{InventoryUnitID: "unit-1", SeatIDs: []string{"seat-1", "seat-2"}, Quantity: 2},
			{InventoryUnitID: "unit-2", Quantity: 3},
		},
		Status:    ReservationStatusActive,
		CreatedAt: created,
		ExpiresAt: created.Add(ttl),
	}
}

func TestReservationTransitions(t *testing.T) {
	t.Parallel()

	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("confirm before expiry", func(t *testing.T) {
		r := activeReservation(created, 15*time.Minute)
		got, err := r.Confirm(created.Add(time.Minute))
		if err != nil {
			t.Fatalf("confirm: %v", err)
		}
		if got.Status != ReservationStatusConfirmed || got.ConfirmedAt == nil {
			t.Fatalf("unexpected result: %+v", got)
		}
		if _, err := got.Confirm(created.Add(2 * time.Minute)); !errors.Is(err, ErrAlreadyTerminal) {
			t.Fatalf("expected ErrAlreadyTerminal, got %v", err)
		}
	})

	t.Run("confirm at or after expiry refuses", func(t *testing.T) {
		r := activeReservation(created, 15*time.Minute)
		if _, err := r.Confirm(r.ExpiresAt); !errors.Is(err, ErrReservationExpired) {
			t.Fatalf("expected ErrReservationExpired at the boundary, got %v", err)
		}
		if _, err := r.Confirm(r.ExpiresAt.Add(time.Second)); !errors.Is(err, ErrReservationExpired) {
			t.Fatalf("expected ErrReservationExpired, got %v", err)
		}
	})

	t.Run("expire only once overdue", func(t *testing.T) {
		r := activeReservation(created, 15*time.Minute)
		if _, err := r.Expire(created.Add(time.Minute)); !errors.Is(err, ErrNotExpired) {
			t.Fatalf("expected ErrNotExpired, got %v", err)
		}
		got, err := r.Expire(r.ExpiresAt)
		if err != nil {
			t.Fatalf("expire: %v", err)
		}
		if got.Status != ReservationStatusExpired {
			t.Fatalf("expected expired, got %s", got.Status)
		}
	})

	t.Run("cancel and release are terminal", func(t *testing.T) {
		r := activeReservation(created, 15*time.Minute)
		cancelled, err := r.Cancel(created.Add(time.Minute))
		if err != nil {
			t.Fatalf("cancel: %v", err)
		}
		if cancelled.Status != ReservationStatusCancelled || cancelled.CancelledAt == nil {
			t.Fatalf("unexpected result: %+v", cancelled)
		}
		if _, err := cancelled.Release(created.Add(2 * time.Minute)); !errors.Is(err, ErrAlreadyTerminal) {
			t.Fatalf("expected ErrAlreadyTerminal, got %v", err)
		}

		released, err := r.Release(created.Add(time.Minute))
		if err != nil {
			t.Fatalf("release: %v", err)
		}
		if released.Status != ReservationStatusReleased {
			t.Fatalf("expected released, got %s", released.Status)
		}
	})
}

func TestReservationExpiredAt(t *testing.T) {
	t.Parallel()

	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r := activeReservation(created, 15*time.Minute)

	if r.ExpiredAt(created.Add(14 * time.Minute)) {
		t.Fatal("expected not expired before the deadline")
	}
	if !r.ExpiredAt(r.ExpiresAt) {
		t.Fatal("expected expired exactly at the deadline")
	}

	confirmed, err := r.Confirm(created)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if confirmed.ExpiredAt(r.ExpiresAt.Add(time.Hour)) {
		t.Fatal("expected terminal reservations never to expire")
	}
}

func TestReservationSeatIDs(t *testing.T) {
	t.Parallel()

	r := activeReservation(time.Now(), time.Minute)
	got := r.SeatIDs()
	if len(got) != 2 || got[0] != "seat-1" || got[1] != "seat-2" {
		t.Fatalf("unexpected seat ids: %v", got)
	}

	if ids := (Reservation{}).SeatIDs(); len(ids) != 0 {
		t.Fatalf("expected no seat ids, got %v", ids)
	}
}

func TestReservationStatusTerminal(t *testing.T) {
	t.Parallel()

	if ReservationStatusActive.Terminal() {
		t.Fatal("active must not be terminal")
	}
	for _, s := range []ReservationStatus{
		ReservationStatusConfirmed,
		ReservationStatusCancelled,
		ReservationStatusExpired,
		ReservationStatusReleased,
	} {
		if !s.Terminal() {
			t.Fatalf("expected %s to be terminal", s)
		}
	}
}
