package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ZekromNguyen/Block-Ticket-sub004/internal/clock"
	"github.com/ZekromNguyen/Block-Ticket-sub004/internal/domain"
)

// SeatRepository manages seat rows and implements the lock manager over
// them. Every hold operation is a single conditional statement whose
// predicate includes the lazy-expiry check, never a read followed by a
// write, so it stays race-safe under true multi-process concurrency.
type SeatRepository struct {
	pool  *pgxpool.Pool
	clock clock.Clock
}

func NewSeatRepository(pool *pgxpool.Pool, clk clock.Clock) *SeatRepository {
	return &SeatRepository{pool: pool, clock: clk}
}

// errBatchIncomplete aborts the enclosing transaction when a multi-row
// conditional update did not claim every requested row.
var errBatchIncomplete = errors.New("batch condition not met for all rows")

// TryLock places every seat into Held{holderID, now+ttl} as one atomic
// batch. If any seat is unavailable the whole batch fails and no seat is
// left locked. An expired hold counts as available; reacquiring under the
// same holder refreshes the expiry.
func (r *SeatRepository) TryLock(ctx context.Context, seatIDs []string, holderID string, ttl time.Duration) (bool, error) {
	if len(seatIDs) == 0 || holderID == "" {
		return false, domain.ErrInvalidID
	}
	if ttl <= 0 {
		return false, domain.ErrInvalidTTL
	}

	// Deterministic order keeps overlapping batches from livelocking on
	// row-lock acquisition even though the statement itself is atomic.
	ids := append([]string(nil), seatIDs...)
	sort.Strings(ids)

	now := r.clock.Now()
	until := now.Add(ttl)

	const stmt = `
UPDATE seats
SET status = 'held', current_holder = $2, reserved_until = $3, current_reservation_id = NULL
WHERE id = ANY($1)
  AND (
	status = 'available'
	OR (status = 'held' AND reserved_until <= $4)
	OR (status = 'held' AND current_holder = $2)
  )`

	err := withTx(ctx, r.pool, func(txCtx context.Context) error {
		tag, err := r.exec(txCtx, stmt, ids, holderID, until, now)
		if err != nil {
			return fmt.Errorf("lock seats: %w", err)
		}
		if tag.RowsAffected() != int64(len(ids)) {
			return errBatchIncomplete
		}
		return nil
	})
	if errors.Is(err, errBatchIncomplete) {
		return false, nil
	}
	if err != nil {
		if isInvalidUUID(err) {
			return false, domain.ErrInvalidID
		}
		return false, err
	}
	return true, nil
}

// Release reverts Held seats back to Available for ids still held by
// holderID. Seats already released, expired and reclaimed, or held by
// someone else are skipped, which makes the call idempotent.
func (r *SeatRepository) Release(ctx context.Context, seatIDs []string, holderID string) error {
	if len(seatIDs) == 0 {
		return nil
	}

	const stmt = `
UPDATE seats
SET status = 'available', current_holder = NULL, reserved_until = NULL, current_reservation_id = NULL
WHERE id = ANY($1) AND status = 'held' AND current_holder = $2`

	if _, err := r.exec(ctx, stmt, seatIDs, holderID); err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("release seats: %w", err)
	}
	return nil
}

// Extend pushes the expiry of every hold forward by additionalTTL, but only
// while all of them are still live under holderID. Once any hold has
// expired the batch reports false and the caller must re-acquire.
func (r *SeatRepository) Extend(ctx context.Context, seatIDs []string, holderID string, additionalTTL time.Duration) (bool, error) {
	if len(seatIDs) == 0 || holderID == "" {
		return false, domain.ErrInvalidID
	}
	if additionalTTL <= 0 {
		return false, domain.ErrInvalidTTL
	}

	const stmt = `
UPDATE seats
SET reserved_until = reserved_until + make_interval(secs => $3)
WHERE id = ANY($1) AND status = 'held' AND current_holder = $2 AND reserved_until > $4`

	err := withTx(ctx, r.pool, func(txCtx context.Context) error {
		tag, err := r.exec(txCtx, stmt, seatIDs, holderID, additionalTTL.Seconds(), r.clock.Now())
		if err != nil {
			return fmt.Errorf("extend seat holds: %w", err)
		}
		if tag.RowsAffected() != int64(len(seatIDs)) {
			return errBatchIncomplete
		}
		return nil
	})
	if errors.Is(err, errBatchIncomplete) {
		return false, nil
	}
	if err != nil {
		if isInvalidUUID(err) {
			return false, domain.ErrInvalidID
		}
		return false, err
	}
	return true, nil
}

// AreLocked reports whether every seat in the batch currently carries a live
// hold or a permanent claim.
func (r *SeatRepository) AreLocked(ctx context.Context, seatIDs []string) (bool, error) {
	if len(seatIDs) == 0 {
		return false, domain.ErrInvalidID
	}

	const query = `
SELECT COUNT(*)
FROM seats
WHERE id = ANY($1)
  AND (
	(status = 'held' AND reserved_until > $2)
	OR status IN ('reserved', 'sold', 'blocked')
  )`

	var locked int
	if err := r.queryRow(ctx, query, seatIDs, r.clock.Now()).Scan(&locked); err != nil {
		if isInvalidUUID(err) {
			return false, domain.ErrInvalidID
		}
		return false, fmt.Errorf("probe seat locks: %w", err)
	}
	return locked == len(seatIDs), nil
}

// MarkSold converts held seats to Sold under the given reservation. Seats
// whose ephemeral hold lives outside this table (redis-backed lock manager)
// arrive still Available and are accepted too.
func (r *SeatRepository) MarkSold(ctx context.Context, seatIDs []string, holderID, reservationID string) error {
	if len(seatIDs) == 0 {
		return nil
	}

	const stmt = `
UPDATE seats
SET status = 'sold', current_reservation_id = $3, current_holder = NULL, reserved_until = NULL
WHERE id = ANY($1)
  AND (status = 'available' OR (status = 'held' AND current_holder = $2))`

	err := withTx(ctx, r.pool, func(txCtx context.Context) error {
		tag, err := r.exec(txCtx, stmt, seatIDs, holderID, reservationID)
		if err != nil {
			return fmt.Errorf("mark seats sold: %w", err)
		}
		if tag.RowsAffected() != int64(len(seatIDs)) {
			return errBatchIncomplete
		}
		return nil
	})
	if errors.Is(err, errBatchIncomplete) {
		return domain.ErrSeatHeld
	}
	if err != nil && isInvalidUUID(err) {
		return domain.ErrInvalidID
	}
	return err
}

// ReleaseExpired reclaims up to limit expired holds and returns how many it
// reverted. SKIP LOCKED keeps rival sweeps from serializing on each other.
func (r *SeatRepository) ReleaseExpired(ctx context.Context, now time.Time, limit int) (int, error) {
	if limit <= 0 {
		return 0, nil
	}

	const stmt = `
UPDATE seats
SET status = 'available', current_holder = NULL, reserved_until = NULL, current_reservation_id = NULL
WHERE id IN (
	SELECT id FROM seats
	WHERE status = 'held' AND reserved_until <= $1
	ORDER BY reserved_until
	LIMIT $2
	FOR UPDATE SKIP LOCKED
)`

	tag, err := r.exec(ctx, stmt, now, limit)
	if err != nil {
		return 0, fmt.Errorf("release expired holds: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *SeatRepository) Get(ctx context.Context, id string) (domain.Seat, error) {
	const query = `
SELECT id, venue_id, label, status, COALESCE(current_holder, ''), COALESCE(current_reservation_id::text, ''), COALESCE(reserved_until, 'epoch'::timestamptz)
FROM seats
WHERE id = $1`

	var s domain.Seat
	err := r.queryRow(ctx, query, id).
		Scan(&s.ID, &s.VenueID, &s.Label, &s.Status, &s.CurrentHolder, &s.CurrentReservationID, &s.ReservedUntil)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Seat{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Seat{}, domain.ErrSeatNotFound
		}
		return domain.Seat{}, fmt.Errorf("get seat: %w", err)
	}
	return s, nil
}

func (r *SeatRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *SeatRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
