package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ZekromNguyen/Block-Ticket-sub004/internal/domain"
)

type ReservationRepository struct {
	pool *pgxpool.Pool
}

func NewReservationRepository(pool *pgxpool.Pool) *ReservationRepository {
	return &ReservationRepository{pool: pool}
}

// Create inserts the reservation and its line items in one transaction.
func (r *ReservationRepository) Create(ctx context.Context, reservation domain.Reservation) error {
	return withTx(ctx, r.pool, func(txCtx context.Context) error {
		const stmt = `
INSERT INTO reservations (id, event_id, user_id, status, expires_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`

		_, err := r.exec(txCtx, stmt,
			reservation.ID,
			reservation.EventID,
			reservation.UserID,
			reservation.Status,
			reservation.ExpiresAt,
			reservation.CreatedAt,
		)
		if err != nil {
			if isInvalidUUID(err) {
				return domain.ErrInvalidID
			}
			if isForeignKeyViolation(err) {
				return domain.ErrEventNotFound
			}
			return fmt.Errorf("create reservation: %w", err)
		}

		if len(reservation.Items) == 0 {
			return nil
		}

		const itemStmt = `
INSERT INTO reservation_items (reservation_id, position, inventory_unit_id, seat_ids, quantity, unit_price_cents)
VALUES ($1, $2, $3, $4, $5, $6)`

		for i, item := range reservation.Items {
			seatIDs := item.SeatIDs
			if seatIDs == nil {
				seatIDs = []string{}
			}
			if _, err := r.exec(txCtx, itemStmt, reservation.ID, i, item.InventoryUnitID, seatIDs, item.Quantity, item.UnitPriceCents); err != nil {
				if isInvalidUUID(err) {
					return domain.ErrInvalidID
				}
				return fmt.Errorf("create reservation item: %w", err)
			}
		}
		return nil
	})
}

func (r *ReservationRepository) Get(ctx context.Context, id string) (domain.Reservation, error) {
	const query = `
SELECT id, event_id, user_id, status, expires_at, created_at, confirmed_at, cancelled_at
FROM reservations
WHERE id = $1`

	var res domain.Reservation
	err := r.queryRow(ctx, query, id).
		Scan(&res.ID, &res.EventID, &res.UserID, &res.Status, &res.ExpiresAt, &res.CreatedAt, &res.ConfirmedAt, &res.CancelledAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Reservation{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Reservation{}, domain.ErrReservationNotFound
		}
		return domain.Reservation{}, fmt.Errorf("get reservation: %w", err)
	}

	items, err := r.loadItems(ctx, []string{id})
	if err != nil {
		return domain.Reservation{}, err
	}
	res.Items = items[id]
	return res, nil
}

// TransitionTerminal performs the single conditional flip out of Active.
// The status check, the expiry comparison and the write are one statement,
// so a race between Confirm and an expiry sweep cannot both win.
func (r *ReservationRepository) TransitionTerminal(ctx context.Context, id string, to domain.ReservationStatus, now time.Time) error {
	var stmt string
	switch to {
	case domain.ReservationStatusConfirmed:
		stmt = `
UPDATE reservations SET status = 'confirmed', confirmed_at = $2
WHERE id = $1 AND status = 'active' AND expires_at > $2`
	case domain.ReservationStatusExpired:
		stmt = `
UPDATE reservations SET status = 'expired', cancelled_at = $2
WHERE id = $1 AND status = 'active' AND expires_at <= $2`
	case domain.ReservationStatusCancelled, domain.ReservationStatusReleased:
		stmt = fmt.Sprintf(`
UPDATE reservations SET status = '%s', cancelled_at = $2
WHERE id = $1 AND status = 'active'`, to)
	default:
		return fmt.Errorf("transition to %q: not a terminal status", to)
	}

	tag, err := r.exec(ctx, stmt, id, now)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("transition reservation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.classifyRefusal(ctx, id, to, now)
	}
	return nil
}

// classifyRefusal explains a zero-row conditional transition: the row is
// gone, already terminal, or Active but on the wrong side of its expiry for
// the requested flip.
func (r *ReservationRepository) classifyRefusal(ctx context.Context, id string, to domain.ReservationStatus, now time.Time) error {
	const query = `SELECT status, expires_at FROM reservations WHERE id = $1`

	var status domain.ReservationStatus
	var expiresAt time.Time
	err := r.queryRow(ctx, query, id).Scan(&status, &expiresAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.ErrReservationNotFound
		}
		return fmt.Errorf("classify refused transition: %w", err)
	}
	if status.Terminal() {
		return domain.ErrAlreadyTerminal
	}
	if to == domain.ReservationStatusExpired && expiresAt.After(now) {
		return domain.ErrNotExpired
	}
	return domain.ErrReservationExpired
}

// ListExpired returns up to limit Active reservations whose window has
// elapsed, oldest first, with their line items loaded.
func (r *ReservationRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]domain.Reservation, error) {
	const query = `
SELECT id, event_id, user_id, status, expires_at, created_at, confirmed_at, cancelled_at
FROM reservations
WHERE status = 'active' AND expires_at <= $1
ORDER BY expires_at ASC
LIMIT $2`

	rows, err := r.query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list expired reservations: %w", err)
	}
	defer rows.Close()

	var reservations []domain.Reservation
	var ids []string
	for rows.Next() {
		var res domain.Reservation
		if err := rows.Scan(&res.ID, &res.EventID, &res.UserID, &res.Status, &res.ExpiresAt, &res.CreatedAt, &res.ConfirmedAt, &res.CancelledAt); err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		reservations = append(reservations, res)
		ids = append(ids, res.ID)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate reservations: %w", rows.Err())
	}
	if len(reservations) == 0 {
		return nil, nil
	}

	items, err := r.loadItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range reservations {
		reservations[i].Items = items[reservations[i].ID]
	}
	return reservations, nil
}

func (r *ReservationRepository) loadItems(ctx context.Context, reservationIDs []string) (map[string][]domain.LineItem, error) {
	const query = `
SELECT reservation_id, inventory_unit_id, seat_ids, quantity, unit_price_cents
FROM reservation_items
WHERE reservation_id = ANY($1)
ORDER BY reservation_id, position`

	rows, err := r.query(ctx, query, reservationIDs)
	if err != nil {
		return nil, fmt.Errorf("load reservation items: %w", err)
	}
	defer rows.Close()

	items := make(map[string][]domain.LineItem)
	for rows.Next() {
		var reservationID string
		var item domain.LineItem
		if err := rows.Scan(&reservationID, &item.InventoryUnitID, &item.SeatIDs, &item.Quantity, &item.UnitPriceCents); err != nil {
			return nil, fmt.Errorf("scan reservation item: %w", err)
		}
		if len(item.SeatIDs) == 0 {
			item.SeatIDs = nil
		}
		items[reservationID] = append(items[reservationID], item)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate reservation items: %w", rows.Err())
	}
	return items, nil
}

func (r *ReservationRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *ReservationRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}

func (r *ReservationRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}
