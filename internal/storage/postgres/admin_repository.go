package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ZekromNguyen/Block-Ticket-sub004/internal/domain"
)

type AdminRepository struct {
	pool *pgxpool.Pool
}

func NewAdminRepository(pool *pgxpool.Pool) *AdminRepository {
	return &AdminRepository{pool: pool}
}

func (r *AdminRepository) CreateEvent(ctx context.Context, event domain.Event) error {
	const stmt = `
INSERT INTO events (id, name, venue_id, starts_at)
VALUES ($1, $2, $3, $4)`
	_, err := r.pool.Exec(ctx, stmt, event.ID, event.Name, event.VenueID, event.StartsAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

func (r *AdminRepository) ListEvents(ctx context.Context) ([]domain.Event, error) {
	const query = `
SELECT id, name, venue_id, starts_at
FROM events
ORDER BY starts_at ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var event domain.Event
		if err := rows.Scan(&event.ID, &event.Name, &event.VenueID, &event.StartsAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, event)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate events: %w", rows.Err())
	}
	return events, nil
}

// CreateInventoryUnit seeds a unit row with its initial tag. Never called on
// existing ids; mutation goes through the conditional write path only.
func (r *AdminRepository) CreateInventoryUnit(ctx context.Context, unit domain.InventoryUnit) error {
	const stmt = `
INSERT INTO inventory_units (id, event_id, name, total, available, etag, etag_updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.pool.Exec(ctx, stmt,
		unit.ID, unit.EventID, unit.Name, unit.Total, unit.Available, unit.ETag.Version, unit.ETag.UpdatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isForeignKeyViolation(err) {
			return domain.ErrEventNotFound
		}
		return fmt.Errorf("create inventory unit: %w", err)
	}
	return nil
}

// CreateSeats inserts venue seats in bulk.
func (r *AdminRepository) CreateSeats(ctx context.Context, seats []domain.Seat) error {
	if len(seats) == 0 {
		return nil
	}
	return withTx(ctx, r.pool, func(txCtx context.Context) error {
		tx := txFromContext(txCtx)
		const stmt = `
INSERT INTO seats (id, venue_id, label, status)
VALUES ($1, $2, $3, $4)`
		for _, seat := range seats {
			if _, err := tx.Exec(txCtx, stmt, seat.ID, seat.VenueID, seat.Label, seat.Status); err != nil {
				if isInvalidUUID(err) {
					return domain.ErrInvalidID
				}
				if isUniqueViolation(err) {
					return fmt.Errorf("create seat %s: duplicate label: %w", seat.Label, err)
				}
				return fmt.Errorf("create seat: %w", err)
			}
		}
		return nil
	})
}
