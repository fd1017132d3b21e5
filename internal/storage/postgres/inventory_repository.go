package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ZekromNguyen/Block-Ticket-sub004/internal/app"
	"github.com/ZekromNguyen/Block-Ticket-sub004/internal/domain"
)

// InventoryRepository persists inventory units with ETag-guarded conditional
// writes. The version comparison, the data change and the tag bump are one
// UPDATE statement, so no reader ever observes new data under an old tag.
type InventoryRepository struct {
	pool *pgxpool.Pool
}

func NewInventoryRepository(pool *pgxpool.Pool) *InventoryRepository {
	return &InventoryRepository{pool: pool}
}

func (r *InventoryRepository) Get(ctx context.Context, id string) (domain.InventoryUnit, error) {
	const query = `
SELECT id, event_id, name, total, available, etag, etag_updated_at
FROM inventory_units
WHERE id = $1`

	var u domain.InventoryUnit
	err := r.queryRow(ctx, query, id).
		Scan(&u.ID, &u.EventID, &u.Name, &u.Total, &u.Available, &u.ETag.Version, &u.ETag.UpdatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.InventoryUnit{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.InventoryUnit{}, domain.ErrInventoryNotFound
		}
		return domain.InventoryUnit{}, fmt.Errorf("get inventory unit: %w", err)
	}
	return u, nil
}

// Update persists the unit iff the stored tag still equals expected. The
// unit must already carry its next tag; on a lost race nothing is written
// and the error reports the tag the store actually holds.
func (r *InventoryRepository) Update(ctx context.Context, unit domain.InventoryUnit, expected domain.ETag) error {
	const stmt = `
UPDATE inventory_units
SET total = $3, available = $4, etag = $5, etag_updated_at = $6
WHERE id = $1 AND etag = $2`

	tag, err := r.exec(ctx, stmt,
		unit.ID,
		expected.Version,
		unit.Total,
		unit.Available,
		unit.ETag.Version,
		unit.ETag.UpdatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isCheckViolation(err) {
			// The 0 <= available <= total constraint is a backstop; domain
			// transitions should have rejected the value already.
			return fmt.Errorf("update inventory unit: %w: %w", domain.ErrInvalidQuantity, err)
		}
		return fmt.Errorf("update inventory unit: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.classifyMiss(ctx, unit.ID, expected)
	}
	return nil
}

// ConditionalWrite pairs a fully mutated unit with the tag the caller read.
type ConditionalWrite struct {
	Unit     domain.InventoryUnit
	Expected domain.ETag
}

// UpdateBulk applies each write independently and returns a per-id outcome.
// No cross-id atomicity is implied: some ids may succeed while others conflict.
func (r *InventoryRepository) UpdateBulk(ctx context.Context, writes map[string]ConditionalWrite) map[string]error {
	outcomes := make(map[string]error, len(writes))
	for id, w := range writes {
		outcomes[id] = r.Update(ctx, w.Unit, w.Expected)
	}
	return outcomes
}

// Delete removes the unit iff the stored tag still equals expected.
func (r *InventoryRepository) Delete(ctx context.Context, id string, expected domain.ETag) error {
	const stmt = `DELETE FROM inventory_units WHERE id = $1 AND etag = $2`

	tag, err := r.exec(ctx, stmt, id, expected.Version)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("delete inventory unit: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.classifyMiss(ctx, id, expected)
	}
	return nil
}

// CheckETag fails fast when the stored tag differs from expected, without
// performing a write.
func (r *InventoryRepository) CheckETag(ctx context.Context, id string, expected domain.ETag) error {
	const query = `SELECT etag, etag_updated_at FROM inventory_units WHERE id = $1`

	var actual domain.ETag
	err := r.queryRow(ctx, query, id).Scan(&actual.Version, &actual.UpdatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.ErrInventoryNotFound
		}
		return fmt.Errorf("check etag: %w", err)
	}
	if !actual.Matches(expected) {
		return &domain.ConflictError{Expected: expected, Actual: actual}
	}
	return nil
}

func (r *InventoryRepository) Summary(ctx context.Context, id string) (app.InventorySummary, error) {
	const query = `
SELECT available, total - available, etag, etag_updated_at
FROM inventory_units
WHERE id = $1`

	s := app.InventorySummary{UnitID: id}
	err := r.queryRow(ctx, query, id).Scan(&s.Available, &s.Sold, &s.ETag.Version, &s.ETag.UpdatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return app.InventorySummary{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return app.InventorySummary{}, domain.ErrInventoryNotFound
		}
		return app.InventorySummary{}, fmt.Errorf("inventory summary: %w", err)
	}
	return s, nil
}

// classifyMiss distinguishes a vanished row from a lost version race after a
// conditional statement affected zero rows.
func (r *InventoryRepository) classifyMiss(ctx context.Context, id string, expected domain.ETag) error {
	const query = `SELECT etag, etag_updated_at FROM inventory_units WHERE id = $1`

	var actual domain.ETag
	err := r.queryRow(ctx, query, id).Scan(&actual.Version, &actual.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.ErrInventoryNotFound
		}
		return fmt.Errorf("classify conditional miss: %w", err)
	}
	return &domain.ConflictError{Expected: expected, Actual: actual}
}

func (r *InventoryRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *InventoryRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
