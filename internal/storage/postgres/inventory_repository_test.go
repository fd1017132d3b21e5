package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ZekromNguyen/Block-Ticket-sub004/internal/domain"
	"github.com/ZekromNguyen/Block-Ticket-sub004/internal/testutil"
)

func TestInventoryRepository(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.ApplyMigrations(t, ctx, pool)
	testutil.TruncateAll(t, ctx, pool)

	repo := NewInventoryRepository(pool)
	_, unitID := testutil.InsertEventAndUnit(t, ctx, pool, "Concert", 100)

	t.Run("get returns the seeded unit", func(t *testing.T) {
		unit, err := repo.Get(ctx, unitID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if unit.Total != 100 || unit.Available != 100 {
			t.Fatalf("unexpected unit: %+v", unit)
		}
		if unit.ETag.IsZero() {
			t.Fatal("expected a non-zero etag")
		}
	})

	t.Run("conditional update with the current tag wins", func(t *testing.T) {
		unit, err := repo.Get(ctx, unitID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		expected := unit.ETag

		mutated, err := unit.Decrement(10)
		if err != nil {
			t.Fatalf("decrement: %v", err)
		}
		mutated.ETag = domain.NewETag(time.Now())

		if err := repo.Update(ctx, mutated, expected); err != nil {
			t.Fatalf("update: %v", err)
		}

		got, err := repo.Get(ctx, unitID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Available != 90 {
			t.Fatalf("expected 90 available, got %d", got.Available)
		}
		if got.ETag.Matches(expected) {
			t.Fatal("expected the tag to have moved")
		}
	})

	t.Run("stale tag loses without writing", func(t *testing.T) {
		unit, err := repo.Get(ctx, unitID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}

		stale := domain.NewETag(time.Now())
		mutated := unit
		mutated.Available = 1
		mutated.ETag = domain.NewETag(time.Now())

		err = repo.Update(ctx, mutated, stale)
		var conflict *domain.ConflictError
		if !errors.As(err, &conflict) {
			t.Fatalf("expected ConflictError, got %v", err)
		}
		if !conflict.Actual.Matches(unit.ETag) {
			t.Fatalf("expected the conflict to carry the live tag, got %+v", conflict)
		}

		got, err := repo.Get(ctx, unitID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Available != 90 {
			t.Fatalf("expected state untouched at 90, got %d", got.Available)
		}
		if !got.ETag.Matches(unit.ETag) {
			t.Fatal("expected the tag untouched after a refused write")
		}
	})

	t.Run("check violation rejects out-of-bounds availability", func(t *testing.T) {
		unit, err := repo.Get(ctx, unitID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		mutated := unit
		mutated.Available = unit.Total + 5
		mutated.ETag = domain.NewETag(time.Now())

		if err := repo.Update(ctx, mutated, unit.ETag); !errors.Is(err, domain.ErrInvalidQuantity) {
			t.Fatalf("expected ErrInvalidQuantity, got %v", err)
		}
	})

	t.Run("check etag and summary", func(t *testing.T) {
		unit, err := repo.Get(ctx, unitID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}

		if err := repo.CheckETag(ctx, unitID, unit.ETag); err != nil {
			t.Fatalf("expected live tag to validate, got %v", err)
		}
		if err := repo.CheckETag(ctx, unitID, domain.NewETag(time.Now())); !domain.IsConflict(err) {
			t.Fatalf("expected ConflictError, got %v", err)
		}

		summary, err := repo.Summary(ctx, unitID)
		if err != nil {
			t.Fatalf("summary: %v", err)
		}
		if summary.Available != 90 || summary.Sold != 10 {
			t.Fatalf("unexpected summary: %+v", summary)
		}
		if !summary.ETag.Matches(unit.ETag) {
			t.Fatal("expected the summary to carry the live tag")
		}
	})

	t.Run("missing unit", func(t *testing.T) {
		randomID := uuid.NewString()
		if _, err := repo.Get(ctx, randomID); !errors.Is(err, domain.ErrInventoryNotFound) {
			t.Fatalf("expected ErrInventoryNotFound, got %v", err)
		}
		if err := repo.Update(ctx, domain.InventoryUnit{ID: randomID, ETag: domain.NewETag(time.Now())}, domain.NewETag(time.Now())); !errors.Is(err, domain.ErrInventoryNotFound) {
			t.Fatalf("expected ErrInventoryNotFound, got %v", err)
		}
		if _, err := repo.Get(ctx, "not-a-uuid"); !errors.Is(err, domain.ErrInvalidID) {
			t.Fatalf("expected ErrInvalidID, got %v", err)
		}
	})

	t.Run("bulk update reports per-id outcomes", func(t *testing.T) {
		_, otherID := testutil.InsertEventAndUnit(t, ctx, pool, "Second Show", 50)

		live, err := repo.Get(ctx, otherID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		mutated, err := live.Decrement(5)
		if err != nil {
			t.Fatalf("decrement: %v", err)
		}
		mutated.ETag = domain.NewETag(time.Now())

		staleUnit, err := repo.Get(ctx, unitID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		staleUnit.ETag = domain.NewETag(time.Now())

		outcomes := repo.UpdateBulk(ctx, map[string]ConditionalWrite{
			otherID: {Unit: mutated, Expected: live.ETag},
			unitID:  {Unit: staleUnit, Expected: domain.NewETag(time.Now())},
		})
		if outcomes[otherID] != nil {
			t.Fatalf("expected fresh write to win, got %v", outcomes[otherID])
		}
		if !domain.IsConflict(outcomes[unitID]) {
			t.Fatalf("expected stale write to conflict, got %v", outcomes[unitID])
		}
	})

	t.Run("conditional delete", func(t *testing.T) {
		_, doomedID := testutil.InsertEventAndUnit(t, ctx, pool, "Doomed Show", 10)

		live, err := repo.Get(ctx, doomedID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}

		if err := repo.Delete(ctx, doomedID, domain.NewETag(time.Now())); !domain.IsConflict(err) {
			t.Fatalf("expected stale delete to conflict, got %v", err)
		}
		if err := repo.Delete(ctx, doomedID, live.ETag); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if _, err := repo.Get(ctx, doomedID); !errors.Is(err, domain.ErrInventoryNotFound) {
			t.Fatalf("expected ErrInventoryNotFound after delete, got %v", err)
		}
	})
}
