package app

import (
	"context"

	"github.com/ZekromNguyen/Block-Ticket-sub004/internal/clock"
	"github.com/ZekromNguyen/Block-Ticket-sub004/internal/domain"
)

// InventorySummary is the cheap availability view for display.
type InventorySummary struct {
	UnitID    string
	Available int
	Sold      int
	ETag      domain.ETag
}

// InventoryStore is the conditional-persistence surface the service needs.
// Update must apply the row change and the version bump as one atomic
// statement, returning *domain.ConflictError when the expected tag no longer
// matches the stored one.
type InventoryStore interface {
	Get(ctx context.Context, id string) (domain.InventoryUnit, error)
	Update(ctx context.Context, unit domain.InventoryUnit, expected domain.ETag) error
	Summary(ctx context.Context, id string) (InventorySummary, error)
	CheckETag(ctx context.Context, id string, expected domain.ETag) error
}

type InventoryService struct {
	store       InventoryStore
	clock       clock.Clock
	maxAttempts int
}

const defaultMutateAttempts = 3

func NewInventoryService(store InventoryStore, clk clock.Clock, opts ...InventoryServiceOption) *InventoryService {
	svc := &InventoryService{
		store:       store,
		clock:       clk,
		maxAttempts: defaultMutateAttempts,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type InventoryServiceOption func(*InventoryService)

// WithMutateAttempts overrides the bounded retry count for MutateWithRetry.
func WithMutateAttempts(n int) InventoryServiceOption {
	return func(s *InventoryService) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// TryMutate reads the unit, applies fn in memory and persists the result
// guarded by the caller's expected tag. fn may decline by returning an error,
// in which case nothing is written. A lost race surfaces as
// *domain.ConflictError; the caller re-reads and retries, it never assumes a
// partial effect.
func (s *InventoryService) TryMutate(ctx context.Context, id string, expected domain.ETag, fn func(domain.InventoryUnit) (domain.InventoryUnit, error)) (domain.InventoryUnit, error) {
	unit, err := s.store.Get(ctx, id)
	if err != nil {
		return domain.InventoryUnit{}, err
	}
	if !unit.ETag.Matches(expected) {
		return domain.InventoryUnit{}, &domain.ConflictError{Expected: expected, Actual: unit.ETag}
	}

	mutated, err := fn(unit)
	if err != nil {
		return domain.InventoryUnit{}, err
	}

	mutated.ETag = domain.NewETag(s.clock.Now())
	if err := s.store.Update(ctx, mutated, expected); err != nil {
		return domain.InventoryUnit{}, err
	}
	return mutated, nil
}

// MutateWithRetry runs fn under a fresh read each attempt, retrying only on
// concurrency conflicts. Business rejections from fn (capacity, quantity) end
// the loop immediately.
func (s *InventoryService) MutateWithRetry(ctx context.Context, id string, fn func(domain.InventoryUnit) (domain.InventoryUnit, error)) (domain.InventoryUnit, error) {
	var lastErr error
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		unit, err := s.store.Get(ctx, id)
		if err != nil {
			return domain.InventoryUnit{}, err
		}
		mutated, err := s.TryMutate(ctx, id, unit.ETag, fn)
		if err == nil {
			return mutated, nil
		}
		if !domain.IsConflict(err) {
			return domain.InventoryUnit{}, err
		}
		lastErr = err
	}
	return domain.InventoryUnit{}, lastErr
}

// Decrement claims n units of availability with bounded retry.
func (s *InventoryService) Decrement(ctx context.Context, id string, n int) (domain.InventoryUnit, error) {
	return s.MutateWithRetry(ctx, id, func(u domain.InventoryUnit) (domain.InventoryUnit, error) {
		return u.Decrement(n)
	})
}

// Increment returns n units of availability, used by compensations.
func (s *InventoryService) Increment(ctx context.Context, id string, n int) (domain.InventoryUnit, error) {
	return s.MutateWithRetry(ctx, id, func(u domain.InventoryUnit) (domain.InventoryUnit, error) {
		return u.Increment(n)
	})
}

// Summary exposes (available, sold, etag) without loading the full unit.
func (s *InventoryService) Summary(ctx context.Context, id string) (InventorySummary, error) {
	return s.store.Summary(ctx, id)
}

// ValidateETag fails fast when the stored tag no longer matches expected,
// without performing any write.
func (s *InventoryService) ValidateETag(ctx context.Context, id string, expected domain.ETag) error {
	return s.store.CheckETag(ctx, id, expected)
}
