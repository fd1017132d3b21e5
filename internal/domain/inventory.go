package domain

// InventoryUnit is the sellable capacity for one ticket type of an event.
// Values are immutable: mutations return a new unit and it is the storage
// layer's conditional write that decides whether the change sticks.
//
// Invariant: 0 <= Available <= Total. The ETag changes iff a mutation is
// persisted, and only then.
type InventoryUnit struct {
	ID        string
	EventID   string
	Name      string
	Total     int
	Available int
	ETag      ETag
}

// Sold is the quantity permanently or provisionally claimed.
func (u InventoryUnit) Sold() int {
	return u.Total - u.Available
}

// Decrement returns a copy with n fewer available, or a CapacityError when
// fewer than n remain. The ETag is left untouched; the persist step bumps it.
func (u InventoryUnit) Decrement(n int) (InventoryUnit, error) {
	if n <= 0 {
		return InventoryUnit{}, ErrInvalidQuantity
	}
	if u.Available < n {
		return InventoryUnit{}, &CapacityError{UnitID: u.ID, Requested: n, Available: u.Available}
	}
	u.Available -= n
	return u, nil
}

// Increment returns a copy with n more available, capped by Total. Used by
// compensations (cancel, expire, release), which must never push Available
// past the configured capacity.
func (u InventoryUnit) Increment(n int) (InventoryUnit, error) {
	if n <= 0 {
		return InventoryUnit{}, ErrInvalidQuantity
	}
	if u.Available+n > u.Total {
		u.Available = u.Total
		return u, nil
	}
	u.Available += n
	return u, nil
}
