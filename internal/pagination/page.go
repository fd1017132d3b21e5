package pagination

import (
	"fmt"

	"github.com/ZekromNguyen/Block-Ticket-sub004/internal/domain"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

// Params selects one page of a sorted scan. Exactly one direction applies:
// First/After walks forward, Last/Before walks backward. When both are zero
// a forward page of DefaultPageSize is returned from the start.
type Params struct {
	First int
	After *Cursor

	Last   int
	Before *Cursor

	// WithTotal requests the full result-set count. Leaving it false says
	// nothing about next/previous availability.
	WithTotal bool
}

// Backward reports whether the page walks against the natural order.
func (p Params) Backward() bool {
	return p.Last > 0 || p.Before != nil
}

// Limit returns the clamped page size for the selected direction.
func (p Params) Limit() int {
	n := p.First
	if p.Backward() {
		n = p.Last
	}
	if n <= 0 {
		n = DefaultPageSize
	}
	if n > MaxPageSize {
		n = MaxPageSize
	}
	return n
}

// Boundary returns the cursor bounding the page, if any.
func (p Params) Boundary() *Cursor {
	if p.Backward() {
		return p.Before
	}
	return p.After
}

// Validate rejects contradictory parameter combinations.
func (p Params) Validate() error {
	if (p.First > 0 || p.After != nil) && (p.Last > 0 || p.Before != nil) {
		return fmt.Errorf("%w: cannot combine forward and backward parameters", domain.ErrInvalidCursor)
	}
	if p.First < 0 || p.Last < 0 {
		return fmt.Errorf("%w: negative page size", domain.ErrInvalidCursor)
	}
	return nil
}

// Page is one window of results in ascending natural order regardless of the
// walk direction. HasNext and HasPrev come from a one-row lookahead, never
// from counting the full result set.
type Page[T any] struct {
	Items       []T
	HasNext     bool
	HasPrev     bool
	StartCursor string
	EndCursor   string
	TotalCount  *int
}
