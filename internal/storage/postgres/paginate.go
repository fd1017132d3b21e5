package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ZekromNguyen/Block-Ticket-sub004/internal/app"
	"github.com/ZekromNguyen/Block-Ticket-sub004/internal/domain"
	"github.com/ZekromNguyen/Block-Ticket-sub004/internal/pagination"
)

// sortSpec binds a sort column to the cursor key kind it produces.
type sortSpec struct {
	column string
	kind   pagination.Kind
}

// pageQuery accumulates predicate fragments and the two-column sort for one
// keyset-paged read. The secondary column must be unique so rows tying on
// the primary still have a total order.
type pageQuery struct {
	table     string
	columns   string
	primary   sortSpec
	secondary sortSpec
	conds     []string
	args      []any
}

// where appends one predicate; format must contain a single %s that receives
// the positional placeholder for arg.
func (q *pageQuery) where(format string, arg any) {
	q.args = append(q.args, arg)
	q.conds = append(q.conds, fmt.Sprintf(format, fmt.Sprintf("$%d", len(q.args))))
}

func (q *pageQuery) whereClause() string {
	if len(q.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(q.conds, " AND ")
}

// build renders the page SELECT with the boundary comparison, order and
// limit+1 lookahead applied. The strict lexicographic row comparison
// ((primary, secondary) > (a, b)) is what keeps pages gap- and
// duplicate-free while the rows mutate.
func (q *pageQuery) build(params pagination.Params) (string, []any, error) {
	conds := append([]string(nil), q.conds...)
	args := append([]any(nil), q.args...)

	if cur := params.Boundary(); cur != nil {
		if cur.Primary.Kind() != q.primary.kind || cur.Secondary.Kind() != q.secondary.kind {
			return "", nil, fmt.Errorf("%w: cursor keys do not match sort (%s, %s)", domain.ErrInvalidCursor, q.primary.kind, q.secondary.kind)
		}
		op := ">"
		if params.Backward() {
			op = "<"
		}
		args = append(args, cur.Primary.Value(), cur.Secondary.Value())
		conds = append(conds, fmt.Sprintf("(%s, %s) %s ($%d, $%d)", q.primary.column, q.secondary.column, op, len(args)-1, len(args)))
	}

	dir := "ASC"
	if params.Backward() {
		dir = "DESC"
	}

	sql := fmt.Sprintf("SELECT %s FROM %s", q.columns, q.table)
	if len(conds) > 0 {
		sql += " WHERE " + strings.Join(conds, " AND ")
	}
	sql += fmt.Sprintf(" ORDER BY %s %s, %s %s LIMIT %d", q.primary.column, dir, q.secondary.column, dir, params.Limit()+1)
	return sql, args, nil
}

// queryPage executes q, applies the lookahead, restores ascending order for
// backward pages and encodes the boundary cursors of the returned window.
func queryPage[T any](
	ctx context.Context,
	pool *pgxpool.Pool,
	q pageQuery,
	params pagination.Params,
	scan func(pgx.Rows) (T, error),
	cursorOf func(T) (pagination.Cursor, error),
) (pagination.Page[T], error) {
	var page pagination.Page[T]

	if err := params.Validate(); err != nil {
		return page, err
	}

	sql, args, err := q.build(params)
	if err != nil {
		return page, err
	}

	rows, err := pool.Query(ctx, sql, args...)
	if err != nil {
		return page, fmt.Errorf("page query: %w", err)
	}
	defer rows.Close()

	limit := params.Limit()
	items := make([]T, 0, limit)
	lookahead := false
	for rows.Next() {
		if len(items) == limit {
			lookahead = true
			break
		}
		item, err := scan(rows)
		if err != nil {
			return page, fmt.Errorf("scan page row: %w", err)
		}
		items = append(items, item)
	}
	rows.Close()
	if rows.Err() != nil {
		return page, fmt.Errorf("iterate page rows: %w", rows.Err())
	}

	if params.Backward() {
		for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
			items[i], items[j] = items[j], items[i]
		}
		page.HasPrev = lookahead
		page.HasNext = params.Before != nil
	} else {
		page.HasNext = lookahead
		page.HasPrev = params.After != nil
	}
	page.Items = items

	if len(items) > 0 {
		start, err := cursorOf(items[0])
		if err != nil {
			return page, err
		}
		if page.StartCursor, err = start.Encode(); err != nil {
			return page, err
		}
		end, err := cursorOf(items[len(items)-1])
		if err != nil {
			return page, err
		}
		if page.EndCursor, err = end.Encode(); err != nil {
			return page, err
		}
	}

	if params.WithTotal {
		countSQL := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", q.table, q.whereClause())
		var total int
		if err := pool.QueryRow(ctx, countSQL, q.args...).Scan(&total); err != nil {
			return page, fmt.Errorf("count page total: %w", err)
		}
		page.TotalCount = &total
	}

	return page, nil
}

// ListingRepository is the cursor-paged read side over the mutating tables.
type ListingRepository struct {
	pool *pgxpool.Pool
}

func NewListingRepository(pool *pgxpool.Pool) *ListingRepository {
	return &ListingRepository{pool: pool}
}

func uuidCursor(primary pagination.SortKey, id string) (pagination.Cursor, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return pagination.Cursor{}, fmt.Errorf("cursor secondary key: %w", err)
	}
	return pagination.Cursor{Primary: primary, Secondary: pagination.UUIDKey(parsed)}, nil
}

// ListReservations pages reservations ordered by (created_at, id). Line
// items are not loaded on the list path.
func (r *ListingRepository) ListReservations(ctx context.Context, filter app.ReservationFilter, params pagination.Params) (pagination.Page[domain.Reservation], error) {
	q := pageQuery{
		table:     "reservations",
		columns:   "id, event_id, user_id, status, expires_at, created_at, confirmed_at, cancelled_at",
		primary:   sortSpec{column: "created_at", kind: pagination.KindTime},
		secondary: sortSpec{column: "id", kind: pagination.KindUUID},
	}
	if filter.EventID != "" {
		q.where("event_id = %s", filter.EventID)
	}
	if filter.UserID != "" {
		q.where("user_id = %s", filter.UserID)
	}
	if filter.Status != "" {
		q.where("status = %s", string(filter.Status))
	}

	return queryPage(ctx, r.pool, q, params,
		func(rows pgx.Rows) (domain.Reservation, error) {
			var res domain.Reservation
			err := rows.Scan(&res.ID, &res.EventID, &res.UserID, &res.Status, &res.ExpiresAt, &res.CreatedAt, &res.ConfirmedAt, &res.CancelledAt)
			return res, err
		},
		func(res domain.Reservation) (pagination.Cursor, error) {
			return uuidCursor(pagination.TimeKey(res.CreatedAt), res.ID)
		},
	)
}

// ListSeats pages seats ordered by (label, id).
func (r *ListingRepository) ListSeats(ctx context.Context, filter app.SeatFilter, params pagination.Params) (pagination.Page[domain.Seat], error) {
	q := pageQuery{
		table:     "seats",
		columns:   "id, venue_id, label, status, COALESCE(current_holder, ''), COALESCE(current_reservation_id::text, ''), COALESCE(reserved_until, 'epoch'::timestamptz)",
		primary:   sortSpec{column: "label", kind: pagination.KindString},
		secondary: sortSpec{column: "id", kind: pagination.KindUUID},
	}
	if filter.VenueID != "" {
		q.where("venue_id = %s", filter.VenueID)
	}
	if filter.Status != "" {
		q.where("status = %s", string(filter.Status))
	}

	return queryPage(ctx, r.pool, q, params,
		func(rows pgx.Rows) (domain.Seat, error) {
			var s domain.Seat
			err := rows.Scan(&s.ID, &s.VenueID, &s.Label, &s.Status, &s.CurrentHolder, &s.CurrentReservationID, &s.ReservedUntil)
			return s, err
		},
		func(s domain.Seat) (pagination.Cursor, error) {
			return uuidCursor(pagination.StringKey(s.Label), s.ID)
		},
	)
}

// ListInventory pages inventory units ordered by (etag_updated_at, id), most
// recently mutated rows last.
func (r *ListingRepository) ListInventory(ctx context.Context, filter app.InventoryFilter, params pagination.Params) (pagination.Page[domain.InventoryUnit], error) {
	q := pageQuery{
		table:     "inventory_units",
		columns:   "id, event_id, name, total, available, etag, etag_updated_at",
		primary:   sortSpec{column: "etag_updated_at", kind: pagination.KindTime},
		secondary: sortSpec{column: "id", kind: pagination.KindUUID},
	}
	if filter.EventID != "" {
		q.where("event_id = %s", filter.EventID)
	}
	if !filter.MutatedSince.IsZero() {
		q.where("etag_updated_at >= %s", filter.MutatedSince)
	}

	return queryPage(ctx, r.pool, q, params,
		func(rows pgx.Rows) (domain.InventoryUnit, error) {
			var u domain.InventoryUnit
			err := rows.Scan(&u.ID, &u.EventID, &u.Name, &u.Total, &u.Available, &u.ETag.Version, &u.ETag.UpdatedAt)
			return u, err
		},
		func(u domain.InventoryUnit) (pagination.Cursor, error) {
			return uuidCursor(pagination.TimeKey(u.ETag.UpdatedAt), u.ID)
		},
	)
}
