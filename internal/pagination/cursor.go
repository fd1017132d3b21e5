// Package pagination implements opaque cursor tokens for keyset paging.
// A cursor names the (primary, secondary) sort-key values of a boundary row;
// scans resume strictly after (or before) that pair, so pages stay stable
// while writers mutate the underlying rows.
package pagination

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/ZekromNguyen/Block-Ticket-sub004/internal/domain"
)

// Kind tags the value type carried by a SortKey. The set is closed: decode
// matches on it exhaustively and rejects anything else.
type Kind string

const (
	KindString Kind = "string"
	KindInt    Kind = "int"
	KindTime   Kind = "time"
	KindUUID   Kind = "uuid"
)

// SortKey is one boundary value, tagged with its type.
type SortKey struct {
	kind Kind
	str  string
	num  int64
	ts   time.Time
	id   uuid.UUID
}

func StringKey(s string) SortKey { return SortKey{kind: KindString, str: s} }
func IntKey(i int64) SortKey     { return SortKey{kind: KindInt, num: i} }
func TimeKey(t time.Time) SortKey {
	return SortKey{kind: KindTime, ts: t.UTC().Truncate(time.Microsecond)}
}
func UUIDKey(id uuid.UUID) SortKey { return SortKey{kind: KindUUID, id: id} }

func (k SortKey) Kind() Kind { return k.kind }

// Value returns the underlying value in a form usable as a query argument.
func (k SortKey) Value() any {
	switch k.kind {
	case KindString:
		return k.str
	case KindInt:
		return k.num
	case KindTime:
		return k.ts
	case KindUUID:
		return k.id.String()
	}
	return nil
}

// Equal reports whether two keys carry the same kind and value.
func (k SortKey) Equal(other SortKey) bool {
	if k.kind != other.kind {
		return false
	}
	switch k.kind {
	case KindString:
		return k.str == other.str
	case KindInt:
		return k.num == other.num
	case KindTime:
		return k.ts.Equal(other.ts)
	case KindUUID:
		return k.id == other.id
	}
	return false
}

type wireKey struct {
	Kind  Kind   `json:"k"`
	Value string `json:"v"`
}

func (k SortKey) toWire() (wireKey, error) {
	switch k.kind {
	case KindString:
		return wireKey{Kind: KindString, Value: k.str}, nil
	case KindInt:
		return wireKey{Kind: KindInt, Value: strconv.FormatInt(k.num, 10)}, nil
	case KindTime:
		return wireKey{Kind: KindTime, Value: k.ts.Format(time.RFC3339Nano)}, nil
	case KindUUID:
		return wireKey{Kind: KindUUID, Value: k.id.String()}, nil
	}
	return wireKey{}, fmt.Errorf("%w: unsupported sort key kind %q", domain.ErrInvalidCursor, k.kind)
}

func keyFromWire(w wireKey) (SortKey, error) {
	switch w.Kind {
	case KindString:
		return StringKey(w.Value), nil
	case KindInt:
		n, err := strconv.ParseInt(w.Value, 10, 64)
		if err != nil {
			return SortKey{}, fmt.Errorf("%w: malformed int key %q", domain.ErrInvalidCursor, w.Value)
		}
		return IntKey(n), nil
	case KindTime:
		t, err := time.Parse(time.RFC3339Nano, w.Value)
		if err != nil {
			return SortKey{}, fmt.Errorf("%w: malformed time key %q", domain.ErrInvalidCursor, w.Value)
		}
		return TimeKey(t), nil
	case KindUUID:
		id, err := uuid.Parse(w.Value)
		if err != nil {
			return SortKey{}, fmt.Errorf("%w: malformed uuid key %q", domain.ErrInvalidCursor, w.Value)
		}
		return UUIDKey(id), nil
	}
	return SortKey{}, fmt.Errorf("%w: unknown sort key kind %q", domain.ErrInvalidCursor, w.Kind)
}

// Cursor is the decoded form of a page boundary. The secondary key must be
// drawn from a unique column so that rows tying on the primary key still have
// a total order.
type Cursor struct {
	Primary   SortKey
	Secondary SortKey
}

type wireCursor struct {
	Primary   wireKey `json:"p"`
	Secondary wireKey `json:"s"`
}

// Encode renders the cursor as an opaque URL-safe token.
func (c Cursor) Encode() (string, error) {
	p, err := c.Primary.toWire()
	if err != nil {
		return "", err
	}
	s, err := c.Secondary.toWire()
	if err != nil {
		return "", err
	}
	raw, err := json.Marshal(wireCursor{Primary: p, Secondary: s})
	if err != nil {
		return "", fmt.Errorf("encode cursor: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// Decode parses a token produced by Encode. Malformed input fails with
// domain.ErrInvalidCursor; it never silently defaults.
func Decode(token string) (Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: not base64url", domain.ErrInvalidCursor)
	}
	var w wireCursor
	if err := json.Unmarshal(raw, &w); err != nil {
		return Cursor{}, fmt.Errorf("%w: not a cursor payload", domain.ErrInvalidCursor)
	}
	primary, err := keyFromWire(w.Primary)
	if err != nil {
		return Cursor{}, err
	}
	secondary, err := keyFromWire(w.Secondary)
	if err != nil {
		return Cursor{}, err
	}
	return Cursor{Primary: primary, Secondary: secondary}, nil
}
