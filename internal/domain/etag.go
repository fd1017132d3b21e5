package domain

import (
	"time"

	"github.com/google/uuid"
)

// ETag is the version token carried by every mutable row. The version string
// changes exactly when persisted state changes; UpdatedAt records when.
type ETag struct {
	Version   string
	UpdatedAt time.Time
}

// NewETag returns a fresh, never-before-used tag.
func NewETag(now time.Time) ETag {
	return ETag{Version: uuid.NewString(), UpdatedAt: now.UTC()}
}

// Matches reports whether two tags refer to the same persisted version.
// Only the version string participates; timestamps are informational.
// A zero tag matches nothing, including another zero tag.
func (e ETag) Matches(other ETag) bool {
	return e.Version != "" && e.Version == other.Version
}

func (e ETag) IsZero() bool {
	return e.Version == ""
}
