package domain

import (
	"testing"
	"time"
)

func TestETagMatches(t *testing.T) {
	t.Parallel()

	now := time.Now()
	a := NewETag(now)
	b := NewETag(now)

	if !a.Matches(a) {
		t.Fatal("expected a tag to match itself")
	}
	if a.Matches(b) {
		t.Fatal("expected two fresh tags to differ")
	}

	// Timestamps are informational only.
	later := a
	later.UpdatedAt = now.Add(time.Hour)
	if !a.Matches(later) {
		t.Fatal("expected match to ignore UpdatedAt")
	}

	var zero ETag
	if zero.Matches(zero) {
		t.Fatal("expected a zero tag to match nothing, not even itself")
	}
	if a.Matches(zero) || zero.Matches(a) {
		t.Fatal("expected a zero tag never to match")
	}
	if !zero.IsZero() || a.IsZero() {
		t.Fatal("IsZero mismatch")
	}
}
