// Package redisx provides a redis-backed seat lock manager for deployments
// that want hold traffic off the primary store. Permanent seat state still
// lives in Postgres; only the ephemeral hold window is kept here, in one
// key per seat with a server-side TTL.
package redisx

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ZekromNguyen/Block-Ticket-sub004/internal/domain"
)

const lockKeyPrefix = "seatlock:"

// tryLockScript checks every key before setting any, so the batch is
// all-or-nothing: a single seat held by a different holder fails the whole
// batch and leaves nothing locked.
var tryLockScript = redis.NewScript(`
local holder = ARGV[1]
local ttl = tonumber(ARGV[2])

for i = 1, #KEYS do
	local current = redis.call('GET', KEYS[i])
	if current and current ~= holder then
		return 0
	end
end

for i = 1, #KEYS do
	redis.call('SET', KEYS[i], holder, 'PX', ttl)
end

return 1
`)

// releaseScript deletes only keys still owned by the holder; everything
// else is left alone, which makes Release idempotent.
var releaseScript = redis.NewScript(`
local holder = ARGV[1]

for i = 1, #KEYS do
	if redis.call('GET', KEYS[i]) == holder then
		redis.call('DEL', KEYS[i])
	end
end

return 1
`)

// extendScript pushes every TTL forward only while all holds are still
// owned by the holder; an expired or stolen key fails the whole batch.
var extendScript = redis.NewScript(`
local holder = ARGV[1]
local extra = tonumber(ARGV[2])

for i = 1, #KEYS do
	if redis.call('GET', KEYS[i]) ~= holder then
		return 0
	end
end

for i = 1, #KEYS do
	local remaining = redis.call('PTTL', KEYS[i])
	if remaining < 0 then
		return 0
	end
	redis.call('PEXPIRE', KEYS[i], remaining + extra)
end

return 1
`)

type SeatLockManager struct {
	client *redis.Client
}

func NewSeatLockManager(client *redis.Client) *SeatLockManager {
	return &SeatLockManager{client: client}
}

func lockKeys(seatIDs []string) []string {
	keys := make([]string, 0, len(seatIDs))
	for _, id := range seatIDs {
		keys = append(keys, lockKeyPrefix+id)
	}
	// Deterministic order so overlapping batches contend predictably.
	sort.Strings(keys)
	return keys
}

func (m *SeatLockManager) TryLock(ctx context.Context, seatIDs []string, holderID string, ttl time.Duration) (bool, error) {
	if len(seatIDs) == 0 || holderID == "" {
		return false, domain.ErrInvalidID
	}
	if ttl <= 0 {
		return false, domain.ErrInvalidTTL
	}

	ok, err := tryLockScript.Run(ctx, m.client, lockKeys(seatIDs), holderID, ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("lock seats: %w", err)
	}
	return ok == 1, nil
}

func (m *SeatLockManager) Release(ctx context.Context, seatIDs []string, holderID string) error {
	if len(seatIDs) == 0 {
		return nil
	}
	if err := releaseScript.Run(ctx, m.client, lockKeys(seatIDs), holderID).Err(); err != nil {
		return fmt.Errorf("release seats: %w", err)
	}
	return nil
}

func (m *SeatLockManager) Extend(ctx context.Context, seatIDs []string, holderID string, additionalTTL time.Duration) (bool, error) {
	if len(seatIDs) == 0 || holderID == "" {
		return false, domain.ErrInvalidID
	}
	if additionalTTL <= 0 {
		return false, domain.ErrInvalidTTL
	}

	ok, err := extendScript.Run(ctx, m.client, lockKeys(seatIDs), holderID, additionalTTL.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("extend seat holds: %w", err)
	}
	return ok == 1, nil
}

// AreLocked reports whether every seat currently carries a live hold.
// Expiry needs no check of its own: redis evicts the key when the TTL lapses.
func (m *SeatLockManager) AreLocked(ctx context.Context, seatIDs []string) (bool, error) {
	if len(seatIDs) == 0 {
		return false, domain.ErrInvalidID
	}

	n, err := m.client.Exists(ctx, lockKeys(seatIDs)...).Result()
	if err != nil {
		return false, fmt.Errorf("probe seat locks: %w", err)
	}
	return n == int64(len(seatIDs)), nil
}
