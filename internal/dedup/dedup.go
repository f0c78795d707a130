package dedup

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "update:v1:"

// Store remembers inbound update ids so a redelivered update is processed
// once. Core operations stay idempotent on their own; the store only saves
// the redundant round trips.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

func New(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

// FirstSeen marks the update id and reports whether this was its first
// delivery. The SetNX reservation makes mark-and-check a single atomic step.
func (s *Store) FirstSeen(ctx context.Context, updateID int64) (bool, error) {
	key := keyPrefix + strconv.FormatInt(updateID, 10)
	return s.client.SetNX(ctx, key, "1", s.ttl).Result()
}
