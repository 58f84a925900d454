package presence

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	mirrorKeyPrefix = "presence:"
	mirrorTTL       = 24 * time.Hour
)

// RedisMirror copies presence writes into Redis so that dashboards and other
// processes can read them. Entries expire on their own; a crashed instance
// cannot leave users online forever.
type RedisMirror struct {
	rdb *redis.Client
}

func NewRedisMirror(rdb *redis.Client) *RedisMirror {
	return &RedisMirror{rdb: rdb}
}

func (m *RedisMirror) Set(ctx context.Context, userID string, status Status) error {
	key := mirrorKeyPrefix + userID
	if status == StatusOffline {
		return m.rdb.Del(ctx, key).Err()
	}
	return m.rdb.Set(ctx, key, string(status), mirrorTTL).Err()
}
