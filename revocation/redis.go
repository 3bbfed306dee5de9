package revocation

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	revokeStatusMissing  int64 = 0
	revokeStatusDeleted  int64 = 1
	revokeStatusNotOwner int64 = -1
)

// revokeChainScript deletes a chain record only when the stored owner
// matches, so one user's logout can never tear down another user's chain.
// Records are "<hash>:<user id>"; the hash is hex and never contains a
// colon.
const revokeChainScript = `
local val = redis.call("GET", KEYS[1])
if not val then
  return 0
end
local sep = string.find(val, ":", 1, true)
if not sep then
  redis.call("DEL", KEYS[1])
  return 1
end
if string.sub(val, sep + 1) ~= ARGV[1] then
  return -1
end
redis.call("DEL", KEYS[1])
return 1
`

var revokeChainLua = redis.NewScript(revokeChainScript)

// RedisStore keeps one key per chain with a PX TTL, so expired records
// vanish without a sweeper.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
}

var _ Store = (*RedisStore)(nil)
var _ Pinger = (*RedisStore)(nil)

// NewRedisStore wraps an existing client. prefix namespaces the keys and
// defaults to "authsess".
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "authsess"
	}
	return &RedisStore{redis: client, prefix: prefix}
}

func (s *RedisStore) key(chainID string) string {
	return s.prefix + ":chain:" + chainID
}

func (s *RedisStore) Save(ctx context.Context, rec Record) error {
	ttl := time.Until(rec.ExpiresAt)
	if ttl <= 0 {
		// Redis cannot SET with a non-positive TTL. A dead-on-arrival
		// record means the caller's expiry math went wrong; surface it
		// through the sentinel so errors.Is dispatch fails closed.
		return fmt.Errorf("%w: record for chain %s already expired", ErrUnavailable, rec.ChainID)
	}

	value := rec.TokenHash + ":" + rec.UserID
	if err := s.redis.Set(ctx, s.key(rec.ChainID), value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Verify(ctx context.Context, userID, chainID, tokenHash string) error {
	value, err := s.redis.Get(ctx, s.key(chainID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	storedHash, storedUser, ok := strings.Cut(value, ":")
	if !ok {
		return fmt.Errorf("%w: corrupt record for chain %s", ErrUnavailable, chainID)
	}
	if storedUser != userID {
		return ErrNotFound
	}
	if subtle.ConstantTimeCompare([]byte(storedHash), []byte(tokenHash)) != 1 {
		return ErrHashMismatch
	}
	return nil
}

func (s *RedisStore) Revoke(ctx context.Context, userID, chainID string) error {
	result, err := revokeChainLua.Run(ctx, s.redis, []string{s.key(chainID)}, userID).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	code, ok := result.(int64)
	if !ok {
		return fmt.Errorf("%w: invalid revoke script response", ErrUnavailable)
	}
	switch code {
	case revokeStatusMissing, revokeStatusDeleted:
		return nil
	case revokeStatusNotOwner:
		return ErrNotFound
	default:
		return fmt.Errorf("%w: unknown revoke script status %d", ErrUnavailable, code)
	}
}

// Ping reports Redis connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
