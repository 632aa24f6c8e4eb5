package session

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps every Redis failure.
var ErrRedisUnavailable = errors.New("redis unavailable")

const minSlidingTTL = time.Second

// Store is a Redis-backed hash-per-session store that handles expiration and
// sliding window renewal.
type Store struct {
	redis         redis.UniversalClient
	prefix        string
	ttl           time.Duration
	sliding       bool
	jitterEnabled bool
	jitterRange   time.Duration
}

// NewStore creates a session [Store] backed by the given Redis client.
// prefix sets the Redis key namespace and ttl the idle lifetime; sliding,
// jitterEnabled and jitterRange control renewal.
func NewStore(
	redis redis.UniversalClient,
	prefix string,
	ttl time.Duration,
	sliding bool,
	jitterEnabled bool,
	jitterRange time.Duration,
) *Store {
	if prefix == "" {
		prefix = "authen:sess"
	}
	return &Store{
		redis:         redis,
		prefix:        prefix,
		ttl:           ttl,
		sliding:       sliding,
		jitterEnabled: jitterEnabled,
		jitterRange:   jitterRange,
	}
}

func (s *Store) key(id string) string {
	return s.prefix + ":" + id
}

// Get reads one field.
//
//	Performance: 1 Redis HGET.
func (s *Store) Get(ctx context.Context, id, field string) (string, bool, error) {
	v, err := s.redis.HGet(ctx, s.key(id), field).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return v, true, nil
}

// Set writes one field and refreshes the TTL.
//
//	Performance: 1 MULTI/EXEC with HSET + PEXPIRE.
func (s *Store) Set(ctx context.Context, id, field, value string) error {
	ttl, err := s.nextTTL()
	if err != nil {
		return err
	}
	key := s.key(id)
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, field, value)
		if ttl > 0 {
			pipe.PExpire(ctx, key, ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Delete removes fields. Deleting absent fields is not an error.
func (s *Store) Delete(ctx context.Context, id string, fields ...string) error {
	if len(fields) == 0 {
		return nil
	}
	if err := s.redis.HDel(ctx, s.key(id), fields...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Destroy removes the whole session.
func (s *Store) Destroy(ctx context.Context, id string) error {
	if err := s.redis.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Touch renews the TTL of an existing session. It is a no-op unless sliding
// expiration is enabled.
func (s *Store) Touch(ctx context.Context, id string) error {
	if !s.sliding || s.ttl <= 0 {
		return nil
	}
	ttl, err := s.nextTTL()
	if err != nil {
		return err
	}
	if err := s.redis.PExpire(ctx, s.key(id), ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Exists reports whether the session has any stored fields.
//
//	Performance: 1 Redis EXISTS.
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	n, err := s.redis.Exists(ctx, s.key(id)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n > 0, nil
}

// Rename moves the fields and TTL of session oldID to newID.
//
//	Performance: 1 Redis RENAME.
func (s *Store) Rename(ctx context.Context, oldID, newID string) error {
	if err := s.redis.Rename(ctx, s.key(oldID), s.key(newID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Fields returns every field of the session.
func (s *Store) Fields(ctx context.Context, id string) (map[string]string, error) {
	m, err := s.redis.HGetAll(ctx, s.key(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return m, nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}

func (s *Store) nextTTL() (time.Duration, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	next := s.ttl
	if s.jitterEnabled && s.jitterRange > 0 {
		jitter, err := randomJitter(s.jitterRange)
		if err != nil {
			return 0, err
		}
		next += jitter
	}
	if next < minSlidingTTL {
		next = minSlidingTTL
	}
	return next, nil
}

func randomJitter(jitterRange time.Duration) (time.Duration, error) {
	if jitterRange <= 0 {
		return 0, nil
	}

	max := jitterRange.Nanoseconds()
	if max > (math.MaxInt64-1)/2 {
		return 0, errors.New("jitter range too large")
	}
	span := max*2 + 1

	n, err := rand.Int(rand.Reader, big.NewInt(span))
	if err != nil {
		return 0, err
	}

	return time.Duration(n.Int64() - max), nil
}
