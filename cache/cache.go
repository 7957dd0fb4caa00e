package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// ============================================================================
// SNAPSHOT CACHE — Redis-backed memo of computed dashboard payloads
// ============================================================================
// Every payload can be recomputed from the session's table and filter spec,
// so the cache is strictly optional: without Redis (nil client) every call
// is a miss and every write is a no-op, and Redis errors are returned for
// the caller to log, never to fail a request on.
// ============================================================================

// DefaultTTL bounds how long a payload is kept.
const DefaultTTL = 15 * time.Minute

// Service wraps an optional Redis client.
type Service struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// Disabled returns a cache that never stores anything.
func Disabled() *Service {
	return &Service{ttl: DefaultTTL, prefix: "opsboard"}
}

// New connects to the Redis server at redisURL ("redis://host:6379/0").
// An empty URL yields a disabled cache. When the server cannot be reached
// the returned cache is disabled and the error says why.
func New(redisURL string, ttl time.Duration) (*Service, error) {
	s := Disabled()
	if ttl > 0 {
		s.ttl = ttl
	}
	if redisURL == "" {
		return s, nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return s, fmt.Errorf("redis url: %w", err)
	}
	client := redis.NewClient(opts)

	var lastErr error
	for i := 0; i < 3; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		lastErr = client.Ping(ctx).Err()
		cancel()
		if lastErr == nil {
			s.client = client
			log.Printf("🗄️ Opsboard: snapshot cache on %s (ttl %s)", opts.Addr, s.ttl)
			return s, nil
		}
		log.Printf("Redis ping attempt %d/3 failed: %v", i+1, lastErr)
		time.Sleep(time.Duration(i+1) * 200 * time.Millisecond)
	}
	_ = client.Close()
	return s, fmt.Errorf("redis ping failed after 3 attempts: %w", lastErr)
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, ttl time.Duration) *Service {
	s := Disabled()
	s.client = client
	if ttl > 0 {
		s.ttl = ttl
	}
	return s
}

// Available reports whether a Redis client is attached.
func (s *Service) Available() bool {
	return s.client != nil
}

// Get loads key into dest. It reports false on a miss or without Redis.
func (s *Service) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if s.client == nil {
		return false, nil
	}
	val, err := s.client.Get(ctx, s.prefix+":"+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(val, dest); err != nil {
		return false, err
	}
	return true, nil
}

// Set stores value under key for the cache TTL.
func (s *Service) Set(ctx context.Context, key string, value interface{}) error {
	if s.client == nil {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.prefix+":"+key, data, s.ttl).Err()
}

// Delete removes key.
func (s *Service) Delete(ctx context.Context, key string) error {
	if s.client == nil {
		return nil
	}
	return s.client.Del(ctx, s.prefix+":"+key).Err()
}

// Close releases the Redis connection.
func (s *Service) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}
