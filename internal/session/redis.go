package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/wochuna/Sacco/internal/logging"
)

const (
	sessionPrefix = "ussd:session:v1:"
	lockPrefix    = "ussd:session:lock:v1:"

	defaultLockTTL = 10 * time.Second
	lockRetry      = 10 * time.Millisecond
)

var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisStore keeps sessions in Redis so every replica sees the same state.
// Keys expire after the idle TTL; locks are SET NX PX leases owned by a
// random token.
type RedisStore struct {
	client  *redis.Client
	ttl     time.Duration
	lockTTL time.Duration
	logger  *slog.Logger
}

// NewRedisStore builds a Redis-backed session store. logger may be nil.
func NewRedisStore(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisStore {
	if logger == nil {
		logger = logging.Discard()
	}
	return &RedisStore{client: client, ttl: ttl, lockTTL: defaultLockTTL, logger: logger}
}

// Lock acquires the session lease, retrying until ctx is done.
func (s *RedisStore) Lock(ctx context.Context, id string) (func(), error) {
	key := lockPrefix + id
	token := uuid.NewString()

	ticker := time.NewTicker(lockRetry)
	defer ticker.Stop()
	for {
		ok, err := s.client.SetNX(ctx, key, token, s.lockTTL).Result()
		if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("acquire session lock: %w", err)
		}
		if ok {
			return func() { s.release(key, token) }, nil
		}
		select {
		case <-ctx.Done():
			return nil, ErrLockTimeout
		case <-ticker.C:
		}
	}
}

// release deletes the lease if this caller still owns it. A lease that cannot
// be released expires after lockTTL.
func (s *RedisStore) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := unlockScript.Run(ctx, s.client, []string{key}, token).Err(); err != nil {
		s.logger.Warn("session lock release failed",
			slog.String("key", key),
			slog.Duration("expires_in", s.lockTTL),
			slog.Any("error", err),
		)
	}
}

// Load fetches and decodes a session.
func (s *RedisStore) Load(ctx context.Context, id string) (*Session, bool, error) {
	raw, err := s.client.Get(ctx, sessionPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load session: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, false, fmt.Errorf("decode session: %w", err)
	}
	return &sess, true, nil
}

// Save writes the session and resets its expiry.
func (s *RedisStore) Save(ctx context.Context, sess *Session) error {
	sess.UpdatedAt = time.Now().UTC()
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.client.Set(ctx, sessionPrefix+sess.ID, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Delete removes a session.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, sessionPrefix+id).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
