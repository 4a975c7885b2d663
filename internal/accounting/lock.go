package accounting

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultLockTTL = 2 * time.Minute

// releaseScript deletes the lock only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// ReportLockKey builds the redis key guarding generation of one statement key.
func ReportLockKey(key string) string {
	return fmt.Sprintf("reports:run:%s:lock", key)
}

// Locker serialises regeneration of the same statement across processes.
type Locker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewLocker returns a locker. A nil client yields a locker that always succeeds.
func NewLocker(client *redis.Client, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &Locker{client: client, ttl: ttl}
}

// Acquire takes the lock for key. It returns ErrGenerationInProgress when the
// lock is held elsewhere. The returned release func is always non-nil.
func (l *Locker) Acquire(ctx context.Context, key string) (func(), error) {
	if l == nil || l.client == nil {
		return func() {}, nil
	}
	token := uuid.NewString()
	redisKey := ReportLockKey(key)
	ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
	if err != nil {
		return func() {}, fmt.Errorf("accounting: acquire lock: %w", err)
	}
	if !ok {
		return func() {}, ErrGenerationInProgress
	}
	return func() {
		_ = releaseScript.Run(context.WithoutCancel(ctx), l.client, []string{redisKey}, token).Err()
	}, nil
}
