package redis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/caseflow/playbook/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

var (
	// ErrLockAcquire is returned when the lock cannot be acquired.
	ErrLockAcquire = errors.New("failed to acquire distributed lock")
)

// releaseScript deletes the lock only when the caller still owns it, so a
// slow holder cannot release a lock that already expired and moved on.
var releaseScript = backend.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end`)

// Locker implements ports.DistributedLocker using Redis SET NX PX.
type Locker struct {
	client *backend.Client
	prefix string
}

// NewLocker creates a new Redis locker.
func NewLocker(client *backend.Client, prefix string) *Locker {
	return &Locker{
		client: client,
		prefix: prefix,
	}
}

// Lock acquires a distributed lock for the given key. It tries immediately
// and then polls until the context is cancelled. The lock value is unique
// per acquisition so release can verify ownership.
func (l *Locker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	lockKey := l.prefix + "lock:" + key
	val := uuid.New().String()

	try := func() (ports.UnlockFunc, bool, error) {
		success, err := l.client.SetNX(ctx, lockKey, val, ttl).Result()
		if err != nil {
			return nil, false, err
		}
		if !success {
			return nil, false, nil
		}
		return func(ctx context.Context) error {
			return releaseScript.Run(ctx, l.client, []string{lockKey}, val).Err()
		}, true, nil
	}

	if unlock, ok, err := try(); err != nil || ok {
		return unlock, err
	}

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			unlock, ok, err := try()
			if err != nil {
				return nil, err
			}
			if ok {
				return unlock, nil
			}
		}
	}
}
