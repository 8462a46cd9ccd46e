// Package lock provides the cross-replica mutex that keeps two service
// instances from reconciling the same scope at once.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker grants a named lock for at most ttl. acquired is false when another
// holder has it.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (unlock func(context.Context) error, acquired bool, err error)
}

// ErrLockLost is returned by unlock when the lock expired or was taken over
// while it was held.
var ErrLockLost = errors.New("lock lost before release")

// releaseScript deletes the key only while it still holds our token, so an
// expired lock taken over by another holder is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

const extendTimeout = 5 * time.Second

var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

type RedisLocker struct {
	client   redis.Cmdable
	newToken func() string
}

func NewRedisLocker(client redis.Cmdable) *RedisLocker {
	return &RedisLocker{client: client, newToken: uuid.NewString}
}

// TryLock takes key for ttl and keeps extending it every ttl/3 until unlock
// is called.
func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	token := l.newToken()

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}

	h := l.hold(key, token, ttl)
	go h.keepAlive(ttl / 3)
	return h.unlock, true, nil
}

func (l *RedisLocker) hold(key, token string, ttl time.Duration) *heldLock {
	return &heldLock{
		client: l.client,
		key:    key,
		token:  token,
		ttl:    ttl,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

type heldLock struct {
	client redis.Cmdable
	key    string
	token  string
	ttl    time.Duration

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	lost     bool
}

// keepAlive extends the lock until stop is closed or the key no longer holds
// our token. A failed extension is retried on the next tick.
func (h *heldLock) keepAlive(every time.Duration) {
	defer close(h.done)
	if every <= 0 {
		return
	}

	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-h.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), extendTimeout)
			n, err := extendScript.Run(ctx, h.client, []string{h.key}, h.token, h.ttl.Milliseconds()).Int64()
			cancel()
			if err == nil && n == 0 {
				h.lost = true
				return
			}
		}
	}
}

func (h *heldLock) unlock(ctx context.Context) error {
	h.stopOnce.Do(func() { close(h.stop) })
	<-h.done
	if h.lost {
		return fmt.Errorf("%w: %s", ErrLockLost, h.key)
	}

	if err := releaseScript.Run(ctx, h.client, []string{h.key}, h.token).Err(); err != nil {
		return fmt.Errorf("release lock %s: %w", h.key, err)
	}
	return nil
}
