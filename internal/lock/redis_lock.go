// Package lock provides short-lived, named, mutually-exclusive leases backed
// by Redis. True exclusivity across service instances comes only from here,
// never from in-process mutexes.
package lock

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// DefaultTTL must exceed the worst-case conflict-check transaction so a
	// lock cannot expire mid-transaction and let a second holder in.
	DefaultTTL = 30 * time.Second

	// DefaultAcquireWait bounds how long the synchronous API path spins on a
	// contended key before reporting the combination as busy.
	DefaultAcquireWait = 5 * time.Second

	retryInterval = 100 * time.Millisecond
)

// ErrNotAcquired reports that the key stayed owned by someone else for the
// whole acquisition window.
var ErrNotAcquired = errors.New("lock: not acquired")

// releaseScript deletes the key only when the caller still owns it, which
// makes release idempotent and safe after the lease has expired and been
// re-granted to someone else.
var releaseScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	end
	return 0
`)

// Locker grants mutually-exclusive leases over arbitrary keys.
type Locker interface {
	// Acquire blocks up to wait for the key, holding it for at most ttl.
	// The returned release func is idempotent and never reports an error to
	// the caller; a leaked lease self-expires after ttl.
	Acquire(ctx context.Context, key string, ttl, wait time.Duration) (release func(), err error)
	IsHeld(ctx context.Context, key string) (bool, error)
}

type RedisLocker struct {
	client redis.UniversalClient
}

func NewRedisLocker(client redis.UniversalClient) *RedisLocker {
	return &RedisLocker{client: client}
}

// CompositeKey builds the lock key for a seat combination. Seat ids are
// sorted so that two requests for the same seats, in any order, always
// contend on the same key, while disjoint combinations never block each
// other on the key itself.
func CompositeKey(screeningID int, seatIDs []int) string {
	sorted := make([]int, len(seatIDs))
	copy(sorted, seatIDs)
	sort.Ints(sorted)

	parts := make([]string, len(sorted))
	for i, id := range sorted {
		parts[i] = strconv.Itoa(id)
	}

	return fmt.Sprintf("hold_lock:%d:%s", screeningID, strings.Join(parts, "-"))
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl, wait time.Duration) (func(), error) {
	token := uuid.New().String()
	deadline := time.Now().Add(wait)

	for {
		ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("lock: acquire %s: %w", key, err)
		}

		if ok {
			return l.releaseFunc(key, token), nil
		}

		if time.Now().After(deadline) {
			return nil, ErrNotAcquired
		}

		// Jitter spreads retries from competing instances apart.
		sleep := retryInterval + time.Duration(rand.Int64N(int64(retryInterval)))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(sleep):
		}
	}
}

func (l *RedisLocker) releaseFunc(key, token string) func() {
	return func() {
		// Release must never be skipped on error paths, so it carries its own
		// timeout instead of the (possibly cancelled) request context.
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		releaseScript.Run(ctx, l.client, []string{key}, token)
	}
}

func (l *RedisLocker) IsHeld(ctx context.Context, key string) (bool, error) {
	n, err := l.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("lock: exists %s: %w", key, err)
	}

	return n == 1, nil
}
