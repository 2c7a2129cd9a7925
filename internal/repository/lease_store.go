package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// LeaseStore is the shared keyed store backing seat locks.  Every seat lock
// decision is serialized by CreateIfAbsent; CompareAndDelete and
// CompareAndPersist only succeed when the stored value is byte-for-byte the
// value the caller read, which makes ownership checks and the mutation a
// single atomic step.
type LeaseStore interface {
	// CreateIfAbsent stores value under key with the given ttl unless the
	// key already exists.  It reports whether the key was created.
	CreateIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	// Get returns the value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// Delete removes the keys; missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error
	// TTL returns the remaining lifetime of key.  A negative duration means
	// the key has no expiry or does not exist.
	TTL(ctx context.Context, key string) (time.Duration, error)
	// MultiGet reads every key and its ttl in one round trip.  Failures are
	// reported per entry so one bad key does not spoil the batch.
	MultiGet(ctx context.Context, keys []string) []LeaseEntry
	// CompareAndDelete deletes key if it currently holds expected.
	CompareAndDelete(ctx context.Context, key, expected string) (bool, error)
	// CompareAndPersist replaces the value of key with value and drops its
	// expiry if it currently holds expected.
	CompareAndPersist(ctx context.Context, key, expected, value string) (bool, error)
}

// LeaseEntry is one result of LeaseStore.MultiGet.
type LeaseEntry struct {
	Key   string
	Value string
	Found bool
	TTL   time.Duration // negative when the key has no expiry
	Err   error
}

var (
	compareAndDeleteScript = redis.NewScript(`
		if redis.call('GET', KEYS[1]) == ARGV[1] then
			return redis.call('DEL', KEYS[1])
		end
		return 0
	`)

	// SET without EX/PX clears any existing ttl.
	compareAndPersistScript = redis.NewScript(`
		if redis.call('GET', KEYS[1]) == ARGV[1] then
			redis.call('SET', KEYS[1], ARGV[2])
			return 1
		end
		return 0
	`)
)

// RedisLeaseStore implements LeaseStore on a single Redis deployment.
type RedisLeaseStore struct {
	rdb redis.UniversalClient
}

// NewRedisLeaseStore returns a lease store bound to the provided client.
func NewRedisLeaseStore(rdb redis.UniversalClient) *RedisLeaseStore {
	return &RedisLeaseStore{rdb: rdb}
}

// CreateIfAbsent issues SET key value NX PX ttl, so creation and expiry are
// one command and a crash can never leave a lock without a lease.
func (s *RedisLeaseStore) CreateIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return s.rdb.SetNX(ctx, key, value, ttl).Result()
}

func (s *RedisLeaseStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *RedisLeaseStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.rdb.Del(ctx, keys...).Err()
}

func (s *RedisLeaseStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	d, err := s.rdb.PTTL(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	// go-redis reports -1 (no expiry) and -2 (missing) as raw durations.
	if d < 0 {
		return -1, nil
	}
	return d, nil
}

func (s *RedisLeaseStore) MultiGet(ctx context.Context, keys []string) []LeaseEntry {
	entries := make([]LeaseEntry, len(keys))
	if len(keys) == 0 {
		return entries
	}
	gets := make([]*redis.StringCmd, len(keys))
	ttls := make([]*redis.DurationCmd, len(keys))
	// Exec reports the first failed command, which includes redis.Nil for
	// every missing key; per-command results are inspected below instead.
	_, _ = s.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, k := range keys {
			gets[i] = p.Get(ctx, k)
			ttls[i] = p.PTTL(ctx, k)
		}
		return nil
	})
	for i, k := range keys {
		e := LeaseEntry{Key: k, TTL: -1}
		v, err := gets[i].Result()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			e.Err = err
		default:
			e.Value, e.Found = v, true
		}
		if e.Found {
			d, err := ttls[i].Result()
			if err != nil {
				e.Err = err
			} else if d > 0 {
				e.TTL = d
			}
		}
		entries[i] = e
	}
	return entries
}

func (s *RedisLeaseStore) CompareAndDelete(ctx context.Context, key, expected string) (bool, error) {
	n, err := compareAndDeleteScript.Run(ctx, s.rdb, []string{key}, expected).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *RedisLeaseStore) CompareAndPersist(ctx context.Context, key, expected, value string) (bool, error) {
	n, err := compareAndPersistScript.Run(ctx, s.rdb, []string{key}, expected, value).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
