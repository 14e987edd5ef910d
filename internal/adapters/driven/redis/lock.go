package redis

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/sercha-courses/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DistributedLock = (*ReplicaLock)(nil)

// keyspace prefixes every key this process writes to Redis
const keyspace = "sercha-courses"

// lockKey scopes a lock under the work it guards, e.g.
// sercha-courses:course-ingest:lock
func lockKey(name string) string {
	return keyspace + ":" + name + ":lock"
}

// ReplicaLock serialises work such as corpus ingestion across replicas.
// The key holds the replica ID of the holder so one replica cannot release
// or extend a lock taken by another.
type ReplicaLock struct {
	client    *redis.Client
	replicaID string
}

// NewReplicaLock creates a Redis-backed lock for this replica
func NewReplicaLock(client *redis.Client) *ReplicaLock {
	return &ReplicaLock{
		client:    client,
		replicaID: newReplicaID(),
	}
}

// newReplicaID returns host/pid/random
func newReplicaID() string {
	host, _ := os.Hostname()
	suffix := make([]byte, 6)
	_, _ = rand.Read(suffix)
	return fmt.Sprintf("%s/%d/%s", host, os.Getpid(), hex.EncodeToString(suffix))
}

// Acquire takes the lock if no replica holds it
func (l *ReplicaLock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, lockKey(name), l.replicaID, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire %s lock: %w", name, err)
	}
	return ok, nil
}

// holderScript runs a release or TTL refresh only while KEYS[1] still holds
// ARGV[1]. Returns 0 when another replica holds the key or it is gone.
var holderScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) ~= ARGV[1] then
		return 0
	end
	if ARGV[2] == "release" then
		return redis.call("del", KEYS[1])
	end
	return redis.call("pexpire", KEYS[1], ARGV[3])
`)

// Release drops the lock if this replica holds it. Unheld or expired locks
// are not an error.
func (l *ReplicaLock) Release(ctx context.Context, name string) error {
	err := holderScript.Run(ctx, l.client, []string{lockKey(name)}, l.replicaID, "release", 0).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to release %s lock: %w", name, err)
	}
	return nil
}

// Extend refreshes the TTL of a lock this replica holds
func (l *ReplicaLock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	n, err := holderScript.Run(ctx, l.client, []string{lockKey(name)}, l.replicaID, "extend", ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("failed to extend %s lock: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("%s lock is not held by replica %s", name, l.replicaID)
	}
	return nil
}

// Holder returns the replica ID holding the named lock, or "" when it is free
func (l *ReplicaLock) Holder(ctx context.Context, name string) (string, error) {
	id, err := l.client.Get(ctx, lockKey(name)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s lock holder: %w", name, err)
	}
	return id, nil
}

// Ping checks if the Redis backend is healthy.
func (l *ReplicaLock) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// ReplicaID identifies this replica in logs and as the lock value
func (l *ReplicaLock) ReplicaID() string {
	return l.replicaID
}
