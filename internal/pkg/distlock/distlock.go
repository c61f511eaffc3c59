// Package distlock coordinates work that must run on at most one
// gateway instance at a time, such as the warmup completion sweep.
package distlock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while we still own it. A plain DEL
// could drop a lock that expired and was re-acquired by another
// instance.
var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	end
	return 0
`)

// Mutex is a Redis-backed lock with ownership verification. The TTL
// bounds how long a crashed holder can block others. Each Mutex value
// is single-goroutine; share the name, not the instance.
type Mutex struct {
	client *redis.Client
	key    string
	token  string
	ttl    time.Duration
}

func NewMutex(client *redis.Client, name string, ttl time.Duration) *Mutex {
	b := make([]byte, 16)
	rand.Read(b)
	return &Mutex{
		client: client,
		key:    "lock:" + name,
		token:  hex.EncodeToString(b),
		ttl:    ttl,
	}
}

// TryLock attempts a non-blocking acquire. false means another holder
// currently owns the lock.
func (m *Mutex) TryLock(ctx context.Context) (bool, error) {
	ok, err := m.client.SetNX(ctx, m.key, m.token, m.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire %s: %w", m.key, err)
	}
	return ok, nil
}

// Unlock releases the lock if this Mutex still owns it. Releasing a
// lock lost to TTL expiry is a no-op, not an error.
func (m *Mutex) Unlock(ctx context.Context) error {
	if _, err := releaseScript.Run(ctx, m.client, []string{m.key}, m.token).Result(); err != nil {
		return fmt.Errorf("release %s: %w", m.key, err)
	}
	return nil
}
