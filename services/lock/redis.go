package locksvc

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/darasa-app/darasa/core"
)

// releaseScript deletes the lock key only if this holder still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RunLock is a Redis SET NX lock guarding jobs that must not run
// concurrently across replicas, such as the live-class starting sweep.
// The TTL bounds how long a crashed holder can block the next run.
type RunLock struct {
	client *redis.Client
	key    string
	holder string
}

func NewRedisRunLock(conf *core.Config, key string) *RunLock {
	return &RunLock{
		client: redis.NewClient(&redis.Options{
			Addr:     conf.Redis.Addr,
			Password: conf.Redis.Password,
			DB:       conf.Redis.DB,
		}),
		key:    key,
		holder: uuid.New().String(),
	}
}

// Acquire tries to take the lock; false means another holder has it.
func (l *RunLock) Acquire(ctx context.Context, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key, l.holder, ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, "acquiring run lock")
	}
	return ok, nil
}

// Release drops the lock if this instance still holds it; releasing an
// expired or stolen lock is a no-op.
func (l *RunLock) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.key}, l.holder).Err(); err != nil && err != redis.Nil {
		return errors.Wrap(err, "releasing run lock")
	}
	return nil
}

func (l *RunLock) Close() error {
	return l.client.Close()
}
