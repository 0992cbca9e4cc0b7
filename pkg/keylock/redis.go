package keylock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lease only if the caller still owns it, so a
// holder whose lease expired cannot release a lock acquired by someone else.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLock is a Locker leasing keys in Redis with SET NX. It serializes
// work across processes sharing one storage namespace; use Mutex when a
// single process owns the namespace.
type RedisLock struct {
	client     redis.UniversalClient
	prefix     string
	leaseTTL   time.Duration
	retryDelay time.Duration
}

// RedisLockConfig configures lease behavior.
type RedisLockConfig struct {
	Prefix     string        `env:"KEYLOCK_PREFIX" envDefault:"fieldstore:lock:"`
	LeaseTTL   time.Duration `env:"KEYLOCK_LEASE_TTL" envDefault:"30s"`
	RetryDelay time.Duration `env:"KEYLOCK_RETRY_DELAY" envDefault:"50ms"`
}

// NewRedisLock creates a Redis-backed keyed lock.
func NewRedisLock(client redis.UniversalClient, cfg RedisLockConfig) (*RedisLock, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	if cfg.LeaseTTL <= 0 {
		return nil, fmt.Errorf("%w: lease TTL must be positive", ErrInvalidLease)
	}

	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = 50 * time.Millisecond
	}

	return &RedisLock{
		client:     client,
		prefix:     cfg.Prefix,
		leaseTTL:   cfg.LeaseTTL,
		retryDelay: retryDelay,
	}, nil
}

func (l *RedisLock) Lock(ctx context.Context, key string) (func(), error) {
	leaseKey := l.prefix + key
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, leaseKey, token, l.leaseTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrAcquireFailed, err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retryDelay):
		}
	}

	release := func() {
		// Best effort: the lease expires on its own if this fails.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, l.client, []string{leaseKey}, token).Err()
	}

	return release, nil
}

var (
	ErrNilClient     = errors.New("nil redis client")
	ErrInvalidLease  = errors.New("invalid lease configuration")
	ErrAcquireFailed = errors.New("failed to acquire key lease")
)
