// Package cachesvc holds the invite ledger: short lived keys claimed before an invite is sent.
package cachesvc

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/capitalizelearning/CapitalizeWebsite/core"
	"github.com/capitalizelearning/CapitalizeWebsite/core/account"
)

const keyPrefix = "capitalize:"

type redisLedger struct {
	client *redis.Client
}

var _ account.InviteLedger = (*redisLedger)(nil)

func NewRedisClient(conf *core.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
}

func NewRedisLedger(client *redis.Client) *redisLedger {
	return &redisLedger{client: client}
}

// Claim sets key if it is not set yet (SET NX) and reports whether it did.
func (l *redisLedger) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, keyPrefix+key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, errors.Wrapf(err, "claiming %q", key)
	}
	return ok, nil
}

func (l *redisLedger) Release(ctx context.Context, key string) error {
	return errors.Wrapf(l.client.Del(ctx, keyPrefix+key).Err(), "releasing %q", key)
}

// memoryLedger is a process local ledger used when no redis is configured.
type memoryLedger struct {
	mu   sync.Mutex
	keys map[string]time.Time // key: expiry
	now  func() time.Time
}

var _ account.InviteLedger = (*memoryLedger)(nil)

func NewMemoryLedger() *memoryLedger {
	return &memoryLedger{keys: make(map[string]time.Time), now: time.Now}
}

func (l *memoryLedger) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if exp, ok := l.keys[key]; ok && (exp.IsZero() || now.Before(exp)) {
		return false, nil
	}
	var exp time.Time
	if ttl > 0 {
		exp = now.Add(ttl)
	}
	l.keys[key] = exp
	return true, nil
}

func (l *memoryLedger) Release(_ context.Context, key string) error {
	l.mu.Lock()
	delete(l.keys, key)
	l.mu.Unlock()
	return nil
}
