package challenges

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okhaimie-dev/PallyApp/internal/common"
	"github.com/okhaimie-dev/PallyApp/internal/server/models"
	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix   = "pally:challenge:"
	redisMaxAttempts = 16

	// keys outlive the challenge so a late verify still reads it and
	// reports it expired rather than missing
	redisExpiryGrace = time.Minute
)

// ErrRedisContention is returned when an optimistic transaction keeps
// losing to concurrent writers.
var ErrRedisContention = errors.New("challenge store: too much contention")

// RedisStore keeps challenges in Redis (or Valkey) with a TTL of the
// challenge lifetime plus a grace period. Creation uses SET NX and updates run as WATCH/MULTI
// transactions, so several server instances can share it.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore connects to url (redis://host:port/db) and pings it.
func NewRedisStore(ctx context.Context, url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("can't ping redis: %w", err)
	}

	return &RedisStore{rdb: rdb}, nil
}

func redisKey(email string) string {
	return redisKeyPrefix + email
}

func ttlFor(c *models.Challenge, now time.Time) time.Duration {
	ttl := c.ExpiresAt.Sub(now) + redisExpiryGrace
	if ttl < time.Millisecond {
		ttl = time.Millisecond
	}
	return ttl
}

func (s *RedisStore) Create(ctx context.Context, c *models.Challenge, now time.Time) error {
	data, err := encode(c)
	if err != nil {
		return err
	}
	key := redisKey(c.Email)

	ok, err := s.rdb.SetNX(ctx, key, data, ttlFor(c, now)).Result()
	if err != nil {
		return fmt.Errorf("can't set %q in redis: %w", key, err)
	}
	if ok {
		return nil
	}

	// A value exists. Replace it only if it is logically expired.
	return s.watch(ctx, key, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if err == nil {
			if cur, derr := decode(raw); derr == nil && !cur.Expired(now) {
				return common.ErrChallengeActive
			}
		}

		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, data, ttlFor(c, now))
			return nil
		})
		return err
	})
}

func (s *RedisStore) Get(ctx context.Context, email string) (*models.Challenge, error) {
	raw, err := s.rdb.Get(ctx, redisKey(email)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, common.ErrChallengeNotFound
		}
		return nil, fmt.Errorf("can't fetch from redis: %w", err)
	}
	return decode(raw)
}

func (s *RedisStore) Update(ctx context.Context, email string, fn MutateFunc) error {
	key := redisKey(email)
	var fnErr error

	err := s.watch(ctx, key, func(tx *redis.Tx) error {
		fnErr = nil

		raw, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return common.ErrChallengeNotFound
			}
			return err
		}

		c, err := decode(raw)
		if err != nil {
			fnErr = err
			_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
				p.Del(ctx, key)
				return nil
			})
			return err
		}

		keep, ferr := fn(c)

		var data []byte
		if keep {
			if data, err = encode(c); err != nil {
				return err
			}
		}

		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			if keep {
				p.Set(ctx, key, data, redis.KeepTTL)
			} else {
				p.Del(ctx, key)
			}
			return nil
		})
		if err != nil {
			return err
		}

		fnErr = ferr
		return nil
	})
	if err != nil {
		return err
	}

	return fnErr
}

// Purge is a no-op: Redis expires keys on its own.
func (s *RedisStore) Purge(context.Context, time.Time) (int, error) {
	return 0, nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

func (s *RedisStore) watch(ctx context.Context, key string, fn func(tx *redis.Tx) error) error {
	for i := 0; i < redisMaxAttempts; i++ {
		err := s.rdb.Watch(ctx, fn, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrRedisContention
}
