package config

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// Redis bundles the client with its lock client. A nil *Redis is valid and
// turns every call into a no-op, so Redis stays optional for local runs.
type Redis struct {
	Client *redis.Client
	Locker *redislock.Client
}

// ConnectRedisWithRetry connects and returns the Redis client + lock client.
// Returns nil when REDIS_ADDRESS is not set.
// Call this from main() AFTER the HTTP server is listening.
func ConnectRedisWithRetry(ctx context.Context, settings Settings) *Redis {
	if settings.RedisAddress == "" {
		log.Printf("REDIS_ADDRESS not set; running without redis")
		return nil
	}

	var attempt int
	for {
		attempt++
		rdb := redis.NewClient(&redis.Options{
			Addr:     settings.RedisAddress,
			Password: settings.RedisPassword,
			DB:       0, // use default DB
			PoolSize: 100,
		})
		err := rdb.Ping(ctx).Err()
		if err == nil {
			log.Printf("connected to redis (attempt=%d addr=%s)", attempt, settings.RedisAddress)
			return NewRedis(rdb)
		}
		_ = rdb.Close()

		sleep := time.Second * time.Duration(1<<min(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		log.Printf("failed to connect redis (attempt=%d addr=%s): %v; retrying in %s", attempt, settings.RedisAddress, err, sleep)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(sleep):
		}
	}
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{Client: client, Locker: redislock.New(client)}
}

func (r *Redis) Close() error {
	if r == nil || r.Client == nil {
		return nil
	}
	return r.Client.Close()
}

// GetObject returns false when the key does not exist.
func (r *Redis) GetObject(ctx context.Context, key string, dest interface{}) (bool, error) {
	if r == nil || r.Client == nil {
		return false, nil
	}
	val, err := r.Client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return false, err
	}
	return true, nil
}

func (r *Redis) SetObject(ctx context.Context, key string, obj interface{}, exp time.Duration) error {
	if r == nil || r.Client == nil {
		return nil
	}
	objInByte, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	return r.Client.Set(ctx, key, objInByte, exp).Err()
}

func (r *Redis) RemoveKey(ctx context.Context, keys ...string) error {
	if r == nil || r.Client == nil {
		return nil
	}
	return r.Client.Del(ctx, keys...).Err()
}

// WithLock runs fn while holding a redislock on key. Without redis, fn runs unguarded.
func (r *Redis) WithLock(ctx context.Context, key string, ttl time.Duration, fn func() error) error {
	if r == nil || r.Locker == nil {
		return fn()
	}
	backoff := redislock.LimitRetry(redislock.LinearBackoff(500*time.Millisecond), int(2*ttl/time.Second))
	lock, err := r.Locker.Obtain(ctx, key, ttl, &redislock.Options{RetryStrategy: backoff})
	if err != nil {
		if errors.Is(err, redislock.ErrNotObtained) {
			return errors.New("could not obtain lock " + key)
		}
		return err
	}
	defer func() {
		_ = lock.Release(context.Background())
	}()
	return fn()
}
