package storage

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each namespace in one hash, "nvs:<namespace>".
type RedisStore struct {
	Redis *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{Redis: rdb}
}

func (s *RedisStore) Open(_ context.Context, namespace string) (Handle, error) {
	return openHandle(s, namespace)
}

func redisKey(namespace string) string {
	return "nvs:" + namespace
}

func (s *RedisStore) get(ctx context.Context, namespace, key string) ([]byte, bool, error) {
	v, err := s.Redis.HGet(ctx, redisKey(namespace), key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (s *RedisStore) apply(ctx context.Context, namespace string, sets map[string][]byte, erases []string) error {
	key := redisKey(namespace)
	_, err := s.Redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(erases) > 0 {
			pipe.HDel(ctx, key, erases...)
		}
		if len(sets) > 0 {
			values := make(map[string]interface{}, len(sets))
			for k, v := range sets {
				values[k] = v
			}
			pipe.HSet(ctx, key, values)
		}
		return nil
	})
	return err
}
