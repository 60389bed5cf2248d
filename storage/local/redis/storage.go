package redisstorage

import (
	"context"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/trezcool/formportal/core"
)

const keyPrefix = "formportal:"

// Storage shares a profile through a redis database.
type Storage struct {
	client *redis.Client
}

var _ core.LocalStorage = (*Storage)(nil) // interface compliance check

func Open(ctx context.Context, conf core.StorageConfig) (*Storage, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.RedisAddr,
		Password: conf.RedisPassword,
		DB:       conf.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "pinging redis at %s", conf.RedisAddr)
	}
	return &Storage{client: client}, nil
}

func (s *Storage) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, keyPrefix+key).Result()
	if err == redis.Nil {
		return "", core.ErrKeyNotFound
	}
	if err != nil {
		return "", errors.Wrapf(err, "getting %q", key)
	}
	return val, nil
}

// Set stores value without expiry.
func (s *Storage) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, keyPrefix+key, value, 0).Err(); err != nil {
		return errors.Wrapf(err, "setting %q", key)
	}
	return nil
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return errors.Wrapf(err, "deleting %q", key)
	}
	return nil
}

func (s *Storage) Close() error {
	return s.client.Close()
}
