package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const ttlTransposition = 6 * time.Hour

var _ Store = (*RedisStore)(nil)

// RedisStore keeps one hash per namespace (a session id), so Clear is a
// single DEL and sessions never see each other's entries.
type RedisStore struct {
	rdb       *redis.Client
	namespace string
	ttl       time.Duration
}

func NewRedisStore(rdb *redis.Client, namespace string) *RedisStore {
	return &RedisStore{rdb: rdb, namespace: strings.TrimSpace(namespace), ttl: ttlTransposition}
}

// NewRedisClient parses a redis:// URL.
func NewRedisClient(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(strings.TrimSpace(url))
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opt), nil
}

func (s *RedisStore) key() string { return "grokchess:tt:" + s.namespace }

func (s *RedisStore) Get(ctx context.Context, field string) (string, bool, error) {
	v, err := s.rdb.HGet(ctx, s.key(), field).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *RedisStore) Put(ctx context.Context, field, value string) error {
	if err := s.rdb.HSet(ctx, s.key(), field, value).Err(); err != nil {
		return err
	}
	return s.rdb.Expire(ctx, s.key(), s.ttl).Err()
}

func (s *RedisStore) Clear(ctx context.Context) error {
	return s.rdb.Del(ctx, s.key()).Err()
}

func (s *RedisStore) Len(ctx context.Context) (int, error) {
	n, err := s.rdb.HLen(ctx, s.key()).Result()
	return int(n), err
}
