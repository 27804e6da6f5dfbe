package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const etagKeyPrefix = "etag:"

var (
	getEtagValue = Get
	setEtagValue = Set
	delEtagValue = Del
)

// EtagStore caches computed token etags so conditional requests skip the database.
type EtagStore struct{}

func NewEtagStore() *EtagStore {
	return &EtagStore{}
}

// GetEtag returns the cached etag. A missing key is not an error.
func (s *EtagStore) GetEtag(ctx context.Context, key string) (string, bool, error) {
	val, err := getEtagValue(ctx, etagKeyPrefix+key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}
	return val, true, nil
}

func (s *EtagStore) SetEtag(ctx context.Context, key, etag string, ttl time.Duration) error {
	return setEtagValue(ctx, etagKeyPrefix+key, etag, ttl)
}

func (s *EtagStore) DeleteEtag(ctx context.Context, key string) error {
	return delEtagValue(ctx, etagKeyPrefix+key)
}
