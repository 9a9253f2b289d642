package cache

import (
	"context"
	"errors"
	"time"
)

var (
	ErrCacheMiss = errors.New("cache: key not found")
)

// Service is a JSON value cache with glob-pattern invalidation.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	DeleteByPattern(ctx context.Context, pattern string) error
	Ping(ctx context.Context) error
	Close() error
}

// Fetch reads key through c. On a miss it calls load and stores the result.
// Cache failures are passed to onErr (when set) and never fail the call.
func Fetch[T any](
	ctx context.Context,
	c Service,
	key string,
	ttl time.Duration,
	load func(context.Context) (T, error),
	onErr func(op string, err error),
) (T, error) {
	var v T
	err := c.Get(ctx, key, &v)
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, ErrCacheMiss) && onErr != nil {
		onErr("get", err)
	}

	v, err = load(ctx)
	if err != nil {
		return v, err
	}
	if err := c.Set(ctx, key, v, ttl); err != nil && onErr != nil {
		onErr("set", err)
	}
	return v, nil
}
