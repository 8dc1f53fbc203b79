package idempotency

import (
	"context"
	"time"

	redisadapter "github.com/robertarktes/ticket-checkout/internal/adapters/redis"
)

// lockTTL bounds how long a crashed request can block its key.
const lockTTL = 2 * time.Minute

type Idempotency struct {
	redis *redisadapter.Idempotency
	ttl   time.Duration
}

func NewIdempotency(redis *redisadapter.Idempotency, ttl time.Duration) *Idempotency {
	return &Idempotency{redis: redis, ttl: ttl}
}

type Response struct {
	Status      int
	ContentType string
	Result      []byte
}

// Get returns the stored response for key, or nil if there is none.
func (i *Idempotency) Get(ctx context.Context, key string) (*Response, error) {
	stored, err := i.redis.Get(ctx, key)
	if err != nil || stored == nil {
		return nil, err
	}
	return &Response{Status: stored.Status, ContentType: stored.ContentType, Result: stored.Result}, nil
}

func (i *Idempotency) Set(ctx context.Context, key string, resp Response) error {
	return i.redis.Set(ctx, key, redisadapter.IdempResponse{
		Status:      resp.Status,
		ContentType: resp.ContentType,
		Result:      resp.Result,
	}, i.ttl)
}

// Begin claims key for the current request. It reports false if another
// request with the same key is still running.
func (i *Idempotency) Begin(ctx context.Context, key string) (bool, error) {
	return i.redis.Lock(ctx, key, lockTTL)
}

func (i *Idempotency) End(ctx context.Context, key string) error {
	return i.redis.Unlock(ctx, key)
}
