package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"

	"github.com/robertarktes/ticket-checkout/internal/domain"
)

type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) Client() *redis.Client {
	return c.client
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func bookingKey(reference string) string {
	return "booking:" + reference
}

func (c *Cache) PutBooking(ctx context.Context, b domain.Booking) error {
	data, err := json.Marshal(b)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, bookingKey(b.PaymentReference), data, c.ttl).Err()
}

func (c *Cache) GetBooking(ctx context.Context, reference string) (*domain.Booking, error) {
	val, err := c.client.Get(ctx, bookingKey(reference)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var b domain.Booking
	if err := json.Unmarshal(val, &b); err != nil {
		return nil, errors.Wrapf(err, "decode cached booking %s", reference)
	}
	return &b, nil
}
