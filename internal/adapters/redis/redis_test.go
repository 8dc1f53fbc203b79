package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	redisclient "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	redisadapter "github.com/robertarktes/ticket-checkout/internal/adapters/redis"
	"github.com/robertarktes/ticket-checkout/internal/domain"
)

func startRedis(t *testing.T) *redisclient.Client {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { container.Terminate(ctx) })

	addr, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redisclient.NewClient(&redisclient.Options{Addr: addr})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestCache_Booking(t *testing.T) {
	ctx := context.Background()
	cache := redisadapter.NewCache(startRedis(t), time.Minute)
	require.NoError(t, cache.Ping(ctx))

	_, err := cache.GetBooking(ctx, "pi_1")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	b, err := domain.NewBooking(domain.BookingRequest{
		EventTitle:      "Show",
		EventDate:       "October 16, 2025",
		TicketName:      "General Admission",
		Quantity:        2,
		UnitPrice:       decimal.RequireFromString("12.00"),
		CustomerEmail:   "a@b.com",
		PaymentMethodID: "pm_card_visa",
	}, domain.PaymentConfirmation{Reference: "pi_1", Status: domain.PaymentSucceeded}, "Cellar", "eur", time.Now())
	require.NoError(t, err)
	require.NoError(t, cache.PutBooking(ctx, b))

	got, err := cache.GetBooking(ctx, "pi_1")
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)
	assert.True(t, b.TotalPrice.Equal(got.TotalPrice))
	assert.True(t, b.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, b.TicketDetails().Money(b.TotalPrice), got.TicketDetails().Money(got.TotalPrice))
}

func TestIdempotency(t *testing.T) {
	ctx := context.Background()
	idemp := redisadapter.NewIdempotency(startRedis(t))

	resp, err := idemp.Get(ctx, "key-1")
	require.NoError(t, err)
	assert.Nil(t, resp)

	require.NoError(t, idemp.Set(ctx, "key-1", redisadapter.IdempResponse{Status: 200, ContentType: "application/json", Result: []byte(`{"success":true}`)}, time.Minute))
	resp, err = idemp.Get(ctx, "key-1")
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 200, resp.Status)
	assert.JSONEq(t, `{"success":true}`, string(resp.Result))

	ok, err := idemp.Lock(ctx, "key-2", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = idemp.Lock(ctx, "key-2", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, idemp.Unlock(ctx, "key-2"))
	ok, err = idemp.Lock(ctx, "key-2", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
