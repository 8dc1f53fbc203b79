package rateLimit_test

import (
	"context"
	"testing"
	"time"

	redisclient "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	redisadapter "github.com/robertarktes/ticket-checkout/internal/adapters/redis"
	"github.com/robertarktes/ticket-checkout/internal/rateLimit"
)

func TestRateLimiter_Allow(t *testing.T) {
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
	defer container.Terminate(ctx)

	addr, err := container.Endpoint(ctx, "")
	require.NoError(t, err)
	client := redisclient.NewClient(&redisclient.Options{Addr: addr})
	defer client.Close()

	rl := rateLimit.NewRateLimiter(redisadapter.NewCache(client, time.Minute))

	for i := 0; i < 3; i++ {
		ok, err := rl.Allow(ctx, "ip:10.0.0.1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok, "hit %d", i+1)
	}
	ok, err := rl.Allow(ctx, "ip:10.0.0.1", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = rl.Allow(ctx, "ip:10.0.0.2", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRateLimiter_FailsOpen(t *testing.T) {
	client := redisclient.NewClient(&redisclient.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	defer client.Close()

	rl := rateLimit.NewRateLimiter(redisadapter.NewCache(client, time.Minute))
	ok, err := rl.Allow(context.Background(), "ip:10.0.0.1", 1, time.Minute)

	assert.Error(t, err)
	assert.True(t, ok)
}
