package cache

import (
	"context"
	"testing"
	"time"

	"github.com/cuotas/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

func startRedis(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping Redis container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	addr, err := container.Endpoint(ctx, "")
	require.NoError(t, err)
	return addr
}

func TestRedisIdempotencyStore(t *testing.T) {
	addr := startRedis(t)
	ctx := context.Background()

	store, err := NewRedisIdempotencyStore(ctx, addr, "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	fresh, err := store.MarkProcessed(ctx, "gateway:TX-1", time.Hour)
	require.NoError(t, err)
	assert.True(t, fresh)

	fresh, err = store.MarkProcessed(ctx, "gateway:TX-1", time.Hour)
	require.NoError(t, err)
	assert.False(t, fresh)

	seen, err := store.IsProcessed(ctx, "gateway:TX-1")
	require.NoError(t, err)
	assert.True(t, seen)

	require.NoError(t, store.Forget(ctx, "gateway:TX-1"))
	seen, err = store.IsProcessed(ctx, "gateway:TX-1")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestNewIdempotencyStore_InMemoryWithoutHost(t *testing.T) {
	store, err := NewIdempotencyStore(context.Background(), config.RedisConfig{}, false, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	assert.IsType(t, &InMemoryIdempotencyStore{}, store)
}

func TestNewIdempotencyStore_UnreachableRedis(t *testing.T) {
	cfg := config.RedisConfig{Host: "127.0.0.1", Port: 1}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewIdempotencyStore(ctx, cfg, false, nil)
	require.Error(t, err)

	store, err := NewIdempotencyStore(ctx, cfg, true, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	assert.IsType(t, &InMemoryIdempotencyStore{}, store)
}
