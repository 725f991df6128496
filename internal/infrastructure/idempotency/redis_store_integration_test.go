//go:build integration

package idempotency_test

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/jhoicas/nfe-api/internal/domain"
	"github.com/jhoicas/nfe-api/internal/infrastructure/idempotency"
)

func newRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	url, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)

	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestRedisStore_Ciclo(t *testing.T) {
	ctx := context.Background()
	s := idempotency.NewRedisStore(newRedisClient(t), time.Hour)

	id, err := s.Reserve(ctx, "k1")
	require.NoError(t, err)
	assert.Empty(t, id)

	_, err = s.Reserve(ctx, "k1")
	assert.ErrorIs(t, err, domain.ErrConflict)

	require.NoError(t, s.Release(ctx, "k1"))
	id, err = s.Reserve(ctx, "k1")
	require.NoError(t, err)
	assert.Empty(t, id)

	require.NoError(t, s.Complete(ctx, "k1", "inv-9"))
	require.NoError(t, s.Release(ctx, "k1"))
	id, err = s.Reserve(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, "inv-9", id)
}
