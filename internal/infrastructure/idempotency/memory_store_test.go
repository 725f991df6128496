package idempotency_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/nfe-api/internal/domain"
	"github.com/jhoicas/nfe-api/internal/infrastructure/idempotency"
)

func TestMemoryStore_Ciclo(t *testing.T) {
	ctx := context.Background()
	s := idempotency.NewMemoryStore(time.Hour)

	id, err := s.Reserve(ctx, "k1")
	require.NoError(t, err)
	assert.Empty(t, id)

	// segunda reserva mientras está en curso
	_, err = s.Reserve(ctx, "k1")
	assert.ErrorIs(t, err, domain.ErrConflict)

	require.NoError(t, s.Complete(ctx, "k1", "inv-1"))
	id, err = s.Reserve(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, "inv-1", id)

	// Release no borra claves completadas
	require.NoError(t, s.Release(ctx, "k1"))
	id, err = s.Reserve(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, "inv-1", id)
}

func TestMemoryStore_ReleasePermiteReintentar(t *testing.T) {
	ctx := context.Background()
	s := idempotency.NewMemoryStore(time.Hour)
	_, err := s.Reserve(ctx, "k2")
	require.NoError(t, err)
	require.NoError(t, s.Release(ctx, "k2"))

	id, err := s.Reserve(ctx, "k2")
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestMemoryStore_Expira(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s := idempotency.NewMemoryStore(time.Minute).WithClock(func() time.Time { return now })

	_, err := s.Reserve(ctx, "k3")
	require.NoError(t, err)
	now = now.Add(2 * time.Minute)

	id, err := s.Reserve(ctx, "k3")
	require.NoError(t, err, "la reserva vencida se puede tomar de nuevo")
	assert.Empty(t, id)
}
