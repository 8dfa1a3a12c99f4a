//go:build integration

package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"farmDirect/domain"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	require.NoError(t, client.FlushDB(context.Background()).Err())
	t.Cleanup(func() { _ = client.Close() })

	return client
}

func TestSessionLifecycle(t *testing.T) {
	repo := NewSessionRepository(newTestClient(t))
	ctx := context.Background()

	session := domain.Session{UserID: 7, Role: domain.RoleFarmer, Token: "tok", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, repo.Store(ctx, session, "127.0.0.1", "test"))

	got, err := repo.Get(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, uint(7), got.UserID)
	assert.Equal(t, domain.RoleFarmer, got.Role)

	require.NoError(t, repo.Delete(ctx, session))
	_, err = repo.Get(ctx, "tok")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestDeleteAllForUser(t *testing.T) {
	repo := NewSessionRepository(newTestClient(t))
	ctx := context.Background()

	for _, tok := range []string{"a", "b"} {
		require.NoError(t, repo.Store(ctx, domain.Session{UserID: 3, Role: domain.RoleConsumer, Token: tok, ExpiresAt: time.Now().Add(time.Hour)}, "", ""))
	}

	require.NoError(t, repo.DeleteAllForUser(ctx, 3))
	_, err := repo.Get(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = repo.Get(ctx, "b")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestIdempotencyKey(t *testing.T) {
	repo := NewIdempotencyRepository(newTestClient(t))
	ctx := context.Background()

	_, acquired, err := repo.Acquire(ctx, 1, "k")
	require.NoError(t, err)
	assert.True(t, acquired)

	stored, acquired, err := repo.Acquire(ctx, 1, "k")
	require.NoError(t, err)
	assert.False(t, acquired)
	assert.Zero(t, stored.Order.ID)

	require.NoError(t, repo.Complete(ctx, 1, "k", domain.Checkout{Order: domain.Order{ID: 42}, RedirectURL: "https://pay"}))
	stored, acquired, err = repo.Acquire(ctx, 1, "k")
	require.NoError(t, err)
	assert.False(t, acquired)
	assert.Equal(t, uint(42), stored.Order.ID)

	_, acquired, err = repo.Acquire(ctx, 2, "k")
	require.NoError(t, err)
	assert.True(t, acquired, "keys are scoped per user")
}
