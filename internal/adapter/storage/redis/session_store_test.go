package redis

import (
	"context"
	"testing"
	"time"

	"campus-store/internal/core/domain"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionToken(t *testing.T) {
	a, err := NewSessionToken()
	require.NoError(t, err)
	b, err := NewSessionToken()
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}

func TestSessionStore_SaveAndGet(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewSessionStore(client)
	ctx := context.Background()

	token, err := NewSessionToken()
	require.NoError(t, err)

	session := &domain.Session{
		Token:     token,
		UserID:    7,
		Role:      domain.RoleConsumer,
		ExpiresAt: time.Now().Add(12 * time.Hour).UTC().Truncate(time.Second),
	}

	err = store.Save(ctx, session, 12*time.Hour)
	require.NoError(t, err)

	result, err := store.Get(ctx, token)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, token, result.Token)
	assert.Equal(t, int64(7), result.UserID)
	assert.Equal(t, domain.RoleConsumer, result.Role)
}

func TestSessionStore_Get_UnknownToken(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewSessionStore(client)

	result, err := store.Get(context.Background(), "deadbeef")
	assert.NoError(t, err)
	assert.Nil(t, result)
}

func TestSessionStore_TTLExpiry(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewSessionStore(client)
	ctx := context.Background()

	session := &domain.Session{Token: "tok", UserID: 7, Role: domain.RoleConsumer}
	err := store.Save(ctx, session, 1*time.Second)
	require.NoError(t, err)

	s.FastForward(2 * time.Second)

	result, err := store.Get(ctx, "tok")
	assert.NoError(t, err)
	assert.Nil(t, result, "expired session should return nil")
}

func TestSessionStore_Delete(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewSessionStore(client)
	ctx := context.Background()

	session := &domain.Session{Token: "tok", UserID: 7, Role: domain.RoleAdmin}
	require.NoError(t, store.Save(ctx, session, time.Hour))

	require.NoError(t, store.Delete(ctx, "tok"))

	result, err := store.Get(ctx, "tok")
	assert.NoError(t, err)
	assert.Nil(t, result)

	// Deleting again is a no-op, not an error.
	assert.NoError(t, store.Delete(ctx, "tok"))
}
