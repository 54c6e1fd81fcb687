package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStore(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	ctx := context.Background()
	client, err := ConnectRedis(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	store := NewRedisStore(client, time.Minute)
	id := uuid.NewString()
	t.Cleanup(func() { store.Delete(ctx, id) })

	_, err = store.Get(ctx, id)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Save(ctx, id, Data{
		Pending: &PendingRegistration{Name: "Bob", UserID: "bob_4321"},
	}))
	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got.Pending)
	assert.Equal(t, "bob_4321", got.Pending.UserID)

	ttl, err := client.TTL(ctx, redisKeyPrefix+id).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, store.Delete(ctx, id))
	_, err = store.Get(ctx, id)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestConnectRedisBadURL(t *testing.T) {
	_, err := ConnectRedis(context.Background(), "not a url")
	require.Error(t, err)
}
