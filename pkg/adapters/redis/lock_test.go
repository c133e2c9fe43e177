package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/tessera/pkg/adapters/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocker_TryLock(t *testing.T) {
	mr, client := setup(t)
	ctx := context.Background()
	locker := redis.NewLocker(client, "")

	unlock, ok, err := locker.TryLock(ctx, "tick", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, mr.Exists("tessera:lock:tick"))

	_, ok, err = redis.NewLocker(client, "").TryLock(ctx, "tick", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second holder must not acquire the lock")

	require.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists("tessera:lock:tick"))

	_, ok, err = locker.TryLock(ctx, "tick", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLocker_Expires(t *testing.T) {
	mr, client := setup(t)
	ctx := context.Background()
	locker := redis.NewLocker(client, "app:")

	_, ok, err := locker.TryLock(ctx, "tick", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)

	_, ok, err = locker.TryLock(ctx, "tick", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}
