package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/KeyIP-Docket/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/turtacn/KeyIP-Docket/pkg/errors"
)

func TestMutex_LockUnlock(t *testing.T) {
	client, mr := newTestClient(t)
	factory := NewLockFactory(client, logging.NewNopLogger())
	ctx := context.Background()

	lock := factory.NewMutex("test-lock", WithLockTTL(time.Second))
	require.NoError(t, lock.Lock(ctx))
	assert.True(t, mr.Exists("keyip:lock:test-lock"))

	ttl, err := lock.TTL(ctx)
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, lock.Unlock(ctx))
	assert.False(t, mr.Exists("keyip:lock:test-lock"))

	assert.ErrorIs(t, lock.Unlock(ctx), ErrLockNotHeld)
}

func TestMutex_Contention(t *testing.T) {
	client, _ := newTestClient(t)
	factory := NewLockFactory(client, logging.NewNopLogger(), WithRetryCount(1), WithRetryDelay(10*time.Millisecond))
	ctx := context.Background()

	lock1 := factory.NewMutex("test-lock")
	lock2 := factory.NewMutex("test-lock")

	require.NoError(t, lock1.Lock(ctx))
	assert.Equal(t, ErrLockNotAcquired, lock2.Lock(ctx))

	require.NoError(t, lock1.Unlock(ctx))
	assert.NoError(t, lock2.Lock(ctx))
}

func TestMutex_Extend(t *testing.T) {
	client, mr := newTestClient(t)
	factory := NewLockFactory(client, nil)
	ctx := context.Background()

	lock := factory.NewMutex("extend", WithLockTTL(time.Second))
	require.NoError(t, lock.Lock(ctx))

	ok, err := lock.Extend(ctx, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, time.Minute, mr.TTL("keyip:lock:extend"))

	mr.FastForward(2 * time.Minute)
	ok, err = lock.Extend(ctx, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLockRenewals_SortsAndReleases(t *testing.T) {
	client, mr := newTestClient(t)
	factory := NewLockFactory(client, logging.NewNopLogger())
	ctx := context.Background()

	release, err := factory.LockRenewals(ctx, []int64{7, 3, 7, 5})
	require.NoError(t, err)
	for _, k := range []string{"keyip:lock:renewal:3", "keyip:lock:renewal:5", "keyip:lock:renewal:7"} {
		assert.True(t, mr.Exists(k), k)
	}

	require.NoError(t, release(ctx))
	assert.Empty(t, mr.Keys())
}

func TestLockRenewals_ConflictReleasesHeld(t *testing.T) {
	client, mr := newTestClient(t)
	factory := NewLockFactory(client, logging.NewNopLogger(), WithRetryCount(1))
	ctx := context.Background()

	other := factory.NewMutex("renewal:5")
	require.NoError(t, other.Lock(ctx))

	release, err := factory.LockRenewals(ctx, []int64{3, 5})
	require.Error(t, err)
	assert.Nil(t, release)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeLockNotAcquired))

	assert.False(t, mr.Exists("keyip:lock:renewal:3"))
	assert.True(t, mr.Exists("keyip:lock:renewal:5"))
}

func TestLockRenewals_Empty(t *testing.T) {
	client, _ := newTestClient(t)
	release, err := NewLockFactory(client, nil).LockRenewals(context.Background(), nil)
	require.NoError(t, err)
	assert.NoError(t, release(context.Background()))
}

//Personal.AI order the ending
