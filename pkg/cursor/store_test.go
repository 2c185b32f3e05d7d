package cursor

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v7"
	"github.com/stretchr/testify/require"
	"github.com/syndtr/goleveldb/leveldb/storage"
)

// testStore runs the behaviour every Store must share.
func testStore(t *testing.T, s Store) {
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "orders")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Set(ctx, "orders", "1-1"))
	require.NoError(t, s.Set(ctx, "orders", "1-2"))
	require.NoError(t, s.Set(ctx, "events", "5-0"))

	id, ok, err := s.Get(ctx, "orders")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "1-2", id)

	id, ok, err = s.Get(ctx, "events")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "5-0", id)

	require.NoError(t, s.Delete(ctx, "orders"))
	require.NoError(t, s.Delete(ctx, "never-set"))

	_, ok, err = s.Get(ctx, "orders")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	testStore(t, s)

	require.NoError(t, s.Close())
	_, _, err := s.Get(context.Background(), "orders")
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, s.Set(context.Background(), "orders", "1-1"), ErrClosed)
}

func TestLevelDBStore(t *testing.T) {
	s, err := NewLevelDBStore(storage.NewMemStorage())
	require.NoError(t, err)
	testStore(t, s)

	require.NoError(t, s.Close())
	_, _, err = s.Get(context.Background(), "events")
	require.ErrorIs(t, err, ErrClosed)
}

func TestLevelDBStoreReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	// each Close must release the directory lock for the next open.
	for i := 0; i < 3; i++ {
		s, err := OpenLevelDBStore(dir)
		require.NoError(t, err, "open #%d", i)

		if i > 0 {
			id, ok, err := s.Get(ctx, "orders")
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, fmt.Sprintf("42-%d", i-1), id)
		}

		require.NoError(t, s.Set(ctx, "orders", fmt.Sprintf("42-%d", i)))
		require.NoError(t, s.Close())
	}
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	s := NewRedisStore(client, "")
	testStore(t, s)
	require.NoError(t, s.Close())

	// the cursors live in a single hash.
	require.Equal(t, "5-0", mr.HGet(DefaultRedisNamespace, "events"))

	other := NewRedisStore(client, "other")
	_, ok, err := other.Get(context.Background(), "events")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisStoreLock(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	a := NewRedisStore(client, "ns")
	b := NewRedisStore(client, "ns")

	unlock, err := a.Lock(ctx, "orders")
	require.NoError(t, err)
	require.True(t, mr.Exists("ns:lock:orders"))

	// a lock on another stream is independent.
	unlockEvents, err := b.Lock(ctx, "events")
	require.NoError(t, err)
	unlockEvents()

	// b waits until a lets go.
	acquired := make(chan func(), 1)
	go func() {
		u, err := b.Lock(ctx, "orders")
		if err != nil {
			close(acquired)
			return
		}
		acquired <- u
	}()

	select {
	case <-acquired:
		t.Fatal("lock taken while still held")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()

	select {
	case u, ok := <-acquired:
		require.True(t, ok)
		u()
	case <-time.After(5 * time.Second):
		t.Fatal("lock not taken after release")
	}
	require.False(t, mr.Exists("ns:lock:orders"))
}

func TestRedisStoreLockCanceled(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	s := NewRedisStore(client, "ns")
	unlock, err := s.Lock(context.Background(), "orders")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = s.Lock(ctx, "orders")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRedisStoreLockExpiry(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	a := NewRedisStore(client, "ns")
	a.LockTTL = time.Second
	b := NewRedisStore(client, "ns")

	stale, err := a.Lock(ctx, "orders")
	require.NoError(t, err)
	mr.FastForward(2 * time.Second)

	unlock, err := b.Lock(ctx, "orders")
	require.NoError(t, err)

	// the expired holder must not drop the new holder's lock.
	stale()
	require.True(t, mr.Exists("ns:lock:orders"))

	unlock()
	require.False(t, mr.Exists("ns:lock:orders"))
}

func TestRedisStoreLockClosed(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	require.NoError(t, client.Close())

	_, err := NewRedisStore(client, "ns").Lock(context.Background(), "orders")
	require.ErrorIs(t, err, ErrClosed)
}
