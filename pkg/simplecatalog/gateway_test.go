package simplecatalog

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateway_Classification(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.failGet["songs/broken.json"] = errors.New("503 backend unavailable")
	gw := NewGateway("fake", store, nil)

	_, err := gw.GetText(ctx, "songs/missing.json")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, ErrObjectNotFound)
	assert.NotErrorIs(t, err, ErrTransientIO)

	_, err = gw.GetText(ctx, "songs/broken.json")
	assert.ErrorIs(t, err, ErrTransientIO)
	assert.NotErrorIs(t, err, ErrNotFound)

	var storageErr *StorageError
	require.True(t, errors.As(err, &storageErr))
	assert.Equal(t, "fake", storageErr.Backend)
	assert.Equal(t, "songs/broken.json", storageErr.Key)
	assert.Equal(t, "get", storageErr.Op)

	_, err = gw.Stat(ctx, "nothing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGateway_RoundTrip(t *testing.T) {
	ctx := context.Background()
	gw := NewGateway("fake", newFakeStore(), NewIOPool(2))

	require.NoError(t, gw.PutText(ctx, "notes/a.txt", []byte("hello"), "text/plain"))

	ok, err := gw.Exists(ctx, "notes/a.txt")
	require.NoError(t, err)
	assert.True(t, ok)

	data, err := gw.GetText(ctx, "notes/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	objects, err := gw.ListByPrefix(ctx, "notes/")
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, int64(5), objects[0].Size)
}

func TestIOPool_BoundsConcurrency(t *testing.T) {
	pool := NewIOPool(3)
	var inFlight, peak atomic.Int32

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			_ = pool.Do(context.Background(), func(context.Context) error {
				n := inFlight.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				inFlight.Add(-1)
				return nil
			})
			done <- struct{}{}
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}
	assert.LessOrEqual(t, peak.Load(), int32(3))
	assert.Equal(t, 3, pool.Size())
}

func TestIOPool_Close(t *testing.T) {
	pool := NewIOPool(1)
	started := make(chan struct{})
	release := make(chan struct{})

	go func() {
		_ = pool.Do(context.Background(), func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	closed := make(chan error, 1)
	go func() { closed <- pool.Close(context.Background()) }()

	select {
	case <-closed:
		t.Fatal("Close returned while a call was in flight")
	case <-time.After(20 * time.Millisecond):
	}
	close(release)
	require.NoError(t, <-closed)

	err := pool.Do(context.Background(), func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrPoolClosed)
	assert.NoError(t, pool.Close(context.Background()), "Close is idempotent")
}

func TestIOPool_WaitHonorsContext(t *testing.T) {
	pool := NewIOPool(1)
	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = pool.Do(context.Background(), func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := pool.Do(ctx, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGuard(t *testing.T) {
	g := NewGuard()
	require.NoError(t, g.Lock(context.Background()))
	assert.False(t, g.TryLock())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, g.Lock(ctx), context.DeadlineExceeded)

	g.Unlock()
	assert.True(t, g.TryLock())
	g.Unlock()
}
