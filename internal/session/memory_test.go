package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTripIsolatesCopies(t *testing.T) {
	store := NewMemoryStore(time.Minute, 0, nil)
	defer store.Close()
	ctx := context.Background()

	sess := New("s1", "0712345678", "main")
	sess.Set("amount", "100")
	require.NoError(t, store.Save(ctx, sess))

	sess.Set("amount", "999")

	loaded, ok, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "100", loaded.Get("amount"))

	_, ok, err = store.Load(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemoryStoreExpiresIdleSessions(t *testing.T) {
	store := NewMemoryStore(time.Minute, 0, nil)
	defer store.Close()
	ctx := context.Background()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Save(ctx, New("old", "0712345678", "main")))
	now = now.Add(45 * time.Second)
	require.NoError(t, store.Save(ctx, New("fresh", "0712345678", "main")))

	now = now.Add(30 * time.Second)
	_, ok, _ := store.Load(ctx, "old")
	require.False(t, ok, "idle session must not be visible")

	require.NoError(t, store.Save(ctx, New("stale", "0712345678", "main")))
	removed := store.Sweep(now.Add(2 * time.Minute))
	require.Equal(t, 2, removed)
	require.Equal(t, 0, store.Len())
}

func TestMemoryStoreLockSerializesSameSession(t *testing.T) {
	store := NewMemoryStore(time.Minute, 0, nil)
	defer store.Close()
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		overlap bool
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := store.Lock(ctx, "same")
			require.NoError(t, err)
			defer unlock()

			mu.Lock()
			inside++
			if inside > 1 {
				overlap = true
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()
	require.False(t, overlap)
	require.Empty(t, store.locks)
}

func TestMemoryStoreLockHonoursContext(t *testing.T) {
	store := NewMemoryStore(time.Minute, 0, nil)
	defer store.Close()

	unlock, err := store.Lock(context.Background(), "busy")
	require.NoError(t, err)
	defer unlock()

	other, err := store.Lock(context.Background(), "other")
	require.NoError(t, err)
	other()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = store.Lock(ctx, "busy")
	require.ErrorIs(t, err, ErrLockTimeout)
}

func TestMemoryStoreSweeperStopsOnClose(t *testing.T) {
	store := NewMemoryStore(time.Millisecond, time.Millisecond, nil)
	require.NoError(t, store.Save(context.Background(), New("s1", "0712345678", "main")))

	require.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, 5*time.Millisecond)
	store.Close()
	store.Close()
}
