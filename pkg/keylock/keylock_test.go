package keylock_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geocloudhq/fieldstore/pkg/keylock"
)

func TestMutex_SerializesSameKey(t *testing.T) {
	t.Parallel()
	locker := keylock.NewMutex()
	ctx := context.Background()

	const workers = 16
	counter := 0

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(ctx, "project/files/report.qgs")
			assert.NoError(t, err)
			defer unlock()

			// Unsynchronized increment; the race detector flags any overlap.
			current := counter
			time.Sleep(time.Millisecond)
			counter = current + 1
		}()
	}
	wg.Wait()

	assert.Equal(t, workers, counter)
}

func TestMutex_IndependentKeysDoNotBlock(t *testing.T) {
	t.Parallel()
	locker := keylock.NewMutex()
	ctx := context.Background()

	unlockA, err := locker.Lock(ctx, "a")
	require.NoError(t, err)
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB, err := locker.Lock(ctx, "b")
		assert.NoError(t, err)
		unlockB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on independent key blocked")
	}
}

func TestMutex_ContextCancelledWhileWaiting(t *testing.T) {
	t.Parallel()
	locker := keylock.NewMutex()

	unlock, err := locker.Lock(context.Background(), "k")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := locker.Lock(ctx, "k")
		errCh <- err
	}()

	cancel()
	select {
	case err := <-errCh:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("waiter did not observe cancellation")
	}

	// The key is still usable after a cancelled waiter.
	unlock()
	unlock2, err := locker.Lock(context.Background(), "k")
	require.NoError(t, err)
	unlock2()
}
