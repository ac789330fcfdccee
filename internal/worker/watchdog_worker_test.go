package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFailer struct {
	mu    sync.Mutex
	calls []time.Duration
	count int
	err   error
}

func (f *fakeFailer) FailStaleTransactions(_ context.Context, olderThan time.Duration) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, olderThan)
	return f.count, f.err
}

func (f *fakeFailer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestWatchdogSweepsOnInterval(t *testing.T) {
	failer := &fakeFailer{count: 2}
	w := NewWatchdogWorker(failer, 10*time.Millisecond, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return failer.callCount() >= 3
	}, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on context cancellation")
	}

	failer.mu.Lock()
	defer failer.mu.Unlock()
	for _, olderThan := range failer.calls {
		assert.Equal(t, time.Minute, olderThan)
	}
}

func TestWatchdogStopsBeforeFirstTick(t *testing.T) {
	failer := &fakeFailer{}
	w := NewWatchdogWorker(failer, time.Hour, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on context cancellation")
	}
	assert.Zero(t, failer.callCount())
}
