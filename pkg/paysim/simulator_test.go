package paysim

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type resultCollector struct {
	mu      sync.Mutex
	results []Result
}

func (c *resultCollector) collect(res Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, res)
}

func (c *resultCollector) snapshot() []Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Result(nil), c.results...)
}

func TestSubmitFiresExactlyOnce(t *testing.T) {
	c := &resultCollector{}
	sim := NewSimulator(Config{Delay: 10 * time.Millisecond}, c.collect)
	defer sim.Close()

	require.NoError(t, sim.Submit(context.Background(), Submission{
		TransactionID: "TXN-A", Amount: 150, Method: "card",
	}))

	require.Eventually(t, func() bool {
		return len(c.snapshot()) == 1
	}, time.Second, 5*time.Millisecond)

	// Give a straggler timer a chance to misfire.
	time.Sleep(30 * time.Millisecond)
	results := c.snapshot()
	require.Len(t, results, 1)
	assert.Equal(t, "TXN-A", results[0].TransactionID)
	assert.True(t, results[0].Succeeded)
	assert.True(t, strings.HasPrefix(results[0].Reference, "PAY-"))
}

func TestSubmitRejectsDuplicates(t *testing.T) {
	c := &resultCollector{}
	sim := NewSimulator(Config{Delay: 10 * time.Millisecond}, c.collect)
	defer sim.Close()

	sub := Submission{TransactionID: "TXN-DUP", Amount: 150, Method: "card"}
	require.NoError(t, sim.Submit(context.Background(), sub))
	assert.ErrorIs(t, sim.Submit(context.Background(), sub), ErrDuplicateSubmission)

	require.Eventually(t, func() bool {
		return len(c.snapshot()) == 1
	}, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Len(t, c.snapshot(), 1)
}

func TestSubmitHonorsCancelledContext(t *testing.T) {
	c := &resultCollector{}
	sim := NewSimulator(Config{Delay: time.Millisecond}, c.collect)
	defer sim.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, sim.Submit(ctx, Submission{TransactionID: "TXN-CTX"}))
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, c.snapshot())
}

func TestCloseDropsPendingTimers(t *testing.T) {
	c := &resultCollector{}
	sim := NewSimulator(Config{Delay: 50 * time.Millisecond}, c.collect)

	require.NoError(t, sim.Submit(context.Background(), Submission{TransactionID: "TXN-CLOSE"}))
	sim.Close()

	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, c.snapshot())
	assert.Error(t, sim.Submit(context.Background(), Submission{TransactionID: "TXN-AFTER"}))
}

func TestFailureRateExtremes(t *testing.T) {
	t.Run("zero rate always succeeds", func(t *testing.T) {
		c := &resultCollector{}
		sim := NewSimulator(Config{Delay: time.Millisecond, FailureRate: 0}, c.collect)
		defer sim.Close()
		for i := 0; i < 10; i++ {
			require.NoError(t, sim.Submit(context.Background(), Submission{
				TransactionID: "TXN-OK-" + string(rune('A'+i)),
			}))
		}
		require.Eventually(t, func() bool {
			return len(c.snapshot()) == 10
		}, time.Second, 5*time.Millisecond)
		for _, res := range c.snapshot() {
			assert.True(t, res.Succeeded)
			assert.NotEmpty(t, res.Reference)
		}
	})

	t.Run("full rate always declines", func(t *testing.T) {
		c := &resultCollector{}
		sim := NewSimulator(Config{Delay: time.Millisecond, FailureRate: 1}, c.collect)
		defer sim.Close()
		for i := 0; i < 10; i++ {
			require.NoError(t, sim.Submit(context.Background(), Submission{
				TransactionID: "TXN-NO-" + string(rune('A'+i)),
			}))
		}
		require.Eventually(t, func() bool {
			return len(c.snapshot()) == 10
		}, time.Second, 5*time.Millisecond)
		for _, res := range c.snapshot() {
			assert.False(t, res.Succeeded)
			assert.NotEmpty(t, res.FailureReason)
		}
	})
}
