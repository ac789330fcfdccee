package paysim

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math"
	"math/big"
	"strings"
	"sync"
	"time"
)

// Config controls the Simulator's behavior.
type Config struct {
	// Delay before the settlement callback fires.
	Delay time.Duration
	// FailureRate in [0, 1]: the fraction of payments that are declined.
	// Zero means every payment succeeds.
	FailureRate float64
}

// Simulator is an in-process Gateway that resolves every submission after a
// fixed delay. Duplicate submissions for the same transaction id are
// rejected, so at most one callback can ever fire per transaction; together
// with the one-shot timer this gives the single-fire guarantee. Timers do
// not survive a process restart, which is why callers pair the simulator
// with a staleness watchdog.
type Simulator struct {
	cfg      Config
	callback CallbackFunc

	mu        sync.Mutex
	submitted map[string]struct{}
	closed    bool
	timers    []*time.Timer
}

// NewSimulator constructs a Simulator delivering results to cb.
func NewSimulator(cfg Config, cb CallbackFunc) *Simulator {
	return &Simulator{
		cfg:       cfg,
		callback:  cb,
		submitted: make(map[string]struct{}),
	}
}

// Submit schedules exactly one settlement callback for the submission.
// It returns immediately; the callback fires after the configured delay.
func (s *Simulator) Submit(ctx context.Context, sub Submission) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("paysim: gateway closed")
	}
	if _, dup := s.submitted[sub.TransactionID]; dup {
		s.mu.Unlock()
		return ErrDuplicateSubmission
	}
	s.submitted[sub.TransactionID] = struct{}{}

	t := time.AfterFunc(s.cfg.Delay, func() {
		s.callback(s.resolve(sub))
	})
	s.timers = append(s.timers, t)
	s.mu.Unlock()
	return nil
}

// Close stops pending timers. Submissions whose timer had not fired yet will
// never settle; the watchdog picks them up as stale.
func (s *Simulator) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for _, t := range s.timers {
		t.Stop()
	}
	s.timers = nil
}

// resolve decides the outcome of a submission.
func (s *Simulator) resolve(sub Submission) Result {
	if s.declined() {
		return Result{
			TransactionID: sub.TransactionID,
			Succeeded:     false,
			FailureReason: "payment declined by provider",
		}
	}
	return Result{
		TransactionID: sub.TransactionID,
		Succeeded:     true,
		Reference:     generateReference(),
	}
}

// declined draws from the configured failure rate using crypto/rand, which
// needs no seeding and is safe for concurrent use.
func (s *Simulator) declined() bool {
	if s.cfg.FailureRate <= 0 {
		return false
	}
	if s.cfg.FailureRate >= 1 {
		return true
	}
	const precision = 1 << 20
	n, err := rand.Int(rand.Reader, big.NewInt(precision))
	if err != nil {
		return false
	}
	return n.Int64() < int64(math.Round(s.cfg.FailureRate*precision))
}

// generateReference returns a provider-style reference like PAY-8F0A1C9B2D.
func generateReference() string {
	b := make([]byte, 5)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return "PAY-" + strings.ToUpper(hex.EncodeToString(b))
}
