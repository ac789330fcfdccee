package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// staleFailer marks non-terminal transactions older than a cutoff as failed.
type staleFailer interface {
	FailStaleTransactions(ctx context.Context, olderThan time.Duration) (int, error)
}

// WatchdogWorker sweeps transactions stuck in a non-terminal status. A
// transaction that never received its payment result would otherwise stay
// pending forever.
type WatchdogWorker struct {
	trxService staleFailer
	interval   time.Duration
	staleAfter time.Duration
}

// NewWatchdogWorker constructs a WatchdogWorker.
func NewWatchdogWorker(trxService staleFailer, interval, staleAfter time.Duration) *WatchdogWorker {
	return &WatchdogWorker{
		trxService: trxService,
		interval:   interval,
		staleAfter: staleAfter,
	}
}

// Start begins the sweep loop and listens for context cancellation.
func (w *WatchdogWorker) Start(ctx context.Context) {
	log.Info().
		Dur("interval", w.interval).
		Dur("stale_after", w.staleAfter).
		Msg("Starting transaction watchdog worker")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.run(ctx)
		case <-ctx.Done():
			log.Info().Msg("Transaction watchdog worker stopped")
			return
		}
	}
}

func (w *WatchdogWorker) run(ctx context.Context) {
	failed, err := w.trxService.FailStaleTransactions(ctx, w.staleAfter)
	if err != nil {
		log.Error().Err(err).Msg("Failed to sweep stale transactions")
		return
	}
	if failed > 0 {
		log.Warn().Int("count", failed).Msg("Failed stale transactions")
	}
}
