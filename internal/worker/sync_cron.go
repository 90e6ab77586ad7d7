package worker

// Background goroutine that periodically replays the offline invoice queue
// and flushes the retry notifier. Respects the circuit breaker so an
// unreachable backend is probed, not hammered.

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lethieuanh89/taphoa39-sub000/internal/infra"
)

const defaultSyncTick = 30 * time.Second

// Syncer is implemented by the sync service; declared here so the worker
// package stays independent of the service package.
type Syncer interface {
	SyncPending(ctx context.Context) (attempted, synced int, err error)
}

// SyncCronConfig holds the cron dependencies.
type SyncCronConfig struct {
	Syncer   Syncer
	CB       *infra.CircuitBreaker
	Notifier *RetryNotifier
	Interval time.Duration
}

// StartSyncCron launches the periodic sync goroutine. It returns immediately;
// the goroutine exits when ctx is cancelled.
func StartSyncCron(ctx context.Context, cfg SyncCronConfig) {
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultSyncTick
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		log.Info().Dur("interval", interval).Msg("sync_cron: started")
		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("sync_cron: shutting down")
				return
			case <-ticker.C:
				tick(ctx, cfg)
			}
		}
	}()
}

func tick(ctx context.Context, cfg SyncCronConfig) {
	if cfg.CB != nil && cfg.CB.State() == infra.CBOpen {
		log.Debug().Msg("sync_cron: circuit breaker open, skipping tick")
		return
	}

	attempted, synced, err := cfg.Syncer.SyncPending(ctx)
	if err != nil {
		log.Error().Err(err).Msg("sync_cron: replay pass failed")
	} else if attempted > 0 {
		log.Info().Int("attempted", attempted).Int("synced", synced).
			Msg("sync_cron: replay pass complete")
	}

	if cfg.Notifier != nil && cfg.Notifier.Len() > 0 {
		sent, remaining := cfg.Notifier.Flush(ctx)
		log.Info().Int("sent", sent).Int("remaining", remaining).
			Msg("sync_cron: notifier flush")
	}
}
