package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/five82/quill/internal/state"
)

const (
	defaultPollInterval = 30 * time.Second
	maxBackoff          = 30 * time.Second
)

// Refresher reloads the post list into the shared store.
type Refresher interface {
	Refresh(ctx context.Context) (state.ViewState, error)
}

// StartPoller launches a background goroutine that refreshes the list at a
// fixed cadence, backing off while the site keeps failing. It returns
// immediately. The first refresh happens after one interval; the UI does
// the initial load itself.
//
// Polling is opt-in (-poll). It only re-reads the list; a failed save or
// delete is never retried, and backoff just stretches the next poll.
func StartPoller(ctx context.Context, r Refresher, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	go func() {
		failures := 0
		timer := time.NewTimer(interval)
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}

			if _, err := r.Refresh(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				failures++
				next := calculateBackoff(failures, interval)
				logger.Warn("background refresh failed", "failures", failures, "retry_in", next, "error", err)
				timer.Reset(next)
				continue
			}
			failures = 0
			timer.Reset(interval)
		}
	}()
}

// calculateBackoff doubles base for each consecutive failure, capped at
// maxBackoff. An interval already above the cap is never shortened.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 || base >= maxBackoff {
		return base
	}
	d := base
	for i := 0; i < failures; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}
