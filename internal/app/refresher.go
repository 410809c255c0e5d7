package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const defaultRefreshInterval = 30 * time.Second

// Refresher refetches whatever views are currently loaded. *feed.Hub
// satisfies it.
type Refresher interface {
	RefreshLoaded(ctx context.Context, log zerolog.Logger) int
}

// StartRefresher launches a background goroutine that refreshes loaded views
// at a fixed cadence. Views in the error state are left alone so the retry
// bound stays with the user. It returns immediately.
func StartRefresher(ctx context.Context, r Refresher, interval time.Duration, log zerolog.Logger) {
	if interval <= 0 {
		interval = defaultRefreshInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			if n := r.RefreshLoaded(ctx, log); n > 0 {
				log.Debug().Int("views", n).Msg("background refresh")
			}
		}
	}()
}
