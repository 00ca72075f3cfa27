package currency

import (
	"context"
	"time"
)

const DefaultRefreshInterval = time.Hour

// StartAutoRefresh refreshes rates immediately and then every interval
// until ctx is cancelled. A non-positive interval means
// DefaultRefreshInterval. It blocks; run it in its own goroutine.
func (c *Converter) StartAutoRefresh(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	c.RefreshRates(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.RefreshRates(ctx)
		case <-ctx.Done():
			c.logger.Info("stopping exchange rate refresher")
			return
		}
	}
}
