package ws

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RunSweeper evicts connections whose last inbound activity is older than
// timeout. Eviction latency is bounded by the sweep interval, not by the
// timeout itself. Blocks until ctx is done; start it once at service boot.
func (h *Hub) RunSweeper(ctx context.Context, interval, timeout time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := h.sweepOnce(time.Now(), timeout); n > 0 {
				zap.L().Info("hub.sweep", zap.Int("evicted", n))
			}
		}
	}
}

func (h *Hub) sweepOnce(now time.Time, timeout time.Duration) int {
	var stale []string
	h.mu.RLock()
	h.reg.forEach(func(c *Conn) {
		if c.idleFor(now) > timeout {
			stale = append(stale, c.id)
		}
	})
	h.mu.RUnlock()

	for _, id := range stale {
		h.Drop(id, "idle timeout")
	}
	return len(stale)
}
