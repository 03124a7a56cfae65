package supabase

import (
	"bytes"
	"context"
	"crypto/sha256"
	"sync"
	"time"

	"github.com/boddenberg/phuket-immo-bfa/internal/port"

	"go.uber.org/zap"
)

// ============================================================
// Polling subscriptions
// ============================================================

// watch turns a PostgREST query into a live subscription. fetch runs once
// immediately and then every poll interval; onChange fires for the first
// result and whenever the body differs from the previous one. A failed poll
// calls onError and the next successful poll always delivers again.
func (c *Client) watch(ctx context.Context, name string, fetch func(context.Context) ([]byte, error), onChange func([]byte) error, onError port.ErrorFunc) port.CancelFunc {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)

		var last [sha256.Size]byte
		delivered := false

		tick := func() {
			body, err := fetch(ctx)
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				delivered = false
				c.logger.Warn("supabase: poll failed", zap.String("watch", name), zap.Error(err))
				onError(err)
				return
			}
			sum := sha256.Sum256(bytes.TrimSpace(body))
			if delivered && sum == last {
				return
			}
			if err := onChange(body); err != nil {
				delivered = false
				onError(err)
				return
			}
			last = sum
			delivered = true
		}

		tick()
		ticker := time.NewTicker(c.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				tick()
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
}
