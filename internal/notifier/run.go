package notifier

import (
	"context"
	"time"

	"github.com/JNewman-cell/GoogleCloudFunction/internal/domain"
)

// DrainTimeout is the maximum time to wait for buffered triggers during shutdown.
const DrainTimeout = 30 * time.Second

// Run invokes the batch for each trigger received on ch until ctx is
// cancelled, then drains triggers that were already buffered.
func (n *Notifier) Run(ctx context.Context, ch <-chan domain.TriggerEvent) {
	for {
		select {
		case <-ctx.Done():
			n.drain(ch)
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			n.Invoke(ctx, event)
		}
	}
}

// drain uses a fresh context since the run context is already cancelled.
func (n *Notifier) drain(ch <-chan domain.TriggerEvent) {
	drainCtx, cancel := context.WithTimeout(context.Background(), DrainTimeout)
	defer cancel()

	count := 0
	defer func() {
		if count > 0 {
			n.log.Info().Int("invocations", count).Msg("drain complete")
		}
	}()
	for {
		select {
		case <-drainCtx.Done():
			n.log.Warn().Int("invocations", count).Msg("drain timeout")
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			n.Invoke(drainCtx, event)
			count++
		default:
			return
		}
	}
}
