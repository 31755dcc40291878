package cache

import (
	"context"

	"github.com/benbjohnson/clock"
)

// SweepResult counts what a Sweep removed.
type SweepResult struct {
	Memory  int
	Durable int
}

// Sweep removes expired memory entries and, when WithDurableSweep is set,
// expired or corrupt durable records. Reads never depend on it: expired
// entries are already ignored and dropped when touched.
func (t *Tiered) Sweep(ctx context.Context) SweepResult {
	var r SweepResult
	if n := t.mem.sweep(t.clock.Now()); n > 0 {
		r.Memory = n
		for range n {
			t.metrics.Expiration(TierMemory)
		}
	}
	if t.cfg.durableSweep && t.durable != nil {
		r.Durable = t.reclaimDurable(ctx)
	}
	return r
}

func (t *Tiered) janitor(ticker *clock.Ticker) {
	defer close(t.done)
	defer ticker.Stop()

	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			r := t.Sweep(context.Background())
			if r.Memory > 0 || r.Durable > 0 {
				t.log.Debug().Int("memory", r.Memory).Int("durable", r.Durable).Msg("janitor sweep")
			}
		}
	}
}
