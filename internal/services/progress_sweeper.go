package services

import (
	"context"
	"log"
	"time"
)

type ProgressSweeper struct {
	ledger   *ProgressLedger
	drafts   *DraftManager
	ttl      time.Duration
	interval time.Duration
}

// NewProgressSweeper evicts progression records and drafts idle for longer
// than ttl. drafts may be nil.
func NewProgressSweeper(ledger *ProgressLedger, drafts *DraftManager, ttl, interval time.Duration) *ProgressSweeper {
	return &ProgressSweeper{
		ledger:   ledger,
		drafts:   drafts,
		ttl:      ttl,
		interval: interval,
	}
}

func (s *ProgressSweeper) TTL() time.Duration {
	return s.ttl
}

// Run sweeps once immediately and then every interval until ctx is done.
func (s *ProgressSweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.SweepOnce(ctx); err != nil && ctx.Err() == nil {
			log.Printf("[SWEEPER] Sweep failed: %v", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (s *ProgressSweeper) SweepOnce(ctx context.Context) (int, error) {
	removed, err := s.ledger.EvictStale(ctx, s.ttl)
	if err != nil {
		return 0, err
	}

	if s.drafts != nil {
		removed += s.drafts.PruneOlderThan(s.ledger.now().Add(-s.ttl))
	}

	if removed > 0 {
		log.Printf("[SWEEPER] Removed %d stale entries older than %s", removed, s.ttl)
	}
	return removed, nil
}
