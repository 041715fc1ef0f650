package engine

import (
	"context"
	"sort"

	"github.com/auxwars/auxwars/internal/domain"
	"github.com/auxwars/auxwars/internal/metrics"
)

// ─── Auto-Prune Sweep ───────────────────────────────────────────────────────

// MaybePrune runs the displacement sweep if the throttle interval has
// elapsed, otherwise it returns immediately. The throttle timestamp is
// process-local: multiple processes may each sweep once per interval, which
// is tolerated because the sweep is idempotent — it recomputes candidates
// from current scores every time.
func (e *Engine) MaybePrune(ctx context.Context) {
	e.mu.Lock()
	now := e.now()
	if now.Sub(e.lastPrune) < e.cfg.PruneInterval {
		e.mu.Unlock()
		return
	}
	e.lastPrune = now
	e.mu.Unlock()

	_ = e.Prune(ctx)
}

// Prune evicts low-value tracks when the catalog is at capacity: the
// non-positive scorers outside the protected top-N, oldest first among
// equal scores, trimmed down to capacity minus the safety margin. Returns
// the ids it removed.
func (e *Engine) Prune(ctx context.Context) []string {
	var pruned []string
	cat, err := mutateDoc(ctx, e, keyCatalog, func(c *domain.Catalog) error {
		pruned = pruned[:0]
		if len(c.Tracks) < e.cfg.MaxTracks {
			return errNoChange
		}

		protected := make(map[string]bool)
		for _, id := range domain.TopIDs(c.Tracks, e.cfg.ProtectedTopN) {
			protected[id] = true
		}

		candidates := make([]domain.Track, 0)
		for _, t := range c.Tracks {
			if t.Score() <= 0 && !protected[t.ID] {
				candidates = append(candidates, t)
			}
		}
		// Lowest score first; oldest first among equals.
		sort.SliceStable(candidates, func(i, j int) bool {
			si, sj := candidates[i].Score(), candidates[j].Score()
			if si != sj {
				return si < sj
			}
			return candidates[i].AddedAt.Before(candidates[j].AddedAt)
		})

		target := e.cfg.MaxTracks - e.cfg.PruneMargin
		if target < 0 {
			target = 0
		}
		for _, t := range candidates {
			if len(c.Tracks) <= target {
				break
			}
			if c.RemoveTrack(t.ID) {
				pruned = append(pruned, t.ID)
			}
		}
		if len(pruned) == 0 {
			return errNoChange
		}
		return nil
	})
	if err != nil {
		return nil
	}
	if len(pruned) > 0 {
		metrics.TracksRemoved.WithLabelValues("prune").Add(float64(len(pruned)))
		metrics.QueueSize.Set(float64(len(cat.Tracks)))
		_ = e.rewardTopNominators(ctx, cat)
	}
	return pruned
}
