package engine

import (
	"context"
	"errors"
	"time"

	"github.com/auxwars/auxwars/internal/domain"
	"github.com/auxwars/auxwars/internal/metrics"
)

// ─── Chaos Delete Window ────────────────────────────────────────────────────

// StartChaosWindow opens a delete window for the given duration, clearing
// every per-participant usage flag from any previous window. Admin-only at
// the API layer.
func (e *Engine) StartChaosWindow(ctx context.Context, duration time.Duration) (*domain.ChaosWindow, error) {
	now := e.now()
	window, err := mutateDoc(ctx, e, keyChaos, func(w *domain.ChaosWindow) error {
		*w = domain.ChaosWindow{
			StartedAt: now,
			EndsAt:    now.Add(duration),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return window, nil
}

// AttemptChaosDelete spends the participant's single grant for this window
// on one track. The grant consumption is the atomic gate: it lands in a
// single swap on the window record, so two simultaneous requests from the
// same participant cannot both succeed. Tracks in the protected top-N are
// never eligible, regardless of request content.
func (e *Engine) AttemptChaosDelete(ctx context.Context, p Participant, trackID string) error {
	banned, err := e.IsBanned(ctx, p.ID)
	if err != nil {
		return err
	}
	if banned {
		return domain.ErrBanned
	}

	// Fast target checks before spending the grant. Protection is checked
	// again inside the removal swap: votes landing after this read can
	// promote the target into the top N.
	cat, _, err := readDoc[domain.Catalog](ctx, e, keyCatalog)
	if err != nil {
		return err
	}
	if cat.FindTrack(trackID) == nil {
		return domain.ErrTrackNotFound
	}
	for _, id := range domain.TopIDs(cat.Tracks, e.cfg.ProtectedTopN) {
		if id == trackID {
			return domain.ErrProtectedTrack
		}
	}

	now := e.now()
	_, err = mutateDoc(ctx, e, keyChaos, func(w *domain.ChaosWindow) error {
		if w.EndsAt.IsZero() || !w.Active(now) {
			return domain.ErrNoActiveWindow
		}
		return w.ConsumeGrant(p.ID)
	})
	if err != nil {
		return err
	}

	if err := e.removeUnprotectedTrack(ctx, trackID); err != nil {
		if errors.Is(err, domain.ErrProtectedTrack) {
			e.refundChaosGrant(ctx, p.ID)
		}
		return err
	}
	metrics.ChaosDeletes.Inc()
	return nil
}

// removeUnprotectedTrack deletes the track only if it is still outside
// the protected top-N at the moment of removal. The re-check and the
// removal are one catalog swap, so a concurrent promotion cannot slip a
// protected track past the earlier read.
func (e *Engine) removeUnprotectedTrack(ctx context.Context, trackID string) error {
	removed := false
	cat, err := mutateDoc(ctx, e, keyCatalog, func(c *domain.Catalog) error {
		if c.FindTrack(trackID) == nil {
			// Lost a race with another delete; the goal is met.
			return errNoChange
		}
		for _, id := range domain.TopIDs(c.Tracks, e.cfg.ProtectedTopN) {
			if id == trackID {
				return domain.ErrProtectedTrack
			}
		}
		removed = c.RemoveTrack(trackID)
		return nil
	})
	if err != nil {
		return err
	}
	if removed {
		metrics.TracksRemoved.WithLabelValues("chaos").Inc()
		metrics.QueueSize.Set(float64(len(cat.Tracks)))
		_ = e.rewardTopNominators(ctx, cat)
	}
	return nil
}

// refundChaosGrant returns a grant spent on a deletion that was then
// rejected. Best effort: an unrefunded grant under-counts in the
// participant's disfavor only until the window closes.
func (e *Engine) refundChaosGrant(ctx context.Context, participantID string) {
	_, _ = mutateDoc(ctx, e, keyChaos, func(w *domain.ChaosWindow) error {
		if !w.Used[participantID] {
			return errNoChange
		}
		delete(w.Used, participantID)
		return nil
	})
}

// ─── Chaos Status ───────────────────────────────────────────────────────────

// ChaosStatus is the caller-facing window view.
type ChaosStatus struct {
	Active      bool      `json:"active"`
	EndsAt      time.Time `json:"ends_at,omitzero"`
	SecondsLeft int       `json:"seconds_left"`
	GrantUsed   bool      `json:"grant_used"`
}

// GetChaosWindowStatus reports whether a window is open and whether the
// given participant has already spent their grant.
func (e *Engine) GetChaosWindowStatus(ctx context.Context, participantID string) (ChaosStatus, error) {
	w, found, err := readDoc[domain.ChaosWindow](ctx, e, keyChaos)
	if err != nil {
		return ChaosStatus{}, err
	}
	now := e.now()
	if !found || w.EndsAt.IsZero() || !w.Active(now) {
		return ChaosStatus{Active: false}, nil
	}
	return ChaosStatus{
		Active:      true,
		EndsAt:      w.EndsAt,
		SecondsLeft: int(w.EndsAt.Sub(now).Seconds()),
		GrantUsed:   w.Used[participantID],
	}, nil
}
