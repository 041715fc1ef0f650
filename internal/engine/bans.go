package engine

import (
	"context"

	"github.com/auxwars/auxwars/internal/domain"
	"github.com/auxwars/auxwars/internal/metrics"
)

// ─── Ban Records ────────────────────────────────────────────────────────────

type banSet struct {
	IDs map[string]bool `json:"ids,omitempty"`
}

// IsBanned reports whether the participant is banned. Banned participants
// can read but not mutate.
func (e *Engine) IsBanned(ctx context.Context, participantID string) (bool, error) {
	bans, _, err := readDoc[banSet](ctx, e, keyBans)
	if err != nil {
		return false, err
	}
	return bans.IDs[participantID], nil
}

// Ban marks a participant as banned for the rest of the session and
// retroactively scrubs their contributions: nominated tracks, votes, ledger
// record, and recent feed entries.
func (e *Engine) Ban(ctx context.Context, participantID string) error {
	_, err := mutateDoc(ctx, e, keyBans, func(b *banSet) error {
		if b.IDs == nil {
			b.IDs = make(map[string]bool)
		}
		if b.IDs[participantID] {
			return errNoChange
		}
		b.IDs[participantID] = true
		return nil
	})
	if err != nil {
		return err
	}

	cat, err := mutateDoc(ctx, e, keyCatalog, func(c *domain.Catalog) error {
		c.RemoveParticipant(participantID)
		return nil
	})
	if err != nil {
		return err
	}
	metrics.QueueSize.Set(float64(len(cat.Tracks)))
	_ = e.rewardTopNominators(ctx, cat)

	if err := e.store.Delete(ctx, entKey(participantID)); err != nil {
		return err
	}

	_, err = mutateDoc(ctx, e, keyFeed, func(f *domain.ActivityFeed) error {
		if f.RemoveByActor(participantID) == 0 {
			return errNoChange
		}
		return nil
	})
	return err
}

// Unban lifts a ban. Scrubbed contributions are not restored.
func (e *Engine) Unban(ctx context.Context, participantID string) error {
	_, err := mutateDoc(ctx, e, keyBans, func(b *banSet) error {
		if !b.IDs[participantID] {
			return errNoChange
		}
		delete(b.IDs, participantID)
		return nil
	})
	return err
}
