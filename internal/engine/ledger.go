package engine

import (
	"context"

	"github.com/auxwars/auxwars/internal/domain"
)

// ─── Entitlement Ledger ─────────────────────────────────────────────────────

// Entitlement returns the participant's quota snapshot. Participants who
// have not acted yet get the full base quota.
func (e *Engine) Entitlement(ctx context.Context, participantID string) (domain.EntitlementSnapshot, error) {
	ent, _, err := readDoc[domain.Entitlement](ctx, e, entKey(participantID))
	if err != nil {
		return domain.EntitlementSnapshot{}, err
	}
	return ent.Snapshot(e.cfg.Quotas), nil
}

// GrantKarma adds karma to a participant's ledger. Strictly additive —
// negative or zero grants are rejected.
func (e *Engine) GrantKarma(ctx context.Context, participantID string, amount int) error {
	if amount <= 0 {
		return domain.ErrInvalidKarma
	}
	_, err := mutateDoc(ctx, e, entKey(participantID), func(ent *domain.Entitlement) error {
		ent.Karma += amount
		return nil
	})
	return err
}

// consume is the atomic check-and-increment for one quota unit. The check
// and the increment land in a single store swap, so two concurrent requests
// cannot both pass a stale quota check.
func (e *Engine) consume(ctx context.Context, participantID string, r domain.Resource) error {
	_, err := mutateDoc(ctx, e, entKey(participantID), func(ent *domain.Entitlement) error {
		return ent.Consume(r, e.cfg.Quotas)
	})
	return err
}

// refund returns one consumed quota unit after an action that could not be
// applied (e.g. the target vanished between the quota step and the catalog
// step).
func (e *Engine) refund(ctx context.Context, participantID string, r domain.Resource) {
	// Best effort: a failed refund under-counts in the participant's favor
	// never against them.
	_, _ = mutateDoc(ctx, e, entKey(participantID), func(ent *domain.Entitlement) error {
		if ent.Used(r) == 0 {
			return errNoChange
		}
		ent.Refund(r)
		return nil
	})
}

// rewardTopNominators pays the reach-the-top karma reward to nominators of
// the current top tracks, once per track. Safe to re-run: the per-track
// reward flag lives in the nominator's ledger and is set in the same swap
// as the karma grant.
func (e *Engine) rewardTopNominators(ctx context.Context, c *domain.Catalog) error {
	if e.cfg.TopRewardKarma <= 0 || e.cfg.TopRewardRank <= 0 {
		return nil
	}
	top := domain.TopIDs(c.Tracks, e.cfg.TopRewardRank)
	for _, id := range top {
		track := c.FindTrack(id)
		if track == nil || track.AddedBy == "" || track.Score() <= 0 {
			continue
		}
		_, err := mutateDoc(ctx, e, entKey(track.AddedBy), func(ent *domain.Entitlement) error {
			if ent.Rewarded(track.ID) {
				return errNoChange
			}
			ent.Karma += e.cfg.TopRewardKarma
			ent.RewardedTracks = append(ent.RewardedTracks, track.ID)
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}
