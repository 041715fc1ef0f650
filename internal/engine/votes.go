package engine

import (
	"context"

	"github.com/auxwars/auxwars/internal/domain"
	"github.com/auxwars/auxwars/internal/metrics"
)

// ─── Cast Vote ──────────────────────────────────────────────────────────────

// CastVote applies the idempotent vote toggle: casting on the current
// target withdraws it, casting elsewhere re-assigns the participant's
// outstanding vote of that direction. The whole transition lands in one
// catalog swap, so a rapid double-click from the same participant cannot
// lose an update.
func (e *Engine) CastVote(ctx context.Context, p Participant, trackID string, dir domain.Direction) (domain.VoteOutcome, error) {
	if !dir.Valid() {
		return 0, domain.ErrInvalidDirection
	}
	if err := e.checkMutationAllowed(ctx, p); err != nil {
		return 0, err
	}

	resource := domain.ResourceUpvote
	if dir == domain.DirectionDown {
		resource = domain.ResourceDownvote
	}
	if !p.Admin {
		// Fast rejection; the real gate is the atomic consume below.
		ent, _, err := readDoc[domain.Entitlement](ctx, e, entKey(p.ID))
		if err != nil {
			return 0, err
		}
		if ent.Remaining(resource, e.cfg.Quotas) <= 0 {
			// A withdrawal of the current target spends nothing, so let
			// toggles through even at zero quota.
			if !e.isWithdrawal(ctx, p.ID, trackID, dir) {
				return 0, domain.ErrQuotaExhausted
			}
		}
	}

	var outcome domain.VoteOutcome
	prevTarget := ""
	cat, err := mutateDoc(ctx, e, keyCatalog, func(c *domain.Catalog) error {
		vs := c.Votes[p.ID]
		if dir == domain.DirectionUp {
			prevTarget = vs.Up
		} else {
			prevTarget = vs.Down
		}
		var err error
		outcome, err = domain.ApplyVote(c, p.ID, trackID, dir)
		return err
	})
	if err != nil {
		return 0, err
	}

	if outcome == domain.VoteRecorded && !p.Admin {
		if err := e.consume(ctx, p.ID, resource); err != nil {
			// Quota lost a race between the pre-vote check and now: toggle
			// the recorded vote back off, and if the cast re-assigned an
			// outstanding vote, put it back on its previous target.
			_, _ = mutateDoc(ctx, e, keyCatalog, func(c *domain.Catalog) error {
				cur := c.Votes[p.ID]
				target := cur.Up
				if dir == domain.DirectionDown {
					target = cur.Down
				}
				if target == trackID {
					if _, undoErr := domain.ApplyVote(c, p.ID, trackID, dir); undoErr != nil {
						return undoErr
					}
				}
				if prevTarget != "" && prevTarget != trackID && c.FindTrack(prevTarget) != nil {
					if _, undoErr := domain.ApplyVote(c, p.ID, prevTarget, dir); undoErr != nil {
						return undoErr
					}
				}
				return nil
			})
			return 0, err
		}
	}

	switch outcome {
	case domain.VoteRecorded:
		metrics.VotesCast.WithLabelValues(string(dir), "recorded").Inc()
		kind := domain.ActivityUpvote
		if dir == domain.DirectionDown {
			kind = domain.ActivityDownvote
		}
		title := trackID
		if t := cat.FindTrack(trackID); t != nil {
			title = t.Title
		}
		e.appendFeed(ctx, kind, p, title)
	case domain.VoteWithdrawn:
		metrics.VotesCast.WithLabelValues(string(dir), "withdrawn").Inc()
	}

	// System karma trigger: a track reaching the protected top ranks pays
	// its nominator once.
	if err := e.rewardTopNominators(ctx, cat); err != nil {
		return outcome, err
	}
	return outcome, nil
}

// isWithdrawal reports whether casting this vote would toggle off the
// participant's current target rather than record a new vote.
func (e *Engine) isWithdrawal(ctx context.Context, participantID, trackID string, dir domain.Direction) bool {
	cat, _, err := readDoc[domain.Catalog](ctx, e, keyCatalog)
	if err != nil {
		return false
	}
	vs := cat.Votes[participantID]
	if dir == domain.DirectionUp {
		return vs.Up == trackID
	}
	return vs.Down == trackID
}
