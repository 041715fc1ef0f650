package engine

import (
	"context"
	"math/rand"
	"time"

	"github.com/auxwars/auxwars/internal/domain"
	"github.com/auxwars/auxwars/internal/metrics"
)

// ─── Versus Battle ──────────────────────────────────────────────────────────
// The battle record lives under one store key; every transition is a swap
// on that record. Resolution is guarded by the phase transition itself:
// whichever request wins the swap performs the loser deletion, and a
// concurrent resolve that loses re-reads an already-resolved record and
// no-ops. No in-process flag is involved, so the guard holds across
// processes.

// StartBattle selects two random battle-eligible tracks (outside the
// protected top-N) and opens voting. Admin-only at the API layer.
func (e *Engine) StartBattle(ctx context.Context) (*domain.Battle, error) {
	cat, _, err := readDoc[domain.Catalog](ctx, e, keyCatalog)
	if err != nil {
		return nil, err
	}
	ranked := domain.Ranked(cat.Tracks)
	if len(ranked) <= e.cfg.ProtectedTopN {
		return nil, domain.ErrNotEnoughTracks
	}
	eligible := ranked[e.cfg.ProtectedTopN:]
	if len(eligible) < 2 {
		return nil, domain.ErrNotEnoughTracks
	}

	i := rand.Intn(len(eligible))
	j := rand.Intn(len(eligible) - 1)
	if j >= i {
		j++
	}
	a, b := eligible[i], eligible[j]

	now := e.now()
	battle, err := mutateDoc(ctx, e, keyBattle, func(cur *domain.Battle) error {
		if cur.Phase == domain.BattleVoting && !cur.Expired(now) {
			return domain.ErrBattleRunning
		}
		*cur = domain.Battle{
			TrackAID:    a.ID,
			TrackBID:    b.ID,
			TrackATitle: a.Title,
			TrackBTitle: b.Title,
			Phase:       domain.BattleVoting,
			StartedAt:   now,
			EndsAt:      now.Add(e.cfg.BattleDuration),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return battle, nil
}

// VoteBattle records a participant's single, immutable choice.
func (e *Engine) VoteBattle(ctx context.Context, p Participant, choice domain.BattleChoice) error {
	if !choice.Valid() {
		return domain.ErrInvalidChoice
	}
	if !p.Admin {
		banned, err := e.IsBanned(ctx, p.ID)
		if err != nil {
			return err
		}
		if banned {
			return domain.ErrBanned
		}
	}

	now := e.now()
	_, err := mutateDoc(ctx, e, keyBattle, func(b *domain.Battle) error {
		if b.TrackAID == "" || b.Phase != domain.BattleVoting || b.Expired(now) {
			return domain.ErrNoActiveBattle
		}
		return b.CastVote(p.ID, choice)
	})
	return err
}

// ResolveBattle computes the winner once the timer has elapsed. On a tie
// the same pair restarts as a lightning round with fresh tallies; otherwise
// the losing track is deleted from the catalog and the outcome recorded.
// Resolving an already-resolved battle is a no-op returning the recorded
// outcome.
func (e *Engine) ResolveBattle(ctx context.Context) (*domain.Battle, error) {
	now := e.now()
	tie := false
	resolvedHere := false
	battle, err := mutateDoc(ctx, e, keyBattle, func(b *domain.Battle) error {
		if b.TrackAID == "" {
			return domain.ErrNoActiveBattle
		}
		if b.Phase == domain.BattleResolved {
			return errNoChange
		}
		if !b.Expired(now) {
			return domain.ErrBattleNotExpired
		}
		tie = b.Resolve(now, e.cfg.LightningDuration)
		resolvedHere = !tie
		return nil
	})
	if err != nil {
		return nil, err
	}

	if tie {
		metrics.BattlesResolved.WithLabelValues("tie").Inc()
		return battle, nil
	}
	// The deletion is idempotent, so it runs on the already-resolved path
	// too: that repairs a resolve that recorded the outcome but failed
	// before removing the loser.
	if battle.Phase == domain.BattleResolved && battle.LoserID != "" {
		if err := e.removeTrack(ctx, battle.LoserID, "battle"); err != nil {
			return battle, err
		}
	}
	if resolvedHere {
		metrics.BattlesResolved.WithLabelValues("win").Inc()
	}
	return battle, nil
}

// OverrideBattle force-resolves in favor of the given track regardless of
// tallies or timer state. Overriding an already-resolved battle is a no-op.
func (e *Engine) OverrideBattle(ctx context.Context, winnerID string) (*domain.Battle, error) {
	now := e.now()
	resolvedHere := false
	battle, err := mutateDoc(ctx, e, keyBattle, func(b *domain.Battle) error {
		if b.TrackAID == "" {
			return domain.ErrNoActiveBattle
		}
		if b.Phase == domain.BattleResolved {
			return errNoChange
		}
		if err := b.ForceResolve(now, winnerID); err != nil {
			return err
		}
		resolvedHere = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if battle.Phase == domain.BattleResolved && battle.LoserID != "" {
		if err := e.removeTrack(ctx, battle.LoserID, "battle"); err != nil {
			return battle, err
		}
	}
	if resolvedHere {
		metrics.BattlesResolved.WithLabelValues("override").Inc()
	}
	return battle, nil
}

// CancelBattle discards the battle and every recorded vote. No track is
// deleted.
func (e *Engine) CancelBattle(ctx context.Context) error {
	if err := e.store.Delete(ctx, keyBattle); err != nil {
		return err
	}
	metrics.BattlesResolved.WithLabelValues("cancelled").Inc()
	return nil
}

// ─── Battle Status ──────────────────────────────────────────────────────────

// TrackRef names one side of the pair.
type TrackRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// BattleStatus is the caller-facing battle view. Tallies are included only
// for admins; end users see them at resolution.
type BattleStatus struct {
	Active      bool               `json:"active"`
	Phase       domain.BattlePhase `json:"phase,omitempty"`
	Lightning   bool               `json:"lightning,omitempty"`
	TrackA      TrackRef           `json:"track_a,omitzero"`
	TrackB      TrackRef           `json:"track_b,omitzero"`
	EndsAt      time.Time          `json:"ends_at,omitzero"`
	SecondsLeft int                `json:"seconds_left"`
	TallyA      *int               `json:"tally_a,omitempty"`
	TallyB      *int               `json:"tally_b,omitempty"`
	WinnerID    string             `json:"winner_id,omitempty"`
	LoserID     string             `json:"loser_id,omitempty"`
}

// GetBattleStatus reports the current battle. A battle whose timer has
// elapsed still reports active=true in the resolved-pending sense only for
// admins; guests simply see voting closed via seconds_left of zero.
func (e *Engine) GetBattleStatus(ctx context.Context, includeTallies bool) (BattleStatus, error) {
	b, found, err := readDoc[domain.Battle](ctx, e, keyBattle)
	if err != nil {
		return BattleStatus{}, err
	}
	if !found || b.TrackAID == "" {
		return BattleStatus{Active: false}, nil
	}

	now := e.now()
	status := BattleStatus{
		Active:    b.Phase == domain.BattleVoting,
		Phase:     b.Phase,
		Lightning: b.Lightning,
		TrackA:    TrackRef{ID: b.TrackAID, Title: b.TrackATitle},
		TrackB:    TrackRef{ID: b.TrackBID, Title: b.TrackBTitle},
		EndsAt:    b.EndsAt,
		WinnerID:  b.WinnerID,
		LoserID:   b.LoserID,
	}
	if b.Phase == domain.BattleVoting {
		if left := b.EndsAt.Sub(now); left > 0 {
			status.SecondsLeft = int(left.Seconds())
		}
	}
	if includeTallies || b.Phase == domain.BattleResolved {
		ta, tb := b.TallyA, b.TallyB
		status.TallyA, status.TallyB = &ta, &tb
	}
	return status, nil
}
