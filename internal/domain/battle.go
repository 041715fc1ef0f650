package domain

import "time"

// ─── Versus Battle ──────────────────────────────────────────────────────────

// BattlePhase is the battle state machine phase. The idle state is the
// absence of a battle record; cancel returns to idle by discarding the
// record outright.
type BattlePhase string

const (
	BattleVoting   BattlePhase = "voting"
	BattleResolved BattlePhase = "resolved"
)

// BattleChoice picks one side of the pair.
type BattleChoice string

const (
	ChoiceA BattleChoice = "a"
	ChoiceB BattleChoice = "b"
)

// Valid reports whether the choice is one of the two sides.
func (c BattleChoice) Valid() bool {
	return c == ChoiceA || c == ChoiceB
}

// Battle is a timed two-track head-to-head contest. Ties trigger a
// lightning sub-round on the same pair with a shorter timer and reset
// tallies; resolution deletes the losing track from the catalog.
type Battle struct {
	TrackAID    string `json:"track_a_id"`
	TrackBID    string `json:"track_b_id"`
	TrackATitle string `json:"track_a_title"`
	TrackBTitle string `json:"track_b_title"`

	Phase     BattlePhase `json:"phase"`
	Lightning bool        `json:"lightning"`
	StartedAt time.Time   `json:"started_at"`
	EndsAt    time.Time   `json:"ends_at"`

	// Votes maps participant id to choice; one vote per participant,
	// immutable once cast.
	Votes  map[string]BattleChoice `json:"votes,omitempty"`
	TallyA int                     `json:"tally_a"`
	TallyB int                     `json:"tally_b"`

	WinnerID   string    `json:"winner_id,omitempty"`
	LoserID    string    `json:"loser_id,omitempty"`
	ResolvedAt time.Time `json:"resolved_at,omitempty"`
}

// Expired reports whether the battle timer has elapsed. Timers are enforced
// lazily: a battle "ends" the moment any reader observes this, no scheduled
// task ever fires.
func (b *Battle) Expired(now time.Time) bool {
	return now.After(b.EndsAt)
}

// CastVote records a participant's immutable choice without changing the
// publicly visible tallies until resolution.
func (b *Battle) CastVote(participantID string, choice BattleChoice) error {
	if !choice.Valid() {
		return ErrInvalidChoice
	}
	if b.Phase != BattleVoting {
		return ErrNoActiveBattle
	}
	if b.Votes == nil {
		b.Votes = make(map[string]BattleChoice)
	}
	if _, voted := b.Votes[participantID]; voted {
		return ErrAlreadyVoted
	}
	b.Votes[participantID] = choice
	if choice == ChoiceA {
		b.TallyA++
	} else {
		b.TallyB++
	}
	return nil
}

// Resolve applies the resolution transition. On a tie it restarts the same
// pair as a lightning round (fresh timer, zeroed tallies) and reports
// tie=true; otherwise it moves to resolved and records winner and loser.
func (b *Battle) Resolve(now time.Time, lightningDuration time.Duration) (tie bool) {
	if b.TallyA == b.TallyB {
		b.Lightning = true
		b.Phase = BattleVoting
		b.StartedAt = now
		b.EndsAt = now.Add(lightningDuration)
		b.Votes = nil
		b.TallyA = 0
		b.TallyB = 0
		return true
	}
	winner, loser := b.TrackAID, b.TrackBID
	if b.TallyB > b.TallyA {
		winner, loser = b.TrackBID, b.TrackAID
	}
	b.markResolved(now, winner, loser)
	return false
}

// ForceResolve resolves in favor of the given track regardless of tallies
// or timer state (admin override).
func (b *Battle) ForceResolve(now time.Time, winnerID string) error {
	var loser string
	switch winnerID {
	case b.TrackAID:
		loser = b.TrackBID
	case b.TrackBID:
		loser = b.TrackAID
	default:
		return ErrNotInBattle
	}
	b.markResolved(now, winnerID, loser)
	return nil
}

func (b *Battle) markResolved(now time.Time, winnerID, loserID string) {
	b.Phase = BattleResolved
	b.WinnerID = winnerID
	b.LoserID = loserID
	b.ResolvedAt = now
}
