package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/auxwars/auxwars/internal/domain"
	"github.com/auxwars/auxwars/internal/store"
)

// seedBattleCatalog seeds five scored tracks so exactly two ("d", "e") sit
// outside the default protected top three.
func seedBattleCatalog(t *testing.T, st *store.Memory, base time.Time) {
	t.Helper()
	seedCatalog(t, st, base, map[string]int{"a": 5, "b": 4, "c": 3, "d": 1, "e": 0})
}

func TestStartBattle_PicksOutsideProtectedTop(t *testing.T) {
	e, clk, st := newTestEngine(t, DefaultConfig())
	seedBattleCatalog(t, st, clk.t.Add(-time.Hour))

	b, err := e.StartBattle(context.Background())
	if err != nil {
		t.Fatalf("StartBattle: %v", err)
	}
	pair := map[string]bool{b.TrackAID: true, b.TrackBID: true}
	if !pair["d"] || !pair["e"] {
		t.Errorf("battle pair = %s vs %s, want the two tracks below the protected top", b.TrackAID, b.TrackBID)
	}
	if b.Phase != domain.BattleVoting {
		t.Errorf("phase = %s, want voting", b.Phase)
	}
	if want := clk.t.Add(DefaultConfig().BattleDuration); !b.EndsAt.Equal(want) {
		t.Errorf("ends at %v, want %v", b.EndsAt, want)
	}
}

func TestStartBattle_NotEnoughTracks(t *testing.T) {
	e, clk, st := newTestEngine(t, DefaultConfig())
	seedCatalog(t, st, clk.t.Add(-time.Hour), map[string]int{"a": 2, "b": 1, "c": 0, "d": 0})

	if _, err := e.StartBattle(context.Background()); !errors.Is(err, domain.ErrNotEnoughTracks) {
		t.Errorf("err = %v, want ErrNotEnoughTracks", err)
	}
}

func TestStartBattle_RejectsWhileRunning(t *testing.T) {
	e, clk, st := newTestEngine(t, DefaultConfig())
	seedBattleCatalog(t, st, clk.t.Add(-time.Hour))
	ctx := context.Background()

	if _, err := e.StartBattle(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := e.StartBattle(ctx); !errors.Is(err, domain.ErrBattleRunning) {
		t.Errorf("second start err = %v, want ErrBattleRunning", err)
	}

	// Once the first battle's timer lapses unresolved, a new one may start.
	clk.Advance(DefaultConfig().BattleDuration + time.Second)
	if _, err := e.StartBattle(ctx); err != nil {
		t.Errorf("start after expiry: %v", err)
	}
}

func TestVoteBattle(t *testing.T) {
	e, clk, st := newTestEngine(t, DefaultConfig())
	seedBattleCatalog(t, st, clk.t.Add(-time.Hour))
	ctx := context.Background()

	if _, err := e.StartBattle(ctx); err != nil {
		t.Fatal(err)
	}
	if err := e.VoteBattle(ctx, guest("bob"), domain.ChoiceA); err != nil {
		t.Fatalf("first vote: %v", err)
	}
	// One immutable vote per participant, either side.
	if err := e.VoteBattle(ctx, guest("bob"), domain.ChoiceB); !errors.Is(err, domain.ErrAlreadyVoted) {
		t.Errorf("revote err = %v, want ErrAlreadyVoted", err)
	}
	if err := e.VoteBattle(ctx, guest("carol"), "c"); !errors.Is(err, domain.ErrInvalidChoice) {
		t.Errorf("bad choice err = %v, want ErrInvalidChoice", err)
	}

	clk.Advance(DefaultConfig().BattleDuration + time.Second)
	if err := e.VoteBattle(ctx, guest("carol"), domain.ChoiceB); !errors.Is(err, domain.ErrNoActiveBattle) {
		t.Errorf("vote after expiry err = %v, want ErrNoActiveBattle", err)
	}
}

func TestVoteBattle_NoBattle(t *testing.T) {
	e, _, _ := newTestEngine(t, DefaultConfig())
	if err := e.VoteBattle(context.Background(), guest("bob"), domain.ChoiceA); !errors.Is(err, domain.ErrNoActiveBattle) {
		t.Errorf("err = %v, want ErrNoActiveBattle", err)
	}
}

func TestResolveBattle_DeletesLoserOnce(t *testing.T) {
	e, clk, st := newTestEngine(t, DefaultConfig())
	seedBattleCatalog(t, st, clk.t.Add(-time.Hour))
	ctx := context.Background()

	b, err := e.StartBattle(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if err := e.VoteBattle(ctx, guest(fmt.Sprintf("va%d", i)), domain.ChoiceA); err != nil {
			t.Fatal(err)
		}
	}
	if err := e.VoteBattle(ctx, guest("vb0"), domain.ChoiceB); err != nil {
		t.Fatal(err)
	}

	if _, err := e.ResolveBattle(ctx); !errors.Is(err, domain.ErrBattleNotExpired) {
		t.Fatalf("early resolve err = %v, want ErrBattleNotExpired", err)
	}

	clk.Advance(DefaultConfig().BattleDuration + time.Second)
	resolved, err := e.ResolveBattle(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if resolved.Phase != domain.BattleResolved || resolved.WinnerID != b.TrackAID || resolved.LoserID != b.TrackBID {
		t.Fatalf("resolved = %+v, want side A winning", resolved)
	}
	ids := catalogIDs(t, e)
	if len(ids) != 4 {
		t.Fatalf("catalog after resolution = %v, want loser deleted", ids)
	}
	for _, id := range ids {
		if id == b.TrackBID {
			t.Fatalf("loser %s still in catalog", id)
		}
	}

	// A second resolve is a no-op returning the recorded outcome, and the
	// catalog does not shrink again.
	again, err := e.ResolveBattle(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if again.WinnerID != resolved.WinnerID {
		t.Errorf("re-resolve winner = %s, want %s", again.WinnerID, resolved.WinnerID)
	}
	if got := len(catalogIDs(t, e)); got != 4 {
		t.Errorf("catalog after double resolve = %d tracks, want 4", got)
	}
}

func TestResolveBattle_RepairsInterruptedDeletion(t *testing.T) {
	e, clk, st := newTestEngine(t, DefaultConfig())
	seedBattleCatalog(t, st, clk.t.Add(-time.Hour))
	ctx := context.Background()

	b, err := e.StartBattle(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := e.VoteBattle(ctx, guest("bob"), domain.ChoiceA); err != nil {
		t.Fatal(err)
	}
	clk.Advance(DefaultConfig().BattleDuration + time.Second)

	// A resolve that recorded the outcome but died before the deletion
	// leaves a resolved record with the loser still queued.
	raw, _, ok, err := st.Get(ctx, keyBattle)
	if err != nil || !ok {
		t.Fatalf("read battle: ok=%v err=%v", ok, err)
	}
	var rec domain.Battle
	if err := json.Unmarshal(raw, &rec); err != nil {
		t.Fatal(err)
	}
	if tie := rec.Resolve(clk.t, DefaultConfig().LightningDuration); tie {
		t.Fatal("unexpected tie")
	}
	out, err := json.Marshal(rec)
	if err != nil {
		t.Fatal(err)
	}
	if err := st.Put(ctx, keyBattle, out); err != nil {
		t.Fatal(err)
	}

	resolved, err := e.ResolveBattle(ctx)
	if err != nil {
		t.Fatalf("ResolveBattle: %v", err)
	}
	if resolved.WinnerID != b.TrackAID || resolved.LoserID != b.TrackBID {
		t.Fatalf("outcome = %s over %s, want %s over %s", resolved.WinnerID, resolved.LoserID, b.TrackAID, b.TrackBID)
	}
	for _, id := range catalogIDs(t, e) {
		if id == resolved.LoserID {
			t.Errorf("loser %s still in catalog after resolve", id)
		}
	}
}

func TestResolveBattle_TieTriggersLightning(t *testing.T) {
	e, clk, st := newTestEngine(t, DefaultConfig())
	seedBattleCatalog(t, st, clk.t.Add(-time.Hour))
	ctx := context.Background()

	if _, err := e.StartBattle(ctx); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 4; i++ {
		if err := e.VoteBattle(ctx, guest(fmt.Sprintf("va%d", i)), domain.ChoiceA); err != nil {
			t.Fatal(err)
		}
		if err := e.VoteBattle(ctx, guest(fmt.Sprintf("vb%d", i)), domain.ChoiceB); err != nil {
			t.Fatal(err)
		}
	}

	clk.Advance(DefaultConfig().BattleDuration + time.Second)
	b, err := e.ResolveBattle(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !b.Lightning || b.Phase != domain.BattleVoting {
		t.Fatalf("tie outcome = %+v, want lightning round in voting phase", b)
	}
	if b.TallyA != 0 || b.TallyB != 0 {
		t.Errorf("lightning tallies = %d/%d, want reset to zero", b.TallyA, b.TallyB)
	}
	if want := clk.t.Add(DefaultConfig().LightningDuration); !b.EndsAt.Equal(want) {
		t.Errorf("lightning ends at %v, want the shorter timer %v", b.EndsAt, want)
	}
	// Nothing was deleted on the tie.
	if got := len(catalogIDs(t, e)); got != 5 {
		t.Errorf("catalog after tie = %d tracks, want 5", got)
	}
	// Prior voters may vote again in the lightning round.
	if err := e.VoteBattle(ctx, guest("va0"), domain.ChoiceB); err != nil {
		t.Errorf("lightning revote: %v", err)
	}
}

func TestOverrideBattle(t *testing.T) {
	e, clk, st := newTestEngine(t, DefaultConfig())
	seedBattleCatalog(t, st, clk.t.Add(-time.Hour))
	ctx := context.Background()

	b, err := e.StartBattle(ctx)
	if err != nil {
		t.Fatal(err)
	}
	// Tallies favour A, but the override wins regardless, before expiry.
	if err := e.VoteBattle(ctx, guest("bob"), domain.ChoiceA); err != nil {
		t.Fatal(err)
	}
	if _, err := e.OverrideBattle(ctx, "ghost"); !errors.Is(err, domain.ErrNotInBattle) {
		t.Fatalf("override with outsider err = %v, want ErrNotInBattle", err)
	}
	resolved, err := e.OverrideBattle(ctx, b.TrackBID)
	if err != nil {
		t.Fatal(err)
	}
	if resolved.WinnerID != b.TrackBID || resolved.LoserID != b.TrackAID {
		t.Fatalf("override outcome = %+v, want B winning", resolved)
	}
	if got := len(catalogIDs(t, e)); got != 4 {
		t.Errorf("catalog after override = %d tracks, want 4", got)
	}

	// Overriding a resolved battle is a no-op.
	again, err := e.OverrideBattle(ctx, b.TrackAID)
	if err != nil {
		t.Fatal(err)
	}
	if again.WinnerID != b.TrackBID {
		t.Errorf("re-override winner = %s, want recorded %s", again.WinnerID, b.TrackBID)
	}
}

func TestCancelBattle(t *testing.T) {
	e, clk, st := newTestEngine(t, DefaultConfig())
	seedBattleCatalog(t, st, clk.t.Add(-time.Hour))
	ctx := context.Background()

	if _, err := e.StartBattle(ctx); err != nil {
		t.Fatal(err)
	}
	if err := e.CancelBattle(ctx); err != nil {
		t.Fatal(err)
	}
	if got := len(catalogIDs(t, e)); got != 5 {
		t.Errorf("catalog after cancel = %d tracks, want all 5 intact", got)
	}
	status, err := e.GetBattleStatus(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if status.Active {
		t.Error("battle still active after cancel")
	}
}

func TestBattleStatus_TallyVisibility(t *testing.T) {
	e, clk, st := newTestEngine(t, DefaultConfig())
	seedBattleCatalog(t, st, clk.t.Add(-time.Hour))
	ctx := context.Background()

	if _, err := e.StartBattle(ctx); err != nil {
		t.Fatal(err)
	}
	if err := e.VoteBattle(ctx, guest("bob"), domain.ChoiceA); err != nil {
		t.Fatal(err)
	}

	// Guests see no running tallies; admins do.
	status, err := e.GetBattleStatus(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if status.TallyA != nil || status.TallyB != nil {
		t.Error("guest status exposes running tallies")
	}
	status, err = e.GetBattleStatus(ctx, true)
	if err != nil {
		t.Fatal(err)
	}
	if status.TallyA == nil || *status.TallyA != 1 {
		t.Errorf("admin tally A = %v, want 1", status.TallyA)
	}

	// Everyone sees tallies once resolved.
	clk.Advance(DefaultConfig().BattleDuration + time.Second)
	if _, err := e.ResolveBattle(ctx); err != nil {
		t.Fatal(err)
	}
	status, err = e.GetBattleStatus(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if status.TallyA == nil || *status.TallyA != 1 {
		t.Errorf("post-resolution guest tally A = %v, want 1", status.TallyA)
	}
}
