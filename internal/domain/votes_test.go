package domain

import (
	"testing"
	"time"
)

// ─── Helpers ────────────────────────────────────────────────────────────────

func testCatalog(t *testing.T, ids ...string) *Catalog {
	t.Helper()
	c := &Catalog{Votes: make(map[string]VoteState)}
	base := time.Date(2025, 7, 4, 20, 0, 0, 0, time.UTC)
	for i, id := range ids {
		c.Tracks = append(c.Tracks, Track{
			ID:      id,
			Title:   "track " + id,
			AddedBy: "nominator",
			AddedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
	return c
}

func mustVote(t *testing.T, c *Catalog, pid, trackID string, dir Direction) VoteOutcome {
	t.Helper()
	out, err := ApplyVote(c, pid, trackID, dir)
	if err != nil {
		t.Fatalf("ApplyVote(%s, %s, %s) error: %v", pid, trackID, dir, err)
	}
	return out
}

// ─── Toggle Tests ───────────────────────────────────────────────────────────

func TestApplyVote_Records(t *testing.T) {
	c := testCatalog(t, "t1")

	out := mustVote(t, c, "alice", "t1", DirectionUp)
	if out != VoteRecorded {
		t.Fatalf("outcome = %v, want VoteRecorded", out)
	}
	if got := c.FindTrack("t1").Score(); got != 1 {
		t.Errorf("score = %d, want 1", got)
	}
	if c.Votes["alice"].Up != "t1" {
		t.Errorf("outstanding upvote = %q, want t1", c.Votes["alice"].Up)
	}
}

func TestApplyVote_ToggleIsIdempotent(t *testing.T) {
	c := testCatalog(t, "t1")

	mustVote(t, c, "alice", "t1", DirectionUp)
	out := mustVote(t, c, "alice", "t1", DirectionUp)
	if out != VoteWithdrawn {
		t.Fatalf("second cast outcome = %v, want VoteWithdrawn", out)
	}
	if got := c.FindTrack("t1").Score(); got != 0 {
		t.Errorf("score after toggle = %d, want 0 (prior score restored)", got)
	}
	if c.Votes["alice"].Up != "" {
		t.Errorf("outstanding upvote = %q, want empty", c.Votes["alice"].Up)
	}
}

func TestApplyVote_ReassignsOutstandingVote(t *testing.T) {
	c := testCatalog(t, "t1", "t2")

	mustVote(t, c, "alice", "t1", DirectionUp)
	mustVote(t, c, "alice", "t2", DirectionUp)

	if got := c.FindTrack("t1").Score(); got != 0 {
		t.Errorf("t1 score = %d, want 0 after reassignment", got)
	}
	if got := c.FindTrack("t2").Score(); got != 1 {
		t.Errorf("t2 score = %d, want 1", got)
	}
	if c.Votes["alice"].Up != "t2" {
		t.Errorf("outstanding upvote = %q, want t2", c.Votes["alice"].Up)
	}
}

func TestApplyVote_OppositeDirectionOnSameTrackWithdrawn(t *testing.T) {
	c := testCatalog(t, "t1")

	mustVote(t, c, "alice", "t1", DirectionUp)
	mustVote(t, c, "alice", "t1", DirectionDown)

	track := c.FindTrack("t1")
	if track.HasVoter("alice", DirectionUp) {
		t.Error("alice still in upvoter set after downvoting the same track")
	}
	if !track.HasVoter("alice", DirectionDown) {
		t.Error("alice missing from downvoter set")
	}
	if got := track.Score(); got != -1 {
		t.Errorf("score = %d, want -1", got)
	}
}

func TestApplyVote_UpAndDownOnDifferentTracksCoexist(t *testing.T) {
	c := testCatalog(t, "t1", "t2")

	mustVote(t, c, "alice", "t1", DirectionUp)
	mustVote(t, c, "alice", "t2", DirectionDown)

	vs := c.Votes["alice"]
	if vs.Up != "t1" || vs.Down != "t2" {
		t.Errorf("vote state = %+v, want up=t1 down=t2", vs)
	}
}

func TestApplyVote_UnknownTrack(t *testing.T) {
	c := testCatalog(t, "t1")
	if _, err := ApplyVote(c, "alice", "missing", DirectionUp); err != ErrTrackNotFound {
		t.Errorf("err = %v, want ErrTrackNotFound", err)
	}
}

func TestApplyVote_InvalidDirection(t *testing.T) {
	c := testCatalog(t, "t1")
	if _, err := ApplyVote(c, "alice", "t1", Direction("sideways")); err != ErrInvalidDirection {
		t.Errorf("err = %v, want ErrInvalidDirection", err)
	}
}

// ─── Invariant Tests ────────────────────────────────────────────────────────

func TestVoteInvariants_AtMostOneTargetPerDirection(t *testing.T) {
	c := testCatalog(t, "t1", "t2", "t3")

	// Alice churns through every track in both directions.
	for _, id := range []string{"t1", "t2", "t3", "t2"} {
		mustVote(t, c, "alice", id, DirectionUp)
	}
	for _, id := range []string{"t3", "t1"} {
		mustVote(t, c, "alice", id, DirectionDown)
	}

	upCount, downCount := 0, 0
	for _, tr := range c.Tracks {
		if tr.HasVoter("alice", DirectionUp) {
			upCount++
		}
		if tr.HasVoter("alice", DirectionDown) {
			downCount++
		}
		if tr.HasVoter("alice", DirectionUp) && tr.HasVoter("alice", DirectionDown) {
			t.Errorf("track %s has alice in both membership sets", tr.ID)
		}
	}
	if upCount > 1 {
		t.Errorf("alice appears in %d upvote sets, want at most 1", upCount)
	}
	if downCount > 1 {
		t.Errorf("alice appears in %d downvote sets, want at most 1", downCount)
	}
}

func TestRemoveTrack_ClearsOutstandingVotes(t *testing.T) {
	c := testCatalog(t, "t1", "t2")
	mustVote(t, c, "alice", "t1", DirectionUp)
	mustVote(t, c, "bob", "t1", DirectionDown)

	if !c.RemoveTrack("t1") {
		t.Fatal("RemoveTrack(t1) = false, want true")
	}
	if c.Votes["alice"].Up != "" {
		t.Error("alice's outstanding upvote still targets the removed track")
	}
	if c.Votes["bob"].Down != "" {
		t.Error("bob's outstanding downvote still targets the removed track")
	}
	// Concurrent delete of an already-deleted track is a no-op.
	if c.RemoveTrack("t1") {
		t.Error("second RemoveTrack(t1) = true, want no-op false")
	}
}

func TestRemoveParticipant_ScrubsNominationsAndVotes(t *testing.T) {
	c := testCatalog(t, "t1", "t2")
	c.Tracks[0].AddedBy = "mallory"
	mustVote(t, c, "mallory", "t2", DirectionUp)
	mustVote(t, c, "alice", "t1", DirectionUp)

	c.RemoveParticipant("mallory")

	if c.FindTrack("t1") != nil {
		t.Error("mallory's nominated track survived the scrub")
	}
	if c.FindTrack("t2").HasVoter("mallory", DirectionUp) {
		t.Error("mallory's vote survived the scrub")
	}
	if c.Votes["alice"].Up != "" {
		t.Error("alice's vote on the scrubbed track was not cleared")
	}
}
