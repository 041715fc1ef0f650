package domain

// ─── Vote Direction ─────────────────────────────────────────────────────────

// Direction is the direction of a catalog vote.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// Valid reports whether the direction is one of the two known values.
func (d Direction) Valid() bool {
	return d == DirectionUp || d == DirectionDown
}

// ─── Participant Vote State ─────────────────────────────────────────────────

// VoteState holds a participant's outstanding vote targets: at most one
// upvoted track and one downvoted track at any time, each re-assignable by
// re-voting. An empty string means no outstanding vote in that direction.
type VoteState struct {
	Up   string `json:"up,omitempty"`
	Down string `json:"down,omitempty"`
}

func (v VoteState) target(dir Direction) string {
	if dir == DirectionUp {
		return v.Up
	}
	return v.Down
}

func (v *VoteState) setTarget(dir Direction, trackID string) {
	if dir == DirectionUp {
		v.Up = trackID
	} else {
		v.Down = trackID
	}
}

// ─── Catalog ────────────────────────────────────────────────────────────────

// Catalog is the complete session item state: the nominated tracks plus
// every participant's outstanding vote targets. It is mutated only through
// pure transition functions so that storage can apply it under compare-and-
// swap without caring about vote semantics.
type Catalog struct {
	Tracks []Track              `json:"tracks"`
	Votes  map[string]VoteState `json:"votes,omitempty"`
}

// FindTrack returns a pointer into the catalog's track slice, or nil.
func (c *Catalog) FindTrack(id string) *Track {
	for i := range c.Tracks {
		if c.Tracks[i].ID == id {
			return &c.Tracks[i]
		}
	}
	return nil
}

// RemoveTrack deletes a track and clears every outstanding vote that
// targeted it. Removing an absent id is a no-op (concurrent deletes must
// not fail).
func (c *Catalog) RemoveTrack(id string) bool {
	idx := -1
	for i := range c.Tracks {
		if c.Tracks[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	c.Tracks = append(c.Tracks[:idx], c.Tracks[idx+1:]...)
	for pid, vs := range c.Votes {
		changed := false
		if vs.Up == id {
			vs.Up = ""
			changed = true
		}
		if vs.Down == id {
			vs.Down = ""
			changed = true
		}
		if changed {
			c.Votes[pid] = vs
		}
	}
	return true
}

// RemoveParticipant scrubs a participant's nominations and votes from the
// whole catalog. Used when banning.
func (c *Catalog) RemoveParticipant(participantID string) {
	kept := c.Tracks[:0]
	for _, t := range c.Tracks {
		if t.AddedBy != participantID {
			kept = append(kept, t)
		}
	}
	c.Tracks = kept
	for i := range c.Tracks {
		c.Tracks[i].removeVoter(participantID, DirectionUp)
		c.Tracks[i].removeVoter(participantID, DirectionDown)
	}
	delete(c.Votes, participantID)
	// Other participants may have voted on the removed tracks.
	ids := make(map[string]bool, len(c.Tracks))
	for _, t := range c.Tracks {
		ids[t.ID] = true
	}
	for pid, vs := range c.Votes {
		changed := false
		if vs.Up != "" && !ids[vs.Up] {
			vs.Up = ""
			changed = true
		}
		if vs.Down != "" && !ids[vs.Down] {
			vs.Down = ""
			changed = true
		}
		if changed {
			c.Votes[pid] = vs
		}
	}
}

// ─── Vote Transition ────────────────────────────────────────────────────────

// VoteOutcome describes what a cast-vote transition did.
type VoteOutcome int

const (
	// VoteRecorded means a new vote now targets the track (a fresh cast or
	// a re-assignment from another track).
	VoteRecorded VoteOutcome = iota
	// VoteWithdrawn means the participant's existing vote on the track was
	// toggled off.
	VoteWithdrawn
)

// ApplyVote is the pure cast-vote state transition, independent of storage
// mechanics. It enforces the vote invariants:
//
//   - idempotent toggle: voting the current target withdraws the vote
//   - one outstanding vote per direction across all tracks — casting
//     withdraws the previous target first
//   - no simultaneous up+down on one track — the opposite-direction vote on
//     the same track is withdrawn before recording
func ApplyVote(c *Catalog, participantID, trackID string, dir Direction) (VoteOutcome, error) {
	if !dir.Valid() {
		return 0, ErrInvalidDirection
	}
	track := c.FindTrack(trackID)
	if track == nil {
		return 0, ErrTrackNotFound
	}
	if c.Votes == nil {
		c.Votes = make(map[string]VoteState)
	}
	vs := c.Votes[participantID]

	// Toggle off: the outstanding vote of this direction already targets
	// this track.
	if vs.target(dir) == trackID {
		track.removeVoter(participantID, dir)
		vs.setTarget(dir, "")
		c.Votes[participantID] = vs
		return VoteWithdrawn, nil
	}

	// Withdraw the outstanding vote of this direction from its previous
	// target, if any.
	if prev := vs.target(dir); prev != "" {
		if pt := c.FindTrack(prev); pt != nil {
			pt.removeVoter(participantID, dir)
		}
		vs.setTarget(dir, "")
	}

	// No self-cancelling up+down on one track: withdraw the opposite vote
	// if it targets this same track.
	opp := DirectionDown
	if dir == DirectionDown {
		opp = DirectionUp
	}
	if vs.target(opp) == trackID {
		track.removeVoter(participantID, opp)
		vs.setTarget(opp, "")
	}

	track.addVoter(participantID, dir)
	vs.setTarget(dir, trackID)
	c.Votes[participantID] = vs
	return VoteRecorded, nil
}
