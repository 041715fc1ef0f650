package domain

import "time"

// ─── Activity Feed ──────────────────────────────────────────────────────────

// ActivityKind classifies a feed entry.
type ActivityKind string

const (
	ActivityAdd      ActivityKind = "add"
	ActivityUpvote   ActivityKind = "upvote"
	ActivityDownvote ActivityKind = "downvote"
)

// ActivityEntry is one moderation-relevant event.
type ActivityEntry struct {
	ID         string       `json:"id"`
	Kind       ActivityKind `json:"kind"`
	ActorID    string       `json:"actor_id"`
	ActorName  string       `json:"actor_name"`
	TrackTitle string       `json:"track_title"`
	At         time.Time    `json:"at"`
}

// ActivityFeed is a bounded most-recent-first list. Oldest entries are
// silently discarded past capacity.
type ActivityFeed struct {
	Entries []ActivityEntry `json:"entries"`
}

// Push prepends an entry and trims the tail beyond max.
func (f *ActivityFeed) Push(e ActivityEntry, max int) {
	f.Entries = append([]ActivityEntry{e}, f.Entries...)
	if max > 0 && len(f.Entries) > max {
		f.Entries = f.Entries[:max]
	}
}

// RemoveByID deletes a single entry. Purely cosmetic — counters elsewhere
// are unaffected.
func (f *ActivityFeed) RemoveByID(id string) bool {
	for i, e := range f.Entries {
		if e.ID == id {
			f.Entries = append(f.Entries[:i], f.Entries[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveByActor scrubs a participant's entries; used when banning.
func (f *ActivityFeed) RemoveByActor(actorID string) int {
	kept := f.Entries[:0]
	removed := 0
	for _, e := range f.Entries {
		if e.ActorID == actorID {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	f.Entries = kept
	return removed
}
