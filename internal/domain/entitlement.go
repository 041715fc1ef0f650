package domain

// ─── Resources ──────────────────────────────────────────────────────────────

// Resource identifies an action type governed by per-participant quotas.
type Resource string

const (
	ResourceAdd      Resource = "add"
	ResourceDelete   Resource = "delete"
	ResourceUpvote   Resource = "upvote"
	ResourceDownvote Resource = "downvote"
)

// Quotas holds the per-session base quota for each resource plus the karma
// conversion rate.
type Quotas struct {
	Adds      int `json:"adds"`
	Deletes   int `json:"deletes"`
	Upvotes   int `json:"upvotes"`
	Downvotes int `json:"downvotes"`

	// KarmaPerBonus is the karma cost of one bonus quota unit.
	KarmaPerBonus int `json:"karma_per_bonus"`
}

// Base returns the base quota for a resource.
func (q Quotas) Base(r Resource) int {
	switch r {
	case ResourceAdd:
		return q.Adds
	case ResourceDelete:
		return q.Deletes
	case ResourceUpvote:
		return q.Upvotes
	case ResourceDownvote:
		return q.Downvotes
	}
	return 0
}

// Bonus converts accumulated karma into bonus quota units, floored.
// This is the single conversion function — every quota check goes through
// it rather than re-deriving the rate per resource type.
func Bonus(karma, karmaPerBonus int) int {
	if karmaPerBonus <= 0 || karma <= 0 {
		return 0
	}
	return karma / karmaPerBonus
}

// ─── Entitlement Record ─────────────────────────────────────────────────────

// Entitlement tracks one participant's consumed quotas and accumulated
// karma. Created on first action, never deleted within a session, reset
// only by a session-wide wipe.
type Entitlement struct {
	AddsUsed      int `json:"adds_used"`
	DeletesUsed   int `json:"deletes_used"`
	UpvotesUsed   int `json:"upvotes_used"`
	DownvotesUsed int `json:"downvotes_used"`
	Karma         int `json:"karma"`

	// RewardedTracks lists track ids whose top-3 karma reward has already
	// been paid to this participant, so the reward fires once per track.
	RewardedTracks []string `json:"rewarded_tracks,omitempty"`
}

// Used returns the consumed counter for a resource.
func (e *Entitlement) Used(r Resource) int {
	switch r {
	case ResourceAdd:
		return e.AddsUsed
	case ResourceDelete:
		return e.DeletesUsed
	case ResourceUpvote:
		return e.UpvotesUsed
	case ResourceDownvote:
		return e.DownvotesUsed
	}
	return 0
}

// Remaining computes base + bonus(karma) − consumed for a resource.
func (e *Entitlement) Remaining(r Resource, q Quotas) int {
	return q.Base(r) + Bonus(e.Karma, q.KarmaPerBonus) - e.Used(r)
}

// Consume increments the consumed counter, refusing if it would exceed the
// remaining quota. Callers must apply this inside an atomic store update so
// the check and the increment are one step.
func (e *Entitlement) Consume(r Resource, q Quotas) error {
	if e.Remaining(r, q) <= 0 {
		return ErrQuotaExhausted
	}
	e.add(r, 1)
	return nil
}

// Refund decrements a consumed counter, flooring at zero. Used when a
// consumed action could not be applied (e.g. the track vanished between the
// quota step and the catalog step).
func (e *Entitlement) Refund(r Resource) {
	if e.Used(r) > 0 {
		e.add(r, -1)
	}
}

func (e *Entitlement) add(r Resource, delta int) {
	switch r {
	case ResourceAdd:
		e.AddsUsed += delta
	case ResourceDelete:
		e.DeletesUsed += delta
	case ResourceUpvote:
		e.UpvotesUsed += delta
	case ResourceDownvote:
		e.DownvotesUsed += delta
	}
}

// Rewarded reports whether the top-3 reward for a track was already paid.
func (e *Entitlement) Rewarded(trackID string) bool {
	return contains(e.RewardedTracks, trackID)
}

// ─── Snapshot ───────────────────────────────────────────────────────────────

// EntitlementSnapshot is the caller-facing view of a participant's quotas.
type EntitlementSnapshot struct {
	Karma              int `json:"karma"`
	AddsRemaining      int `json:"adds_remaining"`
	DeletesRemaining   int `json:"deletes_remaining"`
	UpvotesRemaining   int `json:"upvotes_remaining"`
	DownvotesRemaining int `json:"downvotes_remaining"`
}

// Snapshot derives the remaining quotas under the given configuration.
func (e *Entitlement) Snapshot(q Quotas) EntitlementSnapshot {
	return EntitlementSnapshot{
		Karma:              e.Karma,
		AddsRemaining:      max(0, e.Remaining(ResourceAdd, q)),
		DeletesRemaining:   max(0, e.Remaining(ResourceDelete, q)),
		UpvotesRemaining:   max(0, e.Remaining(ResourceUpvote, q)),
		DownvotesRemaining: max(0, e.Remaining(ResourceDownvote, q)),
	}
}
