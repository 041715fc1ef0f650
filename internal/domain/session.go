package domain

import "time"

// ─── Session Timer ──────────────────────────────────────────────────────────

// SessionTimer gates guest mutations. While not running (or past its end
// timestamp) the session is locked: adds and votes are rejected for guests,
// administrators stay exempt.
type SessionTimer struct {
	Running bool      `json:"running"`
	EndsAt  time.Time `json:"ends_at,omitempty"` // zero means open-ended
}

// Locked reports whether guest mutations are currently disabled.
func (s SessionTimer) Locked(now time.Time) bool {
	if !s.Running {
		return true
	}
	return !s.EndsAt.IsZero() && now.After(s.EndsAt)
}

// ─── Chaos Delete Window ────────────────────────────────────────────────────

// ChaosWindow grants every participant exactly one destructive delete for a
// short timed window. Used flags are consumed on the participant's first
// delete and cleared when a new window starts.
type ChaosWindow struct {
	StartedAt time.Time       `json:"started_at"`
	EndsAt    time.Time       `json:"ends_at"`
	Used      map[string]bool `json:"used,omitempty"`
}

// Active reports whether the window is still open, by wall-clock comparison
// at read time.
func (w *ChaosWindow) Active(now time.Time) bool {
	return now.Before(w.EndsAt)
}

// ConsumeGrant marks the participant's single-use grant as spent. It fails
// if the grant was already used this window; the caller must apply it under
// compare-and-swap so two simultaneous requests cannot both succeed.
func (w *ChaosWindow) ConsumeGrant(participantID string) error {
	if w.Used[participantID] {
		return ErrGrantUsed
	}
	if w.Used == nil {
		w.Used = make(map[string]bool)
	}
	w.Used[participantID] = true
	return nil
}
