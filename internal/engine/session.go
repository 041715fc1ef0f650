package engine

import (
	"context"
	"time"

	"github.com/auxwars/auxwars/internal/domain"
)

// ─── Session Timer ──────────────────────────────────────────────────────────

// StartSession unlocks guest mutations. A zero duration runs open-ended.
func (e *Engine) StartSession(ctx context.Context, duration time.Duration) (domain.SessionTimer, error) {
	timer, err := mutateDoc(ctx, e, keyTimer, func(t *domain.SessionTimer) error {
		t.Running = true
		if duration > 0 {
			t.EndsAt = e.now().Add(duration)
		} else {
			t.EndsAt = time.Time{}
		}
		return nil
	})
	if err != nil {
		return domain.SessionTimer{}, err
	}
	return *timer, nil
}

// StopSession locks the session; administrators may still moderate.
func (e *Engine) StopSession(ctx context.Context) error {
	_, err := mutateDoc(ctx, e, keyTimer, func(t *domain.SessionTimer) error {
		t.Running = false
		t.EndsAt = time.Time{}
		return nil
	})
	return err
}

// SessionStatus returns the current timer state.
func (e *Engine) SessionStatus(ctx context.Context) (domain.SessionTimer, error) {
	timer, _, err := readDoc[domain.SessionTimer](ctx, e, keyTimer)
	if err != nil {
		return domain.SessionTimer{}, err
	}
	return *timer, nil
}

// sessionLocked reports whether guest mutations are currently rejected.
// An absent timer document means the session was never started.
func (e *Engine) sessionLocked(ctx context.Context) (bool, error) {
	timer, err := e.SessionStatus(ctx)
	if err != nil {
		return false, err
	}
	return timer.Locked(e.now()), nil
}

// checkMutationAllowed applies the checks shared by every guest mutation:
// bans first, then the session lock. Admins are exempt from both.
func (e *Engine) checkMutationAllowed(ctx context.Context, p Participant) error {
	if p.Admin {
		return nil
	}
	banned, err := e.IsBanned(ctx, p.ID)
	if err != nil {
		return err
	}
	if banned {
		return domain.ErrBanned
	}
	locked, err := e.sessionLocked(ctx)
	if err != nil {
		return err
	}
	if locked {
		return domain.ErrSessionLocked
	}
	return nil
}
