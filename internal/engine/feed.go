package engine

import (
	"context"

	"github.com/google/uuid"

	"github.com/auxwars/auxwars/internal/domain"
)

// ─── Activity Feed ──────────────────────────────────────────────────────────

// Activity returns the feed, most recent first.
func (e *Engine) Activity(ctx context.Context) ([]domain.ActivityEntry, error) {
	feed, _, err := readDoc[domain.ActivityFeed](ctx, e, keyFeed)
	if err != nil {
		return nil, err
	}
	return feed.Entries, nil
}

// RemoveActivityEntry deletes a single feed entry without touching any
// counters. Admin moderation only.
func (e *Engine) RemoveActivityEntry(ctx context.Context, entryID string) error {
	found := false
	_, err := mutateDoc(ctx, e, keyFeed, func(f *domain.ActivityFeed) error {
		found = f.RemoveByID(entryID)
		if !found {
			return errNoChange
		}
		return nil
	})
	if err != nil {
		return err
	}
	if !found {
		return domain.ErrEntryNotFound
	}
	return nil
}

// appendFeed records a moderation-relevant event. The feed is a side
// effect of the main operation; append failures are swallowed rather than
// failing the operation that succeeded.
func (e *Engine) appendFeed(ctx context.Context, kind domain.ActivityKind, p Participant, trackTitle string) {
	entry := domain.ActivityEntry{
		ID:         uuid.NewString(),
		Kind:       kind,
		ActorID:    p.ID,
		ActorName:  p.Name,
		TrackTitle: trackTitle,
		At:         e.now(),
	}
	_, _ = mutateDoc(ctx, e, keyFeed, func(f *domain.ActivityFeed) error {
		f.Push(entry, e.cfg.FeedCapacity)
		return nil
	})
}
