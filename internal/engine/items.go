package engine

import (
	"context"
	"time"

	"github.com/auxwars/auxwars/internal/domain"
	"github.com/auxwars/auxwars/internal/metrics"
)

// ─── Track Nomination ───────────────────────────────────────────────────────

// TrackMeta is the catalog metadata supplied by the caller. The engine
// performs no catalog lookups of its own.
type TrackMeta struct {
	ID         string
	Title      string
	Artist     string
	ArtworkURL string
	Duration   time.Duration
	Features   *domain.AudioFeatures
}

func (m TrackMeta) validate(maxDuration time.Duration) error {
	if m.ID == "" || m.Title == "" || m.Artist == "" {
		return domain.ErrMissingMetadata
	}
	if maxDuration > 0 && m.Duration > maxDuration {
		return domain.ErrTrackTooLong
	}
	return nil
}

// AddTrack nominates a track. Rejected when the session is locked, the
// participant is banned, the id is already queued, the add quota is
// exhausted, or the duration exceeds the ceiling. Admission past capacity
// requires a displaceable candidate (some track at a non-positive score);
// the actual eviction happens on the next maintenance sweep, not inline.
func (e *Engine) AddTrack(ctx context.Context, p Participant, meta TrackMeta) error {
	if err := e.checkMutationAllowed(ctx, p); err != nil {
		return err
	}
	if err := meta.validate(e.cfg.MaxTrackDuration); err != nil {
		return err
	}

	if !p.Admin {
		if err := e.consume(ctx, p.ID, domain.ResourceAdd); err != nil {
			return err
		}
	}

	cat, err := mutateDoc(ctx, e, keyCatalog, func(c *domain.Catalog) error {
		if c.FindTrack(meta.ID) != nil {
			return domain.ErrDuplicateTrack
		}
		if !canAdmit(c, e.cfg.MaxTracks) {
			return domain.ErrQueueFull
		}
		c.Tracks = append(c.Tracks, domain.Track{
			ID:          meta.ID,
			Title:       meta.Title,
			Artist:      meta.Artist,
			ArtworkURL:  meta.ArtworkURL,
			DurationMS:  int(meta.Duration / time.Millisecond),
			AddedBy:     p.ID,
			AddedByName: p.Name,
			AddedAt:     e.now(),
			Features:    meta.Features,
		})
		return nil
	})
	if err != nil {
		if !p.Admin {
			e.refund(ctx, p.ID, domain.ResourceAdd)
		}
		return err
	}

	metrics.TracksAdded.Inc()
	metrics.QueueSize.Set(float64(len(cat.Tracks)))
	e.appendFeed(ctx, domain.ActivityAdd, p, meta.Title)
	e.MaybePrune(ctx)
	return nil
}

// canAdmit is the capacity policy: room below the cap, or at least one
// displaceable (non-positive score) track the sweep can evict.
func canAdmit(c *domain.Catalog, maxTracks int) bool {
	if len(c.Tracks) < maxTracks {
		return true
	}
	for i := range c.Tracks {
		if c.Tracks[i].Score() <= 0 {
			return true
		}
	}
	return false
}

// ─── Track Removal ──────────────────────────────────────────────────────────

// RemoveTrack removes a track. Owners spend one delete-quota unit and may
// only remove their own nominations; admins remove unconditionally and
// without quota.
func (e *Engine) RemoveTrack(ctx context.Context, p Participant, trackID string) error {
	if p.Admin {
		return e.removeTrack(ctx, trackID, "admin")
	}

	banned, err := e.IsBanned(ctx, p.ID)
	if err != nil {
		return err
	}
	if banned {
		return domain.ErrBanned
	}

	// Ownership is re-checked inside the swap; this early read just gives
	// a fast rejection before spending quota.
	cat, _, err := readDoc[domain.Catalog](ctx, e, keyCatalog)
	if err != nil {
		return err
	}
	track := cat.FindTrack(trackID)
	if track == nil {
		return domain.ErrTrackNotFound
	}
	if track.AddedBy != p.ID {
		return domain.ErrNotTrackOwner
	}

	if err := e.consume(ctx, p.ID, domain.ResourceDelete); err != nil {
		return err
	}
	if err := e.removeOwnedTrack(ctx, p.ID, trackID); err != nil {
		e.refund(ctx, p.ID, domain.ResourceDelete)
		return err
	}
	return nil
}

func (e *Engine) removeOwnedTrack(ctx context.Context, ownerID, trackID string) error {
	removed := false
	cat, err := mutateDoc(ctx, e, keyCatalog, func(c *domain.Catalog) error {
		t := c.FindTrack(trackID)
		if t == nil {
			// Lost a race with another delete; nothing left to do.
			return errNoChange
		}
		if t.AddedBy != ownerID {
			return domain.ErrNotTrackOwner
		}
		removed = c.RemoveTrack(trackID)
		return nil
	})
	if err != nil {
		return err
	}
	if removed {
		metrics.TracksRemoved.WithLabelValues("owner").Inc()
		metrics.QueueSize.Set(float64(len(cat.Tracks)))
		_ = e.rewardTopNominators(ctx, cat)
	}
	return nil
}

// removeTrack is the unconditional removal used by admins and by mini-game
// resolutions. Removing an already-removed track is a no-op success.
func (e *Engine) removeTrack(ctx context.Context, trackID, cause string) error {
	removed := false
	cat, err := mutateDoc(ctx, e, keyCatalog, func(c *domain.Catalog) error {
		removed = c.RemoveTrack(trackID)
		if !removed {
			return errNoChange
		}
		return nil
	})
	if err != nil {
		return err
	}
	if removed {
		metrics.TracksRemoved.WithLabelValues(cause).Inc()
		metrics.QueueSize.Set(float64(len(cat.Tracks)))
		// A removal can promote tracks into the rewarded top ranks.
		_ = e.rewardTopNominators(ctx, cat)
	}
	return nil
}

// ─── Ranked View ────────────────────────────────────────────────────────────

// RankedTrack is a catalog track with its derived score and rank.
type RankedTrack struct {
	domain.Track
	Score int `json:"score"`
	Rank  int `json:"rank"` // 1-indexed
}

// Ranked returns the catalog ordered by score descending, ties broken by
// earliest nomination.
func (e *Engine) Ranked(ctx context.Context) ([]RankedTrack, error) {
	cat, _, err := readDoc[domain.Catalog](ctx, e, keyCatalog)
	if err != nil {
		return nil, err
	}
	ranked := domain.Ranked(cat.Tracks)
	out := make([]RankedTrack, len(ranked))
	for i, t := range ranked {
		out[i] = RankedTrack{Track: t, Score: t.Score(), Rank: i + 1}
	}
	return out, nil
}
