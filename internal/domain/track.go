// Package domain contains pure business types with ZERO infrastructure imports.
// This is the innermost ring of the engine — it depends on nothing.
package domain

import (
	"sort"
	"time"
)

// ─── Track Types ────────────────────────────────────────────────────────────

// AudioFeatures are optional catalog annotations attached to a track.
type AudioFeatures struct {
	Energy  float64 `json:"energy"`
	Valence float64 `json:"valence"`
	Tempo   float64 `json:"tempo"`
}

// Track is a nominated song in the session catalog.
// Upvoters and Downvoters are membership sets of participant IDs; a
// participant appears in at most one of the two per track.
type Track struct {
	ID          string         `json:"id"` // catalog id, unique per session
	Title       string         `json:"title"`
	Artist      string         `json:"artist"`
	ArtworkURL  string         `json:"artwork_url,omitempty"`
	DurationMS  int            `json:"duration_ms"`
	AddedBy     string         `json:"added_by"`
	AddedByName string         `json:"added_by_name"`
	AddedAt     time.Time      `json:"added_at"`
	Upvoters    []string       `json:"upvoters"`
	Downvoters  []string       `json:"downvoters"`
	Features    *AudioFeatures `json:"features,omitempty"`
}

// Score is always derived from the membership sets, never cached.
func (t *Track) Score() int {
	return len(t.Upvoters) - len(t.Downvoters)
}

// HasVoter reports whether the participant is in the given direction's set.
func (t *Track) HasVoter(participantID string, dir Direction) bool {
	return contains(t.voters(dir), participantID)
}

func (t *Track) voters(dir Direction) []string {
	if dir == DirectionUp {
		return t.Upvoters
	}
	return t.Downvoters
}

func (t *Track) addVoter(participantID string, dir Direction) {
	if t.HasVoter(participantID, dir) {
		return
	}
	if dir == DirectionUp {
		t.Upvoters = append(t.Upvoters, participantID)
	} else {
		t.Downvoters = append(t.Downvoters, participantID)
	}
}

func (t *Track) removeVoter(participantID string, dir Direction) {
	if dir == DirectionUp {
		t.Upvoters = remove(t.Upvoters, participantID)
	} else {
		t.Downvoters = remove(t.Downvoters, participantID)
	}
}

// ─── Ranking ────────────────────────────────────────────────────────────────

// Ranked returns the tracks sorted by score descending, ties broken by
// earliest nomination time so the order is a stable total order under
// repeated re-sorts.
func Ranked(tracks []Track) []Track {
	out := make([]Track, len(tracks))
	copy(out, tracks)
	sort.SliceStable(out, func(i, j int) bool {
		si, sj := out[i].Score(), out[j].Score()
		if si != sj {
			return si > sj
		}
		if !out[i].AddedAt.Equal(out[j].AddedAt) {
			return out[i].AddedAt.Before(out[j].AddedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// TopIDs returns the ids of the n highest-ranked tracks.
func TopIDs(tracks []Track, n int) []string {
	ranked := Ranked(tracks)
	if n > len(ranked) {
		n = len(ranked)
	}
	ids := make([]string, 0, n)
	for _, t := range ranked[:n] {
		ids = append(ids, t.ID)
	}
	return ids
}

// ─── Set Helpers ────────────────────────────────────────────────────────────

func contains(set []string, id string) bool {
	for _, s := range set {
		if s == id {
			return true
		}
	}
	return false
}

func remove(set []string, id string) []string {
	for i, s := range set {
		if s == id {
			return append(set[:i], set[i+1:]...)
		}
	}
	return set
}
