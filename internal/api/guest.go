package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/auxwars/auxwars/internal/domain"
	"github.com/auxwars/auxwars/internal/engine"
)

// ─── Queue ──────────────────────────────────────────────────────────────────

func (s *Server) handleQueue(w http.ResponseWriter, r *http.Request) {
	ranked, err := s.engine.Ranked(r.Context())
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tracks": ranked,
		"count":  len(ranked),
	})
}

// ─── Tracks ─────────────────────────────────────────────────────────────────

type addTrackRequest struct {
	ID         string                `json:"id"`
	Title      string                `json:"title"`
	Artist     string                `json:"artist"`
	ArtworkURL string                `json:"artwork_url"`
	DurationMS int                   `json:"duration_ms"`
	Features   *domain.AudioFeatures `json:"features"`
}

func (s *Server) handleAddTrack(w http.ResponseWriter, r *http.Request) {
	var req addTrackRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	err := s.engine.AddTrack(r.Context(), s.participant(r), engine.TrackMeta{
		ID:         req.ID,
		Title:      req.Title,
		Artist:     req.Artist,
		ArtworkURL: req.ArtworkURL,
		Duration:   time.Duration(req.DurationMS) * time.Millisecond,
		Features:   req.Features,
	})
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "added"})
}

func (s *Server) handleRemoveTrack(w http.ResponseWriter, r *http.Request) {
	p := s.participant(r)
	// The guest route never carries admin powers, token or not; hosts use
	// the admin route for unconditional removal.
	p.Admin = false
	if err := s.engine.RemoveTrack(r.Context(), p, chi.URLParam(r, "id")); err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// ─── Votes ──────────────────────────────────────────────────────────────────

type voteRequest struct {
	Direction string `json:"direction"`
}

func (s *Server) handleVote(w http.ResponseWriter, r *http.Request) {
	var req voteRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	outcome, err := s.engine.CastVote(r.Context(), s.participant(r), chi.URLParam(r, "id"), domain.Direction(req.Direction))
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	result := "recorded"
	if outcome == domain.VoteWithdrawn {
		result = "withdrawn"
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": result})
}

// ─── Self ───────────────────────────────────────────────────────────────────

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	p := s.participant(r)
	snap, err := s.engine.Entitlement(r.Context(), p.ID)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":          p.ID,
		"name":        p.Name,
		"entitlement": snap,
	})
}

// ─── Activity ───────────────────────────────────────────────────────────────

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	entries, err := s.engine.Activity(r.Context())
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	if entries == nil {
		entries = []domain.ActivityEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

// ─── Session ────────────────────────────────────────────────────────────────

func (s *Server) handleSessionStatus(w http.ResponseWriter, r *http.Request) {
	timer, err := s.engine.SessionStatus(r.Context())
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, timer)
}

// ─── Battle ─────────────────────────────────────────────────────────────────

func (s *Server) handleBattleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.engine.GetBattleStatus(r.Context(), false)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

type battleVoteRequest struct {
	Choice string `json:"choice"`
}

func (s *Server) handleBattleVote(w http.ResponseWriter, r *http.Request) {
	var req battleVoteRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.engine.VoteBattle(r.Context(), s.participant(r), domain.BattleChoice(req.Choice)); err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "voted"})
}

// ─── Chaos ──────────────────────────────────────────────────────────────────

func (s *Server) handleChaosStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.engine.GetChaosWindowStatus(r.Context(), s.participant(r).ID)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

type chaosDeleteRequest struct {
	TrackID string `json:"track_id"`
}

func (s *Server) handleChaosDelete(w http.ResponseWriter, r *http.Request) {
	var req chaosDeleteRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.engine.AttemptChaosDelete(r.Context(), s.participant(r), req.TrackID); err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
