package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// ─── Session Control ────────────────────────────────────────────────────────

type sessionStartRequest struct {
	DurationSeconds int `json:"duration_seconds"`
}

func (s *Server) handleSessionStart(w http.ResponseWriter, r *http.Request) {
	var req sessionStartRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	timer, err := s.engine.StartSession(r.Context(), time.Duration(req.DurationSeconds)*time.Second)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.log.Info("session started", "duration_seconds", req.DurationSeconds)
	writeJSON(w, http.StatusOK, timer)
}

func (s *Server) handleSessionStop(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.StopSession(r.Context()); err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.log.Info("session stopped")
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

func (s *Server) handleWipe(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Wipe(r.Context()); err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.log.Info("session wiped")
	writeJSON(w, http.StatusOK, map[string]string{"status": "wiped"})
}

// ─── Moderation ─────────────────────────────────────────────────────────────

func (s *Server) handleAdminRemoveTrack(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.RemoveTrack(r.Context(), s.participant(r), chi.URLParam(r, "id")); err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

type karmaRequest struct {
	ParticipantID string `json:"participant_id"`
	Amount        int    `json:"amount"`
}

func (s *Server) handleGrantKarma(w http.ResponseWriter, r *http.Request) {
	var req karmaRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.engine.GrantKarma(r.Context(), req.ParticipantID, req.Amount); err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.log.Info("karma granted", "participant", req.ParticipantID, "amount", req.Amount)
	writeJSON(w, http.StatusOK, map[string]string{"status": "granted"})
}

type banRequest struct {
	ParticipantID string `json:"participant_id"`
}

func (s *Server) handleBan(w http.ResponseWriter, r *http.Request) {
	var req banRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.engine.Ban(r.Context(), req.ParticipantID); err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.log.Info("participant banned", "participant", req.ParticipantID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "banned"})
}

func (s *Server) handleUnban(w http.ResponseWriter, r *http.Request) {
	var req banRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.engine.Unban(r.Context(), req.ParticipantID); err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "unbanned"})
}

// ─── Battle Control ─────────────────────────────────────────────────────────

func (s *Server) handleAdminBattleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.engine.GetBattleStatus(r.Context(), true)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleBattleStart(w http.ResponseWriter, r *http.Request) {
	battle, err := s.engine.StartBattle(r.Context())
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.log.Info("battle started", "track_a", battle.TrackAID, "track_b", battle.TrackBID)
	writeJSON(w, http.StatusOK, battle)
}

func (s *Server) handleBattleResolve(w http.ResponseWriter, r *http.Request) {
	battle, err := s.engine.ResolveBattle(r.Context())
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, battle)
}

type battleOverrideRequest struct {
	WinnerID string `json:"winner_id"`
}

func (s *Server) handleBattleOverride(w http.ResponseWriter, r *http.Request) {
	var req battleOverrideRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	battle, err := s.engine.OverrideBattle(r.Context(), req.WinnerID)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.log.Info("battle overridden", "winner", req.WinnerID)
	writeJSON(w, http.StatusOK, battle)
}

func (s *Server) handleBattleCancel(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.CancelBattle(r.Context()); err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// ─── Chaos Control ──────────────────────────────────────────────────────────

type chaosStartRequest struct {
	DurationSeconds int `json:"duration_seconds"`
}

func (s *Server) handleChaosStart(w http.ResponseWriter, r *http.Request) {
	var req chaosStartRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	d := time.Duration(req.DurationSeconds) * time.Second
	if d <= 0 {
		d = time.Minute
	}
	window, err := s.engine.StartChaosWindow(r.Context(), d)
	if err != nil {
		s.respondErr(w, r, err)
		return
	}
	s.log.Info("chaos window opened", "ends_at", window.EndsAt)
	writeJSON(w, http.StatusOK, window)
}

// ─── Feed Moderation ────────────────────────────────────────────────────────

func (s *Server) handleRemoveActivity(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.RemoveActivityEntry(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}
