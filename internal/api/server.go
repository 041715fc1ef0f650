// Package api provides the HTTP surface over the session engine: guest
// routes keyed by request fingerprint and host routes behind the admin
// token.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/auxwars/auxwars/internal/domain"
	"github.com/auxwars/auxwars/internal/engine"
	"github.com/auxwars/auxwars/internal/identity"
	"github.com/auxwars/auxwars/internal/metrics"
	"github.com/auxwars/auxwars/internal/ratelimit"
	"github.com/auxwars/auxwars/internal/store"
)

// Server is the AuxWars HTTP API server.
type Server struct {
	engine  *engine.Engine
	limiter *ratelimit.Limiter
	ids     *identity.Resolver
	log     *slog.Logger

	metricsEnabled bool
}

// NewServer wires the engine, limiter, and identity resolver together.
func NewServer(e *engine.Engine, l *ratelimit.Limiter, ids *identity.Resolver, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{engine: e, limiter: l, ids: ids, log: log}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Guest surface. Reads and mutations carry separate budgets.
	r.Route("/api", func(r chi.Router) {
		r.Get("/queue", s.limit(ratelimit.ClassRead, s.handleQueue))
		r.Get("/me", s.limit(ratelimit.ClassRead, s.handleMe))
		r.Get("/activity", s.limit(ratelimit.ClassRead, s.handleActivity))
		r.Get("/session", s.limit(ratelimit.ClassRead, s.handleSessionStatus))

		r.Post("/tracks", s.limit(ratelimit.ClassAdd, s.handleAddTrack))
		r.Delete("/tracks/{id}", s.limit(ratelimit.ClassVote, s.handleRemoveTrack))
		r.Post("/tracks/{id}/vote", s.limit(ratelimit.ClassVote, s.handleVote))

		r.Get("/battle", s.limit(ratelimit.ClassRead, s.handleBattleStatus))
		r.Post("/battle/vote", s.limit(ratelimit.ClassVote, s.handleBattleVote))
		r.Get("/chaos", s.limit(ratelimit.ClassRead, s.handleChaosStatus))
		r.Post("/chaos/delete", s.limit(ratelimit.ClassVote, s.handleChaosDelete))
	})

	// Host surface.
	r.Route("/admin", func(r chi.Router) {
		r.Use(s.requireAdmin)

		r.Post("/session/start", s.limit(ratelimit.ClassAdmin, s.handleSessionStart))
		r.Post("/session/stop", s.limit(ratelimit.ClassAdmin, s.handleSessionStop))
		r.Post("/session/wipe", s.limit(ratelimit.ClassAdmin, s.handleWipe))

		r.Delete("/tracks/{id}", s.limit(ratelimit.ClassAdmin, s.handleAdminRemoveTrack))
		r.Post("/karma", s.limit(ratelimit.ClassAdmin, s.handleGrantKarma))
		r.Post("/ban", s.limit(ratelimit.ClassAdmin, s.handleBan))
		r.Post("/unban", s.limit(ratelimit.ClassAdmin, s.handleUnban))

		r.Get("/battle", s.limit(ratelimit.ClassAdmin, s.handleAdminBattleStatus))
		r.Post("/battle/start", s.limit(ratelimit.ClassAdmin, s.handleBattleStart))
		r.Post("/battle/resolve", s.limit(ratelimit.ClassAdmin, s.handleBattleResolve))
		r.Post("/battle/override", s.limit(ratelimit.ClassAdmin, s.handleBattleOverride))
		r.Post("/battle/cancel", s.limit(ratelimit.ClassAdmin, s.handleBattleCancel))

		r.Post("/chaos/start", s.limit(ratelimit.ClassAdmin, s.handleChaosStart))
		r.Delete("/activity/{id}", s.limit(ratelimit.ClassAdmin, s.handleRemoveActivity))
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// ─── Middleware ─────────────────────────────────────────────────────────────

// limit wraps a handler with the fixed-window admission check for its
// class. Denials answer 429 with a Retry-After hint.
func (s *Server) limit(class ratelimit.Class, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := s.ids.Resolve(r)
		d := s.limiter.Allow(r.Context(), class, id.Fingerprint)
		if !d.Allowed {
			if d.RetryAfter > 0 {
				w.Header().Set("Retry-After", fmt.Sprintf("%d", int(d.RetryAfter.Seconds())+1))
			}
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next(w, r)
	}
}

// requireAdmin gates the host surface on the admin token.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.ids.IsAdmin(r) {
			writeError(w, http.StatusUnauthorized, "admin token required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware adds CORS headers for browser clients.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Visitor-Id, X-Visitor-Name, X-Admin-Token")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// participant resolves the caller into an engine participant.
func (s *Server) participant(r *http.Request) engine.Participant {
	id := s.ids.Resolve(r)
	return engine.Participant{ID: id.Fingerprint, Name: id.Name, Admin: id.Admin}
}

// ─── Responses ──────────────────────────────────────────────────────────────

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    "error",
		},
	})
}

// respondErr maps engine errors onto statuses. Policy rejections are the
// normal business of this API; only infrastructure failures reach the
// error log.
func (s *Server) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	if status >= 500 {
		s.log.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"err", err)
	} else {
		metrics.Rejections.WithLabelValues(rejectionReason(err)).Inc()
	}
	writeError(w, status, err.Error())
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrBanned):
		return "banned"
	case errors.Is(err, domain.ErrSessionLocked):
		return "session_locked"
	case errors.Is(err, domain.ErrQuotaExhausted):
		return "quota"
	case errors.Is(err, domain.ErrDuplicateTrack):
		return "duplicate"
	case errors.Is(err, domain.ErrQueueFull):
		return "queue_full"
	case errors.Is(err, domain.ErrProtectedTrack):
		return "protected"
	case errors.Is(err, domain.ErrAlreadyVoted):
		return "already_voted"
	case errors.Is(err, domain.ErrGrantUsed):
		return "grant_used"
	case errors.Is(err, domain.ErrTrackNotFound):
		return "not_found"
	}
	return "other"
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidDirection),
		errors.Is(err, domain.ErrInvalidChoice),
		errors.Is(err, domain.ErrMissingMetadata),
		errors.Is(err, domain.ErrInvalidKarma),
		errors.Is(err, domain.ErrTrackTooLong),
		errors.Is(err, domain.ErrNotInBattle):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrBanned),
		errors.Is(err, domain.ErrSessionLocked),
		errors.Is(err, domain.ErrNotTrackOwner),
		errors.Is(err, domain.ErrProtectedTrack):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrTrackNotFound),
		errors.Is(err, domain.ErrEntryNotFound),
		errors.Is(err, domain.ErrNoActiveBattle),
		errors.Is(err, domain.ErrNoActiveWindow):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicateTrack),
		errors.Is(err, domain.ErrQueueFull),
		errors.Is(err, domain.ErrBattleRunning),
		errors.Is(err, domain.ErrBattleNotExpired),
		errors.Is(err, domain.ErrNotEnoughTracks),
		errors.Is(err, domain.ErrAlreadyVoted),
		errors.Is(err, domain.ErrGrantUsed):
		return http.StatusConflict
	case errors.Is(err, domain.ErrQuotaExhausted):
		return http.StatusTooManyRequests
	case errors.Is(err, engine.ErrContention),
		errors.Is(err, store.ErrUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// decodeBody decodes a JSON request body into v.
func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
