package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure — no infrastructure dependency. Policy rejections
// carry a human-readable reason because the surrounding UI surfaces them
// directly.

var (
	// Validation errors
	ErrInvalidDirection = errors.New("vote direction must be up or down")
	ErrInvalidChoice    = errors.New("battle choice must be a or b")
	ErrMissingMetadata  = errors.New("track metadata is incomplete")
	ErrInvalidKarma     = errors.New("karma grants must be positive")

	// Catalog errors
	ErrTrackNotFound  = errors.New("track not found")
	ErrDuplicateTrack = errors.New("track is already in the queue")
	ErrTrackTooLong   = errors.New("track exceeds the maximum duration")
	ErrQueueFull      = errors.New("the queue is full")
	ErrNotTrackOwner  = errors.New("only the nominator can remove this track")
	ErrProtectedTrack = errors.New("top-ranked tracks are protected")

	// Session errors
	ErrSessionLocked = errors.New("the session is not running")
	ErrBanned        = errors.New("participant is banned from this session")

	// Entitlement errors
	ErrQuotaExhausted = errors.New("quota exhausted")

	// Versus battle errors
	ErrNoActiveBattle    = errors.New("no battle is running")
	ErrBattleRunning     = errors.New("a battle is already running")
	ErrBattleNotExpired  = errors.New("the battle timer has not elapsed")
	ErrAlreadyVoted      = errors.New("already voted in this battle")
	ErrNotEnoughTracks   = errors.New("not enough eligible tracks for a battle")
	ErrNotInBattle       = errors.New("track is not part of the battle")

	// Activity feed errors
	ErrEntryNotFound = errors.New("activity entry not found")

	// Chaos window errors
	ErrNoActiveWindow = errors.New("no chaos window is open")
	ErrGrantUsed      = errors.New("chaos grant already used this window")
)
