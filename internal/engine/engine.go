// Package engine implements the shared ranking and entitlement engine: the
// session catalog with its vote/score rules, per-participant quotas with
// karma bonuses, the capacity/displacement policy, and the two timed
// mini-game state machines (versus battles and chaos delete windows).
//
// The engine holds no authoritative state of its own. Every operation
// reads and mutates documents in the shared store through atomic
// primitives, so any number of stateless request handlers — in this
// process or another — can call it concurrently.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/auxwars/auxwars/internal/domain"
	"github.com/auxwars/auxwars/internal/store"
)

// ─── Store Keys ─────────────────────────────────────────────────────────────

const (
	keyCatalog = "session:catalog"
	keyTimer   = "session:timer"
	keyBattle  = "session:battle"
	keyChaos   = "session:chaos"
	keyBans    = "session:bans"
	keyFeed    = "session:feed"

	entPrefix = "ent:"
)

func entKey(participantID string) string { return entPrefix + participantID }

// ─── Configuration ──────────────────────────────────────────────────────────

// Config holds the engine's policy knobs.
type Config struct {
	// MaxTracks is the fixed catalog capacity.
	MaxTracks int

	// ProtectedTopN tracks are exempt from chaos deletion, battle
	// eligibility, and pruning.
	ProtectedTopN int

	// MaxTrackDuration is the nomination duration ceiling.
	MaxTrackDuration time.Duration

	Quotas domain.Quotas

	BattleDuration    time.Duration
	LightningDuration time.Duration

	FeedCapacity int

	// PruneInterval throttles the background sweep; PruneMargin is how far
	// below capacity a sweep trims.
	PruneInterval time.Duration
	PruneMargin   int

	// TopRewardKarma is paid to a nominator when their track reaches the
	// top TopRewardRank, once per track.
	TopRewardKarma int
	TopRewardRank  int
}

// DefaultConfig returns the session defaults.
func DefaultConfig() Config {
	return Config{
		MaxTracks:         50,
		ProtectedTopN:     3,
		MaxTrackDuration:  10 * time.Minute,
		Quotas:            domain.Quotas{Adds: 5, Deletes: 1, Upvotes: 20, Downvotes: 10, KarmaPerBonus: 5},
		BattleDuration:    2 * time.Minute,
		LightningDuration: 45 * time.Second,
		FeedCapacity:      50,
		PruneInterval:     time.Minute,
		PruneMargin:       5,
		TopRewardKarma:    3,
		TopRewardRank:     3,
	}
}

// ─── Engine ─────────────────────────────────────────────────────────────────

// Participant identifies the caller of an engine operation, as produced by
// the identity resolver. Admins bypass session locks, quotas, and bans.
type Participant struct {
	ID    string
	Name  string
	Admin bool
}

// ErrContention reports that an update lost the compare-and-swap race too
// many times in a row.
var ErrContention = errors.New("session state contention, try again")

// maxCASRetries bounds how often an update re-reads and re-applies after
// losing the swap.
const maxCASRetries = 10

// Engine is the ranking/entitlement engine over a shared store.
type Engine struct {
	store store.Store
	cfg   Config

	// Prune throttle. Process-local on purpose: multiple processes may
	// each sweep once per interval, and the sweep is idempotent.
	mu        sync.Mutex
	lastPrune time.Time

	// Injectable clock for testing.
	now func() time.Time
}

// New creates an engine over the given store.
func New(st store.Store, cfg Config) *Engine {
	return &Engine{store: st, cfg: cfg, now: time.Now}
}

// Config returns the engine's policy configuration.
func (e *Engine) Config() Config { return e.cfg }

// Wipe clears all session state: catalog, ledgers, bans, feed, games.
func (e *Engine) Wipe(ctx context.Context) error {
	return e.store.Wipe(ctx)
}

// ─── Document Helpers ───────────────────────────────────────────────────────
// Session state lives in JSON documents. Mutations re-read, apply a pure
// transition, and compare-and-swap; losing the swap re-applies against the
// fresh document. This is what makes each operation a single atomic unit
// even across processes.

// errNoChange signals that a mutation decided not to write.
var errNoChange = errors.New("no change")

// mutateDoc runs the CAS loop for one document. The transition receives the
// decoded current document (zero value when absent) and returns the value
// to write. Returning errNoChange skips the write and succeeds.
func mutateDoc[T any](ctx context.Context, e *Engine, key string, fn func(*T) error) (*T, error) {
	for i := 0; i < maxCASRetries; i++ {
		raw, version, ok, err := e.store.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		doc := new(T)
		if ok {
			if err := json.Unmarshal(raw, doc); err != nil {
				return nil, fmt.Errorf("decode %s: %w", key, err)
			}
		}
		if err := fn(doc); err != nil {
			if errors.Is(err, errNoChange) {
				return doc, nil
			}
			return nil, err
		}
		out, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", key, err)
		}
		swapped, err := e.store.CompareAndSwap(ctx, key, version, out)
		if err != nil {
			return nil, err
		}
		if swapped {
			return doc, nil
		}
	}
	return nil, ErrContention
}

// readDoc loads a document without mutating it. found is false when the
// key is absent.
func readDoc[T any](ctx context.Context, e *Engine, key string) (*T, bool, error) {
	raw, _, ok, err := e.store.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	doc := new(T)
	if !ok {
		return doc, false, nil
	}
	if err := json.Unmarshal(raw, doc); err != nil {
		return nil, false, fmt.Errorf("decode %s: %w", key, err)
	}
	return doc, true, nil
}
