// Package daemon holds the server configuration: built-in defaults,
// optional TOML file override, and environment overrides for secrets.
package daemon

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/auxwars/auxwars/internal/engine"
	"github.com/auxwars/auxwars/internal/ratelimit"
)

// Config is the full daemon configuration.
type Config struct {
	API       APIConfig       `toml:"api"`
	Admin     AdminConfig     `toml:"admin"`
	Store     StoreConfig     `toml:"store"`
	Session   SessionConfig   `toml:"session"`
	Quotas    QuotasConfig    `toml:"quotas"`
	Battle    BattleConfig    `toml:"battle"`
	Chaos     ChaosConfig     `toml:"chaos"`
	Prune     PruneConfig     `toml:"prune"`
	RateLimit RateLimitConfig `toml:"ratelimit"`
}

// APIConfig configures the HTTP listener.
type APIConfig struct {
	Host           string `toml:"host"`
	Port           int    `toml:"port"`
	MetricsEnabled bool   `toml:"metrics_enabled"`
}

// AdminConfig configures the host role. The token may also come from the
// AUXWARS_ADMIN_TOKEN environment variable, which wins over the file.
type AdminConfig struct {
	Token string `toml:"token"`
}

// StoreConfig selects the state backend.
type StoreConfig struct {
	// Backend is "memory" or "sqlite".
	Backend string `toml:"backend"`
	// Path is the sqlite database file.
	Path string `toml:"path"`
}

// SessionConfig configures catalog policy.
type SessionConfig struct {
	MaxTracks        int    `toml:"max_tracks"`
	ProtectedTopN    int    `toml:"protected_top_n"`
	MaxTrackDuration string `toml:"max_track_duration"`
	FeedCapacity     int    `toml:"feed_capacity"`
}

// QuotasConfig configures per-participant budgets.
type QuotasConfig struct {
	Adds           int `toml:"adds"`
	Deletes        int `toml:"deletes"`
	Upvotes        int `toml:"upvotes"`
	Downvotes      int `toml:"downvotes"`
	KarmaPerBonus  int `toml:"karma_per_bonus"`
	TopRewardKarma int `toml:"top_reward_karma"`
	TopRewardRank  int `toml:"top_reward_rank"`
}

// BattleConfig configures versus battles.
type BattleConfig struct {
	Duration          string `toml:"duration"`
	LightningDuration string `toml:"lightning_duration"`
}

// ChaosConfig configures chaos delete windows.
type ChaosConfig struct {
	DefaultDuration string `toml:"default_duration"`
}

// PruneConfig configures the displacement sweep.
type PruneConfig struct {
	Interval string `toml:"interval"`
	Margin   int    `toml:"margin"`
}

// RateLimitConfig configures the per-class request budgets, all over a
// one-minute window.
type RateLimitConfig struct {
	ReadPerMinute   int64 `toml:"read_per_minute"`
	VotePerMinute   int64 `toml:"vote_per_minute"`
	AddPerMinute    int64 `toml:"add_per_minute"`
	SearchPerMinute int64 `toml:"search_per_minute"`
	AdminPerMinute  int64 `toml:"admin_per_minute"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	ec := engine.DefaultConfig()
	rl := ratelimit.DefaultLimits()
	return Config{
		API: APIConfig{
			Host:           "127.0.0.1",
			Port:           8787,
			MetricsEnabled: true,
		},
		Store: StoreConfig{
			Backend: "memory",
			Path:    "auxwars.db",
		},
		Session: SessionConfig{
			MaxTracks:        ec.MaxTracks,
			ProtectedTopN:    ec.ProtectedTopN,
			MaxTrackDuration: ec.MaxTrackDuration.String(),
			FeedCapacity:     ec.FeedCapacity,
		},
		Quotas: QuotasConfig{
			Adds:           ec.Quotas.Adds,
			Deletes:        ec.Quotas.Deletes,
			Upvotes:        ec.Quotas.Upvotes,
			Downvotes:      ec.Quotas.Downvotes,
			KarmaPerBonus:  ec.Quotas.KarmaPerBonus,
			TopRewardKarma: ec.TopRewardKarma,
			TopRewardRank:  ec.TopRewardRank,
		},
		Battle: BattleConfig{
			Duration:          ec.BattleDuration.String(),
			LightningDuration: ec.LightningDuration.String(),
		},
		Chaos: ChaosConfig{
			DefaultDuration: "1m0s",
		},
		Prune: PruneConfig{
			Interval: ec.PruneInterval.String(),
			Margin:   ec.PruneMargin,
		},
		RateLimit: RateLimitConfig{
			ReadPerMinute:   rl[ratelimit.ClassRead].Requests,
			VotePerMinute:   rl[ratelimit.ClassVote].Requests,
			AddPerMinute:    rl[ratelimit.ClassAdd].Requests,
			SearchPerMinute: rl[ratelimit.ClassSearch].Requests,
			AdminPerMinute:  rl[ratelimit.ClassAdmin].Requests,
		},
	}
}

// Load reads the config file over the defaults. A missing file is not an
// error; a malformed one is. AUXWARS_ADMIN_TOKEN overrides the file's
// admin token either way.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	if token := os.Getenv("AUXWARS_ADMIN_TOKEN"); token != "" {
		cfg.Admin.Token = token
	}
	return cfg, nil
}

// EngineConfig converts the file-facing sections into the engine's policy
// configuration.
func (c Config) EngineConfig() (engine.Config, error) {
	ec := engine.DefaultConfig()
	ec.MaxTracks = c.Session.MaxTracks
	ec.ProtectedTopN = c.Session.ProtectedTopN
	ec.FeedCapacity = c.Session.FeedCapacity
	ec.Quotas.Adds = c.Quotas.Adds
	ec.Quotas.Deletes = c.Quotas.Deletes
	ec.Quotas.Upvotes = c.Quotas.Upvotes
	ec.Quotas.Downvotes = c.Quotas.Downvotes
	ec.Quotas.KarmaPerBonus = c.Quotas.KarmaPerBonus
	ec.TopRewardKarma = c.Quotas.TopRewardKarma
	ec.TopRewardRank = c.Quotas.TopRewardRank
	ec.PruneMargin = c.Prune.Margin

	var err error
	if ec.MaxTrackDuration, err = parseDuration(c.Session.MaxTrackDuration, ec.MaxTrackDuration); err != nil {
		return engine.Config{}, fmt.Errorf("session.max_track_duration: %w", err)
	}
	if ec.BattleDuration, err = parseDuration(c.Battle.Duration, ec.BattleDuration); err != nil {
		return engine.Config{}, fmt.Errorf("battle.duration: %w", err)
	}
	if ec.LightningDuration, err = parseDuration(c.Battle.LightningDuration, ec.LightningDuration); err != nil {
		return engine.Config{}, fmt.Errorf("battle.lightning_duration: %w", err)
	}
	if ec.PruneInterval, err = parseDuration(c.Prune.Interval, ec.PruneInterval); err != nil {
		return engine.Config{}, fmt.Errorf("prune.interval: %w", err)
	}
	return ec, nil
}

// Limits converts the rate-limit section into per-class budgets.
func (c Config) Limits() ratelimit.Limits {
	return ratelimit.Limits{
		ratelimit.ClassRead:   {Requests: c.RateLimit.ReadPerMinute, Window: time.Minute},
		ratelimit.ClassVote:   {Requests: c.RateLimit.VotePerMinute, Window: time.Minute},
		ratelimit.ClassAdd:    {Requests: c.RateLimit.AddPerMinute, Window: time.Minute},
		ratelimit.ClassSearch: {Requests: c.RateLimit.SearchPerMinute, Window: time.Minute},
		ratelimit.ClassAdmin:  {Requests: c.RateLimit.AdminPerMinute, Window: time.Minute},
	}
}

// ChaosDuration returns the default chaos window length.
func (c Config) ChaosDuration() (time.Duration, error) {
	d, err := parseDuration(c.Chaos.DefaultDuration, time.Minute)
	if err != nil {
		return 0, fmt.Errorf("chaos.default_duration: %w", err)
	}
	return d, nil
}

// ListenAddr returns the host:port the API binds to.
func (c Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.API.Host, c.API.Port)
}

func parseDuration(s string, fallback time.Duration) (time.Duration, error) {
	if s == "" {
		return fallback, nil
	}
	return time.ParseDuration(s)
}
