package simulator

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"
)

// Config tunes one simulated session. Start from DefaultConfig; zero
// durations and counts are replaced by their defaults.
type Config struct {
	ViewerTick      time.Duration // viewer growth period
	ViewerGrowthMin int           // inclusive
	ViewerGrowthMax int           // exclusive

	CommentDelayMin time.Duration
	CommentDelayMax time.Duration
	JoinDelayMin    time.Duration
	JoinDelayMax    time.Duration

	LocalCommentRatio float64
	LocalJoinRatio    float64

	HeartLifetime  time.Duration
	JoinerLifetime time.Duration // 0 keeps joiners until RemoveJoiner

	RosterSize        int
	MaxComments       int
	AvatarURLTemplate string // fmt template taking the viewer id

	Pools Pools
}

// DefaultConfig returns the stock simulation parameters.
func DefaultConfig() Config {
	return Config{
		ViewerTick:        2 * time.Second,
		ViewerGrowthMin:   1,
		ViewerGrowthMax:   5,
		CommentDelayMin:   500 * time.Millisecond,
		CommentDelayMax:   2 * time.Second,
		JoinDelayMin:      time.Second,
		JoinDelayMax:      3 * time.Second,
		LocalCommentRatio: 0.85,
		LocalJoinRatio:    0.80,
		HeartLifetime:     2 * time.Second,
		RosterSize:        10,
		MaxComments:       50,
		AvatarURLTemplate: "https://i.pravatar.cc/150?u=%s",
		Pools:             DefaultPools(),
	}
}

func (c Config) normalized() Config {
	d := DefaultConfig()
	if c.ViewerTick <= 0 {
		c.ViewerTick = d.ViewerTick
	}
	if c.ViewerGrowthMin <= 0 && c.ViewerGrowthMax <= 0 {
		c.ViewerGrowthMin, c.ViewerGrowthMax = d.ViewerGrowthMin, d.ViewerGrowthMax
	}
	if c.CommentDelayMin <= 0 && c.CommentDelayMax <= 0 {
		c.CommentDelayMin, c.CommentDelayMax = d.CommentDelayMin, d.CommentDelayMax
	}
	if c.JoinDelayMin <= 0 && c.JoinDelayMax <= 0 {
		c.JoinDelayMin, c.JoinDelayMax = d.JoinDelayMin, d.JoinDelayMax
	}
	if c.HeartLifetime <= 0 {
		c.HeartLifetime = d.HeartLifetime
	}
	if c.RosterSize <= 0 {
		c.RosterSize = d.RosterSize
	}
	if c.MaxComments <= 0 {
		c.MaxComments = d.MaxComments
	}
	if c.AvatarURLTemplate == "" {
		c.AvatarURLTemplate = d.AvatarURLTemplate
	}
	c.LocalCommentRatio = clampRatio(c.LocalCommentRatio)
	c.LocalJoinRatio = clampRatio(c.LocalJoinRatio)
	c.Pools = c.Pools.withDefaults()
	return c
}

func clampRatio(r float64) float64 {
	switch {
	case r < 0:
		return 0
	case r > 1:
		return 1
	default:
		return r
	}
}

// Option customises a Simulator.
type Option func(*Simulator)

// WithEventSink routes session events to sink.
func WithEventSink(sink EventSink) Option {
	return func(s *Simulator) {
		if sink != nil {
			s.sink = sink
		}
	}
}

// WithLogger sets the simulator's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Simulator) { s.logger = l }
}

// WithRand makes the simulation deterministic for a given source.
func WithRand(r *rand.Rand) Option {
	return func(s *Simulator) {
		if r != nil {
			s.rng = r
		}
	}
}

// WithClock overrides the time source used for comment timestamps and ids.
func WithClock(now func() time.Time) Option {
	return func(s *Simulator) {
		if now != nil {
			s.now = now
		}
	}
}

// WithContext sets the parent context; cancelling it stops every session loop.
func WithContext(ctx context.Context) Option {
	return func(s *Simulator) {
		if ctx != nil {
			s.baseCtx = ctx
		}
	}
}
