package simulator

import (
	"context"
	"time"

	"github.com/weiawesome/oidi-live/internal/domain"
)

// runViewerGrowth adds a random number of viewers every tick until the
// session ends. Manual viewer mode pauses growth without stopping the loop.
func (s *Simulator) runViewerGrowth(ctx context.Context) {
	defer s.loops.Done()

	ticker := time.NewTicker(s.cfg.ViewerTick)
	defer ticker.Stop()

	for {
		if !s.manualViewers.Load() {
			n := s.randIntRange(s.cfg.ViewerGrowthMin, s.cfg.ViewerGrowthMax)
			s.state.Update(func(st domain.SessionState) domain.SessionState {
				return st.WithViewerDelta(n)
			})
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// runCommentFeed posts a random comment, mostly from the local pools,
// then waits a random delay.
func (s *Simulator) runCommentFeed(ctx context.Context) {
	defer s.loops.Done()

	for {
		if ctx.Err() != nil {
			return
		}

		s.rngMu.Lock()
		local := s.rng.Float64() < s.cfg.LocalCommentRatio
		username := s.cfg.Pools.username(s.rng, local)
		message := s.cfg.Pools.message(s.rng, local)
		s.rngMu.Unlock()

		s.appendComment(ctx, username, message)

		if !sleep(ctx, s.randDuration(s.cfg.CommentDelayMin, s.cfg.CommentDelayMax)) {
			return
		}
	}
}

// runJoinFeed announces a random joiner with a welcome comment, then waits a
// random delay. Joiners expire on their own when JoinerLifetime is set.
func (s *Simulator) runJoinFeed(ctx context.Context) {
	defer s.loops.Done()

	for {
		if ctx.Err() != nil {
			return
		}

		s.rngMu.Lock()
		local := s.rng.Float64() < s.cfg.LocalJoinRatio
		username := s.cfg.Pools.username(s.rng, local)
		s.rngMu.Unlock()

		s.state.Update(func(st domain.SessionState) domain.SessionState {
			return st.WithJoiner(username)
		})
		if s.cfg.JoinerLifetime > 0 {
			s.schedule("joiner:"+username, s.cfg.JoinerLifetime, func() {
				s.state.Update(func(st domain.SessionState) domain.SessionState {
					return st.WithoutJoiner(username)
				})
			})
		}
		s.emit(ctx, domain.EventViewerJoined, domain.ViewerJoinedPayload{Username: username})
		s.appendComment(ctx, username, s.cfg.Pools.JoinMessage)

		if !sleep(ctx, s.randDuration(s.cfg.JoinDelayMin, s.cfg.JoinDelayMax)) {
			return
		}
	}
}

// sleep waits for d or until ctx is done. It reports whether the wait completed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// randIntRange returns a uniform integer in [lo, hi).
func (s *Simulator) randIntRange(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return lo + s.rng.IntN(hi-lo)
}

// randDuration returns a uniform duration in [lo, hi).
func (s *Simulator) randDuration(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return lo + time.Duration(s.rng.Int64N(int64(hi-lo)))
}
