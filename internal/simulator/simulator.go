// Package simulator runs a simulated live broadcast: a host goes live and a
// synthetic audience grows, comments, joins and reacts with hearts.
//
// All state lives in observables owned by the Simulator. Callers mutate it
// only through the Simulator's methods and observe it through snapshots or
// subscriptions. Background activity is bound to the session: EndLive stops
// every loop and pending timer before it returns.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/weiawesome/oidi-live/internal/domain"
	pkglog "github.com/weiawesome/oidi-live/pkg/log"
)

var (
	// ErrAlreadyLive is returned by StartLive while a session is running.
	ErrAlreadyLive = errors.New("session is already live")
	// ErrClosed is returned by StartLive after Close.
	ErrClosed = errors.New("simulator closed")
	// ErrEmptyHost is returned by StartLive without a host username.
	ErrEmptyHost = errors.New("host username is required")
)

// Simulator owns the state of one live session.
type Simulator struct {
	id     string
	cfg    Config
	sink   EventSink
	logger zerolog.Logger
	now    func() time.Time
	ids    *idGenerator

	baseCtx context.Context

	rngMu sync.Mutex
	rng   *rand.Rand

	state   *Observable[domain.SessionState]
	viewers *Observable[[]domain.Viewer]
	hearts  *Observable[[]domain.HeartMarker]
	torch   *Observable[domain.TorchStatus]

	// lifeMu serialises StartLive, EndLive and Close.
	lifeMu sync.Mutex
	cancel context.CancelFunc
	loops  sync.WaitGroup
	closed bool

	timerMu sync.Mutex
	timers  map[string]*time.Timer

	manualViewers atomic.Bool
}

// New creates a simulator for the session id. Nothing runs until StartLive.
func New(id string, cfg Config, opts ...Option) *Simulator {
	s := &Simulator{
		id:      id,
		cfg:     cfg.normalized(),
		sink:    nopSink{},
		logger:  pkglog.Component("simulator"),
		now:     time.Now,
		baseCtx: context.Background(),
		state:   NewObservable(domain.NewSessionState()),
		viewers: NewObservable([]domain.Viewer{}),
		hearts:  NewObservable([]domain.HeartMarker{}),
		torch:   NewObservable(domain.TorchStatus{}),
		timers:  make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64()))
	}
	s.ids = &idGenerator{now: s.now}
	s.logger = s.logger.With().Str(pkglog.FieldSessionID, id).Logger()
	return s
}

// ID returns the session id.
func (s *Simulator) ID() string { return s.id }

// Config returns the effective configuration.
func (s *Simulator) Config() Config { return s.cfg }

// StartLive puts the host on air, generates the viewer roster and starts the
// viewer growth, comment and join loops. It fails with ErrAlreadyLive when
// the session is already running.
func (s *Simulator) StartLive(host, avatar string) error {
	if strings.TrimSpace(host) == "" {
		return ErrEmptyHost
	}

	s.lifeMu.Lock()
	if s.closed {
		s.lifeMu.Unlock()
		return ErrClosed
	}
	if s.cancel != nil {
		s.lifeMu.Unlock()
		return ErrAlreadyLive
	}

	ctx, cancel := context.WithCancel(s.baseCtx)
	s.cancel = cancel
	s.manualViewers.Store(false)

	s.state.Update(func(st domain.SessionState) domain.SessionState {
		st.IsLive = true
		st.HostUsername = host
		st.HostAvatar = avatar
		return st
	})
	s.viewers.Set(s.generateRoster())

	s.logger.Info().Str(pkglog.FieldHost, host).Msg("session live")
	s.emit(s.baseCtx, domain.EventLiveStarted, domain.LiveStartedPayload{Host: host, Avatar: avatar})

	s.loops.Add(3)
	go s.runViewerGrowth(ctx)
	go s.runCommentFeed(ctx)
	go s.runJoinFeed(ctx)
	s.lifeMu.Unlock()

	return nil
}

// EndLive takes the session off air. It cancels the loops and all pending
// heart and joiner timers and waits for the loops to exit. Ending a session
// that is not live is a no-op.
func (s *Simulator) EndLive() {
	s.lifeMu.Lock()
	ended, st := s.endLocked()
	s.lifeMu.Unlock()

	if ended {
		s.logger.Info().Int("viewer_count", st.ViewerCount).Msg("session ended")
		s.emit(s.baseCtx, domain.EventLiveEnded, domain.LiveEndedPayload{
			ViewerCount: st.ViewerCount,
			Comments:    len(st.Comments),
		})
	}
}

func (s *Simulator) endLocked() (bool, domain.SessionState) {
	if s.cancel == nil {
		return false, s.state.Value()
	}

	s.cancel()
	s.cancel = nil
	s.loops.Wait()
	s.stopTimers()

	s.hearts.Set([]domain.HeartMarker{})
	st := s.state.Update(func(st domain.SessionState) domain.SessionState {
		st.IsLive = false
		return st
	})
	return true, st
}

// Close ends the session and closes every observable. The last state stays
// readable through the snapshot accessors.
func (s *Simulator) Close() {
	s.lifeMu.Lock()
	if s.closed {
		s.lifeMu.Unlock()
		return
	}
	ended, st := s.endLocked()
	s.closed = true
	s.stopTimers()
	s.lifeMu.Unlock()

	if ended {
		s.emit(s.baseCtx, domain.EventLiveEnded, domain.LiveEndedPayload{
			ViewerCount: st.ViewerCount,
			Comments:    len(st.Comments),
		})
	}

	s.state.Close()
	s.viewers.Close()
	s.hearts.Close()
	s.torch.Close()
}

// IsLive reports whether the session's loops are running.
func (s *Simulator) IsLive() bool {
	return s.state.Value().IsLive
}

// AddComment appends a comment and evicts the oldest beyond the comment limit.
func (s *Simulator) AddComment(username, message string) domain.Comment {
	return s.appendComment(s.baseCtx, username, message)
}

func (s *Simulator) appendComment(ctx context.Context, username, message string) domain.Comment {
	c := domain.Comment{
		ID:        s.ids.Next(),
		Username:  username,
		Message:   message,
		Timestamp: s.now().UnixMilli(),
	}
	s.state.Update(func(st domain.SessionState) domain.SessionState {
		return st.WithComment(c, s.cfg.MaxComments)
	})
	s.emit(ctx, domain.EventCommentAdded, c)
	return c
}

// AddHeart inserts a heart at position and removes it after the heart lifetime.
func (s *Simulator) AddHeart(position float64) domain.HeartMarker {
	h := domain.HeartMarker{ID: s.ids.Next(), Position: position}
	s.hearts.Update(func(hs []domain.HeartMarker) []domain.HeartMarker {
		return domain.WithHeart(hs, h)
	})
	s.schedule(fmt.Sprintf("heart:%d", h.ID), s.cfg.HeartLifetime, func() {
		s.hearts.Update(func(hs []domain.HeartMarker) []domain.HeartMarker {
			return domain.WithoutHeart(hs, h.ID)
		})
	})
	s.emit(s.baseCtx, domain.EventHeartAdded, h)
	return h
}

// RemoveJoiner drops username from the recent joiners. Absent names are ignored.
func (s *Simulator) RemoveJoiner(username string) {
	s.cancelTimer("joiner:" + username)
	s.state.Update(func(st domain.SessionState) domain.SessionState {
		return st.WithoutJoiner(username)
	})
}

// IncrementViewers adds amount viewers and switches to manual viewer mode.
func (s *Simulator) IncrementViewers(amount int) int {
	return s.adjustViewers(amount)
}

// DecrementViewers removes amount viewers, never going below zero, and
// switches to manual viewer mode.
func (s *Simulator) DecrementViewers(amount int) int {
	return s.adjustViewers(-amount)
}

func (s *Simulator) adjustViewers(delta int) int {
	s.manualViewers.Store(true)
	st := s.state.Update(func(st domain.SessionState) domain.SessionState {
		return st.WithViewerDelta(delta)
	})
	return st.ViewerCount
}

// ManualViewers reports whether automatic viewer growth is paused.
func (s *Simulator) ManualViewers() bool {
	return s.manualViewers.Load()
}

// UpdateCameraEffect records the selected preview effect.
func (s *Simulator) UpdateCameraEffect(effect domain.CameraEffect) {
	s.state.Update(func(st domain.SessionState) domain.SessionState {
		st.CameraEffect = effect
		return st
	})
}

// UpdateStreamQuality records the selected stream quality.
func (s *Simulator) UpdateStreamQuality(quality domain.StreamQuality) {
	s.state.Update(func(st domain.SessionState) domain.SessionState {
		st.StreamQuality = quality
		return st
	})
}

// ToggleFlash switches the camera torch. Failures are logged, recorded in
// the torch status and returned as *TorchError; they never affect the session.
func (s *Simulator) ToggleFlash(cam Camera, enabled bool) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &TorchError{Enabled: enabled, Err: fmt.Errorf("camera panic: %v", r)}
		}
		if err != nil {
			s.recordTorchFailure(err)
		}
	}()

	if cam == nil {
		return &TorchError{Enabled: enabled, Err: ErrNoCamera}
	}
	if !cam.HasFlashUnit() {
		return &TorchError{Enabled: enabled, Err: ErrNoFlashUnit}
	}
	if e := cam.EnableTorch(enabled); e != nil {
		return &TorchError{Enabled: enabled, Err: e}
	}

	s.torch.Update(func(t domain.TorchStatus) domain.TorchStatus {
		t.On = enabled
		return t
	})
	return nil
}

func (s *Simulator) recordTorchFailure(err error) {
	s.logger.Warn().Err(err).Msg("failed to toggle flash")
	s.torch.Update(func(t domain.TorchStatus) domain.TorchStatus {
		t.Failures++
		t.LastError = err.Error()
		return t
	})
}

// State returns the current session snapshot.
func (s *Simulator) State() domain.SessionState { return s.state.Value() }

// Viewers returns the current viewer roster.
func (s *Simulator) Viewers() []domain.Viewer { return s.viewers.Value() }

// Hearts returns the hearts currently on screen.
func (s *Simulator) Hearts() []domain.HeartMarker { return s.hearts.Value() }

// Torch returns the torch status.
func (s *Simulator) Torch() domain.TorchStatus { return s.torch.Value() }

// SubscribeState streams session snapshots. See Observable.Subscribe.
func (s *Simulator) SubscribeState() (<-chan domain.SessionState, func()) {
	return s.state.Subscribe()
}

// SubscribeViewers streams the viewer roster.
func (s *Simulator) SubscribeViewers() (<-chan []domain.Viewer, func()) {
	return s.viewers.Subscribe()
}

// SubscribeHearts streams the heart set.
func (s *Simulator) SubscribeHearts() (<-chan []domain.HeartMarker, func()) {
	return s.hearts.Subscribe()
}

// SubscribeTorch streams torch status, including toggle failures.
func (s *Simulator) SubscribeTorch() (<-chan domain.TorchStatus, func()) {
	return s.torch.Subscribe()
}

func (s *Simulator) generateRoster() []domain.Viewer {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()

	roster := make([]domain.Viewer, s.cfg.RosterSize)
	for i := range roster {
		id := fmt.Sprintf("viewer_%d", i)
		roster[i] = domain.Viewer{
			ID:       id,
			Username: s.cfg.Pools.username(s.rng, true),
			Avatar:   fmt.Sprintf(s.cfg.AvatarURLTemplate, id),
		}
	}
	return roster
}

// schedule runs fn after d unless the timer is cancelled first. A timer
// scheduled under an existing key replaces it.
func (s *Simulator) schedule(key string, d time.Duration, fn func()) {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()

	if old, ok := s.timers[key]; ok {
		old.Stop()
	}

	var t *time.Timer
	t = time.AfterFunc(d, func() {
		s.timerMu.Lock()
		current, ok := s.timers[key]
		if ok && current == t {
			delete(s.timers, key)
		}
		s.timerMu.Unlock()

		if ok && current == t {
			fn()
		}
	})
	s.timers[key] = t
}

func (s *Simulator) cancelTimer(key string) {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()

	if t, ok := s.timers[key]; ok {
		t.Stop()
		delete(s.timers, key)
	}
}

func (s *Simulator) stopTimers() {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()

	for key, t := range s.timers {
		t.Stop()
		delete(s.timers, key)
	}
}

func (s *Simulator) emit(ctx context.Context, eventType string, payload interface{}) {
	if err := s.sink.Emit(ctx, s.id, eventType, payload); err != nil {
		s.logger.Warn().Err(err).Str(pkglog.FieldEventType, eventType).Msg("failed to emit event")
	}
}
