package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/weiawesome/oidi-live/internal/domain"
	"github.com/weiawesome/oidi-live/internal/metrics"
	"github.com/weiawesome/oidi-live/internal/relay"
	"github.com/weiawesome/oidi-live/internal/simulator"
	pkglog "github.com/weiawesome/oidi-live/pkg/log"
)

// Config holds live service configuration.
type Config struct {
	Simulator simulator.Config
	FlashUnit bool // sessions get a virtual camera with a torch

	// SimulatorOptions are applied to every simulator the service creates.
	SimulatorOptions []simulator.Option
}

type session struct {
	sim       *simulator.Simulator
	camera    simulator.Camera
	createdAt time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func (s *session) info() *domain.SessionInfo {
	return domain.NewSessionInfo(s.sim.ID(), s.sim.State(), s.sim.Torch(), s.createdAt)
}

type liveService struct {
	broadcaster relay.Broadcaster
	sink        simulator.EventSink
	config      Config
	logger      zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.RWMutex
	sessions map[string]*session
}

// NewLiveService creates a LiveService. Session events go to sink; state,
// viewer, heart and torch updates are pushed to broadcaster.
func NewLiveService(b relay.Broadcaster, sink simulator.EventSink, cfg Config) LiveService {
	ctx, cancel := context.WithCancel(context.Background())
	return &liveService{
		broadcaster: b,
		sink:        sink,
		config:      cfg,
		logger:      pkglog.Component("live-service"),
		ctx:         ctx,
		cancel:      cancel,
		sessions:    make(map[string]*session),
	}
}

func (s *liveService) StartSession(ctx context.Context, host, avatar string) (*domain.SessionInfo, error) {
	id := uuid.New().String()
	sess := s.newSession(id)

	if err := sess.sim.StartLive(host, avatar); err != nil {
		s.closeSession(sess)
		return nil, err
	}

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	l := pkglog.Ctx(ctx)
	l.Info().Str(pkglog.FieldSessionID, id).Str(pkglog.FieldHost, host).Msg("session started")
	return sess.info(), nil
}

func (s *liveService) newSession(id string) *session {
	ctx, cancel := context.WithCancel(s.ctx)

	opts := append([]simulator.Option{
		simulator.WithContext(ctx),
		simulator.WithEventSink(s.sessionSink()),
	}, s.config.SimulatorOptions...)

	var cam simulator.Camera = simulator.NoopCamera{}
	if s.config.FlashUnit {
		cam = simulator.NewVirtualCamera(true)
	}

	sess := &session{
		sim:       simulator.New(id, s.config.Simulator, opts...),
		camera:    cam,
		createdAt: time.Now(),
		cancel:    cancel,
	}
	s.startForwarders(ctx, sess)
	return sess
}

// sessionSink tracks session lifecycle metrics before handing events on.
func (s *liveService) sessionSink() simulator.EventSink {
	return simulator.EventSinkFunc(func(ctx context.Context, sessionID, eventType string, payload interface{}) error {
		switch eventType {
		case domain.EventLiveStarted:
			metrics.SessionStarted()
		case domain.EventLiveEnded:
			metrics.SessionEnded()
		}
		if s.sink == nil {
			return nil
		}
		return s.sink.Emit(ctx, sessionID, eventType, payload)
	})
}

func (s *liveService) startForwarders(ctx context.Context, sess *session) {
	id := sess.sim.ID()

	stateCh, stopState := sess.sim.SubscribeState()
	viewersCh, stopViewers := sess.sim.SubscribeViewers()
	heartsCh, stopHearts := sess.sim.SubscribeHearts()
	torchCh, stopTorch := sess.sim.SubscribeTorch()

	sess.wg.Add(4)
	go forward(ctx, &sess.wg, stateCh, stopState, func(st domain.SessionState) {
		metrics.SetViewers(id, st.ViewerCount)
		s.broadcast(id, &domain.StateMessage{
			Type:      domain.MsgTypeState,
			SessionID: id,
			State:     st,
			Label:     domain.FormatViewerCount(st.ViewerCount),
		})
	})
	go forward(ctx, &sess.wg, viewersCh, stopViewers, func(v []domain.Viewer) {
		s.broadcast(id, &domain.ViewersMessage{Type: domain.MsgTypeViewers, SessionID: id, Viewers: v})
	})
	go forward(ctx, &sess.wg, heartsCh, stopHearts, func(h []domain.HeartMarker) {
		s.broadcast(id, &domain.HeartsMessage{Type: domain.MsgTypeHearts, SessionID: id, Hearts: h})
	})
	go forward(ctx, &sess.wg, torchCh, stopTorch, func(t domain.TorchStatus) {
		s.broadcast(id, &domain.TorchMessage{Type: domain.MsgTypeTorch, SessionID: id, Torch: t})
	})
}

// forward calls fn with every value from ch until ch closes or ctx is done.
func forward[T any](ctx context.Context, wg *sync.WaitGroup, ch <-chan T, unsubscribe func(), fn func(T)) {
	defer wg.Done()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case v, ok := <-ch:
			if !ok {
				return
			}
			fn(v)
		}
	}
}

func (s *liveService) broadcast(sessionID string, msg interface{}) {
	if s.broadcaster == nil {
		return
	}
	if err := s.broadcaster.BroadcastToSession(sessionID, msg); err != nil {
		s.logger.Error().Err(err).Str(pkglog.FieldSessionID, sessionID).Msg("broadcast failed")
	}
}

func (s *liveService) lookup(sessionID string) (*session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (s *liveService) RestartSession(ctx context.Context, sessionID, host, avatar string) (*domain.SessionInfo, error) {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	if host == "" {
		host = sess.sim.State().HostUsername
	}
	if avatar == "" {
		avatar = sess.sim.State().HostAvatar
	}
	if err := sess.sim.StartLive(host, avatar); err != nil {
		return nil, err
	}

	l := pkglog.Ctx(ctx)
	l.Info().Str(pkglog.FieldSessionID, sessionID).Msg("session restarted")
	return sess.info(), nil
}

func (s *liveService) EndSession(ctx context.Context, sessionID string) (*domain.SessionInfo, error) {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	sess.sim.EndLive()
	return sess.info(), nil
}

func (s *liveService) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	s.closeSession(sess)
	l := pkglog.Ctx(ctx)
	l.Info().Str(pkglog.FieldSessionID, sessionID).Msg("session deleted")
	return nil
}

func (s *liveService) closeSession(sess *session) {
	sess.sim.Close()
	sess.cancel()
	sess.wg.Wait()
	metrics.ForgetSession(sess.sim.ID())
}

func (s *liveService) GetSession(ctx context.Context, sessionID string) (*domain.SessionInfo, error) {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.info(), nil
}

// ListSessions returns every session, oldest first.
func (s *liveService) ListSessions(ctx context.Context) []*domain.SessionInfo {
	s.mu.RLock()
	infos := make([]*domain.SessionInfo, 0, len(s.sessions))
	for _, sess := range s.sessions {
		infos = append(infos, sess.info())
	}
	s.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].CreatedAt.Equal(infos[j].CreatedAt) {
			return infos[i].SessionID < infos[j].SessionID
		}
		return infos[i].CreatedAt.Before(infos[j].CreatedAt)
	})
	return infos
}

func (s *liveService) Snapshot(ctx context.Context, sessionID string) (*domain.SubscribedMessage, error) {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	return &domain.SubscribedMessage{
		Type:      domain.MsgTypeSubscribed,
		SessionID: sessionID,
		State:     sess.sim.State(),
		Viewers:   sess.sim.Viewers(),
		Hearts:    sess.sim.Hearts(),
	}, nil
}

func (s *liveService) AddComment(ctx context.Context, sessionID, username, message string) (domain.Comment, error) {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return domain.Comment{}, err
	}
	return sess.sim.AddComment(username, message), nil
}

func (s *liveService) AddHeart(ctx context.Context, sessionID string, position float64) (domain.HeartMarker, error) {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return domain.HeartMarker{}, err
	}
	return sess.sim.AddHeart(position), nil
}

func (s *liveService) RemoveJoiner(ctx context.Context, sessionID, username string) error {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return err
	}
	sess.sim.RemoveJoiner(username)

	l := pkglog.Ctx(ctx)
	l.Debug().Str(pkglog.FieldSessionID, sessionID).Str(pkglog.FieldUsername, username).Msg("joiner removed")
	return nil
}

func (s *liveService) AdjustViewers(ctx context.Context, sessionID string, delta int) (int, error) {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return 0, err
	}
	if delta < 0 {
		return sess.sim.DecrementViewers(-delta), nil
	}
	return sess.sim.IncrementViewers(delta), nil
}

func (s *liveService) SetCameraEffect(ctx context.Context, sessionID string, effect domain.CameraEffect) error {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return err
	}
	sess.sim.UpdateCameraEffect(effect)
	return nil
}

func (s *liveService) SetStreamQuality(ctx context.Context, sessionID string, quality domain.StreamQuality) error {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return err
	}
	sess.sim.UpdateStreamQuality(quality)
	return nil
}

func (s *liveService) ToggleFlash(ctx context.Context, sessionID string, enabled bool) (domain.TorchStatus, error) {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return domain.TorchStatus{}, err
	}

	err = sess.sim.ToggleFlash(sess.camera, enabled)
	var torchErr *simulator.TorchError
	if errors.As(err, &torchErr) {
		metrics.TorchFailed()
	}
	return sess.sim.Torch(), err
}

func (s *liveService) Viewers(ctx context.Context, sessionID string) ([]domain.Viewer, error) {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.sim.Viewers(), nil
}

func (s *liveService) Hearts(ctx context.Context, sessionID string) ([]domain.HeartMarker, error) {
	sess, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.sim.Hearts(), nil
}

func (s *liveService) Stop() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*session)
	s.mu.Unlock()

	for _, sess := range sessions {
		s.closeSession(sess)
	}
	s.cancel()
	s.logger.Info().Int("sessions", len(sessions)).Msg("live service stopped")
}
