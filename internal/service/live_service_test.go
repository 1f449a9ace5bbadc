package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weiawesome/oidi-live/internal/domain"
	"github.com/weiawesome/oidi-live/internal/simulator"
)

type fakeBroadcaster struct {
	mu   sync.Mutex
	msgs map[string][]interface{}
}

func (f *fakeBroadcaster) BroadcastToSession(sessionID string, message interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.msgs == nil {
		f.msgs = make(map[string][]interface{})
	}
	f.msgs[sessionID] = append(f.msgs[sessionID], message)
	return nil
}

func (f *fakeBroadcaster) lastState(sessionID string) *domain.StateMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var last *domain.StateMessage
	for _, m := range f.msgs[sessionID] {
		if sm, ok := m.(*domain.StateMessage); ok {
			last = sm
		}
	}
	return last
}

func (f *fakeBroadcaster) has(sessionID string, match func(interface{}) bool) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.msgs[sessionID] {
		if match(m) {
			return true
		}
	}
	return false
}

type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (e *eventLog) Emit(_ context.Context, _ string, eventType string, _ interface{}) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, eventType)
	return nil
}

func (e *eventLog) types() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.events...)
}

func quietSimulator() simulator.Config {
	cfg := simulator.DefaultConfig()
	cfg.ViewerTick = time.Hour
	cfg.CommentDelayMin, cfg.CommentDelayMax = time.Hour, 2*time.Hour
	cfg.JoinDelayMin, cfg.JoinDelayMax = time.Hour, 2*time.Hour
	return cfg
}

func newTestService(t *testing.T, flash bool) (LiveService, *fakeBroadcaster, *eventLog) {
	t.Helper()
	b := &fakeBroadcaster{}
	sink := &eventLog{}
	svc := NewLiveService(b, sink, Config{Simulator: quietSimulator(), FlashUnit: flash})
	t.Cleanup(svc.Stop)
	return svc, b, sink
}

func TestStartSession(t *testing.T) {
	svc, _, sink := newTestService(t, true)
	ctx := context.Background()

	info, err := svc.StartSession(ctx, "wanjiku", "https://example.com/w.png")
	require.NoError(t, err)
	assert.NotEmpty(t, info.SessionID)
	assert.True(t, info.State.IsLive)
	assert.Equal(t, "wanjiku", info.State.HostUsername)
	assert.Equal(t, domain.QualityHD, info.State.StreamQuality)
	assert.Equal(t, 1280, info.Quality.Width)

	got, err := svc.GetSession(ctx, info.SessionID)
	require.NoError(t, err)
	assert.Equal(t, info.SessionID, got.SessionID)

	list := svc.ListSessions(ctx)
	require.Len(t, list, 1)
	assert.Equal(t, info.SessionID, list[0].SessionID)

	viewers, err := svc.Viewers(ctx, info.SessionID)
	require.NoError(t, err)
	assert.Len(t, viewers, 10)

	assert.Eventually(t, func() bool {
		types := sink.types()
		return len(types) > 0 && types[0] == domain.EventLiveStarted
	}, time.Second, 5*time.Millisecond)
}

func TestStartSession_RequiresHost(t *testing.T) {
	svc, _, _ := newTestService(t, true)

	_, err := svc.StartSession(context.Background(), "", "")
	assert.ErrorIs(t, err, simulator.ErrEmptyHost)
	assert.Empty(t, svc.ListSessions(context.Background()))
}

func TestUnknownSession(t *testing.T) {
	svc, _, _ := newTestService(t, true)
	ctx := context.Background()

	_, err := svc.GetSession(ctx, "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = svc.EndSession(ctx, "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = svc.AddComment(ctx, "missing", "a", "b")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = svc.AddHeart(ctx, "missing", 0.5)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = svc.AdjustViewers(ctx, "missing", 10)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = svc.ToggleFlash(ctx, "missing", true)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, svc.RemoveJoiner(ctx, "missing", "x"), ErrSessionNotFound)
	assert.ErrorIs(t, svc.DeleteSession(ctx, "missing"), ErrSessionNotFound)
}

func TestEndAndRestartSession(t *testing.T) {
	svc, _, sink := newTestService(t, true)
	ctx := context.Background()

	info, err := svc.StartSession(ctx, "host", "")
	require.NoError(t, err)

	_, err = svc.RestartSession(ctx, info.SessionID, "", "")
	assert.ErrorIs(t, err, simulator.ErrAlreadyLive)

	ended, err := svc.EndSession(ctx, info.SessionID)
	require.NoError(t, err)
	assert.False(t, ended.State.IsLive)

	// ended sessions stay readable
	got, err := svc.GetSession(ctx, info.SessionID)
	require.NoError(t, err)
	assert.False(t, got.State.IsLive)

	restarted, err := svc.RestartSession(ctx, info.SessionID, "", "")
	require.NoError(t, err)
	assert.True(t, restarted.State.IsLive)
	assert.Equal(t, "host", restarted.State.HostUsername)

	assert.Contains(t, sink.types(), domain.EventLiveEnded)
}

func TestSessionActions(t *testing.T) {
	svc, _, _ := newTestService(t, true)
	ctx := context.Background()

	info, err := svc.StartSession(ctx, "host", "")
	require.NoError(t, err)
	id := info.SessionID

	c, err := svc.AddComment(ctx, id, "kamau_254", "Sasa!")
	require.NoError(t, err)
	assert.Equal(t, "Sasa!", c.Message)

	h, err := svc.AddHeart(ctx, id, 0.3)
	require.NoError(t, err)
	hearts, err := svc.Hearts(ctx, id)
	require.NoError(t, err)
	assert.Contains(t, hearts, h)

	// wait for the one growth tick a quiet session makes on start
	require.Eventually(t, func() bool {
		got, err := svc.GetSession(ctx, id)
		return err == nil && got.State.ViewerCount > 0
	}, time.Second, 5*time.Millisecond)
	got, err := svc.GetSession(ctx, id)
	require.NoError(t, err)
	base := got.State.ViewerCount

	n, err := svc.AdjustViewers(ctx, id, 10)
	require.NoError(t, err)
	assert.Equal(t, base+10, n)
	n, err = svc.AdjustViewers(ctx, id, -10)
	require.NoError(t, err)
	assert.Equal(t, base, n)

	require.NoError(t, svc.SetCameraEffect(ctx, id, domain.EffectSepia))
	require.NoError(t, svc.SetStreamQuality(ctx, id, domain.QualitySD))
	got, err = svc.GetSession(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.EffectSepia, got.State.CameraEffect)
	assert.Equal(t, 854, got.Quality.Width)

	snap, err := svc.Snapshot(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.MsgTypeSubscribed, snap.Type)
	assert.Len(t, snap.Viewers, 10)
}

func TestForwardersBroadcastState(t *testing.T) {
	svc, b, _ := newTestService(t, true)
	ctx := context.Background()

	info, err := svc.StartSession(ctx, "host", "")
	require.NoError(t, err)
	_, err = svc.AdjustViewers(ctx, info.SessionID, 1500)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		sm := b.lastState(info.SessionID)
		return sm != nil && sm.State.ViewerCount >= 1500 && sm.Label != ""
	}, time.Second, 5*time.Millisecond)

	assert.Eventually(t, func() bool {
		return b.has(info.SessionID, func(m interface{}) bool {
			vm, ok := m.(*domain.ViewersMessage)
			return ok && len(vm.Viewers) == 10
		})
	}, time.Second, 5*time.Millisecond)
}

func TestToggleFlash(t *testing.T) {
	t.Run("virtual camera with flash", func(t *testing.T) {
		svc, _, _ := newTestService(t, true)
		info, err := svc.StartSession(context.Background(), "host", "")
		require.NoError(t, err)

		status, err := svc.ToggleFlash(context.Background(), info.SessionID, true)
		require.NoError(t, err)
		assert.True(t, status.On)
	})

	t.Run("no flash unit", func(t *testing.T) {
		svc, _, _ := newTestService(t, false)
		info, err := svc.StartSession(context.Background(), "host", "")
		require.NoError(t, err)

		status, err := svc.ToggleFlash(context.Background(), info.SessionID, true)
		var torchErr *simulator.TorchError
		require.ErrorAs(t, err, &torchErr)
		assert.ErrorIs(t, err, simulator.ErrNoFlashUnit)
		assert.False(t, status.On)
		assert.Equal(t, 1, status.Failures)

		got, err := svc.GetSession(context.Background(), info.SessionID)
		require.NoError(t, err)
		assert.True(t, got.State.IsLive, "torch failure must not end the session")
	})
}

func TestDeleteSessionAndStop(t *testing.T) {
	svc, _, _ := newTestService(t, true)
	ctx := context.Background()

	a, err := svc.StartSession(ctx, "a", "")
	require.NoError(t, err)
	_, err = svc.StartSession(ctx, "b", "")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteSession(ctx, a.SessionID))
	_, err = svc.GetSession(ctx, a.SessionID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Len(t, svc.ListSessions(ctx), 1)

	svc.Stop()
	assert.Empty(t, svc.ListSessions(ctx))
}
