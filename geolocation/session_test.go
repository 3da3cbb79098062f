package geolocation_test

import (
	"errors"
	"testing"
	"time"

	"github.com/olablt/gio-locate/geolocation"
	"github.com/olablt/gio-locate/geolocation/geotest"
	"github.com/olablt/gio-locate/tiles"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	events []geolocation.Event
}

func (r *recorder) record(ev geolocation.Event) { r.events = append(r.events, ev) }

func (r *recorder) kinds() []geolocation.EventKind {
	out := make([]geolocation.EventKind, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Kind)
	}
	return out
}

func (r *recorder) count(kind geolocation.EventKind) int {
	n := 0
	for _, ev := range r.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

func newSession(t *testing.T) (*geolocation.Session, *geotest.Provider, *geotest.FakeClock, *recorder) {
	t.Helper()
	provider := &geotest.Provider{}
	clock := geotest.NewFakeClock()
	s := geolocation.NewSession(provider, geolocation.SessionOptions{Clock: clock})
	rec := &recorder{}
	s.Listen(rec.record)
	return s, provider, clock, rec
}

func TestSession_RequestOnce_Success(t *testing.T) {
	s, provider, clock, rec := newSession(t)

	s.RequestOnce()
	assert.Equal(t, geolocation.AwaitingPermission, s.State())
	assert.Equal(t, 1, clock.Pending())
	require.Equal(t, 1, provider.Requests())

	provider.LastRequest().Succeed(40.0, -74.0)

	assert.Equal(t, geolocation.Tracking, s.State())
	assert.Zero(t, clock.Pending(), "timer must be disarmed on success")
	last, ok := s.LastAccepted()
	require.True(t, ok)
	assert.Equal(t, tiles.LatLng{Lat: 40.0, Lng: -74.0}, last)
	assert.Equal(t, []geolocation.EventKind{geolocation.EventRequestStarted, geolocation.EventSuccess}, rec.kinds())
	assert.Equal(t, geolocation.OneShot, rec.events[1].Mode)
}

func TestSession_RequestOnce_TwiceArmsOneTimer(t *testing.T) {
	s, provider, clock, rec := newSession(t)

	s.RequestOnce()
	s.RequestOnce()

	assert.Equal(t, 1, clock.Pending())
	assert.Equal(t, 1, provider.Requests())
	assert.Equal(t, 1, rec.count(geolocation.EventRequestStarted))
}

func TestSession_RequestOnce_AgainAfterAnswer(t *testing.T) {
	s, provider, _, rec := newSession(t)

	s.RequestOnce()
	provider.LastRequest().Succeed(1, 2)
	s.RequestOnce()

	assert.Equal(t, 2, provider.Requests())
	assert.Equal(t, geolocation.AwaitingPermission, s.State())
	last, ok := s.LastAccepted()
	require.True(t, ok, "re-requesting keeps the last accepted coordinate")
	assert.Equal(t, tiles.LatLng{Lat: 1, Lng: 2}, last)
	assert.Equal(t, 2, rec.count(geolocation.EventRequestStarted))
}

func TestSession_Timeout(t *testing.T) {
	s, provider, clock, rec := newSession(t)

	s.RequestOnce()
	clock.Advance(2999 * time.Millisecond)
	assert.Zero(t, rec.count(geolocation.EventPermissionTimeout))

	clock.Advance(time.Millisecond)
	require.Equal(t, 1, rec.count(geolocation.EventPermissionTimeout))
	ev := rec.events[len(rec.events)-1]
	assert.False(t, ev.HasCachedPosition)
	assert.ErrorIs(t, ev.Err, geolocation.ErrPermissionTimeout)
	assert.Equal(t, geolocation.AwaitingPermission, s.State())

	clock.Advance(10 * time.Second)
	assert.Equal(t, 1, rec.count(geolocation.EventPermissionTimeout), "timeout is not rearmed")

	// late answer is still accepted
	provider.LastRequest().Succeed(5, 6)
	assert.Equal(t, geolocation.Tracking, s.State())
	assert.Equal(t, 1, rec.count(geolocation.EventSuccess))
}

func TestSession_Timeout_KeepsLastAccepted(t *testing.T) {
	s, provider, clock, rec := newSession(t)

	s.RequestOnce()
	provider.LastRequest().Succeed(10, 20)
	s.Stop()
	s.RequestOnce()
	clock.Advance(geolocation.DefaultTimeout)

	require.Equal(t, 1, rec.count(geolocation.EventPermissionTimeout))
	assert.True(t, rec.events[len(rec.events)-1].HasCachedPosition)
	assert.Equal(t, geolocation.AwaitingPermission, s.State())
	last, ok := s.LastAccepted()
	require.True(t, ok)
	assert.Equal(t, tiles.LatLng{Lat: 10, Lng: 20}, last)
}

func TestSession_Timeout_CustomDuration(t *testing.T) {
	provider := &geotest.Provider{}
	clock := geotest.NewFakeClock()
	s := geolocation.NewSession(provider, geolocation.SessionOptions{Clock: clock, Timeout: 500 * time.Millisecond})
	rec := &recorder{}
	s.Listen(rec.record)

	s.RequestOnce()
	clock.Advance(500 * time.Millisecond)

	assert.Equal(t, 1, rec.count(geolocation.EventPermissionTimeout))
}

func TestSession_Error(t *testing.T) {
	s, provider, clock, rec := newSession(t)

	s.RequestOnce()
	provider.LastRequest().Fail(geolocation.NewPositionError(geolocation.CodePermissionDenied, ""))

	assert.Zero(t, clock.Pending())
	assert.Equal(t, geolocation.AwaitingPermission, s.State(), "errors do not change state")
	_, ok := s.LastAccepted()
	assert.False(t, ok)

	require.Equal(t, 1, rec.count(geolocation.EventError))
	ev := rec.events[len(rec.events)-1]
	assert.ErrorIs(t, ev.Err, geolocation.ErrPermissionDenied)
	assert.EqualError(t, ev.Err, "PERMISSION_DENIED")

	// a one-shot request that was answered may be issued again
	s.RequestOnce()
	assert.Equal(t, 2, provider.Requests())
	assert.Equal(t, 1, clock.Pending())
}

func TestSession_NilErrorBecomesUnknown(t *testing.T) {
	s, provider, _, rec := newSession(t)

	s.RequestOnce()
	provider.LastRequest().Fail(nil)

	require.Equal(t, 1, rec.count(geolocation.EventError))
	ev := rec.events[len(rec.events)-1]
	var perr *geolocation.PositionError
	require.ErrorAs(t, ev.Err, &perr)
	assert.Equal(t, geolocation.CodeUnknown, perr.Code)
	assert.EqualError(t, ev.Err, "UNKNOWN_ERROR")
}

func TestSession_Stop(t *testing.T) {
	s, provider, clock, rec := newSession(t)

	s.RequestOnce()
	s.Stop()
	s.Stop()

	assert.Equal(t, geolocation.Idle, s.State())
	assert.Zero(t, clock.Pending())

	provider.LastRequest().Succeed(1, 1)
	clock.Advance(time.Minute)

	assert.Equal(t, []geolocation.EventKind{geolocation.EventRequestStarted}, rec.kinds())
	_, ok := s.LastAccepted()
	assert.False(t, ok)
}

func TestSession_Continuous(t *testing.T) {
	s, provider, clock, rec := newSession(t)

	s.StartContinuous()
	require.Equal(t, 1, provider.Watches())
	assert.Zero(t, provider.Requests())
	w := provider.LastWatch()

	w.Emit(1, 1)
	w.Fail(errors.New("signal lost"))
	w.Emit(2, 2)
	w.Emit(3, 3)
	clock.Advance(time.Minute)

	assert.Equal(t, geolocation.Tracking, s.State())
	assert.Equal(t, []geolocation.EventKind{
		geolocation.EventRequestStarted,
		geolocation.EventSuccess,
		geolocation.EventError,
		geolocation.EventSuccess,
		geolocation.EventSuccess,
	}, rec.kinds())
	last, _ := s.LastAccepted()
	assert.Equal(t, tiles.LatLng{Lat: 3, Lng: 3}, last)

	s.RequestOnce()
	s.StartContinuous()
	assert.Equal(t, 1, provider.Watches(), "watch already running")
	assert.Zero(t, provider.Requests())

	s.Stop()
	assert.True(t, w.Cancelled())
	w.Emit(9, 9)
	last, _ = s.LastAccepted()
	assert.Equal(t, tiles.LatLng{Lat: 3, Lng: 3}, last)
}

func TestSession_Continuous_TimeoutBeforeFirstFix(t *testing.T) {
	s, provider, clock, rec := newSession(t)

	s.StartContinuous()
	clock.Advance(geolocation.DefaultTimeout)
	provider.LastWatch().Emit(1, 1)
	clock.Advance(time.Minute)

	assert.Equal(t, 1, rec.count(geolocation.EventPermissionTimeout))
	assert.Equal(t, geolocation.Tracking, s.State())
}

func TestSession_SynchronousAnswer(t *testing.T) {
	provider := &geotest.Provider{}
	provider.OnRequest = func(r *geotest.Request) { r.Succeed(7, 8) }
	s := geolocation.NewSession(provider, geolocation.SessionOptions{Clock: geotest.NewFakeClock()})
	rec := &recorder{}
	s.Listen(rec.record)

	s.RequestOnce()

	assert.Equal(t, []geolocation.EventKind{geolocation.EventRequestStarted, geolocation.EventSuccess}, rec.kinds())
	assert.Equal(t, geolocation.Tracking, s.State())
}

func TestSession_StopFromRequestStarted(t *testing.T) {
	s, provider, _, _ := newSession(t)
	s.Listen(func(ev geolocation.Event) {
		if ev.Kind == geolocation.EventRequestStarted {
			s.Stop()
		}
	})

	s.StartContinuous()

	assert.Zero(t, provider.Watches(), "provider is not asked once the request was stopped")
	assert.Equal(t, geolocation.Idle, s.State())
}

func TestSession_Dispatch(t *testing.T) {
	var queue []func()
	provider := &geotest.Provider{}
	s := geolocation.NewSession(provider, geolocation.SessionOptions{
		Clock:    geotest.NewFakeClock(),
		Dispatch: func(fn func()) { queue = append(queue, fn) },
	})
	rec := &recorder{}
	s.Listen(rec.record)

	s.RequestOnce()
	provider.LastRequest().Succeed(1, 1)
	assert.Equal(t, 1, len(rec.events), "success waits for the dispatcher")

	for _, fn := range queue {
		fn()
	}
	assert.Equal(t, geolocation.EventSuccess, rec.events[1].Kind)
}

func TestSession_Unsubscribe(t *testing.T) {
	s, _, _, _ := newSession(t)
	calls := 0
	unsubscribe := s.Listen(func(geolocation.Event) { calls++ })
	unsubscribe()

	s.RequestOnce()

	assert.Zero(t, calls)
}

func TestPositionError(t *testing.T) {
	err := geolocation.NewPositionError(geolocation.CodePositionUnavailable, "no GPS fix")

	assert.EqualError(t, err, "no GPS fix")
	assert.ErrorIs(t, err, geolocation.ErrPositionUnavailable)
	assert.NotErrorIs(t, err, geolocation.ErrPermissionDenied)
	assert.Equal(t, "TIMEOUT", geolocation.CodeTimeout.String())
}
