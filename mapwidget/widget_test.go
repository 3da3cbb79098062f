package mapwidget

import (
	"testing"
	"time"

	"github.com/olablt/gio-locate/geolocation"
	"github.com/olablt/gio-locate/geolocation/geotest"
	"github.com/olablt/gio-locate/markers"
	"github.com/olablt/gio-locate/surface"
	"github.com/olablt/gio-locate/surface/surfacetest"
	"github.com/olablt/gio-locate/tiles"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type hostCalls struct {
	requests []struct{}
	timeouts []bool
	success  []tiles.LatLng
	errors   []string
	clicks   []*markers.PointMarker
}

type fixture struct {
	widget   *Widget
	surface  *surfacetest.Surface
	provider *geotest.Provider
	clock    *geotest.FakeClock
	host     *hostCalls
}

func newFixture(t *testing.T, zoom int) *fixture {
	t.Helper()
	f := &fixture{
		provider: &geotest.Provider{},
		clock:    geotest.NewFakeClock(),
		host:     &hostCalls{},
	}
	opts := DefaultOptions()
	opts.Clock = f.clock
	opts.OnRequestMade = func() { f.host.requests = append(f.host.requests, struct{}{}) }
	opts.OnPermissionTimeout = func(cached bool) { f.host.timeouts = append(f.host.timeouts, cached) }
	opts.OnSuccess = func(pos tiles.LatLng) { f.host.success = append(f.host.success, pos) }
	opts.OnError = func(msg string) { f.host.errors = append(f.host.errors, msg) }
	opts.OnMarkerClick = func(pm *markers.PointMarker) { f.host.clicks = append(f.host.clicks, pm) }
	f.widget = New(f.provider, opts)

	mapOpts := surface.DefaultMapOptions()
	mapOpts.Zoom = zoom
	require.NoError(t, f.widget.InitializeMap(surfacetest.Constructor(&f.surface), mapOpts))
	return f
}

func (f *fixture) userMarker() *surfacetest.Marker {
	m, _ := f.widget.Markers().UserMarker().(*surfacetest.Marker)
	return m
}

func (f *fixture) circle() *surfacetest.Circle {
	return f.surface.Circles[0]
}

func TestWidget_SuccessFocusesUnfocusedMap(t *testing.T) {
	f := newFixture(t, 2)
	target := tiles.LatLng{Lat: 40.0, Lng: -74.0}

	f.widget.RequestPosition()
	require.Len(t, f.host.requests, 1)
	f.provider.LastRequest().Succeed(40.0, -74.0)

	marker := f.userMarker()
	require.NotNil(t, marker)
	assert.True(t, marker.Attached())
	assert.Equal(t, target, marker.Position())

	assert.True(t, f.circle().Visible())
	assert.Equal(t, target, f.circle().Center())

	assert.Equal(t, []int{15}, f.surface.Zooms)
	assert.Equal(t, []tiles.LatLng{target}, f.surface.Pans)
	assert.Equal(t, 15, f.surface.Zoom())

	assert.Equal(t, []tiles.LatLng{target}, f.host.success)
	assert.Empty(t, f.host.errors)
	assert.Empty(t, f.host.timeouts)
}

func TestWidget_SuccessRecentersExactlyOnceForAnyCoordinate(t *testing.T) {
	coords := []tiles.LatLng{
		{Lat: 0, Lng: 0},
		{Lat: -33.8688, Lng: 151.2093},
		{Lat: 64.1466, Lng: -21.9426},
		{Lat: -89.9, Lng: 179.9},
	}
	for _, c := range coords {
		t.Run(c.String(), func(t *testing.T) {
			f := newFixture(t, 2)

			f.widget.RequestPosition()
			f.provider.LastRequest().Succeed(c.Lat, c.Lng)

			assert.Equal(t, []int{15}, f.surface.Zooms)
			assert.Equal(t, []tiles.LatLng{c}, f.surface.Pans)
		})
	}
}

func TestWidget_SuccessKeepsFocusedView(t *testing.T) {
	f := newFixture(t, 12)
	f.surface.SetBounds(tiles.LatLngBounds{
		SouthWest: tiles.LatLng{Lat: 39.5, Lng: -74.5},
		NorthEast: tiles.LatLng{Lat: 40.5, Lng: -73.5},
	})

	f.widget.RequestPosition()
	f.provider.LastRequest().Succeed(40.0, -74.0)

	assert.Zero(t, f.surface.CameraCalls())
	assert.True(t, f.userMarker().Attached())
	assert.Len(t, f.host.success, 1)
}

func TestWidget_StopThenLateSuccess(t *testing.T) {
	f := newFixture(t, 2)

	f.widget.RequestPosition()
	f.widget.StopPositionUpdateListener()
	f.provider.LastRequest().Succeed(40.0, -74.0)

	assert.Nil(t, f.widget.Markers().UserMarker())
	assert.False(t, f.circle().Visible())
	assert.Zero(t, f.circle().Changes)
	assert.Zero(t, f.surface.CameraCalls())
	assert.Empty(t, f.host.success)
}

func TestWidget_StopThenLateWatchUpdate(t *testing.T) {
	f := newFixture(t, 2)

	f.widget.StartPositionUpdateListener()
	w := f.provider.LastWatch()
	w.Emit(1, 1)
	marker := f.userMarker()
	moves, circleChanges := marker.Moves, f.circle().Changes

	f.widget.StopPositionUpdateListener()
	w.Emit(2, 2)

	assert.True(t, w.Cancelled())
	assert.Equal(t, moves, marker.Moves)
	assert.Equal(t, tiles.LatLng{Lat: 1, Lng: 1}, marker.Position())
	assert.Equal(t, circleChanges, f.circle().Changes)
	assert.Len(t, f.host.success, 1)
}

func TestWidget_PermissionTimeout(t *testing.T) {
	f := newFixture(t, 2)

	f.widget.RequestPosition()
	circleChanges := f.circle().Changes
	f.clock.Advance(3000 * time.Millisecond)
	f.clock.Advance(10 * time.Second)

	assert.Equal(t, []bool{false}, f.host.timeouts)
	assert.Nil(t, f.widget.Markers().UserMarker())
	assert.Equal(t, circleChanges, f.circle().Changes)
	assert.Zero(t, f.surface.CameraCalls())
	assert.Equal(t, geolocation.AwaitingPermission, f.widget.Session().State())
}

func TestWidget_PermissionTimeoutKeepsLastPosition(t *testing.T) {
	f := newFixture(t, 2)

	f.widget.RequestPosition()
	f.provider.LastRequest().Succeed(1, 2)
	f.widget.StopPositionUpdateListener()
	f.widget.RequestPosition()
	f.clock.Advance(geolocation.DefaultTimeout)

	assert.Equal(t, []bool{true}, f.host.timeouts)
	last, ok := f.widget.LastPosition()
	require.True(t, ok)
	assert.Equal(t, tiles.LatLng{Lat: 1, Lng: 2}, last)
	assert.Equal(t, geolocation.AwaitingPermission, f.widget.Session().State())
}

func TestWidget_ErrorThenRetry(t *testing.T) {
	f := newFixture(t, 2)

	f.widget.RequestPosition()
	f.provider.LastRequest().Fail(geolocation.NewPositionError(geolocation.CodePermissionDenied, "PERMISSION_DENIED"))

	assert.Equal(t, []string{"PERMISSION_DENIED"}, f.host.errors)
	assert.Nil(t, f.widget.Markers().UserMarker())
	assert.False(t, f.circle().Visible())
	assert.Zero(t, f.surface.CameraCalls())

	f.widget.RequestPosition()
	require.Equal(t, 2, f.provider.Requests())
	assert.Len(t, f.host.requests, 2)

	f.provider.LastRequest().Succeed(40.0, -74.0)
	assert.Equal(t, []tiles.LatLng{{Lat: 40.0, Lng: -74.0}}, f.host.success)
}

func TestWidget_DoubleRequestIsIgnored(t *testing.T) {
	f := newFixture(t, 2)

	f.widget.RequestPosition()
	f.widget.RequestPosition()

	assert.Equal(t, 1, f.clock.Pending())
	assert.Equal(t, 1, f.provider.Requests())
	assert.Len(t, f.host.requests, 1)
}

func TestWidget_NewRequestClearsStaleVisuals(t *testing.T) {
	f := newFixture(t, 2)

	f.widget.RequestPosition()
	f.provider.LastRequest().Succeed(1, 1)
	require.True(t, f.userMarker().Attached())
	require.True(t, f.circle().Visible())

	f.widget.RequestPosition()

	assert.False(t, f.userMarker().Attached())
	assert.False(t, f.circle().Visible())
}

func TestWidget_ClearsBeforeSynchronousAnswer(t *testing.T) {
	f := newFixture(t, 2)
	f.widget.RequestPosition()
	f.provider.LastRequest().Succeed(1, 1)

	f.provider.OnRequest = func(r *geotest.Request) { r.Succeed(2, 2) }
	f.widget.RequestPosition()

	assert.True(t, f.userMarker().Attached(), "the synchronous answer is not wiped by the stale-clearing step")
	assert.Equal(t, tiles.LatLng{Lat: 2, Lng: 2}, f.userMarker().Position())
	assert.True(t, f.circle().Visible())
}

func TestWidget_ContinuousFollowsLatest(t *testing.T) {
	f := newFixture(t, 2)

	f.widget.StartPositionUpdateListener()
	w := f.provider.LastWatch()
	w.Emit(40.0, -74.0)
	f.surface.SetBounds(tiles.LatLngBounds{
		SouthWest: tiles.LatLng{Lat: 39, Lng: -75},
		NorthEast: tiles.LatLng{Lat: 41, Lng: -73},
	})
	w.Emit(40.1, -74.1)
	w.Emit(40.2, -74.2)

	assert.Equal(t, []int{15}, f.surface.Zooms, "only the first fix focuses the map")
	assert.Equal(t, tiles.LatLng{Lat: 40.2, Lng: -74.2}, f.userMarker().Position())
	assert.Equal(t, tiles.LatLng{Lat: 40.2, Lng: -74.2}, f.circle().Center())
	assert.Len(t, f.host.success, 3)
}

func TestWidget_StartListenerAfterOneShot(t *testing.T) {
	f := newFixture(t, 2)

	f.widget.RequestPosition()
	f.provider.LastRequest().Succeed(1, 1)
	f.widget.StartPositionUpdateListener()

	assert.Equal(t, 1, f.provider.Watches())
	assert.Equal(t, geolocation.Continuous, f.widget.Session().Mode())
}

func TestWidget_AccuracyRadius(t *testing.T) {
	f := newFixture(t, 2)

	f.widget.RequestPosition()
	f.provider.LastRequest().SucceedWith(geolocation.Position{
		Coordinate: tiles.LatLng{Lat: 1, Lng: 1},
		Accuracy:   25,
	})

	assert.Equal(t, 25.0, f.circle().Radius())

	// a later fix without accuracy falls back to the configured radius
	f.widget.RequestPosition()
	f.provider.LastRequest().SucceedWith(geolocation.Position{
		Coordinate: tiles.LatLng{Lat: 2, Lng: 2},
	})

	assert.Equal(t, surface.DefaultAccuracyCircleOptions().RadiusMeters, f.circle().Radius())
	assert.True(t, f.circle().Visible())
}

func TestWidget_ErrorWithoutDetails(t *testing.T) {
	f := newFixture(t, 2)

	f.widget.RequestPosition()
	assert.NotPanics(t, func() { f.provider.LastRequest().Fail(nil) })

	assert.Equal(t, []string{"UNKNOWN_ERROR"}, f.host.errors)
}

func TestWidget_NotInitialized(t *testing.T) {
	provider := &geotest.Provider{}
	var successes int
	w := New(provider, Options{OnSuccess: func(tiles.LatLng) { successes++ }})

	w.RequestPosition()
	w.StartPositionUpdateListener()
	w.StopPositionUpdateListener()
	assert.Nil(t, w.AddMarker(surface.MarkerOptions{}))
	w.RemoveMarker(nil)

	assert.Zero(t, provider.Requests())
	assert.Zero(t, provider.Watches())
	assert.Nil(t, w.Surface())
	assert.Zero(t, successes)
}

func TestWidget_InitializeTwice(t *testing.T) {
	f := newFixture(t, 2)

	var second *surfacetest.Surface
	err := f.widget.InitializeMap(surfacetest.Constructor(&second), surface.DefaultMapOptions())

	assert.ErrorIs(t, err, ErrAlreadyInitialized)
	assert.Nil(t, second)
}

func TestWidget_PointMarkerClick(t *testing.T) {
	f := newFixture(t, 2)

	pm := f.widget.AddMarker(surface.MarkerOptions{Position: tiles.LatLng{Lat: 3, Lng: 4}, Title: "cafe"})
	require.NotNil(t, pm)
	fake := pm.Marker.(*surfacetest.Marker)
	fake.Click()
	require.Len(t, f.host.clicks, 1)
	assert.Same(t, pm, f.host.clicks[0])

	f.widget.RemoveMarker(pm)
	fake.Click()
	assert.Len(t, f.host.clicks, 1)
}

func TestWidget_MinFocusedZoomAtMapMinimum(t *testing.T) {
	var s *surfacetest.Surface
	provider := &geotest.Provider{}
	opts := DefaultOptions()
	opts.MinFocusedZoomLevel = surface.DefaultMapOptions().MinZoom
	w := New(provider, opts)
	mapOpts := surface.DefaultMapOptions()
	mapOpts.Zoom = mapOpts.MinZoom
	require.NoError(t, w.InitializeMap(surfacetest.Constructor(&s), mapOpts))
	s.SetBounds(tiles.LatLngBounds{
		SouthWest: tiles.LatLng{Lat: -80, Lng: -179},
		NorthEast: tiles.LatLng{Lat: 80, Lng: 179},
	})

	w.RequestPosition()
	provider.LastRequest().Succeed(40.0, -74.0)

	assert.Zero(t, s.CameraCalls(), "zoomed-out view containing the fix is kept")
}

func TestWidget_PerInstanceOptions(t *testing.T) {
	shared := surface.DefaultAccuracyCircleOptions()
	a := New(&geotest.Provider{}, Options{Circle: &shared})
	shared.RadiusMeters = 999

	var s *surfacetest.Surface
	require.NoError(t, a.InitializeMap(surfacetest.Constructor(&s), surface.DefaultMapOptions()))

	assert.Equal(t, surface.DefaultAccuracyCircleOptions().RadiusMeters, s.Circles[0].Options.RadiusMeters)
}

func TestWidget_Close(t *testing.T) {
	f := newFixture(t, 2)

	f.widget.StartPositionUpdateListener()
	w := f.provider.LastWatch()
	f.widget.Close()
	w.Emit(1, 1)

	assert.True(t, w.Cancelled())
	assert.Empty(t, f.host.success)
	assert.Equal(t, geolocation.Idle, f.widget.Session().State())
}
