// Package mapwidget is the host-facing location map: it turns geolocation
// session events into camera moves, a user marker and an accuracy circle,
// and reports each step back through optional callbacks.
package mapwidget

import (
	"errors"
	"time"

	"github.com/olablt/gio-locate/focus"
	"github.com/olablt/gio-locate/geolocation"
	"github.com/olablt/gio-locate/markers"
	"github.com/olablt/gio-locate/surface"
	"github.com/olablt/gio-locate/tiles"
	"github.com/rs/zerolog"
)

var (
	ErrNotInitialized     = errors.New("mapwidget: map not initialized")
	ErrAlreadyInitialized = errors.New("mapwidget: map already initialized")
)

// Options configures one widget. Every callback is optional.
type Options struct {
	OnRequestMade func()
	// OnPermissionTimeout reports an unanswered location prompt.
	// hasCachedPosition is true when an earlier request succeeded.
	OnPermissionTimeout func(hasCachedPosition bool)
	OnSuccess           func(pos tiles.LatLng)
	OnError             func(message string)
	OnMarkerClick       func(pm *markers.PointMarker)

	// GeolocatorWaitTimeout defaults to 3000 ms.
	GeolocatorWaitTimeout time.Duration
	// FocusedZoomLevel defaults to 15. Zero or less means the default.
	FocusedZoomLevel int
	// MinFocusedZoomLevel defaults to 5. Zero or less means the default;
	// set it to the map's MinZoom to never refocus because of zoom alone.
	MinFocusedZoomLevel int

	UserMarker surface.MarkerOptions
	// Circle styles the accuracy circle. Nil means the default style.
	Circle *surface.CircleOptions

	Clock    geolocation.Clock
	Dispatch func(func())
	Logger   zerolog.Logger
}

// DefaultOptions returns options with every tunable at its default.
func DefaultOptions() Options {
	circle := surface.DefaultAccuracyCircleOptions()
	return Options{
		GeolocatorWaitTimeout: geolocation.DefaultTimeout,
		FocusedZoomLevel:      focus.DefaultFocusedZoom,
		MinFocusedZoomLevel:   focus.DefaultMinFocusedZoom,
		UserMarker:            surface.DefaultUserMarkerOptions(),
		Circle:                &circle,
	}
}

func (o *Options) setDefaults() {
	def := DefaultOptions()
	if o.OnRequestMade == nil {
		o.OnRequestMade = func() {}
	}
	if o.OnPermissionTimeout == nil {
		o.OnPermissionTimeout = func(bool) {}
	}
	if o.OnSuccess == nil {
		o.OnSuccess = func(tiles.LatLng) {}
	}
	if o.OnError == nil {
		o.OnError = func(string) {}
	}
	if o.OnMarkerClick == nil {
		o.OnMarkerClick = func(*markers.PointMarker) {}
	}
	if o.GeolocatorWaitTimeout <= 0 {
		o.GeolocatorWaitTimeout = def.GeolocatorWaitTimeout
	}
	if o.FocusedZoomLevel <= 0 {
		o.FocusedZoomLevel = def.FocusedZoomLevel
	}
	if o.MinFocusedZoomLevel <= 0 {
		o.MinFocusedZoomLevel = def.MinFocusedZoomLevel
	}
	if o.UserMarker == (surface.MarkerOptions{}) {
		o.UserMarker = def.UserMarker
	}
	if o.Circle == nil {
		o.Circle = def.Circle
	} else {
		// own copy, callers may reuse theirs for other widgets
		circle := *o.Circle
		o.Circle = &circle
	}
}

// Widget is a map that follows the user's location. Use it from a single
// goroutine, or pass a Dispatch that marshals onto one.
type Widget struct {
	opts    Options
	session *geolocation.Session
	policy  focus.Policy
	log     zerolog.Logger

	surface surface.Surface
	markers *markers.Manager

	unsubscribe func()
}

func New(p geolocation.Provider, opts Options) *Widget {
	opts.setDefaults()
	log := opts.Logger.With().Str("component", "mapwidget").Logger()
	w := &Widget{
		opts: opts,
		session: geolocation.NewSession(p, geolocation.SessionOptions{
			Timeout:  opts.GeolocatorWaitTimeout,
			Clock:    opts.Clock,
			Dispatch: opts.Dispatch,
			Logger:   opts.Logger,
		}),
		policy: focus.Policy{
			FocusedZoom:    opts.FocusedZoomLevel,
			MinFocusedZoom: opts.MinFocusedZoomLevel,
		},
		log: log,
	}
	w.unsubscribe = w.session.Listen(w.handle)
	return w
}

// InitializeMap builds the rendering surface. It must be called once before
// any positioning call; those calls do nothing until then.
func (w *Widget) InitializeMap(ctor surface.Constructor, mapOpts surface.MapOptions) error {
	if w.surface != nil {
		return ErrAlreadyInitialized
	}
	s := ctor(mapOpts)
	if s == nil {
		return errors.New("mapwidget: surface constructor returned nil")
	}
	w.surface = s
	w.markers = markers.NewManager(s, markers.Options{
		UserMarker: w.opts.UserMarker,
		Circle:     w.opts.Circle,
		Logger:     w.opts.Logger,
	})
	w.log.Debug().Stringer("center", mapOpts.Center).Int("zoom", mapOpts.Zoom).Msg("map initialized")
	return nil
}

// Surface returns the rendering surface, or nil before InitializeMap.
func (w *Widget) Surface() surface.Surface {
	return w.surface
}

// Session exposes the underlying geolocation session.
func (w *Widget) Session() *geolocation.Session {
	return w.session
}

// Markers returns the marker manager, or nil before InitializeMap.
func (w *Widget) Markers() *markers.Manager {
	return w.markers
}

// RequestPosition locates the user once.
func (w *Widget) RequestPosition() {
	if !w.ready("RequestPosition") {
		return
	}
	w.session.RequestOnce()
}

// StartPositionUpdateListener follows the user until
// StopPositionUpdateListener is called.
func (w *Widget) StartPositionUpdateListener() {
	if !w.ready("StartPositionUpdateListener") {
		return
	}
	if w.session.Mode() == geolocation.OneShot && w.session.State() != geolocation.Idle {
		// finish an answered one-shot so the watch can start
		w.session.Stop()
	}
	w.session.StartContinuous()
}

// StopPositionUpdateListener cancels any request or watch. The marker and
// circle keep showing the last accepted position.
func (w *Widget) StopPositionUpdateListener() {
	w.session.Stop()
}

// LastPosition returns the most recent accepted coordinate.
func (w *Widget) LastPosition() (tiles.LatLng, bool) {
	return w.session.LastAccepted()
}

// AddMarker places a point-of-interest marker. Clicks are reported through
// OnMarkerClick. It returns nil before InitializeMap.
func (w *Widget) AddMarker(opts surface.MarkerOptions) *markers.PointMarker {
	if !w.ready("AddMarker") {
		return nil
	}
	return w.markers.AddPointMarker(opts, w.opts.OnMarkerClick)
}

func (w *Widget) RemoveMarker(pm *markers.PointMarker) {
	if !w.ready("RemoveMarker") {
		return
	}
	w.markers.RemovePointMarker(pm)
}

// Close stops the session and detaches the widget from it.
func (w *Widget) Close() {
	w.session.Stop()
	if w.unsubscribe != nil {
		w.unsubscribe()
		w.unsubscribe = nil
	}
}

func (w *Widget) ready(op string) bool {
	if w.surface == nil {
		w.log.Debug().Err(ErrNotInitialized).Str("op", op).Msg("ignored")
		return false
	}
	return true
}

func (w *Widget) handle(ev geolocation.Event) {
	switch ev.Kind {
	case geolocation.EventRequestStarted:
		if w.markers != nil {
			w.markers.RemoveUserMarker()
			w.markers.HideAccuracyCircle()
		}
		w.opts.OnRequestMade()
	case geolocation.EventSuccess:
		w.showPosition(ev.Position)
	case geolocation.EventError:
		w.opts.OnError(ev.Err.Error())
	case geolocation.EventPermissionTimeout:
		w.opts.OnPermissionTimeout(ev.HasCachedPosition)
	}
}

func (w *Widget) showPosition(p geolocation.Position) {
	if w.surface == nil {
		return
	}
	action := w.policy.Decide(surface.ReadViewState(w.surface), p.Coordinate)
	focus.Apply(w.surface, action)
	if action.Kind == focus.RecenterAndZoom {
		w.log.Debug().Stringer("target", action.Target).Int("zoom", action.Zoom).Msg("focusing map")
	}

	w.markers.PlaceUserMarker(p.Coordinate)
	w.markers.SetAccuracyRadius(p.Accuracy)
	w.markers.SetAccuracyCircleCenter(p.Coordinate)

	w.opts.OnSuccess(p.Coordinate)
}
