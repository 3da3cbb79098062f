// Package surfacetest provides an in-memory surface.Surface that records
// camera changes, for use in tests.
package surfacetest

import (
	"github.com/olablt/gio-locate/surface"
	"github.com/olablt/gio-locate/tiles"
)

// Surface is a fake map. Bounds are unknown until SetBounds is called.
type Surface struct {
	Options surface.MapOptions

	center      tiles.LatLng
	zoom        int
	bounds      tiles.LatLngBounds
	boundsKnown bool

	// Pans and Zooms record every camera call in order.
	Pans  []tiles.LatLng
	Zooms []int

	Markers []*Marker
	Circles []*Circle
}

var _ surface.Surface = (*Surface)(nil)

// New returns a fake surface configured with opts.
func New(opts surface.MapOptions) *Surface {
	return &Surface{Options: opts, center: opts.Center, zoom: opts.Zoom}
}

// Constructor adapts New to surface.Constructor and exposes the built
// surface through dst.
func Constructor(dst **Surface) surface.Constructor {
	return func(opts surface.MapOptions) surface.Surface {
		s := New(opts)
		*dst = s
		return s
	}
}

func (s *Surface) PanTo(center tiles.LatLng) {
	s.center = center
	s.Pans = append(s.Pans, center)
}

func (s *Surface) SetZoom(level int) {
	s.zoom = level
	s.Zooms = append(s.Zooms, level)
}

func (s *Surface) Zoom() int            { return s.zoom }
func (s *Surface) Center() tiles.LatLng { return s.center }

func (s *Surface) Bounds() (tiles.LatLngBounds, bool) {
	return s.bounds, s.boundsKnown
}

// SetBounds marks the surface as laid out with the given visible area.
func (s *Surface) SetBounds(b tiles.LatLngBounds) {
	s.bounds = b
	s.boundsKnown = true
}

// SetZoomSilently changes the zoom without recording a camera call, as a
// user gesture would.
func (s *Surface) SetZoomSilently(level int) {
	s.zoom = level
}

// CameraCalls is the number of recorded pan and zoom calls.
func (s *Surface) CameraCalls() int {
	return len(s.Pans) + len(s.Zooms)
}

func (s *Surface) NewMarker(opts surface.MarkerOptions) surface.Marker {
	m := &Marker{Options: opts, position: opts.Position}
	s.Markers = append(s.Markers, m)
	return m
}

func (s *Surface) NewCircle(opts surface.CircleOptions) surface.Circle {
	c := &Circle{Options: opts, center: opts.Center, radius: opts.RadiusMeters, visible: opts.InitiallyShow}
	s.Circles = append(s.Circles, c)
	return c
}

// AttachedMarkers returns the markers currently shown.
func (s *Surface) AttachedMarkers() []*Marker {
	var out []*Marker
	for _, m := range s.Markers {
		if m.attached {
			out = append(out, m)
		}
	}
	return out
}

type Marker struct {
	Options surface.MarkerOptions
	// Animations records every SetAnimation call.
	Animations []surface.Animation
	// Moves counts SetPosition calls.
	Moves int

	position tiles.LatLng
	attached bool
	handlers map[int]func()
	nextID   int
}

func (m *Marker) Position() tiles.LatLng { return m.position }

func (m *Marker) SetPosition(pos tiles.LatLng) {
	m.position = pos
	m.Moves++
}

func (m *Marker) SetAnimation(anim surface.Animation) {
	m.Animations = append(m.Animations, anim)
}

func (m *Marker) Attach()        { m.attached = true }
func (m *Marker) Detach()        { m.attached = false }
func (m *Marker) Attached() bool { return m.attached }

func (m *Marker) OnClick(fn func()) func() {
	if m.handlers == nil {
		m.handlers = make(map[int]func())
	}
	id := m.nextID
	m.nextID++
	m.handlers[id] = fn
	return func() { delete(m.handlers, id) }
}

// Subscribers is the number of live click subscriptions.
func (m *Marker) Subscribers() int { return len(m.handlers) }

// Click simulates a click on an attached marker.
func (m *Marker) Click() {
	if !m.attached {
		return
	}
	for _, fn := range m.handlers {
		fn()
	}
}

type Circle struct {
	Options surface.CircleOptions
	// Changes counts SetCenter and SetVisible calls.
	Changes int

	center  tiles.LatLng
	radius  float64
	visible bool
}

func (c *Circle) Center() tiles.LatLng { return c.center }

func (c *Circle) SetCenter(center tiles.LatLng) {
	c.center = center
	c.Changes++
}

func (c *Circle) Radius() float64         { return c.radius }
func (c *Circle) SetRadius(meters float64) { c.radius = meters }
func (c *Circle) Visible() bool            { return c.visible }

func (c *Circle) SetVisible(visible bool) {
	c.visible = visible
	c.Changes++
}
