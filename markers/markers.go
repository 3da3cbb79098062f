// Package markers owns every pin and circle the location widget draws and
// is the only code that changes their visual state.
package markers

import (
	"slices"

	"github.com/google/uuid"
	"github.com/olablt/gio-locate/surface"
	"github.com/olablt/gio-locate/tiles"
	"github.com/rs/zerolog"
)

type Options struct {
	UserMarker surface.MarkerOptions
	// Circle styles the accuracy circle. Nil means the widget has no
	// accuracy circle and the circle operations do nothing.
	Circle *surface.CircleOptions
	Logger zerolog.Logger
}

// PointMarker is a caller-managed point of interest, such as a search
// result.
type PointMarker struct {
	ID     string
	Marker surface.Marker

	unsubscribe func()
}

type Manager struct {
	surface   surface.Surface
	userStyle surface.MarkerOptions
	log       zerolog.Logger

	user   surface.Marker
	circle surface.Circle
	// radius the circle style was configured with
	styleRadius float64
	// point markers in insertion order
	points []*PointMarker
}

// NewManager creates the accuracy circle right away, hidden. The user marker
// is created on the first PlaceUserMarker.
func NewManager(s surface.Surface, opts Options) *Manager {
	m := &Manager{
		surface:   s,
		userStyle: opts.UserMarker,
		log:       opts.Logger.With().Str("component", "markers").Logger(),
	}
	if opts.Circle != nil {
		style := *opts.Circle
		style.InitiallyShow = false
		m.circle = s.NewCircle(style)
		m.styleRadius = style.RadiusMeters
	}
	return m
}

// PlaceUserMarker shows the user marker at pos, creating it on first use.
// The entrance animation plays each time a hidden marker is shown again.
func (m *Manager) PlaceUserMarker(pos tiles.LatLng) {
	if m.user == nil {
		style := m.userStyle
		style.Position = pos
		m.user = m.surface.NewMarker(style)
		m.user.SetAnimation(style.Animation)
		m.user.Attach()
		m.log.Debug().Stringer("position", pos).Msg("user marker created")
		return
	}
	m.user.SetPosition(pos)
	if !m.user.Attached() {
		m.user.SetAnimation(m.userStyle.Animation)
		m.user.Attach()
	}
}

// RemoveUserMarker hides the user marker but keeps it for reuse.
func (m *Manager) RemoveUserMarker() {
	if m.user != nil && m.user.Attached() {
		m.user.Detach()
	}
}

// UserMarker returns the user marker, or nil before the first placement.
func (m *Manager) UserMarker() surface.Marker {
	return m.user
}

// SetAccuracyCircleCenter shows the accuracy circle centered on pos.
func (m *Manager) SetAccuracyCircleCenter(pos tiles.LatLng) {
	if m.circle == nil {
		return
	}
	if !m.circle.Visible() {
		m.circle.SetVisible(true)
	}
	m.circle.SetCenter(pos)
}

// SetAccuracyRadius resizes the accuracy circle. A non-positive radius means
// the accuracy is unknown and restores the configured style radius.
func (m *Manager) SetAccuracyRadius(meters float64) {
	if m.circle == nil {
		return
	}
	if meters <= 0 {
		meters = m.styleRadius
	}
	if m.circle.Radius() != meters {
		m.circle.SetRadius(meters)
	}
}

func (m *Manager) HideAccuracyCircle() {
	if m.circle != nil && m.circle.Visible() {
		m.circle.SetVisible(false)
	}
}

// AccuracyCircle returns the accuracy circle, or nil when none is configured.
func (m *Manager) AccuracyCircle() surface.Circle {
	return m.circle
}

// AddPointMarker places a new point marker. When onClick is not nil it is
// subscribed to the marker's clicks once.
func (m *Manager) AddPointMarker(opts surface.MarkerOptions, onClick func(*PointMarker)) *PointMarker {
	pm := &PointMarker{
		ID:     uuid.NewString(),
		Marker: m.surface.NewMarker(opts),
	}
	if onClick != nil {
		pm.unsubscribe = pm.Marker.OnClick(func() { onClick(pm) })
	}
	if opts.Animation != surface.AnimationNone {
		pm.Marker.SetAnimation(opts.Animation)
	}
	pm.Marker.Attach()
	m.points = append(m.points, pm)
	m.log.Debug().Str("id", pm.ID).Stringer("position", opts.Position).Msg("point marker added")
	return pm
}

// RemovePointMarker detaches pm and drops its click subscription. Removing
// an unknown or already removed marker does nothing.
func (m *Manager) RemovePointMarker(pm *PointMarker) {
	if pm == nil {
		return
	}
	i := slices.Index(m.points, pm)
	if i < 0 {
		return
	}
	m.points = slices.Delete(m.points, i, i+1)
	if pm.unsubscribe != nil {
		pm.unsubscribe()
		pm.unsubscribe = nil
	}
	pm.Marker.Detach()
}

// PointMarkers returns the live point markers in the order they were added.
func (m *Manager) PointMarkers() []*PointMarker {
	return slices.Clone(m.points)
}
