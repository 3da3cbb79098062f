// Package surface describes the rendering capability the location widget
// draws on: a pannable, zoomable map that can host markers and circles.
//
// Implementations are driven from a single UI goroutine; none of the
// methods need to be safe for concurrent use.
package surface

import (
	"image/color"

	"github.com/olablt/gio-locate/tiles"
)

// Surface is a rendered map.
type Surface interface {
	PanTo(center tiles.LatLng)
	SetZoom(level int)
	Zoom() int
	// Bounds reports the visible area. ok is false until the surface has
	// been laid out at least once.
	Bounds() (bounds tiles.LatLngBounds, ok bool)

	NewMarker(opts MarkerOptions) Marker
	NewCircle(opts CircleOptions) Circle
}

// Constructor builds a Surface from map options.
type Constructor func(opts MapOptions) Surface

// Marker is a pin drawn at a coordinate. A new marker starts detached.
type Marker interface {
	Position() tiles.LatLng
	SetPosition(pos tiles.LatLng)
	// SetAnimation plays anim the next time the marker is drawn.
	SetAnimation(anim Animation)
	Attach()
	Detach()
	Attached() bool
	// OnClick subscribes fn to clicks on the marker.
	OnClick(fn func()) (unsubscribe func())
}

// Circle is a filled, geographically sized circle.
type Circle interface {
	Center() tiles.LatLng
	SetCenter(center tiles.LatLng)
	Radius() float64
	SetRadius(meters float64)
	Visible() bool
	SetVisible(visible bool)
}

type Animation int

const (
	AnimationNone Animation = iota
	AnimationDrop
	AnimationBounce
)

func (a Animation) String() string {
	switch a {
	case AnimationDrop:
		return "drop"
	case AnimationBounce:
		return "bounce"
	default:
		return "none"
	}
}

// MapOptions configures a new Surface.
type MapOptions struct {
	Center  tiles.LatLng
	Zoom    int
	MinZoom int
	MaxZoom int
	// DisableDefaultUI turns off built-in controls such as zoom buttons.
	DisableDefaultUI bool
	// Draggable enables panning with the pointer.
	Draggable bool
	// ScrollZoom enables zooming with the scroll wheel.
	ScrollZoom bool
}

// DefaultMapOptions returns a world view with pointer interaction enabled.
func DefaultMapOptions() MapOptions {
	return MapOptions{
		Center:     tiles.LatLng{Lat: 0, Lng: 0},
		Zoom:       2,
		MinZoom:    1,
		MaxZoom:    19,
		Draggable:  true,
		ScrollZoom: true,
	}
}

type MarkerOptions struct {
	Position tiles.LatLng
	Title    string
	Color    color.NRGBA
	// Radius of the pin head in device-independent pixels.
	Radius    float32
	Animation Animation
}

// DefaultUserMarkerOptions styles the user-position pin.
func DefaultUserMarkerOptions() MarkerOptions {
	return MarkerOptions{
		Title:     "You are here",
		Color:     color.NRGBA{R: 0x1a, G: 0x73, B: 0xe8, A: 0xff},
		Radius:    8,
		Animation: AnimationDrop,
	}
}

type CircleOptions struct {
	Center        tiles.LatLng
	RadiusMeters  float64
	StrokeColor   color.NRGBA
	StrokeWidth   float32
	FillColor     color.NRGBA
	InitiallyShow bool
}

// DefaultAccuracyCircleOptions styles the accuracy halo around the user.
func DefaultAccuracyCircleOptions() CircleOptions {
	return CircleOptions{
		RadiusMeters: 50,
		StrokeColor:  color.NRGBA{R: 0x1a, G: 0x73, B: 0xe8, A: 0xcc},
		StrokeWidth:  1,
		FillColor:    color.NRGBA{R: 0x1a, G: 0x73, B: 0xe8, A: 0x33},
	}
}

// ViewState is the camera state the focus logic reasons about.
type ViewState struct {
	Zoom        int
	Bounds      tiles.LatLngBounds
	BoundsKnown bool
}

// ReadViewState snapshots the camera of s.
func ReadViewState(s Surface) ViewState {
	bounds, ok := s.Bounds()
	return ViewState{Zoom: s.Zoom(), Bounds: bounds, BoundsKnown: ok}
}
