package mapview

import (
	"image"
	"image/color"
	"math"
	"time"

	"gioui.org/f32"
	"gioui.org/layout"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/unit"
	"github.com/olablt/gio-locate/surface"
	"github.com/olablt/gio-locate/tiles"
)

const (
	dropDuration   = 400 * time.Millisecond
	bounceDuration = 1400 * time.Millisecond
	// height in dp a dropped marker falls from
	dropHeight = 48
	// bounce amplitude in dp
	bounceHeight = 12
)

var white = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}

type Marker struct {
	view     *MapView
	opts     surface.MarkerOptions
	position tiles.LatLng
	attached bool

	anim      surface.Animation
	animStart time.Time // zero until the first frame after SetAnimation

	handlers map[int]func()
	nextID   int
}

var _ surface.Marker = (*Marker)(nil)

func (m *Marker) Position() tiles.LatLng { return m.position }

func (m *Marker) SetPosition(pos tiles.LatLng) {
	m.position = pos
	m.view.invalidate()
}

func (m *Marker) SetAnimation(anim surface.Animation) {
	m.anim = anim
	m.animStart = time.Time{}
	m.view.invalidate()
}

func (m *Marker) Attach() {
	m.attached = true
	m.view.invalidate()
}

func (m *Marker) Detach() {
	m.attached = false
	m.view.invalidate()
}

func (m *Marker) Attached() bool { return m.attached }

func (m *Marker) OnClick(fn func()) func() {
	id := m.nextID
	m.nextID++
	m.handlers[id] = fn
	return func() { delete(m.handlers, id) }
}

func (m *Marker) click() {
	m.view.log.Debug().Str("title", m.opts.Title).Stringer("position", m.position).Msg("marker clicked")
	for _, fn := range m.handlers {
		fn()
	}
}

// lift returns how many dp above its anchor the marker is drawn at now, and
// whether the animation is still running.
func (m *Marker) lift(now time.Time) (float32, bool) {
	if m.anim == surface.AnimationNone {
		return 0, false
	}
	if m.animStart.IsZero() {
		m.animStart = now
	}
	elapsed := now.Sub(m.animStart)
	switch m.anim {
	case surface.AnimationDrop:
		if elapsed >= dropDuration {
			m.anim = surface.AnimationNone
			return 0, false
		}
		t := float64(elapsed) / float64(dropDuration)
		// ease-in: accelerate towards the ground
		return float32(dropHeight * (1 - t*t)), true
	case surface.AnimationBounce:
		if elapsed >= bounceDuration {
			m.anim = surface.AnimationNone
			return 0, false
		}
		t := float64(elapsed) / float64(bounceDuration)
		return float32(bounceHeight * math.Abs(math.Sin(t*4*math.Pi)) * (1 - t)), true
	}
	return 0, false
}

type Circle struct {
	view    *MapView
	opts    surface.CircleOptions
	center  tiles.LatLng
	radius  float64
	visible bool
}

var _ surface.Circle = (*Circle)(nil)

func (c *Circle) Center() tiles.LatLng { return c.center }

func (c *Circle) SetCenter(center tiles.LatLng) {
	c.center = center
	c.view.invalidate()
}

func (c *Circle) Radius() float64 { return c.radius }

func (c *Circle) SetRadius(meters float64) {
	c.radius = meters
	c.view.invalidate()
}

func (c *Circle) Visible() bool { return c.visible }

func (c *Circle) SetVisible(visible bool) {
	c.visible = visible
	c.view.invalidate()
}

func (mv *MapView) drawCircle(gtx layout.Context, c *Circle) {
	mpp := tiles.CalculateMetersPerPixel(c.center.Lat, mv.zoom)
	if mpp <= 0 {
		return
	}
	r := float32(c.radius / mpp)
	center := mv.screenPoint(c.center)
	rect := circleRect(center, r)

	paint.FillShape(gtx.Ops, c.opts.FillColor, clip.Ellipse(rect).Op(gtx.Ops))
	if c.opts.StrokeWidth > 0 {
		width := float32(gtx.Dp(unit.Dp(c.opts.StrokeWidth)))
		paint.FillShape(gtx.Ops, c.opts.StrokeColor, clip.Stroke{
			Path:  clip.Ellipse(rect).Path(gtx.Ops),
			Width: width,
		}.Op())
	}
}

// drawMarker paints m and reports whether it is still animating.
func (mv *MapView) drawMarker(gtx layout.Context, m *Marker) bool {
	lift, animating := m.lift(gtx.Now)
	anchor := mv.screenPoint(m.position)
	anchor.Y -= float32(gtx.Dp(unit.Dp(lift)))

	r := float32(gtx.Dp(unit.Dp(markerRadius(m.opts))))
	border := float32(gtx.Dp(unit.Dp(2)))

	paint.FillShape(gtx.Ops, white, clip.Ellipse(circleRect(anchor, r+border)).Op(gtx.Ops))
	paint.FillShape(gtx.Ops, markerColor(m.opts), clip.Ellipse(circleRect(anchor, r)).Op(gtx.Ops))
	return animating
}

// markerAt returns the topmost attached marker under pos.
func (mv *MapView) markerAt(gtx layout.Context, pos f32.Point) *Marker {
	for i := len(mv.markers) - 1; i >= 0; i-- {
		m := mv.markers[i]
		if !m.attached || len(m.handlers) == 0 {
			continue
		}
		r := float32(gtx.Dp(unit.Dp(markerRadius(m.opts) + 4)))
		if distance(pos, mv.screenPoint(m.position)) <= r {
			return m
		}
	}
	return nil
}

func markerRadius(opts surface.MarkerOptions) float32 {
	if opts.Radius > 0 {
		return opts.Radius
	}
	return 8
}

func markerColor(opts surface.MarkerOptions) color.NRGBA {
	if opts.Color.A == 0 {
		return color.NRGBA{R: 0xea, G: 0x43, B: 0x35, A: 0xff}
	}
	return opts.Color
}

func circleRect(center f32.Point, r float32) image.Rectangle {
	return image.Rect(
		int(center.X-r), int(center.Y-r),
		int(center.X+r), int(center.Y+r),
	)
}
