package mapview

import (
	"image"
	"math"

	"gioui.org/f32"
	"gioui.org/io/event"
	"gioui.org/io/pointer"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"github.com/olablt/gio-locate/surface"
	"github.com/olablt/gio-locate/tiles"
	"github.com/rs/zerolog"
)

// clickSlop is how far, in pixels, the pointer may travel between press and
// release and still count as a click.
const clickSlop = 6

// MapView is a Gio slippy map implementing surface.Surface. All methods,
// Layout included, must be called from the window's event goroutine.
type MapView struct {
	TileManager *tiles.TileManager
	MinZoom     int
	MaxZoom     int

	center tiles.LatLng
	zoom   int

	opts surface.MapOptions
	log  zerolog.Logger

	size           image.Point
	laidOut        bool
	visibleTiles   []tiles.Tile
	metersPerPixel float64

	markers []*Marker
	circles []*Circle

	pressPos    f32.Point
	pressed     bool
	dragging    bool
	lastDragPos f32.Point
	pressMarker *Marker

	refresh chan<- struct{}
}

var _ surface.Surface = (*MapView)(nil)

// New returns a map drawing tiles from tm. refresh, if not nil, receives a
// non-blocking signal whenever the map needs another frame.
func New(opts surface.MapOptions, tm *tiles.TileManager, refresh chan<- struct{}, log zerolog.Logger) *MapView {
	if opts.MaxZoom <= 0 {
		opts.MaxZoom = 19
	}
	mv := &MapView{
		TileManager: tm,
		center:      opts.Center,
		MinZoom:     opts.MinZoom,
		MaxZoom:     opts.MaxZoom,
		opts:        opts,
		log:         log.With().Str("component", "mapview").Logger(),
		refresh:     refresh,
	}
	mv.zoom = mv.clampZoom(opts.Zoom)
	mv.updateVisibleTiles()
	if tm != nil {
		tm.SetOnLoadCallback(mv.invalidate)
	}
	return mv
}

// Constructor adapts New to surface.Constructor.
func Constructor(tm *tiles.TileManager, refresh chan<- struct{}, log zerolog.Logger) surface.Constructor {
	return func(opts surface.MapOptions) surface.Surface {
		return New(opts, tm, refresh, log)
	}
}

func (mv *MapView) PanTo(center tiles.LatLng) {
	mv.center = center
	mv.updateVisibleTiles()
	mv.invalidate()
}

func (mv *MapView) SetZoom(level int) {
	mv.setZoom(level)
	mv.invalidate()
}

func (mv *MapView) Zoom() int            { return mv.zoom }
func (mv *MapView) Center() tiles.LatLng { return mv.center }

func (mv *MapView) Bounds() (tiles.LatLngBounds, bool) {
	if !mv.laidOut || mv.size.X == 0 || mv.size.Y == 0 {
		return tiles.LatLngBounds{}, false
	}
	return tiles.ScreenBounds(mv.center, mv.zoom, mv.size), true
}

func (mv *MapView) NewMarker(opts surface.MarkerOptions) surface.Marker {
	m := &Marker{view: mv, opts: opts, position: opts.Position, handlers: make(map[int]func())}
	mv.markers = append(mv.markers, m)
	return m
}

func (mv *MapView) NewCircle(opts surface.CircleOptions) surface.Circle {
	c := &Circle{view: mv, opts: opts, center: opts.Center, radius: opts.RadiusMeters, visible: opts.InitiallyShow}
	mv.circles = append(mv.circles, c)
	return c
}

func (mv *MapView) Layout(gtx layout.Context) layout.Dimensions {
	tag := mv

	for {
		ev, ok := gtx.Event(pointer.Filter{
			Target:  tag,
			Kinds:   pointer.Scroll | pointer.Drag | pointer.Press | pointer.Release | pointer.Cancel,
			ScrollY: pointer.ScrollRange{Min: -10, Max: 10},
		})
		if !ok {
			break
		}
		if x, ok := ev.(pointer.Event); ok {
			mv.handlePointer(gtx, x)
		}
	}

	if mv.size != gtx.Constraints.Max {
		mv.size = gtx.Constraints.Max
		mv.updateVisibleTiles()
	}
	mv.laidOut = true

	defer clip.Rect{Max: gtx.Constraints.Max}.Push(gtx.Ops).Pop()
	event.Op(gtx.Ops, tag)

	mv.drawTiles(gtx)
	for _, c := range mv.circles {
		if c.visible {
			mv.drawCircle(gtx, c)
		}
	}
	animating := false
	for _, m := range mv.markers {
		if m.attached {
			animating = mv.drawMarker(gtx, m) || animating
		}
	}
	if animating {
		gtx.Execute(op.InvalidateCmd{})
	}

	return layout.Dimensions{Size: mv.size}
}

func (mv *MapView) handlePointer(gtx layout.Context, x pointer.Event) {
	switch x.Kind {
	case pointer.Press:
		mv.pressed = true
		mv.dragging = false
		mv.pressPos = x.Position
		mv.lastDragPos = x.Position
		mv.pressMarker = mv.markerAt(gtx, x.Position)
	case pointer.Scroll:
		if !mv.opts.ScrollZoom {
			return
		}
		if x.Scroll.Y < 0 {
			mv.zoomAround(x.Position, mv.zoom+1)
		} else if x.Scroll.Y > 0 {
			mv.zoomAround(x.Position, mv.zoom-1)
		}
	case pointer.Drag:
		if !mv.pressed {
			return
		}
		if !mv.dragging && distance(x.Position, mv.pressPos) > clickSlop {
			mv.dragging = true
		}
		if mv.dragging && mv.opts.Draggable {
			delta := x.Position.Sub(mv.lastDragPos)
			mv.panByPixels(float64(delta.X), float64(delta.Y))
		}
		mv.lastDragPos = x.Position
	case pointer.Release:
		if mv.pressed && !mv.dragging && mv.pressMarker != nil && mv.pressMarker == mv.markerAt(gtx, x.Position) {
			mv.pressMarker.click()
		}
		fallthrough
	case pointer.Cancel:
		mv.pressed = false
		mv.dragging = false
		mv.pressMarker = nil
	}
}

// zoomAround changes the zoom level keeping the world point under pos fixed
// on screen.
func (mv *MapView) zoomAround(pos f32.Point, newZoom int) {
	offsetX := float64(pos.X) - float64(mv.size.X)/2
	offsetY := float64(pos.Y) - float64(mv.size.Y)/2

	worldX, worldY := tiles.CalculateWorldCoordinates(mv.center, mv.zoom)
	pointerWorldX, pointerWorldY := worldX+offsetX, worldY+offsetY

	oldZoom := mv.zoom
	mv.setZoom(newZoom)
	if oldZoom == mv.zoom {
		return
	}
	factor := math.Pow(2, float64(mv.zoom-oldZoom))
	mv.center = tiles.WorldToLatLng(pointerWorldX*factor-offsetX, pointerWorldY*factor-offsetY, mv.zoom)
	mv.updateVisibleTiles()
}

func (mv *MapView) panByPixels(dx, dy float64) {
	worldX, worldY := tiles.CalculateWorldCoordinates(mv.center, mv.zoom)
	mv.center = tiles.WorldToLatLng(worldX-dx, worldY-dy, mv.zoom)
	mv.updateVisibleTiles()
}

func (mv *MapView) setZoom(newZoom int) {
	mv.zoom = mv.clampZoom(newZoom)
	mv.updateVisibleTiles()
}

func (mv *MapView) clampZoom(z int) int {
	return max(mv.MinZoom, min(z, mv.MaxZoom))
}

func (mv *MapView) updateVisibleTiles() {
	mv.metersPerPixel = tiles.CalculateMetersPerPixel(mv.center.Lat, mv.zoom)
	mv.visibleTiles = tiles.CalculateVisibleTiles(mv.center, mv.zoom, mv.size)
}

// screenPoint converts ll to pixel coordinates within the view.
func (mv *MapView) screenPoint(ll tiles.LatLng) f32.Point {
	cx, cy := tiles.CalculateWorldCoordinates(mv.center, mv.zoom)
	wx, wy := tiles.CalculateWorldCoordinates(ll, mv.zoom)
	return f32.Point{
		X: float32(wx-cx) + float32(mv.size.X)/2,
		Y: float32(wy-cy) + float32(mv.size.Y)/2,
	}
}

func (mv *MapView) drawTiles(gtx layout.Context) {
	if mv.TileManager == nil {
		return
	}
	centerWorldPx, centerWorldPy := tiles.CalculateWorldCoordinates(mv.center, mv.zoom)
	screenCenterX := mv.size.X >> 1
	screenCenterY := mv.size.Y >> 1

	for _, tile := range mv.visibleTiles {
		imageOp, ok := mv.TileManager.GetTile(tile)
		if !ok {
			continue
		}
		tileWorldPx := float64(tile.X * tiles.TileSize)
		tileWorldPy := float64(tile.Y * tiles.TileSize)
		finalX := screenCenterX + int(tileWorldPx-centerWorldPx)
		finalY := screenCenterY + int(tileWorldPy-centerWorldPy)

		transform := op.Offset(image.Point{X: finalX, Y: finalY}).Push(gtx.Ops)
		imageOp.Add(gtx.Ops)
		paint.PaintOp{}.Add(gtx.Ops)
		transform.Pop()
	}
}

func (mv *MapView) invalidate() {
	if mv.refresh == nil {
		return
	}
	select {
	case mv.refresh <- struct{}{}:
	default:
	}
}

func distance(a, b f32.Point) float32 {
	d := a.Sub(b)
	return float32(math.Hypot(float64(d.X), float64(d.Y)))
}
