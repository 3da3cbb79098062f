package tiles

import (
	"fmt"
	"image"
	"math"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"
)

const (
	TileSize           = 256
	earthCircumference = 40075016.686 // meters at equator

	// half of the EPSG:3857 world width in meters
	mercatorHalfWorld = math.Pi * 6378137
	// latitude limit of the web-mercator square
	maxMercatorLat = 85.05112878
)

var (
	toMercator   = wgs84.EPSG().Transform(4326, 3857)
	fromMercator = wgs84.EPSG().Transform(3857, 4326)
)

// Tile represents a map tile coordinates
type Tile struct {
	X, Y, Zoom int
}

// LatLng represents a geographical point. It is a plain value and is never
// mutated after construction.
type LatLng struct {
	Lat, Lng float64
}

func (ll LatLng) String() string {
	return fmt.Sprintf("(%.6f, %.6f)", ll.Lat, ll.Lng)
}

// LatLngBounds is the geographic box visible on a map.
type LatLngBounds struct {
	SouthWest LatLng
	NorthEast LatLng
}

// Contains reports whether ll lies inside the box, edges included. A box
// whose west edge is east of its east edge wraps the antimeridian.
func (b LatLngBounds) Contains(ll LatLng) bool {
	pt := geom.XY{X: ll.Lng, Y: ll.Lat}
	for _, env := range b.envelopes() {
		if env.Contains(pt) {
			return true
		}
	}
	return false
}

func (b LatLngBounds) envelopes() []geom.Envelope {
	sw, ne := b.SouthWest, b.NorthEast
	boxes := [][2]geom.XY{{{X: sw.Lng, Y: sw.Lat}, {X: ne.Lng, Y: ne.Lat}}}
	if sw.Lng > ne.Lng {
		boxes = [][2]geom.XY{
			{{X: sw.Lng, Y: sw.Lat}, {X: 180, Y: ne.Lat}},
			{{X: -180, Y: sw.Lat}, {X: ne.Lng, Y: ne.Lat}},
		}
	}
	envs := make([]geom.Envelope, 0, len(boxes))
	for _, box := range boxes {
		// fails only on NaN or infinite corners, which contain nothing
		env, err := geom.NewEnvelope(box[:])
		if err != nil {
			continue
		}
		envs = append(envs, env)
	}
	return envs
}

// LatLngToTile converts geographical coordinates to tile coordinates
func LatLngToTile(ll LatLng, zoom int) Tile {
	x, y := CalculateWorldCoordinates(ll, zoom)
	return Tile{X: int(x) / TileSize, Y: int(y) / TileSize, Zoom: zoom}
}

// TileToLatLng converts tile coordinates to geographical coordinates (returns
// the north-west corner of the tile)
func TileToLatLng(tile Tile) LatLng {
	return WorldToLatLng(float64(tile.X*TileSize), float64(tile.Y*TileSize), tile.Zoom)
}

// CalculateWorldCoordinates converts geographical coordinates to world pixel
// coordinates at the given zoom level. Projection is EPSG:3857.
func CalculateWorldCoordinates(ll LatLng, zoom int) (float64, float64) {
	lat := max(-maxMercatorLat, min(ll.Lat, maxMercatorLat))
	mx, my, _ := toMercator(ll.Lng, lat, 0)
	worldSize := worldSize(zoom)
	worldX := (mx/(2*mercatorHalfWorld) + 0.5) * worldSize
	worldY := (0.5 - my/(2*mercatorHalfWorld)) * worldSize
	return worldX, worldY
}

// WorldToLatLng converts world pixel coordinates back to geographical coordinates
func WorldToLatLng(worldX, worldY float64, zoom int) LatLng {
	worldSize := worldSize(zoom)
	mx := (worldX/worldSize - 0.5) * 2 * mercatorHalfWorld
	my := (0.5 - worldY/worldSize) * 2 * mercatorHalfWorld
	lng, lat, _ := fromMercator(mx, my, 0)
	return LatLng{Lat: lat, Lng: normalizeLng(lng)}
}

// ScreenBounds returns the geographic box covered by a viewport of the given
// pixel size centered on center.
func ScreenBounds(center LatLng, zoom int, size image.Point) LatLngBounds {
	cx, cy := CalculateWorldCoordinates(center, zoom)
	halfW, halfH := float64(size.X)/2, float64(size.Y)/2
	nw := WorldToLatLng(cx-halfW, cy-halfH, zoom)
	se := WorldToLatLng(cx+halfW, cy+halfH, zoom)
	if float64(size.X) >= worldSize(zoom) {
		nw.Lng, se.Lng = -180, 180
	}
	return LatLngBounds{
		SouthWest: LatLng{Lat: se.Lat, Lng: nw.Lng},
		NorthEast: LatLng{Lat: nw.Lat, Lng: se.Lng},
	}
}

// CalculateMetersPerPixel calculates the meters per pixel at a given latitude and zoom level
func CalculateMetersPerPixel(latitude float64, zoom int) float64 {
	return earthCircumference * math.Cos(latitude*math.Pi/180) / worldSize(zoom)
}

// ConstrainTile ensures tile coordinates are within valid bounds for the zoom level
func ConstrainTile(tile Tile) Tile {
	maxTile := (1 << tile.Zoom) - 1
	tile.X = max(0, min(tile.X, maxTile))
	tile.Y = max(0, min(tile.Y, maxTile))
	return tile
}

// CalculateVisibleTiles calculates which tiles are visible given a center point and screen size
func CalculateVisibleTiles(center LatLng, zoom int, screenSize image.Point) []Tile {
	centerTile := LatLngToTile(center, zoom)
	tilesX := (screenSize.X / TileSize) + 2 // buffer tiles
	tilesY := (screenSize.Y / TileSize) + 2

	startX := centerTile.X - tilesX/2
	startY := centerTile.Y - tilesY/2

	seen := make(map[Tile]bool, tilesX*tilesY)
	visibleTiles := make([]Tile, 0, tilesX*tilesY)
	for x := startX; x < startX+tilesX; x++ {
		for y := startY; y < startY+tilesY; y++ {
			tile := ConstrainTile(Tile{X: x, Y: y, Zoom: zoom})
			if seen[tile] {
				continue
			}
			seen[tile] = true
			visibleTiles = append(visibleTiles, tile)
		}
	}
	return visibleTiles
}

func worldSize(zoom int) float64 {
	return float64(TileSize) * math.Pow(2, float64(zoom))
}

func normalizeLng(lng float64) float64 {
	for lng > 180 {
		lng -= 360
	}
	for lng < -180 {
		lng += 360
	}
	return lng
}
