package proj

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

// Extent is the size of the tile-local integer coordinate space.
const Extent = 4096

// Tile identifies a map tile in the XYZ scheme (row 0 at the top)
type Tile struct {
	Z int // Zoom level
	X int // X coordinate (column)
	Y int // Y coordinate (row)
}

// String returns the tile in z/x/y format
func (t Tile) String() string {
	return fmt.Sprintf("%d/%d/%d", t.Z, t.X, t.Y)
}

// Size returns the edge length of the tile in Web Mercator meters.
func (t Tile) Size() float64 {
	return 2 * MaxExtent / float64(int64(1)<<t.Z)
}

// Bound returns the tile's Web Mercator bounding box.
func (t Tile) Bound() orb.Bound {
	size := t.Size()
	minX := -MaxExtent + float64(t.X)*size
	maxY := MaxExtent - float64(t.Y)*size
	return orb.Bound{
		Min: orb.Point{minX, maxY - size},
		Max: orb.Point{minX + size, maxY},
	}
}

// LonLatBound returns the tile's WGS84 bounding box.
func (t Tile) LonLatBound() orb.Bound {
	return maptile.New(uint32(t.X), uint32(t.Y), maptile.Zoom(t.Z)).Bound()
}

// Children returns the four subtiles at z+1 in (2x,2y), (2x,2y+1),
// (2x+1,2y), (2x+1,2y+1) order.
func (t Tile) Children() [4]Tile {
	z, x, y := t.Z+1, t.X*2, t.Y*2
	return [4]Tile{
		{Z: z, X: x, Y: y},
		{Z: z, X: x, Y: y + 1},
		{Z: z, X: x + 1, Y: y},
		{Z: z, X: x + 1, Y: y + 1},
	}
}

// TMSRow returns the row number in the TMS scheme (row 0 at the bottom).
func (t Tile) TMSRow() int {
	return (1 << t.Z) - 1 - t.Y
}

// PixelWidth returns the width of one 256px-tile pixel in meters at zoom z.
func PixelWidth(z int) float64 {
	return (2 * math.Pi * EarthRadius / 256) / float64(int64(1)<<z)
}

// PyramidSize returns the number of tiles strictly below a root tile down to
// and including the leaf zoom.
func PyramidSize(rootZoom, leafZoom int) int {
	n := 0
	for k := 1; k <= leafZoom-rootZoom; k++ {
		n += 1 << (2 * k)
	}
	return n
}

// LatLonToTile converts latitude/longitude to tile coordinates at a given zoom level
func LatLonToTile(lat, lon float64, zoom int) Tile {
	if lat > MaxMercatorLat {
		lat = MaxMercatorLat
	}
	if lat < -MaxMercatorLat {
		lat = -MaxMercatorLat
	}
	if lon < -180 {
		lon = -180
	}
	if lon > 180 {
		lon = 180
	}

	n := float64(int(1) << zoom)

	x := int((lon + 180.0) / 360.0 * n)
	if x >= int(n) {
		x = int(n) - 1
	}

	latRad := lat * math.Pi / 180.0
	y := int((1.0 - math.Log(math.Tan(latRad)+1.0/math.Cos(latRad))/math.Pi) / 2.0 * n)
	if y >= int(n) {
		y = int(n) - 1
	}
	if y < 0 {
		y = 0
	}

	return Tile{Z: zoom, X: x, Y: y}
}

// Affine maps a Web Mercator bounding box onto [0, Extent]² with the Y axis
// inverted, so the top-left corner of the box becomes (0, 0).
type Affine struct {
	minX, maxY float64
	scale      float64
}

// NewAffine creates the transform for a tile bounding box.
func NewAffine(b orb.Bound) Affine {
	return Affine{
		minX:  b.Min[0],
		maxY:  b.Max[1],
		scale: Extent / (b.Max[0] - b.Min[0]),
	}
}

// Point maps a single Mercator point into tile-local space.
func (a Affine) Point(p orb.Point) orb.Point {
	return orb.Point{(p[0] - a.minX) * a.scale, (a.maxY - p[1]) * a.scale}
}

// Geometry returns a tile-local copy of g.
func (a Affine) Geometry(g orb.Geometry) orb.Geometry {
	return MapPoints(g, a.Point)
}

// Scale returns tile-local units per meter.
func (a Affine) Scale() float64 {
	return a.scale
}
