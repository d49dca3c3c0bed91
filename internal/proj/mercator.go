package proj

import (
	"math"

	"github.com/paulmach/orb"
)

// Web Mercator constants
const (
	// Semi-major axis of WGS84 ellipsoid in meters
	EarthRadius = 6378137.0
	// Maximum extent of Web Mercator
	MaxExtent = 20037508.342789244

	// MaxMercatorLat is the latitude at which Web Mercator is square
	MaxMercatorLat = 85.0511287798
)

// LonLatToMercator converts WGS84 (lon, lat) to Web Mercator (x, y)
func LonLatToMercator(lon, lat float64) (x, y float64) {
	// Clamp latitude to avoid infinity at poles
	if lat > MaxMercatorLat {
		lat = MaxMercatorLat
	} else if lat < -MaxMercatorLat {
		lat = -MaxMercatorLat
	}

	x = lon * MaxExtent / 180.0

	// y = R * ln(tan(π/4 + φ/2))
	latRad := lat * math.Pi / 180.0
	y = math.Log(math.Tan(math.Pi/4.0+latRad/2.0)) * EarthRadius

	return x, y
}

// MercatorToLonLat converts Web Mercator (x, y) back to WGS84 (lon, lat)
func MercatorToLonLat(x, y float64) (lon, lat float64) {
	lon = x * 180.0 / MaxExtent
	lat = (2*math.Atan(math.Exp(y/EarthRadius)) - math.Pi/2) * 180.0 / math.Pi
	return lon, lat
}

// ToMercator returns a copy of a WGS84 geometry projected to Web Mercator.
func ToMercator(g orb.Geometry) orb.Geometry {
	return MapPoints(g, func(p orb.Point) orb.Point {
		x, y := LonLatToMercator(p[0], p[1])
		return orb.Point{x, y}
	})
}

// ToLonLat returns a copy of a Web Mercator geometry in WGS84.
func ToLonLat(g orb.Geometry) orb.Geometry {
	return MapPoints(g, func(p orb.Point) orb.Point {
		lon, lat := MercatorToLonLat(p[0], p[1])
		return orb.Point{lon, lat}
	})
}

// MapPoints builds a new geometry of the same shape with every vertex passed
// through f. The input is not modified.
func MapPoints(g orb.Geometry, f func(orb.Point) orb.Point) orb.Geometry {
	switch g := g.(type) {
	case orb.Point:
		return f(g)
	case orb.MultiPoint:
		return orb.MultiPoint(mapLine([]orb.Point(g), f))
	case orb.LineString:
		return orb.LineString(mapLine([]orb.Point(g), f))
	case orb.MultiLineString:
		out := make(orb.MultiLineString, len(g))
		for i, ls := range g {
			out[i] = orb.LineString(mapLine([]orb.Point(ls), f))
		}
		return out
	case orb.Ring:
		return orb.Ring(mapLine([]orb.Point(g), f))
	case orb.Polygon:
		return mapPolygon(g, f)
	case orb.MultiPolygon:
		out := make(orb.MultiPolygon, len(g))
		for i, p := range g {
			out[i] = mapPolygon(p, f)
		}
		return out
	case orb.Collection:
		out := make(orb.Collection, len(g))
		for i, sub := range g {
			out[i] = MapPoints(sub, f)
		}
		return out
	case orb.Bound:
		return MapPoints(g.ToPolygon(), f)
	}
	return g
}

func mapLine(pts []orb.Point, f func(orb.Point) orb.Point) []orb.Point {
	out := make([]orb.Point, len(pts))
	for i, p := range pts {
		out[i] = f(p)
	}
	return out
}

func mapPolygon(p orb.Polygon, f func(orb.Point) orb.Point) orb.Polygon {
	out := make(orb.Polygon, len(p))
	for i, r := range p {
		out[i] = orb.Ring(mapLine([]orb.Point(r), f))
	}
	return out
}
