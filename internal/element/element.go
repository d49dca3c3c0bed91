// Package element holds the canonical feature carried through tile
// generation and the filter that builds it from OSM data.
package element

import (
	"github.com/paulmach/orb"

	"github.com/wegman-software/osm2mtiles-go/internal/schema"
	"github.com/wegman-software/osm2mtiles-go/internal/vtile"
)

// Origin is the OSM object type an element was built from.
type Origin uint8

const (
	OriginUnknown Origin = iota
	OriginNode
	OriginWay
	OriginArea
)

// PackID combines an OSM id with its origin.
func PackID(osmID int64, origin Origin) uint64 {
	return uint64(osmID)<<2 | uint64(origin&3)
}

// UnpackID splits a packed id.
func UnpackID(id uint64) (int64, Origin) {
	return int64(id >> 2), Origin(id & 3)
}

// Element is one filtered feature. Geom is in Web Mercator and is never
// modified once the element has been built; tiles work on clones.
type Element struct {
	ID       uint64 // 0 for synthetic elements
	Geom     orb.Geometry
	Tags     map[string]string
	Mapping  *schema.Mapping
	Label    *orb.Point
	Area     float64 // square meters, valid when HasArea
	HasArea  bool
	Kind     uint32
	Type     int
	Building *vtile.Building

	// Geometry is the per-tile working copy.
	Geometry orb.Geometry
}

// Clone returns a copy of e sharing its tags and mapping, holding geom.
func (e *Element) Clone(geom orb.Geometry) *Element {
	c := *e
	c.Geom = geom
	c.Geometry = nil
	return &c
}

// OSMID returns the OSM id the element was built from.
func (e *Element) OSMID() int64 {
	id, _ := UnpackID(e.ID)
	return id
}

// IsPolygonal reports whether g is a polygon or multipolygon.
func IsPolygonal(g orb.Geometry) bool {
	switch g.(type) {
	case orb.Polygon, orb.MultiPolygon:
		return true
	}
	return false
}

// Polygons extracts the polygonal parts of g.
func Polygons(g orb.Geometry) orb.MultiPolygon {
	var out orb.MultiPolygon
	switch g := g.(type) {
	case orb.Polygon:
		out = append(out, g)
	case orb.MultiPolygon:
		out = append(out, g...)
	case orb.Collection:
		for _, c := range g {
			out = append(out, Polygons(c)...)
		}
	}
	return out
}

// Boundary converts polygons to their rings as lines. Other geometries are
// returned unchanged.
func Boundary(g orb.Geometry) orb.Geometry {
	var lines orb.MultiLineString
	switch g := g.(type) {
	case orb.Polygon:
		for _, r := range g {
			lines = append(lines, orb.LineString(r))
		}
	case orb.MultiPolygon:
		for _, p := range g {
			for _, r := range p {
				lines = append(lines, orb.LineString(r))
			}
		}
	default:
		return g
	}
	if len(lines) == 1 {
		return lines[0]
	}
	return lines
}
