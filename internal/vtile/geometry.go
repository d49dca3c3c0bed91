package vtile

import (
	"math"

	"github.com/paulmach/orb"
)

type group uint8

const (
	groupNone group = iota
	groupPoint
	groupLine
	groupPolygon
)

func quantize(v float64) int32 {
	r := math.Round(v)
	if r < 0 {
		return 0
	}
	if r > Extent {
		return Extent
	}
	return int32(r)
}

// coordWriter accumulates the index and coordinate arrays of one element.
// Indices count points; a zero index starts the next polygon.
type coordWriter struct {
	indices []uint32
	coords  []int32
}

// path appends the quantized points of pts, dropping repeated points and,
// for rings, the closing point. Degenerate paths are rolled back.
func (w *coordWriter) path(pts []orb.Point, ring bool) bool {
	start := len(w.coords)
	n := 0
	var lx, ly int32
	for _, p := range pts {
		x, y := quantize(p[0]), quantize(p[1])
		if n > 0 && x == lx && y == ly {
			continue
		}
		w.coords = append(w.coords, x, y)
		lx, ly = x, y
		n++
	}
	if ring && n > 1 && w.coords[start] == lx && w.coords[start+1] == ly {
		w.coords = w.coords[:len(w.coords)-2]
		n--
	}
	minimum := 2
	if ring {
		minimum = 3
	}
	if n < minimum {
		w.coords = w.coords[:start]
		return false
	}
	w.indices = append(w.indices, uint32(n))
	return true
}

func (w *coordWriter) polygon(p orb.Polygon) bool {
	if len(p) == 0 || !w.path(p[0], true) {
		return false
	}
	for _, r := range p[1:] {
		w.path(r, true)
	}
	return true
}

func encodeGeometry(g orb.Geometry) (group, []uint32, []int32) {
	var w coordWriter
	switch g := g.(type) {
	case orb.Point:
		return groupPoint, nil, []int32{quantize(g[0]), quantize(g[1])}
	case orb.MultiPoint:
		if len(g) == 0 {
			break
		}
		for _, p := range g {
			w.coords = append(w.coords, quantize(p[0]), quantize(p[1]))
		}
		return groupPoint, []uint32{uint32(len(g))}, w.coords
	case orb.LineString:
		if w.path(g, false) {
			return groupLine, w.indices, w.coords
		}
	case orb.MultiLineString:
		for _, ls := range g {
			w.path(ls, false)
		}
		if len(w.indices) > 0 {
			return groupLine, w.indices, w.coords
		}
	case orb.Ring:
		return encodeGeometry(orb.Polygon{g})
	case orb.Bound:
		return encodeGeometry(g.ToPolygon())
	case orb.Polygon:
		if w.polygon(g) {
			return groupPolygon, w.indices, w.coords
		}
	case orb.MultiPolygon:
		for _, p := range g {
			if len(w.indices) == 0 {
				w.polygon(p)
				continue
			}
			mark := len(w.indices)
			w.indices = append(w.indices, 0)
			if !w.polygon(p) {
				w.indices = w.indices[:mark]
			}
		}
		if len(w.indices) > 0 {
			return groupPolygon, w.indices, w.coords
		}
	case orb.Collection:
		if d := dominant(g); d != nil {
			return encodeGeometry(d)
		}
	}
	return groupNone, nil, nil
}

// dominant flattens a collection into its highest dimension parts.
func dominant(c orb.Collection) orb.Geometry {
	var (
		polys  orb.MultiPolygon
		lines  orb.MultiLineString
		points orb.MultiPoint
	)
	var walk func(orb.Collection)
	walk = func(c orb.Collection) {
		for _, g := range c {
			switch g := g.(type) {
			case orb.Point:
				points = append(points, g)
			case orb.MultiPoint:
				points = append(points, g...)
			case orb.LineString:
				lines = append(lines, g)
			case orb.MultiLineString:
				lines = append(lines, g...)
			case orb.Ring:
				polys = append(polys, orb.Polygon{g})
			case orb.Polygon:
				polys = append(polys, g)
			case orb.MultiPolygon:
				polys = append(polys, g...)
			case orb.Collection:
				walk(g)
			}
		}
	}
	walk(c)
	switch {
	case len(polys) > 0:
		return polys
	case len(lines) > 0:
		return lines
	case len(points) > 0:
		return points
	}
	return nil
}
