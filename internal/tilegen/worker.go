package tilegen

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/clip"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/simplify"
	"go.uber.org/zap"

	"github.com/wegman-software/osm2mtiles-go/internal/element"
	"github.com/wegman-software/osm2mtiles-go/internal/geomops"
	"github.com/wegman-software/osm2mtiles-go/internal/proj"
	"github.com/wegman-software/osm2mtiles-go/internal/schema"
	"github.com/wegman-software/osm2mtiles-go/internal/vtile"
)

// share of the tile a sea polygon must cover to flag the tile as water
const waterCoverage = 0.999

// factor applied to the area filter for interior rings
const ringFilterFactor = 8

// worker owns the per-goroutine GEOS context and encoder.
type worker struct {
	g       *Generator
	root    proj.Tile
	engine  *geomops.Engine
	encoder *vtile.Encoder
	queue   *Queue[task]
	results chan<- encoded
}

func (w *worker) run(t task) {
	defer func() {
		if r := recover(); r != nil {
			w.g.failed.Add(1)
			w.g.logger.Error("Tile generation failed",
				zap.String("tile", t.tile.String()),
				zap.Any("panic", r))
		}
	}()

	if t.tile.Z > w.root.Z || w.g.opts.EmitRoot {
		w.results <- w.emit(t)
	}
	if t.tile.Z < w.g.opts.LeafZoom {
		for _, child := range t.tile.Children() {
			w.queue.Put(task{tile: child, elements: w.subdivide(t.elements, child)})
		}
	}
}

// prepared holds the GEOS predicate for one padded child bound.
type prepared struct {
	bound orb.Bound
	geom  *geomops.Prepared
}

// subdivide returns clones of the elements intersecting the child tile,
// clipped to its bound padded by each element's clip buffer.
func (w *worker) subdivide(elements []*element.Element, child proj.Tile) []*element.Element {
	base := child.Bound()
	pw := proj.PixelWidth(child.Z)
	bounds := make(map[int]*prepared)

	var out []*element.Element
	for _, e := range elements {
		p := bounds[e.Mapping.ClipBuffer]
		if p == nil {
			p = &prepared{bound: base.Pad(pw * float64(e.Mapping.ClipBuffer))}
			bounds[e.Mapping.ClipBuffer] = p
		}
		eb := e.Geom.Bound()
		if !p.bound.Intersects(eb) {
			continue
		}
		if p.bound.Contains(eb.Min) && p.bound.Contains(eb.Max) {
			out = append(out, e.Clone(e.Geom))
			continue
		}

		if p.geom == nil {
			prep, err := w.engine.Prepare(p.bound.ToPolygon())
			if err != nil {
				w.g.logger.Warn("Failed to prepare tile bound", zap.String("tile", child.String()), zap.Error(err))
				continue
			}
			p.geom = prep
		}
		hit, err := p.geom.Intersects(e.Geom)
		if err != nil {
			w.g.logger.Warn("Failed to test intersection",
				zap.Int64("osm_id", e.OSMID()),
				zap.String("tile", child.String()),
				zap.Error(err))
			continue
		}
		if !hit {
			continue
		}
		clipped := clip.Geometry(p.bound, orb.Clone(e.Geom))
		if isEmpty(clipped) {
			continue
		}
		out = append(out, e.Clone(clipped))
	}
	return out
}

// emit processes the elements of one tile and encodes it.
func (w *worker) emit(t task) encoded {
	z := t.tile.Z
	leaf := z >= w.g.opts.LeafZoom
	pw := proj.PixelWidth(z)
	pixelArea := pw * pw
	bound := t.tile.Bound()
	aff := proj.NewAffine(bound)

	enc := w.encoder
	enc.Reset()

	type bucket struct {
		first *element.Element
		geoms []orb.Geometry
	}
	unions := make(map[uint64]*bucket)
	var unionOrder []uint64
	var features []*element.Element

	for _, e := range t.elements {
		m := e.Mapping
		if !m.VisibleAt(z) {
			continue
		}
		if !leaf && e.HasArea && e.Area < pixelArea*m.FilterArea {
			continue
		}

		geom := e.Geom
		if !leaf && m.Buffer > 0 {
			if buffered, err := w.engine.Buffer(geom, pw*m.Buffer); err != nil {
				w.g.logger.Warn("Failed to buffer geometry", zap.Int64("osm_id", e.OSMID()), zap.Error(err))
			} else if buffered != nil {
				geom = buffered
			}
		}
		if !leaf {
			geom = w.simplify(geom, pw*m.Simplify)
		}
		switch m.Transform {
		case schema.TransformPoint:
			geom = w.point(e, geom)
		case schema.TransformFilterRings:
			geom = filterRings(geom, pixelArea*m.FilterArea*ringFilterFactor)
		}
		if geom == nil {
			continue
		}

		if m.UnionsAt(z) {
			b := unions[m.UnionKey]
			if b == nil {
				b = &bucket{first: e}
				unions[m.UnionKey] = b
				unionOrder = append(unionOrder, m.UnionKey)
			}
			b.geoms = append(b.geoms, geom)
			continue
		}
		c := e.Clone(e.Geom)
		c.Geometry = geom
		features = append(features, c)
	}

	for _, key := range unionOrder {
		b := unions[key]
		merged, err := w.engine.UnionAll(b.geoms)
		if err != nil {
			w.g.logger.Warn("Failed to union features",
				zap.Int64("osm_id", b.first.OSMID()),
				zap.Int("count", len(b.geoms)),
				zap.Error(err))
			continue
		}
		if merged == nil {
			continue
		}
		features = append(features, &element.Element{
			Tags:     schema.UnionTags(b.first.Mapping.Union, b.first.Tags),
			Mapping:  b.first.Mapping,
			Geometry: merged,
		})
	}

	tileArea := (bound.Max[0] - bound.Min[0]) * (bound.Max[1] - bound.Min[1])
	count := 0
	for _, e := range features {
		g := clip.Geometry(bound, orb.Clone(e.Geometry))
		if isEmpty(g) {
			continue
		}
		if e.Tags["natural"] == "sea" && element.IsPolygonal(g) && planar.Area(g) >= tileArea*waterCoverage {
			enc.SetWater(true)
		}
		f := &vtile.Feature{
			Tags:     e.Tags,
			Geometry: aff.Geometry(g),
			Kind:     e.Kind,
			Building: e.Building,
		}
		if e.Kind != 0 {
			f.ID = e.ID
		}
		if e.Mapping.Label && e.Label != nil && bound.Contains(*e.Label) {
			p := aff.Point(*e.Label)
			f.Label = &p
		}
		if enc.Add(f) {
			count++
		}
	}

	data := enc.Encode(w.g.opts.Timestamp)
	w.g.tiles.Add(1)
	w.g.features.Add(int64(count))
	w.g.bytes.Add(int64(len(data)))
	if count == 0 {
		w.g.empty.Add(1)
	}
	return encoded{tile: t.tile, data: data}
}

// simplify reduces g with the given tolerance, keeping g when the result
// degenerates or becomes invalid.
func (w *worker) simplify(g orb.Geometry, tolerance float64) orb.Geometry {
	if tolerance <= 0 {
		return g
	}
	switch g.(type) {
	case orb.Point, orb.MultiPoint:
		return g
	}
	s := simplify.DouglasPeucker(tolerance).Simplify(orb.Clone(g))
	if isEmpty(s) || degenerate(s) {
		return g
	}
	if element.IsPolygonal(s) {
		if ok, err := w.engine.IsValid(s); err != nil || !ok {
			return g
		}
	}
	return s
}

// point replaces g with a representative point: the label anchor when it
// falls inside g's extent, else a point on the surface.
func (w *worker) point(e *element.Element, g orb.Geometry) orb.Geometry {
	if p, ok := g.(orb.Point); ok {
		return p
	}
	if e.Label != nil {
		return *e.Label
	}
	p, err := w.engine.PointOnSurface(g)
	if err != nil {
		w.g.logger.Warn("Failed to find point on surface", zap.Int64("osm_id", e.OSMID()), zap.Error(err))
		return nil
	}
	return p
}

// filterRings drops interior rings smaller than minArea.
func filterRings(g orb.Geometry, minArea float64) orb.Geometry {
	keep := func(p orb.Polygon) orb.Polygon {
		if len(p) <= 1 {
			return p
		}
		out := orb.Polygon{p[0]}
		for _, r := range p[1:] {
			if math.Abs(planar.Area(r)) >= minArea {
				out = append(out, r)
			}
		}
		return out
	}
	switch g := g.(type) {
	case orb.Polygon:
		return keep(g)
	case orb.MultiPolygon:
		out := make(orb.MultiPolygon, len(g))
		for i, p := range g {
			out[i] = keep(p)
		}
		return out
	}
	return g
}

func isEmpty(g orb.Geometry) bool {
	switch g := g.(type) {
	case nil:
		return true
	case orb.Point:
		return false
	case orb.MultiPoint:
		return len(g) == 0
	case orb.LineString:
		return len(g) == 0
	case orb.MultiLineString:
		return len(g) == 0
	case orb.Ring:
		return len(g) == 0
	case orb.Polygon:
		return len(g) == 0 || len(g[0]) == 0
	case orb.MultiPolygon:
		return len(g) == 0
	case orb.Collection:
		for _, c := range g {
			if !isEmpty(c) {
				return false
			}
		}
		return true
	}
	return false
}

// degenerate reports lines reduced below two points and rings below four.
func degenerate(g orb.Geometry) bool {
	switch g := g.(type) {
	case orb.LineString:
		return len(g) < 2
	case orb.Polygon:
		return len(g[0]) < 4
	case orb.MultiLineString:
		for _, ls := range g {
			if len(ls) < 2 {
				return true
			}
		}
	case orb.MultiPolygon:
		for _, p := range g {
			if len(p) == 0 || len(p[0]) < 4 {
				return true
			}
		}
	}
	return false
}
