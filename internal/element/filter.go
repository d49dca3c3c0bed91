package element

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"go.uber.org/zap"

	"github.com/wegman-software/osm2mtiles-go/internal/geomops"
	"github.com/wegman-software/osm2mtiles-go/internal/proj"
	"github.com/wegman-software/osm2mtiles-go/internal/schema"
)

// Source is one raw feature offered to the filter.
type Source struct {
	ID       int64
	Origin   Origin
	Geom     orb.Geometry // WGS84 unless Mercator is set
	Mercator bool
	Tags     map[string]string
	// Override adjusts the resolved mapping, for features whose directives
	// come from an external query.
	Override func(*schema.Mapping)
}

// Stats counts filter outcomes.
type Stats struct {
	Seen       int64
	Renderable int64
	Dropped    int64
}

// Filter maps raw features through the schema and collects the renderable
// ones as elements. It is driven by a single goroutine.
type Filter struct {
	schema  *schema.Schema
	variant schema.Variant
	engine  *geomops.Engine
	logger  *zap.Logger

	// Enrich, when set, is called for every accepted element. It is the
	// place to attach building properties.
	Enrich func(*Element)

	elements  []*Element
	justified bool
	stats     Stats
}

// NewFilter creates a filter for one map variant.
func NewFilter(s *schema.Schema, variant schema.Variant, logger *zap.Logger) *Filter {
	return &Filter{
		schema:  s,
		variant: variant,
		engine:  geomops.NewEngine(),
		logger:  logger,
	}
}

// Elements returns the accepted elements in input order.
func (f *Filter) Elements() []*Element {
	return f.elements
}

// HasElements reports whether any accepted element justifies building a
// map. Elements matched only through ignore directives do not.
func (f *Filter) HasElements() bool {
	return f.justified
}

// Stats returns the counters collected so far.
func (f *Filter) Stats() Stats {
	return f.stats
}

// Node handles a tagged OSM node.
func (f *Filter) Node(id int64, lat, lon float64, tags map[string]string) {
	f.Add(Source{ID: id, Origin: OriginNode, Geom: orb.Point{lon, lat}, Tags: tags})
}

// Way handles an OSM way. Closed ways that describe an area become
// polygons.
func (f *Filter) Way(id int64, ls orb.LineString, tags map[string]string, closed bool) {
	if len(ls) < 2 {
		f.logger.Debug("Skipping degenerate way", zap.Int64("osm_id", id))
		return
	}
	f.stats.Seen++

	polygon := closed && len(ls) >= 4 && schema.IsArea(tags)
	res := f.schema.Filter(tags, geomClass(polygon), f.variant)
	if closed && len(ls) >= 4 && res.Mapping.Area != nil && *res.Mapping.Area != polygon {
		polygon = *res.Mapping.Area
		res = f.schema.Filter(tags, geomClass(polygon), f.variant)
	}
	if !res.Renderable {
		return
	}

	var g orb.Geometry = ls
	if polygon {
		g = orb.Polygon{orb.Ring(ls)}
	}
	f.accept(Source{ID: id, Origin: OriginWay, Geom: g, Tags: tags}, res)
}

// Area handles an assembled multipolygon.
func (f *Filter) Area(id int64, mp orb.MultiPolygon, tags map[string]string, fromWay bool) {
	origin := OriginArea
	if fromWay {
		origin = OriginWay
	}
	f.Add(Source{ID: id, Origin: origin, Geom: mp, Tags: tags})
}

// Add maps one feature. It returns the new element, or nil when the feature
// is not renderable or its geometry is unusable.
func (f *Filter) Add(src Source) *Element {
	f.stats.Seen++
	res := f.schema.Filter(src.Tags, classOf(src.Geom), f.variant)
	if !res.Renderable {
		return nil
	}
	return f.accept(src, res)
}

func (f *Filter) accept(src Source, res schema.Result) *Element {
	m := res.Mapping
	if src.Override != nil {
		src.Override(m)
	}

	g := src.Geom
	if !src.Mercator {
		g = proj.ToMercator(g)
	}
	if m.ForceLine {
		g = Boundary(g)
	}

	g, err := f.validate(g)
	if err != nil {
		f.stats.Dropped++
		f.logger.Warn("Dropping element with invalid geometry",
			zap.Int64("osm_id", src.ID),
			zap.Error(err))
		return nil
	}

	e := &Element{
		ID:      PackID(src.ID, src.Origin),
		Geom:    g,
		Tags:    res.Tags,
		Mapping: m,
	}
	if IsPolygonal(g) {
		e.Area = planar.Area(g)
		e.HasArea = true
		if m.Label {
			if p, err := f.engine.PointOnSurface(g); err == nil {
				e.Label = &p
			}
		}
	}
	e.Kind, e.Type = schema.Classify(src.Tags)
	if f.Enrich != nil {
		f.Enrich(e)
	}

	f.elements = append(f.elements, e)
	f.stats.Renderable++
	if !m.Ignore {
		f.justified = true
	}
	return e
}

// validate checks g and repairs invalid polygons.
func (f *Filter) validate(g orb.Geometry) (orb.Geometry, error) {
	switch g := g.(type) {
	case orb.Point:
		return g, nil
	case orb.LineString:
		if len(g) < 2 {
			return nil, fmt.Errorf("line with %d points", len(g))
		}
		return g, nil
	case orb.MultiLineString, orb.MultiPoint:
		return g, nil
	}
	if !IsPolygonal(g) {
		return nil, fmt.Errorf("unsupported geometry %s", g.GeoJSONType())
	}

	ok, err := f.engine.IsValid(g)
	if err != nil {
		return nil, err
	}
	if ok {
		return g, nil
	}
	fixed, err := f.engine.MakeValid(g)
	if err != nil {
		return nil, err
	}
	polys := Polygons(fixed)
	switch len(polys) {
	case 0:
		return nil, fmt.Errorf("no polygon left after repair")
	case 1:
		return polys[0], nil
	}
	return polys, nil
}

func geomClass(polygon bool) schema.GeomClass {
	if polygon {
		return schema.GeomPolygon
	}
	return schema.GeomLine
}

func classOf(g orb.Geometry) schema.GeomClass {
	switch g.(type) {
	case orb.Point, orb.MultiPoint:
		return schema.GeomPoint
	case orb.LineString, orb.MultiLineString:
		return schema.GeomLine
	}
	return schema.GeomPolygon
}
