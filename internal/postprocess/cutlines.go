package postprocess

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"go.uber.org/zap"

	"github.com/wegman-software/osm2mtiles-go/internal/element"
	"github.com/wegman-software/osm2mtiles-go/internal/geomops"
	"github.com/wegman-software/osm2mtiles-go/internal/schema"
)

const (
	// CutlineWidth is the width in meters of the strip a cutline clears.
	CutlineWidth    = 10
	cutlineQuadSegs = 3
	// grassland emitted for cleared strips
	clearingZoom = 14
)

// Cutlines carves forest cutlines out of woods. The removed strips become
// grassland elements and cutlines that carry nothing else are dropped.
func Cutlines(elements []*element.Element, eng *geomops.Engine, logger *zap.Logger) []*element.Element {
	var cuts []orb.Geometry
	var woods []int
	out := make([]*element.Element, 0, len(elements))
	for _, e := range elements {
		if e.Tags["man_made"] == "cutline" {
			area, err := eng.BufferSquare(e.Geom, CutlineWidth/2, cutlineQuadSegs)
			if err != nil {
				logger.Warn("Failed to buffer cutline", zap.Int64("osm_id", e.OSMID()), zap.Error(err))
			} else if area != nil {
				cuts = append(cuts, area)
			}
			if onlyCutline(e.Tags) {
				continue
			}
		}
		if e.Tags["natural"] == "wood" && element.IsPolygonal(e.Geom) {
			woods = append(woods, len(out))
		}
		out = append(out, e)
	}
	if len(cuts) == 0 || len(woods) == 0 {
		return out
	}

	cleared, err := eng.UnionAll(cuts)
	if err != nil || cleared == nil {
		logger.Warn("Failed to union cutlines", zap.Error(err))
		return out
	}
	prepared, err := eng.Prepare(cleared)
	if err != nil {
		logger.Warn("Failed to prepare cutlines", zap.Error(err))
		return out
	}

	for _, i := range woods {
		wood := out[i]
		hit, err := prepared.Intersects(wood.Geom)
		if err != nil || !hit {
			continue
		}
		slice, err := eng.Intersection(wood.Geom, cleared)
		if err != nil {
			logger.Warn("Failed to intersect wood", zap.Int64("osm_id", wood.OSMID()), zap.Error(err))
			continue
		}
		rest, err := eng.Difference(wood.Geom, cleared)
		if err != nil {
			logger.Warn("Failed to cut wood", zap.Int64("osm_id", wood.OSMID()), zap.Error(err))
			continue
		}

		cut := wood.Clone(polygonsOrEmpty(rest))
		cut.Area = planar.Area(cut.Geom)
		if cut.Area == 0 {
			logger.Warn("Wood is empty after cutlines", zap.Int64("osm_id", wood.OSMID()))
		}
		out[i] = cut

		if polys := element.Polygons(slice); len(polys) > 0 {
			out = append(out, &element.Element{
				Geom:    polys,
				Tags:    map[string]string{"natural": "grassland"},
				Mapping: schema.NewMapping(clearingZoom),
				Area:    planar.Area(polys),
				HasArea: true,
			})
		}
	}
	return out
}

func onlyCutline(tags map[string]string) bool {
	for k := range tags {
		if k != "man_made" && k != "name" {
			return false
		}
	}
	return true
}

func polygonsOrEmpty(g orb.Geometry) orb.Geometry {
	polys := element.Polygons(g)
	if len(polys) == 1 {
		return polys[0]
	}
	if polys == nil {
		return orb.MultiPolygon{}
	}
	return polys
}
