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
	pisteLineWidth = 10    // buffer of line pistes, m
	resortRadius   = 100e3 // max distance between a piste and a resort, m
	resortJoinGap  = 10    // pistes closer than this join a resort, m
	resortBuffer   = 1.7
	pisteGrow      = 5
	pisteShrink    = -3
)

// Piste difficulties from the easiest, in processing order.
var difficulties = []string{
	"playground", "snow_park", "novice", "easy", "intermediate",
	"advanced", "expert", "freeride", "extreme", "unknown",
}

var groomings = []string{"unknown", "mogul", "backcountry"}

func indexOf(list []string, v string, fallback int) int {
	for i, s := range list {
		if s == v {
			return i
		}
	}
	return fallback
}

type piste struct {
	geom       orb.Geometry
	area       bool
	difficulty int
	grooming   int
	zoom       int
}

type resort struct {
	pistes []*piste
	geom   orb.Geometry
	prep   *geomops.Prepared
	center orb.Point
}

func (r *resort) update(eng *geomops.Engine, g orb.Geometry) error {
	prep, err := eng.Prepare(g)
	if err != nil {
		return err
	}
	r.geom, r.prep, r.center = g, prep, g.Bound().Center()
	return nil
}

// Pistes groups downhill pistes into resorts and adds one area and one
// border element per resort difficulty and grooming class. The pistes
// themselves are kept.
func Pistes(elements []*element.Element, eng *geomops.Engine, logger *zap.Logger) []*element.Element {
	var pistes []*piste
	for _, e := range elements {
		kind := e.Tags["piste:type"]
		if kind != "downhill" && kind != "snow_park" && kind != "playground" {
			continue
		}
		if _, ok := e.Tags["piste:lit"]; !ok {
			if lit, ok := e.Tags["lit"]; ok {
				e.Tags["piste:lit"] = lit
			}
		}

		p := &piste{
			area:     element.IsPolygonal(e.Geom),
			grooming: indexOf(groomings, e.Tags["piste:grooming"], 0),
			zoom:     e.Mapping.ZoomMin,
		}
		if kind == "downhill" {
			p.difficulty = indexOf(difficulties, e.Tags["piste:difficulty"], len(difficulties)-1)
		} else {
			p.difficulty = indexOf(difficulties, kind, 0)
		}
		p.geom = e.Geom
		if !p.area {
			g, err := eng.Buffer(e.Geom, pisteLineWidth)
			if err != nil || g == nil {
				logger.Warn("Failed to buffer piste", zap.Int64("osm_id", e.OSMID()), zap.Error(err))
				continue
			}
			p.geom = g
		}
		pistes = append(pistes, p)
	}
	if len(pistes) == 0 {
		return elements
	}

	resorts := groupResorts(pistes, eng, logger)
	logger.Debug("Grouped pistes", zap.Int("pistes", len(pistes)), zap.Int("resorts", len(resorts)))
	for _, r := range resorts {
		elements = append(elements, resortElements(r, eng, logger)...)
	}
	return elements
}

// groupResorts assigns every piste greedily to the first nearby resort,
// fusing resorts the piste connects. This is O(n²) in pistes.
func groupResorts(pistes []*piste, eng *geomops.Engine, logger *zap.Logger) []*resort {
	var resorts []*resort
	for _, p := range pistes {
		center := p.geom.Bound().Center()
		var matched []int
		for i, r := range resorts {
			if planar.Distance(center, r.center) > resortRadius {
				continue
			}
			hit, err := r.prep.Intersects(p.geom)
			if err == nil && !hit {
				var d float64
				d, err = eng.Distance(r.geom, p.geom)
				hit = err == nil && d < resortJoinGap
			}
			if err != nil {
				logger.Warn("Failed to match piste", zap.Error(err))
				continue
			}
			if hit {
				matched = append(matched, i)
			}
		}

		if len(matched) == 0 {
			r := &resort{pistes: []*piste{p}}
			if err := r.update(eng, p.geom); err != nil {
				logger.Warn("Failed to prepare resort", zap.Error(err))
				continue
			}
			resorts = append(resorts, r)
			continue
		}

		first := resorts[matched[0]]
		first.pistes = append(first.pistes, p)
		parts := []orb.Geometry{first.geom, p.geom}
		for _, i := range matched[1:] {
			first.pistes = append(first.pistes, resorts[i].pistes...)
			parts = append(parts, resorts[i].geom)
		}
		if merged, err := eng.UnionAll(parts); err != nil || merged == nil {
			logger.Warn("Failed to merge resort", zap.Error(err))
		} else if err := first.update(eng, merged); err != nil {
			logger.Warn("Failed to prepare resort", zap.Error(err))
		}

		// drop fused resorts, back to front so indices stay valid
		for j := len(matched) - 1; j >= 1; j-- {
			i := matched[j]
			resorts = append(resorts[:i], resorts[i+1:]...)
		}
	}
	return resorts
}

type cell struct {
	difficulty, grooming int
	lines, areas         []orb.Geometry
	zoom                 int
	area                 orb.Geometry
}

func resortElements(r *resort, eng *geomops.Engine, logger *zap.Logger) []*element.Element {
	bounds, err := eng.Buffer(r.geom, resortBuffer)
	if err != nil {
		logger.Warn("Failed to buffer resort", zap.Error(err))
		return nil
	}

	var cells []*cell
	byKey := make(map[[2]int]*cell)
	var areaPistes []orb.Geometry
	for _, p := range r.pistes {
		key := [2]int{p.difficulty, p.grooming}
		c := byKey[key]
		if c == nil {
			c = &cell{difficulty: p.difficulty, grooming: p.grooming, zoom: p.zoom}
			byKey[key] = c
		}
		c.zoom = min(c.zoom, p.zoom)
		if p.area {
			c.areas = append(c.areas, p.geom)
			areaPistes = append(areaPistes, p.geom)
		} else {
			c.lines = append(c.lines, p.geom)
		}
	}
	for d := range difficulties {
		for g := range groomings {
			if c := byKey[[2]int{d, g}]; c != nil {
				cells = append(cells, c)
			}
		}
	}

	allAreas, err := eng.UnionAll(areaPistes)
	if err != nil {
		logger.Warn("Failed to union area pistes", zap.Error(err))
		allAreas = nil
	}

	var easier orb.Geometry
	for _, c := range cells {
		parts := append([]orb.Geometry(nil), c.areas...)
		for _, l := range c.lines {
			if allAreas != nil {
				if l, err = eng.Difference(l, allAreas); err != nil || l == nil {
					continue
				}
			}
			parts = append(parts, l)
		}
		g, err := cellArea(eng, parts, bounds)
		if err != nil || g == nil {
			if err != nil {
				logger.Warn("Failed to build piste area", zap.Error(err))
			}
			continue
		}
		own := g
		if easier != nil {
			if g, err = eng.Difference(g, easier); err != nil {
				logger.Warn("Failed to order piste areas", zap.Error(err))
				continue
			}
			if easier, err = eng.Union(easier, own); err != nil {
				logger.Warn("Failed to order piste areas", zap.Error(err))
			}
		} else {
			easier = own
		}
		c.area = g
	}

	var out []*element.Element
	for i, c := range cells {
		polys := element.Polygons(c.area)
		if len(polys) == 0 {
			continue
		}
		tags := pisteTags(c)
		out = append(out, &element.Element{
			Geom:    polygonsOrEmpty(polys),
			Tags:    tags,
			Mapping: schema.NewMapping(c.zoom),
			Area:    planar.Area(polys),
			HasArea: true,
		})

		border := element.Boundary(polygonsOrEmpty(polys))
		var others []orb.Geometry
		for j, o := range cells {
			if j != i && o.area != nil {
				others = append(others, o.area)
			}
		}
		if len(others) > 0 {
			mask, err := eng.UnionAll(others)
			if err == nil && mask != nil {
				if border, err = eng.Difference(border, mask); err != nil {
					logger.Warn("Failed to clip piste border", zap.Error(err))
					continue
				}
			}
		}
		if border == nil {
			continue
		}
		borderTags := pisteTags(c)
		borderTags["piste:border"] = "yes"
		out = append(out, &element.Element{
			Geom:    border,
			Tags:    borderTags,
			Mapping: schema.NewMapping(c.zoom),
		})
	}
	return out
}

// cellArea unions the pistes of one cell, smooths the outline and limits it
// to the resort.
func cellArea(eng *geomops.Engine, parts []orb.Geometry, bounds orb.Geometry) (orb.Geometry, error) {
	g, err := eng.UnionAll(parts)
	if err != nil || g == nil {
		return nil, err
	}
	if g, err = eng.Buffer(g, pisteGrow); err != nil || g == nil {
		return nil, err
	}
	if g, err = eng.Buffer(g, pisteShrink); err != nil || g == nil {
		return nil, err
	}
	return eng.Intersection(g, bounds)
}

func pisteTags(c *cell) map[string]string {
	tags := map[string]string{
		"piste:type":       "downhill",
		"piste:difficulty": difficulties[c.difficulty],
	}
	if c.grooming != 0 {
		tags["piste:grooming"] = groomings[c.grooming]
	}
	return tags
}
