package postprocess

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"go.uber.org/zap"

	"github.com/wegman-software/osm2mtiles-go/internal/element"
	"github.com/wegman-software/osm2mtiles-go/internal/geomops"
	"github.com/wegman-software/osm2mtiles-go/internal/schema"
)

func newElement(id int64, g orb.Geometry, tags map[string]string, pre schema.PreProcessor) *element.Element {
	m := schema.NewMapping(12)
	m.PreProcess = pre
	e := &element.Element{ID: element.PackID(id, element.OriginWay), Geom: g, Tags: tags, Mapping: m}
	if element.IsPolygonal(g) {
		e.Area, e.HasArea = planar.Area(g), true
	}
	return e
}

func square(x, y, size float64) orb.Polygon {
	return orb.Polygon{{{x, y}, {x + size, y}, {x + size, y + size}, {x, y + size}, {x, y}}}
}

func TestCutlines(t *testing.T) {
	wood := newElement(1, square(0, 0, 1000), map[string]string{"natural": "wood"}, schema.PreProcessCutlines)
	cutline := newElement(2, orb.LineString{{450, 500}, {550, 500}}, map[string]string{"man_made": "cutline"}, schema.PreProcessCutlines)
	named := newElement(3, orb.LineString{{2000, 2000}, {2010, 2000}}, map[string]string{"man_made": "cutline", "name": "A"}, schema.PreProcessCutlines)
	road := newElement(4, orb.LineString{{0, 0}, {10, 10}}, map[string]string{"highway": "track"}, 0)

	out := Run([]*element.Element{wood, cutline, named, road}, zap.NewNop())

	var grass, cutWood *element.Element
	for _, e := range out {
		switch {
		case e.Tags["natural"] == "grassland":
			grass = e
		case e.Tags["natural"] == "wood":
			cutWood = e
		case e == cutline || e == named:
			t.Errorf("cutline %d kept, want dropped", e.OSMID())
		}
	}
	if len(out) != 3 {
		t.Errorf("len(out) = %d, want 3", len(out))
	}
	if grass == nil || cutWood == nil {
		t.Fatalf("grass = %v, wood = %v, want both", grass, cutWood)
	}

	// 100 m long strip, 10 m wide, extended by square caps
	removed := 1e6 - cutWood.Area
	if math.Abs(removed-1100) > 11 {
		t.Errorf("removed wood area = %v, want ~1100", removed)
	}
	if math.Abs(grass.Area-removed) > 1 {
		t.Errorf("grassland area = %v, want %v", grass.Area, removed)
	}
	if grass.Mapping.ZoomMin != 14 || grass.ID != 0 {
		t.Errorf("grassland ZoomMin, ID = %d, %d, want 14, 0", grass.Mapping.ZoomMin, grass.ID)
	}
	if wood.Area != 1e6 {
		t.Errorf("original wood Area = %v, want unchanged", wood.Area)
	}
}

func TestCutlinesKeepsTaggedCutline(t *testing.T) {
	eng := geomops.NewEngine()
	cutline := newElement(2, orb.LineString{{0, 0}, {100, 0}}, map[string]string{"man_made": "cutline", "power": "line"}, schema.PreProcessCutlines)
	out := Cutlines([]*element.Element{cutline}, eng, zap.NewNop())
	if len(out) != 1 || out[0] != cutline {
		t.Errorf("Cutlines() = %v, want cutline kept", out)
	}
}

func pisteElements(out []*element.Element, border bool) []*element.Element {
	var res []*element.Element
	for _, e := range out {
		if e.ID != 0 {
			continue
		}
		if _, ok := e.Tags["piste:border"]; ok == border {
			res = append(res, e)
		}
	}
	return res
}

func TestPistesGrouping(t *testing.T) {
	a := newElement(1, orb.LineString{{0, 0}, {0, 500}}, map[string]string{"piste:type": "downhill", "piste:difficulty": "easy", "lit": "yes"}, schema.PreProcessPistes)
	b := newElement(2, orb.LineString{{5, 100}, {300, 400}}, map[string]string{"piste:type": "downhill", "piste:difficulty": "easy"}, schema.PreProcessPistes)
	far := newElement(3, orb.LineString{{300e3, 0}, {300e3, 400}}, map[string]string{"piste:type": "downhill", "piste:difficulty": "novice"}, schema.PreProcessPistes)
	other := newElement(4, square(0, 0, 10), map[string]string{"natural": "water"}, 0)

	out := Run([]*element.Element{a, b, far, other}, zap.NewNop())

	areas := pisteElements(out, false)
	borders := pisteElements(out, true)
	if len(areas) != 2 || len(borders) != 2 {
		t.Fatalf("areas, borders = %d, %d, want 2, 2", len(areas), len(borders))
	}
	got := map[string]bool{}
	for _, e := range areas {
		if e.Tags["piste:type"] != "downhill" {
			t.Errorf("piste:type = %q, want downhill", e.Tags["piste:type"])
		}
		if _, ok := e.Tags["piste:grooming"]; ok {
			t.Errorf("piste:grooming set for unknown grooming: %v", e.Tags)
		}
		if !element.IsPolygonal(e.Geom) || e.Area <= 0 {
			t.Errorf("piste area geometry = %T, area %v", e.Geom, e.Area)
		}
		got[e.Tags["piste:difficulty"]] = true
	}
	if !got["easy"] || !got["novice"] {
		t.Errorf("difficulties = %v, want easy and novice", got)
	}
	for _, e := range borders {
		if element.IsPolygonal(e.Geom) {
			t.Errorf("border geometry = %T, want lines", e.Geom)
		}
	}
	if a.Tags["piste:lit"] != "yes" {
		t.Errorf("piste:lit = %q, want yes", a.Tags["piste:lit"])
	}
	if len(out) != 4+4 {
		t.Errorf("len(out) = %d, want 8", len(out))
	}
}

func TestPistesDifficultyOrder(t *testing.T) {
	easy := newElement(1, orb.LineString{{0, 0}, {0, 500}}, map[string]string{"piste:type": "downhill", "piste:difficulty": "easy"}, schema.PreProcessPistes)
	hard := newElement(2, orb.LineString{{-200, 250}, {200, 250}}, map[string]string{"piste:type": "downhill", "piste:difficulty": "advanced", "piste:grooming": "mogul"}, schema.PreProcessPistes)

	out := Run([]*element.Element{easy, hard}, zap.NewNop())
	areas := pisteElements(out, false)
	if len(areas) != 2 {
		t.Fatalf("len(areas) = %d, want 2", len(areas))
	}
	var easyArea, hardArea orb.Geometry
	for _, e := range areas {
		switch e.Tags["piste:difficulty"] {
		case "easy":
			easyArea = e.Geom
		case "advanced":
			hardArea = e.Geom
			if e.Tags["piste:grooming"] != "mogul" {
				t.Errorf("piste:grooming = %q, want mogul", e.Tags["piste:grooming"])
			}
		}
	}
	if easyArea == nil || hardArea == nil {
		t.Fatalf("easy = %v, hard = %v", easyArea, hardArea)
	}
	eng := geomops.NewEngine()
	overlap, err := eng.Intersection(easyArea, hardArea)
	if err != nil {
		t.Fatalf("Intersection() error = %v", err)
	}
	if overlap != nil && planar.Area(overlap) > 1 {
		t.Errorf("overlap area = %v, want 0", planar.Area(overlap))
	}
}

func TestRunWithoutProcessors(t *testing.T) {
	in := []*element.Element{newElement(1, orb.Point{0, 0}, map[string]string{"amenity": "cafe"}, 0)}
	out := Run(in, zap.NewNop())
	if len(out) != 1 || out[0] != in[0] {
		t.Errorf("Run() = %v, want input unchanged", out)
	}
}
