package element

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/wegman-software/osm2mtiles-go/internal/schema"
)

func newTestFilter(t *testing.T) *Filter {
	t.Helper()
	s, err := schema.Default()
	if err != nil {
		t.Fatalf("schema.Default() error = %v", err)
	}
	return NewFilter(s, schema.VariantRegular, zap.NewNop())
}

func TestPackID(t *testing.T) {
	tests := []struct {
		id     int64
		origin Origin
		want   uint64
	}{
		{1, OriginNode, 5},
		{1, OriginWay, 6},
		{1, OriginArea, 7},
		{123456789, OriginUnknown, 123456789 << 2},
	}
	for _, tt := range tests {
		got := PackID(tt.id, tt.origin)
		if got != tt.want {
			t.Errorf("PackID(%d, %d) = %d, want %d", tt.id, tt.origin, got, tt.want)
		}
		id, origin := UnpackID(got)
		if id != tt.id || origin != tt.origin {
			t.Errorf("UnpackID(%d) = %d, %d, want %d, %d", got, id, origin, tt.id, tt.origin)
		}
	}
}

func TestNode(t *testing.T) {
	f := newTestFilter(t)
	f.Node(1, 0, 0, map[string]string{"amenity": "restaurant", "name": "X"})

	els := f.Elements()
	if len(els) != 1 {
		t.Fatalf("len(Elements()) = %d, want 1", len(els))
	}
	e := els[0]
	if e.ID != 5 {
		t.Errorf("ID = %d, want 5", e.ID)
	}
	if e.Kind&schema.KindFood == 0 {
		t.Errorf("Kind = %#x, want food bit", e.Kind)
	}
	p, ok := e.Geom.(orb.Point)
	if !ok || math.Abs(p[0]) > 1e-6 || math.Abs(p[1]) > 1e-6 {
		t.Errorf("Geom = %v, want Point(0 0)", e.Geom)
	}
	if e.Tags["name"] != "X" {
		t.Errorf("Tags = %v, want name kept", e.Tags)
	}
	if !f.HasElements() {
		t.Error("HasElements() = false, want true")
	}
}

func TestWay(t *testing.T) {
	closed := orb.LineString{{0, 0}, {0.01, 0}, {0.01, 0.01}, {0, 0.01}, {0, 0}}
	tests := []struct {
		name    string
		ls      orb.LineString
		tags    map[string]string
		closed  bool
		polygon bool
	}{
		{"area yes landuse", closed, map[string]string{"area": "yes", "landuse": "residential"}, true, true},
		{"closed highway", closed, map[string]string{"highway": "primary"}, true, false},
		{"open landuse", closed[:3], map[string]string{"landuse": "residential"}, false, false},
		{"closed cliff forced to line", closed, map[string]string{"natural": "cliff"}, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestFilter(t)
			f.Way(10, tt.ls, tt.tags, tt.closed)
			els := f.Elements()
			if len(els) != 1 {
				t.Fatalf("len(Elements()) = %d, want 1", len(els))
			}
			e := els[0]
			if got := IsPolygonal(e.Geom); got != tt.polygon {
				t.Errorf("IsPolygonal(%T) = %v, want %v", e.Geom, got, tt.polygon)
			}
			if e.HasArea != tt.polygon {
				t.Errorf("HasArea = %v, want %v", e.HasArea, tt.polygon)
			}
			if tt.polygon && e.Area <= 0 {
				t.Errorf("Area = %v, want > 0", e.Area)
			}
			if _, origin := UnpackID(e.ID); origin != OriginWay {
				t.Errorf("origin = %d, want %d", origin, OriginWay)
			}
		})
	}
}

func TestNotRenderable(t *testing.T) {
	f := newTestFilter(t)
	f.Node(1, 10, 10, map[string]string{"created_by": "JOSM"})
	f.Node(2, 10, 10, map[string]string{"name": "only a name"})
	if n := len(f.Elements()); n != 0 {
		t.Errorf("len(Elements()) = %d, want 0", n)
	}
	if s := f.Stats(); s.Seen != 2 || s.Renderable != 0 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestIgnoreOnly(t *testing.T) {
	f := newTestFilter(t)
	f.Node(1, 10, 10, map[string]string{"highway": "traffic_signals"})
	if len(f.Elements()) != 1 {
		t.Fatalf("len(Elements()) = %d, want 1", len(f.Elements()))
	}
	if f.HasElements() {
		t.Error("HasElements() = true, want false")
	}
}

func TestInvalidPolygonRepaired(t *testing.T) {
	f := newTestFilter(t)
	bowtie := orb.MultiPolygon{{{{0, 0}, {0.01, 0.01}, {0.01, 0}, {0, 0.01}, {0, 0}}}}
	e := f.Add(Source{ID: 3, Origin: OriginArea, Geom: bowtie, Tags: map[string]string{"landuse": "industrial"}})
	if e == nil {
		t.Fatal("Add() = nil, want repaired element")
	}
	ok, err := f.engine.IsValid(e.Geom)
	if err != nil || !ok {
		t.Errorf("IsValid() = %v, %v, want true", ok, err)
	}
}

func TestOverride(t *testing.T) {
	f := newTestFilter(t)
	square := orb.Polygon{{{0, 0}, {1000, 0}, {1000, 1000}, {0, 1000}, {0, 0}}}
	e := f.Add(Source{
		Geom:     square,
		Mercator: true,
		Tags:     map[string]string{"natural": "water"},
		Override: func(m *schema.Mapping) { m.ZoomMin = 2 },
	})
	if e == nil {
		t.Fatal("Add() = nil")
	}
	if e.Mapping.ZoomMin != 2 {
		t.Errorf("ZoomMin = %d, want 2", e.Mapping.ZoomMin)
	}
	if e.Area != 1e6 {
		t.Errorf("Area = %v, want 1e6", e.Area)
	}
	if e.Label == nil || !square.Bound().Contains(*e.Label) {
		t.Errorf("Label = %v, want point inside polygon", e.Label)
	}
	if e.ID != 0 {
		t.Errorf("ID = %d, want 0", e.ID)
	}
}

func TestEnrich(t *testing.T) {
	f := newTestFilter(t)
	var seen int
	f.Enrich = func(e *Element) { seen++ }
	f.Node(1, 10, 10, map[string]string{"amenity": "cafe"})
	if seen != 1 {
		t.Errorf("Enrich called %d times, want 1", seen)
	}
}

func TestClone(t *testing.T) {
	e := &Element{ID: 4, Geom: orb.Point{1, 1}, Tags: map[string]string{"a": "b"}, Geometry: orb.Point{2, 2}}
	c := e.Clone(orb.Point{3, 3})
	if c.ID != 4 || c.Tags["a"] != "b" {
		t.Errorf("Clone() = %+v", c)
	}
	if c.Geom != (orb.Point{3, 3}) || c.Geometry != nil {
		t.Errorf("Clone() geometry = %v, %v", c.Geom, c.Geometry)
	}
	if e.Geom != (orb.Point{1, 1}) {
		t.Errorf("original Geom = %v, changed", e.Geom)
	}
}

func TestBoundary(t *testing.T) {
	poly := orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}, {{0.2, 0.1}, {0.3, 0.1}, {0.3, 0.2}, {0.2, 0.1}}}
	if _, ok := Boundary(poly).(orb.MultiLineString); !ok {
		t.Errorf("Boundary(polygon with hole) = %T, want MultiLineString", Boundary(poly))
	}
	if _, ok := Boundary(orb.Polygon{poly[0]}).(orb.LineString); !ok {
		t.Errorf("Boundary(polygon) = %T, want LineString", Boundary(orb.Polygon{poly[0]}))
	}
}
