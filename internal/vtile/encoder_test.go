package vtile

import (
	"reflect"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"go.uber.org/zap"
)

func newTestEncoder() *Encoder {
	return NewEncoder(func(k string) bool { return k == "opening_hours" }, zap.NewNop())
}

func encodeDecode(t *testing.T, e *Encoder) *Tile {
	t.Helper()
	tile, err := Decode(e.Encode(time.Unix(1700000000, 0)))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	return tile
}

func TestTagRoundTrip(t *testing.T) {
	e := newTestEncoder()
	tags := map[string]string{
		"highway": "primary",
		"name":    "Main Street",
		"foo":     "bar",
		"surface": "asphalt",
	}
	line := orb.LineString{{0, 0}, {100, 100}}
	if !e.Add(&Feature{Tags: tags, Geometry: line}) {
		t.Fatal("Add() = false, want true")
	}
	tile := encodeDecode(t, e)
	if len(tile.Lines) != 1 {
		t.Fatalf("len(Lines) = %d, want 1", len(tile.Lines))
	}
	got, err := tile.ElementTags(&tile.Lines[0])
	if err != nil {
		t.Fatalf("ElementTags() error = %v", err)
	}
	if !reflect.DeepEqual(got, tags) {
		t.Errorf("ElementTags() = %v, want %v", got, tags)
	}
	if tile.Version != Version {
		t.Errorf("Version = %d, want %d", tile.Version, Version)
	}
	if tile.Timestamp != 1700000000 {
		t.Errorf("Timestamp = %d, want 1700000000", tile.Timestamp)
	}
	if tile.Lines[0].NumTags != 4 {
		t.Errorf("NumTags = %d, want 4", tile.Lines[0].NumTags)
	}
}

func TestDictionaryDedup(t *testing.T) {
	e := newTestEncoder()
	tags := map[string]string{"highway": "primary", "ref": "A1"}
	for i := 0; i < 3; i++ {
		e.Add(&Feature{Tags: tags, Geometry: orb.LineString{{0, 0}, {float64(i + 1), 10}}})
	}
	tile := encodeDecode(t, e)
	if tile.NumTags != 2 {
		t.Errorf("NumTags = %d, want 2", tile.NumTags)
	}
	if !reflect.DeepEqual(tile.Values, []string{"A1"}) {
		t.Errorf("Values = %v, want [A1]", tile.Values)
	}
	if len(tile.Keys) != 0 {
		t.Errorf("Keys = %v, want none", tile.Keys)
	}
	for i := range tile.Lines {
		if !reflect.DeepEqual(tile.Lines[i].Tags, tile.Lines[0].Tags) {
			t.Errorf("Lines[%d].Tags = %v, want %v", i, tile.Lines[i].Tags, tile.Lines[0].Tags)
		}
	}
}

func TestDynamicEntriesReferenced(t *testing.T) {
	e := newTestEncoder()
	e.Add(&Feature{Tags: map[string]string{"x-key": "x-value"}, Geometry: orb.Point{1, 1}})
	// skipped features must not leave dictionary entries behind
	e.Add(&Feature{Tags: map[string]string{"y-key": "y-value"}, Geometry: orb.LineString{{1, 1}}})
	e.Add(&Feature{Tags: map[string]string{"opening_hours": "24/7"}, Geometry: orb.Point{1, 1}})
	tile := encodeDecode(t, e)

	used := make(map[uint32]bool)
	for i := 0; i < len(tile.Tags); i += 2 {
		used[tile.Tags[i]] = true
		used[tile.Tags[i+1]|1<<31] = true
	}
	for i := range tile.Keys {
		if !used[AttribOffset+uint32(i)] {
			t.Errorf("key %q not referenced", tile.Keys[i])
		}
	}
	for i := range tile.Values {
		if !used[(AttribOffset+uint32(i))|1<<31] {
			t.Errorf("value %q not referenced", tile.Values[i])
		}
	}
	if len(tile.Keys) != 1 || len(tile.Values) != 1 {
		t.Errorf("Keys = %v, Values = %v, want one each", tile.Keys, tile.Values)
	}
}

func TestMagicKeys(t *testing.T) {
	tests := []struct {
		name  string
		tags  map[string]string
		check func(t *testing.T, el *Element)
	}{
		{"layer positive", map[string]string{"highway": "primary", "layer": "2"}, func(t *testing.T, el *Element) {
			if el.Layer != 7 {
				t.Errorf("Layer = %d, want 7", el.Layer)
			}
		}},
		{"layer default", map[string]string{"highway": "primary", "layer": "0"}, func(t *testing.T, el *Element) {
			if el.Layer != DefaultLayer {
				t.Errorf("Layer = %d, want %d", el.Layer, DefaultLayer)
			}
		}},
		{"layer low", map[string]string{"highway": "primary", "layer": "-10"}, func(t *testing.T, el *Element) {
			if el.Layer != 0 {
				t.Errorf("Layer = %d, want 0", el.Layer)
			}
		}},
		{"layer high", map[string]string{"highway": "primary", "layer": "20"}, func(t *testing.T, el *Element) {
			if el.Layer != 15 {
				t.Errorf("Layer = %d, want 15", el.Layer)
			}
		}},
		{"elevation", map[string]string{"natural": "peak", "ele": "123.6"}, func(t *testing.T, el *Element) {
			if el.Elevation != 124 {
				t.Errorf("Elevation = %d, want 124", el.Elevation)
			}
		}},
		{"housenumber", map[string]string{"building": "yes", "addr:housenumber": "12a"}, func(t *testing.T, el *Element) {
			if el.Housenumber != "12a" {
				t.Errorf("Housenumber = %q, want 12a", el.Housenumber)
			}
		}},
		{"id tag", map[string]string{"building": "yes", "id": "42"}, func(t *testing.T, el *Element) {
			if el.ID != 42 {
				t.Errorf("ID = %d, want 42", el.ID)
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEncoder()
			e.Add(&Feature{Tags: tt.tags, Geometry: orb.LineString{{0, 0}, {10, 10}}})
			tile := encodeDecode(t, e)
			if len(tile.Lines) != 1 {
				t.Fatalf("len(Lines) = %d, want 1", len(tile.Lines))
			}
			el := &tile.Lines[0]
			tags, err := tile.ElementTags(el)
			if err != nil {
				t.Fatalf("ElementTags() error = %v", err)
			}
			for _, k := range []string{"layer", "ele", "addr:housenumber", "id"} {
				if _, ok := tags[k]; ok {
					t.Errorf("tags contain %q", k)
				}
			}
			tt.check(t, el)
		})
	}
}

func TestDroppedKeys(t *testing.T) {
	e := newTestEncoder()
	tags := map[string]string{"building": "yes", "building:outline": "yes", "opening_hours": "24/7"}
	e.Add(&Feature{Tags: tags, Geometry: orb.Point{5, 5}})
	tile := encodeDecode(t, e)
	got, _ := tile.ElementTags(&tile.Points[0])
	if want := map[string]string{"building": "yes"}; !reflect.DeepEqual(got, want) {
		t.Errorf("ElementTags() = %v, want %v", got, want)
	}
}

func TestEmptyTagsSkipped(t *testing.T) {
	e := newTestEncoder()
	if e.Add(&Feature{Tags: map[string]string{"layer": "1"}, Geometry: orb.Point{1, 1}}) {
		t.Error("Add() = true, want false")
	}
	if e.Len() != 0 {
		t.Errorf("Len() = %d, want 0", e.Len())
	}
}

func TestGeometryRouting(t *testing.T) {
	square := func(x, y float64) orb.Ring {
		return orb.Ring{{x, y}, {x + 10, y}, {x + 10, y + 10}, {x, y + 10}, {x, y}}
	}
	tests := []struct {
		name    string
		geom    orb.Geometry
		group   string
		indices []uint32
		coords  []int32
	}{
		{"point", orb.Point{10.4, 20.6}, "points", nil, []int32{10, 21}},
		{"clamped point", orb.Point{-5, 5000}, "points", nil, []int32{0, 4096}},
		{"multipoint", orb.MultiPoint{{1, 1}, {2, 2}}, "points", []uint32{2}, []int32{1, 1, 2, 2}},
		{"line", orb.LineString{{0, 0}, {0, 0.2}, {5, 5}}, "lines", []uint32{2}, []int32{0, 0, 5, 5}},
		{"multiline", orb.MultiLineString{{{0, 0}, {1, 1}}, {{2, 2}, {3, 3}, {4, 4}}}, "lines", []uint32{2, 3},
			[]int32{0, 0, 1, 1, 2, 2, 3, 3, 4, 4}},
		{"polygon", orb.Polygon{square(0, 0)}, "polygons", []uint32{4}, []int32{0, 0, 10, 0, 10, 10, 0, 10}},
		{"polygon with hole", orb.Polygon{square(0, 0), {{2, 2}, {4, 2}, {4, 4}, {2, 2}}}, "polygons", []uint32{4, 3},
			[]int32{0, 0, 10, 0, 10, 10, 0, 10, 2, 2, 4, 2, 4, 4}},
		{"multipolygon", orb.MultiPolygon{{square(0, 0)}, {square(20, 20)}}, "polygons", []uint32{4, 0, 4},
			[]int32{0, 0, 10, 0, 10, 10, 0, 10, 20, 20, 30, 20, 30, 30, 20, 30}},
		{"collection", orb.Collection{orb.Point{1, 1}, orb.LineString{{0, 0}, {3, 3}}}, "lines", []uint32{2},
			[]int32{0, 0, 3, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEncoder()
			if !e.Add(&Feature{Tags: map[string]string{"natural": "water"}, Geometry: tt.geom}) {
				t.Fatal("Add() = false, want true")
			}
			tile := encodeDecode(t, e)
			groups := map[string][]Element{"points": tile.Points, "lines": tile.Lines, "polygons": tile.Polygons}
			els := groups[tt.group]
			if len(els) != 1 {
				t.Fatalf("len(%s) = %d, want 1", tt.group, len(els))
			}
			el := els[0]
			if !reflect.DeepEqual(el.Indices, tt.indices) {
				t.Errorf("Indices = %v, want %v", el.Indices, tt.indices)
			}
			if !reflect.DeepEqual(el.Coordinates, tt.coords) {
				t.Errorf("Coordinates = %v, want %v", el.Coordinates, tt.coords)
			}
			wantNum := uint32(1)
			if len(tt.indices) > 1 {
				wantNum = uint32(len(tt.indices))
			}
			if el.NumIndices != wantNum {
				t.Errorf("NumIndices = %d, want %d", el.NumIndices, wantNum)
			}
		})
	}
}

func TestDegenerateGeometry(t *testing.T) {
	e := newTestEncoder()
	tags := map[string]string{"natural": "water"}
	for _, g := range []orb.Geometry{
		orb.LineString{{1, 1}, {1.2, 1.1}},
		orb.Polygon{{{0, 0}, {0.1, 0}, {0, 0.1}, {0, 0}}},
		orb.MultiPoint{},
		orb.Collection{},
	} {
		if e.Add(&Feature{Tags: tags, Geometry: g}) {
			t.Errorf("Add(%v) = true, want false", g)
		}
	}
}

func TestElementFields(t *testing.T) {
	e := newTestEncoder()
	e.SetWater(true)
	label := orb.Point{100, 200}
	e.Add(&Feature{
		ID:       7,
		Tags:     map[string]string{"building": "yes"},
		Geometry: orb.Polygon{{{0, 0}, {10, 0}, {10, 10}, {0, 0}}},
		Label:    &label,
		Kind:     0x2,
		Building: &Building{Height: 12.5, MinHeight: 3, Color: 0xff112233},
	})
	tile := encodeDecode(t, e)
	if !tile.Water {
		t.Error("Water = false, want true")
	}
	el := tile.Polygons[0]
	if el.ID != 7 || el.Kind != 0x2 {
		t.Errorf("ID, Kind = %d, %d, want 7, 2", el.ID, el.Kind)
	}
	if el.Height != 1250 || el.MinHeight != 300 {
		t.Errorf("Height, MinHeight = %d, %d, want 1250, 300", el.Height, el.MinHeight)
	}
	if el.BuildingColor != 0xff112233 || el.RoofColor != 0 {
		t.Errorf("BuildingColor, RoofColor = %x, %x", el.BuildingColor, el.RoofColor)
	}
	if !reflect.DeepEqual(el.Label, []int32{100, 200}) {
		t.Errorf("Label = %v, want [100 200]", el.Label)
	}
}

func TestReset(t *testing.T) {
	e := newTestEncoder()
	e.SetWater(true)
	e.Add(&Feature{Tags: map[string]string{"dyn": "x"}, Geometry: orb.Point{1, 1}})
	e.Reset()
	tile := encodeDecode(t, e)
	if tile.Water || len(tile.Points) != 0 || len(tile.Keys) != 0 || tile.NumTags != 0 {
		t.Errorf("tile after Reset = %+v, want empty", tile)
	}
}

func TestDecodeTruncated(t *testing.T) {
	e := newTestEncoder()
	e.Add(&Feature{Tags: map[string]string{"name": "abc"}, Geometry: orb.Point{1, 1}})
	data := e.Encode(time.Unix(0, 0))
	if _, err := Decode(data[:len(data)-2]); err == nil {
		t.Error("Decode() error = nil, want error")
	}
}
