package schema

import (
	"reflect"
	"testing"
)

func mustDefault(t *testing.T) *Schema {
	t.Helper()
	s, err := Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	return s
}

func TestFilterRestaurant(t *testing.T) {
	s := mustDefault(t)
	res := s.Filter(map[string]string{"amenity": "restaurant", "name": "X", "note": "ignored"}, GeomPoint, VariantRegular)

	if !res.Renderable {
		t.Fatal("restaurant should be renderable")
	}
	want := map[string]string{"amenity": "restaurant", "name": "X"}
	if !reflect.DeepEqual(res.Tags, want) {
		t.Errorf("Tags = %v, want %v", res.Tags, want)
	}
	if res.Mapping.ZoomMin != 14 {
		t.Errorf("ZoomMin = %d, want 14", res.Mapping.ZoomMin)
	}
	if !res.Mapping.Label {
		t.Error("Label = false, want true")
	}
}

func TestFilterCases(t *testing.T) {
	s := mustDefault(t)

	tests := []struct {
		name       string
		tags       map[string]string
		geom       GeomClass
		renderable bool
		wantTags   map[string]string
	}{
		{
			name:       "rewrite key and value",
			tags:       map[string]string{"landuse": "forest"},
			geom:       GeomPolygon,
			renderable: true,
			wantTags:   map[string]string{"natural": "wood"},
		},
		{
			name:       "rewrite only if missing",
			tags:       map[string]string{"amenity": "cafe", "phone": "1", "contact:phone": "2"},
			geom:       GeomPoint,
			renderable: true,
			wantTags:   map[string]string{"amenity": "cafe", "phone": "1"},
		},
		{
			name:       "rewrite when missing",
			tags:       map[string]string{"amenity": "cafe", "contact:phone": "2"},
			geom:       GeomPoint,
			renderable: true,
			wantTags:   map[string]string{"amenity": "cafe", "phone": "2"},
		},
		{
			name:       "one-of rejects value",
			tags:       map[string]string{"highway": "residential", "access": "yes"},
			geom:       GeomLine,
			renderable: true,
			wantTags:   map[string]string{"highway": "residential"},
		},
		{
			name:       "one-of keeps value",
			tags:       map[string]string{"highway": "residential", "access": "private"},
			geom:       GeomLine,
			renderable: true,
			wantTags:   map[string]string{"highway": "residential", "access": "private"},
		},
		{
			name:       "adjusted values",
			tags:       map[string]string{"natural": "volcano", "ele": "1200.7", "name": "V"},
			geom:       GeomPoint,
			renderable: true,
			wantTags:   map[string]string{"natural": "volcano", "ele": "1200", "name": "V"},
		},
		{
			name:       "invalid adjusted value is dropped",
			tags:       map[string]string{"highway": "primary", "bridge": "maybe"},
			geom:       GeomLine,
			renderable: true,
			wantTags:   map[string]string{"highway": "primary"},
		},
		{
			name:       "attributes alone do not render",
			tags:       map[string]string{"name": "Nowhere", "ref": "7"},
			geom:       GeomPoint,
			renderable: false,
			wantTags:   map[string]string{"name": "Nowhere", "ref": "7"},
		},
		{
			name:       "filter-type excludes geometry",
			tags:       map[string]string{"highway": "primary"},
			geom:       GeomPoint,
			renderable: false,
			wantTags:   map[string]string{},
		},
		{
			name:       "check-meta without name",
			tags:       map[string]string{"natural": "peak"},
			geom:       GeomPoint,
			renderable: false,
			wantTags:   map[string]string{"natural": "peak"},
		},
		{
			name:       "check-meta with name",
			tags:       map[string]string{"natural": "peak", "name": "K2"},
			geom:       GeomPoint,
			renderable: true,
			wantTags:   map[string]string{"natural": "peak", "name": "K2"},
		},
		{
			name:       "keep-for present",
			tags:       map[string]string{"place": "town", "name": "A", "name:en": "B"},
			geom:       GeomPoint,
			renderable: true,
			wantTags:   map[string]string{"place": "town", "name": "A", "name:en": "B"},
		},
		{
			name:       "keep-for absent",
			tags:       map[string]string{"highway": "track", "name:en": "B"},
			geom:       GeomLine,
			renderable: true,
			wantTags:   map[string]string{"highway": "track"},
		},
		{
			name:       "unknown keys are skipped",
			tags:       map[string]string{"source": "survey", "fixme": "check"},
			geom:       GeomPoint,
			renderable: false,
			wantTags:   map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := s.Filter(tt.tags, tt.geom, VariantRegular)
			if res.Renderable != tt.renderable {
				t.Errorf("Renderable = %v, want %v", res.Renderable, tt.renderable)
			}
			if !reflect.DeepEqual(res.Tags, tt.wantTags) {
				t.Errorf("Tags = %v, want %v", res.Tags, tt.wantTags)
			}
		})
	}
}

func TestFilterZoomMinTakesSmallest(t *testing.T) {
	s := mustDefault(t)
	res := s.Filter(map[string]string{"highway": "residential", "amenity": "parking"}, GeomPolygon, VariantRegular)
	if res.Mapping.ZoomMin != 12 {
		t.Errorf("ZoomMin = %d, want 12", res.Mapping.ZoomMin)
	}
}

func TestFilterPreProcess(t *testing.T) {
	s := mustDefault(t)
	res := s.Filter(map[string]string{"landuse": "forest"}, GeomPolygon, VariantRegular)
	if res.Mapping.PreProcess&PreProcessCutlines == 0 {
		t.Error("forest should request the cutlines post-processor")
	}
	res = s.Filter(map[string]string{"piste:type": "downhill"}, GeomLine, VariantRegular)
	if res.Mapping.PreProcess&PreProcessPistes == 0 {
		t.Error("downhill piste should request the pistes post-processor")
	}
}

func TestFilterTransformExclusive(t *testing.T) {
	s := mustDefault(t)
	res := s.Filter(map[string]string{"aeroway": "aerodrome"}, GeomPolygon, VariantRegular)
	if res.Mapping.Transform != TransformPoint {
		t.Errorf("Transform = %d, want point", res.Mapping.Transform)
	}
	res = s.Filter(map[string]string{"aeroway": "aerodrome", "landuse": "military"}, GeomPolygon, VariantRegular)
	if res.Mapping.Transform != TransformNone {
		t.Errorf("Transform = %d, want none when another tag renders", res.Mapping.Transform)
	}
}

func TestFilterIgnore(t *testing.T) {
	s := mustDefault(t)
	res := s.Filter(map[string]string{"office": "company"}, GeomPoint, VariantRegular)
	if !res.Renderable || !res.Mapping.Ignore {
		t.Errorf("office: Renderable = %v, Ignore = %v, want true, true", res.Renderable, res.Mapping.Ignore)
	}
	res = s.Filter(map[string]string{"office": "company", "amenity": "cafe"}, GeomPoint, VariantRegular)
	if res.Mapping.Ignore {
		t.Error("cafe should justify the element")
	}
}

func TestFilterModifyMapping(t *testing.T) {
	s := mustDefault(t)
	tests := []struct {
		tags map[string]string
		want int
	}{
		{map[string]string{"place": "city", "population": "2000000"}, 4},
		{map[string]string{"place": "village", "population": "500"}, 12},
		{map[string]string{"place": "town"}, 9},
		{map[string]string{"boundary": "administrative", "admin_level": "8", "name": "X"}, 12},
	}
	for _, tt := range tests {
		res := s.Filter(tt.tags, GeomPoint|GeomLine, VariantRegular)
		if res.Mapping.ZoomMin != tt.want {
			t.Errorf("Filter(%v).ZoomMin = %d, want %d", tt.tags, res.Mapping.ZoomMin, tt.want)
		}
	}
}

func TestFilterBasemap(t *testing.T) {
	s := mustDefault(t)
	res := s.Filter(map[string]string{"highway": "motorway", "ref": "M1"}, GeomLine, VariantBasemap)
	if !res.Renderable || res.Mapping.ZoomMin != 5 {
		t.Errorf("motorway basemap: Renderable = %v, ZoomMin = %d, want true, 5", res.Renderable, res.Mapping.ZoomMin)
	}
	res = s.Filter(map[string]string{"highway": "residential"}, GeomLine, VariantBasemap)
	if res.Renderable {
		t.Error("residential road should not be on the basemap")
	}
}

func TestUnionKey(t *testing.T) {
	s := mustDefault(t)
	a := s.Filter(map[string]string{"highway": "primary", "ref": "A1", "name": "North"}, GeomLine, VariantRegular)
	b := s.Filter(map[string]string{"highway": "primary", "ref": "A1", "name": "South"}, GeomLine, VariantRegular)
	c := s.Filter(map[string]string{"highway": "primary", "ref": "A2"}, GeomLine, VariantRegular)

	if !a.Mapping.HasUnion() {
		t.Fatal("primary road should have a union descriptor")
	}
	if a.Mapping.UnionKey != b.Mapping.UnionKey {
		t.Error("same highway/ref should produce the same union key")
	}
	if a.Mapping.UnionKey == c.Mapping.UnionKey {
		t.Error("different ref should produce a different union key")
	}
	want := map[string]string{"highway": "primary", "ref": "A1"}
	if got := UnionTags(a.Mapping.Union, a.Tags); !reflect.DeepEqual(got, want) {
		t.Errorf("UnionTags() = %v, want %v", got, want)
	}
}

func TestUnionSpecMap(t *testing.T) {
	s := mustDefault(t)
	res := s.Filter(map[string]string{"highway": "track", "tracktype": "grade2"}, GeomLine, VariantRegular)
	if got, want := res.Mapping.Union.Keys, []string{"highway", "tracktype"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Union.Keys = %v, want %v", got, want)
	}
	if res.Mapping.Union.Weights["tracktype"] != 0.5 {
		t.Errorf("Union.Weights[tracktype] = %v, want 0.5", res.Mapping.Union.Weights["tracktype"])
	}
}

func TestStripped(t *testing.T) {
	s := mustDefault(t)
	for key, want := range map[string]bool{"phone": true, "opening_hours": true, "name": false, "highway": false, "unknown": false} {
		if got := s.Stripped(key); got != want {
			t.Errorf("Stripped(%q) = %v, want %v", key, got, want)
		}
	}
}

func TestParseErrors(t *testing.T) {
	bad := []string{
		"highway: [1, 2]",
		"highway:\n  primary: {adjust: cube}",
		"highway:\n  primary: {filter-type: [circle]}",
	}
	for _, src := range bad {
		if _, err := Parse([]byte(src)); err == nil {
			t.Errorf("Parse(%q) succeeded, want error", src)
		}
	}
}
