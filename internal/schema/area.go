package schema

// Keys that make a closed way an area.
var areaKeys = []string{"building", "building:part", "aeroway", "landuse", "leisure", "natural", "amenity"}

// Railway values that are always linear, even when closed.
var linearRailways = map[string]bool{
	"rail": true, "light_rail": true, "subway": true, "tram": true,
	"narrow_gauge": true, "monorail": true, "funicular": true,
	"abandoned": true, "disused": true, "preserved": true, "miniature": true,
}

// IsArea checks if a closed way should be treated as a polygon
func IsArea(tags map[string]string) bool {
	switch tags["area"] {
	case "yes", "y", "true":
		return true
	case "no":
		return false
	}
	if _, ok := tags["highway"]; ok {
		return false
	}
	if _, ok := tags["barrier"]; ok {
		return false
	}
	if linearRailways[tags["railway"]] {
		return false
	}
	for _, k := range areaKeys {
		if _, ok := tags[k]; ok {
			return true
		}
	}
	return false
}
