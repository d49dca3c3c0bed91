package auxquery

import (
	"strconv"

	"github.com/wegman-software/osm2mtiles-go/internal/schema"
)

const envelope3857 = "ST_MakeEnvelope($1, $2, $3, $4, 3857)"

// Boundaries returns administrative boundaries from the osm2pgsql polygon
// table. maxLevel limits the admin_level; 0 keeps all.
func Boundaries(maxLevel int) Query {
	sql := `SELECT abs(osm_id), ST_AsBinary(way), admin_level, name
FROM planet_osm_polygon
WHERE boundary = 'administrative' AND way && ` + envelope3857
	if maxLevel > 0 {
		sql += " AND admin_level ~ '^[0-9]+$' AND admin_level::int <= " + strconv.Itoa(maxLevel)
	}
	return Query{
		Name: "boundaries",
		SQL:  sql,
		SRID: SRID3857,
		Map: func(r Row) (map[string]string, func(*schema.Mapping)) {
			tags := map[string]string{"boundary": "administrative"}
			setIf(tags, "admin_level", r.Text("admin_level"))
			setIf(tags, "name", r.Text("name"))
			return tags, nil
		},
	}
}

// Routes returns hiking and cycling route relations.
func Routes() Query {
	return Query{
		Name: "routes",
		SQL: `SELECT abs(osm_id), ST_AsBinary(way), route, ref, network, name
FROM planet_osm_line
WHERE osm_id < 0 AND route IN ('hiking', 'foot', 'bicycle', 'mtb') AND way && ` + envelope3857,
		SRID: SRID3857,
		Map: func(r Row) (map[string]string, func(*schema.Mapping)) {
			tags := map[string]string{"route": r.Text("route")}
			setIf(tags, "ref", r.Text("ref"))
			setIf(tags, "network", r.Text("network"))
			setIf(tags, "name", r.Text("name"))
			return tags, nil
		},
	}
}

// Contours returns elevation lines stored in WGS84. Major lines show up
// earlier than minor ones.
func Contours() Query {
	return Query{
		Name: "contours",
		SQL: `SELECT id, ST_AsBinary(geom), ele
FROM contours
WHERE geom && ST_MakeEnvelope($1, $2, $3, $4, 4326)`,
		SRID: SRID4326,
		Map: func(r Row) (map[string]string, func(*schema.Mapping)) {
			ele, err := strconv.Atoi(r.Text("ele"))
			if err != nil {
				return nil, nil
			}
			tags := map[string]string{"contour": "elevation", "ele": strconv.Itoa(ele)}
			return tags, func(m *schema.Mapping) {
				m.ZoomMin = ContourZoom(ele)
			}
		},
	}
}

// ContourZoom returns the first zoom at which a contour line of elevation
// ele is drawn.
func ContourZoom(ele int) int {
	switch {
	case ele%100 == 0:
		return 11
	case ele%50 == 0:
		return 12
	default:
		return 13
	}
}

// Water returns the ocean polygons.
func Water() Query {
	return Query{
		Name: "water",
		SQL: `SELECT 0::bigint, ST_AsBinary(geom)
FROM water_polygons
WHERE geom && ` + envelope3857,
		SRID: SRID3857,
		Map: func(Row) (map[string]string, func(*schema.Mapping)) {
			return map[string]string{"natural": "sea"}, nil
		},
	}
}

// Land returns the simplified land polygons used by the low zoom basemap.
func Land() Query {
	return Query{
		Name: "land",
		SQL: `SELECT 0::bigint, ST_AsBinary(geom)
FROM simplified_land_polygons
WHERE geom && ` + envelope3857,
		SRID: SRID3857,
		Map: func(Row) (map[string]string, func(*schema.Mapping)) {
			return map[string]string{"natural": "land"}, nil
		},
	}
}

// AreaQueries are run for every area build.
func AreaQueries() []Query {
	return []Query{Boundaries(0), Routes(), Contours(), Water()}
}

// BasemapQueries are run for the low zoom basemap.
func BasemapQueries() []Query {
	return []Query{Land(), Water(), Boundaries(4)}
}

func setIf(tags map[string]string, k, v string) {
	if v != "" {
		tags[k] = v
	}
}
