package mtiles

import (
	"database/sql"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/zeebo/xxh3"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/wegman-software/osm2mtiles-go/internal/iri"
	"github.com/wegman-software/osm2mtiles-go/internal/proj"
	"github.com/wegman-software/osm2mtiles-go/internal/smaz"
)

// Language maps a name:<code> tag to the numeric code stored in
// feature_names.
type Language struct {
	Tag  string
	Code int
}

// LangPrimary is the code of the plain name tag.
const LangPrimary = 0

var knownLanguages = map[string]int{
	"en": 840,
	"de": 276,
	"ru": 643,
}

// Languages resolves language tags to their codes, skipping unknown ones.
func Languages(tags []string) []Language {
	var out []Language
	for _, t := range tags {
		if code, ok := knownLanguages[t]; ok {
			out = append(out, Language{Tag: t, Code: code})
		}
	}
	return out
}

// Feature flag bits.
const (
	FlagFee             = 1 << 0
	FlagWheelchairNo    = 1 << 1
	FlagWheelchairLimit = 1 << 2
	FlagWheelchairYes   = FlagWheelchairNo | FlagWheelchairLimit
)

// Feature is one entry of the feature side-index. Geometries are in Web
// Mercator.
type Feature struct {
	ID    uint64
	Tags  map[string]string
	Kind  uint32
	Type  int
	Label *orb.Point
	Geom  orb.Geometry
	Enum1 int
}

// NameRef returns the key of a name in the names table.
func NameRef(name string) int64 {
	return int64(xxh3.HashString(name))
}

// Flags computes the flag bits from tags.
func Flags(tags map[string]string) int {
	flags := 0
	if tags["fee"] == "yes" {
		flags |= FlagFee
	}
	switch tags["wheelchair"] {
	case "no":
		flags |= FlagWheelchairNo
	case "limited":
		flags |= FlagWheelchairLimit
	case "yes":
		flags |= FlagWheelchairYes
	}
	return flags
}

// position returns the WGS84 lat/lon of the feature's anchor.
func (f *Feature) position() (lat, lon float64) {
	var p orb.Point
	switch {
	case f.Label != nil:
		p = *f.Label
	case f.Geom != nil:
		if pt, ok := f.Geom.(orb.Point); ok {
			p = pt
		} else {
			p = f.Geom.Bound().Center()
		}
	}
	lon, lat = proj.MercatorToLonLat(p[0], p[1])
	return lat, lon
}

func compressed(cb *smaz.Codebook, s string) any {
	if s == "" {
		return nil
	}
	return cb.CompressString(s)
}

func text(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// website picks the first URL-like tag and normalizes it.
func website(tags map[string]string) (string, error) {
	for _, k := range []string{"website", "contact:website", "url"} {
		if raw := tags[k]; raw != "" {
			return iri.ToURI(raw)
		}
	}
	return "", nil
}

// PutFeature inserts a feature and its localized names.
func (w *Writer) PutFeature(f Feature) error {
	id := int64(f.ID)
	lat, lon := f.position()

	var site any
	if uri, err := website(f.Tags); err != nil {
		w.logger.Debug("Discarding website", zap.Uint64("id", f.ID), zap.Error(err))
	} else {
		site = compressed(smaz.URL, uri)
	}

	_, err := w.featureStmt.Exec(id, f.Kind, f.Type, lat, lon,
		compressed(smaz.OpeningHours, f.Tags["opening_hours"]),
		compressed(smaz.Phone, f.Tags["phone"]),
		text(f.Tags["wikipedia"]),
		site,
		Flags(f.Tags),
		f.Enum1)
	if err != nil {
		return fmt.Errorf("failed to insert feature %d: %w", f.ID, err)
	}

	if err := w.putName(id, LangPrimary, f.Tags["name"]); err != nil {
		return err
	}
	for _, l := range w.langs {
		if err := w.putName(id, l.Code, f.Tags["name:"+l.Tag]); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) putName(id int64, lang int, name string) error {
	if name == "" {
		return nil
	}
	name = norm.NFC.String(name)
	ref := NameRef(name)
	if _, err := w.nameStmt.Exec(ref, name); err != nil {
		return fmt.Errorf("failed to insert name: %w", err)
	}
	if _, err := w.featureNameStmt.Exec(id, lang, ref); err != nil {
		return fmt.Errorf("failed to insert feature name: %w", err)
	}
	return nil
}

// FeatureRow is a stored feature as read back from a container.
type FeatureRow struct {
	ID           int64
	Kind         int64
	Type         int64
	Lat, Lon     float64
	OpeningHours []byte
	Phone        []byte
	Wikipedia    sql.NullString
	Website      []byte
	Flags        int64
	Enum1        int64
}
