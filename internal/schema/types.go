package schema

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// GeomClass is a bit set of geometry classes a directive applies to.
type GeomClass uint8

const (
	GeomPoint GeomClass = 1 << iota
	GeomLine
	GeomPolygon

	GeomAny = GeomPoint | GeomLine | GeomPolygon
)

func (c GeomClass) String() string {
	var parts []string
	for _, g := range []struct {
		c    GeomClass
		name string
	}{{GeomPoint, "point"}, {GeomLine, "line"}, {GeomPolygon, "polygon"}} {
		if c&g.c != 0 {
			parts = append(parts, g.name)
		}
	}
	return strings.Join(parts, "|")
}

// UnmarshalYAML accepts a list of class names.
func (c *GeomClass) UnmarshalYAML(n *yaml.Node) error {
	var names []string
	if err := n.Decode(&names); err != nil {
		return err
	}
	*c = 0
	for _, name := range names {
		switch name {
		case "point":
			*c |= GeomPoint
		case "line":
			*c |= GeomLine
		case "polygon":
			*c |= GeomPolygon
		default:
			return fmt.Errorf("unknown geometry class %q", name)
		}
	}
	return nil
}

// AdjustFn selects a value normalizer.
type AdjustFn uint8

const (
	AdjustNone AdjustFn = iota
	AdjustBoolean
	AdjustInteger
	AdjustDirection
	AdjustHeight
)

func (a *AdjustFn) UnmarshalYAML(n *yaml.Node) error {
	switch n.Value {
	case "boolean":
		*a = AdjustBoolean
	case "integer":
		*a = AdjustInteger
	case "direction":
		*a = AdjustDirection
	case "height":
		*a = AdjustHeight
	default:
		return fmt.Errorf("unknown adjust function %q", n.Value)
	}
	return nil
}

// Apply normalizes v. The second result is false when v is not a valid value
// for this normalizer, in which case the tag is dropped.
func (a AdjustFn) Apply(v string) (string, bool) {
	switch a {
	case AdjustBoolean:
		return Boolean(v)
	case AdjustInteger:
		return Integer(v)
	case AdjustDirection:
		return Direction(v), true
	case AdjustHeight:
		return HeightString(v)
	}
	return v, true
}

// PreProcessor is a bit set of post-processors run on the root element set.
type PreProcessor uint8

const (
	PreProcessCutlines PreProcessor = 1 << iota
	PreProcessPistes
)

func (p *PreProcessor) UnmarshalYAML(n *yaml.Node) error {
	switch n.Value {
	case "cutlines":
		*p = PreProcessCutlines
	case "pistes":
		*p = PreProcessPistes
	default:
		return fmt.Errorf("unknown pre-processor %q", n.Value)
	}
	return nil
}

// ModifyMapping selects a hook that adjusts the resolved mapping from the
// element's other tags.
type ModifyMapping uint8

const (
	ModifyNone ModifyMapping = iota
	ModifyPopulation
	ModifyAdminLevel
)

func (m *ModifyMapping) UnmarshalYAML(n *yaml.Node) error {
	switch n.Value {
	case "population":
		*m = ModifyPopulation
	case "admin-level":
		*m = ModifyAdminLevel
	default:
		return fmt.Errorf("unknown mapping modifier %q", n.Value)
	}
	return nil
}

// Transform is a per-tile geometry transform.
type Transform uint8

const (
	TransformNone Transform = iota
	TransformPoint
	TransformFilterRings
)

func (t *Transform) UnmarshalYAML(n *yaml.Node) error {
	switch n.Value {
	case "point":
		*t = TransformPoint
	case "filter-rings":
		*t = TransformFilterRings
	default:
		return fmt.Errorf("unknown transform %q", n.Value)
	}
	return nil
}

// UnionSpec names the tags two features must share to be unioned. It is
// written either as a comma list or as a key -> weight map.
type UnionSpec struct {
	Keys    []string // sorted, unique
	Weights map[string]float64
}

func (u *UnionSpec) UnmarshalYAML(n *yaml.Node) error {
	seen := make(map[string]bool)
	switch n.Kind {
	case yaml.ScalarNode:
		for _, k := range strings.Split(n.Value, ",") {
			if k = strings.TrimSpace(k); k != "" {
				seen[k] = true
			}
		}
	case yaml.MappingNode:
		if err := n.Decode(&u.Weights); err != nil {
			return err
		}
		for k := range u.Weights {
			seen[k] = true
		}
	default:
		return fmt.Errorf("union must be a list or a map")
	}
	u.Keys = u.Keys[:0]
	for k := range seen {
		u.Keys = append(u.Keys, k)
	}
	sort.Strings(u.Keys)
	return nil
}

// Directive is the per key/value configuration of the mapping table.
type Directive struct {
	RewriteKey         string        `yaml:"rewrite-key"`
	RewriteValue       string        `yaml:"rewrite-value"`
	RewriteIfMissing   bool          `yaml:"rewrite-if-missing"`
	OneOf              []string      `yaml:"one-of"`
	Adjust             AdjustFn      `yaml:"adjust"`
	FilterType         GeomClass     `yaml:"filter-type"`
	Render             *bool         `yaml:"render"`
	ZoomMin            *int          `yaml:"zoom-min"`
	ZoomMax            *int          `yaml:"zoom-max"`
	Ignore             bool          `yaml:"ignore"`
	Area               *bool         `yaml:"area"`
	FilterArea         *float64      `yaml:"filter-area"`
	Buffer             *float64      `yaml:"buffer"`
	Enlarge            *float64      `yaml:"enlarge"`
	Simplify           *float64      `yaml:"simplify"`
	Label              bool          `yaml:"label"`
	ClipBuffer         *int          `yaml:"clip-buffer"`
	KeepTags           []string      `yaml:"keep-tags"`
	KeepFor            []string      `yaml:"keep-for"`
	Union              *UnionSpec    `yaml:"union"`
	UnionZoomMax       *int          `yaml:"union-zoom-max"`
	Transform          Transform     `yaml:"transform"`
	TransformExclusive bool          `yaml:"transform-exclusive"`
	ForceLine          bool          `yaml:"force-line"`
	CheckMeta          bool          `yaml:"check-meta"`
	ModifyMapping      ModifyMapping `yaml:"modify-mapping"`
	PreProcess         PreProcessor  `yaml:"pre-process"`
	Basemap            *Directive    `yaml:"basemap"`
	Stubmap            *Directive    `yaml:"stubmap"`
}

func (d *Directive) renders() bool {
	return d.Render == nil || *d.Render
}

// overlay returns a copy of d with every field set in o replacing d's.
func (d *Directive) overlay(o *Directive) *Directive {
	out := *d
	if o.ZoomMin != nil {
		out.ZoomMin = o.ZoomMin
	}
	if o.ZoomMax != nil {
		out.ZoomMax = o.ZoomMax
	}
	if o.FilterArea != nil {
		out.FilterArea = o.FilterArea
	}
	if o.Buffer != nil {
		out.Buffer = o.Buffer
	}
	if o.Simplify != nil {
		out.Simplify = o.Simplify
	}
	if o.Union != nil {
		out.Union = o.Union
	}
	if o.UnionZoomMax != nil {
		out.UnionZoomMax = o.UnionZoomMax
	}
	if o.Transform != TransformNone {
		out.Transform = o.Transform
	}
	if o.Render != nil {
		out.Render = o.Render
	}
	return &out
}

// Variant selects which flavour of map the mapping is resolved for.
type Variant uint8

const (
	VariantRegular Variant = iota
	VariantBasemap
	VariantStubmap
)

// Mapping is the resolved configuration of one element. It is built by
// Filter and shared, read-only, by every clone of the element.
type Mapping struct {
	ZoomMin      int
	ZoomMax      int // 0: no upper bound
	FilterArea   float64
	Buffer       float64 // in pixels, 0: no buffering
	Simplify     float64 // tolerance multiplier
	Label        bool
	ClipBuffer   int // in pixels
	Area         *bool
	ForceLine    bool
	KeepTags     []string
	Union        *UnionSpec
	UnionKey     uint64
	UnionZoomMax int // 0: union at every zoom
	Transform    Transform
	PreProcess   PreProcessor
	Modify       ModifyMapping
	Ignore       bool // renderable only through ignore directives

	hasZoomMin bool
	exclusive  bool
}

// Default clip buffer in pixels.
const DefaultClipBuffer = 4

func newMapping() *Mapping {
	return &Mapping{
		FilterArea: 1,
		Simplify:   1,
		ClipBuffer: DefaultClipBuffer,
	}
}

// NewMapping returns a mapping with default settings, used for synthetic
// elements that do not pass through Filter.
func NewMapping(zoomMin int) *Mapping {
	m := newMapping()
	m.ZoomMin = zoomMin
	m.hasZoomMin = true
	return m
}

// HasUnion reports whether elements with this mapping are coalesced.
func (m *Mapping) HasUnion() bool {
	return m.Union != nil
}

// UnionsAt reports whether unioning applies at zoom z.
func (m *Mapping) UnionsAt(z int) bool {
	return m.Union != nil && (m.UnionZoomMax == 0 || z <= m.UnionZoomMax)
}

// VisibleAt reports whether the element is drawn at zoom z.
func (m *Mapping) VisibleAt(z int) bool {
	return m.ZoomMin <= z && (m.ZoomMax == 0 || z <= m.ZoomMax)
}

func (m *Mapping) merge(d *Directive) {
	if d.ZoomMin != nil && (!m.hasZoomMin || *d.ZoomMin < m.ZoomMin) {
		m.ZoomMin = *d.ZoomMin
		m.hasZoomMin = true
	}
	if d.ZoomMax != nil {
		m.ZoomMax = *d.ZoomMax
	}
	if d.Transform != TransformNone {
		m.Transform = d.Transform
		m.exclusive = d.TransformExclusive
	}
	if d.Union != nil {
		m.Union = d.Union
	}
	if d.UnionZoomMax != nil {
		m.UnionZoomMax = *d.UnionZoomMax
	}
	if d.Area != nil {
		m.Area = d.Area
	}
	if d.FilterArea != nil {
		m.FilterArea = *d.FilterArea
	}
	if d.Buffer != nil {
		m.Buffer = *d.Buffer
	}
	if d.Enlarge != nil {
		m.Buffer *= *d.Enlarge
	}
	if d.Simplify != nil {
		m.Simplify = *d.Simplify
	}
	if d.ClipBuffer != nil {
		m.ClipBuffer = *d.ClipBuffer
	}
	if d.ForceLine {
		m.ForceLine = true
	}
	if d.Label {
		m.Label = true
	}
	if d.ModifyMapping != ModifyNone {
		m.Modify = d.ModifyMapping
	}
	m.PreProcess |= d.PreProcess
	m.KeepTags = append(m.KeepTags, d.KeepTags...)
}
