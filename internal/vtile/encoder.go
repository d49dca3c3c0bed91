// Package vtile encodes map tiles in the OpenScienceMap v4 vector format.
//
// Tags are deduplicated per tile against the static key and value tables
// and a dynamic table; coordinates are quantized to [0, Extent].
package vtile

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"go.uber.org/zap"
	"google.golang.org/protobuf/encoding/protowire"
)

// Version is the format version written to every tile.
const Version = 4

// Extent is the largest tile-local coordinate.
const Extent = 4096

// DefaultLayer is assumed when an element carries no layer.
const DefaultLayer = 5

// dynamic dictionary size above which a tile is reported
const dictionaryWarnSize = 512

// Data message fields.
const (
	fieldVersion   protowire.Number = 1
	fieldTimestamp protowire.Number = 2
	fieldWater     protowire.Number = 3
	fieldNumTags   protowire.Number = 11
	fieldNumKeys   protowire.Number = 12
	fieldNumVals   protowire.Number = 13
	fieldKeys      protowire.Number = 14
	fieldValues    protowire.Number = 15
	fieldTags      protowire.Number = 16
	fieldLines     protowire.Number = 21
	fieldPolygons  protowire.Number = 22
	fieldPoints    protowire.Number = 23
)

// Element message fields.
const (
	elemNumIndices    protowire.Number = 1
	elemNumTags       protowire.Number = 2
	elemID            protowire.Number = 4
	elemTags          protowire.Number = 11
	elemIndices       protowire.Number = 12
	elemCoordinates   protowire.Number = 13
	elemLayer         protowire.Number = 21
	elemLabel         protowire.Number = 31
	elemKind          protowire.Number = 32
	elemElevation     protowire.Number = 33
	elemHeight        protowire.Number = 34
	elemMinHeight     protowire.Number = 35
	elemBuildingColor protowire.Number = 36
	elemRoofColor     protowire.Number = 37
	elemHousenumber   protowire.Number = 38
)

// Building carries the 3D properties of a building feature.
type Building struct {
	Height    float64 // meters
	MinHeight float64 // meters
	Color     uint32  // ARGB
	RoofColor uint32  // ARGB
}

// Feature is one element to encode. Geometry and Label are in tile-local
// coordinates.
type Feature struct {
	ID       uint64
	Tags     map[string]string
	Geometry orb.Geometry
	Label    *orb.Point
	Kind     uint32
	Building *Building
}

type dict struct {
	static map[string]uint32
	ids    map[string]uint32
	list   []string
}

func newDict(static map[string]uint32) dict {
	return dict{static: static, ids: make(map[string]uint32)}
}

func (d *dict) id(s string) uint32 {
	if id, ok := d.static[s]; ok {
		return id
	}
	if id, ok := d.ids[s]; ok {
		return id
	}
	id := AttribOffset + uint32(len(d.list))
	d.ids[s] = id
	d.list = append(d.list, s)
	return id
}

func (d *dict) reset() {
	clear(d.ids)
	d.list = d.list[:0]
}

// Encoder builds one tile at a time. It is not safe for concurrent use.
type Encoder struct {
	strip  func(key string) bool
	logger *zap.Logger

	keys   dict
	values dict
	pairs  map[[2]uint32]uint32
	tags   []uint32

	lines    [][]byte
	polygons [][]byte
	points   [][]byte
	water    bool
	warned   bool
}

// NewEncoder creates an encoder. Keys for which strip returns true are
// never written.
func NewEncoder(strip func(key string) bool, logger *zap.Logger) *Encoder {
	return &Encoder{
		strip:  strip,
		logger: logger,
		keys:   newDict(staticKeyIndex),
		values: newDict(staticValueIndex),
		pairs:  make(map[[2]uint32]uint32),
	}
}

// Reset clears all per-tile state.
func (e *Encoder) Reset() {
	e.keys.reset()
	e.values.reset()
	clear(e.pairs)
	e.tags = e.tags[:0]
	e.lines = e.lines[:0]
	e.polygons = e.polygons[:0]
	e.points = e.points[:0]
	e.water = false
	e.warned = false
}

// SetWater marks the tile as entirely covered by sea.
func (e *Encoder) SetWater(water bool) {
	e.water = water
}

// Len returns the number of elements added since the last Reset.
func (e *Encoder) Len() int {
	return len(e.lines) + len(e.polygons) + len(e.points)
}

func (e *Encoder) tag(k, v string) uint32 {
	pair := [2]uint32{e.keys.id(k), e.values.id(v)}
	if id, ok := e.pairs[pair]; ok {
		return id
	}
	id := uint32(len(e.tags) / 2)
	e.pairs[pair] = id
	e.tags = append(e.tags, pair[0], pair[1])
	if !e.warned && (len(e.keys.list) > dictionaryWarnSize || len(e.values.list) > dictionaryWarnSize) {
		e.warned = true
		e.logger.Warn("Dynamic dictionary overflow",
			zap.Int("keys", len(e.keys.list)),
			zap.Int("values", len(e.values.list)))
	}
	return id
}

type element struct {
	group       group
	id          uint64
	hasID       bool
	tags        []uint32
	indices     []uint32
	coords      []int32
	layer       int
	label       []int32
	kind        uint32
	elevation   int32
	hasEle      bool
	building    *Building
	housenumber string
}

// Add encodes f into the current tile. It reports false when the feature
// has no drawable geometry or no tags.
func (e *Encoder) Add(f *Feature) bool {
	el := element{layer: DefaultLayer, kind: f.Kind, building: f.Building}
	el.group, el.indices, el.coords = encodeGeometry(f.Geometry)
	if el.group == groupNone {
		return false
	}

	keys := make([]string, 0, len(f.Tags))
	for k := range f.Tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var pairs [][2]string
	for _, k := range keys {
		v := f.Tags[k]
		switch k {
		case "id":
			if id, err := strconv.ParseUint(v, 10, 64); err == nil {
				el.id, el.hasID = id, true
			}
			continue
		case "ele":
			if ele, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				el.elevation, el.hasEle = int32(math.Round(ele)), true
			}
			continue
		case "layer":
			if layer, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				el.layer = max(min(10, layer)+5, 0)
			}
			continue
		case "addr:housenumber":
			el.housenumber = v
			continue
		case "building:outline":
			continue
		}
		if e.strip != nil && e.strip(k) {
			continue
		}
		pairs = append(pairs, [2]string{k, v})
	}
	if len(pairs) == 0 {
		e.logger.Warn("Skipping element without tags", zap.Uint64("id", f.ID))
		return false
	}
	if !el.hasID && f.ID != 0 {
		el.id, el.hasID = f.ID, true
	}
	for _, p := range pairs {
		el.tags = append(el.tags, e.tag(p[0], p[1]))
	}
	if f.Label != nil {
		el.label = []int32{quantize(f.Label[0]), quantize(f.Label[1])}
	}

	b := appendElement(nil, &el)
	switch el.group {
	case groupPoint:
		e.points = append(e.points, b)
	case groupLine:
		e.lines = append(e.lines, b)
	case groupPolygon:
		e.polygons = append(e.polygons, b)
	}
	return true
}

// Encode serializes the current tile.
func (e *Encoder) Encode(ts time.Time) []byte {
	b := make([]byte, 0, 1024)
	b = appendVarintField(b, fieldVersion, Version)
	b = appendVarintField(b, fieldTimestamp, uint64(ts.Unix()))
	if e.water {
		b = appendVarintField(b, fieldWater, 1)
	}
	b = appendVarintField(b, fieldNumTags, uint64(len(e.tags)/2))
	if n := len(e.keys.list); n > 0 {
		b = appendVarintField(b, fieldNumKeys, uint64(n))
	}
	if n := len(e.values.list); n > 0 {
		b = appendVarintField(b, fieldNumVals, uint64(n))
	}
	for _, k := range e.keys.list {
		b = protowire.AppendTag(b, fieldKeys, protowire.BytesType)
		b = protowire.AppendString(b, k)
	}
	for _, v := range e.values.list {
		b = protowire.AppendTag(b, fieldValues, protowire.BytesType)
		b = protowire.AppendString(b, v)
	}
	b = appendPacked(b, fieldTags, e.tags)
	for _, groups := range []struct {
		num  protowire.Number
		list [][]byte
	}{
		{fieldLines, e.lines},
		{fieldPolygons, e.polygons},
		{fieldPoints, e.points},
	} {
		for _, el := range groups.list {
			b = protowire.AppendTag(b, groups.num, protowire.BytesType)
			b = protowire.AppendBytes(b, el)
		}
	}
	return b
}

func appendElement(b []byte, el *element) []byte {
	if n := len(el.indices); n > 1 {
		b = appendVarintField(b, elemNumIndices, uint64(n))
	}
	if n := len(el.tags); n > 1 {
		b = appendVarintField(b, elemNumTags, uint64(n))
	}
	if el.hasID {
		b = appendVarintField(b, elemID, el.id)
	}
	b = appendPacked(b, elemTags, el.tags)
	b = appendPacked(b, elemIndices, el.indices)
	b = appendPackedSint(b, elemCoordinates, el.coords)
	if el.layer != DefaultLayer {
		b = appendVarintField(b, elemLayer, uint64(el.layer))
	}
	b = appendPackedSint(b, elemLabel, el.label)
	if el.kind != 0 {
		b = appendVarintField(b, elemKind, uint64(el.kind))
	}
	if el.hasEle {
		b = appendVarintField(b, elemElevation, protowire.EncodeZigZag(int64(el.elevation)))
	}
	if bp := el.building; bp != nil {
		if h := centimeters(bp.Height); h != 0 {
			b = appendVarintField(b, elemHeight, protowire.EncodeZigZag(int64(h)))
		}
		if h := centimeters(bp.MinHeight); h != 0 {
			b = appendVarintField(b, elemMinHeight, protowire.EncodeZigZag(int64(h)))
		}
		if bp.Color != 0 {
			b = appendVarintField(b, elemBuildingColor, uint64(bp.Color))
		}
		if bp.RoofColor != 0 {
			b = appendVarintField(b, elemRoofColor, uint64(bp.RoofColor))
		}
	}
	if el.housenumber != "" {
		b = protowire.AppendTag(b, elemHousenumber, protowire.BytesType)
		b = protowire.AppendString(b, el.housenumber)
	}
	return b
}

func centimeters(m float64) int32 {
	return int32(math.Round(m * 100))
}

func appendVarintField(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendPacked(b []byte, num protowire.Number, vals []uint32) []byte {
	if len(vals) == 0 {
		return b
	}
	size := 0
	for _, v := range vals {
		size += protowire.SizeVarint(uint64(v))
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	b = protowire.AppendVarint(b, uint64(size))
	for _, v := range vals {
		b = protowire.AppendVarint(b, uint64(v))
	}
	return b
}

func appendPackedSint(b []byte, num protowire.Number, vals []int32) []byte {
	if len(vals) == 0 {
		return b
	}
	size := 0
	for _, v := range vals {
		size += protowire.SizeVarint(protowire.EncodeZigZag(int64(v)))
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	b = protowire.AppendVarint(b, uint64(size))
	for _, v := range vals {
		b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(v)))
	}
	return b
}
