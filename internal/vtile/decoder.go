package vtile

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// ErrTruncated is returned when tile data ends inside a field.
var ErrTruncated = errors.New("truncated tile data")

// Tile is a decoded tile.
type Tile struct {
	Version   uint32
	Timestamp uint64
	Water     bool
	NumTags   uint32
	NumKeys   uint32
	NumVals   uint32
	Keys      []string
	Values    []string
	Tags      []uint32
	Lines     []Element
	Polygons  []Element
	Points    []Element
}

// Element is a decoded tile element.
type Element struct {
	NumIndices    uint32
	NumTags       uint32
	ID            uint64
	Tags          []uint32
	Indices       []uint32
	Coordinates   []int32
	Layer         uint32
	Label         []int32
	Kind          uint32
	Elevation     int32
	Height        int32
	MinHeight     int32
	BuildingColor uint32
	RoofColor     uint32
	Housenumber   string
}

func parseError(n int) error {
	return fmt.Errorf("%w: %v", ErrTruncated, protowire.ParseError(n))
}

// Decode parses tile data.
func Decode(b []byte) (*Tile, error) {
	t := &Tile{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, parseError(n)
		}
		b = b[n:]

		var err error
		switch {
		case typ == protowire.VarintType && num <= fieldNumVals:
			var v uint64
			v, b, err = consumeVarint(b)
			switch num {
			case fieldVersion:
				t.Version = uint32(v)
			case fieldTimestamp:
				t.Timestamp = v
			case fieldWater:
				t.Water = v != 0
			case fieldNumTags:
				t.NumTags = uint32(v)
			case fieldNumKeys:
				t.NumKeys = uint32(v)
			case fieldNumVals:
				t.NumVals = uint32(v)
			}
		case num == fieldKeys || num == fieldValues:
			var s []byte
			s, b, err = consumeBytes(b)
			if num == fieldKeys {
				t.Keys = append(t.Keys, string(s))
			} else {
				t.Values = append(t.Values, string(s))
			}
		case num == fieldTags:
			t.Tags, b, err = consumeUints(t.Tags, typ, b)
		case num == fieldLines || num == fieldPolygons || num == fieldPoints:
			var msg []byte
			if msg, b, err = consumeBytes(b); err != nil {
				return nil, err
			}
			el, derr := decodeElement(msg)
			if derr != nil {
				return nil, derr
			}
			switch num {
			case fieldLines:
				t.Lines = append(t.Lines, el)
			case fieldPolygons:
				t.Polygons = append(t.Polygons, el)
			default:
				t.Points = append(t.Points, el)
			}
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, parseError(n)
			}
			b = b[n:]
		}
		if err != nil {
			return nil, err
		}
	}
	return t, nil
}

func decodeElement(b []byte) (Element, error) {
	el := Element{NumIndices: 1, NumTags: 1, Layer: DefaultLayer}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return el, parseError(n)
		}
		b = b[n:]

		var (
			v   uint64
			s   []byte
			err error
		)
		switch num {
		case elemTags:
			el.Tags, b, err = consumeUints(el.Tags, typ, b)
		case elemIndices:
			el.Indices, b, err = consumeUints(el.Indices, typ, b)
		case elemCoordinates:
			el.Coordinates, b, err = consumeSints(el.Coordinates, typ, b)
		case elemLabel:
			el.Label, b, err = consumeSints(el.Label, typ, b)
		case elemHousenumber:
			s, b, err = consumeBytes(b)
			el.Housenumber = string(s)
		case elemNumIndices, elemNumTags, elemID, elemLayer, elemKind,
			elemElevation, elemHeight, elemMinHeight, elemBuildingColor, elemRoofColor:
			v, b, err = consumeVarint(b)
			switch num {
			case elemNumIndices:
				el.NumIndices = uint32(v)
			case elemNumTags:
				el.NumTags = uint32(v)
			case elemID:
				el.ID = v
			case elemLayer:
				el.Layer = uint32(v)
			case elemKind:
				el.Kind = uint32(v)
			case elemElevation:
				el.Elevation = int32(protowire.DecodeZigZag(v))
			case elemHeight:
				el.Height = int32(protowire.DecodeZigZag(v))
			case elemMinHeight:
				el.MinHeight = int32(protowire.DecodeZigZag(v))
			case elemBuildingColor:
				el.BuildingColor = uint32(v)
			case elemRoofColor:
				el.RoofColor = uint32(v)
			}
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return el, parseError(n)
			}
			b = b[n:]
		}
		if err != nil {
			return el, err
		}
	}
	return el, nil
}

func consumeVarint(b []byte) (uint64, []byte, error) {
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, nil, parseError(n)
	}
	return v, b[n:], nil
}

func consumeBytes(b []byte) ([]byte, []byte, error) {
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, nil, parseError(n)
	}
	return v, b[n:], nil
}

// consumeUints reads a packed or a single varint field.
func consumeUints(dst []uint32, typ protowire.Type, b []byte) ([]uint32, []byte, error) {
	if typ == protowire.VarintType {
		v, rest, err := consumeVarint(b)
		return append(dst, uint32(v)), rest, err
	}
	packed, rest, err := consumeBytes(b)
	if err != nil {
		return dst, nil, err
	}
	for len(packed) > 0 {
		var v uint64
		if v, packed, err = consumeVarint(packed); err != nil {
			return dst, nil, err
		}
		dst = append(dst, uint32(v))
	}
	return dst, rest, nil
}

func consumeSints(dst []int32, typ protowire.Type, b []byte) ([]int32, []byte, error) {
	vals, rest, err := consumeUints(nil, typ, b)
	for _, v := range vals {
		dst = append(dst, int32(protowire.DecodeZigZag(uint64(v))))
	}
	return dst, rest, err
}

// Key returns the string of a key id.
func (t *Tile) Key(id uint32) (string, bool) {
	return lookup(staticKeys, t.Keys, id)
}

// Value returns the string of a value id.
func (t *Tile) Value(id uint32) (string, bool) {
	return lookup(staticValues, t.Values, id)
}

func lookup(static, dynamic []string, id uint32) (string, bool) {
	if id < AttribOffset {
		if int(id) < len(static) {
			return static[id], true
		}
		return "", false
	}
	if i := int(id - AttribOffset); i < len(dynamic) {
		return dynamic[i], true
	}
	return "", false
}

// ElementTags resolves the tag ids of el to key/value pairs.
func (t *Tile) ElementTags(el *Element) (map[string]string, error) {
	tags := make(map[string]string, len(el.Tags))
	for _, id := range el.Tags {
		i := int(id) * 2
		if i+1 >= len(t.Tags) {
			return nil, fmt.Errorf("tag %d out of range", id)
		}
		k, ok := t.Key(t.Tags[i])
		if !ok {
			return nil, fmt.Errorf("key %d out of range", t.Tags[i])
		}
		v, ok := t.Value(t.Tags[i+1])
		if !ok {
			return nil, fmt.Errorf("value %d out of range", t.Tags[i+1])
		}
		tags[k] = v
	}
	return tags, nil
}
