package schema

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strconv"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed schema.yaml
var defaultSchema []byte

const (
	anyValue = "__any__"
	stripKey = "__strip__"

	maxRewrites = 4
)

// keyEntry holds the directives of one tag key: either a catch-all directive
// or a per-value table.
type keyEntry struct {
	any    *Directive
	values map[string]*Directive
	strip  bool
}

// Schema is the immutable tag mapping table.
type Schema struct {
	keys map[string]*keyEntry
}

var (
	defaultOnce sync.Once
	defaultInst *Schema
	defaultErr  error
)

// Default returns the built-in schema, parsed once.
func Default() (*Schema, error) {
	defaultOnce.Do(func() {
		defaultInst, defaultErr = Parse(defaultSchema)
	})
	return defaultInst, defaultErr
}

// LoadFile parses a schema from a YAML file.
func LoadFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}
	return Parse(data)
}

// Parse builds a schema from its YAML declaration.
func Parse(data []byte) (*Schema, error) {
	var raw map[string]yaml.Node
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse schema YAML: %w", err)
	}

	s := &Schema{keys: make(map[string]*keyEntry, len(raw))}
	for key, node := range raw {
		if node.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("schema key %q: expected a mapping", key)
		}
		entry := &keyEntry{values: make(map[string]*Directive)}
		for i := 0; i+1 < len(node.Content); i += 2 {
			name, body := node.Content[i].Value, node.Content[i+1]
			if name == stripKey {
				if err := body.Decode(&entry.strip); err != nil {
					return nil, fmt.Errorf("schema key %q: %w", key, err)
				}
				continue
			}
			d := &Directive{}
			if body.Tag != "!!null" {
				if err := body.Decode(d); err != nil {
					return nil, fmt.Errorf("schema %s=%s: %w", key, name, err)
				}
			}
			if name == anyValue {
				entry.any = d
			} else {
				entry.values[name] = d
			}
		}
		s.keys[key] = entry
	}
	return s, nil
}

// Stripped reports whether key is dropped from tile tags after mapping.
func (s *Schema) Stripped(key string) bool {
	e := s.keys[key]
	return e != nil && e.strip
}

// Known reports whether key appears in the schema.
func (s *Schema) Known(key string) bool {
	_, ok := s.keys[key]
	return ok
}

// Result is the outcome of mapping one tag set.
type Result struct {
	Renderable bool
	Tags       map[string]string // reduced tags
	Mapping    *Mapping
}

// resolve finds the directive for k=v, following rewrites.
func (s *Schema) resolve(k, v string, tags map[string]string) (string, string, *Directive, bool) {
	for i := 0; i < maxRewrites; i++ {
		e := s.keys[k]
		if e == nil {
			return "", "", nil, false
		}
		d := e.any
		if d == nil {
			d = e.values[v]
		}
		if d == nil {
			return "", "", nil, false
		}
		if d.RewriteKey == "" && d.RewriteValue == "" {
			return k, v, d, true
		}
		if d.RewriteKey != "" {
			if d.RewriteIfMissing {
				if _, exists := tags[d.RewriteKey]; exists {
					return "", "", nil, false
				}
			}
			k = d.RewriteKey
		}
		if d.RewriteValue != "" {
			v = d.RewriteValue
		}
	}
	return "", "", nil, false
}

// Filter maps the raw tags of one element with geometry class geom. Tags
// are visited in key order so that last-wins merges are deterministic.
func (s *Schema) Filter(tags map[string]string, geom GeomClass, variant Variant) Result {
	res := Result{Tags: make(map[string]string), Mapping: newMapping()}
	m := res.Mapping

	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	type pending struct {
		key, value string
		keepFor    []string
	}
	var deferred []pending
	justified := false
	renderCount := 0
	hasMeta := tags["name"] != "" || tags["ref"] != ""

	for _, rawKey := range keys {
		k, v, d, ok := s.resolve(rawKey, tags[rawKey], tags)
		if !ok {
			continue
		}
		switch variant {
		case VariantBasemap:
			if d.Basemap == nil && d.renders() {
				continue
			}
			if d.Basemap != nil {
				d = d.overlay(d.Basemap)
			}
		case VariantStubmap:
			if d.Stubmap == nil && d.renders() {
				continue
			}
			if d.Stubmap != nil {
				d = d.overlay(d.Stubmap)
			}
		}
		if d.FilterType != 0 && geom != 0 && d.FilterType&geom == 0 {
			continue
		}
		if len(d.OneOf) > 0 && !contains(d.OneOf, v) {
			continue
		}
		if d.Adjust != AdjustNone {
			if v, ok = d.Adjust.Apply(v); !ok {
				continue
			}
		}
		if len(d.KeepFor) > 0 {
			deferred = append(deferred, pending{k, v, d.KeepFor})
			continue
		}

		res.Tags[k] = v
		render := d.renders()
		if d.CheckMeta && !hasMeta {
			render = false
		}
		if render {
			res.Renderable = true
			renderCount++
			if !d.Ignore {
				justified = true
			}
		}
		m.merge(d)
		for _, kt := range d.KeepTags {
			if tv, ok := tags[kt]; ok {
				res.Tags[kt] = tv
			}
		}
	}

	for _, p := range deferred {
		for _, need := range p.keepFor {
			if _, ok := res.Tags[need]; ok {
				res.Tags[p.key] = p.value
				break
			}
		}
	}

	if m.exclusive && renderCount > 1 {
		m.Transform = TransformNone
	}
	m.Ignore = res.Renderable && !justified
	modify(m, res.Tags)
	if m.Union != nil {
		m.UnionKey = UnionKey(m.Union, res.Tags)
	}
	return res
}

// modify applies the mapping hook selected by the matched directives.
func modify(m *Mapping, tags map[string]string) {
	switch m.Modify {
	case ModifyPopulation:
		pop, err := strconv.Atoi(tags["population"])
		if err != nil {
			return
		}
		switch {
		case pop >= 1_000_000:
			m.ZoomMin = min(m.ZoomMin, 4)
		case pop >= 100_000:
			m.ZoomMin = min(m.ZoomMin, 7)
		case pop >= 10_000:
			m.ZoomMin = min(m.ZoomMin, 9)
		case pop < 1_000:
			m.ZoomMin = max(m.ZoomMin, 12)
		}
	case ModifyAdminLevel:
		level, err := strconv.Atoi(tags["admin_level"])
		if err != nil {
			return
		}
		switch {
		case level <= 2:
			m.ZoomMin = min(m.ZoomMin, 2)
		case level <= 4:
			m.ZoomMin = max(m.ZoomMin, 8)
		case level <= 6:
			m.ZoomMin = max(m.ZoomMin, 10)
		default:
			m.ZoomMin = max(m.ZoomMin, 12)
		}
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
