// Package geomops runs GEOS operations on orb geometries.
//
// An Engine owns one GEOS context. Contexts serialize their callers, so each
// worker goroutine should create its own Engine.
package geomops

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/twpayne/go-geos"
)

// ErrOperation is returned when GEOS rejects an operation.
var ErrOperation = errors.New("geometry operation failed")

// Default number of segments per quarter circle used by Buffer.
const DefaultQuadSegs = 8

// Engine converts orb geometries to GEOS and back.
type Engine struct {
	ctx *geos.Context
}

// NewEngine creates an engine with a fresh GEOS context.
func NewEngine() *Engine {
	return &Engine{ctx: geos.NewContext()}
}

// run calls f, turning GEOS panics into ErrOperation.
func run(op string, f func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", ErrOperation, op, r)
		}
	}()
	if err := f(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrOperation, op, err)
	}
	return nil
}

func (e *Engine) toGEOS(g orb.Geometry) (*geos.Geom, error) {
	data, err := wkb.Marshal(g)
	if err != nil {
		return nil, err
	}
	return e.ctx.NewGeomFromWKB(data)
}

func fromGEOS(g *geos.Geom) (orb.Geometry, error) {
	if g.IsEmpty() {
		return nil, nil
	}
	return wkb.Unmarshal(g.ToWKB())
}

// unary runs f on the GEOS version of g and converts the result back.
func (e *Engine) unary(op string, g orb.Geometry, f func(*geos.Geom) *geos.Geom) (orb.Geometry, error) {
	var out orb.Geometry
	err := run(op, func() error {
		gg, err := e.toGEOS(g)
		if err != nil {
			return err
		}
		out, err = fromGEOS(f(gg))
		return err
	})
	return out, err
}

func (e *Engine) binary(op string, a, b orb.Geometry, f func(x, y *geos.Geom) *geos.Geom) (orb.Geometry, error) {
	var out orb.Geometry
	err := run(op, func() error {
		ga, err := e.toGEOS(a)
		if err != nil {
			return err
		}
		gb, err := e.toGEOS(b)
		if err != nil {
			return err
		}
		out, err = fromGEOS(f(ga, gb))
		return err
	})
	return out, err
}

// Buffer grows g by width meters with round caps and joins.
func (e *Engine) Buffer(g orb.Geometry, width float64) (orb.Geometry, error) {
	return e.unary("buffer", g, func(gg *geos.Geom) *geos.Geom {
		return gg.Buffer(width, DefaultQuadSegs)
	})
}

// BufferSquare grows g by width with square end caps. Used for lateral
// buffers of lines where the ends must not extend past the line.
func (e *Engine) BufferSquare(g orb.Geometry, width float64, quadSegs int) (orb.Geometry, error) {
	return e.unary("buffer", g, func(gg *geos.Geom) *geos.Geom {
		return gg.BufferWithStyle(width, quadSegs, geos.BufCapStyleSquare, geos.BufJoinStyleRound, 5)
	})
}

// Union returns the union of a and b.
func (e *Engine) Union(a, b orb.Geometry) (orb.Geometry, error) {
	return e.binary("union", a, b, (*geos.Geom).Union)
}

// UnionAll returns the cascaded union of gs.
func (e *Engine) UnionAll(gs []orb.Geometry) (orb.Geometry, error) {
	switch len(gs) {
	case 0:
		return nil, nil
	case 1:
		return e.unary("union", gs[0], (*geos.Geom).UnaryUnion)
	}
	return e.unary("union", orb.Collection(gs), (*geos.Geom).UnaryUnion)
}

// Difference returns the part of a not covered by b.
func (e *Engine) Difference(a, b orb.Geometry) (orb.Geometry, error) {
	return e.binary("difference", a, b, (*geos.Geom).Difference)
}

// Intersection returns the part of a covered by b.
func (e *Engine) Intersection(a, b orb.Geometry) (orb.Geometry, error) {
	return e.binary("intersection", a, b, (*geos.Geom).Intersection)
}

// Boundary returns the boundary of g: rings for polygons, end points for
// lines.
func (e *Engine) Boundary(g orb.Geometry) (orb.Geometry, error) {
	return e.unary("boundary", g, (*geos.Geom).Boundary)
}

// MakeValid repairs an invalid geometry.
func (e *Engine) MakeValid(g orb.Geometry) (orb.Geometry, error) {
	return e.unary("make valid", g, (*geos.Geom).MakeValid)
}

// PointOnSurface returns a point guaranteed to lie on g.
func (e *Engine) PointOnSurface(g orb.Geometry) (orb.Point, error) {
	out, err := e.unary("point on surface", g, (*geos.Geom).PointOnSurface)
	if err != nil {
		return orb.Point{}, err
	}
	p, ok := out.(orb.Point)
	if !ok {
		return orb.Point{}, fmt.Errorf("%w: point on surface: empty result", ErrOperation)
	}
	return p, nil
}

// Intersects reports whether a and b share any point.
func (e *Engine) Intersects(a, b orb.Geometry) (bool, error) {
	var ok bool
	err := run("intersects", func() error {
		ga, err := e.toGEOS(a)
		if err != nil {
			return err
		}
		gb, err := e.toGEOS(b)
		if err != nil {
			return err
		}
		ok = ga.Intersects(gb)
		return nil
	})
	return ok, err
}

// Distance returns the minimum cartesian distance between a and b.
func (e *Engine) Distance(a, b orb.Geometry) (float64, error) {
	var d float64
	err := run("distance", func() error {
		ga, err := e.toGEOS(a)
		if err != nil {
			return err
		}
		gb, err := e.toGEOS(b)
		if err != nil {
			return err
		}
		d = ga.Distance(gb)
		return nil
	})
	return d, err
}

// Area returns the area of g in squared units.
func (e *Engine) Area(g orb.Geometry) (float64, error) {
	var a float64
	err := run("area", func() error {
		gg, err := e.toGEOS(g)
		if err != nil {
			return err
		}
		a = gg.Area()
		return nil
	})
	return a, err
}

// IsValid reports whether g is topologically valid.
func (e *Engine) IsValid(g orb.Geometry) (bool, error) {
	var ok bool
	err := run("is valid", func() error {
		gg, err := e.toGEOS(g)
		if err != nil {
			return err
		}
		ok = gg.IsValid()
		return nil
	})
	return ok, err
}

// Prepared is a geometry indexed for repeated predicate tests.
type Prepared struct {
	e     *Engine
	geom  *geos.Geom
	prep  *geos.PrepGeom
	Bound orb.Bound
}

// Prepare indexes g for repeated Intersects and Contains calls.
func (e *Engine) Prepare(g orb.Geometry) (*Prepared, error) {
	p := &Prepared{e: e, Bound: g.Bound()}
	err := run("prepare", func() error {
		gg, err := e.toGEOS(g)
		if err != nil {
			return err
		}
		p.geom = gg
		p.prep = gg.Prepare()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Intersects reports whether g intersects the prepared geometry.
func (p *Prepared) Intersects(g orb.Geometry) (bool, error) {
	if !p.Bound.Intersects(g.Bound()) {
		return false, nil
	}
	var ok bool
	err := run("prepared intersects", func() error {
		gg, err := p.e.toGEOS(g)
		if err != nil {
			return err
		}
		ok = p.prep.Intersects(gg)
		return nil
	})
	return ok, err
}

// Contains reports whether g lies entirely inside the prepared geometry.
func (p *Prepared) Contains(g orb.Geometry) (bool, error) {
	if !p.Bound.Contains(g.Bound().Min) || !p.Bound.Contains(g.Bound().Max) {
		return false, nil
	}
	var ok bool
	err := run("prepared contains", func() error {
		gg, err := p.e.toGEOS(g)
		if err != nil {
			return err
		}
		ok = p.prep.Contains(gg)
		return nil
	})
	return ok, err
}
