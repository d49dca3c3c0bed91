package geomops

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

func square(x, y, size float64) orb.Polygon {
	return orb.Polygon{{
		{x, y}, {x + size, y}, {x + size, y + size}, {x, y + size}, {x, y},
	}}
}

func TestBuffer(t *testing.T) {
	e := NewEngine()
	g, err := e.Buffer(orb.Point{0, 0}, 10)
	if err != nil {
		t.Fatalf("Buffer() error = %v", err)
	}
	area := planar.Area(g)
	want := math.Pi * 100
	if math.Abs(area-want)/want > 0.02 {
		t.Errorf("Buffer() area = %v, want ~%v", area, want)
	}
}

func TestBufferSquare(t *testing.T) {
	e := NewEngine()
	line := orb.LineString{{0, 0}, {100, 0}}
	g, err := e.BufferSquare(line, 10, 3)
	if err != nil {
		t.Fatalf("BufferSquare() error = %v", err)
	}
	// square caps extend past both ends by the buffer width
	if area, want := planar.Area(g), 120.0*20; math.Abs(area-want) > 1 {
		t.Errorf("BufferSquare() area = %v, want %v", area, want)
	}
}

func TestUnionAndDifference(t *testing.T) {
	e := NewEngine()
	a := square(0, 0, 10)
	b := square(5, 0, 10)

	u, err := e.Union(a, b)
	if err != nil {
		t.Fatalf("Union() error = %v", err)
	}
	if area := planar.Area(u); math.Abs(area-150) > 1e-6 {
		t.Errorf("Union() area = %v, want 150", area)
	}

	d, err := e.Difference(a, b)
	if err != nil {
		t.Fatalf("Difference() error = %v", err)
	}
	if area := planar.Area(d); math.Abs(area-50) > 1e-6 {
		t.Errorf("Difference() area = %v, want 50", area)
	}

	i, err := e.Intersection(a, b)
	if err != nil {
		t.Fatalf("Intersection() error = %v", err)
	}
	if area := planar.Area(i); math.Abs(area-50) > 1e-6 {
		t.Errorf("Intersection() area = %v, want 50", area)
	}

	empty, err := e.Difference(a, square(-1, -1, 20))
	if err != nil {
		t.Fatalf("Difference() error = %v", err)
	}
	if empty != nil {
		t.Errorf("Difference() = %v, want nil for empty result", empty)
	}
}

func TestUnionAll(t *testing.T) {
	e := NewEngine()
	tests := []struct {
		name string
		in   []orb.Geometry
		want float64
	}{
		{"none", nil, 0},
		{"one", []orb.Geometry{square(0, 0, 2)}, 4},
		{"overlapping", []orb.Geometry{square(0, 0, 2), square(1, 0, 2), square(2, 0, 2)}, 8},
		{"disjoint", []orb.Geometry{square(0, 0, 1), square(5, 5, 1)}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := e.UnionAll(tt.in)
			if err != nil {
				t.Fatalf("UnionAll() error = %v", err)
			}
			var area float64
			if g != nil {
				area = planar.Area(g)
			}
			if math.Abs(area-tt.want) > 1e-6 {
				t.Errorf("UnionAll() area = %v, want %v", area, tt.want)
			}
		})
	}
}

func TestPredicates(t *testing.T) {
	e := NewEngine()
	a := square(0, 0, 10)

	ok, err := e.Intersects(a, orb.Point{5, 5})
	if err != nil || !ok {
		t.Errorf("Intersects() = %v, %v, want true", ok, err)
	}
	ok, err = e.Intersects(a, orb.Point{50, 5})
	if err != nil || ok {
		t.Errorf("Intersects() = %v, %v, want false", ok, err)
	}

	d, err := e.Distance(a, orb.Point{15, 5})
	if err != nil {
		t.Fatalf("Distance() error = %v", err)
	}
	if math.Abs(d-5) > 1e-9 {
		t.Errorf("Distance() = %v, want 5", d)
	}

	area, err := e.Area(a)
	if err != nil || area != 100 {
		t.Errorf("Area() = %v, %v, want 100", area, err)
	}
}

func TestValidity(t *testing.T) {
	e := NewEngine()
	bowtie := orb.Polygon{{{0, 0}, {10, 10}, {10, 0}, {0, 10}, {0, 0}}}

	ok, err := e.IsValid(bowtie)
	if err != nil {
		t.Fatalf("IsValid() error = %v", err)
	}
	if ok {
		t.Errorf("IsValid(bowtie) = true, want false")
	}

	fixed, err := e.MakeValid(bowtie)
	if err != nil {
		t.Fatalf("MakeValid() error = %v", err)
	}
	ok, err = e.IsValid(fixed)
	if err != nil || !ok {
		t.Errorf("IsValid(MakeValid(bowtie)) = %v, %v, want true", ok, err)
	}
	if area := planar.Area(fixed); math.Abs(area-50) > 1e-6 {
		t.Errorf("MakeValid() area = %v, want 50", area)
	}
}

func TestBoundary(t *testing.T) {
	e := NewEngine()
	b, err := e.Boundary(square(0, 0, 10))
	if err != nil {
		t.Fatalf("Boundary() error = %v", err)
	}
	ls, ok := b.(orb.LineString)
	if !ok {
		t.Fatalf("Boundary() = %T, want orb.LineString", b)
	}
	if len(ls) != 5 {
		t.Errorf("Boundary() has %d points, want 5", len(ls))
	}
}

func TestPointOnSurface(t *testing.T) {
	e := NewEngine()
	poly := square(0, 0, 10)
	p, err := e.PointOnSurface(poly)
	if err != nil {
		t.Fatalf("PointOnSurface() error = %v", err)
	}
	if !poly.Bound().Contains(p) {
		t.Errorf("PointOnSurface() = %v, outside %v", p, poly.Bound())
	}
}

func TestPrepared(t *testing.T) {
	e := NewEngine()
	p, err := e.Prepare(square(0, 0, 10))
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	tests := []struct {
		g          orb.Geometry
		intersects bool
		contains   bool
	}{
		{orb.Point{5, 5}, true, true},
		{square(8, 8, 4), true, false},
		{orb.LineString{{20, 20}, {30, 30}}, false, false},
		{square(2, 2, 2), true, true},
	}
	for _, tt := range tests {
		got, err := p.Intersects(tt.g)
		if err != nil || got != tt.intersects {
			t.Errorf("Intersects(%v) = %v, %v, want %v", tt.g, got, err, tt.intersects)
		}
		got, err = p.Contains(tt.g)
		if err != nil || got != tt.contains {
			t.Errorf("Contains(%v) = %v, %v, want %v", tt.g, got, err, tt.contains)
		}
	}
}
