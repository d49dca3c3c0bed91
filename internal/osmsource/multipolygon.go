package osmsource

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// assembleRings joins way segments end to end into closed rings. Segments
// that cannot be closed are dropped.
func assembleRings(ways []orb.LineString) []orb.Ring {
	var rings []orb.Ring
	used := make([]bool, len(ways))

	for start := range ways {
		if used[start] || len(ways[start]) < 2 {
			continue
		}
		used[start] = true
		ring := append(orb.Ring(nil), ways[start]...)

		for !closed(ring) {
			end := ring[len(ring)-1]
			found := false
			for i, w := range ways {
				if used[i] || len(w) < 2 {
					continue
				}
				switch {
				case w[0].Equal(end):
					ring = append(ring, w[1:]...)
				case w[len(w)-1].Equal(end):
					for j := len(w) - 2; j >= 0; j-- {
						ring = append(ring, w[j])
					}
				default:
					continue
				}
				used[i] = true
				found = true
				break
			}
			if !found {
				break
			}
		}

		if closed(ring) && len(ring) >= 4 {
			rings = append(rings, ring)
		}
	}
	return rings
}

func closed(r orb.Ring) bool {
	return len(r) >= 4 && r[0].Equal(r[len(r)-1])
}

// assembleMultipolygon builds polygons from outer and inner member ways.
// Every inner ring is assigned to the first outer ring containing its first
// point; unassigned inner rings are dropped.
func assembleMultipolygon(outerWays, innerWays []orb.LineString) orb.MultiPolygon {
	outers := assembleRings(outerWays)
	if len(outers) == 0 {
		return nil
	}
	inners := assembleRings(innerWays)

	mp := make(orb.MultiPolygon, len(outers))
	for i, o := range outers {
		if planar.Area(o) < 0 {
			o.Reverse()
		}
		mp[i] = orb.Polygon{o}
	}
	for _, in := range inners {
		for i, o := range outers {
			if planar.RingContains(o, in[0]) {
				if planar.Area(in) > 0 {
					in.Reverse()
				}
				mp[i] = append(mp[i], in)
				break
			}
		}
	}
	return mp
}
