package geo

import (
	"math"
	"time"
)

// Point is a GPS fix treated as a planar coordinate. At campus scale the
// curvature error is well below GPS noise, so no great-circle correction.
type Point struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

// Zone is a named four-corner campus region. Corners are taken in the order
// given; a self-intersecting corner set yields undefined containment and is a
// configuration-time responsibility, not validated here.
type Zone struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Corners   [4]Point  `json:"corners"`
	CreatedAt time.Time `json:"created_at"`
}

// edgeTolerance bounds the collinearity residue for treating a fix as on an
// edge. In degree² units this is sub-millimetre at campus scale, far below
// GPS accuracy.
const edgeTolerance = 1e-12

// Contains reports whether p falls inside the zone polygon using the even-odd
// ray casting rule. A fix on an edge or corner counts as inside: the ray cast
// alone is numerically unstable exactly there, and a student standing on the
// fence line is in class. Pure and deterministic: the same point against the
// same zone always yields the same answer.
func (z Zone) Contains(p Point) bool {
	inside := false
	n := len(z.Corners)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := z.Corners[i], z.Corners[j]
		if onSegment(p, a, b) {
			return true
		}
		if (a.Lon > p.Lon) != (b.Lon > p.Lon) {
			crossLat := (b.Lat-a.Lat)*(p.Lon-a.Lon)/(b.Lon-a.Lon) + a.Lat
			if p.Lat < crossLat {
				inside = !inside
			}
		}
	}
	return inside
}

// onSegment reports whether p lies on the segment a-b, within edgeTolerance
// of exact collinearity and inside the segment's bounding box.
func onSegment(p, a, b Point) bool {
	cross := (b.Lat-a.Lat)*(p.Lon-a.Lon) - (p.Lat-a.Lat)*(b.Lon-a.Lon)
	if math.Abs(cross) > edgeTolerance {
		return false
	}
	return p.Lat >= math.Min(a.Lat, b.Lat) && p.Lat <= math.Max(a.Lat, b.Lat) &&
		p.Lon >= math.Min(a.Lon, b.Lon) && p.Lon <= math.Max(a.Lon, b.Lon)
}
