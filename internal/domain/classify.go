package domain

import "math"

// DefaultNearBoundaryKm is the distance under which an epicenter counts as
// inland regardless of quadrant coverage.
const DefaultNearBoundaryKm = 1.0

// BoundaryClassifier decides whether an epicenter lies inland. known is false
// when the classifier has no boundary to work with.
type BoundaryClassifier interface {
	Classify(lon, lat float64) (inland, known bool)
}

// QuadrantClassifier is the historical "surrounded by coastline" heuristic.
//
// It walks the boundary in order, accumulating which quadrants (NE, SW, SE,
// NW, relative to the epicenter) contain at least one vertex, and whether any
// vertex lies closer than NearKm. It stops at the first vertex after which all
// four quadrants are covered or the near flag is set, and reports inland.
// Exhausting the boundary reports offshore. Flags never reset. Vertices on the
// epicenter's meridian or parallel set no quadrant flag.
type QuadrantClassifier struct {
	boundary Boundary
	nearKm   float64
}

// NewQuadrantClassifier builds the heuristic classifier. A non-positive
// nearKm falls back to DefaultNearBoundaryKm.
func NewQuadrantClassifier(boundary Boundary, nearKm float64) *QuadrantClassifier {
	if nearKm <= 0 {
		nearKm = DefaultNearBoundaryKm
	}
	return &QuadrantClassifier{boundary: boundary, nearKm: nearKm}
}

// Classify implements BoundaryClassifier.
func (c *QuadrantClassifier) Classify(lon, lat float64) (inland, known bool) {
	if c.boundary.Empty() {
		return false, false
	}

	var ne, sw, se, nw, near bool
	for _, p := range c.boundary.points {
		dx := p.Lon - lon
		dy := p.Lat - lat
		switch {
		case dx > 0 && dy > 0:
			ne = true
		case dx < 0 && dy < 0:
			sw = true
		case dx > 0 && dy < 0:
			se = true
		case dx < 0 && dy > 0:
			nw = true
		}
		if DistanceKm(lat, lon, p.Lat, p.Lon) < c.nearKm {
			near = true
		}

		if (ne && sw && se && nw) || near {
			return true, true
		}
	}
	return false, true
}

// RayCastClassifier treats the boundary as a closed ring and applies the
// even-odd rule. Points on an edge count as inland.
type RayCastClassifier struct {
	boundary Boundary
}

// NewRayCastClassifier builds the point-in-polygon classifier.
func NewRayCastClassifier(boundary Boundary) *RayCastClassifier {
	return &RayCastClassifier{boundary: boundary}
}

// Classify implements BoundaryClassifier. Fewer than three vertices cannot
// enclose anything and classify as offshore.
func (c *RayCastClassifier) Classify(lon, lat float64) (inland, known bool) {
	pts := c.boundary.points
	if len(pts) == 0 {
		return false, false
	}
	if len(pts) < 3 {
		return false, true
	}

	inside := false
	j := len(pts) - 1
	for i := range pts {
		pi, pj := pts[i], pts[j]
		if onSegment(pi, pj, lon, lat) {
			return true, true
		}
		if (pi.Lat > lat) != (pj.Lat > lat) {
			crossLon := (pj.Lon-pi.Lon)*(lat-pi.Lat)/(pj.Lat-pi.Lat) + pi.Lon
			if lon < crossLon {
				inside = !inside
			}
		}
		j = i
	}
	return inside, true
}

func onSegment(a, b BoundaryPoint, lon, lat float64) bool {
	const eps = 1e-9
	cross := (b.Lon-a.Lon)*(lat-a.Lat) - (b.Lat-a.Lat)*(lon-a.Lon)
	if math.Abs(cross) > eps {
		return false
	}
	return lon >= math.Min(a.Lon, b.Lon)-eps && lon <= math.Max(a.Lon, b.Lon)+eps &&
		lat >= math.Min(a.Lat, b.Lat)-eps && lat <= math.Max(a.Lat, b.Lat)+eps
}
