package domain

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// BoundaryPoint is one vertex of the coastline polyline.
type BoundaryPoint struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Boundary is an ordered, read-only coastline polyline. The zero value is an
// empty boundary, which disables inland classification.
type Boundary struct {
	points []BoundaryPoint
}

// NewBoundary copies points into a Boundary. Order is preserved; it drives the
// quadrant classifier's traversal.
func NewBoundary(points []BoundaryPoint) Boundary {
	cp := make([]BoundaryPoint, len(points))
	copy(cp, points)
	return Boundary{points: cp}
}

// Len returns the number of vertices.
func (b Boundary) Len() int { return len(b.points) }

// Empty reports whether the boundary has no vertices.
func (b Boundary) Empty() bool { return len(b.points) == 0 }

// Points returns a copy of the vertices.
func (b Boundary) Points() []BoundaryPoint {
	cp := make([]BoundaryPoint, len(b.points))
	copy(cp, b.points)
	return cp
}

// LoadBoundary reads "lon lat" lines. Blank lines and lines with fewer than
// two tokens are skipped; extra tokens are ignored. A token that is not a
// finite number is an error, since a silently truncated coastline would
// misclassify events.
func LoadBoundary(r io.Reader) (Boundary, error) {
	var points []BoundaryPoint

	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		lon, err := parseCoordinate(fields[0])
		if err != nil {
			return Boundary{}, fmt.Errorf("boundary line %d: lon %q: %w", lineNum, fields[0], err)
		}
		lat, err := parseCoordinate(fields[1])
		if err != nil {
			return Boundary{}, fmt.Errorf("boundary line %d: lat %q: %w", lineNum, fields[1], err)
		}
		points = append(points, BoundaryPoint{Lon: lon, Lat: lat})
	}
	if err := scanner.Err(); err != nil {
		return Boundary{}, fmt.Errorf("read boundary: %w", err)
	}
	return Boundary{points: points}, nil
}

// ErrNonFinite is returned for NaN or infinite boundary coordinates.
var ErrNonFinite = errors.New("not a finite number")

func parseCoordinate(tok string) (float64, error) {
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrNonFinite
	}
	return v, nil
}
