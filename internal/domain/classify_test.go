package domain

import (
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// squareRing is a closed ring around most of Taiwan.
var squareRing = []BoundaryPoint{
	{Lon: 120, Lat: 22},
	{Lon: 122, Lat: 22},
	{Lon: 122, Lat: 25},
	{Lon: 120, Lat: 25},
}

// uRing is a U-shaped coastline open to the north between lon 121 and 122.
var uRing = []BoundaryPoint{
	{Lon: 120, Lat: 22},
	{Lon: 123, Lat: 22},
	{Lon: 123, Lat: 25},
	{Lon: 122, Lat: 25},
	{Lon: 122, Lat: 23},
	{Lon: 121, Lat: 23},
	{Lon: 121, Lat: 25},
	{Lon: 120, Lat: 25},
}

func classify(t *testing.T, c BoundaryClassifier, lon, lat float64) bool {
	t.Helper()
	inland, known := c.Classify(lon, lat)
	require.True(t, known)
	return inland
}

func TestQuadrantClassifier(t *testing.T) {
	c := NewQuadrantClassifier(NewBoundary(squareRing), DefaultNearBoundaryKm)

	tests := []struct {
		name     string
		lon, lat float64
		inland   bool
	}{
		{"strictly inside", 121.0, 23.5, true},
		{"far outside", 130.0, 30.0, false},
		{"outside to the west", 118.0, 23.5, false},
		{"within 1 km of a vertex, inside", 120.002, 22.002, true},
		{"within 1 km of a vertex, outside", 119.998, 21.998, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.inland, classify(t, c, tt.lon, tt.lat))
		})
	}
}

func TestQuadrantClassifier_EmptyBoundaryUnknown(t *testing.T) {
	c := NewQuadrantClassifier(Boundary{}, DefaultNearBoundaryKm)
	inland, known := c.Classify(121.0, 23.5)
	assert.False(t, known)
	assert.False(t, inland)
}

func TestQuadrantClassifier_OrderIndependent(t *testing.T) {
	reversed := slices.Clone(squareRing)
	slices.Reverse(reversed)

	forward := NewQuadrantClassifier(NewBoundary(squareRing), DefaultNearBoundaryKm)
	backward := NewQuadrantClassifier(NewBoundary(reversed), DefaultNearBoundaryKm)

	for _, p := range [][2]float64{{121.0, 23.5}, {130.0, 30.0}, {120.5, 24.9}, {123.0, 23.0}} {
		assert.Equal(t, classify(t, forward, p[0], p[1]), classify(t, backward, p[0], p[1]), "point %v", p)
	}
}

func TestQuadrantClassifier_AxisAlignedVerticesSetNoQuadrant(t *testing.T) {
	// Every vertex shares the point's meridian or parallel.
	cross := NewBoundary([]BoundaryPoint{
		{Lon: 121, Lat: 25}, {Lon: 123, Lat: 23.5}, {Lon: 121, Lat: 22}, {Lon: 119, Lat: 23.5},
	})
	c := NewQuadrantClassifier(cross, DefaultNearBoundaryKm)
	assert.False(t, classify(t, c, 121, 23.5))
}

func TestQuadrantClassifier_NearThreshold(t *testing.T) {
	single := NewBoundary([]BoundaryPoint{{Lon: 121.005, Lat: 23.5}}) // ~0.51 km east

	assert.True(t, classify(t, NewQuadrantClassifier(single, 1.0), 121.0, 23.5))
	assert.False(t, classify(t, NewQuadrantClassifier(single, 0.5), 121.0, 23.5))
	assert.True(t, classify(t, NewQuadrantClassifier(single, 0), 121.0, 23.5), "non-positive threshold uses default")
}

func TestQuadrantClassifier_ConcaveNotchIsInland(t *testing.T) {
	// The heuristic only asks whether vertices surround the point, so a point
	// in the U's notch still counts as inland.
	c := NewQuadrantClassifier(NewBoundary(uRing), DefaultNearBoundaryKm)
	assert.True(t, classify(t, c, 121.5, 24))
}

func TestRayCastClassifier(t *testing.T) {
	c := NewRayCastClassifier(NewBoundary(uRing))

	tests := []struct {
		name     string
		lon, lat float64
		inland   bool
	}{
		{"inside west arm", 120.5, 24, true},
		{"inside east arm", 122.5, 24, true},
		{"inside base", 121.5, 22.5, true},
		{"in the notch", 121.5, 24, false},
		{"far outside", 130, 30, false},
		{"on an edge", 121, 24, true},
		{"on a vertex", 120, 22, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.inland, classify(t, c, tt.lon, tt.lat))
		})
	}
}

func TestRayCastClassifier_Degenerate(t *testing.T) {
	_, known := NewRayCastClassifier(Boundary{}).Classify(121, 23)
	assert.False(t, known)

	line := NewBoundary([]BoundaryPoint{{Lon: 120, Lat: 22}, {Lon: 122, Lat: 25}})
	assert.False(t, classify(t, NewRayCastClassifier(line), 121, 23))
}

func TestLoadBoundary(t *testing.T) {
	t.Run("reads lon lat pairs in order", func(t *testing.T) {
		input := "120.0 22.0\n\n122.0 22.0 extra\nshort\n122.0 25.0\n"
		b, err := LoadBoundary(strings.NewReader(input))
		require.NoError(t, err)
		assert.Equal(t, 3, b.Len())
		assert.Equal(t, []BoundaryPoint{{120, 22}, {122, 22}, {122, 25}}, b.Points())
	})

	t.Run("empty input", func(t *testing.T) {
		b, err := LoadBoundary(strings.NewReader(""))
		require.NoError(t, err)
		assert.True(t, b.Empty())
	})

	t.Run("bad number", func(t *testing.T) {
		_, err := LoadBoundary(strings.NewReader("120.0 22.0\n121.0 north\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "boundary line 2")
	})

	t.Run("non-finite coordinates", func(t *testing.T) {
		for _, input := range []string{"120.0 22.0\nNaN 23.0\n", "120.0 22.0\n121.0 +Inf\n"} {
			_, err := LoadBoundary(strings.NewReader(input))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrNonFinite)
			assert.Contains(t, err.Error(), "boundary line 2")
		}
	})

	t.Run("points are copies", func(t *testing.T) {
		src := slices.Clone(squareRing)
		b := NewBoundary(src)
		src[0].Lon = 0

		pts := b.Points()
		pts[1].Lat = 0

		assert.Equal(t, squareRing, b.Points())
	})
}
