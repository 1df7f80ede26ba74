package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceKm(t *testing.T) {
	t.Run("self distance is zero", func(t *testing.T) {
		for _, p := range [][2]float64{{23.0, 121.0}, {0, 0}, {-33.9, 151.2}, {25.3, 119.5}} {
			assert.Zero(t, DistanceKm(p[0], p[1], p[0], p[1]))
		}
	})

	t.Run("symmetric", func(t *testing.T) {
		pairs := [][4]float64{
			{23.0, 121.0, 23.05, 121.1},
			{21.9, 120.1, 25.3, 122.0},
			{24.5, 121.8, 22.0, 119.9},
		}
		for _, p := range pairs {
			assert.InDelta(t, DistanceKm(p[0], p[1], p[2], p[3]), DistanceKm(p[2], p[3], p[0], p[1]), 1e-12)
		}
	})

	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		expected               float64
	}{
		{"alert offset near Hualien", 23.0, 121.0, 23.05, 121.1, 11.6487},
		{"one degree of longitude at 24N", 24.0, 121.0, 24.0, 122.0, 101.7396},
		{"one degree of latitude", 24.0, 121.0, 25.0, 121.0, 110.7620},
		{"sub-kilometer", 23.5, 121.0, 23.5, 121.005, 0.5106},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, DistanceKm(tt.lat1, tt.lon1, tt.lat2, tt.lon2), 1e-3)
		})
	}
}
