package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Region is an inclusive lon/lat bounding box.
type Region struct {
	MinLon float64 `json:"min_lon"`
	MaxLon float64 `json:"max_lon"`
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
}

// World covers every valid coordinate.
var World = Region{MinLon: -180, MaxLon: 180, MinLat: -90, MaxLat: 90}

// Contains reports whether (lon, lat) lies inside the box, edges included.
func (r Region) Contains(lon, lat float64) bool {
	return lon >= r.MinLon && lon <= r.MaxLon && lat >= r.MinLat && lat <= r.MaxLat
}

// ParseRegion reads "minLon,maxLon,minLat,maxLat".
func ParseRegion(s string) (Region, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Region{}, fmt.Errorf("region %q: want minLon,maxLon,minLat,maxLat", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Region{}, fmt.Errorf("region %q: %w", s, err)
		}
		v[i] = f
	}
	r := Region{MinLon: v[0], MaxLon: v[1], MinLat: v[2], MaxLat: v[3]}
	if r.MinLon > r.MaxLon || r.MinLat > r.MaxLat {
		return Region{}, fmt.Errorf("region %q: min exceeds max", s)
	}
	return r, nil
}

// Filter selects records by catalog parameters. Nil fields do not filter.
// All bounds are inclusive.
type Filter struct {
	MinMagnitude *float64 `json:"min_magnitude,omitempty"`
	MaxMagnitude *float64 `json:"max_magnitude,omitempty"`
	MaxDepthKm   *float64 `json:"max_depth_km,omitempty"`
	Region       *Region  `json:"region,omitempty"`
	Year         *int     `json:"year,omitempty"`
}

// IsZero reports whether the filter keeps every record.
func (f Filter) IsZero() bool {
	return f.MinMagnitude == nil && f.MaxMagnitude == nil && f.MaxDepthKm == nil && f.Region == nil && f.Year == nil
}

// WithRegion returns a copy of f restricted to r.
func (f Filter) WithRegion(r Region) Filter {
	f.Region = &r
	return f
}

// Matches reports whether a record passes every set criterion. Records whose
// origin time has no recognizable year never match a year filter.
func (f Filter) Matches(rec EarthquakeRecord) bool {
	cat := rec.Catalog
	if f.MinMagnitude != nil && cat.Magnitude < *f.MinMagnitude {
		return false
	}
	if f.MaxMagnitude != nil && cat.Magnitude > *f.MaxMagnitude {
		return false
	}
	if f.MaxDepthKm != nil && cat.DepthKm > *f.MaxDepthKm {
		return false
	}
	if f.Region != nil && !f.Region.Contains(cat.Lon, cat.Lat) {
		return false
	}
	if f.Year != nil {
		year, ok := OriginYear(rec.OriginTime)
		if !ok || year != *f.Year {
			return false
		}
	}
	return true
}

// Apply returns the records that match. The input is not modified.
func (f Filter) Apply(records []AnalyzedRecord) []AnalyzedRecord {
	if f.IsZero() {
		return records
	}
	out := make([]AnalyzedRecord, 0, len(records))
	for _, r := range records {
		if f.Matches(r.EarthquakeRecord) {
			out = append(out, r)
		}
	}
	return out
}

var originTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006/01/02,15:04:05.999999999",
	"2006/01/02-15:04:05.999999999",
	"2006-01-02",
	"20060102150405",
}

// OriginTime parses the origin-time token with the layouts seen in event files.
func OriginTime(s string) (time.Time, bool) {
	for _, layout := range originTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// OriginYear extracts the year of an origin-time token. Unknown layouts fall
// back to a leading four-digit year.
func OriginYear(s string) (int, bool) {
	if t, ok := OriginTime(s); ok {
		return t.Year(), true
	}
	if len(s) >= 4 {
		if y, err := strconv.Atoi(s[:4]); err == nil && y > 0 {
			return y, true
		}
	}
	return 0, false
}
