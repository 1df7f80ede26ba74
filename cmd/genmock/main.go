// Command genmock writes deterministic synthetic fixtures: an EEW_ALL event
// file, a coastline boundary, and the summary the analyzer produces for them.
// It runs the real domain package so the summary matches pipeline behavior.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -events-out data/mock/EEW_ALL-mock.txt \
//	  -boundary-out data/mock/taiwan-mock.txt \
//	  -summary-out data/mock/EEW_ALL-mock.summary.json
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/eews-analyzer/internal/domain"
)

// Rough ellipse around Taiwan's main island.
const (
	centerLon = 121.0
	centerLat = 23.7
	radiusLon = 0.75
	radiusLat = 1.75
)

var (
	firstOrigin = time.Date(2014, time.January, 1, 0, 0, 0, 0, time.UTC)
	lastOrigin  = time.Date(2025, time.December, 31, 0, 0, 0, 0, time.UTC)
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	eventsOut := flag.String("events-out", "", "output path for the EEW_ALL event file")
	boundaryOut := flag.String("boundary-out", "", "output path for the boundary file")
	summaryOut := flag.String("summary-out", "", "optional output path for the expected summary JSON")
	count := flag.Int("n", 500, "number of events")
	malformed := flag.Int("malformed", 3, "number of malformed lines to inject")
	points := flag.Int("boundary-points", 72, "number of boundary vertices")
	seed := flag.Uint64("seed", 2014, "random seed")
	flag.Parse()

	if *eventsOut == "" || *boundaryOut == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -events-out, -boundary-out")
	}
	if *count < 1 || *points < 3 {
		return fmt.Errorf("need at least 1 event and 3 boundary points")
	}

	rng := rand.New(rand.NewPCG(*seed, *seed^0x5eed))

	boundary := genBoundary(*points)
	if err := writeBoundary(*boundaryOut, boundary); err != nil {
		return fmt.Errorf("writing boundary: %w", err)
	}
	log.Printf("wrote boundary: %s (%d points)", *boundaryOut, len(boundary))

	lines := genEvents(rng, *count, *malformed)
	if err := writeLines(*eventsOut, lines); err != nil {
		return fmt.Errorf("writing events: %w", err)
	}
	log.Printf("wrote events: %s (%d lines)", *eventsOut, len(lines))

	summary, err := summarize(*eventsOut, boundary)
	if err != nil {
		return err
	}
	if *summaryOut != "" {
		if err := writeJSON(*summaryOut, summary); err != nil {
			return fmt.Errorf("writing summary: %w", err)
		}
		log.Printf("wrote summary: %s", *summaryOut)
	}

	printStats(summary)
	return nil
}

func genBoundary(n int) []domain.BoundaryPoint {
	pts := make([]domain.BoundaryPoint, n)
	for i := range pts {
		theta := 2 * math.Pi * float64(i) / float64(n)
		pts[i] = domain.BoundaryPoint{
			Lon: round(centerLon+radiusLon*math.Cos(theta), 4),
			Lat: round(centerLat+radiusLat*math.Sin(theta), 4),
		}
	}
	return pts
}

func genEvents(rng *rand.Rand, n, malformed int) []string {
	lines := make([]string, 0, n+malformed+1)
	lines = append(lines, "Type ID Origin_Time Cat_Lon Cat_Lat Cat_Mag Cat_Dep EEW_Lon EEW_Lat EEW_Mag EEW_Dep Pro_Time")

	span := lastOrigin.Sub(firstOrigin)
	for i := 1; i <= n; i++ {
		origin := firstOrigin.Add(time.Duration(rng.Int64N(int64(span)))).Format("2006-01-02T15:04:05")
		lon := uniform(rng, 119.5, 122.8)
		lat := uniform(rng, 21.6, 25.6)
		mag := uniform(rng, 4.0, 7.2)
		depth := uniform(rng, 2, 70)
		cat := fmt.Sprintf("%d %s %.3f %.3f %.1f %.1f", i, origin, lon, lat, mag, depth)

		switch r := rng.Float64(); {
		case r < 0.7:
			// Alert error grows with processing time, as in real reports.
			proc := uniform(rng, 5, 38)
			spread := 0.02 + proc/600
			line := fmt.Sprintf("eY %s %.3f %.3f %.1f %.1f %.1f", cat,
				lon+rng.NormFloat64()*spread,
				lat+rng.NormFloat64()*spread,
				math.Max(mag+rng.NormFloat64()*0.3, 3.0),
				math.Max(depth+rng.NormFloat64()*8, 1),
				proc,
			)
			if rng.Float64() < 0.2 {
				line += fmt.Sprintf(" %.1f", proc-uniform(rng, 0.5, 4))
			}
			lines = append(lines, line)
		case r < 0.9:
			lines = append(lines, "eN "+cat)
		default:
			lines = append(lines, "eL "+cat)
		}
	}

	bad := []string{
		"eX 0 2020-01-01T00:00:00 121 23 5 10",
		"eY 0 2020-01-01T00:00:00 121.0 north 5.0 10",
		"eY short",
	}
	for i := range malformed {
		pos := 1 + rng.IntN(len(lines)-1)
		lines = append(lines[:pos], append([]string{bad[i%len(bad)]}, lines[pos:]...)...)
	}
	return lines
}

func summarize(eventsPath string, boundary []domain.BoundaryPoint) (domain.Summary, error) {
	f, err := os.Open(eventsPath)
	if err != nil {
		return domain.Summary{}, err
	}
	defer f.Close()

	parsed, err := domain.ParseRecords(f)
	if err != nil {
		return domain.Summary{}, fmt.Errorf("parse generated events: %w", err)
	}
	classifier := domain.NewQuadrantClassifier(domain.NewBoundary(boundary), domain.DefaultNearBoundaryKm)
	// A fixed timestamp keeps the summary reproducible.
	return domain.Aggregate(domain.AnalyzeRecords(parsed.Records, classifier), lastOrigin.Add(24*time.Hour)), nil
}

func writeBoundary(path string, pts []domain.BoundaryPoint) error {
	lines := make([]string, len(pts))
	for i, p := range pts {
		lines[i] = fmt.Sprintf("%.4f %.4f", p.Lon, p.Lat)
	}
	return writeLines(path, lines)
}

func writeLines(path string, lines []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	for _, l := range lines {
		if _, err := w.WriteString(l + "\n"); err != nil {
			f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func printStats(s domain.Summary) {
	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Total: %d\n", s.TotalEvents)
	fmt.Printf("By type: detected=%d, missed=%d, late=%d\n", s.Detected, s.Missed, s.LateOrLowConfidence)
	if s.DetectionRate != nil {
		fmt.Printf("Detection rate: %.2f%%\n", *s.DetectionRate)
	}
	fmt.Printf("Epicenter error: mean=%.3f median=%.3f rms=%.3f km\n",
		s.Overall.EpicenterErrorKm.Mean, s.Overall.EpicenterErrorKm.Median, s.Overall.EpicenterErrorKm.RMS)
	if s.Inland != nil && s.Offshore != nil {
		fmt.Printf("Inland: %d, Offshore: %d\n", s.Inland.Count, s.Offshore.Count)
	}
	for _, b := range s.ProcessingTimeBuckets {
		fmt.Printf("  %-8s %d\n", b.Label, b.Stats.Count)
	}
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
