// Command validate performs data integrity checks on an EEW_ALL event file and
// its coastline boundary: parse failures, field ranges, duplicate IDs,
// detections without alert parameters, and boundary sanity. It exits non-zero
// when any phase fails.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -events EEW_ALL-2014-2025.txt \
//	  -boundary taiwan.txt \
//	  -max-malformed 0
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/couchcryptid/eews-analyzer/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	eventsPath := flag.String("events", "", "path to the EEW_ALL event file")
	boundaryPath := flag.String("boundary", "", "path to the boundary file (optional)")
	maxMalformed := flag.Int("max-malformed", 0, "malformed lines tolerated before the parse phase fails")
	flag.Parse()

	if *eventsPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*eventsPath, *boundaryPath, *maxMalformed); code != 0 {
		os.Exit(code)
	}
}

func run(eventsPath, boundaryPath string, maxMalformed int) int {
	fmt.Println("=== EEW Data Integrity Validation ===")
	fmt.Println()

	parsed, err := loadEvents(eventsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load events: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateParse(parsed, maxMalformed),
		validateRecords(parsed.Records),
	}

	var boundary domain.Boundary
	if boundaryPath != "" {
		boundary, err = loadBoundary(boundaryPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load boundary: %v\n", err)
			return 1
		}
		phases = append(phases, validateBoundary(boundary))
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	printCounts(parsed, boundary)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func loadEvents(path string) (domain.ParseResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.ParseResult{}, err
	}
	defer f.Close()
	return domain.ParseRecords(f)
}

func loadBoundary(path string) (domain.Boundary, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.Boundary{}, err
	}
	defer f.Close()
	return domain.LoadBoundary(f)
}

func validateParse(parsed domain.ParseResult, maxMalformed int) *phase {
	p := &phase{name: "Phase 1: Event file parses"}
	if len(parsed.Records) == 0 {
		p.errorf("no data lines")
	}
	if len(parsed.Malformed) > maxMalformed {
		for _, le := range parsed.Malformed {
			p.errorf("line %d: %s", le.Line, le.Reason)
		}
	}
	return p
}

func validateRecords(records []domain.EarthquakeRecord) *phase {
	p := &phase{name: "Phase 2: Record field integrity"}
	seen := make(map[string]int, len(records))

	for i, r := range records {
		if prev, dup := seen[r.ID]; dup {
			p.errorf("record %d: duplicate id %s (first at record %d)", i+1, r.ID, prev)
		} else {
			seen[r.ID] = i + 1
		}

		checkHypocenter(p, i+1, r.ID, "catalog", r.Catalog)
		if _, ok := domain.OriginYear(r.OriginTime); !ok {
			p.errorf("record %d (id %s): origin time %q has no recognizable year", i+1, r.ID, r.OriginTime)
		}

		switch {
		case r.Type == domain.Detected && r.Alert == nil:
			p.errorf("record %d (id %s): detected event without alert parameters", i+1, r.ID)
		case r.Alert != nil:
			checkHypocenter(p, i+1, r.ID, "alert", r.Alert.Hypocenter)
			if r.Alert.ProcessingTimeS <= 0 {
				p.errorf("record %d (id %s): non-positive processing time %g", i+1, r.ID, r.Alert.ProcessingTimeS)
			}
		}
	}
	return p
}

func checkHypocenter(p *phase, idx int, id, label string, h domain.Hypocenter) {
	if h.Lat < -90 || h.Lat > 90 || h.Lon < -180 || h.Lon > 180 {
		p.errorf("record %d (id %s): %s epicenter (%g, %g) out of range", idx, id, label, h.Lon, h.Lat)
	}
	if h.Magnitude < 0 || h.Magnitude > 10 {
		p.errorf("record %d (id %s): %s magnitude %g out of range", idx, id, label, h.Magnitude)
	}
	if h.DepthKm < 0 {
		p.errorf("record %d (id %s): %s depth %g is negative", idx, id, label, h.DepthKm)
	}
}

func validateBoundary(b domain.Boundary) *phase {
	p := &phase{name: "Phase 3: Boundary sanity"}
	pts := b.Points()
	if len(pts) < 3 {
		p.errorf("boundary has %d points; need at least 3", len(pts))
	}
	for i, pt := range pts {
		if pt.Lat < -90 || pt.Lat > 90 || pt.Lon < -180 || pt.Lon > 180 {
			p.errorf("point %d (%g, %g) out of range", i+1, pt.Lon, pt.Lat)
		}
		if i > 0 && pt == pts[i-1] {
			p.errorf("point %d repeats point %d", i+1, i)
		}
	}
	return p
}

func printCounts(parsed domain.ParseResult, boundary domain.Boundary) {
	counts := map[domain.TypeCode]int{}
	var withSecondary int
	for _, r := range parsed.Records {
		counts[r.Type]++
		if r.Alert != nil && r.Alert.SecondaryProcessingTimeS != nil {
			withSecondary++
		}
	}
	fmt.Printf("Records: %d parsed, %d malformed\n", len(parsed.Records), len(parsed.Malformed))
	fmt.Print("By type:")
	for _, t := range []domain.TypeCode{domain.Detected, domain.Missed, domain.LateOrLowConfidence} {
		fmt.Printf(" %s=%d", t, counts[t])
	}
	fmt.Println()
	fmt.Printf("With secondary processing time: %d\n", withSecondary)

	if boundary.Empty() {
		return
	}
	classifier := domain.NewQuadrantClassifier(boundary, domain.DefaultNearBoundaryKm)
	var inland, offshore int
	for _, r := range domain.AnalyzeRecords(parsed.Records, classifier) {
		if r.IsInland == nil {
			continue
		}
		if *r.IsInland {
			inland++
		} else {
			offshore++
		}
	}
	fmt.Printf("Boundary: %d points; inland=%d, offshore=%d\n", boundary.Len(), inland, offshore)
}
