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

// ErrMalformedLine marks a line that cannot become an EarthquakeRecord.
// Callers skip such lines and keep going.
var ErrMalformedLine = errors.New("malformed line")

const (
	minTokens          = 7
	alertTokens        = 12
	secondaryTimeToken = 12
)

// maxLineBytes bounds a single input line; real files stay well under 1 KiB.
// Longer lines are reported as malformed.
const maxLineBytes = 64 * 1024

// LineError describes one skipped line.
type LineError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// ParseResult is the outcome of parsing a whole event file.
type ParseResult struct {
	Records   []EarthquakeRecord
	Malformed []LineError
}

// ParseRecords reads an event file. The first line is a header and is always
// skipped, as are blank lines. Malformed lines are collected in the result
// instead of failing the batch; only read errors are returned.
func ParseRecords(r io.Reader) (ParseResult, error) {
	var res ParseResult

	br := bufio.NewReader(r)

	lineNum := 0
	for {
		line, tooLong, err := readLine(br)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, fmt.Errorf("read event file at line %d: %w", lineNum+1, err)
		}
		lineNum++
		if lineNum == 1 {
			continue
		}
		if tooLong {
			reason := fmt.Errorf("%w: longer than %d bytes", ErrMalformedLine, maxLineBytes)
			res.Malformed = append(res.Malformed, LineError{Line: lineNum, Reason: reason.Error()})
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		rec, err := ParseLine(line)
		if err != nil {
			res.Malformed = append(res.Malformed, LineError{Line: lineNum, Reason: err.Error()})
			continue
		}
		res.Records = append(res.Records, rec)
	}
	return res, nil
}

// readLine returns the next line without its terminator. A line over
// maxLineBytes is consumed in full but returned empty with tooLong set.
// io.EOF is returned only when no bytes remain.
func readLine(br *bufio.Reader) (string, bool, error) {
	var buf []byte
	tooLong := false
	for {
		chunk, isPrefix, err := br.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) && (len(buf) > 0 || tooLong) {
				return string(buf), tooLong, nil
			}
			return "", false, err
		}
		if !tooLong {
			if len(buf)+len(chunk) > maxLineBytes {
				tooLong, buf = true, nil
			} else {
				buf = append(buf, chunk...)
			}
		}
		if !isPrefix {
			return string(buf), tooLong, nil
		}
	}
}

// ParseLine converts one data line into an EarthquakeRecord. Every error it
// returns wraps ErrMalformedLine.
func ParseLine(line string) (EarthquakeRecord, error) {
	tokens := strings.Fields(line)
	if len(tokens) < minTokens {
		return EarthquakeRecord{}, fmt.Errorf("%w: %d tokens, need at least %d", ErrMalformedLine, len(tokens), minTokens)
	}
	if len(tokens[0]) < 2 {
		return EarthquakeRecord{}, fmt.Errorf("%w: type code %q too short", ErrMalformedLine, tokens[0])
	}
	typeCode, ok := parseTypeCode(tokens[0][1])
	if !ok {
		return EarthquakeRecord{}, fmt.Errorf("%w: unknown type flag %q in %q", ErrMalformedLine, tokens[0][1], tokens[0])
	}

	catalog, err := parseHypocenter(tokens[3:7], "catalog")
	if err != nil {
		return EarthquakeRecord{}, err
	}

	rec := EarthquakeRecord{
		Type:       typeCode,
		RawType:    tokens[0],
		ID:         tokens[1],
		OriginTime: tokens[2],
		Catalog:    catalog,
	}

	if typeCode != Detected || len(tokens) < alertTokens {
		return rec, nil
	}

	alert, err := parseAlert(tokens)
	if err != nil {
		return EarthquakeRecord{}, err
	}
	rec.Alert = &alert
	return rec, nil
}

func parseAlert(tokens []string) (Alert, error) {
	hypo, err := parseHypocenter(tokens[7:11], "alert")
	if err != nil {
		return Alert{}, err
	}
	procTime, err := parseField(tokens[11], "alert processing time")
	if err != nil {
		return Alert{}, err
	}

	alert := Alert{Hypocenter: hypo, ProcessingTimeS: procTime}
	if len(tokens) > secondaryTimeToken {
		secondary, err := parseField(tokens[secondaryTimeToken], "secondary processing time")
		if err != nil {
			return Alert{}, err
		}
		alert.SecondaryProcessingTimeS = &secondary
	}
	return alert, nil
}

// parseHypocenter reads lon, lat, magnitude, depth from exactly four tokens.
func parseHypocenter(tokens []string, label string) (Hypocenter, error) {
	names := [4]string{"lon", "lat", "magnitude", "depth"}
	var vals [4]float64
	for i, tok := range tokens[:4] {
		v, err := parseField(tok, label+" "+names[i])
		if err != nil {
			return Hypocenter{}, err
		}
		vals[i] = v
	}
	return Hypocenter{Lon: vals[0], Lat: vals[1], Magnitude: vals[2], DepthKm: vals[3]}, nil
}

func parseField(tok, name string) (float64, error) {
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not a number", ErrMalformedLine, name, tok)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %s %q is not finite", ErrMalformedLine, name, tok)
	}
	return v, nil
}
