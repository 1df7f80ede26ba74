// Package domain models earthquake early-warning (EEW) performance data and the
// pure computations over it: record parsing, approximate distance, inland
// classification, per-event errors, and summary statistics.
//
// # Data Source
//
// Event files ("EEW_ALL-<year1>-<year2>.txt") are produced by the regional
// network's EEW bookkeeping. Each catalog event is paired with the first alert
// the EEW system issued for it, if any. The first line is a header and is
// always discarded.
//
// # Line Format
//
// Whitespace-delimited tokens, addressed by position:
//
//	token[0]      type code; the 2nd character is the outcome flag
//	token[1]      event ID
//	token[2]      origin time (opaque string)
//	token[3..6]   catalog lon, lat, magnitude, depth (km)
//	token[7..11]  alert lon, lat, magnitude, depth (km), processing time (s)
//	token[12]     secondary (revised) processing time (s), optional
//
// Outcome flags:
//
//	Y  alert issued and matched to the catalog event (Detected)
//	N  no alert issued (Missed)
//	L  late or low-confidence alert, counted as a miss (LateOrLowConfidence)
//
// Alert tokens are only read for Y lines carrying at least 12 tokens. Lines
// with fewer than 7 tokens, an unknown flag, or any unparseable number are
// rejected as malformed and skipped; they never abort a batch.
//
// # Missing Values
//
// Absent values are nil pointers, never zero. A record without an alert has
// nil epicenter, magnitude, and depth errors, and a record analyzed without a
// boundary has a nil IsInland. Aggregation skips nil values instead of
// counting them as zero.
//
// # Distance
//
// [DistanceKm] is the regional flat-earth approximation used by the network's
// legacy tooling: latitude-dependent arc-minute scale factors from fixed cubic
// polynomials. It is accurate to a few hundred kilometers around Taiwan and is
// not a geodesic.
//
// # Inland Classification
//
// [QuadrantClassifier] reproduces the historical "surrounded by coastline"
// heuristic so results stay comparable with earlier reports. It is not a
// point-in-polygon test; [RayCastClassifier] is the even-odd alternative.
//
// # Processing-Time Buckets
//
//	<=10 | (10,15] | (15,20] | (20,25] | (25,30] | >30   seconds
//
// The first bucket is wider than the rest. This matches the published maps.
package domain
