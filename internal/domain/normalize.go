package domain

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	dateLayout        = "2006-01-02"
	compactDateLayout = "20060102"

	// missingSentinel is the archive's marker for an unreported measurement.
	missingSentinel = -9999
)

// NormalizeResult is the Normalizer output: canonical records ordered by date
// (historical before realtime on the same date) plus what was dropped.
type NormalizeResult struct {
	Records    []CanonicalRecord
	Rejected   int
	Rejections []*MalformedRecordError
	// Superseded counts records replaced by a later record with the same (date, source).
	Superseded int
}

// RejectedBy returns how many records of the given source were rejected.
func (r NormalizeResult) RejectedBy(source Source) int {
	n := 0
	for _, rej := range r.Rejections {
		if rej.Source == source {
			n++
		}
	}
	return n
}

// Historical returns the historical subsequence, in order.
func (r NormalizeResult) Historical() []CanonicalRecord {
	out := make([]CanonicalRecord, 0, len(r.Records))
	for _, rec := range r.Records {
		if rec.Source == SourceHistorical {
			out = append(out, rec)
		}
	}
	return out
}

type recordKey struct {
	day    int64
	source Source
}

// Normalizer maps raw records of either shape into canonical records. Input can
// be fed in chunks; the result does not depend on where chunks are split, only
// on arrival order (later records win on a (date, source) collision).
type Normalizer struct {
	params     Params
	records    map[recordKey]CanonicalRecord
	seen       map[Source]int
	rejections []*MalformedRecordError
	superseded int
}

// NewNormalizer creates a Normalizer using the unit defaults and timezone in params.
func NewNormalizer(params Params) *Normalizer {
	return &Normalizer{
		params:  params,
		records: make(map[recordKey]CanonicalRecord),
		seen:    make(map[Source]int),
	}
}

// AddHistorical normalizes a chunk of archive rows.
func (n *Normalizer) AddHistorical(recs ...RawHistoricalRecord) {
	for _, r := range recs {
		n.Add(r)
	}
}

// AddRealtime normalizes a chunk of live readings.
func (n *Normalizer) AddRealtime(recs ...RawRealtimeRecord) {
	for _, r := range recs {
		n.Add(r)
	}
}

// Add normalizes a single raw record of either shape.
func (n *Normalizer) Add(raw RawRecord) {
	src := raw.source()
	idx := n.seen[src]
	n.seen[src]++

	var (
		rec CanonicalRecord
		err *MalformedRecordError
	)
	switch r := raw.(type) {
	case RawHistoricalRecord:
		rec, err = n.normalizeHistorical(r)
	case *RawHistoricalRecord:
		rec, err = n.normalizeHistorical(*r)
	case RawRealtimeRecord:
		rec, err = n.normalizeRealtime(r)
	case *RawRealtimeRecord:
		rec, err = n.normalizeRealtime(*r)
	}
	if err != nil {
		err.Source = src
		err.Index = idx
		n.rejections = append(n.rejections, err)
		return
	}

	key := recordKey{day: rec.Date.Unix(), source: rec.Source}
	if _, dup := n.records[key]; dup {
		n.superseded++
	}
	n.records[key] = rec
}

// Result returns the canonical records accumulated so far.
func (n *Normalizer) Result() NormalizeResult {
	records := make([]CanonicalRecord, 0, len(n.records))
	for _, rec := range n.records {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].Date.Equal(records[j].Date) {
			return records[i].Date.Before(records[j].Date)
		}
		return sourceRank(records[i].Source) < sourceRank(records[j].Source)
	})

	rejections := make([]*MalformedRecordError, len(n.rejections))
	copy(rejections, n.rejections)

	return NormalizeResult{
		Records:    records,
		Rejected:   len(rejections),
		Rejections: rejections,
		Superseded: n.superseded,
	}
}

// Normalize is the one-shot form of Normalizer.
func Normalize(params Params, hist []RawHistoricalRecord, rt []RawRealtimeRecord) NormalizeResult {
	n := NewNormalizer(params)
	n.AddHistorical(hist...)
	n.AddRealtime(rt...)
	return n.Result()
}

func (n *Normalizer) normalizeHistorical(r RawHistoricalRecord) (CanonicalRecord, *MalformedRecordError) {
	date, err := parseDate(r.Date)
	if err != nil {
		return CanonicalRecord{}, &MalformedRecordError{Field: "date", Value: r.Date, Reason: "unparseable date"}
	}

	tempUnit := r.TempUnit
	if tempUnit == "" {
		tempUnit = Fahrenheit
	}
	if !validTempUnit(tempUnit) {
		return CanonicalRecord{}, &MalformedRecordError{Field: "temp_unit", Value: string(tempUnit), Reason: "unknown temperature unit"}
	}

	precipUnit := r.PrecipUnit
	if precipUnit == "" {
		precipUnit = n.params.HistoricalPrecipUnit
	}
	if !validPrecipUnit(precipUnit) {
		return CanonicalRecord{}, &MalformedRecordError{Field: "prcp_unit", Value: string(precipUnit), Reason: "unknown precipitation unit"}
	}
	if err := checkFinite(measure{"TMAX", r.TMax}, measure{"TMIN", r.TMin}, measure{"PRCP", r.Prcp}); err != nil {
		return CanonicalRecord{}, err
	}

	return CanonicalRecord{
		Date:      date,
		TempMax:   mapValue(r.TMax, func(v float64) float64 { return toCelsius(v, tempUnit) }),
		TempMin:   mapValue(r.TMin, func(v float64) float64 { return toCelsius(v, tempUnit) }),
		Precip:    mapValue(r.Prcp, func(v float64) float64 { return toMillimeters(v, precipUnit) }),
		Source:    SourceHistorical,
		StationID: strings.TrimSpace(r.StationID),
	}, nil
}

func (n *Normalizer) normalizeRealtime(r RawRealtimeRecord) (CanonicalRecord, *MalformedRecordError) {
	ts, err := parseTimestamp(r.Timestamp)
	if err != nil {
		return CanonicalRecord{}, &MalformedRecordError{Field: "timestamp", Value: r.Timestamp, Reason: "unparseable timestamp"}
	}
	if present(r.Temperature) == nil {
		return CanonicalRecord{}, &MalformedRecordError{Field: "temperature", Reason: "missing"}
	}
	if err := checkFinite(measure{"temperature", r.Temperature}, measure{"windspeed", r.WindSpeed}); err != nil {
		return CanonicalRecord{}, err
	}

	unit := r.TempUnit
	if unit == "" {
		unit = n.params.RealtimeTempUnit
	}
	if unit != Celsius && unit != Fahrenheit {
		return CanonicalRecord{}, &MalformedRecordError{Field: "temp_unit", Value: string(unit), Reason: "unknown temperature unit"}
	}

	local := ts
	if n.params.Timezone != nil {
		local = ts.In(n.params.Timezone)
	}

	location := strings.TrimSpace(r.LocationID)
	if location == "" {
		location = n.params.LocationID
	}

	return CanonicalRecord{
		Date:       Date(local.Year(), local.Month(), local.Day()),
		ObservedAt: &local,
		TempMax:    mapValue(r.Temperature, func(v float64) float64 { return toCelsius(v, unit) }),
		WindSpeed:  present(r.WindSpeed),
		Source:     SourceRealtime,
		StationID:  location,
	}, nil
}

// Realtime timestamps: RFC 3339 first, then the ISO 8601 variants without
// seconds or with a basic (+hhmm) offset.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04-0700",
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var firstErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, firstErr)
}

// parseDate accepts ISO dates and the archive's compact YYYYMMDD form.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	layout := dateLayout
	if len(s) == len(compactDateLayout) {
		if _, err := strconv.Atoi(s); err == nil {
			layout = compactDateLayout
		}
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// toCelsius converts a tagged temperature. Celsius values pass through untouched.
func toCelsius(v float64, unit TempUnit) float64 {
	switch unit {
	case Fahrenheit:
		return (v - 32) * 5 / 9
	case FahrenheitTenths:
		return (v/10 - 32) * 5 / 9
	default:
		return v
	}
}

// toMillimeters converts a tagged precipitation amount. Millimeter values pass through.
func toMillimeters(v float64, unit PrecipUnit) float64 {
	switch unit {
	case HundredthsInch:
		return v * 0.254
	case Inch:
		return v * 25.4
	default:
		return v
	}
}

func validTempUnit(u TempUnit) bool {
	switch u {
	case Fahrenheit, FahrenheitTenths, Celsius:
		return true
	}
	return false
}

func validPrecipUnit(u PrecipUnit) bool {
	switch u {
	case HundredthsInch, Inch, Millimeter:
		return true
	}
	return false
}

// present treats nil, NaN and the archive sentinel as "no value".
func present(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) || *v == missingSentinel {
		return nil
	}
	out := *v
	return &out
}

type measure struct {
	field string
	v     *float64
}

// checkFinite rejects ±Inf. NaN is left to present, which reads it as no value.
func checkFinite(ms ...measure) *MalformedRecordError {
	for _, m := range ms {
		if m.v != nil && math.IsInf(*m.v, 0) {
			return &MalformedRecordError{Field: m.field, Value: strconv.FormatFloat(*m.v, 'g', -1, 64), Reason: "non-finite value"}
		}
	}
	return nil
}

func mapValue(v *float64, fn func(float64) float64) *float64 {
	p := present(v)
	if p == nil {
		return nil
	}
	out := fn(*p)
	return &out
}

func sourceRank(s Source) int {
	if s == SourceHistorical {
		return 0
	}
	return 1
}
