package domain

import (
	"encoding/json"
	"sort"
	"strconv"
	"time"
)

// Measurement names a column family in the wide layout.
type Measurement string

const (
	MeasureTempMax        Measurement = "TMAX"
	MeasureTempMin        Measurement = "TMIN"
	MeasurePrecip         Measurement = "PRCP"
	MeasureWindSpeed      Measurement = "WSPD"
	MeasureAnomaly        Measurement = "ANOMALY"
	MeasureMonthlyAnomaly Measurement = "ANOMALY_MONTHLY"
	MeasureDelta          Measurement = "DELTA"
	MeasureBasis          Measurement = "BASIS"
)

// Column is a source-qualified measurement, e.g. TMAX_historical.
type Column struct {
	Measurement Measurement
	Source      Source
}

// Name is the column header used in the flat output.
func (c Column) Name() string {
	return string(c.Measurement) + "_" + string(c.Source)
}

type valueKind uint8

const (
	kindNone valueKind = iota
	kindNumber
	kindText
)

// Value is a cell: a number, a text label, or no value (the zero Value).
type Value struct {
	kind valueKind
	num  float64
	text string
}

// Number wraps a numeric cell.
func Number(v float64) Value { return Value{kind: kindNumber, num: v} }

// Text wraps a label cell.
func Text(s string) Value { return Value{kind: kindText, text: s} }

// NumberOrNone converts an optional float into a cell.
func NumberOrNone(v *float64) Value {
	if v == nil {
		return Value{}
	}
	return Number(*v)
}

// IsNone reports whether the cell holds no value.
func (v Value) IsNone() bool { return v.kind == kindNone }

// Float returns the numeric content and whether the cell is numeric.
func (v Value) Float() (float64, bool) { return v.num, v.kind == kindNumber }

// String renders the cell for flat output; no value renders empty.
func (v Value) String() string {
	switch v.kind {
	case kindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case kindText:
		return v.text
	default:
		return ""
	}
}

// MarshalJSON encodes numbers as numbers, labels as strings, and no value as
// null. Non-finite numbers have no JSON form and also encode as null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case kindNumber:
		if !isFinite(v.num) {
			return []byte("null"), nil
		}
		return json.Marshal(v.num)
	case kindText:
		return json.Marshal(v.text)
	default:
		return []byte("null"), nil
	}
}

// LongRecord is one (date, column, value) triple.
type LongRecord struct {
	Date   time.Time
	Column Column
	Value  Value
}

// MergedWideRecord is one row per calendar date.
type MergedWideRecord struct {
	Date  time.Time
	Cells map[Column]Value
}

// Get returns the cell for a column, or no value.
func (r MergedWideRecord) Get(c Column) Value {
	return r.Cells[c]
}

// MergedTable is the wide layout: a sorted column list and rows by ascending date.
type MergedTable struct {
	Columns []Column
	Rows    []MergedWideRecord
}

// HasMeasurement reports whether any source carries a column for m.
func (t MergedTable) HasMeasurement(m Measurement) bool {
	for _, c := range t.Columns {
		if c.Measurement == m {
			return true
		}
	}
	return false
}

// Melt turns classified records into long triples. Absent measurements emit
// nothing; labels are always emitted.
func Melt(recs []ClassifiedRecord) []LongRecord {
	out := make([]LongRecord, 0, len(recs)*6)
	for _, rec := range recs {
		emit := func(m Measurement, v Value) {
			if v.IsNone() {
				return
			}
			out = append(out, LongRecord{Date: rec.Date, Column: Column{Measurement: m, Source: rec.Source}, Value: v})
		}
		emit(MeasureTempMax, NumberOrNone(rec.TempMax))
		emit(MeasureTempMin, NumberOrNone(rec.TempMin))
		emit(MeasurePrecip, NumberOrNone(rec.Precip))
		emit(MeasureWindSpeed, NumberOrNone(rec.WindSpeed))
		emit(MeasureAnomaly, Text(string(rec.Anomaly.Label)))
		emit(MeasureMonthlyAnomaly, Text(string(rec.Anomaly.MonthlyLabel)))
		emit(MeasureBasis, Text(string(rec.Anomaly.Tier)))
		emit(MeasureDelta, NumberOrNone(rec.Anomaly.Delta))
	}
	return out
}

// Pivot reshapes long triples into one row per date. A column exists only if at
// least one triple carries it. If the same (date, column) appears twice the
// later triple wins.
func Pivot(long []LongRecord) MergedTable {
	rows := make(map[int64]*MergedWideRecord)
	cols := make(map[Column]struct{})

	for _, lr := range long {
		key := lr.Date.Unix()
		row, ok := rows[key]
		if !ok {
			row = &MergedWideRecord{Date: lr.Date, Cells: make(map[Column]Value)}
			rows[key] = row
		}
		row.Cells[lr.Column] = lr.Value
		cols[lr.Column] = struct{}{}
	}

	table := MergedTable{
		Columns: make([]Column, 0, len(cols)),
		Rows:    make([]MergedWideRecord, 0, len(rows)),
	}
	for c := range cols {
		table.Columns = append(table.Columns, c)
	}
	sortColumns(table.Columns)

	for _, row := range rows {
		table.Rows = append(table.Rows, *row)
	}
	sort.Slice(table.Rows, func(i, j int) bool {
		return table.Rows[i].Date.Before(table.Rows[j].Date)
	})
	return table
}

// Unpivot re-emits the present cells of a table as long triples, ordered by
// date and then by column order.
func Unpivot(t MergedTable) []LongRecord {
	var out []LongRecord
	for _, row := range t.Rows {
		for _, c := range t.Columns {
			v := row.Get(c)
			if v.IsNone() {
				continue
			}
			out = append(out, LongRecord{Date: row.Date, Column: c, Value: v})
		}
	}
	return out
}

// MergeAndPivot melts and pivots classified records of both sources.
func MergeAndPivot(recs []ClassifiedRecord) MergedTable {
	return Pivot(Melt(recs))
}

var measurementOrder = map[Measurement]int{
	MeasureTempMax:        0,
	MeasureTempMin:        1,
	MeasurePrecip:         2,
	MeasureWindSpeed:      3,
	MeasureAnomaly:        4,
	MeasureMonthlyAnomaly: 5,
	MeasureDelta:          6,
	MeasureBasis:          7,
}

// sortColumns orders by source (historical first), then measurement.
func sortColumns(cols []Column) {
	sort.Slice(cols, func(i, j int) bool {
		a, b := cols[i], cols[j]
		if a.Source != b.Source {
			return sourceRank(a.Source) < sourceRank(b.Source)
		}
		oa, okA := measurementOrder[a.Measurement]
		ob, okB := measurementOrder[b.Measurement]
		switch {
		case okA && okB:
			return oa < ob
		case okA != okB:
			return okA
		default:
			return a.Measurement < b.Measurement
		}
	})
}
