package domain

import "time"

// Source tags where a canonical record came from.
type Source string

const (
	SourceHistorical Source = "historical"
	SourceRealtime   Source = "realtime"
)

// TempUnit is the unit tag carried by a raw temperature field.
type TempUnit string

const (
	Fahrenheit       TempUnit = "F"
	FahrenheitTenths TempUnit = "F_TENTHS"
	Celsius          TempUnit = "C"
)

// PrecipUnit is the unit tag carried by a raw precipitation field.
type PrecipUnit string

const (
	HundredthsInch PrecipUnit = "hundredths_in"
	Inch           PrecipUnit = "in"
	Millimeter     PrecipUnit = "mm"
)

// RawRecord is either a RawHistoricalRecord or a RawRealtimeRecord.
type RawRecord interface {
	source() Source
}

// RawHistoricalRecord is one row of the legacy daily archive. Nil measurement
// pointers mean the archive had no value for that field.
type RawHistoricalRecord struct {
	StationID  string     `json:"station" db:"station_id"`
	Date       string     `json:"date" db:"observation_date"`
	TMax       *float64   `json:"TMAX,omitempty" db:"tmax"`
	TMin       *float64   `json:"TMIN,omitempty" db:"tmin"`
	Prcp       *float64   `json:"PRCP,omitempty" db:"prcp"`
	TempUnit   TempUnit   `json:"temp_unit,omitempty" db:"temp_unit"`
	PrecipUnit PrecipUnit `json:"prcp_unit,omitempty" db:"prcp_unit"`
}

func (RawHistoricalRecord) source() Source { return SourceHistorical }

// RawRealtimeRecord is a single live reading. Timestamp is ISO 8601 with offset.
type RawRealtimeRecord struct {
	Timestamp   string   `json:"timestamp"`
	Temperature *float64 `json:"temperature,omitempty"`
	TempUnit    TempUnit `json:"temp_unit,omitempty"`
	WindSpeed   *float64 `json:"windspeed,omitempty"` // km/h
	LocationID  string   `json:"location_id,omitempty"`
}

func (RawRealtimeRecord) source() Source { return SourceRealtime }

// CanonicalRecord is an observation in fixed units: Celsius, millimeters, km/h.
// Date is midnight UTC of the local calendar date.
type CanonicalRecord struct {
	Date       time.Time  `json:"date"`
	ObservedAt *time.Time `json:"observed_at,omitempty"`
	TempMax    *float64   `json:"tmax_c,omitempty"`
	TempMin    *float64   `json:"tmin_c,omitempty"`
	Precip     *float64   `json:"prcp_mm,omitempty"`
	WindSpeed  *float64   `json:"windspeed_kmh,omitempty"`
	Source     Source     `json:"source"`
	StationID  string     `json:"station_id,omitempty"`
}

// AsRaw re-expresses the record as raw input tagged with canonical units.
// Normalizing the result yields the same values.
func (c CanonicalRecord) AsRaw() RawRecord {
	if c.Source == SourceRealtime {
		ts := c.Date
		if c.ObservedAt != nil {
			ts = *c.ObservedAt
		}
		return RawRealtimeRecord{
			Timestamp:   ts.Format(time.RFC3339),
			Temperature: c.TempMax,
			TempUnit:    Celsius,
			WindSpeed:   c.WindSpeed,
			LocationID:  c.StationID,
		}
	}
	return RawHistoricalRecord{
		StationID:  c.StationID,
		Date:       c.Date.Format(dateLayout),
		TMax:       c.TempMax,
		TMin:       c.TempMin,
		Prcp:       c.Precip,
		TempUnit:   Celsius,
		PrecipUnit: Millimeter,
	}
}

// MonthDay is the daily baseline key.
type MonthDay struct {
	Month time.Month
	Day   int
}

// MonthDayOf returns the (month, day) of a date.
func MonthDayOf(t time.Time) MonthDay {
	return MonthDay{Month: t.Month(), Day: t.Day()}
}

// Date returns midnight UTC for the given calendar date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Float returns a pointer to v. Convenient for building records with optional fields.
func Float(v float64) *float64 {
	return &v
}
