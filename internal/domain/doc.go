// Package domain reconciles historical daily weather observations with live
// readings for a single location and classifies each observation against
// historical norms.
//
// # Data Sources
//
// Historical records come from a legacy daily archive (GHCN-style rows keyed by
// station and date). Live readings come from the Open-Meteo current_weather
// endpoint, one reading per poll. Both arrive as raw records and leave as
// [CanonicalRecord] values with fixed units.
//
// # Units
//
//	Historical TMAX/TMIN:  degrees Fahrenheit ("F"), or tenths of a degree
//	                       ("F_TENTHS", older archive exports), or Celsius ("C").
//	Historical PRCP:       hundredths of an inch ("hundredths_in"), inches ("in"),
//	                       or millimeters ("mm").
//	Realtime temperature:  "C" or "F" as tagged by the source.
//
//	Canonical:             Celsius and millimeters, always.
//
// Conversions are keyed on the unit tag, so a record already tagged "C"/"mm"
// passes through unchanged. [CanonicalRecord.AsRaw] produces exactly such a
// tagged record.
//
// # Dates
//
// A canonical date is a calendar date in the configured location timezone,
// stored as midnight UTC so it compares and keys independently of offsets.
// Realtime timestamps are converted to the location zone before the date is
// taken, so a 02:00Z reading in Boston belongs to the previous day.
//
// # Baselines and Classification
//
// Baselines are TMAX/TMIN means per (month, day) across all years and per month
// across all years. Classification compares TMAX only:
//
//	daily baseline present?    → use it
//	monthly baseline present?  → use it
//	neither                    → Unclassified
//
//	delta >= +threshold → Above Average
//	delta <= -threshold → Below Average
//	otherwise           → Normal
//
// A daily entry needs at least Params.MinDailySamples TMAX samples; Feb 29
// therefore usually resolves against the February monthly baseline.
//
// # Wide Layout
//
// Every classified record is melted into (date, column, value) triples where the
// column is source-qualified ("TMAX_historical", "ANOMALY_realtime") and then
// pivoted into one row per date. Values from different sources never collide.
package domain
