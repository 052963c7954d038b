package domain

import (
	"math"
	"time"
)

// BaselineEntry is the historical norm for one key. SampleCount is the number of
// TMAX samples, which is what classification relies on.
type BaselineEntry struct {
	MeanTempMax   float64 `json:"mean_tmax_c"`
	MeanTempMin   float64 `json:"mean_tmin_c"`
	StdDevTempMax float64 `json:"stddev_tmax_c"`
	SampleCount   int     `json:"sample_count"`
	TempMinCount  int     `json:"tmin_sample_count"`
}

// Baselines holds the daily and monthly norms. Entries with zero samples are
// never stored.
type Baselines struct {
	Daily   map[MonthDay]BaselineEntry
	Monthly map[time.Month]BaselineEntry
}

// sums is the associative state behind one baseline key.
type sums struct {
	maxSum, maxSumSq float64
	maxCount         int
	minSum           float64
	minCount         int
}

// add skips non-finite values so a single bad sample cannot poison a mean.
func (s *sums) add(rec CanonicalRecord) {
	if rec.TempMax != nil && isFinite(*rec.TempMax) {
		s.maxSum += *rec.TempMax
		s.maxSumSq += *rec.TempMax * *rec.TempMax
		s.maxCount++
	}
	if rec.TempMin != nil && isFinite(*rec.TempMin) {
		s.minSum += *rec.TempMin
		s.minCount++
	}
}

func (s *sums) merge(o sums) {
	s.maxSum += o.maxSum
	s.maxSumSq += o.maxSumSq
	s.maxCount += o.maxCount
	s.minSum += o.minSum
	s.minCount += o.minCount
}

func (s sums) entry() BaselineEntry {
	e := BaselineEntry{SampleCount: s.maxCount, TempMinCount: s.minCount}
	if s.maxCount > 0 {
		n := float64(s.maxCount)
		e.MeanTempMax = s.maxSum / n
		// Population variance; clamp rounding noise below zero.
		e.StdDevTempMax = math.Sqrt(math.Max(0, s.maxSumSq/n-e.MeanTempMax*e.MeanTempMax))
	}
	if s.minCount > 0 {
		e.MeanTempMin = s.minSum / float64(s.minCount)
	}
	return e
}

// BaselineAccumulator collects sums and counts per key so that baselines can be
// built from chunked input. Means are only computed in Build, so the result is
// the same however the historical series was split.
type BaselineAccumulator struct {
	daily   map[MonthDay]*sums
	monthly map[time.Month]*sums
}

// NewBaselineAccumulator returns an empty accumulator.
func NewBaselineAccumulator() *BaselineAccumulator {
	return &BaselineAccumulator{
		daily:   make(map[MonthDay]*sums),
		monthly: make(map[time.Month]*sums),
	}
}

// Add folds historical records into the accumulator. Realtime records are ignored.
func (a *BaselineAccumulator) Add(recs ...CanonicalRecord) {
	for _, rec := range recs {
		if rec.Source != SourceHistorical {
			continue
		}
		md := MonthDayOf(rec.Date)

		d, ok := a.daily[md]
		if !ok {
			d = &sums{}
			a.daily[md] = d
		}
		d.add(rec)

		m, ok := a.monthly[md.Month]
		if !ok {
			m = &sums{}
			a.monthly[md.Month] = m
		}
		m.add(rec)
	}
}

// Merge folds another accumulator into a. other is not modified.
func (a *BaselineAccumulator) Merge(other *BaselineAccumulator) {
	for k, s := range other.daily {
		d, ok := a.daily[k]
		if !ok {
			d = &sums{}
			a.daily[k] = d
		}
		d.merge(*s)
	}
	for k, s := range other.monthly {
		m, ok := a.monthly[k]
		if !ok {
			m = &sums{}
			a.monthly[k] = m
		}
		m.merge(*s)
	}
}

// Build computes baselines. Daily keys with fewer than minDailySamples TMAX
// samples are left out so classification falls back to the monthly baseline.
func (a *BaselineAccumulator) Build(minDailySamples int) Baselines {
	b := Baselines{
		Daily:   make(map[MonthDay]BaselineEntry, len(a.daily)),
		Monthly: make(map[time.Month]BaselineEntry, len(a.monthly)),
	}
	for k, s := range a.daily {
		if s.maxCount == 0 || s.maxCount < minDailySamples {
			continue
		}
		b.Daily[k] = s.entry()
	}
	for k, s := range a.monthly {
		if s.maxCount == 0 {
			continue
		}
		b.Monthly[k] = s.entry()
	}
	return b
}

// BuildBaselines is the one-shot form of BaselineAccumulator.
func BuildBaselines(historical []CanonicalRecord, minDailySamples int) Baselines {
	acc := NewBaselineAccumulator()
	acc.Add(historical...)
	return acc.Build(minDailySamples)
}
