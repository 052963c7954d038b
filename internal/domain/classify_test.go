package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedBaselines() Baselines {
	return Baselines{
		Daily: map[MonthDay]BaselineEntry{
			{Month: time.June, Day: 15}: {MeanTempMax: 20, SampleCount: 10},
		},
		Monthly: map[time.Month]BaselineEntry{
			time.June: {MeanTempMax: 25, SampleCount: 300},
			time.July: {MeanTempMax: 28, SampleCount: 310},
		},
	}
}

func reading(date time.Time, tmax float64) CanonicalRecord {
	return CanonicalRecord{Date: date, TempMax: Float(tmax), Source: SourceRealtime}
}

func TestClassify_Thresholds(t *testing.T) {
	date := Date(2024, time.June, 15)
	tests := []struct {
		tmax float64
		want AnomalyLabel
	}{
		{23.0, AboveAverage},
		{22.999, Normal},
		{17.001, Normal},
		{17.0, BelowAverage},
		{20.0, Normal},
		{35.0, AboveAverage},
		{-5.0, BelowAverage},
	}
	for _, tc := range tests {
		c := Classify(reading(date, tc.tmax), fixedBaselines(), 3)
		assert.Equal(t, tc.want, c.Label, "tmax %v", tc.tmax)
		assert.Equal(t, TierDaily, c.Tier)
		require.NotNil(t, c.Delta)
		assert.InDelta(t, tc.tmax-20, *c.Delta, 1e-12)
	}
}

func TestClassify_FallsBackToMonthly(t *testing.T) {
	c := Classify(reading(Date(2024, time.June, 16), 28.5), fixedBaselines(), 3)

	assert.Equal(t, TierMonthly, c.Tier)
	assert.Equal(t, AboveAverage, c.Label)
	assert.InDelta(t, 3.5, *c.Delta, 1e-12)
}

func TestClassify_Unresolvable(t *testing.T) {
	c := Classify(reading(Date(2024, time.August, 1), 30), fixedBaselines(), 3)

	assert.Equal(t, Unclassified, c.Label)
	assert.Equal(t, Unclassified, c.MonthlyLabel)
	assert.Equal(t, TierNone, c.Tier)
	assert.Nil(t, c.Delta)
}

func TestClassify_MissingTempMax(t *testing.T) {
	rec := CanonicalRecord{Date: Date(2024, time.June, 15), TempMin: Float(10), Source: SourceHistorical}
	c := Classify(rec, fixedBaselines(), 3)

	assert.Equal(t, Unclassified, c.Label)
	assert.Nil(t, c.Delta)
}

func TestClassify_MonthlyLabelIndependentOfDaily(t *testing.T) {
	// Daily mean 20, monthly mean 25: 21.5 is Normal daily but Below monthly.
	c := Classify(reading(Date(2024, time.June, 15), 21.5), fixedBaselines(), 3)

	assert.Equal(t, Normal, c.Label)
	assert.Equal(t, BelowAverage, c.MonthlyLabel)
}

func TestClassify_ZeroSampleEntryIgnored(t *testing.T) {
	b := Baselines{
		Daily:   map[MonthDay]BaselineEntry{{Month: time.June, Day: 15}: {MeanTempMax: 0, SampleCount: 0}},
		Monthly: map[time.Month]BaselineEntry{time.June: {MeanTempMax: 25, SampleCount: 30}},
	}
	c := Classify(reading(Date(2024, time.June, 15), 25), b, 3)

	assert.Equal(t, TierMonthly, c.Tier)
	assert.Equal(t, Normal, c.Label)
}

func TestClassify_Deterministic(t *testing.T) {
	rec := reading(Date(2024, time.June, 15), 23.4)
	b := fixedBaselines()
	first := Classify(rec, b, 3)
	for range 100 {
		assert.Equal(t, first.Label, Classify(rec, b, 3).Label)
	}
}

func TestBaselines_Resolve(t *testing.T) {
	b := fixedBaselines()

	_, tier, err := b.Resolve(MonthDay{Month: time.June, Day: 15})
	require.NoError(t, err)
	assert.Equal(t, TierDaily, tier)

	e, tier, err := b.Resolve(MonthDay{Month: time.July, Day: 4})
	require.NoError(t, err)
	assert.Equal(t, TierMonthly, tier)
	assert.Equal(t, 28.0, e.MeanTempMax)

	_, tier, err = b.Resolve(MonthDay{Month: time.December, Day: 25})
	assert.True(t, errors.Is(err, ErrUnresolvableBaseline))
	assert.Equal(t, TierNone, tier)
}
