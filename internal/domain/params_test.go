package domain

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultParams_Valid(t *testing.T) {
	p := DefaultParams()

	require.NoError(t, p.Validate())
	assert.Equal(t, "America/New_York", p.Timezone.String())
	assert.Equal(t, 3.0, p.AnomalyThreshold)
	assert.Equal(t, HundredthsInch, p.HistoricalPrecipUnit)
}

func TestParams_ValidateCollectsEveryProblem(t *testing.T) {
	p := DefaultParams()
	p.AnomalyThreshold = 0
	p.MinDailySamples = 0
	p.HistoricalPrecipUnit = "cubits"
	p.RealtimeTempUnit = FahrenheitTenths
	p.Gate.MinTempC, p.Gate.MaxTempC = 10, 10

	err := p.Validate()

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfiguration))
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Len(t, cfgErr.Problems, 5)
}

func TestParams_NilTimezone(t *testing.T) {
	p := DefaultParams()
	p.Timezone = nil

	var cfgErr *ConfigurationError
	require.ErrorAs(t, p.Validate(), &cfgErr)
	assert.Equal(t, []string{"timezone is required"}, cfgErr.Problems)
}

func TestParams_NegativeThresholdRejected(t *testing.T) {
	p := DefaultParams()
	p.AnomalyThreshold = -1
	p.Timezone = time.UTC

	assert.ErrorIs(t, p.Validate(), ErrConfiguration)
}

func TestParams_NonFiniteRejected(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Params)
	}{
		{"NaN threshold", func(p *Params) { p.AnomalyThreshold = math.NaN() }},
		{"+Inf threshold", func(p *Params) { p.AnomalyThreshold = math.Inf(1) }},
		{"-Inf threshold", func(p *Params) { p.AnomalyThreshold = math.Inf(-1) }},
		{"NaN gate minimum", func(p *Params) { p.Gate.MinTempC = math.NaN() }},
		{"NaN gate maximum", func(p *Params) { p.Gate.MaxTempC = math.NaN() }},
		{"-Inf gate minimum", func(p *Params) { p.Gate.MinTempC = math.Inf(-1) }},
		{"+Inf gate maximum", func(p *Params) { p.Gate.MaxTempC = math.Inf(1) }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := DefaultParams()
			tc.mutate(&p)

			var cfgErr *ConfigurationError
			require.ErrorAs(t, p.Validate(), &cfgErr)
			assert.Len(t, cfgErr.Problems, 1)
		})
	}
}

func TestParams_NonFiniteCollectedWithOtherProblems(t *testing.T) {
	p := DefaultParams()
	p.AnomalyThreshold = math.NaN()
	p.MinDailySamples = 0
	p.Gate.MinTempC = math.NaN()

	var cfgErr *ConfigurationError
	require.ErrorAs(t, p.Validate(), &cfgErr)
	assert.Len(t, cfgErr.Problems, 3)
}
