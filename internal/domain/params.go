package domain

import (
	"fmt"
	"math"
	"time"
	_ "time/tzdata" // location zones without relying on the host
)

// Params is every tunable the core needs. It is built once by the caller and
// passed down; nothing in this package reads the environment.
type Params struct {
	LocationID string
	Timezone   *time.Location

	// AnomalyThreshold is the TMAX delta in °C at which a record stops being Normal.
	AnomalyThreshold float64
	// MinDailySamples is the TMAX sample count a (month, day) needs to be used.
	MinDailySamples int

	// HistoricalPrecipUnit applies to archive rows without their own PRCP unit tag.
	HistoricalPrecipUnit PrecipUnit
	// RealtimeTempUnit applies to live readings without their own unit tag.
	RealtimeTempUnit TempUnit

	Gate GateParams
}

// GateParams configures the quality gate.
type GateParams struct {
	MinRows    int
	MaxGapDays int
	MinTempC   float64
	MaxTempC   float64
}

// DefaultParams returns the Boston defaults.
func DefaultParams() Params {
	return Params{
		LocationID:           "boston",
		Timezone:             mustLoadLocation("America/New_York"),
		AnomalyThreshold:     3,
		MinDailySamples:      3,
		HistoricalPrecipUnit: HundredthsInch,
		RealtimeTempUnit:     Celsius,
		Gate: GateParams{
			MinRows:    1,
			MaxGapDays: 0,
			MinTempC:   -40,
			MaxTempC:   50,
		},
	}
}

// Validate reports every invalid parameter as a single *ConfigurationError.
func (p Params) Validate() error {
	var problems []string
	if p.Timezone == nil {
		problems = append(problems, "timezone is required")
	}
	if !isFinite(p.AnomalyThreshold) || p.AnomalyThreshold <= 0 {
		problems = append(problems, fmt.Sprintf("anomaly threshold must be positive and finite, got %g", p.AnomalyThreshold))
	}
	if p.MinDailySamples < 1 {
		problems = append(problems, fmt.Sprintf("minimum daily samples must be at least 1, got %d", p.MinDailySamples))
	}
	if !validPrecipUnit(p.HistoricalPrecipUnit) {
		problems = append(problems, fmt.Sprintf("unknown historical precipitation unit %q", p.HistoricalPrecipUnit))
	}
	if p.RealtimeTempUnit != Celsius && p.RealtimeTempUnit != Fahrenheit {
		problems = append(problems, fmt.Sprintf("realtime temperature unit must be C or F, got %q", p.RealtimeTempUnit))
	}
	if p.Gate.MinRows < 0 {
		problems = append(problems, fmt.Sprintf("gate minimum rows must not be negative, got %d", p.Gate.MinRows))
	}
	if p.Gate.MaxGapDays < 0 {
		problems = append(problems, fmt.Sprintf("gate gap tolerance must not be negative, got %d", p.Gate.MaxGapDays))
	}
	switch {
	case !isFinite(p.Gate.MinTempC) || !isFinite(p.Gate.MaxTempC):
		problems = append(problems, fmt.Sprintf("gate temperature bounds must be finite: [%g, %g]", p.Gate.MinTempC, p.Gate.MaxTempC))
	case p.Gate.MinTempC >= p.Gate.MaxTempC:
		problems = append(problems, fmt.Sprintf("gate temperature range is empty: [%g, %g]", p.Gate.MinTempC, p.Gate.MaxTempC))
	}
	if len(problems) > 0 {
		return &ConfigurationError{Problems: problems}
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
