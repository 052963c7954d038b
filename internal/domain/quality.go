package domain

import (
	"fmt"
	"time"
)

// Quality check names.
const (
	CheckRowCount         = "row_count"
	CheckRequiredColumns  = "required_columns"
	CheckDateContinuity   = "date_continuity"
	CheckTemperatureRange = "temperature_range"
)

// RequiredMeasurements must each be present for at least one source.
var RequiredMeasurements = []Measurement{MeasureTempMax, MeasureTempMin, MeasurePrecip, MeasureAnomaly}

// CheckResult is the outcome of a single quality check.
type CheckResult struct {
	Name       string   `json:"name"`
	Passed     bool     `json:"passed"`
	Violations []string `json:"violations,omitempty"`
}

// QualityReport is the outcome of every check, in a fixed order.
type QualityReport struct {
	Passed bool          `json:"passed"`
	Rows   int           `json:"rows"`
	Checks []CheckResult `json:"checks"`
}

// Violations returns all violations across checks.
func (r QualityReport) Violations() []string {
	var out []string
	for _, c := range r.Checks {
		out = append(out, c.Violations...)
	}
	return out
}

// Check returns the named check result.
func (r QualityReport) Check(name string) (CheckResult, bool) {
	for _, c := range r.Checks {
		if c.Name == name {
			return c, true
		}
	}
	return CheckResult{}, false
}

// Err returns a *QualityGateError when any check failed, nil otherwise.
func (r QualityReport) Err() error {
	if r.Passed {
		return nil
	}
	e := &QualityGateError{}
	for _, c := range r.Checks {
		if !c.Passed {
			e.Failed = append(e.Failed, c.Name)
			e.Violations = append(e.Violations, c.Violations...)
		}
	}
	return e
}

// QualityGate validates a merged table before publication.
type QualityGate struct {
	params GateParams
}

// NewQualityGate creates a gate with the given tolerances.
func NewQualityGate(p GateParams) QualityGate {
	return QualityGate{params: p}
}

// Evaluate runs every check; none short-circuits another.
func (g QualityGate) Evaluate(t MergedTable) QualityReport {
	checks := []CheckResult{
		g.checkRowCount(t),
		g.checkRequiredColumns(t),
		g.checkDateContinuity(t),
		g.checkTemperatureRange(t),
	}
	report := QualityReport{Passed: true, Rows: len(t.Rows), Checks: checks}
	for _, c := range checks {
		if !c.Passed {
			report.Passed = false
		}
	}
	return report
}

func (g QualityGate) checkRowCount(t MergedTable) CheckResult {
	res := CheckResult{Name: CheckRowCount, Passed: true}
	if len(t.Rows) < g.params.MinRows {
		res.Passed = false
		res.Violations = append(res.Violations,
			fmt.Sprintf("row count %d below minimum %d", len(t.Rows), g.params.MinRows))
	}
	return res
}

func (g QualityGate) checkRequiredColumns(t MergedTable) CheckResult {
	res := CheckResult{Name: CheckRequiredColumns, Passed: true}
	for _, m := range RequiredMeasurements {
		if !t.HasMeasurement(m) {
			res.Passed = false
			res.Violations = append(res.Violations, "missing column: "+string(m))
		}
	}
	return res
}

// checkDateContinuity looks at rows carrying historical data only: the live
// reading is usually far past the end of the archive and is not a gap.
func (g QualityGate) checkDateContinuity(t MergedTable) CheckResult {
	res := CheckResult{Name: CheckDateContinuity, Passed: true}

	var prev time.Time
	for _, row := range t.Rows {
		if !hasSource(row, SourceHistorical) {
			continue
		}
		if !prev.IsZero() {
			missing := daysBetween(prev, row.Date) - 1
			if missing > g.params.MaxGapDays {
				res.Passed = false
				res.Violations = append(res.Violations, fmt.Sprintf(
					"date gap: %d missing days between %s and %s",
					missing, prev.Format(dateLayout), row.Date.Format(dateLayout)))
			}
		}
		prev = row.Date
	}
	return res
}

func (g QualityGate) checkTemperatureRange(t MergedTable) CheckResult {
	res := CheckResult{Name: CheckTemperatureRange, Passed: true}
	for _, row := range t.Rows {
		for _, c := range t.Columns {
			if c.Measurement != MeasureTempMax && c.Measurement != MeasureTempMin {
				continue
			}
			v, ok := row.Get(c).Float()
			if !ok {
				continue
			}
			if v < g.params.MinTempC || v > g.params.MaxTempC {
				res.Passed = false
				res.Violations = append(res.Violations, fmt.Sprintf(
					"%s out of range on %s: %.2f°C not in [%g, %g]",
					c.Name(), row.Date.Format(dateLayout), v, g.params.MinTempC, g.params.MaxTempC))
			}
		}
	}
	return res
}

func hasSource(row MergedWideRecord, s Source) bool {
	for c, v := range row.Cells {
		if c.Source == s && !v.IsNone() {
			return true
		}
	}
	return false
}

func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
