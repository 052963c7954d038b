package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGate() QualityGate {
	return NewQualityGate(GateParams{MinRows: 2, MaxGapDays: 1, MinTempC: -40, MaxTempC: 50})
}

func wideRow(date time.Time, cells map[Column]Value) MergedWideRecord {
	return MergedWideRecord{Date: date, Cells: cells}
}

func fullTable() MergedTable {
	cols := []Column{
		col(MeasureTempMax, SourceHistorical),
		col(MeasureTempMin, SourceHistorical),
		col(MeasurePrecip, SourceHistorical),
		col(MeasureAnomaly, SourceHistorical),
	}
	var rows []MergedWideRecord
	for day := 1; day <= 5; day++ {
		rows = append(rows, wideRow(Date(2022, time.April, day), map[Column]Value{
			cols[0]: Number(15),
			cols[1]: Number(5),
			cols[2]: Number(0),
			cols[3]: Text(string(Normal)),
		}))
	}
	return MergedTable{Columns: cols, Rows: rows}
}

func TestQualityGate_Passes(t *testing.T) {
	report := testGate().Evaluate(fullTable())

	assert.True(t, report.Passed)
	assert.Equal(t, 5, report.Rows)
	require.Len(t, report.Checks, 4)
	assert.Empty(t, report.Violations())
	assert.NoError(t, report.Err())
}

func TestQualityGate_MissingPrecipColumn(t *testing.T) {
	table := fullTable()
	table.Columns = []Column{table.Columns[0], table.Columns[1], table.Columns[3]}
	for _, row := range table.Rows {
		delete(row.Cells, col(MeasurePrecip, SourceHistorical))
	}

	report := testGate().Evaluate(table)

	assert.False(t, report.Passed)
	required, ok := report.Check(CheckRequiredColumns)
	require.True(t, ok)
	assert.False(t, required.Passed)
	assert.Equal(t, []string{"missing column: PRCP"}, required.Violations)

	for _, name := range []string{CheckRowCount, CheckDateContinuity, CheckTemperatureRange} {
		c, ok := report.Check(name)
		require.True(t, ok, name)
		assert.True(t, c.Passed, name)
	}

	err := report.Err()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrQualityGateFailure))
	var gateErr *QualityGateError
	require.ErrorAs(t, err, &gateErr)
	assert.Equal(t, []string{CheckRequiredColumns}, gateErr.Failed)
	assert.Contains(t, err.Error(), "missing column: PRCP")
}

func TestQualityGate_RequiredColumnSatisfiedByAnySource(t *testing.T) {
	table := fullTable()
	table.Columns[2] = col(MeasurePrecip, SourceRealtime)

	report := testGate().Evaluate(table)
	c, _ := report.Check(CheckRequiredColumns)
	assert.True(t, c.Passed)
}

func TestQualityGate_AllChecksEvaluated(t *testing.T) {
	tmax := col(MeasureTempMax, SourceHistorical)
	table := MergedTable{
		Columns: []Column{tmax},
		Rows:    []MergedWideRecord{wideRow(Date(2022, time.April, 1), map[Column]Value{tmax: Number(61)})},
	}

	report := testGate().Evaluate(table)

	assert.False(t, report.Passed)
	failed := map[string]bool{}
	for _, c := range report.Checks {
		failed[c.Name] = !c.Passed
	}
	assert.True(t, failed[CheckRowCount])
	assert.True(t, failed[CheckRequiredColumns])
	assert.True(t, failed[CheckTemperatureRange])
	assert.False(t, failed[CheckDateContinuity])

	required, _ := report.Check(CheckRequiredColumns)
	assert.ElementsMatch(t, []string{"missing column: TMIN", "missing column: PRCP", "missing column: ANOMALY"}, required.Violations)
}

func TestQualityGate_DateGaps(t *testing.T) {
	table := fullTable()
	// Apr 1, 3, 5: one missing day each time, within tolerance.
	table.Rows = []MergedWideRecord{table.Rows[0], table.Rows[2], table.Rows[4]}
	report := testGate().Evaluate(table)
	c, _ := report.Check(CheckDateContinuity)
	assert.True(t, c.Passed)

	// Jump from Apr 1 to Apr 5: three missing days.
	table.Rows = []MergedWideRecord{table.Rows[0], table.Rows[2]}
	report = testGate().Evaluate(table)
	c, _ = report.Check(CheckDateContinuity)
	assert.False(t, c.Passed)
	assert.Equal(t, []string{"date gap: 3 missing days between 2022-04-01 and 2022-04-05"}, c.Violations)
}

func TestQualityGate_RealtimeOnlyRowIsNotAGap(t *testing.T) {
	table := fullTable()
	live := col(MeasureTempMax, SourceRealtime)
	table.Columns = append(table.Columns, live)
	table.Rows = append(table.Rows, wideRow(Date(2024, time.October, 18), map[Column]Value{live: Number(12)}))

	report := testGate().Evaluate(table)
	c, _ := report.Check(CheckDateContinuity)
	assert.True(t, c.Passed)
}

func TestQualityGate_OutOfRangeFlaggedNotDropped(t *testing.T) {
	table := fullTable()
	tmin := col(MeasureTempMin, SourceHistorical)
	table.Rows[3].Cells[tmin] = Number(-45.5)

	report := testGate().Evaluate(table)

	c, _ := report.Check(CheckTemperatureRange)
	assert.False(t, c.Passed)
	require.Len(t, c.Violations, 1)
	assert.Contains(t, c.Violations[0], "TMIN_historical out of range on 2022-04-04")
	assert.Equal(t, 5, report.Rows)
}
