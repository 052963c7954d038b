package postgres

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/ejsimon0408/BostonWeatherETL/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pagedDB serves rows after the requested key, mimicking the keyset query.
type pagedDB struct {
	rows  []historicalRow
	calls [][]any
	err   error
}

func (p *pagedDB) SelectContext(_ context.Context, dest any, _ string, args ...any) error {
	p.calls = append(p.calls, args)
	if p.err != nil {
		return p.err
	}
	date, station, limit := args[0].(string), args[1].(string), args[2].(int)

	var page []historicalRow
	for _, r := range p.rows {
		if r.Date < date || (r.Date == date && r.StationID <= station) {
			continue
		}
		page = append(page, r)
		if len(page) == limit {
			break
		}
	}
	*dest.(*[]historicalRow) = page
	return nil
}

func newTestSource(db selector) *Source {
	return &Source{db: db, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func row(station, date string, tmax float64) historicalRow {
	return historicalRow{
		StationID: station,
		Date:      date,
		TMax:      sql.NullFloat64{Float64: tmax, Valid: true},
	}
}

func TestSource_StreamHistorical_Pages(t *testing.T) {
	db := &pagedDB{rows: []historicalRow{
		row("A", "2020-01-01", 40),
		row("B", "2020-01-01", 41),
		row("A", "2020-01-02", 42),
		row("B", "2020-01-02", 43),
		row("A", "2020-01-03", 44),
	}}

	var got []domain.RawHistoricalRecord
	batches := 0
	err := newTestSource(db).StreamHistorical(context.Background(), 2, func(b []domain.RawHistoricalRecord) error {
		batches++
		got = append(got, b...)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, 3, batches)
	require.Len(t, got, 5)
	assert.Equal(t, "B", got[1].StationID)
	assert.Equal(t, 44.0, *got[4].TMax)

	require.Len(t, db.calls, 3, "a short page ends the stream")
	assert.Equal(t, []any{firstKey, "", 2}, db.calls[0])
	assert.Equal(t, []any{"2020-01-01", "B", 2}, db.calls[1])
}

func TestSource_StreamHistorical_EmptyPageEnds(t *testing.T) {
	db := &pagedDB{rows: []historicalRow{row("A", "2020-01-01", 40), row("A", "2020-01-02", 41)}}

	batches := 0
	err := newTestSource(db).StreamHistorical(context.Background(), 2, func([]domain.RawHistoricalRecord) error {
		batches++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, batches)
	assert.Len(t, db.calls, 2)
}

func TestSource_StreamHistorical_Errors(t *testing.T) {
	noop := func([]domain.RawHistoricalRecord) error { return nil }

	err := newTestSource(&pagedDB{}).StreamHistorical(context.Background(), 0, noop)
	assert.Error(t, err)

	err = newTestSource(&pagedDB{err: errors.New("connection refused")}).StreamHistorical(context.Background(), 10, noop)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")

	stop := errors.New("stop")
	db := &pagedDB{rows: []historicalRow{row("A", "2020-01-01", 40)}}
	err = newTestSource(db).StreamHistorical(context.Background(), 10, func([]domain.RawHistoricalRecord) error { return stop })
	assert.ErrorIs(t, err, stop)
}

func TestHistoricalRow_ToRaw(t *testing.T) {
	r := historicalRow{
		StationID: "USW00014739",
		Date:      "2020-07-04",
		TMax:      sql.NullFloat64{Float64: 300, Valid: true},
		Prcp:      sql.NullFloat64{Float64: 1.2, Valid: true},
		TempUnit:  "F_TENTHS",
		PrcpUnit:  "in",
	}

	raw := r.toRaw()
	assert.Nil(t, raw.TMin, "NULL maps to no value")
	assert.Equal(t, domain.FahrenheitTenths, raw.TempUnit)
	assert.Equal(t, domain.Inch, raw.PrecipUnit)

	res := domain.Normalize(domain.DefaultParams(), []domain.RawHistoricalRecord{raw}, nil)
	require.Len(t, res.Records, 1)
	assert.InDelta(t, 30.48, *res.Records[0].Precip, 1e-9)
	assert.InDelta(t, (30.0-32)*5/9, *res.Records[0].TempMax, 1e-9)
}

func TestSource_CloseWithoutPool(t *testing.T) {
	assert.NoError(t, newTestSource(&pagedDB{}).Close())
}
