package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/ejsimon0408/BostonWeatherETL/internal/domain"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Pages are keyed on (observation_date, station_id) so stations sharing a
// date are never split or repeated across pages.
const pageQuery = `
SELECT station_id,
       to_char(observation_date, 'YYYY-MM-DD') AS observation_date,
       tmax, tmin, prcp,
       COALESCE(temp_unit, '') AS temp_unit,
       COALESCE(prcp_unit, '') AS prcp_unit
FROM daily_observations
WHERE (observation_date, station_id) > ($1::date, $2)
ORDER BY observation_date, station_id
LIMIT $3`

// firstKey sorts before any archived date.
const firstKey = "0001-01-01"

type selector interface {
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

// historicalRow mirrors a daily_observations row. Nullable measurements map
// onto nil pointers.
type historicalRow struct {
	StationID string          `db:"station_id"`
	Date      string          `db:"observation_date"`
	TMax      sql.NullFloat64 `db:"tmax"`
	TMin      sql.NullFloat64 `db:"tmin"`
	Prcp      sql.NullFloat64 `db:"prcp"`
	TempUnit  string          `db:"temp_unit"`
	PrcpUnit  string          `db:"prcp_unit"`
}

func (r historicalRow) toRaw() domain.RawHistoricalRecord {
	return domain.RawHistoricalRecord{
		StationID:  r.StationID,
		Date:       r.Date,
		TMax:       nullable(r.TMax),
		TMin:       nullable(r.TMin),
		Prcp:       nullable(r.Prcp),
		TempUnit:   domain.TempUnit(r.TempUnit),
		PrecipUnit: domain.PrecipUnit(r.PrcpUnit),
	}
}

func nullable(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

// Source streams the daily archive from Postgres one page at a time.
// It implements pipeline.HistoricalSource.
type Source struct {
	db     selector
	closer func() error
	logger *slog.Logger
}

// Open connects to the database at url and verifies the connection.
func Open(ctx context.Context, url string, logger *slog.Logger) (*Source, error) {
	db, err := sqlx.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger.Info("postgres historical source connected")
	return &Source{db: db, closer: db.Close, logger: logger}, nil
}

// StreamHistorical pages through daily_observations in date order.
func (s *Source) StreamHistorical(ctx context.Context, batchSize int, fn func([]domain.RawHistoricalRecord) error) error {
	if batchSize <= 0 {
		return fmt.Errorf("invalid batch size %d", batchSize)
	}

	lastDate, lastStation := firstKey, ""
	pages := 0
	for {
		var rows []historicalRow
		if err := s.db.SelectContext(ctx, &rows, pageQuery, lastDate, lastStation, batchSize); err != nil {
			return fmt.Errorf("select historical page %d: %w", pages+1, err)
		}
		if len(rows) == 0 {
			break
		}
		pages++

		batch := make([]domain.RawHistoricalRecord, len(rows))
		for i, r := range rows {
			batch[i] = r.toRaw()
		}
		if err := fn(batch); err != nil {
			return err
		}

		last := rows[len(rows)-1]
		lastDate, lastStation = last.Date, last.StationID
		if len(rows) < batchSize {
			break
		}
	}

	s.logger.Debug("historical archive read", "pages", pages)
	return nil
}

// Close releases the connection pool.
func (s *Source) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}
