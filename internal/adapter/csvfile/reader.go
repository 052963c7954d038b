package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/ejsimon0408/BostonWeatherETL/internal/domain"
)

// Recognised header names, matched case-insensitively.
const (
	colStation    = "STATION"
	colDate       = "DATE"
	colTempMax    = "TMAX"
	colTempMin    = "TMIN"
	colPrecip     = "PRCP"
	colTempUnit   = "TEMP_UNIT"
	colPrecipUnit = "PRCP_UNIT"
)

// Reader streams daily archive rows from a CSV file with a header line. Only
// DATE is required; any other recognised column may be absent.
// It implements pipeline.HistoricalSource.
type Reader struct {
	path   string
	logger *slog.Logger
}

// NewReader creates a Reader for the file at path.
func NewReader(path string, logger *slog.Logger) *Reader {
	return &Reader{path: path, logger: logger}
}

// StreamHistorical reads the file and hands rows to fn in batches.
func (r *Reader) StreamHistorical(ctx context.Context, batchSize int, fn func([]domain.RawHistoricalRecord) error) error {
	f, err := os.Open(r.path)
	if err != nil {
		return fmt.Errorf("open historical csv: %w", err)
	}
	defer f.Close()

	return r.stream(ctx, f, batchSize, fn)
}

func (r *Reader) stream(ctx context.Context, in io.Reader, batchSize int, fn func([]domain.RawHistoricalRecord) error) error {
	if batchSize <= 0 {
		return fmt.Errorf("invalid batch size %d", batchSize)
	}

	cr := csv.NewReader(in)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return fmt.Errorf("read csv header: %w", err)
	}
	idx := indexHeader(header)
	if _, ok := idx[colDate]; !ok {
		return fmt.Errorf("csv header has no %s column", colDate)
	}

	batch := make([]domain.RawHistoricalRecord, 0, batchSize)
	line := 1
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return fmt.Errorf("read csv line %d: %w", line, err)
		}

		batch = append(batch, r.parseRow(idx, row, line))
		if len(batch) == batchSize {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(batch); err != nil {
				return err
			}
			batch = make([]domain.RawHistoricalRecord, 0, batchSize)
		}
	}
	if len(batch) > 0 {
		return fn(batch)
	}
	return nil
}

func indexHeader(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	return idx
}

func (r *Reader) parseRow(idx map[string]int, row []string, line int) domain.RawHistoricalRecord {
	cell := func(name string) string {
		i, ok := idx[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
	number := func(name string) *float64 {
		s := cell(name)
		if s == "" {
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			r.logger.Warn("unparseable value treated as missing", "line", line, "column", name, "value", s)
			return nil
		}
		return &v
	}

	return domain.RawHistoricalRecord{
		StationID:  cell(colStation),
		Date:       cell(colDate),
		TMax:       number(colTempMax),
		TMin:       number(colTempMin),
		Prcp:       number(colPrecip),
		TempUnit:   domain.TempUnit(cell(colTempUnit)),
		PrecipUnit: domain.PrecipUnit(cell(colPrecipUnit)),
	}
}
