package csvfile

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ejsimon0408/BostonWeatherETL/internal/domain"
	"github.com/ejsimon0408/BostonWeatherETL/internal/pipeline"
)

// Writer publishes the merged table as a flat CSV file and the run report as
// JSON next to it. Each file is replaced atomically.
// It implements pipeline.Sink.
type Writer struct {
	path       string
	reportPath string
	logger     *slog.Logger
}

// NewWriter creates a Writer for the table at path. The report goes to the
// same name with a _quality.json suffix.
func NewWriter(path string, logger *slog.Logger) *Writer {
	return &Writer{
		path:       path,
		reportPath: strings.TrimSuffix(path, filepath.Ext(path)) + "_quality.json",
		logger:     logger,
	}
}

// ReportPath is where LoadReport writes.
func (w *Writer) ReportPath() string { return w.reportPath }

func (w *Writer) LoadTable(_ context.Context, meta pipeline.RunMeta, table domain.MergedTable) error {
	err := writeAtomic(w.path, func(out io.Writer) error {
		return WriteTable(out, table)
	})
	if err != nil {
		return fmt.Errorf("write table csv: %w", err)
	}
	w.logger.Info("table written", "path", w.path, "rows", len(table.Rows), "run_id", meta.RunID)
	return nil
}

func (w *Writer) LoadReport(_ context.Context, report pipeline.RunReport) error {
	err := writeAtomic(w.reportPath, func(out io.Writer) error {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	})
	if err != nil {
		return fmt.Errorf("write quality report: %w", err)
	}
	return nil
}

// WriteTable renders the wide layout: date, year, month, day, then one column
// per source-qualified measurement. No value is an empty cell.
func WriteTable(out io.Writer, table domain.MergedTable) error {
	cw := csv.NewWriter(out)

	header := []string{"date", "year", "month", "day"}
	for _, c := range table.Columns {
		header = append(header, c.Name())
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	record := make([]string, len(header))
	for _, row := range table.Rows {
		record[0] = row.Date.Format("2006-01-02")
		record[1] = strconv.Itoa(row.Date.Year())
		record[2] = strconv.Itoa(int(row.Date.Month()))
		record[3] = strconv.Itoa(row.Date.Day())
		for i, c := range table.Columns {
			record[4+i] = row.Get(c).String()
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func writeAtomic(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after a successful rename

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
