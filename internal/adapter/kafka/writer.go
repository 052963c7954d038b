package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ejsimon0408/BostonWeatherETL/internal/config"
	"github.com/ejsimon0408/BostonWeatherETL/internal/domain"
	"github.com/ejsimon0408/BostonWeatherETL/internal/pipeline"
	kafkago "github.com/segmentio/kafka-go"
)

const (
	headerRunID    = "run_id"
	headerLocation = "location_id"
	headerKind     = "kind"
	headerRunAt    = "run_started_at"

	kindRow    = "row"
	kindReport = "quality_report"
)

// Writer publishes merged rows and run reports to Kafka topics.
// It implements pipeline.Sink.
type Writer struct {
	rows    *kafkago.Writer
	reports *kafkago.Writer
	logger  *slog.Logger
}

// NewWriter creates producers for the configured sink and report topics.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	newProducer := func(topic string) *kafkago.Writer {
		return &kafkago.Writer{
			Addr:         kafkago.TCP(cfg.KafkaBrokers...),
			Topic:        topic,
			Balancer:     &kafkago.Hash{},
			RequiredAcks: kafkago.RequireAll,
			BatchSize:    cfg.BatchSize,
		}
	}
	return &Writer{
		rows:    newProducer(cfg.KafkaSinkTopic),
		reports: newProducer(cfg.KafkaReportTopic),
		logger:  logger,
	}
}

// LoadTable publishes one message per calendar date, keyed by the date so
// reruns of the same day land on the same partition.
func (w *Writer) LoadTable(ctx context.Context, meta pipeline.RunMeta, table domain.MergedTable) error {
	if len(table.Rows) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(table.Rows))
	for i := range table.Rows {
		msg, err := serializeRow(meta, table.Columns, table.Rows[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.rows.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish rows: %w", err)
	}
	w.logger.Info("rows published", "topic", w.rows.Topic, "count", len(msgs), "run_id", meta.RunID)
	return nil
}

// LoadReport publishes the run report keyed by location.
func (w *Writer) LoadReport(ctx context.Context, report pipeline.RunReport) error {
	msg, err := serializeReport(report)
	if err != nil {
		return err
	}
	if err := w.reports.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish report: %w", err)
	}
	return nil
}

func (w *Writer) Close() error {
	rowsErr := w.rows.Close()
	if err := w.reports.Close(); err != nil {
		return err
	}
	return rowsErr
}

// RowMessage is the payload of one merged row. Cells without a value are omitted.
type RowMessage struct {
	Date   string                  `json:"date"`
	Year   int                     `json:"year"`
	Month  int                     `json:"month"`
	Day    int                     `json:"day"`
	Values map[string]domain.Value `json:"values"`
}

func serializeRow(meta pipeline.RunMeta, columns []domain.Column, row domain.MergedWideRecord) (kafkago.Message, error) {
	date := row.Date.Format("2006-01-02")
	payload := RowMessage{
		Date:   date,
		Year:   row.Date.Year(),
		Month:  int(row.Date.Month()),
		Day:    row.Date.Day(),
		Values: make(map[string]domain.Value, len(columns)),
	}
	for _, c := range columns {
		if v := row.Get(c); !v.IsNone() {
			payload.Values[c.Name()] = v
		}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize row %s: %w", date, err)
	}
	return kafkago.Message{
		Key:     []byte(date),
		Value:   data,
		Headers: headers(meta, kindRow),
	}, nil
}

func serializeReport(report pipeline.RunReport) (kafkago.Message, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize report: %w", err)
	}
	return kafkago.Message{
		Key:     []byte(report.LocationID),
		Value:   data,
		Headers: headers(report.RunMeta, kindReport),
	}, nil
}

func headers(meta pipeline.RunMeta, kind string) []kafkago.Header {
	return []kafkago.Header{
		{Key: headerRunID, Value: []byte(meta.RunID)},
		{Key: headerLocation, Value: []byte(meta.LocationID)},
		{Key: headerKind, Value: []byte(kind)},
		{Key: headerRunAt, Value: []byte(meta.StartedAt.Format(time.RFC3339))},
	}
}
