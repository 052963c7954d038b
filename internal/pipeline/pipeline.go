package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ejsimon0408/BostonWeatherETL/internal/domain"
	"github.com/ejsimon0408/BostonWeatherETL/internal/observability"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// HistoricalSource streams archive rows in batches of at most batchSize.
// Returning an error from fn stops the stream with that error.
type HistoricalSource interface {
	StreamHistorical(ctx context.Context, batchSize int, fn func([]domain.RawHistoricalRecord) error) error
}

// RealtimeSource returns the current live reading for the configured location.
type RealtimeSource interface {
	Current(ctx context.Context) (domain.RawRealtimeRecord, error)
}

// Sink receives the merged table and the run report.
type Sink interface {
	LoadTable(ctx context.Context, meta RunMeta, table domain.MergedTable) error
	LoadReport(ctx context.Context, report RunReport) error
}

const (
	outcomePublished  = "published"
	outcomeGateFailed = "gate_failed"
	outcomeError      = "error"
)

// Pipeline runs extract, reconcile, and publish on a schedule.
type Pipeline struct {
	params     domain.Params
	historical HistoricalSource
	realtime   RealtimeSource
	sink       Sink
	logger     *slog.Logger
	metrics    *observability.Metrics

	clock            clockwork.Clock
	batchSize        int
	interval         time.Duration
	publishOnFailure bool

	ready  atomic.Bool
	mu     sync.RWMutex
	latest *RunReport
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c clockwork.Clock) Option {
	return func(p *Pipeline) { p.clock = c }
}

// WithBatchSize sets how many historical rows are requested per batch.
func WithBatchSize(n int) Option {
	return func(p *Pipeline) { p.batchSize = n }
}

// WithInterval sets the time between scheduled runs.
func WithInterval(d time.Duration) Option {
	return func(p *Pipeline) { p.interval = d }
}

// WithPublishOnGateFailure publishes the table even when the quality gate fails.
func WithPublishOnGateFailure(v bool) Option {
	return func(p *Pipeline) { p.publishOnFailure = v }
}

// New creates a Pipeline. realtime may be nil to run on historical data only.
func New(params domain.Params, historical HistoricalSource, realtime RealtimeSource, sink Sink, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Pipeline {
	p := &Pipeline{
		params:     params,
		historical: historical,
		realtime:   realtime,
		sink:       sink,
		logger:     logger,
		metrics:    metrics,
		clock:      clockwork.NewRealClock(),
		batchSize:  50,
		interval:   24 * time.Hour,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CheckReadiness returns nil once the pipeline has completed at least one run,
// or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not completed a run yet")
	}
	return nil
}

// LatestReport returns the report of the most recent completed run.
func (p *Pipeline) LatestReport() (RunReport, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.latest == nil {
		return RunReport{}, false
	}
	return *p.latest, true
}

// Run executes RunOnce immediately and then on every tick until the context is
// cancelled. Failed runs are retried with exponential backoff.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "interval", p.interval, "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	backoff := initialBackoff
	for {
		if _, err := p.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				p.logger.Info("pipeline stopping", "reason", ctx.Err())
				return nil
			}
			p.logger.Error("run failed", "error", err, "retry_in", backoff)
			if !sleepWithContext(ctx, p.clock, backoff) {
				p.logger.Info("pipeline stopping", "reason", ctx.Err())
				return nil
			}
			backoff = nextBackoff(backoff, maxBackoff)
			continue
		}
		backoff = initialBackoff

		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
		}
	}
}

// RunOnce performs a single extract-reconcile-publish cycle. A failed quality
// gate is not an error: it is recorded in the report and decides whether the
// table is published.
func (p *Pipeline) RunOnce(ctx context.Context) (RunReport, error) {
	start := p.clock.Now()
	meta := RunMeta{RunID: uuid.NewString(), LocationID: p.params.LocationID, StartedAt: start.UTC()}
	logger := p.logger.With("run_id", meta.RunID)

	normalizer := domain.NewNormalizer(p.params)

	batches := 0
	err := p.historical.StreamHistorical(ctx, p.batchSize, func(batch []domain.RawHistoricalRecord) error {
		batches++
		normalizer.AddHistorical(batch...)
		return ctx.Err()
	})
	if err != nil {
		p.metrics.RunsTotal.WithLabelValues(outcomeError).Inc()
		return RunReport{}, fmt.Errorf("extract historical: %w", err)
	}
	logger.Debug("historical extracted", "batches", batches)

	var realtimeErr error
	if p.realtime != nil {
		reading, err := p.realtime.Current(ctx)
		if err != nil {
			realtimeErr = err
			p.metrics.RealtimeFetches.WithLabelValues("error").Inc()
			logger.Warn("realtime fetch failed, continuing with historical data only", "error", err)
		} else {
			p.metrics.RealtimeFetches.WithLabelValues("success").Inc()
			normalizer.AddRealtime(reading)
		}
	}

	result := domain.ReconcileNormalized(p.params, normalizer.Result())
	p.observe(logger, result)

	report := newRunReport(meta, result)
	if realtimeErr != nil {
		report.RealtimeError = realtimeErr.Error()
	}

	publish := result.Quality.Passed || p.publishOnFailure
	if !result.Quality.Passed {
		logger.Warn("quality gate failed",
			"violations", result.Quality.Violations(),
			"publish", publish,
		)
	}

	var loadErr error
	if publish {
		if loadErr = p.sink.LoadTable(ctx, meta, result.Table); loadErr == nil {
			report.Published = true
			p.metrics.RowsPublished.Add(float64(len(result.Table.Rows)))
		}
	}

	report.FinishedAt = p.clock.Now().UTC()
	if err := p.sink.LoadReport(ctx, report); err != nil {
		loadErr = errors.Join(loadErr, err)
	}
	if loadErr != nil {
		p.metrics.RunsTotal.WithLabelValues(outcomeError).Inc()
		return report, fmt.Errorf("publish run %s: %w", meta.RunID, loadErr)
	}

	p.mu.Lock()
	p.latest = &report
	p.mu.Unlock()
	p.ready.Store(true)

	outcome := outcomePublished
	if !result.Quality.Passed {
		outcome = outcomeGateFailed
	} else {
		p.metrics.LastSuccess.Set(float64(report.FinishedAt.Unix()))
	}
	p.metrics.RunsTotal.WithLabelValues(outcome).Inc()
	p.metrics.RunDuration.Observe(p.clock.Since(start).Seconds())

	logger.Info("run complete",
		"outcome", outcome,
		"rows", len(result.Table.Rows),
		"columns", len(result.Table.Columns),
		"rejected", result.Normalized.Rejected,
		"published", report.Published,
	)
	return report, nil
}

func (p *Pipeline) observe(logger *slog.Logger, result domain.Result) {
	for _, src := range []domain.Source{domain.SourceHistorical, domain.SourceRealtime} {
		accepted := 0
		for _, rec := range result.Normalized.Records {
			if rec.Source == src {
				accepted++
			}
		}
		p.metrics.RecordsNormalized.WithLabelValues(string(src)).Add(float64(accepted))
		p.metrics.RecordsRejected.WithLabelValues(string(src)).Add(float64(result.Normalized.RejectedBy(src)))
	}
	for _, r := range result.Normalized.Rejections {
		logger.Debug("record rejected", "error", r)
	}
	for label, n := range result.LabelCounts() {
		p.metrics.AnomalyLabels.WithLabelValues(string(label)).Add(float64(n))
	}
	for _, c := range result.Quality.Checks {
		if !c.Passed {
			p.metrics.QualityFailures.WithLabelValues(c.Name).Inc()
		}
	}
}

const (
	initialBackoff = time.Second
	maxBackoff     = 5 * time.Minute
)

func nextBackoff(current, limit time.Duration) time.Duration {
	next := current * 2
	if next > limit {
		return limit
	}
	return next
}

func sleepWithContext(ctx context.Context, clock clockwork.Clock, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
